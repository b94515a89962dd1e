package agent

import (
	"encoding/json"
	"fmt"
)

const (
	HiddenCard   = "unknown"
	EmptyDiscard = "none"
)

const promptPreamble = "You are an AI card decision engine. Return ONLY JSON with fields 'action', 'discardReturn' and 'updatedHand'. "

// DefaultInstruction tells the model what its hand, discard and indices mean.
const DefaultInstruction = "You are a player in a card game. " +
	"The gameId is an identifier for the game. " +
	"Using the rules listed in 'rules', and the cards in your hand, denoted by 'playerHand', " +
	"and the card shown on the discard pile, denoted as 'discardTop', take your go. " +
	"The values in 'stack' are hidden and must not be used in your decision. " +
	"Put the zero-based indices of the cards you discard from 'playerHand' in 'discardReturn', separated by '/'."

// Request is what the agent sees of the game. Stack never carries card
// values.
type Request struct {
	GameID      string   `json:"gameId"`
	Instruction string   `json:"instruction"`
	Rules       []string `json:"rules"`
	PlayerHand  []string `json:"playerHand"`
	DiscardTop  string   `json:"discardTop"`
	Stack       []string `json:"stack"`
}

type RequestInput struct {
	GameID      string
	Instruction string
	ActiveRules []string
	Hand        []string
	DiscardTop  string
	StackCount  int
}

// BuildRequest assembles a request with the draw pile masked.
func BuildRequest(in RequestInput) Request {
	instruction := in.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	discardTop := in.DiscardTop
	if discardTop == "" {
		discardTop = EmptyDiscard
	}
	rules := append([]string{}, in.ActiveRules...)
	hand := append([]string{}, in.Hand...)
	return Request{
		GameID:      in.GameID,
		Instruction: instruction,
		Rules:       rules,
		PlayerHand:  hand,
		DiscardTop:  discardTop,
		Stack:       MaskStack(in.StackCount),
	}
}

func MaskStack(n int) []string {
	if n < 0 {
		n = 0
	}
	stack := make([]string, n)
	for i := range stack {
		stack[i] = HiddenCard
	}
	return stack
}

// Prompt renders the request as the text sent to the model.
func Prompt(req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}
	return promptPreamble + string(body), nil
}
