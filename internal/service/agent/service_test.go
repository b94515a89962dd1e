package agent_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"rulecard-service/internal/service/agent"
	appErr "rulecard-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportFunc func(ctx context.Context, prompt string) (string, error)

func (f transportFunc) Send(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestDecideRoundTrip(t *testing.T) {
	hand := []string{"3 of Hearts", "Queen of Spades", "Ace of Clubs"}
	var sent string
	svc := agent.NewService(transportFunc(func(ctx context.Context, prompt string) (string, error) {
		sent = prompt
		return "Thinking...\n```json\n{\"action\":\"discard\",\"discardReturn\":\"2/0\",\"updatedHand\":[\"Queen of Spades\"]}\n```", nil
	}))

	req := agent.BuildRequest(agent.RequestInput{GameID: "GAME-RT", Hand: hand, StackCount: 10})
	res, raw, err := svc.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, raw, "Thinking")
	assert.Contains(t, sent, `"playerHand":["3 of Hearts","Queen of Spades","Ace of Clubs"]`)
	assert.Equal(t, 10, strings.Count(sent, `"unknown"`))

	valid, skipped := agent.ParseDiscardIndices(string(res.DiscardReturn), len(hand))
	assert.Empty(t, skipped)
	assert.Equal(t, []int{2, 0}, valid)

	remaining := append([]string(nil), hand...)
	for _, idx := range valid {
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	assert.Equal(t, []string{"Queen of Spades"}, remaining)
}

func TestDecideTransportFailure(t *testing.T) {
	svc := agent.NewService(transportFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", fmt.Errorf("%w: dial tcp: refused", appErr.ErrAgentTransport)
	}))

	res, raw, err := svc.Decide(context.Background(), agent.Request{})
	assert.Nil(t, res)
	assert.Empty(t, raw)
	require.ErrorIs(t, err, appErr.ErrAgentTransport)
	assert.Equal(t, agent.StatusTransportError, agent.StatusMessage(err))
}

func TestDecideKeepsRawOnParseFailure(t *testing.T) {
	svc := agent.NewService(transportFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{"candidates":[{"content":{"parts":[{"text":"no idea"}]}}]}`, nil
	}))

	_, raw, err := svc.Decide(context.Background(), agent.Request{})
	require.ErrorIs(t, err, appErr.ErrNoJSONObject)
	assert.Contains(t, raw, "no idea")
}

func TestDecideWithoutTransport(t *testing.T) {
	var nilSvc *agent.Service
	_, _, err := nilSvc.Decide(context.Background(), agent.Request{})
	assert.ErrorIs(t, err, appErr.ErrAgentNotConfigured)

	_, _, err = agent.NewService(nil).Decide(context.Background(), agent.Request{})
	assert.ErrorIs(t, err, appErr.ErrAgentNotConfigured)
	assert.Equal(t, agent.StatusTransportError, agent.StatusMessage(err))
}

func TestStatusMessageDefaultsToTransport(t *testing.T) {
	assert.Equal(t, agent.StatusTransportError, agent.StatusMessage(errors.New("boom")))
	assert.Equal(t, agent.StatusTransportError, agent.StatusMessage(context.DeadlineExceeded))
}
