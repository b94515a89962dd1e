package errors

import "errors"

// Session / turn errors.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrGameOver          = errors.New("game is over")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrAwaitingAgent     = errors.New("waiting for the agent to play")
	ErrNoSelection       = errors.New("no cards selected")
	ErrInvalidCardIndex  = errors.New("invalid card index")
	ErrInvalidJokerValue = errors.New("joker value must be between 1 and 13")
	ErrJokerValueSet     = errors.New("joker value already assigned")
	ErrNotAJoker         = errors.New("card is not a joker")
	ErrJokerValuePending = errors.New("choose a value for the selected joker first")
	ErrSessionClosed     = errors.New("session closed")
)

// Rule engine errors.
var (
	ErrUnknownRule       = errors.New("unknown rule")
	ErrRulePrerequisites = errors.New("rule prerequisites not enabled")
	ErrInvalidSettings   = errors.New("invalid rule settings")
)

// Agent protocol errors.
var (
	ErrAgentTransport     = errors.New("agent transport failed")
	ErrAgentNotConfigured = errors.New("agent not configured")
	ErrMalformedResponse  = errors.New("malformed agent response")
	ErrNoJSONObject       = errors.New("no json object in agent response")
	ErrInvalidResponse    = errors.New("agent response is not a valid move")
	ErrMissingAction      = errors.New("agent response missing action")
)

// Auth errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
)
