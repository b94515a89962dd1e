package agent

import (
	"context"
	"errors"
	"time"

	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"

	"go.uber.org/zap"
)

// Status messages shown to the player when an agent turn fails.
const (
	StatusTransportError = "Error contacting agent"
	StatusMalformed      = "Malformed agent response."
	StatusNoJSON         = "Could not parse model output."
	StatusInvalid        = "Invalid model response."
	StatusNoAction       = "Invalid model response (no action)."
)

type Service struct {
	transport Transport
}

func NewService(transport Transport) *Service {
	return &Service{transport: transport}
}

// Decide sends one request and parses the reply. raw is returned whenever
// the transport produced a body, so callers can log it on parse failures.
func (s *Service) Decide(ctx context.Context, req Request) (*Result, string, error) {
	if s == nil || s.transport == nil {
		return nil, "", appErr.ErrAgentNotConfigured
	}
	prompt, err := Prompt(req)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	raw, err := s.transport.Send(ctx, prompt)
	if err != nil {
		logger.Log.Warn("agent call failed",
			zap.String("gameID", req.GameID),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, "", err
	}
	logger.Log.Debug("agent raw response",
		zap.String("gameID", req.GameID),
		zap.Duration("latency", time.Since(start)),
		zap.String("raw", raw),
	)

	res, err := ParseResponse(raw)
	if err != nil {
		logger.Log.Warn("agent response rejected", zap.String("gameID", req.GameID), zap.Error(err))
		return nil, raw, err
	}
	return res, raw, nil
}

// StatusMessage maps a Decide error to the text shown to the player.
func StatusMessage(err error) string {
	switch {
	case errors.Is(err, appErr.ErrMissingAction):
		return StatusNoAction
	case errors.Is(err, appErr.ErrNoJSONObject):
		return StatusNoJSON
	case errors.Is(err, appErr.ErrInvalidResponse):
		return StatusInvalid
	case errors.Is(err, appErr.ErrMalformedResponse):
		return StatusMalformed
	default:
		return StatusTransportError
	}
}
