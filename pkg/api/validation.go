package api

import "fmt"

// ValidationConfig holds configurable limits for relay requests.
type ValidationConfig struct {
	MaxMessages        int
	MaxContentSize     int
	MaxSessionIDLength int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:        1000,
		MaxContentSize:     1 << 20, // 1MB per message
		MaxSessionIDLength: 256,
	}
}

// ValidateRelayRequest checks a normalized request against cfg. It returns
// an *APIError describing the first failure, or nil if the request is
// valid. Zero limits are not enforced. Roles are not checked; they pass
// through to the upstream unchanged.
func ValidateRelayRequest(req *RelayRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "no messages to relay")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("too many messages: %d exceeds maximum of %d", len(req.Messages), cfg.MaxMessages))
	}

	if cfg.MaxSessionIDLength > 0 && len(req.SessionID) > cfg.MaxSessionIDLength {
		return NewInvalidRequestError("session_id",
			fmt.Sprintf("session id exceeds maximum length of %d", cfg.MaxSessionIDLength))
	}

	if cfg.MaxContentSize > 0 {
		for i, m := range req.Messages {
			if len(m.Content) > cfg.MaxContentSize {
				return NewInvalidRequestError(fmt.Sprintf("messages[%d].content", i),
					fmt.Sprintf("content size %d exceeds maximum of %d bytes", len(m.Content), cfg.MaxContentSize))
			}
		}
	}

	return nil
}
