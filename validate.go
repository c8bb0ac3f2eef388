package docchat

import (
	"fmt"
	"strings"
)

// MaxQueryBytes bounds the size of a single query.
const MaxQueryBytes = 32 << 10

// Validate checks universal constraints on Request.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(r.Query) > MaxQueryBytes {
		return fmt.Errorf("query exceeds %d bytes, got %d: %w", MaxQueryBytes, len(r.Query), ErrValidation)
	}
	return nil
}

// ValidateMessage checks the structural invariants of a single message.
func ValidateMessage(m Message) error {
	switch m.Sender {
	case SenderUser:
		if !m.Terminal {
			return fmt.Errorf("user message must be terminal: %w", ErrValidation)
		}
		if m.Failed {
			return fmt.Errorf("user message cannot be failed: %w", ErrValidation)
		}
	case SenderBot:
		if m.Failed && !m.Terminal {
			return fmt.Errorf("failed message must be terminal: %w", ErrValidation)
		}
	default:
		return fmt.Errorf("unknown sender %q: %w", m.Sender, ErrValidation)
	}
	return nil
}
