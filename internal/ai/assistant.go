package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a Generator that has no usable credentials.
// Callers treat it as "no model available" rather than as a failed call.
var ErrNotConfigured = errors.New("ai provider is not configured")

// Generator produces a completion for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Described is implemented by generators that can report their provider and model.
type Described interface {
	Provider() string
	Model() string
}
