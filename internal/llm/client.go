package llm

import (
	"context"
	"errors"
)

// Client is the generation collaborator: prompt in, raw text out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrCollaboratorUnavailable covers transport failures and non-2xx answers.
	ErrCollaboratorUnavailable = errors.New("generation collaborator unavailable")
	// ErrMalformedResponse means the collaborator answered but not with the menu schema.
	ErrMalformedResponse = errors.New("malformed generation response")
)
