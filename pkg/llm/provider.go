// Package llm drives text generation: providers that stream tokens from a
// hosted model, a trimmed conversation context, and a worker goroutine that
// runs generation requests with mid-flight cancellation.
package llm

import (
	"context"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// Provider streams a completion token by token. onToken is called once per
// token; if it returns false, the provider must stop consuming the stream
// and return promptly with whatever text was accumulated so far plus
// ErrStopped.
type Provider interface {
	StreamComplete(ctx context.Context, messages []types.Message, onToken func(token string) bool) (string, error)
	Name() string
}

// ErrStopped is returned by StreamComplete when onToken requested an early
// stop. Callers treat this as a normal interruption, not a failure.
type ErrStopped struct{}

func (ErrStopped) Error() string { return "generation stopped" }
