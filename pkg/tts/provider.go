// Package tts drives speech synthesis: a provider interface over hosted
// voices, deterministic text normalization, an ordered per-request audio
// reassembly queue, and a worker that ties them together.
package tts

import (
	"context"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// Provider synthesizes text to audio, streaming chunks as they arrive, and
// supports aborting an in-flight call. The Worker forwards its Abort command
// here only between synthesis calls, so through the Worker it does not cut
// off a synthesis that is already running.
type Provider interface {
	Synthesize(ctx context.Context, text string, voice types.Voice, lang types.Language) ([]byte, error)
	StreamSynthesize(ctx context.Context, text string, voice types.Voice, lang types.Language, onChunk func([]byte) error) error
	Name() string
	Abort() error
}
