// Package stt drives speech transcription: a transcriber interface over
// hosted providers, and a worker that pairs the VAD segmenter with a
// transcriber to turn raw audio chunks into FirstWord/Final events.
package stt

import (
	"context"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// Transcriber turns raw PCM16 audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPCM []byte, lang types.Language) (string, error)
	Name() string
}
