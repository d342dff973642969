package stt

import (
	"context"
	"testing"
	"time"

	"github.com/k0sti/babble-sub000/pkg/types"
	"github.com/k0sti/babble-sub000/pkg/vad"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Name() string { return "stub" }
func (s *stubTranscriber) Transcribe(ctx context.Context, audioPCM []byte, lang types.Language) (string, error) {
	return s.text, s.err
}

func loud(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.9
		} else {
			out[i] = -0.9
		}
	}
	return out
}

func quiet(n int) []float32 { return make([]float32, n) }

func newTestWorker(transcriber Transcriber) *Worker {
	cfg := vad.Config{
		VADThreshold:       0.5,
		MinSegmentDuration: 50 * time.Millisecond,
		MaxSegmentDuration: 200 * time.Millisecond,
		SilenceThreshold:   50 * time.Millisecond,
		SampleRate:         1000,
	}
	seg := vad.New(vad.NewRMSDetector(0.5), cfg)
	return NewWorker(transcriber, seg, types.LanguageEn, 1000, 10)
}

func TestWorkerEmitsFirstWordThenFinal(t *testing.T) {
	w := newTestWorker(&stubTranscriber{text: "Hello there"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- ProcessAudio{Chunk: loud(60)}
	ev := <-w.Events()
	if ev.Kind != EventFirstWord || ev.Text != "hello" {
		t.Fatalf("expected first word 'hello', got %+v", ev)
	}

	w.Commands() <- ProcessAudio{Chunk: quiet(60)}
	ev = <-w.Events()
	if ev.Kind != EventFinal || ev.Text != "Hello there" {
		t.Fatalf("expected final transcript, got %+v", ev)
	}
}

func TestWorkerTranscriptionErrorEmitsError(t *testing.T) {
	w := newTestWorker(&stubTranscriber{err: errStub{}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- TranscribeDirect{Chunk: loud(10)}
	ev := <-w.Events()
	if ev.Kind != EventError {
		t.Fatalf("expected error event, got %+v", ev)
	}
}

type errStub struct{}

func (errStub) Error() string { return "boom" }

func TestWorkerEmptyTranscriptDiscardedSilently(t *testing.T) {
	w := newTestWorker(&stubTranscriber{text: "   "})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- TranscribeDirect{Chunk: loud(10)}
	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for blank transcript, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
