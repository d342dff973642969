package llm

import (
	"context"
	"testing"
	"time"

	"github.com/k0sti/babble-sub000/pkg/types"
)

type stubProvider struct {
	tokens []string
	name   string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	var acc string
	for _, tok := range s.tokens {
		acc += tok
		if !onToken(tok) {
			return acc, ErrStopped{}
		}
	}
	return acc, nil
}

func drainUntil(t *testing.T, events <-chan Event, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestWorkerGenerateEmitsTokensThenComplete(t *testing.T) {
	provider := &stubProvider{tokens: []string{"hel", "lo"}, name: "stub"}
	w := NewWorker(provider, "be nice", 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- Generate{Text: "hi", RequestID: "r1"}

	drainUntil(t, w.Events(), EventStarted, time.Second)
	drainUntil(t, w.Events(), EventToken, time.Second)
	complete := drainUntil(t, w.Events(), EventComplete, time.Second)

	if complete.Text != "hello" {
		t.Errorf("expected accumulated text 'hello', got %q", complete.Text)
	}
	if complete.Interrupted {
		t.Errorf("expected natural completion, not interrupted")
	}
}

func TestWorkerClearContextResetsHistory(t *testing.T) {
	provider := &stubProvider{tokens: []string{"ok"}}
	w := NewWorker(provider, "sys", 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- Generate{Text: "hi", RequestID: "r1"}
	drainUntil(t, w.Events(), EventComplete, time.Second)

	if w.ctxData.MessageCount() == 0 {
		t.Fatalf("expected history populated after a completed generation")
	}

	w.Commands() <- ClearContext{}
	time.Sleep(20 * time.Millisecond)
	if w.ctxData.MessageCount() != 0 {
		t.Errorf("expected history cleared")
	}
}
