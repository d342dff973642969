package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/k0sti/babble-sub000/pkg/llm"
	"github.com/k0sti/babble-sub000/pkg/state"
	"github.com/k0sti/babble-sub000/pkg/stt"
	"github.com/k0sti/babble-sub000/pkg/tts"
	"github.com/k0sti/babble-sub000/pkg/types"
)

type e2eTranscriber struct{}

func (e2eTranscriber) Transcribe(ctx context.Context, audioPCM []byte, lang types.Language) (string, error) {
	return "", nil
}
func (e2eTranscriber) Name() string { return "stub" }

// controllableLLM streams a fixed token list, optionally pausing after a
// given token index until the test signals resume — giving a test a
// deterministic window to inject a command between two tokens.
type controllableLLM struct {
	tokens     []string
	pauseAfter int // -1 disables pausing
	resume     chan struct{}
}

func (p *controllableLLM) Name() string { return "stub-llm" }

func (p *controllableLLM) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	var accumulated string
	for i, tok := range p.tokens {
		accumulated += tok
		if !onToken(tok) {
			return accumulated, llm.ErrStopped{}
		}
		if i == p.pauseAfter {
			select {
			case <-p.resume:
			case <-ctx.Done():
				return accumulated, llm.ErrStopped{}
			}
		}
	}
	return accumulated, nil
}

type e2eTTS struct {
	mu       sync.Mutex
	received []string
}

func (t *e2eTTS) Name() string { return "stub-tts" }
func (t *e2eTTS) Abort() error { return nil }

func (t *e2eTTS) Synthesize(ctx context.Context, text string, voice types.Voice, lang types.Language) ([]byte, error) {
	t.mu.Lock()
	t.received = append(t.received, text)
	t.mu.Unlock()
	return []byte{0, 0}, nil
}

func (t *e2eTTS) StreamSynthesize(ctx context.Context, text string, voice types.Voice, lang types.Language, onChunk func([]byte) error) error {
	pcm, _ := t.Synthesize(ctx, text, voice, lang)
	return onChunk(pcm)
}

func (t *e2eTTS) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.received))
	copy(out, t.received)
	return out
}

func newE2EOrchestrator(llmProv llm.Provider, ttsProv tts.Provider) (*Orchestrator, context.CancelFunc) {
	cfg := DefaultConfig()
	o := New(cfg, nil, e2eTranscriber{}, llmProv, ttsProv, "system prompt")
	ctx, cancel := context.WithCancel(context.Background())
	go o.llmWorker.Run(ctx)
	go o.ttsWorker.Run(ctx)
	return o, cancel
}

// drainGeneration pumps the LLM worker's events into the orchestrator until
// EventComplete or EventError, returning the terminal event.
func drainGeneration(t *testing.T, o *Orchestrator, onToken func(llm.Event)) llm.Event {
	t.Helper()
	for {
		select {
		case ev := <-o.llmWorker.Events():
			o.handleLLMEvent(ev)
			if onToken != nil {
				onToken(ev)
			}
			if ev.Kind == llm.EventComplete || ev.Kind == llm.EventError {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for generation to complete")
		}
	}
}

func drainTTSEvents(t *testing.T, o *Orchestrator, expect int) {
	t.Helper()
	for i := 0; i < expect; i++ {
		select {
		case ev := <-o.ttsWorker.Events():
			o.handleTTSEvent(ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tts event %d/%d", i+1, expect)
		}
	}
}

func TestE2EHappyPath(t *testing.T) {
	llmProv := &controllableLLM{tokens: []string{"[SPEAK]", "Four", ".", "[/SPEAK]"}, pauseAfter: -1}
	ttsProv := &e2eTTS{}
	o, cancel := newE2EOrchestrator(llmProv, ttsProv)
	defer cancel()

	var played []tts.Audio
	o.OnAudioReady(func(a tts.Audio) { played = append(played, a) })

	o.handleCommand(SendText{Text: "What is 2 + 2?"})
	final := drainGeneration(t, o, nil)
	if final.Interrupted {
		t.Fatalf("expected non-interrupted completion")
	}

	drainTTSEvents(t, o, 1)
	if len(played) != 1 {
		t.Fatalf("expected exactly one spoken segment, got %d", len(played))
	}

	if texts := ttsProv.Texts(); len(texts) != 1 || texts[0] != "Four." {
		t.Fatalf("expected TTS to receive %q, got %v", "Four.", texts)
	}

	msgs := o.llmWorker.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages (system, user, assistant), got %d: %+v", len(msgs), msgs)
	}
	if msgs[1].Role != types.RoleUser || msgs[1].Content != "What is 2 + 2?" {
		t.Fatalf("unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != types.RoleAssistant || msgs[2].Content != "[SPEAK]Four.[/SPEAK]" {
		t.Fatalf("unexpected assistant message: %+v", msgs[2])
	}
}

func TestE2EStopWordMidUtterance(t *testing.T) {
	llmProv := &controllableLLM{
		tokens:     []string{"[SPEAK]", "Four", ".", "[/SPEAK]"},
		pauseAfter: 0,
		resume:     make(chan struct{}),
	}
	ttsProv := &e2eTTS{}
	o, cancel := newE2EOrchestrator(llmProv, ttsProv)
	defer cancel()

	o.handleCommand(SendText{Text: "What is 2 + 2?"})

	// Read the first token event (the stream is now paused before token 2).
	firstEv := <-o.llmWorker.Events()
	o.handleLLMEvent(firstEv)
	if firstEv.Kind != llm.EventStarted {
		t.Fatalf("expected EventStarted first, got %+v", firstEv)
	}
	tokenEv := <-o.llmWorker.Events()
	o.handleLLMEvent(tokenEv)
	if tokenEv.Kind != llm.EventToken {
		t.Fatalf("expected EventToken, got %+v", tokenEv)
	}

	// Inject an STT FirstWord("stop") as the segmenter would, mid-generation.
	o.handleSTTEvent(stt.Event{Kind: stt.EventFirstWord, Text: "stop"})

	close(llmProv.resume)
	final := drainGeneration(t, o, nil)

	if !final.Interrupted {
		t.Fatalf("expected interrupted completion")
	}

	snap := o.shared.Snapshot()
	if !snap.Response.WasInterrupted {
		t.Fatalf("expected state.response.was_interrupted=true, got %+v", snap.Response)
	}

	msgs := o.llmWorker.Messages()
	for _, m := range msgs {
		if m.Role == types.RoleAssistant {
			t.Fatalf("expected no assistant message to be appended, found %+v", m)
		}
	}
}

func TestE2ECrossRequestOrdering(t *testing.T) {
	o, cancel := newE2EOrchestrator(&controllableLLM{}, &e2eTTS{})
	defer cancel()

	var played []tts.Audio
	o.OnAudioReady(func(a tts.Audio) { played = append(played, a) })

	// Request A's segments 1 and 2 arrive, but its index-0 segment never
	// does (still "in flight" when B supersedes it).
	o.handleTTSEvent(tts.Event{Kind: tts.EventAudio, Audio: tts.Audio{RequestID: "A", SegmentIndex: 1, Samples: []float32{1}}})
	o.handleTTSEvent(tts.Event{Kind: tts.EventAudio, Audio: tts.Audio{RequestID: "A", SegmentIndex: 2, Samples: []float32{2}}})
	if len(played) != 0 {
		t.Fatalf("expected nothing played while A's index-0 segment is missing, got %d", len(played))
	}

	o.handleTTSEvent(tts.Event{Kind: tts.EventAudio, Audio: tts.Audio{RequestID: "B", SegmentIndex: 0, Samples: []float32{9}}})
	if len(played) != 1 || played[0].RequestID != "B" || played[0].SegmentIndex != 0 {
		t.Fatalf("expected only B's index-0 segment to play, got %+v", played)
	}
}

func TestE2EPartialMarkersAcrossTokens(t *testing.T) {
	llmProv := &controllableLLM{tokens: []string{"Hello ", "[SP", "EAK]World", "[/SPEAK]!"}, pauseAfter: -1}
	ttsProv := &e2eTTS{}
	o, cancel := newE2EOrchestrator(llmProv, ttsProv)
	defer cancel()

	o.handleCommand(SendText{Text: "hi"})
	final := drainGeneration(t, o, nil)
	if final.Interrupted {
		t.Fatalf("expected non-interrupted completion")
	}

	drainTTSEvents(t, o, 1)

	if texts := ttsProv.Texts(); len(texts) != 1 || texts[0] != "World" {
		t.Fatalf("expected exactly one spoken segment %q, got %v", "World", texts)
	}
	if !strings.Contains(final.Text, "Hello ") {
		t.Fatalf("expected accumulated response text to retain display text, got %q", final.Text)
	}
}

func TestE2EBufferDropOnRecordingStart(t *testing.T) {
	o, cancel := newE2EOrchestrator(&controllableLLM{}, &e2eTTS{})
	defer cancel()
	go o.sttWorker.Run(context.Background())

	o.shared.Write(func(s *state.State) {
		s.Recording = state.RecordingIdle
		s.AudioBufferSamples = 500
	})
	// Loud enough for the RMS detector to buffer it as speech.
	speech := make([]float32, 4000)
	for i := range speech {
		speech[i] = 0.9
	}
	o.sttWorker.Commands() <- stt.ProcessAudio{Chunk: speech}
	time.Sleep(20 * time.Millisecond)

	o.handleCommand(StartRecording{})
	time.Sleep(20 * time.Millisecond)

	snap := o.shared.Snapshot()
	if snap.AudioBufferSamples != 0 {
		t.Fatalf("expected AudioBufferSamples reset to 0, got %d", snap.AudioBufferSamples)
	}
	if n := o.sttWorker.BufferLen(); n != 0 {
		t.Fatalf("expected recording buffer length 0 immediately after StartRecording, got %d", n)
	}
}

func TestE2EShutdownFromMidGeneration(t *testing.T) {
	llmProv := &controllableLLM{
		tokens:     []string{"[SPEAK]", "Four", "[/SPEAK]"},
		pauseAfter: 0,
		resume:     make(chan struct{}),
	}
	o, cancel := newE2EOrchestrator(llmProv, &e2eTTS{})
	defer cancel()
	go o.sttWorker.Run(context.Background())

	o.handleCommand(SendText{Text: "hi"})
	<-o.llmWorker.Events() // EventStarted
	ev := <-o.llmWorker.Events()
	o.handleLLMEvent(ev) // EventToken; generation now paused mid-stream

	done := make(chan bool, 1)
	go func() {
		done <- o.handleCommand(ShutdownCommand{})
	}()

	// Resume the paused provider so the llm worker's next onToken poll can
	// pick up the WorkerShutdown that handleCommand sent to its command
	// channel, while awaitWorkerShutdowns waits for the workers' replies.
	close(llmProv.resume)

	select {
	case shutdown := <-done:
		if !shutdown {
			t.Fatalf("expected handleCommand to report shutdown")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for shutdown to complete")
	}
}
