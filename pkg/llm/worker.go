package llm

import (
	"context"
	"time"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// Command is the LLM worker's inbound command surface (spec.md §4.5).
type Command interface{ isLLMCommand() }

type Generate struct {
	Text      string
	RequestID string
}
type UpdateSystemPrompt struct{ Text string }
type ClearContext struct{}
type Stop struct{}
type WorkerShutdown struct{}

func (Generate) isLLMCommand()            {}
func (UpdateSystemPrompt) isLLMCommand()  {}
func (ClearContext) isLLMCommand()        {}
func (Stop) isLLMCommand()                {}
func (WorkerShutdown) isLLMCommand()      {}

// EventKind tags a worker Event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventToken
	EventComplete
	EventError
	EventShutdown
)

type Event struct {
	Kind        EventKind
	RequestID   string
	Token       string
	Text        string
	FirstTokenMS int64
	TotalMS     int64
	Interrupted bool
	Err         string
}

// Worker runs one conversation context against a Provider, accepting
// commands and emitting events on bounded channels. Run blocks until a
// WorkerShutdown command is processed or ctx is cancelled.
type Worker struct {
	provider Provider
	ctxData  *Context
	commands chan Command
	events   chan Event

	stopRequested bool
}

func NewWorker(provider Provider, systemPrompt string, chanSize int) *Worker {
	if chanSize <= 0 {
		chanSize = 100
	}
	return &Worker{
		provider: provider,
		ctxData:  NewContext(systemPrompt),
		commands: make(chan Command, chanSize),
		events:   make(chan Event, chanSize),
	}
}

func (w *Worker) Commands() chan<- Command { return w.commands }
func (w *Worker) Events() <-chan Event     { return w.events }

// Messages returns the worker's current conversation history, system prompt
// first. Exposed for callers (and tests) that need to inspect what would be
// sent on the next Generate without reaching into worker internals.
func (w *Worker) Messages() []types.Message { return w.ctxData.Messages() }

// Run is the worker's goroutine body.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			switch c := cmd.(type) {
			case Generate:
				if w.handleGenerate(ctx, c) {
					return
				}
			case UpdateSystemPrompt:
				w.ctxData.SetSystemPrompt(c.Text)
			case ClearContext:
				w.ctxData.Clear()
			case Stop:
				// No generation in flight when a bare Stop arrives outside
				// handleGenerate's polling loop: no-op, matching spec.md
				// §4.5's "if none is running it is a no-op".
			case WorkerShutdown:
				w.emit(Event{Kind: EventShutdown})
				return
			}
		}
	}
}

func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}

// handleGenerate runs one request and reports whether a WorkerShutdown
// arrived while it was streaming.
func (w *Worker) handleGenerate(ctx context.Context, cmd Generate) (shutdown bool) {
	w.ctxData.AddUserMessage(cmd.Text)
	w.emit(Event{Kind: EventStarted, RequestID: cmd.RequestID})

	start := Now()
	var firstTokenMS int64 = -1
	interrupted := false
	var accumulated string

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	onToken := func(tok string) bool {
		accumulated += tok
		if firstTokenMS < 0 {
			firstTokenMS = time.Since(start).Milliseconds()
		}
		w.emit(Event{Kind: EventToken, RequestID: cmd.RequestID, Token: tok})

		select {
		case pending := <-w.commands:
			switch pending.(type) {
			case Stop:
				interrupted = true
				cancel()
				return false
			case WorkerShutdown:
				interrupted = true
				shutdown = true
				cancel()
				w.emit(Event{Kind: EventShutdown})
				return false
			default:
				// Other commands (ClearContext, UpdateSystemPrompt, Generate)
				// received while generating are dropped here and never run:
				// spec.md §4.5 only names Stop and Shutdown as
				// in-flight-affecting commands.
			}
		default:
		}
		return true
	}

	text, err := w.provider.StreamComplete(genCtx, w.ctxData.Messages(), onToken)
	if text != "" {
		accumulated = text
	}

	if err != nil {
		if _, ok := err.(ErrStopped); !ok {
			w.emit(Event{Kind: EventError, RequestID: cmd.RequestID, Err: err.Error()})
			return shutdown
		}
		interrupted = true
	}

	if !interrupted {
		w.ctxData.AddAssistantMessage(accumulated)
	}

	totalMS := time.Since(start).Milliseconds()
	if firstTokenMS < 0 {
		firstTokenMS = totalMS
	}
	w.emit(Event{
		Kind:         EventComplete,
		RequestID:    cmd.RequestID,
		Text:         accumulated,
		FirstTokenMS: firstTokenMS,
		TotalMS:      totalMS,
		Interrupted:  interrupted,
	})
	return shutdown
}
