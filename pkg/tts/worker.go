package tts

import (
	"context"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// Command is the TTS worker's inbound command surface (spec.md §4.6).
type Command interface{ isTTSCommand() }

type Synthesize struct {
	Text         string
	ShouldSpeak  bool
	SegmentIndex int
	RequestID    string
}
type SetSpeaker struct{ Voice types.Voice }
type Abort struct{}
type WorkerShutdown struct{}

func (Synthesize) isTTSCommand()     {}
func (SetSpeaker) isTTSCommand()     {}
func (Abort) isTTSCommand()          {}
func (WorkerShutdown) isTTSCommand() {}

// EventKind tags a worker Event.
type EventKind int

const (
	EventAudio EventKind = iota
	EventError
	EventShutdown
)

type Event struct {
	Kind      EventKind
	Audio     Audio
	Err       string
	RequestID string
}

// Worker synthesizes TTS segments in command order, skipping
// should_speak=false segments and normalizing text before synthesis.
type Worker struct {
	provider Provider
	lang     types.Language
	voice    types.Voice

	commands chan Command
	events   chan Event

	outputSampleRate int
}

func NewWorker(provider Provider, lang types.Language, voice types.Voice, outputSampleRate, chanSize int) *Worker {
	if chanSize <= 0 {
		chanSize = 100
	}
	return &Worker{
		provider:         provider,
		lang:             lang,
		voice:            voice,
		commands:         make(chan Command, chanSize),
		events:           make(chan Event, chanSize),
		outputSampleRate: outputSampleRate,
	}
}

func (w *Worker) Commands() chan<- Command { return w.commands }
func (w *Worker) Events() <-chan Event     { return w.events }

func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			switch c := cmd.(type) {
			case Synthesize:
				w.handleSynthesize(ctx, c)
			case SetSpeaker:
				w.voice = c.Voice
			case Abort:
				if err := w.provider.Abort(); err != nil {
					w.emit(Event{Kind: EventError, Err: err.Error()})
				}
			case WorkerShutdown:
				w.emit(Event{Kind: EventShutdown})
				return
			}
		}
	}
}

func (w *Worker) handleSynthesize(ctx context.Context, cmd Synthesize) {
	if !cmd.ShouldSpeak {
		return
	}
	normalized := NormalizeForSynthesis(cmd.Text)
	if normalized == "" {
		return
	}

	var pcm []byte
	err := w.provider.StreamSynthesize(ctx, normalized, w.voice, w.lang, func(chunk []byte) error {
		pcm = append(pcm, chunk...)
		return nil
	})
	if err != nil {
		w.emit(Event{Kind: EventError, Err: err.Error(), RequestID: cmd.RequestID})
		return
	}

	samples := pcm16ToFloat32(pcm)
	w.emit(Event{
		Kind:      EventAudio,
		RequestID: cmd.RequestID,
		Audio: Audio{
			Samples:      samples,
			SampleRate:   w.outputSampleRate,
			SegmentIndex: cmd.SegmentIndex,
			RequestID:    cmd.RequestID,
		},
	})
}

func pcm16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}
