package stt

import (
	"context"
	"strings"

	"github.com/k0sti/babble-sub000/pkg/types"
	"github.com/k0sti/babble-sub000/pkg/vad"
)

// Command is the STT worker's inbound command surface (spec.md §4.3).
type Command interface{ isSTTCommand() }

type ProcessAudio struct{ Chunk []float32 }
type TranscribeDirect struct{ Chunk []float32 }
type Flush struct{}
type Reset struct{}
type WorkerShutdown struct{}

func (ProcessAudio) isSTTCommand()      {}
func (TranscribeDirect) isSTTCommand()  {}
func (Flush) isSTTCommand()             {}
func (Reset) isSTTCommand()             {}
func (WorkerShutdown) isSTTCommand()    {}

// EventKind tags a worker Event.
type EventKind int

const (
	EventFirstWord EventKind = iota
	EventPartial
	EventFinal
	EventError
	EventShutdown
)

type Event struct {
	Kind EventKind
	Text string
	Err  string
}

// Worker pairs a vad.Segmenter with a Transcriber, converting a stream of
// raw audio chunks into FirstWord/Final events per spec.md §4.3.
type Worker struct {
	transcriber Transcriber
	segmenter   *vad.Segmenter
	lang        types.Language
	sampleRate  int

	commands chan Command
	events   chan Event
}

func NewWorker(transcriber Transcriber, segmenter *vad.Segmenter, lang types.Language, sampleRate, chanSize int) *Worker {
	if chanSize <= 0 {
		chanSize = 100
	}
	return &Worker{
		transcriber: transcriber,
		segmenter:   segmenter,
		lang:        lang,
		sampleRate:  sampleRate,
		commands:    make(chan Command, chanSize),
		events:      make(chan Event, chanSize),
	}
}

func (w *Worker) Commands() chan<- Command { return w.commands }
func (w *Worker) Events() <-chan Event     { return w.events }

// BufferLen returns the number of samples currently buffered for the
// in-progress segment. Exposed for callers (and tests) that need to
// observe the recording buffer without reaching into worker internals.
func (w *Worker) BufferLen() int { return len(w.segmenter.Buffer()) }

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
			case ProcessAudio:
				w.handleProcessAudio(ctx, c.Chunk)
			case TranscribeDirect:
				w.handleTranscribeDirect(ctx, c.Chunk)
			case Flush:
				w.handleFlush(ctx)
			case Reset:
				w.segmenter.Reset()
			case WorkerShutdown:
				w.emit(Event{Kind: EventShutdown})
				return
			}
		}
	}
}

func samplesToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampFloat(s) * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func clampFloat(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}

func (w *Worker) handleProcessAudio(ctx context.Context, chunk []float32) {
	outcome, _ := w.segmenter.Process(chunk)
	switch outcome {
	case vad.OutcomeFirstWordReady:
		w.transcribeFirstWord(ctx)
	case vad.OutcomeSegmentReady:
		w.transcribeFinal(ctx, w.segmenter.TakeSegment())
	case vad.OutcomeDiscarded, vad.OutcomeNone:
	}
}

func (w *Worker) transcribeFirstWord(ctx context.Context) {
	text, err := w.transcriber.Transcribe(ctx, samplesToPCM16(w.segmenter.Buffer()), w.lang)
	w.segmenter.NotifyFirstWordEmitted()
	if err != nil {
		w.emit(Event{Kind: EventError, Err: err.Error()})
		return
	}
	word, ok := vad.DetectFirstWord(text)
	if !ok {
		return
	}
	w.emit(Event{Kind: EventFirstWord, Text: word})
}

func (w *Worker) transcribeFinal(ctx context.Context, samples []float32) {
	if len(samples) == 0 {
		return
	}
	text, err := w.transcriber.Transcribe(ctx, samplesToPCM16(samples), w.lang)
	if err != nil {
		w.emit(Event{Kind: EventError, Err: err.Error()})
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.emit(Event{Kind: EventFinal, Text: text})
}

func (w *Worker) handleTranscribeDirect(ctx context.Context, chunk []float32) {
	text, err := w.transcriber.Transcribe(ctx, samplesToPCM16(chunk), w.lang)
	if err != nil {
		w.emit(Event{Kind: EventError, Err: err.Error()})
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.emit(Event{Kind: EventFinal, Text: text})
}

func (w *Worker) handleFlush(ctx context.Context) {
	samples, ok := w.segmenter.Flush()
	if !ok {
		return
	}
	w.transcribeFinal(ctx, samples)
}
