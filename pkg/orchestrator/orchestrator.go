package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/k0sti/babble-sub000/pkg/llm"
	"github.com/k0sti/babble-sub000/pkg/parser"
	"github.com/k0sti/babble-sub000/pkg/state"
	"github.com/k0sti/babble-sub000/pkg/stt"
	"github.com/k0sti/babble-sub000/pkg/tts"
	"github.com/k0sti/babble-sub000/pkg/vad"
)

// Orchestrator is the single long-lived coordinator (C9): it owns the
// Shared State write handle, the external command/event/audio channels,
// and handles to the STT/LLM/TTS workers (spec.md §4.7).
type Orchestrator struct {
	cfg    Config
	logger Logger

	shared *state.Shared

	commands chan Command
	events   chan Event
	audioIn  chan []float32

	sttWorker *stt.Worker
	llmWorker *llm.Worker
	ttsWorker *tts.Worker

	parser     *parser.Parser
	audioQueue *tts.AudioQueue

	currentRequestID string
	suppressNextText bool // set by an early Stop-word detection; drops the next settled transcription

	onAudioReady func(tts.Audio) // playback hook; nil-safe
}

// New wires a fresh Orchestrator and its three workers around shared
// channels sized per cfg.
func New(cfg Config, logger Logger, transcriber stt.Transcriber, llmProvider llm.Provider, ttsProvider tts.Provider, systemPrompt string) *Orchestrator {
	if logger == nil {
		logger = &NoOpLogger{}
	}

	segCfg := vad.Config{
		VADThreshold:       cfg.VADThreshold,
		MinSegmentDuration: time.Duration(cfg.MinSegmentDuration) * time.Millisecond,
		MaxSegmentDuration: time.Duration(cfg.MaxSegmentDuration) * time.Millisecond,
		SilenceThreshold:   time.Duration(cfg.SilenceThreshold) * time.Millisecond,
		SampleRate:         16000,
	}
	segmenter := vad.New(vad.NewRMSDetector(cfg.VADThreshold), segCfg)

	return &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		shared:     state.NewShared(),
		commands:   make(chan Command, cfg.CommandChanSize),
		events:     make(chan Event, cfg.EventChanSize),
		audioIn:    make(chan []float32, cfg.AudioChanSize),
		sttWorker:  stt.NewWorker(transcriber, segmenter, cfg.Language, 16000, int(cfg.WorkerChanSize)),
		llmWorker:  llm.NewWorker(llmProvider, systemPrompt, int(cfg.WorkerChanSize)),
		ttsWorker:  tts.NewWorker(ttsProvider, cfg.Language, cfg.VoiceStyle, 22050, int(cfg.WorkerChanSize)),
		parser:     parser.New(),
		audioQueue: tts.NewAudioQueue(),
	}
}

func (o *Orchestrator) Commands() chan<- Command  { return o.commands }
func (o *Orchestrator) Events() <-chan Event       { return o.events }
func (o *Orchestrator) AudioIn() chan<- []float32  { return o.audioIn }
func (o *Orchestrator) State() *state.Shared       { return o.shared }

// OnAudioReady registers a callback invoked with every TTS audio segment
// dequeued in order; a real binary wires this to its speaker driver.
func (o *Orchestrator) OnAudioReady(fn func(tts.Audio)) { o.onAudioReady = fn }

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.logger.Warn("event channel full, dropping event", "type", ev.Type)
	}
}

// Run starts the STT/LLM/TTS worker goroutines and blocks on the five-armed
// event loop until ctx is cancelled, a Shutdown command completes, or the
// shared state's MaxFrames budget is exhausted.
func (o *Orchestrator) Run(ctx context.Context) {
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go o.sttWorker.Run(workerCtx)
	go o.llmWorker.Run(workerCtx)
	go o.ttsWorker.Run(workerCtx)

	idle := 10 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-o.commands:
			if o.handleCommand(cmd) {
				return
			}

		case chunk := <-o.audioIn:
			o.handleAudioChunk(chunk)

		case ev := <-o.sttWorker.Events():
			o.handleSTTEvent(ev)

		case ev := <-o.llmWorker.Events():
			o.handleLLMEvent(ev)

		case ev := <-o.ttsWorker.Events():
			o.handleTTSEvent(ev)

		case <-time.After(idle):
			var shouldExit bool
			o.shared.Write(func(s *state.State) {
				s.IncrementFrame()
				shouldExit = s.ShouldExit()
			})
			if shouldExit {
				return
			}
		}
	}
}

func (o *Orchestrator) handleCommand(cmd Command) (shutdown bool) {
	switch c := cmd.(type) {
	case StartRecording:
		var ok bool
		o.shared.Write(func(s *state.State) {
			ok = s.IsIdleRec()
			if ok {
				s.StartRecording()
				s.AudioBufferSamples = 0
			}
		})
		if ok {
			o.sttWorker.Commands() <- stt.Reset{}
			o.emit(Event{Type: StateChanged})
		} else {
			o.logger.Warn("StartRecording ignored: not idle")
		}

	case StopRecording:
		var ok bool
		o.shared.Write(func(s *state.State) {
			ok = s.IsRecording()
			if ok {
				s.StopRecording()
			}
		})
		if ok {
			o.sttWorker.Commands() <- stt.Flush{}
		}

	case CancelRecording:
		var ok bool
		o.shared.Write(func(s *state.State) {
			ok = s.IsRecording()
			if ok {
				s.CancelRecording()
				s.AudioBufferSamples = 0
			}
		})
		if ok {
			o.sttWorker.Commands() <- stt.Reset{}
			o.emit(Event{Type: StateChanged})
		}

	case SendText:
		o.handleTextReady(c.Text)

	case StopGeneration:
		var generating bool
		o.shared.Read(func(s *state.State) { generating = s.IsGenerating() })
		if generating {
			o.llmWorker.Commands() <- llm.Stop{}
			o.ttsWorker.Commands() <- tts.Abort{}
		}

	case ClearHistory:
		o.llmWorker.Commands() <- llm.ClearContext{}

	case ShutdownCommand:
		o.sttWorker.Commands() <- stt.WorkerShutdown{}
		o.llmWorker.Commands() <- llm.WorkerShutdown{}
		o.ttsWorker.Commands() <- tts.WorkerShutdown{}
		o.awaitWorkerShutdowns()
		o.emit(Event{Type: Shutdown})
		return true
	}
	return false
}

func (o *Orchestrator) awaitWorkerShutdowns() {
	deadline := time.After(time.Duration(o.cfg.ShutdownTimeoutMS) * time.Millisecond)
	remaining := 3
	for remaining > 0 {
		select {
		case ev := <-o.sttWorker.Events():
			if ev.Kind == stt.EventShutdown {
				remaining--
			}
		case ev := <-o.llmWorker.Events():
			if ev.Kind == llm.EventShutdown {
				remaining--
			}
		case ev := <-o.ttsWorker.Events():
			if ev.Kind == tts.EventShutdown {
				remaining--
			}
		case <-deadline:
			return
		}
	}
}

func (o *Orchestrator) handleAudioChunk(chunk []float32) {
	var recording bool
	o.shared.Write(func(s *state.State) {
		recording = s.IsRecording()
		if recording {
			s.AudioBufferSamples += len(chunk)
		}
	})
	if !recording {
		return
	}
	o.sttWorker.Commands() <- stt.ProcessAudio{Chunk: chunk}
}

func (o *Orchestrator) handleSTTEvent(ev stt.Event) {
	switch ev.Kind {
	case stt.EventFirstWord:
		o.shared.Write(func(s *state.State) { s.SetFirstWord(ev.Text) })
		o.emit(Event{Type: StateChanged})
		if IsStopCommand(ev.Text) {
			o.handleEarlyStop()
		}

	case stt.EventFinal:
		o.shared.Write(func(s *state.State) {
			s.SetTranscription(ev.Text)
			// Only a Processing->Idle handoff when StopRecording explicitly
			// closed the session; continuous listening stays Active across
			// VAD segment boundaries so audio keeps flowing to STT.
			if s.IsProcessing() {
				s.FinishProcessing()
			}
			s.AudioBufferSamples = 0
		})
		o.emit(Event{Type: StateChanged})
		o.handleTextReady(ev.Text)

	case stt.EventError:
		o.shared.Write(func(s *state.State) {
			s.SetError(ev.Err)
			if s.IsProcessing() {
				s.FinishProcessing()
			}
			s.AudioBufferSamples = 0
		})
		o.emit(Event{Type: ErrorEvent, Data: fmt.Errorf("%w: %s", ErrTranscriptionFailed, ev.Err)})
	}
}

// handleEarlyStop implements the early-Stop path of command detection:
// cancel any in-flight generation and suppress the full transcription that
// is still on its way from STT.
func (o *Orchestrator) handleEarlyStop() {
	var generating bool
	o.shared.Read(func(s *state.State) { generating = s.IsGenerating() })
	if generating {
		o.llmWorker.Commands() <- llm.Stop{}
		o.ttsWorker.Commands() <- tts.Abort{}
	}
	o.suppressNextText = true
}

// handleTextReady runs command detection on a settled transcription (either
// the late/only-utterance path, or the STT Final handoff) and either
// triggers a new generation or drops the text.
func (o *Orchestrator) handleTextReady(text string) {
	if text == "" {
		return
	}
	if IsOnlyCommand(text) {
		o.handleEarlyStop()
		// This text is the stop utterance itself; nothing else is pending.
		o.suppressNextText = false
		return
	}
	if o.suppressNextText {
		o.suppressNextText = false
		return
	}

	rid := uuid.NewString()
	o.currentRequestID = rid
	o.parser.Reset()
	o.shared.Write(func(s *state.State) { s.StartGeneration() })
	o.emit(Event{Type: StateChanged})
	o.llmWorker.Commands() <- llm.Generate{Text: text, RequestID: rid}
}

func (o *Orchestrator) handleLLMEvent(ev llm.Event) {
	switch ev.Kind {
	case llm.EventStarted:
		// State already transitioned to Generating in handleTextReady.

	case llm.EventToken:
		o.shared.Write(func(s *state.State) { s.AppendToken(ev.Token) })
		o.emit(Event{Type: LLMToken, Data: ev.Token})
		for _, seg := range o.parser.Feed(ev.Token) {
			o.dispatchSegment(seg, ev.RequestID)
		}

	case llm.EventComplete:
		if seg := o.parser.Flush(); seg != nil {
			o.dispatchSegment(*seg, ev.RequestID)
		}
		o.shared.Write(func(s *state.State) { s.FinishGeneration(ev.Interrupted) })
		o.emit(Event{Type: StateChanged})

	case llm.EventError:
		o.shared.Write(func(s *state.State) {
			s.SetError(ev.Err)
			s.FinishGeneration(true)
		})
		o.emit(Event{Type: ErrorEvent, Data: fmt.Errorf("%w: %s", ErrLLMFailed, ev.Err)})
	}
}

func (o *Orchestrator) dispatchSegment(seg parser.Segment, requestID string) {
	if !seg.ShouldSpeak {
		return
	}
	select {
	case o.ttsWorker.Commands() <- tts.Synthesize{
		Text:         seg.Text,
		ShouldSpeak:  seg.ShouldSpeak,
		SegmentIndex: seg.Index,
		RequestID:    requestID,
	}:
	default:
		o.logger.Warn("tts synthesize channel full, dropping segment", "index", seg.Index)
	}
}

func (o *Orchestrator) handleTTSEvent(ev tts.Event) {
	switch ev.Kind {
	case tts.EventAudio:
		o.audioQueue.Enqueue(ev.Audio)
		o.drainPlayback()
	case tts.EventError:
		o.logger.Warn("tts synthesis error", "err", ev.Err)
		o.emit(Event{Type: ErrorEvent, Data: fmt.Errorf("%w: %s", ErrTTSFailed, ev.Err)})
	}
}

func (o *Orchestrator) drainPlayback() {
	for {
		a, ok := o.audioQueue.Dequeue()
		if !ok {
			return
		}
		if o.onAudioReady != nil {
			o.onAudioReady(a)
		}
	}
}
