// Package state implements the single shared, observable state of the
// voice assistant core: recording/LLM/transcription/response status plus
// the debug-mode and frame-count fields a scripted test driver uses to
// halt deterministically.
package state

import (
	"sync"
	"time"
)

// RecordingState is the recording lifecycle phase.
type RecordingState int

const (
	RecordingIdle RecordingState = iota
	RecordingActive
	RecordingProcessing
)

func (s RecordingState) String() string {
	switch s {
	case RecordingIdle:
		return "Idle"
	case RecordingActive:
		return "Recording"
	case RecordingProcessing:
		return "Processing"
	default:
		return "Unknown"
	}
}

// LLMState is the generation lifecycle phase.
type LLMState int

const (
	LLMIdle LLMState = iota
	LLMGenerating
)

func (s LLMState) String() string {
	if s == LLMGenerating {
		return "Generating"
	}
	return "Idle"
}

// Transcription holds the STT sub-state: the last finalized text and the
// early first-word detection.
type Transcription struct {
	LastText       string
	HasFirstWord   bool
	FirstWord      string
}

func (t *Transcription) clear() {
	t.LastText = ""
	t.HasFirstWord = false
	t.FirstWord = ""
}

func (t *Transcription) setFirstWord(word string) {
	t.FirstWord = word
	t.HasFirstWord = true
}

func (t *Transcription) setFinal(text string) {
	t.LastText = text
}

// Response holds the LLM sub-state: the in-flight accumulator, the
// interrupted flag, and the archived last-complete response.
type Response struct {
	CurrentText    string
	WasInterrupted bool
	LastComplete   string
}

func (r *Response) startGeneration() {
	r.CurrentText = ""
	r.WasInterrupted = false
}

func (r *Response) appendToken(tok string) {
	r.CurrentText += tok
}

func (r *Response) complete(interrupted bool) {
	r.WasInterrupted = interrupted
	if r.CurrentText != "" {
		r.LastComplete = r.CurrentText
	}
}

func (r *Response) clear() {
	r.CurrentText = ""
	r.WasInterrupted = false
	r.LastComplete = ""
}

// State is the full aggregate. Fields are exported and may also be set
// directly by a Shared.Write callback; Snapshot hands out a deep copy.
type State struct {
	Recording          RecordingState
	LLM                LLMState
	Transcription      Transcription
	Response           Response
	Error              string
	AudioBufferSamples int
	FrameCount         uint64
	DebugMode          bool
	MaxFrames          uint64
}

// New returns a fresh, idle State.
func New() *State {
	return &State{}
}

// Snapshot is a frozen, independently-owned copy of State, safe to read
// without holding any lock.
type Snapshot struct {
	Recording          RecordingState
	LLM                LLMState
	Transcription      Transcription
	Response           Response
	Error              string
	AudioBufferSamples int
	FrameCount         uint64
	DebugMode          bool
	MaxFrames          uint64
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Recording:          s.Recording,
		LLM:                s.LLM,
		Transcription:      s.Transcription,
		Response:           s.Response,
		Error:              s.Error,
		AudioBufferSamples: s.AudioBufferSamples,
		FrameCount:         s.FrameCount,
		DebugMode:          s.DebugMode,
		MaxFrames:          s.MaxFrames,
	}
}

func (s *State) IsRecording() bool   { return s.Recording == RecordingActive }
func (s *State) IsProcessing() bool  { return s.Recording == RecordingProcessing }
func (s *State) IsIdleRec() bool     { return s.Recording == RecordingIdle }
func (s *State) IsGenerating() bool  { return s.LLM == LLMGenerating }
func (s *State) IsBusy() bool        { return s.Recording != RecordingIdle || s.LLM == LLMGenerating }

// StartRecording transitions Idle -> Recording, clearing transcription
// sub-state and any prior error.
func (s *State) StartRecording() {
	s.Recording = RecordingActive
	s.Transcription.clear()
	s.Error = ""
}

// StopRecording transitions Recording -> Processing.
func (s *State) StopRecording() {
	s.Recording = RecordingProcessing
}

// CancelRecording transitions to Idle and clears transcription sub-state.
func (s *State) CancelRecording() {
	s.Recording = RecordingIdle
	s.Transcription.clear()
}

// FinishProcessing transitions Processing -> Idle.
func (s *State) FinishProcessing() {
	s.Recording = RecordingIdle
}

// StartGeneration transitions LLM Idle -> Generating and resets the
// response accumulator.
func (s *State) StartGeneration() {
	s.LLM = LLMGenerating
	s.Response.startGeneration()
}

// FinishGeneration transitions LLM -> Idle. If interrupted, the
// was-interrupted flag is set; regardless, any non-empty accumulated text
// is archived as last-complete.
func (s *State) FinishGeneration(interrupted bool) {
	s.LLM = LLMIdle
	s.Response.complete(interrupted)
}

func (s *State) SetFirstWord(word string) { s.Transcription.setFirstWord(word) }
func (s *State) SetTranscription(text string) { s.Transcription.setFinal(text) }
func (s *State) AppendToken(tok string)    { s.Response.appendToken(tok) }

func (s *State) SetError(msg string) { s.Error = msg }
func (s *State) ClearError()         { s.Error = "" }

func (s *State) IncrementFrame() { s.FrameCount++ }

// ShouldExit reports whether the deterministic test driver's frame budget
// has been exhausted (MaxFrames == 0 means unbounded).
func (s *State) ShouldExit() bool {
	return s.MaxFrames > 0 && s.FrameCount >= s.MaxFrames
}

// Shared is a readers-writer-locked State. The orchestrator is the only
// legitimate writer; any other mutator is a bug by convention, not by
// enforcement.
type Shared struct {
	mu    sync.RWMutex
	inner State
}

// NewShared returns a fresh Shared state.
func NewShared() *Shared {
	return &Shared{}
}

// Read calls fn with a read lock held. fn must not escape the pointer.
func (s *Shared) Read(fn func(*State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.inner)
}

// Write calls fn with the write lock held. fn must not escape the pointer.
func (s *Shared) Write(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.inner)
}

// Snapshot returns a deep copy of the current state, safe to read without
// holding any lock afterward.
func (s *Shared) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.snapshotLocked()
}

// Convenience read-only queries, mirroring SharedAppState in the original.

func (s *Shared) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.IsRecording()
}

func (s *Shared) IsGenerating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.IsGenerating()
}

func (s *Shared) IsIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.Recording == RecordingIdle && s.inner.LLM == LLMIdle
}

func (s *Shared) LastTranscription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.Transcription.LastText
}

func (s *Shared) CurrentResponse() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.Response.CurrentText
}

// Now exists purely so tests can stamp deterministic timestamps into
// events without reaching for time.Now directly in orchestrator logic.
var Now = time.Now
