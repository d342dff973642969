package vad

import (
	"strings"
	"time"
)

// Phase is the segmenter's processing phase, kept mainly for
// observability/debugging.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseSilenceDetected
	PhaseTranscribing
	PhaseDetectingFirstWord
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRecording:
		return "RECORDING"
	case PhaseSilenceDetected:
		return "SILENCE_DETECTED"
	case PhaseTranscribing:
		return "TRANSCRIBING"
	case PhaseDetectingFirstWord:
		return "DETECTING_FIRST_WORD"
	default:
		return "UNKNOWN"
	}
}

// Config bounds the segmenter's timing behavior, mirroring spec.md §4.3's
// configuration table.
type Config struct {
	VADThreshold        float64
	MinSegmentDuration  time.Duration
	MaxSegmentDuration   time.Duration
	SilenceThreshold     time.Duration
	SampleRate           int // samples/sec of the chunks fed to Process
}

// DefaultConfig matches spec.md §4.3's default column.
func DefaultConfig() Config {
	return Config{
		VADThreshold:       0.5,
		MinSegmentDuration: 500 * time.Millisecond,
		MaxSegmentDuration: 30 * time.Second,
		SilenceThreshold:   500 * time.Millisecond,
		SampleRate:         16000,
	}
}

// Outcome is what the segmenter decided to do with an input chunk.
type Outcome int

const (
	// OutcomeNone: nothing actionable happened this chunk.
	OutcomeNone Outcome = iota
	// OutcomeFirstWordReady: the buffer has reached the first-word
	// detection threshold; caller should run its (possibly cheap)
	// first-word transcription and call NotifyFirstWordEmitted.
	OutcomeFirstWordReady
	// OutcomeSegmentReady: a full segment (samples) is ready for final
	// transcription — either because of trailing silence or because the
	// max segment duration was reached.
	OutcomeSegmentReady
	// OutcomeDiscarded: an in-progress segment was shorter than
	// MinSegmentDuration and was discarded on trailing silence.
	OutcomeDiscarded
)

// Segmenter is the VAD-driven speech segmenter state machine (C3). It
// does not itself call into any transcription engine: callers drive the
// first-word and final-transcription hooks from the Outcome it returns.
type Segmenter struct {
	cfg     Config
	det     Detector
	phase   Phase
	buffer  []float32
	silence time.Duration
	firstWordSent bool
	inSpeech bool
}

// New returns a Segmenter using det for classification and cfg for
// timing thresholds.
func New(det Detector, cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg, det: det}
}

func (s *Segmenter) chunkDuration(n int) time.Duration {
	if s.cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(s.cfg.SampleRate) * float64(time.Second))
}

func (s *Segmenter) segmentDuration() time.Duration {
	return s.chunkDuration(len(s.buffer))
}

// Phase returns the current processing phase.
func (s *Segmenter) Phase() Phase { return s.phase }

// Buffer returns the samples accumulated for the in-progress segment.
// Valid to call after OutcomeFirstWordReady or OutcomeSegmentReady.
func (s *Segmenter) Buffer() []float32 { return s.buffer }

// Process feeds one chunk through VAD and the segmenter state machine,
// returning what the caller should do next.
func (s *Segmenter) Process(chunk []float32) (Outcome, error) {
	// VAD errors on a single chunk are swallowed and the chunk is
	// treated as not-speech; the caller never sees this error.
	isSpeech, _ := s.det.IsSpeech(chunk)

	if isSpeech {
		if !s.inSpeech {
			s.inSpeech = true
			s.buffer = s.buffer[:0]
			s.firstWordSent = false
			s.phase = PhaseRecording
		}
		s.buffer = append(s.buffer, chunk...)
		s.silence = 0

		if !s.firstWordSent && s.segmentDuration() >= s.cfg.MinSegmentDuration {
			s.phase = PhaseDetectingFirstWord
			return OutcomeFirstWordReady, nil
		}

		if s.segmentDuration() >= s.cfg.MaxSegmentDuration {
			s.phase = PhaseTranscribing
			return OutcomeSegmentReady, nil
		}
		if s.phase == PhaseDetectingFirstWord {
			s.phase = PhaseRecording
		}
		return OutcomeNone, nil
	}

	if s.inSpeech {
		s.buffer = append(s.buffer, chunk...)
		s.silence += s.chunkDuration(len(chunk))
		s.phase = PhaseSilenceDetected

		if s.silence >= s.cfg.SilenceThreshold {
			if s.segmentDuration()-s.silence >= s.cfg.MinSegmentDuration {
				s.phase = PhaseTranscribing
				return OutcomeSegmentReady, nil
			}
			s.resetSegment()
			s.phase = PhaseIdle
			return OutcomeDiscarded, nil
		}
	}

	return OutcomeNone, nil
}

// NotifyFirstWordEmitted marks the first-word event as sent for the
// current segment, so Process will not ask for it again.
func (s *Segmenter) NotifyFirstWordEmitted() {
	s.firstWordSent = true
	s.phase = PhaseRecording
}

// TakeSegment returns and clears the accumulated segment buffer after a
// final transcription (OutcomeSegmentReady) has been handled.
func (s *Segmenter) TakeSegment() []float32 {
	buf := s.buffer
	s.resetSegment()
	s.phase = PhaseIdle
	return buf
}

// Flush force-closes any in-progress segment, returning its samples (nil
// if nothing was buffered or it was too short) and whether a final
// transcription should run.
func (s *Segmenter) Flush() ([]float32, bool) {
	if len(s.buffer) == 0 {
		s.resetSegment()
		return nil, false
	}
	if s.segmentDuration() >= s.cfg.MinSegmentDuration {
		buf := s.buffer
		s.resetSegment()
		s.phase = PhaseIdle
		return buf, true
	}
	s.resetSegment()
	s.phase = PhaseIdle
	return nil, false
}

func (s *Segmenter) resetSegment() {
	s.buffer = nil
	s.inSpeech = false
	s.silence = 0
	s.firstWordSent = false
}

// Reset clears all state, including the VAD detector's internal state.
func (s *Segmenter) Reset() {
	s.resetSegment()
	s.phase = PhaseIdle
	s.det.Reset()
}

// DetectFirstWord extracts the first whitespace-separated token from
// text, lowercased. Returns ("", false) if text has no tokens.
func DetectFirstWord(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	return strings.ToLower(fields[0]), true
}
