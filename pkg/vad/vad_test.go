package vad

import (
	"testing"
	"time"
)

func loudChunk(n int) []float32 {
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

func quietChunk(n int) []float32 {
	return make([]float32, n)
}

func TestRMSDetectorThreshold(t *testing.T) {
	d := NewRMSDetector(0.5)

	speech, _ := d.IsSpeech(loudChunk(256))
	if !speech {
		t.Fatalf("expected loud chunk to be speech")
	}

	silence, _ := d.IsSpeech(quietChunk(256))
	if silence {
		t.Fatalf("expected silent chunk to be non-speech")
	}
}

func TestDetectFirstWord(t *testing.T) {
	cases := []struct {
		in   string
		word string
		ok   bool
	}{
		{"Hello world", "hello", true},
		{"  Stop  ", "stop", true},
		{"", "", false},
		{"   ", "", false},
		{"LISTEN carefully", "listen", true},
		{"Hello, how are you?", "hello,", true},
	}
	for _, c := range cases {
		word, ok := DetectFirstWord(c.in)
		if ok != c.ok || word != c.word {
			t.Errorf("DetectFirstWord(%q) = (%q, %v), want (%q, %v)", c.in, word, ok, c.word, c.ok)
		}
	}
}

func newTestSegmenter() *Segmenter {
	cfg := Config{
		VADThreshold:       0.5,
		MinSegmentDuration: 50 * time.Millisecond,
		MaxSegmentDuration: 200 * time.Millisecond,
		SilenceThreshold:   50 * time.Millisecond,
		SampleRate:         1000, // 1 sample = 1ms, makes duration math exact in tests
	}
	return New(NewRMSDetector(0.5), cfg)
}

func TestSegmenterDiscardsShortSegment(t *testing.T) {
	s := newTestSegmenter()

	// 10ms of speech (< 50ms min).
	outcome, _ := s.Process(loudChunk(10))
	if outcome != OutcomeNone {
		t.Fatalf("expected no outcome mid-speech, got %v", outcome)
	}

	// 60ms of silence should close and discard (segment only 10ms long).
	outcome, _ = s.Process(quietChunk(60))
	if outcome != OutcomeDiscarded {
		t.Fatalf("expected discard for short segment, got %v", outcome)
	}
}

func TestSegmenterEmitsFirstWordThenSegment(t *testing.T) {
	s := newTestSegmenter()

	// 60ms of speech crosses the 50ms first-word threshold.
	outcome, _ := s.Process(loudChunk(60))
	if outcome != OutcomeFirstWordReady {
		t.Fatalf("expected first word ready, got %v", outcome)
	}
	s.NotifyFirstWordEmitted()

	// 60ms of trailing silence closes the segment (total speech 60ms >= min).
	outcome, _ = s.Process(quietChunk(60))
	if outcome != OutcomeSegmentReady {
		t.Fatalf("expected segment ready, got %v", outcome)
	}
}

func TestSegmenterForceFlushAtMaxDuration(t *testing.T) {
	s := newTestSegmenter()

	outcome, _ := s.Process(loudChunk(60))
	if outcome != OutcomeFirstWordReady {
		t.Fatalf("expected first word ready first, got %v", outcome)
	}
	s.NotifyFirstWordEmitted()

	outcome, _ = s.Process(loudChunk(200))
	if outcome != OutcomeSegmentReady {
		t.Fatalf("expected forced segment at max duration, got %v", outcome)
	}
}

func TestSegmenterResetClearsState(t *testing.T) {
	s := newTestSegmenter()
	s.Process(loudChunk(60))
	s.Reset()

	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle phase after reset, got %v", s.Phase())
	}
	if len(s.Buffer()) != 0 {
		t.Fatalf("expected empty buffer after reset")
	}
}

func TestSegmenterFlushEmptyBuffer(t *testing.T) {
	s := newTestSegmenter()
	samples, ok := s.Flush()
	if ok || samples != nil {
		t.Fatalf("expected no-op flush on empty buffer")
	}
}
