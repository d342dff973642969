package orchestrator

import (
	"github.com/k0sti/babble-sub000/pkg/types"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// Command is the external control surface (§4.7's left-hand column).
// Exactly one concrete type per table row.
type Command interface{ isCommand() }

type StartRecording struct{}
type StopRecording struct{}
type CancelRecording struct{}
type SendText struct{ Text string }
type StopGeneration struct{}
type ClearHistory struct{}
type ShutdownCommand struct{}

func (StartRecording) isCommand()   {}
func (StopRecording) isCommand()    {}
func (CancelRecording) isCommand()  {}
func (SendText) isCommand()         {}
func (StopGeneration) isCommand()   {}
func (ClearHistory) isCommand()     {}
func (ShutdownCommand) isCommand()  {}

// EventType tags the outward-facing event surface (§6).
type EventType string

const (
	StateChanged EventType = "STATE_CHANGED"
	LLMToken     EventType = "LLM_TOKEN"
	ErrorEvent   EventType = "ERROR"
	Shutdown     EventType = "SHUTDOWN"
)

// Event is emitted on the orchestrator's outbound channel. Data carries the
// event-specific payload (a token string for LLMToken, an error wrapping one
// of the sentinels in errors.go for ErrorEvent); nil for StateChanged, which
// tells the subscriber to re-read the state snapshot, and for Shutdown.
type Event struct {
	Type EventType
	Data interface{}
}

// Config bundles the tunables the orchestrator and its workers need,
// extending the teacher's audio/voice defaults with the VAD segmenter
// thresholds and channel sizing from spec.md §4.3/§5.
type Config struct {
	SampleRate         int
	Channels           int
	BytesPerSamp       int
	MaxContextMessages int
	VoiceStyle         types.Voice
	Language           types.Language
	STTTimeout         uint
	LLMTimeout         uint
	TTSTimeout         uint

	VADThreshold       float64
	MinSegmentDuration uint // milliseconds
	MaxSegmentDuration uint // milliseconds
	SilenceThreshold   uint // milliseconds

	CommandChanSize uint
	EventChanSize   uint
	WorkerChanSize  uint
	AudioChanSize   uint // raw audio channel; spec.md §5 sizes this 10x WorkerChanSize

	ShutdownTimeoutMS uint
}

func DefaultConfig() Config {
	return Config{
		SampleRate:         44100,
		Channels:           1,
		BytesPerSamp:       2,
		MaxContextMessages: 20,
		VoiceStyle:         types.VoiceF1,
		Language:           types.LanguageEn,
		STTTimeout:         30,
		LLMTimeout:         60,
		TTSTimeout:         30,

		VADThreshold:       0.5,
		MinSegmentDuration: 500,
		MaxSegmentDuration: 30000,
		SilenceThreshold:   500,

		CommandChanSize: 100,
		EventChanSize:   100,
		WorkerChanSize:  100,
		AudioChanSize:   1000,

		ShutdownTimeoutMS: 2000,
	}
}
