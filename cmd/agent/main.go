package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"

	"github.com/k0sti/babble-sub000/pkg/audio"
	"github.com/k0sti/babble-sub000/pkg/llm"
	"github.com/k0sti/babble-sub000/pkg/orchestrator"
	llmProvider "github.com/k0sti/babble-sub000/pkg/providers/llm"
	sttProvider "github.com/k0sti/babble-sub000/pkg/providers/stt"
	ttsProvider "github.com/k0sti/babble-sub000/pkg/providers/tts"
	"github.com/k0sti/babble-sub000/pkg/stt"
	"github.com/k0sti/babble-sub000/pkg/tts"
	"github.com/k0sti/babble-sub000/pkg/types"
)

const (
	SampleRate = 44100
	Channels   = 1
)

type stderrLogger struct{}

func (stderrLogger) Debug(msg string, args ...interface{}) {}
func (stderrLogger) Info(msg string, args ...interface{})  { log.Println(append([]interface{}{"[INFO]", msg}, args...)...) }
func (stderrLogger) Warn(msg string, args ...interface{})  { log.Println(append([]interface{}{"[WARN]", msg}, args...)...) }
func (stderrLogger) Error(msg string, args ...interface{}) { log.Println(append([]interface{}{"[ERROR]", msg}, args...)...) }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	googleKey := os.Getenv("GOOGLE_API_KEY")
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	assemblyKey := os.Getenv("ASSEMBLYAI_API_KEY")
	lokutorKey := os.Getenv("LOKUTOR_API_KEY")

	sttProviderName := os.Getenv("STT_PROVIDER")
	if sttProviderName == "" {
		sttProviderName = "groq"
	}
	llmProviderName := os.Getenv("LLM_PROVIDER")
	if llmProviderName == "" {
		llmProviderName = "groq"
	}

	lang := types.Language(os.Getenv("AGENT_LANGUAGE"))
	if lang == "" {
		lang = types.LanguageEs
	}

	if lokutorKey == "" {
		log.Fatal("Error: LOKUTOR_API_KEY must be set.")
	}

	var transcriber stt.Transcriber
	switch sttProviderName {
	case "openai":
		if openaiKey == "" {
			log.Fatal("Error: OPENAI_API_KEY must be set for openai STT")
		}
		transcriber = sttProvider.NewOpenAISTT(openaiKey, "whisper-1")
	case "deepgram":
		if deepgramKey == "" {
			log.Fatal("Error: DEEPGRAM_API_KEY must be set for deepgram STT")
		}
		transcriber = sttProvider.NewDeepgramSTT(deepgramKey)
	case "assemblyai":
		if assemblyKey == "" {
			log.Fatal("Error: ASSEMBLYAI_API_KEY must be set for assemblyai STT")
		}
		transcriber = sttProvider.NewAssemblyAISTT(assemblyKey)
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq STT")
		}
		groqModel := os.Getenv("GROQ_STT_MODEL")
		if groqModel == "" {
			groqModel = "whisper-large-v3-turbo"
		}
		transcriber = sttProvider.NewGroqSTT(groqKey, groqModel)
	}

	if s, ok := transcriber.(interface{ SetSampleRate(int) }); ok {
		s.SetSampleRate(SampleRate)
	}

	var llmProv llm.Provider
	switch llmProviderName {
	case "openai":
		if openaiKey == "" {
			log.Fatal("Error: OPENAI_API_KEY must be set for openai LLM")
		}
		llmProv = llmProvider.NewOpenAILLM(openaiKey, "gpt-4o")
	case "anthropic":
		if anthropicKey == "" {
			log.Fatal("Error: ANTHROPIC_API_KEY must be set for anthropic LLM")
		}
		llmProv = llmProvider.NewAnthropicLLM(anthropicKey, "claude-3-5-sonnet-20241022")
	case "google":
		if googleKey == "" {
			log.Fatal("Error: GOOGLE_API_KEY must be set for google LLM")
		}
		llmProv = llmProvider.NewGoogleLLM(googleKey, "gemini-1.5-flash")
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq LLM")
		}
		llmProv = llmProvider.NewGroqLLM(groqKey, "llama-3.3-70b-versatile")
	}

	fmt.Printf("Configured: STT=%s | LLM=%s | TTS=Lokutor\n", sttProviderName, llmProviderName)
	fmt.Printf("Sample Rate: %dHz | Language: %s\n", SampleRate, lang)
	fmt.Println("Voice Agent Started! Listening to microphone...")
	fmt.Println("Press Ctrl+C to exit")

	ttsProv := ttsProvider.NewLokutorTTS(lokutorKey)

	cfg := orchestrator.DefaultConfig()
	cfg.Language = lang
	cfg.SampleRate = SampleRate
	cfg.Channels = Channels

	systemPrompt := "You are a helpful and concise voice assistant. Use short sentences suitable for speech."
	if lang == types.LanguageEs {
		systemPrompt = "Eres un asistente de voz util y conciso. Usa frases cortas adecuadas para el habla."
	}

	orch := orchestrator.New(cfg, stderrLogger{}, transcriber, llmProv, ttsProv, systemPrompt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go orch.Run(ctx)

	var playbackMu sync.Mutex
	var playbackBytes []byte

	orch.OnAudioReady(func(a tts.Audio) {
		chunk := samplesToS16(a.Samples)
		playbackMu.Lock()
		playbackBytes = append(playbackBytes, chunk...)
		playbackMu.Unlock()
	})

	go func() {
		for ev := range orch.Events() {
			switch ev.Type {
			case orchestrator.StateChanged:
				snap := orch.State().Snapshot()
				fmt.Printf("\r\033[K[STATE] recording=%s llm=%s\n", snap.Recording, snap.LLM)
			case orchestrator.LLMToken:
				fmt.Print(ev.Data)
			case orchestrator.ErrorEvent:
				fmt.Printf("\r\033[K[ERROR] %v\n", ev.Data)
			case orchestrator.Shutdown:
				return
			}
		}
	}()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	// meterWindow holds roughly the last 200ms of captured samples for the
	// console level meter; overwrite-oldest semantics mean the meter always
	// reflects the most recent audio regardless of how fast it is drained.
	meterWindow := audio.NewRingBuffer(SampleRate / 5)

	go func() {
		for range time.Tick(100 * time.Millisecond) {
			samples := meterWindow.Read(meterWindow.Len())
			if len(samples) == 0 {
				continue
			}
			var sum float64
			for _, f := range samples {
				sum += float64(f) * float64(f)
			}
			rms := math.Sqrt(sum / float64(len(samples)))
			dots := int(rms * 500)
			if dots > 40 {
				dots = 40
			}
			meter := ""
			for i := 0; i < dots; i++ {
				meter += "|"
			}
			fmt.Printf("\r[MIC ENERGY: %-40s] RMS: %.5f", meter, rms)
		}
	}()

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			samples := pcm16BytesToFloat32(pInput)
			meterWindow.Write(samples)

			select {
			case orch.AudioIn() <- samples:
			default:
			}
		}
		if pOutput != nil {
			playbackMu.Lock()
			n := copy(pOutput, playbackBytes)
			playbackBytes = playbackBytes[n:]
			if n < len(pOutput) {
				for i := n; i < len(pOutput); i++ {
					pOutput[i] = 0
				}
			}
			playbackMu.Unlock()
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	orch.Commands() <- orchestrator.StartRecording{}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")
	orch.Commands() <- orchestrator.ShutdownCommand{}
	cancel()
}

func pcm16BytesToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}

func samplesToS16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		}
		if f < -1 {
			f = -1
		}
		v := int16(f * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
