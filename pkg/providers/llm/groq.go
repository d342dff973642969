package llm

import (
	"context"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// GroqLLM speaks the same OpenAI-compatible chat-completions streaming
// protocol as OpenAILLM, just against Groq's endpoint and model catalog.
type GroqLLM struct {
	apiKey string
	url    string
	model  string
}

func NewGroqLLM(apiKey string, model string) *GroqLLM {
	if model == "" {
		model = "llama3-70b-8192"
	}
	return &GroqLLM{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  model,
	}
}

func (l *GroqLLM) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	return chatCompletionsStream(ctx, l.url, l.apiKey, l.model, messages, onToken)
}

func (l *GroqLLM) Name() string {
	return "groq-llm"
}
