package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/k0sti/babble-sub000/pkg/llm"
	"github.com/k0sti/babble-sub000/pkg/types"
)

type OpenAILLM struct {
	apiKey string
	url    string
	model  string
}

func NewOpenAILLM(apiKey string, model string) *OpenAILLM {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAILLM{
		apiKey: apiKey,
		url:    "https://api.openai.com/v1/chat/completions",
		model:  model,
	}
}

// StreamComplete implements llm.Provider against the OpenAI-compatible
// chat-completions streaming endpoint, shared with GroqLLM (groq.go).
func (l *OpenAILLM) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	return chatCompletionsStream(ctx, l.url, l.apiKey, l.model, messages, onToken)
}

func (l *OpenAILLM) Name() string {
	return "openai-llm"
}

// chatCompletionsStream drives the OpenAI-shaped
// POST /chat/completions protocol with "stream": true in the request body:
// each SSE data line is a JSON
// chunk carrying zero or more delta.content fragments.
func chatCompletionsStream(ctx context.Context, url, apiKey, model string, messages []types.Message, onToken func(string) bool) (string, error) {
	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("chat completions error (status %d): %v", resp.StatusCode, errResp)
	}

	var accumulated string
	stopped := false
	err = llm.ScanSSE(resp, func(data string) bool {
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr != nil {
			return true
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			accumulated += c.Delta.Content
			if !onToken(c.Delta.Content) {
				stopped = true
				return false
			}
		}
		return true
	})
	if err != nil {
		return accumulated, err
	}
	if stopped {
		return accumulated, llm.ErrStopped{}
	}
	return accumulated, nil
}
