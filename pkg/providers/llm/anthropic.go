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

type AnthropicLLM struct {
	apiKey string
	url    string
	model  string
}

func NewAnthropicLLM(apiKey string, model string) *AnthropicLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicLLM{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
	}
}

func (l *AnthropicLLM) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	var system string
	var anthropicMessages []map[string]string

	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			system = msg.Content
		} else {
			anthropicMessages = append(anthropicMessages, map[string]string{
				"role":    string(msg.Role),
				"content": msg.Content,
			})
		}
	}

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   anthropicMessages,
		"max_tokens": 1024,
		"stream":     true,
	}
	if system != "" {
		payload["system"] = system
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var accumulated string
	stopped := false
	err = llm.ScanSSE(resp, func(data string) bool {
		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Text string `json:"text"`
			} `json:"delta"`
		}
		if jsonErr := json.Unmarshal([]byte(data), &event); jsonErr != nil {
			return true
		}
		if event.Type != "content_block_delta" || event.Delta.Text == "" {
			return true
		}
		accumulated += event.Delta.Text
		if !onToken(event.Delta.Text) {
			stopped = true
			return false
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

func (l *AnthropicLLM) Name() string {
	return "anthropic-llm"
}
