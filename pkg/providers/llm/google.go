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

type GoogleLLM struct {
	apiKey string
	url    string
	model  string
}

func NewGoogleLLM(apiKey string, model string) *GoogleLLM {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GoogleLLM{
		apiKey: apiKey,
		url:    "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":streamGenerateContent",
		model:  model,
	}
}

func (l *GoogleLLM) StreamComplete(ctx context.Context, messages []types.Message, onToken func(string) bool) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type googleMessage struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}

	var googleMessages []googleMessage
	for _, m := range messages {
		role := string(m.Role)
		switch m.Role {
		case types.RoleSystem:
			role = "user" // Gemini doesn't accept a system role in content turns
		case types.RoleAssistant:
			role = "model"
		}
		googleMessages = append(googleMessages, googleMessage{Role: role, Parts: []part{{Text: m.Content}}})
	}

	payload := map[string]interface{}{"contents": googleMessages}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url+"?alt=sse&key="+l.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("google llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var accumulated string
	stopped := false
	err = llm.ScanSSE(resp, func(data string) bool {
		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []part `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr != nil {
			return true
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				accumulated += p.Text
				if !onToken(p.Text) {
					stopped = true
					return false
				}
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

func (l *GoogleLLM) Name() string {
	return "google-llm"
}
