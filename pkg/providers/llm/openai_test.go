package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/k0sti/babble-sub000/pkg/types"
)

func TestOpenAILLMStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"hello ", "from ", "openai"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	l := &OpenAILLM{
		apiKey: "test-key",
		url:    server.URL,
		model:  "gpt-4o",
	}

	messages := []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}

	resp, err := l.StreamComplete(context.Background(), messages, func(string) bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "hello from openai" {
		t.Errorf("expected 'hello from openai', got '%s'", resp)
	}
	if l.Name() != "openai-llm" {
		t.Errorf("expected openai-llm, got %s", l.Name())
	}
}

func TestOpenAILLMStreamStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range []string{"one ", "two ", "three"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer server.Close()

	l := &OpenAILLM{apiKey: "k", url: server.URL, model: "gpt-4o"}
	count := 0
	_, err := l.StreamComplete(context.Background(), nil, func(string) bool {
		count++
		return count < 1
	})
	if _, ok := err.(interface{ Error() string }); !ok || err == nil {
		t.Fatalf("expected a stop error, got %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 token before stop, got %d", count)
	}
}
