package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// SSE chunk from an OpenRouter/OpenAI streaming response.
type sseChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// processSSEStream reads "data:" events from the response body and emits
// one callback per non-empty content delta. Malformed chunks are skipped;
// the stream ends at "[DONE]" or EOF.
func processSSEStream(body io.Reader, emit func(delta string)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk sseChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			emit(content)
		}
	}

	return scanner.Err()
}
