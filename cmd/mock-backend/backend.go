package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const mockModel = "mock-model"

type backend struct {
	apiKey string
	delay  time.Duration
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", b.handleChatCompletions)
	mux.HandleFunc("POST /v1/chat/completions", b.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// scenario is the canned behavior selected for one request.
type scenario struct {
	tokens    []string
	malformed bool // emit an unparseable chunk before the tokens
	truncate  bool // close the stream without [DONE]
	status    int  // non-zero: fail with this HTTP status instead
}

// reply picks the scenario from the last user message:
//
//	"count from 1 to 5"  -> "1, 2, 3, 4, 5"
//	"echo <text>"        -> <text>
//	"how many messages"  -> the number of messages received, system included
//	"malformed"          -> one broken chunk, then the default reply
//	"truncate"           -> the default reply without [DONE]
//	"status <code>"      -> HTTP error <code>
//
// Anything else gets "Hello, nice day!".
func reply(last string, messageCount int) scenario {
	lower := strings.ToLower(strings.TrimSpace(last))
	def := []string{"Hello", ", ", "nice", " ", "day", "!"}

	switch {
	case strings.Contains(lower, "count from 1 to 5"):
		return scenario{tokens: []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}}
	case strings.HasPrefix(lower, "echo "):
		return scenario{tokens: splitTokens(strings.TrimSpace(last)[len("echo "):])}
	case strings.Contains(lower, "how many messages"):
		return scenario{tokens: []string{strconv.Itoa(messageCount)}}
	case lower == "malformed":
		return scenario{tokens: def, malformed: true}
	case lower == "truncate":
		return scenario{tokens: def, truncate: true}
	case strings.HasPrefix(lower, "status "):
		if code, err := strconv.Atoi(strings.TrimPrefix(lower, "status ")); err == nil && code >= 400 && code <= 599 {
			return scenario{status: code}
		}
	}
	return scenario{tokens: def}
}

// splitTokens breaks text after each space so the stream has more than
// one delta.
func splitTokens(text string) []string {
	return strings.SplitAfter(text, " ")
}

func (b *backend) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if b.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+b.apiKey {
		writeError(w, http.StatusUnauthorized, "Authentication Fails, Your api key is invalid", "authentication_error")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "invalid request", "invalid_request_error")
		return
	}
	doc := gjson.ParseBytes(body)

	model := doc.Get("model").String()
	if model == "" {
		model = mockModel
	}
	messages := doc.Get("messages").Array()
	sc := reply(lastUserMessage(messages), len(messages))

	slog.Info("chat completion", "model", model, "messages", len(messages), "stream", doc.Get("stream").Bool())

	if sc.status != 0 {
		writeError(w, sc.status, fmt.Sprintf("mock failure %d", sc.status), "mock_error")
		return
	}

	if !doc.Get("stream").Bool() {
		writeCompletion(w, model, strings.Join(sc.tokens, ""))
		return
	}
	b.stream(w, r, model, sc)
}

func (b *backend) stream(w http.ResponseWriter, r *http.Request, model string, sc scenario) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeChunk(w, model, map[string]any{"role": "assistant"}, nil)
	rc.Flush()

	if sc.malformed {
		fmt.Fprint(w, "data: {\"choices\": [\n\n")
		rc.Flush()
	}

	for _, token := range sc.tokens {
		if b.delay > 0 {
			select {
			case <-time.After(b.delay):
			case <-r.Context().Done():
				return
			}
		}
		writeChunk(w, model, map[string]any{"content": token}, nil)
		rc.Flush()
	}

	if sc.truncate {
		return
	}

	stop := "stop"
	writeChunk(w, model, map[string]any{}, &stop)
	fmt.Fprint(w, "data: [DONE]\n\n")
	rc.Flush()
}

func writeChunk(w io.Writer, model string, delta map[string]any, finish *string) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finish,
			},
		},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeCompletion(w http.ResponseWriter, model, text string) {
	resp := map[string]any{
		"id":     "chatcmpl-mock-text",
		"object": "chat.completion",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": typ},
	})
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": mockModel, "object": "model", "owned_by": "copaw-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// lastUserMessage returns the text of the last user message. List content
// contributes its text parts joined by spaces.
func lastUserMessage(messages []gjson.Result) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Get("role").String() != "user" {
			continue
		}
		content := m.Get("content")
		if !content.IsArray() {
			return content.String()
		}
		var parts []string
		content.ForEach(func(_, part gjson.Result) bool {
			if t := part.Get("text"); t.Exists() {
				parts = append(parts, t.String())
			}
			return true
		})
		return strings.Join(parts, " ")
	}
	return ""
}
