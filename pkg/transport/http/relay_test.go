package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/engine"
	"github.com/rhuss/copaw/pkg/provider/openaicompat"
	"github.com/rhuss/copaw/pkg/storage"
	"github.com/rhuss/copaw/pkg/storage/memory"
	"github.com/rhuss/copaw/pkg/transport"
)

// relayStack wires the real engine, store and upstream client behind the
// adapter, with upstream served by handler.
func relayStack(t *testing.T, apiKey string, handler http.HandlerFunc) (*httptest.Server, *memory.Store) {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	client := openaicompat.NewClient(openaicompat.Config{
		BaseURL: upstream.URL + "/v1",
		APIKey:  apiKey,
		Model:   "deepseek-chat",
	})
	store := memory.New(storage.MaxTurns(storage.DefaultMaxHistory))
	eng, err := engine.New(client, store, engine.Config{Model: "deepseek-chat"})
	if err != nil {
		t.Fatal(err)
	}

	a := NewAdapter(eng, testConfig(), transport.Recovery(), transport.RequestID())
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func upstreamSaying(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			b, _ := json.Marshal(c)
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestRelayProcessEndToEnd(t *testing.T) {
	srv, store := relayStack(t, "sk-test", upstreamSaying("Hi"))

	data := readSSEData(t, postJSON(t, srv.URL+"/process",
		`{"session_id":"e2e","input":[{"role":"user","content":[{"type":"text","text":"hello"}]}]}`))

	if len(data) != 2 || data[1] != "[DONE]" {
		t.Fatalf("events = %q", data)
	}
	var env api.OutputEnvelope
	if err := json.Unmarshal([]byte(data[0]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Output[0].Content[0].Text != "Hi" {
		t.Errorf("fragment = %q, want Hi", env.Output[0].Content[0].Text)
	}

	history := store.Get(t.Context(), "e2e")
	if len(history) != 2 || history[1].Role != api.RoleAssistant || history[1].Content != "Hi" {
		t.Errorf("history = %+v", history)
	}
}

func TestRelayAGUIMissingCredential(t *testing.T) {
	var called atomic.Bool
	srv, store := relayStack(t, "", func(w http.ResponseWriter, r *http.Request) { called.Store(true) })

	events, done := decodeAGUI(t, readSSEData(t, postJSON(t, srv.URL+"/ag-ui",
		`{"threadId":"nokey","messages":[{"role":"user","content":"hi"}]}`)))

	if done {
		t.Error("[DONE] must not follow RUN_ERROR")
	}
	want := []string{"RUN_STARTED", "TEXT_MESSAGE_START", "RUN_ERROR"}
	if got := nonContentTypes(events); !equalStrings(got, want) {
		t.Errorf("lifecycle = %v, want %v", got, want)
	}
	if called.Load() {
		t.Error("upstream must not be called without a credential")
	}
	if store.Len("nokey") != 0 {
		t.Error("failed call must not touch history")
	}
}

func TestRelayUpstreamErrorStatus(t *testing.T) {
	srv, _ := relayStack(t, "bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Authentication Fails"}}`)
	})

	data := readSSEData(t, postJSON(t, srv.URL+"/process", `{"input":[{"content":"hi"}]}`))
	if len(data) != 2 || data[1] != "[DONE]" {
		t.Fatalf("events = %q", data)
	}

	var env api.ErrorResponse
	if err := json.Unmarshal([]byte(data[0]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Error == nil || env.Error.Message != "upstream returned HTTP 401: Authentication Fails" {
		t.Errorf("error envelope = %s", data[0])
	}
}

func TestRelayConversationContinues(t *testing.T) {
	var mu sync.Mutex
	var seen [][]openaicompat.ChatMessage
	srv, _ := relayStack(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		var req openaicompat.ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		seen = append(seen, req.Messages)
		mu.Unlock()
		upstreamSaying("ok")(w, r)
	})

	for _, text := range []string{"one", "two"} {
		readSSEData(t, postJSON(t, srv.URL+"/ag-ui",
			fmt.Sprintf(`{"threadId":"conv","messages":[{"content":%q}]}`, text)))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("upstream calls = %d", len(seen))
	}
	second := seen[1]
	if len(second) != 4 {
		t.Fatalf("second call messages = %+v", second)
	}
	if second[0].Role != "system" || second[1].Content != "one" || second[2].Content != "ok" || second[3].Content != "two" {
		t.Errorf("second call messages = %+v", second)
	}
}
