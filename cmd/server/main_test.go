package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/copaw/pkg/config"
)

func testConfig(upstreamURL, apiKey string) *config.Config {
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.KeepAlive = 0
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.APIKey = apiKey
	return &cfg
}

func TestNewServerHealth(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1", "")
	srv, cleanup, err := newServer(cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	defer cleanup()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" || health["model"] != "deepseek-chat" || health["version"] != version {
		t.Errorf("health = %v", health)
	}
}

func TestNewServerRelaysToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	srv, cleanup, err := newServer(testConfig(upstream.URL+"/v1", "sk-test"), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	defer cleanup()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"input":[{"role":"user","content":[{"type":"text","text":"hello"}]}],"session_id":"s1"}`
	resp, err := http.Post(ts.URL+"/process", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"text":"Hi"`) {
		t.Errorf("stream missing fragment: %q", out)
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Errorf("stream does not end with [DONE]: %q", out)
	}
}

func TestNewServerMetricsDisabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1", "")
	cfg.Observability.Metrics.Enabled = false

	srv, cleanup, err := newServer(cfg, nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Error("metrics endpoint should not be served when disabled")
	}
}

func TestNewServerRegistersSessionGaugeOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig("http://127.0.0.1:1/v1", "")

	for range 2 {
		_, cleanup, err := newServer(cfg, reg)
		if err != nil {
			t.Fatalf("newServer: %v", err)
		}
		cleanup()
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "copaw_sessions_active" {
			found = true
		}
	}
	if !found {
		t.Error("copaw_sessions_active not registered")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1", "")
	cfg.Server.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, prometheus.NewRegistry()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRootCmdRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional arguments")
	}
}
