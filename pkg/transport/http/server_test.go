package http

import (
	"context"
	"io"
	"net"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/transport"
)

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	relayer := &mockRelayer{fragments: []string{"Hi"}}
	srv := NewServer(relayer, WithAddr("127.0.0.1:0"), WithKeepAlive(0))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	addr := ln.Addr().String()

	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	resp, err := gohttp.Post("http://"+addr+"/process", "application/json",
		strings.NewReader(`{"input":[{"content":"hello"}]}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"text":"Hi"`) || !strings.HasSuffix(string(body), "data: [DONE]\n\n") {
		t.Errorf("body = %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func TestServerGracefulShutdown(t *testing.T) {
	slow := transport.RelayerFunc(func(ctx context.Context, req *api.RelayRequest, sink transport.FragmentSink) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return sink.WriteFragment(ctx, "late")
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	srv := NewServer(slow,
		WithAddr("127.0.0.1:0"),
		WithShutdownTimeout(5*time.Second),
		WithKeepAlive(0),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	addr := ln.Addr().String()

	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := gohttp.Post("http://"+addr+"/process", "application/json",
			strings.NewReader(`{"input":[{"content":"hello"}]}`))
		if err != nil {
			bodyCh <- ""
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		bodyCh <- string(b)
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	body := <-bodyCh
	if !strings.Contains(body, `"text":"late"`) {
		t.Errorf("in-flight stream was not completed: %q", body)
	}
}

func TestServerRunStopsOnContext(t *testing.T) {
	srv := NewServer(&mockRelayer{}, WithAddr("127.0.0.1:0"), WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Addr != "0.0.0.0:8088" {
		t.Errorf("addr = %q, want 0.0.0.0:8088", cfg.Addr)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.MaxBodySize != DefaultConfig().MaxBodySize {
		t.Errorf("max body size = %d, want adapter default", cfg.MaxBodySize)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(&mockRelayer{},
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithShutdownTimeout(10*time.Second),
		WithModel("deepseek-chat"),
		WithMetricsPath(""),
		WithKeepAlive(time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.config.MaxBodySize, 1024)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.adapter.config.Model != "deepseek-chat" || srv.adapter.config.MetricsPath != "" {
		t.Errorf("adapter config = %+v", srv.adapter.config)
	}
	if srv.adapter.config.KeepAlive != time.Second {
		t.Errorf("keep-alive = %v", srv.adapter.config.KeepAlive)
	}
}
