package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/provider"
)

// DefaultConnectTimeout bounds connection setup and the wait for response
// headers. The streamed body itself has no deadline.
const DefaultConnectTimeout = 60 * time.Second

// Config holds settings for an OpenAI-compatible backend.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.deepseek.com/v1". The
	// client posts to BaseURL + "/chat/completions".
	BaseURL string

	// APIKey is sent as a bearer token. Streaming fails with a
	// configuration error when it is empty.
	APIKey string

	// Model is used when a request does not name one.
	Model string

	// ConnectTimeout bounds dialing, the TLS handshake, and the wait for
	// response headers. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client performs streaming requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

var _ provider.Provider = (*Client)(nil)

// NewClient creates a new Client for an OpenAI-compatible backend.
func NewClient(cfg Config) *Client {
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	rt := cfg.Transport
	if rt == nil {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		rt = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   8,
		}
	}

	return &Client{
		// No overall client timeout: a stream can legitimately outlast
		// any fixed deadline. The request context controls its lifetime.
		httpClient: &http.Client{Transport: rt},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "openai-compatible" }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Endpoint returns the chat completions URL.
func (c *Client) Endpoint() string { return c.baseURL + "/chat/completions" }

// Stream performs streaming inference against the Chat Completions endpoint.
// It returns a channel of ProviderEvents. The channel is closed when the
// stream completes, errors, or the context is cancelled.
func (c *Client) Stream(ctx context.Context, req *provider.ProviderRequest) (<-chan provider.ProviderEvent, error) {
	if c.apiKey == "" {
		return nil, api.NewConfigError("api_key", "LLM_API_KEY not configured")
	}

	chatReq := ChatCompletionRequest{
		Model:  req.Model,
		Stream: true,
	}
	if chatReq.Model == "" {
		chatReq.Model = c.model
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.Endpoint()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	debug.Log("upstream", "request", "url", url, "model", chatReq.Model, "messages", len(chatReq.Messages))
	debug.Trace("upstream", "request body", "body", string(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		apiErr := MapHTTPError(httpResp)
		debug.Log("upstream", "error status", "status", httpResp.StatusCode, "error", apiErr.Message)
		return nil, apiErr
	}

	ch := make(chan provider.ProviderEvent, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
