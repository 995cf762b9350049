package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/transport"
)

// Adapter serves the relay over HTTP: the two streaming protocol endpoints
// plus the skills, health and metrics endpoints.
type Adapter struct {
	relayer transport.Relayer
	mux     *http.ServeMux
	config  Config
	skills  []api.Skill
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// Model is reported by the health endpoint.
	Model string

	// Version is reported by the health endpoint.
	Version string

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// KeepAlive is the interval between SSE comment pings on open
	// streams. Zero disables pings.
	KeepAlive time.Duration

	// Validation limits normalized requests before any stream opens.
	Validation api.ValidationConfig
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Version:     "0.2.0",
		MetricsPath: "/metrics",
		KeepAlive:   15 * time.Second,
		Validation:  api.DefaultValidationConfig(),
	}
}

// NewAdapter creates an HTTP adapter for the given Relayer. Middleware is
// applied to the Relayer in the given order.
func NewAdapter(relayer transport.Relayer, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		relayer = transport.Chain(middlewares...)(relayer)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.Version == "" {
		cfg.Version = DefaultConfig().Version
	}

	a := &Adapter{
		relayer: relayer,
		mux:     http.NewServeMux(),
		config:  cfg,
		skills:  BuiltinSkills(),
	}

	a.mux.HandleFunc("POST /process", a.handleProcess)
	a.mux.HandleFunc("POST /ag-ui", a.handleAGUI)
	a.mux.HandleFunc("GET /skills", a.handleSkills)
	a.mux.HandleFunc("GET /health", a.handleHealth)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, observability.Handler())
	}

	return a
}

// validate writes a 400 response and returns false when req breaks the
// configured limits.
func (a *Adapter) validate(w http.ResponseWriter, req *api.RelayRequest) bool {
	if apiErr := api.ValidateRelayRequest(req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return false
	}
	return true
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// request ID propagation and request metrics.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware makes sure every request carries an ID. A client
// supplied X-Request-ID is kept, otherwise a new one is generated. The ID
// is stored in the context and echoed in the X-Request-ID response header.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = api.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))

		rw := &requestIDResponseWriter{ResponseWriter: w, id: id}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	id          string
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	w.ResponseWriter.Header().Set("X-Request-ID", w.id)
}

// readJSONBody validates the content type, enforces the body size limit
// and returns the parsed document. On failure it has already written the
// error response.
func (a *Adapter) readJSONBody(w http.ResponseWriter, r *http.Request) (gjson.Result, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return gjson.Result{}, false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return gjson.Result{}, false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "failed to read body: "+err.Error()))
		return gjson.Result{}, false
	}

	if !gjson.ValidBytes(body) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON"))
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(body), true
}

// stringOr returns the string value at path, or def when the field is
// missing, null, or empty.
func stringOr(doc gjson.Result, path, def string) string {
	if v := doc.Get(path); v.Exists() && v.Type != gjson.Null && v.String() != "" {
		return v.String()
	}
	return def
}
