package provider

import "context"

// Provider abstracts a streaming LLM inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string

	// Model returns the model used when a request does not name one.
	Model() string

	// Stream performs streaming inference. Errors that prevent the stream
	// from starting (missing credential, connection failure, non-2xx
	// status) are returned directly. Once started, the returned channel
	// receives ProviderEvent values and is closed by the provider when the
	// stream completes, fails, or the context is cancelled.
	Stream(ctx context.Context, req *ProviderRequest) (<-chan ProviderEvent, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
