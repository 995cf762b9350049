// Package transport defines the relay contract shared by the protocol
// adapters and the engine, plus the middleware chain wrapped around it.
//
// # Contract
//
// A Relayer receives a normalized api.RelayRequest and writes text
// fragments to a FragmentSink. Adapters own the wire format: each one
// supplies a sink that encodes fragments as its own SSE envelope, and maps
// a returned error to its own fault event. The engine never writes wire
// bytes itself.
//
// # Middleware
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
//
// # Errors
//
// Structured errors are *api.APIError values. HTTPStatusFromError and
// WriteAPIError render them as {"error":{...}} JSON bodies for failures
// that occur before a stream has started.
package transport
