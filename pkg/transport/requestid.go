package transport

import (
	"context"

	"github.com/rhuss/copaw/pkg/api"
)

// RequestID returns middleware that makes sure every relay call carries a
// request ID. An ID already in the context (set by the HTTP adapter from
// the X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next Relayer) Relayer {
		return RelayerFunc(func(ctx context.Context, req *api.RelayRequest, sink FragmentSink) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, api.NewRequestID())
			}
			return next.Relay(ctx, req, sink)
		})
	}
}
