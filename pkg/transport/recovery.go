package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/copaw/pkg/api"
)

// Recovery returns middleware that turns a panic inside a relay call into
// a server error. The server keeps accepting requests afterwards.
func Recovery() Middleware {
	return func(next Relayer) Relayer {
		return RelayerFunc(func(ctx context.Context, req *api.RelayRequest, sink FragmentSink) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("relay panic recovered",
						"request_id", RequestIDFromContext(ctx),
						"panic", fmt.Sprint(r))
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Relay(ctx, req, sink)
		})
	}
}
