package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/copaw/pkg/api"
)

// Logging returns middleware that emits one structured log entry per relay
// call with the session, protocol, fragment count and duration. HTTP
// status codes are recorded separately by the adapter's metrics middleware.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Relayer) Relayer {
		return RelayerFunc(func(ctx context.Context, req *api.RelayRequest, sink FragmentSink) error {
			start := time.Now()

			counter := &countingSink{next: sink}
			err := next.Relay(ctx, req, counter)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("session_id", req.SessionID),
				slog.String("protocol", req.Protocol),
				slog.Int("messages", len(req.Messages)),
				slog.Int("fragments", counter.n),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "relay failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "relay completed", attrs...)
			}

			return err
		})
	}
}

type countingSink struct {
	next FragmentSink
	n    int
}

func (s *countingSink) WriteFragment(ctx context.Context, text string) error {
	s.n++
	return s.next.WriteFragment(ctx, text)
}
