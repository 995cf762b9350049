package transport

import (
	"context"

	"github.com/rhuss/copaw/pkg/api"
)

// Relayer handles one relay call: it forwards the normalized request to the
// model backend and writes each text fragment of the answer to the sink.
// Faults are returned as errors; the protocol adapter decides how to
// surface them on the wire.
type Relayer interface {
	Relay(ctx context.Context, req *api.RelayRequest, sink FragmentSink) error
}

// RelayerFunc is an adapter that allows using an ordinary function as a
// Relayer.
type RelayerFunc func(ctx context.Context, req *api.RelayRequest, sink FragmentSink) error

// Relay calls f(ctx, req, sink).
func (f RelayerFunc) Relay(ctx context.Context, req *api.RelayRequest, sink FragmentSink) error {
	return f(ctx, req, sink)
}

// FragmentSink receives the text fragments of a streamed answer in order.
// Each protocol adapter supplies its own sink that re-encodes fragments in
// its envelope format. An error from WriteFragment (typically a
// disconnected client) aborts the relay call.
type FragmentSink interface {
	WriteFragment(ctx context.Context, text string) error
}

// FragmentSinkFunc is an adapter that allows using an ordinary function as
// a FragmentSink.
type FragmentSinkFunc func(ctx context.Context, text string) error

// WriteFragment calls f(ctx, text).
func (f FragmentSinkFunc) WriteFragment(ctx context.Context, text string) error {
	return f(ctx, text)
}
