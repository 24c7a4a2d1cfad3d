// sink.go defines the Sink interface for notice destinations.

package faultline

import "context"

// Sink is the destination for notices that survived filtering, redaction and the
// BeforeSend chain. Implementations must be safe for concurrent use.
type Sink interface {
	// Write delivers one notice.
	Write(ctx context.Context, ev Event) error

	// Flush blocks until buffered notices are delivered or ctx is done.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// noopSinkInternal is the default sink; sinks/noop cannot be imported without a cycle.
type noopSinkInternal struct{}

func (noopSinkInternal) Write(context.Context, Event) error { return nil }
func (noopSinkInternal) Flush(context.Context) error        { return nil }
func (noopSinkInternal) Close() error                       { return nil }
