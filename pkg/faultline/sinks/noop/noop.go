// Package noop provides a no-operation sink that discards all notices.
// Useful for disabling delivery, e.g. in local development.
package noop

import (
	"context"

	"github.com/strongdm/faultline/pkg/faultline"
)

// noopSink discards all notices.
type noopSink struct{}

// NewNoopSink creates a sink that discards all notices.
func NewNoopSink() faultline.Sink {
	return &noopSink{}
}

// Write discards the notice.
func (s *noopSink) Write(ctx context.Context, ev faultline.Event) error {
	return nil
}

func (s *noopSink) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSink) Close() error {
	return nil
}
