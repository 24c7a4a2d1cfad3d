// Package multi provides a sink that fans out to multiple sinks, e.g. intake delivery
// plus console output during development.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/faultline/pkg/faultline"
)

// multiSink fans out to multiple sinks.
type multiSink struct {
	sinks []faultline.Sink
}

// NewMultiSink creates a sink that writes to every non-nil sink in order.
// Errors are aggregated via errors.Join.
func NewMultiSink(sinks ...faultline.Sink) faultline.Sink {
	clean := make([]faultline.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			clean = append(clean, s)
		}
	}
	return &multiSink{sinks: clean}
}

// Write sends the notice to all sinks. All sinks are called even if some fail.
func (s *multiSink) Write(ctx context.Context, ev faultline.Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
