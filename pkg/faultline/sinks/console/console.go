// Package console provides a sink that prints notices in human-readable form.
// Useful for development and debugging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/faultline/pkg/faultline"
)

// ConsoleSinkOption configures the console sink.
type ConsoleSinkOption func(*consoleSinkConfig)

type consoleSinkConfig struct {
	out     io.Writer
	verbose bool
}

// WithVerbose enables full notice details including backtraces.
func WithVerbose() ConsoleSinkOption {
	return func(c *consoleSinkConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output (default: os.Stderr).
func WithWriter(w io.Writer) ConsoleSinkOption {
	return func(c *consoleSinkConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// consoleSink writes notices to a writer in human-readable format.
type consoleSink struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsoleSink creates a sink that writes to stderr unless WithWriter is given.
func NewConsoleSink(opts ...ConsoleSinkOption) faultline.Sink {
	cfg := &consoleSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &consoleSink{
		out:     cfg.out,
		verbose: cfg.verbose,
	}
}

// Write formats and outputs the notice.
//
// Format: [FAULTLINE] <timestamp> <RUNTIME> <class>: <message>
func (s *consoleSink) Write(ctx context.Context, ev faultline.Event) error {
	var b strings.Builder

	timestamp := ev.OccurredAt.Format("2006-01-02T15:04:05Z07:00")
	runtime := strings.ToUpper(string(ev.Runtime))
	fmt.Fprintf(&b, "[FAULTLINE] %s %s %s: %s\n", timestamp, runtime, ev.Class, ev.Message)

	if ev.ID != "" {
		fmt.Fprintf(&b, "        ID: %s\n", ev.ID)
	}
	if ev.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", ev.Fingerprint)
	}
	if len(ev.Tags) > 0 {
		fmt.Fprintf(&b, "        Tags: %s\n", strings.Join(ev.Tags, ", "))
	}
	if ev.Request != nil {
		fmt.Fprintf(&b, "        Request: %s %s\n", ev.Request.Method, ev.Request.URL)
	}
	if ev.User != nil && ev.User.ID != "" {
		fmt.Fprintf(&b, "        User: %s\n", ev.User.ID)
	}

	// Backtrace (only in verbose mode)
	if s.verbose && len(ev.Backtrace) > 0 {
		b.WriteString("        Backtrace:\n")
		for _, f := range ev.Backtrace {
			fmt.Fprintf(&b, "          %s (%s:%d)\n", f.Method, f.File, f.Number)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

// Flush is a no-op for the console sink.
func (s *consoleSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the console sink.
func (s *consoleSink) Close() error {
	return nil
}
