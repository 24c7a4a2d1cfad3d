// Package intake provides the sink that delivers notices to the ingestion service
// over a faultline.Transport.
package intake

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/strongdm/faultline/pkg/faultline"
)

// IntakeSinkOption configures the intake sink.
type IntakeSinkOption func(*intakeSink)

// WithTransport replaces the default HTTP transport, e.g. with a capture harness.
func WithTransport(t faultline.Transport) IntakeSinkOption {
	return func(s *intakeSink) {
		s.transport = t
	}
}

// intakeSink encodes notices and posts them to <endpoint>/v1/notices.
type intakeSink struct {
	store     *faultline.Store
	transport faultline.Transport

	// The default transport is rebuilt whenever the configured timeouts change.
	mu            sync.Mutex
	httpTransport *faultline.HTTPTransport
	httpTimeouts  timeouts
}

type timeouts struct {
	connect, request time.Duration
}

// NewSink creates a sink posting to the endpoint of the store's live configuration.
func NewSink(store *faultline.Store, opts ...IntakeSinkOption) faultline.Sink {
	s := &intakeSink{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write posts one notice. Any non-2xx response is an error.
func (s *intakeSink) Write(ctx context.Context, ev faultline.Event) error {
	cfg, err := s.store.Config()
	if err != nil {
		return err
	}
	transport := s.transportFor(cfg)

	body, err := faultline.EncodeNotice(&ev)
	if err != nil {
		return err
	}

	req := &faultline.TransportRequest{
		URL:    strings.TrimRight(cfg.Endpoint, "/") + faultline.NoticesPath,
		Method: http.MethodPost,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"Accept":                "application/json",
			faultline.APIKeyHeader:  cfg.APIKey,
			faultline.RuntimeHeader: string(ev.Runtime),
		},
		Body: body,
	}

	resp, err := transport.Send(ctx, req)
	if err != nil {
		return errors.Wrap(err, "send notice")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("ingestion service responded %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}
	return nil
}

func (s *intakeSink) transportFor(cfg faultline.Config) faultline.Transport {
	if s.transport != nil {
		return s.transport
	}

	want := timeouts{connect: cfg.ConnectTimeout, request: cfg.RequestTimeout}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpTransport == nil || s.httpTimeouts != want {
		s.httpTransport = faultline.NewHTTPTransport(cfg)
		s.httpTimeouts = want
	}
	return s.httpTransport
}

// Flush is a no-op: Write is synchronous.
func (s *intakeSink) Flush(ctx context.Context) error {
	return nil
}

func (s *intakeSink) Close() error {
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
