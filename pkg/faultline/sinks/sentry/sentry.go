// Package sentry provides a sink that hands notices to a sentry-go client, for services
// that deliver through Sentry instead of the faultline ingestion service.
package sentry

import (
	"context"
	"strings"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Client is the subset of *sentry.Client used by the sink.
type Client interface {
	CaptureEvent(event *sentrygo.Event, hint *sentrygo.EventHint, scope sentrygo.EventModifier) *sentrygo.EventID
	Flush(timeout time.Duration) bool
}

// NewClient creates a sentry-go client configured from a faultline Config.
func NewClient(cfg faultline.Config, dsn string) (*sentrygo.Client, error) {
	client, err := sentrygo.NewClient(sentrygo.ClientOptions{
		Dsn:         dsn,
		Environment: cfg.Environment,
		Release:     cfg.AppVersion,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create sentry client")
	}
	return client, nil
}

// SentrySinkOption configures the sentry sink.
type SentrySinkOption func(*sentrySink)

// WithFlushTimeout bounds Flush when the context carries no deadline (default: 5s).
func WithFlushTimeout(d time.Duration) SentrySinkOption {
	return func(s *sentrySink) {
		if d > 0 {
			s.flushTimeout = d
		}
	}
}

// WithScope applies scope data (breadcrumbs, tags) to every event.
func WithScope(scope *sentrygo.Scope) SentrySinkOption {
	return func(s *sentrySink) {
		if scope != nil {
			s.scope = scope
		}
	}
}

type sentrySink struct {
	client       Client
	scope        *sentrygo.Scope
	flushTimeout time.Duration
}

// NewSink creates a sink delivering through client.
func NewSink(client Client, opts ...SentrySinkOption) faultline.Sink {
	s := &sentrySink{
		client:       client,
		scope:        sentrygo.NewScope(),
		flushTimeout: faultline.DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write converts the notice and captures it. The client queues the event itself, so
// a nil event ID (dropped by the client) is the only failure reported.
func (s *sentrySink) Write(ctx context.Context, ev faultline.Event) error {
	if id := s.client.CaptureEvent(toSentryEvent(ev), nil, s.scope); id == nil {
		return errors.Errorf("sentry client dropped notice %s", ev.ID)
	}
	return nil
}

// Flush waits for the client's queue to drain.
func (s *sentrySink) Flush(ctx context.Context) error {
	timeout := s.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !s.client.Flush(timeout) {
		return errors.Errorf("sentry flush timed out after %s", timeout)
	}
	return nil
}

func (s *sentrySink) Close() error {
	return s.Flush(context.Background())
}

// toSentryEvent maps a notice onto the sentry event model. Sentry expects frames
// oldest first, the reverse of the notice backtrace.
func toSentryEvent(ev faultline.Event) *sentrygo.Event {
	event := sentrygo.NewEvent()
	event.EventID = sentrygo.EventID(strings.ReplaceAll(ev.ID, "-", ""))
	event.Level = sentrygo.LevelError
	event.Message = ev.Message
	event.Timestamp = ev.OccurredAt
	event.Environment = ev.Environment
	event.Platform = "go"
	event.Tags = map[string]string{"runtime": string(ev.Runtime)}
	event.Extra = make(map[string]interface{}, len(ev.Context)+1)
	for k, v := range ev.Context {
		event.Extra[k] = v
	}
	if len(ev.Tags) > 0 {
		event.Extra["tags"] = ev.Tags
	}
	if ev.Fingerprint != "" {
		event.Fingerprint = []string{ev.Fingerprint}
	}

	frames := make([]sentrygo.Frame, 0, len(ev.Backtrace))
	for i := len(ev.Backtrace) - 1; i >= 0; i-- {
		f := ev.Backtrace[i]
		frames = append(frames, sentrygo.Frame{
			Function: f.Method,
			Filename: f.File,
			AbsPath:  f.File,
			Lineno:   f.Number,
			InApp:    true,
		})
	}
	event.Exception = []sentrygo.Exception{{
		Type:       ev.Class,
		Value:      ev.Message,
		Stacktrace: &sentrygo.Stacktrace{Frames: frames},
	}}

	if ev.User != nil {
		event.User = sentrygo.User{
			ID:       ev.User.ID,
			Email:    ev.User.Email,
			Username: ev.User.Name,
		}
		if len(ev.User.Extra) > 0 {
			event.Extra["user"] = ev.User.Extra
		}
	}
	if ev.Request != nil {
		event.Request = &sentrygo.Request{
			URL:     ev.Request.URL,
			Method:  ev.Request.Method,
			Headers: ev.Request.Headers,
		}
	}
	return event
}

