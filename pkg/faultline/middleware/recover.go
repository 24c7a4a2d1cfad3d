// Package middleware reports panics and attaches request data for net/http servers.
// It works with any http.Handler and picks up chi's request ID and route pattern when present.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/strongdm/faultline/pkg/faultline"
)

// RecoverOption configures the Recover middleware.
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	repanic bool
	tags    []string
}

// WithRepanic re-raises the panic after it has been reported instead of writing a 500.
func WithRepanic() RecoverOption {
	return func(cfg *recoverConfig) {
		cfg.repanic = true
	}
}

// WithTags attaches tags to every notice raised while serving a request.
func WithTags(tags ...string) RecoverOption {
	return func(cfg *recoverConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// Recover returns middleware that attaches a request descriptor to the request context
// and reports panics through n. Routes matching the IgnoredRoutes rules are served
// without reporting. http.ErrAbortHandler is never reported.
func Recover(n *faultline.Notifier, opts ...RecoverOption) func(http.Handler) http.Handler {
	cfg := &recoverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	matcher := faultline.NewMatcher(n.Store())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ignored, err := matcher.ShouldIgnoreRoute(r.URL.Path); err == nil && ignored {
				next.ServeHTTP(w, r)
				return
			}

			ctx := faultline.WithRequest(r.Context(), RequestFrom(r))
			if len(cfg.tags) > 0 {
				ctx = faultline.WithTags(ctx, cfg.tags...)
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				ctx = faultline.WithContext(ctx, map[string]any{"request_id": id})
			}
			r = r.WithContext(ctx)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reportCtx := ctx
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						reportCtx = faultline.WithContext(reportCtx, map[string]any{"route": pattern})
					}
				}
				faultline.ReportPanic(reportCtx, n, rec, debug.Stack())

				if cfg.repanic {
					panic(rec)
				}
				w.WriteHeader(http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestFrom builds the request descriptor reported with notices.
// Headers are flattened; sensitive ones are redacted later in the pipeline.
func RequestFrom(r *http.Request) *faultline.Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = scheme
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}

	var params map[string]any
	if q := r.URL.Query(); len(q) > 0 {
		params = make(map[string]any, len(q))
		for k, v := range q {
			if len(v) == 1 {
				params[k] = v[0]
			} else {
				params[k] = v
			}
		}
	}

	return &faultline.Request{
		URL:       u.String(),
		Method:    r.Method,
		Headers:   headers,
		UserAgent: r.UserAgent(),
		Params:    params,
	}
}
