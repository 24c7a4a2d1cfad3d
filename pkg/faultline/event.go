// event.go defines the canonical notice data structure.

package faultline

import (
	"reflect"
	"time"
)

// Runtime identifies the execution context an error originated in.
type Runtime string

const (
	// RuntimeClient is a browser-like, UI-executing context.
	RuntimeClient Runtime = "client"

	// RuntimeServer is a long-lived server process.
	RuntimeServer Runtime = "server"

	// RuntimeEdge is a short-lived edge or serverless function.
	RuntimeEdge Runtime = "edge"
)

// Frame is one backtrace entry.
type Frame struct {
	File   string `json:"file"`
	Method string `json:"method"`
	Number int    `json:"number"`
}

// Request describes the inbound request being served when the error occurred.
type Request struct {
	URL       string            `json:"url,omitempty"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Params    map[string]any    `json:"params,omitempty"`
}

// User describes the end user affected by the error.
type User struct {
	ID    string         `json:"id,omitempty"`
	Email string         `json:"email,omitempty"`
	Name  string         `json:"name,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// SystemState captures host metrics at the time of an error.
type SystemState struct {
	Hostname       string `json:"hostname,omitempty"`
	PID            int    `json:"pid,omitempty"`
	GoVersion      string `json:"go_version,omitempty"`
	MemoryBytes    int64  `json:"memory_bytes,omitempty"`
	GoroutineCount int    `json:"goroutines,omitempty"`
	UptimeMs       int64  `json:"uptime_ms,omitempty"`
}

// Event is the reportable record. The notifier fills ID, OccurredAt, Runtime and
// Environment before redaction; BeforeSend transforms see the redacted value.
type Event struct {
	// ID uniquely identifies the notice (UUID).
	ID string

	// Class is the error class name, e.g. "TypeError" or "OpError".
	Class string

	// Message is the human-readable error message.
	Message string

	// Backtrace lists frames innermost first.
	Backtrace []Frame

	Context     map[string]any
	Request     *Request
	User        *User
	Tags        []string
	Fingerprint string

	Runtime     Runtime
	Environment string
	OccurredAt  time.Time

	// System is populated when the notifier captures host state.
	System *SystemState
}

// Clone returns a deep copy so transforms can never mutate the caller's event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Backtrace = append([]Frame(nil), e.Backtrace...)
	out.Tags = append([]string(nil), e.Tags...)
	c := newCloner()
	out.Context = c.cloneMap(e.Context)
	if e.Request != nil {
		req := *e.Request
		req.Headers = cloneStringMap(e.Request.Headers)
		req.Params = c.cloneMap(e.Request.Params)
		out.Request = &req
	}
	if e.User != nil {
		user := *e.User
		user.Extra = c.cloneMap(e.User.Extra)
		out.User = &user
	}
	if e.System != nil {
		sys := *e.System
		out.System = &sys
	}
	return &out
}

// HasTag reports whether tag is attached to the event.
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	return newCloner().cloneMap(m)
}

// cloner deep copies map[string]any and []any values. Every copy is remembered by the
// identity of its source, so shared and self-referential values keep their shape in the
// copy instead of being recursed into again.
type cloner struct {
	seen map[cloneKey]any
}

type cloneKey struct {
	ptr uintptr
	len int
}

func newCloner() *cloner {
	return &cloner{seen: make(map[cloneKey]any)}
}

func (c *cloner) cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	key := cloneKey{ptr: reflect.ValueOf(m).Pointer(), len: -1}
	if done, ok := c.seen[key]; ok {
		return done.(map[string]any)
	}
	out := make(map[string]any, len(m))
	c.seen[key] = out
	for k, v := range m {
		out[k] = c.cloneValue(v)
	}
	return out
}

func (c *cloner) cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	if len(s) == 0 {
		return []any{}
	}
	key := cloneKey{ptr: reflect.ValueOf(s).Pointer(), len: len(s)}
	if done, ok := c.seen[key]; ok {
		return done.([]any)
	}
	out := make([]any, len(s))
	c.seen[key] = out
	for i, item := range s {
		out[i] = c.cloneValue(item)
	}
	return out
}

func (c *cloner) cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return c.cloneMap(val)
	case []any:
		return c.cloneSlice(val)
	case map[string]string:
		return cloneStringMap(val)
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
