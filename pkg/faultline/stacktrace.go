// stacktrace.go turns raw stack traces and error values into backtrace frames.

package faultline

import (
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AnonymousMethod is used for frames that carry no method name.
const AnonymousMethod = "<anonymous>"

var (
	// Matches "at method (file:line:col)" and "at file:line:col".
	jsFramePattern = regexp.MustCompile(`^\s*at\s+(?:(.+?)\s+\()?(.+?):(\d+):(\d+)\)?\s*$`)

	// Matches the location line of a Go stack, e.g. "\t/app/main.go:42 +0x1d".
	goLocationPattern = regexp.MustCompile(`^\s+(.+?):(\d+)(?:\s+\+0x[0-9a-fA-F]+)?\s*$`)

	// Strips the argument list from a Go function line, e.g. "main.run(0x1, 0x2)".
	goArgsPattern = regexp.MustCompile(`\([^()]*\)$`)

	// Strips the goroutine suffix of "created by" lines.
	goCreatedPattern = regexp.MustCompile(`\s+in goroutine \d+$`)
)

// ParseStack parses a stack trace of the "at method (file:line:col)" form.
// The first line is the error header and is skipped. Lines that do not match
// contribute no frame; frame order follows the trace.
func ParseStack(raw string) []Frame {
	frames := []Frame{}
	if raw == "" {
		return frames
	}

	lines := strings.Split(raw, "\n")
	for _, line := range lines[1:] {
		m := jsFramePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		method := m[1]
		if method == "" {
			method = AnonymousMethod
		}
		number, err := strconv.Atoi(m[3])
		if err != nil {
			number = 0
		}
		frames = append(frames, Frame{File: m[2], Method: method, Number: number})
	}
	return frames
}

// ParseGoStack parses runtime/debug.Stack output. Goroutine headers are skipped and
// each function line is paired with the location line that follows it.
func ParseGoStack(raw string) []Frame {
	frames := []Frame{}
	lines := strings.Split(raw, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "\t") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		loc := goLocationPattern.FindStringSubmatch(lines[i+1])
		if loc == nil {
			continue
		}
		i++

		method := strings.TrimPrefix(line, "created by ")
		method = goCreatedPattern.ReplaceAllString(method, "")
		method = goArgsPattern.ReplaceAllString(method, "")
		number, err := strconv.Atoi(loc[2])
		if err != nil {
			number = 0
		}
		frames = append(frames, Frame{File: loc[1], Method: method, Number: number})
	}
	return frames
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// StackFromError extracts the backtrace recorded by github.com/pkg/errors. The deepest
// recorded stack in the wrap chain is used since it is closest to the origin.
// Returns nil when err carries no stack.
func StackFromError(err error) []Frame {
	var trace errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			trace = st.StackTrace()
		}
	}
	if len(trace) == 0 {
		return nil
	}

	pcs := make([]uintptr, len(trace))
	for i, f := range trace {
		pcs[i] = uintptr(f)
	}
	return framesFromPCs(pcs)
}

// CallerStack returns the backtrace of the calling goroutine, skipping skip frames above
// the caller of CallerStack.
func CallerStack(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	return framesFromPCs(pcs[:n])
}

func framesFromPCs(pcs []uintptr) []Frame {
	frames := make([]Frame, 0, len(pcs))
	iter := runtime.CallersFrames(pcs)
	for {
		f, more := iter.Next()
		if f.Function != "" || f.File != "" {
			method := f.Function
			if method == "" {
				method = AnonymousMethod
			}
			frames = append(frames, Frame{File: f.File, Method: method, Number: f.Line})
		}
		if !more {
			break
		}
	}
	return frames
}

// trimProjectRoot makes frame paths relative to root.
func trimProjectRoot(frames []Frame, root string) []Frame {
	if root == "" {
		return frames
	}
	root = strings.TrimSuffix(root, "/") + "/"
	out := make([]Frame, len(frames))
	for i, f := range frames {
		f.File = strings.TrimPrefix(f.File, root)
		out[i] = f
	}
	return out
}
