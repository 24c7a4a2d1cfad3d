// recover.go provides the Recover helper for deferred panic reporting.
// Use this in goroutines, workers or handlers that are not behind the HTTP middleware.

package faultline

import (
	"context"
	"fmt"
	"runtime/debug"
)

// PanicClass is the class reported for recovered panic values that are not errors.
const PanicClass = "panic"

// Recover captures a panic, reports it through n, and returns the recovered value.
// Recover does NOT re-panic after reporting.
//
// Use in defer:
//
//	func worker(ctx context.Context) {
//	    defer faultline.Recover(ctx, notifier)
//	    // code that might panic
//	}
func Recover(ctx context.Context, n *Notifier) any {
	r := recover()
	if r == nil {
		return nil
	}
	ReportPanic(ctx, n, r, debug.Stack())
	return r
}

// ReportPanic reports a recovered value with the stack captured at recovery time and
// returns the notice ID.
func ReportPanic(ctx context.Context, n *Notifier, recovered any, stack []byte) string {
	ev := Event{
		Class:     PanicClass,
		Message:   formatRecovered(recovered),
		Backtrace: ParseGoStack(string(stack)),
	}
	if err, ok := recovered.(error); ok {
		ev.Class = ExceptionName(err)
	}
	n.applyAmbient(ctx, &ev)
	ev.Tags = append(ev.Tags, PanicClass)
	return n.NotifyEvent(ctx, ev)
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
