// Package faultline provides error reporting for Go services: it decides whether an
// error should be reported, redacts sensitive data, runs user transforms and hands the
// resulting notice to a pluggable sink.
//
// # Core Components
//
//   - Store: owns the live configuration and logger (Init, Config, Reset)
//   - Matcher: ignore rules for routes and errors
//   - Redactor: recursive removal of sensitive keys and oversized strings
//   - Chain: ordered BeforeSend transforms that may rewrite or drop a notice
//   - Notifier: builds notices from errors and drives them through the pipeline
//   - Sink: destination for notices (intake, sentry, console, async, multi, noop)
//
// # Quick Start
//
//	store := faultline.NewStore()
//	if _, err := store.Init(faultline.Options{APIKey: os.Getenv("FAULTLINE_API_KEY")}); err != nil {
//	    log.Fatal(err)
//	}
//	notifier := faultline.NewNotifier(store, faultline.WithSink(intake.NewSink(store)))
//	defer notifier.Close()
//
//	notifier.Notify(ctx, err, faultline.NoticeTags("billing"))
//
// For tests, capture.New(store) replaces network delivery with an in-memory store of
// notices that can be queried and asserted on.
//
// # Design Principles
//
//   - Reporting never fails the caller: delivery errors are logged and swallowed
//   - Decision functions (Matcher, Redactor, Chain) return their errors
//   - Redaction happens before BeforeSend, so transforms only see filtered data
package faultline
