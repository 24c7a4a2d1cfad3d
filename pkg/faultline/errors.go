// errors.go defines the error taxonomy shared by the notifier and the capture harness.

package faultline

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned by Init when a required option is missing or invalid.
	ErrConfiguration = errors.New("faultline: invalid configuration")

	// ErrNotInitialized is returned by any read of a Store that has no live configuration.
	ErrNotInitialized = errors.New("faultline: not initialized, call Init first")

	// ErrNotInTestMode is returned by capture harness queries before Setup.
	ErrNotInTestMode = errors.New("faultline: not in test mode, call Setup first")

	// ErrAssertion is wrapped by every failed capture harness assertion.
	ErrAssertion = errors.New("faultline: assertion failed")

	// ErrTransportUnavailable means a request had to pass through but no real transport exists.
	ErrTransportUnavailable = errors.New("faultline: no transport available")
)
