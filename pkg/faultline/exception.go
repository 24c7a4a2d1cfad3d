package faultline

import (
	"reflect"

	"github.com/pkg/errors"
)

// Exception is an error with an explicit class name. It is used for errors reported from
// client and edge runtimes, where the class and raw stack arrive as strings.
type Exception struct {
	Class   string
	Message string
	Frames  []Frame
	cause   error
}

// NewException creates an Exception with the given class and message.
func NewException(class, message string) *Exception {
	return &Exception{Class: class, Message: message}
}

// ExceptionFromStack creates an Exception whose backtrace is parsed from a raw
// "at method (file:line:col)" style stack trace.
func ExceptionFromStack(class, message, stack string) *Exception {
	return &Exception{Class: class, Message: message, Frames: ParseStack(stack)}
}

// WrapException attaches a class name to err.
func WrapException(class string, err error) *Exception {
	if err == nil {
		return nil
	}
	return &Exception{Class: class, Message: err.Error(), cause: err}
}

// Error returns the message.
func (e *Exception) Error() string { return e.Message }

// Name returns the class reported for the exception.
func (e *Exception) Name() string { return e.Class }

// Unwrap returns the error passed to WrapException, if any.
func (e *Exception) Unwrap() error { return e.cause }

// isGenericErrorPackage reports packages whose error values carry no meaningful type name.
func isGenericErrorPackage(pkg string) bool {
	switch pkg {
	case "errors", "fmt", "github.com/pkg/errors":
		return true
	}
	return false
}

// ExceptionName returns the class name reported for err. An error providing
// Name() string wins; otherwise the first non-generic Go type in the wrap chain is used.
// Plain errors.New and fmt.Errorf values are named "Error".
func ExceptionName(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if named, ok := e.(interface{ Name() string }); ok && named.Name() != "" {
			return named.Name()
		}
		if name, ok := typeName(e); ok {
			return name
		}
	}
	return "Error"
}

func typeName(err error) (string, bool) {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "", false
	}
	if isGenericErrorPackage(t.PkgPath()) {
		return "", false
	}
	return t.Name(), true
}

// exceptionFrames returns the backtrace carried by err, if any.
func exceptionFrames(err error) []Frame {
	var exc *Exception
	if errors.As(err, &exc) && len(exc.Frames) > 0 {
		return exc.Frames
	}
	return StackFromError(err)
}
