package capture

import (
	"fmt"
	"strings"

	"github.com/strongdm/faultline/pkg/faultline"
)

// AssertionError reports a failed notice count expectation. It wraps faultline.ErrAssertion.
type AssertionError struct {
	Expected int
	Actual   int
	Notices  []Notice
}

// Error lists the expected and actual counts followed by one line per captured notice.
func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expected %d notice(s), but got %d", e.Expected, e.Actual)
	if len(e.Notices) == 0 {
		return b.String()
	}
	b.WriteString(". Captured notices:")
	for _, n := range e.Notices {
		fmt.Fprintf(&b, "\n  - %s: %s", n.Class, n.Message)
	}
	return b.String()
}

// Unwrap lets errors.Is match faultline.ErrAssertion.
func (e *AssertionError) Unwrap() error {
	return faultline.ErrAssertion
}
