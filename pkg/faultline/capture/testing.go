package capture

import (
	"github.com/stretchr/testify/require"
)

// RequireNoticeCount fails t immediately unless h captured exactly expected notices.
func RequireNoticeCount(t require.TestingT, h *Harness, expected int) {
	if th, ok := t.(interface{ Helper() }); ok {
		th.Helper()
	}
	require.NoError(t, h.AssertNoticeCount(expected))
}

// RequireNoNotices fails t immediately if h captured any notice.
func RequireNoNotices(t require.TestingT, h *Harness) {
	if th, ok := t.(interface{ Helper() }); ok {
		th.Helper()
	}
	require.NoError(t, h.AssertNoNotices())
}
