package capture

import (
	"time"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Notice is a decoded record of what would have been sent.
type Notice struct {
	ID          string
	Class       string
	Message     string
	Backtrace   []faultline.Frame
	Context     map[string]any
	Request     *faultline.Request
	User        *faultline.User
	Tags        []string
	Fingerprint string
	OccurredAt  time.Time
	Runtime     faultline.Runtime
}

// HasTag reports whether tag is attached to the notice.
func (n Notice) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func noticeFromWire(w *faultline.Notice, runtime faultline.Runtime) Notice {
	ev := w.Event()
	n := Notice{
		Class:       ev.Class,
		Message:     ev.Message,
		Backtrace:   ev.Backtrace,
		Context:     ev.Context,
		Request:     ev.Request,
		User:        ev.User,
		Tags:        ev.Tags,
		Fingerprint: ev.Fingerprint,
		OccurredAt:  ev.OccurredAt,
		Runtime:     runtime,
	}
	if n.Backtrace == nil {
		n.Backtrace = []faultline.Frame{}
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	return n
}
