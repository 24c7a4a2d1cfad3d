// payload.go encodes events into the ingestion wire format and back.

package faultline

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	// NotifierName identifies this library in the notifier block of every notice.
	NotifierName = "faultline-go"

	// NotifierVersion is the library version reported to the ingestion service.
	NotifierVersion = "0.4.0"

	// NotifierURL points at the library source.
	NotifierURL = "https://github.com/strongdm/faultline"

	// NoticesPath is appended to the endpoint for notice submission.
	NoticesPath = "/v1/notices"

	// APIKeyHeader carries the ingestion credential.
	APIKeyHeader = "X-Faultline-API-Key"

	// RuntimeHeader carries the originating runtime of a notice.
	RuntimeHeader = "X-Faultline-Runtime"
)

var noticeJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// NotifierInfo is the fixed identity block of a notice.
type NotifierInfo struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	URL     string  `json:"url"`
	Runtime Runtime `json:"runtime,omitempty"`
}

// Notice is the wire representation of an Event.
type Notice struct {
	ID          string         `json:"id,omitempty"`
	ErrorClass  string         `json:"error_class"`
	Message     string         `json:"message"`
	Backtrace   []Frame        `json:"backtrace"`
	Context     map[string]any `json:"context,omitempty"`
	Request     *Request       `json:"request,omitempty"`
	User        *User          `json:"user,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Environment string         `json:"environment,omitempty"`
	OccurredAt  *time.Time     `json:"occurred_at,omitempty"`
	Server      *SystemState   `json:"server,omitempty"`
	Notifier    NotifierInfo   `json:"notifier"`
}

// NewNotice converts ev to its wire form.
func NewNotice(ev *Event) *Notice {
	n := &Notice{
		ID:          ev.ID,
		ErrorClass:  ev.Class,
		Message:     ev.Message,
		Backtrace:   ev.Backtrace,
		Context:     ev.Context,
		Request:     ev.Request,
		User:        ev.User,
		Tags:        ev.Tags,
		Fingerprint: ev.Fingerprint,
		Environment: ev.Environment,
		Server:      ev.System,
		Notifier: NotifierInfo{
			Name:    NotifierName,
			Version: NotifierVersion,
			URL:     NotifierURL,
			Runtime: ev.Runtime,
		},
	}
	if n.Backtrace == nil {
		n.Backtrace = []Frame{}
	}
	if !ev.OccurredAt.IsZero() {
		t := ev.OccurredAt.UTC()
		n.OccurredAt = &t
	}
	return n
}

// Event converts the notice back into an Event.
func (n *Notice) Event() *Event {
	ev := &Event{
		ID:          n.ID,
		Class:       n.ErrorClass,
		Message:     n.Message,
		Backtrace:   n.Backtrace,
		Context:     n.Context,
		Request:     n.Request,
		User:        n.User,
		Tags:        n.Tags,
		Fingerprint: n.Fingerprint,
		Environment: n.Environment,
		Runtime:     n.Notifier.Runtime,
		System:      n.Server,
	}
	if n.OccurredAt != nil {
		ev.OccurredAt = *n.OccurredAt
	}
	return ev
}

// EncodeNotice marshals ev into a JSON notice body.
func EncodeNotice(ev *Event) ([]byte, error) {
	body, err := noticeJSON.Marshal(NewNotice(ev))
	if err != nil {
		return nil, errors.Wrap(err, "encode notice")
	}
	return body, nil
}

// DecodeNotice unmarshals a JSON notice body.
func DecodeNotice(body []byte) (*Notice, error) {
	var n Notice
	if err := noticeJSON.Unmarshal(body, &n); err != nil {
		return nil, errors.Wrap(err, "decode notice")
	}
	return &n, nil
}
