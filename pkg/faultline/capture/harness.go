package capture

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Values installed into the store by Setup.
const (
	// TestAPIKey is the API key of the test configuration.
	TestAPIKey = "test-api-key"
	// TestEndpoint is never contacted: ingestion calls are answered in memory.
	TestEndpoint = "http://localhost:9999"
	// TestEnvironment is the environment reported by captured notices.
	TestEnvironment = "test"
)

// Option configures a Harness.
type Option func(*Harness)

// WithTransport sets the transport that non-ingestion calls, and every call made while the
// harness is inactive, are passed to.
func WithTransport(t faultline.Transport) Option {
	return func(h *Harness) {
		h.real = t
	}
}

// WithLogger sets the logger installed into the store on Setup. Without it the store uses
// its default logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness captures notices in memory while active.
type Harness struct {
	store  *faultline.Store
	real   faultline.Transport
	logger *zap.Logger

	mu      sync.Mutex
	active  bool
	notices []Notice
}

// New creates an inactive harness bound to store.
func New(store *faultline.Store, opts ...Option) *Harness {
	h := &Harness{store: store}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Setup reinitializes the store with test defaults, empties the captured notices and
// activates interception. Overrides are applied to the test Options before Init.
// Calling Setup on an active harness logs a warning and changes nothing.
func (h *Harness) Setup(overrides ...func(*faultline.Options)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active {
		h.store.Logger().Warn("capture harness already active; call Teardown before Setup")
		return nil
	}

	opts := faultline.Options{
		APIKey:      TestAPIKey,
		Endpoint:    TestEndpoint,
		Environment: TestEnvironment,
		Logger:      h.logger,
	}
	for _, o := range overrides {
		o(&opts)
	}

	h.store.Reset()
	if _, err := h.store.Init(opts); err != nil {
		return errors.Wrap(err, "capture setup")
	}
	h.notices = nil
	h.active = true
	return nil
}

// Teardown deactivates interception, resets the store and empties the captured notices.
// It is a no-op on an inactive harness.
func (h *Harness) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.active {
		return
	}
	h.active = false
	h.notices = nil
	h.store.Reset()
}

// IsActive reports whether the harness is intercepting.
func (h *Harness) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Transport returns a faultline.Transport routed through the harness.
func (h *Harness) Transport() faultline.Transport {
	return interceptor{h: h}
}

type interceptor struct {
	h *Harness
}

func (i interceptor) Send(ctx context.Context, req *faultline.TransportRequest) (*faultline.TransportResponse, error) {
	if !i.h.IsActive() || !isIngestion(req.URL) {
		if i.h.real == nil {
			return nil, errors.Wrapf(faultline.ErrTransportUnavailable, "%s %s", req.Method, req.URL)
		}
		return i.h.real.Send(ctx, req)
	}
	return i.h.ingest(req), nil
}

func isIngestion(rawURL string) bool {
	return strings.Contains(faultline.RequestPath(rawURL), "/notices")
}

func (h *Harness) ingest(req *faultline.TransportRequest) *faultline.TransportResponse {
	wire, err := faultline.DecodeNotice(req.Body)
	if err != nil {
		h.store.Logger().Warn("capture harness could not decode notice", zap.Error(err))
		return &faultline.TransportResponse{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"error":"invalid notice"}`),
		}
	}

	n := noticeFromWire(wire, inferRuntime(req, wire))
	n.ID = uuid.NewString()

	h.mu.Lock()
	// Teardown may have run while decoding.
	if !h.active {
		h.mu.Unlock()
		return &faultline.TransportResponse{StatusCode: http.StatusServiceUnavailable}
	}
	h.notices = append(h.notices, n)
	h.mu.Unlock()

	body, err := jsoniter.Marshal(createdResponse{ID: n.ID})
	if err != nil {
		h.store.Logger().Error("capture harness could not encode response", zap.Error(err))
		return &faultline.TransportResponse{StatusCode: http.StatusInternalServerError}
	}
	return &faultline.TransportResponse{StatusCode: http.StatusCreated, Body: body}
}

// createdResponse is the body answered for every captured notice.
type createdResponse struct {
	ID string `json:"id"`
}

func inferRuntime(req *faultline.TransportRequest, wire *faultline.Notice) faultline.Runtime {
	switch {
	case wire.Notifier.Runtime == faultline.RuntimeClient:
		return faultline.RuntimeClient
	case headerValue(req.Headers, faultline.RuntimeHeader) == string(faultline.RuntimeEdge),
		wire.Notifier.Runtime == faultline.RuntimeEdge,
		strings.Contains(faultline.RequestPath(req.URL), "/edge/"):
		return faultline.RuntimeEdge
	default:
		return faultline.RuntimeServer
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (h *Harness) snapshot() ([]Notice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return nil, faultline.ErrNotInTestMode
	}
	out := make([]Notice, len(h.notices))
	copy(out, h.notices)
	return out, nil
}

// Notices returns a copy of every captured notice in capture order.
func (h *Harness) Notices() ([]Notice, error) {
	return h.snapshot()
}

// LastNotice returns the most recent notice, or false when none were captured.
func (h *Harness) LastNotice() (Notice, bool, error) {
	all, err := h.snapshot()
	if err != nil || len(all) == 0 {
		return Notice{}, false, err
	}
	return all[len(all)-1], true, nil
}

// FirstNotice returns the oldest notice, or false when none were captured.
func (h *Harness) FirstNotice() (Notice, bool, error) {
	all, err := h.snapshot()
	if err != nil || len(all) == 0 {
		return Notice{}, false, err
	}
	return all[0], true, nil
}

// NoticeCount returns the number of captured notices.
func (h *Harness) NoticeCount() (int, error) {
	all, err := h.snapshot()
	return len(all), err
}

// HasNotices reports whether at least one notice was captured.
func (h *Harness) HasNotices() (bool, error) {
	all, err := h.snapshot()
	return len(all) > 0, err
}

// FindNotices returns the notices for which pred reports true.
func (h *Harness) FindNotices(pred func(Notice) bool) ([]Notice, error) {
	all, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	var out []Notice
	for _, n := range all {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// FindNoticesByClass returns the notices whose class equals class.
func (h *Harness) FindNoticesByClass(class string) ([]Notice, error) {
	return h.FindNotices(func(n Notice) bool { return n.Class == class })
}

// FindNoticesByTag returns the notices carrying tag.
func (h *Harness) FindNoticesByTag(tag string) ([]Notice, error) {
	return h.FindNotices(func(n Notice) bool { return n.HasTag(tag) })
}

// FindNoticesByRuntime returns the notices captured from runtime r.
func (h *Harness) FindNoticesByRuntime(r faultline.Runtime) ([]Notice, error) {
	return h.FindNotices(func(n Notice) bool { return n.Runtime == r })
}

// ClearNotices empties the captured notices.
func (h *Harness) ClearNotices() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return faultline.ErrNotInTestMode
	}
	h.notices = nil
	return nil
}

// AssertNoticeCount returns an *AssertionError when the captured count differs from expected.
func (h *Harness) AssertNoticeCount(expected int) error {
	all, err := h.snapshot()
	if err != nil {
		return err
	}
	if len(all) != expected {
		return &AssertionError{Expected: expected, Actual: len(all), Notices: all}
	}
	return nil
}

// AssertNoNotices is AssertNoticeCount(0).
func (h *Harness) AssertNoNotices() error {
	return h.AssertNoticeCount(0)
}

// AddNotice appends a notice directly, filling an ID, an empty backtrace, the current time
// and the server runtime where partial leaves them unset.
func (h *Harness) AddNotice(partial Notice) (Notice, error) {
	if partial.ID == "" {
		partial.ID = uuid.NewString()
	}
	if partial.Backtrace == nil {
		partial.Backtrace = []faultline.Frame{}
	}
	if partial.OccurredAt.IsZero() {
		partial.OccurredAt = time.Now()
	}
	if partial.Runtime == "" {
		partial.Runtime = faultline.RuntimeServer
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return Notice{}, faultline.ErrNotInTestMode
	}
	h.notices = append(h.notices, partial)
	return partial, nil
}
