package capture

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/sinks/intake"
)

type recordingTransport struct {
	requests []*faultline.TransportRequest
}

func (r *recordingTransport) Send(ctx context.Context, req *faultline.TransportRequest) (*faultline.TransportResponse, error) {
	r.requests = append(r.requests, req)
	return &faultline.TransportResponse{StatusCode: http.StatusOK, Body: []byte("passthrough")}, nil
}

func newActiveHarness(t *testing.T, opts ...Option) (*faultline.Store, *Harness) {
	t.Helper()
	store := faultline.NewStore()
	h := New(store, opts...)
	require.NoError(t, h.Setup())
	t.Cleanup(h.Teardown)
	return store, h
}

func newNotifier(store *faultline.Store, h *Harness, opts ...faultline.NotifierOption) *faultline.Notifier {
	sink := intake.NewSink(store, intake.WithTransport(h.Transport()))
	return faultline.NewNotifier(store, append([]faultline.NotifierOption{faultline.WithSink(sink)}, opts...)...)
}

func TestHarness_Setup_InitializesTestConfig(t *testing.T) {
	store, _ := newActiveHarness(t)

	cfg, err := store.Config()
	require.NoError(t, err)
	assert.Equal(t, TestAPIKey, cfg.APIKey)
	assert.Equal(t, TestEndpoint, cfg.Endpoint)
	assert.Equal(t, TestEnvironment, cfg.Environment)
}

func TestHarness_Setup_AppliesOverrides(t *testing.T) {
	store := faultline.NewStore()
	h := New(store)
	require.NoError(t, h.Setup(func(o *faultline.Options) {
		o.Environment = "staging"
		o.FilterKeys = []string{"internal_id"}
	}))
	defer h.Teardown()

	cfg, err := store.Config()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Contains(t, cfg.FilterKeys, "internal_id")
}

func TestHarness_Setup_TwiceWarnsAndKeepsNotices(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	_, h := newActiveHarness(t, WithLogger(zap.New(core)))

	_, err := h.AddNotice(Notice{Class: "Error", Message: "kept"})
	require.NoError(t, err)

	require.NoError(t, h.Setup())

	count, err := h.NoticeCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, logs.FilterMessageSnippet("already active").Len())
}

func TestHarness_Setup_DefaultLoggerEmitsWarnings(t *testing.T) {
	store, _ := newActiveHarness(t)

	core := store.Logger().Core()
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestHarness_Setup_TwiceWarnsThroughStoreLogger(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := faultline.NewStore()
	h := New(store)
	require.NoError(t, h.Setup(func(o *faultline.Options) {
		o.Logger = zap.New(core)
	}))
	defer h.Teardown()

	require.NoError(t, h.Setup())

	assert.Equal(t, 1, logs.FilterMessageSnippet("already active").Len())
}

func TestHarness_Transport_MalformedBodyIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	_, h := newActiveHarness(t, WithLogger(zap.New(core)))

	_, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    TestEndpoint + faultline.NoticesPath,
		Method: http.MethodPost,
		Body:   []byte("{not json"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("could not decode notice").Len())
}

func TestHarness_Teardown_ResetsStore(t *testing.T) {
	store := faultline.NewStore()
	h := New(store)
	require.NoError(t, h.Setup())

	h.Teardown()

	assert.False(t, h.IsActive())
	assert.False(t, store.IsInitialized())
	_, err := h.Notices()
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
}

func TestHarness_Teardown_InactiveIsNoop(t *testing.T) {
	store := faultline.NewStore()
	_, err := store.Init(faultline.Options{APIKey: "live-key"})
	require.NoError(t, err)

	New(store).Teardown()

	assert.True(t, store.IsInitialized())
}

func TestHarness_Queries_RequireSetup(t *testing.T) {
	h := New(faultline.NewStore())

	_, err := h.Notices()
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
	_, _, err = h.LastNotice()
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
	_, err = h.NoticeCount()
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
	_, err = h.FindNoticesByClass("Error")
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
	assert.ErrorIs(t, h.ClearNotices(), faultline.ErrNotInTestMode)
	assert.ErrorIs(t, h.AssertNoNotices(), faultline.ErrNotInTestMode)
	_, err = h.AddNotice(Notice{})
	assert.ErrorIs(t, err, faultline.ErrNotInTestMode)
}

func TestHarness_Transport_CapturesNotifyRoundTrip(t *testing.T) {
	store, h := newActiveHarness(t)
	n := newNotifier(store, h)

	ctx := faultline.WithUser(context.Background(), faultline.User{ID: "u-1", Email: "a@example.com"})
	id := n.Notify(ctx, errors.New("boom"),
		faultline.NoticeContext(map[string]any{"order": 42, "password": "hunter2"}),
		faultline.NoticeTags("checkout"),
	)
	require.NotEmpty(t, id)

	RequireNoticeCount(t, h, 1)
	last, ok, err := h.LastNotice()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Error", last.Class)
	assert.Equal(t, "boom", last.Message)
	assert.Equal(t, faultline.RuntimeServer, last.Runtime)
	assert.Equal(t, faultline.FilteredMarker, last.Context["password"])
	assert.EqualValues(t, 42, last.Context["order"])
	assert.True(t, last.HasTag("checkout"))
	require.NotNil(t, last.User)
	assert.Equal(t, "u-1", last.User.ID)
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.OccurredAt.IsZero())
}

func TestHarness_Transport_InfersRuntime(t *testing.T) {
	store, h := newActiveHarness(t)

	newNotifier(store, h, faultline.WithRuntime(faultline.RuntimeClient)).Notify(context.Background(), errors.New("client"))
	newNotifier(store, h, faultline.WithRuntime(faultline.RuntimeEdge)).Notify(context.Background(), errors.New("edge"))
	newNotifier(store, h).Notify(context.Background(), errors.New("server"))

	for _, r := range []faultline.Runtime{faultline.RuntimeClient, faultline.RuntimeEdge, faultline.RuntimeServer} {
		found, err := h.FindNoticesByRuntime(r)
		require.NoError(t, err)
		require.Len(t, found, 1, "runtime %s", r)
		assert.Equal(t, string(r), found[0].Message)
	}
}

func TestHarness_Transport_EdgePathWithoutRuntime(t *testing.T) {
	_, h := newActiveHarness(t)

	body, err := faultline.EncodeNotice(&faultline.Event{Class: "Error", Message: "from edge"})
	require.NoError(t, err)

	resp, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    TestEndpoint + "/edge/v1/notices",
		Method: http.MethodPost,
		Body:   body,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	last, _, err := h.LastNotice()
	require.NoError(t, err)
	assert.Equal(t, faultline.RuntimeEdge, last.Runtime)
	assert.JSONEq(t, `{"id":"`+last.ID+`"}`, string(resp.Body))
}

func TestHarness_Transport_MalformedBodyIsBadRequest(t *testing.T) {
	_, h := newActiveHarness(t)

	resp, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    TestEndpoint + faultline.NoticesPath,
		Method: http.MethodPost,
		Body:   []byte("{not json"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	RequireNoNotices(t, h)
}

func TestHarness_Transport_PassesThroughOtherURLs(t *testing.T) {
	upstream := &recordingTransport{}
	_, h := newActiveHarness(t, WithTransport(upstream))

	resp, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    "https://example.com/api/users",
		Method: http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, "passthrough", string(resp.Body))
	assert.Len(t, upstream.requests, 1)
	RequireNoNotices(t, h)
}

func TestHarness_Transport_PassesThroughWhenInactive(t *testing.T) {
	upstream := &recordingTransport{}
	h := New(faultline.NewStore(), WithTransport(upstream))

	_, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    TestEndpoint + faultline.NoticesPath,
		Method: http.MethodPost,
	})
	require.NoError(t, err)
	assert.Len(t, upstream.requests, 1)
}

func TestHarness_Transport_NoRealTransport(t *testing.T) {
	h := New(faultline.NewStore())

	_, err := h.Transport().Send(context.Background(), &faultline.TransportRequest{
		URL:    "https://example.com/",
		Method: http.MethodGet,
	})
	assert.ErrorIs(t, err, faultline.ErrTransportUnavailable)
}

func TestHarness_Queries(t *testing.T) {
	_, h := newActiveHarness(t)

	first, err := h.AddNotice(Notice{Class: "TypeError", Message: "x is undefined", Tags: []string{"ui"}})
	require.NoError(t, err)
	_, err = h.AddNotice(Notice{Class: "Error", Message: "boom", Runtime: faultline.RuntimeEdge})
	require.NoError(t, err)

	got, ok, err := h.FirstNotice()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	has, err := h.HasNotices()
	require.NoError(t, err)
	assert.True(t, has)

	byClass, err := h.FindNoticesByClass("TypeError")
	require.NoError(t, err)
	assert.Len(t, byClass, 1)

	byTag, err := h.FindNoticesByTag("ui")
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	byRuntime, err := h.FindNoticesByRuntime(faultline.RuntimeEdge)
	require.NoError(t, err)
	assert.Len(t, byRuntime, 1)

	require.NoError(t, h.ClearNotices())
	_, ok, err = h.LastNotice()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHarness_Notices_ReturnsCopy(t *testing.T) {
	_, h := newActiveHarness(t)
	_, err := h.AddNotice(Notice{Class: "Error"})
	require.NoError(t, err)

	all, err := h.Notices()
	require.NoError(t, err)
	all[0].Class = "Mutated"

	again, err := h.Notices()
	require.NoError(t, err)
	assert.Equal(t, "Error", again[0].Class)
}

func TestHarness_AddNotice_FillsDefaults(t *testing.T) {
	_, h := newActiveHarness(t)

	n, err := h.AddNotice(Notice{Class: "Error", Message: "manual"})
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.NotNil(t, n.Backtrace)
	assert.Empty(t, n.Backtrace)
	assert.False(t, n.OccurredAt.IsZero())
	assert.Equal(t, faultline.RuntimeServer, n.Runtime)
}

func TestHarness_AssertNoticeCount(t *testing.T) {
	_, h := newActiveHarness(t)
	require.NoError(t, h.AssertNoNotices())

	_, err := h.AddNotice(Notice{Class: "TypeError", Message: "x is undefined"})
	require.NoError(t, err)

	err = h.AssertNoticeCount(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, faultline.ErrAssertion)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 2, ae.Expected)
	assert.Equal(t, 1, ae.Actual)
	assert.Contains(t, err.Error(), "Expected 2 notice(s), but got 1")
	assert.Contains(t, err.Error(), "TypeError: x is undefined")

	assert.Error(t, h.AssertNoNotices())
	assert.NoError(t, h.AssertNoticeCount(1))
}

func TestHarness_AddNotice_TagScenario(t *testing.T) {
	_, h := newActiveHarness(t)

	validation, err := h.AddNotice(Notice{Class: "ValidationError", Message: "Invalid input", Tags: []string{"validation"}})
	require.NoError(t, err)
	_, err = h.AddNotice(Notice{Class: "NetworkError", Message: "x", Tags: []string{"network"}})
	require.NoError(t, err)

	found, err := h.FindNoticesByTag("validation")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, validation.ID, found[0].ID)

	assert.NoError(t, h.AssertNoticeCount(2))
	err = h.AssertNoticeCount(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected 3 notice(s), but got 2")
}

func TestHarness_Transport_RoundTripKeepsIdentity(t *testing.T) {
	store, h := newActiveHarness(t)
	n := newNotifier(store, h)

	n.NotifyEvent(context.Background(), faultline.Event{
		Class:       "ValidationError",
		Message:     "Invalid input",
		Tags:        []string{"validation", "form"},
		Fingerprint: "validation-email",
	})

	last, ok, err := h.LastNotice()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ValidationError", last.Class)
	assert.Equal(t, "Invalid input", last.Message)
	assert.Equal(t, []string{"validation", "form"}, last.Tags)
	assert.Equal(t, "validation-email", last.Fingerprint)
}
