// notifier.go assembles notices from errors and drives them through the pipeline:
// ignore rules, redaction, BeforeSend transforms, then the sink.

package faultline

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotifierOption configures a Notifier.
type NotifierOption func(*notifierConfig)

type notifierConfig struct {
	sink          Sink
	runtime       Runtime
	captureSystem bool
	startTime     time.Time
}

// WithSink sets the destination for notices.
func WithSink(sink Sink) NotifierOption {
	return func(c *notifierConfig) {
		c.sink = sink
	}
}

// WithRuntime sets the runtime reported by this notifier (default: RuntimeServer).
func WithRuntime(r Runtime) NotifierOption {
	return func(c *notifierConfig) {
		c.runtime = r
	}
}

// WithSystemState attaches host metrics to every notice; start is the process start time.
func WithSystemState(start time.Time) NotifierOption {
	return func(c *notifierConfig) {
		c.captureSystem = true
		c.startTime = start
	}
}

// NoticeOption adjusts a single notice before it enters the pipeline.
type NoticeOption func(*Event)

// NoticeContext merges data into the notice context.
func NoticeContext(data map[string]any) NoticeOption {
	return func(ev *Event) {
		if ev.Context == nil {
			ev.Context = make(map[string]any, len(data))
		}
		for k, v := range data {
			ev.Context[k] = v
		}
	}
}

// NoticeTags appends tags to the notice.
func NoticeTags(tags ...string) NoticeOption {
	return func(ev *Event) {
		ev.Tags = append(ev.Tags, tags...)
	}
}

// NoticeUser sets the affected user.
func NoticeUser(user User) NoticeOption {
	return func(ev *Event) {
		ev.User = &user
	}
}

// NoticeRequest sets the request descriptor.
func NoticeRequest(req *Request) NoticeOption {
	return func(ev *Event) {
		ev.Request = req
	}
}

// NoticeFingerprint overrides grouping for the notice.
func NoticeFingerprint(fp string) NoticeOption {
	return func(ev *Event) {
		ev.Fingerprint = fp
	}
}

// Notifier reports errors. Reporting never fails the caller: every problem on the way
// to the sink is logged and the notice is dropped.
type Notifier struct {
	store    *Store
	sink     Sink
	runtime  Runtime
	matcher  *Matcher
	redactor *Redactor
	chain    *Chain

	captureSystem bool
	startTime     time.Time
}

// NewNotifier creates a Notifier reading its configuration from store.
func NewNotifier(store *Store, opts ...NotifierOption) *Notifier {
	cfg := &notifierConfig{runtime: RuntimeServer}
	for _, opt := range opts {
		opt(cfg)
	}

	// Default to a noop sink if none provided
	if cfg.sink == nil {
		cfg.sink = noopSinkInternal{}
	}

	return &Notifier{
		store:         store,
		sink:          cfg.sink,
		runtime:       cfg.runtime,
		matcher:       NewMatcher(store),
		redactor:      NewRedactor(store),
		chain:         NewChain(store),
		captureSystem: cfg.captureSystem,
		startTime:     cfg.startTime,
	}
}

// Store returns the configuration store the notifier reads from.
func (n *Notifier) Store() *Store {
	return n.store
}

// Runtime returns the runtime this notifier reports for.
func (n *Notifier) Runtime() Runtime {
	return n.runtime
}

// Notify reports err and returns the notice ID, or "" when the notice was ignored,
// dropped or could not be delivered. Ambient data set with WithUser, WithContext,
// WithTags and WithRequest on ctx is attached.
func (n *Notifier) Notify(ctx context.Context, err error, opts ...NoticeOption) string {
	if err == nil {
		return ""
	}

	ev := &Event{
		Class:     ExceptionName(err),
		Message:   err.Error(),
		Backtrace: exceptionFrames(err),
	}
	if len(ev.Backtrace) == 0 {
		ev.Backtrace = CallerStack(1)
	}
	n.applyAmbient(ctx, ev)
	for _, opt := range opts {
		opt(ev)
	}
	return n.deliver(ctx, ev, err)
}

// NotifyEvent reports a pre-built event. The event passes the same ignore rules,
// redaction and transforms as Notify; ev itself is not modified.
func (n *Notifier) NotifyEvent(ctx context.Context, ev Event) string {
	return n.deliver(ctx, ev.Clone(), NewException(ev.Class, ev.Message))
}

func (n *Notifier) applyAmbient(ctx context.Context, ev *Event) {
	if data, ok := ContextFromContext(ctx); ok {
		ev.Context = data
	}
	if user, ok := UserFromContext(ctx); ok {
		ev.User = &user
	}
	if tags, ok := TagsFromContext(ctx); ok {
		ev.Tags = tags
	}
	if req, ok := RequestFromContext(ctx); ok {
		ev.Request = req
	}
}

func (n *Notifier) deliver(ctx context.Context, ev *Event, err error) string {
	cfg, cfgErr := n.store.Config()
	if cfgErr != nil {
		// Nothing to log through: the logger is part of the configuration.
		return ""
	}
	logger := n.store.Logger()

	runtime := ev.Runtime
	if runtime == "" {
		runtime = n.runtime
	}
	if !cfg.RuntimeEnabled(runtime) {
		logger.Debug("capture disabled for runtime", zap.String("runtime", string(runtime)))
		return ""
	}

	ignored, matchErr := n.matcher.ShouldIgnoreException(err)
	if matchErr != nil {
		logger.Error("failed to evaluate ignored exceptions", zap.Error(matchErr))
		return ""
	}
	if ignored {
		logger.Debug("exception ignored", zap.String("error_class", ev.Class))
		return ""
	}

	if ev.Request != nil {
		path := RequestPath(ev.Request.URL)
		ignored, matchErr = n.matcher.ShouldIgnoreRoute(path)
		if matchErr != nil {
			logger.Error("failed to evaluate ignored routes", zap.Error(matchErr))
			return ""
		}
		if ignored {
			logger.Debug("route ignored", zap.String("path", path))
			return ""
		}
	}

	n.complete(ev, cfg)

	if redactErr := n.redact(ev, cfg); redactErr != nil {
		logger.Error("failed to redact notice", zap.Error(redactErr))
		return ""
	}

	out, chainErr := n.chain.Apply(ev)
	if chainErr != nil {
		logger.Error("failed to apply beforeSend", zap.Error(chainErr))
		return ""
	}
	if out == nil {
		logger.Debug("notice dropped by beforeSend", zap.String("error_class", ev.Class))
		return ""
	}

	if writeErr := n.sink.Write(ctx, *out); writeErr != nil {
		logger.Error("failed to deliver notice",
			zap.String("notice_id", out.ID),
			zap.String("error_class", out.Class),
			zap.Error(writeErr),
		)
		return ""
	}

	logger.Debug("notice delivered", zap.String("notice_id", out.ID), zap.String("error_class", out.Class))
	return out.ID
}

// complete fills the identity fields the caller did not set.
func (n *Notifier) complete(ev *Event, cfg Config) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if ev.Runtime == "" {
		ev.Runtime = n.runtime
	}
	if ev.Environment == "" {
		ev.Environment = cfg.Environment
	}
	if ev.Backtrace == nil {
		ev.Backtrace = []Frame{}
	}
	ev.Backtrace = trimProjectRoot(ev.Backtrace, cfg.ProjectRoot)
	if n.captureSystem && ev.System == nil {
		ev.System = CaptureSystemState(n.startTime)
	}
	if cfg.AutoFingerprint && ev.Fingerprint == "" {
		ev.Fingerprint = Fingerprint(ev)
	}
}

func (n *Notifier) redact(ev *Event, cfg Config) error {
	var err error
	if ev.Context, err = n.redactor.SanitizeMap(ev.Context); err != nil {
		return err
	}

	if ev.Request != nil {
		req := *ev.Request
		req.Headers = FilterHeaderMap(req.Headers, cfg.SensitiveHeaders)
		if req.Params, err = n.redactor.SanitizeMap(req.Params); err != nil {
			return err
		}
		ev.Request = &req
	}

	if ev.User != nil {
		user := *ev.User
		if user.Extra, err = n.redactor.SanitizeMap(user.Extra); err != nil {
			return err
		}
		ev.User = &user
	}
	return nil
}

// Flush waits for the sink to deliver buffered notices, bounded by ShutdownTimeout.
func (n *Notifier) Flush(ctx context.Context) error {
	if cfg, err := n.store.Config(); err == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
		defer cancel()
	}
	return n.sink.Flush(ctx)
}

// Close flushes and then closes the sink.
func (n *Notifier) Close() error {
	if err := n.Flush(context.Background()); err != nil {
		n.store.Logger().Warn("flush before close failed", zap.Error(err))
	}
	return n.sink.Close()
}

// RequestPath returns the path of a request URL. Bare paths, and values that do not
// parse or carry no path, are returned unchanged.
func RequestPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}
