// config.go defines the notifier options, their defaults, and the merged Config.

package faultline

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Defaults applied by Init to options left unset.
const (
	DefaultEndpoint        = "https://api.faultline.dev"
	DefaultEnvironment     = "production"
	DefaultRequestTimeout  = 30000 * time.Millisecond
	DefaultConnectTimeout  = 10000 * time.Millisecond
	DefaultShutdownTimeout = 5000 * time.Millisecond
	DefaultMaxQueueSize    = 1000
)

// Options is the caller-supplied configuration. Only APIKey is required.
// Pointer fields distinguish "not set" from an explicit false.
type Options struct {
	// APIKey is the ingestion credential. Required.
	APIKey string

	// Endpoint is the base URL of the ingestion service (default: DefaultEndpoint).
	Endpoint string

	// Environment is reported with every notice (default: "production").
	Environment string

	// AppVersion is the application release reported with every notice.
	AppVersion string

	// ProjectRoot is stripped from backtrace file paths when set.
	ProjectRoot string

	// Debug enables debug-level diagnostics on the default logger.
	Debug bool

	// CaptureClient, CaptureServer and CaptureEdge toggle reporting per runtime (default: true).
	CaptureClient *bool
	CaptureServer *bool
	CaptureEdge   *bool

	// UseDefaultFilterKeys includes the built-in sensitive key list (default: true).
	UseDefaultFilterKeys *bool

	// FilterKeys are additional sensitive key names redacted from notice data.
	FilterKeys []string

	// SensitiveHeaders are additional request header names redacted from notices.
	SensitiveHeaders []string

	// IgnoredRoutes suppresses reporting for matching request paths.
	IgnoredRoutes []Rule

	// IgnoredExceptions suppresses reporting for matching errors.
	IgnoredExceptions []Rule

	// BeforeSend transforms run in order before delivery. A nil result drops the notice.
	BeforeSend []BeforeSendFunc

	// AutoFingerprint computes a grouping fingerprint when a notice has none.
	AutoFingerprint bool

	// Timeouts and queue sizes are passed through to transports and sinks.
	RequestTimeout  time.Duration
	ConnectTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxQueueSize    int

	// Logger replaces the default JSON logger on stderr.
	Logger *zap.Logger
}

// Config is the fully merged, validated configuration.
type Config struct {
	APIKey      string
	Endpoint    string
	Environment string
	AppVersion  string
	ProjectRoot string
	Debug       bool

	CaptureClient bool
	CaptureServer bool
	CaptureEdge   bool

	UseDefaultFilterKeys bool
	FilterKeys           []string
	SensitiveHeaders     []string

	IgnoredRoutes     []Rule
	IgnoredExceptions []Rule
	BeforeSend        []BeforeSendFunc
	AutoFingerprint   bool

	RequestTimeout  time.Duration
	ConnectTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxQueueSize    int
}

// Bool returns a pointer to v, for the optional boolean fields of Options.
func Bool(v bool) *bool {
	return &v
}

// RuntimeEnabled reports whether notices originating in r should be captured.
func (c Config) RuntimeEnabled(r Runtime) bool {
	switch r {
	case RuntimeClient:
		return c.CaptureClient
	case RuntimeEdge:
		return c.CaptureEdge
	default:
		return c.CaptureServer
	}
}

// buildConfig validates opts and merges them over the defaults.
func buildConfig(opts Options) (Config, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return Config{}, errors.Wrap(ErrConfiguration, "APIKey is required")
	}
	if opts.MaxQueueSize < 0 {
		return Config{}, errors.Wrapf(ErrConfiguration, "MaxQueueSize must not be negative, got %d", opts.MaxQueueSize)
	}

	if err := validateRules("IgnoredRoutes", opts.IgnoredRoutes); err != nil {
		return Config{}, err
	}
	if err := validateRules("IgnoredExceptions", opts.IgnoredExceptions); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIKey:               opts.APIKey,
		Endpoint:             orDefault(opts.Endpoint, DefaultEndpoint),
		Environment:          orDefault(opts.Environment, DefaultEnvironment),
		AppVersion:           opts.AppVersion,
		ProjectRoot:          opts.ProjectRoot,
		Debug:                opts.Debug,
		CaptureClient:        boolOrDefault(opts.CaptureClient, true),
		CaptureServer:        boolOrDefault(opts.CaptureServer, true),
		CaptureEdge:          boolOrDefault(opts.CaptureEdge, true),
		UseDefaultFilterKeys: boolOrDefault(opts.UseDefaultFilterKeys, true),
		FilterKeys:           append([]string(nil), opts.FilterKeys...),
		SensitiveHeaders:     append([]string(nil), opts.SensitiveHeaders...),
		IgnoredRoutes:        append([]Rule(nil), opts.IgnoredRoutes...),
		IgnoredExceptions:    append([]Rule(nil), opts.IgnoredExceptions...),
		AutoFingerprint:      opts.AutoFingerprint,
		RequestTimeout:       durationOrDefault(opts.RequestTimeout, DefaultRequestTimeout),
		ConnectTimeout:       durationOrDefault(opts.ConnectTimeout, DefaultConnectTimeout),
		ShutdownTimeout:      durationOrDefault(opts.ShutdownTimeout, DefaultShutdownTimeout),
		MaxQueueSize:         opts.MaxQueueSize,
	}
	if cfg.MaxQueueSize == 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}

	// Nil transforms are dropped here so the chain never has to check.
	for _, fn := range opts.BeforeSend {
		if fn != nil {
			cfg.BeforeSend = append(cfg.BeforeSend, fn)
		}
	}

	return cfg, nil
}

func validateRules(field string, rules []Rule) error {
	for i, r := range rules {
		if r.Kind == RulePattern && r.Pattern == nil {
			return errors.Wrapf(ErrConfiguration, "%s[%d]: pattern rule has no compiled pattern", field, i)
		}
	}
	return nil
}

// fields renders the config for the init debug line. The API key is never logged in full.
func (c Config) fields() []zap.Field {
	return []zap.Field{
		zap.String("api_key", maskAPIKey(c.APIKey)),
		zap.String("endpoint", c.Endpoint),
		zap.String("environment", c.Environment),
		zap.String("app_version", c.AppVersion),
		zap.Bool("debug", c.Debug),
		zap.Bool("capture_client", c.CaptureClient),
		zap.Bool("capture_server", c.CaptureServer),
		zap.Bool("capture_edge", c.CaptureEdge),
		zap.Bool("use_default_filter_keys", c.UseDefaultFilterKeys),
		zap.Strings("filter_keys", c.FilterKeys),
		zap.Int("ignored_routes", len(c.IgnoredRoutes)),
		zap.Int("ignored_exceptions", len(c.IgnoredExceptions)),
		zap.Int("before_send", len(c.BeforeSend)),
		zap.Duration("request_timeout", c.RequestTimeout),
		zap.Duration("connect_timeout", c.ConnectTimeout),
		zap.Duration("shutdown_timeout", c.ShutdownTimeout),
		zap.Int("max_queue_size", c.MaxQueueSize),
	}
}

func maskAPIKey(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return key + "..."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func durationOrDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
