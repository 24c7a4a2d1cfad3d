// store.go holds the live configuration and logger behind an explicit init/reset lifecycle.

package faultline

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store owns at most one live Config. Components take a *Store at construction and
// read through it, so tests can run isolated stores side by side.
type Store struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *zap.Logger
}

// NewStore creates an uninitialized store.
func NewStore() *Store {
	return &Store{}
}

// Init validates opts, merges defaults and makes the result the live configuration.
// Calling Init on an initialized store replaces the previous configuration.
func (s *Store) Init(opts Options) (Config, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return Config{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = newDefaultLogger(cfg.Debug)
	}

	s.mu.Lock()
	s.cfg = &cfg
	s.logger = logger
	s.mu.Unlock()

	logger.Debug("faultline initialized", cfg.fields()...)
	return cfg, nil
}

// Config returns the live configuration or ErrNotInitialized.
func (s *Store) Config() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return Config{}, ErrNotInitialized
	}
	return *s.cfg, nil
}

// IsInitialized reports whether a configuration is live.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg != nil
}

// Reset clears the configuration and logger. Safe to call repeatedly.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	s.cfg = nil
	s.logger = nil
}

// Logger returns the active logger, or a no-op logger when uninitialized.
func (s *Store) Logger() *zap.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

// Log writes msg at level through the active logger.
func (s *Store) Log(level zapcore.Level, msg string, fields ...zap.Field) {
	if ce := s.Logger().Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

var defaultStore = NewStore()

// Default returns the process-wide store used by the package-level functions.
func Default() *Store {
	return defaultStore
}

// Init initializes the default store.
func Init(opts Options) (Config, error) {
	return defaultStore.Init(opts)
}

// GetConfig returns the default store's live configuration.
func GetConfig() (Config, error) {
	return defaultStore.Config()
}

// IsInitialized reports whether the default store is initialized.
func IsInitialized() bool {
	return defaultStore.IsInitialized()
}

// Reset clears the default store.
func Reset() {
	defaultStore.Reset()
}

// Log writes through the default store's logger.
func Log(level zapcore.Level, msg string, fields ...zap.Field) {
	defaultStore.Log(level, msg, fields...)
}
