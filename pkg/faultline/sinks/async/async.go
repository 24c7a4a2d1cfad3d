// Package async provides a sink wrapper with a bounded queue so that reporting never
// blocks request handling. When the queue is full the oldest notice is dropped.
package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/strongdm/faultline/pkg/faultline"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async sink is closed")

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *zap.Logger
	store        *faultline.Store
}

// WithQueueSize sets the maximum number of queued notices (default: faultline.DefaultMaxQueueSize).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithConfig takes the queue size from a merged configuration.
func WithConfig(cfg faultline.Config) AsyncSinkOption {
	return WithQueueSize(cfg.MaxQueueSize)
}

// WithOnDropped sets a callback invoked when notices are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithStore logs failed background deliveries through the store's logger
// (default: faultline.Default()).
func WithStore(store *faultline.Store) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if store != nil {
			c.store = store
		}
	}
}

// WithLogger sets the logger used for failed background deliveries, overriding the store's.
func WithLogger(logger *zap.Logger) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// asyncSink wraps a sink with a bounded queue.
type asyncSink struct {
	inner        faultline.Sink
	queue        chan faultline.Event
	done         chan struct{}
	closeOnce    sync.Once
	closeMu      sync.RWMutex
	closed       bool
	wg           sync.WaitGroup
	pending      atomic.Int64
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *zap.Logger
	store        *faultline.Store
}

// NewAsyncSink wraps inner with a bounded queue drained by one background goroutine.
// Write returns immediately; delivery errors are logged, never returned.
func NewAsyncSink(inner faultline.Sink, opts ...AsyncSinkOption) faultline.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    faultline.DefaultMaxQueueSize,
		pollInterval: 5 * time.Millisecond,
		store:        faultline.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan faultline.Event, cfg.queueSize),
		done:         make(chan struct{}),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
		logger:       cfg.logger,
		store:        cfg.store,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

// processLoop drains the queue into the inner sink until Close.
func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.queue:
			s.deliver(ev)
		case <-s.done:
			for {
				select {
				case ev := <-s.queue:
					s.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *asyncSink) deliver(ev faultline.Event) {
	defer s.pending.Add(-1)
	if err := s.inner.Write(context.Background(), ev); err != nil {
		s.log().Error("async delivery failed",
			zap.String("notice_id", ev.ID),
			zap.String("error_class", ev.Class),
			zap.Error(err),
		)
	}
}

// log resolves the logger at delivery time, so a store initialized after the sink was
// built is honored.
func (s *asyncSink) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return s.store.Logger()
}

// Write enqueues a notice. If the queue is full, the oldest queued notice is dropped.
func (s *asyncSink) Write(ctx context.Context, ev faultline.Event) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.pending.Add(1)
	select {
	case s.queue <- ev:
		return nil
	default:
		s.dropOldestAndEnqueue(ev)
		return nil
	}
}

// dropOldestAndEnqueue drops the oldest notice and enqueues ev.
func (s *asyncSink) dropOldestAndEnqueue(ev faultline.Event) {
	select {
	case <-s.queue:
		s.dropped()
	default:
		// Queue was emptied by the processor in the meantime.
	}

	select {
	case s.queue <- ev:
	default:
		// Still full, drop the new notice instead.
		s.dropped()
	}
}

func (s *asyncSink) dropped() {
	s.pending.Add(-1)
	if s.onDropped != nil {
		s.onDropped(1)
	}
}

// Flush blocks until every accepted notice has been handed to the inner sink,
// then flushes the inner sink.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "flush with %d notices pending", s.pending.Load())
		case <-ticker.C:
		}
	}
	return s.inner.Flush(ctx)
}

// Close drains the queue, stops the processor and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.wg.Wait()
	})

	return s.inner.Close()
}
