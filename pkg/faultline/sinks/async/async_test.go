package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/strongdm/faultline/pkg/faultline"
)

// slowSink is a test sink that can be slow and tracks events.
type slowSink struct {
	mu       sync.Mutex
	events   []faultline.Event
	delay    time.Duration
	writeErr error
	closed   bool
}

func (s *slowSink) Write(ctx context.Context, ev faultline.Event) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *slowSink) Flush(ctx context.Context) error {
	return nil
}

func (s *slowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *slowSink) getEvents() []faultline.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]faultline.Event, len(s.events))
	copy(result, s.events)
	return result
}

func TestAsyncSink_ImplementsSinkInterface(t *testing.T) {
	var _ faultline.Sink = NewAsyncSink(&slowSink{})
}

func TestAsyncSink_Write_ReturnsImmediately(t *testing.T) {
	inner := &slowSink{delay: 100 * time.Millisecond}
	sink := NewAsyncSink(inner, WithQueueSize(100))
	defer sink.Close()

	start := time.Now()
	err := sink.Write(context.Background(), faultline.Event{ID: "n-1"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if elapsed > 10*time.Millisecond {
		t.Errorf("Write took %v, should return in <10ms", elapsed)
	}
}

func TestAsyncSink_DropsOldest_WhenQueueFull(t *testing.T) {
	inner := &slowSink{delay: 50 * time.Millisecond}
	var droppedCount atomic.Int32
	sink := NewAsyncSink(inner,
		WithQueueSize(2),
		WithOnDropped(func(count int) {
			droppedCount.Add(int32(count))
		}),
	)

	for i := 0; i < 5; i++ {
		sink.Write(context.Background(), faultline.Event{ID: "n-" + string(rune('0'+i))})
	}
	sink.Close()

	if droppedCount.Load() == 0 {
		t.Error("Should have dropped some notices when queue is full")
	}

	// The newest notice always survives.
	events := inner.getEvents()
	if len(events) == 0 || events[len(events)-1].ID != "n-4" {
		t.Errorf("last delivered = %+v, want n-4", events)
	}
}

func TestAsyncSink_WithConfig_UsesMaxQueueSize(t *testing.T) {
	inner := &slowSink{delay: 50 * time.Millisecond}
	var droppedCount atomic.Int32
	sink := NewAsyncSink(inner,
		WithConfig(faultline.Config{MaxQueueSize: 1}),
		WithOnDropped(func(count int) { droppedCount.Add(int32(count)) }),
	)

	for i := 0; i < 5; i++ {
		sink.Write(context.Background(), faultline.Event{})
	}
	sink.Close()

	if droppedCount.Load() == 0 {
		t.Error("queue of 1 should overflow")
	}
}

func TestAsyncSink_Flush_DrainsQueue(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner, WithQueueSize(100))
	defer sink.Close()

	for i := 0; i < 10; i++ {
		sink.Write(context.Background(), faultline.Event{ID: "n-" + string(rune('0'+i))})
	}

	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if events := inner.getEvents(); len(events) != 10 {
		t.Errorf("Expected 10 notices after flush, got %d", len(events))
	}
}

func TestAsyncSink_Flush_RespectsDeadline(t *testing.T) {
	inner := &slowSink{delay: 200 * time.Millisecond}
	sink := NewAsyncSink(inner)
	defer sink.Close()

	sink.Write(context.Background(), faultline.Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush error = %v, want deadline exceeded", err)
	}
}

func TestAsyncSink_Close_DrainsAndClosesInner(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner, WithQueueSize(100))

	for i := 0; i < 5; i++ {
		sink.Write(context.Background(), faultline.Event{})
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if events := inner.getEvents(); len(events) != 5 {
		t.Errorf("Expected 5 notices after close, got %d", len(events))
	}
	if !inner.closed {
		t.Error("inner sink should be closed")
	}
}

func TestAsyncSink_WriteAfterClose_ReturnsError(t *testing.T) {
	sink := NewAsyncSink(&slowSink{})
	sink.Close()

	if err := sink.Write(context.Background(), faultline.Event{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
}

func TestAsyncSink_DeliveryErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := NewAsyncSink(&slowSink{writeErr: errors.New("down")}, WithLogger(zap.New(core)))

	sink.Write(context.Background(), faultline.Event{ID: "n-1", Class: "Error"})
	sink.Close()

	entries := logs.FilterMessage("async delivery failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["notice_id"] != "n-1" {
		t.Errorf("notice_id = %v", entries[0].ContextMap()["notice_id"])
	}
}

func TestAsyncSink_DeliveryErrorIsLoggedThroughStore(t *testing.T) {
	store := faultline.NewStore()
	sink := NewAsyncSink(&slowSink{writeErr: errors.New("down")}, WithStore(store))

	// The store is initialized after the sink is built.
	core, logs := observer.New(zapcore.ErrorLevel)
	if _, err := store.Init(faultline.Options{APIKey: "k", Logger: zap.New(core)}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sink.Write(context.Background(), faultline.Event{ID: "n-1", Class: "Error"})
	sink.Close()

	if n := logs.FilterMessage("async delivery failed").Len(); n != 1 {
		t.Errorf("expected 1 log entry, got %d", n)
	}
}
