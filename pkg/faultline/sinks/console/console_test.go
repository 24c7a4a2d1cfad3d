package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/strongdm/faultline/pkg/faultline"
)

func TestConsoleSink_ImplementsSinkInterface(t *testing.T) {
	var _ faultline.Sink = NewConsoleSink()
}

func testEvent() faultline.Event {
	return faultline.Event{
		ID:          "n-123",
		OccurredAt:  time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC),
		Fingerprint: "abc123def456",
		Class:       "TypeError",
		Message:     "x is undefined",
		Runtime:     faultline.RuntimeClient,
		Tags:        []string{"checkout", "ui"},
		Request:     &faultline.Request{Method: "GET", URL: "https://shop.example/cart"},
		User:        &faultline.User{ID: "u-1"},
		Backtrace:   []faultline.Frame{{File: "app.js", Method: "render", Number: 12}},
	}
}

func TestConsoleSink_Write_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(WithWriter(&buf))

	if err := sink.Write(context.Background(), testEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"[FAULTLINE] 2025-01-26T15:04:05Z CLIENT TypeError: x is undefined",
		"ID: n-123",
		"Fingerprint: abc123def456",
		"Tags: checkout, ui",
		"Request: GET https://shop.example/cart",
		"User: u-1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "Backtrace") {
		t.Error("Backtrace should only be printed in verbose mode")
	}
}

func TestConsoleSink_Verbose_IncludesBacktrace(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(WithWriter(&buf), WithVerbose())

	sink.Write(context.Background(), testEvent())

	if !strings.Contains(buf.String(), "render (app.js:12)") {
		t.Errorf("verbose output should include frames:\n%s", buf.String())
	}
}

func TestConsoleSink_MinimalEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(WithWriter(&buf))

	sink.Write(context.Background(), faultline.Event{Class: "Error", Message: "boom"})

	if lines := strings.Count(buf.String(), "\n"); lines != 1 {
		t.Errorf("minimal notice should print one line, got %d:\n%s", lines, buf.String())
	}
}

func TestConsoleSink_FlushAndClose(t *testing.T) {
	sink := NewConsoleSink()
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}
