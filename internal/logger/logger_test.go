package logger

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
)

type stage string

func (s stage) String() string { return string(s) }

// capture routes log output to a buffer for the duration of the test.
func capture(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestVerboseLines(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("embedding batch %d-%d", 0, 32) }, "[DEBUG] embedding batch 0-32\n"},
		{"info", func() { Info("saved %s", "https://example.com") }, "[INFO] saved https://example.com\n"},
		{"warn", func() { Warn("rollback of %d chunks", 2) }, "[WARN] rollback of 2 chunks\n"},
		{"section with subject", func() { Section("Ingest", "https://example.com/a") }, "\n=== Ingest: https://example.com/a ===\n"},
		{"section without subject", func() { Section("Index rebuild", "") }, "\n=== Index rebuild ===\n"},
		{"stage", func() { Stage(stage("chunked"), "https://example.com/a") }, "[STAGE] chunked  https://example.com/a\n"},
		{"degraded", func() { Degraded("rerank", errors.New("503")) }, "[DEGRADED] rerank: 503\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuietWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("Query", "hidden")
	Stage(stage("indexed"), "https://example.com")
	Degraded("summary", errors.New("hidden"))

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestError_IgnoresVerbose(t *testing.T) {
	buf := capture(t, false)

	Error("malformed response from %s", "cohere")

	if got := buf.String(); got != "[ERROR] malformed response from cohere\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Stage(stage("embedded"), "https://example.com")
			Debug("concurrent %d", i)
			IsVerbose()
		}()
	}
	wg.Wait()
}
