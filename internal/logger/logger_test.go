package logger

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestVerboseLevels(t *testing.T) {
	defer reset()

	tests := []struct {
		name     string
		log      func()
		expected string
	}{
		{"debug", func() { Debug("cache miss for %q", "nausea") }, "[DEBUG] cache miss for \"nausea\"\n"},
		{"info", func() { Info("loaded %d cases", 42) }, "[INFO] loaded 42 cases\n"},
		{"section", func() { Section("Similar Cases") }, "\n=== Similar Cases ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name+" when verbose", func(t *testing.T) {
			var buf bytes.Buffer
			SetOutput(&buf)
			SetVerbose(true)
			tt.log()
			if buf.String() != tt.expected {
				t.Errorf("unexpected output: %q", buf.String())
			}
		})

		t.Run(tt.name+" when quiet", func(t *testing.T) {
			var buf bytes.Buffer
			SetOutput(&buf)
			SetVerbose(false)
			tt.log()
			if buf.Len() != 0 {
				t.Errorf("expected no output, got %q", buf.String())
			}
		})
	}
}

func TestWarn_PrintedWhenQuiet(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("retrying after %s", "1s")

	if buf.String() != "[WARN] retrying after 1s\n" {
		t.Errorf("unexpected warn output: %q", buf.String())
	}
}

func TestEnabled(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if Enabled(LevelInfo) || !Enabled(LevelWarn) || !Enabled(LevelError) {
		t.Error("quiet mode should print warnings and errors only")
	}

	SetVerbose(true)
	if !Enabled(LevelDebug) {
		t.Error("verbose mode should print debug messages")
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("dataset %s: %v", "faers.json", "unknown unit")

	if !strings.HasPrefix(buf.String(), "[ERROR] dataset faers.json") {
		t.Errorf("unexpected error output: %q", buf.String())
	}
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	SetOutput(io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d", i)
			IsVerbose()
			SetVerbose(false)
		}()
	}
	wg.Wait()
}
