package monitoring

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	// Test setting a custom logger
	called := false
	customLogger := func(format string, v ...interface{}) {
		called = true
	}

	SetLogger(customLogger)
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Test setting nil logger (should create no-op)
	SetLogger(nil)
	// This should not panic
	Logf("test message")

	// Verify the logger is a no-op by checking it doesn't panic
	// and doesn't call anything
	noOpCalled := false
	testLogger := func(format string, v ...interface{}) {
		noOpCalled = true
	}
	SetLogger(testLogger)
	// First verify our test logger works
	Logf("test")
	if !noOpCalled {
		t.Error("Test logger should have been called")
	}

	// Now set to nil and verify it doesn't call our logger
	noOpCalled = false
	SetLogger(nil)
	Logf("test")
	if noOpCalled {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	// Test that Logf is not nil by default
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	// Test that we can call it without panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

// captureOutput redirects the console log for the duration of fn.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)
	defer SetOutput(os.Stdout)
	fn()
	return buf.String()
}

func TestDebugIncludesCallerLocation(t *testing.T) {
	var line int
	out := captureOutput(t, func() {
		_, _, line, _ = runtime.Caller(0)
		Debug("Debug")
	})
	want := fmt.Sprintf("\x1B[94m[D]\x1B[0m logger_test.go:%d Debug\n", line+1)
	if out != want {
		t.Errorf("Debug output = %q, want %q", out, want)
	}
}

func TestInfoOmitsCallerLocation(t *testing.T) {
	out := captureOutput(t, func() { Info("Info") })
	if out != "\x1B[92m[I]\x1B[0m Info\n" {
		t.Errorf("Info output = %q", out)
	}
}

func TestWarnIncludesCallerLocation(t *testing.T) {
	var line int
	out := captureOutput(t, func() {
		_, _, line, _ = runtime.Caller(0)
		Warn("Warn %d", 7)
	})
	want := fmt.Sprintf("\x1B[93m[W]\x1B[0m logger_test.go:%d Warn 7\n", line+1)
	if out != want {
		t.Errorf("Warn output = %q, want %q", out, want)
	}
}

func TestErrorIncludesCallerLocation(t *testing.T) {
	var line int
	out := captureOutput(t, func() {
		_, _, line, _ = runtime.Caller(0)
		Error("Error")
	})
	want := fmt.Sprintf("\x1B[91m[E]\x1B[0m logger_test.go:%d Error\n", line+1)
	if out != want {
		t.Errorf("Error output = %q, want %q", out, want)
	}
}

func TestSetLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	SetLevel(LevelWarn)
	defer SetLevel(LevelDebug)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("messages below the minimum level leaked: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %q", buf.String())
	}
}

func TestColoredPrefixUnknownLevel(t *testing.T) {
	if _, err := ColoredPrefix(Level(42)); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
