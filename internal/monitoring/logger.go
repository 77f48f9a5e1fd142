// Package monitoring provides the console log used by FlightPath: coloured
// level prefixes, caller file and line for everything but INFO, and a
// replaceable diagnostic hook for library code.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/banshee-data/flightpath/internal/check"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level is the severity of a console log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, check.Errorf("unknown log level %q", s)
}

// ANSI colour escapes.
const (
	ansiReset        = "\x1B[0m"
	ansiBrightBlue   = "\x1B[94m"
	ansiBrightGreen  = "\x1B[92m"
	ansiBrightYellow = "\x1B[93m"
	ansiBrightRed    = "\x1B[91m"
)

func colored(color, s string) string {
	return color + s + ansiReset
}

// ColoredPrefix returns the coloured tag for level, e.g. "[D]" in bright blue.
func ColoredPrefix(level Level) (string, error) {
	switch level {
	case LevelDebug:
		return colored(ansiBrightBlue, "[D]"), nil
	case LevelInfo:
		return colored(ansiBrightGreen, "[I]"), nil
	case LevelWarn:
		return colored(ansiBrightYellow, "[W]"), nil
	case LevelError:
		return colored(ansiBrightRed, "[E]"), nil
	}
	return "", check.Errorf("no colored prefix for log level %d implemented", int(level))
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	minLevel           = LevelDebug
)

// SetOutput redirects the console log. A nil writer discards output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// SetLevel drops messages below level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// LogMessage writes message at level. calldepth counts stack frames above
// LogMessage, 1 being its direct caller, and selects the file:line shown for
// non-INFO messages.
func LogMessage(level Level, calldepth int, message string) {
	prefix, err := ColoredPrefix(level)
	if err != nil {
		Logf("monitoring: %v", err)
		return
	}

	var line string
	if level == LevelInfo {
		line = prefix + " " + message + "\n"
	} else {
		file, lineNo := "???", 0
		if _, f, l, ok := runtime.Caller(calldepth); ok {
			file, lineNo = filepath.Base(f), l
		}
		line = fmt.Sprintf("%s %s:%d %s\n", prefix, file, lineNo, message)
	}

	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}
	_, _ = io.WriteString(out, line)
}

// Debug logs a DEBUG message with the caller's file and line.
func Debug(format string, args ...any) {
	LogMessage(LevelDebug, 2, fmt.Sprintf(format, args...))
}

// Info logs an INFO message.
func Info(format string, args ...any) {
	LogMessage(LevelInfo, 2, fmt.Sprintf(format, args...))
}

// Warn logs a WARN message with the caller's file and line.
func Warn(format string, args ...any) {
	LogMessage(LevelWarn, 2, fmt.Sprintf(format, args...))
}

// Error logs an ERROR message with the caller's file and line.
func Error(format string, args ...any) {
	LogMessage(LevelError, 2, fmt.Sprintf(format, args...))
}
