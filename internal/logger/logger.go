// Package logger provides process-wide logging for sercha-docs.
// Warnings and errors are always written; debug and info messages only
// when verbose mode is enabled via the --verbose flag. Output is plain
// "[LEVEL] message" lines by default, or JSON when SetJSON(true) is called.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.RWMutex
	verbose bool
	jsonOut bool
	output  io.Writer = os.Stderr
	base              = newLogrus(os.Stderr)
)

// Fields is a set of structured key-value pairs attached to a message.
type Fields = logrus.Fields

func newLogrus(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(plainFormatter{})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.WarnLevel)
	}
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
// Debug and info enable verbose mode.
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	verbose = lvl >= logrus.InfoLevel
	base.SetLevel(lvl)
	return nil
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between plain-text and JSON output.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonOut = enabled
	if enabled {
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		base.SetFormatter(plainFormatter{})
	}
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base.SetOutput(w)
}

// Entry is a logger bound to structured fields. Its methods take
// printf-style arguments like the package-level functions.
type Entry struct {
	e *logrus.Entry
}

// With returns an entry carrying structured fields.
func With(fields Fields) *Entry {
	return &Entry{e: base.WithFields(fields)}
}

// With returns a copy of the entry with additional fields.
func (l *Entry) With(fields Fields) *Entry {
	return &Entry{e: l.e.WithFields(fields)}
}

func (l *Entry) Debug(format string, args ...any) { l.e.Debugf(format, args...) }

func (l *Entry) Info(format string, args ...any) { l.e.Infof(format, args...) }

func (l *Entry) Warn(format string, args ...any) { l.e.Warnf(format, args...) }

func (l *Entry) Error(format string, args ...any) { l.e.Errorf(format, args...) }

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	base.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	if jsonOut {
		base.WithField("section", name).Info(name)
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	base.Infof(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	base.Warnf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	base.Errorf(format, args...)
}

// plainFormatter renders "[LEVEL] message key=value" lines.
type plainFormatter struct{}

var levelNames = map[logrus.Level]string{
	logrus.TraceLevel: "TRACE",
	logrus.DebugLevel: "DEBUG",
	logrus.InfoLevel:  "INFO",
	logrus.WarnLevel:  "WARN",
	logrus.ErrorLevel: "ERROR",
	logrus.FatalLevel: "FATAL",
	logrus.PanicLevel: "PANIC",
}

func (plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("[")
	b.WriteString(levelNames[e.Level])
	b.WriteString("] ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
