package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

type LoggerLevel string

const (
	// LoggerLevelInfo represents the info log level
	LoggerLevelInfo LoggerLevel = "info"
	// LoggerLevelDebug represents the debug log level
	LoggerLevelDebug LoggerLevel = "debug"
)

// Logger appends timestamped lines to a log view. It may be called from any goroutine.
type Logger struct {
	textView *tview.TextView
	mu       sync.Mutex
	Level    LoggerLevel
}

// NewLogger creates a new logger instance
func NewLogger(textView *tview.TextView, level LoggerLevel) *Logger {
	return &Logger{
		Level:    level,
		textView: textView,
	}
}

func (l *Logger) write(color, label, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(l.textView, "[%s]%s: [%s] %s[white]\n", color, label, timestamp, tview.Escape(fmt.Sprintf(format, args...)))
	l.textView.ScrollToEnd()
}

// Infof adds a log entry to the log view
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write("white", "Info", format, args...)
}

// Debugf adds a debug entry, only at debug level
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.Level != LoggerLevelDebug {
		return
	}
	l.write("blue", "Debug", format, args...)
}

// Errorf adds an error log entry to the log view
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write("red", "Error", format, args...)
}

// Clear clears all log entries
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.textView.Clear()
}
