package logger

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/fatih/color"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	blue   = color.New(color.FgBlue)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
)

type Logger struct {
	isDebug bool
	out     io.Writer
	mu      sync.Mutex
}

func New(debug bool) *Logger {
	return &Logger{
		isDebug: debug,
		out:     color.Output,
	}
}

// NewWithWriter is used by tests to capture or discard output.
func NewWithWriter(debug bool, w io.Writer) *Logger {
	return &Logger{
		isDebug: debug,
		out:     w,
	}
}

func (l *Logger) Error(err string, reason string) {
	l.block(" Error ", red, "Error", err, reason)
}

func (l *Logger) Warn(warning string, reason string) {
	l.block(" Warn -", yellow, "Warn", warning, reason)
}

func (l *Logger) Info(info string, reason string) {
	l.block("-=-=-=-", green, "Info", info, reason)
}

// Debug is dropped unless the logger was created in debug mode.
func (l *Logger) Debug(msg string, reason string) {
	if !l.isDebug {
		return
	}
	l.block(" Debug ", cyan, "Debug", msg, reason)
}

// Request prints a single line per handled HTTP request.
func (l *Logger) Request(method, path string, status int, latency string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := green
	switch {
	case status >= 500:
		c = red
	case status >= 400:
		c = yellow
	}
	c.Fprintf(l.out, "%s %s %d %s\n", method, path, status, latency)
}

func (l *Logger) block(title string, c *color.Color, label, msg, reason string) {
	_, file, line, _ := runtime.Caller(2)

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.out, "-=-=-=-=--=-=-=%s-=-=-=-=--=-=-=-\n", title)
	c.Fprintf(l.out, "%s: %s\n", label, msg)
	yellow.Fprintf(l.out, "File: %s\n", file)
	blue.Fprintf(l.out, "Line: %d\n", line)
	green.Fprintf(l.out, "Reason: %s\n", reason)
	fmt.Fprintln(l.out, "-=-=-=-=--=-=-=-=-=-=--=-=-=-=-=-=-=-")
}
