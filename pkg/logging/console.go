package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ConsoleLogger is the console-shaped logging surface the tracing core
// accepts. Every method takes a variable argument list, mirroring a standard
// console.
type ConsoleLogger interface {
	Debug(args ...any)
	Log(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// Console returns the default ConsoleLogger: Debug and Log write to stdout,
// Warn and Error write to stderr.
func Console() ConsoleLogger {
	return &writerConsole{out: os.Stdout, err: os.Stderr}
}

// ConsoleTo returns a ConsoleLogger writing every level to w. Useful for
// capturing sink output in tests.
func ConsoleTo(w io.Writer) ConsoleLogger {
	return &writerConsole{out: w, err: w}
}

// NopConsole returns a ConsoleLogger that discards everything.
func NopConsole() ConsoleLogger {
	return &writerConsole{out: io.Discard, err: io.Discard}
}

// FromSlog adapts a structured logger to the ConsoleLogger surface. Args are
// joined into the message; Log maps to Info.
func FromSlog(l *slog.Logger) ConsoleLogger {
	return &slogConsole{l: l}
}

type writerConsole struct {
	out io.Writer
	err io.Writer
}

func (c *writerConsole) Debug(args ...any) { fmt.Fprintln(c.out, args...) }
func (c *writerConsole) Log(args ...any)   { fmt.Fprintln(c.out, args...) }
func (c *writerConsole) Warn(args ...any)  { fmt.Fprintln(c.err, args...) }
func (c *writerConsole) Error(args ...any) { fmt.Fprintln(c.err, args...) }

type slogConsole struct {
	l *slog.Logger
}

func (c *slogConsole) Debug(args ...any) { c.l.Debug(join(args)) }
func (c *slogConsole) Log(args ...any)   { c.l.Info(join(args)) }
func (c *slogConsole) Warn(args ...any)  { c.l.Warn(join(args)) }
func (c *slogConsole) Error(args ...any) { c.l.Error(join(args)) }

func join(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}
