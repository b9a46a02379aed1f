// Package yashlog renders the fixed daemon log-line format of §6:
//
//	<syslog-timestamp> yashd[<client-ip>:<port>]: <LEVEL>: <message>
//
// with the acceptor itself logging under the tag "yashd[daemon]:" instead of
// a client address. This is the log written to LogFile, distinct from the
// free-form diagnostic logger in internal/log that the package-level
// loggers use on stdout.
package yashlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// timeLayout renders Go's reference time as "%b %e %H:%M:%S" would in C:
// a space-padded day-of-month, e.g. "Jan  2 15:04:05".
const timeLayout = "Jan _2 15:04:05"

// Logger writes §6-formatted lines for one tag (a client address, or
// "daemon") to an underlying writer, serializing concurrent writers.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	tag string
}

// New creates a Logger that tags every line with tag (e.g. a client's
// "host:port", or "daemon").
func New(w io.Writer, tag string) *Logger {
	return &Logger{w: w, tag: tag}
}

// Writer returns the underlying writer, so a caller can retag it for a
// related Logger (e.g. the acceptor handing its log file to a per-client
// Logger tagged with that client's address).
func (l *Logger) Writer() io.Writer { return l.w }

// Infof writes an INFO-level line.
func (l *Logger) Infof(format string, args ...interface{}) { l.write("INFO", format, args...) }

// Warnf writes a WARN-level line.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write("WARN", format, args...) }

// Errorf writes an ERROR-level line.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write("ERROR", format, args...) }

func (l *Logger) write(level, format string, args ...interface{}) {
	line := fmt.Sprintf(
		"%s yashd[%s]: %s: %s\n",
		time.Now().UTC().Format(timeLayout),
		l.tag,
		level,
		fmt.Sprintf(format, args...),
	)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line)
}
