package record

import (
	"fmt"
	"github.com/ValentinKolb/dLog/lib/framelock"
	"io"
	"sync/atomic"
)

// Logger writes timestamped records through a frame lock, one frame per record
type Logger struct {
	lock     framelock.IFrameLock
	clock    ITimestampProvider
	minLevel atomic.Uint32
}

// NewLogger creates a logger on top of lock. A nil clock uses UnixMillis.
// Records below LevelInfo are dropped until SetLevel is called.
func NewLogger(lock framelock.IFrameLock, clock ITimestampProvider) *Logger {
	if clock == nil {
		clock = UnixMillis{}
	}
	l := &Logger{
		lock:  lock,
		clock: clock,
	}
	l.minLevel.Store(uint32(LevelInfo))
	return l
}

// SetLevel sets the minimum level of written records
func (l *Logger) SetLevel(level Level) {
	l.minLevel.Store(uint32(level))
}

// Enabled reports whether records of the given level are written
func (l *Logger) Enabled(level Level) bool {
	return uint32(level) >= l.minLevel.Load()
}

// Log writes one record. The frame is always released, the first error of
// the frame is returned.
func (l *Logger) Log(level Level, msg string) error {
	return l.log(level, []byte(msg))
}

func (l *Logger) Debugf(format string, args ...interface{}) error {
	return l.logf(LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) error {
	return l.logf(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) error {
	return l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) error {
	return l.logf(LevelError, format, args...)
}

// Writer returns an io.Writer that writes every Write call as one record of
// the given level, e.g. to redirect a standard library *log.Logger.
func (l *Logger) Writer(level Level) io.Writer {
	return &levelWriter{l: l, level: level}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (l *Logger) logf(level Level, format string, args ...interface{}) error {
	if !l.Enabled(level) {
		return nil
	}
	return l.log(level, []byte(fmt.Sprintf(format, args...)))
}

func (l *Logger) log(level Level, msg []byte) error {
	if !l.Enabled(level) {
		return nil
	}

	// timestamp is taken before the lock so waiting does not skew it
	var header [headerSize]byte
	n := putHeader(&header, level, l.clock.Now())

	tok := l.lock.Acquire()
	err := l.lock.Write(tok, header[:n])
	if err == nil && len(msg) > 0 {
		err = l.lock.Write(tok, msg)
	}
	if rerr := l.lock.Release(tok); err == nil {
		err = rerr
	}
	return err
}

type levelWriter struct {
	l     *Logger
	level Level
}

func (w *levelWriter) Write(p []byte) (int, error) {
	// log.Logger always terminates its output with a newline
	msg := p
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}
	if err := w.l.log(w.level, msg); err != nil {
		return 0, err
	}
	return len(p), nil
}
