// Package common provides the configuration structures and logging utilities
// shared by the dLog packages and the command line interface.
package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
)

// LoggerNames lists every named logger used by dLog packages
var LoggerNames = []string{
	"framelock",
	"sink",
	"receiver",
	"cli",
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dLogLogger implements the ILogger interface with custom formatting
type dLogLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *dLogLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *dLogLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *dLogLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *dLogLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *dLogLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *dLogLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *dLogLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-10s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a logger.Factory writing to out.
// Diagnostics go to stderr by default so that a frame stream on stdout stays clean.
func NewLoggerFactory(out io.Writer) logger.Factory {
	return func(pkgName string) logger.ILogger {
		return &dLogLogger{
			name:   pkgName,
			level:  logger.INFO,
			logger: log.New(out, "", log.Ldate|log.Ltime),
		}
	}
}

// CreateLogger is the default factory, writing to stderr
func CreateLogger(pkgName string) logger.ILogger {
	return NewLoggerFactory(os.Stderr)(pkgName)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all dLog loggers.
// Never back these loggers with a FrameLock: a framelock log call from inside
// a frame would try to acquire the same lock again.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
