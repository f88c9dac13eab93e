package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Level is the severity of a record
type Level uint8

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the name of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name (debug, info, warn, error) to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("invalid level: %s. must be one of debug, info, warn, error", s)
	}
}

// headerSize is the maximum size of the record header (level + uvarint timestamp)
const headerSize = 1 + binary.MaxVarintLen64

// ErrInvalidRecord is returned by Decode for payloads that are not records
var ErrInvalidRecord = errors.New("invalid record")

// Record is one decoded log record. The payload layout is
//   - 1 byte: level
//   - uvarint: timestamp (milliseconds)
//   - rest: message
type Record struct {
	Level     Level
	Timestamp uint64
	Message   string
}

// Time returns the timestamp as time.Time, assuming a Unix epoch
func (r Record) Time() time.Time {
	return time.UnixMilli(int64(r.Timestamp))
}

// String formats the record as a single line
func (r Record) String() string {
	return fmt.Sprintf("%s %-5s %s", r.Time().UTC().Format("2006-01-02T15:04:05.000Z"), r.Level, r.Message)
}

// putHeader writes the record header to buf and returns its length
func putHeader(buf *[headerSize]byte, level Level, ts uint64) int {
	buf[0] = byte(level)
	return 1 + binary.PutUvarint(buf[1:], ts)
}

// Decode parses a frame payload into a Record
func Decode(payload []byte) (Record, error) {
	if len(payload) < 2 {
		return Record{}, ErrInvalidRecord
	}

	level := Level(payload[0])
	if level < LevelDebug || level > LevelError {
		return Record{}, fmt.Errorf("%w: unknown level %d", ErrInvalidRecord, payload[0])
	}

	ts, n := binary.Uvarint(payload[1:])
	if n <= 0 {
		return Record{}, fmt.Errorf("%w: bad timestamp", ErrInvalidRecord)
	}

	return Record{
		Level:     level,
		Timestamp: ts,
		Message:   string(payload[1+n:]),
	}, nil
}
