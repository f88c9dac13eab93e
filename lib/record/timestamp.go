package record

import (
	"time"
)

// ITimestampProvider produces the timestamp stored in every record
type ITimestampProvider interface {
	// Now returns the current time in milliseconds since a fixed epoch
	Now() uint64
}

// UnixMillis returns milliseconds since the Unix epoch
type UnixMillis struct{}

func (UnixMillis) Now() uint64 {
	return uint64(time.Now().UnixMilli())
}

// TimestampFunc adapts a function to ITimestampProvider
type TimestampFunc func() uint64

func (f TimestampFunc) Now() uint64 {
	return f()
}
