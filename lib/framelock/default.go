package framelock

import (
	"github.com/ValentinKolb/dLog/lib/encoder"
	"sync"
)

// defaultLock is created on first use and lives for the rest of the process
var defaultLock = sync.OnceValue(func() *FrameLock {
	return NewFrameLock("default", encoder.NewCOBSEncoder(false))
})

// Default returns the process wide frame lock (COBS frames, no sink attached).
// Code that owns its own lock should use NewFrameLock instead.
func Default() *FrameLock {
	return defaultLock()
}
