package sink

import (
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("sink")

// ISink is the byte consuming destination of encoded frames.
// A sink is owned by exactly one framelock.FrameLock once attached and is
// only called while the lock's mutex is held, implementations need no
// synchronization of their own for Write and Flush.
type ISink interface {
	// Write writes all of p or returns an error. p must not be retained.
	Write(p []byte) error
	// Flush pushes buffered bytes to the underlying resource
	Flush() error
}

// Opener creates a sink. It is called by FrameLock.AttachSink once no frame
// is in progress. An error means the target could not be created or opened.
type Opener func() (ISink, error)

// Static returns an Opener for an already created sink
func Static(s ISink) Opener {
	return func() (ISink, error) {
		return s, nil
	}
}
