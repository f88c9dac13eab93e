package framelock

import (
	"github.com/ValentinKolb/dLog/lib/sink"
)

// IFrameLock serializes frames from concurrent producers into one sink.
// A producer brackets every frame with Acquire and Release and writes the
// payload in between. Only one frame is in progress at any time.
type IFrameLock interface {
	// AttachSink waits until no frame is in progress, opens a new sink and
	// replaces the current one. If open fails, the current sink (or the
	// absence of one) is kept and an ErrCSinkUnavailable error is returned.
	AttachSink(open sink.Opener) error

	// DetachSink waits until no frame is in progress, flushes and closes the
	// current sink and returns to discarding all bytes.
	DetachSink() error

	// Acquire blocks until no other frame is in progress and starts a new frame.
	// The returned token must be passed to Write and Release. There is no
	// timeout, callers that need one have to wrap Acquire themselves.
	//
	// Acquire must not be called while the calling goroutine holds a token,
	// or from within a sink or encoder callback: it would wait for itself.
	Acquire() FrameToken

	// Write appends payload bytes to the frame identified by tok.
	// An ErrCIoFailure error is returned if writing this or an earlier part of
	// the frame to the sink failed.
	Write(tok FrameToken, p []byte) error

	// Release ends the frame identified by tok and wakes up all waiting producers.
	// The frame is always ended, even if the sink failed. The I/O error of the
	// frame, if any, is returned.
	Release(tok FrameToken) error

	// Flush flushes the attached sink. It does not wait for the current frame
	// to end and does not change the frame state.
	Flush() error
}

// FrameToken identifies one acquired frame. The zero value is never valid.
type FrameToken struct {
	seq uint64
}

// Seq returns the sequence number of the frame (starting at 1)
func (t FrameToken) Seq() uint64 {
	return t.seq
}
