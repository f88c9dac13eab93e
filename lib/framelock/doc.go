// Package framelock serializes length framed, binary encoded log records from
// many goroutines into a single shared byte sink without interleaving the
// bytes of two frames.
//
// Core Functionality:
//   - Exactly one frame is in progress at a time (Acquire ... Release)
//   - Producers block on a condition variable while another frame is active
//   - The sink can be attached, replaced or detached at runtime
//   - Flush works at any time, even mid-frame and before any sink exists
//
// Frame Session:
//
//	A producer runs Acquire, any number of Write calls and Release. Acquire
//	starts a frame in the encoder, Write passes payload bytes through the
//	encoder, Release ends the frame. Every byte the encoder emits is written
//	to the sink while the lock's mutex is held.
//
//	Acquire returns a FrameToken. Write and Release reject tokens that do not
//	belong to the frame in progress (ErrCInvalidToken), so a producer that
//	calls Write outside its Acquire/Release bracket cannot corrupt another
//	producer's frame.
//
// Failure Semantics:
//
//	A failing sink write is never retried. The rest of the frame is dropped
//	and the error is reported by Write and Release (ErrCIoFailure). Release
//	always ends the frame and wakes up the waiting producers, regardless of
//	I/O errors, so a broken sink never leaves the lock stuck.
//
//	Without a sink all frames are encoded and discarded, no error is returned.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Acquire, AttachSink and
//	DetachSink may block, all other methods only take the mutex.
//
//	Re-entrant use deadlocks: a goroutine holding a token must not call
//	Acquire again, and sinks or encoders must not log through the same lock.
//
// Usage Example:
//
//	l := framelock.NewFrameLock("app", encoder.NewCOBSEncoder(true))
//	if err := l.AttachSink(sink.File("app.frames", false, 64*1024)); err != nil {
//	    // Handle error (the lock keeps discarding frames)
//	}
//
//	tok := l.Acquire()
//	_ = l.Write(tok, []byte{0x01, 0x02})
//	if err := l.Release(tok); err != nil {
//	    // The frame is lost, the lock is free again
//	}
//	_ = l.Flush()
//
// A process wide instance is available through Default().
package framelock
