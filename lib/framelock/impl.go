package framelock

import (
	"github.com/ValentinKolb/dLog/lib/encoder"
	"github.com/ValentinKolb/dLog/lib/sink"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"reflect"
	"sync"
	"time"
)

var Logger = logger.GetLogger("framelock")

// FrameLock implements IFrameLock with a mutex and a condition variable
// guarding the shared state. The sink and the encoder are only touched while
// the mutex is held.
type FrameLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	// guarded by mu
	sink       sink.ISink
	enc        encoder.IFrameEncoder
	status     encoder.IFrameStatus // nil if enc never rejects frames
	inProgress bool
	seq        uint64 // sequence number of the current (or last) frame
	frameErr   error  // first sink error of the current frame

	// emit is bound once so that encoding does not allocate a closure per call
	emit    encoder.EmitFunc
	metrics *lockMetrics
}

// NewFrameLock creates a frame lock without a sink, all frames are discarded
// until AttachSink is called. name identifies the lock in the exported metrics.
//
// Usage:
//
//	l := framelock.NewFrameLock("app", encoder.NewCOBSEncoder(true))
//	if err := l.AttachSink(sink.File("app.log", false, 64*1024)); err != nil {
//		return err
//	}
//
//	tok := l.Acquire()
//	werr := l.Write(tok, payload)
//	if err := l.Release(tok); err != nil {
//		return err
//	}
func NewFrameLock(name string, enc encoder.IFrameEncoder) *FrameLock {
	l := &FrameLock{
		enc:     enc,
		metrics: newLockMetrics(name),
	}
	l.cond = sync.NewCond(&l.mu)
	l.emit = l.emitLocked
	l.status, _ = enc.(encoder.IFrameStatus)
	return l
}

// --------------------------------------------------------------------------
// Interface Methods (docu see framelock.IFrameLock)
// --------------------------------------------------------------------------

func (l *FrameLock) AttachSink(open sink.Opener) error {
	if open == nil {
		return newError(ErrCSinkUnavailable, "no sink given", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitIdleLocked()

	s, err := open()
	if err != nil {
		Logger.Warningf("failed to attach sink: %v", err)
		return newError(ErrCSinkUnavailable, "failed to open sink", err)
	}

	// reopening the attached sink must not close it
	if l.sink != nil && !sameSink(l.sink, s) {
		if err := l.closeSinkLocked(); err != nil {
			Logger.Warningf("failed to close replaced sink: %v", err)
		}
	}

	l.sink = s
	l.metrics.attached.Store(true)
	Logger.Debugf("attached sink (encoder %s)", l.enc.Name())
	return nil
}

func (l *FrameLock) DetachSink() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitIdleLocked()

	if l.sink == nil {
		return nil
	}

	err := l.closeSinkLocked()
	l.sink = nil
	l.metrics.attached.Store(false)
	Logger.Debugf("detached sink")

	if err != nil {
		return newError(ErrCIoFailure, "failed to close sink", err)
	}
	return nil
}

func (l *FrameLock) Acquire() FrameToken {
	start := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitIdleLocked()
	l.metrics.acquireWait.UpdateDuration(start)

	l.inProgress = true
	l.seq++
	l.frameErr = nil
	l.metrics.framesStarted.Inc()

	// a panicking encoder must not leave the lock taken
	started := false
	defer func() {
		if !started {
			l.metrics.framesFailed.Inc()
			l.endFrameLocked()
		}
	}()

	// a sink error here is kept in frameErr and reported by Write or Release
	l.enc.StartFrame(l.emit)
	started = true

	return FrameToken{seq: l.seq}
}

func (l *FrameLock) Write(tok FrameToken, p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkTokenLocked(tok); err != nil {
		return err
	}

	// a panic while encoding ends the frame, the token becomes invalid
	appended := false
	defer func() {
		if !appended {
			l.metrics.framesFailed.Inc()
			l.endFrameLocked()
		}
	}()

	l.enc.AppendPayload(p, l.emit)
	appended = true
	l.metrics.payloadBytes.Add(len(p))

	if err := l.frameErrLocked(); err != nil {
		return newError(ErrCIoFailure, "failed to write frame", err)
	}
	return nil
}

func (l *FrameLock) Release(tok FrameToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkTokenLocked(tok); err != nil {
		return err
	}

	// the frame ends no matter what the sink or the encoder do
	defer l.endFrameLocked()

	l.enc.EndFrame(l.emit)

	if err := l.frameErrLocked(); err != nil {
		l.metrics.framesFailed.Inc()
		return newError(ErrCIoFailure, "failed to write frame", err)
	}
	l.metrics.framesCompleted.Inc()
	return nil
}

func (l *FrameLock) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sink == nil {
		return nil
	}

	l.metrics.flushes.Inc()
	if err := l.sink.Flush(); err != nil {
		l.metrics.ioErrors.Inc()
		return newError(ErrCIoFailure, "failed to flush sink", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// InProgress reports whether a frame is currently in progress
func (l *FrameLock) InProgress() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inProgress
}

// Encoder returns the name of the frame encoder
func (l *FrameLock) Encoder() string {
	return l.enc.Name()
}

// --------------------------------------------------------------------------
// Helper Methods (all require l.mu to be held)
// --------------------------------------------------------------------------

// waitIdleLocked blocks until no frame is in progress.
// Release broadcasts, so every waiter re-checks the flag after each frame.
func (l *FrameLock) waitIdleLocked() {
	if !l.inProgress {
		return
	}

	l.metrics.waiters.Add(1)
	for l.inProgress {
		l.cond.Wait()
	}
	l.metrics.waiters.Add(-1)
}

// checkTokenLocked verifies that tok belongs to the frame in progress
func (l *FrameLock) checkTokenLocked(tok FrameToken) error {
	if !l.inProgress || tok.seq == 0 || tok.seq != l.seq {
		l.metrics.invalidTokens.Inc()
		return newError(ErrCInvalidToken, "token does not belong to the frame in progress", nil)
	}
	return nil
}

// frameErrLocked returns the sink error or the encoder error of the current frame
func (l *FrameLock) frameErrLocked() error {
	if l.frameErr != nil {
		return l.frameErr
	}
	if l.status != nil {
		return l.status.Err()
	}
	return nil
}

// endFrameLocked clears the frame state and wakes up all waiters
func (l *FrameLock) endFrameLocked() {
	l.inProgress = false
	l.frameErr = nil
	l.cond.Broadcast()
}

// emitLocked forwards encoded bytes to the sink. Without a sink the bytes are
// dropped. After the first failure the rest of the frame is dropped as well,
// the frame is corrupt anyway.
func (l *FrameLock) emitLocked(b []byte) {
	if l.sink == nil || l.frameErr != nil {
		return
	}

	if err := l.sink.Write(b); err != nil {
		l.frameErr = err
		l.metrics.ioErrors.Inc()
		return
	}
	l.metrics.sinkBytes.Add(len(b))
}

// closeSinkLocked flushes the current sink and closes it if it is an io.Closer
func (l *FrameLock) closeSinkLocked() error {
	flushErr := l.sink.Flush()

	if c, ok := l.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return flushErr
}

// sameSink reports whether a and b are the same sink. Sinks of a type that is
// not comparable are never the same.
func sameSink(a, b sink.ISink) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
