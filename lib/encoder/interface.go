package encoder

import "errors"

// EmitFunc receives encoded bytes that are ready to be written.
// The slice is only valid for the duration of the call, implementations
// that keep the bytes must copy them.
type EmitFunc func(b []byte)

// IFrameEncoder wraps raw payload bytes into a self-delimiting frame format.
// An encoder is stateful: StartFrame, any number of AppendPayload calls and
// EndFrame form one frame. Encoders are not safe for concurrent use, the
// caller (usually a framelock.FrameLock) serializes access.
type IFrameEncoder interface {
	// Name returns the name of the frame format (e.g. "cobs")
	Name() string
	// StartFrame begins a new frame and resets all per frame state
	StartFrame(emit EmitFunc)
	// AppendPayload adds payload bytes to the current frame
	AppendPayload(p []byte, emit EmitFunc)
	// EndFrame terminates the current frame
	EndFrame(emit EmitFunc)
}

// IFrameReader reads frames produced by the matching IFrameEncoder
type IFrameReader interface {
	// Next returns the payload of the next frame.
	// It returns io.EOF if the stream ended cleanly between two frames and
	// io.ErrUnexpectedEOF if it ended inside a frame.
	// The returned slice is only valid until the next call.
	Next() ([]byte, error)
}

// MaxFrameSize is the largest payload a frame may carry. Encoders reject
// larger frames, readers treat larger frames as corrupt.
const MaxFrameSize = 64 * 1024 * 1024

// IFrameStatus is implemented by encoders that can reject a frame, e.g. one
// exceeding MaxFrameSize. A rejected frame is not written in a form a reader
// would accept.
type IFrameStatus interface {
	// Err returns the error of the current frame or nil. StartFrame resets it.
	Err() error
}

var (
	// ErrFrameTooLarge is reported by encoders for payloads above MaxFrameSize
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	// ErrCorruptFrame is returned by readers for frames that violate the format
	ErrCorruptFrame = errors.New("corrupt frame")
	// ErrChecksum is returned by readers if the frame digest does not match the payload
	ErrChecksum = errors.New("frame checksum mismatch")
)

// EncodeFrame runs a complete frame for payload through enc and returns the encoded bytes
func EncodeFrame(enc IFrameEncoder, payload []byte) []byte {
	var out []byte
	emit := func(b []byte) {
		out = append(out, b...)
	}
	enc.StartFrame(emit)
	enc.AppendPayload(payload, emit)
	enc.EndFrame(emit)
	return out
}
