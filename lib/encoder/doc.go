// Package encoder provides the frame formats used to delimit log records in a
// shared byte stream. It defines a common interface for stateful frame encoders
// and matching readers that split a byte stream back into payloads.
//
// Key Components:
//
//   - IFrameEncoder: StartFrame, AppendPayload and EndFrame build one frame.
//     Encoded bytes are handed to an EmitFunc as soon as they are ready, the
//     encoder never writes to a sink itself.
//
//   - cobs: consistent overhead byte stuffing. Frames never contain a zero
//     byte and end with one, which makes the stream self-synchronizing. Encoding
//     uses a fixed block buffer and does not allocate. An optional xxhash64
//     trailer detects corrupted frames.
//
//   - length: a length prefixed format with a fixed header
//     (flags, body length, body, xxhash64 digest). The body may be zstd
//     compressed. Payload bytes are buffered until the frame ends.
//
// Thread Safety:
//
//	Encoders and readers are NOT safe for concurrent use. An encoder is owned
//	by exactly one framelock.FrameLock, which only touches it while holding
//	its mutex.
//
// Usage:
//
//	enc, _ := encoder.New(common.EncoderConfig{Kind: common.EncoderCOBS, Checksum: true})
//	frame := encoder.EncodeFrame(enc, []byte("hello"))
//
//	r, _ := encoder.NewReader(common.EncoderConfig{Kind: common.EncoderCOBS, Checksum: true}, bytes.NewReader(frame))
//	payload, err := r.Next()
package encoder
