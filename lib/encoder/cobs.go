package encoder

import (
	"bufio"
	"encoding/binary"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/cespare/xxhash/v2"
	"io"
)

const (
	// cobsMaxBlock is the maximum number of non-zero bytes in one COBS block
	cobsMaxBlock = 254
	// cobsDelimiter terminates every frame
	cobsDelimiter byte = 0x00
	// digestSize is the size of the xxhash64 trailer
	digestSize = 8
)

// --------------------------------------------------------------------------
// Encoder
// --------------------------------------------------------------------------

// NewCOBSEncoder creates an encoder using consistent overhead byte stuffing.
// Frames never contain a zero byte and are terminated by one, so a reader can
// resynchronize after a corrupt frame. If checksum is set, an xxhash64 digest of
// the payload is appended (stuffed like payload bytes) before the delimiter.
//
// The encoder works on a fixed block buffer, encoding a frame does not allocate.
func NewCOBSEncoder(checksum bool) IFrameEncoder {
	return &cobsEncoder{
		checksum: checksum,
		digest:   xxhash.New(),
		maxFrame: MaxFrameSize,
	}
}

type cobsEncoder struct {
	checksum bool
	digest   *xxhash.Digest
	maxFrame int

	// payload bytes of the current frame and its error
	size int
	err  error

	// block[0] holds the code byte, block[1:n+1] the pending data bytes
	block [cobsMaxBlock + 1]byte
	n     int

	trailer   [digestSize]byte
	delimiter [1]byte
}

// --------------------------------------------------------------------------
// Interface Methods (docu see encoder.IFrameEncoder)
// --------------------------------------------------------------------------

func (e *cobsEncoder) Name() string {
	return string(common.EncoderCOBS)
}

func (e *cobsEncoder) StartFrame(_ EmitFunc) {
	e.n = 0
	e.size = 0
	e.err = nil
	if e.checksum {
		e.digest.Reset()
	}
}

func (e *cobsEncoder) AppendPayload(p []byte, emit EmitFunc) {
	if e.err != nil {
		return
	}
	if e.size+len(p) > e.maxFrame {
		e.err = ErrFrameTooLarge
		return
	}
	e.size += len(p)

	if e.checksum {
		_, _ = e.digest.Write(p)
	}
	e.stuff(p, emit)
}

// EndFrame terminates the frame. Blocks of a rejected frame may already be
// written, so it is closed with a code byte that overruns the delimiter and
// readers discard it as corrupt.
func (e *cobsEncoder) EndFrame(emit EmitFunc) {
	if e.err != nil {
		e.n = 0
		e.block[0] = 0xFF
		emit(e.block[:1])
		e.delimiter[0] = cobsDelimiter
		emit(e.delimiter[:])
		return
	}

	if e.checksum {
		binary.BigEndian.PutUint64(e.trailer[:], e.digest.Sum64())
		e.stuff(e.trailer[:], emit)
	}

	// the last block is always written, even if empty
	e.flushBlock(emit)
	e.delimiter[0] = cobsDelimiter
	emit(e.delimiter[:])
}

func (e *cobsEncoder) Err() error {
	return e.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// stuff appends p to the pending block, emitting every completed block
func (e *cobsEncoder) stuff(p []byte, emit EmitFunc) {
	for _, b := range p {
		// a zero byte ends the block, it is implied by the code byte
		if b == 0 {
			e.flushBlock(emit)
			continue
		}

		e.n++
		e.block[e.n] = b

		// a full block (code 0xFF) does not imply a trailing zero
		if e.n == cobsMaxBlock {
			e.flushBlock(emit)
		}
	}
}

// flushBlock emits the pending block with its code byte
func (e *cobsEncoder) flushBlock(emit EmitFunc) {
	e.block[0] = byte(e.n + 1)
	emit(e.block[:e.n+1])
	e.n = 0
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// NewCOBSReader creates a reader for frames written by NewCOBSEncoder.
// checksum must match the setting of the encoder. Frames longer than the
// encoding of a MaxFrameSize payload are skipped with ErrCorruptFrame.
func NewCOBSReader(r io.Reader, checksum bool) IFrameReader {
	return newCOBSReader(r, checksum, MaxFrameSize)
}

func newCOBSReader(r io.Reader, checksum bool, maxFrame int) *cobsReader {
	return &cobsReader{
		r:          bufio.NewReader(r),
		checksum:   checksum,
		maxEncoded: cobsMaxEncodedSize(maxFrame),
	}
}

type cobsReader struct {
	r          *bufio.Reader
	checksum   bool
	maxEncoded int
	raw        []byte
	payload    []byte
}

// cobsMaxEncodedSize is the stuffed size of a payload of n bytes plus digest
func cobsMaxEncodedSize(n int) int {
	n += digestSize
	return n + n/cobsMaxBlock + 2
}

func (c *cobsReader) Next() ([]byte, error) {
	for {
		raw, err := c.readFrame()
		if err != nil {
			return nil, err
		}

		// skip empty frames (consecutive delimiters)
		if len(raw) == 0 {
			continue
		}

		c.payload, err = cobsDecode(raw, c.payload[:0])
		if err != nil {
			return nil, err
		}

		if !c.checksum {
			return c.payload, nil
		}
		return verifyDigest(c.payload)
	}
}

// readFrame returns the next stuffed frame without its delimiter. The frame
// is accumulated up to maxEncoded bytes, the rest of a longer frame is
// discarded up to the next delimiter.
func (c *cobsReader) readFrame() ([]byte, error) {
	c.raw = c.raw[:0]
	oversize := false

	for {
		chunk, err := c.r.ReadSlice(cobsDelimiter)

		if !oversize {
			if len(c.raw)+len(chunk) > c.maxEncoded+1 {
				oversize = true
				c.raw = c.raw[:0]
			} else {
				c.raw = append(c.raw, chunk...)
			}
		}

		switch err {
		case nil:
			if oversize {
				return nil, ErrCorruptFrame
			}
			return c.raw[:len(c.raw)-1], nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if !oversize && len(c.raw) == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}

// cobsDecode decodes one stuffed frame (without delimiter) and appends the result to dst
func cobsDecode(frame []byte, dst []byte) ([]byte, error) {
	for i := 0; i < len(frame); {
		code := int(frame[i])
		if code == 0 {
			return nil, ErrCorruptFrame
		}
		i++

		end := i + code - 1
		if end > len(frame) {
			return nil, ErrCorruptFrame
		}
		dst = append(dst, frame[i:end]...)
		i = end

		// every block but a full one and the last one is followed by an implied zero
		if code < 0xFF && i < len(frame) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}

// verifyDigest splits the xxhash64 trailer from payload and checks it
func verifyDigest(payload []byte) ([]byte, error) {
	if len(payload) < digestSize {
		return nil, ErrCorruptFrame
	}
	body := payload[:len(payload)-digestSize]
	want := binary.BigEndian.Uint64(payload[len(payload)-digestSize:])
	if xxhash.Sum64(body) != want {
		return nil, ErrChecksum
	}
	return body, nil
}
