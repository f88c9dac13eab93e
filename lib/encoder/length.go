package encoder

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"io"
)

// Frame layout of the length prefixed format:
//   - 1 byte: flags
//   - 4 bytes: body length (uint32, big endian)
//   - N bytes: body (payload, zstd compressed if flagCompressed is set)
//   - 8 bytes: xxhash64 of the body (uint64, big endian)
const (
	lengthHeaderSize = 5

	flagCompressed byte = 1 << 0
)

// --------------------------------------------------------------------------
// Encoder
// --------------------------------------------------------------------------

// NewLengthEncoder creates an encoder for the length prefixed format.
// The payload is buffered until EndFrame since its length has to be known
// before the header can be written. The buffer is reused across frames.
func NewLengthEncoder(compress bool) (IFrameEncoder, error) {
	e := &lengthEncoder{compress: compress, maxFrame: MaxFrameSize}
	if compress {
		zenc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %v", err)
		}
		e.zenc = zenc
	}
	return e, nil
}

type lengthEncoder struct {
	compress bool
	zenc     *zstd.Encoder
	maxFrame int
	err      error

	payload    []byte
	compressed []byte
	header     [lengthHeaderSize]byte
	trailer    [digestSize]byte
}

// --------------------------------------------------------------------------
// Interface Methods (docu see encoder.IFrameEncoder)
// --------------------------------------------------------------------------

func (e *lengthEncoder) Name() string {
	return string(common.EncoderLength)
}

func (e *lengthEncoder) StartFrame(_ EmitFunc) {
	e.payload = e.payload[:0]
	e.err = nil
}

func (e *lengthEncoder) AppendPayload(p []byte, _ EmitFunc) {
	if e.err != nil {
		return
	}
	if len(e.payload)+len(p) > e.maxFrame {
		e.err = ErrFrameTooLarge
		e.payload = e.payload[:0]
		return
	}
	e.payload = append(e.payload, p...)
}

// EndFrame writes the frame. A rejected frame is not written at all, the
// stream stays readable since nothing of the frame was emitted yet.
func (e *lengthEncoder) EndFrame(emit EmitFunc) {
	if e.err != nil {
		return
	}

	body := e.payload
	var flags byte

	if e.compress {
		e.compressed = e.zenc.EncodeAll(e.payload, e.compressed[:0])
		body = e.compressed
		flags |= flagCompressed
	}
	if len(body) > e.maxFrame {
		e.err = ErrFrameTooLarge
		return
	}

	e.header[0] = flags
	binary.BigEndian.PutUint32(e.header[1:], uint32(len(body)))
	binary.BigEndian.PutUint64(e.trailer[:], xxhash.Sum64(body))

	emit(e.header[:])
	if len(body) > 0 {
		emit(body)
	}
	emit(e.trailer[:])
}

func (e *lengthEncoder) Err() error {
	return e.err
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// NewLengthReader creates a reader for frames written by NewLengthEncoder.
// Compressed frames are detected by their flags, the reader needs no configuration.
func NewLengthReader(r io.Reader) (IFrameReader, error) {
	// decompressed payloads are bounded like plain ones
	zdec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxFrameSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %v", err)
	}
	return &lengthReader{r: r, zdec: zdec, maxFrame: MaxFrameSize}, nil
}

type lengthReader struct {
	r        io.Reader
	zdec     *zstd.Decoder
	maxFrame int
	header   [lengthHeaderSize]byte
	buf      []byte
	out      []byte
}

func (l *lengthReader) Next() ([]byte, error) {
	// a clean EOF is only valid before the first header byte
	if _, err := io.ReadFull(l.r, l.header[:]); err != nil {
		return nil, err
	}

	flags := l.header[0]
	if flags&^flagCompressed != 0 {
		return nil, ErrCorruptFrame
	}

	bodyLen := binary.BigEndian.Uint32(l.header[1:])
	if uint64(bodyLen) > uint64(l.maxFrame) {
		return nil, ErrCorruptFrame
	}

	// read body and trailer in one go
	total := int(bodyLen) + digestSize
	if cap(l.buf) < total {
		l.buf = make([]byte, total)
	}
	l.buf = l.buf[:total]
	if _, err := io.ReadFull(l.r, l.buf); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	body := l.buf[:bodyLen]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(l.buf[bodyLen:]) {
		return nil, ErrChecksum
	}

	if flags&flagCompressed == 0 {
		return body, nil
	}

	out, err := l.zdec.DecodeAll(body, l.out[:0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	l.out = out
	return out, nil
}
