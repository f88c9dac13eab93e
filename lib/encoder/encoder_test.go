package encoder

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/dLog/lib/common"
	"io"
	"testing"
)

// testConfigs is a map of encoder name to configuration
var testConfigs = map[string]common.EncoderConfig{
	"COBS":           {Kind: common.EncoderCOBS},
	"COBS+Checksum":  {Kind: common.EncoderCOBS, Checksum: true},
	"Length":         {Kind: common.EncoderLength},
	"Length+Zstd":    {Kind: common.EncoderLength, Compress: true},
	"Default(empty)": {},
}

// testPayloads creates payloads that hit the interesting COBS block boundaries
func testPayloads() [][]byte {
	run := func(n int, b byte) []byte {
		return bytes.Repeat([]byte{b}, n)
	}
	mixed := make([]byte, 1000)
	for i := range mixed {
		mixed[i] = byte(i % 7)
	}

	return [][]byte{
		{},
		{0x01, 0x02},
		{0x00},
		{0x00, 0x00, 0x00},
		run(253, 0x11),
		run(254, 0x11),
		run(255, 0x11),
		append(run(254, 0x11), 0x00),
		append(append(run(254, 0x11), 0x00), 0x22),
		run(1000, 0x7f),
		mixed,
	}
}

// TestRoundTrip tests that every payload can be encoded and read back
func TestRoundTrip(t *testing.T) {
	for name, conf := range testConfigs {
		t.Run(name, func(t *testing.T) {
			enc, err := New(conf)
			if err != nil {
				t.Fatalf("Failed to create encoder: %v", err)
			}

			var stream []byte
			payloads := testPayloads()
			for _, p := range payloads {
				stream = append(stream, EncodeFrame(enc, p)...)
			}

			r, err := NewReader(conf, bytes.NewReader(stream))
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}

			for i, want := range payloads {
				got, err := r.Next()
				if err != nil {
					t.Fatalf("Failed to read frame %d: %v", i, err)
				}
				if !bytes.Equal(got, want) {
					t.Errorf("Frame %d: expected %v, got %v", i, want, got)
				}
			}

			if _, err := r.Next(); err != io.EOF {
				t.Errorf("Expected io.EOF after last frame, got %v", err)
			}
		})
	}
}

// TestChunkedPayload tests that splitting the payload over many AppendPayload calls
// produces the same frame as a single call
func TestChunkedPayload(t *testing.T) {
	for name, conf := range testConfigs {
		t.Run(name, func(t *testing.T) {
			single, _ := New(conf)
			chunked, _ := New(conf)

			payload := testPayloads()[len(testPayloads())-1]
			want := EncodeFrame(single, payload)

			var got []byte
			emit := func(b []byte) { got = append(got, b...) }
			chunked.StartFrame(emit)
			for i := 0; i < len(payload); i += 13 {
				end := i + 13
				if end > len(payload) {
					end = len(payload)
				}
				chunked.AppendPayload(payload[i:end], emit)
			}
			chunked.EndFrame(emit)

			if !bytes.Equal(got, want) {
				t.Errorf("Chunked frame differs from single frame")
			}
		})
	}
}

// TestCOBSKnownVectors checks the exact COBS output for small payloads
func TestCOBSKnownVectors(t *testing.T) {
	tests := []struct {
		payload []byte
		want    []byte
	}{
		{[]byte{}, []byte{0x01, 0x00}},
		{[]byte{0x01, 0x02}, []byte{0x03, 0x01, 0x02, 0x00}},
		{[]byte{0x00}, []byte{0x01, 0x01, 0x00}},
		{[]byte{0x11, 0x00, 0x22}, []byte{0x02, 0x11, 0x02, 0x22, 0x00}},
	}

	enc := NewCOBSEncoder(false)
	for _, tt := range tests {
		got := EncodeFrame(enc, tt.payload)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Payload %v: expected %v, got %v", tt.payload, tt.want, got)
		}
	}
}

// TestCOBSNoZeroInsideFrame verifies that the delimiter is the only zero byte
func TestCOBSNoZeroInsideFrame(t *testing.T) {
	enc := NewCOBSEncoder(true)
	for i, p := range testPayloads() {
		frame := EncodeFrame(enc, p)
		if idx := bytes.IndexByte(frame, 0); idx != len(frame)-1 {
			t.Errorf("Payload %d: zero byte at %d of %d", i, idx, len(frame))
		}
	}
}

// TestChecksumDetectsCorruption flips a byte inside a frame and expects the
// reader to report it and to continue with the next frame
func TestChecksumDetectsCorruption(t *testing.T) {
	for _, name := range []string{"COBS+Checksum", "Length"} {
		t.Run(name, func(t *testing.T) {
			conf := testConfigs[name]
			enc, _ := New(conf)

			first := EncodeFrame(enc, []byte("first frame"))
			second := EncodeFrame(enc, []byte("second frame"))

			// corrupt a payload byte (never the delimiter or the length header)
			first[6] ^= 0x40

			r, _ := NewReader(conf, bytes.NewReader(append(first, second...)))
			if _, err := r.Next(); !errors.Is(err, ErrChecksum) {
				t.Fatalf("Expected ErrChecksum, got %v", err)
			}

			got, err := r.Next()
			if err != nil {
				t.Fatalf("Failed to read frame after corruption: %v", err)
			}
			if string(got) != "second frame" {
				t.Errorf("Expected second frame, got %q", got)
			}
		})
	}
}

// TestTruncatedStream expects io.ErrUnexpectedEOF for a stream that ends inside a frame
func TestTruncatedStream(t *testing.T) {
	for name, conf := range testConfigs {
		t.Run(name, func(t *testing.T) {
			enc, _ := New(conf)
			frame := EncodeFrame(enc, []byte{0x01, 0x02, 0x03})

			r, _ := NewReader(conf, bytes.NewReader(frame[:len(frame)-1]))
			if _, err := r.Next(); err != io.ErrUnexpectedEOF {
				t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
			}
		})
	}
}

// TestCompressionShrinksFrames checks that compressible payloads get smaller with zstd
func TestCompressionShrinksFrames(t *testing.T) {
	plain, _ := NewLengthEncoder(false)
	compressed, _ := NewLengthEncoder(true)

	payload := bytes.Repeat([]byte("all work and no play "), 200)
	if a, b := len(EncodeFrame(plain, payload)), len(EncodeFrame(compressed, payload)); b >= a {
		t.Errorf("Expected compressed frame (%d B) to be smaller than plain frame (%d B)", b, a)
	}
}

// TestFactoryRejectsInvalidConfig tests the error paths of New
func TestFactoryRejectsInvalidConfig(t *testing.T) {
	if _, err := New(common.EncoderConfig{Kind: "morse"}); err == nil {
		t.Errorf("Expected error for unknown encoder")
	}
	if _, err := New(common.EncoderConfig{Kind: common.EncoderCOBS, Compress: true}); err == nil {
		t.Errorf("Expected error for compressed cobs")
	}
	if _, err := NewReader(common.EncoderConfig{Kind: "morse"}, bytes.NewReader(nil)); err == nil {
		t.Errorf("Expected error for unknown reader")
	}
}

// BenchmarkCOBSEncode measures encoding of a typical record sized payload
func BenchmarkCOBSEncode(b *testing.B) {
	enc := NewCOBSEncoder(true)
	payload := bytes.Repeat([]byte{0x01, 0x00, 0x42, 0x13}, 32)
	emit := func([]byte) {}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		enc.StartFrame(emit)
		enc.AppendPayload(payload, emit)
		enc.EndFrame(emit)
	}
}

// onesReader yields an endless stream of 0x01 bytes (a frame without delimiter)
type onesReader struct{}

func (onesReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x01
	}
	return len(p), nil
}

// encodeChunks runs one frame with the payload split into chunks
func encodeChunks(enc IFrameEncoder, chunks ...[]byte) []byte {
	var out []byte
	emit := func(b []byte) {
		out = append(out, b...)
	}
	enc.StartFrame(emit)
	for _, c := range chunks {
		enc.AppendPayload(c, emit)
	}
	enc.EndFrame(emit)
	return out
}

// TestFrameSizeLimit tests that frames above the limit are rejected by the
// encoder, that the next frame is accepted again and that readers keep going
func TestFrameSizeLimit(t *testing.T) {
	const limit = 16
	chunk := bytes.Repeat([]byte{0x42}, 10)

	t.Run("COBS", func(t *testing.T) {
		enc := NewCOBSEncoder(true).(*cobsEncoder)
		enc.maxFrame = limit

		var stream []byte
		stream = append(stream, encodeChunks(enc, chunk, chunk)...)
		if !errors.Is(enc.Err(), ErrFrameTooLarge) {
			t.Fatalf("Expected ErrFrameTooLarge, got %v", enc.Err())
		}
		stream = append(stream, encodeChunks(enc, bytes.Repeat([]byte{0x07}, limit))...)
		if enc.Err() != nil {
			t.Fatalf("Expected frame at the limit to be accepted, got %v", enc.Err())
		}

		r := newCOBSReader(bytes.NewReader(stream), true, limit)
		if _, err := r.Next(); !errors.Is(err, ErrCorruptFrame) {
			t.Fatalf("Expected rejected frame to be corrupt, got %v", err)
		}
		got, err := r.Next()
		if err != nil || !bytes.Equal(got, bytes.Repeat([]byte{0x07}, limit)) {
			t.Fatalf("Expected frame at the limit, got %v, %v", got, err)
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	})

	t.Run("Length", func(t *testing.T) {
		e, _ := NewLengthEncoder(false)
		enc := e.(*lengthEncoder)
		enc.maxFrame = limit

		rejected := encodeChunks(enc, chunk, chunk)
		if !errors.Is(enc.Err(), ErrFrameTooLarge) {
			t.Fatalf("Expected ErrFrameTooLarge, got %v", enc.Err())
		}
		if len(rejected) != 0 {
			t.Fatalf("Expected nothing written for a rejected frame, got %d bytes", len(rejected))
		}

		accepted := encodeChunks(enc, chunk)
		if enc.Err() != nil {
			t.Fatalf("Expected next frame to be accepted, got %v", enc.Err())
		}

		rd, _ := NewLengthReader(bytes.NewReader(accepted))
		rd.(*lengthReader).maxFrame = limit
		got, err := rd.Next()
		if err != nil || !bytes.Equal(got, chunk) {
			t.Fatalf("Expected accepted frame, got %v, %v", got, err)
		}
	})
}

// TestCOBSReaderBoundsFrameSize feeds a frame far longer than the limit and
// expects the reader to skip it without buffering it, then resynchronize
func TestCOBSReaderBoundsFrameSize(t *testing.T) {
	const limit = 1024
	maxBuffered := 4 * (cobsMaxEncodedSize(limit) + 1)

	good := EncodeFrame(NewCOBSEncoder(false), []byte("after the flood"))
	stream := io.MultiReader(
		io.LimitReader(onesReader{}, 1<<20),
		bytes.NewReader([]byte{cobsDelimiter}),
		bytes.NewReader(good),
	)

	r := newCOBSReader(stream, false, limit)
	if _, err := r.Next(); !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("Expected ErrCorruptFrame for oversized frame, got %v", err)
	}
	if cap(r.raw) > maxBuffered {
		t.Errorf("Reader buffered %d bytes for a frame limit of %d", cap(r.raw), limit)
	}

	got, err := r.Next()
	if err != nil || string(got) != "after the flood" {
		t.Fatalf("Expected frame after oversized one, got %q, %v", got, err)
	}
}

// TestCOBSReaderUnterminatedStream tests a peer that never sends a delimiter
func TestCOBSReaderUnterminatedStream(t *testing.T) {
	const limit = 1024

	r := newCOBSReader(io.LimitReader(onesReader{}, 1<<20), false, limit)
	if _, err := r.Next(); err != io.ErrUnexpectedEOF {
		t.Fatalf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
	if cap(r.raw) > 4*(cobsMaxEncodedSize(limit)+1) {
		t.Errorf("Reader buffered %d bytes for a frame limit of %d", cap(r.raw), limit)
	}
}
