package encoder

import (
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"io"
)

// New creates the encoder described by conf
func New(conf common.EncoderConfig) (IFrameEncoder, error) {
	switch conf.Kind {
	case common.EncoderCOBS, "":
		if conf.Compress {
			return nil, fmt.Errorf("compression is not supported by the %s encoder", common.EncoderCOBS)
		}
		return NewCOBSEncoder(conf.Checksum), nil
	case common.EncoderLength:
		return NewLengthEncoder(conf.Compress)
	default:
		return nil, fmt.Errorf("invalid encoder %s (expected one of: cobs, length)", conf.Kind)
	}
}

// NewReader creates the frame reader matching the encoder described by conf
func NewReader(conf common.EncoderConfig, r io.Reader) (IFrameReader, error) {
	switch conf.Kind {
	case common.EncoderCOBS, "":
		return NewCOBSReader(r, conf.Checksum), nil
	case common.EncoderLength:
		return NewLengthReader(r)
	default:
		return nil, fmt.Errorf("invalid encoder %s (expected one of: cobs, length)", conf.Kind)
	}
}
