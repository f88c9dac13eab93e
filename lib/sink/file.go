package sink

import (
	"bufio"
	"fmt"
	"os"
)

// File returns an Opener that creates the file at path.
// The file is truncated unless appendMode is set. Writes go through a user
// space buffer of bufferSize bytes (0 writes directly to the file).
func File(path string, appendMode bool, bufferSize int) Opener {
	return func() (ISink, error) {
		flags := os.O_CREATE | os.O_WRONLY
		if appendMode {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}

		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s for writing: %v", path, err)
		}

		Logger.Debugf("opened file sink %s (append=%t, buffer=%d)", path, appendMode, bufferSize)
		return newFileSink(f, bufferSize), nil
	}
}

// fileSink writes frames to a file
type fileSink struct {
	f   *os.File
	buf *bufio.Writer
}

func newFileSink(f *os.File, bufferSize int) *fileSink {
	s := &fileSink{f: f}
	if bufferSize > 0 {
		s.buf = bufio.NewWriterSize(f, bufferSize)
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sink.ISink)
// --------------------------------------------------------------------------

func (s *fileSink) Write(p []byte) error {
	if s.buf != nil {
		_, err := s.buf.Write(p)
		return err
	}
	_, err := s.f.Write(p)
	return err
}

func (s *fileSink) Flush() error {
	if s.buf != nil {
		return s.buf.Flush()
	}
	return nil
}

// Close flushes the buffer and closes the file
func (s *fileSink) Close() error {
	flushErr := s.Flush()
	if err := s.f.Close(); err != nil {
		return err
	}
	return flushErr
}
