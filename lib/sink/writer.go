package sink

import (
	"io"
)

// Writer returns an Opener for a sink writing to w (e.g. os.Stdout).
// Flush is forwarded if w has a Flush() error method (e.g. *bufio.Writer).
// The writer is never closed by the sink.
func Writer(w io.Writer) Opener {
	return Static(&writerSink{w: w})
}

type writerSink struct {
	w io.Writer
}

func (s *writerSink) Write(p []byte) error {
	_, err := s.w.Write(p)
	return err
}

func (s *writerSink) Flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
