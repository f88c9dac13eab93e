package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Encoder configuration
// --------------------------------------------------------------------------

// EncoderKind names a frame encoding
type EncoderKind string

const (
	EncoderCOBS   EncoderKind = "cobs"
	EncoderLength EncoderKind = "length"
)

// EncoderConfig selects the frame encoding used by writers and readers
type EncoderConfig struct {
	// Kind is the frame format (cobs, length)
	Kind EncoderKind
	// Checksum appends an xxhash64 digest to every frame (cobs only, length always carries one)
	Checksum bool
	// Compress compresses frame bodies with zstd (length only)
	Compress bool
}

// --------------------------------------------------------------------------
// Sink configuration
// --------------------------------------------------------------------------

// SinkKind names a sink implementation
type SinkKind string

const (
	SinkNone   SinkKind = "none"
	SinkFile   SinkKind = "file"
	SinkStdout SinkKind = "stdout"
	SinkTCP    SinkKind = "tcp"
	SinkUnix   SinkKind = "unix"
)

// SocketConf holds socket buffer options
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// SinkConfig describes where frames are written to
type SinkConfig struct {
	Kind SinkKind
	// Target is the file path or the socket endpoint
	Target string
	// Append opens file sinks without truncating them
	Append bool
	// BufferSize is the size of the user space write buffer (0 = unbuffered)
	BufferSize int
	SocketConf SocketConf
	TCPConf    TCPConf
}

// --------------------------------------------------------------------------
// Receiver configuration
// --------------------------------------------------------------------------

// ReceiverConfig configures the frame receiver (see lib/receiver)
type ReceiverConfig struct {
	// Network is tcp or unix
	Network string
	// Endpoint is the address or socket path to listen on
	Endpoint   string
	Encoder    EncoderConfig
	SocketConf SocketConf
	// TimeoutSecond is the read timeout per frame (0 = none)
	TimeoutSecond int
}

// --------------------------------------------------------------------------
// Pretty printing
// --------------------------------------------------------------------------

// configPrinter builds the section/field layout shared by all String methods
type configPrinter struct {
	sb strings.Builder
}

func (p *configPrinter) section(title string) {
	p.sb.WriteString("\n")
	p.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (p *configPrinter) field(name, value string) {
	p.sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}

// String returns a formatted string representation of the encoder configuration
func (c *EncoderConfig) String() string {
	p := &configPrinter{}
	p.section("Encoder")
	p.field("Kind", string(c.Kind))
	p.field("Checksum", fmt.Sprintf("%t", c.Checksum))
	p.field("Compress", fmt.Sprintf("%t", c.Compress))
	return p.sb.String()
}

// String returns a formatted string representation of the sink configuration
func (c *SinkConfig) String() string {
	p := &configPrinter{}
	p.section("Sink")
	p.field("Kind", string(c.Kind))
	if c.Target != "" {
		p.field("Target", c.Target)
	}
	p.field("Buffer Size", fmt.Sprintf("%d B", c.BufferSize))

	switch c.Kind {
	case SinkFile:
		p.field("Append", fmt.Sprintf("%t", c.Append))
	case SinkTCP:
		p.field("TCP No Delay", fmt.Sprintf("%t", c.TCPConf.TCPNoDelay))
		p.field("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPConf.TCPKeepAliveSec))
		p.field("TCP Linger", fmt.Sprintf("%d sec", c.TCPConf.TCPLingerSec))
		fallthrough
	case SinkUnix:
		p.field("Socket Write Buffer", fmt.Sprintf("%d B", c.SocketConf.WriteBufferSize))
	}
	return p.sb.String()
}

// String returns a formatted string representation of the receiver configuration
func (c *ReceiverConfig) String() string {
	p := &configPrinter{}
	p.section("Receiver")
	p.field("Network", c.Network)
	p.field("Endpoint", c.Endpoint)
	p.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	p.field("Socket Read Buffer", fmt.Sprintf("%d B", c.SocketConf.ReadBufferSize))
	return p.sb.String() + c.Encoder.String()
}
