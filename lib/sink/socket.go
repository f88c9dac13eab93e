package sink

import (
	"bufio"
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"net"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection setup
type IClientConnector interface {
	// Connect establishes a connection to endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Socket Sink
// --------------------------------------------------------------------------

// Socket returns an Opener that connects to endpoint using connector.
// Writes go through a user space buffer of bufferSize bytes (0 = unbuffered),
// frames only leave the process on Flush or when the buffer is full.
func Socket(connector IClientConnector, endpoint string, bufferSize int) Opener {
	return func() (ISink, error) {
		conn, err := connector.Connect(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s endpoint %s: %v", connector.GetName(), endpoint, err)
		}

		Logger.Debugf("connected %s sink to %s", connector.GetName(), endpoint)

		s := &socketSink{conn: conn}
		if bufferSize > 0 {
			s.buf = bufio.NewWriterSize(conn, bufferSize)
		}
		return s, nil
	}
}

type socketSink struct {
	conn net.Conn
	buf  *bufio.Writer
}

func (s *socketSink) Write(p []byte) error {
	if s.buf != nil {
		_, err := s.buf.Write(p)
		return err
	}
	_, err := s.conn.Write(p)
	return err
}

func (s *socketSink) Flush() error {
	if s.buf != nil {
		return s.buf.Flush()
	}
	return nil
}

// Close flushes the buffer and closes the connection
func (s *socketSink) Close() error {
	flushErr := s.Flush()
	if err := s.conn.Close(); err != nil {
		return err
	}
	return flushErr
}

// --------------------------------------------------------------------------
// TCP Connector
// --------------------------------------------------------------------------

// NewTCPConnector creates a connector for tcp endpoints that applies the given socket options
func NewTCPConnector(tcpConf common.TCPConf, socketConf common.SocketConf) IClientConnector {
	return &tcpConnector{tcpConf: tcpConf, socketConf: socketConf}
}

type tcpConnector struct {
	tcpConf    common.TCPConf
	socketConf common.SocketConf
}

func (c *tcpConnector) GetName() string {
	return "tcp"
}

func (c *tcpConnector) Connect(endpoint string) (net.Conn, error) {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return nil, err
	}
	if err := c.upgradeConnection(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// upgradeConnection applies the configured TCP options
func (c *tcpConnector) upgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	if err := tcpConn.SetNoDelay(c.tcpConf.TCPNoDelay); err != nil {
		return err
	}

	if c.socketConf.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(c.socketConf.WriteBufferSize); err != nil {
			return err
		}
	}

	if c.tcpConf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(c.tcpConf.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if c.tcpConf.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(c.tcpConf.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Unix Connector
// --------------------------------------------------------------------------

// NewUnixConnector creates a connector for unix domain sockets
func NewUnixConnector() IClientConnector {
	return &unixConnector{}
}

type unixConnector struct{}

func (c *unixConnector) GetName() string {
	return "unix"
}

func (c *unixConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}
