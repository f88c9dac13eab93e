package receiver

import (
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"net"
	"os"
)

// IServerConnector creates the listener for one network type
type IServerConnector interface {
	// Listen creates a listener on endpoint
	Listen(endpoint string) (net.Listener, error)

	// GetName returns the name of the network (e.g. "unix", "tcp")
	GetName() string
}

// ConnectorFor returns the server connector for the configured network
func ConnectorFor(conf common.ReceiverConfig) (IServerConnector, error) {
	switch conf.Network {
	case "tcp":
		return &tcpConnector{socketConf: conf.SocketConf}, nil
	case "unix":
		return &unixConnector{socketConf: conf.SocketConf}, nil
	default:
		return nil, fmt.Errorf("invalid network: %q. must be one of tcp, unix", conf.Network)
	}
}

// --------------------------------------------------------------------------
// TCP
// --------------------------------------------------------------------------

type tcpConnector struct {
	socketConf common.SocketConf
}

func (c *tcpConnector) GetName() string {
	return "tcp"
}

func (c *tcpConnector) Listen(endpoint string) (net.Listener, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp socket: %v", err)
	}
	return &bufferedListener{Listener: listener, readBufferSize: c.socketConf.ReadBufferSize}, nil
}

// --------------------------------------------------------------------------
// Unix
// --------------------------------------------------------------------------

type unixConnector struct {
	socketConf common.SocketConf
}

func (c *unixConnector) GetName() string {
	return "unix"
}

func (c *unixConnector) Listen(endpoint string) (net.Listener, error) {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(endpoint); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %v", err)
	}

	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %v", err)
	}
	return &bufferedListener{Listener: listener, readBufferSize: c.socketConf.ReadBufferSize}, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// bufferedListener applies the socket read buffer size to accepted connections
type bufferedListener struct {
	net.Listener
	readBufferSize int
}

type readBufferSetter interface {
	SetReadBuffer(bytes int) error
}

func (l *bufferedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if l.readBufferSize > 0 {
		if s, ok := conn.(readBufferSetter); ok {
			if err := s.SetReadBuffer(l.readBufferSize); err != nil {
				Logger.Warningf("Failed to set read buffer on %s: %v", conn.RemoteAddr(), err)
			}
		}
	}
	return conn, nil
}
