package receiver

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/encoder"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("receiver")

// HandleFunc is called for every frame received on a connection. payload is
// only valid for the duration of the call. Calls for one connection are
// sequential, calls for different connections run concurrently.
type HandleFunc func(connID uint64, payload []byte)

// ConnStats holds the counters of one live connection
type ConnStats struct {
	ConnID uint64
	Remote string
	Frames uint64
	Bytes  uint64
	Errors uint64
}

type connState struct {
	conn   net.Conn
	remote string
	frames atomic.Uint64
	bytes  atomic.Uint64
	errors atomic.Uint64
}

// Receiver accepts connections from socket sinks and decodes their frames
type Receiver struct {
	conf      common.ReceiverConfig
	connector IServerConnector
	handler   HandleFunc

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	conns  *xsync.MapOf[uint64, *connState]
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// ErrClosed is returned by Listen and Serve after Close
var ErrClosed = errors.New("receiver closed")

// New creates a receiver for conf. The encoder configuration is validated here
// so that configuration errors show up before the first connection.
func New(conf common.ReceiverConfig, handler HandleFunc) (*Receiver, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}
	connector, err := ConnectorFor(conf)
	if err != nil {
		return nil, err
	}
	if _, err := encoder.New(conf.Encoder); err != nil {
		return nil, err
	}

	return &Receiver{
		conf:      conf,
		connector: connector,
		handler:   handler,
		conns:     xsync.NewMapOf[uint64, *connState](),
	}, nil
}

// Listen binds the listener. Call Serve to accept connections.
func (r *Receiver) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.listener != nil {
		return nil
	}

	listener, err := r.connector.Listen(r.conf.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	r.listener = listener

	Logger.Infof("Receiving %s frames via %s on %s", r.conf.Encoder.Kind, r.connector.GetName(), listener.Addr())
	return nil
}

// Addr returns the address of the listener or nil if Listen was not called
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Serve accepts connections until Close is called. It calls Listen if needed
// and returns nil after Close.
func (r *Receiver) Serve() error {
	if err := r.Listen(); err != nil {
		return err
	}

	r.mu.Lock()
	listener := r.listener
	r.mu.Unlock()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				Logger.Warningf("Accept error: %v", err)
				continue
			}
			return fmt.Errorf("accept failed: %v", err)
		}

		// wg.Add must not race with wg.Wait in Close
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		r.wg.Add(1)
		r.mu.Unlock()

		go r.handleConnection(conn)
	}
}

// Stats returns the counters of all live connections ordered by id
func (r *Receiver) Stats() []ConnStats {
	var stats []ConnStats
	r.conns.Range(func(id uint64, c *connState) bool {
		stats = append(stats, ConnStats{
			ConnID: id,
			Remote: c.remote,
			Frames: c.frames.Load(),
			Bytes:  c.bytes.Load(),
			Errors: c.errors.Load(),
		})
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].ConnID < stats[j].ConnID })
	return stats
}

// Close stops the listener, closes all connections and waits for their
// handlers to return.
func (r *Receiver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	listener := r.listener
	r.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	r.conns.Range(func(_ uint64, c *connState) bool {
		_ = c.conn.Close()
		return true
	})
	r.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (r *Receiver) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// handleConnection decodes frames of one connection until it is closed
func (r *Receiver) handleConnection(conn net.Conn) {
	defer r.wg.Done()
	defer conn.Close()

	id := r.nextID.Add(1)
	state := &connState{conn: conn, remote: conn.RemoteAddr().String()}
	r.conns.Store(id, state)
	defer r.conns.Delete(id)

	// Close may have run between Accept and Store
	if r.isClosed() {
		return
	}

	Logger.Debugf("Connection %d opened (%s)", id, state.remote)

	reader, err := encoder.NewReader(r.conf.Encoder, conn)
	if err != nil {
		Logger.Errorf("Connection %d: failed to create reader: %v", id, err)
		return
	}

	timeout := time.Duration(r.conf.TimeoutSecond) * time.Second
	// cobs readers resynchronize at the next delimiter, length readers can not
	resync := r.conf.Encoder.Kind != common.EncoderLength

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Connection %d: failed to set read deadline: %v", id, err)
				return
			}
		}

		payload, err := reader.Next()
		switch {
		case err == nil:
			state.frames.Add(1)
			state.bytes.Add(uint64(len(payload)))
			r.handler(id, payload)
			continue

		case errors.Is(err, io.EOF):
			Logger.Debugf("Connection %d closed by peer", id)
			return

		case errors.Is(err, encoder.ErrChecksum) || (resync && errors.Is(err, encoder.ErrCorruptFrame)):
			state.errors.Add(1)
			Logger.Warningf("Connection %d: dropped frame: %v", id, err)
			continue

		default:
			state.errors.Add(1)
			if !r.isClosed() {
				Logger.Errorf("Connection %d: %v", id, err)
			}
			return
		}
	}
}
