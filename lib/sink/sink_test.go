package sink

import (
	"bufio"
	"bytes"
	"github.com/ValentinKolb/dLog/lib/common"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestFileSink tests writing, flushing and closing a buffered file sink
func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")

	s, err := File(path, false, 1024)()
	if err != nil {
		t.Fatalf("Failed to open file sink: %v", err)
	}

	if err := s.Write([]byte("hello ")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := s.Write([]byte("world")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	// buffered, nothing on disk yet
	if data, _ := os.ReadFile(path); len(data) != 0 {
		t.Errorf("Expected empty file before flush, got %q", data)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", data)
	}

	if err := s.(io.Closer).Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
}

// TestFileSinkTruncateAndAppend tests the two open modes
func TestFileSinkTruncateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	writeAndClose := func(appendMode bool, data string) {
		s, err := File(path, appendMode, 0)()
		if err != nil {
			t.Fatalf("Failed to open file sink: %v", err)
		}
		if err := s.Write([]byte(data)); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		if err := s.(io.Closer).Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
	}

	writeAndClose(true, "+new")
	if data, _ := os.ReadFile(path); string(data) != "old+new" {
		t.Errorf("Append: expected %q, got %q", "old+new", data)
	}

	writeAndClose(false, "fresh")
	if data, _ := os.ReadFile(path); string(data) != "fresh" {
		t.Errorf("Truncate: expected %q, got %q", "fresh", data)
	}
}

// TestFileSinkUnavailable tests that an invalid path fails in the opener
func TestFileSinkUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "frames.bin")
	if _, err := File(path, false, 0)(); err == nil {
		t.Errorf("Expected error for path in missing directory")
	}
}

// TestMemorySinkRing tests the ring buffer behaviour of the memory sink
func TestMemorySinkRing(t *testing.T) {
	m := NewMemorySink(8)

	_ = m.Write([]byte("abcd"))
	_ = m.Write([]byte("efgh"))
	if got := string(m.Bytes()); got != "abcdefgh" {
		t.Errorf("Expected %q, got %q", "abcdefgh", got)
	}

	_ = m.Write([]byte("ij"))
	if got := string(m.Bytes()); got != "cdefghij" {
		t.Errorf("Expected %q, got %q", "cdefghij", got)
	}
	if m.Dropped() != 2 {
		t.Errorf("Expected 2 dropped bytes, got %d", m.Dropped())
	}

	_ = m.Flush()
	_ = m.Flush()
	if m.Flushes() != 2 {
		t.Errorf("Expected 2 flushes, got %d", m.Flushes())
	}

	m.Reset()
	if m.Len() != 0 || m.Dropped() != 0 || m.Flushes() != 0 {
		t.Errorf("Expected reset sink")
	}
}

// TestMemorySinkUnbounded tests that capacity 0 keeps everything
func TestMemorySinkUnbounded(t *testing.T) {
	m := NewMemorySink(0)
	payload := bytes.Repeat([]byte{0x42}, 1<<16)
	_ = m.Write(payload)
	if m.Len() != len(payload) || m.Dropped() != 0 {
		t.Errorf("Expected %d bytes and no drops, got %d bytes and %d drops", len(payload), m.Len(), m.Dropped())
	}
}

// TestWriterSinkFlushForwarding tests that Flush reaches a bufio.Writer
func TestWriterSinkFlushForwarding(t *testing.T) {
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)

	s, _ := Writer(bw)()
	_ = s.Write([]byte("frame"))
	if out.Len() != 0 {
		t.Errorf("Expected nothing written before flush")
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if out.String() != "frame" {
		t.Errorf("Expected %q, got %q", "frame", out.String())
	}
}

// TestSocketSinks tests tcp and unix socket sinks against a local listener
func TestSocketSinks(t *testing.T) {
	tests := []struct {
		name      string
		network   string
		address   string
		connector IClientConnector
	}{
		{"TCP", "tcp", "127.0.0.1:0", NewTCPConnector(common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 5}, common.SocketConf{})},
		{"Unix", "unix", filepath.Join(t.TempDir(), "dlog.sock"), NewUnixConnector()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener, err := net.Listen(tt.network, tt.address)
			if err != nil {
				t.Fatalf("Failed to listen: %v", err)
			}
			defer listener.Close()

			received := make(chan []byte, 1)
			go func() {
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
				data, _ := io.ReadAll(conn)
				received <- data
			}()

			s, err := Socket(tt.connector, listener.Addr().String(), 512)()
			if err != nil {
				t.Fatalf("Failed to open socket sink: %v", err)
			}
			_ = s.Write([]byte("over the wire"))
			if err := s.(io.Closer).Close(); err != nil {
				t.Fatalf("Failed to close socket sink: %v", err)
			}

			select {
			case data := <-received:
				if string(data) != "over the wire" {
					t.Errorf("Expected %q, got %q", "over the wire", data)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("Timeout waiting for data")
			}
		})
	}
}

// TestSocketSinkUnavailable tests that a refused connection fails in the opener
func TestSocketSinkUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nobody-listens.sock")
	if _, err := Socket(NewUnixConnector(), path, 0)(); err == nil {
		t.Errorf("Expected error connecting to missing socket")
	}
}

// TestFromConfig tests the sink factory
func TestFromConfig(t *testing.T) {
	open, err := FromConfig(common.SinkConfig{Kind: common.SinkNone})
	if err != nil || open != nil {
		t.Errorf("Expected nil opener for none sink, got %v, %v", open, err)
	}

	if _, err := FromConfig(common.SinkConfig{Kind: common.SinkFile}); err == nil {
		t.Errorf("Expected error for file sink without target")
	}

	if _, err := FromConfig(common.SinkConfig{Kind: "pigeon"}); err == nil {
		t.Errorf("Expected error for unknown sink")
	}

	path := filepath.Join(t.TempDir(), "frames.bin")
	open, err = FromConfig(common.SinkConfig{Kind: common.SinkFile, Target: path})
	if err != nil || open == nil {
		t.Fatalf("Expected file opener, got %v", err)
	}
	s, err := open()
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	_ = s.(io.Closer).Close()
}
