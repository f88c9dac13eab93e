// Package sink provides the byte destinations frames are written to.
//
// A sink only has to write bytes and flush them (ISink). Sinks are created
// through an Opener so that a framelock.FrameLock can open the target at the
// moment it attaches the sink, and keep the previous sink if opening fails.
//
// Implementations:
//
//   - File: a (buffered) file, truncated or appended to
//   - Socket: a (buffered) tcp or unix socket connection, see lib/receiver
//     for the other end
//   - Writer: any io.Writer, e.g. os.Stdout
//   - MemorySink: an in-memory, optionally bounded ring buffer used for tests
//     and diagnostics
//
// Sinks that hold resources implement io.Closer. The FrameLock closes a sink
// when it is replaced or detached.
package sink
