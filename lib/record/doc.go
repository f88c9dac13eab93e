// Package record formats log records on top of a framelock.IFrameLock.
//
// Each record is exactly one frame. Its payload holds the level, a timestamp
// in milliseconds (uvarint, Unix epoch by default) and the message bytes.
// Decode turns a frame payload back into a Record, see the dlog decode and
// dlog listen commands.
//
// Usage:
//
//	lock := framelock.NewFrameLock("app", encoder.NewCOBSEncoder(true))
//	_ = lock.AttachSink(sink.File("app.frames", false, 64*1024))
//
//	log := record.NewLogger(lock, nil)
//	_ = log.Infof("started worker %d", 3)
//
//	std := stdlog.New(log.Writer(record.LevelWarn), "", 0)
//	std.Println("legacy warning")
package record
