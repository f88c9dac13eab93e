// Package receiver is the listening side of the socket sinks.
//
// A Receiver accepts tcp or unix connections, decodes the frames with the
// configured encoder and passes every payload to a HandleFunc. Frames with a
// bad checksum are counted and skipped. Corrupt cobs frames are skipped as
// well since the reader finds the next delimiter, a corrupt length prefixed
// stream closes the connection.
//
// Usage:
//
//	rcv, err := receiver.New(common.ReceiverConfig{
//		Network:  "tcp",
//		Endpoint: ":7070",
//		Encoder:  common.EncoderConfig{Kind: common.EncoderCOBS, Checksum: true},
//	}, func(connID uint64, payload []byte) {
//		rec, _ := record.Decode(payload)
//		fmt.Println(connID, rec)
//	})
//	if err != nil {
//		return err
//	}
//	defer rcv.Close()
//	return rcv.Serve()
package receiver
