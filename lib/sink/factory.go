package sink

import (
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"os"
)

// FromConfig returns the Opener described by conf.
// For SinkNone it returns a nil Opener: no sink should be attached.
func FromConfig(conf common.SinkConfig) (Opener, error) {
	switch conf.Kind {
	case common.SinkNone, "":
		return nil, nil
	case common.SinkFile:
		if conf.Target == "" {
			return nil, fmt.Errorf("file sink requires a target path")
		}
		return File(conf.Target, conf.Append, conf.BufferSize), nil
	case common.SinkStdout:
		return Writer(os.Stdout), nil
	case common.SinkTCP:
		return Socket(NewTCPConnector(conf.TCPConf, conf.SocketConf), conf.Target, conf.BufferSize), nil
	case common.SinkUnix:
		return Socket(NewUnixConnector(), conf.Target, conf.BufferSize), nil
	default:
		return nil, fmt.Errorf("invalid sink %s (expected one of: none, file, stdout, tcp, unix)", conf.Kind)
	}
}
