package util

import (
	"fmt"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/encoder"
	"github.com/ValentinKolb/dLog/lib/framelock"
	"github.com/ValentinKolb/dLog/lib/sink"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and initializes viper. Every flag can be set
// via an environment variable DLOG_<FLAG> (e.g. DLOG_SINK_TARGET=/tmp/app.frames)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dlog")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and applies the log level
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// --------------------------------------------------------------------------
// Encoder
// --------------------------------------------------------------------------

// SetupEncoderFlags adds the frame encoding flags to a command
func SetupEncoderFlags(cmd *cobra.Command) {
	key := "encoder"
	cmd.PersistentFlags().String(key, "cobs", WrapString("Frame encoding to use (cobs, length)"))

	key = "checksum"
	cmd.PersistentFlags().Bool(key, false, WrapString("Append an xxhash64 checksum to every cobs frame. Length prefixed frames always carry one"))

	key = "compress"
	cmd.PersistentFlags().Bool(key, false, WrapString("Compress frame bodies with zstd (only for the length encoder)"))
}

// GetEncoderConfig reads the encoder configuration from viper
func GetEncoderConfig() common.EncoderConfig {
	return common.EncoderConfig{
		Kind:     common.EncoderKind(viper.GetString("encoder")),
		Checksum: viper.GetBool("checksum"),
		Compress: viper.GetBool("compress"),
	}
}

// --------------------------------------------------------------------------
// Sink
// --------------------------------------------------------------------------

// SetupSinkFlags adds the sink flags to a command. defaultKind is the sink
// used when neither the flag nor DLOG_SINK is set.
func SetupSinkFlags(cmd *cobra.Command, defaultKind common.SinkKind) {
	key := "sink"
	cmd.Flags().String(key, string(defaultKind), WrapString("Where to write frames to (none, file, stdout, tcp, unix)"))

	key = "sink-target"
	cmd.Flags().String(key, "", WrapString("File path or socket endpoint of the sink (e.g. /var/log/app.frames, localhost:7070, /tmp/dlog.sock)"))

	key = "sink-append"
	cmd.Flags().Bool(key, false, WrapString("Append to an existing file instead of truncating it (only for file sinks)"))

	key = "sink-buffer"
	cmd.Flags().Int(key, 64, WrapString("The size of the user space write buffer (in KB, 0 = unbuffered)"))

	key = "sink-write-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = system default, only for sockets)"))

	key = "sink-tcp-nodelay"
	cmd.Flags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "sink-tcp-keepalive"
	cmd.Flags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "sink-tcp-linger"
	cmd.Flags().Int(key, 0, WrapString("The linger time (in seconds, 0 = system default, only for tcp)"))
}

// GetSinkConfig reads the sink configuration from viper
func GetSinkConfig() common.SinkConfig {
	return common.SinkConfig{
		Kind:       common.SinkKind(viper.GetString("sink")),
		Target:     viper.GetString("sink-target"),
		Append:     viper.GetBool("sink-append"),
		BufferSize: viper.GetInt("sink-buffer") * 1024,
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("sink-write-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("sink-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("sink-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("sink-tcp-linger"),
		},
	}
}

// --------------------------------------------------------------------------
// Frame lock
// --------------------------------------------------------------------------

// OpenFrameLock creates a frame lock with the configured encoder and attaches
// the configured sink. With sink "none" the lock discards all frames.
func OpenFrameLock(name string) (*framelock.FrameLock, error) {
	enc, err := encoder.New(GetEncoderConfig())
	if err != nil {
		return nil, err
	}

	open, err := sink.FromConfig(GetSinkConfig())
	if err != nil {
		return nil, err
	}

	lock := framelock.NewFrameLock(name, enc)
	if open == nil {
		Logger.Infof("no sink configured, %s frames are discarded", enc.Name())
		return lock, nil
	}
	if err := lock.AttachSink(open); err != nil {
		return nil, fmt.Errorf("failed to attach sink: %w", err)
	}
	Logger.Debugf("opened frame lock %s with %s encoder", name, enc.Name())
	return lock, nil
}
