package listen

import (
	"fmt"
	"github.com/ValentinKolb/dLog/cmd/util"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/receiver"
	"github.com/ValentinKolb/dLog/lib/record"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
)

var (
	listenCmdConfig = &common.ReceiverConfig{}
	ListenCmd       = &cobra.Command{
		Use:   "listen",
		Short: "Receive frames from socket sinks",
		Long: `Accept connections from tcp or unix socket sinks and print every received record prefixed with its connection id. The configuration can be set via command line flags or environment variables. The format of the environment variables is DLOG_<flag> (e.g. DLOG_ENDPOINT=0.0.0.0:7070)

Example:
  dlog listen --network unix --endpoint /tmp/dlog.sock --checksum`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "network"
	ListenCmd.Flags().String(key, "tcp", util.WrapString("The network to listen on (tcp, unix)"))

	key = "endpoint"
	ListenCmd.Flags().String(key, "0.0.0.0:7070", util.WrapString("The address or socket path on which the receiver will listen (e.g. localhost:7070, /tmp/dlog.sock)"))

	key = "timeout"
	ListenCmd.Flags().Int(key, 0, util.WrapString("Close connections that send no frame for this many seconds (0 = never)"))

	key = "read-buffer"
	ListenCmd.Flags().Int(key, 0, util.WrapString("The size of the socket read buffer (in KB, 0 = system default)"))

	key = "raw"
	ListenCmd.Flags().Bool(key, false, util.WrapString("Print payloads as quoted strings without decoding them as records"))
}

// processConfig reads the flags and environment variables into the receiver configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	listenCmdConfig.Network = viper.GetString("network")
	listenCmdConfig.Endpoint = viper.GetString("endpoint")
	listenCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	listenCmdConfig.SocketConf.ReadBufferSize = viper.GetInt("read-buffer") * 1024
	listenCmdConfig.Encoder = util.GetEncoderConfig()

	if listenCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	rcv, err := receiver.New(*listenCmdConfig, Printer(cmd.OutOrStdout(), viper.GetBool("raw")))
	if err != nil {
		return err
	}
	if err := rcv.Listen(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s %s\n", listenCmdConfig.Network, rcv.Addr())

	// stop on ctrl-c
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		_ = rcv.Close()
	}()

	return rcv.Serve()
}

// Printer returns a receiver.HandleFunc that prints every payload as one line.
// Connections are handled concurrently, lines are never interleaved.
func Printer(out io.Writer, raw bool) receiver.HandleFunc {
	var mu sync.Mutex
	return func(connID uint64, payload []byte) {
		line := strconv.Quote(string(payload))
		if !raw {
			if rec, err := record.Decode(payload); err == nil {
				line = rec.String()
			}
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "[%d] %s\n", connID, line)
	}
}
