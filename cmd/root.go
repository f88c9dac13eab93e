package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dLog/cmd/bench"
	"github.com/ValentinKolb/dLog/cmd/decode"
	"github.com/ValentinKolb/dLog/cmd/emit"
	"github.com/ValentinKolb/dLog/cmd/listen"
	"github.com/ValentinKolb/dLog/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dlog",
		Short: "concurrency safe framed logging",
		Long: fmt.Sprintf(`dLog (v%s)

Write, ship and read framed log records. Any number of producers share one
frame lock, every record is written as exactly one self-delimiting frame
(COBS or length prefixed) to a file, stdout or a socket.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dLog",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dLog v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(emit.EmitCmd)
	RootCmd.AddCommand(decode.DecodeCmd)
	RootCmd.AddCommand(listen.ListenCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupEncoderFlags(RootCmd)
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("Level of the diagnostic output on stderr (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
