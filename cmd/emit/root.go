package emit

import (
	"bufio"
	"fmt"
	"github.com/ValentinKolb/dLog/cmd/util"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/record"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
)

var (
	emitLevel = record.LevelInfo

	EmitCmd = &cobra.Command{
		Use:   "emit [message...]",
		Short: "Write records as frames to a sink",
		Long: `Write every argument as one record to the configured sink. Without arguments every line read from stdin becomes one record.

Example:
  dlog emit "service started" | dlog decode
  tail -f app.log | dlog emit --sink tcp --sink-target localhost:7070 --checksum`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	util.SetupSinkFlags(EmitCmd, common.SinkStdout)

	key := "level"
	EmitCmd.Flags().String(key, "info", util.WrapString("Level of the emitted records (debug, info, warn, error)"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	level, err := record.ParseLevel(viper.GetString("level"))
	if err != nil {
		return err
	}
	emitLevel = level
	return nil
}

func run(_ *cobra.Command, args []string) error {
	lock, err := util.OpenFrameLock("emit")
	if err != nil {
		return err
	}

	log := record.NewLogger(lock, nil)
	log.SetLevel(record.LevelDebug)

	if len(args) > 0 {
		err = emitAll(log, args)
	} else {
		err = emitLines(log, os.Stdin)
	}

	// detaching flushes and closes the sink
	if derr := lock.DetachSink(); err == nil {
		err = derr
	}
	return err
}

// emitAll writes every message as one record
func emitAll(log *record.Logger, messages []string) error {
	for _, msg := range messages {
		if err := log.Log(emitLevel, msg); err != nil {
			return fmt.Errorf("failed to emit record: %w", err)
		}
	}
	return nil
}

// emitLines writes every line of r as one record
func emitLines(log *record.Logger, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := log.Log(emitLevel, scanner.Text()); err != nil {
			return fmt.Errorf("failed to emit record: %w", err)
		}
	}
	return scanner.Err()
}
