package decode

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLog/cmd/util"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/encoder"
	"github.com/ValentinKolb/dLog/lib/record"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"strconv"
)

var (
	DecodeCmd = &cobra.Command{
		Use:   "decode [file]",
		Short: "Print the records of a frame stream",
		Long: `Read frames from a file (or stdin if no file is given) and print the decoded records, one per line.

Frames with a bad checksum are reported on stderr and skipped. Payloads that are not records are printed as quoted strings.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "raw"
	DecodeCmd.Flags().Bool(key, false, util.WrapString("Print payloads as quoted strings without decoding them as records"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

func run(cmd *cobra.Command, args []string) error {
	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	stats, err := Stream(util.GetEncoderConfig(), in, out, viper.GetBool("raw"))
	if stats.Dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d frames decoded, %d dropped\n", stats.Frames, stats.Dropped)
	}
	return err
}

// StreamStats counts the frames seen by Stream
type StreamStats struct {
	Frames  int
	Dropped int
}

// Stream decodes all frames of in and prints them to out. Damaged cobs frames
// are skipped, a damaged length prefixed stream ends decoding with an error.
func Stream(conf common.EncoderConfig, in io.Reader, out io.Writer, raw bool) (StreamStats, error) {
	var stats StreamStats

	reader, err := encoder.NewReader(conf, in)
	if err != nil {
		return stats, err
	}

	for {
		payload, err := reader.Next()
		switch {
		case err == nil:
			stats.Frames++
			if err := printPayload(out, payload, raw); err != nil {
				return stats, err
			}

		case err == io.EOF:
			return stats, nil

		case errors.Is(err, encoder.ErrChecksum),
			errors.Is(err, encoder.ErrCorruptFrame) && conf.Kind != common.EncoderLength:
			stats.Dropped++

		default:
			return stats, fmt.Errorf("frame %d: %w", stats.Frames+stats.Dropped, err)
		}
	}
}

func printPayload(out io.Writer, payload []byte, raw bool) error {
	if !raw {
		if rec, err := record.Decode(payload); err == nil {
			_, err := fmt.Fprintln(out, rec.String())
			return err
		}
	}
	_, err := fmt.Fprintln(out, strconv.Quote(string(payload)))
	return err
}
