package bench

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dLog/cmd/util"
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/ValentinKolb/dLog/lib/framelock"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	BenchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Performance testing tool for the frame lock",
		Long: `Run concurrent producers against one frame lock and report the latency of a complete frame (acquire, write, release).

Example:
  dlog bench --producers 16 --frames 10000 --sink file --sink-target /tmp/bench.frames --metrics`,
		PreRunE: processConfig,
		RunE:    run,
	}
	benchProducers   = 8
	benchFrames      = 10000
	benchPayloadSize = 128
	benchChunks      = 1
)

func init() {
	util.SetupSinkFlags(BenchCmd, common.SinkNone)

	key := "producers"
	BenchCmd.Flags().Int(key, 8, util.WrapString("Number of concurrent producers"))
	key = "frames"
	BenchCmd.Flags().Int(key, 10000, util.WrapString("Number of frames written by each producer"))
	key = "payload-size"
	BenchCmd.Flags().Int(key, 128, util.WrapString("Size of the payload of every frame (in bytes)"))
	key = "chunks"
	BenchCmd.Flags().Int(key, 1, util.WrapString("Number of writes the payload of one frame is split into"))
	key = "metrics"
	BenchCmd.Flags().Bool(key, false, util.WrapString("Print the metrics of the frame lock in Prometheus text format"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	benchProducers = viper.GetInt("producers")
	benchFrames = viper.GetInt("frames")
	benchPayloadSize = viper.GetInt("payload-size")
	benchChunks = viper.GetInt("chunks")

	if benchProducers < 1 || benchFrames < 1 {
		return fmt.Errorf("producers and frames must be at least 1")
	}
	if benchPayloadSize < 0 || benchChunks < 1 {
		return fmt.Errorf("payload-size must not be negative and chunks must be at least 1")
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Performance testing tool for the dLog frame lock")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	encConf := util.GetEncoderConfig()
	sinkConf := util.GetSinkConfig()
	fmt.Fprint(out, encConf.String())
	fmt.Fprint(out, sinkConf.String())
	fmt.Fprintf(out, "\nProducers: %d, Frames: %d, Payload: %d B in %d chunks\n\n",
		benchProducers, benchFrames, benchPayloadSize, benchChunks)

	lock, err := util.OpenFrameLock("bench")
	if err != nil {
		return err
	}

	result := Run(lock, benchProducers, benchFrames, benchPayloadSize, benchChunks)

	if err := lock.DetachSink(); err != nil {
		return err
	}

	result.Print(out)

	if viper.GetBool("metrics") {
		fmt.Fprintln(out)
		lock.WritePrometheus(out)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, result, encConf, sinkConf); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Benchmark
// --------------------------------------------------------------------------

// Result holds the latency distribution of one benchmark run
type Result struct {
	Timer    gometrics.Timer
	Errors   int64
	Duration time.Duration
}

// Run starts producers goroutines that each write frames frames of payloadSize
// bytes, split into chunks writes, through lock.
func Run(lock framelock.IFrameLock, producers, frames, payloadSize, chunks int) Result {
	timer := gometrics.NewTimer()
	defer timer.Stop()
	errCounter := gometrics.NewCounter()

	payload := make([]byte, payloadSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	chunkSize := (payloadSize + chunks - 1) / chunks

	var wg sync.WaitGroup
	start := time.Now()
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < frames; i++ {
				frameStart := time.Now()

				tok := lock.Acquire()
				var err error
				for off := 0; off < len(payload) && err == nil; off += chunkSize {
					end := min(off+chunkSize, len(payload))
					err = lock.Write(tok, payload[off:end])
				}
				if rerr := lock.Release(tok); err == nil {
					err = rerr
				}

				timer.UpdateSince(frameStart)
				if err != nil {
					errCounter.Inc(1)
				}
			}
		}()
	}
	wg.Wait()

	return Result{
		Timer:    timer.Snapshot(),
		Errors:   errCounter.Count(),
		Duration: time.Since(start),
	}
}

var percentiles = []float64{0.5, 0.9, 0.99, 0.999}

// Print writes the result in a formatted way
func (r Result) Print(out io.Writer) {
	count := r.Timer.Count()
	perSec := float64(count) / r.Duration.Seconds()

	fmt.Fprintf(out, "%-12s%d (%d failed)\n", "frames", count, r.Errors)
	fmt.Fprintf(out, "%-12s%s\n", "duration", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "%-12s%.0f frames/sec\n", "throughput", perSec)
	fmt.Fprintf(out, "%-12s%s\n", "mean", time.Duration(r.Timer.Mean()))
	fmt.Fprintf(out, "%-12s%s\n", "min", time.Duration(r.Timer.Min()))
	for i, v := range r.Timer.Percentiles(percentiles) {
		fmt.Fprintf(out, "%-12s%s\n", percentileName(percentiles[i]), time.Duration(v))
	}
	fmt.Fprintf(out, "%-12s%s\n", "max", time.Duration(r.Timer.Max()))
}

func percentileName(p float64) string {
	return "p" + strconv.FormatFloat(p*100, 'g', 4, 64)
}

// writeResultsToCSV writes the benchmark result to a CSV file
func writeResultsToCSV(csvPath string, r Result, encConf common.EncoderConfig, sinkConf common.SinkConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Frames", "Failed", "DurationNs", "FramesPerSec", "MeanNs", "MinNs", "MaxNs",
		"Encoder", "Checksum", "Compress", "Sink",
		"Producers", "PayloadSize", "Chunks",
	}
	for _, p := range percentiles {
		header = append(header, percentileName(p)+"Ns")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	row := []string{
		strconv.FormatInt(r.Timer.Count(), 10),
		strconv.FormatInt(r.Errors, 10),
		strconv.FormatInt(r.Duration.Nanoseconds(), 10),
		fmt.Sprintf("%.0f", float64(r.Timer.Count())/r.Duration.Seconds()),
		fmt.Sprintf("%.0f", r.Timer.Mean()),
		strconv.FormatInt(r.Timer.Min(), 10),
		strconv.FormatInt(r.Timer.Max(), 10),
		string(encConf.Kind),
		strconv.FormatBool(encConf.Checksum),
		strconv.FormatBool(encConf.Compress),
		string(sinkConf.Kind),
		strconv.Itoa(benchProducers),
		strconv.Itoa(benchPayloadSize),
		strconv.Itoa(benchChunks),
	}
	for _, v := range r.Timer.Percentiles(percentiles) {
		row = append(row, fmt.Sprintf("%.0f", v))
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}
	return nil
}
