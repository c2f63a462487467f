// Package main replays recorded detections through the tracker and dumps reported tracks as CSV.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/LdDl/mot-cascade/internal/trackstore"
	"github.com/LdDl/mot-cascade/mot"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Options holds command line options.
type Options struct {
	Input   string
	Config  string
	CSV     string
	DB      string
	Verbose bool
}

// Frame is a single element of the input file.
type Frame struct {
	Frame      uint64          `json:"frame"`
	Detections []mot.Detection `json:"detections"`
}

// Summary is printed after replay is finished.
type Summary struct {
	Frames  int
	Records int
	Tracks  int
	Invalid int
	// Mean number of frames a track was reported
	MeanLifetime float64
}

var csvHeader = []string{"frame", "id", "display", "state", "class", "x", "y", "w", "h", "vx", "vy", "age"}

func main() {
	opts := parseFlags()
	logger := log.New(os.Stderr, "[mot-replay] ", log.LstdFlags|log.Lmicroseconds)
	if err := run(opts, logger); err != nil {
		logger.Fatalf("Replay failed: %v", err)
	}
}

// run replays opts.Input and closes every opened resource before returning.
func run(opts Options, logger *log.Logger) error {
	if opts.Input == "" {
		return errors.New("input file is required")
	}
	if opts.Verbose {
		mot.SetLogger(logger.Printf)
	}

	cfg := mot.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = mot.LoadConfig(opts.Config)
		if err != nil {
			return errors.Wrap(err, "can't load config")
		}
	}

	frames, err := readFrames(opts.Input)
	if err != nil {
		return errors.Wrap(err, "can't read input")
	}

	out := io.Writer(os.Stdout)
	if opts.CSV != "" && opts.CSV != "-" {
		file, err := os.Create(opts.CSV)
		if err != nil {
			return errors.Wrap(err, "can't create CSV file")
		}
		defer file.Close()
		out = file
	}

	var store *trackstore.Store
	if opts.DB != "" {
		store, err = trackstore.Open(opts.DB)
		if err != nil {
			return errors.Wrap(err, "can't open track store")
		}
		defer store.Close()
	}

	summary, err := replay(cfg, frames, out, store)
	if err != nil {
		return err
	}
	logger.Printf("Done: %d frames, %d records, %d tracks (mean lifetime %.1f frames), %d invalid detections",
		summary.Frames, summary.Records, summary.Tracks, summary.MeanLifetime, summary.Invalid)
	return nil
}

func parseFlags() Options {
	opts := Options{}
	flag.StringVar(&opts.Input, "input", "", "JSON file with detections per frame")
	flag.StringVar(&opts.Config, "config", "", "JSON tuning file (optional)")
	flag.StringVar(&opts.CSV, "csv", "-", "CSV output file, '-' for stdout")
	flag.StringVar(&opts.DB, "db", "", "SQLite database to record tracks into (optional)")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Log track lifecycle events")
	flag.Parse()
	return opts
}

func readFrames(path string) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read file")
	}
	frames := []Frame{}
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, errors.Wrapf(err, "can't parse %s", path)
	}
	return frames, nil
}

func replay(cfg mot.Config, frames []Frame, out io.Writer, store *trackstore.Store) (Summary, error) {
	summary := Summary{}
	tracker, err := mot.NewTracker(cfg)
	if err != nil {
		return summary, err
	}

	runID := ""
	if store != nil {
		runID, err = store.BeginRun(tracker.Epoch(), cfg)
		if err != nil {
			return summary, err
		}
	}

	writer := csv.NewWriter(out)
	writer.Comma = ';'
	if err := writer.Write(csvHeader); err != nil {
		return summary, errors.Wrap(err, "can't write CSV header")
	}

	lifetimes := make(map[uint64]int)
	order := []uint64{}
	for _, frame := range frames {
		records, err := tracker.Update(frame.Detections)
		if err != nil {
			return summary, errors.Wrapf(err, "frame %d", frame.Frame)
		}
		summary.Frames++
		summary.Records += len(records)
		summary.Invalid += tracker.Stats().Invalid
		for _, record := range records {
			if _, ok := lifetimes[record.ID]; !ok {
				order = append(order, record.ID)
			}
			lifetimes[record.ID]++
			if err := writer.Write(csvRow(frame.Frame, record)); err != nil {
				return summary, errors.Wrap(err, "can't write CSV row")
			}
		}
		if store != nil {
			if err := store.RecordFrame(runID, frame.Frame, records); err != nil {
				return summary, err
			}
		}
	}
	summary.Tracks = len(order)
	if len(order) > 0 {
		values := make([]float64, len(order))
		for i, id := range order {
			values[i] = float64(lifetimes[id])
		}
		summary.MeanLifetime = stat.Mean(values, nil)
	}

	writer.Flush()
	return summary, errors.Wrap(writer.Error(), "can't flush CSV")
}

func csvRow(frame uint64, record mot.TrackRecord) []string {
	return []string{
		strconv.FormatUint(frame, 10),
		strconv.FormatUint(record.ID, 10),
		mot.FormatID(record.ID),
		string(record.State),
		record.Class,
		formatFloat(record.BBox.X),
		formatFloat(record.BBox.Y),
		formatFloat(record.BBox.Width),
		formatFloat(record.BBox.Height),
		formatFloat(record.Velocity.X),
		formatFloat(record.Velocity.Y),
		strconv.Itoa(record.Age),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
