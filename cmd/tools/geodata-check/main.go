package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"crop-assist/internal/assessment/decision"
	"crop-assist/internal/assessment/geo"
	"crop-assist/internal/common/logger"
)

type options struct {
	lat, lon  float64
	scanLimit int
	earlyExit float64
	cropType  string
	asJSON    bool
	verbose   bool
}

type report struct {
	Path    string                   `json:"path"`
	Stats   geo.LoadStats            `json:"stats"`
	Nearest *geo.GeoRecord           `json:"nearest,omitempty"`
	Result  *decision.DecisionResult `json:"decision,omitempty"`
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "geodata-check <dataset.csv>",
		Short: "Validate a geo dataset and optionally query the nearest record",
		Example: `  geodata-check data/geo_sample.csv
  geodata-check data/geo_sample.csv --lat 17.385 --lon 78.4867 --crop cotton`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := run(cmd.Context(), args[0], cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"), opts)
			if err != nil {
				return err
			}
			return printReport(out, rep, opts.asJSON)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude to look up")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "longitude to look up")
	cmd.Flags().IntVar(&opts.scanLimit, "scan-limit", geo.DefaultScanLimit, "records scanned per lookup, 0 for all")
	cmd.Flags().Float64Var(&opts.earlyExit, "early-exit", geo.DefaultEarlyExitDistance, "stop scanning below this distance")
	cmd.Flags().StringVar(&opts.cropType, "crop", "", "evaluate the nearest record for this crop")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log skipped rows")
	cmd.MarkFlagsRequiredTogether("lat", "lon")

	return cmd
}

func run(ctx context.Context, path string, lookup bool, opts *options) (*report, error) {
	log := logger.NewNoOpLogger()
	if opts.verbose {
		log = logger.NewStructured("debug", "console")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, stats, err := geo.LoadCSV(f, log)
	if err != nil {
		return nil, err
	}
	rep := &report{Path: path, Stats: stats}
	if !lookup {
		return rep, nil
	}

	idx := geo.NewIndex(records, opts.scanLimit, opts.earlyExit)
	rec, ok := idx.Nearest(opts.lat, opts.lon)
	if !ok {
		return nil, fmt.Errorf("dataset %s has no usable records", path)
	}
	rep.Nearest = &rec

	if opts.cropType != "" {
		d, err := decision.NewEngine(decision.Config{}, decision.ZeroNoise{}).Decide(&rec, opts.cropType, decision.Inputs{
			Latitude:  opts.lat,
			Longitude: opts.lon,
		})
		if err != nil {
			return nil, err
		}
		rep.Result = d
	}
	return rep, nil
}

func printReport(out io.Writer, rep *report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(out, "%s: %d accepted, %d skipped\n", rep.Path, rep.Stats.Accepted, rep.Stats.Skipped)
	if r := rep.Nearest; r != nil {
		fmt.Fprintf(out, "nearest: %.4f, %.4f district=%q ndvi %.2f -> %.2f precipitation=%.0fmm loss=%.1f%%\n",
			r.Latitude, r.Longitude, r.District, r.NDVIBefore, r.NDVIAfter, r.PrecipitationMM, r.LossPercentage)
	}
	if d := rep.Result; d != nil {
		fmt.Fprintf(out, "decision: %s loss=%.1f%% threshold=%.0f%% eligible=%t risk=%s\n",
			d.CropType, d.PredictedLoss, d.Threshold, d.Eligible, d.RiskLevel)
	}
	return nil
}
