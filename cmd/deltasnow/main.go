// Command deltasnow converts snow depth series read from CSV into snow water
// equivalent with the delta.snow model.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/chrissnell/deltasnow/internal/batch"
	"github.com/chrissnell/deltasnow/internal/log"
	"github.com/chrissnell/deltasnow/internal/report"
	"github.com/chrissnell/deltasnow/pkg/config"
	"github.com/chrissnell/deltasnow/pkg/fixture"
	"github.com/chrissnell/deltasnow/pkg/responseformat"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitNoParity = 2
)

type options struct {
	cfgFile     string
	profile     string
	saveProfile string
	input       string
	output      string
	format      string
	hsUnit      string
	sweUnit     string
	maxGap      int
	workers     int
	despike     int
	smooth      bool
	reference   string
	tolerance   float64
	debug       bool
	logFile     string
	version     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("deltasnow", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.cfgFile, "config", "", "Path to configuration source:\n\t\t\t  YAML: deltasnow.yaml\n\t\t\t  SQLite: profiles.db (see -profile)")
	fs.StringVar(&opts.profile, "profile", config.DefaultProfile, "Parameter profile to read from a SQLite configuration")
	fs.StringVar(&opts.saveProfile, "save-profile", "", "Store the effective configuration under this profile name in the SQLite -config database and exit")
	fs.StringVar(&opts.input, "input", "-", "HS input CSV, - for stdin")
	fs.StringVar(&opts.output, "output", "-", "SWE output file, - for stdout")
	fs.StringVar(&opts.format, "format", "", "Output format: csv, json or msgpack")
	fs.StringVar(&opts.hsUnit, "hs-unit", "", "Unit of the input snow depth: mm, cm or m")
	fs.StringVar(&opts.sweUnit, "swe-unit", "", "Unit of the output SWE: mm, cm or m")
	fs.IntVar(&opts.maxGap, "max-gap", 0, "Longest run of missing values to interpolate")
	fs.IntVar(&opts.workers, "workers", 0, "Number of stations modelled in parallel")
	fs.IntVar(&opts.despike, "despike", 0, "Median filter kernel applied to HS before modelling (odd, 0 disables)")
	fs.BoolVar(&opts.smooth, "smooth", false, "Apply quantile smoothing and rate limiting to sub-daily HS")
	fs.StringVar(&opts.reference, "reference", "", "Reference SWE CSV to compare a single station against")
	fs.Float64Var(&opts.tolerance, "tolerance", report.DefaultTolerance, "Largest accepted difference to the reference, in the SWE output unit")
	fs.BoolVar(&opts.debug, "debug", false, "Turn on debugging output")
	fs.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file, rotated at 50 MB")
	fs.BoolVar(&opts.version, "version", false, "Show version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if opts.version {
		fmt.Fprintf(stdout, "deltasnow %s\n", version)
		return exitOK
	}

	if err := log.Init(opts.debug, log.FileOptions{Path: opts.logFile, MaxBackups: 3}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer log.Sync()

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		return exitError
	}

	if opts.saveProfile != "" {
		if err := config.SaveProfile(opts.cfgFile, opts.saveProfile, cfg); err != nil {
			log.Errorf("Failed to save profile %s: %v", opts.saveProfile, err)
			return exitError
		}
		log.Infow("saved profile", "profile", opts.saveProfile, "config", opts.cfgFile)
		return exitOK
	}

	parity, err := execute(ctx, cfg, opts, stdin, stdout)
	if err != nil {
		log.Errorf("Error: %v", err)
		return exitError
	}
	if !parity {
		return exitNoParity
	}
	return exitOK
}

// loadConfig layers explicitly set flags over the file and environment.
// When saving a profile the database is only read if -profile names a source
// profile; otherwise the new profile starts from the defaults.
func loadConfig(fs *flag.FlagSet, opts *options) (*config.Config, error) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	source := opts.cfgFile
	if opts.saveProfile != "" {
		if opts.cfgFile == "" {
			return nil, errors.New("-save-profile needs a SQLite database in -config")
		}
		if !set["profile"] {
			source = ""
		}
	}

	cfg, err := config.Load(source, opts.profile)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hs-unit":
			cfg.Model.HSUnit = opts.hsUnit
		case "swe-unit":
			cfg.Model.SWEUnit = opts.sweUnit
		case "max-gap":
			cfg.Gaps.MaxLength = opts.maxGap
		case "workers":
			cfg.Workers = opts.workers
		case "despike":
			cfg.DespikeKernel = opts.despike
		case "smooth":
			cfg.Smoothing.Enabled = opts.smooth
		case "format":
			cfg.Output.Format = opts.format
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// execute runs the model and writes the results. It reports false when a
// reference comparison was requested and failed the tolerance.
func execute(ctx context.Context, cfg *config.Config, opts *options, stdin io.Reader, stdout io.Writer) (bool, error) {
	params, err := cfg.Params()
	if err != nil {
		return false, err
	}
	formatter, err := responseformat.NewFormatter(cfg.Output.Format)
	if err != nil {
		return false, err
	}

	stations, err := readInput(opts.input, cfg, stdin)
	if err != nil {
		return false, err
	}
	log.Infow("loaded snow depth", "source", opts.input, "stations", len(stations))

	runner := &batch.Runner{
		Params:        params,
		Workers:       cfg.Workers,
		DespikeKernel: cfg.DespikeKernel,
		Smoothing:     cfg.SmoothingParams(),
		Logger:        log.GetSugaredLogger(),
	}
	b, err := runner.Run(ctx, stations)
	if err != nil {
		return false, err
	}

	for _, res := range b.Results {
		s := report.Summarize(res.SWE.Dates, res.SWE.SWE)
		log.Infow("station summary",
			"run_id", b.ID,
			"station", res.Station.Key(),
			"peak_swe", s.PeakSWE,
			"peak_date", s.PeakDate.Format("2006-01-02"),
			"snow_days", s.SnowDays,
			"unit", res.SWE.Unit.String(),
		)
	}

	if err := writeOutput(opts.output, stdout, func(w io.Writer) error {
		return formatter.WriteResults(w, b.ID, b.Results)
	}); err != nil {
		return false, err
	}

	if opts.reference == "" {
		return true, nil
	}
	return compareReference(b.Results, opts.reference, opts.tolerance)
}

func readInput(input string, cfg *config.Config, stdin io.Reader) ([]fixture.Station, error) {
	csvOpts := fixture.DefaultOptions()
	csvOpts.DateColumn = cfg.Input.DateColumn
	csvOpts.HSColumn = cfg.Input.HSColumn
	csvOpts.StationColumn = cfg.Input.StationColumn
	csvOpts.YearColumn = cfg.Input.YearColumn
	csvOpts.Delimiter = []rune(cfg.Input.Delimiter)[0]

	if input == "" || input == "-" {
		return fixture.ReadHS(stdin, csvOpts)
	}
	return fixture.ReadHSFile(input, csvOpts)
}

func writeOutput(output string, stdout io.Writer, write func(io.Writer) error) error {
	if output == "" || output == "-" {
		return write(stdout)
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("could not write %s: %w", output, err)
	}
	return file.Close()
}

func compareReference(results []fixture.StationResult, reference string, tolerance float64) (bool, error) {
	if len(results) != 1 {
		return false, fmt.Errorf("-reference needs exactly one station, input holds %d", len(results))
	}
	res := results[0].SWE

	refDates, refValues, err := fixture.ReadSWEFile(reference)
	if err != nil {
		return false, fmt.Errorf("could not read reference %s: %w", reference, err)
	}
	model, ref, err := report.Align(res.Dates, res.SWE, refDates, refValues)
	if err != nil {
		return false, err
	}
	stats, err := report.Compare(model, ref)
	if err != nil {
		return false, err
	}

	if !stats.Within(tolerance) {
		log.Warnw("reference parity failed", "stats", stats.String(), "tolerance", tolerance)
		return false, nil
	}
	log.Infow("reference parity passed", "stats", stats.String(), "tolerance", tolerance)
	return true, nil
}
