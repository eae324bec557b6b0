// Package main implements the CLI driver for the unusedfield linter.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/unusedfield"
)

// Options holds all command-line options for the unusedfield analyzer.
type Options struct {
	Paths           []string // the files or directories to analyze
	Verbose         bool     // enables detailed output and statistics
	JSON            bool     // enables JSON output format
	ConfigFile      string   // rule configuration file
	Exclude         []string // glob patterns of files to skip
	Visibilities    []string // field visibilities to check
	IncludeClosures bool     // count usages inside closures
	SkipManaged     bool     // skip framework-managed fields
	Workers         int      // files analyzed concurrently
	Profile         bool     // enables CPU and memory profiling
}

const (
	exitUnusedFound = 1
	exitError       = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var opts Options

func main() {
	var rootCmd = &cobra.Command{
		Use:   "unusedfield [paths...]",
		Short: "Find unused private fields in PHP classes",
		Long: `unusedfield is a linter that identifies unused private fields in PHP classes.

A field counts as used when a method, initializer or closure of the declaring
class accesses it through $this->, $this?->, self::, static::, $this:: or the
class name. Bare variables with the same name as a field never count.`,
		Example: `  unusedfield ./...                        # Analyze the current tree
  unusedfield src/Entity                   # Analyze one directory
  unusedfield -v src/Service/Mailer.php    # Verbose output
  unusedfield --json ./... > report.json   # JSON output to file
  unusedfield --visibility private,protected ./...`,
		Args:               cobra.ArbitraryArgs,
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("unusedfield version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	registerFlags(rootCmd.PersistentFlags(), &opts)

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func registerFlags(flags *pflag.FlagSet, opts *Options) {
	defaults := unusedfield.DefaultConfig()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&opts.JSON, "json", false, "Output in JSON format")
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Rule configuration file (default "+unusedfield.DefaultConfigFile+" if present)")
	flags.StringSliceVar(&opts.Exclude, "exclude", nil, "Glob patterns of files to skip")
	flags.StringSliceVar(&opts.Visibilities, "visibility", []string{"private"}, "Field visibilities to check")
	flags.BoolVar(&opts.IncludeClosures, "include-closures", defaults.IncludeClosures, "Count field accesses inside closures")
	flags.BoolVar(&opts.SkipManaged, "skip-managed", defaults.SkipManaged, "Skip fields managed by frameworks through attributes or annotations")
	flags.IntVar(&opts.Workers, "workers", defaults.Workers, "Files analyzed concurrently (0 means one per CPU)")
	flags.BoolVar(&opts.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		opts.Paths = args
	} else {
		opts.Paths = []string{"./..."}
	}

	cfg, err := resolveConfig(cmd.Flags(), &opts)
	if err != nil {
		return errWithCode(err, exitError)
	}

	slog.Info("starting unused field analysis", "paths", opts.Paths)

	result, err := runAnalysis(cmd.Context(), cfg, &opts)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(cmd.OutOrStdout(), result, &opts); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	if len(result.UnusedFields) > 0 {
		return errWithCode(nil, exitUnusedFound)
	}
	return nil
}

// resolveConfig loads the rule configuration and applies the flags the user set.
// An explicit --config must exist; the default file is only read when present.
func resolveConfig(flags *pflag.FlagSet, opts *Options) (unusedfield.Config, error) {
	cfg := unusedfield.DefaultConfig()

	path := opts.ConfigFile
	if path == "" {
		if _, err := os.Stat(unusedfield.DefaultConfigFile); err == nil {
			path = unusedfield.DefaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("stat config: %w", err)
		}
	}
	if path != "" {
		loaded, err := unusedfield.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		slog.Info("loaded config", "file", path)
		cfg = loaded
	}

	if flags.Changed("visibility") {
		cfg.Visibilities = cfg.Visibilities[:0:0]
		for _, s := range opts.Visibilities {
			v, err := phpast.ParseVisibility(s)
			if err != nil {
				return cfg, fmt.Errorf("--visibility: %w", err)
			}
			cfg.Visibilities = append(cfg.Visibilities, v)
		}
	}
	if flags.Changed("exclude") {
		cfg.Exclude = opts.Exclude
	}
	if flags.Changed("include-closures") {
		cfg.IncludeClosures = opts.IncludeClosures
	}
	if flags.Changed("skip-managed") {
		cfg.SkipManaged = opts.SkipManaged
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Stats summarizes a run.
type Stats struct {
	Files            int           `json:"files"`
	SkippedFiles     int           `json:"skipped_files"`
	Classes          int           `json:"classes"`
	TotalFields      int           `json:"total_fields"`
	UnusedFields     int           `json:"unused_fields"`
	ManagedFields    int           `json:"managed_fields"`
	DynamicAccesses  int           `json:"dynamic_accesses"`
	ShadowedNames    int           `json:"shadowed_names"`
	AnalysisDuration time.Duration `json:"analysis_duration"`
}

// Result represents the analysis output including all unused fields and
// execution statistics.
type Result struct {
	UnusedFields []unusedfield.UnusedField `json:"unused_fields"`
	Skipped      []unusedfield.SkippedFile `json:"skipped"`
	Stats        Stats                     `json:"stats"`
}

func runAnalysis(ctx context.Context, cfg unusedfield.Config, opts *Options) (*Result, error) {
	start := time.Now()

	slog.Info("loading files", "paths", opts.Paths)
	if len(cfg.Exclude) > 0 {
		slog.Info("using excludes", "patterns", cfg.Exclude)
	}

	files, err := unusedfield.LoadFiles(ctx, unusedfield.LoaderOptions{
		Paths:   opts.Paths,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("loading files: %w", err)
	}
	slog.Info("loaded files", "num", len(files))

	slog.Info("running analysis")
	analyzer := unusedfield.NewAnalyzer(unusedfield.AnalyzerOptions{Config: cfg})
	result, err := analyzer.Analyze(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("analyze files: %w", err)
	}
	duration := time.Since(start)
	slog.Info("analysis completed", "dur", duration)

	return convertToResult(analyzer, result, duration), nil
}

func convertToResult(analyzer *unusedfield.Analyzer, result *unusedfield.Result, dur time.Duration) *Result {
	r := Result{
		UnusedFields: analyzer.UnusedFields(result),
		Skipped:      result.Skipped,
	}
	r.Stats.AnalysisDuration = dur
	r.Stats.Files = result.Files
	r.Stats.SkippedFiles = len(result.Skipped)
	r.Stats.Classes = len(result.Classes)
	r.Stats.UnusedFields = len(r.UnusedFields)

	for _, cr := range result.Classes {
		r.Stats.TotalFields += len(cr.Fields)
		r.Stats.DynamicAccesses += len(cr.Dynamic)
		r.Stats.ShadowedNames += len(cr.Shadows)
		for _, f := range cr.Fields {
			if f.Managed != "" {
				r.Stats.ManagedFields++
			}
		}
	}
	return &r
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if opts.Verbose {
		handlerOpts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
		if opts.JSON {
			handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
		}
		slog.SetDefault(slog.New(handler))
	}

	if !opts.Profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !opts.Profile || cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	cpuProfile = nil
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error { return e.err }
