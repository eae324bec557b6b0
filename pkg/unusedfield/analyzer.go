package unusedfield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/phpparse"
	"github.com/715d/unusedfield/pkg/report"
	"github.com/715d/unusedfield/pkg/symtab"
	"github.com/715d/unusedfield/pkg/usage"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	Config Config
}

// Analyzer runs the unused field check over classes and files.
// It holds no per-class state and can analyze files concurrently.
type Analyzer struct {
	nameCache *analysis.NameCache
	cfg       Config
}

// NewAnalyzer creates a new analyzer with the given options.
// A zero Config is replaced by DefaultConfig.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	cfg := opts.Config
	if cfg.isZero() {
		cfg = DefaultConfig()
	}
	return &Analyzer{
		nameCache: analysis.NewNameCache(),
		cfg:       cfg,
	}
}

// ClassResult is the outcome of analyzing one class.
type ClassResult struct {
	// Class is the class name.
	Class string

	// File is the path of the file declaring the class.
	File string

	// Fields lists the eligible fields in declaration order.
	Fields []*analysis.FieldSymbol

	// Sites lists every resolved field usage.
	Sites []analysis.UsageSite

	// Findings lists the unused fields in declaration order.
	Findings []analysis.Finding

	// Dynamic lists accesses with computed member names.
	Dynamic []analysis.DynamicAccess

	// Shadows lists bare variables named like a field.
	Shadows []analysis.Shadow
}

// SkippedFile is a file left out of the analysis because it could not be parsed.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of analyzing a set of files.
type Result struct {
	// Classes holds per-class results ordered by file, then by position in the file.
	Classes []*ClassResult

	// Files is the number of files parsed.
	Files int

	// Skipped lists the files with syntax errors.
	Skipped []SkippedFile
}

// Findings returns all findings in file and declaration order.
func (r *Result) Findings() []analysis.Finding {
	var findings []analysis.Finding
	for _, cr := range r.Classes {
		findings = append(findings, cr.Findings...)
	}
	return findings
}

// AnalyzeClass runs the unused field check on a single class declaration.
func (a *Analyzer) AnalyzeClass(class *phpast.Class) *ClassResult {
	table := symtab.Build(class, a.cfg.Visibilities)
	used := usage.Collect(class, table, usage.Options{IncludeClosures: a.cfg.IncludeClosures})

	result := &ClassResult{
		Class:   class.Name,
		File:    class.Pos.Filename,
		Fields:  table.Symbols(),
		Sites:   used.Sites,
		Dynamic: used.Dynamic,
		Shadows: used.Shadows,
	}
	if a.cfg.Enabled {
		result.Findings = report.Unused(table, used, report.Options{SkipManaged: a.cfg.SkipManaged})
	}

	for _, d := range used.Dynamic {
		slog.Debug("computed member name, usage not resolved", "class", class.Name, "pos", d.Pos.String())
	}
	slog.Debug("analyzed class",
		"class", class.Name,
		"fields", table.Len(),
		"usages", len(result.Sites),
		"unused", len(result.Findings))
	return result
}

// AnalyzeFile runs the check on every class of a parsed file.
func (a *Analyzer) AnalyzeFile(file *phpast.File) []*ClassResult {
	results := make([]*ClassResult, 0, len(file.Classes))
	for _, class := range file.Classes {
		results = append(results, a.AnalyzeClass(class))
	}
	return results
}

// Analyze parses and analyzes the given files. Files with syntax errors are
// skipped and reported in the result; read errors abort the run.
func (a *Analyzer) Analyze(ctx context.Context, paths []string) (*Result, error) {
	// Validate input.
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files provided")
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if !a.cfg.Enabled {
		slog.Info("rule disabled, nothing to analyze")
		return &Result{}, nil
	}

	type fileResult struct {
		classes []*ClassResult
		skipped *SkippedFile
	}

	// Each goroutine writes to its own index, so no locking is needed.
	results := make([]fileResult, len(paths))

	workers := a.cfg.Workers
	if workers == 0 {
		workers = goruntime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var parsed int64

	for idx, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			parser := phpparse.New()
			defer parser.Close()

			file, err := parser.ParseFile(ctx, path)
			if errors.Is(err, phpparse.ErrSyntax) {
				slog.Warn("skipping file with syntax errors", "file", path, "error", err)
				results[idx].skipped = &SkippedFile{Path: path, Reason: err.Error()}
				return nil
			}
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			slog.Debug("parsed file", "file", path, "classes", len(file.Classes))
			results[idx].classes = a.AnalyzeFile(file)
			atomic.AddInt64(&parsed, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge all results in input order.
	result := &Result{Files: int(parsed)}
	for _, fr := range results {
		result.Classes = append(result.Classes, fr.classes...)
		if fr.skipped != nil {
			result.Skipped = append(result.Skipped, *fr.skipped)
		}
	}
	return result, nil
}
