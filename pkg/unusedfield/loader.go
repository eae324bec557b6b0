// Package unusedfield provides unused private field analysis for PHP code.
package unusedfield

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/715d/unusedfield/pkg/phpparse"
)

// skippedDirs are never descended into when expanding directories.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// LoaderOptions configures file discovery.
type LoaderOptions struct {
	// Paths are files, directories or "dir/..." patterns to analyze.
	Paths []string

	// Dir is the directory relative paths are resolved against.
	// If empty, uses the current working directory.
	Dir string

	// Exclude holds glob patterns matched against slash-separated paths
	// relative to Dir. A pattern also matches any path below a matching directory.
	Exclude []string
}

// LoadFiles expands the given paths into the sorted list of PHP files to analyze.
func LoadFiles(ctx context.Context, opts LoaderOptions) ([]string, error) {
	// Default to the whole tree.
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"./..."}
	}

	excludes, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range paths {
		root := strings.TrimSuffix(pattern, "...")
		root = filepath.Clean(resolve(opts.Dir, root))

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", pattern, err)
		}

		if !info.IsDir() {
			if !excluded(excludes, opts.Dir, root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && (skippedDirs[d.Name()] || excluded(excludes, opts.Dir, path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if phpparse.IsPHPFile(path) && !excluded(excludes, opts.Dir, path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", pattern, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no PHP files found matching patterns: %v", paths)
	}

	slices.Sort(files)
	return files, nil
}

func resolve(dir, path string) string {
	if path == "" {
		path = "."
	}
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// excluded matches path, made relative to dir, against the exclude patterns.
func excluded(globs []glob.Glob, dir, path string) bool {
	if len(globs) == 0 {
		return false
	}

	base := dir
	if base == "" {
		base = "."
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, g := range globs {
		if g.Match(rel) || g.Match(filepath.ToSlash(path)) {
			return true
		}
	}
	return false
}
