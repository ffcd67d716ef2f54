// Package batch validates many documents in parallel and checks the
// outcomes against a regression file.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// #region types

// Validator is the part of *validator.Validator a batch needs.
type Validator interface {
	Validate(ctx context.Context, name string, src []byte) (*validator.Result, error)
}

// Config bounds a batch run.
type Config struct {
	Parallel   int
	Extensions []string
	Logger     *slog.Logger
}

// DefaultConfig returns a four-way parallel run over the standard
// document extensions.
func DefaultConfig() Config {
	return Config{
		Parallel:   4,
		Extensions: []string{".aisp", ".aisp5", ".md", ".txt", ".spec"},
	}
}

// Item is the outcome for one document. Err is set when the document could
// not be read or validation itself failed; an invalid document is not an
// error.
type Item struct {
	Path   string
	Result *validator.Result
	Err    error
}

// Summary provides aggregate stats from a batch run.
type Summary struct {
	Total   int            `json:"total"`
	Valid   int            `json:"valid"`
	Invalid int            `json:"invalid"`
	Errors  int            `json:"errors"`
	ByTier  map[string]int `json:"by_tier"`
}

// #endregion types

// #region expand

// Expand turns files, directories and doublestar patterns into a sorted,
// de-duplicated list of document paths. Directories and patterns are
// filtered by extension; a file named directly is always kept.
func Expand(patterns []string, extensions []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, pattern := range patterns {
		if !containsGlob(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", pattern, err)
			}
			if !info.IsDir() {
				add(pattern)
				continue
			}
			pattern = filepath.Join(pattern, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if hasExtension(m, extensions) {
				add(m)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// #endregion expand

// #region run

// Run validates every path with at most cfg.Parallel documents in flight.
// Items come back in the order of paths. Only cancellation of ctx aborts
// the run.
func Run(ctx context.Context, v Validator, paths []string, cfg Config) ([]Item, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	items := make([]Item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			items[i] = validateFile(gctx, v, path)
			if err := gctx.Err(); err != nil {
				return err
			}
			if items[i].Err != nil {
				logger.Warn("batch document failed", "path", path, "error", items[i].Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, fmt.Errorf("batch: %w", err)
	}
	return items, nil
}

func validateFile(ctx context.Context, v Validator, path string) Item {
	src, err := os.ReadFile(path)
	if err != nil {
		return Item{Path: path, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	res, err := v.Validate(ctx, path, src)
	if err != nil {
		return Item{Path: path, Err: fmt.Errorf("validate %s: %w", path, err)}
	}
	return Item{Path: path, Result: res}
}

// Results returns the results of the items that validated.
func Results(items []Item) []*validator.Result {
	out := make([]*validator.Result, 0, len(items))
	for _, it := range items {
		if it.Result != nil {
			out = append(out, it.Result)
		}
	}
	return out
}

// Summarize computes aggregate stats from batch items.
func Summarize(items []Item) Summary {
	s := Summary{Total: len(items), ByTier: make(map[string]int)}
	for _, it := range items {
		switch {
		case it.Err != nil:
			s.Errors++
		case it.Result.Valid:
			s.Valid++
			s.ByTier[it.Result.Tier]++
		default:
			s.Invalid++
			s.ByTier[it.Result.Tier]++
		}
	}
	return s
}

// #endregion run
