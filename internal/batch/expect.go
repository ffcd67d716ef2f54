package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// #region expectation-types

// Expectations is the top-level YAML structure of a regression file.
type Expectations struct {
	Description string        `yaml:"description"`
	Documents   []Expectation `yaml:"documents"`

	// dir is the directory of the expectations file; document paths are
	// relative to it.
	dir string
}

// Expectation pins the outcome of one document. Unset fields are not
// checked.
type Expectation struct {
	Path        string            `yaml:"path"`
	Valid       *bool             `yaml:"valid,omitempty"`
	Tier        string            `yaml:"tier,omitempty"`
	Diagnostics []string          `yaml:"diagnostics,omitempty"`
	Verdicts    map[string]string `yaml:"verdicts,omitempty"`
}

// Mismatch is one expectation a result failed to meet.
type Mismatch struct {
	Path     string `json:"path"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s expected %s, got %s", m.Path, m.Field, m.Expected, m.Actual)
}

// #endregion expectation-types

// #region expectation-loader

// LoadExpectations reads and parses a YAML expectations file.
func LoadExpectations(path string) (*Expectations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expectations %s: %w", path, err)
	}
	var e Expectations
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse expectations %s: %w", path, err)
	}
	for i, d := range e.Documents {
		if d.Path == "" {
			return nil, fmt.Errorf("parse expectations %s: document %d has no path", path, i)
		}
	}
	e.dir = filepath.Dir(path)
	return &e, nil
}

// Paths returns the document paths resolved against the expectations file.
func (e *Expectations) Paths() []string {
	out := make([]string, len(e.Documents))
	for i, d := range e.Documents {
		out[i] = e.resolve(d.Path)
	}
	return out
}

func (e *Expectations) resolve(p string) string {
	if filepath.IsAbs(p) || e.dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(e.dir, p)
}

// #endregion expectation-loader

// #region check

// Check compares items against the expectations. A document named in the
// file but missing from items, or one that failed to validate, is a
// mismatch.
func (e *Expectations) Check(items []Item) []Mismatch {
	byPath := make(map[string]Item, len(items))
	for _, it := range items {
		byPath[filepath.Clean(it.Path)] = it
	}
	var out []Mismatch
	for _, exp := range e.Documents {
		path := e.resolve(exp.Path)
		it, ok := byPath[path]
		switch {
		case !ok:
			out = append(out, Mismatch{Path: path, Field: "document", Expected: "validated", Actual: "missing"})
			continue
		case it.Err != nil:
			out = append(out, Mismatch{Path: path, Field: "document", Expected: "validated", Actual: it.Err.Error()})
			continue
		}
		out = append(out, exp.compare(path, it.Result)...)
	}
	return out
}

func (exp Expectation) compare(path string, res *validator.Result) []Mismatch {
	var out []Mismatch
	add := func(field, want, got string) {
		out = append(out, Mismatch{Path: path, Field: field, Expected: want, Actual: got})
	}
	if exp.Valid != nil && *exp.Valid != res.Valid {
		add("valid", fmt.Sprint(*exp.Valid), fmt.Sprint(res.Valid))
	}
	if exp.Tier != "" && exp.Tier != res.Tier {
		add("tier", exp.Tier, res.Tier)
	}
	kinds := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		kinds = append(kinds, string(d.Kind))
	}
	for _, want := range exp.Diagnostics {
		if !slices.Contains(kinds, want) {
			add("diagnostics", want, fmt.Sprint(kinds))
		}
	}
	names := make([]string, 0, len(exp.Verdicts))
	for name := range exp.Verdicts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		want := exp.Verdicts[name]
		rr, ok := res.Rule(name)
		if !ok {
			add("verdicts."+name, want, "absent")
			continue
		}
		if got := rr.Verdict.String(); got != want {
			add("verdicts."+name, want, got)
		}
	}
	return out
}

// #endregion check
