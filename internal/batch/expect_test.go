package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

func TestLoadExpectations_ResolvesRelativePaths(t *testing.T) {
	exp, err := LoadExpectations("testdata/expect.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exp.Description == "" || len(exp.Documents) != 2 {
		t.Fatalf("unexpected expectations %+v", exp)
	}
	want := filepath.Join("testdata", "docs", "platinum.aisp")
	if got := exp.Paths()[0]; got != want {
		t.Errorf("path %s, want %s", got, want)
	}
	if exp.Documents[0].Valid == nil || !*exp.Documents[0].Valid {
		t.Error("expected valid: true on the first document")
	}
}

func TestLoadExpectations_Errors(t *testing.T) {
	if _, err := LoadExpectations("testdata/absent.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("documents:\n  - tier: Gold\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadExpectations(path); err == nil {
		t.Error("expected error for document without path")
	}
}

func TestCheck_ReportsEveryMismatch(t *testing.T) {
	valid := true
	exp := &Expectations{Documents: []Expectation{
		{
			Path:        "a.aisp",
			Valid:       &valid,
			Tier:        "Platinum",
			Diagnostics: []string{"inconsistent"},
			Verdicts:    map[string]string{"rule_1": "true", "rule_9": "false"},
		},
		{Path: "b.aisp"},
		{Path: "c.aisp"},
	}}
	items := []Item{
		{Path: "a.aisp", Result: &validator.Result{
			Valid: false,
			Tier:  "Silver",
			Rules: []validator.RuleResult{{Name: "rule_1", Verdict: logic.Unknown}},
		}},
		{Path: "b.aisp", Err: errors.New("read failed")},
	}
	mm := exp.Check(items)
	fields := make(map[string]bool)
	for _, m := range mm {
		fields[m.Path+"/"+m.Field] = true
	}
	for _, want := range []string{
		"a.aisp/valid", "a.aisp/tier", "a.aisp/diagnostics",
		"a.aisp/verdicts.rule_1", "a.aisp/verdicts.rule_9",
		"b.aisp/document", "c.aisp/document",
	} {
		if !fields[want] {
			t.Errorf("missing mismatch %s in %v", want, mm)
		}
	}
	if len(mm) != 7 {
		t.Errorf("expected 7 mismatches, got %d: %v", len(mm), mm)
	}
}

func TestCheck_UnsetFieldsAreIgnored(t *testing.T) {
	exp := &Expectations{Documents: []Expectation{{Path: "a.aisp"}}}
	items := []Item{{Path: "./a.aisp", Result: &validator.Result{Tier: "Reject"}}}
	if mm := exp.Check(items); len(mm) != 0 {
		t.Fatalf("expected no mismatches, got %v", mm)
	}
}
