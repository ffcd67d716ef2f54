package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

func sample() *validator.Result {
	return &validator.Result{
		Document:    "platinum.aisp",
		ContentHash: "abc",
		Valid:       true,
		Tier:        "Platinum",
		TierGlyph:   "◊⁺⁺",
		Delta:       1,
		PureDensity: 0.42,
		SoftScore:   0.9,
		Rules: []validator.RuleResult{
			{Name: "rule_1", Property: validator.PropEntailment, Verdict: logic.True, Engine: validator.EngineDeduction, Core: []string{"ax_nat_nonneg"}, Source: "∀x:Count:x≥0"},
		},
		Diagnostics: []validator.Diagnostic{
			{Kind: validator.KindEvidenceMismatch, Severity: validator.SeverityWarning, Location: validator.Location{Offset: 12, Line: 3, Col: 4}, Message: "declared δ=0.5 but computed δ=1.000"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": JSON, "YAML": YAML, " table ": Table, "md": Markdown} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestWriteJSONSingleAndMany(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("single result should be an object: %v", err)
	}
	if obj["valid"] != true || obj["tier"] != "Platinum" {
		t.Fatalf("unexpected fields: %v", obj)
	}
	rules := obj["rules"].([]any)
	if rules[0].(map[string]any)["verdict"] != "true" {
		t.Fatalf("verdict should render as text: %v", rules[0])
	}

	buf.Reset()
	if err := Write(&buf, JSON, sample(), sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var list []any
	if err := json.Unmarshal(buf.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("expected a list of 2, got %v (%v)", list, err)
	}
}

func TestWriteYAMLSharesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, YAML, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var obj map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	if obj["content_hash"] != "abc" {
		t.Fatalf("expected content_hash key, got %v", obj)
	}
}

func TestTablesIncludeDetailForSingleResult(t *testing.T) {
	out := Tables(Table, sample())
	for _, want := range []string{"platinum.aisp", "◊⁺⁺ Platinum", "rule_1", "core: ax_nat_nonneg", "3:4", "evidence_mismatch"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	many := Tables(Markdown, sample(), sample())
	if strings.Contains(many, "rule_1") {
		t.Errorf("multi-result output should only summarise:\n%s", many)
	}
	if !strings.Contains(many, "2/2") || !strings.Contains(many, "|") {
		t.Errorf("expected markdown summary with footer:\n%s", many)
	}
}
