// Package report renders validation results as JSON, YAML or tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// Format selects the renderer.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Table    Format = "table"
	Markdown Format = "markdown"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, YAML, Table, Markdown:
		return f, nil
	case "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml, table or markdown)", s)
}

// Write renders results to w. A single result is written as an object;
// several as a list.
func Write(w io.Writer, f Format, results ...*validator.Result) error {
	switch f {
	case JSON:
		return writeJSON(w, results)
	case YAML:
		return writeYAML(w, results)
	case Table, Markdown:
		_, err := io.WriteString(w, Tables(f, results...))
		return err
	}
	return fmt.Errorf("unknown output format %q", f)
}

// #region structured

func payload(results []*validator.Result) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}

func writeJSON(w io.Writer, results []*validator.Result) error {
	return WriteValue(w, JSON, payload(results))
}

func writeYAML(w io.Writer, results []*validator.Result) error {
	return WriteValue(w, YAML, payload(results))
}

// WriteValue encodes any JSON-taggable value as JSON or YAML. YAML goes
// through the JSON form so both renderings share field names.
func WriteValue(w io.Writer, f Format, v any) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case YAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("format %q is not structured", f)
}

// Structured reports whether f is JSON or YAML.
func (f Format) Structured() bool { return f == JSON || f == YAML }

// #endregion structured

// #region tables

// Tables renders a summary of every result. A single result also gets its
// property and diagnostic tables.
func Tables(f Format, results ...*validator.Result) string {
	var b strings.Builder
	b.WriteString(render(f, summary(results)))
	b.WriteByte('\n')
	if len(results) == 1 {
		res := results[0]
		if len(res.Rules) > 0 {
			b.WriteByte('\n')
			b.WriteString(render(f, properties(res)))
			b.WriteByte('\n')
		}
		if len(res.Diagnostics) > 0 {
			b.WriteByte('\n')
			b.WriteString(render(f, diagnostics(res)))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func newWriter() table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	return w
}

func render(f Format, w table.Writer) string {
	if f == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

func summary(results []*validator.Result) table.Writer {
	w := newWriter()
	w.AppendHeader(table.Row{"Document", "Valid", "Tier", "δ", "Ambiguity", "ρ", "Score", "Errors"})
	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
		}
		w.AppendRow(table.Row{
			r.Document,
			verdictMark(r.Valid),
			r.TierGlyph + " " + r.Tier,
			fmt.Sprintf("%.3f", r.Delta),
			fmt.Sprintf("%.4f", r.Ambiguity),
			fmt.Sprintf("%.2f", r.PureDensity),
			fmt.Sprintf("%.2f", r.SoftScore),
			len(r.Errors()),
		})
	}
	if len(results) > 1 {
		w.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d", valid, len(results))})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 48},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	return w
}

func properties(res *validator.Result) table.Writer {
	w := newWriter()
	w.AppendHeader(table.Row{"Name", "Property", "Verdict", "Engine", "Detail", "Statement"})
	for _, r := range res.Rules {
		detail := string(r.Reason)
		if len(r.Core) > 0 {
			detail = "core: " + strings.Join(r.Core, ", ")
		}
		if len(r.Counterexample) > 0 {
			detail = fmt.Sprintf("counterexample: %d bindings", len(r.Counterexample))
		}
		w.AppendRow(table.Row{r.Name, r.Property, r.Verdict, r.Engine, detail, r.Source})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 40},
		{Number: 6, WidthMax: 48},
	})
	return w
}

func diagnostics(res *validator.Result) table.Writer {
	w := newWriter()
	w.AppendHeader(table.Row{"Severity", "Kind", "Location", "Message"})
	for _, d := range res.Diagnostics {
		w.AppendRow(table.Row{d.Severity, d.Kind, location(d.Location), d.Message})
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 72}})
	return w
}

func location(l validator.Location) string {
	switch {
	case l.Line > 0 && l.Block != "":
		return fmt.Sprintf("%d:%d %s", l.Line, l.Col, l.Block)
	case l.Line > 0:
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	case l.Block != "":
		return string(l.Block)
	}
	return "-"
}

func verdictMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// #endregion tables
