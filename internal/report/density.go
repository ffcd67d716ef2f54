package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/danielpatrickdp/aisp-verify/internal/density"
)

// DensityRow is the density-only analysis of one document. Err is set when
// the document did not lex or parse; Metrics is then zero.
type DensityRow struct {
	Document  string          `json:"document"`
	Tier      density.Tier    `json:"tier"`
	Glyph     string          `json:"glyph"`
	Metrics   density.Metrics `json:"metrics"`
	Ambiguity float64         `json:"ambiguity"`
	Err       string          `json:"error,omitempty"`
}

// WriteDensity renders density rows. Brief tables show only the tier
// columns.
func WriteDensity(w io.Writer, f Format, brief bool, rows []DensityRow) error {
	switch f {
	case JSON, YAML:
		if brief {
			return WriteValue(w, f, briefRows(rows))
		}
		return WriteValue(w, f, rows)
	case Table, Markdown:
		tw := densityTable(rows, brief)
		_, err := io.WriteString(w, render(f, tw)+"\n")
		return err
	}
	return fmt.Errorf("unknown output format %q", f)
}

type briefRow struct {
	Document string  `json:"document"`
	Tier     string  `json:"tier"`
	Glyph    string  `json:"glyph"`
	Delta    float64 `json:"delta"`
	Err      string  `json:"error,omitempty"`
}

func briefRows(rows []DensityRow) []briefRow {
	out := make([]briefRow, len(rows))
	for i, r := range rows {
		out[i] = briefRow{Document: r.Document, Tier: r.Tier.String(), Glyph: r.Glyph, Delta: r.Metrics.Delta, Err: r.Err}
	}
	return out
}

func densityTable(rows []DensityRow, brief bool) table.Writer {
	w := newWriter()
	if brief {
		w.AppendHeader(table.Row{"Document", "Tier", "δ", "Note"})
		for _, r := range rows {
			w.AppendRow(table.Row{r.Document, r.Glyph + " " + r.Tier.String(), fmt.Sprintf("%.3f", r.Metrics.Delta), r.Err})
		}
		w.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
		return w
	}
	w.AppendHeader(table.Row{"Document", "Tier", "δ", "Blocks", "Bindings", "ρ", "Ambiguity", "Block detail"})
	for _, r := range rows {
		if r.Err != "" {
			w.AppendRow(table.Row{r.Document, r.Glyph + " " + r.Tier.String(), "-", "-", "-", "-", "-", r.Err})
			continue
		}
		m := r.Metrics
		w.AppendRow(table.Row{
			r.Document,
			r.Glyph + " " + r.Tier.String(),
			fmt.Sprintf("%.3f", m.Delta),
			fmt.Sprintf("%.2f", m.BlockScore),
			fmt.Sprintf("%.2f", m.BindingScore),
			fmt.Sprintf("%.2f", m.PureDensity),
			fmt.Sprintf("%.4f", r.Ambiguity),
			blockDetail(m.Blocks),
		})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return w
}

func blockDetail(blocks []density.BlockCount) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if !b.Found {
			parts = append(parts, string(b.Tag)+":missing")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d/%d", b.Tag, b.Bindings, b.Expected))
	}
	return strings.Join(parts, " ")
}
