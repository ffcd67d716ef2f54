package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/aisp-verify/internal/density"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
	"github.com/danielpatrickdp/aisp-verify/internal/report"
)

type debugToken struct {
	Offset   int    `json:"offset"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

type debugBlock struct {
	Tag        string   `json:"tag"`
	Offset     int      `json:"offset"`
	Statements []string `json:"statements"`
}

type debugDump struct {
	Document    string                   `json:"document"`
	Tokens      []debugToken             `json:"tokens"`
	Blocks      []debugBlock             `json:"blocks,omitempty"`
	Definitions []string                 `json:"definitions,omitempty"`
	Fingerprint string                   `json:"fingerprint,omitempty"`
	Readings    []density.Interpretation `json:"readings,omitempty"`
	Divergences []density.Divergence     `json:"divergences,omitempty"`
	Ambiguity   float64                  `json:"ambiguity"`
	LexError    string                   `json:"lex_error,omitempty"`
	ParseError  string                   `json:"parse_error,omitempty"`
}

func newDebugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "debug <path>",
		Short: "Dump tokens, AST, definition order and per-strategy fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, src, err := readDocument(args[0], a.cfg.Limits.MaxBytes)
			if err != nil {
				return err
			}
			if len(src) > a.cfg.Limits.MaxBytes {
				return fmt.Errorf("%s exceeds %d bytes", args[0], a.cfg.Limits.MaxBytes)
			}
			d := buildDump(name, src)
			if a.format.Structured() {
				return report.WriteValue(a.stdout, a.format, d)
			}
			_, err = fmt.Fprint(a.stdout, d.render(a.format == report.Markdown))
			return err
		},
	}
}

func buildDump(name string, src []byte) debugDump {
	d := debugDump{Document: name}
	toks, err := lexer.Tokenize(src)
	for _, t := range toks {
		line, col := lexer.Position(src, t.Offset)
		d.Tokens = append(d.Tokens, debugToken{
			Offset: t.Offset, Line: line, Col: col,
			Kind: t.Kind.String(), Category: t.Category.String(), Text: t.Text,
		})
	}
	if err != nil {
		d.LexError = err.Error()
		return d
	}
	doc, err := parser.Parse(toks)
	if err != nil {
		d.ParseError = err.Error()
		return d
	}
	for _, b := range doc.Blocks {
		db := debugBlock{Tag: string(b.Tag), Offset: b.Offset}
		for _, s := range b.Statements {
			db.Statements = append(db.Statements, s.String())
		}
		d.Blocks = append(d.Blocks, db)
	}
	d.Definitions = parser.BuildDepGraph(doc).TopoOrder()
	d.Fingerprint = doc.Fingerprint()
	amb := density.MeasureAmbiguity(toks, doc)
	d.Readings = amb.Interpretations
	d.Divergences = amb.Divergences
	d.Ambiguity = amb.Score
	return d
}

func (d debugDump) render(markdown bool) string {
	out := func(w table.Writer) string {
		if markdown {
			return w.RenderMarkdown() + "\n\n"
		}
		return w.Render() + "\n\n"
	}
	var b strings.Builder

	toks := table.NewWriter()
	toks.SetStyle(table.StyleLight)
	toks.SetTitle("Tokens")
	toks.AppendHeader(table.Row{"Pos", "Kind", "Category", "Text"})
	for _, t := range d.Tokens {
		toks.AppendRow(table.Row{fmt.Sprintf("%d:%d", t.Line, t.Col), t.Kind, t.Category, t.Text})
	}
	b.WriteString(out(toks))

	if d.LexError != "" || d.ParseError != "" {
		fmt.Fprintf(&b, "error: %s%s\n", d.LexError, d.ParseError)
		return b.String()
	}

	ast := table.NewWriter()
	ast.SetStyle(table.StyleLight)
	ast.SetTitle("AST")
	ast.AppendHeader(table.Row{"Block", "#", "Statement"})
	for _, blk := range d.Blocks {
		for i, s := range blk.Statements {
			ast.AppendRow(table.Row{blk.Tag, i, s})
		}
	}
	b.WriteString(out(ast))

	fp := table.NewWriter()
	fp.SetStyle(table.StyleLight)
	fp.SetTitle("Readings")
	fp.AppendHeader(table.Row{"Strategy", "Fingerprint"})
	fp.AppendRow(table.Row{"canonical", short(d.Fingerprint)})
	for _, r := range d.Readings {
		v := short(r.Fingerprint)
		if r.Err != "" {
			v = "error: " + r.Err
		}
		fp.AppendRow(table.Row{r.Strategy, v})
	}
	b.WriteString(out(fp))

	fmt.Fprintf(&b, "definition order: %s\n", strings.Join(d.Definitions, " → "))
	fmt.Fprintf(&b, "ambiguity: %.4f (%d divergent statements)\n", d.Ambiguity, len(d.Divergences))
	return b.String()
}

func short(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
