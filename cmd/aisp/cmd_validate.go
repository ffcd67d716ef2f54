package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/aisp-verify/internal/batch"
	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/density"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
	"github.com/danielpatrickdp/aisp-verify/internal/report"
	"github.com/danielpatrickdp/aisp-verify/internal/rpc"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// readDocument reads path, or stdin for "-". At most limit+1 bytes are
// read so an oversized document still trips the size check. Stdin gets an
// empty name.
func readDocument(path string, limit int) (string, []byte, error) {
	var r io.Reader
	name := path
	if path == "-" {
		r, name = os.Stdin, ""
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		r = f
	}
	src, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return name, src, nil
}

// #region validate

func newValidateCmd(a *app) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "validate <path…>",
		Short: "Validate documents and prove their rules",
		Long:  "Validate runs the full pipeline on each document. Use - to read stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v batch.Validator
			if remote != "" {
				client, err := rpc.NewClient(remote)
				if err != nil {
					return err
				}
				defer client.Close()
				v = client
			} else {
				local, closer, err := a.newValidator()
				if err != nil {
					return err
				}
				defer closer()
				v = local
			}

			results := make([]*validator.Result, 0, len(args))
			for _, path := range args {
				name, src, err := readDocument(path, config.HardMaxBytes)
				if err != nil {
					return err
				}
				res, err := v.Validate(cmd.Context(), name, src)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			if err := report.Write(a.stdout, a.format, results...); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Valid {
					return errInvalid
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "validate on a running aisp serve at this gRPC address")
	return cmd
}

// #endregion validate

// #region density

// analyzeDensity runs the lexer, parser and density passes only.
func analyzeDensity(name string, src []byte, maxBytes int) report.DensityRow {
	row := report.DensityRow{Document: name, Tier: density.Reject, Glyph: density.Reject.Glyph()}
	if len(src) > maxBytes {
		row.Err = fmt.Sprintf("document is %d bytes, limit %d", len(src), maxBytes)
		return row
	}
	toks, err := lexer.Tokenize(src)
	if err != nil {
		row.Err = err.Error()
		return row
	}
	doc, err := parser.Parse(toks)
	if err != nil {
		row.Err = err.Error()
		return row
	}
	row.Metrics = density.Analyze(src, toks, doc)
	row.Tier = row.Metrics.Tier
	row.Glyph = row.Tier.Glyph()
	row.Ambiguity = density.MeasureAmbiguity(toks, doc).Score
	return row
}

func (a *app) densityRows(args []string) ([]report.DensityRow, error) {
	rows := make([]report.DensityRow, 0, len(args))
	for _, path := range args {
		name, src, err := readDocument(path, a.cfg.Limits.MaxBytes)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = "<stdin>"
		}
		rows = append(rows, analyzeDensity(name, src, a.cfg.Limits.MaxBytes))
	}
	return rows, nil
}

func newTierCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tier <path…>",
		Short: "Report each document's quality tier from its density",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.densityRows(args)
			if err != nil {
				return err
			}
			return a.finishDensity(rows, true)
		},
	}
}

func newDensityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "density <path…>",
		Short: "Report density, binding and ambiguity metrics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.densityRows(args)
			if err != nil {
				return err
			}
			return a.finishDensity(rows, false)
		},
	}
}

// finishDensity writes rows and fails when a document is below the
// configured minimum tier or did not parse.
func (a *app) finishDensity(rows []report.DensityRow, brief bool) error {
	if err := report.WriteDensity(a.stdout, a.format, brief, rows); err != nil {
		return err
	}
	minTier := a.cfg.GateConfig().MinTier
	for _, r := range rows {
		if r.Err != "" || r.Tier < minTier {
			return errInvalid
		}
	}
	return nil
}

// #endregion density
