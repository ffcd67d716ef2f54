package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/aisp-verify/internal/certstore"
	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/logging"
	"github.com/danielpatrickdp/aisp-verify/internal/report"
)

var errNoStore = errors.New("no certificate store configured (set store.driver or AISP_STORE)")

func (a *app) requireStore() (certstore.Backend, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errNoStore
	}
	return store, nil
}

func (a *app) writeTable(w table.Writer) error {
	w.SetStyle(table.StyleLight)
	out := w.Render()
	if a.format == report.Markdown {
		out = w.RenderMarkdown()
	}
	_, err := fmt.Fprintln(a.stdout, out)
	return err
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the certificate store",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			defer store.Close()
			certs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.format.Structured() {
				return report.WriteValue(a.stdout, a.format, certs)
			}
			w := table.NewWriter()
			w.AppendHeader(table.Row{"Key", "Mode", "Verdict", "Reason", "Created"})
			for _, c := range certs {
				w.AppendRow(table.Row{short(c.Key), c.Mode, c.Verdict.Value, c.Verdict.Reason, c.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			return a.writeTable(w)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 50, "maximum certificates to list")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count stored certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "driver: %s\npath:   %s\ncount:  %d\n", a.cfg.Store.Driver, a.cfg.Store.Path, n)
			return err
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "purged %d certificate(s)\n", n)
			return err
		},
	}
	cmd.AddCommand(stats, list, purge)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "List past validation runs of a document's exact content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Driver != "sqlite" {
				return errors.New("run history needs store.driver sqlite")
			}
			_, src, err := readDocument(args[0], config.HardMaxBytes)
			if err != nil {
				return err
			}
			store, err := certstore.NewStore(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			sum := sha256.Sum256(src)
			runs, err := logging.ListRuns(cmd.Context(), store.DB(), hex.EncodeToString(sum[:]), limit)
			if err != nil {
				return err
			}
			if a.format.Structured() {
				return report.WriteValue(a.stdout, a.format, runs)
			}
			w := table.NewWriter()
			w.AppendHeader(table.Row{"Run", "When", "Valid", "Tier", "δ", "Ambiguity", "Reason"})
			for _, r := range runs {
				w.AppendRow(table.Row{short(r.RunID), r.CreatedAt.Format("2006-01-02 15:04:05"), r.Valid, r.Tier, fmt.Sprintf("%.3f", r.Delta), fmt.Sprintf("%.4f", r.Ambiguity), r.Reason})
			}
			return a.writeTable(w)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}
