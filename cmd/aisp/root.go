package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/aisp-verify/internal/certstore"
	"github.com/danielpatrickdp/aisp-verify/internal/certstore/badgerstore"
	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/logging"
	"github.com/danielpatrickdp/aisp-verify/internal/report"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// app carries what every subcommand shares after flag parsing.
type app struct {
	configPath string
	formatName string
	logLevel   string
	noSMT      bool

	cfg    config.Config
	format report.Format
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "aisp",
		Short: "Validate and prove AISP specification documents",
		Long: "aisp checks AISP documents for structure, density, ambiguity and\n" +
			"vector-space isolation, then proves their rules with natural\n" +
			"deduction raced against an SMT solver.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults plus AISP_* environment when empty)")
	f.StringVarP(&a.formatName, "format", "f", "table", "output format: table, markdown, json or yaml")
	f.StringVar(&a.logLevel, "log-level", "", "override log level: debug, info, warn or error")
	f.BoolVar(&a.noSMT, "no-smt", false, "disable the SMT solver and prove with deduction only")

	root.AddCommand(
		newValidateCmd(a),
		newTierCmd(a),
		newDensityCmd(a),
		newDebugCmd(a),
		newBatchCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newCacheCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.noSMT {
		cfg.SMT.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.format, err = report.ParseFormat(a.formatName)
	if err != nil {
		return err
	}
	a.logger, err = logging.NewLogger(cfg.Log.Level, cfg.Log.Format, a.stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)
	a.cfg = cfg
	return nil
}

// #region wiring

// openStore opens the configured certificate store, or returns nil when
// the driver is "none".
func (a *app) openStore() (certstore.Backend, error) {
	switch a.cfg.Store.Driver {
	case "sqlite":
		s, err := certstore.NewStore(a.cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", a.cfg.Store.Path, err)
		}
		return s, nil
	case "badger":
		bc := badgerstore.DefaultConfig()
		bc.Path = a.cfg.Store.Path
		bc.Logger = a.logger
		s, err := badgerstore.Open(bc)
		if err != nil {
			return nil, fmt.Errorf("open badger store %s: %w", a.cfg.Store.Path, err)
		}
		return s, nil
	}
	return nil, nil
}

// newValidator builds a validator over the configured store. The returned
// closer releases the store.
func (a *app) newValidator() (*validator.Validator, func() error, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	closer := func() error { return nil }
	opts := []validator.Option{validator.WithLogger(a.logger)}
	if store != nil {
		closer = store.Close
		opts = append(opts, validator.WithStore(store))
		if sq, ok := store.(*certstore.Store); ok {
			opts = append(opts, validator.WithRunLog(sq.DB()))
		}
	}
	v, err := validator.New(a.cfg, opts...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return v, closer, nil
}

// #endregion wiring

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.stdout, "aisp %s\n", version)
			return err
		},
	}
}
