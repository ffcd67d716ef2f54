package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/aisp-verify/internal/batch"
	"github.com/danielpatrickdp/aisp-verify/internal/report"
	"github.com/danielpatrickdp/aisp-verify/internal/watch"
)

// #region batch

func newBatchCmd(a *app) *cobra.Command {
	var expectPath string
	var parallel int
	cmd := &cobra.Command{
		Use:   "batch [glob…]",
		Short: "Validate many documents in parallel",
		Long: "Batch expands files, directories and ** patterns and validates the\n" +
			"documents in parallel. With --expect the outcomes are checked\n" +
			"against a YAML regression file, whose documents are validated when no\n" +
			"patterns are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var exp *batch.Expectations
			if expectPath != "" {
				var err error
				if exp, err = batch.LoadExpectations(expectPath); err != nil {
					return err
				}
			}
			paths, err := batchPaths(args, exp, a.cfg.Limits.Extensions)
			if err != nil {
				return err
			}

			v, closer, err := a.newValidator()
			if err != nil {
				return err
			}
			defer closer()

			cfg := batch.Config{Parallel: a.cfg.Batch.Parallel, Extensions: a.cfg.Limits.Extensions, Logger: a.logger}
			if parallel > 0 {
				cfg.Parallel = parallel
			}
			items, err := batch.Run(cmd.Context(), v, paths, cfg)
			if err != nil {
				return err
			}
			if err := report.Write(a.stdout, a.format, batch.Results(items)...); err != nil {
				return err
			}
			s := batch.Summarize(items)
			a.logger.Info("batch finished", "total", s.Total, "valid", s.Valid, "invalid", s.Invalid, "errors", s.Errors)

			if exp != nil {
				mm := exp.Check(items)
				for _, m := range mm {
					fmt.Fprintln(a.stderr, "mismatch:", m)
				}
				if len(mm) > 0 {
					return fmt.Errorf("%d expectation(s) not met", len(mm))
				}
				return nil
			}
			if s.Errors > 0 {
				return fmt.Errorf("%d document(s) could not be validated", s.Errors)
			}
			if s.Invalid > 0 {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&expectPath, "expect", "e", "", "YAML expectations file to check outcomes against")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "documents validated at once (default from config)")
	return cmd
}

func batchPaths(args []string, exp *batch.Expectations, extensions []string) ([]string, error) {
	if len(args) == 0 {
		if exp == nil {
			return nil, errors.New("batch needs at least one path or --expect")
		}
		return exp.Paths(), nil
	}
	paths, err := batch.Expand(args, extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents match %v", args)
	}
	return paths, nil
}

// #endregion batch

// #region watch

func newWatchCmd(a *app) *cobra.Command {
	var noInitial bool
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Revalidate documents whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closer, err := a.newValidator()
			if err != nil {
				return err
			}
			defer closer()

			wc := watch.DefaultWatcherConfig(args[0])
			wc.Extensions = a.cfg.Limits.Extensions
			wc.Initial = !noInitial
			wc.Logger = a.logger
			w, err := watch.NewWatcher(wc, v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			return a.drainWatch(ctx, w)
		},
	}
	cmd.Flags().BoolVar(&noInitial, "no-initial", false, "skip validating existing documents on start")
	return cmd
}

func (a *app) drainWatch(ctx context.Context, w *watch.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			switch {
			case ev.Operation == watch.OpDelete:
				fmt.Fprintf(a.stdout, "%s removed\n", ev.Path)
			case ev.Err != nil:
				fmt.Fprintf(a.stderr, "%s: %v\n", ev.Path, ev.Err)
			default:
				if err := report.Write(a.stdout, a.format, ev.Result); err != nil {
					return err
				}
			}
		}
	}
}

// #endregion watch
