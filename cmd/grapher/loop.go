package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/aretw0/grapher/pkg/adapters/process"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/iteration"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type loopOptions struct {
	loop        string
	iterator    string
	values      []string
	body        string
	doc         string
	node        string
	dialect     string
	metricsAddr string
	metricsFile string
}

func newLoopCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run loops with resumable iterations",
	}
	cmd.AddCommand(newLoopRunCmd(app))
	return cmd
}

func newLoopRunCmd(app *application) *cobra.Command {
	opts := &loopOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a body once per value, skipping values already done",
		Long: `Runs the body script once per iterator value. Each value is claimed with a
marker first, so a rerun after a crash only runs the values that never started.
The body is either a script file (--body) or the script of a data node (--doc and --node).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLoop(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.loop, "loop", "", "Loop node name")
	f.StringVar(&opts.iterator, "iterator", "", "Iterator name")
	f.StringSliceVar(&opts.values, "values", nil, "Iterator values, in order")
	f.StringVar(&opts.body, "body", "", "Body script")
	f.StringVar(&opts.doc, "doc", "", "Document holding the body node")
	f.StringVar(&opts.node, "node", "", "Path of the data node used as body")
	f.StringVar(&opts.dialect, "dialect", "python", "Launcher dialect")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
	_ = cmd.MarkFlagRequired("loop")
	_ = cmd.MarkFlagRequired("iterator")
	_ = cmd.MarkFlagRequired("values")
	cmd.MarkFlagsMutuallyExclusive("body", "doc")
	cmd.MarkFlagsRequiredTogether("doc", "node")
	cmd.MarkFlagsOneRequired("body", "doc")
	return cmd
}

func (a *application) runLoop(cmd *cobra.Command, opts *loopOptions) error {
	ctx := cmd.Context()

	dialect, ok := iteration.DialectNamed(opts.dialect)
	if !ok {
		return fmt.Errorf("%w: %s", process.ErrUnknownDialect, opts.dialect)
	}

	// The interpreter runs inside the work dir, so every path it sees is absolute.
	workDir, err := filepath.Abs(a.cfg.WorkDir)
	if err != nil {
		return err
	}
	markerDir, err := filepath.Abs(a.cfg.MarkerDir)
	if err != nil {
		return err
	}

	body := opts.body
	if body != "" {
		if body, err = filepath.Abs(body); err != nil {
			return err
		}
	} else {
		doc, err := a.editor.Load(ctx, opts.doc)
		if err != nil {
			return err
		}
		id, ok := doc.Tree.FindByPath(opts.node)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, opts.node)
		}
		if body, err = iteration.WriteNodeScript(doc, id, workDir); err != nil {
			return err
		}
	}

	if opts.metricsAddr != "" {
		stop, err := a.serveMetrics(opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	runner := process.NewRunner(
		process.WithRegistry(a.cfg.Interpreters),
		process.WithBaseDir(workDir),
		process.WithLogger(a.logger),
	)
	driver := iteration.NewDriver(a.guard())
	report, runErr := driver.RunLoop(ctx, iteration.LoopSpec{
		LoopNode:  opts.loop,
		Iterator:  opts.iterator,
		Values:    opts.values,
		BodyPath:  body,
		MarkerDir: markerDir,
		WorkDir:   workDir,
		Dialect:   dialect,
	}, runner)

	rows := make([][]string, 0, len(opts.values))
	for _, v := range report.Ran {
		rows = append(rows, []string{v, "ran"})
	}
	for _, v := range report.Skipped {
		rows = append(rows, []string{v, "skipped"})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Value", "Result"}, rows, nil))

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, a.registry); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// serveMetrics exposes the registry on addr until the returned stop is called.
func (a *application) serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
