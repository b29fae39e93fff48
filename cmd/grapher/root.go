package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/grapher"
	"github.com/aretw0/grapher/internal/config"
	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/adapters/file"
	"github.com/aretw0/grapher/pkg/adapters/redis"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/observability"
	"github.com/aretw0/grapher/pkg/ports"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// application holds the dependencies shared by every command.
type application struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
	hooks    domain.LifecycleHooks
	locker   ports.DocumentLocker
	editor   *grapher.Editor
}

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	user       string
	station    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	app := &application{}

	root := &cobra.Command{
		Use:           "grapher",
		Short:         "Grapher edits shared node-graph documents safely",
		Long:          `Grapher inspects and edits gp_ documents, coordinates single-writer locks and runs resumable loops.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "grapher.yaml", "Config file (.yaml, .toml or .json)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Env file loaded before GRAPHER_* overrides")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.StringVar(&opts.user, "user", "", "User name override")
	flags.StringVar(&opts.station, "station", "", "Station name override")

	root.AddCommand(
		newVersionCmd(),
		newNewCmd(app),
		newInspectCmd(app),
		newNodesCmd(app),
		newConnectCmd(app),
		newVarsCmd(app),
		newLockCmd(app),
		newGraphCmd(app),
		newValidateCmd(app),
		newIterCmd(app),
		newLauncherCmd(app),
		newLoopCmd(app),
	)
	return root
}

func (a *application) init(cmd *cobra.Command, opts *rootOptions) error {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.user != "" {
		cfg.User = opts.user
	}
	if opts.station != "" {
		cfg.Station = opts.station
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
	a.registry = prometheus.NewRegistry()
	a.metrics = observability.NewMetrics(a.registry)
	a.hooks = observability.Chain(observability.LoggingHooks(a.logger.With("component", "events")), a.metrics.Hooks())

	switch cfg.LockBackend {
	case config.LockBackendRedis:
		a.locker = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Identity(),
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithLogger(a.logger),
			redis.WithLifecycleHooks(a.hooks),
		)
	default:
		a.locker = file.NewLocker(cfg.Identity(), file.WithLogger(a.logger), file.WithLifecycleHooks(a.hooks))
	}
	a.editor = grapher.New(cfg.Identity(),
		grapher.WithLocker(a.locker),
		grapher.WithLogger(a.logger),
		grapher.WithLifecycleHooks(a.hooks),
	)
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func exactDocArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one document path, got %d", len(args))
	}
	return nil
}
