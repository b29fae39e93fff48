package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/ports"
)

// ErrUnknownDialect is returned when no interpreter is registered for a dialect.
var ErrUnknownDialect = errors.New("no interpreter registered for dialect")

// Runner implements ports.LauncherDispatcher by executing local processes.
// Only registered interpreters can be started.
type Runner struct {
	registry map[string]Interpreter
	baseDir  string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the interpreter table, replacing entries with the same dialect.
func WithRegistry(interpreters map[string]Interpreter) RunnerOption {
	return func(r *Runner) {
		for dialect, in := range interpreters {
			r.Register(dialect, in)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner preloaded with DefaultInterpreters.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: DefaultInterpreters(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the interpreter for dialect.
func (r *Runner) Register(dialect string, in Interpreter) {
	r.registry[dialect] = in
}

// Dialects lists the registered dialects in sorted order.
func (r *Runner) Dialects() []string {
	out := make([]string, 0, len(r.registry))
	for d := range r.registry {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs "<command> <args...> <launcher>" and returns the trimmed stdout.
// Iteration values travel as environment variables, never as flags.
func (r *Runner) Dispatch(ctx context.Context, d ports.Dispatch) (string, error) {
	in, ok := r.registry[d.Dialect]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, d.Dialect)
	}

	args := append(append([]string{}, in.Args...), d.LauncherPath)
	cmd := exec.CommandContext(ctx, in.Command, args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), envList(in.Env, d.Env)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("dispatching launcher", "path", d.LauncherPath, "dialect", d.Dialect, "command", in.Command)
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("launcher %s failed: %w: %s", d.LauncherPath, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// envList flattens maps into KEY=value pairs. Later maps win; keys are sorted
// so the environment is deterministic.
func envList(maps ...map[string]string) []string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}
