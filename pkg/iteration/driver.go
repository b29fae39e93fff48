package iteration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/grapher/internal/atomicfile"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/aretw0/grapher/pkg/ports"
)

// Environment variables exported to every iteration.
const (
	EnvLoop      = "GRAPHER_LOOP"
	EnvIterator  = "GRAPHER_ITERATOR"
	EnvIterValue = "GRAPHER_ITER_VALUE"
)

// LoopSpec describes one loop execution.
type LoopSpec struct {
	LoopNode string
	Iterator string
	Values   []string
	// BodyPath is the Python script run once per value.
	BodyPath string
	// MarkerDir holds the iteration markers.
	MarkerDir string
	// WorkDir receives the generated guard scripts and launchers.
	WorkDir string
	// Dialect of the launchers. Defaults to PythonDialect.
	Dialect Dialect
}

// LoopReport lists the values that ran and the ones skipped as already done.
type LoopReport struct {
	Ran     []string
	Skipped []string
	Outputs map[string]string
}

// Driver runs loop iterations through a Guard and a dispatcher.
type Driver struct {
	Guard *Guard
}

// NewDriver returns a Driver using guard.
func NewDriver(guard *Guard) *Driver {
	return &Driver{Guard: guard}
}

// RunLoop runs check, guard script, launcher and dispatch for each value in
// order. It stops at the first error and returns the report so far. A value
// whose dispatch fails loses its marker and runs again next time.
func (d *Driver) RunLoop(ctx context.Context, spec LoopSpec, dispatcher ports.LauncherDispatcher) (LoopReport, error) {
	report := LoopReport{Outputs: make(map[string]string)}
	dialect := spec.Dialect
	if dialect == nil {
		dialect = PythonDialect{}
	}
	logger := d.Guard.logger().With("loop", spec.LoopNode, "iterator", spec.Iterator)

	for _, value := range spec.Values {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, err := d.Guard.CheckIteration(ctx, spec.MarkerDir, spec.LoopNode, spec.Iterator, value)
		if err != nil {
			return report, err
		}
		if outcome == domain.AlreadyDone {
			report.Skipped = append(report.Skipped, value)
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(MarkerPath("", spec.LoopNode, spec.Iterator, value)), markerExtension)
		env := map[string]string{
			EnvLoop:      spec.LoopNode,
			EnvIterator:  spec.Iterator,
			EnvIterValue: value,
		}

		guardPath := filepath.Join(spec.WorkDir, stem+"_env.py")
		if err := writeEnvScript(guardPath, env); err != nil {
			return report, err
		}

		launcherPath := filepath.Join(spec.WorkDir, stem+"_launch"+dialect.Extension())
		if err := BuildLauncherWith(dialect, launcherPath, spec.BodyPath, []string{guardPath}); err != nil {
			return report, err
		}

		out, err := dispatcher.Dispatch(ctx, ports.Dispatch{
			LauncherPath: launcherPath,
			Dialect:      dialect.Name(),
			Env:          env,
		})
		if err != nil {
			logger.Error("iteration failed", "value", value, "error", err)
			// Drop the marker so the next run retries this value.
			marker := MarkerPath(spec.MarkerDir, spec.LoopNode, spec.Iterator, value)
			if rmErr := os.Remove(marker); rmErr != nil {
				logger.Warn("failed to clear marker", "path", marker, "error", rmErr)
			}
			return report, fmt.Errorf("iteration %s=%s: %w", spec.Iterator, value, err)
		}
		logger.Info("iteration ran", "value", value)
		report.Ran = append(report.Ran, value)
		report.Outputs[value] = out
	}
	return report, nil
}

// writeEnvScript writes a Python guard that exports env into os.environ.
// JSON string literals are valid Python string literals.
func writeEnvScript(path string, env map[string]string) error {
	var b strings.Builder
	b.WriteString("import os\n")
	for _, k := range []string{EnvLoop, EnvIterator, EnvIterValue} {
		v, err := json.Marshal(env[k])
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrLauncherWrite, path, err)
		}
		fmt.Fprintf(&b, "os.environ[%q] = %s\n", k, v)
	}
	if err := atomicfile.Write(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrLauncherWrite, path, err)
	}
	return nil
}

// WriteNodeScript writes the script of a data node, with ${label} references
// expanded, to dir and returns its path. It is used as a loop body.
func WriteNodeScript(doc *graph.Document, id domain.NodeID, dir string) (string, error) {
	node, err := doc.Tree.Node(id)
	if err != nil {
		return "", err
	}
	if !node.Type.HasScript() {
		return "", fmt.Errorf("%w: %s nodes carry no script", domain.ErrInvalidNodeType, node.Type)
	}
	script, err := doc.ExpandScript(id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "body_"+escape(node.Name)+".py")
	if err := atomicfile.Write(path, []byte(script), 0644); err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrLauncherWrite, path, err)
	}
	return path, nil
}
