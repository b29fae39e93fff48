package iteration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
)

const (
	markerPrefix    = "iter_"
	markerSeparator = "__"
	markerExtension = ".py"
)

// Guard decides whether a loop iteration still has to run.
type Guard struct {
	Identity domain.Identity
	Clock    func() time.Time
	Logger   *slog.Logger
	Hooks    domain.LifecycleHooks
}

// NewGuard returns a Guard stamping markers with identity and the wall clock.
func NewGuard(identity domain.Identity) *Guard {
	return &Guard{
		Identity: identity,
		Clock:    time.Now,
		Logger:   logging.NewNop(),
	}
}

// escape makes a tuple component safe for a file name. "_" is escaped too so
// the "__" separator cannot appear inside a component.
func escape(s string) string {
	s = url.PathEscape(s)
	s = strings.ReplaceAll(s, "_", "%5F")
	return strings.ReplaceAll(s, ":", "%3A")
}

// MarkerPath returns the deterministic marker location of one iteration.
func MarkerPath(markerDir, loopNode, iterator, iterValue string) string {
	name := markerPrefix +
		escape(loopNode) + markerSeparator +
		escape(iterator) + markerSeparator +
		escape(iterValue) + markerExtension
	return filepath.Join(markerDir, name)
}

// CheckIteration returns AlreadyDone if the marker exists and leaves it untouched.
// Otherwise it creates the marker exclusively and returns ToRun. A marker that
// could not be written is never reported as ToRun.
func (g *Guard) CheckIteration(ctx context.Context, markerDir, loopNode, iterator, iterValue string) (domain.Outcome, error) {
	path := MarkerPath(markerDir, loopNode, iterator, iterValue)
	logger := g.logger().With("loop", loopNode, "iterator", iterator, "value", iterValue)

	if _, err := os.Stat(path); err == nil {
		logger.Debug("iteration already done", "path", path)
		g.emit(ctx, domain.EventIterationSkip, loopNode, iterator, iterValue)
		return domain.AlreadyDone, nil
	}

	now := g.now()
	data, err := codec.MarshalMarker(domain.Marker{
		Date:      now.Format(domain.DateLayout),
		Time:      now.Format(domain.TimeLayout),
		Station:   g.Identity.Station,
		User:      g.Identity.User,
		LoopNode:  loopNode,
		Iterator:  iterator,
		IterValue: iterValue,
	})
	if err != nil {
		return domain.AlreadyDone, fmt.Errorf("%w: %w", domain.ErrMarkerWrite, err)
	}

	if err := os.MkdirAll(markerDir, 0755); err != nil {
		return domain.AlreadyDone, fmt.Errorf("%w: %s: %w", domain.ErrMarkerWrite, markerDir, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		logger.Debug("iteration claimed concurrently", "path", path)
		g.emit(ctx, domain.EventIterationSkip, loopNode, iterator, iterValue)
		return domain.AlreadyDone, nil
	}
	if err != nil {
		return domain.AlreadyDone, fmt.Errorf("%w: %s: %w", domain.ErrMarkerWrite, path, err)
	}

	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		// A partial marker would hide the iteration forever.
		_ = os.Remove(path)
		return domain.AlreadyDone, fmt.Errorf("%w: %s: %w", domain.ErrMarkerWrite, path, werr)
	}

	logger.Info("iteration marked", "path", path)
	g.emit(ctx, domain.EventIterationRun, loopNode, iterator, iterValue)
	return domain.ToRun, nil
}

// ReadMarker decodes the marker file at path.
func ReadMarker(path string) (domain.Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("failed to read marker: %w", err)
	}
	m, err := codec.UnmarshalMarker(data)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (g *Guard) now() time.Time {
	if g.Clock == nil {
		return time.Now()
	}
	return g.Clock()
}

func (g *Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return logging.NewNop()
	}
	return g.Logger
}

func (g *Guard) emit(ctx context.Context, t domain.EventType, loopNode, iterator, iterValue string) {
	g.Hooks.EmitIteration(ctx, &domain.IterationEvent{
		EventBase: domain.NewEventBase(t),
		LoopNode:  loopNode,
		Iterator:  iterator,
		IterValue: iterValue,
	})
}
