package ports

import "context"

// Dispatch describes one launcher execution.
type Dispatch struct {
	LauncherPath string
	// Dialect names the interpreter family of the launcher (e.g. "python", "mel").
	Dialect string
	// Env is passed to the process on top of the current environment.
	Env map[string]string
}

// LauncherDispatcher executes a generated launcher script.
type LauncherDispatcher interface {
	Dispatch(ctx context.Context, d Dispatch) (string, error)
}
