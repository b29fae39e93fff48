package iteration

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/grapher/internal/atomicfile"
	"github.com/aretw0/grapher/pkg/domain"
)

// BuildLauncher writes a launcher that executes each guard script in order
// and then the body script. The dialect follows the launcher extension.
func BuildLauncher(launcherPath, bodyPath string, guardPaths []string) error {
	d, err := dialectForPath(launcherPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLauncherWrite, err)
	}
	return BuildLauncherWith(d, launcherPath, bodyPath, guardPaths)
}

// BuildLauncherWith is BuildLauncher with an explicit dialect.
func BuildLauncherWith(d Dialect, launcherPath, bodyPath string, guardPaths []string) error {
	var b strings.Builder
	for _, p := range append(append([]string{}, guardPaths...), bodyPath) {
		stmt, err := statement(d, p)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrLauncherWrite, launcherPath, err)
		}
		b.WriteString(stmt)
		b.WriteByte('\n')
	}
	if err := atomicfile.Write(launcherPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrLauncherWrite, launcherPath, err)
	}
	return nil
}

// statement normalises path to forward slashes, which every host accepts,
// and rejects characters that would break out of the quoted literal.
func statement(d Dialect, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty script path")
	}
	if strings.ContainsAny(path, "\"\n\r") {
		return "", fmt.Errorf("script path %q cannot be quoted", path)
	}
	path = filepath.ToSlash(path)
	// A raw string literal cannot end in a backslash.
	if strings.HasSuffix(path, `\`) {
		return "", fmt.Errorf("script path %q ends in a backslash", path)
	}
	return d.Exec(path), nil
}
