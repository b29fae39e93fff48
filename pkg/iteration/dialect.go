package iteration

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dialect renders launcher statements for one host scripting language.
type Dialect interface {
	// Name identifies the dialect, e.g. for interpreter lookup.
	Name() string
	// Extension is the launcher file extension, including the dot.
	Extension() string
	// Exec returns one statement that executes the Python script at path.
	Exec(path string) string
}

// PythonDialect emits execfile lines.
type PythonDialect struct{}

func (PythonDialect) Name() string      { return "python" }
func (PythonDialect) Extension() string { return ".py" }
func (PythonDialect) Exec(path string) string {
	return fmt.Sprintf("execfile(r\"%s\")", path)
}

// MelDialect wraps execfile in the embedded python() command of a Mel host.
type MelDialect struct{}

func (MelDialect) Name() string      { return "mel" }
func (MelDialect) Extension() string { return ".mel" }
func (MelDialect) Exec(path string) string {
	return fmt.Sprintf("python(\"execfile(\\\"%s\\\")\");", path)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{
		".py":  PythonDialect{},
		".mel": MelDialect{},
	}
)

// RegisterDialect makes d available to DialectFor under its extension.
// Registering an extension twice replaces the earlier dialect.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Extension())] = d
}

// DialectFor returns the dialect for a launcher extension such as ".mel".
func DialectFor(ext string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(ext)]
	return d, ok
}

// DialectNamed returns the registered dialect with the given name.
func DialectNamed(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	for _, d := range dialects {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Extensions lists the registered launcher extensions in sorted order.
func Extensions() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]string, 0, len(dialects))
	for ext := range dialects {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// dialectForPath picks the dialect from the extension of a launcher path.
func dialectForPath(path string) (Dialect, error) {
	ext := filepath.Ext(path)
	d, ok := DialectFor(ext)
	if !ok {
		return nil, fmt.Errorf("no launcher dialect for extension %q", ext)
	}
	return d, nil
}
