package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/grapher/pkg/domain"
)

const (
	// DocumentPrefix starts every document file name.
	DocumentPrefix = "gp_"
	// LockPrefix replaces DocumentPrefix in the name of the lock sidecar.
	LockPrefix = "gpLock_"
	// DefaultExtension is used by DocumentName.
	DefaultExtension = ".py"
)

// Extensions lists the document extensions the codec recognizes.
var Extensions = []string{".py", ".gp"}

// DocumentName returns the file name of a document called name.
func DocumentName(name string) string {
	return DocumentPrefix + name + DefaultExtension
}

// ValidateDocumentName checks that the base name of path is prefix + name + known extension.
func ValidateDocumentName(path string) error {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, DocumentPrefix) {
		return fmt.Errorf("%w: %q does not start with %q", domain.ErrInvalidDocumentName, base, DocumentPrefix)
	}
	ext := filepath.Ext(base)
	known := false
	for _, e := range Extensions {
		if ext == e {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q has unsupported extension %q", domain.ErrInvalidDocumentName, base, ext)
	}
	if len(base) == len(DocumentPrefix)+len(ext) {
		return fmt.Errorf("%w: %q has an empty name", domain.ErrInvalidDocumentName, base)
	}
	return nil
}

// LockPath returns the sidecar lock path of the document at path.
func LockPath(path string) (string, error) {
	if err := ValidateDocumentName(path); err != nil {
		return "", err
	}
	dir, base := filepath.Split(path)
	return filepath.Join(dir, LockPrefix+strings.TrimPrefix(base, DocumentPrefix)), nil
}
