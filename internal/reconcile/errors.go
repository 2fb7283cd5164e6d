package reconcile

import (
	"fmt"
	"strings"
)

// FilesystemError reports a failure preparing the download location.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// validatePathComponent rejects values that would escape the download
// directory when used in a file name.
func validatePathComponent(kind, value string) error {
	switch {
	case value == "":
		return fmt.Errorf("invalid %s: empty", kind)
	case strings.Contains(value, ".."):
		return fmt.Errorf("invalid %s %q: contains '..'", kind, value)
	case strings.ContainsAny(value, `/\`):
		return fmt.Errorf("invalid %s %q: contains a path separator", kind, value)
	case strings.ContainsRune(value, 0):
		return fmt.Errorf("invalid %s %q: contains NUL", kind, value)
	}
	return nil
}
