package patch

import (
	"fmt"
	"strings"
)

// Validate rejects operations that touch anything outside the allowed field
// set. Paths address top-level fields ("/email") or positions inside their
// values ("/tags/0"); only the field segment is checked. An empty allow set
// accepts everything.
func Validate(ops []Operation, allowedFields map[string]bool) error {
	if len(ops) == 0 || len(allowedFields) == 0 {
		return nil
	}
	for i, op := range ops {
		if err := validatePath(op.Path, allowedFields); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func validatePath(path string, allowedFields map[string]bool) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q is not a JSON pointer", path)
	}
	field := path[1:]
	if i := strings.IndexByte(field, '/'); i >= 0 {
		field = field[:i]
	}
	field = strings.ReplaceAll(field, "~1", "/")
	field = strings.ReplaceAll(field, "~0", "~")
	if !allowedFields[field] {
		return fmt.Errorf("path %q does not address a registered field", path)
	}
	return nil
}

// AllowedFields builds the allow set from registered field names.
func AllowedFields(names []string) map[string]bool {
	allowed := make(map[string]bool, len(names))
	for _, name := range names {
		allowed[name] = true
	}
	return allowed
}
