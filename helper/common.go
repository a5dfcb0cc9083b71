package helper

import (
	"regexp"

	"github.com/pkg/errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrInvalidIdentifier is wrapped by CheckIdentifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// IsValidIdentifier reports whether s can be spliced into SQL as a bare
// schema or table name.
func IsValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// CheckIdentifier is IsValidIdentifier as an error, e.g.
// `table "a;b": invalid identifier`.
func CheckIdentifier(kind, name string) error {
	if IsValidIdentifier(name) {
		return nil
	}
	return errors.Wrapf(ErrInvalidIdentifier, "%s %q", kind, name)
}
