package attribute

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
)

// MaxNameLen caps the attribute name length in runes.
const MaxNameLen = 64

var (
	ErrEmptyName   = errors.New("attribute name must not be empty")
	ErrNameTooLong = fmt.Errorf("attribute name longer than %d characters", MaxNameLen)
	ErrBadKind     = errors.New("unknown attribute kind")
	ErrBadType     = errors.New("unknown attribute type")
	ErrBadOrder    = errors.New("attribute order must not be negative")
	ErrBadOptions  = errors.New("options are only valid for dropdown attributes")
)

// Validate reports every structural problem with the attribute at once.
func (a *Attribute) Validate() error {
	var errs error

	if strings.TrimSpace(a.Name) == "" {
		errs = multierr.Append(errs, ErrEmptyName)
	} else if utf8.RuneCountInString(a.Name) > MaxNameLen {
		errs = multierr.Append(errs, ErrNameTooLong)
	}

	if !a.Kind.Valid() {
		errs = multierr.Append(errs, ErrBadKind)
	}

	if !a.Type.Valid() {
		errs = multierr.Append(errs, ErrBadType)
	}

	if a.Order < 0 {
		errs = multierr.Append(errs, ErrBadOrder)
	}

	if len(a.Options) > 0 && a.Type != TypeDropdown {
		errs = multierr.Append(errs, ErrBadOptions)
	}

	return errs
}
