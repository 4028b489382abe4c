package sqlgen

import (
	"errors"
	"fmt"
)

// ErrFieldRequired is returned when a template needs a measurement column
// but the intent carries no field.
var ErrFieldRequired = errors.New("template requires a field")

// DisallowedFieldError rejects a storage column outside the whitelist. No
// SQL is produced when it is returned.
type DisallowedFieldError struct {
	Field  string
	Column string
}

func (e *DisallowedFieldError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("field %q has no storage column", e.Field)
	}
	return fmt.Sprintf("column %q (field %q) is not in the allowed column list", e.Column, e.Field)
}

// UnsupportedError means the dialect has no expression for a metric or
// template.
type UnsupportedError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s dialect", e.Feature, e.Dialect)
}
