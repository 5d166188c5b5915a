package spec

import "errors"

var (
	// ErrInvalidSpec indicates structurally invalid spec data (empty
	// wavelength list, non-positive wavelength, malformed pupil or field).
	ErrInvalidSpec = errors.New("spec: invalid specification")
	// ErrOutOfRange indicates an index that does not address an existing entry.
	ErrOutOfRange = errors.New("spec: index out of range")
)
