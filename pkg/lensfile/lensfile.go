// Package lensfile reads lens prescriptions into a sequential model and an
// optical specification. Zemax .zmx files are imported; the native YAML
// format is both read and written.
package lensfile

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"raylens/pkg/opticalmodel"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// ErrUnsupportedFormat is returned for files that are neither .zmx nor
// native YAML, or whose content cannot describe a sequential model.
var ErrUnsupportedFormat = errors.New("lensfile: unsupported lens file format")

// Lens is a lens prescription as read from a file.
type Lens struct {
	// Title is the system name
	Title string

	// Note is free-form text carried with the prescription
	Note string

	// Units is the length unit of the prescription, "MM" by default
	Units string

	Seq  *seq.Model
	Spec *spec.OpticalSpec
}

// OpticalModel wraps the lens in an optical model.
func (l *Lens) OpticalModel(opts ...opticalmodel.Option) *opticalmodel.OpticalModel {
	om := opticalmodel.New(l.Seq, l.Spec, opts...)
	om.SetName(l.Title)
	return om
}

// Read loads path, choosing the reader from the file extension.
func Read(path string, logger *log.Logger) (*Lens, *Info, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zmx":
		return ReadZMX(path, logger)
	case ".yaml", ".yml":
		l, err := ReadYAML(path)
		return l, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func discardLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard, "", 0)
	}
	return l
}
