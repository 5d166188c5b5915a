package spec

import (
	"fmt"
	"math"
)

// PupilType enumerates the mutually exclusive aperture encodings.
type PupilType int

const (
	// EntrancePupilDiameter is the diameter of the entrance pupil
	EntrancePupilDiameter PupilType = iota

	// FNumber is the image space working f-number
	FNumber

	// ObjectNA is the object space numerical aperture
	ObjectNA
)

var pupilNames = [...]string{"epd", "f/#", "na obj"}

func (p PupilType) String() string {
	if int(p) < len(pupilNames) {
		return pupilNames[p]
	}
	return "unknown"
}

// Pupil defines the system aperture.
type Pupil struct {
	typ      PupilType
	value    float64
	revision uint64
}

// NewPupil returns a validated pupil spec.
func NewPupil(typ PupilType, value float64) (*Pupil, error) {
	p := &Pupil{}
	if err := p.Set(typ, value); err != nil {
		return nil, err
	}
	return p, nil
}

// Set replaces the aperture definition.
func (p *Pupil) Set(typ PupilType, value float64) error {
	if typ < EntrancePupilDiameter || typ > ObjectNA {
		return fmt.Errorf("%w: unknown pupil type %d", ErrInvalidSpec, typ)
	}
	if !(value > 0) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidSpec, typ, value)
	}
	p.typ = typ
	p.value = value
	p.revision++
	return nil
}

// Type returns the aperture encoding.
func (p *Pupil) Type() PupilType { return p.typ }

// Value returns the aperture value.
func (p *Pupil) Value() float64 { return p.value }

// Revision counts successful mutations.
func (p *Pupil) Revision() uint64 { return p.revision }

// Focus is the defocus applied to the image plane by the real ray trace.
type Focus struct {
	shift    float64
	rng      float64
	revision uint64
}

// Set replaces the focus shift and the through-focus range.
func (f *Focus) Set(shift, rng float64) error {
	if math.IsNaN(shift) || math.IsInf(shift, 0) {
		return fmt.Errorf("%w: focus shift must be finite", ErrInvalidSpec)
	}
	if !(rng >= 0) || math.IsInf(rng, 0) {
		return fmt.Errorf("%w: focus range must be non-negative, got %g", ErrInvalidSpec, rng)
	}
	f.shift = shift
	f.rng = rng
	f.revision++
	return nil
}

// Shift returns the image plane shift along the axis.
func (f *Focus) Shift() float64 { return f.shift }

// Range returns the through-focus range.
func (f *Focus) Range() float64 { return f.rng }

// Revision counts successful mutations.
func (f *Focus) Revision() uint64 { return f.revision }

// ParsePupilType converts a pupil type name ("epd", "f/#", "na obj") back
// to its PupilType.
func ParsePupilType(s string) (PupilType, error) {
	for i, name := range pupilNames {
		if s == name {
			return PupilType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pupil type %q", ErrInvalidSpec, s)
}
