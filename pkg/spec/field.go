package spec

import (
	"fmt"
	"math"
)

// FieldType enumerates how field points are expressed.
type FieldType int

const (
	// ObjectAngle fields are object space angles in degrees
	ObjectAngle FieldType = iota

	// ObjectHeight fields are heights in the object plane
	ObjectHeight

	// ImageHeight fields are paraxial heights in the image plane
	ImageHeight
)

var fieldNames = [...]string{"object angle", "object height", "image height"}

func (f FieldType) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "unknown"
}

// FieldPoint is a single field position with its weight.
type FieldPoint struct {
	X, Y   float64
	Weight float64
}

// Radius returns the distance of the field point from the axis.
func (p FieldPoint) Radius() float64 { return math.Hypot(p.X, p.Y) }

// FieldSpec is the set of field points.
type FieldSpec struct {
	typ      FieldType
	fields   []FieldPoint
	revision uint64
}

// NewFieldSpec returns a validated field spec.
func NewFieldSpec(typ FieldType, fields []FieldPoint) (*FieldSpec, error) {
	fs := &FieldSpec{}
	if err := fs.Set(typ, fields); err != nil {
		return nil, err
	}
	return fs, nil
}

// Set replaces all field points.
func (fs *FieldSpec) Set(typ FieldType, fields []FieldPoint) error {
	if typ < ObjectAngle || typ > ImageHeight {
		return fmt.Errorf("%w: unknown field type %d", ErrInvalidSpec, typ)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: field list is empty", ErrInvalidSpec)
	}
	for i, f := range fields {
		if !finite(f.X) || !finite(f.Y) {
			return fmt.Errorf("%w: field %d is not finite", ErrInvalidSpec, i)
		}
		if !(f.Weight >= 0) {
			return fmt.Errorf("%w: field %d weight must be non-negative", ErrInvalidSpec, i)
		}
		if typ == ObjectAngle && (math.Abs(f.X) >= 90 || math.Abs(f.Y) >= 90) {
			return fmt.Errorf("%w: field %d angle must be within ±90°", ErrInvalidSpec, i)
		}
	}
	fs.typ = typ
	fs.fields = append([]FieldPoint(nil), fields...)
	fs.revision++
	return nil
}

// SetYFields replaces the field points by meridional values with unit weight.
func (fs *FieldSpec) SetYFields(typ FieldType, ys ...float64) error {
	fields := make([]FieldPoint, len(ys))
	for i, y := range ys {
		fields[i] = FieldPoint{Y: y, Weight: 1}
	}
	return fs.Set(typ, fields)
}

// Type returns the field encoding.
func (fs *FieldSpec) Type() FieldType { return fs.typ }

// Fields returns a copy of the field points.
func (fs *FieldSpec) Fields() []FieldPoint {
	return append([]FieldPoint(nil), fs.fields...)
}

// Len returns the number of field points.
func (fs *FieldSpec) Len() int { return len(fs.fields) }

// MaxField returns the largest field radius and its index.
func (fs *FieldSpec) MaxField() (float64, int) {
	maxFld, idx := 0.0, 0
	for i, f := range fs.fields {
		if r := f.Radius(); r > maxFld {
			maxFld, idx = r, i
		}
	}
	return maxFld, idx
}

// Revision counts successful mutations.
func (fs *FieldSpec) Revision() uint64 { return fs.revision }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ParseFieldType converts a field type name back to its FieldType.
func ParseFieldType(s string) (FieldType, error) {
	for i, name := range fieldNames {
		if s == name {
			return FieldType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field type %q", ErrInvalidSpec, s)
}
