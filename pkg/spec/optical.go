package spec

import "raylens/pkg/medium"

// OpticalSpec bundles the specs that drive ray tracing.
type OpticalSpec struct {
	spectral *SpectralRegion
	pupil    *Pupil
	field    *FieldSpec
	focus    *Focus
}

// NewOpticalSpec returns a spec bundle with a single d-line wavelength,
// a 10 unit entrance pupil, an on-axis field and no defocus.
func NewOpticalSpec() *OpticalSpec {
	return &OpticalSpec{
		spectral: &SpectralRegion{
			entries: []WavelengthEntry{{Wavelength: medium.WavelengthD, Weight: 1}},
		},
		pupil: &Pupil{typ: EntrancePupilDiameter, value: 10},
		field: &FieldSpec{typ: ObjectAngle, fields: []FieldPoint{{Weight: 1}}},
		focus: &Focus{},
	}
}

// SpectralRegion returns the owned spectral region.
func (o *OpticalSpec) SpectralRegion() *SpectralRegion { return o.spectral }

// Pupil returns the owned pupil spec.
func (o *OpticalSpec) Pupil() *Pupil { return o.pupil }

// Field returns the owned field spec.
func (o *OpticalSpec) Field() *FieldSpec { return o.field }

// Focus returns the owned focus range.
func (o *OpticalSpec) Focus() *Focus { return o.focus }

// Revision changes whenever any owned spec is mutated.
func (o *OpticalSpec) Revision() uint64 {
	return o.spectral.Revision() + o.pupil.Revision() + o.field.Revision() + o.focus.Revision()
}
