package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFromListReplacesEntries(t *testing.T) {
	osp := NewOpticalSpec()
	sr := osp.SpectralRegion()
	rev := osp.Revision()

	require.NoError(t, sr.SetFromList([][2]float64{{656, 1}, {587, 2}, {488, 1}}))
	assert.Equal(t, []float64{656, 587, 488}, sr.Wavelengths())
	assert.Equal(t, []float64{1, 2, 1}, sr.Weights())
	assert.Equal(t, 1, sr.Reference())
	assert.Equal(t, 587.0, sr.ReferenceWavelength())
	assert.NotEqual(t, rev, osp.Revision())
}

func TestSetFromListRejectsInvalidLists(t *testing.T) {
	tests := []struct {
		name string
		list [][2]float64
	}{
		{"empty", nil},
		{"zero wavelength", [][2]float64{{550, 1}, {0, 1}}},
		{"negative wavelength", [][2]float64{{-486, 1}}},
		{"negative weight", [][2]float64{{550, -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, err := NewSpectralRegion([][2]float64{{550, 1}}, 0)
			require.NoError(t, err)
			rev := sr.Revision()

			err = sr.SetFromList(tt.list)
			assert.ErrorIs(t, err, ErrInvalidSpec)
			assert.Equal(t, []float64{550}, sr.Wavelengths(), "no partial mutation")
			assert.Equal(t, rev, sr.Revision())
		})
	}
}

func TestSetReferenceOutOfRange(t *testing.T) {
	sr, err := NewSpectralRegion([][2]float64{{656, 1}, {587, 2}, {488, 1}}, 1)
	require.NoError(t, err)

	for _, idx := range []int{-1, 3, 10} {
		assert.ErrorIs(t, sr.SetReference(idx), ErrOutOfRange)
	}
	assert.Equal(t, 1, sr.Reference())

	require.NoError(t, sr.SetReference(2))
	assert.Equal(t, 488.0, sr.ReferenceWavelength())
}

func TestPupilValidation(t *testing.T) {
	p, err := NewPupil(FNumber, 4)
	require.NoError(t, err)
	assert.Equal(t, FNumber, p.Type())

	assert.ErrorIs(t, p.Set(EntrancePupilDiameter, 0), ErrInvalidSpec)
	assert.ErrorIs(t, p.Set(PupilType(7), 1), ErrInvalidSpec)
	assert.Equal(t, 4.0, p.Value())
}

func TestFieldValidation(t *testing.T) {
	fs, err := NewFieldSpec(ObjectAngle, []FieldPoint{{Y: 0, Weight: 1}, {Y: 14, Weight: 1}, {Y: 20, Weight: 1}})
	require.NoError(t, err)

	maxFld, idx := fs.MaxField()
	assert.Equal(t, 20.0, maxFld)
	assert.Equal(t, 2, idx)

	assert.ErrorIs(t, fs.Set(ObjectAngle, nil), ErrInvalidSpec)
	assert.ErrorIs(t, fs.SetYFields(ObjectAngle, 0, 95), ErrInvalidSpec)
	assert.Equal(t, 3, fs.Len())

	require.NoError(t, fs.SetYFields(ObjectHeight, 0, 95))
	assert.Equal(t, ObjectHeight, fs.Type())
}

func TestFocusValidation(t *testing.T) {
	osp := NewOpticalSpec()
	rev := osp.Revision()
	assert.ErrorIs(t, osp.Focus().Set(0.1, -1), ErrInvalidSpec)
	assert.Equal(t, rev, osp.Revision())

	require.NoError(t, osp.Focus().Set(0.1, 0.5))
	assert.Equal(t, 0.1, osp.Focus().Shift())
	assert.NotEqual(t, rev, osp.Revision())
}

func TestTypeNamesRoundTrip(t *testing.T) {
	for _, typ := range []PupilType{EntrancePupilDiameter, FNumber, ObjectNA} {
		got, err := ParsePupilType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	for _, typ := range []FieldType{ObjectAngle, ObjectHeight, ImageHeight} {
		got, err := ParseFieldType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParsePupilType("t/#")
	assert.ErrorIs(t, err, ErrInvalidSpec)
	_, err = ParseFieldType("pupil")
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestCentralWavelength(t *testing.T) {
	sr, err := NewSpectralRegion([][2]float64{{656, 1}, {587, 1}, {488, 1}, {435, 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 488.0, sr.CentralWavelength())
	assert.Equal(t, 656.0, sr.ReferenceWavelength())
}
