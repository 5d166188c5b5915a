package paraxial

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raylens/pkg/medium"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

func glass(t *testing.T, name string) medium.Medium {
	t.Helper()
	m, err := medium.NewGlass(name)
	require.NoError(t, err)
	return m
}

// doublet is a 100 mm f/4 cemented achromat with the object at infinity.
func doublet(t *testing.T) (*seq.Model, *spec.OpticalSpec) {
	t.Helper()
	sm := seq.NewModel(1e13)
	sm.AddSurface(seq.NewSurface(61.47, 12.5), 6.0, glass(t, "N-BK7"))
	sm.AddSurface(seq.NewSurface(-44.64, 12.5), 2.5, glass(t, "N-SF5"))
	sm.AddSurface(seq.NewSurface(-129.94, 12.5), 95.9519, medium.NewAir())

	osp := spec.NewOpticalSpec()
	require.NoError(t, osp.Pupil().Set(spec.EntrancePupilDiameter, 25))
	require.NoError(t, osp.Field().SetYFields(spec.ObjectAngle, 0, 1))
	return sm, osp
}

// singlet is an equi-convex N-BK7 lens with a finite object.
func singlet(t *testing.T) (*seq.Model, *spec.OpticalSpec) {
	t.Helper()
	sm := seq.NewModel(200)
	sm.AddSurface(seq.NewSurface(100, 15), 5, glass(t, "N-BK7"))
	sm.AddSurface(seq.NewSurface(-100, 15), 0, medium.NewAir())

	osp := spec.NewOpticalSpec()
	require.NoError(t, osp.Pupil().Set(spec.ObjectNA, 0.05))
	require.NoError(t, osp.Field().SetYFields(spec.ObjectHeight, 0, 10))
	return sm, osp
}

func TestDoubletFirstOrder(t *testing.T) {
	sm, osp := doublet(t)
	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	fod := res.FirstOrder

	assert.True(t, res.Infinite)
	assert.InEpsilon(t, 100.0, fod.EFL, 0.005)
	assert.InDelta(t, 95.95, fod.BFL, 0.01)
	assert.InDelta(t, 0.2182, fod.OptInv, 1e-4)
	assert.InDelta(t, 4.0, fod.FNo, 0.01)
	assert.InDelta(t, 12.5, fod.EnpRadius, 1e-12)
	assert.InDelta(t, 0.0, fod.EnpDist, 1e-12)
	assert.InDelta(t, 1.0, fod.ObjAng, 1e-9)
	assert.InDelta(t, 1.746, fod.ImgHt, 1e-3)
	assert.InDelta(t, 95.9519, fod.ImgDist, 1e-12)
	assert.InDelta(t, 1e13, fod.ObjDist, 1)
	assert.Equal(t, medium.WavelengthD, fod.Wavelength)
	assert.InDelta(t, fod.FFL, fod.PP1-fod.EFL, 1e-9)
	assert.InDelta(t, fod.BFL, fod.PPK+fod.EFL, 1e-9)

	// the marginal ray focuses on the image surface
	img := sm.ImageIndex()
	assert.InDelta(t, 0.0, res.Marginal[img].Ht, 1e-4)
	assert.Len(t, res.Chief, sm.NumSurfaces())
	assert.Len(t, res.FieldSlopes, 2)
}

func TestComputeIsIdempotent(t *testing.T) {
	sm, osp := doublet(t)
	first, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	second, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.FirstOrder, second.FirstOrder)
}

func TestFNumberPupil(t *testing.T) {
	sm, osp := doublet(t)
	require.NoError(t, osp.Pupil().Set(spec.FNumber, 4))

	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.FirstOrder.FNo, 1e-12)
	assert.InDelta(t, 12.5, res.FirstOrder.EnpRadius, 0.01)
}

func TestFiniteConjugates(t *testing.T) {
	sm, osp := singlet(t)
	require.NoError(t, sm.SetThickness(2, 200))

	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	fod := res.FirstOrder

	assert.False(t, res.Infinite)
	assert.InDelta(t, 97.5804, fod.EFL, 1e-3)
	assert.InDelta(t, -0.93753, fod.M, 1e-4)
	assert.InDelta(t, -9.37534, fod.ImgHt, 1e-4)
	assert.InDelta(t, 0.05, fod.NAObj, 1e-12)
}

func TestImageHeightField(t *testing.T) {
	sm, osp := doublet(t)
	require.NoError(t, osp.Field().SetYFields(spec.ImageHeight, 0, 3))

	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.FirstOrder.ImgHt, 1e-3)
}

func TestStopBehindLens(t *testing.T) {
	sm := seq.NewModel(1e10)
	sm.AddSurface(seq.NewSurface(100, 0), 5, glass(t, "N-BK7"))
	sm.AddSurface(seq.NewSurface(-100, 0), 20, medium.NewAir())
	sm.AddSurface(seq.NewSurface(0, 0), 50, medium.NewAir())
	require.NoError(t, sm.SetStop(3))

	osp := spec.NewOpticalSpec()
	require.NoError(t, osp.Field().SetYFields(spec.ObjectAngle, 5))

	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 29.5058, res.FirstOrder.EnpDist, 1e-3)
	assert.InDelta(t, 0.0, res.FirstOrder.ExpDist, 1e-9)
	// chief ray crosses the axis at the stop
	assert.InDelta(t, 0.0, res.Chief[3].Ht, 1e-12)
}

func TestMirror(t *testing.T) {
	sm := seq.NewModel(1e10)
	sm.AddMirror(-200, 25, -100)

	osp := spec.NewOpticalSpec()
	require.NoError(t, osp.Pupil().Set(spec.EntrancePupilDiameter, 20))

	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.FirstOrder.EFL, 1e-9)
	assert.InDelta(t, -100.0, res.FirstOrder.BFL, 1e-9)
	assert.InDelta(t, 5.0, res.FirstOrder.FNo, 1e-9)
	assert.Equal(t, -1.0, res.FirstOrder.NImg)
}

func TestDegenerateSystems(t *testing.T) {
	t.Run("afocal", func(t *testing.T) {
		sm := seq.NewModel(1e10)
		sm.AddSurface(seq.NewSurface(0, 0), 5, glass(t, "N-BK7"))
		sm.AddSurface(seq.NewSurface(0, 0), 10, medium.NewAir())

		_, err := Compute(sm, spec.NewOpticalSpec(), Options{})
		assert.ErrorIs(t, err, ErrDegenerateSystem)
	})

	t.Run("no interfaces", func(t *testing.T) {
		_, err := Compute(seq.NewModel(10), spec.NewOpticalSpec(), Options{})
		assert.ErrorIs(t, err, ErrDegenerateSystem)
	})

	t.Run("telecentric image space", func(t *testing.T) {
		// stop in the front focal plane
		n2, err := medium.NewConstant(2, "")
		require.NoError(t, err)
		sm := seq.NewModel(1e10)
		sm.AddSurface(seq.NewSurface(0, 0), 100, medium.NewAir())
		sm.AddSurface(seq.NewSurface(100, 0), 0, n2)
		sm.AddSurface(seq.NewSurface(0, 0), 100, medium.NewAir())

		_, err = Compute(sm, spec.NewOpticalSpec(), Options{})
		assert.ErrorIs(t, err, ErrDegenerateSystem)
	})
}

func TestInvalidPupilForConjugates(t *testing.T) {
	sm, osp := doublet(t)
	require.NoError(t, osp.Pupil().Set(spec.ObjectNA, 0.1))
	_, err := Compute(sm, osp, Options{})
	assert.ErrorIs(t, err, spec.ErrInvalidSpec)

	sm, osp = doublet(t)
	require.NoError(t, osp.Field().SetYFields(spec.ObjectHeight, 0, 1))
	_, err = Compute(sm, osp, Options{})
	assert.ErrorIs(t, err, spec.ErrInvalidSpec)
}

func TestUnknownGlassPropagates(t *testing.T) {
	sm, osp := doublet(t)
	require.NoError(t, sm.SetMedium(1, medium.Medium{Kind: medium.CatalogGlass, Name: "NOPE"}))
	_, err := Compute(sm, osp, Options{})
	assert.ErrorIs(t, err, medium.ErrGlassNotFound)
}

func TestListOrder(t *testing.T) {
	sm, osp := doublet(t)
	res, err := Compute(sm, osp, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.FirstOrder.List(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	labels := Labels()
	require.Len(t, lines, len(labels))
	assert.Equal(t, "efl", labels[0])
	assert.Equal(t, "optical invariant", labels[len(labels)-1])
	for i, l := range labels {
		assert.True(t, strings.HasPrefix(lines[i], l+" "), "line %d: %q", i, lines[i])
	}
}
