package opticalmodel

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raylens/internal/models"
	"raylens/pkg/config"
	"raylens/pkg/medium"
	"raylens/pkg/raytrace"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

func newDoublet(t *testing.T, opts ...Option) *OpticalModel {
	t.Helper()
	bk7, err := medium.NewGlass("N-BK7")
	require.NoError(t, err)
	sf5, err := medium.NewGlass("N-SF5")
	require.NoError(t, err)

	sm := seq.NewModel(1e13)
	sm.AddSurface(seq.NewSurface(61.47, 12.5), 6.0, bk7)
	sm.AddSurface(seq.NewSurface(-44.64, 12.5), 2.5, sf5)
	sm.AddSurface(seq.NewSurface(-129.94, 12.5), 95.9519, medium.NewAir())

	osp := spec.NewOpticalSpec()
	require.NoError(t, osp.Pupil().Set(spec.EntrancePupilDiameter, 25))
	require.NoError(t, osp.Field().SetYFields(spec.ObjectAngle, 0, 1))
	return New(sm, osp, opts...)
}

func TestCacheStaleUntilRecompute(t *testing.T) {
	om := newDoublet(t)
	assert.True(t, om.IsStale())
	_, err := om.Cache().FirstOrder()
	assert.ErrorIs(t, err, ErrStaleData)
	_, err = om.Cache().SampleSets()
	assert.ErrorIs(t, err, ErrStaleData)
	assert.ErrorIs(t, om.ListFirstOrder(&bytes.Buffer{}), ErrStaleData)

	require.NoError(t, om.Recompute())
	assert.False(t, om.IsStale())
	assert.Equal(t, uint64(1), om.Cache().Version())
}

func TestDoubletFirstOrder(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())

	fod, err := om.Cache().FirstOrder()
	require.NoError(t, err)
	assert.InEpsilon(t, 100.0, fod.EFL, 0.005)
	assert.InDelta(t, 95.95, fod.BFL, 0.01)
	assert.InDelta(t, 0.2182, fod.OptInv, 1e-4)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())
	first, err := om.Cache().FirstOrder()
	require.NoError(t, err)
	firstSets, err := om.Cache().SampleSets()
	require.NoError(t, err)

	require.NoError(t, om.Recompute())
	second, err := om.Cache().FirstOrder()
	require.NoError(t, err)
	secondSets, err := om.Cache().SampleSets()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSets, secondSets)
}

func TestCacheHandleIsStable(t *testing.T) {
	om := newDoublet(t)
	handle := om.Cache()
	require.NoError(t, om.Recompute())
	require.NoError(t, om.SeqModel().SetThickness(3, 90))
	require.NoError(t, om.Recompute())

	assert.Same(t, handle, om.Cache())
	fod, err := handle.FirstOrder()
	require.NoError(t, err)
	assert.InDelta(t, 90.0, fod.ImgDist, 1e-12)
	assert.Equal(t, uint64(2), handle.Version())
}

func TestEditsMarkCacheStale(t *testing.T) {
	edits := map[string]func(*OpticalModel) error{
		"thickness": func(om *OpticalModel) error { return om.SeqModel().SetThickness(2, 3) },
		"radius":    func(om *OpticalModel) error { return om.SeqModel().SetRadius(1, 60) },
		"pupil":     func(om *OpticalModel) error { return om.OpticalSpec().Pupil().Set(spec.FNumber, 5) },
		"field":     func(om *OpticalModel) error { return om.OpticalSpec().Field().SetYFields(spec.ObjectAngle, 2) },
		"focus":     func(om *OpticalModel) error { return om.OpticalSpec().Focus().Set(0.1, 0) },
		"reference": func(om *OpticalModel) error { return om.OpticalSpec().SpectralRegion().SetReference(0) },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			om := newDoublet(t)
			require.NoError(t, om.Recompute())
			require.NoError(t, edit(om))
			assert.True(t, om.IsStale())
			_, err := om.Cache().FirstOrder()
			assert.ErrorIs(t, err, ErrStaleData)
		})
	}
}

func TestRejectedWavelengthListKeepsCache(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())
	before, err := om.Cache().FirstOrder()
	require.NoError(t, err)

	err = om.OpticalSpec().SpectralRegion().SetFromList(nil)
	assert.ErrorIs(t, err, spec.ErrInvalidSpec)

	after, err := om.Cache().FirstOrder()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReferenceOutOfRange(t *testing.T) {
	om := newDoublet(t)
	err := om.OpticalSpec().SpectralRegion().SetReference(5)
	assert.ErrorIs(t, err, spec.ErrOutOfRange)
}

func TestWavelengthSwitchKeepsGeometry(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())
	surfaces, gaps := om.SeqModel().Surfaces(), om.SeqModel().Gaps()

	sr := om.OpticalSpec().SpectralRegion()
	require.NoError(t, sr.SetFromList([][2]float64{{656, 1}, {587, 2}, {488, 1}}))
	require.NoError(t, sr.SetReference(1))
	assert.True(t, om.IsStale())
	require.NoError(t, om.Recompute())

	assert.Equal(t, surfaces, om.SeqModel().Surfaces())
	assert.Equal(t, gaps, om.SeqModel().Gaps())

	fod, err := om.Cache().FirstOrder()
	require.NoError(t, err)
	assert.Equal(t, 587.0, fod.Wavelength)
	assert.InEpsilon(t, 100.0, fod.EFL, 0.005)

	sets, err := om.Cache().SampleSets()
	require.NoError(t, err)
	assert.Len(t, sets, 6)
}

func TestSmallSemiDiameterBlocksRays(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.SeqModel().SetSemiDiameter(1, 10))
	require.NoError(t, om.Recompute())

	sets, err := om.Cache().SampleSets()
	require.NoError(t, err)
	for _, s := range sets {
		require.NotZero(t, s.NumBlocked(), "field %d", s.Field)
		for _, smp := range s.Samples {
			if smp.Blocked {
				assert.Equal(t, models.Clipped, smp.Reason)
			}
		}
	}
}

func TestFailedRecomputeLeavesCache(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())
	before, err := om.Cache().Paraxial()
	require.NoError(t, err)

	// flat surfaces everywhere make the system afocal
	for i := 1; i <= 3; i++ {
		require.NoError(t, om.SeqModel().SetRadius(i, 0))
	}
	assert.Error(t, om.Recompute())
	assert.True(t, om.IsStale())
	assert.Equal(t, uint64(1), om.Cache().Version())
	assert.Same(t, before, om.Cache().paraxial)
}

func TestSampleSetsAreCopies(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())

	sets, err := om.Cache().SampleSets()
	require.NoError(t, err)
	sets[0].Samples[0].DY = 42

	again, err := om.Cache().SampleSets()
	require.NoError(t, err)
	assert.NotEqual(t, 42.0, again[0].Samples[0].DY)
}

func TestListings(t *testing.T) {
	om := newDoublet(t)
	require.NoError(t, om.Recompute())

	var buf bytes.Buffer
	require.NoError(t, om.ListModel(&buf))
	rows := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, rows, om.SeqModel().NumSurfaces()+1)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(rows[1]), "Obj:"))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(rows[len(rows)-1]), "Img:"))

	buf.Reset()
	require.NoError(t, om.ListFirstOrder(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "efl "))
}

func TestLoggerAndParams(t *testing.T) {
	var out bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Trace.FanRays = 7
	cfg.Trace.FanShape = "cross"
	params, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, raytrace.FanCross, params.Trace.Shape)

	om := newDoublet(t, WithLogger(log.New(&out, "", 0)), WithParams(params))
	require.NoError(t, om.Recompute())
	assert.Contains(t, out.String(), "computing first-order data")

	sets, err := om.Cache().SampleSets()
	require.NoError(t, err)
	assert.Len(t, sets[0].Samples, 14)

	cfg.Trace.FanShape = "ring"
	_, err = ParamsFromConfig(cfg)
	assert.Error(t, err)
}
