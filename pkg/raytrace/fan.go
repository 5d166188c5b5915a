package raytrace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"raylens/internal/models"
	"raylens/pkg/paraxial"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// FanShape selects which pupil axes are sampled.
type FanShape int

const (
	// FanY samples the meridional (y) pupil axis
	FanY FanShape = iota

	// FanX samples the sagittal (x) pupil axis
	FanX

	// FanCross samples both axes
	FanCross
)

// ParseFanShape converts "y", "x" or "cross" to a FanShape.
func ParseFanShape(s string) (FanShape, error) {
	switch s {
	case "y", "Y", "":
		return FanY, nil
	case "x", "X":
		return FanX, nil
	case "cross":
		return FanCross, nil
	default:
		return FanY, fmt.Errorf("raytrace: unknown fan shape %q", s)
	}
}

// Axis is the pupil axis a sample lies on.
type Axis byte

const (
	AxisX Axis = 'x'
	AxisY Axis = 'y'
)

// Options configures the aberration fans.
type Options struct {
	// FanRays is the number of samples per fan; even values are rounded up
	FanRays int

	// Shape selects the sampled pupil axes
	Shape FanShape
}

// DefaultOptions returns 21 ray meridional fans.
func DefaultOptions() Options {
	return Options{FanRays: 21, Shape: FanY}
}

// Sample is one fan ray: its pupil coordinate on Axis and its transverse
// offset from the chief ray at the image plane. Blocked samples carry no
// offset.
type Sample struct {
	Axis    Axis
	Pupil   float64
	DX, DY  float64
	Blocked bool
	Reason  models.BlockReason
}

// SampleSet is the fan of one (field, wavelength) pair.
type SampleSet struct {
	// Field and Wavelength index the field point and the spectral entry
	Field      int
	Wavelength int

	// WavelengthNM is the wavelength in nm
	WavelengthNM float64

	// ChiefX and ChiefY locate the chief ray at the image plane
	ChiefX, ChiefY float64

	// ChiefBlocked is set when the reference chief ray did not transmit
	ChiefBlocked bool

	Samples []Sample
}

// NumBlocked counts the blocked samples.
func (s SampleSet) NumBlocked() int {
	n := 0
	for _, smp := range s.Samples {
		if smp.Blocked {
			n++
		}
	}
	return n
}

// RMS returns the root mean square transverse aberration of the unblocked
// samples, or NaN when every sample is blocked.
func (s SampleSet) RMS() float64 {
	sq := make([]float64, 0, len(s.Samples))
	for _, smp := range s.Samples {
		if !smp.Blocked {
			sq = append(sq, smp.DX*smp.DX+smp.DY*smp.DY)
		}
	}
	if len(sq) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// Aimer builds object space rays aimed at the paraxial entrance pupil.
type Aimer struct {
	enpDist   float64
	enpRadius float64
	objDist   float64
	infinite  bool
}

// NewAimer returns an aimer from a first-order result.
func NewAimer(par *paraxial.Result) Aimer {
	return Aimer{
		enpDist:   par.FirstOrder.EnpDist,
		enpRadius: par.FirstOrder.EnpRadius,
		objDist:   par.FirstOrder.ObjDist,
		infinite:  par.Infinite,
	}
}

// Ray returns the ray of field slope fs through normalized pupil (px, py),
// expressed in the frame of surface 1.
func (a Aimer) Ray(fs paraxial.FieldSlope, px, py float64) models.Ray {
	pupil := models.Vec3{X: px * a.enpRadius, Y: py * a.enpRadius, Z: a.enpDist}
	if a.infinite {
		return models.Ray{P: pupil, D: models.Vec3{X: fs.X, Y: fs.Y, Z: 1}.Unit()}
	}
	dist := a.objDist + a.enpDist
	obj := models.Vec3{X: -fs.X * dist, Y: -fs.Y * dist, Z: -a.objDist}
	return models.Ray{P: obj, D: pupil.Sub(obj).Unit()}
}

// Fans traces one aberration fan per (field, wavelength) pair, fields in
// the outer loop. The pupil is aimed with the first-order result par.
func Fans(sm *seq.Model, osp *spec.OpticalSpec, par *paraxial.Result, opts Options) ([]SampleSet, error) {
	if opts.FanRays < 1 {
		return nil, fmt.Errorf("raytrace: fan needs at least one ray, got %d", opts.FanRays)
	}
	if len(par.FieldSlopes) != osp.Field().Len() {
		return nil, fmt.Errorf("raytrace: first-order data has %d fields, spec has %d",
			len(par.FieldSlopes), osp.Field().Len())
	}
	nRays := opts.FanRays
	if nRays%2 == 0 {
		nRays++
	}
	pupil := make([]float64, nRays)
	if nRays == 1 {
		pupil[0] = 0
	} else {
		floats.Span(pupil, -1, 1)
	}

	var axes []Axis
	switch opts.Shape {
	case FanX:
		axes = []Axis{AxisX}
	case FanCross:
		axes = []Axis{AxisY, AxisX}
	default:
		axes = []Axis{AxisY}
	}

	aim := NewAimer(par)
	wvls := osp.SpectralRegion().Wavelengths()
	sets := make([]SampleSet, 0, len(par.FieldSlopes)*len(wvls))

	opt := make([]*optics, len(wvls))
	for wi, wvl := range wvls {
		o, err := newOptics(sm, wvl, osp.Focus().Shift())
		if err != nil {
			return nil, err
		}
		opt[wi] = o
	}

	for fi, fs := range par.FieldSlopes {
		for wi, wvl := range wvls {
			set := SampleSet{Field: fi, Wavelength: wi, WavelengthNM: wvl}
			chief := opt[wi].trace(aim.Ray(fs, 0, 0))
			if chief.Blocked != models.NotBlocked {
				set.ChiefBlocked = true
			} else {
				c := chief.Image()
				set.ChiefX, set.ChiefY = c.X, c.Y
			}

			for _, ax := range axes {
				for _, p := range pupil {
					px, py := 0.0, p
					if ax == AxisX {
						px, py = p, 0
					}
					smp := Sample{Axis: ax, Pupil: p}
					path := opt[wi].trace(aim.Ray(fs, px, py))
					switch {
					case path.Blocked != models.NotBlocked:
						smp.Blocked, smp.Reason = true, path.Blocked
					case set.ChiefBlocked:
						smp.Blocked, smp.Reason = true, models.ChiefBlocked
					default:
						ip := path.Image()
						smp.DX, smp.DY = ip.X-set.ChiefX, ip.Y-set.ChiefY
					}
					set.Samples = append(set.Samples, smp)
				}
			}
			sets = append(sets, set)
		}
	}
	return sets, nil
}
