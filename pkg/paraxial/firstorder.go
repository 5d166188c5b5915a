package paraxial

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// DefaultInfiniteObject is the object distance at or beyond which the
// object is treated as being at infinity.
const DefaultInfiniteObject = 1e10

// FirstOrderData is the first-order snapshot of a system.
//
// Positions are signed distances along the axis: pp1 and ffl from the first
// interface, ppk and bfl from the last interface, enp_dist from the first
// interface, exp_dist from the last interface.
type FirstOrderData struct {
	EFL       float64
	FFL       float64
	PP1       float64
	BFL       float64
	PPK       float64
	FNo       float64
	M         float64
	Red       float64
	ObjDist   float64
	ObjAng    float64
	EnpDist   float64
	EnpRadius float64
	NAObj     float64
	NObj      float64
	ImgDist   float64
	ImgHt     float64
	ExpDist   float64
	ExpRadius float64
	NAImg     float64
	NImg      float64
	OptInv    float64

	// Power is the optical power, 1/efl
	Power float64

	// Wavelength is the wavelength in nm the data was computed at
	Wavelength float64
}

// FieldSlope is the object space chief ray slope of one field point.
type FieldSlope struct {
	X, Y float64
}

// Result is the output of one first-order computation.
type Result struct {
	// FirstOrder is the scalar first-order data
	FirstOrder FirstOrderData

	// Marginal and Chief are the paraxial marginal and chief rays, one point per surface
	Marginal Ray
	Chief    Ray

	// FieldSlopes holds the chief ray object space slopes, one per field point
	FieldSlopes []FieldSlope

	// System is the ABCD matrix from the first to the last interface in (y, nu)
	System *mat.Dense

	// Infinite reports whether the object was treated as being at infinity
	Infinite bool
}

// Options tunes the first-order computation.
type Options struct {
	// InfiniteObject is the object distance threshold for infinite conjugates
	InfiniteObject float64
}

// Compute traces the marginal and chief rays of sm at the reference
// wavelength of osp and derives the first-order data. It never mutates its
// inputs and returns no partial result on failure.
func Compute(sm *seq.Model, osp *spec.OpticalSpec, opts Options) (*Result, error) {
	if opts.InfiniteObject <= 0 {
		opts.InfiniteObject = DefaultInfiniteObject
	}
	wvl := osp.SpectralRegion().ReferenceWavelength()
	sys, err := newSystem(sm, wvl)
	if err != nil {
		return nil, err
	}
	img := sys.image()
	n0, nk := sys.indices[0], sys.indices[img-1]
	t0 := sys.thickness[0]
	infinite := math.Abs(t0) >= opts.InfiniteObject

	// unit rays p (y=1, nu=0) and q (y=0, nu=1) at the first interface
	units, abcd := sys.trace(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
	a, c, d := abcd.At(0, 0), abcd.At(1, 0), abcd.At(1, 1)
	if c == 0 {
		return nil, fmt.Errorf("%w: zero optical power (afocal)", ErrDegenerateSystem)
	}
	yaStop, ybStop := units[0][sys.stop].Ht, units[1][sys.stop].Ht
	if yaStop == 0 {
		return nil, fmt.Errorf("%w: stop surface %d is conjugate to the object", ErrDegenerateSystem, sys.stop)
	}
	enpDist := n0 * ybStop / yaStop

	// marginal ray start (unscaled for f/#), unit chief ray with ubar0 = 1
	y1, nu0, err := marginalStart(osp.Pupil(), n0, t0, enpDist, infinite)
	if err != nil {
		return nil, err
	}
	start := mat.NewDense(2, 2, []float64{
		y1, -n0 * ybStop / yaStop,
		nu0, n0,
	})
	rays, _ := sys.trace(start)
	marginal, unitChief := rays[0], rays[1]

	nuK := nk * marginal[img].Slp
	if nuK == 0 {
		return nil, fmt.Errorf("%w: marginal ray is parallel to the axis in image space", ErrDegenerateSystem)
	}
	if osp.Pupil().Type() == spec.FNumber {
		marginal = scale(marginal, -1/(2*osp.Pupil().Value())/nuK)
		nuK = nk * marginal[img].Slp
	}

	ubarK := unitChief[img].Slp
	if ubarK == 0 {
		return nil, fmt.Errorf("%w: chief ray is parallel to the axis in image space", ErrDegenerateSystem)
	}

	slopes, err := fieldSlopes(osp.Field(), t0, enpDist, unitChief[img].Ht, infinite)
	if err != nil {
		return nil, err
	}
	_, maxIdx := osp.Field().MaxField()
	ubar0 := math.Hypot(slopes[maxIdx].X, slopes[maxIdx].Y)
	if slopes[maxIdx].Y < 0 || (slopes[maxIdx].Y == 0 && slopes[maxIdx].X < 0) {
		ubar0 = -ubar0
	}
	chief := scale(unitChief, ubar0)

	u0 := marginal[0].Slp
	fod := FirstOrderData{
		Wavelength: wvl,
		Power:      -c,
		EFL:        -1 / c,
		PP1:        (d - 1) * n0 / c,
		PPK:        (1 - a) * nk / c,
		ObjDist:    t0,
		ImgDist:    sys.thickness[img-1],
		NObj:       n0,
		NImg:       nk,
		EnpDist:    enpDist,
		OptInv:     n0 * (marginal[1].Ht*chief[0].Slp - chief[1].Ht*u0),
	}
	fod.FFL = fod.PP1 - n0*fod.EFL
	fod.BFL = fod.PPK + nk*fod.EFL
	fod.FNo = -1 / (2 * nuK)
	fod.M = n0 * u0 / nuK
	fod.Red = d + c*t0/n0
	fod.ObjAng = math.Atan(chief[0].Slp) * 180 / math.Pi
	fod.EnpRadius = math.Abs(marginal[1].Ht + u0*enpDist)
	fod.NAObj = math.Abs(n0 * math.Sin(math.Atan(u0)))
	fod.NAImg = math.Abs(nk * math.Sin(math.Atan(marginal[img].Slp)))
	fod.ImgHt = -fod.OptInv / nuK
	fod.ExpDist = fod.ImgDist - unitChief[img].Ht/ubarK
	fod.ExpRadius = math.Abs(marginal[img].Ht + marginal[img].Slp*(fod.ExpDist-fod.ImgDist))

	return &Result{
		FirstOrder:  fod,
		Marginal:    marginal,
		Chief:       chief,
		FieldSlopes: slopes,
		System:      abcd,
		Infinite:    infinite,
	}, nil
}

// marginalStart returns the marginal ray at the first interface as (y, nu).
// For an f/# pupil the ray is a unit ray that is rescaled after tracing.
func marginalStart(p *spec.Pupil, n0, t0, enpDist float64, infinite bool) (float64, float64, error) {
	switch p.Type() {
	case spec.EntrancePupilDiameter:
		if infinite {
			return p.Value() / 2, 0, nil
		}
		dist := t0 + enpDist
		if dist == 0 {
			return 0, 0, fmt.Errorf("%w: object lies in the entrance pupil", ErrDegenerateSystem)
		}
		u0 := p.Value() / 2 / dist
		return u0 * t0, n0 * u0, nil
	case spec.ObjectNA:
		if infinite {
			return 0, 0, fmt.Errorf("%w: object NA needs a finite object distance", spec.ErrInvalidSpec)
		}
		if p.Value() >= math.Abs(n0) {
			return 0, 0, fmt.Errorf("%w: object NA %g not below object index %g", spec.ErrInvalidSpec, p.Value(), math.Abs(n0))
		}
		u0 := math.Tan(math.Asin(p.Value() / math.Abs(n0)))
		return u0 * t0, n0 * u0, nil
	default:
		if infinite {
			return 1, 0, nil
		}
		return t0, n0, nil
	}
}

// fieldSlopes converts every field point to an object space chief slope.
// imgPerSlope is the image height reached by a chief ray of unit slope.
func fieldSlopes(fs *spec.FieldSpec, t0, enpDist, imgPerSlope float64, infinite bool) ([]FieldSlope, error) {
	fields := fs.Fields()
	out := make([]FieldSlope, len(fields))
	for i, f := range fields {
		switch fs.Type() {
		case spec.ObjectAngle:
			out[i] = FieldSlope{X: math.Tan(f.X * math.Pi / 180), Y: math.Tan(f.Y * math.Pi / 180)}
		case spec.ObjectHeight:
			if infinite {
				return nil, fmt.Errorf("%w: object height field needs a finite object distance", spec.ErrInvalidSpec)
			}
			dist := t0 + enpDist
			if dist == 0 {
				return nil, fmt.Errorf("%w: object lies in the entrance pupil", ErrDegenerateSystem)
			}
			out[i] = FieldSlope{X: -f.X / dist, Y: -f.Y / dist}
		case spec.ImageHeight:
			if imgPerSlope == 0 {
				return nil, fmt.Errorf("%w: chief ray does not reach image height", ErrDegenerateSystem)
			}
			out[i] = FieldSlope{X: f.X / imgPerSlope, Y: f.Y / imgPerSlope}
		}
	}
	return out, nil
}

func scale(r Ray, s float64) Ray {
	out := make(Ray, len(r))
	for i, p := range r {
		out[i] = RayPoint{Ht: s * p.Ht, Slp: s * p.Slp}
	}
	return out
}

// labels and accessors in listing order
var listing = []struct {
	label string
	value func(*FirstOrderData) float64
}{
	{"efl", func(f *FirstOrderData) float64 { return f.EFL }},
	{"ffl", func(f *FirstOrderData) float64 { return f.FFL }},
	{"pp1", func(f *FirstOrderData) float64 { return f.PP1 }},
	{"bfl", func(f *FirstOrderData) float64 { return f.BFL }},
	{"ppk", func(f *FirstOrderData) float64 { return f.PPK }},
	{"f/#", func(f *FirstOrderData) float64 { return f.FNo }},
	{"m", func(f *FirstOrderData) float64 { return f.M }},
	{"red", func(f *FirstOrderData) float64 { return f.Red }},
	{"obj_dist", func(f *FirstOrderData) float64 { return f.ObjDist }},
	{"obj_ang", func(f *FirstOrderData) float64 { return f.ObjAng }},
	{"enp_dist", func(f *FirstOrderData) float64 { return f.EnpDist }},
	{"enp_radius", func(f *FirstOrderData) float64 { return f.EnpRadius }},
	{"na obj", func(f *FirstOrderData) float64 { return f.NAObj }},
	{"n obj", func(f *FirstOrderData) float64 { return f.NObj }},
	{"img_dist", func(f *FirstOrderData) float64 { return f.ImgDist }},
	{"img_ht", func(f *FirstOrderData) float64 { return f.ImgHt }},
	{"exp_dist", func(f *FirstOrderData) float64 { return f.ExpDist }},
	{"exp_radius", func(f *FirstOrderData) float64 { return f.ExpRadius }},
	{"na img", func(f *FirstOrderData) float64 { return f.NAImg }},
	{"n img", func(f *FirstOrderData) float64 { return f.NImg }},
	{"optical invariant", func(f *FirstOrderData) float64 { return f.OptInv }},
}

// Labels returns the first-order field labels in listing order.
func Labels() []string {
	out := make([]string, len(listing))
	for i, l := range listing {
		out[i] = l.label
	}
	return out
}

// List writes one "label value" line per first-order field in the fixed
// order efl, ffl, pp1, bfl, ppk, f/#, m, red, obj_dist, obj_ang, enp_dist,
// enp_radius, na obj, n obj, img_dist, img_ht, exp_dist, exp_radius,
// na img, n img, optical invariant.
func (f *FirstOrderData) List(w io.Writer) error {
	for _, l := range listing {
		if _, err := fmt.Fprintf(w, "%-17s %12.5g\n", l.label, l.value(f)); err != nil {
			return err
		}
	}
	return nil
}
