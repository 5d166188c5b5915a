// Package paraxial implements the first-order engine. Rays are traced with
// the y-nu method (nu = n·u) and carried two at a time as the columns of a
// 2×2 matrix; every surface applies a refraction matrix and every gap a
// transfer matrix.
//
// Sign conventions: distances are positive toward +z; after a mirror the
// gap index carries the sign of the propagation direction, so a reflection
// is a refraction into n' = -n and t/n stays positive.
package paraxial

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"raylens/pkg/seq"
)

// ErrDegenerateSystem indicates a first-order quantity that is mathematically
// undefined for the system (a zero angle or index in a denominator).
var ErrDegenerateSystem = errors.New("paraxial: degenerate system")

// RayPoint is a paraxial ray at one surface: its height and the slope in
// the gap following the surface.
type RayPoint struct {
	Ht  float64
	Slp float64
}

// Ray holds one RayPoint per surface, object to image.
type Ray []RayPoint

// system is the sequential model reduced to what the paraxial trace needs.
type system struct {
	curvatures []float64
	thickness  []float64
	indices    []float64
	stop       int
}

func (s *system) image() int { return len(s.curvatures) - 1 }

// refraction returns the refraction matrix of surface i.
func (s *system) refraction(i int) *mat.Dense {
	phi := (s.indices[i] - s.indices[i-1]) * s.curvatures[i]
	return mat.NewDense(2, 2, []float64{
		1, 0,
		-phi, 1,
	})
}

// transfer returns the transfer matrix across gap i.
func (s *system) transfer(i int) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		1, s.thickness[i] / s.indices[i],
		0, 1,
	})
}

// trace propagates the two rays held in start, given at surface 1 as
// (y, nu) columns with nu measured in object space, to the image surface.
// It returns both rays and the state right after the last interface, which
// for an identity start is the system matrix.
func (s *system) trace(start *mat.Dense) ([2]Ray, *mat.Dense) {
	n := len(s.curvatures)
	rays := [2]Ray{make(Ray, n), make(Ray, n)}

	state := mat.DenseCopyOf(start)
	for k := 0; k < 2; k++ {
		u0 := state.At(1, k) / s.indices[0]
		rays[k][0] = RayPoint{Ht: state.At(0, k) - u0*s.thickness[0], Slp: u0}
	}

	var last *mat.Dense
	for i := 1; i < n; i++ {
		if i < n-1 {
			apply(state, s.refraction(i))
		}
		for k := 0; k < 2; k++ {
			nIdx := s.indices[min(i, n-2)]
			rays[k][i] = RayPoint{Ht: state.At(0, k), Slp: state.At(1, k) / nIdx}
		}
		if i == n-2 {
			last = mat.DenseCopyOf(state)
		}
		if i < n-1 {
			apply(state, s.transfer(i))
		}
	}
	return rays, last
}

// apply replaces state by m·state.
func apply(state, m *mat.Dense) {
	var out mat.Dense
	out.Mul(m, state)
	state.Copy(&out)
}

// newSystem evaluates the gap indices of sm at wvl nm.
func newSystem(sm *seq.Model, wvl float64) (*system, error) {
	if err := sm.Validate(); err != nil {
		return nil, err
	}
	n := sm.NumSurfaces()
	if n < 3 {
		return nil, fmt.Errorf("%w: no interfaces between object and image", ErrDegenerateSystem)
	}
	s := &system{
		curvatures: make([]float64, n),
		thickness:  make([]float64, n-1),
		indices:    make([]float64, n-1),
		stop:       sm.Stop(),
	}
	for i, surf := range sm.Surfaces() {
		s.curvatures[i] = surf.Curvature
	}
	for i, g := range sm.Gaps() {
		idx, err := g.Medium.Index(wvl)
		if err != nil {
			return nil, fmt.Errorf("gap %d: %w", i, err)
		}
		if idx == 0 {
			return nil, fmt.Errorf("%w: zero index in gap %d", ErrDegenerateSystem, i)
		}
		s.thickness[i] = g.Thickness
		s.indices[i] = float64(sm.ZDir(i)) * idx
	}
	return s, nil
}
