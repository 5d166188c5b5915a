// Package seq implements the sequential model: an ordered list of surfaces
// interleaved with gaps, from the object surface to the image surface.
// Surface indices are stable and address every other component.
package seq

import (
	"math"

	"raylens/pkg/medium"
)

// Mode is the closed set of surface interaction kinds.
type Mode int

const (
	// Object is the first surface
	Object Mode = iota

	// Transmit refracts rays into the following gap
	Transmit

	// Reflect mirrors rays back, reversing the propagation direction
	Reflect

	// Image is the last surface
	Image
)

var modeNames = [...]string{"object", "transmit", "reflect", "image"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Surface is one interface of the sequential model.
type Surface struct {
	// Label overrides the default listing label when set
	Label string

	// Curvature is 1/radius; zero is a flat surface
	Curvature float64

	// Conic is the conic constant: 0 sphere, -1 paraboloid, < -1 hyperboloid
	Conic float64

	// SemiDiameter bounds ray heights; zero means unbounded
	SemiDiameter float64

	// Mode selects how rays interact with the surface
	Mode Mode
}

// NewSurface returns a transmitting surface with the given radius.
// A radius of 0 or ±Inf gives a flat surface.
func NewSurface(radius, semiDiameter float64) Surface {
	return Surface{Curvature: CurvatureFromRadius(radius), SemiDiameter: semiDiameter, Mode: Transmit}
}

// Radius returns the radius of curvature, 0 for a flat surface.
func (s Surface) Radius() float64 {
	if s.Curvature == 0 {
		return 0
	}
	return 1 / s.Curvature
}

// CurvatureFromRadius converts a radius to a curvature, mapping the flat
// conventions 0 and ±Inf to zero curvature.
func CurvatureFromRadius(r float64) float64 {
	if r == 0 || math.IsInf(r, 0) {
		return 0
	}
	return 1 / r
}

// Sag returns the axial depth of the conic surface at height h, and false
// when h lies beyond it.
func (s Surface) Sag(h float64) (float64, bool) {
	c := s.Curvature
	if c == 0 {
		return 0, true
	}
	arg := 1 - (1+s.Conic)*c*c*h*h
	if arg < 0 {
		return 0, false
	}
	return c * h * h / (1 + math.Sqrt(arg)), true
}

// Gap is the space following a surface.
type Gap struct {
	// Thickness is the axial distance to the next surface. It is negative
	// after an odd number of mirrors.
	Thickness float64

	// Medium fills the gap
	Medium medium.Medium
}

// NewAirGap returns a gap of air.
func NewAirGap(thickness float64) Gap {
	return Gap{Thickness: thickness, Medium: medium.NewAir()}
}
