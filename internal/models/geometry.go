package models

import "math"

// Vec3 is a point or direction in a surface's local frame.
// Z runs along the optical axis, Y is the meridional (tangential) axis.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v Vec3) Add(u Vec3) Vec3 { return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z} }

// Sub returns v - u.
func (v Vec3) Sub(u Vec3) Vec3 { return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z} }

// Scale returns s*v.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{s * v.X, s * v.Y, s * v.Z} }

// Dot returns the scalar product of v and u.
func (v Vec3) Dot(u Vec3) float64 { return v.X*u.X + v.Y*u.Y + v.Z*u.Z }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Ray is a real ray: a point and a unit direction (direction cosines).
type Ray struct {
	// P is the current position of the ray
	P Vec3

	// D holds the direction cosines (L, M, N)
	D Vec3
}

// BlockReason explains why a ray failed to reach the image surface.
type BlockReason int

const (
	// NotBlocked marks a ray that reached the image surface
	NotBlocked BlockReason = iota

	// Missed marks a ray that does not intersect a spherical surface
	Missed

	// Clipped marks a ray outside a surface's semi-diameter (vignetted)
	Clipped

	// TotalInternalReflection marks a ray that cannot refract
	TotalInternalReflection

	// ChiefBlocked marks a sample whose reference chief ray was blocked
	ChiefBlocked
)

var blockReasonNames = [...]string{"ok", "missed", "clipped", "tir", "chief blocked"}

func (b BlockReason) String() string {
	if int(b) < len(blockReasonNames) {
		return blockReasonNames[b]
	}
	return "unknown"
}

// SurfacePoint is a ray intersection recorded at one surface.
type SurfacePoint struct {
	// Surface is the index of the surface in the sequential model
	Surface int

	// P is the intersection point in that surface's local frame
	P Vec3

	// D is the ray direction after interacting with the surface
	D Vec3
}
