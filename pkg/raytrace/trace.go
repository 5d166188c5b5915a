// Package raytrace traces real rays through a sequential model of conic
// and flat surfaces and evaluates transverse ray aberration fans.
package raytrace

import (
	"fmt"
	"math"

	"raylens/internal/models"
	"raylens/pkg/seq"
)

// Path is the result of tracing one real ray.
type Path struct {
	// Points holds the intersections reached, starting at the first interface
	Points []models.SurfacePoint

	// Blocked is NotBlocked when the ray reached the image surface
	Blocked models.BlockReason

	// BlockedAt is the surface index where the ray was stopped
	BlockedAt int
}

// Image returns the image surface intersection of an unblocked path.
func (p Path) Image() models.Vec3 {
	return p.Points[len(p.Points)-1].P
}

// optics is a sequential model evaluated at one wavelength.
type optics struct {
	surfaces  []seq.Surface
	thickness []float64
	indices   []float64
}

// newOptics evaluates the gap indices of sm at wvl and shifts the image
// plane by defocus along the propagation direction.
func newOptics(sm *seq.Model, wvl, defocus float64) (*optics, error) {
	o := &optics{surfaces: sm.Surfaces()}
	gaps := sm.Gaps()
	o.thickness = make([]float64, len(gaps))
	o.indices = make([]float64, len(gaps))
	for i, g := range gaps {
		n, err := g.Medium.Index(wvl)
		if err != nil {
			return nil, fmt.Errorf("gap %d at %g nm: %w", i, wvl, err)
		}
		o.thickness[i] = g.Thickness
		o.indices[i] = math.Abs(n)
	}
	last := len(gaps) - 1
	o.thickness[last] += float64(sm.ZDir(last)) * defocus
	return o, nil
}

// trace propagates r, given in the frame of surface 1, to the image surface.
func (o *optics) trace(r models.Ray) Path {
	img := len(o.surfaces) - 1
	path := Path{Points: make([]models.SurfacePoint, 0, img)}
	p, d := r.P, r.D
	for i := 1; i <= img; i++ {
		if i > 1 {
			p.Z -= o.thickness[i-1]
		}
		s := o.surfaces[i]

		dist, ok := intersect(s.Curvature, s.Conic, p, d)
		if !ok {
			path.Blocked, path.BlockedAt = models.Missed, i
			return path
		}
		p = p.Add(d.Scale(dist))

		if i < img && s.SemiDiameter > 0 && math.Hypot(p.X, p.Y) > s.SemiDiameter {
			path.Points = append(path.Points, models.SurfacePoint{Surface: i, P: p, D: d})
			path.Blocked, path.BlockedAt = models.Clipped, i
			return path
		}

		if i < img {
			nrm := normal(s.Curvature, s.Conic, p)
			cosI := d.Dot(nrm)
			switch s.Mode {
			case seq.Reflect:
				d = d.Sub(nrm.Scale(2 * cosI))
			default:
				mu := o.indices[i-1] / o.indices[i]
				k := 1 - mu*mu*(1-cosI*cosI)
				if k < 0 {
					path.Points = append(path.Points, models.SurfacePoint{Surface: i, P: p, D: d})
					path.Blocked, path.BlockedAt = models.TotalInternalReflection, i
					return path
				}
				cosT := math.Copysign(math.Sqrt(k), cosI)
				d = d.Scale(mu).Add(nrm.Scale(cosT - mu*cosI)).Unit()
			}
		}
		path.Points = append(path.Points, models.SurfacePoint{Surface: i, P: p, D: d})
	}
	return path
}

// intersect returns the distance along d from p to the conic surface of
// curvature c and conic constant k through the local vertex.
func intersect(c, k float64, p, d models.Vec3) (float64, bool) {
	if c == 0 {
		if d.Z == 0 {
			return 0, false
		}
		return -p.Z / d.Z, true
	}
	kk := 1 + k
	f := c*(p.X*p.X+p.Y*p.Y+kk*p.Z*p.Z) - 2*p.Z
	g := d.Z - c*(p.X*d.X+p.Y*d.Y+kk*p.Z*d.Z)
	a := c * (d.X*d.X + d.Y*d.Y + kk*d.Z*d.Z)
	disc := g*g - a*f
	if disc < 0 {
		return 0, false
	}
	den := g + math.Copysign(math.Sqrt(disc), g)
	if den == 0 {
		return 0, false
	}
	return f / den, true
}

// normal returns the unit surface normal at p, pointing toward +z at the vertex.
func normal(c, k float64, p models.Vec3) models.Vec3 {
	if c == 0 {
		return models.Vec3{Z: 1}
	}
	return models.Vec3{X: -c * p.X, Y: -c * p.Y, Z: 1 - c*(1+k)*p.Z}.Unit()
}

// TraceRay traces a single real ray at wvl nm through sm. The ray is given
// in the local frame of surface 1.
func TraceRay(sm *seq.Model, wvl float64, r models.Ray) (Path, error) {
	if sm.NumSurfaces() < 3 {
		return Path{}, fmt.Errorf("raytrace: model has no interfaces")
	}
	o, err := newOptics(sm, wvl, 0)
	if err != nil {
		return Path{}, err
	}
	return o.trace(r), nil
}
