package seq

import (
	"errors"
	"fmt"
	"math"

	"raylens/pkg/medium"
)

var (
	// ErrIndex indicates a surface or gap index outside the model.
	ErrIndex = errors.New("seq: index out of range")
	// ErrStructure indicates a model that breaks the object to image layout.
	ErrStructure = errors.New("seq: invalid sequential model")
)

// Model is the sequential model. It always holds an object and an image
// surface; len(surfaces) == len(gaps)+1.
type Model struct {
	surfaces []Surface
	gaps     []Gap
	stop     int
	revision uint64
}

// NewModel returns a model holding only the object and image surfaces,
// separated by an air gap of objectDistance.
func NewModel(objectDistance float64) *Model {
	return &Model{
		surfaces: []Surface{{Mode: Object}, {Mode: Image}},
		gaps:     []Gap{NewAirGap(objectDistance)},
	}
}

// AddSurface appends a surface in front of the image surface, followed by
// a gap of thickness filled with med. The first surface added becomes the
// stop.
func (m *Model) AddSurface(s Surface, thickness float64, med medium.Medium) {
	img := len(m.surfaces) - 1
	m.surfaces = append(m.surfaces[:img], s, m.surfaces[img])
	m.gaps = append(m.gaps, Gap{Thickness: thickness, Medium: med})
	if m.stop == 0 {
		m.stop = 1
	}
	m.revision++
}

// AddMirror appends a reflecting surface. The gap after it keeps the
// medium of the gap before it.
func (m *Model) AddMirror(radius, semiDiameter, thickness float64) {
	s := NewSurface(radius, semiDiameter)
	s.Mode = Reflect
	m.AddSurface(s, thickness, m.gaps[len(m.gaps)-1].Medium)
}

// InsertSurface inserts s at index i (1 ≤ i ≤ image index), followed by g.
// Surfaces from i onward shift up by one.
func (m *Model) InsertSurface(i int, s Surface, g Gap) error {
	if i < 1 || i > len(m.surfaces)-1 {
		return fmt.Errorf("%w: insert at %d", ErrIndex, i)
	}
	if s.Mode != Transmit && s.Mode != Reflect {
		return fmt.Errorf("%w: inserted surface must transmit or reflect", ErrStructure)
	}
	m.surfaces = append(m.surfaces[:i], append([]Surface{s}, m.surfaces[i:]...)...)
	m.gaps = append(m.gaps[:i], append([]Gap{g}, m.gaps[i:]...)...)
	if m.stop == 0 {
		m.stop = 1
	} else if m.stop >= i {
		m.stop++
	}
	m.revision++
	return nil
}

// RemoveSurface deletes interior surface i and the gap following it.
func (m *Model) RemoveSurface(i int) error {
	if i < 1 || i >= len(m.surfaces)-1 {
		return fmt.Errorf("%w: remove %d", ErrIndex, i)
	}
	m.surfaces = append(m.surfaces[:i], m.surfaces[i+1:]...)
	m.gaps = append(m.gaps[:i], m.gaps[i+1:]...)
	switch {
	case len(m.surfaces) == 2:
		m.stop = 0
	case m.stop > i || m.stop == len(m.surfaces)-1:
		m.stop--
	}
	m.revision++
	return nil
}

// NumSurfaces returns the number of surfaces, object and image included.
func (m *Model) NumSurfaces() int { return len(m.surfaces) }

// NumGaps returns the number of gaps.
func (m *Model) NumGaps() int { return len(m.gaps) }

// Surface returns surface i.
func (m *Model) Surface(i int) (Surface, error) {
	if i < 0 || i >= len(m.surfaces) {
		return Surface{}, fmt.Errorf("%w: surface %d of %d", ErrIndex, i, len(m.surfaces))
	}
	return m.surfaces[i], nil
}

// Gap returns gap i, the space after surface i.
func (m *Model) Gap(i int) (Gap, error) {
	if i < 0 || i >= len(m.gaps) {
		return Gap{}, fmt.Errorf("%w: gap %d of %d", ErrIndex, i, len(m.gaps))
	}
	return m.gaps[i], nil
}

// Surfaces returns a copy of the surfaces.
func (m *Model) Surfaces() []Surface { return append([]Surface(nil), m.surfaces...) }

// Gaps returns a copy of the gaps.
func (m *Model) Gaps() []Gap { return append([]Gap(nil), m.gaps...) }

// Stop returns the index of the aperture stop surface.
func (m *Model) Stop() int { return m.stop }

// ImageIndex returns the index of the image surface.
func (m *Model) ImageIndex() int { return len(m.surfaces) - 1 }

// ZDir returns the propagation direction (+1 or -1) in gap i.
func (m *Model) ZDir(i int) int {
	dir := 1
	for k := 1; k <= i && k < len(m.surfaces); k++ {
		if m.surfaces[k].Mode == Reflect {
			dir = -dir
		}
	}
	return dir
}

// SetStop makes interior surface i the aperture stop.
func (m *Model) SetStop(i int) error {
	if i < 1 || i >= len(m.surfaces)-1 {
		return fmt.Errorf("%w: stop %d", ErrIndex, i)
	}
	m.stop = i
	m.revision++
	return nil
}

// SetRadius changes the radius of surface i.
func (m *Model) SetRadius(i int, r float64) error {
	if i < 0 || i >= len(m.surfaces) {
		return fmt.Errorf("%w: surface %d", ErrIndex, i)
	}
	m.surfaces[i].Curvature = CurvatureFromRadius(r)
	m.revision++
	return nil
}

// SetConic changes the conic constant of surface i.
func (m *Model) SetConic(i int, k float64) error {
	if i < 0 || i >= len(m.surfaces) {
		return fmt.Errorf("%w: surface %d", ErrIndex, i)
	}
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return fmt.Errorf("%w: conic constant %g", ErrStructure, k)
	}
	m.surfaces[i].Conic = k
	m.revision++
	return nil
}

// SetSemiDiameter changes the semi-diameter of surface i.
func (m *Model) SetSemiDiameter(i int, sd float64) error {
	if i < 0 || i >= len(m.surfaces) {
		return fmt.Errorf("%w: surface %d", ErrIndex, i)
	}
	if sd < 0 || math.IsNaN(sd) {
		return fmt.Errorf("%w: semi-diameter %g", ErrStructure, sd)
	}
	m.surfaces[i].SemiDiameter = sd
	m.revision++
	return nil
}

// SetMode switches interior surface i between transmit and reflect.
func (m *Model) SetMode(i int, mode Mode) error {
	if i < 1 || i >= len(m.surfaces)-1 {
		return fmt.Errorf("%w: surface %d", ErrIndex, i)
	}
	if mode != Transmit && mode != Reflect {
		return fmt.Errorf("%w: interior surface mode %s", ErrStructure, mode)
	}
	m.surfaces[i].Mode = mode
	m.revision++
	return nil
}

// SetLabel changes the listing label of surface i.
func (m *Model) SetLabel(i int, label string) error {
	if i < 0 || i >= len(m.surfaces) {
		return fmt.Errorf("%w: surface %d", ErrIndex, i)
	}
	m.surfaces[i].Label = label
	m.revision++
	return nil
}

// SetThickness changes the thickness of gap i.
func (m *Model) SetThickness(i int, t float64) error {
	if i < 0 || i >= len(m.gaps) {
		return fmt.Errorf("%w: gap %d", ErrIndex, i)
	}
	m.gaps[i].Thickness = t
	m.revision++
	return nil
}

// SetMedium changes the medium of gap i.
func (m *Model) SetMedium(i int, med medium.Medium) error {
	if i < 0 || i >= len(m.gaps) {
		return fmt.Errorf("%w: gap %d", ErrIndex, i)
	}
	m.gaps[i].Medium = med
	m.revision++
	return nil
}

// Revision counts successful mutations.
func (m *Model) Revision() uint64 { return m.revision }

// Validate checks the structural invariants of the model.
func (m *Model) Validate() error {
	n := len(m.surfaces)
	if n < 2 || len(m.gaps) != n-1 {
		return fmt.Errorf("%w: %d surfaces, %d gaps", ErrStructure, n, len(m.gaps))
	}
	if m.surfaces[0].Mode != Object || m.surfaces[n-1].Mode != Image {
		return fmt.Errorf("%w: must start with the object and end with the image", ErrStructure)
	}
	for i := 1; i < n-1; i++ {
		if mode := m.surfaces[i].Mode; mode != Transmit && mode != Reflect {
			return fmt.Errorf("%w: surface %d has mode %s", ErrStructure, i, mode)
		}
	}
	for i, g := range m.gaps {
		t := g.Thickness
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: gap %d thickness is not finite", ErrStructure, i)
		}
		if float64(m.ZDir(i))*t < 0 {
			return fmt.Errorf("%w: gap %d thickness %g runs against the propagation direction", ErrStructure, i, t)
		}
	}
	if n > 2 && (m.stop < 1 || m.stop > n-2) {
		return fmt.Errorf("%w: stop surface %d", ErrStructure, m.stop)
	}
	return nil
}
