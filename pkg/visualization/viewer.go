// Package visualization renders an optical model: a lens cross-section with
// traced rays and the transverse ray aberration fans.
package visualization

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"raylens/internal/models"
	"raylens/pkg/opticalmodel"
	"raylens/pkg/raytrace"
)

// profilePoints is the number of points drawn per surface profile.
const profilePoints = 41

// mtfBins is the line spread histogram size of the MTF plot.
const mtfBins = 256

// Viewer renders plots from an optical model. It keeps the model's cache
// handle, so every plot reflects the latest Recompute.
type Viewer struct {
	model *opticalmodel.OpticalModel
	cache *opticalmodel.Cache

	// width and height of saved images
	width  vg.Length
	height vg.Length

	// raysPerField is the number of meridional rays drawn per field
	raysPerField int
}

// NewViewer creates a viewer for om. Width and height are in inches.
func NewViewer(om *opticalmodel.OpticalModel, width, height float64, raysPerField int) *Viewer {
	if raysPerField < 1 {
		raysPerField = 1
	}
	return &Viewer{
		model:        om,
		cache:        om.Cache(),
		width:        vg.Length(width) * vg.Inch,
		height:       vg.Length(height) * vg.Inch,
		raysPerField: raysPerField,
	}
}

// Layout is the geometry of a lens cross-section in the meridional plane,
// with z measured from the first interface.
type Layout struct {
	// Surfaces holds one profile per interface and the image surface
	Surfaces []plotter.XYs

	// Rays holds the traced rays of each field point
	Rays [][]plotter.XYs

	// Vertices are the global z positions of the surface vertices
	Vertices []float64
}

// Layout computes the cross-section from the current cache.
func (v *Viewer) Layout() (*Layout, error) {
	par, err := v.cache.Paraxial()
	if err != nil {
		return nil, err
	}
	sm := v.model.SeqModel()
	surfs, gaps := sm.Surfaces(), sm.Gaps()
	img := sm.ImageIndex()

	lay := &Layout{Vertices: make([]float64, len(surfs))}
	length := 0.0
	for i := 2; i <= img; i++ {
		lay.Vertices[i] = lay.Vertices[i-1] + gaps[i-1].Thickness
		length = math.Max(length, math.Abs(lay.Vertices[i]))
	}
	if length == 0 {
		length = 1
	}

	for i := 1; i <= img; i++ {
		s := surfs[i]
		h := s.SemiDiameter
		if h == 0 {
			h = math.Abs(par.Marginal[i].Ht) + math.Abs(par.Chief[i].Ht)
		}
		if i == img && h == 0 {
			h = 0.05 * length
		}
		hs := make([]float64, profilePoints)
		floats.Span(hs, -h, h)
		var pts plotter.XYs
		for _, y := range hs {
			z, ok := s.Sag(y)
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: lay.Vertices[i] + z, Y: y})
		}
		lay.Surfaces = append(lay.Surfaces, pts)
	}

	wvl := v.model.OpticalSpec().SpectralRegion().ReferenceWavelength()
	aim := raytrace.NewAimer(par)
	pupil := make([]float64, v.raysPerField)
	if len(pupil) > 1 {
		floats.Span(pupil, -1, 1)
	}
	zStart := -0.2 * length
	if !par.Infinite && par.FirstOrder.ObjDist < length {
		zStart = -par.FirstOrder.ObjDist
	}
	for _, fs := range par.FieldSlopes {
		var rays []plotter.XYs
		for _, py := range pupil {
			r := aim.Ray(fs, 0, py)
			path, err := raytrace.TraceRay(sm, wvl, r)
			if err != nil {
				return nil, fmt.Errorf("layout ray trace failed: %w", err)
			}
			rays = append(rays, rayLine(r, zStart, path, lay.Vertices))
		}
		lay.Rays = append(lay.Rays, rays)
	}
	return lay, nil
}

// rayLine converts a traced path to global coordinates, starting where the
// incoming ray crosses zStart.
func rayLine(r models.Ray, zStart float64, path raytrace.Path, vertices []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(path.Points)+1)
	if r.D.Z != 0 {
		start := r.P.Add(r.D.Scale((zStart - r.P.Z) / r.D.Z))
		pts = append(pts, plotter.XY{X: start.Z, Y: start.Y})
	}
	for _, p := range path.Points {
		pts = append(pts, plotter.XY{X: vertices[p.Surface] + p.P.Z, Y: p.P.Y})
	}
	return pts
}

// LayoutPlot builds the cross-section plot.
func (v *Viewer) LayoutPlot() (*plot.Plot, error) {
	lay, err := v.Layout()
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = v.model.Name()
	p.X.Label.Text = "z"
	p.Y.Label.Text = "y"

	for _, pts := range lay.Surfaces {
		if len(pts) < 2 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Width = vg.Points(1.5)
		p.Add(l)
	}
	for fi, rays := range lay.Rays {
		for ri, pts := range rays {
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			l.Color = plotutil.Color(fi)
			p.Add(l)
			if ri == 0 {
				p.Legend.Add(fmt.Sprintf("field %d", fi), l)
			}
		}
	}
	return p, nil
}

// RayFanPlot builds the transverse aberration plot: dy against the pupil
// coordinate for y fans and dx for x fans, one curve per field and
// wavelength. Blocked samples leave gaps.
func (v *Viewer) RayFanPlot() (*plot.Plot, error) {
	sets, err := v.cache.SampleSets()
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = "transverse ray aberration"
	p.X.Label.Text = "pupil"
	p.Y.Label.Text = "aberration"
	p.Add(plotter.NewGrid())

	for _, set := range sets {
		for _, axis := range []raytrace.Axis{raytrace.AxisY, raytrace.AxisX} {
			segments := fanSegments(set, axis)
			for k, pts := range segments {
				l, err := plotter.NewLine(pts)
				if err != nil {
					return nil, err
				}
				l.Color = plotutil.Color(set.Wavelength)
				l.Dashes = plotutil.Dashes(set.Field)
				p.Add(l)
				if k == 0 && axis == raytrace.AxisY {
					p.Legend.Add(fmt.Sprintf("f%d %.1fnm", set.Field, set.WavelengthNM), l)
				}
			}
		}
	}
	return p, nil
}

// MTFPlot builds the geometric MTF plot from the meridional fans, one curve
// per field and wavelength. All curves share one spread window so their
// frequency axes agree.
func (v *Viewer) MTFPlot() (*plot.Plot, error) {
	sets, err := v.cache.SampleSets()
	if err != nil {
		return nil, err
	}
	width := 4 * raytrace.MaxOffset(sets)
	if width == 0 {
		width = 1e-3
	}
	p := plot.New()
	p.Title.Text = "geometric MTF"
	p.X.Label.Text = "frequency"
	p.Y.Label.Text = "modulation"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	for _, set := range sets {
		freq, mtf, err := raytrace.GeometricMTF(set, raytrace.AxisY, mtfBins, width)
		if err != nil {
			continue
		}
		pts := make(plotter.XYs, len(freq))
		for i := range freq {
			pts[i] = plotter.XY{X: freq[i], Y: mtf[i]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = plotutil.Color(set.Wavelength)
		l.Dashes = plotutil.Dashes(set.Field)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("f%d %.1fnm", set.Field, set.WavelengthNM), l)
	}
	return p, nil
}

// fanSegments splits the samples of one axis into runs of unblocked rays.
func fanSegments(set raytrace.SampleSet, axis raytrace.Axis) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for _, s := range set.Samples {
		if s.Axis != axis {
			continue
		}
		if s.Blocked {
			if len(cur) > 1 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		val := s.DY
		if axis == raytrace.AxisX {
			val = s.DX
		}
		cur = append(cur, plotter.XY{X: s.Pupil, Y: val})
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

// SaveLayout renders the cross-section to filename. The image format
// follows the file extension (png, svg, pdf, ...).
func (v *Viewer) SaveLayout(filename string) error {
	p, err := v.LayoutPlot()
	if err != nil {
		return err
	}
	return v.save(p, filename)
}

// SaveRayFan renders the aberration fans to filename.
func (v *Viewer) SaveRayFan(filename string) error {
	p, err := v.RayFanPlot()
	if err != nil {
		return err
	}
	return v.save(p, filename)
}

// SaveMTF renders the geometric MTF to filename.
func (v *Viewer) SaveMTF(filename string) error {
	p, err := v.MTFPlot()
	if err != nil {
		return err
	}
	return v.save(p, filename)
}

func (v *Viewer) save(p *plot.Plot, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := p.Save(v.width, v.height, filename); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filename, err)
	}
	return nil
}
