package medium

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// abbeScale maps Abbe numbers onto the index axis of the glass map, so a
// step of 1 in vd weighs like a step of 0.01 in nd.
const abbeScale = 0.01

// Match is a catalog glass close to a requested (nd, vd).
type Match struct {
	Name string
	Nd   float64
	Vd   float64

	// Dist is the distance on the scaled glass map
	Dist float64
}

// glassPoint is a glass on the (nd, vd) map.
type glassPoint struct {
	name string
	nd   float64
	v    float64 // scaled Abbe number
}

// Compare implements the kdtree.Comparable interface
func (p glassPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(glassPoint)
	if d == 0 {
		return p.nd - q.nd
	}
	return p.v - q.v
}

func (p glassPoint) Dims() int { return 2 }

// Distance returns the squared distance between two glasses
func (p glassPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(glassPoint)
	dn := p.nd - q.nd
	dv := p.v - q.v
	return dn*dn + dv*dv
}

type glassPoints []glassPoint

func (p glassPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p glassPoints) Len() int                              { return len(p) }
func (p glassPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p glassPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(glassPlane{glassPoints: p, Dim: d}, kdtree.MedianOfRandoms(glassPlane{glassPoints: p, Dim: d}, 16))
}

// glassPlane implements sort.Interface and kdtree.SortSlicer for glassPoints
type glassPlane struct {
	glassPoints
	kdtree.Dim
}

func (p glassPlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.glassPoints[i].nd < p.glassPoints[j].nd
	}
	return p.glassPoints[i].v < p.glassPoints[j].v
}

func (p glassPlane) Slice(start, end int) kdtree.SortSlicer {
	return glassPlane{glassPoints: p.glassPoints[start:end], Dim: p.Dim}
}

func (p glassPlane) Swap(i, j int) {
	p.glassPoints[i], p.glassPoints[j] = p.glassPoints[j], p.glassPoints[i]
}

// Abbe returns the d-line index and Abbe number of a catalog glass.
func (c *Catalog) Abbe(glass string) (nd, vd float64, err error) {
	if nd, err = c.Index(glass, WavelengthD); err != nil {
		return 0, 0, err
	}
	nF, _ := c.Index(glass, WavelengthF)
	nC, _ := c.Index(glass, WavelengthC)
	return nd, (nd - 1) / (nF - nC), nil
}

func (c *Catalog) glassMap() *kdtree.Tree {
	c.mapOnce.Do(func() {
		points := make(glassPoints, 0, len(c.glasses))
		for _, name := range c.Names() {
			nd, vd, err := c.Abbe(name)
			if err != nil {
				continue
			}
			points = append(points, glassPoint{name: name, nd: nd, v: vd * abbeScale})
		}
		if len(points) > 0 {
			c.glassTree = kdtree.New(points, true)
		}
	})
	return c.glassTree
}

// Nearest returns up to n catalog glasses closest to (nd, vd), nearest
// first.
func (c *Catalog) Nearest(nd, vd float64, n int) []Match {
	tree := c.glassMap()
	if tree == nil || n < 1 {
		return nil
	}
	keeper := kdtree.NewNKeeper(n)
	tree.NearestSet(keeper, glassPoint{nd: nd, v: vd * abbeScale})

	matches := make([]Match, 0, keeper.Len())
	for _, item := range keeper.Heap {
		// sentinel
		if item.Comparable == nil {
			continue
		}
		g := item.Comparable.(glassPoint)
		matches = append(matches, Match{Name: g.name, Nd: g.nd, Vd: g.v / abbeScale, Dist: math.Sqrt(item.Dist)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Dist < matches[j].Dist })
	return matches
}
