package medium

import (
	"fmt"
	"math"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Sellmeier holds the three term Sellmeier coefficients of a glass,
// with C in µm².
type Sellmeier struct {
	B [3]float64
	C [3]float64
}

// Index evaluates the Sellmeier equation at wvl nm.
func (s Sellmeier) Index(wvl float64) float64 {
	w := 0.001 * wvl
	w2 := w * w
	n2 := 1.0
	for i := 0; i < 3; i++ {
		n2 += s.B[i] * w2 / (w2 - s.C[i])
	}
	return math.Sqrt(n2)
}

type indexKey struct {
	glass string
	wvl   float64
}

// Catalog is a named set of Sellmeier glasses. Index evaluations are
// memoized in an LRU cache since the tracers ask for the same
// (glass, wavelength) pairs at every surface of every ray.
type Catalog struct {
	name    string
	glasses map[string]Sellmeier
	cache   *lru.Cache[indexKey, float64]

	// glass map for Nearest, built on first use
	mapOnce   sync.Once
	glassTree *kdtree.Tree
}

// NewCatalog creates a catalog holding glasses with an index cache of
// cacheSize entries.
func NewCatalog(name string, glasses map[string]Sellmeier, cacheSize int) (*Catalog, error) {
	cache, err := lru.New[indexKey, float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}
	g := make(map[string]Sellmeier, len(glasses))
	for k, v := range glasses {
		g[k] = v
	}
	return &Catalog{name: name, glasses: g, cache: cache}, nil
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Lookup returns the coefficients of a glass.
func (c *Catalog) Lookup(glass string) (Sellmeier, bool) {
	s, ok := c.glasses[glass]
	return s, ok
}

// Names returns the sorted glass names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.glasses))
	for k := range c.glasses {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Index returns the refractive index of glass at wvl nm.
func (c *Catalog) Index(glass string, wvl float64) (float64, error) {
	key := indexKey{glass: glass, wvl: wvl}
	if n, ok := c.cache.Get(key); ok {
		return n, nil
	}
	s, ok := c.glasses[glass]
	if !ok {
		return 0, fmt.Errorf("%w: %s %s", ErrGlassNotFound, c.name, glass)
	}
	n := s.Index(wvl)
	c.cache.Add(key, n)
	return n, nil
}

// schottGlasses is a subset of the Schott catalog; fused silica uses the
// Malitson coefficients.
var schottGlasses = map[string]Sellmeier{
	"N-BK7": {
		B: [3]float64{1.03961212, 0.231792344, 1.01046945},
		C: [3]float64{0.00600069867, 0.0200179144, 103.560653},
	},
	"N-SF5": {
		B: [3]float64{1.52481889, 0.187085527, 1.42729015},
		C: [3]float64{0.011254756, 0.0588995392, 129.141675},
	},
	"N-SF11": {
		B: [3]float64{1.73759695, 0.313747346, 1.89878101},
		C: [3]float64{0.013188707, 0.0623068142, 155.23629},
	},
	"F2": {
		B: [3]float64{1.34533359, 0.209073176, 0.937357162},
		C: [3]float64{0.00997743871, 0.0470450767, 111.886764},
	},
	"N-BAF10": {
		B: [3]float64{1.5851495, 0.143559385, 1.08521269},
		C: [3]float64{0.00926681282, 0.0424489805, 105.613573},
	},
	"N-SK16": {
		B: [3]float64{1.34317774, 0.241144399, 0.994317969},
		C: [3]float64{0.00704687339, 0.0229005, 92.7508526},
	},
	"F_SILICA": {
		B: [3]float64{0.6961663, 0.4079426, 0.8974794},
		C: [3]float64{0.00467914826, 0.0135120631, 97.9340025},
	},
}

var (
	defaultCatalog *Catalog
	catalogOnce    sync.Once
)

// DefaultCatalog returns the built-in Schott catalog.
func DefaultCatalog() *Catalog {
	catalogOnce.Do(func() {
		cat, err := NewCatalog("Schott", schottGlasses, 1024)
		if err != nil {
			panic(err)
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}
