// Package medium models the optical media filling the gaps of a sequential
// model. A Medium is a closed tagged variant: air, a catalog glass, a model
// glass defined by (nd, vd), or a constant refractive index.
package medium

import (
	"errors"
	"fmt"
	"math"
)

// Fraunhofer line wavelengths in nm
const (
	WavelengthF = 486.1327
	WavelengthD = 587.5618
	WavelengthC = 656.2725
)

var (
	// ErrGlassNotFound indicates a glass name absent from the catalog.
	ErrGlassNotFound = errors.New("medium: glass not found in catalog")
	// ErrBadWavelength indicates a non-positive or non-finite wavelength.
	ErrBadWavelength = errors.New("medium: wavelength must be positive and finite")
	// ErrBadMedium indicates a medium with unusable parameters.
	ErrBadMedium = errors.New("medium: invalid medium parameters")
)

// Kind enumerates the closed set of medium representations.
type Kind int

const (
	// Air has index 1 at every wavelength
	Air Kind = iota

	// CatalogGlass is looked up by name in a glass catalog
	CatalogGlass

	// ModelGlass is defined by its d-line index and Abbe number
	ModelGlass

	// ConstantIndex has the same index at every wavelength
	ConstantIndex
)

var kindNames = [...]string{"air", "catalog", "model", "constant"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Medium describes the refractive material of a gap.
type Medium struct {
	// Kind selects which of the fields below are meaningful
	Kind Kind

	// Name is the display name (glass name, glass code or "air")
	Name string

	// Catalog is the catalog a CatalogGlass comes from
	Catalog string

	// Nd and Vd define a ModelGlass
	Nd, Vd float64

	// N is the index of a ConstantIndex medium
	N float64
}

// NewAir returns the air medium.
func NewAir() Medium {
	return Medium{Kind: Air, Name: "air"}
}

// NewGlass returns the catalog glass called name from the default catalog.
func NewGlass(name string) (Medium, error) {
	cat := DefaultCatalog()
	if _, ok := cat.Lookup(name); !ok {
		return Medium{}, fmt.Errorf("%w: %s %s", ErrGlassNotFound, cat.Name(), name)
	}
	return Medium{Kind: CatalogGlass, Name: name, Catalog: cat.Name()}, nil
}

// NewModelGlass returns a glass defined by its d-line index and Abbe number.
// An empty name is replaced by the glass code.
func NewModelGlass(nd, vd float64, name string) (Medium, error) {
	if nd < 1 || vd <= 0 || math.IsNaN(nd) || math.IsNaN(vd) {
		return Medium{}, fmt.Errorf("%w: nd=%g vd=%g", ErrBadMedium, nd, vd)
	}
	if name == "" {
		name = GlassCode(nd, vd)
	}
	return Medium{Kind: ModelGlass, Name: name, Nd: nd, Vd: vd}, nil
}

// NewConstant returns a non-dispersive medium of index n.
func NewConstant(n float64, name string) (Medium, error) {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Medium{}, fmt.Errorf("%w: n=%g", ErrBadMedium, n)
	}
	if name == "" {
		name = fmt.Sprintf("n=%g", n)
	}
	return Medium{Kind: ConstantIndex, Name: name, N: n}, nil
}

// GlassCode returns the six digit glass code for (nd, vd), e.g. 517642.
func GlassCode(nd, vd float64) string {
	return fmt.Sprintf("%03d%03d", int(math.Round((nd-1)*1000)), int(math.Round(vd*10)))
}

// ParseGlassCode decodes a six digit glass code into a model glass.
func ParseGlassCode(code string) (Medium, error) {
	if len(code) != 6 {
		return Medium{}, fmt.Errorf("%w: glass code %q must have 6 digits", ErrBadMedium, code)
	}
	var n, v int
	if _, err := fmt.Sscanf(code, "%3d%3d", &n, &v); err != nil {
		return Medium{}, fmt.Errorf("%w: glass code %q: %v", ErrBadMedium, code, err)
	}
	return NewModelGlass(1+float64(n)/1000, float64(v)/10, code)
}

// String returns the medium name.
func (m Medium) String() string {
	return m.Name
}

// Index returns the refractive index of the medium at wvl nm.
func (m Medium) Index(wvl float64) (float64, error) {
	if wvl <= 0 || math.IsNaN(wvl) || math.IsInf(wvl, 0) {
		return 0, fmt.Errorf("%w: %g", ErrBadWavelength, wvl)
	}
	switch m.Kind {
	case Air:
		return 1.0, nil
	case CatalogGlass:
		return DefaultCatalog().Index(m.Name, wvl)
	case ModelGlass:
		return cauchyIndex(m.Nd, m.Vd, wvl), nil
	case ConstantIndex:
		return m.N, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %d", ErrBadMedium, m.Kind)
	}
}

// cauchyIndex evaluates the two term Cauchy fit n = A + B/λ² passing through
// nd at the d line with the dispersion nF-nC = (nd-1)/vd.
func cauchyIndex(nd, vd, wvl float64) float64 {
	dFC := (nd - 1) / vd
	b := dFC / (1/(WavelengthF*WavelengthF) - 1/(WavelengthC*WavelengthC))
	a := nd - b/(WavelengthD*WavelengthD)
	return a + b/(wvl*wvl)
}
