// Package opticalmodel provides the aggregate root tying a sequential model
// to its optical specification. It owns the derived data (first-order
// data and aberration fans) and guards it against being read after either
// input changed.
package opticalmodel

import (
	"errors"
	"fmt"
	"io"
	"log"

	"raylens/pkg/config"
	"raylens/pkg/paraxial"
	"raylens/pkg/raytrace"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// ErrStaleData is returned when derived data is read after the model or
// the specification changed and before the next successful Recompute.
var ErrStaleData = errors.New("opticalmodel: stale data, recompute required")

// Params holds the engine parameters used by Recompute.
type Params struct {
	// Paraxial tunes the first-order engine.
	Paraxial paraxial.Options

	// Trace configures the aberration fans.
	Trace raytrace.Options
}

// DefaultParams returns 21 ray meridional fans and the default infinite
// object threshold.
func DefaultParams() Params {
	return Params{
		Paraxial: paraxial.Options{InfiniteObject: paraxial.DefaultInfiniteObject},
		Trace:    raytrace.DefaultOptions(),
	}
}

// ParamsFromConfig derives engine parameters from a loaded configuration.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	shape, err := raytrace.ParseFanShape(cfg.Trace.FanShape)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Paraxial: paraxial.Options{InfiniteObject: cfg.Trace.InfiniteObject},
		Trace:    raytrace.Options{FanRays: cfg.Trace.FanRays, Shape: shape},
	}, nil
}

// Option configures an OpticalModel.
type Option func(*OpticalModel)

// WithLogger routes progress messages to l. Models are silent by default.
func WithLogger(l *log.Logger) Option {
	return func(m *OpticalModel) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithParams replaces the default engine parameters.
func WithParams(p Params) Option {
	return func(m *OpticalModel) { m.params = p }
}

// OpticalModel owns exactly one sequential model and one optical
// specification, plus the cache derived from them.
type OpticalModel struct {
	// name is a free-form system name, usually taken from the lens file
	name string

	seq  *seq.Model
	spec *spec.OpticalSpec

	// cache is created once and handed out by pointer for the model's lifetime
	cache *Cache

	params Params
	logger *log.Logger
}

// New creates an optical model around sm and osp. No derived data exists
// until the first Recompute.
func New(sm *seq.Model, osp *spec.OpticalSpec, opts ...Option) *OpticalModel {
	m := &OpticalModel{
		seq:    sm,
		spec:   osp,
		params: DefaultParams(),
		logger: log.New(io.Discard, "", 0),
	}
	m.cache = &Cache{owner: m}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the system name.
func (m *OpticalModel) Name() string { return m.name }

// SetName sets the system name.
func (m *OpticalModel) SetName(name string) { m.name = name }

// SeqModel returns the owned sequential model. Edits made through it mark
// the cache stale.
func (m *OpticalModel) SeqModel() *seq.Model { return m.seq }

// OpticalSpec returns the owned specification. Edits made through it mark
// the cache stale.
func (m *OpticalModel) OpticalSpec() *spec.OpticalSpec { return m.spec }

// Params returns the engine parameters.
func (m *OpticalModel) Params() Params { return m.params }

// Cache returns the handle to the derived data. The same handle is
// returned for the lifetime of the model.
func (m *OpticalModel) Cache() *Cache { return m.cache }

// IsStale reports whether the derived data no longer matches the inputs.
func (m *OpticalModel) IsStale() bool { return m.cache.Stale() }

// Recompute runs the paraxial engine and then the aberration engine and
// replaces the cache in one step. On failure the previous contents are
// left in place (and stay stale if the inputs changed).
func (m *OpticalModel) Recompute() error {
	seqRev, specRev := m.seq.Revision(), m.spec.Revision()

	m.logger.Printf("computing first-order data at %g nm", m.spec.SpectralRegion().ReferenceWavelength())
	par, err := paraxial.Compute(m.seq, m.spec, m.params.Paraxial)
	if err != nil {
		return fmt.Errorf("first-order analysis failed: %w", err)
	}

	m.logger.Printf("tracing %d fields x %d wavelengths", m.spec.Field().Len(), m.spec.SpectralRegion().Len())
	sets, err := raytrace.Fans(m.seq, m.spec, par, m.params.Trace)
	if err != nil {
		return fmt.Errorf("aberration analysis failed: %w", err)
	}

	blocked := 0
	for _, s := range sets {
		blocked += s.NumBlocked()
	}
	if blocked > 0 {
		m.logger.Printf("%d fan rays blocked", blocked)
	}

	m.cache.commit(par, sets, seqRev, specRev)
	return nil
}

// ListModel writes the surface table of the sequential model.
func (m *OpticalModel) ListModel(w io.Writer) error {
	return m.seq.List(w)
}

// ListFirstOrder writes the cached first-order data, one line per field.
func (m *OpticalModel) ListFirstOrder(w io.Writer) error {
	fod, err := m.cache.FirstOrder()
	if err != nil {
		return err
	}
	return fod.List(w)
}
