package opticalmodel

import (
	"raylens/pkg/paraxial"
	"raylens/pkg/raytrace"
)

// Cache is the derived data of an OpticalModel. It records the revisions of
// the inputs it was computed from; every accessor refuses to answer once
// they moved on.
type Cache struct {
	owner *OpticalModel

	paraxial *paraxial.Result
	sets     []raytrace.SampleSet

	// seqRev and specRev are the input revisions at the last commit
	seqRev  uint64
	specRev uint64

	// version counts successful recomputes
	version uint64
}

func (c *Cache) commit(par *paraxial.Result, sets []raytrace.SampleSet, seqRev, specRev uint64) {
	c.paraxial = par
	c.sets = sets
	c.seqRev, c.specRev = seqRev, specRev
	c.version++
}

// Stale reports whether the cache is empty or out of date.
func (c *Cache) Stale() bool {
	return c.version == 0 ||
		c.seqRev != c.owner.seq.Revision() ||
		c.specRev != c.owner.spec.Revision()
}

// Version returns the number of successful recomputes so far.
func (c *Cache) Version() uint64 { return c.version }

// FirstOrder returns the first-order data.
func (c *Cache) FirstOrder() (paraxial.FirstOrderData, error) {
	if c.Stale() {
		return paraxial.FirstOrderData{}, ErrStaleData
	}
	return c.paraxial.FirstOrder, nil
}

// Paraxial returns the full paraxial result including the traced marginal
// and chief rays. The result must not be modified.
func (c *Cache) Paraxial() (*paraxial.Result, error) {
	if c.Stale() {
		return nil, ErrStaleData
	}
	return c.paraxial, nil
}

// SampleSets returns a copy of the aberration fans, fields outer and
// wavelengths inner.
func (c *Cache) SampleSets() ([]raytrace.SampleSet, error) {
	if c.Stale() {
		return nil, ErrStaleData
	}
	out := make([]raytrace.SampleSet, len(c.sets))
	for i, s := range c.sets {
		out[i] = s
		out[i].Samples = append([]raytrace.Sample(nil), s.Samples...)
	}
	return out, nil
}
