// Package spec holds the mutable specifications that drive the optical
// engines: the spectral region, the pupil, the field of view and the focus
// range. Every successful mutation bumps a revision counter so that owners
// of derived data can tell when their cache went stale.
package spec

import (
	"fmt"
	"math"
)

// WavelengthEntry is one wavelength (nm) with its relative weight.
type WavelengthEntry struct {
	Wavelength float64
	Weight     float64
}

// SpectralRegion is an ordered set of wavelengths with a reference entry.
type SpectralRegion struct {
	entries   []WavelengthEntry
	reference int
	revision  uint64
}

// NewSpectralRegion builds a spectral region from [wavelength, weight]
// pairs with the given reference index.
func NewSpectralRegion(list [][2]float64, reference int) (*SpectralRegion, error) {
	sr := &SpectralRegion{}
	if err := sr.SetFromList(list); err != nil {
		return nil, err
	}
	if err := sr.SetReference(reference); err != nil {
		return nil, err
	}
	return sr, nil
}

// SetFromList replaces all entries with the [wavelength, weight] pairs in
// list. The reference moves to the middle entry. Nothing is changed when
// the list is rejected.
func (s *SpectralRegion) SetFromList(list [][2]float64) error {
	if len(list) == 0 {
		return fmt.Errorf("%w: wavelength list is empty", ErrInvalidSpec)
	}
	entries := make([]WavelengthEntry, len(list))
	for i, pair := range list {
		wvl, wt := pair[0], pair[1]
		if !(wvl > 0) || math.IsInf(wvl, 0) {
			return fmt.Errorf("%w: wavelength %d is %g, must be positive", ErrInvalidSpec, i, wvl)
		}
		if !(wt >= 0) || math.IsInf(wt, 0) {
			return fmt.Errorf("%w: weight %d is %g, must be non-negative", ErrInvalidSpec, i, wt)
		}
		entries[i] = WavelengthEntry{Wavelength: wvl, Weight: wt}
	}
	s.entries = entries
	s.reference = len(entries) / 2
	s.revision++
	return nil
}

// SetReference makes entry i the reference wavelength.
func (s *SpectralRegion) SetReference(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: reference wavelength %d, have %d entries", ErrOutOfRange, i, len(s.entries))
	}
	s.reference = i
	s.revision++
	return nil
}

// Reference returns the index of the reference entry.
func (s *SpectralRegion) Reference() int { return s.reference }

// ReferenceWavelength returns the reference wavelength in nm.
func (s *SpectralRegion) ReferenceWavelength() float64 {
	return s.entries[s.reference].Wavelength
}

// CentralWavelength returns the wavelength of the middle entry.
func (s *SpectralRegion) CentralWavelength() float64 {
	return s.entries[len(s.entries)/2].Wavelength
}

// Len returns the number of entries.
func (s *SpectralRegion) Len() int { return len(s.entries) }

// Entries returns a copy of the entries.
func (s *SpectralRegion) Entries() []WavelengthEntry {
	out := make([]WavelengthEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Wavelengths returns the wavelengths in nm.
func (s *SpectralRegion) Wavelengths() []float64 {
	out := make([]float64, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Wavelength
	}
	return out
}

// Weights returns the relative weights.
func (s *SpectralRegion) Weights() []float64 {
	out := make([]float64, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Weight
	}
	return out
}

// Revision counts successful mutations.
func (s *SpectralRegion) Revision() uint64 { return s.revision }
