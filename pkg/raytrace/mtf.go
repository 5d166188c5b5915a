package raytrace

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// LineSpread bins the unblocked offsets of one fan axis into a histogram of
// bins cells covering [-width/2, width/2) around the chief ray. Offsets
// outside the window are dropped; the second result counts the binned rays.
// A window without bins or width yields no histogram.
func LineSpread(set SampleSet, axis Axis, bins int, width float64) ([]float64, int) {
	if bins < 1 || width <= 0 {
		return nil, 0
	}
	hist := make([]float64, bins)
	dx := width / float64(bins)
	n := 0
	for _, s := range set.Samples {
		if s.Axis != axis || s.Blocked {
			continue
		}
		d := s.DY
		if axis == AxisX {
			d = s.DX
		}
		k := int(math.Floor((d + width/2) / dx))
		if k < 0 || k >= bins {
			continue
		}
		hist[k]++
		n++
	}
	return hist, n
}

// GeometricMTF returns the geometric modulation transfer function of one
// fan axis: the normalized Fourier magnitude of its line spread histogram.
// Frequencies are in cycles per lens unit; there are bins/2+1 of them.
func GeometricMTF(set SampleSet, axis Axis, bins int, width float64) (freq, mtf []float64, err error) {
	if bins < 2 || width <= 0 {
		return nil, nil, fmt.Errorf("raytrace: MTF needs at least 2 bins and a positive width")
	}
	hist, n := LineSpread(set, axis, bins, width)
	if n == 0 {
		return nil, nil, fmt.Errorf("raytrace: no unblocked %c rays inside the MTF window", axis)
	}

	fft := fourier.NewFFT(bins)
	coeff := fft.Coefficients(nil, hist)
	dx := width / float64(bins)
	dc := cmplx.Abs(coeff[0])

	freq = make([]float64, len(coeff))
	mtf = make([]float64, len(coeff))
	for i, c := range coeff {
		freq[i] = fft.Freq(i) / dx
		mtf[i] = cmplx.Abs(c) / dc
	}
	return freq, mtf, nil
}

// MaxOffset returns the largest unblocked transverse offset in sets.
func MaxOffset(sets []SampleSet) float64 {
	m := 0.0
	for _, set := range sets {
		for _, s := range set.Samples {
			if s.Blocked {
				continue
			}
			m = math.Max(m, math.Max(math.Abs(s.DX), math.Abs(s.DY)))
		}
	}
	return m
}
