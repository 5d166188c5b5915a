package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raylens/pkg/config"
	"raylens/pkg/lensfile"
)

func TestParseSpectrum(t *testing.T) {
	list, err := parseSpectrum("656.3:1, 587.6:2,486.1")
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{656.3, 1}, {587.6, 2}, {486.1, 1}}, list)

	_, err = parseSpectrum("green:1")
	assert.Error(t, err)
	_, err = parseSpectrum("550:heavy")
	assert.Error(t, err)
}

func TestJoinCounts(t *testing.T) {
	assert.Equal(t, "A(2) B(1)", joinCounts(map[string]int{"B": 1, "A": 2}))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"F2", "N-BK7"}, sortedKeys(map[string]string{"N-BK7": "x", "F2": "y"}))
	assert.Empty(t, sortedKeys(map[string]int{}))
}

func TestConfiguredSpectrum(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Spectrum.Wavelengths = []float64{486.1, 587.6, 656.3}
	cfg.Spectrum.Weights = []float64{1, 2, 1}

	list := configuredSpectrum(cfg, &lensfile.Info{NumWavelengths: 1})
	assert.Equal(t, [][2]float64{{486.1, 1}, {587.6, 2}, {656.3, 1}}, list)

	// a lens that names one wavelength keeps it
	assert.Nil(t, configuredSpectrum(cfg, &lensfile.Info{NumWavelengths: 1, Wavelengths: true}))
	// native lens files carry their own spectrum
	assert.Nil(t, configuredSpectrum(cfg, nil))
}
