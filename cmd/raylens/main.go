package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"raylens/pkg/config"
	"raylens/pkg/lensfile"
	"raylens/pkg/opticalmodel"
	"raylens/pkg/visualization"
)

func main() {
	// Parse command line arguments
	lensPath := flag.String("lens", "", "Lens file to load (.zmx, .yaml)")
	configPath := flag.String("config", "raylens.yaml", "Configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	wavelengths := flag.String("wavelengths", "", "Spectrum as nm:weight pairs, e.g. 656.3:1,587.6:2,486.1:1")
	reference := flag.Int("ref", -1, "Reference wavelength index")
	layoutFile := flag.String("layout", "", "Save the lens layout plot to this file")
	fanFile := flag.String("fan", "", "Save the ray fan plot to this file")
	mtfFile := flag.String("mtf", "", "Save the geometric MTF plot to this file")
	saveLens := flag.String("save", "", "Save the lens in native YAML format to this file")
	verbose := flag.Bool("verbose", false, "Print progress messages")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *lensPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Output.Verbose {
		logger = log.New(os.Stderr, "raylens: ", log.Ltime)
	}

	lens, info, err := lensfile.Read(*lensPath, logger)
	if err != nil {
		log.Fatalf("Failed to read lens: %v", err)
	}
	if info != nil {
		printInfo(info)
	}

	sr := lens.Spec.SpectralRegion()
	switch {
	case *wavelengths != "":
		list, err := parseSpectrum(*wavelengths)
		if err != nil {
			log.Fatalf("Invalid -wavelengths: %v", err)
		}
		if err := sr.SetFromList(list); err != nil {
			log.Fatalf("Invalid spectrum: %v", err)
		}
	default:
		if list := configuredSpectrum(cfg, info); list != nil {
			if err := sr.SetFromList(list); err != nil {
				log.Fatalf("Invalid configured spectrum: %v", err)
			}
		}
	}
	if *reference >= 0 {
		if err := sr.SetReference(*reference); err != nil {
			log.Fatalf("Invalid -ref: %v", err)
		}
	}

	params, err := opticalmodel.ParamsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid trace settings: %v", err)
	}
	om := lens.OpticalModel(opticalmodel.WithLogger(logger), opticalmodel.WithParams(params))

	fmt.Println("================================")
	fmt.Println(om.Name())
	if lens.Note != "" {
		fmt.Println(lens.Note)
	}
	fmt.Println("================================")

	startTime := time.Now()
	if err := om.Recompute(); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	logger.Printf("analysis done in %s", time.Since(startTime))

	fmt.Printf("\nSequential model (%s):\n", lens.Units)
	if err := om.ListModel(os.Stdout); err != nil {
		log.Fatalf("Failed to list model: %v", err)
	}
	fmt.Printf("\nFirst-order data at %.4f nm:\n", sr.ReferenceWavelength())
	if err := om.ListFirstOrder(os.Stdout); err != nil {
		log.Fatalf("Failed to list first-order data: %v", err)
	}

	sets, err := om.Cache().SampleSets()
	if err != nil {
		log.Fatalf("Failed to read ray fans: %v", err)
	}
	fmt.Printf("\nTransverse ray aberration:\n")
	for _, s := range sets {
		fmt.Printf("field %d  %9.4f nm  rms %10.6f  blocked %d/%d\n",
			s.Field, s.WavelengthNM, s.RMS(), s.NumBlocked(), len(s.Samples))
	}

	viewer := visualization.NewViewer(om, cfg.Layout.Width, cfg.Layout.Height, cfg.Layout.RaysPerField)
	if *layoutFile != "" {
		if err := viewer.SaveLayout(*layoutFile); err != nil {
			log.Printf("Warning: Failed to save layout: %v", err)
		} else {
			fmt.Printf("\nLayout saved to: %s\n", *layoutFile)
		}
	}
	if *fanFile != "" {
		if err := viewer.SaveRayFan(*fanFile); err != nil {
			log.Printf("Warning: Failed to save ray fan: %v", err)
		} else {
			fmt.Printf("Ray fan saved to: %s\n", *fanFile)
		}
	}
	if *mtfFile != "" {
		if err := viewer.SaveMTF(*mtfFile); err != nil {
			log.Printf("Warning: Failed to save MTF: %v", err)
		} else {
			fmt.Printf("MTF saved to: %s\n", *mtfFile)
		}
	}

	if *saveLens != "" {
		if err := lensfile.WriteYAML(lens, *saveLens); err != nil {
			log.Fatalf("Failed to save lens: %v", err)
		}
		fmt.Printf("Lens saved to: %s\n", *saveLens)
	}
}

// configuredSpectrum returns the config spectrum for a .zmx import that
// named no wavelengths, and nil otherwise.
func configuredSpectrum(cfg *config.Config, info *lensfile.Info) [][2]float64 {
	if info == nil || info.Wavelengths || len(cfg.Spectrum.Wavelengths) == 0 {
		return nil
	}
	list := make([][2]float64, len(cfg.Spectrum.Wavelengths))
	for i, w := range cfg.Spectrum.Wavelengths {
		list[i] = [2]float64{w, cfg.Spectrum.Weights[i]}
	}
	return list
}

// parseSpectrum parses "nm:weight,nm:weight". A missing weight is 1.
func parseSpectrum(s string) ([][2]float64, error) {
	var list [][2]float64
	for _, item := range strings.Split(s, ",") {
		wvl, wt, hasWt := strings.Cut(strings.TrimSpace(item), ":")
		w, err := strconv.ParseFloat(wvl, 64)
		if err != nil {
			return nil, fmt.Errorf("wavelength %q: %w", wvl, err)
		}
		weight := 1.0
		if hasWt {
			if weight, err = strconv.ParseFloat(wt, 64); err != nil {
				return nil, fmt.Errorf("weight %q: %w", wt, err)
			}
		}
		list = append(list, [2]float64{w, weight})
	}
	return list, nil
}

func printInfo(info *lensfile.Info) {
	fmt.Printf("Imported %d surfaces, %d wavelengths, %d fields (%s conjugate)\n",
		info.NumSurfaces, info.NumWavelengths, info.NumFields, info.Conjugate)
	if len(info.GlassesNotFound) > 0 {
		fmt.Printf("Glasses not found: %s\n", joinCounts(info.GlassesNotFound))
		for _, name := range sortedKeys(info.Substitutes) {
			fmt.Printf("  %s modeled from its nd/vd, closest catalog glass %s\n", name, info.Substitutes[name])
		}
	}
	if len(info.NotHandled) > 0 {
		fmt.Printf("Commands not recognized: %s\n", joinCounts(info.NotHandled))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinCounts(m map[string]int) string {
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s(%d)", k, m[k])
	}
	return strings.Join(parts, " ")
}
