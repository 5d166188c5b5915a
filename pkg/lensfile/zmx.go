package lensfile

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"raylens/pkg/medium"
	"raylens/pkg/paraxial"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// Info summarizes what an import found in a .zmx file.
type Info struct {
	// Conjugate is "infinite" when the object distance was INFINITY
	Conjugate string

	// Version is the VERS line of the file, if any
	Version string

	// Catalogs lists the glass catalogs named by GCAT
	Catalogs []string

	NumSurfaces    int
	NumWavelengths int
	NumFields      int

	// Wavelengths is set when the file has any WAVM or WAVL line
	Wavelengths bool

	// Contents counts notable items: glass kinds, surface types, conics
	Contents map[string]int

	// NotHandled counts commands the reader does not know
	NotHandled map[string]int

	// GlassesNotFound counts catalog glasses missing from the catalog
	GlassesNotFound map[string]int

	// Substitutes maps a missing glass that carried its nd and vd to the
	// closest catalog glass
	Substitutes map[string]string
}

func newInfo() *Info {
	return &Info{
		Contents:        make(map[string]int),
		NotHandled:      make(map[string]int),
		GlassesNotFound: make(map[string]int),
		Substitutes:     make(map[string]string),
	}
}

// unsupported are known commands that carry nothing the model can use.
var unsupported = map[string]bool{}

func init() {
	for _, cmd := range strings.Fields(`
		OPDX RAIM CONF PUPD EFFL MODE HIDE MIRR PARM SQAP XDAT YDAT PKUP
		MAZH CLAP PPAR VPAR EDGE VCON UDAD USAP TOLE PFIL TCED TOL MNUM
		MOFF SDMA GFAC PUSH PICB ROPD PWAV POLS GLRS BLNK COFN NSCD GSTD
		DMFS ISNA VDSZ ENVD ZVDX ZVDY ZVCX ZVCY ZVAN WWGN WAVN MNCA MNEA
		MNCG MNEG MXCA MXCG RGLA TRAC FLAP TCMM FLOA PMAG TOTR SLAB POPS
		COMM PZUP LANG FIMP COAT VDXN VDYN VCXN VCYN VANN`) {
		unsupported[cmd] = true
	}
}

// placeholderIndex replaces glasses missing from the catalog.
const placeholderIndex = 1.5

type zmxSurface struct {
	curv   float64
	conic  float64
	thi    float64
	sd     float64
	med    medium.Medium
	mirror bool
	typ    string
}

type zmxReader struct {
	logger *log.Logger
	info   *Info

	title, note, units string

	surfs []zmxSurface
	stop  int

	wvls, wts []float64

	pupilSet   bool
	pupilType  spec.PupilType
	pupilValue float64

	fieldType spec.FieldType
	fields    []spec.FieldPoint
}

// ReadZMX imports a Zemax .zmx file. UTF-16 files with a byte order mark
// are decoded transparently. Unsupported commands are logged to logger,
// which may be nil.
func ReadZMX(path string, logger *log.Logger) (*Lens, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open lens file: %w", err)
	}
	defer f.Close()

	lens, info, err := ParseZMX(f, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if lens.Title == "" {
		// parent directory and file name, as "catalog: file"
		lens.Title = fmt.Sprintf("%s: %s", filepath.Base(filepath.Dir(path)), filepath.Base(path))
	}
	return lens, info, nil
}

// ParseZMX imports .zmx content from r.
func ParseZMX(r io.Reader, logger *log.Logger) (*Lens, *Info, error) {
	zr := &zmxReader{
		logger:    discardLogger(logger),
		info:      newInfo(),
		units:     "MM",
		fieldType: spec.ObjectAngle,
	}

	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := zr.processLine(lineNo, sc.Text()); err != nil {
			return nil, nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read lens file: %w", err)
	}

	lens, err := zr.build()
	if err != nil {
		return nil, nil, err
	}
	return lens, zr.info, nil
}

func (zr *zmxReader) current(lineNo int, cmd string) (*zmxSurface, error) {
	if len(zr.surfs) == 0 {
		return nil, fmt.Errorf("%w: line %d: %s before the first SURF", ErrUnsupportedFormat, lineNo, cmd)
	}
	return &zr.surfs[len(zr.surfs)-1], nil
}

func (zr *zmxReader) processLine(lineNo int, line string) error {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return nil
	}
	cmd, inputs, _ := strings.Cut(line, " ")
	inputs = strings.TrimSpace(inputs)
	args := strings.Fields(inputs)

	num := func(i int) (float64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("line %d: %s: missing argument %d", lineNo, cmd, i+1)
		}
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: %s: %w", lineNo, cmd, err)
		}
		return v, nil
	}
	nums := func() ([]float64, error) {
		out := make([]float64, len(args))
		for i := range args {
			v, err := num(i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	switch cmd {
	case "UNIT":
		if len(args) > 0 {
			zr.units = args[0]
			if zr.units == "INCH" {
				zr.units = "IN"
			}
		}
	case "NAME":
		zr.title = strings.Trim(inputs, `"`)
	case "NOTE":
		// NOTE index "text"
		note := inputs
		if len(args) > 1 && isNumber(args[0]) {
			note = strings.TrimSpace(strings.TrimPrefix(inputs, args[0]))
		}
		zr.note = strings.Trim(note, `"`)
	case "VERS":
		zr.info.Version = strings.Trim(inputs, `"`)
	case "SURF":
		zr.surfs = append(zr.surfs, zmxSurface{med: medium.NewAir()})

	case "CURV", "DISZ", "DIAM", "STOP", "TYPE", "CONI", "GLAS":
		s, err := zr.current(lineNo, cmd)
		if err != nil {
			return err
		}
		return zr.surfaceCommand(s, cmd, args, num)

	case "GCAT":
		zr.info.Catalogs = args

	case "WAVM":
		// WAVM index wavelength(µm) weight
		wvl, err := num(1)
		if err != nil {
			return err
		}
		wt, err := num(2)
		if err != nil {
			return err
		}
		zr.info.Wavelengths = true
		wvl *= 1e3
		for _, w := range zr.wvls {
			if w == wvl {
				return nil
			}
		}
		zr.wvls = append(zr.wvls, wvl)
		zr.wts = append(zr.wts, wt)
	case "WAVL":
		vals, err := nums()
		if err != nil {
			return err
		}
		zr.info.Wavelengths = true
		for i := range vals {
			vals[i] *= 1e3
		}
		zr.wvls = vals
	case "WWGT":
		vals, err := nums()
		if err != nil {
			return err
		}
		zr.wts = vals

	case "FNUM", "OBNA", "ENPD":
		v, err := num(0)
		if err != nil {
			return err
		}
		zr.pupilSet, zr.pupilValue = true, v
		switch cmd {
		case "FNUM":
			zr.pupilType = spec.FNumber
		case "OBNA":
			zr.pupilType = spec.ObjectNA
		default:
			zr.pupilType = spec.EntrancePupilDiameter
		}
		zr.logger.Printf("pupil: %s %g", zr.pupilType, v)

	case "FTYP":
		v, err := num(0)
		if err != nil {
			return err
		}
		switch int(v) {
		case 0:
			zr.fieldType = spec.ObjectAngle
		case 1:
			zr.fieldType = spec.ObjectHeight
		default:
			// paraxial and real image height both map to image height
			zr.fieldType = spec.ImageHeight
		}
	case "XFLN", "YFLN", "XFLD", "YFLD", "FWGN", "FWGT":
		vals, err := nums()
		if err != nil {
			return err
		}
		if len(zr.fields) != len(vals) {
			zr.fields = make([]spec.FieldPoint, len(vals))
			for i := range zr.fields {
				zr.fields[i].Weight = 1
			}
		}
		for i, v := range vals {
			switch cmd[0] {
			case 'X':
				zr.fields[i].X = v
			case 'Y':
				zr.fields[i].Y = v
			default:
				zr.fields[i].Weight = v
			}
		}

	default:
		if unsupported[cmd] {
			zr.logger.Printf("line %d: command %s not supported", lineNo, cmd)
		} else {
			zr.info.NotHandled[cmd]++
		}
	}
	return nil
}

func (zr *zmxReader) surfaceCommand(s *zmxSurface, cmd string, args []string, num func(int) (float64, error)) error {
	var err error
	switch cmd {
	case "CURV":
		s.curv, err = num(0)
	case "DISZ":
		s.thi, err = num(0)
	case "DIAM":
		s.sd, err = num(0)
	case "STOP":
		zr.stop = len(zr.surfs) - 1
	case "TYPE":
		if len(args) > 0 {
			s.typ = args[0]
			zr.info.Contents[s.typ]++
			if s.typ != "STANDARD" {
				zr.logger.Printf("surface %d: type %s traced as its base conic", len(zr.surfs)-1, s.typ)
			}
		}
	case "CONI":
		s.conic, err = num(0)
		zr.info.Contents["CONI"]++
	case "GLAS":
		zr.glass(s, args)
	}
	return err
}

// glass resolves a GLAS command: MIRROR, a ___BLANK model glass, a six
// digit glass code or a catalog glass.
func (zr *zmxReader) glass(s *zmxSurface, args []string) {
	if len(args) == 0 {
		zr.info.NotHandled["GLAS"]++
		return
	}
	name := args[0]
	idx := len(zr.surfs) - 1
	switch {
	case name == "MIRROR":
		s.mirror = true
		if idx > 0 {
			s.med = zr.surfs[idx-1].med
		}
		zr.info.Contents[name]++

	case name == "___BLANK":
		if len(args) < 5 {
			zr.info.NotHandled["GLAS"]++
			return
		}
		nd, err1 := strconv.ParseFloat(args[3], 64)
		vd, err2 := strconv.ParseFloat(args[4], 64)
		m, err := medium.NewModelGlass(nd, vd, "")
		if err1 != nil || err2 != nil || err != nil {
			zr.info.NotHandled["GLAS"]++
			return
		}
		s.med = m
		zr.info.Contents[name]++

	case isNumber(name):
		m, err := medium.ParseGlassCode(name)
		if err != nil {
			zr.info.NotHandled["GLAS"]++
			return
		}
		s.med = m
		zr.info.Contents["6 digit code"]++

	default:
		if m, err := medium.NewGlass(name); err == nil {
			s.med = m
			zr.info.Contents["glass found"]++
			return
		}
		zr.info.GlassesNotFound[name]++
		zr.info.Contents["glass not found"]++
		if m, ok := glassFromLine(name, args); ok {
			s.med = m
			if near := medium.DefaultCatalog().Nearest(m.Nd, m.Vd, 1); len(near) > 0 {
				zr.info.Substitutes[name] = near[0].Name
			}
			zr.logger.Printf("glass %s not found, using nd=%g vd=%g", name, m.Nd, m.Vd)
			return
		}
		zr.logger.Printf("glass %s not found, using n=%g", name, placeholderIndex)
		s.med, _ = medium.NewConstant(placeholderIndex, "glass")
	}
}

// glassFromLine builds a model glass from the nd and vd a GLAS line
// carries after the glass name.
func glassFromLine(name string, args []string) (medium.Medium, bool) {
	if len(args) < 5 {
		return medium.Medium{}, false
	}
	nd, err1 := strconv.ParseFloat(args[3], 64)
	vd, err2 := strconv.ParseFloat(args[4], 64)
	if err1 != nil || err2 != nil || nd <= 1 {
		return medium.Medium{}, false
	}
	m, err := medium.NewModelGlass(nd, vd, name)
	return m, err == nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// build assembles the model and specs once the whole file was read.
func (zr *zmxReader) build() (*Lens, error) {
	n := len(zr.surfs)
	if n < 2 {
		return nil, fmt.Errorf("%w: need object and image surfaces, found %d", ErrUnsupportedFormat, n)
	}

	obj := zr.surfs[0]
	zr.info.Conjugate = "finite"
	if math.IsInf(obj.thi, 0) {
		obj.thi = paraxial.DefaultInfiniteObject
		zr.info.Conjugate = "infinite"
	}

	sm := seq.NewModel(obj.thi)
	if obj.med.Kind != medium.Air {
		if err := sm.SetMedium(0, obj.med); err != nil {
			return nil, err
		}
	}
	// the gap after the image surface is dropped
	for _, s := range zr.surfs[1 : n-1] {
		surf := seq.Surface{Curvature: s.curv, Conic: s.conic, SemiDiameter: s.sd, Mode: seq.Transmit}
		if s.mirror {
			surf.Mode = seq.Reflect
		}
		sm.AddSurface(surf, s.thi, s.med)
	}
	img := sm.ImageIndex()
	if err := sm.SetSemiDiameter(img, zr.surfs[n-1].sd); err != nil {
		return nil, err
	}
	if zr.stop >= 1 && zr.stop < img {
		if err := sm.SetStop(zr.stop); err != nil {
			return nil, err
		}
	}
	if err := sm.SetLabel(0, "Obj"); err != nil {
		return nil, err
	}
	if err := sm.SetLabel(img, "Img"); err != nil {
		return nil, err
	}
	zr.info.NumSurfaces = sm.NumSurfaces()

	osp := spec.NewOpticalSpec()
	if err := zr.buildSpectrum(osp.SpectralRegion()); err != nil {
		return nil, err
	}
	zr.info.NumWavelengths = osp.SpectralRegion().Len()

	if zr.pupilSet {
		if err := osp.Pupil().Set(zr.pupilType, zr.pupilValue); err != nil {
			return nil, err
		}
	}

	if len(zr.fields) > 0 {
		// fields after the largest one are unused slots
		maxIdx, maxFld := 0, 0.0
		for i, f := range zr.fields {
			if r := f.Radius(); r > maxFld {
				maxIdx, maxFld = i, r
			}
		}
		if err := osp.Field().Set(zr.fieldType, zr.fields[:maxIdx+1]); err != nil {
			return nil, err
		}
	} else if zr.fieldType != spec.ObjectAngle {
		if err := osp.Field().Set(zr.fieldType, osp.Field().Fields()); err != nil {
			return nil, err
		}
	}
	zr.info.NumFields = osp.Field().Len()

	return &Lens{Title: zr.title, Note: zr.note, Units: zr.units, Seq: sm, Spec: osp}, nil
}

func (zr *zmxReader) buildSpectrum(sr *spec.SpectralRegion) error {
	wvls, wts := zr.wvls, zr.wts
	if len(wvls) == 0 {
		return nil
	}
	list := make([][2]float64, len(wvls))
	for i, w := range wvls {
		wt := 1.0
		if i < len(wts) {
			wt = wts[i]
		}
		list[i] = [2]float64{w, wt}
	}
	// unused WAVM slots default to 0.55 µm
	if len(list) > 1 && list[len(list)-1][0] == 550 {
		list = list[:len(list)-1]
	}
	return sr.SetFromList(list)
}
