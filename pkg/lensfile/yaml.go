package lensfile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"raylens/pkg/medium"
	"raylens/pkg/seq"
	"raylens/pkg/spec"
)

// lensDoc is the native YAML layout of a prescription.
type lensDoc struct {
	Title string `yaml:"title"`
	Note  string `yaml:"note,omitempty"`
	Units string `yaml:"units,omitempty"`

	Object struct {
		Label    string    `yaml:"label,omitempty"`
		Distance float64   `yaml:"distance"`
		Medium   mediumDoc `yaml:"medium"`
	} `yaml:"object"`

	// Surfaces lists the interfaces between object and image
	Surfaces []surfaceDoc `yaml:"surfaces"`

	Image struct {
		Label        string  `yaml:"label,omitempty"`
		SemiDiameter float64 `yaml:"semiDiameter,omitempty"`
	} `yaml:"image"`

	Stop int `yaml:"stop"`

	Spectrum struct {
		Wavelengths []wavelengthDoc `yaml:"wavelengths"`
		Reference   int             `yaml:"reference"`
	} `yaml:"spectrum"`

	Pupil struct {
		Type  string  `yaml:"type"`
		Value float64 `yaml:"value"`
	} `yaml:"pupil"`

	Field struct {
		Type   string     `yaml:"type"`
		Points []fieldDoc `yaml:"points"`
	} `yaml:"field"`

	Focus struct {
		Shift float64 `yaml:"shift"`
		Range float64 `yaml:"range"`
	} `yaml:"focus"`
}

type surfaceDoc struct {
	Label        string    `yaml:"label,omitempty"`
	Curvature    float64   `yaml:"curvature"`
	Conic        float64   `yaml:"conic,omitempty"`
	SemiDiameter float64   `yaml:"semiDiameter,omitempty"`
	Mode         string    `yaml:"mode,omitempty"`
	Thickness    float64   `yaml:"thickness"`
	Medium       mediumDoc `yaml:"medium"`
}

type mediumDoc struct {
	Kind    string  `yaml:"kind"`
	Name    string  `yaml:"name,omitempty"`
	Catalog string  `yaml:"catalog,omitempty"`
	Nd      float64 `yaml:"nd,omitempty"`
	Vd      float64 `yaml:"vd,omitempty"`
	N       float64 `yaml:"n,omitempty"`
}

type wavelengthDoc struct {
	NM     float64 `yaml:"nm"`
	Weight float64 `yaml:"weight"`
}

type fieldDoc struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Weight float64 `yaml:"weight"`
}

// ReadYAML loads a prescription in the native YAML format.
func ReadYAML(path string) (*Lens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading lens file: %w", err)
	}
	return UnmarshalYAML(data)
}

// UnmarshalYAML decodes a native YAML prescription.
func UnmarshalYAML(data []byte) (*Lens, error) {
	var doc lensDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return doc.lens()
}

// WriteYAML saves l in the native YAML format.
func WriteYAML(l *Lens, path string) error {
	data, err := MarshalYAML(l)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating lens directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing lens file: %w", err)
	}
	return nil
}

// MarshalYAML encodes l in the native YAML format.
func MarshalYAML(l *Lens) ([]byte, error) {
	var doc lensDoc
	doc.Title, doc.Note, doc.Units = l.Title, l.Note, l.Units

	gaps := l.Seq.Gaps()
	surfs := l.Seq.Surfaces()
	doc.Object.Label = surfs[0].Label
	doc.Object.Distance = gaps[0].Thickness
	doc.Object.Medium = encodeMedium(gaps[0].Medium)
	for i := 1; i < len(surfs)-1; i++ {
		s := surfs[i]
		sd := surfaceDoc{
			Label:        s.Label,
			Curvature:    s.Curvature,
			Conic:        s.Conic,
			SemiDiameter: s.SemiDiameter,
			Thickness:    gaps[i].Thickness,
			Medium:       encodeMedium(gaps[i].Medium),
		}
		if s.Mode == seq.Reflect {
			sd.Mode = s.Mode.String()
		}
		doc.Surfaces = append(doc.Surfaces, sd)
	}
	doc.Image.Label = surfs[len(surfs)-1].Label
	doc.Image.SemiDiameter = surfs[len(surfs)-1].SemiDiameter
	doc.Stop = l.Seq.Stop()

	sr := l.Spec.SpectralRegion()
	for _, e := range sr.Entries() {
		doc.Spectrum.Wavelengths = append(doc.Spectrum.Wavelengths, wavelengthDoc{NM: e.Wavelength, Weight: e.Weight})
	}
	doc.Spectrum.Reference = sr.Reference()

	doc.Pupil.Type = l.Spec.Pupil().Type().String()
	doc.Pupil.Value = l.Spec.Pupil().Value()

	doc.Field.Type = l.Spec.Field().Type().String()
	for _, f := range l.Spec.Field().Fields() {
		doc.Field.Points = append(doc.Field.Points, fieldDoc{X: f.X, Y: f.Y, Weight: f.Weight})
	}

	doc.Focus.Shift = l.Spec.Focus().Shift()
	doc.Focus.Range = l.Spec.Focus().Range()

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("error marshaling lens: %w", err)
	}
	return data, nil
}

func encodeMedium(m medium.Medium) mediumDoc {
	return mediumDoc{Kind: m.Kind.String(), Name: m.Name, Catalog: m.Catalog, Nd: m.Nd, Vd: m.Vd, N: m.N}
}

func (d mediumDoc) medium() (medium.Medium, error) {
	switch d.Kind {
	case "", "air":
		return medium.NewAir(), nil
	case "catalog":
		return medium.NewGlass(d.Name)
	case "model":
		return medium.NewModelGlass(d.Nd, d.Vd, d.Name)
	case "constant":
		return medium.NewConstant(d.N, d.Name)
	default:
		return medium.Medium{}, fmt.Errorf("%w: unknown medium kind %q", ErrUnsupportedFormat, d.Kind)
	}
}

func (doc *lensDoc) lens() (*Lens, error) {
	objMed, err := doc.Object.Medium.medium()
	if err != nil {
		return nil, fmt.Errorf("object medium: %w", err)
	}
	sm := seq.NewModel(doc.Object.Distance)
	if err := sm.SetMedium(0, objMed); err != nil {
		return nil, err
	}
	for i, sd := range doc.Surfaces {
		med, err := sd.Medium.medium()
		if err != nil {
			return nil, fmt.Errorf("surface %d: %w", i+1, err)
		}
		s := seq.Surface{Label: sd.Label, Curvature: sd.Curvature, Conic: sd.Conic, SemiDiameter: sd.SemiDiameter, Mode: seq.Transmit}
		switch sd.Mode {
		case "", "transmit":
		case "reflect":
			s.Mode = seq.Reflect
		default:
			return nil, fmt.Errorf("%w: surface %d mode %q", ErrUnsupportedFormat, i+1, sd.Mode)
		}
		sm.AddSurface(s, sd.Thickness, med)
	}
	img := sm.ImageIndex()
	if err := sm.SetSemiDiameter(img, doc.Image.SemiDiameter); err != nil {
		return nil, err
	}
	if err := sm.SetLabel(0, doc.Object.Label); err != nil {
		return nil, err
	}
	if err := sm.SetLabel(img, doc.Image.Label); err != nil {
		return nil, err
	}
	if doc.Stop != 0 {
		if err := sm.SetStop(doc.Stop); err != nil {
			return nil, err
		}
	}
	if err := sm.Validate(); err != nil {
		return nil, err
	}

	osp := spec.NewOpticalSpec()
	if len(doc.Spectrum.Wavelengths) > 0 {
		list := make([][2]float64, len(doc.Spectrum.Wavelengths))
		for i, w := range doc.Spectrum.Wavelengths {
			list[i] = [2]float64{w.NM, w.Weight}
		}
		if err := osp.SpectralRegion().SetFromList(list); err != nil {
			return nil, err
		}
		if err := osp.SpectralRegion().SetReference(doc.Spectrum.Reference); err != nil {
			return nil, err
		}
	}
	if doc.Pupil.Type != "" {
		typ, err := spec.ParsePupilType(doc.Pupil.Type)
		if err != nil {
			return nil, err
		}
		if err := osp.Pupil().Set(typ, doc.Pupil.Value); err != nil {
			return nil, err
		}
	}
	if doc.Field.Type != "" || len(doc.Field.Points) > 0 {
		typ := spec.ObjectAngle
		if doc.Field.Type != "" {
			if typ, err = spec.ParseFieldType(doc.Field.Type); err != nil {
				return nil, err
			}
		}
		points := osp.Field().Fields()
		if len(doc.Field.Points) > 0 {
			points = make([]spec.FieldPoint, len(doc.Field.Points))
			for i, f := range doc.Field.Points {
				points[i] = spec.FieldPoint{X: f.X, Y: f.Y, Weight: f.Weight}
			}
		}
		if err := osp.Field().Set(typ, points); err != nil {
			return nil, err
		}
	}
	if err := osp.Focus().Set(doc.Focus.Shift, doc.Focus.Range); err != nil {
		return nil, err
	}

	units := doc.Units
	if units == "" {
		units = "MM"
	}
	return &Lens{Title: doc.Title, Note: doc.Note, Units: units, Seq: sm, Spec: osp}, nil
}
