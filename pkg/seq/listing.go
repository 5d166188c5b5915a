package seq

import (
	"fmt"
	"io"
	"strconv"
)

const (
	listHeader = "%6s %14s %12s %10s %9s %4s %10s\n"
	listRow    = "%6s %14.6f %12.6g %10s %9s %4d %10.4f\n"
)

// SurfaceLabel returns the listing label of surface i: its explicit label,
// or Obj, Img, Stop or the index.
func (m *Model) SurfaceLabel(i int) string {
	switch {
	case i >= 0 && i < len(m.surfaces) && m.surfaces[i].Label != "":
		return m.surfaces[i].Label
	case i == 0:
		return "Obj"
	case i == len(m.surfaces)-1:
		return "Img"
	case i == m.stop:
		return "Stop"
	default:
		return strconv.Itoa(i)
	}
}

// List writes the surface table: a header line followed by exactly one row
// per surface, in index order.
func (m *Model) List(w io.Writer) error {
	if _, err := fmt.Fprintf(w, listHeader, "", "r", "t", "medium", "mode", "zdr", "sd"); err != nil {
		return err
	}
	for i, s := range m.surfaces {
		var (
			thi     float64
			medName string
			zdr     = m.ZDir(len(m.gaps) - 1)
		)
		if i < len(m.gaps) {
			thi = m.gaps[i].Thickness
			medName = m.gaps[i].Medium.Name
			zdr = m.ZDir(i)
		}
		mode := "transmit"
		if s.Mode == Reflect {
			mode = "reflect"
		}
		if _, err := fmt.Fprintf(w, listRow, m.SurfaceLabel(i)+":", s.Radius(), thi, medName, mode, zdr, s.SemiDiameter); err != nil {
			return err
		}
	}
	return nil
}
