package hole

import (
	"fmt"
	"strings"
)

// Describe renders a human readable summary of the hole, one line per part,
// for diagnostics and logs.
func (h CommonHole) Describe() string {
	var b strings.Builder
	loc, dir := h.Axis.Location, h.Axis.Direction
	fmt.Fprintf(&b, "%s at (%.4g, %.4g, %.4g) dir (%.4g, %.4g, %.4g) length %.4g\n",
		h.Type, loc.X, loc.Y, loc.Z, dir.X, dir.Y, dir.Z, h.GetAllLength())
	for i, c := range h.CounterMessage {
		fmt.Fprintf(&b, "  counter %d: %s\n", i+1, describeStage(c))
	}
	fmt.Fprintf(&b, "  core: %s\n", describeCore(h.HoleMessage))
	for i, s := range h.SinkMessage {
		fmt.Fprintf(&b, "  groove %d: offset %.4g depth %.4g radius %.4g\n", i+1, s.Offset, s.Depth, s.Radius)
	}
	for i, c := range h.AntiCounterMessage {
		fmt.Fprintf(&b, "  back counter %d: %s\n", i+1, describeStage(c))
	}
	fmt.Fprintf(&b, "  bottom: %s\n", describeBottom(h.Bottom))
	return b.String()
}

func describeStage(c CountersunkProperty) string {
	s := fmt.Sprintf("%s radius %.4g depth %.4g", describeCounter(c.Counter), c.Radius, c.Depth)
	if v := describeVerge(c.Verge); v != "" {
		s += " " + v
	}
	if c.HasThread {
		s += " " + describeThread(c.Thread)
	}
	return s
}

func describeCore(h Hole) string {
	s := fmt.Sprintf("radius %.4g depth %.4g", h.Radius, h.Depth)
	if h.Angle != 0 {
		s += fmt.Sprintf(" taper %.4g°", h.Angle)
	}
	if v := describeVerge(h.PerVerge); v != "" {
		s += " entry " + v
	}
	if v := describeVerge(h.BackVerge); v != "" {
		s += " exit " + v
	}
	if h.HasThread {
		s += " " + describeThread(h.Thread)
	}
	return s
}

func describeCounter(c Counter) string {
	switch c := c.(type) {
	case Countersink:
		return fmt.Sprintf("countersink %.4g°", c.Degree)
	case DrilledCounter:
		return fmt.Sprintf("drilled %.4g°", c.Angle)
	case TorusCounter:
		return fmt.Sprintf("torus r%.4g", c.Radius)
	case TaperedCounter:
		return fmt.Sprintf("tapered %.4g°", c.Angle)
	}
	return "counterbore"
}

func describeVerge(v Verge) string {
	switch v := v.(type) {
	case Chamfer:
		return fmt.Sprintf("chamfer %.4g@%.4g°", v.Depth, v.Angle)
	case Fillet:
		return fmt.Sprintf("fillet r%.4g", v.Radius)
	}
	return ""
}

func describeBottom(b Bottom) string {
	switch b := b.(type) {
	case Cusp:
		return fmt.Sprintf("cusp %.4g°", b.Angle)
	case Through:
		return fmt.Sprintf("through chamfer %.4g offset %.4g", b.ChamferDepth, b.Offset)
	case nil:
		return "unknown"
	}
	return b.Kind().String()
}

func describeThread(t Thread) string {
	return fmt.Sprintf("thread r%.4g length %.4g pitch %.4g", t.Radius, t.Length, t.Pitch)
}
