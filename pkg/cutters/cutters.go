// Package cutters recommends tools for classified holes and orders the holes
// of one machining process into a short tool path.
package cutters

import (
	"fmt"
	"math"

	"github.com/chazu/holefind/pkg/hole"
)

// Type is a cutter family.
type Type int

const (
	StdDrill Type = iota
	Reamer
	BoringBar
	Tap
	ThreadMill
	TCutter
	TaperMill
	CounterSink
	CounterBore
	Other
)

func (t Type) String() string {
	switch t {
	case StdDrill:
		return "STD_DRIL"
	case Reamer:
		return "REAMER"
	case BoringBar:
		return "BORING_BAR_STD"
	case Tap:
		return "TAP"
	case ThreadMill:
		return "THREAD_MILL"
	case TCutter:
		return "T_CUTTER"
	case TaperMill:
		return "MCT_POCKET"
	case CounterSink:
		return "COUNTER_SINK"
	case CounterBore:
		return "COUNTER_BORE"
	}
	return "other"
}

// Operation is the machining operation a cutter performs.
type Operation string

const (
	SpotDrilling Operation = "SPOT_DRILLING"
	Drilling     Operation = "DRILLING"
	Boring       Operation = "BORING"
	SpotFacing   Operation = "SPOT_FACING"
	Chamfering   Operation = "CHAMFERING"
	Grooving     Operation = "GROOVING"
	Tapping      Operation = "TAPPING"
)

// Cutter is one recommended tool. Angle is the point or taper angle in
// degrees where the family has one; Neck is the shank or pilot diameter.
type Cutter struct {
	Type        Type
	Operation   Operation
	Diameter    float64
	Length      float64
	TotalLength float64
	Angle       float64
	Neck        float64
	Pitch       float64
}

func (c Cutter) String() string {
	return fmt.Sprintf("%s %s D%.3g L%.3g", c.Operation, c.Type, c.Diameter, c.Length)
}

const (
	spotAngle  = 90
	drillAngle = 118
	// Pilot drills are capped at these diameters.
	maxSpot  = 10
	maxPilot = 50
	// Threads above this major diameter are milled rather than tapped.
	maxTap = 24
)

func spot(d, depth float64) Cutter {
	return Cutter{Type: StdDrill, Operation: SpotDrilling, Diameter: d, Angle: spotAngle,
		Length: round(depth + d), TotalLength: round(2*depth + d), Neck: d}
}

func drill(d, depth float64) Cutter {
	return Cutter{Type: StdDrill, Operation: Drilling, Diameter: d, Angle: drillAngle,
		Length: round(depth + d), TotalLength: round(2*depth + d), Neck: d}
}

// Recommend lists the tools for one hole in machining order: spot and
// drilling steps for the core, stage cutters, groove cutters, edge breaks and
// finally the thread.
func Recommend(h hole.CommonHole) []Cutter {
	core := h.HoleMessage
	d := 2 * core.Radius
	depth := h.GetAllLength()
	if d <= 0 || depth <= 0 {
		return nil
	}

	var out []Cutter
	switch ratio := d / depth; {
	case core.Angle > 0:
		out = append(out, spot(math.Min(maxSpot, d*2/3), depth), drill(d, depth))
		out = append(out, Cutter{Type: Reamer, Operation: Boring, Diameter: d, Angle: 2 * core.Angle,
			Length: round(depth), TotalLength: round(2 * depth)})
	case ratio < 1.5:
		out = append(out, spot(d, depth), drill(d, depth))
	case ratio < 5:
		pilot := math.Min(maxSpot, d*2/3)
		out = append(out, spot(pilot, depth), drill(pilot, depth), drill(d, depth))
	default:
		pilot := math.Min(maxSpot, d/3)
		out = append(out, spot(pilot, depth), drill(pilot, depth), drill(math.Min(maxPilot, d*2/3), depth))
		if d > maxPilot {
			out = append(out, Cutter{Type: BoringBar, Operation: Boring, Diameter: d,
				Length: round(depth), TotalLength: round(2*depth + 10), Neck: maxPilot})
		} else {
			out = append(out, drill(d, depth))
		}
	}

	stage := func(c hole.CountersunkProperty, inner float64) {
		sd := 2 * c.Radius
		switch k := c.Counter.(type) {
		case hole.Countersink:
			out = append(out, Cutter{Type: CounterSink, Operation: Chamfering, Diameter: sd,
				Angle: k.Degree, Length: round(c.Depth), TotalLength: round(3 * sd)})
		case hole.DrilledCounter:
			out = append(out, drill(sd, c.Depth))
			out[len(out)-1].Angle = k.Angle
		case hole.TorusCounter, hole.TaperedCounter:
			out = append(out, Cutter{Type: TaperMill, Operation: SpotFacing, Diameter: sd,
				Length: round(c.Depth), TotalLength: round(2*c.Depth + sd)})
		default:
			// Flute and pilot lengths follow the counterbore depth.
			pl := math.Min(sd, 0.8*c.Depth)
			fl := c.Depth + math.Min(5, math.Min(sd, 0.2*c.Depth))
			out = append(out, Cutter{Type: CounterBore, Operation: SpotFacing, Diameter: sd,
				Length: round(fl), TotalLength: round(2 * (fl + pl)), Neck: 2 * inner})
		}
	}
	for i, c := range h.CounterMessage {
		stage(c, innerRadius(h.CounterMessage, i, core.Radius))
	}
	for i, c := range h.AntiCounterMessage {
		stage(c, innerRadius(h.AntiCounterMessage, i, core.Radius))
	}

	for _, s := range h.SinkMessage {
		out = append(out, Cutter{Type: TCutter, Operation: Grooving, Diameter: 2 * s.Radius,
			Length: round(s.Depth), TotalLength: round(s.Offset + s.Depth + 10), Neck: round(0.8 * d)})
	}

	if chamfered(h) {
		out = append(out, Cutter{Type: CounterSink, Operation: Chamfering, Diameter: maxChamfer(h),
			Angle: 90, Length: round(2 * d), TotalLength: round(3 * d)})
	}

	if t, ok := thread(h); ok {
		major := 2 * t.Radius
		if major <= maxTap {
			out = append(out, Cutter{Type: Tap, Operation: Tapping, Diameter: major, Angle: 60,
				Pitch: t.Pitch, Length: round(t.Length), TotalLength: round(2 * depth), Neck: math.Max(major-3, 1)})
		} else {
			out = append(out, Cutter{Type: ThreadMill, Operation: Tapping, Diameter: round(0.7 * major),
				Pitch: t.Pitch, Length: round(t.Length), TotalLength: round(2*depth + 10), Neck: round(major / 2)})
		}
	}
	return out
}

// innerRadius is the radius of whatever lies below stage i.
func innerRadius(stack []hole.CountersunkProperty, i int, core float64) float64 {
	if i+1 < len(stack) {
		return stack[i+1].Radius
	}
	return core
}

func isChamfer(v hole.Verge) bool {
	_, ok := v.(hole.Chamfer)
	return ok
}

func chamfered(h hole.CommonHole) bool {
	if isChamfer(h.HoleMessage.PerVerge) || isChamfer(h.HoleMessage.BackVerge) {
		return true
	}
	for _, c := range append(append([]hole.CountersunkProperty(nil), h.CounterMessage...), h.AntiCounterMessage...) {
		if isChamfer(c.Verge) {
			return true
		}
	}
	return false
}

// maxChamfer is the widest diameter carrying a chamfer.
func maxChamfer(h hole.CommonHole) float64 {
	r := h.HoleMessage.Radius
	for _, c := range append(append([]hole.CountersunkProperty(nil), h.CounterMessage...), h.AntiCounterMessage...) {
		if isChamfer(c.Verge) {
			r = math.Max(r, c.Radius)
		}
	}
	return round(2 * r)
}

// thread returns the first thread on the hole, stages before the core.
func thread(h hole.CommonHole) (hole.Thread, bool) {
	for _, c := range h.CounterMessage {
		if c.HasThread {
			return c.Thread, true
		}
	}
	if h.HoleMessage.HasThread {
		return h.HoleMessage.Thread, true
	}
	for _, c := range h.AntiCounterMessage {
		if c.HasThread {
			return c.Thread, true
		}
	}
	return hole.Thread{}, false
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
