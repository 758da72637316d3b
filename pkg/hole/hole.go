package hole

import (
	"fmt"
	"math"

	"github.com/chazu/holefind/pkg/kernel"
)

// HoleType is the overall category of a recognised hole.
type HoleType int

const (
	EasyHole HoleType = iota
	TaperedHole
	CounterboreHole
	OtherHole
)

func (t HoleType) String() string {
	switch t {
	case EasyHole:
		return "EasyHole"
	case TaperedHole:
		return "TaperedHole"
	case CounterboreHole:
		return "Counterbore"
	case OtherHole:
		return "Other"
	}
	return fmt.Sprintf("HoleType(%d)", int(t))
}

// ---------------------------------------------------------------------------
// Stages
// ---------------------------------------------------------------------------

// CountersunkProperty is one counter stage above the core bore, seen from
// the mouth of its own side.
type CountersunkProperty struct {
	Verge     Verge
	Counter   Counter
	Radius    float64
	Depth     float64
	HasThread bool
	Thread    Thread
	Parts     []FaceNode
}

// IsEqual compares every field except the face parts.
func (c CountersunkProperty) IsEqual(o CountersunkProperty) bool {
	return c.IsSame(o) && near(c.Depth, o.Depth)
}

// IsSame compares every field except depth and the face parts.
func (c CountersunkProperty) IsSame(o CountersunkProperty) bool {
	return vergesEqual(c.Verge, o.Verge) && countersEqual(c.Counter, o.Counter) &&
		near(c.Radius, o.Radius) && c.HasThread == o.HasThread && c.Thread.same(o.Thread)
}

// GetAllLength is the stage's axial length including its verge.
func (c CountersunkProperty) GetAllLength() float64 {
	return vergeOf(c.Verge).Length() + c.Depth
}

// Faces returns every face node of the stage, verge included.
func (c CountersunkProperty) Faces() []FaceNode {
	return append(append([]FaceNode(nil), vergeOf(c.Verge).Faces()...), c.Parts...)
}

func (c CountersunkProperty) reverse(length float64) CountersunkProperty {
	c.Verge = vergeOf(c.Verge).reverse(length)
	c.Parts = reverseNodes(c.Parts, length)
	return c
}

// SinkProperty is a groove in the core bore. Offset is measured from the top
// of the core bore.
type SinkProperty struct {
	Offset float64
	Depth  float64
	Radius float64
	Parts  []FaceNode
}

// IsEqual compares offset, depth and radius.
func (s SinkProperty) IsEqual(o SinkProperty) bool {
	return near(s.Offset, o.Offset) && near(s.Depth, o.Depth) && near(s.Radius, o.Radius)
}

// IsSame compares radius only.
func (s SinkProperty) IsSame(o SinkProperty) bool {
	return near(s.Radius, o.Radius)
}

// Hole is the core bore.
type Hole struct {
	PerVerge  Verge
	BackVerge Verge
	Radius    float64 // at the entry end for tapered cores
	Depth     float64
	Angle     float64 // taper semi-angle in degrees, zero for a cylinder
	HasThread bool
	Thread    Thread
	Parts     []FaceNode
}

// IsEqual compares every field except the face parts.
func (h Hole) IsEqual(o Hole) bool {
	return h.IsSame(o) && vergesEqual(h.BackVerge, o.BackVerge) &&
		near(h.Depth, o.Depth) && near(h.Angle, o.Angle)
}

// IsSame compares the entry half only: radius, entry verge and thread.
func (h Hole) IsSame(o Hole) bool {
	return near(h.Radius, o.Radius) && vergesEqual(h.PerVerge, o.PerVerge) &&
		h.HasThread == o.HasThread && h.Thread.same(o.Thread)
}

// GetAllLength is the core's axial length including both verges.
func (h Hole) GetAllLength() float64 {
	return vergeOf(h.PerVerge).Length() + h.Depth + vergeOf(h.BackVerge).Length()
}

// Reverse swaps the entry and exit verges. The radius of a tapered core is
// left for the caller, which knows the far end; see CommonHole.Reverse.
func (h Hole) Reverse() Hole {
	h.PerVerge, h.BackVerge = vergeOf(h.BackVerge), vergeOf(h.PerVerge)
	return h
}

// Faces returns every face node of the core, verges included.
func (h Hole) Faces() []FaceNode {
	out := append([]FaceNode(nil), vergeOf(h.PerVerge).Faces()...)
	out = append(out, h.Parts...)
	return append(out, vergeOf(h.BackVerge).Faces()...)
}

// ---------------------------------------------------------------------------
// CommonHole
// ---------------------------------------------------------------------------

// CommonHole is a fully classified hole. Axis is located at the entry mouth
// centre and points into the material. The counts always equal the lengths
// of the corresponding lists; build values with NewCommonHole and derive new
// ones with Reverse so that holds.
type CommonHole struct {
	Axis   kernel.Axis
	Type   HoleType
	Bottom Bottom

	SinkNum                int
	CountersunkHeadNum     int
	AntiCountersunkHeadNum int

	CounterMessage     []CountersunkProperty
	AntiCounterMessage []CountersunkProperty
	SinkMessage        []SinkProperty
	HoleMessage        Hole

	Compose []kernel.FaceID
	Faces   []FaceNode
}

// NewCommonHole assembles a hole and sets its counts.
func NewCommonHole(axis kernel.Axis, typ HoleType, bottom Bottom, core Hole,
	counters, anti []CountersunkProperty, sinks []SinkProperty, faces []FaceNode) CommonHole {
	h := CommonHole{
		Axis:               axis,
		Type:               typ,
		Bottom:             bottom,
		CounterMessage:     counters,
		AntiCounterMessage: anti,
		SinkMessage:        sinks,
		HoleMessage:        core,
		Faces:              faces,
	}
	for _, f := range faces {
		h.Compose = append(h.Compose, f.Face)
	}
	h.count()
	return h
}

func (h *CommonHole) count() {
	h.SinkNum = len(h.SinkMessage)
	h.CountersunkHeadNum = len(h.CounterMessage)
	h.AntiCountersunkHeadNum = len(h.AntiCounterMessage)
}

// Validate checks the count invariant.
func (h CommonHole) Validate() error {
	if h.SinkNum != len(h.SinkMessage) ||
		h.CountersunkHeadNum != len(h.CounterMessage) ||
		h.AntiCountersunkHeadNum != len(h.AntiCounterMessage) {
		return fmt.Errorf("hole counts %d/%d/%d do not match stage lists %d/%d/%d",
			h.SinkNum, h.CountersunkHeadNum, h.AntiCountersunkHeadNum,
			len(h.SinkMessage), len(h.CounterMessage), len(h.AntiCounterMessage))
	}
	return nil
}

// GetAllLength is the axial length from the entry mouth to the deepest
// recognised station. A drill point tip is not included.
func (h CommonHole) GetAllLength() float64 {
	return stackLength(h.CounterMessage) + h.HoleMessage.GetAllLength() + stackLength(h.AntiCounterMessage)
}

func stackLength(stack []CountersunkProperty) float64 {
	l := 0.0
	for _, c := range stack {
		l += c.GetAllLength()
	}
	return l
}

// Exit returns the centre of the far end of the hole.
func (h CommonHole) Exit() kernel.Axis {
	return kernel.Axis{Location: h.Axis.Point(h.GetAllLength()), Direction: h.Axis.Direction}
}

// Reverse returns the same hole entered from its other end. Stacks, counts
// and verges swap, groove offsets are mirrored within the core and the axis
// moves to the opposite mouth. Reverse is an involution.
func (h CommonHole) Reverse() CommonHole {
	l := h.GetAllLength()
	r := h
	r.Axis = kernel.Axis{Location: h.Axis.Point(l), Direction: h.Axis.Direction.MulScalar(-1)}

	r.CounterMessage = reverseStack(h.AntiCounterMessage, l)
	r.AntiCounterMessage = reverseStack(h.CounterMessage, l)

	core := h.HoleMessage.Reverse()
	core.PerVerge = core.PerVerge.reverse(l)
	core.BackVerge = core.BackVerge.reverse(l)
	core.Parts = reverseNodes(core.Parts, l)
	if core.Angle != 0 {
		core.Radius = mouthRadius(core)
	}
	r.HoleMessage = core

	if h.SinkMessage != nil {
		r.SinkMessage = make([]SinkProperty, len(h.SinkMessage))
		for i, s := range h.SinkMessage {
			j := len(h.SinkMessage) - 1 - i
			r.SinkMessage[j] = SinkProperty{
				Offset: h.HoleMessage.Depth - s.Offset - s.Depth,
				Depth:  s.Depth,
				Radius: s.Radius,
				Parts:  reverseNodes(s.Parts, l),
			}
		}
	}

	if _, ok := h.Bottom.(Through); ok {
		r.Bottom = Through{ChamferDepth: core.BackVerge.Length(), Offset: stackLength(r.AntiCounterMessage)}
	}
	r.Faces = reverseNodes(h.Faces, l)
	r.Compose = append([]kernel.FaceID(nil), h.Compose...)
	r.count()
	return r
}

// mouthRadius is the radius at the shallow end of a core whose parts are
// already in its own frame.
func mouthRadius(h Hole) float64 {
	if len(h.Parts) == 0 {
		return h.Radius - h.Depth*math.Tan(h.Angle*math.Pi/180)
	}
	top := h.Parts[0]
	for _, n := range h.Parts[1:] {
		if n.UpStation < top.UpStation {
			top = n
		}
	}
	return top.UpRadius
}

func reverseStack(stack []CountersunkProperty, length float64) []CountersunkProperty {
	if stack == nil {
		return nil
	}
	out := make([]CountersunkProperty, len(stack))
	for i, c := range stack {
		out[i] = c.reverse(length)
	}
	return out
}

// IsEqual compares type, bottom, every stage, every groove and the core.
// Placement and face identities are not compared.
func (h CommonHole) IsEqual(o CommonHole) bool {
	if h.Type != o.Type || !bottomsEqual(h.Bottom, o.Bottom) {
		return false
	}
	if !stacksMatch(h.CounterMessage, o.CounterMessage, CountersunkProperty.IsEqual) ||
		!stacksMatch(h.AntiCounterMessage, o.AntiCounterMessage, CountersunkProperty.IsEqual) ||
		!stacksMatch(h.SinkMessage, o.SinkMessage, SinkProperty.IsEqual) {
		return false
	}
	return h.HoleMessage.IsEqual(o.HoleMessage)
}

// IsSame is the loose comparison: type, every stage and groove by IsSame and
// the core by IsSame. The bottom is not compared.
func (h CommonHole) IsSame(o CommonHole) bool {
	if h.Type != o.Type {
		return false
	}
	if !stacksMatch(h.CounterMessage, o.CounterMessage, CountersunkProperty.IsSame) ||
		!stacksMatch(h.AntiCounterMessage, o.AntiCounterMessage, CountersunkProperty.IsSame) ||
		!stacksMatch(h.SinkMessage, o.SinkMessage, SinkProperty.IsSame) {
		return false
	}
	return h.HoleMessage.IsSame(o.HoleMessage)
}

// IsSameAboveCore compares everything IsSame does except the core bore, which
// may differ in radius, depth and verges. Thread presence on the core is
// still compared.
func (h CommonHole) IsSameAboveCore(o CommonHole) bool {
	if h.Type != o.Type || h.HoleMessage.HasThread != o.HoleMessage.HasThread {
		return false
	}
	return stacksMatch(h.CounterMessage, o.CounterMessage, CountersunkProperty.IsSame) &&
		stacksMatch(h.AntiCounterMessage, o.AntiCounterMessage, CountersunkProperty.IsSame) &&
		stacksMatch(h.SinkMessage, o.SinkMessage, SinkProperty.IsSame)
}

func stacksMatch[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SamePlacement reports whether two holes sit on the same axis with the same
// entry point and direction.
func SamePlacement(a, b CommonHole, tol kernel.Tolerance) bool {
	return a.Axis.Location.Sub(b.Axis.Location).Length() <= tol.Linear &&
		kernel.SameDirection(a.Axis.Direction, b.Axis.Direction, tol)
}
