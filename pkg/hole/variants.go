package hole

import "fmt"

// ---------------------------------------------------------------------------
// Bottoms
// ---------------------------------------------------------------------------

// BottomKind enumerates how a hole ends.
type BottomKind int

const (
	CuspBottom BottomKind = iota
	ThroughBottom
	FlatBottom
	IndirectBottom
)

func (k BottomKind) String() string {
	switch k {
	case CuspBottom:
		return "Cusp"
	case ThroughBottom:
		return "Through"
	case FlatBottom:
		return "Flatten"
	case IndirectBottom:
		return "IndirectThrough"
	}
	return fmt.Sprintf("BottomKind(%d)", int(k))
}

// Bottom is a sealed set of hole endings. Implementations: Cusp, Through,
// Flatten, IndirectThrough.
type Bottom interface {
	Kind() BottomKind
	IsEqual(other Bottom) bool
	bottom()
}

// Cusp is a drill point; Angle is the included tip angle in degrees.
type Cusp struct {
	Angle float64
}

// Through exits into the stock face opposite the entry. ChamferDepth is the
// exit chamfer (or fillet) length on the core and Offset the axial length of
// the exit side counter stages.
type Through struct {
	ChamferDepth float64
	Offset       float64
}

// Flatten is a flat floor.
type Flatten struct{}

// IndirectThrough exits into another feature instead of the stock.
type IndirectThrough struct{}

func (Cusp) Kind() BottomKind            { return CuspBottom }
func (Through) Kind() BottomKind         { return ThroughBottom }
func (Flatten) Kind() BottomKind         { return FlatBottom }
func (IndirectThrough) Kind() BottomKind { return IndirectBottom }

func (Cusp) bottom()            {}
func (Through) bottom()         {}
func (Flatten) bottom()         {}
func (IndirectThrough) bottom() {}

func (b Cusp) IsEqual(o Bottom) bool {
	c, ok := o.(Cusp)
	return ok && near(b.Angle, c.Angle)
}

func (b Through) IsEqual(o Bottom) bool {
	t, ok := o.(Through)
	return ok && near(b.ChamferDepth, t.ChamferDepth) && near(b.Offset, t.Offset)
}

func (Flatten) IsEqual(o Bottom) bool {
	_, ok := o.(Flatten)
	return ok
}

func (IndirectThrough) IsEqual(o Bottom) bool {
	_, ok := o.(IndirectThrough)
	return ok
}

// IsThrough reports whether the bottom opens out of the part, directly or
// into another feature.
func IsThrough(b Bottom) bool {
	if b == nil {
		return false
	}
	k := b.Kind()
	return k == ThroughBottom || k == IndirectBottom
}

// Reversible reports whether a hole with this bottom can be entered from its
// far end. Only a direct through opening qualifies: an indirect hole's far
// end is another feature.
func Reversible(b Bottom) bool {
	_, ok := b.(Through)
	return ok
}

func bottomsEqual(a, b Bottom) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.IsEqual(b)
}

// ---------------------------------------------------------------------------
// Verges
// ---------------------------------------------------------------------------

// VergeKind enumerates edge treatments at the top of a stage.
type VergeKind int

const (
	SharpVerge VergeKind = iota
	ChamferVerge
	FilletVerge
)

func (k VergeKind) String() string {
	switch k {
	case SharpVerge:
		return "Sharp"
	case ChamferVerge:
		return "Chamfer"
	case FilletVerge:
		return "Fillet"
	}
	return fmt.Sprintf("VergeKind(%d)", int(k))
}

// Verge is a sealed set of edge treatments. Implementations: Sharp, Chamfer,
// Fillet.
type Verge interface {
	Kind() VergeKind
	IsEqual(other Verge) bool
	// Length is the axial extent of the treatment.
	Length() float64
	// Faces returns the face nodes the treatment was recognised from.
	Faces() []FaceNode
	reverse(length float64) Verge
}

// Sharp is an untreated edge.
type Sharp struct{}

// Chamfer is a conical edge break. Depth is axial, Angle the cone semi-angle
// in degrees.
type Chamfer struct {
	Depth float64
	Angle float64
	Parts []FaceNode
}

// Fillet is a rounded edge break of the given radius.
type Fillet struct {
	Radius float64
	Parts  []FaceNode
}

func (Sharp) Kind() VergeKind   { return SharpVerge }
func (Chamfer) Kind() VergeKind { return ChamferVerge }
func (Fillet) Kind() VergeKind  { return FilletVerge }

func (Sharp) Length() float64     { return 0 }
func (v Chamfer) Length() float64 { return v.Depth }
func (v Fillet) Length() float64  { return v.Radius }

func (Sharp) Faces() []FaceNode     { return nil }
func (v Chamfer) Faces() []FaceNode { return v.Parts }
func (v Fillet) Faces() []FaceNode  { return v.Parts }

func (Sharp) IsEqual(o Verge) bool {
	_, ok := o.(Sharp)
	return ok
}

func (v Chamfer) IsEqual(o Verge) bool {
	c, ok := o.(Chamfer)
	return ok && near(v.Depth, c.Depth) && near(v.Angle, c.Angle)
}

func (v Fillet) IsEqual(o Verge) bool {
	f, ok := o.(Fillet)
	return ok && near(v.Radius, f.Radius)
}

func (v Sharp) reverse(float64) Verge { return v }

func (v Chamfer) reverse(length float64) Verge {
	v.Parts = reverseNodes(v.Parts, length)
	return v
}

func (v Fillet) reverse(length float64) Verge {
	v.Parts = reverseNodes(v.Parts, length)
	return v
}

func vergeOf(v Verge) Verge {
	if v == nil {
		return Sharp{}
	}
	return v
}

func vergesEqual(a, b Verge) bool {
	return vergeOf(a).IsEqual(vergeOf(b))
}

// ---------------------------------------------------------------------------
// Counter stages
// ---------------------------------------------------------------------------

// CounterKind enumerates the shapes a counter stage can take.
type CounterKind int

const (
	Counterbored CounterKind = iota
	Countersunk
	Drilled
	Toroidal
	Tapered
)

func (k CounterKind) String() string {
	switch k {
	case Counterbored:
		return "Counterbore"
	case Countersunk:
		return "Countersink"
	case Drilled:
		return "Drilled"
	case Toroidal:
		return "Torus"
	case Tapered:
		return "TaperedCounter"
	}
	return fmt.Sprintf("CounterKind(%d)", int(k))
}

// Counter is a sealed set of counter stage shapes. Implementations:
// Counterbore, Countersink, DrilledCounter, TorusCounter, TaperedCounter.
type Counter interface {
	Kind() CounterKind
	IsEqual(other Counter) bool
	counter()
}

// Counterbore is a cylindrical stage with a flat shoulder.
type Counterbore struct{}

// Countersink is a conical stage; Degree is the included angle.
type Countersink struct {
	Degree float64
}

// DrilledCounter is a cylindrical stage ending in a conical floor; Angle is
// the included floor angle in degrees.
type DrilledCounter struct {
	Angle float64
}

// TorusCounter is a toroidal stage. TopRadius and BottomRadius are the
// stage radii at its two ends, Radius the tube radius. Inner is set when the
// tube centre lies inside the stage's radial range.
type TorusCounter struct {
	TopRadius    float64
	BottomRadius float64
	Radius       float64
	Inner        bool
}

// TaperedCounter is a conical stage that does not start at the mouth; Angle
// is the cone semi-angle in degrees.
type TaperedCounter struct {
	Angle float64
}

func (Counterbore) Kind() CounterKind    { return Counterbored }
func (Countersink) Kind() CounterKind    { return Countersunk }
func (DrilledCounter) Kind() CounterKind { return Drilled }
func (TorusCounter) Kind() CounterKind   { return Toroidal }
func (TaperedCounter) Kind() CounterKind { return Tapered }

func (Counterbore) counter()    {}
func (Countersink) counter()    {}
func (DrilledCounter) counter() {}
func (TorusCounter) counter()   {}
func (TaperedCounter) counter() {}

func (Counterbore) IsEqual(o Counter) bool {
	_, ok := o.(Counterbore)
	return ok
}

func (c Countersink) IsEqual(o Counter) bool {
	s, ok := o.(Countersink)
	return ok && near(c.Degree, s.Degree)
}

func (c DrilledCounter) IsEqual(o Counter) bool {
	d, ok := o.(DrilledCounter)
	return ok && near(c.Angle, d.Angle)
}

func (c TorusCounter) IsEqual(o Counter) bool {
	t, ok := o.(TorusCounter)
	return ok && c.Inner == t.Inner && near(c.TopRadius, t.TopRadius) &&
		near(c.BottomRadius, t.BottomRadius) && near(c.Radius, t.Radius)
}

func (c TaperedCounter) IsEqual(o Counter) bool {
	t, ok := o.(TaperedCounter)
	return ok && near(c.Angle, t.Angle)
}

func countersEqual(a, b Counter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.IsEqual(b)
}
