// Package hole is the hole feature model: the face nodes a hole is built
// from, its typed parts (verges, counter stages, grooves, core bore, bottom)
// and the comparison and reversal operations grouping relies on.
package hole

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/chazu/holefind/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Eps is the tolerance used by every structural comparison in this package.
const Eps = 1e-4

func near(a, b float64) bool {
	return math.Abs(a-b) <= Eps
}

// Opening marks a face node that borders a mouth of its hole.
type Opening int

const (
	NoOpening Opening = iota
	EntryOpening
	ExitOpening
	// IndirectOpening is an exit into another feature rather than the stock.
	IndirectOpening
)

func (o Opening) String() string {
	switch o {
	case NoOpening:
		return "none"
	case EntryOpening:
		return "entry"
	case ExitOpening:
		return "exit"
	case IndirectOpening:
		return "indirect"
	}
	return fmt.Sprintf("Opening(%d)", int(o))
}

// FaceNode is one face of a hole expressed in the hole's frame. Axis is the
// hole axis with its location at the entry mouth centre and its direction
// pointing into the material. Stations are depths below the entry mouth;
// the Up end is the shallower one.
type FaceNode struct {
	Index int
	Face  kernel.FaceID
	Type  kernel.SurfaceType
	Axis  kernel.Axis

	Up, Down               v3.Vec
	UpStation, DownStation float64
	UpRadius, DownRadius   float64

	Radius      float64 // cylinder radius, torus major radius, cone reference radius
	MinorRadius float64
	Angle       float64 // cone semi-angle in degrees
	Depth       float64

	Next    []int // graph indices of adjacent faces in the same hole
	Opening Opening

	HasThread bool
	Thread    SewThread
}

// Reverse mirrors the node into the frame of the same hole entered from its
// other end, length being the hole's full axial length.
func (n FaceNode) Reverse(length float64) FaceNode {
	r := n
	r.Axis = kernel.Axis{Location: n.Axis.Point(length), Direction: n.Axis.Direction.MulScalar(-1)}
	r.Up, r.Down = n.Down, n.Up
	r.UpStation, r.DownStation = length-n.DownStation, length-n.UpStation
	r.UpRadius, r.DownRadius = n.DownRadius, n.UpRadius
	switch n.Opening {
	case EntryOpening:
		r.Opening = ExitOpening
	case ExitOpening:
		r.Opening = EntryOpening
	}
	r.Next = append([]int(nil), n.Next...)
	return r
}

func reverseNodes(nodes []FaceNode, length float64) []FaceNode {
	if nodes == nil {
		return nil
	}
	out := make([]FaceNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Reverse(length)
	}
	return out
}

// Span returns the shallowest and deepest stations covered by the nodes.
func Span(nodes []FaceNode) (top, bottom float64) {
	if len(nodes) == 0 {
		return 0, 0
	}
	top, bottom = math.Inf(1), math.Inf(-1)
	for _, n := range nodes {
		top = math.Min(top, n.UpStation)
		bottom = math.Max(bottom, n.DownStation)
	}
	return top, bottom
}

// ---------------------------------------------------------------------------
// Threads
// ---------------------------------------------------------------------------

// SewThread is a thread helix as detected on the model: its axis (located at
// the thread start, pointing along it), nominal radius, axial depth and
// pitch, plus the indicator circles it was assembled from.
type SewThread struct {
	Axis    kernel.Axis
	Radius  float64
	Depth   float64
	Pitch   float64
	Circles []kernel.Circle
}

// Reduce drops the placement of a detected thread, keeping what a hole
// feature records about it.
func (s SewThread) Reduce() Thread {
	return Thread{Present: true, Radius: s.Radius, Length: s.Depth, Pitch: s.Pitch}
}

// Thread is the thread data a hole stage carries.
type Thread struct {
	Present bool
	Radius  float64
	Length  float64
	Pitch   float64
}

// Equal reports whether both threads are present and match in radius,
// length and pitch.
func (t Thread) Equal(o Thread) bool {
	return t.Present && o.Present &&
		near(t.Radius, o.Radius) && near(t.Length, o.Length) && near(t.Pitch, o.Pitch)
}

// same treats two absent threads as matching.
func (t Thread) same(o Thread) bool {
	if !t.Present && !o.Present {
		return true
	}
	return t.Equal(o)
}

// Hash buckets a thread by radius and pitch quantised to Eps. Threads that
// differ only in length hash alike.
func (t Thread) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(int64(math.Round(t.Radius/Eps))))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(math.Round(t.Pitch/Eps))))
	return xxhash.Sum64(buf[:])
}
