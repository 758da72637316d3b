package export

import (
	"fmt"
	"math"
	"strconv"

	"github.com/chazu/holefind/pkg/hole"
)

// Rotation is a thread's hand.
type Rotation int

const (
	RotationUnknown Rotation = iota
	RotationRight
	RotationLeft
)

func (r Rotation) String() string {
	switch r {
	case RotationRight:
		return "Right"
	case RotationLeft:
		return "Left"
	}
	return "Unknown"
}

// ThreadSpec is the thread callout a threaded variant carries.
type ThreadSpec struct {
	Callout        string
	Angle          float64 // flank angle in degrees
	DiameterNR     int     // which stage diameter the thread sits on, 1 based
	Form           string
	Length         float64
	MajorDiameter  float64
	MinorDiameter  float64
	Method         string
	NumberOfStarts int
	Pitch          float64
	Rotation       Rotation
	Tapered        bool
	TapDrillSize   float64
}

// coarse is the ISO 261 metric coarse series: nominal diameter to pitch.
var coarse = []struct{ d, p float64 }{
	{1, 0.25}, {1.2, 0.25}, {1.6, 0.35}, {2, 0.4}, {2.5, 0.45}, {3, 0.5},
	{3.5, 0.6}, {4, 0.7}, {5, 0.8}, {6, 1}, {8, 1.25}, {10, 1.5},
	{12, 1.75}, {14, 2}, {16, 2}, {18, 2.5}, {20, 2.5}, {22, 2.5},
	{24, 3}, {27, 3}, {30, 3.5}, {33, 3.5}, {36, 4}, {39, 4},
	{42, 4.5}, {45, 4.5}, {48, 5}, {52, 5}, {56, 5.5}, {60, 5.5}, {64, 6},
}

// CoarsePitch returns the nearest metric coarse nominal diameter and its
// pitch.
func CoarsePitch(major float64) (nominal, pitch float64) {
	best := coarse[0]
	for _, c := range coarse[1:] {
		if math.Abs(c.d-major) < math.Abs(best.d-major) {
			best = c
		}
	}
	return best.d, best.p
}

// threadSpec builds the callout for a thread sitting on stage nr with the
// given bore radius.
func threadSpec(t hole.Thread, nr int, bore float64) ThreadSpec {
	major := 2 * t.Radius
	nominal, pitch := CoarsePitch(major)
	callout := "M" + num(nominal)
	if t.Pitch > 0 {
		pitch = t.Pitch
		callout = fmt.Sprintf("M%sx%s", num(nominal), num(pitch))
	}
	// H = 0.866p, minor = major - 1.25H
	minor := major - 1.0825*pitch
	return ThreadSpec{
		Callout:        callout,
		Angle:          60,
		DiameterNR:     nr,
		Form:           "M Profile",
		Length:         t.Length,
		MajorDiameter:  major,
		MinorDiameter:  minor,
		Method:         "CUT",
		NumberOfStarts: 1,
		Pitch:          pitch,
		Rotation:       RotationRight,
		TapDrillSize:   2 * bore,
	}
}

func num(v float64) string {
	return strconv.FormatFloat(round(v), 'f', -1, 64)
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func (t ThreadSpec) record(r Record) {
	r["THREAD_CALLOUT"] = t.Callout
	r["THREAD_ANGLE"] = t.Angle
	r["THREAD_DIAMETER_NR"] = t.DiameterNR
	r["THREAD_FORM"] = t.Form
	r["THREAD_LENGTH"] = round(t.Length)
	r["THREAD_MAJOR_DIAMETER"] = round(t.MajorDiameter)
	r["THREAD_MINOR_DIAMETER"] = round(t.MinorDiameter)
	r["THREAD_METHOD"] = t.Method
	r["THREAD_NUMBER_OF_STARTS"] = t.NumberOfStarts
	r["THREAD_PITCH"] = round(t.Pitch)
	r["THREAD_ROTATION"] = t.Rotation.String()
	r["THREAD_TAPERED"] = t.Tapered
	r["THREAD_TAPPED_DRILL_SIZE"] = round(t.TapDrillSize)
}
