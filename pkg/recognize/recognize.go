// Package recognize runs the full recognition pipeline over one solid and
// exposes the results as classified holes, face groups and JSON records.
package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/chazu/holefind/pkg/aag"
	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/export"
	"github.com/chazu/holefind/pkg/grouping"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/logging"
	"github.com/chazu/holefind/pkg/threads"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Options configure a Recognizer.
type Options struct {
	Classify classify.Options
	Threads  threads.Options
	// OutputPath receives indented JSON when a call asks for file output.
	OutputPath string
}

// DefaultOptions returns the stock thresholds and "holes.json" as output.
func DefaultOptions() Options {
	return Options{
		Classify:   classify.DefaultOptions,
		Threads:    threads.DefaultOptions,
		OutputPath: "holes.json",
	}
}

// Recognizer holds the results of one pipeline run. It is read-only after
// New and safe for concurrent use.
type Recognizer struct {
	opts      Options
	ctx       context.Context
	graph     *aag.Graph
	x         *aag.Extraction
	holes     []hole.CommonHole
	unmatched []hole.SewThread
}

// New builds the graph, extracts and classifies holes, then detects threads
// from the indicator circles and attaches them. An empty or nil solid gives
// a Recognizer with no holes.
func New(s kernel.Solid, circles []kernel.Circle, opts Options) *Recognizer {
	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	r := &Recognizer{opts: opts, ctx: ctx}

	r.graph = aag.Build(s, circles)
	if r.graph.Empty() {
		logging.WarnContext(ctx, "solid has no faces")
		r.x = &aag.Extraction{}
		return r
	}
	logging.DebugContext(ctx, "graph built", "faces", r.graph.Len(), "edges", len(r.graph.Edges))

	r.x = aag.Extract(r.graph, opts.Classify)
	r.holes = r.x.Defined
	for _, gr := range r.x.Errors {
		logging.DebugContext(ctx, "unrecognized group", "faces", gr.Indices(), "reason", gr.Reason)
	}
	for _, gr := range r.x.Complex {
		logging.DebugContext(ctx, "complex group", "faces", gr.Indices(), "reason", gr.Reason)
	}

	detected := threads.Detect(r.graph.Circles, opts.Threads.Tolerance)
	r.unmatched = threads.AddThread(r.holes, detected, opts.Threads)

	logging.InfoContext(ctx, "recognition complete",
		"holes", len(r.holes),
		"complex", len(r.x.Complex),
		"errors", len(r.x.Errors),
		"rest", len(r.x.Rest),
		"threads", len(detected),
		"unmatched", len(r.unmatched))
	return r
}

// Holes returns the classified holes in extraction order.
func (r *Recognizer) Holes() []hole.CommonHole { return r.holes }

// Extraction returns the raw extraction buckets.
func (r *Recognizer) Extraction() *aag.Extraction { return r.x }

// Graph returns the adjacency graph.
func (r *Recognizer) Graph() *aag.Graph { return r.graph }

// Unmatched returns the detected threads no hole accepted.
func (r *Recognizer) Unmatched() []hole.SewThread { return r.unmatched }

// ---------------------------------------------------------------------------
// Orientation
// ---------------------------------------------------------------------------

// against reports whether the hole points away from the approach direction.
// A zero direction never asks for a reversal.
func against(h hole.CommonHole, direction v3.Vec) bool {
	if direction.Length() == 0 {
		return false
	}
	return h.Axis.Direction.Dot(direction) < 0
}

// orient reverses a through hole that points against the approach
// direction. Blind and indirect holes are returned unchanged.
func orient(h hole.CommonHole, direction v3.Vec) hole.CommonHole {
	if hole.Reversible(h.Bottom) && against(h, direction) {
		return h.Reverse()
	}
	return h
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

// ToJSON returns one record per classified hole, oriented to the approach
// direction. With outputToFile the records are also written to OutputPath.
func (r *Recognizer) ToJSON(direction v3.Vec, outputToFile bool) ([]export.Record, error) {
	records := make([]export.Record, 0, len(r.holes))
	for _, h := range r.holes {
		records = append(records, export.GetUGHoleMessage(orient(h, direction)).WriteJSON())
	}
	if outputToFile {
		if err := r.write(records); err != nil {
			return records, err
		}
	}
	return records, nil
}

// ToJSONString is ToJSON serialized as an indented JSON array.
func (r *Recognizer) ToJSONString(direction v3.Vec, outputToFile bool) (string, error) {
	records, err := r.ToJSON(direction, outputToFile)
	if err != nil {
		return "", err
	}
	return marshal(records)
}

// ReverseHole reclassifies the hole made of the given faces and orients it
// to the approach direction. mustReverse reverses it even when it already
// faces the direction. A blind or indirect hole cannot be entered from its far
// side, so reversing one fails, as does a face set that is not exactly one
// hole.
func (r *Recognizer) ReverseHole(faces []kernel.FaceID, direction v3.Vec, mustReverse, outputToFile bool) (string, bool) {
	h, ok := r.lookup(faces)
	if !ok {
		logging.WarnContext(r.ctx, "reverse: faces are not one hole", "faces", faces)
		return "", false
	}
	if mustReverse || against(h, direction) {
		if !hole.Reversible(h.Bottom) {
			logging.WarnContext(r.ctx, "reverse: hole has no direct far opening", "faces", faces)
			return "", false
		}
		h = h.Reverse()
	}
	rec := export.GetUGHoleMessage(h).WriteJSON()
	if outputToFile {
		if err := r.write(rec); err != nil {
			logging.ErrorContext(r.ctx, "reverse: write failed", "error", err)
			return "", false
		}
	}
	s, err := marshal(rec)
	if err != nil {
		return "", false
	}
	return s, true
}

// lookup finds the hole whose faces are exactly the given set, classifying
// it from scratch when the extraction routed it elsewhere.
func (r *Recognizer) lookup(faces []kernel.FaceID) (hole.CommonHole, bool) {
	if len(faces) == 0 {
		return hole.CommonHole{}, false
	}
	want := sortedIDs(faces)
	for _, h := range r.holes {
		if equalIDs(sortedIDs(h.Compose), want) {
			return h, true
		}
	}
	i, ok := r.graph.Index(faces[0])
	if !ok {
		return hole.CommonHole{}, false
	}
	gr, err := aag.FindSingle(r.graph, i, r.opts.Classify)
	if err != nil || gr.Status != aag.Recognized {
		return hole.CommonHole{}, false
	}
	var ids []kernel.FaceID
	for _, n := range gr.Nodes {
		ids = append(ids, n.Face)
	}
	if !equalIDs(sortedIDs(ids), want) {
		return hole.CommonHole{}, false
	}
	h, err := classify.DefineHole(gr.Nodes, r.opts.Classify)
	if err != nil {
		return hole.CommonHole{}, false
	}
	return h, true
}

// Single is the JSON view of one point query result.
type Single struct {
	Status string          `json:"status"`
	Reason string          `json:"reason,omitempty"`
	Faces  []kernel.FaceID `json:"faces"`
	Hole   export.Record   `json:"hole,omitempty"`
}

func (r *Recognizer) single(gr aag.Group) Single {
	s := Single{Status: gr.Status.String(), Reason: gr.Reason}
	for _, n := range gr.Nodes {
		s.Faces = append(s.Faces, n.Face)
	}
	if gr.Status == aag.Recognized {
		if u, err := export.FromFaces(gr.Nodes, r.opts.Classify); err == nil {
			s.Hole = u.WriteJSON()
		}
	}
	return s
}

// FindSingleJSON serializes the group of the face at graph index i.
func (r *Recognizer) FindSingleJSON(i int) (string, error) {
	gr, err := aag.FindSingle(r.graph, i, r.opts.Classify)
	if err != nil {
		return "", err
	}
	return marshal(r.single(gr))
}

// FindSingleFaceJSON serializes every group touching the face at graph
// index i.
func (r *Recognizer) FindSingleFaceJSON(i int) (string, error) {
	if i < 0 || i >= r.graph.Len() {
		return "", fmt.Errorf("face index %d out of range", i)
	}
	out := []Single{}
	for _, gr := range aag.FindSingleFace(r.graph, i, r.opts.Classify) {
		out = append(out, r.single(gr))
	}
	return marshal(out)
}

// ---------------------------------------------------------------------------
// Grouping
// ---------------------------------------------------------------------------

// Operations is one face group with its merged processes.
type Operations struct {
	Group     grouping.FaceGroup
	Processes grouping.Processes
}

// Hypermill groups the holes by the Hypermill convention.
func (r *Recognizer) Hypermill() []Operations {
	var out []Operations
	for _, g := range grouping.GroupHypermill(r.holes, r.opts.Classify.Tolerance) {
		out = append(out, Operations{Group: g, Processes: grouping.ProcessHypermill(g.Holes)})
	}
	return out
}

// NX groups the holes by the NX convention against the part's bounding box.
func (r *Recognizer) NX() []Operations {
	var out []Operations
	for _, g := range grouping.GroupNX(r.holes, r.graph.Box, r.opts.Classify.Tolerance) {
		out = append(out, Operations{Group: g, Processes: grouping.ProcessNX(g.Holes)})
	}
	return out
}

// Group dispatches on the convention name.
func (r *Recognizer) Group(c grouping.Convention) ([]Operations, error) {
	switch c {
	case grouping.Hypermill:
		return r.Hypermill(), nil
	case grouping.NX:
		return r.NX(), nil
	}
	return nil, fmt.Errorf("unknown convention %q", c)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Recognizer) write(v any) error {
	if r.opts.OutputPath == "" {
		return fmt.Errorf("no output path configured")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := os.WriteFile(r.opts.OutputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", r.opts.OutputPath, err)
	}
	logging.InfoContext(r.ctx, "wrote records", "path", r.opts.OutputPath)
	return nil
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sortedIDs(ids []kernel.FaceID) []kernel.FaceID {
	out := append([]kernel.FaceID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(a, b []kernel.FaceID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
