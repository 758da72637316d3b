package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/holefind/pkg/config"
	"github.com/chazu/holefind/pkg/cutters"
	"github.com/chazu/holefind/pkg/engine"
	"github.com/chazu/holefind/pkg/export"
	"github.com/chazu/holefind/pkg/grouping"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	"github.com/chazu/holefind/pkg/kernel/sdfx"
	"github.com/chazu/holefind/pkg/logging"
	"github.com/chazu/holefind/pkg/recognize"
	"github.com/chazu/holefind/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// App runs recognition over model sources with one configuration.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
}

// ProcessData is one merged machining process.
type ProcessData struct {
	Type      string       `json:"type"`
	Diameter  float64      `json:"diameter"`
	Depth     float64      `json:"depth"`
	Locations [][3]float64 `json:"locations"`
	Cutters   []string     `json:"cutters,omitempty"`
	// Travel is the rapid distance from the origin through every location.
	Travel float64 `json:"travel,omitempty"`
}

// GroupData is one face group and its processes.
type GroupData struct {
	Normal    [3]float64    `json:"normal"`
	Offset    float64       `json:"offset"`
	Processes []ProcessData `json:"processes"`
}

// EvalErrorData is a located error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one run.
type EvalResult struct {
	Model      string          `json:"model"`
	Convention string          `json:"convention"`
	Holes      int             `json:"holes"`
	Groups     []GroupData     `json:"groups"`
	Records    []export.Record `json:"records"`
	Errors     []EvalErrorData `json:"errors"`
	Warnings   []EvalErrorData `json:"warnings"`
}

func newResult(convention string) EvalResult {
	return EvalResult{
		Convention: convention,
		Groups:     []GroupData{},
		Records:    []export.Record{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}
}

func (r *EvalResult) fail(msg string) {
	r.Errors = append(r.Errors, EvalErrorData{Message: msg})
}

func (r *EvalResult) warn(msg string) {
	r.Warnings = append(r.Warnings, EvalErrorData{Message: msg})
}

// NewApp creates an App for a loaded configuration.
func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg, engine: engine.NewEngine()}
}

// Evaluate takes DSL source and returns the recognition result.
func (a *App) Evaluate(source string) EvalResult {
	result, _ := a.evaluate(source)
	return result
}

func (a *App) evaluate(source string) (EvalResult, *memkernel.Model) {
	result := newResult(a.cfg.Convention)

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logging.Error("evaluate fatal error", "error", err)
		result.fail(err.Error())
		return result, nil
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result, nil
	}
	return a.Analyze(m), m
}

// EvaluateFile loads a model from a .lisp or .yaml file and analyzes it.
// The model is nil when loading failed.
func (a *App) EvaluateFile(path string) (EvalResult, *memkernel.Model) {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		m, err := memkernel.LoadFile(path)
		if err != nil {
			result := newResult(a.cfg.Convention)
			result.fail(err.Error())
			return result, nil
		}
		return a.Analyze(m), m
	}
	source, err := os.ReadFile(path)
	if err != nil {
		result := newResult(a.cfg.Convention)
		result.fail(fmt.Sprintf("reading model: %v", err))
		return result, nil
	}
	return a.evaluate(string(source))
}

// Analyze runs recognition over a built model.
func (a *App) Analyze(m *memkernel.Model) EvalResult {
	result := newResult(a.cfg.Convention)
	if m == nil {
		return result
	}
	result.Model = m.Name

	direction, _, err := a.cfg.ApproachDirection()
	if err != nil {
		result.fail(err.Error())
		return result
	}

	r := a.recognize(m)
	result.Holes = len(r.Holes())

	x := r.Extraction()
	for _, gr := range x.Complex {
		result.warn(fmt.Sprintf("faces %v: ambiguous hole: %s", gr.Indices(), gr.Reason))
	}
	for _, gr := range x.Errors {
		result.warn(fmt.Sprintf("faces %v: unrecognized: %s", gr.Indices(), gr.Reason))
	}
	for _, th := range r.Unmatched() {
		result.warn(fmt.Sprintf("thread M%g at %v matches no hole", 2*th.Radius, th.Axis.Location))
	}

	ops, err := r.Group(grouping.Convention(a.cfg.Convention))
	if err != nil {
		result.fail(err.Error())
		return result
	}
	for _, op := range ops {
		result.Groups = append(result.Groups, a.groupData(op))
	}

	records, err := r.ToJSON(direction, a.cfg.Write)
	if err != nil {
		result.fail(fmt.Sprintf("writing %s: %v", a.cfg.Output, err))
		return result
	}
	if records != nil {
		result.Records = records
	}
	return result
}

func (a *App) groupData(op recognize.Operations) GroupData {
	g := GroupData{
		Normal:    vec(op.Group.Normal),
		Offset:    op.Group.Offset,
		Processes: []ProcessData{},
	}
	for _, p := range op.Processes {
		first := p[0]
		pd := ProcessData{
			Type:      export.GetUGHoleMessage(first).TypeName(),
			Diameter:  2 * first.HoleMessage.Radius,
			Depth:     first.GetAllLength(),
			Locations: [][3]float64{},
		}
		if !a.cfg.Tools {
			for _, h := range p {
				pd.Locations = append(pd.Locations, vec(h.Axis.Location))
			}
			g.Processes = append(g.Processes, pd)
			continue
		}
		// With tools the locations follow the shortest visiting order.
		path := cutters.OrderPath(p, v3.Vec{})
		for _, tp := range path {
			pd.Locations = append(pd.Locations, vec(tp.Start))
		}
		pd.Travel = cutters.PathLength(path, v3.Vec{})
		for _, c := range cutters.Recommend(first) {
			pd.Cutters = append(pd.Cutters, c.String())
		}
		g.Processes = append(g.Processes, pd)
	}
	return g
}

func (a *App) recognize(m *memkernel.Model) *recognize.Recognizer {
	return recognize.New(m, m.ThreadCircles(), recognize.Options{
		Classify:   a.cfg.ClassifyOptions(),
		Threads:    a.cfg.ThreadOptions(),
		OutputPath: a.cfg.Output,
	})
}

// holeMeshCells is the marching cubes resolution of each hole highlight.
const holeMeshCells = 64

// Preview is the mesh file written by --preview: the part and one
// highlight mesh per recognized hole.
type Preview struct {
	Part  *kernel.Mesh   `json:"part"`
	Holes []*kernel.Mesh `json:"holes"`
}

// WritePreview tessellates the model and its holes and writes them as JSON.
func (a *App) WritePreview(m *memkernel.Model, path string) error {
	part, err := sdfx.PreviewMesh(m, sdfx.DefaultMeshCells)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	part.Name = m.Name
	holes, err := tessellate.Holes(a.recognize(m).Holes(), holeMeshCells)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if holes == nil {
		holes = []*kernel.Mesh{}
	}
	data, err := json.Marshal(Preview{Part: part, Holes: holes})
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	logging.Info("preview written", "path", path, "triangles", part.TriangleCount(), "holes", len(holes))
	return nil
}

// Run analyzes one model file and prints the result to w.
func (a *App) Run(path string, w io.Writer) error {
	result, m := a.EvaluateFile(path)
	if err := printResult(w, result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%s: %d error(s)", path, len(result.Errors))
	}
	if a.cfg.Preview != "" && m != nil {
		return a.WritePreview(m, a.cfg.Preview)
	}
	return nil
}

func printResult(w io.Writer, result EvalResult) error {
	for _, e := range result.Errors {
		if e.Line > 0 {
			logging.Error("model error", "line", e.Line, "col", e.Col, "message", e.Message)
		} else {
			logging.Error("model error", "message", e.Message)
		}
	}
	for _, e := range result.Warnings {
		logging.Warn(e.Message)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func vec(v v3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
