package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/holefind/pkg/config"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(nil, "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return NewApp(cfg)
}

func requireNoErrors(t *testing.T, result EvalResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
}

// TestE2EBracketExample exercises the full pipeline: Lisp source → engine →
// model → recognition → grouping, the same path the CLI takes.
func TestE2EBracketExample(t *testing.T) {
	app := newTestApp(t)

	result, m := app.EvaluateFile("examples/bracket.lisp")
	requireNoErrors(t, result)
	if m == nil {
		t.Fatal("expected a model")
	}
	if result.Model != "bracket" {
		t.Errorf("expected model name bracket, got %q", result.Model)
	}
	if result.Holes != 5 {
		t.Fatalf("expected 5 holes, got %d", result.Holes)
	}
	if len(result.Records) != 5 {
		t.Errorf("expected 5 records, got %d", len(result.Records))
	}

	// Four holes enter from the top face, one from the bottom.
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 face groups, got %d", len(result.Groups))
	}
	top := result.Groups[0]
	if top.Normal != [3]float64{0, 0, 1} {
		t.Errorf("expected the top face first, got normal %v", top.Normal)
	}
	if len(top.Processes) != 2 {
		t.Fatalf("expected counterbore and tapped processes, got %d", len(top.Processes))
	}
	for _, p := range top.Processes {
		if len(p.Locations) != 2 {
			t.Errorf("process %s: expected 2 holes, got %d", p.Type, len(p.Locations))
		}
		if len(p.Cutters) != 0 {
			t.Errorf("process %s: cutters listed without --tools", p.Type)
		}
	}
	if !strings.HasSuffix(top.Processes[1].Type, "_THREAD") {
		t.Errorf("expected a tapped process, got %s", top.Processes[1].Type)
	}
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, "thread") {
			t.Errorf("unexpected thread warning: %s", w.Message)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if result.Holes != 0 {
		t.Errorf("expected 0 holes for empty source, got %d", result.Holes)
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("(plate :length 10")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if result.Holes != 0 {
		t.Errorf("expected 0 holes on error, got %d", result.Holes)
	}
}

// TestE2ESingleHole ensures a minimal source yields one hole record.
func TestE2ESingleHole(t *testing.T) {
	app := newTestApp(t)
	source := `(plate :length 60 :width 60 :thickness 20) (hole :x 30 :y 30 :radius 5 :through true)`
	result := app.Evaluate(source)

	requireNoErrors(t, result)
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if got := result.Records[0]["TYPE"]; got != "HOLE_ROUND_TAPERED" {
		t.Errorf("expected HOLE_ROUND_TAPERED, got %v", got)
	}
}

func TestE2ETools(t *testing.T) {
	app := newTestApp(t)
	app.cfg.Tools = true
	result := app.Evaluate(`(plate :length 60 :width 60 :thickness 20) (hole :x 30 :y 30 :radius 5 :depth 12)`)

	requireNoErrors(t, result)
	p := result.Groups[0].Processes[0]
	if len(p.Cutters) == 0 {
		t.Fatal("expected cutters with tools enabled")
	}
	if !strings.HasPrefix(p.Cutters[0], "SPOT_DRILLING") {
		t.Errorf("expected a spot drill first, got %q", p.Cutters[0])
	}
	if p.Travel <= 0 {
		t.Errorf("expected travel from the origin, got %v", p.Travel)
	}
}

func TestE2ENXConvention(t *testing.T) {
	app := newTestApp(t)
	app.cfg.Convention = "nx"
	result := app.Evaluate(`(plate :length 60 :width 60 :thickness 20) (hole :x 30 :y 30 :radius 5 :through true)`)

	requireNoErrors(t, result)
	// A plain through hole is reached from both faces.
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
}

func TestE2EDirectionAndWrite(t *testing.T) {
	app := newTestApp(t)
	out := filepath.Join(t.TempDir(), "holes.json")
	app.cfg.Output = out
	app.cfg.Write = true
	app.cfg.Direction = "0,0,1"

	result := app.Evaluate(`(plate :length 60 :width 60 :thickness 20) (hole :x 30 :y 30 :radius 5 :through true)`)
	requireNoErrors(t, result)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	dir, _ := records[0]["DIRECTION"].([]any)
	if len(dir) != 3 || dir[2] != 1.0 {
		t.Errorf("expected the hole turned to +Z, got %v", records[0]["DIRECTION"])
	}
}

func TestE2EYAMLModel(t *testing.T) {
	b := memkernel.NewBuilder(memkernel.Plate{Length: 60, Width: 60, Thickness: 20}).Name("dumped")
	if err := b.AddHole(memkernel.Hole{X: 30, Y: 30, Radius: 4, Depth: 10}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.yaml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Build().Save(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	app := newTestApp(t)
	result, m := app.EvaluateFile(path)
	requireNoErrors(t, result)
	if m == nil || m.Name != "dumped" {
		t.Fatalf("expected the dumped model, got %v", m)
	}
	if result.Holes != 1 {
		t.Errorf("expected 1 hole, got %d", result.Holes)
	}
}

func TestE2EMissingFile(t *testing.T) {
	app := newTestApp(t)
	result, m := app.EvaluateFile(filepath.Join(t.TempDir(), "nope.lisp"))
	if m != nil || len(result.Errors) == 0 {
		t.Fatal("expected an error for a missing file")
	}
}

func TestE2EPreview(t *testing.T) {
	app := newTestApp(t)
	_, m := app.EvaluateFile("examples/bracket.lisp")
	if m == nil {
		t.Fatal("expected a model")
	}
	out := filepath.Join(t.TempDir(), "preview.json")
	if err := app.WritePreview(m, out); err != nil {
		t.Fatalf("WritePreview: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var preview struct {
		Part  kernel.Mesh   `json:"part"`
		Holes []kernel.Mesh `json:"holes"`
	}
	if err := json.Unmarshal(data, &preview); err != nil {
		t.Fatalf("bad mesh JSON: %v", err)
	}
	if preview.Part.IsEmpty() || preview.Part.Name != "bracket" {
		t.Errorf("expected a named non-empty mesh, got %d vertices named %q", preview.Part.VertexCount(), preview.Part.Name)
	}
	if len(preview.Holes) != 5 {
		t.Errorf("expected 5 hole meshes, got %d", len(preview.Holes))
	}
}

func TestRootCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holes.json")
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"examples/bracket.lisp", "--write", "--output", out, "--tools", "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var result EvalResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("stdout is not a result: %v", err)
	}
	if result.Holes != 5 || result.Convention != "hypermill" {
		t.Errorf("unexpected result: holes=%d convention=%q", result.Holes, result.Convention)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected %s to be written: %v", out, err)
	}
}

func TestRootCommandBadConvention(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"examples/bracket.lisp", "--convention", "mastercam"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown convention")
	}
}
