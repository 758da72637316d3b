package engine

import (
	"strings"
	"testing"

	"github.com/chazu/holefind/pkg/aag"
	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(plate :length 100)`,
			expect: `(plate "__kw_length" 100)`,
		},
		{
			name:   "multiple keywords",
			input:  `(stage :radius 8 :depth 6)`,
			expect: `(stage "__kw_radius" 8 "__kw_depth" 6)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def back-stage s)`,
			expect: `(def back_stage s)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:drill-point`,
			expect: `"__kw_drill-point"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evaluate(t *testing.T, source string) *memkernel.Model {
	t.Helper()
	m, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if m == nil {
		t.Fatal("expected non-nil model")
	}
	return m
}

func evalError(t *testing.T, source string) EvalError {
	t.Helper()
	m, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	return evalErrs[0]
}

// ---------------------------------------------------------------------------
// Model tests
// ---------------------------------------------------------------------------

func TestPlateOnly(t *testing.T) {
	m := evaluate(t, `(plate :length 100 :width 60 :thickness 30 :name "block")`)
	if len(m.Faces()) != 6 {
		t.Errorf("expected 6 stock faces, got %d", len(m.Faces()))
	}
	if m.Name != "block" {
		t.Errorf("expected name block, got %q", m.Name)
	}
	if m.BoundingBox().Max.Z != 30 {
		t.Errorf("expected thickness 30, got %f", m.BoundingBox().Max.Z)
	}
}

func TestModelMatchesBuilder(t *testing.T) {
	source := `
; a counterbored through hole and a tapped blind hole
(plate :length 100 :width 60 :thickness 30 :name "bracket" :split true)
(def cb (stage :radius 8 :depth 6 :chamfer 1))
(hole :at (vec3 20 30 0) :radius 4 :through true :counters (list cb) :exit-chamfer 0.5)
(hole :x 60 :y 30 :radius 4.25 :depth 20 :floor :drill-point
      :threads (list (thread :radius 5 :length 15 :pitch 1.5)))
(hole :x 80 :y 30 :side :bottom :radius 3 :depth 8
      :grooves (list (groove :offset 2 :depth 1.5 :radius 4)))
`
	got := evaluate(t, source)

	b := memkernel.NewBuilder(memkernel.Plate{Length: 100, Width: 60, Thickness: 30}).
		Name("bracket").SplitFaces(true)
	for _, h := range []memkernel.Hole{
		{X: 20, Y: 30, Radius: 4, Through: true, ExitChamfer: 0.5,
			Counters: []memkernel.Stage{{Radius: 8, Depth: 6, Chamfer: 1}}},
		{X: 60, Y: 30, Radius: 4.25, Depth: 20, Floor: memkernel.DrillPoint,
			Threads: []memkernel.Thread{{Radius: 5, Length: 15, Pitch: 1.5}}},
		{X: 80, Y: 30, Side: memkernel.Bottom, Radius: 3, Depth: 8,
			Grooves: []memkernel.Groove{{Offset: 2, Depth: 1.5, Radius: 4}}},
	} {
		if err := b.AddHole(h); err != nil {
			t.Fatalf("builder: %v", err)
		}
	}
	want := b.Build()

	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(memkernel.Model{})); diff != "" {
		t.Errorf("model mismatch (-builder +dsl):\n%s", diff)
	}

	x := aag.Extract(aag.Build(got, nil), classify.DefaultOptions)
	if n := len(x.Holes) + len(x.Complex) + len(x.Errors); n != 3 {
		t.Fatalf("expected 3 hole groups, got %d", n)
	}
	if len(x.Defined) == 0 {
		t.Fatal("expected the counterbore to classify")
	}
	if x.Defined[0].Type != hole.CounterboreHole {
		t.Errorf("expected counterbore, got %s", x.Defined[0].Type)
	}
	if len(got.ThreadCircles()) == 0 {
		t.Error("expected thread indicator circles")
	}
}

func TestBoss(t *testing.T) {
	m := evaluate(t, `
(plate :length 100 :width 60 :thickness 30)
(boss :at (vec3 80 30 0) :radius 5 :height 10)
`)
	if len(m.Faces()) <= 6 {
		t.Errorf("expected boss faces beyond the stock, got %d faces", len(m.Faces()))
	}
	x := aag.Extract(aag.Build(m, nil), classify.DefaultOptions)
	if len(x.Holes) != 0 {
		t.Errorf("a boss is not a hole, got %d holes", len(x.Holes))
	}
}

func TestVec3(t *testing.T) {
	m := evaluate(t, `(vec3 1 2.5 -3)`)
	if len(m.Faces()) != 0 {
		t.Errorf("expected empty model, got %d faces", len(m.Faces()))
	}
	e := evalError(t, `(vec3 1 2)`)
	if !strings.Contains(e.Message, "exactly 3") {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "hole before plate",
			source: `(hole :x 10 :y 10 :radius 2 :through true)`,
			want:   "no plate defined",
		},
		{
			name:   "second plate",
			source: "(plate :length 10 :width 10 :thickness 5)\n(plate :length 10 :width 10 :thickness 5)",
			want:   "exactly one plate",
		},
		{
			name:   "bad plate",
			source: `(plate :length 10 :width 10)`,
			want:   "must be positive",
		},
		{
			name:   "bad side",
			source: "(plate :length 10 :width 10 :thickness 5)\n(hole :x 5 :y 5 :radius 1 :through true :side :left)",
			want:   "invalid side",
		},
		{
			name:   "bad floor",
			source: "(plate :length 10 :width 10 :thickness 5)\n(hole :x 5 :y 5 :radius 1 :depth 2 :floor :round)",
			want:   "invalid floor",
		},
		{
			name:   "wrong list entry",
			source: "(plate :length 10 :width 10 :thickness 5)\n(hole :x 5 :y 5 :radius 1 :through true :counters (list 3))",
			want:   "counters entry 0",
		},
		{
			name:   "hole outside plate",
			source: "(plate :length 10 :width 10 :thickness 5)\n(hole :x 50 :y 5 :radius 1 :through true)",
			want:   "hole",
		},
		{
			name:   "non-numeric radius",
			source: `(stage :radius "big")`,
			want:   "expected number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := evalError(t, tt.source)
			if !strings.Contains(e.Message, tt.want) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.want)
			}
		})
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	m := evaluate(t, `
(def r (/ 8.5 2))
(plate :length (* 2 50) :width 60 :thickness 30)
(hole :x 50 :y 30 :radius r :through true)
`)
	x := aag.Extract(aag.Build(m, nil), classify.DefaultOptions)
	if len(x.Defined) != 1 {
		t.Fatalf("expected 1 hole, got %d", len(x.Defined))
	}
	if r := x.Defined[0].HoleMessage.Radius; r != 4.25 {
		t.Errorf("expected radius 4.25, got %f", r)
	}
}
