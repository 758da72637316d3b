package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/holefind/pkg/kernel/memkernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms model source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: back-counters -> back_counters
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpStage wraps a counter stage for `hole`.
type sexpStage struct {
	stage memkernel.Stage
}

func (s *sexpStage) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(stage :radius %g :depth %g)", s.stage.Radius, s.stage.Depth)
}
func (s *sexpStage) Type() *zygo.RegisteredType { return nil }

// sexpGroove wraps a groove for `hole`.
type sexpGroove struct {
	groove memkernel.Groove
}

func (g *sexpGroove) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(groove :offset %g :depth %g :radius %g)", g.groove.Offset, g.groove.Depth, g.groove.Radius)
}
func (g *sexpGroove) Type() *zygo.RegisteredType { return nil }

// sexpThread wraps a cosmetic thread for `hole`.
type sexpThread struct {
	thread memkernel.Thread
}

func (t *sexpThread) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(thread :radius %g :length %g)", t.thread.Radius, t.thread.Length)
}
func (t *sexpThread) Type() *zygo.RegisteredType { return nil }

// sexpFeature is what `hole` and `boss` return: the feature kind and its
// number in the model.
type sexpFeature struct {
	kind string
	n    int
}

func (f *sexpFeature) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s #%d)", f.kind, f.n)
}
func (f *sexpFeature) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number sets *dst from keyword key when present.
func (pa kwArgs) number(fn, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// flag sets *dst from keyword key when present. A bare trailing keyword
// counts as true.
func (pa kwArgs) flag(fn, key string, dst *bool) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	b, err := toBool(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = b
	return nil
}

// numbers applies number to every key, stopping at the first error.
func (pa kwArgs) numbers(fn string, dst map[string]*float64) error {
	for key, p := range dst {
		if err := pa.number(fn, key, p); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean; nil (a bare flag) reads as true.
func toBool(s zygo.Sexp) (bool, error) {
	if s == zygo.SexpNull {
		return true, nil
	}
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_top) and plain strings ("top").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toSide converts :top or :bottom.
func toSide(s zygo.Sexp) (memkernel.Side, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected side keyword (:top, :bottom): %w", err)
	}
	switch name {
	case "top":
		return memkernel.Top, nil
	case "bottom":
		return memkernel.Bottom, nil
	}
	return 0, fmt.Errorf("invalid side %q, expected top or bottom", name)
}

// toFloor converts :flat or :drill-point.
func toFloor(s zygo.Sexp) (memkernel.Floor, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected floor keyword (:flat, :drill-point): %w", err)
	}
	switch name {
	case "flat":
		return memkernel.FlatFloor, nil
	case "drill-point", "drill_point":
		return memkernel.DrillPoint, nil
	}
	return 0, fmt.Errorf("invalid floor %q, expected flat or drill-point", name)
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// listOf converts a list keyword into typed values.
func listOf[T any](pa kwArgs, fn, key string, conv func(zygo.Sexp) (T, bool)) ([]T, error) {
	v, ok := pa.kw[key]
	if !ok {
		return nil, nil
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		t, ok := conv(item)
		if !ok {
			return nil, fmt.Errorf("%s: %s entry %d: unexpected %T (%s)", fn, key, i, item, item.SexpString(nil))
		}
		out = append(out, t)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Model state
// ---------------------------------------------------------------------------

// modelState collects what the builtins build during one evaluation.
type modelState struct {
	b      *memkernel.Builder
	holes  int
	bosses int
}

// model returns the built model, or an empty one when no plate was defined.
func (st *modelState) model() *memkernel.Model {
	if st.b == nil {
		return &memkernel.Model{}
	}
	return st.b.Build()
}

func (st *modelState) builder(fn string) (*memkernel.Builder, error) {
	if st.b == nil {
		return nil, fmt.Errorf("%s: no plate defined; call (plate ...) first", fn)
	}
	return st.b, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the model DSL builtins into a zygomys
// environment. The builtins operate on st, populating it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *modelState) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}

		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (plate :length 100 :width 60 :thickness 30 :name "bracket" :split true)
	// -----------------------------------------------------------------------
	env.AddFunction("plate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if st.b != nil {
			return zygo.SexpNull, fmt.Errorf("plate: a model has exactly one plate")
		}
		pa := parseArgs(args)
		var p memkernel.Plate
		if err := pa.numbers("plate", map[string]*float64{
			"length":    &p.Length,
			"width":     &p.Width,
			"thickness": &p.Thickness,
		}); err != nil {
			return zygo.SexpNull, err
		}
		if p.Length <= 0 || p.Width <= 0 || p.Thickness <= 0 {
			return zygo.SexpNull, fmt.Errorf("plate: length, width and thickness must be positive")
		}
		var split bool
		if err := pa.flag("plate", "split", &split); err != nil {
			return zygo.SexpNull, err
		}

		st.b = memkernel.NewBuilder(p).SplitFaces(split)
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plate: name: %w", err)
			}
			st.b.Name(s)
		}

		return &sexpFeature{kind: "plate"}, nil
	})

	// -----------------------------------------------------------------------
	// (stage :radius 8 :depth 6 :chamfer 1 :sink-angle 90 :floor-angle 118)
	// -----------------------------------------------------------------------
	env.AddFunction("stage", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var s memkernel.Stage
		if err := pa.numbers("stage", map[string]*float64{
			"radius":      &s.Radius,
			"depth":       &s.Depth,
			"chamfer":     &s.Chamfer,
			"fillet":      &s.Fillet,
			"sink-angle":  &s.SinkAngle,
			"floor-angle": &s.FloorAngle,
		}); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpStage{stage: s}, nil
	})

	// -----------------------------------------------------------------------
	// (groove :offset 4 :depth 2 :radius 6)
	// -----------------------------------------------------------------------
	env.AddFunction("groove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var g memkernel.Groove
		if err := pa.numbers("groove", map[string]*float64{
			"offset": &g.Offset,
			"depth":  &g.Depth,
			"radius": &g.Radius,
		}); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpGroove{groove: g}, nil
	})

	// -----------------------------------------------------------------------
	// (thread :radius 5 :length 15 :pitch 1.5 :start 0 :offset (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("thread", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var th memkernel.Thread
		if err := pa.numbers("thread", map[string]*float64{
			"radius": &th.Radius,
			"length": &th.Length,
			"pitch":  &th.Pitch,
			"start":  &th.Start,
		}); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["offset"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("thread: offset: %w", err)
			}
			th.Offset = vec
		}
		return &sexpThread{thread: th}, nil
	})

	// -----------------------------------------------------------------------
	// (hole :at (vec3 20 30 0) :side :top :radius 4 :depth 10 :through false
	//       :counters (list (stage ...)) :back-counters (list ...)
	//       :floor :drill-point :tip-angle 118 :taper 0
	//       :chamfer 0.5 :fillet 0 :exit-chamfer 0.5
	//       :grooves (list (groove ...)) :threads (list (thread ...)))
	// -----------------------------------------------------------------------
	env.AddFunction("hole", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		b, err := st.builder("hole")
		if err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		var h memkernel.Hole

		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hole: at: %w", err)
			}
			h.X, h.Y = vec.X, vec.Y
		}
		if err := pa.numbers("hole", map[string]*float64{
			"x":            &h.X,
			"y":            &h.Y,
			"radius":       &h.Radius,
			"depth":        &h.Depth,
			"taper":        &h.Taper,
			"chamfer":      &h.Chamfer,
			"fillet":       &h.Fillet,
			"exit-chamfer": &h.ExitChamfer,
			"tip-angle":    &h.TipAngle,
		}); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.flag("hole", "through", &h.Through); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["side"]; ok {
			if h.Side, err = toSide(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("hole: side: %w", err)
			}
		}
		if v, ok := pa.kw["floor"]; ok {
			if h.Floor, err = toFloor(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("hole: floor: %w", err)
			}
		}

		stage := func(s zygo.Sexp) (memkernel.Stage, bool) {
			v, ok := s.(*sexpStage)
			if !ok {
				return memkernel.Stage{}, false
			}
			return v.stage, true
		}
		if h.Counters, err = listOf(pa, "hole", "counters", stage); err != nil {
			return zygo.SexpNull, err
		}
		if h.BackCounters, err = listOf(pa, "hole", "back-counters", stage); err != nil {
			return zygo.SexpNull, err
		}
		if h.Grooves, err = listOf(pa, "hole", "grooves", func(s zygo.Sexp) (memkernel.Groove, bool) {
			v, ok := s.(*sexpGroove)
			if !ok {
				return memkernel.Groove{}, false
			}
			return v.groove, true
		}); err != nil {
			return zygo.SexpNull, err
		}
		if h.Threads, err = listOf(pa, "hole", "threads", func(s zygo.Sexp) (memkernel.Thread, bool) {
			v, ok := s.(*sexpThread)
			if !ok {
				return memkernel.Thread{}, false
			}
			return v.thread, true
		}); err != nil {
			return zygo.SexpNull, err
		}

		if err := b.AddHole(h); err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		st.holes++
		return &sexpFeature{kind: "hole", n: st.holes}, nil
	})

	// -----------------------------------------------------------------------
	// (boss :at (vec3 80 30 0) :radius 5 :height 10)
	// -----------------------------------------------------------------------
	env.AddFunction("boss", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		b, err := st.builder("boss")
		if err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		var s memkernel.Boss
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("boss: at: %w", err)
			}
			s.X, s.Y = vec.X, vec.Y
		}
		if err := pa.numbers("boss", map[string]*float64{
			"x":      &s.X,
			"y":      &s.Y,
			"radius": &s.Radius,
			"height": &s.Height,
		}); err != nil {
			return zygo.SexpNull, err
		}
		if err := b.AddBoss(s); err != nil {
			return zygo.SexpNull, fmt.Errorf("boss: %w", err)
		}
		st.bosses++
		return &sexpFeature{kind: "boss", n: st.bosses}, nil
	})
}
