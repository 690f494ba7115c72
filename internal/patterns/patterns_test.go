package patterns

import (
	"errors"
	"testing"

	"rill/internal/ast"
	"rill/internal/generics"
	"rill/internal/source"
	"rill/internal/types"
)

type fix struct {
	b    *Builder
	tbl  *types.Table
	eng  *generics.Engine
	strs *source.Interner
	unit *ast.Unit
}

func newFix() *fix {
	tbl := types.NewTable()
	strs := source.NewInterner()
	eng := generics.NewEngine(tbl, strs)
	return &fix{
		b:    &Builder{Types: tbl, Generics: eng, Strings: strs},
		tbl:  tbl,
		eng:  eng,
		strs: strs,
		unit: ast.NewUnit("test"),
	}
}

// signalEnum registers `enum Signal = On | Off | Zilch`.
func (f *fix) signalEnum() types.TypeID {
	id := f.tbl.RegisterEnum(f.strs.Intern("Signal"), source.Span{})
	f.tbl.SetEnumVariants(id, []types.EnumVariant{
		{Name: f.strs.Intern("On")},
		{Name: f.strs.Intern("Off")},
		{Name: f.strs.Intern("Zilch")},
	})
	return id
}

func (f *fix) variantPat(name string) ast.PatternID {
	return f.unit.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: f.strs.Intern(name)})
}

func (f *fix) build(t *testing.T, pid ast.PatternID, scrutinee types.TypeID) *Pattern {
	t.Helper()
	p, err := f.b.Build(f.unit, pid, scrutinee)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return p
}

func TestEnumMissingVariantCited(t *testing.T) {
	f := newFix()
	sig := f.signalEnum()
	arms := []*Pattern{
		f.build(t, f.variantPat("On"), sig),
		f.build(t, f.variantPat("Off"), sig),
	}
	err := f.b.CheckExhaustive(sig, arms, source.Span{})
	var ne *NonExhaustiveError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NonExhaustiveError, got %v", err)
	}
	if len(ne.Missing) != 1 || ne.Missing[0] != "Zilch" {
		t.Fatalf("expected Zilch cited, got %v", ne.Missing)
	}
}

func TestWildcardArmCompletesEnum(t *testing.T) {
	f := newFix()
	sig := f.signalEnum()
	wild := f.unit.AddPattern(ast.Pattern{Kind: ast.PatWildcard})
	arms := []*Pattern{
		f.build(t, f.variantPat("On"), sig),
		f.build(t, wild, sig),
	}
	if err := f.b.CheckExhaustive(sig, arms, source.Span{}); err != nil {
		t.Fatalf("wildcard arm must make the match exhaustive: %v", err)
	}
}

func TestBoolNeedsBothLiterals(t *testing.T) {
	f := newFix()
	boolID := f.tbl.Builtins().Bool
	trueArm := f.unit.AddPattern(ast.Pattern{Kind: ast.PatLiteral, Lit: ast.Lit{Kind: ast.LitBool, Bool: true}})
	arms := []*Pattern{f.build(t, trueArm, boolID)}
	err := f.b.CheckExhaustive(boolID, arms, source.Span{})
	var ne *NonExhaustiveError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NonExhaustiveError, got %v", err)
	}
	if len(ne.Missing) != 1 || ne.Missing[0] != "false" {
		t.Fatalf("expected false cited, got %v", ne.Missing)
	}
	falseArm := f.unit.AddPattern(ast.Pattern{Kind: ast.PatLiteral, Lit: ast.Lit{Kind: ast.LitBool, Bool: false}})
	arms = append(arms, f.build(t, falseArm, boolID))
	if err := f.b.CheckExhaustive(boolID, arms, source.Span{}); err != nil {
		t.Fatalf("true+false must be exhaustive: %v", err)
	}
}

func TestIntLiteralsNeedIrrefutableArm(t *testing.T) {
	f := newFix()
	intID := f.tbl.Builtins().Int
	lit := f.unit.AddPattern(ast.Pattern{Kind: ast.PatLiteral, Lit: ast.Lit{Kind: ast.LitInt, Int: 42}})
	arms := []*Pattern{f.build(t, lit, intID)}
	if err := f.b.CheckExhaustive(intID, arms, source.Span{}); err == nil {
		t.Fatalf("int literals alone are never exhaustive")
	}
	bind := f.unit.AddPattern(ast.Pattern{Kind: ast.PatBinding, Name: f.strs.Intern("other")})
	arms = append(arms, f.build(t, bind, intID))
	if err := f.b.CheckExhaustive(intID, arms, source.Span{}); err != nil {
		t.Fatalf("binding arm must cover the rest: %v", err)
	}
}

func TestSingleRecordArmExhaustsStruct(t *testing.T) {
	f := newFix()
	point := f.tbl.InternStructural([]types.StructField{
		{Name: f.strs.Intern("x"), Type: f.tbl.Builtins().Int},
		{Name: f.strs.Intern("y"), Type: f.tbl.Builtins().Int},
	})
	sub := f.unit.AddPattern(ast.Pattern{Kind: ast.PatBinding, Name: f.strs.Intern("px")})
	rec := f.unit.AddPattern(ast.Pattern{Kind: ast.PatRecord, Fields: []ast.PatternField{
		{Name: f.strs.Intern("x"), Pattern: sub},
	}})
	arm := f.build(t, rec, point)
	if err := f.b.CheckExhaustive(point, []*Pattern{arm}, source.Span{}); err != nil {
		t.Fatalf("one record arm exhausts a struct: %v", err)
	}
	// Partial record patterns still carry field indexes for codegen.
	if arm.Fields[0].Index != 0 {
		t.Fatalf("field index lost")
	}
	binds := arm.Bindings()
	if len(binds) != 1 || binds[0].Type != f.tbl.Builtins().Int {
		t.Fatalf("expected one int binding, got %+v", binds)
	}
}

func TestPartialRecordAgainstCombinedStruct(t *testing.T) {
	f := newFix()
	a := f.tbl.InternStructural([]types.StructField{{Name: f.strs.Intern("text"), Type: f.tbl.Builtins().String}})
	b := f.tbl.InternStructural([]types.StructField{{Name: f.strs.Intern("x"), Type: f.tbl.Builtins().Int}})
	combined, err := f.tbl.Combine(a, b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	sub := f.unit.AddPattern(ast.Pattern{Kind: ast.PatWildcard})
	rec := f.unit.AddPattern(ast.Pattern{Kind: ast.PatRecord, Fields: []ast.PatternField{
		{Name: f.strs.Intern("x"), Pattern: sub},
	}})
	if _, err := f.b.Build(f.unit, rec, combined); err != nil {
		t.Fatalf("subset record pattern must match the combined struct: %v", err)
	}
}

func TestOptionSugarVariants(t *testing.T) {
	f := newFix()
	opt := f.eng.MakeOption(f.tbl.Builtins().Int)

	payload := f.unit.AddPattern(ast.Pattern{Kind: ast.PatBinding, Name: f.strs.Intern("v")})
	some := f.unit.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: f.strs.Intern("Some"), Payload: payload})
	none := f.unit.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: f.strs.Intern("None")})

	someArm := f.build(t, some, opt)
	noneArm := f.build(t, none, opt)
	if someArm.Payload == nil || someArm.Payload.Type != f.tbl.Builtins().Int {
		t.Fatalf("Some payload must bind the option's payload type")
	}
	if err := f.b.CheckExhaustive(opt, []*Pattern{someArm, noneArm}, source.Span{}); err != nil {
		t.Fatalf("Some+None must exhaust an option: %v", err)
	}
	err := f.b.CheckExhaustive(opt, []*Pattern{someArm}, source.Span{})
	var ne *NonExhaustiveError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NonExhaustiveError, got %v", err)
	}
	if len(ne.Missing) != 1 || ne.Missing[0] != "None" {
		t.Fatalf("expected None cited, got %v", ne.Missing)
	}
}

func TestInvalidPatternShapes(t *testing.T) {
	f := newFix()
	sig := f.signalEnum()

	rec := f.unit.AddPattern(ast.Pattern{Kind: ast.PatRecord})
	if _, err := f.b.Build(f.unit, rec, sig); err == nil {
		t.Fatalf("record pattern against an enum must fail")
	}

	ghost := f.variantPat("Maybe")
	if _, err := f.b.Build(f.unit, ghost, sig); err == nil {
		t.Fatalf("unknown variant must fail")
	}

	lit := f.unit.AddPattern(ast.Pattern{Kind: ast.PatLiteral, Lit: ast.Lit{Kind: ast.LitString, Str: "x"}})
	var invalid *InvalidPatternError
	if _, err := f.b.Build(f.unit, lit, f.tbl.Builtins().Int); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPatternError, got %v", err)
	}
}

func TestVariantPayloadArityChecked(t *testing.T) {
	f := newFix()
	sig := f.signalEnum()
	payload := f.unit.AddPattern(ast.Pattern{Kind: ast.PatWildcard})
	bad := f.unit.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: f.strs.Intern("On"), Payload: payload})
	if _, err := f.b.Build(f.unit, bad, sig); err == nil {
		t.Fatalf("payload pattern on a bare variant must fail")
	}

	opt := f.eng.MakeOption(f.tbl.Builtins().Int)
	bare := f.unit.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: f.strs.Intern("Some")})
	if _, err := f.b.Build(f.unit, bare, opt); err == nil {
		t.Fatalf("missing payload pattern on Some must fail")
	}
}
