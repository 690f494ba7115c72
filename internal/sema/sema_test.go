package sema

import (
	"testing"

	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/hir"
	"rill/internal/layout"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

func newTestContext() (*Context, *diag.Bag) {
	bag := diag.NewBag(64)
	return NewContext(diag.BagReporter{Bag: bag}), bag
}

// builder assembles test units without a frontend.
type builder struct {
	u *ast.Unit
	s *source.Interner
}

func newBuilder(ctx *Context, name string) *builder {
	return &builder{u: ast.NewUnit(name), s: ctx.Strings}
}

func (b *builder) id(s string) source.StringID { return b.s.Intern(s) }

func (b *builder) path(name string) ast.Path {
	return ast.Path{Segments: []source.StringID{b.id(name)}}
}

func (b *builder) tNamed(name string, args ...ast.TypeExprID) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: b.path(name), Args: args})
}

func (b *builder) tOptional(elem ast.TypeExprID) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprOptional, Elem: elem})
}

func (b *builder) tPointer(elem ast.TypeExprID) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprPointer, Elem: elem})
}

func (b *builder) tArray(elem ast.TypeExprID) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprArray, Elem: elem})
}

func (b *builder) tCombine(x, y ast.TypeExprID) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprCombine, A: x, B: y})
}

func (b *builder) tRemove(x ast.TypeExprID, names ...string) ast.TypeExprID {
	ids := make([]source.StringID, len(names))
	for i, n := range names {
		ids[i] = b.id(n)
	}
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprRemove, A: x, Names: ids})
}

func (b *builder) tRecord(fields ...ast.FieldDef) ast.TypeExprID {
	return b.u.AddTypeExpr(ast.TypeExpr{Kind: ast.TypeExprRecord, Fields: fields})
}

func (b *builder) field(name string, t ast.TypeExprID) ast.FieldDef {
	return ast.FieldDef{Name: b.id(name), Type: t}
}

func (b *builder) structDecl(name string, fields ...ast.FieldDef) {
	b.u.AddRoot(ast.Item{Kind: ast.ItemStruct, Name: b.id(name), Fields: fields})
}

func (b *builder) enumDecl(name string, variants ...ast.VariantDef) {
	b.u.AddRoot(ast.Item{Kind: ast.ItemEnum, Name: b.id(name), Variants: variants})
}

func (b *builder) variantDef(name string, payload ast.TypeExprID) ast.VariantDef {
	return ast.VariantDef{Name: b.id(name), Payload: payload}
}

func (b *builder) aliasDecl(name string, target ast.TypeExprID) {
	b.u.AddRoot(ast.Item{Kind: ast.ItemAlias, Name: b.id(name), Target: target})
}

func (b *builder) param(name string, t ast.TypeExprID) ast.ParamDef {
	return ast.ParamDef{Name: b.id(name), Type: t}
}

func (b *builder) fn(name string, params []ast.ParamDef, result ast.TypeExprID, body ast.ExprID) {
	b.u.AddRoot(ast.Item{Kind: ast.ItemFunc, Name: b.id(name), Params: params, Result: result, Body: body})
}

func (b *builder) genericFn(name string, tparams []string, params []ast.ParamDef, result ast.TypeExprID, body ast.ExprID) {
	tps := make([]ast.TypeParam, len(tparams))
	for i, tp := range tparams {
		tps[i] = ast.TypeParam{Name: b.id(tp)}
	}
	b.u.AddRoot(ast.Item{Kind: ast.ItemFunc, Name: b.id(name), TypeParams: tps, Params: params, Result: result, Body: body})
}

func (b *builder) intLit(v int64) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprLit, Lit: ast.Lit{Kind: ast.LitInt, Int: v}})
}

func (b *builder) boolLit(v bool) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprLit, Lit: ast.Lit{Kind: ast.LitBool, Bool: v}})
}

func (b *builder) whileLoop(cond, body ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprWhile, X: cond, Y: body})
}

func (b *builder) arrayLit(elems ...ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprArrayLit, List: elems})
}

func (b *builder) index(base, idx ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprIndex, X: base, Y: idx})
}

func (b *builder) nameRef(name string) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprName, Path: b.path(name)})
}

func (b *builder) let(name string, t ast.TypeExprID, value ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprLet, Name: b.id(name), Type: t, X: value})
}

func (b *builder) block(stmts ...ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprBlock, List: stmts})
}

func (b *builder) structLit(t ast.TypeExprID, inits ...ast.FieldInit) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprStructLit, Type: t, Inits: inits})
}

func (b *builder) initField(name string, v ast.ExprID) ast.FieldInit {
	return ast.FieldInit{Name: b.id(name), Value: v}
}

func (b *builder) call(name string, args ...ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprCall, X: b.nameRef(name), List: args})
}

func (b *builder) methodCall(recv ast.ExprID, name string, args ...ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprMethodCall, X: recv, Name: b.id(name), List: args})
}

func (b *builder) variantExpr(t ast.TypeExprID, name string, payload ...ast.ExprID) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprVariant, Type: t, Name: b.id(name), List: payload})
}

func (b *builder) match(scrut ast.ExprID, arms ...ast.MatchArm) ast.ExprID {
	return b.u.AddExpr(ast.Expr{Kind: ast.ExprMatch, X: scrut, Arms: arms})
}

func (b *builder) arm(pat ast.PatternID, body ast.ExprID) ast.MatchArm {
	return ast.MatchArm{Pattern: pat, Body: body}
}

func (b *builder) patVariant(name string, payload ast.PatternID) ast.PatternID {
	return b.u.AddPattern(ast.Pattern{Kind: ast.PatVariant, Name: b.id(name), Payload: payload})
}

func (b *builder) patBind(name string) ast.PatternID {
	return b.u.AddPattern(ast.Pattern{Kind: ast.PatBinding, Name: b.id(name)})
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func requireClean(t *testing.T, bag *diag.Bag) {
	t.Helper()
	if bag.HasErrors() {
		for _, d := range bag.Items() {
			t.Logf("%s: %s", d.Code, d.Message)
		}
		t.Fatalf("unexpected diagnostics")
	}
}

func typeOf(t *testing.T, ctx *Context, name string) types.TypeID {
	t.Helper()
	sym, ok := ctx.Symbols.Lookup(ctx.Strings.Intern(name), symbols.NSType, ctx.Symbols.Root())
	if !ok {
		t.Fatalf("type %s not declared", name)
	}
	return ctx.Symbols.Symbol(sym).Type
}

func TestNominalStructsAreDistinct(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("A", b.field("x", b.tNamed("i64")))
	b.structDecl("B", b.field("x", b.tNamed("i64")))
	body := b.block(b.let("p", b.tNamed("A"), b.structLit(b.tNamed("B"), b.initField("x", b.intLit(1)))))
	b.fn("main", nil, ast.NoTypeExprID, body)

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaTypeMismatch) {
		t.Fatalf("same-shaped nominal structs must not be interchangeable")
	}
}

func TestImplRegisteredAfterUse(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("Dog")
	b.u.AddRoot(ast.Item{
		Kind: ast.ItemAbility,
		Name: b.id("Speak"),
		Methods: []ast.MethodSig{
			{Name: b.id("volume"), Result: b.tNamed("i64")},
		},
	})
	// Call site precedes the impl in declaration order.
	talkBody := b.block(b.methodCall(b.nameRef("d"), "volume"))
	b.fn("talk", []ast.ParamDef{b.param("d", b.tNamed("Dog"))}, b.tNamed("i64"), talkBody)

	implFn := b.u.AddItem(ast.Item{
		Kind:   ast.ItemFunc,
		Name:   b.id("volume"),
		Params: []ast.ParamDef{b.param("self", b.tNamed("Dog"))},
		Result: b.tNamed("i64"),
		Body:   b.intLit(3),
	})
	b.u.AddRoot(ast.Item{
		Kind:    ast.ItemImpl,
		Ability: b.path("Speak"),
		Target:  b.tNamed("Dog"),
		Funcs:   []ast.ItemID{implFn},
	})

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestDuplicateImplDiagnosed(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("Dog")
	b.u.AddRoot(ast.Item{
		Kind:    ast.ItemAbility,
		Name:    b.id("Speak"),
		Methods: []ast.MethodSig{{Name: b.id("volume"), Result: b.tNamed("i64")}},
	})
	for range 2 {
		implFn := b.u.AddItem(ast.Item{
			Kind:   ast.ItemFunc,
			Name:   b.id("volume"),
			Params: []ast.ParamDef{b.param("self", b.tNamed("Dog"))},
			Result: b.tNamed("i64"),
			Body:   b.intLit(1),
		})
		b.u.AddRoot(ast.Item{
			Kind:    ast.ItemImpl,
			Ability: b.path("Speak"),
			Target:  b.tNamed("Dog"),
			Funcs:   []ast.ItemID{implFn},
		})
	}

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaDuplicateImpl) {
		t.Fatalf("second impl for the same (ability, type) must be rejected")
	}
}

func TestOptionalPromotion(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", nil, b.tOptional(b.tNamed("i64")), b.intLit(42))

	mod := Check(ctx, b.u)
	requireClean(t, bag)

	var body hir.ExprID
	mod.Funcs(func(_ hir.FuncID, fn *hir.Func) bool {
		body = fn.Body
		return false
	})
	node := mod.Expr(body)
	if node.Kind != hir.ExprVariant {
		t.Fatalf("bare value against an optional result must lower to Some, got kind %d", node.Kind)
	}
	if !ctx.Generics.IsOption(node.Type) {
		t.Fatalf("promoted node must be option-typed, got %s", ctx.Types.Label(node.Type, ctx.Strings))
	}
}

func TestNoneNeedsContext(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	body := b.block(b.let("x", ast.NoTypeExprID, b.variantExpr(ast.NoTypeExprID, "None")))
	b.fn("f", nil, ast.NoTypeExprID, body)

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaNoneNeedsContext) {
		t.Fatalf("none without an expected type must be diagnosed")
	}
}

func TestNoneAdoptsExpectedType(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", nil, b.tOptional(b.tNamed("i64")), b.variantExpr(ast.NoTypeExprID, "None"))

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestMatchExhaustiveness(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.enumDecl("Color",
		b.variantDef("Red", ast.NoTypeExprID),
		b.variantDef("Green", ast.NoTypeExprID),
		b.variantDef("Blue", ast.NoTypeExprID),
	)
	body := b.match(b.nameRef("c"),
		b.arm(b.patVariant("Red", ast.NoPatternID), b.intLit(1)),
		b.arm(b.patVariant("Green", ast.NoPatternID), b.intLit(2)),
	)
	b.fn("f", []ast.ParamDef{b.param("c", b.tNamed("Color"))}, b.tNamed("i64"), body)

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaNonExhaustiveMatch) {
		t.Fatalf("uncovered variant must fail exhaustiveness")
	}
}

func TestMatchOnOptionalBindsPayload(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	body := b.match(b.nameRef("o"),
		b.arm(b.patVariant("Some", b.patBind("x")), b.nameRef("x")),
		b.arm(b.patVariant("None", ast.NoPatternID), b.intLit(0)),
	)
	b.fn("f", []ast.ParamDef{b.param("o", b.tOptional(b.tNamed("i64")))}, b.tNamed("i64"), body)

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestGenericFunctionInstantiation(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.genericFn("identity", []string{"T"},
		[]ast.ParamDef{b.param("x", b.tNamed("T"))},
		b.tNamed("T"),
		b.nameRef("x"),
	)
	body := b.block(b.let("v", b.tNamed("i64"), b.call("identity", b.intLit(41))))
	b.fn("main", nil, ast.NoTypeExprID, body)

	mod := Check(ctx, b.u)
	requireClean(t, bag)

	var instances int
	mod.Funcs(func(_ hir.FuncID, fn *hir.Func) bool {
		if fn.Flags.Has(hir.FuncFlagInstance) {
			instances++
			if got := ctx.Types.Label(fn.Result, ctx.Strings); got != "i64" {
				t.Fatalf("instance result = %s, want i64", got)
			}
		}
		return true
	})
	if instances != 1 {
		t.Fatalf("expected exactly one monomorphized instance, got %d", instances)
	}
}

func TestCombineRemoveRoundTripsLayout(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("Point", b.field("x", b.tNamed("i64")), b.field("y", b.tNamed("i64")))
	b.aliasDecl("Point3", b.tCombine(b.tNamed("Point"), b.tRecord(b.field("z", b.tNamed("i64")))))
	b.aliasDecl("Flat", b.tRemove(b.tNamed("Point3"), "z"))

	Check(ctx, b.u)
	requireClean(t, bag)

	eng := layout.New(layout.X86_64LinuxGNU(), ctx.Types)
	point := eng.Of(typeOf(t, ctx, "Point"))
	point3 := eng.Of(ctx.Types.Canonical(typeOf(t, ctx, "Point3")))
	flat := eng.Of(ctx.Types.Canonical(typeOf(t, ctx, "Flat")))

	if point3.Size != 24 {
		t.Fatalf("Point3 size = %d, want 24", point3.Size)
	}
	if flat.Size != point.Size {
		t.Fatalf("removing the combined field must restore the size: %d vs %d", flat.Size, point.Size)
	}
}

func TestCrashHasNeverType(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	msg := b.u.AddExpr(ast.Expr{Kind: ast.ExprLit, Lit: ast.Lit{Kind: ast.LitString, Str: "boom"}})
	crash := b.u.AddExpr(ast.Expr{Kind: ast.ExprCall, X: b.nameRef("crash"), List: []ast.ExprID{msg}})
	// A diverging call satisfies any result type.
	b.fn("f", nil, b.tNamed("i64"), crash)

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestDuplicateTopLevelSymbol(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("Point", b.field("x", b.tNamed("i64")))
	b.structDecl("Point", b.field("y", b.tNamed("i64")))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaDuplicateSymbol) {
		t.Fatalf("redeclared type must be diagnosed")
	}
}

func TestRecursiveValueTypeDiagnosed(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("S", b.field("next", b.tNamed("S")))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaInfiniteType) {
		t.Fatalf("a struct holding itself by value must be diagnosed")
	}
}

func TestMutuallyRecursiveValueTypesDiagnosed(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("A", b.field("b", b.tNamed("B")))
	b.structDecl("B", b.field("a", b.tNamed("A")))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaInfiniteType) {
		t.Fatalf("a by-value cycle across two structs must be diagnosed")
	}
}

func TestIndirectedRecursionAllowed(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.structDecl("Node",
		b.field("next", b.tPointer(b.tNamed("Node"))),
		b.field("kids", b.tArray(b.tNamed("Node"))),
	)

	Check(ctx, b.u)
	requireClean(t, bag)

	// The declaration is finite, so the layout engine must size it.
	eng := layout.New(layout.X86_64LinuxGNU(), ctx.Types)
	node := eng.Of(typeOf(t, ctx, "Node"))
	if node.Size == 0 {
		t.Fatalf("indirected recursive struct must have a concrete size")
	}
}

func TestWhileLoopYieldsUnit(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	body := b.whileLoop(b.nameRef("flag"), b.block(b.let("x", ast.NoTypeExprID, b.intLit(1))))
	b.fn("f", []ast.ParamDef{b.param("flag", b.tNamed("bool"))}, ast.NoTypeExprID, body)

	mod := Check(ctx, b.u)
	requireClean(t, bag)

	var loop hir.ExprID
	mod.Funcs(func(_ hir.FuncID, fn *hir.Func) bool {
		loop = fn.Body
		return false
	})
	node := mod.Expr(loop)
	if node.Kind != hir.ExprWhile {
		t.Fatalf("body kind = %d, want while", node.Kind)
	}
	if !ctx.Types.Equal(node.Type, ctx.Types.Builtins().Unit) {
		t.Fatalf("loop type = %s, want unit", ctx.Types.Label(node.Type, ctx.Strings))
	}
}

func TestWhileConditionMustBeBool(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", nil, ast.NoTypeExprID, b.whileLoop(b.intLit(1), b.block()))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaTypeMismatch) {
		t.Fatalf("non-bool loop condition must be diagnosed")
	}
}

func TestArrayLiteralInfersElement(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	body := b.block(
		b.let("xs", ast.NoTypeExprID, b.arrayLit(b.intLit(1), b.intLit(2), b.intLit(3))),
		b.index(b.nameRef("xs"), b.intLit(0)),
	)
	b.fn("f", nil, b.tNamed("i64"), body)

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestArrayLiteralElementsMustAgree(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	bad := b.arrayLit(b.intLit(1), b.boolLit(true))
	b.fn("f", nil, ast.NoTypeExprID, b.block(b.let("xs", ast.NoTypeExprID, bad)))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaTypeMismatch) {
		t.Fatalf("mixed element types must be diagnosed")
	}
}

func TestEmptyArrayLiteralNeedsContext(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", nil, ast.NoTypeExprID, b.block(b.let("xs", ast.NoTypeExprID, b.arrayLit())))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaTypeMismatch) {
		t.Fatalf("an empty array without an expected type must be diagnosed")
	}
}

func TestEmptyArrayLiteralAdoptsAnnotation(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", nil, ast.NoTypeExprID,
		b.block(b.let("xs", b.tArray(b.tNamed("i64")), b.arrayLit())))

	Check(ctx, b.u)
	requireClean(t, bag)
}

func TestIndexRequiresArray(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	b.fn("f", []ast.ParamDef{b.param("n", b.tNamed("i64"))}, ast.NoTypeExprID,
		b.block(b.index(b.nameRef("n"), b.intLit(0))))

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaInvalidOperands) {
		t.Fatalf("indexing a non-array must be diagnosed")
	}
}

func TestIndexRequiresIntegerIndex(t *testing.T) {
	ctx, bag := newTestContext()
	b := newBuilder(ctx, "main")
	body := b.block(
		b.let("xs", ast.NoTypeExprID, b.arrayLit(b.intLit(1))),
		b.index(b.nameRef("xs"), b.boolLit(true)),
	)
	b.fn("f", nil, ast.NoTypeExprID, body)

	Check(ctx, b.u)
	if !hasCode(bag, diag.SemaInvalidOperands) {
		t.Fatalf("a non-integer index must be diagnosed")
	}
}
