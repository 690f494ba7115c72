package sema

import (
	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/generics"
	"rill/internal/hir"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

func (c *Checker) checkBodies() {
	// registerImpls appends method bodies, so walk by index.
	for i := 0; i < len(c.funcs); i++ {
		fi := c.funcs[i]
		item := c.unit.Item(fi.item)
		if !item.Body.IsValid() {
			continue // extern or poisoned declaration
		}
		c.checkFunc(fi, nil)
	}
}

// checkFunc checks one body in a fresh function scope. Reentrant: a
// generic call inside the body may instantiate and check another
// function before this one finishes.
func (c *Checker) checkFunc(fi *funcInfo, env typeEnv) {
	savedResult, savedScope, savedEnv := c.curResult, c.curScope, c.curEnv
	defer func() { c.curResult, c.curScope, c.curEnv = savedResult, savedScope, savedEnv }()

	item := c.unit.Item(fi.item)
	fnScope := c.ctx.Symbols.NewScope(symbols.ScopeFunction, fi.scope, item.Span)
	paramSyms := make([]symbols.SymbolID, len(item.Params))
	for i, p := range item.Params {
		sym := symbols.Symbol{
			Name:  p.Name,
			Kind:  symbols.SymbolParam,
			Scope: fnScope,
			Span:  p.Span,
			Type:  fi.params[i],
		}
		sid, existing, ok := c.ctx.Symbols.Declare(sym)
		if !ok {
			c.reportDuplicate(&ast.Item{Name: p.Name, Span: p.Span}, existing)
			sid = c.ctx.Symbols.Shadow(sym)
		}
		paramSyms[i] = sid
	}

	c.curResult, c.curScope, c.curEnv = fi.result, fnScope, env
	body := c.checkExpr(item.Body, fi.result)

	fn := c.mod.Func(fi.fid)
	fn.Body = body
	for i, sid := range paramSyms {
		fn.Params[i].Sym = sid
	}
}

// checkExpr type-checks one expression against an optional expected
// type (NoTypeID = infer) and returns the typed node, coerced where the
// optional promotion rule applies.
func (c *Checker) checkExpr(id ast.ExprID, expect types.TypeID) hir.ExprID {
	e := c.unit.Expr(id)
	if e == nil {
		return c.invalidExpr(source.Span{})
	}
	switch e.Kind {
	case ast.ExprLit:
		return c.coerce(c.checkLit(e, expect), expect)
	case ast.ExprName:
		return c.coerce(c.checkName(e), expect)
	case ast.ExprLet:
		return c.checkLet(e)
	case ast.ExprAssign:
		return c.checkAssign(e)
	case ast.ExprBlock:
		return c.checkBlock(e, expect)
	case ast.ExprIf:
		return c.checkIf(e, expect)
	case ast.ExprWhile:
		return c.coerce(c.checkWhile(e), expect)
	case ast.ExprBinary:
		return c.coerce(c.checkBinary(e, expect), expect)
	case ast.ExprUnary:
		return c.coerce(c.checkUnary(e), expect)
	case ast.ExprCall:
		return c.coerce(c.checkCall(e), expect)
	case ast.ExprMethodCall:
		return c.coerce(c.checkMethodCall(e), expect)
	case ast.ExprField:
		return c.coerce(c.checkField(e), expect)
	case ast.ExprIndex:
		return c.coerce(c.checkIndex(e), expect)
	case ast.ExprStructLit:
		return c.coerce(c.checkStructLit(e, expect), expect)
	case ast.ExprArrayLit:
		return c.coerce(c.checkArrayLit(e, expect), expect)
	case ast.ExprVariant:
		return c.coerce(c.checkVariant(e, expect), expect)
	case ast.ExprMatch:
		return c.checkMatch(e, expect)
	case ast.ExprUnwrap:
		return c.coerce(c.checkUnwrap(e), expect)
	case ast.ExprOrElse:
		return c.coerce(c.checkOrElse(e), expect)
	case ast.ExprReturn:
		return c.checkReturn(e)
	default:
		return c.invalidExpr(e.Span)
	}
}

// coerce reconciles a node's actual type with the expectation. A value
// of type T checked against T? is promoted to Some(value); never
// satisfies anything; everything else must match exactly.
func (c *Checker) coerce(hid hir.ExprID, expect types.TypeID) hir.ExprID {
	if expect == types.NoTypeID {
		return hid
	}
	node := c.mod.Expr(hid)
	actual := node.Type
	if actual == types.NoTypeID {
		return hid
	}
	if c.ctx.Types.Equal(actual, expect) {
		return hid
	}
	if c.isNever(actual) {
		return hid
	}
	if payload, ok := c.ctx.Generics.OptionPayload(expect); ok && c.ctx.Types.Equal(actual, payload) {
		return c.mod.AddExpr(hir.Expr{
			Kind:         hir.ExprVariant,
			Span:         node.Span,
			Type:         expect,
			VariantIndex: generics.OptionSomeIndex,
			List:         []hir.ExprID{hid},
		})
	}
	c.ctx.errorf(diag.SemaTypeMismatch, node.Span, "expected %s, found %s", c.ctx.label(expect), c.ctx.label(actual))
	return hid
}

func (c *Checker) checkLit(e *ast.Expr, expect types.TypeID) hir.ExprID {
	b := c.ctx.Types.Builtins()
	var t types.TypeID
	switch e.Lit.Kind {
	case ast.LitUnit:
		t = b.Unit
	case ast.LitBool:
		t = b.Bool
	case ast.LitChar:
		t = b.Char
	case ast.LitString:
		t = b.String
	case ast.LitInt:
		t = b.Int
		if under := c.underlyingOf(expect); under != types.NoTypeID {
			if tt, ok := c.ctx.Types.Lookup(under); ok && tt.Kind == types.KindInt {
				t = under
			}
		}
	case ast.LitFloat:
		t = b.F64
		if under := c.underlyingOf(expect); under != types.NoTypeID {
			if tt, ok := c.ctx.Types.Lookup(under); ok && tt.Kind == types.KindFloat {
				t = under
			}
		}
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprLit, Span: e.Span, Type: t, Lit: e.Lit})
}

func (c *Checker) checkName(e *ast.Expr) hir.ExprID {
	symID, ok := c.lookupSymbol(e.Path, symbols.NSValue, c.curScope)
	if !ok {
		c.ctx.errorf(diag.SemaUnknownName, e.Span, "unknown name %s", c.pathString(e.Path))
		return c.invalidExpr(e.Span)
	}
	sym := c.ctx.Symbols.Symbol(symID)
	switch sym.Kind {
	case symbols.SymbolLet, symbols.SymbolParam:
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprVar, Span: e.Span, Type: sym.Type, Sym: symID})
	case symbols.SymbolFunction, symbols.SymbolGenericFunction:
		c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "%s is a function and must be called", c.ctx.name(sym.Name))
		return c.invalidExpr(e.Span)
	default:
		c.ctx.errorf(diag.SemaUnknownName, e.Span, "%s is not a value", c.ctx.name(sym.Name))
		return c.invalidExpr(e.Span)
	}
}

func (c *Checker) checkLet(e *ast.Expr) hir.ExprID {
	var ann types.TypeID
	if e.Type.IsValid() {
		ann = c.resolveTypeExpr(e.Type, c.curScope, c.curEnv)
	}
	value := c.checkExpr(e.X, ann)
	vt := ann
	if vt == types.NoTypeID {
		vt = c.exprType(value)
	}
	sym := symbols.Symbol{
		Name:  e.Name,
		Kind:  symbols.SymbolLet,
		Scope: c.curScope,
		Span:  e.Span,
		Type:  vt,
	}
	if e.Mutable {
		sym.Flags |= symbols.SymbolFlagMutable
	}
	// A later let with the same spelling shadows the earlier one.
	sid := c.ctx.Symbols.Shadow(sym)
	return c.mod.AddExpr(hir.Expr{
		Kind: hir.ExprLet,
		Span: e.Span,
		Type: c.ctx.Types.Builtins().Unit,
		Sym:  sid,
		X:    value,
	})
}

func (c *Checker) checkAssign(e *ast.Expr) hir.ExprID {
	target := c.unit.Expr(e.X)
	unit := c.ctx.Types.Builtins().Unit
	switch {
	case target != nil && target.Kind == ast.ExprName:
		hid := c.checkName(target)
		node := c.mod.Expr(hid)
		if node.Kind == hir.ExprVar {
			sym := c.ctx.Symbols.Symbol(node.Sym)
			if sym.Flags&symbols.SymbolFlagMutable == 0 && sym.Kind == symbols.SymbolLet {
				c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "cannot assign to immutable binding %s", c.ctx.name(sym.Name))
			} else if sym.Kind == symbols.SymbolParam {
				c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "cannot assign to parameter %s", c.ctx.name(sym.Name))
			}
		}
		value := c.checkExpr(e.Y, c.exprType(hid))
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprAssign, Span: e.Span, Type: unit, X: hid, Y: value})

	case target != nil && target.Kind == ast.ExprField:
		hid := c.checkField(target)
		value := c.checkExpr(e.Y, c.exprType(hid))
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprAssign, Span: e.Span, Type: unit, X: hid, Y: value})

	default:
		c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "left side of assignment is not assignable")
		c.checkExpr(e.Y, types.NoTypeID)
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprAssign, Span: e.Span, Type: unit})
	}
}

func (c *Checker) checkBlock(e *ast.Expr, expect types.TypeID) hir.ExprID {
	savedScope := c.curScope
	c.curScope = c.ctx.Symbols.NewScope(symbols.ScopeBlock, savedScope, e.Span)
	defer func() { c.curScope = savedScope }()

	unit := c.ctx.Types.Builtins().Unit
	out := make([]hir.ExprID, 0, len(e.List))
	t := unit
	for i, stmt := range e.List {
		if i == len(e.List)-1 {
			last := c.checkExpr(stmt, expect)
			out = append(out, last)
			t = c.exprType(last)
			break
		}
		out = append(out, c.checkExpr(stmt, types.NoTypeID))
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprBlock, Span: e.Span, Type: t, List: out})
}

func (c *Checker) checkIf(e *ast.Expr, expect types.TypeID) hir.ExprID {
	b := c.ctx.Types.Builtins()
	cond := c.checkExpr(e.X, b.Bool)
	then := c.checkExpr(e.Y, expect)
	if !e.Z.IsValid() {
		tt := c.exprType(then)
		if tt != types.NoTypeID && !c.ctx.Types.Equal(tt, b.Unit) && !c.isNever(tt) {
			c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "if without else yields unit, found %s", c.ctx.label(tt))
		}
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprIf, Span: e.Span, Type: b.Unit, X: cond, Y: then})
	}
	els := c.checkExpr(e.Z, expect)
	t := expect
	if t == types.NoTypeID {
		t = c.unify(e.Span, c.exprType(then), c.exprType(els))
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprIf, Span: e.Span, Type: t, X: cond, Y: then, Z: els})
}

func (c *Checker) checkWhile(e *ast.Expr) hir.ExprID {
	b := c.ctx.Types.Builtins()
	cond := c.checkExpr(e.X, b.Bool)
	// The body runs for effect; its value is discarded every iteration.
	body := c.checkExpr(e.Y, types.NoTypeID)
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprWhile, Span: e.Span, Type: b.Unit, X: cond, Y: body})
}

func (c *Checker) checkBinary(e *ast.Expr, expect types.TypeID) hir.ExprID {
	b := c.ctx.Types.Builtins()
	switch {
	case e.BinOp.IsLogical():
		x := c.checkExpr(e.X, b.Bool)
		y := c.checkExpr(e.Y, b.Bool)
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprBinary, Span: e.Span, Type: b.Bool, X: x, Y: y, BinOp: e.BinOp})

	case e.BinOp.IsComparison():
		x := c.checkExpr(e.X, types.NoTypeID)
		xt := c.exprType(x)
		y := c.checkExpr(e.Y, xt)
		if !c.comparable(xt, e.BinOp) {
			c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "operator %s cannot compare %s values", e.BinOp, c.ctx.label(xt))
		}
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprBinary, Span: e.Span, Type: b.Bool, X: x, Y: y, BinOp: e.BinOp})

	default: // arithmetic
		numExpect := types.NoTypeID
		if under := c.underlyingOf(expect); under != types.NoTypeID {
			if tt, ok := c.ctx.Types.Lookup(under); ok && (tt.Kind == types.KindInt || tt.Kind == types.KindFloat) {
				numExpect = under
			}
		}
		x := c.checkExpr(e.X, numExpect)
		xt := c.exprType(x)
		y := c.checkExpr(e.Y, xt)
		if !c.arithmeticOperand(xt, e.BinOp) {
			c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "operator %s is not defined for %s", e.BinOp, c.ctx.label(xt))
		}
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprBinary, Span: e.Span, Type: xt, X: x, Y: y, BinOp: e.BinOp})
	}
}

func (c *Checker) checkUnary(e *ast.Expr) hir.ExprID {
	b := c.ctx.Types.Builtins()
	switch e.UnOp {
	case ast.UnNot:
		x := c.checkExpr(e.X, b.Bool)
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprUnary, Span: e.Span, Type: b.Bool, X: x, UnOp: e.UnOp})
	default: // UnNeg
		x := c.checkExpr(e.X, types.NoTypeID)
		xt := c.exprType(x)
		if under := c.underlyingOf(xt); under != types.NoTypeID {
			if tt, ok := c.ctx.Types.Lookup(under); !ok || (tt.Kind != types.KindInt && tt.Kind != types.KindFloat) {
				c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "cannot negate %s", c.ctx.label(xt))
			} else if tt.Kind == types.KindInt && !tt.Signed {
				c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "cannot negate unsigned %s", c.ctx.label(xt))
			}
		}
		return c.mod.AddExpr(hir.Expr{Kind: hir.ExprUnary, Span: e.Span, Type: xt, X: x, UnOp: e.UnOp})
	}
}

func (c *Checker) checkField(e *ast.Expr) hir.ExprID {
	recv := c.checkExpr(e.X, types.NoTypeID)
	rt := c.exprType(recv)
	if rt == types.NoTypeID {
		return c.invalidExpr(e.Span)
	}
	under := c.derefUnderlying(rt)
	info, ok := c.ctx.Types.StructInfo(under)
	if !ok {
		c.ctx.errorf(diag.SemaNotAStruct, e.Span, "%s has no fields", c.ctx.label(rt))
		return c.invalidExpr(e.Span)
	}
	idx, ok := c.ctx.Types.FieldIndex(under, e.Name)
	if !ok {
		c.ctx.errorf(diag.SemaUnknownField, e.Span, "%s has no field %s", c.ctx.label(rt), c.ctx.name(e.Name))
		return c.invalidExpr(e.Span)
	}
	return c.mod.AddExpr(hir.Expr{
		Kind:       hir.ExprField,
		Span:       e.Span,
		Type:       info.Fields[idx].Type,
		X:          recv,
		FieldIndex: idx,
	})
}

func (c *Checker) checkIndex(e *ast.Expr) hir.ExprID {
	base := c.checkExpr(e.X, types.NoTypeID)
	bt := c.exprType(base)
	if bt == types.NoTypeID {
		c.checkExpr(e.Y, types.NoTypeID)
		return c.invalidExpr(e.Span)
	}
	under := c.derefUnderlying(bt)
	tt, ok := c.ctx.Types.Lookup(under)
	if !ok || tt.Kind != types.KindArray {
		c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "cannot index into %s", c.ctx.label(bt))
		c.checkExpr(e.Y, types.NoTypeID)
		return c.invalidExpr(e.Span)
	}
	idx := c.checkExpr(e.Y, types.NoTypeID)
	it := c.exprType(idx)
	if iu := c.underlyingOf(it); iu != types.NoTypeID {
		if itt, ok := c.ctx.Types.Lookup(iu); !ok || itt.Kind != types.KindInt {
			c.ctx.errorf(diag.SemaInvalidOperands, e.Span, "array index must be an integer, found %s", c.ctx.label(it))
		}
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprIndex, Span: e.Span, Type: tt.Elem, X: base, Y: idx})
}

// checkArrayLit infers the element type from the expectation when one is
// available, otherwise from the first element.
func (c *Checker) checkArrayLit(e *ast.Expr, expect types.TypeID) hir.ExprID {
	elem := types.NoTypeID
	if under := c.underlyingOf(expect); under != types.NoTypeID {
		if tt, ok := c.ctx.Types.Lookup(under); ok && tt.Kind == types.KindArray {
			elem = tt.Elem
		}
	}
	if len(e.List) == 0 && elem == types.NoTypeID {
		c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "cannot infer the element type of an empty array")
		return c.invalidExpr(e.Span)
	}
	out := make([]hir.ExprID, 0, len(e.List))
	for _, el := range e.List {
		hid := c.checkExpr(el, elem)
		if elem == types.NoTypeID {
			elem = c.exprType(hid)
		}
		out = append(out, hid)
	}
	if elem == types.NoTypeID {
		return c.invalidExpr(e.Span)
	}
	return c.mod.AddExpr(hir.Expr{
		Kind: hir.ExprArrayLit,
		Span: e.Span,
		Type: c.ctx.Generics.MakeArrayOf(elem),
		List: out,
	})
}

func (c *Checker) checkUnwrap(e *ast.Expr) hir.ExprID {
	x := c.checkExpr(e.X, types.NoTypeID)
	xt := c.exprType(x)
	payload, ok := c.ctx.Generics.OptionPayload(xt)
	if !ok {
		if xt != types.NoTypeID {
			c.ctx.errorf(diag.SemaBadUnwrap, e.Span, "unwrap applied to non-optional %s", c.ctx.label(xt))
		}
		return c.invalidExpr(e.Span)
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprUnwrap, Span: e.Span, Type: payload, X: x})
}

func (c *Checker) checkOrElse(e *ast.Expr) hir.ExprID {
	x := c.checkExpr(e.X, types.NoTypeID)
	xt := c.exprType(x)
	payload, ok := c.ctx.Generics.OptionPayload(xt)
	if !ok {
		if xt != types.NoTypeID {
			c.ctx.errorf(diag.SemaBadUnwrap, e.Span, "fallback applied to non-optional %s", c.ctx.label(xt))
		}
		c.checkExpr(e.Y, types.NoTypeID)
		return c.invalidExpr(e.Span)
	}
	y := c.checkExpr(e.Y, payload)
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprOrElse, Span: e.Span, Type: payload, X: x, Y: y})
}

func (c *Checker) checkReturn(e *ast.Expr) hir.ExprID {
	b := c.ctx.Types.Builtins()
	var value hir.ExprID
	if e.X.IsValid() {
		value = c.checkExpr(e.X, c.curResult)
	} else if c.curResult != types.NoTypeID && !c.ctx.Types.Equal(c.curResult, b.Unit) {
		c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "missing return value of type %s", c.ctx.label(c.curResult))
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprReturn, Span: e.Span, Type: b.Never, X: value})
}

// Helpers ----------------------------------------------------------------

func (c *Checker) exprType(id hir.ExprID) types.TypeID {
	return c.mod.Expr(id).Type
}

func (c *Checker) invalidExpr(span source.Span) hir.ExprID {
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprInvalid, Span: span})
}

func (c *Checker) isNever(id types.TypeID) bool {
	return c.ctx.Types.Equal(id, c.ctx.Types.Builtins().Never)
}

// underlyingOf is Underlying guarded against the poison value.
func (c *Checker) underlyingOf(id types.TypeID) types.TypeID {
	if id == types.NoTypeID {
		return types.NoTypeID
	}
	return c.ctx.Types.Underlying(id)
}

// derefUnderlying peels references and pointers, then resolves aliases
// and instantiations: the shape a field access or pattern sees.
func (c *Checker) derefUnderlying(id types.TypeID) types.TypeID {
	id = c.ctx.Types.Canonical(id)
	for {
		tt, ok := c.ctx.Types.Lookup(id)
		if !ok {
			return id
		}
		switch tt.Kind {
		case types.KindReference, types.KindPointer:
			id = c.ctx.Types.Canonical(tt.Elem)
		default:
			return c.ctx.Types.Underlying(id)
		}
	}
}

// unify joins two branch types: never yields to the other side, equal
// types join to themselves, anything else is a mismatch.
func (c *Checker) unify(span source.Span, a, b types.TypeID) types.TypeID {
	switch {
	case a == types.NoTypeID:
		return b
	case b == types.NoTypeID:
		return a
	case c.isNever(a):
		return b
	case c.isNever(b):
		return a
	case c.ctx.Types.Equal(a, b):
		return a
	default:
		c.ctx.errorf(diag.SemaTypeMismatch, span, "branches disagree: %s vs %s", c.ctx.label(a), c.ctx.label(b))
		return a
	}
}

func (c *Checker) comparable(id types.TypeID, op ast.BinaryOp) bool {
	under := c.underlyingOf(id)
	tt, ok := c.ctx.Types.Lookup(under)
	if !ok {
		return true // poisoned, already diagnosed
	}
	switch tt.Kind {
	case types.KindInt, types.KindFloat, types.KindChar, types.KindString:
		return true
	case types.KindBool, types.KindUnit:
		return op == ast.BinEq || op == ast.BinNe
	default:
		return false
	}
}

func (c *Checker) arithmeticOperand(id types.TypeID, op ast.BinaryOp) bool {
	under := c.underlyingOf(id)
	tt, ok := c.ctx.Types.Lookup(under)
	if !ok {
		return true
	}
	switch tt.Kind {
	case types.KindInt, types.KindFloat:
		return true
	case types.KindString:
		return op == ast.BinAdd // concatenation
	default:
		return false
	}
}
