package sema

import (
	"errors"
	"slices"
	"strings"

	"rill/internal/abilities"
	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/generics"
	"rill/internal/hir"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

func (c *Checker) checkCall(e *ast.Expr) hir.ExprID {
	callee := c.unit.Expr(e.X)
	if callee == nil || callee.Kind != ast.ExprName {
		c.ctx.errorf(diag.SemaNotCallable, e.Span, "expression is not callable")
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}

	symID, found := c.lookupSymbol(callee.Path, symbols.NSValue, c.curScope)
	if !found {
		if name, ok := callee.Path.Simple(); ok && c.ctx.name(name) == "crash" {
			return c.checkCrash(e)
		}
		c.ctx.errorf(diag.SemaUnknownName, callee.Span, "unknown name %s", c.pathString(callee.Path))
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}

	sym := c.ctx.Symbols.Symbol(symID)
	switch sym.Kind {
	case symbols.SymbolFunction:
		fi := c.funcs[sym.Ref]
		args := c.checkArgs(e, fi.params, sym.Name)
		return c.mod.AddExpr(hir.Expr{
			Kind: hir.ExprCall,
			Span: e.Span,
			Type: fi.result,
			Func: fi.fid,
			List: args,
		})

	case symbols.SymbolGenericFunction:
		return c.checkGenericCall(e, sym, generics.DefID(sym.Ref))

	default:
		c.ctx.errorf(diag.SemaNotCallable, e.Span, "%s is not a function", c.ctx.name(sym.Name))
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}
}

// checkCrash types the crash builtin: one string message, result never.
func (c *Checker) checkCrash(e *ast.Expr) hir.ExprID {
	b := c.ctx.Types.Builtins()
	var msg hir.ExprID
	if len(e.List) != 1 {
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "crash takes one string argument, got %d", len(e.List))
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
	} else {
		msg = c.checkExpr(e.List[0], b.String)
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprCrash, Span: e.Span, Type: b.Never, X: msg})
}

func (c *Checker) checkArgs(e *ast.Expr, params []types.TypeID, name source.StringID) []hir.ExprID {
	if len(e.List) != len(params) {
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "%s takes %d arguments, got %d",
			c.ctx.name(name), len(params), len(e.List))
	}
	args := make([]hir.ExprID, 0, len(e.List))
	for i, a := range e.List {
		expect := types.NoTypeID
		if i < len(params) {
			expect = params[i]
		}
		args = append(args, c.checkExpr(a, expect))
	}
	return args
}

// checkGenericCall instantiates a generic function for this call site.
// Type arguments are either explicit or inferred from arguments whose
// declared type is the bare parameter.
func (c *Checker) checkGenericCall(e *ast.Expr, sym *symbols.Symbol, def generics.DefID) hir.ExprID {
	gs := c.genericSigs[def]
	d := c.ctx.Generics.Def(def)
	if gs == nil {
		return c.invalidExpr(e.Span)
	}

	var targs []types.TypeID
	var args []hir.ExprID
	if len(e.TypeArgs) > 0 {
		if len(e.TypeArgs) != len(d.Params) {
			c.ctx.errorf(diag.SemaArityMismatch, e.Span, "%s expects %d type arguments, got %d",
				c.ctx.name(sym.Name), len(d.Params), len(e.TypeArgs))
			return c.invalidExpr(e.Span)
		}
		targs = make([]types.TypeID, len(e.TypeArgs))
		for i, ta := range e.TypeArgs {
			targs[i] = c.resolveTypeExpr(ta, c.curScope, c.curEnv)
			if targs[i] == types.NoTypeID {
				return c.invalidExpr(e.Span)
			}
		}
	} else {
		// Check arguments first, then read type arguments off the ones
		// declared as a bare parameter.
		args = make([]hir.ExprID, len(e.List))
		for i, a := range e.List {
			args[i] = c.checkExpr(a, types.NoTypeID)
		}
		targs = make([]types.TypeID, len(d.Params))
		for pi, param := range d.Params {
			for ai, declared := range gs.params {
				if declared == param && ai < len(args) {
					targs[pi] = c.exprType(args[ai])
					break
				}
			}
			if targs[pi] == types.NoTypeID {
				c.ctx.errorf(diag.SemaTypeMismatch, e.Span,
					"cannot infer type arguments for %s; spell them explicitly", c.ctx.name(sym.Name))
				return c.invalidExpr(e.Span)
			}
		}
	}

	inst, ok := c.instantiateFunc(def, targs, e.Span)
	if !ok {
		return c.invalidExpr(e.Span)
	}

	if len(e.List) != len(inst.Params) {
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "%s takes %d arguments, got %d",
			c.ctx.name(sym.Name), len(inst.Params), len(e.List))
	}
	if args == nil {
		args = make([]hir.ExprID, 0, len(e.List))
		for i, a := range e.List {
			expect := types.NoTypeID
			if i < len(inst.Params) {
				expect = inst.Params[i]
			}
			args = append(args, c.checkExpr(a, expect))
		}
	} else {
		// Inferred path: arguments are already checked, reconcile types.
		for i := range args {
			if i < len(inst.Params) {
				args[i] = c.coerce(args[i], inst.Params[i])
			}
		}
	}

	return c.mod.AddExpr(hir.Expr{
		Kind: hir.ExprCall,
		Span: e.Span,
		Type: inst.Result,
		Func: hir.FuncID(inst.Func),
		List: args,
	})
}

// instantiateFunc returns the monomorphized instance for (def, args),
// checking the substituted body on first demand. The instance is cached
// before its body is checked so recursive generic functions terminate.
func (c *Checker) instantiateFunc(def generics.DefID, args []types.TypeID, span source.Span) (*generics.FuncInstance, bool) {
	if inst, ok := c.ctx.Generics.LookupFunc(def, args); ok {
		return inst, true
	}
	gs := c.genericSigs[def]
	if gs == nil {
		return nil, false
	}
	d := c.ctx.Generics.Def(def)

	release, err := c.ctx.Generics.EnterInstantiation(def)
	if err != nil {
		c.ctx.errorf(diag.SemaRecursionLimit, span, "instantiating %s recurses past depth %d",
			c.ctx.name(d.Name), generics.MaxDepth)
		return nil, false
	}
	defer release()

	c.checkBoundsNow(def, args, span)

	sub := generics.NewSubst(c.ctx.Generics, d.Params, args)
	params := make([]types.TypeID, len(gs.params))
	for i, p := range gs.params {
		params[i], err = sub.Apply(p)
		if err != nil {
			c.reportSubstError(err, d, span)
			return nil, false
		}
	}
	result, err := sub.Apply(gs.result)
	if err != nil {
		c.reportSubstError(err, d, span)
		return nil, false
	}

	args = slices.Clone(args)
	inst := &generics.FuncInstance{Def: def, Args: args, Params: params, Result: result}
	c.ctx.Generics.StoreFunc(inst)

	item := c.unit.Item(gs.item)
	hirParams := make([]hir.Param, len(item.Params))
	for i, p := range item.Params {
		hirParams[i] = hir.Param{Name: p.Name, Type: params[i]}
	}
	fid := c.mod.AddFunc(hir.Func{
		Name:   c.instanceName(d.Name, args),
		Span:   item.Span,
		Params: hirParams,
		Result: result,
		Flags:  hir.FuncFlagInstance,
		Origin: def,
		Args:   args,
	})
	inst.Func = uint32(fid)

	env := make(typeEnv, len(gs.names))
	for i, name := range gs.names {
		if i < len(args) {
			env[name] = args[i]
		}
	}
	fi := &funcInfo{item: gs.item, scope: gs.scope, params: params, result: result, fid: fid, origin: def, args: args}
	c.checkFunc(fi, env)
	return inst, true
}

// instanceName interns "name[arg,...]" so instances are tellable apart
// in dumps and diagnostics.
func (c *Checker) instanceName(base source.StringID, args []types.TypeID) source.StringID {
	var sb strings.Builder
	sb.WriteString(c.ctx.name(base))
	sb.WriteByte('[')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.ctx.label(a))
	}
	sb.WriteByte(']')
	return c.ctx.Strings.Intern(sb.String())
}

func (c *Checker) reportSubstError(err error, d *generics.Def, span source.Span) {
	var depth *generics.RecursionLimitError
	if errors.As(err, &depth) {
		c.ctx.errorf(diag.SemaRecursionLimit, span, "instantiating %s recurses past depth %d",
			c.ctx.name(d.Name), generics.MaxDepth)
		return
	}
	c.ctx.errorf(diag.SemaTypeMismatch, span, "%v", err)
}

func (c *Checker) checkMethodCall(e *ast.Expr) hir.ExprID {
	recv := c.checkExpr(e.X, types.NoTypeID)
	rt := c.exprType(recv)
	if rt == types.NoTypeID {
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}

	res, err := c.ctx.Abilities.ResolveMethod(rt, e.Name)
	if err != nil {
		c.reportMethodError(err, e, rt)
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}
	sig := c.ctx.Abilities.Sig(res)

	if len(e.List) != len(sig.Params) {
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "method %s takes %d arguments, got %d",
			c.ctx.name(e.Name), len(sig.Params), len(e.List))
	}
	args := make([]hir.ExprID, 0, len(e.List))
	for i, a := range e.List {
		expect := types.NoTypeID
		if i < len(sig.Params) {
			expect = sig.Params[i]
		}
		args = append(args, c.checkExpr(a, expect))
	}

	return c.mod.AddExpr(hir.Expr{
		Kind:        hir.ExprMethodCall,
		Span:        e.Span,
		Type:        sig.Result,
		X:           recv,
		List:        args,
		Ability:     res.Ability,
		Impl:        res.Impl,
		MethodIndex: res.MethodIndex,
	})
}

func (c *Checker) reportMethodError(err error, e *ast.Expr, rt types.TypeID) {
	var unknown *abilities.UnknownMethodError
	var ambiguous *abilities.AmbiguousMethodError
	switch {
	case errors.As(err, &unknown):
		c.ctx.errorf(diag.SemaUnknownMethod, e.Span, "%s has no method %s", c.ctx.label(rt), c.ctx.name(e.Name))
	case errors.As(err, &ambiguous):
		names := make([]string, 0, len(ambiguous.Abilities))
		for _, aid := range ambiguous.Abilities {
			names = append(names, c.ctx.name(c.ctx.Abilities.Ability(aid).Name))
		}
		c.ctx.errorf(diag.SemaAmbiguousMethod, e.Span, "method %s on %s is provided by %s; qualify the call",
			c.ctx.name(e.Name), c.ctx.label(rt), strings.Join(names, " and "))
	default:
		c.ctx.errorf(diag.SemaUnknownMethod, e.Span, "%v", err)
	}
}
