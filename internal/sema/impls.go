package sema

import (
	"errors"

	"rill/internal/abilities"
	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/hir"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// registerImpls wires every impl block to its ability and target type.
// Each method body becomes an ordinary function slot checked in the body
// pass; the registry records slots in ability method order.
func (c *Checker) registerImpls() {
	for _, pi := range c.pendingImpls {
		c.registerImpl(pi)
	}
}

func (c *Checker) registerImpl(pi pendingImpl) {
	item := c.unit.Item(pi.item)
	symID, ok := c.lookupTypeSymbol(item.Ability, pi.scope)
	if !ok {
		c.ctx.errorf(diag.SemaUnknownName, item.Span, "unknown ability %s", c.pathString(item.Ability))
		return
	}
	sym := c.ctx.Symbols.Symbol(symID)
	if sym.Kind != symbols.SymbolAbility {
		c.ctx.errorf(diag.SemaTypeMismatch, item.Span, "%s is not an ability", c.ctx.name(sym.Name))
		return
	}
	aid := abilities.AbilityID(sym.Ref)
	ability := c.ctx.Abilities.Ability(aid)

	target := c.resolveTypeExpr(item.Target, pi.scope, nil)
	if target == types.NoTypeID {
		return
	}

	byName := make(map[source.StringID]int, len(item.Funcs))
	for i, fnID := range item.Funcs {
		fn := c.unit.Item(fnID)
		if _, known := ability.MethodIndex(fn.Name); !known {
			c.ctx.errorf(diag.SemaUnknownMethod, fn.Span, "ability %s has no method %s",
				c.ctx.name(ability.Name), c.ctx.name(fn.Name))
			continue
		}
		byName[fn.Name] = i
	}

	refs := make([]abilities.FuncRef, len(ability.Methods))
	for mi, sig := range ability.Methods {
		fnPos, ok := byName[sig.Name]
		if !ok {
			c.ctx.errorf(diag.SemaUnknownMethod, item.Span, "impl of %s for %s is missing method %s",
				c.ctx.name(ability.Name), c.ctx.label(target), c.ctx.name(sig.Name))
			continue
		}
		fnID := item.Funcs[fnPos]
		fn := c.unit.Item(fnID)

		params := make([]types.TypeID, len(fn.Params))
		hirParams := make([]hir.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = c.resolveTypeExpr(p.Type, pi.scope, nil)
			hirParams[i] = hir.Param{Name: p.Name, Type: params[i]}
		}
		result := c.resolveResult(fn.Result, pi.scope, nil)
		c.checkImplMethod(fn, sig, target, params, result)

		fi := &funcInfo{item: fnID, scope: pi.scope, params: params, result: result}
		fi.fid = c.mod.AddFunc(hir.Func{
			Name:   fn.Name,
			Span:   fn.Span,
			Params: hirParams,
			Result: result,
		})
		c.funcs = append(c.funcs, fi)
		refs[mi] = abilities.FuncRef(fi.fid)
	}

	if _, err := c.ctx.Abilities.DeclareImpl(aid, target, item.Span, refs); err != nil {
		var dup *abilities.DuplicateImplError
		if errors.As(err, &dup) {
			d := diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.SemaDuplicateImpl,
				Message: "duplicate impl of " + c.ctx.name(ability.Name) +
					" for " + c.ctx.label(target),
				Primary: item.Span,
			}
			prev := c.ctx.Abilities.Impl(dup.Existing)
			if !prev.Decl.Empty() {
				d = d.WithNote(prev.Decl, "previous impl here")
			}
			c.ctx.Reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
			return
		}
		c.ctx.errorf(diag.SemaDuplicateImpl, item.Span, "%v", err)
	}
}

// checkImplMethod verifies the method body's signature: the receiver is
// the leading parameter, the rest mirror the ability signature.
func (c *Checker) checkImplMethod(fn *ast.Item, sig abilities.MethodSig, target types.TypeID, params []types.TypeID, result types.TypeID) {
	if len(params) != len(sig.Params)+1 {
		c.ctx.errorf(diag.SemaArityMismatch, fn.Span, "method %s takes a receiver plus %d parameters, got %d",
			c.ctx.name(fn.Name), len(sig.Params), len(params))
		return
	}
	if params[0] != types.NoTypeID && !c.ctx.Types.Equal(params[0], target) {
		c.ctx.errorf(diag.SemaTypeMismatch, fn.Span, "receiver of %s must be %s, found %s",
			c.ctx.name(fn.Name), c.ctx.label(target), c.ctx.label(params[0]))
	}
	for i, want := range sig.Params {
		got := params[i+1]
		if got != types.NoTypeID && want != types.NoTypeID && !c.ctx.Types.Equal(got, want) {
			c.ctx.errorf(diag.SemaTypeMismatch, fn.Span, "parameter %d of %s must be %s, found %s",
				i+1, c.ctx.name(fn.Name), c.ctx.label(want), c.ctx.label(got))
		}
	}
	if result != types.NoTypeID && sig.Result != types.NoTypeID && !c.ctx.Types.Equal(result, sig.Result) {
		c.ctx.errorf(diag.SemaTypeMismatch, fn.Span, "result of %s must be %s, found %s",
			c.ctx.name(fn.Name), c.ctx.label(sig.Result), c.ctx.label(result))
	}
}
