package sema

import (
	"errors"
	"strings"

	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/hir"
	"rill/internal/patterns"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

func (c *Checker) checkStructLit(e *ast.Expr, expect types.TypeID) hir.ExprID {
	if e.Type.IsValid() {
		t := c.resolveTypeExpr(e.Type, c.curScope, c.curEnv)
		if t == types.NoTypeID {
			c.checkInitsBlind(e)
			return c.invalidExpr(e.Span)
		}
		return c.checkTypedStructLit(e, t)
	}

	// Anonymous literal: adopt the expected struct when there is one,
	// otherwise infer a structural type from the initializers.
	target := expect
	if payload, ok := c.ctx.Generics.OptionPayload(expect); ok {
		target = payload
	}
	if target != types.NoTypeID {
		if _, ok := c.ctx.Types.StructInfo(c.underlyingOf(target)); ok {
			return c.checkTypedStructLit(e, target)
		}
	}
	return c.inferStructLit(e)
}

func (c *Checker) checkTypedStructLit(e *ast.Expr, t types.TypeID) hir.ExprID {
	under := c.underlyingOf(t)
	info, ok := c.ctx.Types.StructInfo(under)
	if !ok {
		c.ctx.errorf(diag.SemaNotAStruct, e.Span, "%s is not a struct", c.ctx.label(t))
		c.checkInitsBlind(e)
		return c.invalidExpr(e.Span)
	}

	byName := make(map[source.StringID]ast.FieldInit, len(e.Inits))
	for _, init := range e.Inits {
		if _, dup := byName[init.Name]; dup {
			c.ctx.errorf(diag.SemaDuplicateField, init.Span, "field %s initialized twice", c.ctx.name(init.Name))
			continue
		}
		if _, ok := c.ctx.Types.FieldIndex(under, init.Name); !ok {
			c.ctx.errorf(diag.SemaUnknownField, init.Span, "%s has no field %s", c.ctx.label(t), c.ctx.name(init.Name))
			c.checkExpr(init.Value, types.NoTypeID)
			continue
		}
		byName[init.Name] = init
	}

	inits := make([]hir.FieldInit, 0, len(info.Fields))
	var missing []string
	for i, field := range info.Fields {
		init, ok := byName[field.Name]
		if !ok {
			missing = append(missing, c.ctx.name(field.Name))
			continue
		}
		value := c.checkExpr(init.Value, field.Type)
		inits = append(inits, hir.FieldInit{Index: i, Value: value})
	}
	if len(missing) > 0 {
		c.ctx.errorf(diag.SemaMissingField, e.Span, "%s literal is missing %s",
			c.ctx.label(t), strings.Join(missing, ", "))
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprStructLit, Span: e.Span, Type: t, Inits: inits})
}

func (c *Checker) inferStructLit(e *ast.Expr) hir.ExprID {
	fields := make([]types.StructField, 0, len(e.Inits))
	inits := make([]hir.FieldInit, 0, len(e.Inits))
	seen := make(map[source.StringID]struct{}, len(e.Inits))
	for _, init := range e.Inits {
		if _, dup := seen[init.Name]; dup {
			c.ctx.errorf(diag.SemaDuplicateField, init.Span, "field %s initialized twice", c.ctx.name(init.Name))
			continue
		}
		seen[init.Name] = struct{}{}
		value := c.checkExpr(init.Value, types.NoTypeID)
		fields = append(fields, types.StructField{Name: init.Name, Type: c.exprType(value)})
		inits = append(inits, hir.FieldInit{Index: len(fields) - 1, Value: value})
	}
	t := c.ctx.Types.InternStructural(fields)
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprStructLit, Span: e.Span, Type: t, Inits: inits})
}

func (c *Checker) checkInitsBlind(e *ast.Expr) {
	for _, init := range e.Inits {
		c.checkExpr(init.Value, types.NoTypeID)
	}
}

// checkVariant types Enum.Variant(payload) constructions, the spelled
// Some/None of optionals included: when the enum type is elided, the
// expected type supplies it.
func (c *Checker) checkVariant(e *ast.Expr, expect types.TypeID) hir.ExprID {
	var t types.TypeID
	switch {
	case e.Type.IsValid():
		t = c.resolveTypeExpr(e.Type, c.curScope, c.curEnv)
	case expect != types.NoTypeID:
		t = expect
	default:
		if c.ctx.name(e.Name) == "None" {
			c.ctx.errorf(diag.SemaNoneNeedsContext, e.Span, "none needs a type from context; annotate the binding or result")
		} else {
			c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "cannot infer the enum type of %s", c.ctx.name(e.Name))
		}
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
		return c.invalidExpr(e.Span)
	}
	if t == types.NoTypeID {
		return c.invalidExpr(e.Span)
	}

	under := c.underlyingOf(t)
	info, ok := c.ctx.Types.EnumInfo(under)
	if !ok {
		c.ctx.errorf(diag.SemaTypeMismatch, e.Span, "%s is not an enum", c.ctx.label(t))
		return c.invalidExpr(e.Span)
	}
	idx, ok := c.ctx.Types.VariantIndex(under, e.Name)
	if !ok {
		c.ctx.errorf(diag.SemaUnknownName, e.Span, "%s has no variant %s", c.ctx.label(t), c.ctx.name(e.Name))
		return c.invalidExpr(e.Span)
	}
	variant := info.Variants[idx]

	var payload []hir.ExprID
	switch {
	case variant.Payload == types.NoTypeID && len(e.List) > 0:
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "variant %s carries no payload", c.ctx.name(e.Name))
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
	case variant.Payload != types.NoTypeID && len(e.List) != 1:
		c.ctx.errorf(diag.SemaArityMismatch, e.Span, "variant %s takes one payload value, got %d", c.ctx.name(e.Name), len(e.List))
		for _, a := range e.List {
			c.checkExpr(a, types.NoTypeID)
		}
	case variant.Payload != types.NoTypeID:
		payload = []hir.ExprID{c.checkExpr(e.List[0], variant.Payload)}
	}

	return c.mod.AddExpr(hir.Expr{
		Kind:         hir.ExprVariant,
		Span:         e.Span,
		Type:         t,
		VariantIndex: idx,
		List:         payload,
	})
}

// checkMatch types the scrutinee, resolves each arm's pattern, checks
// arm bodies with the pattern's bindings in scope, and verifies the
// arms cover every value of the scrutinee's type.
func (c *Checker) checkMatch(e *ast.Expr, expect types.TypeID) hir.ExprID {
	scrut := c.checkExpr(e.X, types.NoTypeID)
	st := c.exprType(scrut)

	arms := make([]hir.MatchArm, 0, len(e.Arms))
	built := make([]*patterns.Pattern, 0, len(e.Arms))
	result := expect
	for _, arm := range e.Arms {
		var pat *patterns.Pattern
		if st != types.NoTypeID {
			var err error
			pat, err = c.patterns.Build(c.unit, arm.Pattern, st)
			if err != nil {
				c.reportPatternError(err, arm.Span)
			} else {
				built = append(built, pat)
			}
		}

		savedScope := c.curScope
		c.curScope = c.ctx.Symbols.NewScope(symbols.ScopeBlock, savedScope, arm.Span)
		if pat != nil {
			for _, b := range pat.Bindings() {
				c.ctx.Symbols.Shadow(symbols.Symbol{
					Name:  b.Name,
					Kind:  symbols.SymbolLet,
					Scope: c.curScope,
					Span:  b.Span,
					Type:  b.Type,
				})
			}
		}
		body := c.checkExpr(arm.Body, expect)
		c.curScope = savedScope

		if expect == types.NoTypeID {
			result = c.unify(arm.Span, result, c.exprType(body))
		}
		arms = append(arms, hir.MatchArm{Pattern: pat, Body: body})
	}

	if st != types.NoTypeID && len(built) == len(e.Arms) {
		if err := c.patterns.CheckExhaustive(st, built, e.Span); err != nil {
			var nonEx *patterns.NonExhaustiveError
			if errors.As(err, &nonEx) {
				c.ctx.errorf(diag.SemaNonExhaustiveMatch, e.Span, "match on %s is not exhaustive; missing %s",
					c.ctx.label(st), strings.Join(nonEx.Missing, ", "))
			}
		}
	}

	if result == types.NoTypeID && expect == types.NoTypeID && len(arms) == 0 {
		result = c.ctx.Types.Builtins().Never
	}
	return c.mod.AddExpr(hir.Expr{Kind: hir.ExprMatch, Span: e.Span, Type: result, X: scrut, Arms: arms})
}

func (c *Checker) reportPatternError(err error, span source.Span) {
	var invalid *patterns.InvalidPatternError
	if errors.As(err, &invalid) {
		at := invalid.Span
		if at.Empty() {
			at = span
		}
		c.ctx.errorf(diag.SemaInvalidPattern, at, "invalid pattern: %s", invalid.Reason)
		return
	}
	c.ctx.errorf(diag.SemaInvalidPattern, span, "%v", err)
}
