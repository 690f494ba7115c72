package sema

import (
	"errors"
	"strings"

	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/generics"
	"rill/internal/symbols"
	"rill/internal/types"
)

// resolveTypeExpr turns a syntactic type into a TypeID. Failures are
// reported and poison the result as NoTypeID; callers treat NoTypeID as
// "already diagnosed" and stay quiet about it.
func (c *Checker) resolveTypeExpr(id ast.TypeExprID, scope symbols.ScopeID, env typeEnv) types.TypeID {
	te := c.unit.TypeExpr(id)
	if te == nil {
		return types.NoTypeID
	}
	switch te.Kind {
	case ast.TypeExprNamed:
		return c.resolveNamed(te, scope, env)

	case ast.TypeExprOptional:
		elem := c.resolveTypeExpr(te.Elem, scope, env)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.ctx.Generics.MakeOption(elem)

	case ast.TypeExprPointer:
		elem := c.resolveTypeExpr(te.Elem, scope, env)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.ctx.Types.Intern(types.MakePointer(elem))

	case ast.TypeExprReference:
		elem := c.resolveTypeExpr(te.Elem, scope, env)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.ctx.Types.Intern(types.MakeReference(elem))

	case ast.TypeExprArray:
		elem := c.resolveTypeExpr(te.Elem, scope, env)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.ctx.Generics.MakeArrayOf(elem)

	case ast.TypeExprRecord:
		fields := make([]types.StructField, 0, len(te.Fields))
		for _, f := range te.Fields {
			ft := c.resolveTypeExpr(f.Type, scope, env)
			if ft == types.NoTypeID {
				return types.NoTypeID
			}
			fields = append(fields, types.StructField{Name: f.Name, Type: ft})
		}
		return c.ctx.Types.InternStructural(fields)

	case ast.TypeExprCombine:
		a := c.resolveTypeExpr(te.A, scope, env)
		b := c.resolveTypeExpr(te.B, scope, env)
		if a == types.NoTypeID || b == types.NoTypeID {
			return types.NoTypeID
		}
		out, err := c.ctx.Types.Combine(a, b)
		if err != nil {
			c.reportAlgebraError(err, te)
			return types.NoTypeID
		}
		return out

	case ast.TypeExprRemove:
		a := c.resolveTypeExpr(te.A, scope, env)
		if a == types.NoTypeID {
			return types.NoTypeID
		}
		out, err := c.ctx.Types.Remove(a, te.Names)
		if err != nil {
			c.reportAlgebraError(err, te)
			return types.NoTypeID
		}
		return out

	default:
		return types.NoTypeID
	}
}

func (c *Checker) resolveNamed(te *ast.TypeExpr, scope symbols.ScopeID, env typeEnv) types.TypeID {
	if name, ok := te.Path.Simple(); ok && env != nil {
		if tid, bound := env[name]; bound {
			if len(te.Args) > 0 {
				c.ctx.errorf(diag.SemaArityMismatch, te.Span, "type parameter %s takes no arguments", c.ctx.name(name))
			}
			return tid
		}
	}
	symID, ok := c.lookupTypeSymbol(te.Path, scope)
	if !ok {
		c.ctx.errorf(diag.SemaUnknownName, te.Span, "unknown type %s", c.pathString(te.Path))
		return types.NoTypeID
	}
	sym := c.ctx.Symbols.Symbol(symID)
	switch sym.Kind {
	case symbols.SymbolType:
		if len(te.Args) > 0 {
			c.ctx.errorf(diag.SemaArityMismatch, te.Span, "type %s is not generic", c.ctx.name(sym.Name))
			return types.NoTypeID
		}
		if p, pending := c.symPending[symID]; pending {
			c.resolvePending(p)
		}
		return sym.Type

	case symbols.SymbolGenericType:
		def := generics.DefID(sym.Ref)
		if p, pending := c.defPending[def]; pending {
			c.resolvePending(p)
		}
		args := make([]types.TypeID, len(te.Args))
		for i, a := range te.Args {
			args[i] = c.resolveTypeExpr(a, scope, env)
			if args[i] == types.NoTypeID {
				return types.NoTypeID
			}
		}
		inst, err := c.ctx.Generics.InstantiateType(def, args)
		if err != nil {
			c.reportGenericError(err, te, sym)
			return types.NoTypeID
		}
		c.requireBounds(def, args, te.Span)
		return inst

	default:
		c.ctx.errorf(diag.SemaUnknownName, te.Span, "%s is not a type", c.ctx.name(sym.Name))
		return types.NoTypeID
	}
}

// lookupTypeSymbol resolves a name path in the type namespace. Relative
// multi-segment paths walk outward to find the first namespace, then
// descend; root-qualified paths descend from the global scope.
func (c *Checker) lookupTypeSymbol(path ast.Path, scope symbols.ScopeID) (symbols.SymbolID, bool) {
	return c.lookupSymbol(path, symbols.NSType, scope)
}

func (c *Checker) lookupSymbol(path ast.Path, ns symbols.Namespace, scope symbols.ScopeID) (symbols.SymbolID, bool) {
	syms := c.ctx.Symbols
	if path.RootQualified {
		return syms.LookupQualified(path.Segments, ns)
	}
	switch len(path.Segments) {
	case 0:
		return symbols.NoSymbolID, false
	case 1:
		return syms.Lookup(path.Segments[0], ns, scope)
	}
	// Find the leading namespace lexically, then descend.
	nsSym, ok := syms.Lookup(path.Segments[0], symbols.NSType, scope)
	if !ok || syms.Symbol(nsSym).Kind != symbols.SymbolNamespaceDecl {
		return symbols.NoSymbolID, false
	}
	cur := symbols.ScopeID(syms.Symbol(nsSym).Ref)
	for _, seg := range path.Segments[1 : len(path.Segments)-1] {
		next, ok := syms.NestedNamespace(cur, seg)
		if !ok {
			return symbols.NoSymbolID, false
		}
		cur = next
	}
	return syms.LookupLocal(path.Segments[len(path.Segments)-1], ns, cur)
}

func (c *Checker) pathString(path ast.Path) string {
	var sb strings.Builder
	if path.RootQualified {
		sb.WriteString("::")
	}
	for i, seg := range path.Segments {
		if i > 0 {
			sb.WriteString("::")
		}
		sb.WriteString(c.ctx.name(seg))
	}
	return sb.String()
}

func (c *Checker) reportAlgebraError(err error, te *ast.TypeExpr) {
	var dup *types.DuplicateFieldError
	var unknown *types.UnknownFieldError
	var nonStruct *types.NotAStructError
	switch {
	case errors.As(err, &dup):
		c.ctx.errorf(diag.SemaDuplicateField, te.Span, "field %s exists in both operands", c.ctx.name(dup.Name))
	case errors.As(err, &unknown):
		c.ctx.errorf(diag.SemaUnknownField, te.Span, "cannot remove %s: no such field", c.ctx.name(unknown.Name))
	case errors.As(err, &nonStruct):
		c.ctx.errorf(diag.SemaNotAStruct, te.Span, "struct operator applied to %s", c.ctx.label(nonStruct.Type))
	default:
		c.ctx.errorf(diag.SemaTypeMismatch, te.Span, "%v", err)
	}
}

func (c *Checker) reportGenericError(err error, te *ast.TypeExpr, sym *symbols.Symbol) {
	var arity *generics.ArityMismatchError
	var depth *generics.RecursionLimitError
	switch {
	case errors.As(err, &arity):
		c.ctx.errorf(diag.SemaArityMismatch, te.Span, "%s expects %d type arguments, got %d",
			c.ctx.name(sym.Name), arity.Want, arity.Got)
	case errors.As(err, &depth):
		c.ctx.errorf(diag.SemaRecursionLimit, te.Span, "instantiating %s recurses past depth %d",
			c.ctx.name(sym.Name), generics.MaxDepth)
	default:
		c.ctx.errorf(diag.SemaTypeMismatch, te.Span, "%v", err)
	}
}
