// Package sema performs semantic analysis: a declaration pass that
// registers every nominal type, ability, impl and function, then a body
// pass that type-checks expressions, resolves names and methods,
// instantiates generics on demand and verifies match exhaustiveness.
// Diagnostics are collected, not thrown; analysis continues past errors
// so one run reports as much as it can.
package sema

import (
	"fmt"

	"rill/internal/abilities"
	"rill/internal/diag"
	"rill/internal/generics"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// Context bundles the shared analysis state one compilation runs against.
// All components hang off the same type table, so TypeIDs travel freely
// between them.
type Context struct {
	Files     *source.FileSet
	Strings   *source.Interner
	Types     *types.Table
	Symbols   *symbols.Table
	Abilities *abilities.Registry
	Generics  *generics.Engine
	Reporter  diag.Reporter
}

// NewContext builds a fresh analysis context with built-in types and the
// intrinsic generics bound in the root scope.
func NewContext(reporter diag.Reporter) *Context {
	strs := source.NewInterner()
	tbl := types.NewTable()
	ctx := &Context{
		Files:     source.NewFileSet(),
		Strings:   strs,
		Types:     tbl,
		Symbols:   symbols.NewTable(strs),
		Abilities: abilities.NewRegistry(tbl),
		Generics:  generics.NewEngine(tbl, strs),
		Reporter:  reporter,
	}
	if ctx.Reporter == nil {
		ctx.Reporter = diag.NopReporter{}
	}
	ctx.declareBuiltins()
	return ctx
}

func (c *Context) declareBuiltins() {
	b := c.Types.Builtins()
	prims := []struct {
		name string
		id   types.TypeID
	}{
		{"unit", b.Unit}, {"bool", b.Bool}, {"char", b.Char},
		{"never", b.Never}, {"string", b.String}, {"int", b.Int},
		{"i8", b.I8}, {"i16", b.I16}, {"i32", b.I32}, {"i64", b.I64},
		{"u8", b.U8}, {"u16", b.U16}, {"u32", b.U32}, {"u64", b.U64},
		{"f32", b.F32}, {"f64", b.F64},
	}
	for _, p := range prims {
		c.mustDeclare(symbols.Symbol{
			Name:  c.Strings.Intern(p.name),
			Kind:  symbols.SymbolType,
			Scope: c.Symbols.Root(),
			Flags: symbols.SymbolFlagBuiltin,
			Type:  p.id,
		})
	}
	for _, g := range []struct {
		name string
		def  generics.DefID
	}{
		{"Option", c.Generics.Option},
		{"Array", c.Generics.Array},
	} {
		c.mustDeclare(symbols.Symbol{
			Name:  c.Strings.Intern(g.name),
			Kind:  symbols.SymbolGenericType,
			Scope: c.Symbols.Root(),
			Flags: symbols.SymbolFlagBuiltin,
			Ref:   uint32(g.def),
		})
	}
}

func (c *Context) mustDeclare(sym symbols.Symbol) symbols.SymbolID {
	id, _, ok := c.Symbols.Declare(sym)
	if !ok {
		panic(fmt.Errorf("sema: builtin %q declared twice", c.Strings.MustLookup(sym.Name)))
	}
	return id
}

// name renders an interned identifier for diagnostics.
func (c *Context) name(id source.StringID) string {
	if s, ok := c.Strings.Lookup(id); ok && s != "" {
		return s
	}
	return fmt.Sprintf("#%d", id)
}

// label renders a type for diagnostics.
func (c *Context) label(id types.TypeID) string {
	if id == types.NoTypeID {
		return "<error>"
	}
	return c.Types.Label(id, c.Strings)
}

func (c *Context) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Error(c.Reporter, code, span, fmt.Sprintf(format, args...))
}
