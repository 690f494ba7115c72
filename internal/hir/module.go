// Package hir holds the typed intermediate form produced by semantic
// analysis: flat expression arenas annotated with interned types, and
// function records with all names, fields, variants and methods
// resolved to indices.
package hir

import (
	"fortio.org/safecast"

	"rill/internal/types"
)

// Module is the checked output for one compilation unit. It borrows
// the type table it was checked against; the table outlives the
// module.
type Module struct {
	Name  string
	Types *types.Table

	funcs []Func
	exprs []Expr
}

// NewModule returns an empty module bound to table.
func NewModule(name string, table *types.Table) *Module {
	return &Module{Name: name, Types: table}
}

// AddFunc appends a function and returns its id.
func (m *Module) AddFunc(fn Func) FuncID {
	m.funcs = append(m.funcs, fn)
	return FuncID(safecast.MustConvert[uint32](len(m.funcs)))
}

// AddExpr appends an expression node and returns its id.
func (m *Module) AddExpr(e Expr) ExprID {
	m.exprs = append(m.exprs, e)
	return ExprID(safecast.MustConvert[uint32](len(m.exprs)))
}

// Func returns the function for id. The pointer stays valid until the
// next AddFunc.
func (m *Module) Func(id FuncID) *Func {
	if !id.IsValid() || int(id) > len(m.funcs) {
		panic("hir: invalid FuncID")
	}
	return &m.funcs[id-1]
}

// Expr returns the expression node for id.
func (m *Module) Expr(id ExprID) *Expr {
	if !id.IsValid() || int(id) > len(m.exprs) {
		panic("hir: invalid ExprID")
	}
	return &m.exprs[id-1]
}

// NumFuncs reports how many functions the module holds.
func (m *Module) NumFuncs() int { return len(m.funcs) }

// NumExprs reports how many expression nodes the module holds.
func (m *Module) NumExprs() int { return len(m.exprs) }

// Funcs iterates function ids in insertion order.
func (m *Module) Funcs(fn func(FuncID, *Func) bool) {
	for i := range m.funcs {
		if !fn(FuncID(i+1), &m.funcs[i]) { //nolint:gosec // bounded by AddFunc
			return
		}
	}
}
