package hir

import (
	"strings"

	"rill/internal/generics"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// FuncFlags carries boolean properties of a checked function.
type FuncFlags uint8

const (
	// FuncFlagExtern marks a signature-only function provided by the
	// host; Body is NoExprID.
	FuncFlagExtern FuncFlags = 1 << iota
	// FuncFlagInstance marks a function produced by instantiating a
	// generic definition; Origin and Args identify it.
	FuncFlagInstance
)

func (f FuncFlags) Has(flag FuncFlags) bool { return f&flag != 0 }

func (f FuncFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(FuncFlagExtern) {
		parts = append(parts, "extern")
	}
	if f.Has(FuncFlagInstance) {
		parts = append(parts, "instance")
	}
	return strings.Join(parts, "|")
}

// Param is a checked function parameter.
type Param struct {
	Name source.StringID
	Sym  symbols.SymbolID
	Type types.TypeID
}

// Func is a fully checked function body plus its signature. Generic
// functions themselves never appear here; only their instances do.
type Func struct {
	Name   source.StringID
	Span   source.Span
	Params []Param
	Result types.TypeID
	Body   ExprID
	Flags  FuncFlags

	// Instance provenance, set when Flags has FuncFlagInstance.
	Origin generics.DefID
	Args   []types.TypeID
}
