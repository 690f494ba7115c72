// Package generics substitutes type parameters through generic definitions
// and produces cached, structurally identified instantiations. The intrinsic
// Option and Array generics are registered here so expression sugar and the
// pattern matcher can recognize any of their instantiations by provenance
// instead of by shape.
package generics

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/ast"
	"rill/internal/source"
	"rill/internal/types"
)

// DefID identifies a generic definition. It doubles as the provenance origin
// stored on instantiated types.
type DefID = types.GenericOrigin

// NoDefID marks the absence of a definition.
const NoDefID DefID = 0

// DefKind distinguishes what a definition expands to.
type DefKind uint8

const (
	DefInvalid DefKind = iota
	DefType            // generic struct/enum/alias: expands to a type
	DefFunc            // generic function: expands to a checked body
)

// Def is one generic definition: its parameters plus the type skeleton (for
// DefType) or the AST function (for DefFunc) the parameters thread through.
type Def struct {
	Kind   DefKind
	Name   source.StringID
	Decl   source.Span
	Params []types.TypeID // KindGenericParam entries owned by this def

	Body types.TypeID // DefType: skeleton referencing Params
	Fn   ast.ItemID   // DefFunc: the declaration to re-check per instantiation
}

// MaxDepth bounds recursive instantiation. An infinitely self-referential
// generic must fail with RecursionLimitError, not exhaust memory.
const MaxDepth = 512

// ArityMismatchError reports a wrong number of type arguments.
type ArityMismatchError struct {
	Def  DefID
	Want int
	Got  int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("generic %d expects %d type arguments, got %d", e.Def, e.Want, e.Got)
}

// RecursionLimitError reports unbounded recursive instantiation.
type RecursionLimitError struct {
	Def DefID
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("instantiation of generic %d exceeds depth %d", e.Def, MaxDepth)
}

type instKey struct {
	Def     DefID
	ArgsKey string
}

// FuncInstance is one cached monomorphized function.
type FuncInstance struct {
	Def    DefID
	Args   []types.TypeID
	Params []types.TypeID // substituted signature
	Result types.TypeID
	// Index assigned by the checker's function arena once the substituted
	// body has been checked.
	Func uint32
}

// Engine owns the definitions and both instantiation caches.
type Engine struct {
	types *types.Table
	defs  []Def

	typeCache map[instKey]types.TypeID
	funcCache map[instKey]*FuncInstance
	depth     int

	// Intrinsic definitions, registered at construction.
	Option DefID
	Array  DefID
}

// NewEngine builds an engine bound to a type table, with the intrinsic
// Option and Array generics pre-registered.
func NewEngine(tbl *types.Table, strs *source.Interner) *Engine {
	e := &Engine{
		types:     tbl,
		defs:      make([]Def, 1, 16), // slot 0 reserved
		typeCache: make(map[instKey]types.TypeID, 32),
		funcCache: make(map[instKey]*FuncInstance, 16),
	}
	e.registerIntrinsics(strs)
	return e
}

// Declare registers a generic definition and returns its ID. The body
// skeleton (for DefType) is attached afterwards via SetBody, since building
// it requires the parameter TypeIDs, which require the DefID.
func (e *Engine) Declare(kind DefKind, name source.StringID, decl source.Span) DefID {
	n, err := safecast.Conv[uint32](len(e.defs))
	if err != nil {
		panic(fmt.Errorf("generic def arena overflow: %w", err))
	}
	id := DefID(n)
	e.defs = append(e.defs, Def{Kind: kind, Name: name, Decl: decl})
	e.types.SetOriginName(id, name)
	return id
}

// SetParams attaches the parameter TypeIDs to a definition.
func (e *Engine) SetParams(id DefID, params []types.TypeID) {
	e.def(id).Params = params
}

// SetBody attaches the type skeleton to a DefType definition.
func (e *Engine) SetBody(id DefID, body types.TypeID) {
	e.def(id).Body = body
}

// SetFn attaches the AST function to a DefFunc definition.
func (e *Engine) SetFn(id DefID, fn ast.ItemID) {
	e.def(id).Fn = fn
}

// Def returns the definition for an ID.
func (e *Engine) Def(id DefID) *Def {
	return e.def(id)
}

func (e *Engine) def(id DefID) *Def {
	if id == NoDefID || int(id) >= len(e.defs) {
		panic("generics: invalid DefID")
	}
	return &e.defs[id]
}

// InstantiateType expands a DefType definition for the given arguments.
// Results are cached: repeated calls with one key return the identical
// TypeID, so two use sites of Array[int] are the same type.
func (e *Engine) InstantiateType(id DefID, args []types.TypeID) (types.TypeID, error) {
	def := e.def(id)
	if len(args) != len(def.Params) {
		return types.NoTypeID, &ArityMismatchError{Def: id, Want: len(def.Params), Got: len(args)}
	}
	key := instKey{Def: id, ArgsKey: types.ArgsKey(args)}
	if cached, ok := e.typeCache[key]; ok {
		return cached, nil
	}
	if e.depth >= MaxDepth {
		return types.NoTypeID, &RecursionLimitError{Def: id}
	}
	e.depth++
	defer func() { e.depth-- }()

	sub := NewSubst(e, def.Params, args)
	underlying, err := sub.Apply(def.Body)
	if err != nil {
		return types.NoTypeID, err
	}
	inst := e.types.InternInstantiated(id, args, underlying)
	e.typeCache[key] = inst
	return inst, nil
}

// LookupFunc returns the cached instance of a generic function, if any.
func (e *Engine) LookupFunc(id DefID, args []types.TypeID) (*FuncInstance, bool) {
	inst, ok := e.funcCache[instKey{Def: id, ArgsKey: types.ArgsKey(args)}]
	return inst, ok
}

// StoreFunc caches a monomorphized function instance. The checker calls this
// after substituting the signature and before re-checking the body, so a
// recursive generic function finds its own instance in the cache.
func (e *Engine) StoreFunc(inst *FuncInstance) {
	e.funcCache[instKey{Def: inst.Def, ArgsKey: types.ArgsKey(inst.Args)}] = inst
}

// EnterInstantiation bumps the recursion guard for checker-driven function
// instantiation. The release func must be called when checking finishes.
func (e *Engine) EnterInstantiation(id DefID) (func(), error) {
	if e.depth >= MaxDepth {
		return nil, &RecursionLimitError{Def: id}
	}
	e.depth++
	return func() { e.depth-- }, nil
}

// OriginatesFrom reports whether id is an instantiation of def, however it
// was produced. Aliases are seen through; shape is never consulted.
func (e *Engine) OriginatesFrom(id types.TypeID, def DefID) bool {
	info, ok := e.types.InstInfo(e.types.Canonical(id))
	return ok && info.Origin == def
}
