package sema

import (
	"rill/internal/abilities"
	"rill/internal/ast"
	"rill/internal/generics"
	"rill/internal/hir"
	"rill/internal/patterns"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// funcInfo is the checker's record of one function awaiting (or holding)
// a checked body.
type funcInfo struct {
	item   ast.ItemID
	scope  symbols.ScopeID // scope the declaration lives in
	params []types.TypeID
	result types.TypeID
	fid    hir.FuncID
	// set on generic instances only
	origin generics.DefID
	args   []types.TypeID
}

// genSig is the unsubstituted signature of a generic function, with
// KindGenericParam types standing in for the parameters.
type genSig struct {
	item   ast.ItemID
	scope  symbols.ScopeID
	params []types.TypeID
	result types.TypeID
	names  []source.StringID // type-parameter names, in declaration order
}

type resolveState uint8

const (
	stateUnresolved resolveState = iota
	stateResolving
	stateDone
)

// pendingType defers shape resolution until every nominal identity
// exists, which is what allows mutually recursive declarations. Shapes
// resolve on demand: a declaration referencing another forces it first.
type pendingType struct {
	item  ast.ItemID
	scope symbols.ScopeID
	id    types.TypeID   // nominal identity (non-generic decls)
	def   generics.DefID // generic decls
	env   typeEnv        // generic parameter environment
	state resolveState
}

type pendingAbility struct {
	item  ast.ItemID
	scope symbols.ScopeID
	sym   symbols.SymbolID
}

type pendingImpl struct {
	item  ast.ItemID
	scope symbols.ScopeID
}

// boundCheck defers an ability-bound check until impls are registered,
// so an impl declared after the use site still satisfies the bound.
type boundCheck struct {
	def  generics.DefID
	args []types.TypeID
	span source.Span
}

// typeEnv maps in-scope generic parameter names to their TypeIDs (the
// parameter itself during declaration checking, the concrete argument
// inside an instantiated body).
type typeEnv map[source.StringID]types.TypeID

// Checker runs both analysis passes over one unit.
type Checker struct {
	ctx  *Context
	unit *ast.Unit
	mod  *hir.Module

	pendingTypes     []*pendingType
	pendingAbilities []pendingAbility
	pendingImpls     []pendingImpl
	funcs            []*funcInfo
	genericSigs      map[generics.DefID]*genSig
	patterns         *patterns.Builder

	symPending  map[symbols.SymbolID]*pendingType
	defPending  map[generics.DefID]*pendingType
	defBounds   map[generics.DefID][]abilities.AbilityID
	boundChecks []boundCheck
	implsDone   bool

	// current function, body pass only
	curResult types.TypeID
	curScope  symbols.ScopeID
	curEnv    typeEnv
}

// NewChecker binds a checker to a context and one unit.
func NewChecker(ctx *Context, unit *ast.Unit) *Checker {
	return &Checker{
		ctx:         ctx,
		unit:        unit,
		mod:         hir.NewModule(unit.Name, ctx.Types),
		genericSigs: make(map[generics.DefID]*genSig),
		symPending:  make(map[symbols.SymbolID]*pendingType),
		defPending:  make(map[generics.DefID]*pendingType),
		defBounds:   make(map[generics.DefID][]abilities.AbilityID),
		patterns: &patterns.Builder{
			Types:    ctx.Types,
			Generics: ctx.Generics,
			Strings:  ctx.Strings,
		},
	}
}

// Check runs declaration collection then body checking and returns the
// typed module. Errors land in the context's reporter; the module is
// returned regardless so callers can inspect partial results.
func (c *Checker) Check() *hir.Module {
	c.collectDecls()
	c.declareAbilities()
	c.resolveBounds()
	c.resolveShapes()
	c.checkInfiniteTypes()
	c.resolveSignatures()
	c.registerImpls()
	c.runDeferredBoundChecks()
	c.checkBodies()
	return c.mod
}

// Check is the package entry point: one context, one unit, one module.
func Check(ctx *Context, unit *ast.Unit) *hir.Module {
	return NewChecker(ctx, unit).Check()
}
