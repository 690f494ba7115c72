package sema

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/abilities"
	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/generics"
	"rill/internal/hir"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// collectDecls is the first declaration sweep: every top-level name gets
// a symbol and, for nominal types, a fresh identity. Shapes, signatures
// and impl wiring come later, so declaration order never matters.
func (c *Checker) collectDecls() {
	for _, id := range c.unit.Roots {
		c.collectItem(id, c.ctx.Symbols.Root())
	}
}

func (c *Checker) collectItem(id ast.ItemID, scope symbols.ScopeID) {
	item := c.unit.Item(id)
	if item == nil {
		return
	}
	switch item.Kind {
	case ast.ItemNamespace:
		c.collectNamespace(id, item, scope)
	case ast.ItemStruct, ast.ItemEnum, ast.ItemAlias:
		c.collectTypeDecl(id, item, scope)
	case ast.ItemAbility:
		sym, ok := c.declareSymbol(symbols.Symbol{
			Name:  item.Name,
			Kind:  symbols.SymbolAbility,
			Scope: scope,
			Span:  item.Span,
		})
		if ok {
			c.pendingAbilities = append(c.pendingAbilities, pendingAbility{item: id, scope: scope, sym: sym})
		}
	case ast.ItemImpl:
		c.pendingImpls = append(c.pendingImpls, pendingImpl{item: id, scope: scope})
	case ast.ItemFunc:
		c.collectFunc(id, item, scope)
	}
}

func (c *Checker) collectNamespace(id ast.ItemID, item *ast.Item, scope symbols.ScopeID) {
	syms := c.ctx.Symbols
	// Reopening a namespace merges into the existing scope; only a clash
	// with a non-namespace type symbol is an error.
	if existing, ok := syms.LookupLocal(item.Name, symbols.NSType, scope); ok {
		if syms.Symbol(existing).Kind != symbols.SymbolNamespaceDecl {
			c.reportDuplicate(item, existing)
			return
		}
	}
	ns := syms.NewNamespace(scope, item.Name, item.Span)
	if _, ok := syms.LookupLocal(item.Name, symbols.NSType, scope); !ok {
		c.declareSymbol(symbols.Symbol{
			Name:  item.Name,
			Kind:  symbols.SymbolNamespaceDecl,
			Scope: scope,
			Span:  item.Span,
			Ref:   uint32(ns),
		})
	}
	for _, member := range item.Items {
		c.collectItem(member, ns)
	}
}

func (c *Checker) collectTypeDecl(id ast.ItemID, item *ast.Item, scope symbols.ScopeID) {
	if len(item.TypeParams) == 0 {
		var tid types.TypeID
		switch item.Kind {
		case ast.ItemStruct:
			tid = c.ctx.Types.RegisterStruct(item.Name, item.Span)
		case ast.ItemEnum:
			tid = c.ctx.Types.RegisterEnum(item.Name, item.Span)
		case ast.ItemAlias:
			tid = c.ctx.Types.RegisterAlias(item.Name, item.Span)
		}
		sym, ok := c.declareSymbol(symbols.Symbol{
			Name:  item.Name,
			Kind:  symbols.SymbolType,
			Scope: scope,
			Span:  item.Span,
			Type:  tid,
		})
		if !ok {
			return
		}
		p := &pendingType{item: id, scope: scope, id: tid}
		c.pendingTypes = append(c.pendingTypes, p)
		c.symPending[sym] = p
		return
	}

	def := c.ctx.Generics.Declare(generics.DefType, item.Name, item.Span)
	params, env := c.declareTypeParams(def, item.TypeParams)
	c.ctx.Generics.SetParams(def, params)
	sym, ok := c.declareSymbol(symbols.Symbol{
		Name:  item.Name,
		Kind:  symbols.SymbolGenericType,
		Scope: scope,
		Span:  item.Span,
		Ref:   uint32(def),
	})
	if !ok {
		return
	}
	p := &pendingType{item: id, scope: scope, def: def, env: env}
	c.pendingTypes = append(c.pendingTypes, p)
	c.symPending[sym] = p
	c.defPending[def] = p
}

func (c *Checker) collectFunc(id ast.ItemID, item *ast.Item, scope symbols.ScopeID) {
	if len(item.TypeParams) == 0 {
		var flags symbols.SymbolFlags
		if item.Extern {
			flags |= symbols.SymbolFlagExtern
		}
		ref, err := safecast.Conv[uint32](len(c.funcs))
		if err != nil {
			panic(fmt.Errorf("function arena overflow: %w", err))
		}
		_, ok := c.declareSymbol(symbols.Symbol{
			Name:  item.Name,
			Kind:  symbols.SymbolFunction,
			Scope: scope,
			Span:  item.Span,
			Flags: flags,
			Ref:   ref,
		})
		if !ok {
			return
		}
		c.funcs = append(c.funcs, &funcInfo{item: id, scope: scope})
		return
	}

	def := c.ctx.Generics.Declare(generics.DefFunc, item.Name, item.Span)
	c.ctx.Generics.SetFn(def, id)
	params, _ := c.declareTypeParams(def, item.TypeParams)
	c.ctx.Generics.SetParams(def, params)
	if _, ok := c.declareSymbol(symbols.Symbol{
		Name:  item.Name,
		Kind:  symbols.SymbolGenericFunction,
		Scope: scope,
		Span:  item.Span,
		Ref:   uint32(def),
	}); !ok {
		return
	}
	gs := &genSig{item: id, scope: scope}
	for _, tp := range item.TypeParams {
		gs.names = append(gs.names, tp.Name)
	}
	c.genericSigs[def] = gs
}

// declareTypeParams interns one KindGenericParam per declared parameter
// and builds the name environment for resolving the definition's body.
func (c *Checker) declareTypeParams(def generics.DefID, decls []ast.TypeParam) ([]types.TypeID, typeEnv) {
	params := make([]types.TypeID, len(decls))
	env := make(typeEnv, len(decls))
	for i, tp := range decls {
		idx, err := safecast.Conv[uint8](i)
		if err != nil {
			panic(fmt.Errorf("type parameter count overflow: %w", err))
		}
		params[i] = c.ctx.Types.InternParam(tp.Name, def, idx, 0)
		env[tp.Name] = params[i]
	}
	return params, env
}

func (c *Checker) declareSymbol(sym symbols.Symbol) (symbols.SymbolID, bool) {
	id, existing, ok := c.ctx.Symbols.Declare(sym)
	if !ok {
		item := &ast.Item{Name: sym.Name, Span: sym.Span}
		c.reportDuplicate(item, existing)
		return symbols.NoSymbolID, false
	}
	return id, true
}

func (c *Checker) reportDuplicate(item *ast.Item, existing symbols.SymbolID) {
	prev := c.ctx.Symbols.Symbol(existing)
	d := diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.SemaDuplicateSymbol,
		Message:  fmt.Sprintf("%s is already declared in this scope", c.ctx.name(item.Name)),
		Primary:  item.Span,
	}
	if !prev.Span.Empty() {
		d = d.WithNote(prev.Span, "previous declaration here")
	}
	c.ctx.Reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
}

// declareAbilities resolves every ability's method signatures and hands
// them to the registry. Runs before shape resolution so bounds can name
// abilities regardless of order.
func (c *Checker) declareAbilities() {
	for _, pa := range c.pendingAbilities {
		item := c.unit.Item(pa.item)
		methods := make([]abilities.MethodSig, 0, len(item.Methods))
		for _, m := range item.Methods {
			sig := abilities.MethodSig{Name: m.Name, Span: m.Span}
			for _, p := range m.Params {
				sig.Params = append(sig.Params, c.resolveTypeExpr(p.Type, pa.scope, nil))
			}
			sig.Result = c.resolveResult(m.Result, pa.scope, nil)
			methods = append(methods, sig)
		}
		aid := c.ctx.Abilities.DeclareAbility(item.Name, item.Span, methods)
		c.ctx.Symbols.Symbol(pa.sym).Ref = uint32(aid)
	}
}

// resolveBounds maps each generic parameter's declared bound to an
// ability id. Enforcement is deferred (see boundCheck).
func (c *Checker) resolveBounds() {
	resolve := func(def generics.DefID, scope symbols.ScopeID, decls []ast.TypeParam) {
		bounds := make([]abilities.AbilityID, len(decls))
		var any bool
		for i, tp := range decls {
			if len(tp.Bound.Segments) == 0 {
				continue
			}
			sym, ok := c.lookupTypeSymbol(tp.Bound, scope)
			if !ok {
				c.ctx.errorf(diag.SemaUnknownName, tp.Span, "unknown ability %s", c.pathString(tp.Bound))
				continue
			}
			s := c.ctx.Symbols.Symbol(sym)
			if s.Kind != symbols.SymbolAbility {
				c.ctx.errorf(diag.SemaTypeMismatch, tp.Span, "%s is not an ability", c.ctx.name(s.Name))
				continue
			}
			bounds[i] = abilities.AbilityID(s.Ref)
			any = true
		}
		if any {
			c.defBounds[def] = bounds
		}
	}
	for _, p := range c.pendingTypes {
		if p.def != generics.NoDefID {
			resolve(p.def, p.scope, c.unit.Item(p.item).TypeParams)
		}
	}
	for def, gs := range c.genericSigs {
		resolve(def, gs.scope, c.unit.Item(gs.item).TypeParams)
	}
}

// resolveShapes attaches fields, variants and alias targets. Resolution
// is demand driven: resolveTypeExpr forces any unresolved declaration it
// meets, so cross references work in either order.
func (c *Checker) resolveShapes() {
	for _, p := range c.pendingTypes {
		c.resolvePending(p)
	}
}

func (c *Checker) resolvePending(p *pendingType) {
	switch p.state {
	case stateDone:
		return
	case stateResolving:
		// Nominal identities already exist, so self reference through a
		// struct or enum is fine; an alias or generic body needing its
		// own expansion is a true cycle.
		item := c.unit.Item(p.item)
		if p.id == types.NoTypeID {
			c.ctx.errorf(diag.SemaRecursionLimit, item.Span, "type %s is defined in terms of itself", c.ctx.name(item.Name))
		}
		return
	}
	p.state = stateResolving
	defer func() { p.state = stateDone }()

	item := c.unit.Item(p.item)
	switch item.Kind {
	case ast.ItemStruct:
		fields := make([]types.StructField, 0, len(item.Fields))
		seen := make(map[source.StringID]struct{}, len(item.Fields))
		for _, f := range item.Fields {
			if _, dup := seen[f.Name]; dup {
				c.ctx.errorf(diag.SemaDuplicateField, f.Span, "duplicate field %s", c.ctx.name(f.Name))
				continue
			}
			seen[f.Name] = struct{}{}
			fields = append(fields, types.StructField{Name: f.Name, Type: c.resolveTypeExpr(f.Type, p.scope, p.env)})
		}
		if p.def != generics.NoDefID {
			c.ctx.Generics.SetBody(p.def, c.ctx.Types.InternStructural(fields))
		} else {
			c.ctx.Types.SetStructFields(p.id, fields)
		}
	case ast.ItemEnum:
		variants := make([]types.EnumVariant, 0, len(item.Variants))
		for _, v := range item.Variants {
			ev := types.EnumVariant{Name: v.Name}
			if v.Payload.IsValid() {
				ev.Payload = c.resolveTypeExpr(v.Payload, p.scope, p.env)
			}
			variants = append(variants, ev)
		}
		if p.def != generics.NoDefID {
			c.ctx.Generics.SetBody(p.def, c.ctx.Types.InternStructuralEnum(variants))
		} else {
			c.ctx.Types.SetEnumVariants(p.id, variants)
		}
	case ast.ItemAlias:
		target := c.resolveTypeExpr(item.Target, p.scope, p.env)
		if p.def != generics.NoDefID {
			c.ctx.Generics.SetBody(p.def, target)
		} else if target != types.NoTypeID {
			c.ctx.Types.SetAliasTarget(p.id, target)
		}
	}
}

// resolveSignatures resolves parameter and result types for every
// function, generic definitions included, and reserves the output slots
// for the non-generic ones.
func (c *Checker) resolveSignatures() {
	for _, fi := range c.funcs {
		item := c.unit.Item(fi.item)
		fi.params = make([]types.TypeID, len(item.Params))
		hirParams := make([]hir.Param, len(item.Params))
		for i, p := range item.Params {
			fi.params[i] = c.resolveTypeExpr(p.Type, fi.scope, nil)
			hirParams[i] = hir.Param{Name: p.Name, Type: fi.params[i]}
		}
		fi.result = c.resolveResult(item.Result, fi.scope, nil)
		var flags hir.FuncFlags
		if item.Extern {
			flags |= hir.FuncFlagExtern
		}
		fi.fid = c.mod.AddFunc(hir.Func{
			Name:   item.Name,
			Span:   item.Span,
			Params: hirParams,
			Result: fi.result,
			Flags:  flags,
		})
	}
	for def, gs := range c.genericSigs {
		item := c.unit.Item(gs.item)
		env := c.paramEnv(def, gs.names)
		gs.params = make([]types.TypeID, len(item.Params))
		for i, p := range item.Params {
			gs.params[i] = c.resolveTypeExpr(p.Type, gs.scope, env)
		}
		gs.result = c.resolveResult(item.Result, gs.scope, env)
	}
}

// paramEnv rebuilds the name environment of a generic definition from
// its interned parameter types.
func (c *Checker) paramEnv(def generics.DefID, names []source.StringID) typeEnv {
	d := c.ctx.Generics.Def(def)
	env := make(typeEnv, len(names))
	for i, name := range names {
		if i < len(d.Params) {
			env[name] = d.Params[i]
		}
	}
	return env
}

func (c *Checker) resolveResult(te ast.TypeExprID, scope symbols.ScopeID, env typeEnv) types.TypeID {
	if !te.IsValid() {
		return c.ctx.Types.Builtins().Unit
	}
	return c.resolveTypeExpr(te, scope, env)
}

func (c *Checker) runDeferredBoundChecks() {
	c.implsDone = true
	for _, bc := range c.boundChecks {
		c.checkBoundsNow(bc.def, bc.args, bc.span)
	}
	c.boundChecks = nil
}

// checkBoundsNow verifies each type argument implements its parameter's
// bound. Only meaningful once every impl is registered.
func (c *Checker) checkBoundsNow(def generics.DefID, args []types.TypeID, span source.Span) {
	bounds, ok := c.defBounds[def]
	if !ok {
		return
	}
	for i, bound := range bounds {
		if !bound.IsValid() || i >= len(args) || args[i] == types.NoTypeID {
			continue
		}
		if _, ok := c.ctx.Abilities.ImplFor(bound, args[i]); !ok {
			ability := c.ctx.Abilities.Ability(bound)
			c.ctx.errorf(diag.SemaTypeMismatch, span, "type %s does not implement ability %s",
				c.ctx.label(args[i]), c.ctx.name(ability.Name))
		}
	}
}

// requireBounds enforces or defers a bound check depending on phase.
func (c *Checker) requireBounds(def generics.DefID, args []types.TypeID, span source.Span) {
	if _, ok := c.defBounds[def]; !ok {
		return
	}
	if c.implsDone {
		c.checkBoundsNow(def, args, span)
		return
	}
	c.boundChecks = append(c.boundChecks, boundCheck{def: def, args: append([]types.TypeID(nil), args...), span: span})
}

// checkInfiniteTypes rejects nominal declarations that store themselves
// inline. Struct fields and enum payloads occupy space in the containing
// value, so a cycle through them has no finite size; pointer, reference
// and array edges indirect and keep the cycle legal.
func (c *Checker) checkInfiniteTypes() {
	for _, p := range c.pendingTypes {
		if p.id == types.NoTypeID {
			continue // generic definitions are sized per instantiation
		}
		if !c.storesInline(p.id, p.id, map[types.TypeID]struct{}{}) {
			continue
		}
		item := c.unit.Item(p.item)
		c.ctx.errorf(diag.SemaInfiniteType, item.Span,
			"type %s has infinite size; break the cycle with a pointer or reference",
			c.ctx.name(item.Name))
	}
}

// storesInline reports whether needle occupies inline storage somewhere
// inside id, resolving aliases and instantiations as it walks.
func (c *Checker) storesInline(id, needle types.TypeID, visiting map[types.TypeID]struct{}) bool {
	id = c.ctx.Types.Underlying(id)
	if _, seen := visiting[id]; seen {
		return false
	}
	visiting[id] = struct{}{}
	tt, ok := c.ctx.Types.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindStruct:
		info, _ := c.ctx.Types.StructInfo(id)
		for _, f := range info.Fields {
			if c.inlineEdgeHits(f.Type, needle, visiting) {
				return true
			}
		}
	case types.KindEnum:
		info, _ := c.ctx.Types.EnumInfo(id)
		for _, v := range info.Variants {
			if v.Payload != types.NoTypeID && c.inlineEdgeHits(v.Payload, needle, visiting) {
				return true
			}
		}
	}
	return false
}

func (c *Checker) inlineEdgeHits(ft, needle types.TypeID, visiting map[types.TypeID]struct{}) bool {
	if ft == types.NoTypeID {
		return false
	}
	if c.ctx.Types.Canonical(ft) == needle {
		return true
	}
	return c.storesInline(ft, needle, visiting)
}
