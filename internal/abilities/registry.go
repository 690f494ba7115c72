// Package abilities stores ability declarations and per-type implementations
// and resolves method calls to concrete impls. Registration is unconditional
// and order independent: an impl may appear after its first call site.
package abilities

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/source"
	"rill/internal/types"
)

// AbilityID identifies a declared ability.
type AbilityID uint32

const NoAbilityID AbilityID = 0

func (id AbilityID) IsValid() bool { return id != NoAbilityID }

// ImplID identifies a registered implementation.
type ImplID uint32

const NoImplID ImplID = 0

func (id ImplID) IsValid() bool { return id != NoImplID }

// FuncRef points at the checker's function arena; the registry treats it as
// an opaque handle.
type FuncRef uint32

// MethodSig is one method signature inside an ability. Params excludes the
// receiver, which is always the implementing type.
type MethodSig struct {
	Name   source.StringID
	Params []types.TypeID
	Result types.TypeID
	Span   source.Span
}

// Ability is a named set of method signatures a type may implement.
type Ability struct {
	Name    source.StringID
	Decl    source.Span
	Methods []MethodSig
}

// MethodIndex finds a method by name inside the ability.
func (a *Ability) MethodIndex(name source.StringID) (int, bool) {
	for i := range a.Methods {
		if a.Methods[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Impl is a concrete implementation of one ability for one type identity.
type Impl struct {
	Ability AbilityID
	Target  types.TypeID // canonical
	Decl    source.Span
	// Methods[i] implements Ability.Methods[i].
	Methods []FuncRef
}

type implKey struct {
	Ability AbilityID
	Target  types.TypeID
}

// Registry holds every ability and impl of a compilation. Entries are
// created during declaration collection and only read afterwards.
type Registry struct {
	types *types.Table

	abilities []Ability
	impls     []Impl
	implIndex map[implKey]ImplID
	byMethod  map[source.StringID][]AbilityID
}

// NewRegistry creates an empty registry bound to a type table.
func NewRegistry(tbl *types.Table) *Registry {
	return &Registry{
		types:     tbl,
		abilities: make([]Ability, 1, 8), // slot 0 reserved
		impls:     make([]Impl, 1, 16),
		implIndex: make(map[implKey]ImplID, 16),
		byMethod:  make(map[source.StringID][]AbilityID, 16),
	}
}

// DeclareAbility registers a new ability and indexes its method names.
func (r *Registry) DeclareAbility(name source.StringID, decl source.Span, methods []MethodSig) AbilityID {
	n, err := safecast.Conv[uint32](len(r.abilities))
	if err != nil {
		panic(fmt.Errorf("ability arena overflow: %w", err))
	}
	id := AbilityID(n)
	r.abilities = append(r.abilities, Ability{Name: name, Decl: decl, Methods: methods})
	for _, m := range methods {
		r.byMethod[m.Name] = append(r.byMethod[m.Name], id)
	}
	return id
}

// Ability returns the declaration for an ID.
func (r *Registry) Ability(id AbilityID) *Ability {
	if !id.IsValid() || int(id) >= len(r.abilities) {
		panic("abilities: invalid AbilityID")
	}
	return &r.abilities[id]
}

// DuplicateImplError reports a second impl for one (ability, type) pair.
type DuplicateImplError struct {
	Ability  AbilityID
	Target   types.TypeID
	Existing ImplID
}

func (e *DuplicateImplError) Error() string {
	return fmt.Sprintf("duplicate impl of ability %d for type %d", e.Ability, e.Target)
}

// DeclareImpl registers an implementation. At most one impl may exist per
// (ability, target identity) pair; the target is canonicalized first so an
// impl on an alias is an impl on its underlying type.
func (r *Registry) DeclareImpl(ability AbilityID, target types.TypeID, decl source.Span, methods []FuncRef) (ImplID, error) {
	key := implKey{Ability: ability, Target: r.types.Canonical(target)}
	if existing, ok := r.implIndex[key]; ok {
		return NoImplID, &DuplicateImplError{Ability: ability, Target: key.Target, Existing: existing}
	}
	n, err := safecast.Conv[uint32](len(r.impls))
	if err != nil {
		panic(fmt.Errorf("impl arena overflow: %w", err))
	}
	id := ImplID(n)
	r.impls = append(r.impls, Impl{Ability: ability, Target: key.Target, Decl: decl, Methods: methods})
	r.implIndex[key] = id
	return id, nil
}

// Impl returns the implementation for an ID.
func (r *Registry) Impl(id ImplID) *Impl {
	if !id.IsValid() || int(id) >= len(r.impls) {
		panic("abilities: invalid ImplID")
	}
	return &r.impls[id]
}

// ImplFor returns the impl of ability for the canonical identity of target.
func (r *Registry) ImplFor(ability AbilityID, target types.TypeID) (ImplID, bool) {
	id, ok := r.implIndex[implKey{Ability: ability, Target: r.types.Canonical(target)}]
	return id, ok
}
