package abilities

import (
	"fmt"

	"rill/internal/source"
	"rill/internal/types"
)

// Resolution is the outcome of a successful method lookup.
type Resolution struct {
	Ability     AbilityID
	Impl        ImplID
	MethodIndex int
	Func        FuncRef
	// Receiver is the canonical type the impl was registered for, after any
	// reference/pointer dereferencing.
	Receiver types.TypeID
}

// Sig returns the resolved method's signature.
func (r *Registry) Sig(res Resolution) MethodSig {
	return r.Ability(res.Ability).Methods[res.MethodIndex]
}

// UnknownMethodError reports that no ability provides the method for the type.
type UnknownMethodError struct {
	Receiver types.TypeID
	Name     source.StringID
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("type %d has no method (name id %d)", e.Receiver, e.Name)
}

// AmbiguousMethodError reports two abilities supplying the same method name
// for one receiver type.
type AmbiguousMethodError struct {
	Receiver  types.TypeID
	Name      source.StringID
	Abilities []AbilityID
}

func (e *AmbiguousMethodError) Error() string {
	return fmt.Sprintf("method (name id %d) on type %d is provided by %d abilities", e.Name, e.Receiver, len(e.Abilities))
}

// ResolveMethod finds the one impl providing method name for the receiver
// type. Reference and pointer receivers are dereferenced to their pointee
// before matching. The search covers every ability declaring the name,
// whatever order the impls were declared in.
func (r *Registry) ResolveMethod(receiver types.TypeID, name source.StringID) (Resolution, error) {
	target := r.derefReceiver(receiver)

	var found []Resolution
	var contenders []AbilityID
	for _, abilityID := range r.byMethod[name] {
		implID, ok := r.implIndex[implKey{Ability: abilityID, Target: target}]
		if !ok {
			continue
		}
		idx, ok := r.Ability(abilityID).MethodIndex(name)
		if !ok {
			continue
		}
		impl := r.Impl(implID)
		var fn FuncRef
		if idx < len(impl.Methods) {
			fn = impl.Methods[idx]
		}
		found = append(found, Resolution{
			Ability:     abilityID,
			Impl:        implID,
			MethodIndex: idx,
			Func:        fn,
			Receiver:    target,
		})
		contenders = append(contenders, abilityID)
	}

	switch len(found) {
	case 0:
		return Resolution{}, &UnknownMethodError{Receiver: target, Name: name}
	case 1:
		return found[0], nil
	default:
		return Resolution{}, &AmbiguousMethodError{Receiver: target, Name: name, Abilities: contenders}
	}
}

// derefReceiver peels references and pointers down to the canonical pointee.
func (r *Registry) derefReceiver(id types.TypeID) types.TypeID {
	id = r.types.Canonical(id)
	for {
		tt, ok := r.types.Lookup(id)
		if !ok {
			return id
		}
		switch tt.Kind {
		case types.KindReference, types.KindPointer:
			id = r.types.Canonical(tt.Elem)
		default:
			return id
		}
	}
}
