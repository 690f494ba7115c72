package generics

import (
	"rill/internal/types"
)

// Subst applies a parameter-to-argument mapping to a type expression tree,
// rebuilding only what actually changes and memoizing per input TypeID.
type Subst struct {
	engine  *Engine
	mapping map[types.TypeID]types.TypeID // param -> argument
	cache   map[types.TypeID]types.TypeID
}

// NewSubst builds a substitution for one instantiation.
func NewSubst(e *Engine, params, args []types.TypeID) *Subst {
	mapping := make(map[types.TypeID]types.TypeID, len(params))
	for i, p := range params {
		if i < len(args) {
			mapping[p] = args[i]
		}
	}
	return &Subst{
		engine:  e,
		mapping: mapping,
		cache:   make(map[types.TypeID]types.TypeID, 16),
	}
}

// Apply substitutes every parameter occurrence inside id.
func (s *Subst) Apply(id types.TypeID) (types.TypeID, error) {
	if id == types.NoTypeID {
		return id, nil
	}
	if cached, ok := s.cache[id]; ok {
		return cached, nil
	}
	out, err := s.apply(id)
	if err != nil {
		return types.NoTypeID, err
	}
	s.cache[id] = out
	return out, nil
}

func (s *Subst) apply(id types.TypeID) (types.TypeID, error) {
	tbl := s.engine.types
	tt, ok := tbl.Lookup(id)
	if !ok {
		return id, nil
	}

	switch tt.Kind {
	case types.KindGenericParam:
		if repl, ok := s.mapping[id]; ok && repl != types.NoTypeID {
			return repl, nil
		}
		// A parameter of an enclosing definition: leave it for the outer
		// instantiation to resolve.
		return id, nil

	case types.KindPointer, types.KindReference, types.KindArray:
		elem, err := s.Apply(tt.Elem)
		if err != nil {
			return types.NoTypeID, err
		}
		if elem == tt.Elem {
			return id, nil
		}
		clone := tt
		clone.Elem = elem
		return tbl.Intern(clone), nil

	case types.KindStruct:
		info, ok := tbl.StructInfo(id)
		if !ok || info.Nominal {
			// Nominal types never contain free parameters of another
			// definition; they stand for themselves.
			return id, nil
		}
		changed := false
		fields := make([]types.StructField, len(info.Fields))
		for i, f := range info.Fields {
			ft, err := s.Apply(f.Type)
			if err != nil {
				return types.NoTypeID, err
			}
			if ft != f.Type {
				changed = true
			}
			fields[i] = types.StructField{Name: f.Name, Type: ft}
		}
		if !changed {
			return id, nil
		}
		return tbl.InternStructural(fields), nil

	case types.KindEnum:
		info, ok := tbl.EnumInfo(id)
		if !ok || info.Nominal {
			return id, nil
		}
		changed := false
		variants := make([]types.EnumVariant, len(info.Variants))
		for i, v := range info.Variants {
			payload := v.Payload
			if payload != types.NoTypeID {
				pt, err := s.Apply(payload)
				if err != nil {
					return types.NoTypeID, err
				}
				if pt != payload {
					changed = true
				}
				payload = pt
			}
			variants[i] = types.EnumVariant{Name: v.Name, Payload: payload}
		}
		if !changed {
			return id, nil
		}
		return tbl.InternStructuralEnum(variants), nil

	case types.KindAlias:
		target, ok := tbl.AliasTarget(id)
		if !ok {
			return id, nil
		}
		return s.Apply(target)

	case types.KindInstantiated:
		info, ok := tbl.InstInfo(id)
		if !ok {
			return id, nil
		}
		changed := false
		args := make([]types.TypeID, len(info.Args))
		for i, a := range info.Args {
			at, err := s.Apply(a)
			if err != nil {
				return types.NoTypeID, err
			}
			if at != a {
				changed = true
			}
			args[i] = at
		}
		if !changed {
			return id, nil
		}
		// Re-instantiate with the substituted arguments; this may recurse
		// and is what the engine's depth guard protects.
		return s.engine.InstantiateType(info.Origin, args)

	default:
		return id, nil
	}
}
