package generics

import (
	"fmt"

	"rill/internal/source"
	"rill/internal/types"
)

// Variant order inside the intrinsic optional enum. The discriminant values
// are ABI: None is 0, Some is 1.
const (
	OptionNoneIndex = 0
	OptionSomeIndex = 1
)

// registerIntrinsics declares the built-in Option and Array generics. They
// are ordinary definitions with provenance, so user code instantiating them
// through any route converges on the same identities.
func (e *Engine) registerIntrinsics(strs *source.Interner) {
	tbl := e.types

	e.Option = e.Declare(DefType, strs.Intern("Option"), source.Span{})
	optParam := tbl.InternParam(strs.Intern("T"), e.Option, 0, 0)
	e.SetParams(e.Option, []types.TypeID{optParam})
	e.SetBody(e.Option, tbl.InternStructuralEnum([]types.EnumVariant{
		{Name: strs.Intern("None")},
		{Name: strs.Intern("Some"), Payload: optParam},
	}))

	e.Array = e.Declare(DefType, strs.Intern("Array"), source.Span{})
	arrParam := tbl.InternParam(strs.Intern("T"), e.Array, 0, 0)
	e.SetParams(e.Array, []types.TypeID{arrParam})
	e.SetBody(e.Array, tbl.Intern(types.MakeArray(arrParam)))
}

// MakeOption returns the Option instantiation for a payload type.
func (e *Engine) MakeOption(payload types.TypeID) types.TypeID {
	id, err := e.InstantiateType(e.Option, []types.TypeID{payload})
	if err != nil {
		panic(fmt.Errorf("generics: intrinsic Option instantiation failed: %w", err))
	}
	return id
}

// IsOption reports whether id is an Option instantiation, whatever produced
// it.
func (e *Engine) IsOption(id types.TypeID) bool {
	return e.OriginatesFrom(id, e.Option)
}

// OptionPayload returns the payload type of an Option instantiation.
func (e *Engine) OptionPayload(id types.TypeID) (types.TypeID, bool) {
	info, ok := e.types.InstInfo(e.types.Canonical(id))
	if !ok || info.Origin != e.Option || len(info.Args) != 1 {
		return types.NoTypeID, false
	}
	return info.Args[0], true
}

// MakeArrayOf returns the Array instantiation for an element type.
func (e *Engine) MakeArrayOf(elem types.TypeID) types.TypeID {
	id, err := e.InstantiateType(e.Array, []types.TypeID{elem})
	if err != nil {
		panic(fmt.Errorf("generics: intrinsic Array instantiation failed: %w", err))
	}
	return id
}

// IsArray reports whether id is an Array instantiation.
func (e *Engine) IsArray(id types.TypeID) bool {
	return e.OriginatesFrom(id, e.Array)
}

// ArrayElem returns the element type of an Array instantiation.
func (e *Engine) ArrayElem(id types.TypeID) (types.TypeID, bool) {
	info, ok := e.types.InstInfo(e.types.Canonical(id))
	if !ok || info.Origin != e.Array || len(info.Args) != 1 {
		return types.NoTypeID, false
	}
	return info.Args[0], true
}
