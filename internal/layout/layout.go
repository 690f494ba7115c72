package layout

import (
	"fmt"

	"rill/internal/types"
)

// TypeLayout is the computed memory layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int

	// Enum-only (tagged union):
	TagSize       int
	PayloadOffset int
}

// Engine computes and caches type layouts. Every type reaching the engine
// must be fully substituted: a generic parameter here is an internal
// invariant violation and panics.
type Engine struct {
	Target Target
	Types  *types.Table

	cache map[types.TypeID]TypeLayout
}

// New creates an Engine for the given target and type table.
func New(target Target, tbl *types.Table) *Engine {
	return &Engine{
		Target: target,
		Types:  tbl,
		cache:  make(map[types.TypeID]TypeLayout, 64),
	}
}

// Of computes (or returns the cached) layout of a type.
func (e *Engine) Of(id types.TypeID) TypeLayout {
	canon := e.Types.Underlying(id)
	if l, ok := e.cache[canon]; ok {
		return l
	}
	l := e.compute(canon, map[types.TypeID]struct{}{})
	e.cache[canon] = l
	return l
}

func (e *Engine) compute(id types.TypeID, visiting map[types.TypeID]struct{}) TypeLayout {
	id = e.Types.Underlying(id)
	if l, ok := e.cache[id]; ok {
		return l
	}
	if _, cyclic := visiting[id]; cyclic {
		panic(fmt.Sprintf("layout: by-value type cycle through type %d", id))
	}
	visiting[id] = struct{}{}
	defer delete(visiting, id)

	tt, ok := e.Types.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("layout: unknown TypeID %d", id))
	}

	switch tt.Kind {
	case types.KindUnit, types.KindNever:
		return TypeLayout{Size: 0, Align: 1}

	case types.KindBool, types.KindChar:
		return TypeLayout{Size: 1, Align: 1}

	case types.KindInt, types.KindFloat:
		return scalar(int(tt.Width) / 8)

	case types.KindString, types.KindArray:
		// Pointer + length pair.
		return TypeLayout{Size: 2 * e.Target.PtrSize, Align: e.Target.PtrAlign}

	case types.KindPointer, types.KindReference:
		return TypeLayout{Size: e.Target.PtrSize, Align: e.Target.PtrAlign}

	case types.KindStruct:
		return e.structLayout(id, visiting)

	case types.KindEnum:
		return e.enumLayout(id, visiting)

	case types.KindGenericParam:
		panic(fmt.Sprintf("layout: unsubstituted generic parameter reached layout (type %d)", id))

	default:
		panic(fmt.Sprintf("layout: unsupported kind %v", tt.Kind))
	}
}

// structLayout places fields sequentially in declaration order: each field
// starts at the smallest multiple of its own alignment past the previous
// field's end; overall alignment is the max field alignment; final size is
// padded up to a multiple of it.
func (e *Engine) structLayout(id types.TypeID, visiting map[types.TypeID]struct{}) TypeLayout {
	info, ok := e.Types.StructInfo(id)
	if !ok {
		panic(fmt.Sprintf("layout: struct TypeID %d without info", id))
	}
	offsets := make([]int, len(info.Fields))
	offset := 0
	align := 1
	for i, f := range info.Fields {
		fl := e.compute(f.Type, visiting)
		offset = alignUp(offset, fl.Align)
		offsets[i] = offset
		offset += fl.Size
		if fl.Align > align {
			align = fl.Align
		}
	}
	return TypeLayout{
		Size:         alignUp(offset, align),
		Align:        align,
		FieldOffsets: offsets,
	}
}

// enumLayout reserves a minimal discriminant followed by the largest payload.
func (e *Engine) enumLayout(id types.TypeID, visiting map[types.TypeID]struct{}) TypeLayout {
	info, ok := e.Types.EnumInfo(id)
	if !ok {
		panic(fmt.Sprintf("layout: enum TypeID %d without info", id))
	}
	tagSize := discriminantSize(len(info.Variants))
	payloadSize, payloadAlign := 0, 1
	for _, v := range info.Variants {
		if v.Payload == types.NoTypeID {
			continue
		}
		pl := e.compute(v.Payload, visiting)
		if pl.Size > payloadSize {
			payloadSize = pl.Size
		}
		if pl.Align > payloadAlign {
			payloadAlign = pl.Align
		}
	}
	align := tagSize
	if payloadAlign > align {
		align = payloadAlign
	}
	payloadOffset := alignUp(tagSize, payloadAlign)
	return TypeLayout{
		Size:          alignUp(payloadOffset+payloadSize, align),
		Align:         align,
		TagSize:       tagSize,
		PayloadOffset: payloadOffset,
	}
}

func scalar(bytes int) TypeLayout {
	if bytes < 1 {
		bytes = 1
	}
	return TypeLayout{Size: bytes, Align: bytes}
}

// discriminantSize picks the smallest power-of-two tag that can number every
// variant.
func discriminantSize(variants int) int {
	switch {
	case variants <= 1<<8:
		return 1
	case variants <= 1<<16:
		return 2
	default:
		return 4
	}
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
