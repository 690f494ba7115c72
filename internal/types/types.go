package types

import "fmt"

// TypeID uniquely identifies a type inside the table.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// GenericOrigin identifies the generic definition an instantiated type came
// from. Origins are allocated by the generics engine; the table only stores
// them so provenance queries never have to re-derive structure.
type GenericOrigin uint32

const NoOrigin GenericOrigin = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindChar
	KindNever
	KindInt
	KindFloat
	KindString
	KindPointer
	KindReference
	KindArray
	KindStruct
	KindEnum
	KindAlias
	KindGenericParam
	KindInstantiated
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindNever:
		return "never"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindAlias:
		return "alias"
	case KindGenericParam:
		return "generic-param"
	case KindInstantiated:
		return "instantiated"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats in bits.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Type is a compact descriptor for any supported type. Aggregate kinds store
// an index into the table's side arrays in Payload.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointer/reference/array element
	Width   Width  // numeric primitives
	Signed  bool   // integers
	Payload uint32 // struct/enum/alias/param/instantiated info slot
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes an integer of the given width and signedness.
func MakeInt(width Width, signed bool) Type {
	return Type{Kind: KindInt, Width: width, Signed: signed}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a raw pointer to elem.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeReference describes a reference to elem.
func MakeReference(elem TypeID) Type {
	return Type{Kind: KindReference, Elem: elem}
}

// MakeArray describes a dynamic array of elem.
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}
