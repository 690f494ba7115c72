package symbols

import (
	"rill/internal/source"
	"rill/internal/types"
)

// Namespace separates the two independent name tables every scope carries.
// A local value binding can share its spelling with a type without shadowing
// it for type lookups, and vice versa.
type Namespace uint8

const (
	NSType Namespace = iota
	NSValue
)

func (n Namespace) String() string {
	switch n {
	case NSType:
		return "type"
	case NSValue:
		return "value"
	default:
		return "invalid"
	}
}

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolNamespaceDecl
	SymbolType
	SymbolGenericType
	SymbolFunction
	SymbolGenericFunction
	SymbolAbility
	SymbolLet
	SymbolParam
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolNamespaceDecl:
		return "namespace"
	case SymbolType:
		return "type"
	case SymbolGenericType:
		return "generic-type"
	case SymbolFunction:
		return "function"
	case SymbolGenericFunction:
		return "generic-function"
	case SymbolAbility:
		return "ability"
	case SymbolLet:
		return "let"
	case SymbolParam:
		return "param"
	default:
		return "invalid"
	}
}

// In reports which name table the kind lives in.
func (k SymbolKind) In() Namespace {
	switch k {
	case SymbolType, SymbolGenericType, SymbolNamespaceDecl, SymbolAbility:
		return NSType
	default:
		return NSValue
	}
}

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	SymbolFlagMutable SymbolFlags = 1 << iota
	SymbolFlagExtern
	SymbolFlagBuiltin
)

// Symbol describes a named entity available in a scope. Ref is a
// kind-specific payload: the function arena index for functions, the generic
// definition id for generic kinds, the ability id for abilities, the owned
// scope for namespaces.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Scope ScopeID
	Span  source.Span
	Flags SymbolFlags
	Type  types.TypeID // declared type (types) or value type (lets/params)
	Ref   uint32
}
