package symbols

import (
	"rill/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid   ScopeKind = iota
	ScopeRoot                // the one global scope
	ScopeNamespace           // a declared namespace
	ScopeFunction            // function body scope
	ScopeBlock               // nested block scope
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRoot:
		return "root"
	case ScopeNamespace:
		return "namespace"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope. Each scope holds two independent name
// indexes, one per Namespace, plus a by-name index of nested namespace
// scopes for qualified path resolution.
type Scope struct {
	Kind     ScopeKind
	Parent   ScopeID
	Name     source.StringID // namespaces only
	Span     source.Span
	names    [2]map[source.StringID]SymbolID
	nested   map[source.StringID]ScopeID
	Children []ScopeID
}

func (s *Scope) nameIndex(ns Namespace) map[source.StringID]SymbolID {
	if s.names[ns] == nil {
		s.names[ns] = make(map[source.StringID]SymbolID, 8)
	}
	return s.names[ns]
}
