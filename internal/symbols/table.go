package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/source"
)

// Table aggregates the scope and symbol arenas for one compilation.
// Slot 0 of each arena is a reserved invalid sentinel.
type Table struct {
	Strings *source.Interner
	scopes  []Scope
	symbols []Symbol
	root    ScopeID
}

// NewTable builds a fresh table with its root scope allocated.
// If strings is nil, a fresh interner is allocated.
func NewTable(strings *source.Interner) *Table {
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		Strings: strings,
		scopes:  make([]Scope, 1, 64),
		symbols: make([]Symbol, 1, 128),
	}
	t.root = t.newScope(ScopeRoot, NoScopeID, source.NoStringID, source.Span{})
	return t
}

// Root returns the global scope.
func (t *Table) Root() ScopeID {
	return t.root
}

// NewScope allocates a child scope of parent.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	return t.newScope(kind, parent, source.NoStringID, span)
}

// NewNamespace allocates (or returns the existing) namespace scope called
// name under parent. Re-opening a namespace merges into the same scope, so
// declarations can be spread over several blocks.
func (t *Table) NewNamespace(parent ScopeID, name source.StringID, span source.Span) ScopeID {
	p := t.Scope(parent)
	if p.nested != nil {
		if existing, ok := p.nested[name]; ok {
			return existing
		}
	}
	id := t.newScope(ScopeNamespace, parent, name, span)
	p = t.Scope(parent) // re-fetch: newScope may have grown the arena
	if p.nested == nil {
		p.nested = make(map[source.StringID]ScopeID, 4)
	}
	p.nested[name] = id
	return id
}

func (t *Table) newScope(kind ScopeKind, parent ScopeID, name source.StringID, span source.Span) ScopeID {
	n, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := ScopeID(n)
	t.scopes = append(t.scopes, Scope{Kind: kind, Parent: parent, Name: name, Span: span})
	if parent.IsValid() {
		p := t.Scope(parent)
		p.Children = append(p.Children, id)
	}
	return id
}

// Scope returns the scope for an ID. Panics on the invalid sentinel.
func (t *Table) Scope(id ScopeID) *Scope {
	if id == NoScopeID && t.root != NoScopeID {
		panic("symbols: invalid ScopeID")
	}
	return &t.scopes[id]
}

// Symbol returns the symbol for an ID.
func (t *Table) Symbol(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(t.symbols) {
		panic("symbols: invalid SymbolID")
	}
	return &t.symbols[id]
}

// Declare binds a symbol in its scope's table for the namespace its kind
// lives in. Redeclaring a name in the same scope and namespace fails; the
// existing symbol is returned so callers can point their diagnostic at it.
func (t *Table) Declare(sym Symbol) (SymbolID, SymbolID, bool) {
	scope := t.Scope(sym.Scope)
	idx := scope.nameIndex(sym.Kind.In())
	if existing, taken := idx[sym.Name]; taken {
		return NoSymbolID, existing, false
	}
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	id := SymbolID(n)
	t.symbols = append(t.symbols, sym)
	idx[sym.Name] = id
	return id, NoSymbolID, true
}

// Shadow binds a symbol without the redeclaration check: an inner let may
// reuse an outer spelling, and a later let in the same block replaces the
// earlier binding for subsequent lookups.
func (t *Table) Shadow(sym Symbol) SymbolID {
	scope := t.Scope(sym.Scope)
	idx := scope.nameIndex(sym.Kind.In())
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	id := SymbolID(n)
	t.symbols = append(t.symbols, sym)
	idx[sym.Name] = id
	return id
}

// Lookup resolves name in the given namespace, walking from scope outward
// to the root and returning the first match.
func (t *Table) Lookup(name source.StringID, ns Namespace, from ScopeID) (SymbolID, bool) {
	for cur := from; cur.IsValid(); cur = t.Scope(cur).Parent {
		scope := t.Scope(cur)
		if scope.names[ns] != nil {
			if id, ok := scope.names[ns][name]; ok {
				return id, true
			}
		}
	}
	return NoSymbolID, false
}

// LookupLocal resolves name in exactly the given scope, without walking
// outward.
func (t *Table) LookupLocal(name source.StringID, ns Namespace, scope ScopeID) (SymbolID, bool) {
	s := t.Scope(scope)
	if s.names[ns] == nil {
		return NoSymbolID, false
	}
	id, ok := s.names[ns][name]
	return id, ok
}

// LookupQualified resolves a root-qualified path: every segment but the last
// names a namespace scope, starting at the global scope and bypassing all
// intermediate lexical scopes.
func (t *Table) LookupQualified(path []source.StringID, ns Namespace) (SymbolID, bool) {
	if len(path) == 0 {
		return NoSymbolID, false
	}
	cur := t.root
	for _, seg := range path[:len(path)-1] {
		scope := t.Scope(cur)
		if scope.nested == nil {
			return NoSymbolID, false
		}
		next, ok := scope.nested[seg]
		if !ok {
			return NoSymbolID, false
		}
		cur = next
	}
	last := path[len(path)-1]
	scope := t.Scope(cur)
	if scope.names[ns] == nil {
		return NoSymbolID, false
	}
	id, ok := scope.names[ns][last]
	return id, ok
}

// NestedNamespace returns the namespace scope called name directly under
// parent, if declared.
func (t *Table) NestedNamespace(parent ScopeID, name source.StringID) (ScopeID, bool) {
	scope := t.Scope(parent)
	if scope.nested == nil {
		return NoScopeID, false
	}
	id, ok := scope.nested[name]
	return id, ok
}
