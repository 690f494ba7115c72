package astio

import (
	"fmt"

	"rill/internal/ast"
	"rill/internal/source"
)

// rebind re-interns the document's identifiers into strs and rewrites
// every StringID stored in the unit's arenas.
func rebind(u *ast.Unit, table []string, strs *source.Interner) error {
	remap := make([]source.StringID, len(table))
	for i, s := range table {
		remap[i] = strs.Intern(s)
	}
	ok := true
	m := func(id source.StringID) source.StringID {
		if id == source.NoStringID {
			return id
		}
		if int(id) >= len(remap) {
			ok = false
			return source.NoStringID
		}
		return remap[id]
	}
	mapPath := func(p *ast.Path) {
		for i := range p.Segments {
			p.Segments[i] = m(p.Segments[i])
		}
	}

	for i := range u.Items {
		it := &u.Items[i]
		it.Name = m(it.Name)
		mapPath(&it.Ability)
		for j := range it.TypeParams {
			it.TypeParams[j].Name = m(it.TypeParams[j].Name)
			mapPath(&it.TypeParams[j].Bound)
		}
		for j := range it.Fields {
			it.Fields[j].Name = m(it.Fields[j].Name)
		}
		for j := range it.Variants {
			it.Variants[j].Name = m(it.Variants[j].Name)
		}
		for j := range it.Methods {
			it.Methods[j].Name = m(it.Methods[j].Name)
			for k := range it.Methods[j].Params {
				it.Methods[j].Params[k].Name = m(it.Methods[j].Params[k].Name)
			}
		}
		for j := range it.Params {
			it.Params[j].Name = m(it.Params[j].Name)
		}
	}
	for i := range u.TypeExprs {
		te := &u.TypeExprs[i]
		mapPath(&te.Path)
		for j := range te.Fields {
			te.Fields[j].Name = m(te.Fields[j].Name)
		}
		for j := range te.Names {
			te.Names[j] = m(te.Names[j])
		}
	}
	for i := range u.Exprs {
		e := &u.Exprs[i]
		e.Name = m(e.Name)
		mapPath(&e.Path)
		for j := range e.Inits {
			e.Inits[j].Name = m(e.Inits[j].Name)
		}
	}
	for i := range u.Patterns {
		p := &u.Patterns[i]
		p.Name = m(p.Name)
		for j := range p.Fields {
			p.Fields[j].Name = m(p.Fields[j].Name)
		}
	}

	if !ok {
		return &BadDocError{Reason: fmt.Sprintf("string id out of range (table has %d entries)", len(table))}
	}
	return nil
}
