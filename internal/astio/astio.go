// Package astio reads and writes the msgpack interchange format the
// frontend hands over: one document per compilation unit, the node
// arenas plus the identifier table they were interned against. Decoding
// re-interns every identifier into the receiving compilation's interner
// and rewrites the IDs in place, so units produced by separate frontend
// processes merge cleanly.
package astio

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"rill/internal/ast"
	"rill/internal/source"
)

// FormatVersion is bumped on any incompatible change to the document
// shape.
const FormatVersion = 2

// Document is the wire form of one unit.
type Document struct {
	Version   int            `msgpack:"version"`
	Name      string         `msgpack:"name"`
	Strings   []string       `msgpack:"strings"`
	Roots     []ast.ItemID   `msgpack:"roots"`
	Items     []ast.Item     `msgpack:"items"`
	TypeExprs []ast.TypeExpr `msgpack:"type_exprs"`
	Exprs     []ast.Expr     `msgpack:"exprs"`
	Patterns  []ast.Pattern  `msgpack:"patterns"`
}

// BadDocError reports a structurally broken document.
type BadDocError struct {
	Reason string
}

func (e *BadDocError) Error() string {
	return "bad ast document: " + e.Reason
}

// VersionError reports a format version this build cannot read.
type VersionError struct {
	Got int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("ast document version %d, this build reads %d", e.Got, FormatVersion)
}

// Encode writes the unit with the full identifier table of strs.
func Encode(w io.Writer, unit *ast.Unit, strs *source.Interner) error {
	table := make([]string, strs.Len())
	for i := range table {
		table[i], _ = strs.Lookup(source.StringID(i)) //nolint:gosec // bounded by Len
	}
	doc := Document{
		Version:   FormatVersion,
		Name:      unit.Name,
		Strings:   table,
		Roots:     unit.Roots,
		Items:     unit.Items,
		TypeExprs: unit.TypeExprs,
		Exprs:     unit.Exprs,
		Patterns:  unit.Patterns,
	}
	return msgpack.NewEncoder(w).Encode(&doc)
}

// Decode reads one document and rebinds it to strs.
func Decode(r io.Reader, strs *source.Interner) (*ast.Unit, error) {
	var doc Document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &BadDocError{Reason: err.Error()}
	}
	if doc.Version != FormatVersion {
		return nil, &VersionError{Got: doc.Version}
	}
	unit := &ast.Unit{
		Name:      doc.Name,
		Roots:     doc.Roots,
		Items:     doc.Items,
		TypeExprs: doc.TypeExprs,
		Exprs:     doc.Exprs,
		Patterns:  doc.Patterns,
	}
	if err := validate(unit); err != nil {
		return nil, err
	}
	if err := rebind(unit, doc.Strings, strs); err != nil {
		return nil, err
	}
	return unit, nil
}

// validate bounds-checks every node reference. IDs are 1-based; 0 means
// absent and is always legal.
func validate(u *ast.Unit) error {
	checkItem := func(id ast.ItemID) error {
		if id.IsValid() && int(id) > len(u.Items) {
			return &BadDocError{Reason: fmt.Sprintf("item id %d out of range", id)}
		}
		return nil
	}
	checkType := func(id ast.TypeExprID) error {
		if id.IsValid() && int(id) > len(u.TypeExprs) {
			return &BadDocError{Reason: fmt.Sprintf("type expr id %d out of range", id)}
		}
		return nil
	}
	checkExpr := func(id ast.ExprID) error {
		if id.IsValid() && int(id) > len(u.Exprs) {
			return &BadDocError{Reason: fmt.Sprintf("expr id %d out of range", id)}
		}
		return nil
	}
	checkPattern := func(id ast.PatternID) error {
		if id.IsValid() && int(id) > len(u.Patterns) {
			return &BadDocError{Reason: fmt.Sprintf("pattern id %d out of range", id)}
		}
		return nil
	}

	for _, id := range u.Roots {
		if !id.IsValid() {
			return &BadDocError{Reason: "root item id 0"}
		}
		if err := checkItem(id); err != nil {
			return err
		}
	}
	for i := range u.Items {
		it := &u.Items[i]
		for _, m := range it.Items {
			if err := checkItem(m); err != nil {
				return err
			}
		}
		for _, f := range it.Funcs {
			if err := checkItem(f); err != nil {
				return err
			}
		}
		for _, f := range it.Fields {
			if err := checkType(f.Type); err != nil {
				return err
			}
		}
		for _, v := range it.Variants {
			if err := checkType(v.Payload); err != nil {
				return err
			}
		}
		for _, p := range it.Params {
			if err := checkType(p.Type); err != nil {
				return err
			}
		}
		for _, m := range it.Methods {
			for _, p := range m.Params {
				if err := checkType(p.Type); err != nil {
					return err
				}
			}
			if err := checkType(m.Result); err != nil {
				return err
			}
		}
		if err := checkType(it.Target); err != nil {
			return err
		}
		if err := checkType(it.Result); err != nil {
			return err
		}
		if err := checkExpr(it.Body); err != nil {
			return err
		}
	}
	for i := range u.TypeExprs {
		te := &u.TypeExprs[i]
		for _, a := range te.Args {
			if err := checkType(a); err != nil {
				return err
			}
		}
		for _, err := range []error{checkType(te.Elem), checkType(te.A), checkType(te.B)} {
			if err != nil {
				return err
			}
		}
		for _, f := range te.Fields {
			if err := checkType(f.Type); err != nil {
				return err
			}
		}
	}
	for i := range u.Exprs {
		e := &u.Exprs[i]
		for _, err := range []error{checkExpr(e.X), checkExpr(e.Y), checkExpr(e.Z), checkType(e.Type)} {
			if err != nil {
				return err
			}
		}
		for _, s := range e.List {
			if err := checkExpr(s); err != nil {
				return err
			}
		}
		for _, ta := range e.TypeArgs {
			if err := checkType(ta); err != nil {
				return err
			}
		}
		for _, init := range e.Inits {
			if err := checkExpr(init.Value); err != nil {
				return err
			}
		}
		for _, arm := range e.Arms {
			if err := checkPattern(arm.Pattern); err != nil {
				return err
			}
			if err := checkExpr(arm.Body); err != nil {
				return err
			}
		}
	}
	for i := range u.Patterns {
		p := &u.Patterns[i]
		if err := checkPattern(p.Payload); err != nil {
			return err
		}
		for _, f := range p.Fields {
			if err := checkPattern(f.Pattern); err != nil {
				return err
			}
		}
	}
	return nil
}
