package types

import (
	"fmt"

	"rill/internal/source"
)

// Struct algebra: synthesizing new struct shapes out of existing ones.
// Results are always interned structurally, so two operator expressions
// producing the same field sequence from different operands unify.

// DuplicateFieldError reports a field name present in both combine operands.
type DuplicateFieldError struct {
	Name source.StringID
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field (name id %d) in struct combination", e.Name)
}

// UnknownFieldError reports a removal of a field the struct does not have.
type UnknownFieldError struct {
	Name source.StringID
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field (name id %d) in struct removal", e.Name)
}

// NotAStructError reports a struct-algebra operand that is not a struct.
type NotAStructError struct {
	Type TypeID
}

func (e *NotAStructError) Error() string {
	return fmt.Sprintf("struct algebra operand is not a struct (type id %d)", e.Type)
}

// Combine synthesizes the struct holding a's fields followed by b's fields.
// A name occurring in both operands is an error; there are no override
// semantics.
func (t *Table) Combine(a, b TypeID) (TypeID, error) {
	aInfo := t.structInfo(t.Underlying(a))
	if aInfo == nil {
		return NoTypeID, &NotAStructError{Type: a}
	}
	bInfo := t.structInfo(t.Underlying(b))
	if bInfo == nil {
		return NoTypeID, &NotAStructError{Type: b}
	}
	seen := make(map[source.StringID]struct{}, len(aInfo.Fields)+len(bInfo.Fields))
	fields := make([]StructField, 0, len(aInfo.Fields)+len(bInfo.Fields))
	for _, f := range aInfo.Fields {
		seen[f.Name] = struct{}{}
		fields = append(fields, f)
	}
	for _, f := range bInfo.Fields {
		if _, dup := seen[f.Name]; dup {
			return NoTypeID, &DuplicateFieldError{Name: f.Name}
		}
		seen[f.Name] = struct{}{}
		fields = append(fields, f)
	}
	return t.InternStructural(fields), nil
}

// Remove synthesizes the struct holding a's fields minus the named ones.
// Every requested name must exist in a.
func (t *Table) Remove(a TypeID, names []source.StringID) (TypeID, error) {
	aInfo := t.structInfo(t.Underlying(a))
	if aInfo == nil {
		return NoTypeID, &NotAStructError{Type: a}
	}
	drop := make(map[source.StringID]struct{}, len(names))
	for _, n := range names {
		if _, ok := t.FieldIndex(t.Underlying(a), n); !ok {
			return NoTypeID, &UnknownFieldError{Name: n}
		}
		drop[n] = struct{}{}
	}
	fields := make([]StructField, 0, len(aInfo.Fields))
	for _, f := range aInfo.Fields {
		if _, gone := drop[f.Name]; gone {
			continue
		}
		fields = append(fields, f)
	}
	return t.InternStructural(fields), nil
}
