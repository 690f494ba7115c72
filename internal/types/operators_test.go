package types

import (
	"errors"
	"testing"

	"rill/internal/source"
)

func algebraFixture() (*Table, *source.Interner) {
	return NewTable(), source.NewInterner()
}

func TestCombineConcatenatesFields(t *testing.T) {
	tbl, strs := algebraFixture()
	a := tbl.InternStructural([]StructField{{Name: strs.Intern("text"), Type: tbl.Builtins().String}})
	b := tbl.InternStructural([]StructField{
		{Name: strs.Intern("x"), Type: tbl.Builtins().Int},
		{Name: strs.Intern("y"), Type: tbl.Builtins().Int},
	})
	got, err := tbl.Combine(a, b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	info, _ := tbl.StructInfo(got)
	if len(info.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(info.Fields))
	}
	if info.Fields[0].Name != strs.Intern("text") || info.Fields[2].Name != strs.Intern("y") {
		t.Fatalf("fields out of order: %+v", info.Fields)
	}
}

func TestCombineDuplicateField(t *testing.T) {
	tbl, strs := algebraFixture()
	x := strs.Intern("x")
	a := tbl.InternStructural([]StructField{{Name: x, Type: tbl.Builtins().Int}})
	b := tbl.InternStructural([]StructField{{Name: x, Type: tbl.Builtins().Bool}})
	_, err := tbl.Combine(a, b)
	var dup *DuplicateFieldError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}
	if dup.Name != x {
		t.Fatalf("wrong field reported")
	}
}

func TestRemoveDropsNamedFields(t *testing.T) {
	tbl, strs := algebraFixture()
	id, name, password := strs.Intern("id"), strs.Intern("name"), strs.Intern("password")
	user := tbl.InternStructural([]StructField{
		{Name: id, Type: tbl.Builtins().I64},
		{Name: name, Type: tbl.Builtins().String},
		{Name: password, Type: tbl.Builtins().String},
	})
	got, err := tbl.Remove(user, []source.StringID{password})
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	want := tbl.InternStructural([]StructField{
		{Name: id, Type: tbl.Builtins().I64},
		{Name: name, Type: tbl.Builtins().String},
	})
	if got != want {
		t.Fatalf("removal result must unify with the directly built shape")
	}
}

func TestRemoveUnknownField(t *testing.T) {
	tbl, strs := algebraFixture()
	a := tbl.InternStructural([]StructField{{Name: strs.Intern("x"), Type: tbl.Builtins().Int}})
	_, err := tbl.Remove(a, []source.StringID{strs.Intern("zed")})
	var unknown *UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
}

func TestCombineFromDifferentOperandsUnifies(t *testing.T) {
	tbl, strs := algebraFixture()
	a, b, c := strs.Intern("a"), strs.Intern("b"), strs.Intern("c")
	intID := tbl.Builtins().Int

	left1 := tbl.InternStructural([]StructField{{Name: a, Type: intID}})
	right1 := tbl.InternStructural([]StructField{{Name: b, Type: intID}, {Name: c, Type: intID}})
	left2 := tbl.InternStructural([]StructField{{Name: a, Type: intID}, {Name: b, Type: intID}})
	right2 := tbl.InternStructural([]StructField{{Name: c, Type: intID}})

	r1, err1 := tbl.Combine(left1, right1)
	r2, err2 := tbl.Combine(left2, right2)
	if err1 != nil || err2 != nil {
		t.Fatalf("combine failed: %v %v", err1, err2)
	}
	if r1 != r2 {
		t.Fatalf("same field sequence from different operands must unify")
	}
}

func TestCombineOnNonStruct(t *testing.T) {
	tbl, strs := algebraFixture()
	a := tbl.InternStructural([]StructField{{Name: strs.Intern("x"), Type: tbl.Builtins().Int}})
	_, err := tbl.Combine(a, tbl.Builtins().Bool)
	var notStruct *NotAStructError
	if !errors.As(err, &notStruct) {
		t.Fatalf("expected NotAStructError, got %v", err)
	}
}
