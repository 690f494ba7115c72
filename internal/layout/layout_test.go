package layout

import (
	"reflect"
	"testing"

	"rill/internal/source"
	"rill/internal/types"
)

func fixture() (*Engine, *types.Table, *source.Interner) {
	tbl := types.NewTable()
	return New(X86_64LinuxGNU(), tbl), tbl, source.NewInterner()
}

func TestScalarLayouts(t *testing.T) {
	e, tbl, _ := fixture()
	cases := []struct {
		id    types.TypeID
		size  int
		align int
	}{
		{tbl.Builtins().Unit, 0, 1},
		{tbl.Builtins().Bool, 1, 1},
		{tbl.Builtins().Char, 1, 1},
		{tbl.Builtins().I16, 2, 2},
		{tbl.Builtins().I32, 4, 4},
		{tbl.Builtins().Int, 8, 8},
		{tbl.Builtins().F32, 4, 4},
		{tbl.Builtins().String, 16, 8},
	}
	for _, c := range cases {
		l := e.Of(c.id)
		if l.Size != c.size || l.Align != c.align {
			t.Fatalf("type %d: expected %d/%d, got %d/%d", c.id, c.size, c.align, l.Size, l.Align)
		}
	}
}

func TestStructPadding(t *testing.T) {
	e, tbl, strs := fixture()
	// {flag: bool, n: i64} -> flag at 0, n padded to 8, size 16.
	id := tbl.InternStructural([]types.StructField{
		{Name: strs.Intern("flag"), Type: tbl.Builtins().Bool},
		{Name: strs.Intern("n"), Type: tbl.Builtins().I64},
	})
	l := e.Of(id)
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("expected 16/8, got %d/%d", l.Size, l.Align)
	}
	if l.FieldOffsets[0] != 0 || l.FieldOffsets[1] != 8 {
		t.Fatalf("unexpected offsets %v", l.FieldOffsets)
	}
}

func TestCombineLayoutProperty(t *testing.T) {
	e, tbl, strs := fixture()
	label := tbl.InternStructural([]types.StructField{
		{Name: strs.Intern("text"), Type: tbl.Builtins().String},
	})
	rect := tbl.InternStructural([]types.StructField{
		{Name: strs.Intern("x"), Type: tbl.Builtins().Int},
		{Name: strs.Intern("y"), Type: tbl.Builtins().Int},
		{Name: strs.Intern("width"), Type: tbl.Builtins().Int},
		{Name: strs.Intern("height"), Type: tbl.Builtins().Int},
	})
	combined, err := tbl.Combine(label, rect)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	l := e.Of(combined)
	if l.Size != 48 || l.Align != 8 {
		t.Fatalf("expected 48/8, got %d/%d", l.Size, l.Align)
	}
}

func TestEnumTaggedUnionLayout(t *testing.T) {
	e, tbl, strs := fixture()
	id := tbl.InternStructuralEnum([]types.EnumVariant{
		{Name: strs.Intern("None")},
		{Name: strs.Intern("Some"), Payload: tbl.Builtins().I64},
	})
	l := e.Of(id)
	if l.TagSize != 1 {
		t.Fatalf("two variants need a 1-byte tag, got %d", l.TagSize)
	}
	if l.PayloadOffset != 8 {
		t.Fatalf("payload must align to 8, got offset %d", l.PayloadOffset)
	}
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("expected 16/8, got %d/%d", l.Size, l.Align)
	}
}

func TestPayloadlessEnumLayout(t *testing.T) {
	e, tbl, strs := fixture()
	id := tbl.InternStructuralEnum([]types.EnumVariant{
		{Name: strs.Intern("On")},
		{Name: strs.Intern("Off")},
		{Name: strs.Intern("Zilch")},
	})
	l := e.Of(id)
	if l.Size != 1 || l.Align != 1 {
		t.Fatalf("expected 1/1, got %d/%d", l.Size, l.Align)
	}
}

func TestAliasSharesLayout(t *testing.T) {
	e, tbl, strs := fixture()
	alias := tbl.RegisterAlias(strs.Intern("Meters"), source.Span{})
	tbl.SetAliasTarget(alias, tbl.Builtins().F64)
	a, b := e.Of(alias), e.Of(tbl.Builtins().F64)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("alias layout must match its target")
	}
}

func TestGenericParamPanics(t *testing.T) {
	e, tbl, strs := fixture()
	param := tbl.InternParam(strs.Intern("T"), 1, 0, 0)
	defer func() {
		if recover() == nil {
			t.Fatalf("layout of an unsubstituted generic parameter must panic")
		}
	}()
	e.Of(param)
}
