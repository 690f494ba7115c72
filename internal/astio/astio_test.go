package astio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"rill/internal/ast"
	"rill/internal/source"
)

func TestRoundTripRebindsStrings(t *testing.T) {
	producer := source.NewInterner()
	unit := ast.NewUnit("demo")
	point := producer.Intern("Point")
	x := producer.Intern("x")
	intName := producer.Intern("i64")
	fieldType := unit.AddTypeExpr(ast.TypeExpr{
		Kind: ast.TypeExprNamed,
		Path: ast.Path{Segments: []source.StringID{intName}},
	})
	unit.AddRoot(ast.Item{
		Kind:   ast.ItemStruct,
		Name:   point,
		Fields: []ast.FieldDef{{Name: x, Type: fieldType}},
	})

	var buf bytes.Buffer
	if err := Encode(&buf, unit, producer); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// The consumer interner already holds unrelated strings, so the raw
	// IDs cannot line up; rebinding must fix them.
	consumer := source.NewInterner()
	consumer.Intern("unrelated")
	consumer.Intern("noise")

	got, err := Decode(&buf, consumer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	item := got.Item(got.Roots[0])
	if name, _ := consumer.Lookup(item.Name); name != "Point" {
		t.Fatalf("struct name = %q, want Point", name)
	}
	if name, _ := consumer.Lookup(item.Fields[0].Name); name != "x" {
		t.Fatalf("field name = %q, want x", name)
	}
	te := got.TypeExpr(item.Fields[0].Type)
	if name, _ := consumer.Lookup(te.Path.Segments[0]); name != "i64" {
		t.Fatalf("field type = %q, want i64", name)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	doc := Document{Version: FormatVersion + 1, Name: "demo"}
	if err := msgpack.NewEncoder(&buf).Encode(&doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err := Decode(&buf, source.NewInterner())
	var ve *VersionError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want VersionError", err)
	}
}

func TestDecodeRejectsDanglingIDs(t *testing.T) {
	var buf bytes.Buffer
	doc := Document{
		Version: FormatVersion,
		Name:    "demo",
		Strings: []string{""},
		Roots:   []ast.ItemID{7},
	}
	if err := msgpack.NewEncoder(&buf).Encode(&doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err := Decode(&buf, source.NewInterner())
	var bad *BadDocError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want BadDocError", err)
	}
}

func TestDecodeRejectsDanglingMethodSignature(t *testing.T) {
	var buf bytes.Buffer
	doc := Document{
		Version: FormatVersion,
		Name:    "demo",
		Strings: []string{""},
		Roots:   []ast.ItemID{1},
		Items: []ast.Item{{
			Kind: ast.ItemAbility,
			Methods: []ast.MethodSig{{
				Params: []ast.ParamDef{{Type: ast.TypeExprID(9999)}},
				Result: ast.TypeExprID(8888),
			}},
		}},
	}
	if err := msgpack.NewEncoder(&buf).Encode(&doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err := Decode(&buf, source.NewInterner())
	var bad *BadDocError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want BadDocError", err)
	}
}
