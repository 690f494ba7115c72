package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"rill/internal/ast"
	"rill/internal/astio"
	"rill/internal/diag"
	"rill/internal/source"
)

func writeUnit(t *testing.T, dir, name string) string {
	t.Helper()
	strs := source.NewInterner()
	unit := ast.NewUnit(name)
	point := strs.Intern("Point")
	x := strs.Intern("x")
	i64 := strs.Intern("i64")
	fieldType := unit.AddTypeExpr(ast.TypeExpr{
		Kind: ast.TypeExprNamed,
		Path: ast.Path{Segments: []source.StringID{i64}},
	})
	unit.AddRoot(ast.Item{
		Kind:   ast.ItemStruct,
		Name:   point,
		Fields: []ast.FieldDef{{Name: x, Type: fieldType}},
	})

	path := filepath.Join(dir, name+".rast")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := astio.Encode(f, unit, strs); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCheckPathsOrdersResults(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeUnit(t, dir, "alpha"),
		writeUnit(t, dir, "beta"),
		writeUnit(t, dir, "gamma"),
	}
	results, err := CheckPaths(context.Background(), paths, Options{Jobs: 2})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Fatalf("result %d path = %s, want %s", i, res.Path, paths[i])
		}
		if res.Failed() {
			t.Fatalf("unit %s failed: %v", res.Path, res.Bag.Items())
		}
		if res.Module == nil {
			t.Fatalf("unit %s has no module", res.Path)
		}
	}
}

func TestCheckPathsReportsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.rast")
	if err := os.WriteFile(path, []byte("not a document"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	results, err := CheckPaths(context.Background(), []string{path}, Options{})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	res := results[0]
	if !res.Failed() {
		t.Fatal("garbage input did not fail")
	}
	if !hasCode(res.Bag, diag.InputBadDoc) && !hasCode(res.Bag, diag.InputBadNode) {
		t.Fatalf("diagnostics = %v, want a bad-document code", res.Bag.Items())
	}
}

func TestCheckPathsReportsWrongVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.rast")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc := astio.Document{Version: astio.FormatVersion + 1, Name: "future"}
	if err := msgpack.NewEncoder(f).Encode(&doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	results, err := CheckPaths(context.Background(), []string{path}, Options{})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if !hasCode(results[0].Bag, diag.InputBadVersion) {
		t.Fatalf("diagnostics = %v, want InputBadVersion", results[0].Bag.Items())
	}
}

func TestCheckPathsMissingFile(t *testing.T) {
	results, err := CheckPaths(context.Background(), []string{"no/such/file.rast"}, Options{})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if !hasCode(results[0].Bag, diag.InputBadDoc) {
		t.Fatalf("diagnostics = %v, want InputBadDoc", results[0].Bag.Items())
	}
}
