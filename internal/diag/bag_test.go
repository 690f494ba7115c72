package diag

import (
	"strings"
	"testing"

	"rill/internal/source"
)

func TestBagRespectsCap(t *testing.T) {
	bag := NewBag(2)
	for i := 0; i < 3; i++ {
		bag.Add(Diagnostic{Severity: SevError, Code: SemaTypeMismatch})
	}
	if bag.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", bag.Len())
	}
}

func TestBagHasErrors(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevWarning, Code: SemaInfo})
	if bag.HasErrors() {
		t.Fatalf("warnings alone must not count as errors")
	}
	bag.Add(Diagnostic{Severity: SevError, Code: SemaUnknownName})
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors after adding an error")
	}
}

func TestBagSortStable(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Code: SemaUnknownName, Primary: source.Span{File: 1, Start: 50}})
	bag.Add(Diagnostic{Code: SemaTypeMismatch, Primary: source.Span{File: 0, Start: 10}})
	bag.Add(Diagnostic{Code: SemaUnknownField, Primary: source.Span{File: 0, Start: 5}})
	bag.SortStable()
	items := bag.Items()
	if items[0].Code != SemaUnknownField || items[1].Code != SemaTypeMismatch || items[2].Code != SemaUnknownName {
		t.Fatalf("unexpected order: %v %v %v", items[0].Code, items[1].Code, items[2].Code)
	}
}

func TestCodeString(t *testing.T) {
	if got := SemaNonExhaustiveMatch.String(); got != "RIL3003" {
		t.Fatalf("unexpected code string %q", got)
	}
}

func TestRenderPlain(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.rl", []byte("let x = nope\n"))
	bag := NewBag(10)
	bag.Add(Diagnostic{
		Severity: SevError,
		Code:     SemaUnknownName,
		Message:  "unknown name `nope`",
		Primary:  source.Span{File: id, Start: 8, End: 12},
	})
	var sb strings.Builder
	Render(&sb, bag, fs, RenderOpts{})
	out := sb.String()
	if !strings.Contains(out, "m.rl:1:9: ERROR RIL3001: unknown name `nope`") {
		t.Fatalf("unexpected render output:\n%s", out)
	}
	if !strings.Contains(out, "^~~~") {
		t.Fatalf("expected caret underline, got:\n%s", out)
	}
}
