// Package patterns builds resolved pattern trees from match arms and checks
// exhaustiveness against the scrutinee's type. Both passes are purely
// functional transforms: tree in, tree plus errors out, which keeps them
// testable without a checker around them.
package patterns

import (
	"fmt"

	"rill/internal/ast"
	"rill/internal/generics"
	"rill/internal/source"
	"rill/internal/types"
)

// Kind enumerates resolved pattern shapes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindWildcard
	KindBinding
	KindLiteral
	KindVariant
	KindRecord
)

// Field is one resolved record-pattern field.
type Field struct {
	Name    source.StringID
	Index   int // field position inside the scrutinee struct
	Pattern *Pattern
}

// Binding is one variable a pattern introduces into its arm.
type Binding struct {
	Name source.StringID
	Type types.TypeID
	Span source.Span
}

// Pattern is a resolved pattern node: every piece is type-annotated and
// variant names are resolved to indexes, optional sugar included.
type Pattern struct {
	Kind Kind
	Span source.Span
	Type types.TypeID // scrutinee type this node matches against

	Name         source.StringID // binding or variant name
	Lit          ast.Lit
	VariantIndex int
	Payload      *Pattern
	Fields       []Field
}

// Irrefutable reports whether the pattern matches every value of its type.
func (p *Pattern) Irrefutable() bool {
	return p.Kind == KindWildcard || p.Kind == KindBinding
}

// Bindings collects every variable the pattern introduces, depth first.
func (p *Pattern) Bindings() []Binding {
	var out []Binding
	p.collectBindings(&out)
	return out
}

func (p *Pattern) collectBindings(out *[]Binding) {
	if p == nil {
		return
	}
	if p.Kind == KindBinding {
		*out = append(*out, Binding{Name: p.Name, Type: p.Type, Span: p.Span})
	}
	if p.Payload != nil {
		p.Payload.collectBindings(out)
	}
	for _, f := range p.Fields {
		f.Pattern.collectBindings(out)
	}
}

// InvalidPatternError reports a pattern whose shape cannot match the
// scrutinee's type.
type InvalidPatternError struct {
	Span      source.Span
	Scrutinee types.TypeID
	Reason    string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern against type %d: %s", e.Scrutinee, e.Reason)
}

// Builder resolves AST patterns against scrutinee types.
type Builder struct {
	Types    *types.Table
	Generics *generics.Engine
	Strings  *source.Interner
}

// Build resolves one AST pattern against the scrutinee type. Optional
// scrutinees accept Some/None variant patterns spelled directly: they are
// substituted onto the underlying intrinsic enum instantiation.
func (b *Builder) Build(unit *ast.Unit, pid ast.PatternID, scrutinee types.TypeID) (*Pattern, error) {
	node := unit.Pattern(pid)
	if node == nil {
		return nil, &InvalidPatternError{Scrutinee: scrutinee, Reason: "missing pattern node"}
	}
	canon := b.Types.Canonical(scrutinee)

	switch node.Kind {
	case ast.PatWildcard:
		return &Pattern{Kind: KindWildcard, Span: node.Span, Type: canon}, nil

	case ast.PatBinding:
		return &Pattern{Kind: KindBinding, Span: node.Span, Type: canon, Name: node.Name}, nil

	case ast.PatLiteral:
		if err := b.checkLiteral(node, canon); err != nil {
			return nil, err
		}
		return &Pattern{Kind: KindLiteral, Span: node.Span, Type: canon, Lit: node.Lit}, nil

	case ast.PatVariant:
		return b.buildVariant(unit, node, canon)

	case ast.PatRecord:
		return b.buildRecord(unit, node, canon)

	default:
		return nil, &InvalidPatternError{Span: node.Span, Scrutinee: canon, Reason: "unknown pattern kind"}
	}
}

func (b *Builder) buildVariant(unit *ast.Unit, node *ast.Pattern, scrutinee types.TypeID) (*Pattern, error) {
	under := b.Types.Underlying(scrutinee)
	info, ok := b.Types.EnumInfo(under)
	if !ok {
		return nil, &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: "variant pattern against a non-enum scrutinee"}
	}
	idx, ok := b.Types.VariantIndex(under, node.Name)
	if !ok {
		return nil, &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: fmt.Sprintf("no variant %s", b.name(node.Name))}
	}
	variant := info.Variants[idx]

	out := &Pattern{Kind: KindVariant, Span: node.Span, Type: scrutinee, Name: node.Name, VariantIndex: idx}
	if node.Payload.IsValid() {
		if variant.Payload == types.NoTypeID {
			return nil, &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: fmt.Sprintf("variant %s carries no payload", b.name(node.Name))}
		}
		sub, err := b.Build(unit, node.Payload, variant.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = sub
	} else if variant.Payload != types.NoTypeID {
		return nil, &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: fmt.Sprintf("variant %s requires a payload pattern", b.name(node.Name))}
	}
	return out, nil
}

func (b *Builder) buildRecord(unit *ast.Unit, node *ast.Pattern, scrutinee types.TypeID) (*Pattern, error) {
	under := b.Types.Underlying(scrutinee)
	info, ok := b.Types.StructInfo(under)
	if !ok {
		return nil, &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: "record pattern against a non-struct scrutinee"}
	}
	out := &Pattern{Kind: KindRecord, Span: node.Span, Type: scrutinee}
	for _, pf := range node.Fields {
		idx, ok := b.Types.FieldIndex(under, pf.Name)
		if !ok {
			return nil, &InvalidPatternError{Span: pf.Span, Scrutinee: scrutinee, Reason: fmt.Sprintf("no field %s", b.name(pf.Name))}
		}
		sub, err := b.Build(unit, pf.Pattern, info.Fields[idx].Type)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, Field{Name: pf.Name, Index: idx, Pattern: sub})
	}
	return out, nil
}

func (b *Builder) checkLiteral(node *ast.Pattern, scrutinee types.TypeID) error {
	under := b.Types.Underlying(scrutinee)
	tt, ok := b.Types.Lookup(under)
	if !ok {
		return &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: "unresolved scrutinee"}
	}
	want := map[ast.LitKind]types.Kind{
		ast.LitUnit:   types.KindUnit,
		ast.LitBool:   types.KindBool,
		ast.LitInt:    types.KindInt,
		ast.LitFloat:  types.KindFloat,
		ast.LitChar:   types.KindChar,
		ast.LitString: types.KindString,
	}
	if expected, ok := want[node.Lit.Kind]; !ok || tt.Kind != expected {
		return &InvalidPatternError{Span: node.Span, Scrutinee: scrutinee, Reason: fmt.Sprintf("literal does not match scrutinee kind %v", tt.Kind)}
	}
	return nil
}

func (b *Builder) name(id source.StringID) string {
	if b.Strings == nil {
		return fmt.Sprintf("#%d", id)
	}
	if s, ok := b.Strings.Lookup(id); ok && s != "" {
		return s
	}
	return fmt.Sprintf("#%d", id)
}
