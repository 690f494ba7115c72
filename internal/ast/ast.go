// Package ast defines the untyped declaration/expression tree the semantic
// core consumes. The frontend (an external collaborator) produces it; nodes
// live in flat arenas addressed by 1-based IDs, so the whole tree serializes
// as a handful of slices and never forms ownership cycles.
package ast

import (
	"rill/internal/source"
)

// Path is a possibly root-qualified name path (`::geo::Point` vs `Point`).
type Path struct {
	Segments      []source.StringID
	RootQualified bool
}

// Simple returns the sole segment of an unqualified single-name path.
func (p Path) Simple() (source.StringID, bool) {
	if p.RootQualified || len(p.Segments) != 1 {
		return source.NoStringID, false
	}
	return p.Segments[0], true
}

// Items ------------------------------------------------------------------

type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemNamespace
	ItemStruct
	ItemEnum
	ItemAlias
	ItemAbility
	ItemImpl
	ItemFunc
)

func (k ItemKind) String() string {
	switch k {
	case ItemNamespace:
		return "namespace"
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemAlias:
		return "alias"
	case ItemAbility:
		return "ability"
	case ItemImpl:
		return "impl"
	case ItemFunc:
		return "fn"
	default:
		return "invalid"
	}
}

// TypeParam declares one generic parameter, optionally bounded by an ability.
type TypeParam struct {
	Name  source.StringID
	Bound Path // empty Segments = unbounded
	Span  source.Span
}

// FieldDef declares one struct field (or record-type field).
type FieldDef struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

// VariantDef declares one enum variant; Payload is NoTypeExprID when bare.
type VariantDef struct {
	Name    source.StringID
	Payload TypeExprID
	Span    source.Span
}

// ParamDef declares one function/method parameter.
type ParamDef struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

// MethodSig declares an ability method's signature. Recv is implicit: every
// ability method receives the implementing type as its first argument.
type MethodSig struct {
	Name   source.StringID
	Params []ParamDef
	Result TypeExprID // NoTypeExprID = unit
	Span   source.Span
}

// Item is a flat tagged-variant declaration node. Only the fields relevant
// to Kind are populated.
type Item struct {
	Kind ItemKind
	Span source.Span
	Name source.StringID

	Items      []ItemID     // namespace: members
	TypeParams []TypeParam  // struct/enum/func
	Fields     []FieldDef   // struct
	Variants   []VariantDef // enum
	Target     TypeExprID   // alias: underlying; impl: target type
	Methods    []MethodSig  // ability
	Ability    Path         // impl: which ability
	Funcs      []ItemID     // impl: method bodies (ItemFunc entries)
	Params     []ParamDef   // func
	Result     TypeExprID   // func: NoTypeExprID = unit
	Body       ExprID       // func: NoExprID on extern declarations
	Extern     bool         // func: signature-only native/intrinsic
}

// Type expressions -------------------------------------------------------

type TypeExprKind uint8

const (
	TypeExprInvalid TypeExprKind = iota
	TypeExprNamed                // path with optional generic args
	TypeExprOptional             // T?
	TypeExprPointer              // *T
	TypeExprReference            // &T
	TypeExprArray                // [T]
	TypeExprRecord               // anonymous {a: T, b: U}
	TypeExprCombine              // A & B field concatenation
	TypeExprRemove               // A \ {names}
)

// TypeExpr is a flat tagged-variant type-expression node.
type TypeExpr struct {
	Kind TypeExprKind
	Span source.Span

	Path   Path              // named
	Args   []TypeExprID      // named: generic arguments
	Elem   TypeExprID        // optional/pointer/reference/array
	A, B   TypeExprID        // combine operands; A also holds remove operand
	Fields []FieldDef        // record
	Names  []source.StringID // remove: field names to drop
}

// Expressions ------------------------------------------------------------

type LitKind uint8

const (
	LitUnit LitKind = iota
	LitBool
	LitInt
	LitFloat
	LitChar
	LitString
)

// Lit is a literal payload; only the field matching Kind is meaningful.
type Lit struct {
	Kind  LitKind
	Bool  bool
	Int   int64
	Float float64
	Char  rune
	Str   string
}

type BinaryOp uint8

const (
	BinInvalid BinaryOp = iota
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
)

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinSub:
		return "-"
	case BinMul:
		return "*"
	case BinDiv:
		return "/"
	case BinEq:
		return "=="
	case BinNe:
		return "!="
	case BinLt:
		return "<"
	case BinLe:
		return "<="
	case BinGt:
		return ">"
	case BinGe:
		return ">="
	case BinAnd:
		return "and"
	case BinOr:
		return "or"
	default:
		return "?"
	}
}

// IsComparison reports whether the operator yields bool from two operands of
// one type.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case BinEq, BinNe, BinLt, BinLe, BinGt, BinGe:
		return true
	}
	return false
}

// IsLogical reports whether the operator works on bools.
func (op BinaryOp) IsLogical() bool {
	return op == BinAnd || op == BinOr
}

type UnaryOp uint8

const (
	UnInvalid UnaryOp = iota
	UnNeg
	UnNot
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprLit
	ExprName       // value reference by (possibly qualified) path
	ExprLet        // let binding, value is unit
	ExprAssign     // target = value, value is unit
	ExprBlock      // { e; e; e } value = last expr
	ExprIf         // if cond then else
	ExprWhile      // while cond body, value is unit
	ExprBinary
	ExprUnary
	ExprCall       // callee(args) with optional explicit type args
	ExprMethodCall // recv.name(args) via ability dispatch or field of fn type
	ExprField      // recv.name
	ExprIndex      // recv[index]
	ExprStructLit  // Type{...} or anonymous {...}
	ExprArrayLit   // [e, e, e]
	ExprVariant    // Enum.Variant(payload); Type elided when inferable
	ExprMatch
	ExprUnwrap // x! — optional unwrap, crashes on None
	ExprOrElse // x ? default — unwrap with fallback
	ExprReturn
)

// FieldInit initializes one field in a struct literal.
type FieldInit struct {
	Name  source.StringID
	Value ExprID
	Span  source.Span
}

// MatchArm pairs a pattern with its arm body.
type MatchArm struct {
	Pattern PatternID
	Body    ExprID
	Span    source.Span
}

// Expr is a flat tagged-variant expression node. Only the fields relevant
// to Kind are populated.
type Expr struct {
	Kind ExprKind
	Span source.Span

	Lit      Lit             // literal
	Path     Path            // name reference
	Name     source.StringID // let/field/method/variant name
	Mutable  bool            // let
	Type     TypeExprID      // let annotation, struct-lit type, variant enum
	TypeArgs []TypeExprID    // call: explicit generic arguments
	X        ExprID          // primary operand (cond, recv, lhs, value...)
	Y        ExprID          // secondary operand (then, rhs, default...)
	Z        ExprID          // tertiary operand (else)
	List     []ExprID        // block statements, call arguments, array elements
	Inits    []FieldInit     // struct literal
	Arms     []MatchArm      // match
	BinOp    BinaryOp
	UnOp     UnaryOp
}

// Patterns ---------------------------------------------------------------

type PatternKind uint8

const (
	PatInvalid  PatternKind = iota
	PatWildcard             // _
	PatBinding              // name
	PatLiteral
	PatVariant // Variant or Variant(sub)
	PatRecord  // {field: sub, ...} extra fields ignored
)

// PatternField pairs one record-pattern field with its sub-pattern.
type PatternField struct {
	Name    source.StringID
	Pattern PatternID
	Span    source.Span
}

// Pattern is a flat tagged-variant pattern node.
type Pattern struct {
	Kind PatternKind
	Span source.Span

	Name    source.StringID // binding or variant name
	Lit     Lit             // literal
	Payload PatternID       // variant payload sub-pattern
	Fields  []PatternField  // record
}
