package hir

import (
	"rill/internal/abilities"
	"rill/internal/ast"
	"rill/internal/patterns"
	"rill/internal/source"
	"rill/internal/symbols"
	"rill/internal/types"
)

// ExprKind discriminates typed expression nodes. Surface sugar is gone
// by this point: optional promotion is an explicit Some construction,
// a bare `none` is an explicit None construction, and method calls
// carry their resolved impl.
type ExprKind uint8

const (
	// ExprInvalid marks an unfilled node.
	ExprInvalid ExprKind = iota
	// ExprLit is a literal constant.
	ExprLit
	// ExprVar reads a resolved value symbol.
	ExprVar
	// ExprLet binds X to a new symbol; evaluates to unit.
	ExprLet
	// ExprAssign stores Y into the place named by X.
	ExprAssign
	// ExprBlock evaluates List in order; the value is the last entry,
	// or unit when the block is empty or ends in a statement.
	ExprBlock
	// ExprIf evaluates X, then Y or Z. Z may be NoExprID.
	ExprIf
	// ExprWhile re-evaluates Y as long as X holds; the loop itself
	// yields unit.
	ExprWhile
	// ExprBinary applies BinOp to X and Y.
	ExprBinary
	// ExprUnary applies UnOp to X.
	ExprUnary
	// ExprCall invokes Func with List as arguments.
	ExprCall
	// ExprMethodCall invokes an ability method on receiver X.
	ExprMethodCall
	// ExprField reads field FieldIndex from X.
	ExprField
	// ExprIndex reads the element at position Y from array X.
	ExprIndex
	// ExprStructLit builds a struct value from Inits.
	ExprStructLit
	// ExprArrayLit builds an array value from List.
	ExprArrayLit
	// ExprVariant builds an enum value: variant VariantIndex, payload
	// elements in List.
	ExprVariant
	// ExprMatch scrutinizes X against Arms.
	ExprMatch
	// ExprUnwrap asserts X is Some and yields the payload; a None
	// value aborts at runtime.
	ExprUnwrap
	// ExprOrElse yields the payload of X when Some, otherwise Y.
	ExprOrElse
	// ExprReturn returns X (NoExprID for unit) from the enclosing
	// function; the node itself has type never.
	ExprReturn
	// ExprCrash aborts execution with message X; type never.
	ExprCrash
)

// FieldInit assigns a value to a struct field by resolved index.
type FieldInit struct {
	Index int
	Value ExprID
}

// MatchArm pairs a resolved pattern with its body.
type MatchArm struct {
	Pattern *patterns.Pattern
	Body    ExprID
}

// Expr is a flat typed expression node. Which fields are meaningful
// depends on Kind; Type is always the node's resolved type.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Type types.TypeID

	Lit  ast.Lit
	Sym  symbols.SymbolID // ExprVar, ExprLet
	X    ExprID
	Y    ExprID
	Z    ExprID
	List []ExprID

	BinOp ast.BinaryOp
	UnOp  ast.UnaryOp

	Func         FuncID // ExprCall target
	FieldIndex   int    // ExprField
	VariantIndex int    // ExprVariant

	// Method resolution, ExprMethodCall only.
	Ability     abilities.AbilityID
	Impl        abilities.ImplID
	MethodIndex int

	Inits []FieldInit
	Arms  []MatchArm
}
