package ast

type (
	// ItemID references a declaration in a Unit's item arena.
	ItemID uint32
	// TypeExprID references a type expression node.
	TypeExprID uint32
	// ExprID references an expression node.
	ExprID uint32
	// PatternID references a pattern node.
	PatternID uint32
)

const (
	NoItemID     ItemID     = 0
	NoTypeExprID TypeExprID = 0
	NoExprID     ExprID     = 0
	NoPatternID  PatternID  = 0
)

func (id ItemID) IsValid() bool     { return id != NoItemID }
func (id TypeExprID) IsValid() bool { return id != NoTypeExprID }
func (id ExprID) IsValid() bool     { return id != NoExprID }
func (id PatternID) IsValid() bool  { return id != NoPatternID }
