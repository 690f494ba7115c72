package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Unit is one compilation unit: flat node arenas plus the list of top-level
// items. IDs are 1-based; 0 is the universal "absent" marker, so the arenas
// serialize as plain slices.
type Unit struct {
	Name      string
	Roots     []ItemID
	Items     []Item
	TypeExprs []TypeExpr
	Exprs     []Expr
	Patterns  []Pattern
}

// NewUnit creates an empty unit.
func NewUnit(name string) *Unit {
	return &Unit{Name: name}
}

// AddItem appends a declaration and returns its ID.
func (u *Unit) AddItem(item Item) ItemID {
	u.Items = append(u.Items, item)
	return ItemID(mustLen(len(u.Items)))
}

// AddRoot appends a declaration at the unit's top level.
func (u *Unit) AddRoot(item Item) ItemID {
	id := u.AddItem(item)
	u.Roots = append(u.Roots, id)
	return id
}

// AddTypeExpr appends a type expression and returns its ID.
func (u *Unit) AddTypeExpr(te TypeExpr) TypeExprID {
	u.TypeExprs = append(u.TypeExprs, te)
	return TypeExprID(mustLen(len(u.TypeExprs)))
}

// AddExpr appends an expression and returns its ID.
func (u *Unit) AddExpr(e Expr) ExprID {
	u.Exprs = append(u.Exprs, e)
	return ExprID(mustLen(len(u.Exprs)))
}

// AddPattern appends a pattern and returns its ID.
func (u *Unit) AddPattern(p Pattern) PatternID {
	u.Patterns = append(u.Patterns, p)
	return PatternID(mustLen(len(u.Patterns)))
}

// Item returns the node for an ID, or nil for NoItemID.
func (u *Unit) Item(id ItemID) *Item {
	if !id.IsValid() || int(id) > len(u.Items) {
		return nil
	}
	return &u.Items[id-1]
}

// TypeExpr returns the node for an ID, or nil for NoTypeExprID.
func (u *Unit) TypeExpr(id TypeExprID) *TypeExpr {
	if !id.IsValid() || int(id) > len(u.TypeExprs) {
		return nil
	}
	return &u.TypeExprs[id-1]
}

// Expr returns the node for an ID, or nil for NoExprID.
func (u *Unit) Expr(id ExprID) *Expr {
	if !id.IsValid() || int(id) > len(u.Exprs) {
		return nil
	}
	return &u.Exprs[id-1]
}

// Pattern returns the node for an ID, or nil for NoPatternID.
func (u *Unit) Pattern(id PatternID) *Pattern {
	if !id.IsValid() || int(id) > len(u.Patterns) {
		return nil
	}
	return &u.Patterns[id-1]
}

func mustLen(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	return v
}
