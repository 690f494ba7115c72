package hir

type (
	// ExprID references a typed expression in a Module's arena.
	ExprID uint32
	// FuncID references a checked function.
	FuncID uint32
)

const (
	NoExprID ExprID = 0
	NoFuncID FuncID = 0
)

func (id ExprID) IsValid() bool { return id != NoExprID }
func (id FuncID) IsValid() bool { return id != NoFuncID }
