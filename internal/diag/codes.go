package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Ranges are reserved per phase so codes
// stay stable as new ones are added: 1000s for input/decoding problems,
// 3000s for semantic analysis.
type Code uint16

const (
	UnknownCode Code = 0

	// Input / AST decoding
	InputInfo       Code = 1000
	InputBadDoc     Code = 1001
	InputBadNode    Code = 1002
	InputBadVersion Code = 1003

	// Semantic analysis
	SemaInfo               Code = 3000
	SemaUnknownName        Code = 3001
	SemaTypeMismatch       Code = 3002
	SemaNonExhaustiveMatch Code = 3003
	SemaDuplicateImpl      Code = 3004
	SemaAmbiguousMethod    Code = 3005
	SemaUnknownMethod      Code = 3006
	SemaArityMismatch      Code = 3007
	SemaDuplicateField     Code = 3008
	SemaUnknownField       Code = 3009
	SemaInvalidPattern     Code = 3010
	SemaRecursionLimit     Code = 3011
	SemaDuplicateSymbol    Code = 3012
	SemaNotCallable        Code = 3013
	SemaInvalidOperands    Code = 3014
	SemaMissingField       Code = 3015
	SemaNotAStruct         Code = 3016
	SemaBadUnwrap          Code = 3017
	SemaNoneNeedsContext   Code = 3018
	SemaInfiniteType       Code = 3019
)

func (c Code) String() string {
	switch c {
	case UnknownCode:
		return "RIL0000"
	default:
		return fmt.Sprintf("RIL%04d", uint16(c))
	}
}

// IsFatal reports whether a code must block handing the unit to codegen.
// Informational ranges (x000) are never fatal on their own.
func (c Code) IsFatal() bool {
	switch c {
	case UnknownCode, InputInfo, SemaInfo:
		return false
	}
	return true
}
