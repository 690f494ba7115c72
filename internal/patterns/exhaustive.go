package patterns

import (
	"fmt"
	"strconv"
	"strings"

	"rill/internal/source"
	"rill/internal/types"
)

// NonExhaustiveError lists every uncovered variant or value class of a
// match.
type NonExhaustiveError struct {
	Span    source.Span
	Missing []string
}

func (e *NonExhaustiveError) Error() string {
	return fmt.Sprintf("match is not exhaustive; missing: %s", strings.Join(e.Missing, ", "))
}

// CheckExhaustive verifies that the arm patterns cover every value of the
// scrutinee's type.
//
// The rules are type directed: a struct has one constructor, so any single
// record, wildcard or binding arm suffices; an enum needs every variant
// named across the arms unless an irrefutable arm appears; bool needs both
// literals; all other literal types need a trailing irrefutable arm. Nested
// sub-patterns never have to be exhaustive for the outer match to be.
func (b *Builder) CheckExhaustive(scrutinee types.TypeID, arms []*Pattern, span source.Span) error {
	for _, arm := range arms {
		if arm.Irrefutable() {
			return nil
		}
	}
	under := b.Types.Underlying(scrutinee)
	tt, ok := b.Types.Lookup(under)
	if !ok {
		return &NonExhaustiveError{Span: span, Missing: []string{"_"}}
	}

	switch tt.Kind {
	case types.KindStruct:
		// One constructor: any record arm alone is exhaustive.
		for _, arm := range arms {
			if arm.Kind == KindRecord {
				return nil
			}
		}
		return &NonExhaustiveError{Span: span, Missing: []string{"{..}"}}

	case types.KindEnum:
		return b.checkEnum(under, arms, span)

	case types.KindBool:
		return b.checkBool(arms, span)

	case types.KindUnit:
		// A unit literal arm covers the only value.
		for _, arm := range arms {
			if arm.Kind == KindLiteral {
				return nil
			}
		}
		return &NonExhaustiveError{Span: span, Missing: []string{"()"}}

	default:
		// Open literal domains (ints, chars, strings, floats) can never be
		// enumerated; only an irrefutable arm covers them, and none was
		// found above.
		return &NonExhaustiveError{Span: span, Missing: []string{"_"}}
	}
}

func (b *Builder) checkEnum(under types.TypeID, arms []*Pattern, span source.Span) error {
	info, ok := b.Types.EnumInfo(under)
	if !ok {
		return &NonExhaustiveError{Span: span, Missing: []string{"_"}}
	}
	covered := make(map[int]struct{}, len(info.Variants))
	for _, arm := range arms {
		if arm.Kind == KindVariant {
			covered[arm.VariantIndex] = struct{}{}
		}
	}
	var missing []string
	for i, v := range info.Variants {
		if _, ok := covered[i]; !ok {
			missing = append(missing, b.name(v.Name))
		}
	}
	if len(missing) > 0 {
		return &NonExhaustiveError{Span: span, Missing: missing}
	}
	return nil
}

func (b *Builder) checkBool(arms []*Pattern, span source.Span) error {
	var sawTrue, sawFalse bool
	for _, arm := range arms {
		if arm.Kind != KindLiteral {
			continue
		}
		if arm.Lit.Bool {
			sawTrue = true
		} else {
			sawFalse = true
		}
	}
	var missing []string
	if !sawTrue {
		missing = append(missing, strconv.FormatBool(true))
	}
	if !sawFalse {
		missing = append(missing, strconv.FormatBool(false))
	}
	if len(missing) > 0 {
		return &NonExhaustiveError{Span: span, Missing: missing}
	}
	return nil
}
