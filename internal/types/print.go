package types

import (
	"fmt"
	"strings"

	"rill/internal/source"
)

// Label renders a human-readable name for a type, for diagnostics.
func (t *Table) Label(id TypeID, strs *source.Interner) string {
	return t.label(id, strs, 0)
}

func (t *Table) label(id TypeID, strs *source.Interner, depth int) string {
	if depth > 16 {
		return "..."
	}
	tt, ok := t.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	name := func(sid source.StringID) string {
		if strs == nil {
			return fmt.Sprintf("#%d", sid)
		}
		if s, ok := strs.Lookup(sid); ok && s != "" {
			return s
		}
		return fmt.Sprintf("#%d", sid)
	}
	switch tt.Kind {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindNever:
		return "never"
	case KindString:
		return "string"
	case KindInt:
		prefix := "i"
		if !tt.Signed {
			prefix = "u"
		}
		return fmt.Sprintf("%s%d", prefix, tt.Width)
	case KindFloat:
		return fmt.Sprintf("f%d", tt.Width)
	case KindPointer:
		return "*" + t.label(tt.Elem, strs, depth+1)
	case KindReference:
		return "&" + t.label(tt.Elem, strs, depth+1)
	case KindArray:
		return "[" + t.label(tt.Elem, strs, depth+1) + "]"
	case KindStruct:
		info := t.structInfo(id)
		if info == nil {
			return "<struct?>"
		}
		if info.Nominal {
			return name(info.Name)
		}
		var sb strings.Builder
		sb.WriteByte('{')
		for i, f := range info.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name(f.Name))
			sb.WriteString(": ")
			sb.WriteString(t.label(f.Type, strs, depth+1))
		}
		sb.WriteByte('}')
		return sb.String()
	case KindEnum:
		info := t.enumInfo(id)
		if info == nil {
			return "<enum?>"
		}
		if info.Nominal {
			return name(info.Name)
		}
		var sb strings.Builder
		sb.WriteString("enum{")
		for i, v := range info.Variants {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(name(v.Name))
			if v.Payload != NoTypeID {
				sb.WriteByte('(')
				sb.WriteString(t.label(v.Payload, strs, depth+1))
				sb.WriteByte(')')
			}
		}
		sb.WriteByte('}')
		return sb.String()
	case KindAlias:
		info := t.aliasInfo(id)
		if info == nil {
			return "<alias?>"
		}
		return name(info.Name)
	case KindGenericParam:
		info, _ := t.ParamInfo(id)
		if info == nil {
			return "<param?>"
		}
		return name(info.Name)
	case KindInstantiated:
		info, _ := t.InstInfo(id)
		if info == nil {
			return "<inst?>"
		}
		var sb strings.Builder
		if origin, ok := t.OriginName(info.Origin); ok {
			sb.WriteString(name(origin))
		} else {
			sb.WriteString(fmt.Sprintf("g%d", info.Origin))
		}
		sb.WriteByte('[')
		for i, a := range info.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.label(a, strs, depth+1))
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return tt.Kind.String()
	}
}
