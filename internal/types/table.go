package types

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Char    TypeID
	Never   TypeID
	String  TypeID
	Int     TypeID // the language default, i64
	I8      TypeID
	I16     TypeID
	I32     TypeID
	I64     TypeID
	U8      TypeID
	U16     TypeID
	U32     TypeID
	U64     TypeID
	F32     TypeID
	F64     TypeID
}

// Table interns type descriptors behind stable TypeIDs and is the single
// source of truth for type identity. Nominal registrations always mint a
// fresh identity; everything else is deduplicated, so comparing TypeIDs is
// comparing types.
type Table struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	structs []StructInfo
	enums   []EnumInfo
	aliases []AliasInfo
	params  []ParamInfo
	insts   []InstInfo

	structShapes map[string]TypeID // structural struct shape -> id
	enumShapes   map[string]TypeID // structural enum shape -> id
	instIndex    map[instKey]TypeID
	originNames  map[GenericOrigin]source.StringID // for labels only
}

// SetOriginName records the declared name of a generic definition so
// instantiated types print as Name[args].
func (t *Table) SetOriginName(origin GenericOrigin, name source.StringID) {
	t.originNames[origin] = name
}

// OriginName returns the recorded name for a generic origin.
func (t *Table) OriginName(origin GenericOrigin) (source.StringID, bool) {
	name, ok := t.originNames[origin]
	return name, ok
}

// NewTable constructs a table seeded with built-in primitives.
func NewTable() *Table {
	t := &Table{
		index:        make(map[typeKey]TypeID, 64),
		structShapes: make(map[string]TypeID, 16),
		enumShapes:   make(map[string]TypeID, 16),
		instIndex:    make(map[instKey]TypeID, 16),
		originNames:  make(map[GenericOrigin]source.StringID, 8),
	}
	// Slot 0 of every side array is a reserved invalid sentinel.
	t.structs = append(t.structs, StructInfo{})
	t.enums = append(t.enums, EnumInfo{})
	t.aliases = append(t.aliases, AliasInfo{})
	t.params = append(t.params, ParamInfo{})
	t.insts = append(t.insts, InstInfo{})

	t.builtins.Invalid = t.internRaw(Type{Kind: KindInvalid})
	t.builtins.Unit = t.Intern(Type{Kind: KindUnit})
	t.builtins.Bool = t.Intern(Type{Kind: KindBool})
	t.builtins.Char = t.Intern(Type{Kind: KindChar})
	t.builtins.Never = t.Intern(Type{Kind: KindNever})
	t.builtins.String = t.Intern(Type{Kind: KindString})
	t.builtins.I8 = t.Intern(MakeInt(Width8, true))
	t.builtins.I16 = t.Intern(MakeInt(Width16, true))
	t.builtins.I32 = t.Intern(MakeInt(Width32, true))
	t.builtins.I64 = t.Intern(MakeInt(Width64, true))
	t.builtins.U8 = t.Intern(MakeInt(Width8, false))
	t.builtins.U16 = t.Intern(MakeInt(Width16, false))
	t.builtins.U32 = t.Intern(MakeInt(Width32, false))
	t.builtins.U64 = t.Intern(MakeInt(Width64, false))
	t.builtins.F32 = t.Intern(MakeFloat(Width32))
	t.builtins.F64 = t.Intern(MakeFloat(Width64))
	t.builtins.Int = t.builtins.I64
	return t
}

// Builtins returns TypeIDs for primitive types.
func (t *Table) Builtins() Builtins {
	return t.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Only
// non-aggregate descriptors may be interned this way; aggregates go through
// their Register/InternStruct style constructors.
func (t *Table) Intern(tt Type) TypeID {
	if tt.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(tt)
	if id, ok := t.index[key]; ok {
		return id
	}
	return t.internRaw(tt)
}

// internRaw appends the descriptor without consulting the dedup map.
func (t *Table) internRaw(tt Type) TypeID {
	n, err := safecast.Conv[uint32](len(t.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	t.types = append(t.types, tt)
	t.index[typeKey(tt)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (t *Table) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(t.types) {
		return Type{}, false
	}
	return t.types[id], true
}

// MustLookup panics when id is invalid.
func (t *Table) MustLookup(id TypeID) Type {
	tt, ok := t.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types, the invalid sentinel included.
func (t *Table) Len() int {
	return len(t.types)
}

// Canonical resolves alias indirections. Identity-sensitive operations
// (equality, ability lookup, layout) work on canonical IDs: an alias never
// has an identity of its own.
func (t *Table) Canonical(id TypeID) TypeID {
	seen := make(map[TypeID]struct{}, 4)
	for id != NoTypeID {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
		tt, ok := t.Lookup(id)
		if !ok || tt.Kind != KindAlias {
			return id
		}
		target, ok := t.AliasTarget(id)
		if !ok {
			return id
		}
		id = target
	}
	return id
}

// Equal reports whether two TypeIDs denote the same type once aliases are
// seen through.
func (t *Table) Equal(a, b TypeID) bool {
	return t.Canonical(a) == t.Canonical(b)
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Width   Width
	Signed  bool
	Payload uint32
}
