package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"rill/internal/source"
)

// StructField describes a single field inside a struct type.
type StructField struct {
	Name source.StringID
	Type TypeID
}

// StructInfo stores metadata for a struct type. Nominal structs carry the
// declaring name and span; structural ones leave Name empty.
type StructInfo struct {
	Name    source.StringID
	Decl    source.Span
	Nominal bool
	Fields  []StructField
}

// EnumVariant describes one variant of an enum; Payload is NoTypeID for
// payloadless variants.
type EnumVariant struct {
	Name    source.StringID
	Payload TypeID
}

// EnumInfo stores metadata for an enum type.
type EnumInfo struct {
	Name     source.StringID
	Decl     source.Span
	Nominal  bool
	Variants []EnumVariant
}

// AliasInfo stores metadata for a transparent alias.
type AliasInfo struct {
	Name   source.StringID
	Decl   source.Span
	Target TypeID
}

// ParamInfo stores metadata for a generic parameter occurrence.
type ParamInfo struct {
	Name  source.StringID
	Owner GenericOrigin // definition the parameter belongs to
	Index uint8
	Bound uint32 // ability id the argument must implement, 0 = unbounded
}

// InstInfo records the provenance of an instantiated generic type.
type InstInfo struct {
	Origin     GenericOrigin
	Args       []TypeID
	Underlying TypeID // the fully substituted expansion
}

// Structs ---------------------------------------------------------------

// RegisterStruct mints a fresh nominal struct identity. Fields are attached
// later via SetStructFields, which is what permits forward references between
// declarations.
func (t *Table) RegisterStruct(name source.StringID, decl source.Span) TypeID {
	slot := t.appendStructInfo(StructInfo{Name: name, Decl: decl, Nominal: true})
	return t.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// SetStructFields stores the resolved field descriptors for a struct type.
func (t *Table) SetStructFields(id TypeID, fields []StructField) {
	info := t.structInfo(id)
	if info == nil {
		panic("types: SetStructFields on a non-struct TypeID")
	}
	info.Fields = slices.Clone(fields)
}

// InternStructural returns the one TypeID for the given anonymous field
// sequence: two calls with equal (name, type, order) sequences unify.
// Field types are canonicalized first so aliases cannot split a shape.
func (t *Table) InternStructural(fields []StructField) TypeID {
	fields = slices.Clone(fields)
	for i := range fields {
		fields[i].Type = t.Canonical(fields[i].Type)
	}
	key := structShapeKey(fields)
	if id, ok := t.structShapes[key]; ok {
		return id
	}
	slot := t.appendStructInfo(StructInfo{Fields: slices.Clone(fields)})
	id := t.internRaw(Type{Kind: KindStruct, Payload: slot})
	t.structShapes[key] = id
	return id
}

// StructInfo returns metadata for the provided struct TypeID.
func (t *Table) StructInfo(id TypeID) (*StructInfo, bool) {
	info := t.structInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// FieldIndex finds a field by name, returning its position.
func (t *Table) FieldIndex(id TypeID, name source.StringID) (int, bool) {
	info := t.structInfo(id)
	if info == nil {
		return 0, false
	}
	for i, f := range info.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Enums -----------------------------------------------------------------

// RegisterEnum mints a fresh nominal enum identity.
func (t *Table) RegisterEnum(name source.StringID, decl source.Span) TypeID {
	slot := t.appendEnumInfo(EnumInfo{Name: name, Decl: decl, Nominal: true})
	return t.internRaw(Type{Kind: KindEnum, Payload: slot})
}

// SetEnumVariants stores the resolved variants for an enum type.
func (t *Table) SetEnumVariants(id TypeID, variants []EnumVariant) {
	info := t.enumInfo(id)
	if info == nil {
		panic("types: SetEnumVariants on a non-enum TypeID")
	}
	info.Variants = slices.Clone(variants)
}

// InternStructuralEnum returns the one TypeID for an anonymous variant
// sequence. Generic instantiation expansions land here.
func (t *Table) InternStructuralEnum(variants []EnumVariant) TypeID {
	variants = slices.Clone(variants)
	for i := range variants {
		if variants[i].Payload != NoTypeID {
			variants[i].Payload = t.Canonical(variants[i].Payload)
		}
	}
	key := enumShapeKey(variants)
	if id, ok := t.enumShapes[key]; ok {
		return id
	}
	slot := t.appendEnumInfo(EnumInfo{Variants: slices.Clone(variants)})
	id := t.internRaw(Type{Kind: KindEnum, Payload: slot})
	t.enumShapes[key] = id
	return id
}

// EnumInfo returns metadata for the provided enum TypeID.
func (t *Table) EnumInfo(id TypeID) (*EnumInfo, bool) {
	info := t.enumInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// VariantIndex finds an enum variant by name.
func (t *Table) VariantIndex(id TypeID, name source.StringID) (int, bool) {
	info := t.enumInfo(id)
	if info == nil {
		return 0, false
	}
	for i, v := range info.Variants {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Aliases ---------------------------------------------------------------

// RegisterAlias mints an alias slot. The alias is transparent: Canonical
// resolves through it, so it never acquires a nominal identity of its own.
func (t *Table) RegisterAlias(name source.StringID, decl source.Span) TypeID {
	slot := t.appendAliasInfo(AliasInfo{Name: name, Decl: decl})
	return t.internRaw(Type{Kind: KindAlias, Payload: slot})
}

// SetAliasTarget sets the aliased target type.
func (t *Table) SetAliasTarget(id, target TypeID) {
	info := t.aliasInfo(id)
	if info == nil {
		panic("types: SetAliasTarget on a non-alias TypeID")
	}
	info.Target = target
}

// AliasTarget retrieves the aliased target type.
func (t *Table) AliasTarget(id TypeID) (TypeID, bool) {
	info := t.aliasInfo(id)
	if info == nil || info.Target == NoTypeID {
		return NoTypeID, false
	}
	return info.Target, true
}

// Generic parameters ----------------------------------------------------

// InternParam returns the TypeID for a generic parameter occurrence. The
// (owner, index) pair is the identity, so repeated mentions of T inside one
// definition collapse to one TypeID.
func (t *Table) InternParam(name source.StringID, owner GenericOrigin, index uint8, bound uint32) TypeID {
	for slot := 1; slot < len(t.params); slot++ {
		p := t.params[slot]
		if p.Owner == owner && p.Index == index {
			return t.paramTypeID(uint32(slot))
		}
	}
	slotLen, err := safecast.Conv[uint32](len(t.params))
	if err != nil {
		panic(fmt.Errorf("param slot overflow: %w", err))
	}
	t.params = append(t.params, ParamInfo{Name: name, Owner: owner, Index: index, Bound: bound})
	return t.internRaw(Type{Kind: KindGenericParam, Payload: slotLen})
}

// ParamInfo returns metadata for a generic-parameter TypeID.
func (t *Table) ParamInfo(id TypeID) (*ParamInfo, bool) {
	tt, ok := t.Lookup(id)
	if !ok || tt.Kind != KindGenericParam {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(t.params) {
		return nil, false
	}
	return &t.params[tt.Payload], true
}

// Instantiations --------------------------------------------------------

type instKey struct {
	Origin  GenericOrigin
	ArgsKey string
}

// InternInstantiated returns the one TypeID for (origin, args), recording
// provenance. Underlying is the substituted expansion; repeated calls with
// the same key ignore it and return the cached identity.
func (t *Table) InternInstantiated(origin GenericOrigin, args []TypeID, underlying TypeID) TypeID {
	key := instKey{Origin: origin, ArgsKey: ArgsKey(args)}
	if id, ok := t.instIndex[key]; ok {
		return id
	}
	slotLen, err := safecast.Conv[uint32](len(t.insts))
	if err != nil {
		panic(fmt.Errorf("instantiation slot overflow: %w", err))
	}
	t.insts = append(t.insts, InstInfo{Origin: origin, Args: slices.Clone(args), Underlying: underlying})
	id := t.internRaw(Type{Kind: KindInstantiated, Payload: slotLen})
	t.instIndex[key] = id
	return id
}

// InstInfo returns provenance for an instantiated TypeID.
func (t *Table) InstInfo(id TypeID) (*InstInfo, bool) {
	tt, ok := t.Lookup(id)
	if !ok || tt.Kind != KindInstantiated {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(t.insts) {
		return nil, false
	}
	return &t.insts[tt.Payload], true
}

// Underlying resolves aliases and instantiations down to the concrete
// structural type. Shape-sensitive consumers (field access, match, layout)
// operate on the result; identity-sensitive ones stop at Canonical.
func (t *Table) Underlying(id TypeID) TypeID {
	id = t.Canonical(id)
	for {
		info, ok := t.InstInfo(id)
		if !ok || info.Underlying == NoTypeID {
			return id
		}
		id = t.Canonical(info.Underlying)
	}
}

// Internal helpers ------------------------------------------------------

func (t *Table) appendStructInfo(info StructInfo) uint32 {
	n, err := safecast.Conv[uint32](len(t.structs))
	if err != nil {
		panic(fmt.Errorf("struct slot overflow: %w", err))
	}
	t.structs = append(t.structs, info)
	return n
}

func (t *Table) appendEnumInfo(info EnumInfo) uint32 {
	n, err := safecast.Conv[uint32](len(t.enums))
	if err != nil {
		panic(fmt.Errorf("enum slot overflow: %w", err))
	}
	t.enums = append(t.enums, info)
	return n
}

func (t *Table) appendAliasInfo(info AliasInfo) uint32 {
	n, err := safecast.Conv[uint32](len(t.aliases))
	if err != nil {
		panic(fmt.Errorf("alias slot overflow: %w", err))
	}
	t.aliases = append(t.aliases, info)
	return n
}

func (t *Table) paramTypeID(slot uint32) TypeID {
	key := typeKey(Type{Kind: KindGenericParam, Payload: slot})
	if id, ok := t.index[key]; ok {
		return id
	}
	panic("types: param slot without interned TypeID")
}

func (t *Table) structInfo(id TypeID) *StructInfo {
	tt, ok := t.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(t.structs) {
		return nil
	}
	return &t.structs[tt.Payload]
}

func (t *Table) enumInfo(id TypeID) *EnumInfo {
	tt, ok := t.Lookup(id)
	if !ok || tt.Kind != KindEnum {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(t.enums) {
		return nil
	}
	return &t.enums[tt.Payload]
}

func (t *Table) aliasInfo(id TypeID) *AliasInfo {
	tt, ok := t.Lookup(id)
	if !ok || tt.Kind != KindAlias {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(t.aliases) {
		return nil
	}
	return &t.aliases[tt.Payload]
}

// Shape keys ------------------------------------------------------------

func structShapeKey(fields []StructField) string {
	var sb strings.Builder
	sb.WriteByte('s')
	for _, f := range fields {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(uint64(f.Name), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(f.Type), 10))
	}
	return sb.String()
}

func enumShapeKey(variants []EnumVariant) string {
	var sb strings.Builder
	sb.WriteByte('e')
	for _, v := range variants {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(uint64(v.Name), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(v.Payload), 10))
	}
	return sb.String()
}

// ArgsKey produces the stable string key for a type-argument list. Go maps
// cannot key on slices, so instantiation caches store this instead.
func ArgsKey(args []TypeID) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}
