package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedType(name string, typtype byte) *Type {
	return &Type{Name: name, Typtype: typtype}
}

// Invariant 6 — for non-pseudo kinds, Consistent is reflexive and is
// false between any two distinct Type values, even ones with identical
// field values: identity is by pointer, not structural equality.
func TestConsistentBaseTypeIsPointerIdentity(t *testing.T) {
	intType := namedType("int4", 'b')
	sameShape := namedType("int4", 'b')

	ok, err := Consistent(intType, intType)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Consistent(intType, sameShape)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsistentDomainCompositeRangeEnumArePointerIdentity(t *testing.T) {
	for _, kind := range []byte{'c', 'd', 'r', 'e'} {
		lhs := namedType("x", kind)
		rhs := namedType("x", kind)

		ok, err := Consistent(lhs, rhs)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = Consistent(lhs, lhs)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

// Invariant 7 — the "any" pseudo type is consistent with every rhs.
func TestConsistentPseudoAnyAlwaysTrue(t *testing.T) {
	lhs := namedType(pseudoAny, 'p')
	rhs := namedType("whatever", 'b')

	ok, err := Consistent(lhs, rhs)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsistentPseudoAnyArray(t *testing.T) {
	lhs := namedType(pseudoAnyArray, 'p')

	arr := &Type{Name: "int4[]", Typtype: 'b', Typcategory: typeCategoryArray}
	notArr := &Type{Name: "int4", Typtype: 'b', Typcategory: 'N'}

	ok, _ := Consistent(lhs, arr)
	assert.True(t, ok)

	ok, _ = Consistent(lhs, notArr)
	assert.False(t, ok)
}

func TestConsistentPseudoAnyNonArray(t *testing.T) {
	lhs := namedType(pseudoAnyNonArray, 'p')

	arr := &Type{Typcategory: typeCategoryArray}
	notArr := &Type{Typcategory: 'N'}

	ok, _ := Consistent(lhs, arr)
	assert.False(t, ok)

	ok, _ = Consistent(lhs, notArr)
	assert.True(t, ok)
}

func TestConsistentPseudoAnyEnum(t *testing.T) {
	lhs := namedType(pseudoAnyEnum, 'p')

	ok, _ := Consistent(lhs, &Type{Typtype: 'e'})
	assert.True(t, ok)

	ok, _ = Consistent(lhs, &Type{Typtype: 'b'})
	assert.False(t, ok)
}

func TestConsistentPseudoAnyRange(t *testing.T) {
	lhs := namedType(pseudoAnyRange, 'p')

	ok, _ := Consistent(lhs, &Type{Typtype: 'r'})
	assert.True(t, ok)

	ok, _ = Consistent(lhs, &Type{Typtype: 'b'})
	assert.False(t, ok)
}

func TestConsistentPseudoRecord(t *testing.T) {
	lhs := namedType(pseudoRecord, 'p')

	ok, _ := Consistent(lhs, &Type{Typtype: 'c'})
	assert.True(t, ok)

	ok, _ = Consistent(lhs, &Type{Typtype: 'b'})
	assert.False(t, ok)
}

func TestConsistentPseudoCString(t *testing.T) {
	lhs := namedType(pseudoCString, 'p')

	ok, _ := Consistent(lhs, lhs)
	assert.True(t, ok)

	ok, _ = Consistent(lhs, namedType(pseudoCString, 'p'))
	assert.False(t, ok)
}

// anyelement is intentionally conservative (see DESIGN.md): it never
// reports consistent, matching the original's disabled richer rule.
func TestConsistentPseudoAnyElementAlwaysFalse(t *testing.T) {
	lhs := namedType(pseudoAnyElement, 'p')

	ok, _ := Consistent(lhs, &Type{Typcategory: typeCategoryArray})
	assert.False(t, ok)
}

func TestConsistentUnknownPseudoNameIsFalse(t *testing.T) {
	lhs := namedType("anything_else", 'p')

	ok, _ := Consistent(lhs, &Type{})
	assert.False(t, ok)
}

func TestConsistentUnknownTypTypeIsError(t *testing.T) {
	lhs := namedType("mystery", 'z')

	_, err := Consistent(lhs, lhs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTypeKind))
}

// Invariant 8 — FullName renders bare names for public/pg_catalog
// members and schema-qualified names otherwise.
func TestFullNameBareForPublicAndPgCatalog(t *testing.T) {
	s := &Schema{Public: 1, PgCatalog: 2}
	pub := &Type{Name: "widget", Namespace: 1}
	cat := &Type{Name: "int4", Namespace: 2}

	assert.Equal(t, "widget", FullName(s, pub))
	assert.Equal(t, "int4", FullName(s, cat))
}

func TestFullNameQualifiedForOtherNamespaces(t *testing.T) {
	s := &Schema{Public: 1, PgCatalog: 2, namespaces: map[int]string{99: "app"}}
	other := &Type{Name: "widget", Namespace: 99}

	assert.Equal(t, "app.widget", FullName(s, other))
}

func TestFullNameFallsBackToBareNameWhenNamespaceUnknown(t *testing.T) {
	s := &Schema{Public: 1, PgCatalog: 2}
	orphan := &Type{Name: "widget", Namespace: 42}

	assert.Equal(t, "widget", FullName(s, orphan))
}
