package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownTypeKind is returned by Consistent when a type's Typtype is
// none of the known base/pseudo kinds. The original throws a C++
// std::logic_error here; Go has no unchecked exceptions, so this is a
// returned error instead (see design notes).
var ErrUnknownTypeKind = errors.New("schema: unknown typtype")

// pseudo type names, matched against Type.Name when Typtype == 'p'.
const (
	pseudoAny         = "any"
	pseudoAnyArray    = "anyarray"
	pseudoAnyNonArray = "anynonarray"
	pseudoAnyEnum     = "anyenum"
	pseudoAnyRange    = "anyrange"
	pseudoRecord      = "record"
	pseudoCString     = "cstring"
	pseudoAnyElement  = "anyelement"
)

// typeCategoryArray is the typcategory value denoting an array type.
const typeCategoryArray = 'A'

// Consistent answers whether rhs may stand in wherever lhs is declared
// (possibly as a pseudo type). It is the heart of type-directed
// generation (C5).
func Consistent(lhs, rhs *Type) (bool, error) {
	switch lhs.Typtype {
	case 'b', 'c', 'd', 'r', 'e':
		return lhs == rhs, nil
	case 'p':
		return consistentPseudo(lhs, rhs), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownTypeKind, string(lhs.Typtype))
	}
}

func consistentPseudo(lhs, rhs *Type) bool {
	switch lhs.Name {
	case pseudoAny:
		return true
	case pseudoAnyArray:
		return rhs.Typcategory == typeCategoryArray
	case pseudoAnyNonArray:
		return rhs.Typcategory != typeCategoryArray
	case pseudoAnyEnum:
		return rhs.Typtype == 'e'
	case pseudoAnyRange:
		return rhs.Typtype == 'r'
	case pseudoRecord:
		return rhs.Typtype == 'c'
	case pseudoCString:
		return lhs == rhs
	case pseudoAnyElement:
		// Intentionally conservative: the original carries a commented-out
		// richer rule here (typcategory=='A' && typelem==this.oid) that was
		// never enabled. Preserved as unconditional false; see DESIGN.md.
		return false
	default:
		return false
	}
}

// FullName renders a type's name bare if it lives in the public or
// pg_catalog namespace, otherwise schema-qualified.
func FullName(s *Schema, t *Type) string {
	if t.Namespace == s.Public || t.Namespace == s.PgCatalog {
		return t.Name
	}

	ns, ok := s.namespaceName(t.Namespace)
	if !ok {
		return t.Name
	}

	return ns + "." + t.Name
}
