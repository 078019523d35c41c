// Package schema holds the type registry, compatibility oracle, and
// operator/routine index that underpin type-directed expression
// construction (C5/C6), plus the PostgreSQL introspection loader that
// populates them (C11).
package schema

// Type represents a database type as introspected from pg_type. Two Type
// values are "the same type" by pointer identity: the arena of types is
// owned by a single Schema and never copied once loaded.
type Type struct {
	Name        string
	OID         int
	Namespace   int
	Typdelim    byte
	Typrelid    int
	Typelem     int
	Typarray    int
	Typtype     byte // one of 'b', 'c', 'd', 'r', 'e', 'p'
	Typcategory byte // 'A' denotes array
}

// Operator is (name, left, right, result), all types drawn from the
// owning Schema's type arena.
type Operator struct {
	Name   string
	Left   *Type
	Right  *Type
	Result *Type
}

// Routine is (namespace, specific_name, return type, proc name, arg
// types). Regular routines and aggregates are tracked as two disjoint
// collections on Schema.
type Routine struct {
	Namespace    string
	SpecificName string
	Return       *Type
	ProcName     string
	ArgTypes     []*Type
}

// Column is (name, type) owned by a Table.
type Column struct {
	Name string
	Type *Type
}

// Table owns an ordered list of columns and a list of constraint names.
type Table struct {
	Name        string
	SchemaName  string
	Insertable  bool
	BaseTable   bool
	Columns     []Column
	Constraints []string
}

// Schema is the arena: every Type, Operator, Routine, and Table loaded
// from the DUT lives here, and every cross-reference is a pointer into
// this arena rather than a back-pointer, per the design notes' arena +
// index model.
type Schema struct {
	Version    string
	VersionNum int

	Types      []*Type
	Tables     []Table
	Operators  []Operator
	Routines   []Routine
	Aggregates []Routine

	// OperatorsByResult indexes Operators by their Result type, the
	// multimap C6 calls for when picking an operator that returns a
	// given type (e.g. booltype for a comparison).
	OperatorsByResult map[*Type][]*Operator

	// Public and PgCatalog are the two distinguished namespace oids
	// tracked for FullName's bare-name-vs-qualified decision.
	Public    int
	PgCatalog int

	BoolType *Type
	IntType  *Type

	byOID      map[int]*Type
	byName     map[string]*Type
	namespaces map[int]string
}

// namespaceName looks up a namespace's name by oid, used by FullName to
// schema-qualify a type outside public/pg_catalog.
func (s *Schema) namespaceName(oid int) (string, bool) {
	name, ok := s.namespaces[oid]

	return name, ok
}

// TypeByOID looks up a Type by its pg_type oid.
func (s *Schema) TypeByOID(oid int) (*Type, bool) {
	t, ok := s.byOID[oid]

	return t, ok
}

// TypeByName looks up a Type by its quoted name.
func (s *Schema) TypeByName(name string) (*Type, bool) {
	t, ok := s.byName[name]

	return t, ok
}

// index finalizes the byOID/byName lookup maps and the OperatorsByResult
// multimap after Types/Operators have been populated. Called once at the
// end of Load.
func (s *Schema) index() {
	s.byOID = make(map[int]*Type, len(s.Types))
	s.byName = make(map[string]*Type, len(s.Types))

	for _, t := range s.Types {
		s.byOID[t.OID] = t
		s.byName[t.Name] = t
	}

	s.OperatorsByResult = make(map[*Type][]*Operator, len(s.Operators))

	for i := range s.Operators {
		op := &s.Operators[i]
		s.OperatorsByResult[op.Result] = append(s.OperatorsByResult[op.Result], op)
	}
}
