package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const postgresDriver = "postgres"

// catalogSchemas are the namespace names filtered out when no_catalog is
// requested.
var catalogSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
}

// Load introspects a live PostgreSQL database and builds a Schema: the
// Go re-expression of original_source/postgres.cc's schema_pqxx
// constructor. noCatalog filters pg_catalog/information_schema tables
// from the Tables collection.
func Load(ctx context.Context, dsn string, noCatalog bool, log *slog.Logger) (*Schema, error) {
	db, err := sql.Open(postgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("schema: opening connection: %w", err)
	}
	defer db.Close()

	s := &Schema{}

	if err := loadVersion(ctx, db, s); err != nil {
		return nil, err
	}

	if err := loadNamespaces(ctx, db, s); err != nil {
		return nil, err
	}

	if err := loadTypes(ctx, db, s); err != nil {
		return nil, err
	}

	if err := loadRangeSubtypes(ctx, db, s); err != nil {
		return nil, err
	}

	if err := loadTables(ctx, db, s, noCatalog); err != nil {
		return nil, err
	}

	if err := loadColumnsAndConstraints(ctx, db, s); err != nil {
		return nil, err
	}

	if err := loadOperators(ctx, db, s); err != nil {
		return nil, err
	}

	aggregatePredicate, windowPredicate := aggregateWindowPredicates(s.VersionNum)

	if err := loadRoutines(ctx, db, s, aggregatePredicate, windowPredicate); err != nil {
		return nil, err
	}

	s.index()

	s.BoolType, _ = s.TypeByName("bool")
	s.IntType, _ = s.TypeByName("int4")

	if log != nil {
		log.Info("schema loaded",
			slog.Int("types", len(s.Types)),
			slog.Int("tables", len(s.Tables)),
			slog.Int("operators", len(s.Operators)),
			slog.Int("routines", len(s.Routines)),
			slog.Int("aggregates", len(s.Aggregates)),
		)
	}

	return s, nil
}

func loadVersion(ctx context.Context, db *sql.DB, s *Schema) error {
	if err := db.QueryRowContext(ctx, "select version()").Scan(&s.Version); err != nil {
		return fmt.Errorf("schema: loading version: %w", err)
	}

	if err := db.QueryRowContext(ctx, "SHOW server_version_num").Scan(&s.VersionNum); err != nil {
		return fmt.Errorf("schema: loading server_version_num: %w", err)
	}

	return nil
}

func loadNamespaces(ctx context.Context, db *sql.DB, s *Schema) error {
	rows, err := db.QueryContext(ctx, "select oid, nspname from pg_namespace")
	if err != nil {
		return fmt.Errorf("schema: loading namespaces: %w", err)
	}
	defer rows.Close()

	s.namespaces = make(map[int]string)

	for rows.Next() {
		var (
			oid  int
			name string
		)

		if err := rows.Scan(&oid, &name); err != nil {
			return fmt.Errorf("schema: scanning namespace row: %w", err)
		}

		switch name {
		case "public":
			s.Public = oid
		case "pg_catalog":
			s.PgCatalog = oid
		}

		s.namespaces[oid] = name
	}

	return rows.Err()
}

func loadTypes(ctx context.Context, db *sql.DB, s *Schema) error {
	rows, err := db.QueryContext(ctx, `
		select quote_ident(typname), oid, typdelim, typrelid, typelem, typarray,
		       typtype, typcategory, typnamespace
		from pg_type
	`)
	if err != nil {
		return fmt.Errorf("schema: loading types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name                                          string
			oid, typnamespace, typrelid, typelem, typarray int
			typdelim, typtype, typcategory                string
		)

		if err := rows.Scan(&name, &oid, &typdelim, &typrelid, &typelem, &typarray,
			&typtype, &typcategory, &typnamespace); err != nil {
			return fmt.Errorf("schema: scanning type row: %w", err)
		}

		if name == "unknown" {
			continue
		}

		s.Types = append(s.Types, &Type{
			Name:        name,
			OID:         oid,
			Namespace:   typnamespace,
			Typdelim:    typdelim[0],
			Typrelid:    typrelid,
			Typelem:     typelem,
			Typarray:    typarray,
			Typtype:     typtype[0],
			Typcategory: typcategory[0],
		})
	}

	return rows.Err()
}

func loadRangeSubtypes(ctx context.Context, db *sql.DB, s *Schema) error {
	rows, err := db.QueryContext(ctx, `
		select tp.oid, r.rngsubtype from pg_type as tp left join pg_range as r
		on tp.oid = r.rngtypid where tp.typtype = 'r'
	`)
	if err != nil {
		return fmt.Errorf("schema: loading range subtypes: %w", err)
	}
	defer rows.Close()

	byOID := make(map[int]*Type, len(s.Types))
	for _, t := range s.Types {
		byOID[t.OID] = t
	}

	for rows.Next() {
		var rangeOID, subOID int

		if err := rows.Scan(&rangeOID, &subOID); err != nil {
			return fmt.Errorf("schema: scanning range row: %w", err)
		}

		if t, ok := byOID[rangeOID]; ok {
			t.Typelem = subOID
		}
	}

	return rows.Err()
}

func loadTables(ctx context.Context, db *sql.DB, s *Schema, noCatalog bool) error {
	rows, err := db.QueryContext(ctx, `
		select table_name, table_schema, is_insertable_into, table_type
		from information_schema.tables
	`)
	if err != nil {
		return fmt.Errorf("schema: loading tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, schemaName, insertable, tableType string

		if err := rows.Scan(&name, &schemaName, &insertable, &tableType); err != nil {
			return fmt.Errorf("schema: scanning table row: %w", err)
		}

		if noCatalog && catalogSchemas[schemaName] {
			continue
		}

		s.Tables = append(s.Tables, Table{
			Name:       name,
			SchemaName: schemaName,
			Insertable: insertable == "YES",
			BaseTable:  tableType == "BASE TABLE",
		})
	}

	return rows.Err()
}

func loadColumnsAndConstraints(ctx context.Context, db *sql.DB, s *Schema) error {
	byOID := make(map[int]*Type, len(s.Types))
	for _, t := range s.Types {
		byOID[t.OID] = t
	}

	for i := range s.Tables {
		t := &s.Tables[i]

		colRows, err := db.QueryContext(ctx, `
			select attname, atttypid
			from pg_attribute join pg_class c on (c.oid = attrelid)
			join pg_namespace n on n.oid = relnamespace
			where not attisdropped and attnum > 0
			and relname = $1 and nspname = $2
		`, t.Name, t.SchemaName)
		if err != nil {
			return fmt.Errorf("schema: loading columns for %s.%s: %w", t.SchemaName, t.Name, err)
		}

		for colRows.Next() {
			var (
				name   string
				typeOID int
			)

			if err := colRows.Scan(&name, &typeOID); err != nil {
				colRows.Close()

				return fmt.Errorf("schema: scanning column row: %w", err)
			}

			t.Columns = append(t.Columns, Column{Name: name, Type: byOID[typeOID]})
		}

		colRows.Close()

		if err := colRows.Err(); err != nil {
			return err
		}

		conRows, err := db.QueryContext(ctx, `
			select conname from pg_class t
			join pg_constraint c on (t.oid = c.conrelid)
			where contype in ('f', 'u', 'p')
			and relnamespace = (select oid from pg_namespace where nspname = $1)
			and relname = $2
		`, t.SchemaName, t.Name)
		if err != nil {
			return fmt.Errorf("schema: loading constraints for %s.%s: %w", t.SchemaName, t.Name, err)
		}

		for conRows.Next() {
			var name string

			if err := conRows.Scan(&name); err != nil {
				conRows.Close()

				return fmt.Errorf("schema: scanning constraint row: %w", err)
			}

			t.Constraints = append(t.Constraints, name)
		}

		conRows.Close()

		if err := conRows.Err(); err != nil {
			return err
		}
	}

	return nil
}

func loadOperators(ctx context.Context, db *sql.DB, s *Schema) error {
	rows, err := db.QueryContext(ctx, `
		select oprname, oprleft, oprright, oprresult
		from pg_catalog.pg_operator
		where 0 not in (oprresult, oprright, oprleft)
	`)
	if err != nil {
		return fmt.Errorf("schema: loading operators: %w", err)
	}
	defer rows.Close()

	byOID := make(map[int]*Type, len(s.Types))
	for _, t := range s.Types {
		byOID[t.OID] = t
	}

	for rows.Next() {
		var (
			name                  string
			leftOID, rightOID, resultOID int
		)

		if err := rows.Scan(&name, &leftOID, &rightOID, &resultOID); err != nil {
			return fmt.Errorf("schema: scanning operator row: %w", err)
		}

		s.Operators = append(s.Operators, Operator{
			Name:   name,
			Left:   byOID[leftOID],
			Right:  byOID[rightOID],
			Result: byOID[resultOID],
		})
	}

	return rows.Err()
}

// aggregateWindowPredicates returns the SQL fragments used to identify
// aggregate/window routines, pivoting on the schema change in PostgreSQL
// 11 that replaced proisagg/proiswindow with prokind.
func aggregateWindowPredicates(versionNum int) (aggregate, window string) {
	const postgres11 = 110000

	if versionNum < postgres11 {
		return "proisagg", "proiswindow"
	}

	return "prokind = 'a'", "prokind = 'w'"
}

func loadRoutines(ctx context.Context, db *sql.DB, s *Schema, aggregatePredicate, windowPredicate string) error {
	byOID := make(map[int]*Type, len(s.Types))
	for _, t := range s.Types {
		byOID[t.OID] = t
	}

	regular, err := queryRoutines(ctx, db, fmt.Sprintf(`
		select (select nspname from pg_namespace where oid = pronamespace), oid, prorettype, proname
		from pg_proc
		where prorettype::regtype::text not in ('event_trigger', 'trigger', 'opaque', 'internal')
		and proname <> 'pg_event_trigger_table_rewrite_reason'
		and proname <> 'pg_event_trigger_table_rewrite_oid'
		and proname !~ '^ri_fkey_'
		and proname !~ '^unknown'
		and not (proretset or %s or %s)
	`, aggregatePredicate, windowPredicate), byOID)
	if err != nil {
		return fmt.Errorf("schema: loading routines: %w", err)
	}

	s.Routines = regular

	aggregates, err := queryRoutines(ctx, db, fmt.Sprintf(`
		select (select nspname from pg_namespace where oid = pronamespace), oid, prorettype, proname
		from pg_proc
		where prorettype::regtype::text not in ('event_trigger', 'trigger', 'opaque', 'internal')
		and proname not in ('pg_event_trigger_table_rewrite_reason')
		and proname not in ('percentile_cont', 'dense_rank', 'cume_dist',
		'rank', 'test_rank', 'percent_rank', 'percentile_disc', 'mode', 'test_percentile_disc')
		and proname !~ '^ri_fkey_'
		and not (proretset or %s)
		and %s
	`, windowPredicate, aggregatePredicate), byOID)
	if err != nil {
		return fmt.Errorf("schema: loading aggregates: %w", err)
	}

	s.Aggregates = aggregates

	if err := loadRoutineArgTypes(ctx, db, s.Routines, byOID); err != nil {
		return err
	}

	return loadRoutineArgTypes(ctx, db, s.Aggregates, byOID)
}

func queryRoutines(ctx context.Context, db *sql.DB, query string, byOID map[int]*Type) ([]Routine, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []Routine

	for rows.Next() {
		var (
			namespace, specificName, procName string
			returnOID                         int
		)

		if err := rows.Scan(&namespace, &specificName, &returnOID, &procName); err != nil {
			return nil, fmt.Errorf("scanning routine row: %w", err)
		}

		routines = append(routines, Routine{
			Namespace:    namespace,
			SpecificName: specificName,
			Return:       byOID[returnOID],
			ProcName:     procName,
		})
	}

	return routines, rows.Err()
}

func loadRoutineArgTypes(ctx context.Context, db *sql.DB, routines []Routine, byOID map[int]*Type) error {
	for i := range routines {
		rows, err := db.QueryContext(ctx, `
			select unnest(proargtypes) from pg_proc where oid = $1
		`, routines[i].SpecificName)
		if err != nil {
			return fmt.Errorf("schema: loading arg types for %s: %w", routines[i].ProcName, err)
		}

		for rows.Next() {
			var argOID int

			if err := rows.Scan(&argOID); err != nil {
				rows.Close()

				return fmt.Errorf("schema: scanning arg type row: %w", err)
			}

			routines[i].ArgTypes = append(routines[i].ArgTypes, byOID[argOID])
		}

		rows.Close()

		if err := rows.Err(); err != nil {
			return err
		}
	}

	return nil
}
