package postgres

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/duplexdb/duplex"
)

type stmtKind int

const (
	kindRows stmtKind = iota
	kindExec
	kindScalar
)

// statement is one parameterized SQL statement derived from a request.
type statement struct {
	sql  string
	args []any
	kind stmtKind
}

func buildStatement(req duplex.Request) (*statement, error) {
	entity := req.Entity()
	args := req.Args()
	switch req.Method() {
	case duplex.MethodCreate:
		return insertOne(entity, subArgs(args, "data"))
	case duplex.MethodCreateMany:
		return insertMany(entity, listArgs(args, "data"))
	case duplex.MethodUpdate:
		return update(entity, subArgs(args, "data"), subArgs(args, "where"), true)
	case duplex.MethodUpdateMany:
		return update(entity, subArgs(args, "data"), subArgs(args, "where"), false)
	case duplex.MethodDelete:
		return deleteFrom(entity, subArgs(args, "where"), true)
	case duplex.MethodDeleteMany:
		return deleteFrom(entity, subArgs(args, "where"), false)
	case duplex.MethodUpsert:
		return upsert(entity, args)
	case duplex.MethodFindMany:
		return selectFrom(entity, args, 0)
	case duplex.MethodFindUnique, duplex.MethodFindFirst:
		return selectFrom(entity, args, 1)
	case duplex.MethodCount:
		return count(entity, subArgs(args, "where"))
	default:
		return nil, fmt.Errorf("postgres: unsupported method %q", req.Method())
	}
}

type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) placeholder(value interface{}) string {
	b.args = append(b.args, normalizeValue(value))
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) where(where duplex.Args) {
	if len(where) == 0 {
		return
	}
	b.sb.WriteString(" WHERE ")
	for i, col := range sortedKeys(where) {
		if i > 0 {
			b.sb.WriteString(" AND ")
		}
		if where[col] == nil {
			b.sb.WriteString(quoteIdent(col) + " IS NULL")
			continue
		}
		b.sb.WriteString(quoteIdent(col) + " = " + b.placeholder(where[col]))
	}
}

func (b *builder) statement(kind stmtKind) *statement {
	return &statement{sql: b.sb.String(), args: b.args, kind: kind}
}

func insertOne(entity string, data duplex.Args) (*statement, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("postgres: create on %q without data", entity)
	}
	b := &builder{}
	cols := sortedKeys(data)
	b.sb.WriteString("INSERT INTO " + quoteIdent(entity) + " (" + joinIdents(cols) + ") VALUES (")
	for i, col := range cols {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.placeholder(data[col]))
	}
	b.sb.WriteString(") RETURNING *")
	return b.statement(kindRows), nil
}

func insertMany(entity string, rows []duplex.Args) (*statement, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("postgres: createMany on %q without data", entity)
	}
	b := &builder{}
	cols := sortedKeys(rows[0])
	b.sb.WriteString("INSERT INTO " + quoteIdent(entity) + " (" + joinIdents(cols) + ") VALUES ")
	for i, row := range rows {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				b.sb.WriteString(", ")
			}
			b.sb.WriteString(b.placeholder(row[col]))
		}
		b.sb.WriteString(")")
	}
	return b.statement(kindExec), nil
}

func update(entity string, data, where duplex.Args, returning bool) (*statement, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("postgres: update on %q without data", entity)
	}
	b := &builder{}
	b.sb.WriteString("UPDATE " + quoteIdent(entity) + " SET ")
	for i, col := range sortedKeys(data) {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(quoteIdent(col) + " = " + b.placeholder(data[col]))
	}
	b.where(where)
	if returning {
		b.sb.WriteString(" RETURNING *")
		return b.statement(kindRows), nil
	}
	return b.statement(kindExec), nil
}

func deleteFrom(entity string, where duplex.Args, returning bool) (*statement, error) {
	b := &builder{}
	b.sb.WriteString("DELETE FROM " + quoteIdent(entity))
	b.where(where)
	if returning {
		b.sb.WriteString(" RETURNING *")
		return b.statement(kindRows), nil
	}
	return b.statement(kindExec), nil
}

// upsert maps the three-part argument bag (where, create, update) onto
// INSERT ... ON CONFLICT: the where keys become the conflict target, the
// merged where+create bag the inserted row, the update bag the conflict
// update set.
func upsert(entity string, args duplex.Args) (*statement, error) {
	where := subArgs(args, "where")
	if len(where) == 0 {
		return nil, fmt.Errorf("postgres: upsert on %q without where", entity)
	}
	row := make(duplex.Args, len(where))
	for col, value := range where {
		row[col] = value
	}
	for col, value := range subArgs(args, "create") {
		row[col] = value
	}

	b := &builder{}
	cols := sortedKeys(row)
	b.sb.WriteString("INSERT INTO " + quoteIdent(entity) + " (" + joinIdents(cols) + ") VALUES (")
	for i, col := range cols {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.placeholder(row[col]))
	}
	b.sb.WriteString(") ON CONFLICT (" + joinIdents(sortedKeys(where)) + ")")

	updateSet := subArgs(args, "update")
	if len(updateSet) == 0 {
		b.sb.WriteString(" DO NOTHING")
	} else {
		b.sb.WriteString(" DO UPDATE SET ")
		for i, col := range sortedKeys(updateSet) {
			if i > 0 {
				b.sb.WriteString(", ")
			}
			b.sb.WriteString(quoteIdent(col) + " = " + b.placeholder(updateSet[col]))
		}
	}
	b.sb.WriteString(" RETURNING *")
	return b.statement(kindRows), nil
}

func selectFrom(entity string, args duplex.Args, limit int) (*statement, error) {
	b := &builder{}
	b.sb.WriteString("SELECT * FROM " + quoteIdent(entity))
	b.where(subArgs(args, "where"))

	if orderBy := subArgs(args, "orderBy"); len(orderBy) == 1 {
		for col, dir := range orderBy {
			b.sb.WriteString(" ORDER BY " + quoteIdent(col))
			if fmt.Sprint(dir) == "desc" {
				b.sb.WriteString(" DESC")
			}
		}
	}

	take, hasTake := intArg(args, "take")
	if limit > 0 && (!hasTake || take > limit) {
		take, hasTake = limit, true
	}
	if hasTake {
		b.sb.WriteString(" LIMIT " + strconv.Itoa(take))
	}
	if skip, ok := intArg(args, "skip"); ok {
		b.sb.WriteString(" OFFSET " + strconv.Itoa(skip))
	}
	return b.statement(kindRows), nil
}

func count(entity string, where duplex.Args) (*statement, error) {
	b := &builder{}
	b.sb.WriteString("SELECT count(*) FROM " + quoteIdent(entity))
	b.where(where)
	return b.statement(kindScalar), nil
}

// normalizeValue rewrites argument values pgx has no native mapping for.
// shopspring decimals are sent in their exact string form so numeric
// columns do not round-trip through float64.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return v.String()
	}
	return value
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys(args duplex.Args) []string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func subArgs(args duplex.Args, key string) duplex.Args {
	if args == nil {
		return nil
	}
	switch nested := args[key].(type) {
	case duplex.Args:
		return nested
	case map[string]interface{}:
		return duplex.Args(nested)
	}
	return nil
}

func listArgs(args duplex.Args, key string) []duplex.Args {
	if args == nil {
		return nil
	}
	switch list := args[key].(type) {
	case []duplex.Args:
		return list
	case []map[string]interface{}:
		out := make([]duplex.Args, 0, len(list))
		for _, item := range list {
			out = append(out, duplex.Args(item))
		}
		return out
	case []interface{}:
		out := make([]duplex.Args, 0, len(list))
		for _, item := range list {
			switch row := item.(type) {
			case duplex.Args:
				out = append(out, row)
			case map[string]interface{}:
				out = append(out, duplex.Args(row))
			}
		}
		return out
	}
	return nil
}

func intArg(args duplex.Args, key string) (int, bool) {
	if args == nil {
		return 0, false
	}
	switch v := args[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
