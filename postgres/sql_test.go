package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplexdb/duplex"
)

func build(t *testing.T, req duplex.Request) *statement {
	t.Helper()
	stmt, err := buildStatement(req)
	require.NoError(t, err)
	return stmt
}

func TestBuildCreate(t *testing.T) {
	stmt := build(t, duplex.NewCreateRequest("product").Data(duplex.Args{
		"data": duplex.Args{"name": "anvil", "price": decimal.RequireFromString("9.99")},
	}))

	assert.Equal(t, `INSERT INTO "product" ("name", "price") VALUES ($1, $2) RETURNING *`, stmt.sql)
	assert.Equal(t, []any{"anvil", "9.99"}, stmt.args)
	assert.Equal(t, kindRows, stmt.kind)
}

func TestBuildCreateMany(t *testing.T) {
	stmt := build(t, duplex.NewCreateManyRequest("product").Data(duplex.Args{
		"data": []duplex.Args{
			{"name": "anvil"},
			{"name": "hammer"},
		},
	}))

	assert.Equal(t, `INSERT INTO "product" ("name") VALUES ($1), ($2)`, stmt.sql)
	assert.Equal(t, []any{"anvil", "hammer"}, stmt.args)
	assert.Equal(t, kindExec, stmt.kind)
}

func TestBuildUpdate(t *testing.T) {
	stmt := build(t, duplex.NewUpdateRequest("order").Data(duplex.Args{
		"where": duplex.Args{"id": 7},
		"data":  duplex.Args{"status": "paid"},
	}))

	assert.Equal(t, `UPDATE "order" SET "status" = $1 WHERE "id" = $2 RETURNING *`, stmt.sql)
	assert.Equal(t, []any{"paid", 7}, stmt.args)
	assert.Equal(t, kindRows, stmt.kind)
}

func TestBuildUpdateManySkipsReturning(t *testing.T) {
	stmt := build(t, duplex.NewUpdateManyRequest("order").Data(duplex.Args{
		"where": duplex.Args{"status": "new"},
		"data":  duplex.Args{"status": "paid"},
	}))

	assert.Equal(t, `UPDATE "order" SET "status" = $1 WHERE "status" = $2`, stmt.sql)
	assert.Equal(t, kindExec, stmt.kind)
}

func TestBuildDeleteWithNullPredicate(t *testing.T) {
	stmt := build(t, duplex.NewDeleteRequest("order").Data(duplex.Args{
		"where": duplex.Args{"cancelled_at": nil, "id": 7},
	}))

	assert.Equal(t, `DELETE FROM "order" WHERE "cancelled_at" IS NULL AND "id" = $1 RETURNING *`, stmt.sql)
	assert.Equal(t, []any{7}, stmt.args)
}

func TestBuildUpsert(t *testing.T) {
	stmt := build(t, duplex.NewUpsertRequest("product").Data(duplex.Args{
		"where":  duplex.Args{"sku": "A1"},
		"create": duplex.Args{"name": "anvil"},
		"update": duplex.Args{"name": "anvil mk2"},
	}))

	assert.Equal(t,
		`INSERT INTO "product" ("name", "sku") VALUES ($1, $2)`+
			` ON CONFLICT ("sku") DO UPDATE SET "name" = $3 RETURNING *`,
		stmt.sql)
	assert.Equal(t, []any{"anvil", "A1", "anvil mk2"}, stmt.args)
}

func TestBuildUpsertWithoutUpdateSet(t *testing.T) {
	stmt := build(t, duplex.NewUpsertRequest("product").Data(duplex.Args{
		"where":  duplex.Args{"sku": "A1"},
		"create": duplex.Args{"name": "anvil"},
	}))

	assert.Contains(t, stmt.sql, `ON CONFLICT ("sku") DO NOTHING`)
}

func TestBuildUpsertRequiresWhere(t *testing.T) {
	_, err := buildStatement(duplex.NewUpsertRequest("product").Data(duplex.Args{
		"create": duplex.Args{"name": "anvil"},
	}))
	assert.Error(t, err)
}

func TestBuildFindMany(t *testing.T) {
	stmt := build(t, duplex.NewFindRequest("product", duplex.MethodFindMany).Filter(duplex.Args{
		"where":   duplex.Args{"stock": 9},
		"orderBy": duplex.Args{"name": "desc"},
		"take":    10,
		"skip":    20,
	}))

	assert.Equal(t,
		`SELECT * FROM "product" WHERE "stock" = $1 ORDER BY "name" DESC LIMIT 10 OFFSET 20`,
		stmt.sql)
	assert.Equal(t, []any{9}, stmt.args)
	assert.Equal(t, kindRows, stmt.kind)
}

func TestBuildFindUniqueClampsLimit(t *testing.T) {
	stmt := build(t, duplex.NewFindRequest("product", duplex.MethodFindUnique).Filter(duplex.Args{
		"where": duplex.Args{"sku": "A1"},
	}))
	assert.Equal(t, `SELECT * FROM "product" WHERE "sku" = $1 LIMIT 1`, stmt.sql)

	stmt = build(t, duplex.NewFindRequest("product", duplex.MethodFindFirst).Filter(duplex.Args{
		"take": 50,
	}))
	assert.Equal(t, `SELECT * FROM "product" LIMIT 1`, stmt.sql)
}

func TestBuildCount(t *testing.T) {
	stmt := build(t, duplex.NewFindRequest("order", duplex.MethodCount).Filter(duplex.Args{
		"where": duplex.Args{"status": "paid"},
	}))

	assert.Equal(t, `SELECT count(*) FROM "order" WHERE "status" = $1`, stmt.sql)
	assert.Equal(t, kindScalar, stmt.kind)
}

func TestBuildRejectsUnknownMethod(t *testing.T) {
	_, err := buildStatement(duplex.NewFindRequest("product", duplex.Method("executeRaw")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")
}

func TestBuildCreateRequiresData(t *testing.T) {
	_, err := buildStatement(duplex.NewCreateRequest("product").Data(nil))
	assert.Error(t, err)

	_, err = buildStatement(duplex.NewCreateManyRequest("product").Data(duplex.Args{}))
	assert.Error(t, err)
}

func TestQuoteIdentEscapesQuotes(t *testing.T) {
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}

func TestTxOptionsMapping(t *testing.T) {
	opts := txOptions(duplex.BeginOptions{
		Isolation: duplex.LevelSerializable,
		ReadOnly:  true,
	})
	assert.Equal(t, pgx.Serializable, opts.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, opts.AccessMode)

	assert.Equal(t, pgx.TxOptions{}, txOptions(duplex.BeginOptions{}))
}
