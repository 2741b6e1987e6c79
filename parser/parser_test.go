package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/common"
)

func TestParseDatabaseStatements(t *testing.T) {
	stmt, err := Parse("CREATE DATABASE shop;")
	require.NoError(t, err)
	assert.Equal(t, CreateDatabase{Name: "shop"}, stmt)

	stmt, err = Parse("use shop")
	require.NoError(t, err)
	assert.Equal(t, UseDatabase{Name: "shop"}, stmt)

	stmt, err = Parse("DROP DATABASE shop;")
	require.NoError(t, err)
	assert.Equal(t, DropDatabase{Name: "shop"}, stmt)

	stmt, err = Parse("SHOW DATABASE shop;")
	require.NoError(t, err)
	assert.Equal(t, ShowDatabase{Name: "shop"}, stmt)
}

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t(a INT PRIMARY KEY, b VARCHAR(20) NOT NULL, c FLOAT DEFAULT 1.5, d BOOL UNIQUE, e DATE);")
	require.NoError(t, err)
	ct, ok := stmt.(CreateTable)
	require.True(t, ok)
	assert.Equal(t, "t", ct.Name)
	require.Len(t, ct.Columns, 5)

	assert.True(t, ct.Columns[0].PrimaryKey)
	assert.Equal(t, common.IntKind, ct.Columns[0].Type.Kind)
	assert.True(t, ct.Columns[1].NotNull)
	assert.Equal(t, 20, ct.Columns[1].Type.Len)
	require.NotNil(t, ct.Columns[2].Default)
	assert.Equal(t, 1.5, ct.Columns[2].Default.Float())
	assert.True(t, ct.Columns[3].Unique)
	assert.Equal(t, common.DateKind, ct.Columns[4].Type.Kind)
}

func TestParseIndexStatements(t *testing.T) {
	stmt, err := Parse("CREATE INDEX ON t(a);")
	require.NoError(t, err)
	assert.Equal(t, CreateIndex{Table: "t", Column: "a"}, stmt)

	stmt, err = Parse("DROP INDEX ON t(a);")
	require.NoError(t, err)
	assert.Equal(t, DropIndex{Table: "t", Column: "a"}, stmt)
}

func TestParseAlterStatements(t *testing.T) {
	stmt, err := Parse("ALTER TABLE t ADD COLUMN x INT NOT NULL;")
	require.NoError(t, err)
	add, ok := stmt.(AlterAddColumn)
	require.True(t, ok)
	assert.Equal(t, "x", add.Col.Name)
	assert.True(t, add.Col.NotNull)

	stmt, err = Parse("ALTER TABLE t DROP COLUMN x;")
	require.NoError(t, err)
	assert.Equal(t, AlterDropColumn{Table: "t", Column: "x"}, stmt)

	stmt, err = Parse("ALTER TABLE t MODIFY COLUMN x FLOAT;")
	require.NoError(t, err)
	mod, ok := stmt.(AlterModifyColumn)
	require.True(t, ok)
	assert.Equal(t, common.FloatKind, mod.Col.Type.Kind)

	stmt, err = Parse("ALTER TABLE t RENAME COLUMN x TO y;")
	require.NoError(t, err)
	assert.Equal(t, AlterRenameColumn{Table: "t", Old: "x", New: "y"}, stmt)

	stmt, err = Parse("RENAME TABLE t TO u;")
	require.NoError(t, err)
	assert.Equal(t, RenameTable{Old: "t", New: "u"}, stmt)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES (1,10),(2,20),(3,30);")
	require.NoError(t, err)
	ins, ok := stmt.(Insert)
	require.True(t, ok)
	assert.Equal(t, "t", ins.Table)
	assert.Nil(t, ins.Columns)
	require.Len(t, ins.Rows, 3)
	require.Len(t, ins.Rows[0], 2)
	assert.Equal(t, int64(1), ins.Rows[0][0].(*Literal).Val.Int())

	stmt, err = Parse("INSERT INTO t(a) VALUES ('x'), (NULL), (-5);")
	require.NoError(t, err)
	ins = stmt.(Insert)
	assert.Equal(t, []string{"a"}, ins.Columns)
	assert.Equal(t, "x", ins.Rows[0][0].(*Literal).Val.Str())
	assert.True(t, ins.Rows[1][0].(*Literal).Val.IsNull())
	assert.Equal(t, int64(-5), ins.Rows[2][0].(*Literal).Val.Int())
}

func TestParseDeleteUpdate(t *testing.T) {
	stmt, err := Parse("DELETE FROM t WHERE a = 1;")
	require.NoError(t, err)
	del, ok := stmt.(Delete)
	require.True(t, ok)
	assert.Equal(t, "t", del.Table)
	require.NotNil(t, del.Where)

	stmt, err = Parse("UPDATE t SET a = a + 1 WHERE b > 2;")
	require.NoError(t, err)
	upd, ok := stmt.(Update)
	require.True(t, ok)
	assert.Equal(t, "a", upd.Column)
	assert.Equal(t, "(a + 1)", upd.Value.String())
}

func TestParseSelect(t *testing.T) {
	stmt, err := Parse("SELECT a, b FROM t WHERE b >= 20;")
	require.NoError(t, err)
	sel, ok := stmt.(Select)
	require.True(t, ok)
	assert.False(t, sel.Star)
	assert.Equal(t, "a,b", ExprList(sel.Exprs))
	require.Len(t, sel.Tables, 1)
	cmp, ok := sel.Where.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpGe, cmp.Op)
}

func TestParseSelectJoin(t *testing.T) {
	stmt, err := Parse("SELECT t.a, u.c FROM t, u WHERE t.a = u.a AND u.c > 100;")
	require.NoError(t, err)
	sel := stmt.(Select)
	require.Len(t, sel.Tables, 2)
	and, ok := sel.Where.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)

	eq := and.L.(*Binary)
	assert.Equal(t, OpEq, eq.Op)
	assert.Equal(t, &ColumnRef{Table: "t", Column: "a"}, eq.L)
	assert.Equal(t, &ColumnRef{Table: "u", Column: "a"}, eq.R)
}

func TestParseSelectModifiers(t *testing.T) {
	stmt, err := Parse("SELECT DISTINCT b FROM t;")
	require.NoError(t, err)
	assert.True(t, stmt.(Select).Distinct)

	stmt, err = Parse("SELECT * FROM t x, u ORDER BY a DESC, b;")
	require.NoError(t, err)
	sel := stmt.(Select)
	assert.True(t, sel.Star)
	assert.Equal(t, TableRef{Name: "t", Alias: "x"}, sel.Tables[0])
	assert.Equal(t, TableRef{Name: "u"}, sel.Tables[1])
	require.Len(t, sel.OrderBy, 2)
	assert.Equal(t, OrderItem{Column: "a", Asc: false}, sel.OrderBy[0])
	assert.Equal(t, OrderItem{Column: "b", Asc: true}, sel.OrderBy[1])
}

func TestParseAggregates(t *testing.T) {
	stmt, err := Parse("SELECT COUNT(*) FROM t;")
	require.NoError(t, err)
	agg, ok := stmt.(Select).Exprs[0].(*Aggregate)
	require.True(t, ok)
	assert.Equal(t, AggCount, agg.Fn)
	assert.Nil(t, agg.Arg)

	stmt, err = Parse("SELECT SUM(b) FROM t WHERE a > 1;")
	require.NoError(t, err)
	agg = stmt.(Select).Exprs[0].(*Aggregate)
	assert.Equal(t, AggSum, agg.Fn)
	assert.Equal(t, "b", agg.Arg.String())
	assert.True(t, HasAggregate(stmt.(Select).Exprs[0]))
}

func TestParseExpressions(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t WHERE NOT (a IS NULL) AND b LIKE 'x%' OR a * 2 + 1 <> 5;")
	require.NoError(t, err)
	sel := stmt.(Select)
	or, ok := sel.Where.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)

	stmt, err = Parse("SELECT a FROM t WHERE d = DATE '2024-01-02';")
	require.NoError(t, err)
	eq := stmt.(Select).Where.(*Binary)
	lit := eq.R.(*Literal)
	assert.Equal(t, common.KindDate, lit.Val.Kind())
}

func TestParseOutput(t *testing.T) {
	stmt, err := Parse("OUTPUT 'result.csv';")
	require.NoError(t, err)
	assert.Equal(t, Output{Sink: "result.csv"}, stmt)

	stmt, err = Parse("OUTPUT STDOUT;")
	require.NoError(t, err)
	assert.Equal(t, Output{Sink: "stdout"}, stmt)
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"FROBNICATE;",
		"SELECT FROM t;",
		"CREATE TABLE t;",
		"INSERT INTO t VALUES;",
		"SELECT a FROM t WHERE 'unterminated;",
		"SELECT a FROM t extra garbage here",
	} {
		_, err := Parse(src)
		assert.Error(t, err, "input %q", src)
	}
}

func TestParseLiteralHelper(t *testing.T) {
	v, err := ParseLiteral("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int())

	v, err = ParseLiteral("'hi'")
	require.NoError(t, err)
	assert.Equal(t, "hi", v.Str())

	_, err = ParseLiteral("42 43")
	require.Error(t, err)
}
