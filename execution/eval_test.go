package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

func exprOf(t *testing.T, src string) parser.Expr {
	t.Helper()
	stmt, err := parser.Parse("SELECT x FROM t WHERE " + src + ";")
	require.NoError(t, err)
	return stmt.(parser.Select).Where
}

func testEvaluator(t *testing.T) *Evaluator {
	cache := NewRowCache()
	cache.Publish("t", testCols("a", "b"), []common.Value{common.NewInt(6), common.Null()})
	return NewEvaluator(cache)
}

func TestEvalComparisons(t *testing.T) {
	ev := testEvaluator(t)
	cases := []struct {
		src  string
		want bool
	}{
		{"1 = 1", true},
		{"1 <> 2", true},
		{"2 < 1", false},
		{"2 >= 2", true},
		{"'abc' < 'abd'", true},
		{"a = 6", true},
		{"t.a > 5", true},
		{"a * 2 = 12", true},
		{"a % 4 = 2", true},
		{"'hay' LIKE 'h_y'", true},
		{"'haystack' LIKE 'hay%'", true},
		{"'haystack' LIKE 'x%'", false},
		{"b IS NULL", true},
		{"b IS NOT NULL", false},
		{"NOT 1 = 2", true},
	}
	for _, tc := range cases {
		v, err := ev.Eval(exprOf(t, tc.src))
		require.NoError(t, err, tc.src)
		require.False(t, v.IsNull(), tc.src)
		assert.Equal(t, tc.want, v.Bool(), tc.src)
	}
}

func TestEvalThreeValuedLogic(t *testing.T) {
	ev := testEvaluator(t)

	// NULL comparisons are NULL, and Truth treats NULL as false.
	v, err := ev.Eval(exprOf(t, "b = 1"))
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	match, err := ev.Truth(exprOf(t, "b = 1"))
	require.NoError(t, err)
	assert.False(t, match)

	// FALSE AND NULL is FALSE; TRUE OR NULL is TRUE.
	v, err = ev.Eval(exprOf(t, "1 = 2 AND b = 1"))
	require.NoError(t, err)
	require.False(t, v.IsNull())
	assert.False(t, v.Bool())

	v, err = ev.Eval(exprOf(t, "1 = 1 OR b = 1"))
	require.NoError(t, err)
	require.False(t, v.IsNull())
	assert.True(t, v.Bool())

	// TRUE AND NULL stays NULL.
	v, err = ev.Eval(exprOf(t, "1 = 1 AND b = 1"))
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvalArithmetic(t *testing.T) {
	ev := testEvaluator(t)

	v, err := ev.Eval(exprOf(t, "7 / 2"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int(), "integer division")

	v, err = ev.Eval(exprOf(t, "7.0 / 2"))
	require.NoError(t, err)
	assert.Equal(t, 3.5, v.Float(), "float widening")

	v, err = ev.Eval(exprOf(t, "1 + b"))
	require.NoError(t, err)
	assert.True(t, v.IsNull(), "NULL operand propagates")
}

func TestEvalErrors(t *testing.T) {
	ev := testEvaluator(t)

	_, err := ev.Eval(exprOf(t, "1 / 0"))
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.Evaluation))

	_, err = ev.Eval(exprOf(t, "a % 0"))
	require.Error(t, err)

	_, err = ev.Eval(exprOf(t, "1 = 'x'"))
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.Evaluation))

	_, err = ev.Eval(exprOf(t, "nope = 1"))
	require.Error(t, err)

	_, err = ev.Eval(exprOf(t, "u.a = 1"))
	require.Error(t, err)
}
