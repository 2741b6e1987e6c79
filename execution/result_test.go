package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

func TestDedupKey(t *testing.T) {
	key := DedupKey([]common.Value{
		common.NewInt(1),
		common.Null(),
		common.NewBool(true),
		common.NewString("x"),
	}, common.DefaultDateTemplate)
	assert.Equal(t, "1|NULL|TRUE|x", key)
}

func TestDistinctSet(t *testing.T) {
	d := NewDistinctSet(common.DefaultDateTemplate)
	row := []common.Value{common.NewInt(10)}

	assert.True(t, d.Admit(row))
	assert.False(t, d.Admit(row), "repeat rows are suppressed")
	assert.True(t, d.Admit([]common.Value{common.NewInt(20)}))
	// Admitting an already-admitted set again changes nothing: DISTINCT
	// is idempotent.
	assert.False(t, d.Admit(row))
}

func row(vals ...int64) []common.Value {
	out := make([]common.Value, len(vals))
	for i, v := range vals {
		out[i] = common.NewInt(v)
	}
	return out
}

func TestSortRowsBasic(t *testing.T) {
	rows := [][]common.Value{row(3, 1), row(1, 2), row(2, 3)}
	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: true}}, []int{0})
	assert.Equal(t, [][]common.Value{row(1, 2), row(2, 3), row(3, 1)}, rows)

	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: false}}, []int{0})
	assert.Equal(t, [][]common.Value{row(3, 1), row(2, 3), row(1, 2)}, rows)
}

func TestSortRowsStability(t *testing.T) {
	// Equal keys keep their input order, in both directions.
	rows := [][]common.Value{row(1, 10), row(1, 20), row(0, 30), row(1, 40)}
	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: true}}, []int{0})
	assert.Equal(t, [][]common.Value{row(0, 30), row(1, 10), row(1, 20), row(1, 40)}, rows)

	rows = [][]common.Value{row(1, 10), row(1, 20), row(2, 30)}
	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: false}}, []int{0})
	assert.Equal(t, [][]common.Value{row(2, 30), row(1, 10), row(1, 20)}, rows)
}

func TestSortRowsNullsFirstBothDirections(t *testing.T) {
	withNull := func() [][]common.Value {
		return [][]common.Value{
			{common.NewInt(5)},
			{common.Null()},
			{common.NewInt(1)},
		}
	}

	rows := withNull()
	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: true}}, []int{0})
	assert.True(t, rows[0][0].IsNull())
	assert.Equal(t, int64(1), rows[1][0].Int())

	rows = withNull()
	SortRows(rows, []parser.OrderItem{{Column: "a", Asc: false}}, []int{0})
	assert.True(t, rows[0][0].IsNull(), "NULL sorts first even descending")
	assert.Equal(t, int64(5), rows[1][0].Int())
}

func TestSortRowsSecondaryKey(t *testing.T) {
	rows := [][]common.Value{row(1, 2), row(1, 1), row(0, 9)}
	SortRows(rows, []parser.OrderItem{
		{Column: "a", Asc: true},
		{Column: "b", Asc: true},
	}, []int{0, 1})
	assert.Equal(t, [][]common.Value{row(0, 9), row(1, 1), row(1, 2)}, rows)
}

func TestSortRowsSkipsBadKeys(t *testing.T) {
	// An unprojected key (index -1) and an incompatible-type key are
	// both skipped without error.
	rows := [][]common.Value{
		{common.NewString("b"), common.NewInt(2)},
		{common.NewInt(1), common.NewInt(1)},
	}
	SortRows(rows, []parser.OrderItem{
		{Column: "missing", Asc: true},
		{Column: "mixed", Asc: true},
		{Column: "b", Asc: true},
	}, []int{-1, 0, 1})
	assert.Equal(t, int64(1), rows[0][1].Int(), "falls through to the usable key")
}

func TestAggregator(t *testing.T) {
	feed := func(fn parser.AggFn, vals ...common.Value) common.Value {
		a := NewAggregator(fn)
		for _, v := range vals {
			a.AddRow()
			require.NoError(t, a.Add(v))
		}
		return a.Result()
	}

	ints := []common.Value{common.NewInt(10), common.NewInt(20), common.NewInt(30)}
	assert.Equal(t, int64(3), feed(parser.AggCount, ints...).Int())
	assert.Equal(t, int64(60), feed(parser.AggSum, ints...).Int())
	assert.Equal(t, 20.0, feed(parser.AggAvg, ints...).Float())
	assert.Equal(t, int64(10), feed(parser.AggMin, ints...).Int())
	assert.Equal(t, int64(30), feed(parser.AggMax, ints...).Int())

	floats := []common.Value{common.NewFloat(1.5), common.NewFloat(2.5)}
	assert.Equal(t, 4.0, feed(parser.AggSum, floats...).Float())
	assert.Equal(t, 2.0, feed(parser.AggAvg, floats...).Float())
}

func TestAggregatorEdges(t *testing.T) {
	a := NewAggregator(parser.AggAvg)
	assert.Equal(t, 0.0, a.Result().Float(), "AVG of zero rows is 0")

	a = NewAggregator(parser.AggSum)
	assert.True(t, a.Result().IsNull(), "SUM of zero rows is NULL")

	a = NewAggregator(parser.AggCount)
	assert.Equal(t, int64(0), a.Result().Int())

	a = NewAggregator(parser.AggMin)
	err := a.Add(common.NewString("nope"))
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.TypeMismatch))

	// COUNT(col) counts values of any type.
	a = NewAggregator(parser.AggCount)
	a.AddRow()
	require.NoError(t, a.Add(common.NewString("x")))
	a.AddRow()
	require.NoError(t, a.Add(common.NewBool(true)))
	assert.Equal(t, int64(2), a.Result().Int())
}
