package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
)

func testCols(names ...string) []catalog.Column {
	cols := make([]catalog.Column, len(names))
	for i, n := range names {
		cols[i] = catalog.Column{Name: n, Type: common.ColumnType{Kind: common.IntKind}}
	}
	return cols
}

func TestRowCachePublishLookup(t *testing.T) {
	c := NewRowCache()
	c.Publish("t", testCols("a", "b"), []common.Value{common.NewInt(1), common.NewInt(2)})

	v, ok := c.Lookup("t", "a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())

	_, ok = c.Lookup("t", "missing")
	assert.False(t, ok)
	_, ok = c.Lookup("u", "a")
	assert.False(t, ok)
}

func TestRowCacheShadowing(t *testing.T) {
	c := NewRowCache()
	c.Publish("t", testCols("a"), []common.Value{common.NewInt(1)})
	c.Publish("t", testCols("a"), []common.Value{common.NewInt(2)})

	v, ok := c.Lookup("t", "a")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int(), "latest publication wins")
}

func TestRowCacheUnqualified(t *testing.T) {
	c := NewRowCache()
	c.Publish("t", testCols("a", "b"), []common.Value{common.NewInt(1), common.NewInt(2)})
	c.Publish("u", testCols("b", "c"), []common.Value{common.NewInt(3), common.NewInt(4)})

	v, found, ambiguous := c.LookupAny("a")
	require.True(t, found)
	assert.False(t, ambiguous)
	assert.Equal(t, int64(1), v.Int())

	_, found, ambiguous = c.LookupAny("b")
	assert.True(t, found)
	assert.True(t, ambiguous)

	_, found, _ = c.LookupAny("zzz")
	assert.False(t, found)
}

func TestRowCacheClear(t *testing.T) {
	c := NewRowCache()
	assert.True(t, c.Empty())
	c.Publish("t", testCols("a"), []common.Value{common.NewInt(1)})
	assert.False(t, c.Empty())

	c.Clear()
	assert.True(t, c.Empty())
	_, ok := c.Lookup("t", "a")
	assert.False(t, ok)
}
