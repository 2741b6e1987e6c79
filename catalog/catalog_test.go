package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/common"
)

func TestCatalogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	info := &DatabaseInfo{Name: "shop"}
	require.NoError(t, info.AddTable("orders"))
	require.NoError(t, info.AddTable("customers"))
	require.NoError(t, info.AddTable("items"))
	require.NoError(t, info.Save(dir))

	loaded, err := Load(dir, "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Name)
	assert.Equal(t, []string{"orders", "customers", "items"}, loaded.Tables)
}

func TestCatalogInvariants(t *testing.T) {
	info := &DatabaseInfo{Name: "d"}
	require.NoError(t, info.AddTable("t"))

	err := info.AddTable("t")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.AlreadyExists))

	err = info.RemoveTable("missing")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.NotFound))

	for i := 0; len(info.Tables) < common.MaxTableNum; i++ {
		require.NoError(t, info.AddTable(string(rune('a'+i))+"x"))
	}
	err = info.AddTable("overflow")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.ConstraintViolation))
}

func TestCatalogTailShift(t *testing.T) {
	info := &DatabaseInfo{Name: "d"}
	require.NoError(t, info.AddTable("a"))
	require.NoError(t, info.AddTable("b"))
	require.NoError(t, info.AddTable("c"))

	require.NoError(t, info.RemoveTable("b"))
	assert.Equal(t, []string{"a", "c"}, info.Tables)
	assert.Equal(t, 1, info.TableIndex("c"))
}

func TestLoadMissingDatabase(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.NotFound))
}

func TestSchemaRowID(t *testing.T) {
	s, err := NewSchema("t", []Column{
		{Name: "a", Type: common.ColumnType{Kind: common.IntKind}},
		{Name: "b", Type: common.ColumnType{Kind: common.VarcharKind, Len: 10}},
	})
	require.NoError(t, err)

	require.Len(t, s.Columns, 3)
	assert.Equal(t, RowIDColumn, s.Columns[2].Name)
	assert.Len(t, s.UserColumns(), 2)
	assert.Equal(t, int64(1), s.NextRowID)
	// 1+8 for a, 1+10 for b, 1+8 for rowid
	assert.Equal(t, 29, s.RowWidth())
}

func TestSchemaValidation(t *testing.T) {
	_, err := NewSchema("t", []Column{
		{Name: "a", Type: common.ColumnType{Kind: common.IntKind}},
		{Name: "a", Type: common.ColumnType{Kind: common.IntKind}},
	})
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.AlreadyExists))

	_, err = NewSchema("t", []Column{
		{Name: RowIDColumn, Type: common.ColumnType{Kind: common.IntKind}},
	})
	require.Error(t, err)

	_, err = NewSchema("t", []Column{
		{Name: "s", Type: common.ColumnType{Kind: common.CharKind}},
	})
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.TypeMismatch))
}

func TestSchemaHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSchema("t", []Column{
		{Name: "a", Type: common.ColumnType{Kind: common.IntKind}, PrimaryKey: true},
		{Name: "b", Type: common.ColumnType{Kind: common.CharKind, Len: 4}, NotNull: true},
	})
	require.NoError(t, err)
	require.NoError(t, s.AddIndex("a"))
	s.NextRowID = 42
	require.NoError(t, s.Save(dir))

	loaded, err := LoadSchema(dir, "t")
	require.NoError(t, err)
	assert.Equal(t, s.Columns, loaded.Columns)
	assert.Equal(t, []string{"a"}, loaded.Indexes)
	assert.Equal(t, int64(42), loaded.NextRowID)

	_, err = LoadSchema(dir, "missing")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.NotFound))
}
