package storage

import (
	"os"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/indexing"
)

// Table ties together one table's schema header, heap file and indexes,
// and enforces the row-level constraints on mutation.
type Table struct {
	dir        string
	schema     *catalog.Schema
	heap       *HeapFile
	indexes    map[string]*indexing.Index
	cachePages int
}

// CreateTable materializes a new table: header file, empty heap, no
// indexes. The schema must come from catalog.NewSchema.
func CreateTable(dir string, schema *catalog.Schema, cachePages int) (*Table, error) {
	if err := schema.Save(dir); err != nil {
		return nil, err
	}
	heap, err := OpenHeap(DataPath(dir, schema.Table), schema.RowWidth(), cachePages)
	if err != nil {
		os.Remove(catalog.HeaderPath(dir, schema.Table))
		return nil, err
	}
	return &Table{
		dir:        dir,
		schema:     schema,
		heap:       heap,
		indexes:    make(map[string]*indexing.Index),
		cachePages: cachePages,
	}, nil
}

// OpenTable loads an existing table and its indexes.
func OpenTable(dir, name string, cachePages int) (*Table, error) {
	schema, err := catalog.LoadSchema(dir, name)
	if err != nil {
		return nil, err
	}
	heap, err := OpenHeap(DataPath(dir, name), schema.RowWidth(), cachePages)
	if err != nil {
		return nil, err
	}
	t := &Table{
		dir:        dir,
		schema:     schema,
		heap:       heap,
		indexes:    make(map[string]*indexing.Index),
		cachePages: cachePages,
	}
	for _, col := range schema.Indexes {
		ci := schema.ColumnIndex(col)
		if ci < 0 {
			t.Close()
			return nil, common.Errorf(common.Internal, "indexed column %q missing from schema of %q", col, name)
		}
		ix, err := indexing.Open(indexing.IndexPath(dir, name, col), schema.Columns[ci].Type)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.indexes[col] = ix
	}
	return t, nil
}

func (t *Table) Name() string            { return t.schema.Table }
func (t *Table) Schema() *catalog.Schema { return t.schema }

// Index returns the index on col, or nil.
func (t *Table) Index(col string) *indexing.Index { return t.indexes[col] }

// Close flushes the heap, the indexes and the header watermark.
func (t *Table) Close() error {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}
	keep(t.schema.Save(t.dir))
	for _, ix := range t.indexes {
		keep(ix.Close())
	}
	keep(t.heap.Close())
	return firstErr
}

// Drop removes every file belonging to the table. The heap handle is
// released without flushing; the data is going away.
func (t *Table) Drop() error {
	t.heap.pager.file.Close()
	var firstErr error
	keep := func(err error) {
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}
	for col := range t.indexes {
		keep(os.Remove(indexing.IndexPath(t.dir, t.schema.Table, col)))
	}
	keep(os.Remove(DataPath(t.dir, t.schema.Table)))
	keep(os.Remove(catalog.HeaderPath(t.dir, t.schema.Table)))
	return common.WrapIO("drop table", firstErr)
}

// checkConstraints validates NOT NULL, UNIQUE and PRIMARY KEY for the
// columns listed in cols (full-row indices). except skips one record in
// uniqueness probes so updates do not collide with themselves.
func (t *Table) checkConstraints(vals []common.Value, cols []int, except *common.RecordID) error {
	for _, ci := range cols {
		c := t.schema.Columns[ci]
		v := vals[ci]
		if v.IsNull() {
			if c.NotNull || c.PrimaryKey {
				return common.Errorf(common.ConstraintViolation, "column %q cannot be NULL", c.Name)
			}
			continue
		}
		if c.Unique || c.PrimaryKey {
			dup, err := t.valueExistsExcept(c.Name, v, except)
			if err != nil {
				return err
			}
			if dup {
				return common.Errorf(common.ConstraintViolation, "duplicate value for column %q", c.Name)
			}
		}
	}
	return nil
}

func allColumns(s *catalog.Schema) []int {
	cols := make([]int, len(s.Columns))
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// Insert stores one row of user-column values (cast already applied),
// assigns the rowid, and maintains every index. Returns the new rowid.
func (t *Table) Insert(userVals []common.Value) (common.RecordID, int64, error) {
	if len(userVals) != len(t.schema.Columns)-1 {
		return common.RecordID{}, 0, common.Errorf(common.Internal, "row has %d values, table %q wants %d", len(userVals), t.schema.Table, len(t.schema.Columns)-1)
	}
	rowid := t.schema.NextRowID
	vals := make([]common.Value, 0, len(t.schema.Columns))
	vals = append(vals, userVals...)
	vals = append(vals, common.NewInt(rowid))

	if err := t.checkConstraints(vals, allColumns(t.schema), nil); err != nil {
		return common.RecordID{}, 0, err
	}

	buf := make([]byte, t.schema.RowWidth())
	EncodeRow(t.schema, vals, buf)
	rid, err := t.heap.Insert(buf)
	if err != nil {
		return common.RecordID{}, 0, err
	}
	t.schema.NextRowID++

	for col, ix := range t.indexes {
		ix.Insert(vals[t.schema.ColumnIndex(col)], rid)
	}
	return rid, rowid, nil
}

// Read decodes the row at rid.
func (t *Table) Read(rid common.RecordID) ([]common.Value, error) {
	buf := make([]byte, t.schema.RowWidth())
	if err := t.heap.Read(rid, buf); err != nil {
		return nil, err
	}
	return DecodeRow(t.schema, buf), nil
}

// Delete removes the row at rid and its index entries.
func (t *Table) Delete(rid common.RecordID) error {
	vals, err := t.Read(rid)
	if err != nil {
		return err
	}
	for col, ix := range t.indexes {
		ix.Delete(vals[t.schema.ColumnIndex(col)], rid)
	}
	return t.heap.Delete(rid)
}

// Modify overwrites one column of the row at rid, keeping the column's
// index (if any) in sync.
func (t *Table) Modify(rid common.RecordID, colIdx int, v common.Value) error {
	if colIdx < 0 || colIdx >= len(t.schema.Columns) {
		return common.Errorf(common.NotFound, "column %d out of range in table %q", colIdx, t.schema.Table)
	}
	vals, err := t.Read(rid)
	if err != nil {
		return err
	}
	old := vals[colIdx]
	vals[colIdx] = v
	if err := t.checkConstraints(vals, []int{colIdx}, &rid); err != nil {
		return err
	}

	buf := make([]byte, t.schema.RowWidth())
	EncodeRow(t.schema, vals, buf)
	if err := t.heap.Write(rid, buf); err != nil {
		return err
	}
	if ix := t.indexes[t.schema.Columns[colIdx].Name]; ix != nil {
		ix.Delete(old, rid)
		ix.Insert(v, rid)
	}
	return nil
}

// Scan visits every row in heap order with its decoded values.
func (t *Table) Scan(fn func(rid common.RecordID, vals []common.Value) (bool, error)) error {
	return t.heap.Scan(func(rid common.RecordID, row []byte) (bool, error) {
		return fn(rid, DecodeRow(t.schema, row))
	})
}

// ValueExists reports whether any row holds v in the named column,
// probing the index when one exists.
func (t *Table) ValueExists(col string, v common.Value) (bool, error) {
	return t.valueExistsExcept(col, v, nil)
}

func (t *Table) valueExistsExcept(col string, v common.Value, except *common.RecordID) (bool, error) {
	ci := t.schema.ColumnIndex(col)
	if ci < 0 {
		return false, common.Errorf(common.NotFound, "column %q does not exist in table %q", col, t.schema.Table)
	}
	cast, err := common.Cast(t.schema.Columns[ci].Type, v)
	if err != nil {
		return false, err
	}

	if ix := t.indexes[col]; ix != nil {
		found := false
		ix.AscendFrom(cast, func(key common.Value, rid common.RecordID) bool {
			cmp, ok := key.Compare(cast)
			if !ok || cmp != 0 {
				return false
			}
			if except == nil || rid != *except {
				found = true
				return false
			}
			return true
		})
		return found, nil
	}

	found := false
	err = t.Scan(func(rid common.RecordID, vals []common.Value) (bool, error) {
		if except != nil && rid == *except {
			return true, nil
		}
		cmp, ok := vals[ci].Compare(cast)
		if ok && cmp == 0 && !vals[ci].IsNull() {
			found = true
			return false, nil
		}
		return true, nil
	})
	return found, err
}

// CreateIndex builds an ordered index on col by a full scan, then keeps
// it maintained by future writes.
func (t *Table) CreateIndex(col string) error {
	ci := t.schema.ColumnIndex(col)
	if ci < 0 {
		return common.Errorf(common.NotFound, "column %q does not exist in table %q", col, t.schema.Table)
	}
	if t.schema.HasIndex(col) {
		return common.Errorf(common.AlreadyExists, "index on %s(%s) already exists", t.schema.Table, col)
	}

	ix := indexing.Create(indexing.IndexPath(t.dir, t.schema.Table, col), t.schema.Columns[ci].Type)
	err := t.Scan(func(rid common.RecordID, vals []common.Value) (bool, error) {
		ix.Insert(vals[ci], rid)
		return true, nil
	})
	if err != nil {
		return err
	}
	if err := ix.Flush(); err != nil {
		return err
	}
	if err := t.schema.AddIndex(col); err != nil {
		return err
	}
	t.indexes[col] = ix
	return t.schema.Save(t.dir)
}

// DropIndex removes the index on col.
func (t *Table) DropIndex(col string) error {
	ix := t.indexes[col]
	if ix == nil {
		return common.Errorf(common.NotFound, "no index on %s(%s)", t.schema.Table, col)
	}
	if err := ix.Drop(); err != nil {
		return err
	}
	delete(t.indexes, col)
	if err := t.schema.RemoveIndex(col); err != nil {
		return err
	}
	return t.schema.Save(t.dir)
}

// RenameColumn renames a column in place. The heap layout is unchanged;
// an index on the column has its file renamed to follow.
func (t *Table) RenameColumn(oldName, newName string) error {
	ci := t.schema.ColumnIndex(oldName)
	if ci < 0 || oldName == catalog.RowIDColumn {
		return common.Errorf(common.NotFound, "column %q does not exist in table %q", oldName, t.schema.Table)
	}
	if t.schema.ColumnIndex(newName) >= 0 || newName == catalog.RowIDColumn {
		return common.Errorf(common.AlreadyExists, "column %q already exists in table %q", newName, t.schema.Table)
	}
	if len(newName) == 0 || len(newName) >= common.MaxNameLen {
		return common.Errorf(common.TypeMismatch, "column name %q exceeds %d bytes", newName, common.MaxNameLen-1)
	}

	if ix := t.indexes[oldName]; ix != nil {
		if err := ix.Flush(); err != nil {
			return err
		}
		oldPath := indexing.IndexPath(t.dir, t.schema.Table, oldName)
		newPath := indexing.IndexPath(t.dir, t.schema.Table, newName)
		if err := os.Rename(oldPath, newPath); err != nil {
			return common.WrapIO("rename index file", err)
		}
		reopened, err := indexing.Open(newPath, t.schema.Columns[ci].Type)
		if err != nil {
			os.Rename(newPath, oldPath)
			return err
		}
		delete(t.indexes, oldName)
		t.indexes[newName] = reopened
		for i, col := range t.schema.Indexes {
			if col == oldName {
				t.schema.Indexes[i] = newName
			}
		}
	}

	t.schema.Columns[ci].Name = newName
	return t.schema.Save(t.dir)
}

// Rewrite rebuilds the table under a new schema, passing every old row
// through transform. Used by the ALTER COLUMN family. Indexes surviving
// into the new schema are rebuilt from scratch.
func (t *Table) Rewrite(newSchema *catalog.Schema, transform func(old []common.Value) ([]common.Value, error)) error {
	tmpPath := DataPath(t.dir, t.schema.Table) + ".tmp"
	newHeap, err := OpenHeap(tmpPath, newSchema.RowWidth(), t.cachePages)
	if err != nil {
		return err
	}
	abort := func(err error) error {
		newHeap.pager.file.Close()
		os.Remove(tmpPath)
		return err
	}

	buf := make([]byte, newSchema.RowWidth())
	err = t.Scan(func(_ common.RecordID, vals []common.Value) (bool, error) {
		newVals, err := transform(vals)
		if err != nil {
			return false, err
		}
		EncodeRow(newSchema, newVals, buf)
		if _, err := newHeap.Insert(buf); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return abort(err)
	}
	if err := newHeap.Close(); err != nil {
		return abort(err)
	}

	// Swap data files, discard the old indexes, adopt the new schema.
	for col, ix := range t.indexes {
		if err := ix.Drop(); err != nil {
			return abort(err)
		}
		delete(t.indexes, col)
	}
	if err := t.heap.pager.file.Close(); err != nil {
		return abort(common.WrapIO("close heap", err))
	}
	if err := os.Rename(tmpPath, DataPath(t.dir, t.schema.Table)); err != nil {
		return common.WrapIO("swap heap", err)
	}

	wantIndexes := newSchema.Indexes
	newSchema.Indexes = nil
	newSchema.Table = t.schema.Table
	t.schema = newSchema
	if err := t.schema.Save(t.dir); err != nil {
		return err
	}
	heap, err := OpenHeap(DataPath(t.dir, t.schema.Table), t.schema.RowWidth(), t.cachePages)
	if err != nil {
		return err
	}
	t.heap = heap
	for _, col := range wantIndexes {
		if t.schema.ColumnIndex(col) >= 0 {
			if err := t.CreateIndex(col); err != nil {
				return err
			}
		}
	}
	return nil
}
