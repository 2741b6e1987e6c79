// Package dbms is the engine facade: a Session owns the currently open
// database, the row cache and the result sink, and routes every parsed
// statement to the catalog, the storage layer and the executor.
package dbms

import (
	"os"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/indexing"
	"github.com/elerspay/DBMS/storage"
)

// Database is an open database: the catalog blob plus an ordered,
// owning collection of table handles.
type Database struct {
	dir        string
	info       *catalog.DatabaseInfo
	tables     []*storage.Table
	byName     map[string]*storage.Table
	cachePages int
}

// CreateDatabase writes a fresh, empty catalog blob.
func CreateDatabase(dir, name string) error {
	if catalog.Exists(dir, name) {
		return common.Errorf(common.AlreadyExists, "database %q already exists", name)
	}
	info := &catalog.DatabaseInfo{Name: name}
	return info.Save(dir)
}

// OpenDatabase reads the catalog and opens every table it lists.
func OpenDatabase(dir, name string, cachePages int) (*Database, error) {
	info, err := catalog.Load(dir, name)
	if err != nil {
		return nil, err
	}
	db := &Database{
		dir:        dir,
		info:       info,
		byName:     make(map[string]*storage.Table),
		cachePages: cachePages,
	}
	for _, tn := range info.Tables {
		t, err := storage.OpenTable(dir, tn, cachePages)
		if err != nil {
			db.Close()
			return nil, err
		}
		db.tables = append(db.tables, t)
		db.byName[tn] = t
	}
	return db, nil
}

func (db *Database) Name() string { return db.info.Name }

// Table returns an open table handle by name, or nil.
func (db *Database) Table(name string) *storage.Table { return db.byName[name] }

// Tables lists the open tables in catalog order.
func (db *Database) Tables() []*storage.Table { return db.tables }

// Info exposes the catalog descriptor.
func (db *Database) Info() *catalog.DatabaseInfo { return db.info }

// Close closes every table and rewrites the catalog blob.
func (db *Database) Close() error {
	var firstErr error
	for _, t := range db.tables {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.tables = nil
	db.byName = make(map[string]*storage.Table)
	if err := db.info.Save(db.dir); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Drop deletes every table's storage and removes the catalog blob.
func (db *Database) Drop() error {
	var firstErr error
	for _, t := range db.tables {
		if err := t.Drop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.tables = nil
	db.byName = make(map[string]*storage.Table)
	if err := catalog.Remove(db.dir, db.info.Name); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// CreateTable appends the descriptor to the catalog and materializes the
// table's storage.
func (db *Database) CreateTable(schema *catalog.Schema) error {
	if err := db.info.AddTable(schema.Table); err != nil {
		return err
	}
	t, err := storage.CreateTable(db.dir, schema, db.cachePages)
	if err != nil {
		db.info.RemoveTable(schema.Table)
		return err
	}
	db.tables = append(db.tables, t)
	db.byName[schema.Table] = t
	return db.info.Save(db.dir)
}

// DropTable removes the table's storage and shifts the catalog tail to
// close the gap.
func (db *Database) DropTable(name string) error {
	t := db.byName[name]
	if t == nil {
		return common.Errorf(common.NotFound, "table %q does not exist", name)
	}
	if err := t.Drop(); err != nil {
		return err
	}
	id := db.info.TableIndex(name)
	db.tables = append(db.tables[:id], db.tables[id+1:]...)
	delete(db.byName, name)
	db.info.RemoveTable(name)
	return db.info.Save(db.dir)
}

// RenameTable is a two-step rename: storage files first, catalog second,
// with rename-back on partial failure so disk is always fully old-named
// or fully new-named.
func (db *Database) RenameTable(oldName, newName string) error {
	id := db.info.TableIndex(oldName)
	if id < 0 {
		return common.Errorf(common.NotFound, "table %q does not exist", oldName)
	}
	if db.info.TableIndex(newName) >= 0 {
		return common.Errorf(common.AlreadyExists, "table %q already exists", newName)
	}
	if len(newName) == 0 || len(newName) >= common.MaxNameLen {
		return common.Errorf(common.TypeMismatch, "table name %q exceeds %d bytes", newName, common.MaxNameLen-1)
	}

	t := db.byName[oldName]
	idxCols := append([]string(nil), t.Schema().Indexes...)
	if err := t.Close(); err != nil {
		return err
	}

	renames := [][2]string{
		{storage.DataPath(db.dir, oldName), storage.DataPath(db.dir, newName)},
		{catalog.HeaderPath(db.dir, oldName), catalog.HeaderPath(db.dir, newName)},
	}
	for _, col := range idxCols {
		renames = append(renames, [2]string{
			indexing.IndexPath(db.dir, oldName, col),
			indexing.IndexPath(db.dir, newName, col),
		})
	}

	rollback := func(done int) {
		for i := done - 1; i >= 0; i-- {
			os.Rename(renames[i][1], renames[i][0])
		}
	}
	reopenOld := func() {
		if reopened, err := storage.OpenTable(db.dir, oldName, db.cachePages); err == nil {
			db.tables[id] = reopened
			db.byName[oldName] = reopened
		}
	}

	for i, r := range renames {
		if err := os.Rename(r[0], r[1]); err != nil {
			rollback(i)
			reopenOld()
			return common.WrapIO("rename table files", err)
		}
	}

	// Rewrite the header's embedded name, then reopen under the new name.
	schema, err := catalog.LoadSchema(db.dir, newName)
	if err == nil {
		schema.Table = newName
		err = schema.Save(db.dir)
	}
	var reopened *storage.Table
	if err == nil {
		reopened, err = storage.OpenTable(db.dir, newName, db.cachePages)
	}
	if err != nil {
		rollback(len(renames))
		// The header may already carry the new embedded name; put the
		// old one back before reopening.
		if schema, lerr := catalog.LoadSchema(db.dir, oldName); lerr == nil && schema.Table != oldName {
			schema.Table = oldName
			schema.Save(db.dir)
		}
		reopenOld()
		return err
	}

	db.tables[id] = reopened
	delete(db.byName, oldName)
	db.byName[newName] = reopened
	db.info.Tables[id] = newName
	return db.info.Save(db.dir)
}
