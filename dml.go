package dbms

import (
	"fmt"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
	"github.com/elerspay/DBMS/planner"
	"github.com/elerspay/DBMS/storage"
)

func (s *Session) lookupTable(name string) (*storage.Table, error) {
	db, err := s.requireDB()
	if err != nil {
		return nil, err
	}
	t := db.Table(name)
	if t == nil {
		return nil, common.Errorf(common.NotFound, "table %q does not exist", name)
	}
	return t, nil
}

// Insert type-checks and stores each VALUES tuple. Per-row failures are
// counted, not fatal: reported success + failure always equals the
// number of supplied tuples.
func (s *Session) Insert(stmt parser.Insert, sql string) (succeeded, failed int, err error) {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("insert", stmt.Table, sql, 0, err, "")
		return 0, 0, err
	}
	schema := t.Schema()
	userCols := schema.UserColumns()

	colIDs := make([]int, 0, len(userCols))
	if stmt.Columns == nil {
		for i := range userCols {
			colIDs = append(colIDs, i)
		}
	} else {
		for _, name := range stmt.Columns {
			ci := schema.ColumnIndex(name)
			if ci < 0 || ci == len(schema.Columns)-1 {
				err = common.Errorf(common.NotFound, "no column %q in table %q", name, stmt.Table)
				s.logOp("insert", stmt.Table, sql, 0, err, "")
				return 0, 0, err
			}
			colIDs = append(colIDs, ci)
		}
	}

	// Scratch tuple template: defaults where declared, NULL elsewhere.
	template := make([]common.Value, len(userCols))
	for i, c := range userCols {
		template[i] = common.Null()
		if c.Default != nil {
			v, derr := parser.ParseLiteral(*c.Default)
			if derr == nil {
				if cast, cerr := common.Cast(c.Type, v); cerr == nil {
					template[i] = cast
				}
			}
		}
	}

	ev := s.exec.Evaluator()
	for _, row := range stmt.Rows {
		if len(row) != len(colIDs) {
			failed++
			continue
		}
		vals := make([]common.Value, len(template))
		copy(vals, template)
		ok := true
		for i, e := range row {
			v, eerr := ev.Eval(e)
			if eerr != nil {
				ok = false
				break
			}
			cast, cerr := common.Cast(userCols[colIDs[i]].Type, v)
			if cerr != nil {
				ok = false
				break
			}
			vals[colIDs[i]] = cast
		}
		if !ok {
			failed++
			continue
		}
		if _, _, ierr := t.Insert(vals); ierr != nil {
			failed++
			continue
		}
		succeeded++
	}

	s.infof("%d row(s) inserted, %d row(s) failed.", succeeded, failed)
	s.logOp("insert", stmt.Table, sql, succeeded, nil, failureNote(failed))
	return succeeded, failed, nil
}

func failureNote(failed int) string {
	if failed > 0 {
		return fmt.Sprintf("%d row(s) failed", failed)
	}
	return ""
}

// Delete collects the matching record ids (index-driven when possible)
// and removes them one by one; each removal also deletes index entries.
func (s *Session) Delete(stmt parser.Delete, sql string) (int, error) {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("delete", stmt.Table, sql, 0, err, "")
		return 0, err
	}

	rel := &planner.Relation{Name: stmt.Table, Table: t}
	var victims []common.RecordID
	err = s.exec.Iterate([]*planner.Relation{rel}, stmt.Where, func(rids []common.RecordID) (bool, error) {
		victims = append(victims, rids[0])
		return true, nil
	})
	if err != nil {
		s.logOp("delete", stmt.Table, sql, 0, err, "")
		return 0, err
	}

	deleted := 0
	for _, rid := range victims {
		if t.Delete(rid) == nil {
			deleted++
		}
	}
	s.infof("%d row(s) deleted.", deleted)
	s.logOp("delete", stmt.Table, sql, deleted, nil, "")
	return deleted, nil
}

// Update evaluates the new value per matching row, type-checks it and
// rewrites the column. Per-row failures are counted, not fatal; the
// column's index entries follow the rewrite.
func (s *Session) Update(stmt parser.Update, sql string) (succeeded, failed int, err error) {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("update", stmt.Table, sql, 0, err, "")
		return 0, 0, err
	}
	schema := t.Schema()
	ci := schema.ColumnIndex(stmt.Column)
	if ci < 0 || stmt.Column == catalog.RowIDColumn {
		err = common.Errorf(common.NotFound, "column %q does not exist in table %q", stmt.Column, stmt.Table)
		s.logOp("update", stmt.Table, sql, 0, err, "")
		return 0, 0, err
	}
	colType := schema.Columns[ci].Type

	type change struct {
		rid common.RecordID
		val common.Value
	}
	var changes []change

	ev := s.exec.Evaluator()
	rel := &planner.Relation{Name: stmt.Table, Table: t}
	err = s.exec.Iterate([]*planner.Relation{rel}, stmt.Where, func(rids []common.RecordID) (bool, error) {
		v, eerr := ev.Eval(stmt.Value)
		if eerr != nil {
			failed++
			return true, nil
		}
		cast, cerr := common.Cast(colType, v)
		if cerr != nil {
			failed++
			return true, nil
		}
		changes = append(changes, change{rid: rids[0], val: cast})
		return true, nil
	})
	if err != nil {
		s.logOp("update", stmt.Table, sql, 0, err, "")
		return 0, failed, err
	}

	for _, ch := range changes {
		if t.Modify(ch.rid, ci, ch.val) != nil {
			failed++
			continue
		}
		succeeded++
	}
	s.infof("%d row(s) updated, %d row(s) failed.", succeeded, failed)
	s.logOp("update", stmt.Table, sql, succeeded, nil, failureNote(failed))
	return succeeded, failed, nil
}
