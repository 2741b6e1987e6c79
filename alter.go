package dbms

import (
	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

// rebuiltSchema derives a new schema from old with the given user
// columns, carrying over the rowid watermark and the indexes on columns
// that survive.
func rebuiltSchema(old *catalog.Schema, userCols []catalog.Column) (*catalog.Schema, error) {
	ns, err := catalog.NewSchema(old.Table, userCols)
	if err != nil {
		return nil, err
	}
	ns.NextRowID = old.NextRowID
	for _, col := range old.Indexes {
		if ns.ColumnIndex(col) >= 0 {
			ns.Indexes = append(ns.Indexes, col)
		}
	}
	return ns, nil
}

// AlterAddColumn rewrites the table with one more column, filling
// existing rows with the declared default or NULL.
func (s *Session) AlterAddColumn(stmt parser.AlterAddColumn, sql string) error {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("alter add column", stmt.Table, sql, 0, err, "")
		return err
	}

	newCol := columnFromDef(stmt.Col)
	fill := common.Null()
	if newCol.Default != nil {
		if v, perr := parser.ParseLiteral(*newCol.Default); perr == nil {
			if cast, cerr := common.Cast(newCol.Type, v); cerr == nil {
				fill = cast
			}
		}
	}

	old := t.Schema()
	userCols := append(append([]catalog.Column(nil), old.UserColumns()...), newCol)
	ns, err := rebuiltSchema(old, userCols)
	if err == nil {
		added := len(userCols) - 1
		err = t.Rewrite(ns, func(vals []common.Value) ([]common.Value, error) {
			out := make([]common.Value, 0, len(vals)+1)
			out = append(out, vals[:added]...)
			out = append(out, fill)
			out = append(out, vals[added]) // rowid stays last
			return out, nil
		})
	}
	s.logOp("alter add column", stmt.Table, sql, 0, err, "column "+stmt.Col.Name)
	return err
}

// AlterDropColumn rewrites the table without the column; an index on it
// is dropped with it.
func (s *Session) AlterDropColumn(stmt parser.AlterDropColumn, sql string) error {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("alter drop column", stmt.Table, sql, 0, err, "")
		return err
	}

	old := t.Schema()
	ci := old.ColumnIndex(stmt.Column)
	if ci < 0 || stmt.Column == catalog.RowIDColumn {
		err = common.Errorf(common.NotFound, "column %q does not exist in table %q", stmt.Column, stmt.Table)
		s.logOp("alter drop column", stmt.Table, sql, 0, err, "")
		return err
	}
	if len(old.UserColumns()) == 1 {
		err = common.Errorf(common.ConstraintViolation, "cannot drop the last column of %q", stmt.Table)
		s.logOp("alter drop column", stmt.Table, sql, 0, err, "")
		return err
	}

	userCols := make([]catalog.Column, 0, len(old.UserColumns())-1)
	for i, c := range old.UserColumns() {
		if i != ci {
			userCols = append(userCols, c)
		}
	}
	ns, err := rebuiltSchema(old, userCols)
	if err == nil {
		err = t.Rewrite(ns, func(vals []common.Value) ([]common.Value, error) {
			out := make([]common.Value, 0, len(vals)-1)
			out = append(out, vals[:ci]...)
			out = append(out, vals[ci+1:]...)
			return out, nil
		})
	}
	s.logOp("alter drop column", stmt.Table, sql, 0, err, "column "+stmt.Column)
	return err
}

// AlterModifyColumn rewrites the table with the column's new type and
// flags, casting every stored value; an uncastable value aborts the
// rewrite and leaves the table untouched.
func (s *Session) AlterModifyColumn(stmt parser.AlterModifyColumn, sql string) error {
	t, err := s.lookupTable(stmt.Table)
	if err != nil {
		s.logOp("alter modify column", stmt.Table, sql, 0, err, "")
		return err
	}

	old := t.Schema()
	ci := old.ColumnIndex(stmt.Col.Name)
	if ci < 0 || stmt.Col.Name == catalog.RowIDColumn {
		err = common.Errorf(common.NotFound, "column %q does not exist in table %q", stmt.Col.Name, stmt.Table)
		s.logOp("alter modify column", stmt.Table, sql, 0, err, "")
		return err
	}

	userCols := append([]catalog.Column(nil), old.UserColumns()...)
	userCols[ci] = columnFromDef(stmt.Col)
	newType := userCols[ci].Type

	ns, err := rebuiltSchema(old, userCols)
	if err == nil {
		err = t.Rewrite(ns, func(vals []common.Value) ([]common.Value, error) {
			out := append([]common.Value(nil), vals...)
			cast, cerr := common.Cast(newType, vals[ci])
			if cerr != nil {
				return nil, cerr
			}
			out[ci] = cast
			return out, nil
		})
	}
	s.logOp("alter modify column", stmt.Table, sql, 0, err, "column "+stmt.Col.Name)
	return err
}

// AlterRenameColumn renames the column in place; the heap layout does
// not change, so no rewrite is needed.
func (s *Session) AlterRenameColumn(stmt parser.AlterRenameColumn, sql string) error {
	t, err := s.lookupTable(stmt.Table)
	if err == nil {
		err = t.RenameColumn(stmt.Old, stmt.New)
	}
	s.logOp("alter rename column", stmt.Table, sql, 0, err, stmt.Old+" to "+stmt.New)
	return err
}
