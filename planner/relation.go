// Package planner decomposes WHERE trees into predicate atoms, selects
// per-relation access paths, and orders multi-way joins around the
// available indexes.
package planner

import (
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
	"github.com/elerspay/DBMS/storage"
)

// Relation is one FROM-list entry bound to its table: the live name is
// the alias when the query declares one.
type Relation struct {
	Name  string
	Table *storage.Table
}

// HasColumn reports whether the relation declares the column.
func (r *Relation) HasColumn(col string) bool {
	return r.Table.Schema().ColumnIndex(col) >= 0
}

// ColumnType returns the declared type of a column.
func (r *Relation) ColumnType(col string) (common.ColumnType, error) {
	ci := r.Table.Schema().ColumnIndex(col)
	if ci < 0 {
		return common.ColumnType{}, common.Errorf(common.NotFound, "column %q does not exist in %q", col, r.Name)
	}
	return r.Table.Schema().Columns[ci].Type, nil
}

// ResolveColumn maps a column reference onto one of the relations: by the
// qualifier when present, otherwise by unique column ownership. Returns
// -1 when the reference does not resolve.
func ResolveColumn(rels []*Relation, ref *parser.ColumnRef) int {
	if ref.Table != "" {
		for i, r := range rels {
			if r.Name == ref.Table {
				if r.HasColumn(ref.Column) {
					return i
				}
				return -1
			}
		}
		return -1
	}
	owner := -1
	for i, r := range rels {
		if r.HasColumn(ref.Column) {
			if owner >= 0 {
				return -1 // ambiguous
			}
			owner = i
		}
	}
	return owner
}
