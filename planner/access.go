package planner

import (
	"fmt"

	"github.com/elerspay/DBMS/parser"
)

// AccessPath is how one relation's rows enter the executor: a full heap
// scan, or an equality probe on an indexed column.
type AccessPath struct {
	// IndexColumn is empty for a heap scan.
	IndexColumn string
	// Key is the constant side of the chosen atom; evaluated once at
	// probe time.
	Key parser.Expr
}

func (ap AccessPath) IsIndex() bool { return ap.IndexColumn != "" }

func (ap AccessPath) Describe(rel *Relation) string {
	if ap.IsIndex() {
		return fmt.Sprintf("index probe %s(%s)", rel.Name, ap.IndexColumn)
	}
	return fmt.Sprintf("heap scan %s", rel.Name)
}

// ChooseAccessPath picks the relation's access path from its atoms:
// the first atom (source order) shaped `col = constant` whose column is
// indexed wins, with sides swapped when the constant is on the left.
// Atoms not chosen stay in the WHERE filter applied after decode.
func ChooseAccessPath(rel *Relation, atoms []parser.Expr) AccessPath {
	for _, a := range atoms {
		b, ok := a.(*parser.Binary)
		if !ok || b.Op != parser.OpEq {
			continue
		}
		left, right := b.L, b.R
		if _, swap := right.(*parser.ColumnRef); swap {
			left, right = right, left
		}
		ref, ok := left.(*parser.ColumnRef)
		if !ok || !refersTo(ref, rel) {
			continue
		}
		if hasColumnRefs(right) {
			continue
		}
		if rel.Table.Index(ref.Column) == nil {
			continue
		}
		return AccessPath{IndexColumn: ref.Column, Key: right}
	}
	return AccessPath{}
}

func refersTo(ref *parser.ColumnRef, rel *Relation) bool {
	if ref.Table != "" && ref.Table != rel.Name {
		return false
	}
	return rel.HasColumn(ref.Column)
}

func hasColumnRefs(e parser.Expr) bool {
	found := false
	parser.WalkColumnRefs(e, func(*parser.ColumnRef) { found = true })
	return found
}
