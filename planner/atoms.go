package planner

import (
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

// SplitConjuncts flattens the AND spine of a WHERE tree into its atoms,
// preserving source order. A nil tree yields no atoms.
func SplitConjuncts(e parser.Expr) []parser.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*parser.Binary); ok && b.Op == parser.OpAnd {
		return append(SplitConjuncts(b.L), SplitConjuncts(b.R)...)
	}
	return []parser.Expr{e}
}

// AtomClass is the planner's view of one conjunct.
type AtomClass int

const (
	// AtomSingle references exactly one relation.
	AtomSingle AtomClass = iota
	// AtomJoin is column = column across two relations of matching type.
	AtomJoin
	// AtomResidual is everything else.
	AtomResidual
)

// Atom is one classified conjunct.
type Atom struct {
	Expr  parser.Expr
	Class AtomClass

	// Rel is set for AtomSingle.
	Rel int

	// The four fields below are set for AtomJoin.
	LeftRel, RightRel  int
	LeftCol, RightCol  string
}

// ClassifyAtoms classifies each conjunct against the FROM relations.
// Conjuncts whose column references do not resolve are kept as residuals;
// the evaluator surfaces the failure when the row is actually tested.
func ClassifyAtoms(rels []*Relation, conjuncts []parser.Expr) []Atom {
	atoms := make([]Atom, 0, len(conjuncts))
	for _, c := range conjuncts {
		atoms = append(atoms, classify(rels, c))
	}
	return atoms
}

func classify(rels []*Relation, e parser.Expr) Atom {
	atom := Atom{Expr: e, Class: AtomResidual, Rel: -1}

	refs := make([]*parser.ColumnRef, 0, 4)
	parser.WalkColumnRefs(e, func(ref *parser.ColumnRef) {
		refs = append(refs, ref)
	})

	touched := make(map[int]bool)
	resolved := true
	for _, ref := range refs {
		rel := ResolveColumn(rels, ref)
		if rel < 0 {
			resolved = false
			break
		}
		touched[rel] = true
	}
	if !resolved {
		return atom
	}

	if len(touched) == 1 && len(refs) > 0 {
		atom.Class = AtomSingle
		for rel := range touched {
			atom.Rel = rel
		}
		return atom
	}

	// Equi-join shape: bare column = bare column across two relations.
	if b, ok := e.(*parser.Binary); ok && b.Op == parser.OpEq && len(touched) == 2 {
		lRef, lok := b.L.(*parser.ColumnRef)
		rRef, rok := b.R.(*parser.ColumnRef)
		if lok && rok {
			lRel := ResolveColumn(rels, lRef)
			rRel := ResolveColumn(rels, rRef)
			if lRel >= 0 && rRel >= 0 && lRel != rRel && joinTypesMatch(rels, lRel, lRef.Column, rRel, rRef.Column) {
				atom.Class = AtomJoin
				atom.LeftRel, atom.LeftCol = lRel, lRef.Column
				atom.RightRel, atom.RightCol = rRel, rRef.Column
			}
		}
	}
	return atom
}

func joinTypesMatch(rels []*Relation, lRel int, lCol string, rRel int, rCol string) bool {
	lt, err := rels[lRel].ColumnType(lCol)
	if err != nil {
		return false
	}
	rt, err := rels[rRel].ColumnType(rCol)
	if err != nil {
		return false
	}
	if lt.Kind == rt.Kind {
		return true
	}
	return numericKind(lt.Kind) && numericKind(rt.Kind)
}

func numericKind(k common.TypeKind) bool {
	return k == common.IntKind || k == common.FloatKind
}
