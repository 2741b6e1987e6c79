package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
	"github.com/elerspay/DBMS/storage"
)

func makeRelation(t *testing.T, name string, cols []string, indexed ...string) *Relation {
	t.Helper()
	defs := make([]catalog.Column, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, catalog.Column{Name: c, Type: common.ColumnType{Kind: common.IntKind}})
	}
	schema, err := catalog.NewSchema(name, defs)
	require.NoError(t, err)
	tbl, err := storage.CreateTable(t.TempDir(), schema, 8)
	require.NoError(t, err)
	for _, c := range indexed {
		require.NoError(t, tbl.CreateIndex(c))
	}
	return &Relation{Name: name, Table: tbl}
}

func whereOf(t *testing.T, sql string) parser.Expr {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return stmt.(parser.Select).Where
}

func TestSplitConjuncts(t *testing.T) {
	assert.Nil(t, SplitConjuncts(nil))

	cond := whereOf(t, "SELECT a FROM t WHERE a = 1 AND b > 2 AND (c < 3 OR d = 4);")
	atoms := SplitConjuncts(cond)
	require.Len(t, atoms, 3)
	assert.Equal(t, "(a = 1)", atoms[0].String())
	assert.Equal(t, "(b > 2)", atoms[1].String())
	assert.Equal(t, "((c < 3) OR (d = 4))", atoms[2].String())
}

func TestClassifyAtoms(t *testing.T) {
	rt := makeRelation(t, "t", []string{"a", "b"})
	ru := makeRelation(t, "u", []string{"a", "c"})
	rels := []*Relation{rt, ru}

	cond := whereOf(t, "SELECT x FROM t, u WHERE t.a = u.a AND t.b > 5 AND t.b + u.c = 7 AND 1 = 1;")
	atoms := ClassifyAtoms(rels, SplitConjuncts(cond))
	require.Len(t, atoms, 4)

	assert.Equal(t, AtomJoin, atoms[0].Class)
	assert.Equal(t, 0, atoms[0].LeftRel)
	assert.Equal(t, 1, atoms[0].RightRel)
	assert.Equal(t, "a", atoms[0].LeftCol)
	assert.Equal(t, "a", atoms[0].RightCol)

	assert.Equal(t, AtomSingle, atoms[1].Class)
	assert.Equal(t, 0, atoms[1].Rel)

	// Multi-relation non-equi stays residual; so do constant-only atoms.
	assert.Equal(t, AtomResidual, atoms[2].Class)
	assert.Equal(t, AtomResidual, atoms[3].Class)
}

func TestClassifyUnqualifiedColumns(t *testing.T) {
	rt := makeRelation(t, "t", []string{"a"})
	ru := makeRelation(t, "u", []string{"c"})
	rels := []*Relation{rt, ru}

	cond := whereOf(t, "SELECT x FROM t, u WHERE c = 9;")
	atoms := ClassifyAtoms(rels, SplitConjuncts(cond))
	require.Len(t, atoms, 1)
	assert.Equal(t, AtomSingle, atoms[0].Class)
	assert.Equal(t, 1, atoms[0].Rel)
}

func TestChooseAccessPathFirstMatch(t *testing.T) {
	rel := makeRelation(t, "t", []string{"a", "b"}, "a", "b")

	// First source-order indexed equality wins.
	cond := whereOf(t, "SELECT x FROM t WHERE b = 2 AND a = 1;")
	ap := ChooseAccessPath(rel, SplitConjuncts(cond))
	require.True(t, ap.IsIndex())
	assert.Equal(t, "b", ap.IndexColumn)

	// Constant on the left: sides swap.
	cond = whereOf(t, "SELECT x FROM t WHERE 3 = a;")
	ap = ChooseAccessPath(rel, SplitConjuncts(cond))
	require.True(t, ap.IsIndex())
	assert.Equal(t, "a", ap.IndexColumn)
	assert.Equal(t, "3", ap.Key.String())
}

func TestChooseAccessPathFallsBack(t *testing.T) {
	rel := makeRelation(t, "t", []string{"a", "b"}, "a")

	// Range predicates cannot use the equality probe.
	ap := ChooseAccessPath(rel, SplitConjuncts(whereOf(t, "SELECT x FROM t WHERE a > 1;")))
	assert.False(t, ap.IsIndex())

	// Unindexed column.
	ap = ChooseAccessPath(rel, SplitConjuncts(whereOf(t, "SELECT x FROM t WHERE b = 1;")))
	assert.False(t, ap.IsIndex())

	// Column on both sides is a join shape, not a probe.
	ap = ChooseAccessPath(rel, SplitConjuncts(whereOf(t, "SELECT x FROM t WHERE a = b;")))
	assert.False(t, ap.IsIndex())

	ap = ChooseAccessPath(rel, nil)
	assert.False(t, ap.IsIndex())
	assert.Equal(t, "heap scan t", ap.Describe(rel))
}

func TestBuildJoinPlanChain(t *testing.T) {
	// t -> u -> v: u.a and v.b indexed, so both edges point inward.
	rt := makeRelation(t, "t", []string{"a"})
	ru := makeRelation(t, "u", []string{"a", "b"}, "a")
	rv := makeRelation(t, "v", []string{"b"}, "b")
	rels := []*Relation{rt, ru, rv}

	cond := whereOf(t, "SELECT x FROM t, u, v WHERE t.a = u.a AND u.b = v.b;")
	plan := BuildJoinPlan(rels, ClassifyAtoms(rels, SplitConjuncts(cond)))

	assert.Equal(t, []int{0, 1, 2}, plan.Order)
	require.Nil(t, plan.Probes[0])
	require.NotNil(t, plan.Probes[1])
	assert.Equal(t, "a", plan.Probes[1].Column)
	assert.Equal(t, 0, plan.Probes[1].OuterRel)
	require.NotNil(t, plan.Probes[2])
	assert.Equal(t, "b", plan.Probes[2].Column)
	assert.Equal(t, 1, plan.Probes[2].OuterRel)

	desc := plan.Describe(rels)
	assert.Contains(t, desc, "iteration order: t, u, v")
	assert.Contains(t, desc, "t.a-u.a")
	assert.Contains(t, desc, "u.b-v.b")
}

func TestBuildJoinPlanNoIndexes(t *testing.T) {
	rt := makeRelation(t, "t", []string{"a"})
	ru := makeRelation(t, "u", []string{"a"})
	rels := []*Relation{rt, ru}

	cond := whereOf(t, "SELECT x FROM t, u WHERE t.a = u.a;")
	plan := BuildJoinPlan(rels, ClassifyAtoms(rels, SplitConjuncts(cond)))

	require.Len(t, plan.Order, 2)
	assert.Nil(t, plan.Probes[0])
	assert.Nil(t, plan.Probes[1])
}

func TestBuildJoinPlanPrefersLongestChain(t *testing.T) {
	// Edges: a->b (b indexed), c->d (d indexed), b->c (c indexed):
	// one chain a->b->c->d covers everything.
	ra := makeRelation(t, "a", []string{"x"})
	rb := makeRelation(t, "b", []string{"x", "y"}, "x")
	rc := makeRelation(t, "c", []string{"y", "z"}, "y")
	rd := makeRelation(t, "d", []string{"z"}, "z")
	rels := []*Relation{ra, rb, rc, rd}

	cond := whereOf(t, "SELECT q FROM a, b, c, d WHERE a.x = b.x AND b.y = c.y AND c.z = d.z;")
	plan := BuildJoinPlan(rels, ClassifyAtoms(rels, SplitConjuncts(cond)))

	assert.Equal(t, []int{0, 1, 2, 3}, plan.Order)
	for i, probe := range plan.Probes {
		if i == 0 {
			assert.Nil(t, probe)
		} else {
			assert.NotNil(t, probe, "level %d should be index-driven", i)
		}
	}
}
