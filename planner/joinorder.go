package planner

import (
	"fmt"
	"strings"
)

// Probe binds one join-plan level to the index probe that feeds it: the
// level's relation is probed on Column with the key read from the outer
// relation's cached OuterColumn.
type Probe struct {
	Atom        *Atom
	Column      string
	OuterRel    int
	OuterColumn string
}

// JoinPlan is the executor's iteration recipe. Order lists relation
// indices outermost first; Probes is parallel to Order, nil at heap-scan
// levels.
type JoinPlan struct {
	Order  []int
	Probes []*Probe
}

// BuildJoinPlan orders the relations around the longest chain of
// index-probeable equi-joins.
//
// The join graph has an edge a→b for every equi-join atom between a and b
// whose b-side column is indexed: once a's tuple is bound, b can be
// probed. The longest simple path (DFS from every start, ties to the
// first found) becomes the inner chain; relations off the chain become
// plain nested loops outside it, in catalog order.
func BuildJoinPlan(rels []*Relation, atoms []Atom) *JoinPlan {
	n := len(rels)
	edges := make([][]*Atom, n)
	for i := range edges {
		edges[i] = make([]*Atom, n)
	}

	for i := range atoms {
		a := &atoms[i]
		if a.Class != AtomJoin {
			continue
		}
		if rels[a.RightRel].Table.Index(a.RightCol) != nil {
			edges[a.LeftRel][a.RightRel] = a
		}
		if rels[a.LeftRel].Table.Index(a.LeftCol) != nil {
			edges[a.RightRel][a.LeftRel] = a
		}
	}

	var best []int
	for start := 0; start < n; start++ {
		visited := make([]bool, n)
		path := make([]int, 0, n)
		longestFrom(start, visited, path, edges, &best)
	}

	inChain := make([]bool, n)
	for _, r := range best {
		inChain[r] = true
	}

	plan := &JoinPlan{}
	for r := 0; r < n; r++ {
		if !inChain[r] {
			plan.Order = append(plan.Order, r)
			plan.Probes = append(plan.Probes, nil)
		}
	}
	for i, r := range best {
		plan.Order = append(plan.Order, r)
		if i == 0 {
			plan.Probes = append(plan.Probes, nil)
			continue
		}
		outer := best[i-1]
		atom := edges[outer][r]
		probe := &Probe{Atom: atom, OuterRel: outer}
		if atom.LeftRel == r {
			probe.Column, probe.OuterColumn = atom.LeftCol, atom.RightCol
		} else {
			probe.Column, probe.OuterColumn = atom.RightCol, atom.LeftCol
		}
		plan.Probes = append(plan.Probes, probe)
	}
	return plan
}

// longestFrom extends path with cur and records it in best when strictly
// deeper, keeping the first-found path among equals.
func longestFrom(cur int, visited []bool, path []int, edges [][]*Atom, best *[]int) {
	visited[cur] = true
	path = append(path, cur)
	if len(path) > len(*best) {
		*best = append((*best)[:0], path...)
	}
	for next := range edges[cur] {
		if edges[cur][next] == nil || visited[next] {
			continue
		}
		longestFrom(next, visited, path, edges, best)
	}
	visited[cur] = false
}

// Describe renders the plan for the operation log: the iteration order
// and every index edge in use.
func (p *JoinPlan) Describe(rels []*Relation) string {
	names := make([]string, len(p.Order))
	for i, r := range p.Order {
		names[i] = rels[r].Name
	}
	var edges []string
	for i, probe := range p.Probes {
		if probe == nil {
			continue
		}
		edges = append(edges, fmt.Sprintf("%s.%s-%s.%s",
			rels[probe.OuterRel].Name, probe.OuterColumn,
			rels[p.Order[i]].Name, probe.Column))
	}
	s := "iteration order: " + strings.Join(names, ", ")
	if len(edges) > 0 {
		s += "; index use: " + strings.Join(edges, ", ")
	}
	return s
}
