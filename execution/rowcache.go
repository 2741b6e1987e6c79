// Package execution streams tuples through the planner's chosen plan:
// it owns the statement-scoped row cache, the expression evaluator that
// reads from it, and the result-shaping helpers.
package execution

import (
	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
)

// RowCache makes the current tuple of each relation visible to the
// expression evaluator by (relation, column) lookup. It is owned by the
// session and cleared at every statement boundary; statement execution
// is sequential, so no locking.
type RowCache struct {
	rels map[string]map[string]common.Value
}

func NewRowCache() *RowCache {
	return &RowCache{rels: make(map[string]map[string]common.Value)}
}

// Publish installs a decoded row under the relation's live name,
// shadowing the previous publication until the iterator moves.
func (c *RowCache) Publish(rel string, cols []catalog.Column, vals []common.Value) {
	common.Assert(len(cols) == len(vals), "row width mismatch in Publish")
	m := c.rels[rel]
	if m == nil {
		m = make(map[string]common.Value, len(cols))
		c.rels[rel] = m
	}
	for i, col := range cols {
		m[col.Name] = vals[i]
	}
}

// Lookup resolves a qualified column reference.
func (c *RowCache) Lookup(rel, col string) (common.Value, bool) {
	m, ok := c.rels[rel]
	if !ok {
		return common.Null(), false
	}
	v, ok := m[col]
	return v, ok
}

// LookupAny resolves an unqualified column reference. ambiguous is set
// when more than one published relation carries the column.
func (c *RowCache) LookupAny(col string) (v common.Value, found, ambiguous bool) {
	for _, m := range c.rels {
		if cand, ok := m[col]; ok {
			if found {
				return common.Null(), true, true
			}
			v, found = cand, true
		}
	}
	return v, found, false
}

// Clear empties the cache. Statement boundaries must call this so no
// column reference resolves across statements.
func (c *RowCache) Clear() {
	c.rels = make(map[string]map[string]common.Value)
}

// Empty reports whether nothing is published.
func (c *RowCache) Empty() bool { return len(c.rels) == 0 }
