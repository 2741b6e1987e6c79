package execution

import (
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/logging"
	"github.com/elerspay/DBMS/parser"
	"github.com/elerspay/DBMS/planner"
)

// Callback receives each matching tuple combination; rids is parallel to
// the relation list. Returning false stops the iteration promptly.
type Callback func(rids []common.RecordID) (bool, error)

// Executor streams tuples through the plan chosen by the planner,
// publishing each level's decoded row into the row cache before any
// predicate runs against it.
type Executor struct {
	log   *logging.Logger
	cache *RowCache
	ev    *Evaluator

	// LastPlan describes the most recent plan, as logged.
	LastPlan string
}

func NewExecutor(log *logging.Logger, cache *RowCache) *Executor {
	return &Executor{
		log:   log,
		cache: cache,
		ev:    NewEvaluator(cache),
	}
}

// Evaluator exposes the executor's evaluation context for result shaping.
func (ex *Executor) Evaluator() *Evaluator { return ex.ev }

// Iterate drives the relations through the WHERE condition, invoking cb
// per matching tuple combination. The tuple stream is a total function
// of the plan and the stored data; evaluation failures abort with one
// diagnostic.
func (ex *Executor) Iterate(rels []*planner.Relation, where parser.Expr, cb Callback) error {
	common.Assert(len(rels) > 0, "Iterate with no relations")
	if len(rels) == 1 {
		return ex.iterateOne(rels[0], where, cb)
	}
	return ex.iterateMany(rels, where, cb)
}

func (ex *Executor) publish(rel *planner.Relation, vals []common.Value) {
	ex.cache.Publish(rel.Name, rel.Table.Schema().Columns, vals)
}

// iterateOne scans a single relation via its chosen access path,
// filtering with the full WHERE after decode.
func (ex *Executor) iterateOne(rel *planner.Relation, where parser.Expr, cb Callback) error {
	conjuncts := planner.SplitConjuncts(where)
	ap := planner.ChooseAccessPath(rel, conjuncts)
	ex.LastPlan = ap.Describe(rel)
	ex.log.Debugf("access path: %s", ex.LastPlan)

	rids := make([]common.RecordID, 1)
	emit := func(rid common.RecordID, vals []common.Value) (bool, error) {
		ex.publish(rel, vals)
		if where != nil {
			match, err := ex.ev.Truth(where)
			if err != nil {
				return false, err
			}
			if !match {
				return true, nil
			}
		}
		rids[0] = rid
		return cb(rids)
	}

	if !ap.IsIndex() {
		return rel.Table.Scan(emit)
	}

	keyVal, err := ex.ev.Eval(ap.Key)
	if err != nil {
		return err
	}
	colType, err := rel.ColumnType(ap.IndexColumn)
	if err != nil {
		return err
	}
	probe, err := common.Cast(colType, keyVal)
	if err != nil {
		return err
	}

	var walkErr error
	ix := rel.Table.Index(ap.IndexColumn)
	ix.AscendFrom(probe, func(key common.Value, rid common.RecordID) bool {
		cmp, ok := key.Compare(probe)
		if !ok || cmp != 0 {
			return false // past the probe key
		}
		vals, err := rel.Table.Read(rid)
		if err != nil {
			walkErr = err
			return false
		}
		cont, err := emit(rid, vals)
		if err != nil {
			walkErr = err
			return false
		}
		return cont
	})
	return walkErr
}

// iterateMany recurses over the join plan, outermost level first. Index
// levels walk the index from the lower bound of the outer relation's
// cached column and stop at the first tuple failing the join atom.
func (ex *Executor) iterateMany(rels []*planner.Relation, where parser.Expr, cb Callback) error {
	conjuncts := planner.SplitConjuncts(where)
	atoms := planner.ClassifyAtoms(rels, conjuncts)
	plan := planner.BuildJoinPlan(rels, atoms)
	ex.LastPlan = plan.Describe(rels)
	ex.log.Debugf("join plan: %s", ex.LastPlan)

	rids := make([]common.RecordID, len(rels))
	_, err := ex.iterateLevel(plan, rels, where, rids, 0, cb)
	return err
}

func (ex *Executor) iterateLevel(plan *planner.JoinPlan, rels []*planner.Relation, where parser.Expr, rids []common.RecordID, level int, cb Callback) (bool, error) {
	if level == len(plan.Order) {
		if where != nil {
			match, err := ex.ev.Truth(where)
			if err != nil {
				return false, err
			}
			if !match {
				return true, nil
			}
		}
		return cb(rids)
	}

	relIdx := plan.Order[level]
	rel := rels[relIdx]
	probe := plan.Probes[level]

	if probe == nil {
		return ex.scanLevel(plan, rels, where, rids, level, cb)
	}

	key, ok := ex.cache.Lookup(rels[probe.OuterRel].Name, probe.OuterColumn)
	common.Assert(ok, "outer relation %q not published before probe", rels[probe.OuterRel].Name)

	cont := true
	var walkErr error
	ix := rel.Table.Index(probe.Column)
	ix.AscendFrom(key, func(_ common.Value, rid common.RecordID) bool {
		vals, err := rel.Table.Read(rid)
		if err != nil {
			walkErr = err
			return false
		}
		ex.publish(rel, vals)

		match, err := ex.ev.Truth(probe.Atom.Expr)
		if err != nil {
			walkErr = err
			return false
		}
		if !match {
			return false // first mismatch ends the equi-probe
		}

		rids[relIdx] = rid
		cont, walkErr = ex.iterateLevel(plan, rels, where, rids, level+1, cb)
		return cont && walkErr == nil
	})
	if walkErr != nil {
		return false, walkErr
	}
	return cont, nil
}

func (ex *Executor) scanLevel(plan *planner.JoinPlan, rels []*planner.Relation, where parser.Expr, rids []common.RecordID, level int, cb Callback) (bool, error) {
	relIdx := plan.Order[level]
	rel := rels[relIdx]
	cont := true
	err := rel.Table.Scan(func(rid common.RecordID, vals []common.Value) (bool, error) {
		ex.publish(rel, vals)
		rids[relIdx] = rid
		var err error
		cont, err = ex.iterateLevel(plan, rels, where, rids, level+1, cb)
		if err != nil {
			return false, err
		}
		return cont, nil
	})
	return cont, err
}
