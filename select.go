package dbms

import (
	"fmt"
	"strings"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/execution"
	"github.com/elerspay/DBMS/parser"
	"github.com/elerspay/DBMS/planner"
)

// Select runs a projection query and writes the CSV result to the
// session's output sink. Returns the number of rows emitted (for
// aggregates, the number of rows folded in).
func (s *Session) Select(stmt parser.Select, sql string) (int, error) {
	db, err := s.requireDB()
	if err != nil {
		s.logOp("select", "", sql, 0, err, "")
		return 0, err
	}

	rels := make([]*planner.Relation, 0, len(stmt.Tables))
	for _, ref := range stmt.Tables {
		t := db.Table(ref.Name)
		if t == nil {
			err = common.Errorf(common.NotFound, "table %q does not exist", ref.Name)
			s.logOp("select", ref.Name, sql, 0, err, "")
			return 0, err
		}
		name := ref.Name
		if ref.Alias != "" {
			name = ref.Alias
		}
		rels = append(rels, &planner.Relation{Name: name, Table: t})
	}

	exprs, header := projection(stmt, rels)
	fmt.Fprintln(s.out, header)

	aggregate := false
	for _, e := range exprs {
		if parser.HasAggregate(e) {
			aggregate = true
		}
	}

	var count int
	if aggregate {
		count, err = s.selectAggregate(stmt, rels, exprs)
	} else if len(stmt.OrderBy) > 0 {
		count, err = s.selectOrdered(stmt, rels, exprs)
	} else {
		count, err = s.selectStreaming(stmt, rels, exprs)
	}
	if err != nil {
		s.logOp("select", rels[0].Name, sql, 0, err, "")
		return 0, err
	}

	fmt.Fprintln(s.out)
	s.infof("%d row(s) selected.", count)
	s.logOp("select", rels[0].Name, sql, count, nil, s.exec.LastPlan)
	return count, nil
}

// projection resolves the output expressions and the header line.
// SELECT * expands to every user column of every relation in
// definition order, never the rowid.
func projection(stmt parser.Select, rels []*planner.Relation) ([]parser.Expr, string) {
	if !stmt.Star {
		return stmt.Exprs, parser.ExprList(stmt.Exprs)
	}
	var exprs []parser.Expr
	var names []string
	for _, rel := range rels {
		for _, c := range rel.Table.Schema().UserColumns() {
			exprs = append(exprs, &parser.ColumnRef{Table: rel.Name, Column: c.Name})
			names = append(names, rel.Name+"."+c.Name)
		}
	}
	return exprs, strings.Join(names, ",")
}

func (s *Session) writeRow(vals []common.Value) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Format(s.cfg.DateTemplate)
	}
	fmt.Fprintln(s.out, strings.Join(parts, ","))
}

func (s *Session) projectRow(exprs []parser.Expr) ([]common.Value, error) {
	ev := s.exec.Evaluator()
	vals := make([]common.Value, len(exprs))
	for i, e := range exprs {
		v, err := ev.Eval(e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// selectStreaming emits each matching row as it is found, deduplicating
// on the fly under DISTINCT.
func (s *Session) selectStreaming(stmt parser.Select, rels []*planner.Relation, exprs []parser.Expr) (int, error) {
	var distinct *execution.DistinctSet
	if stmt.Distinct {
		distinct = execution.NewDistinctSet(s.cfg.DateTemplate)
	}

	count := 0
	err := s.exec.Iterate(rels, stmt.Where, func([]common.RecordID) (bool, error) {
		vals, err := s.projectRow(exprs)
		if err != nil {
			return false, err
		}
		if distinct != nil && !distinct.Admit(vals) {
			return true, nil
		}
		s.writeRow(vals)
		count++
		return true, nil
	})
	return count, err
}

// selectOrdered buffers the projected rows (dedup first under DISTINCT),
// stable-sorts them by the ORDER BY list, then emits.
func (s *Session) selectOrdered(stmt parser.Select, rels []*planner.Relation, exprs []parser.Expr) (int, error) {
	var distinct *execution.DistinctSet
	if stmt.Distinct {
		distinct = execution.NewDistinctSet(s.cfg.DateTemplate)
	}

	var rows [][]common.Value
	err := s.exec.Iterate(rels, stmt.Where, func([]common.RecordID) (bool, error) {
		vals, err := s.projectRow(exprs)
		if err != nil {
			return false, err
		}
		if distinct != nil && !distinct.Admit(vals) {
			return true, nil
		}
		rows = append(rows, vals)
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	// An ORDER BY column sorts by the first projected reference to it;
	// unprojected columns are skipped.
	keyIndex := make([]int, len(stmt.OrderBy))
	for k, item := range stmt.OrderBy {
		keyIndex[k] = -1
		for i, e := range exprs {
			if ref, ok := e.(*parser.ColumnRef); ok && ref.Column == item.Column {
				keyIndex[k] = i
				break
			}
		}
	}
	execution.SortRows(rows, stmt.OrderBy, keyIndex)

	for _, vals := range rows {
		s.writeRow(vals)
	}
	return len(rows), nil
}

// selectAggregate folds the single aggregate expression over the
// matching rows. The projection must be exactly one aggregate call.
func (s *Session) selectAggregate(stmt parser.Select, rels []*planner.Relation, exprs []parser.Expr) (int, error) {
	if len(exprs) != 1 {
		return 0, common.Errorf(common.Evaluation, "aggregate queries take exactly one select expression")
	}
	agg, ok := exprs[0].(*parser.Aggregate)
	if !ok {
		return 0, common.Errorf(common.Evaluation, "aggregates cannot be nested in expressions")
	}

	ev := s.exec.Evaluator()
	acc := execution.NewAggregator(agg.Fn)
	err := s.exec.Iterate(rels, stmt.Where, func([]common.RecordID) (bool, error) {
		acc.AddRow()
		if agg.Arg == nil {
			return true, nil
		}
		v, err := ev.Eval(agg.Arg)
		if err != nil {
			return false, err
		}
		if v.IsNull() {
			return true, nil
		}
		if err := acc.Add(v); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	s.writeRow([]common.Value{acc.Result()})
	return acc.Rows(), nil
}
