package execution

import (
	"sort"
	"strings"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

// DedupKey renders a projected row in its canonical string form for
// DISTINCT: values joined by '|' in their textual representations.
func DedupKey(vals []common.Value, dateTemplate string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Format(dateTemplate)
	}
	return strings.Join(parts, "|")
}

// DistinctSet suppresses repeated projected rows.
type DistinctSet struct {
	seen         map[string]struct{}
	dateTemplate string
}

func NewDistinctSet(dateTemplate string) *DistinctSet {
	return &DistinctSet{seen: make(map[string]struct{}), dateTemplate: dateTemplate}
}

// Admit reports whether the row is new, recording it on first sight.
func (d *DistinctSet) Admit(vals []common.Value) bool {
	key := DedupKey(vals, d.dateTemplate)
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// SortRows stable-sorts buffered projected rows by the ORDER BY list.
// keyIndex maps an ORDER BY column to its projection slot, -1 if the
// column is not projected (that key is skipped). NULL sorts before
// non-NULL in both directions; keys with incompatible types are skipped;
// full ties preserve input order.
func SortRows(rows [][]common.Value, items []parser.OrderItem, keyIndex []int) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for k, item := range items {
			idx := keyIndex[k]
			if idx < 0 || idx >= len(a) {
				continue
			}
			va, vb := a[idx], b[idx]
			if va.IsNull() && vb.IsNull() {
				continue
			}
			if va.IsNull() {
				return true
			}
			if vb.IsNull() {
				return false
			}
			cmp, ok := va.Compare(vb)
			if !ok {
				continue
			}
			if cmp == 0 {
				continue
			}
			if item.Asc {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

// Aggregator reduces one expression over the matching rows. COUNT tracks
// rows only; the other functions accept numeric inputs.
type Aggregator struct {
	fn    parser.AggFn
	rows  int
	sumI  int64
	sumF  float64
	float bool
	best  common.Value // running MIN/MAX
}

func NewAggregator(fn parser.AggFn) *Aggregator {
	return &Aggregator{fn: fn}
}

// AddRow counts one matching row; COUNT needs nothing else.
func (a *Aggregator) AddRow() { a.rows++ }

// Rows reports how many rows were folded in.
func (a *Aggregator) Rows() int { return a.rows }

// Add folds one evaluated argument into the running state. COUNT
// accepts any non-NULL value; the row itself is already counted by
// AddRow.
func (a *Aggregator) Add(v common.Value) error {
	if a.fn == parser.AggCount {
		return nil
	}
	switch v.Kind() {
	case common.KindInt:
		a.sumI += v.Int()
	case common.KindFloat:
		a.float = true
		a.sumF += v.Float()
	default:
		return common.Errorf(common.TypeMismatch, "aggregate over %s values; only INT and FLOAT are supported", v.Kind())
	}

	if a.fn == parser.AggMin || a.fn == parser.AggMax {
		if a.best.IsNull() {
			a.best = v
			return nil
		}
		cmp, ok := v.Compare(a.best)
		if !ok {
			return common.Errorf(common.TypeMismatch, "mixed types in aggregate")
		}
		if (a.fn == parser.AggMin && cmp < 0) || (a.fn == parser.AggMax && cmp > 0) {
			a.best = v
		}
	}
	return nil
}

// Result produces the aggregate value. AVG over zero rows yields 0;
// SUM/MIN/MAX over zero rows yield NULL.
func (a *Aggregator) Result() common.Value {
	switch a.fn {
	case parser.AggCount:
		return common.NewInt(int64(a.rows))
	case parser.AggSum:
		if a.rows == 0 {
			return common.Null()
		}
		if a.float {
			return common.NewFloat(a.sumF + float64(a.sumI))
		}
		return common.NewInt(a.sumI)
	case parser.AggAvg:
		if a.rows == 0 {
			return common.NewFloat(0)
		}
		return common.NewFloat((a.sumF + float64(a.sumI)) / float64(a.rows))
	case parser.AggMin, parser.AggMax:
		return a.best
	}
	return common.Null()
}
