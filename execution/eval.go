package execution

import (
	"regexp"
	"strings"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/parser"
)

// Evaluator computes expression values against the row cache. It is the
// statement's evaluation context: errors are returned, never thrown, and
// abort the iteration at the executor level.
type Evaluator struct {
	cache *RowCache
}

func NewEvaluator(cache *RowCache) *Evaluator {
	return &Evaluator{cache: cache}
}

// Eval computes e against the currently published tuples. Comparisons, LIKE
// and arithmetic yield NULL when an operand is NULL; AND, OR and NOT follow
// SQL three-valued logic, so FALSE AND NULL is FALSE and TRUE OR NULL is TRUE.
func (ev *Evaluator) Eval(e parser.Expr) (common.Value, error) {
	switch n := e.(type) {
	case *parser.Literal:
		return n.Val, nil

	case *parser.ColumnRef:
		if n.Table != "" {
			v, ok := ev.cache.Lookup(n.Table, n.Column)
			if !ok {
				return common.Null(), common.Errorf(common.Evaluation, "unknown column %s.%s", n.Table, n.Column)
			}
			return v, nil
		}
		v, found, ambiguous := ev.cache.LookupAny(n.Column)
		if ambiguous {
			return common.Null(), common.Errorf(common.Evaluation, "ambiguous column %q", n.Column)
		}
		if !found {
			return common.Null(), common.Errorf(common.Evaluation, "unknown column %q", n.Column)
		}
		return v, nil

	case *parser.Binary:
		return ev.evalBinary(n)

	case *parser.Unary:
		return ev.evalUnary(n)

	case *parser.NullCheck:
		v, err := ev.Eval(n.X)
		if err != nil {
			return common.Null(), err
		}
		return common.NewBool(v.IsNull() != n.Negated), nil

	case *parser.Aggregate:
		return common.Null(), common.Errorf(common.Internal, "aggregate evaluated outside result shaping")
	}
	return common.Null(), common.Errorf(common.Internal, "unknown expression node %T", e)
}

// Truth evaluates e as a WHERE condition; NULL counts as false.
func (ev *Evaluator) Truth(e parser.Expr) (bool, error) {
	v, err := ev.Eval(e)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	switch v.Kind() {
	case common.KindBool:
		return v.Bool(), nil
	case common.KindInt:
		return v.Int() != 0, nil
	}
	return false, common.Errorf(common.Evaluation, "%s value is not a condition", v.Kind())
}

func (ev *Evaluator) evalBinary(n *parser.Binary) (common.Value, error) {
	switch n.Op {
	case parser.OpAnd, parser.OpOr:
		return ev.evalLogic(n)
	}

	l, err := ev.Eval(n.L)
	if err != nil {
		return common.Null(), err
	}
	r, err := ev.Eval(n.R)
	if err != nil {
		return common.Null(), err
	}

	switch n.Op {
	case parser.OpEq, parser.OpNe, parser.OpLt, parser.OpGt, parser.OpLe, parser.OpGe:
		if l.IsNull() || r.IsNull() {
			return common.Null(), nil
		}
		cmp, ok := l.Compare(r)
		if !ok {
			return common.Null(), common.Errorf(common.Evaluation, "cannot compare %s with %s", l.Kind(), r.Kind())
		}
		var res bool
		switch n.Op {
		case parser.OpEq:
			res = cmp == 0
		case parser.OpNe:
			res = cmp != 0
		case parser.OpLt:
			res = cmp < 0
		case parser.OpGt:
			res = cmp > 0
		case parser.OpLe:
			res = cmp <= 0
		case parser.OpGe:
			res = cmp >= 0
		}
		return common.NewBool(res), nil

	case parser.OpLike:
		if l.IsNull() || r.IsNull() {
			return common.Null(), nil
		}
		if l.Kind() != common.KindString || r.Kind() != common.KindString {
			return common.Null(), common.Errorf(common.Evaluation, "LIKE wants string operands")
		}
		return common.NewBool(likeMatch(l.Str(), r.Str())), nil

	case parser.OpAdd, parser.OpSub, parser.OpMul, parser.OpDiv, parser.OpMod:
		return ev.evalArith(n.Op, l, r)
	}
	return common.Null(), common.Errorf(common.Internal, "unknown binary operator %s", n.Op)
}

type truth int

const (
	truthFalse truth = iota
	truthTrue
	truthNull
)

func truthOf(v common.Value) (truth, error) {
	if v.IsNull() {
		return truthNull, nil
	}
	switch v.Kind() {
	case common.KindBool:
		if v.Bool() {
			return truthTrue, nil
		}
		return truthFalse, nil
	case common.KindInt:
		if v.Int() != 0 {
			return truthTrue, nil
		}
		return truthFalse, nil
	}
	return truthFalse, common.Errorf(common.Evaluation, "%s value is not a condition", v.Kind())
}

func (ev *Evaluator) evalLogic(n *parser.Binary) (common.Value, error) {
	l, err := ev.Eval(n.L)
	if err != nil {
		return common.Null(), err
	}
	lt, err := truthOf(l)
	if err != nil {
		return common.Null(), err
	}
	r, err := ev.Eval(n.R)
	if err != nil {
		return common.Null(), err
	}
	rt, err := truthOf(r)
	if err != nil {
		return common.Null(), err
	}

	if n.Op == parser.OpAnd {
		switch {
		case lt == truthTrue && rt == truthTrue:
			return common.NewBool(true), nil
		case lt == truthFalse || rt == truthFalse:
			return common.NewBool(false), nil
		}
		return common.Null(), nil
	}
	switch {
	case lt == truthTrue || rt == truthTrue:
		return common.NewBool(true), nil
	case lt == truthFalse && rt == truthFalse:
		return common.NewBool(false), nil
	}
	return common.Null(), nil
}

func (ev *Evaluator) evalArith(op parser.Op, l, r common.Value) (common.Value, error) {
	if l.IsNull() || r.IsNull() {
		return common.Null(), nil
	}
	intOp := l.Kind() == common.KindInt && r.Kind() == common.KindInt
	numeric := func(v common.Value) bool {
		return v.Kind() == common.KindInt || v.Kind() == common.KindFloat
	}
	if !numeric(l) || !numeric(r) {
		return common.Null(), common.Errorf(common.Evaluation, "arithmetic on %s and %s", l.Kind(), r.Kind())
	}

	if intOp {
		a, b := l.Int(), r.Int()
		switch op {
		case parser.OpAdd:
			return common.NewInt(a + b), nil
		case parser.OpSub:
			return common.NewInt(a - b), nil
		case parser.OpMul:
			return common.NewInt(a * b), nil
		case parser.OpDiv:
			if b == 0 {
				return common.Null(), common.Errorf(common.Evaluation, "division by zero")
			}
			return common.NewInt(a / b), nil
		case parser.OpMod:
			if b == 0 {
				return common.Null(), common.Errorf(common.Evaluation, "division by zero")
			}
			return common.NewInt(a % b), nil
		}
	}

	a, b := l.Numeric(), r.Numeric()
	switch op {
	case parser.OpAdd:
		return common.NewFloat(a + b), nil
	case parser.OpSub:
		return common.NewFloat(a - b), nil
	case parser.OpMul:
		return common.NewFloat(a * b), nil
	case parser.OpDiv:
		if b == 0 {
			return common.Null(), common.Errorf(common.Evaluation, "division by zero")
		}
		return common.NewFloat(a / b), nil
	case parser.OpMod:
		return common.Null(), common.Errorf(common.Evaluation, "modulo on float operands")
	}
	return common.Null(), common.Errorf(common.Internal, "unknown arithmetic operator %s", op)
}

func (ev *Evaluator) evalUnary(n *parser.Unary) (common.Value, error) {
	v, err := ev.Eval(n.X)
	if err != nil {
		return common.Null(), err
	}
	if n.Op == parser.OpNot {
		t, err := truthOf(v)
		if err != nil {
			return common.Null(), err
		}
		switch t {
		case truthTrue:
			return common.NewBool(false), nil
		case truthFalse:
			return common.NewBool(true), nil
		}
		return common.Null(), nil
	}

	if v.IsNull() {
		return common.Null(), nil
	}
	switch v.Kind() {
	case common.KindInt:
		return common.NewInt(-v.Int()), nil
	case common.KindFloat:
		return common.NewFloat(-v.Float()), nil
	}
	return common.Null(), common.Errorf(common.Evaluation, "cannot negate %s value", v.Kind())
}

// likeMatch translates a SQL LIKE pattern to a regular expression.
// QuoteMeta alone cannot be used wholesale: it does not escape % or _,
// so escaped wildcards would be indistinguishable from live ones.
func likeMatch(target, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("^")
	chars := []rune(pattern)
	for i := 0; i < len(chars); i++ {
		c := chars[i]
		switch {
		case c == '\\' && i+1 < len(chars) && (chars[i+1] == '%' || chars[i+1] == '_'):
			sb.WriteString(regexp.QuoteMeta(string(chars[i+1])))
			i++
		case c == '%':
			sb.WriteString(".*")
		case c == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	matched, err := regexp.MatchString(sb.String(), target)
	return err == nil && matched
}
