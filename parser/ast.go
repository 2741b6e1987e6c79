// Package parser turns SQL-like statement text into the parse trees the
// session facade dispatches on.
package parser

import (
	"fmt"
	"strings"

	"github.com/elerspay/DBMS/common"
)

// Statement is any parsed statement.
type Statement interface{ stmt() }

type CreateDatabase struct{ Name string }
type DropDatabase struct{ Name string }
type UseDatabase struct{ Name string }
type ShowDatabase struct{ Name string }

// ColumnDef is a declared column in CREATE TABLE or ALTER TABLE.
type ColumnDef struct {
	Name       string
	Type       common.ColumnType
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	Default    *common.Value
}

type CreateTable struct {
	Name    string
	Columns []ColumnDef
}

type DropTable struct{ Name string }
type RenameTable struct{ Old, New string }
type ShowTable struct{ Name string }

type AlterAddColumn struct {
	Table string
	Col   ColumnDef
}

type AlterDropColumn struct{ Table, Column string }

type AlterModifyColumn struct {
	Table string
	Col   ColumnDef
}

type AlterRenameColumn struct{ Table, Old, New string }

type CreateIndex struct{ Table, Column string }
type DropIndex struct{ Table, Column string }

type Insert struct {
	Table string
	// Columns is nil when the statement names no column list.
	Columns []string
	Rows    [][]Expr
}

type Delete struct {
	Table string
	Where Expr
}

type Update struct {
	Table  string
	Column string
	Value  Expr
	Where  Expr
}

// TableRef is one FROM-list entry.
type TableRef struct {
	Name  string
	Alias string
}

type OrderItem struct {
	Column string
	Asc    bool
}

type Select struct {
	Distinct bool
	// Star means SELECT *; Exprs is empty in that case.
	Star    bool
	Exprs   []Expr
	Tables  []TableRef
	Where   Expr
	OrderBy []OrderItem
}

// Output switches the query result sink: "stdout" or a file path.
type Output struct{ Sink string }

func (CreateDatabase) stmt()    {}
func (DropDatabase) stmt()      {}
func (UseDatabase) stmt()       {}
func (ShowDatabase) stmt()      {}
func (CreateTable) stmt()       {}
func (DropTable) stmt()         {}
func (RenameTable) stmt()       {}
func (ShowTable) stmt()         {}
func (AlterAddColumn) stmt()    {}
func (AlterDropColumn) stmt()   {}
func (AlterModifyColumn) stmt() {}
func (AlterRenameColumn) stmt() {}
func (CreateIndex) stmt()       {}
func (DropIndex) stmt()         {}
func (Insert) stmt()            {}
func (Delete) stmt()            {}
func (Update) stmt()            {}
func (Select) stmt()            {}
func (Output) stmt()            {}

// Op enumerates expression operators.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLike
	OpNot
	OpNeg
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpLike:
		return "LIKE"
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	}
	return "?"
}

// Expr is a node in an expression parse tree. String renders the
// expression text used for projection headers.
type Expr interface {
	fmt.Stringer
	expr()
}

type Literal struct{ Val common.Value }

func (l *Literal) String() string {
	if l.Val.Kind() == common.KindString {
		return "'" + l.Val.Str() + "'"
	}
	return l.Val.Format(common.DefaultDateTemplate)
}

// ColumnRef names a column, optionally qualified by a relation name.
type ColumnRef struct{ Table, Column string }

func (c *ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

type Binary struct {
	Op   Op
	L, R Expr
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.L, b.Op, b.R)
}

type Unary struct {
	Op Op
	X  Expr
}

func (u *Unary) String() string {
	if u.Op == OpNot {
		return fmt.Sprintf("(NOT %s)", u.X)
	}
	return fmt.Sprintf("(-%s)", u.X)
}

type NullCheck struct {
	X       Expr
	Negated bool
}

func (n *NullCheck) String() string {
	if n.Negated {
		return fmt.Sprintf("(%s IS NOT NULL)", n.X)
	}
	return fmt.Sprintf("(%s IS NULL)", n.X)
}

// AggFn enumerates the aggregate functions.
type AggFn int

const (
	AggCount AggFn = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (f AggFn) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	}
	return "?"
}

// Aggregate applies an aggregate function; Arg nil means COUNT(*).
type Aggregate struct {
	Fn  AggFn
	Arg Expr
}

func (a *Aggregate) String() string {
	if a.Arg == nil {
		return a.Fn.String() + "(*)"
	}
	return fmt.Sprintf("%s(%s)", a.Fn, a.Arg)
}

func (*Literal) expr()   {}
func (*ColumnRef) expr() {}
func (*Binary) expr()    {}
func (*Unary) expr()     {}
func (*NullCheck) expr() {}
func (*Aggregate) expr() {}

// WalkColumnRefs visits every column reference in the tree.
func WalkColumnRefs(e Expr, fn func(*ColumnRef)) {
	switch n := e.(type) {
	case *ColumnRef:
		fn(n)
	case *Binary:
		WalkColumnRefs(n.L, fn)
		WalkColumnRefs(n.R, fn)
	case *Unary:
		WalkColumnRefs(n.X, fn)
	case *NullCheck:
		WalkColumnRefs(n.X, fn)
	case *Aggregate:
		if n.Arg != nil {
			WalkColumnRefs(n.Arg, fn)
		}
	}
}

// HasAggregate reports whether the tree contains an aggregate node.
func HasAggregate(e Expr) bool {
	switch n := e.(type) {
	case *Aggregate:
		return true
	case *Binary:
		return HasAggregate(n.L) || HasAggregate(n.R)
	case *Unary:
		return HasAggregate(n.X)
	case *NullCheck:
		return HasAggregate(n.X)
	}
	return false
}

// ExprList renders a comma-joined header for a projection list.
func ExprList(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}
