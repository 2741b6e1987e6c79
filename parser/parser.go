package parser

import (
	"strconv"
	"strings"

	"github.com/elerspay/DBMS/common"
)

type parser struct {
	toks []token
	pos  int
}

// Parse turns one statement (with an optional trailing semicolon) into
// its parse tree.
func Parse(src string) (Statement, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	p.acceptSymbol(";")
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q after statement", p.peek().text)
	}
	return stmt, nil
}

// ParseLiteral parses one bare literal, as stored in column DEFAULT
// clauses.
func ParseLiteral(src string) (common.Value, error) {
	toks, err := tokenize(src)
	if err != nil {
		return common.Null(), err
	}
	p := &parser{toks: toks}
	v, err := p.literal()
	if err != nil {
		return common.Null(), err
	}
	if p.peek().kind != tokEOF {
		return common.Null(), p.errorf("unexpected %q after literal", p.peek().text)
	}
	return v, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return common.Errorf(common.Evaluation, "syntax error: "+format, args...)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorf("expected %s, found %q", kw, p.peek().text)
	}
	return nil
}

func (p *parser) acceptSymbol(sym string) bool {
	if p.peek().isSymbol(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.acceptSymbol(sym) {
		return p.errorf("expected %q, found %q", sym, p.peek().text)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.errorf("expected identifier, found %q", t.text)
	}
	p.advance()
	return t.text, nil
}

func (p *parser) statement() (Statement, error) {
	t := p.peek()
	switch {
	case t.isKeyword("CREATE"):
		return p.createStatement()
	case t.isKeyword("DROP"):
		return p.dropStatement()
	case t.isKeyword("USE"):
		p.advance()
		p.acceptKeyword("DATABASE")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return UseDatabase{Name: name}, nil
	case t.isKeyword("SHOW"):
		return p.showStatement()
	case t.isKeyword("RENAME"):
		p.advance()
		if err := p.expectKeyword("TABLE"); err != nil {
			return nil, err
		}
		oldName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
		newName, err := p.ident()
		if err != nil {
			return nil, err
		}
		return RenameTable{Old: oldName, New: newName}, nil
	case t.isKeyword("ALTER"):
		return p.alterStatement()
	case t.isKeyword("INSERT"):
		return p.insertStatement()
	case t.isKeyword("DELETE"):
		return p.deleteStatement()
	case t.isKeyword("UPDATE"):
		return p.updateStatement()
	case t.isKeyword("SELECT"):
		return p.selectStatement()
	case t.isKeyword("OUTPUT"):
		p.advance()
		if p.peek().kind == tokString {
			return Output{Sink: p.advance().text}, nil
		}
		if p.acceptKeyword("STDOUT") {
			return Output{Sink: "stdout"}, nil
		}
		return nil, p.errorf("OUTPUT wants a file path or STDOUT")
	}
	return nil, p.errorf("unknown statement %q", t.text)
}

func (p *parser) createStatement() (Statement, error) {
	p.advance() // CREATE
	switch {
	case p.acceptKeyword("DATABASE"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return CreateDatabase{Name: name}, nil
	case p.acceptKeyword("TABLE"):
		return p.createTable()
	case p.acceptKeyword("INDEX"):
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		table, col, err := p.tableColumn()
		if err != nil {
			return nil, err
		}
		return CreateIndex{Table: table, Column: col}, nil
	}
	return nil, p.errorf("expected DATABASE, TABLE or INDEX after CREATE")
}

func (p *parser) dropStatement() (Statement, error) {
	p.advance() // DROP
	switch {
	case p.acceptKeyword("DATABASE"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return DropDatabase{Name: name}, nil
	case p.acceptKeyword("TABLE"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return DropTable{Name: name}, nil
	case p.acceptKeyword("INDEX"):
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		table, col, err := p.tableColumn()
		if err != nil {
			return nil, err
		}
		return DropIndex{Table: table, Column: col}, nil
	}
	return nil, p.errorf("expected DATABASE, TABLE or INDEX after DROP")
}

func (p *parser) showStatement() (Statement, error) {
	p.advance() // SHOW
	switch {
	case p.acceptKeyword("DATABASE"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ShowDatabase{Name: name}, nil
	case p.acceptKeyword("TABLE"):
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ShowTable{Name: name}, nil
	}
	return nil, p.errorf("expected DATABASE or TABLE after SHOW")
}

// tableColumn parses table(column).
func (p *parser) tableColumn() (string, string, error) {
	table, err := p.ident()
	if err != nil {
		return "", "", err
	}
	if err := p.expectSymbol("("); err != nil {
		return "", "", err
	}
	col, err := p.ident()
	if err != nil {
		return "", "", err
	}
	if err := p.expectSymbol(")"); err != nil {
		return "", "", err
	}
	return table, col, nil
}

func (p *parser) columnType() (common.ColumnType, error) {
	t := p.peek()
	var kind common.TypeKind
	switch {
	case t.isKeyword("INT") || t.isKeyword("INTEGER"):
		kind = common.IntKind
	case t.isKeyword("FLOAT") || t.isKeyword("DOUBLE"):
		kind = common.FloatKind
	case t.isKeyword("BOOL") || t.isKeyword("BOOLEAN"):
		kind = common.BoolKind
	case t.isKeyword("DATE"):
		kind = common.DateKind
	case t.isKeyword("CHAR"):
		kind = common.CharKind
	case t.isKeyword("VARCHAR"):
		kind = common.VarcharKind
	default:
		return common.ColumnType{}, p.errorf("unknown column type %q", t.text)
	}
	p.advance()

	ct := common.ColumnType{Kind: kind}
	if kind == common.CharKind || kind == common.VarcharKind {
		if err := p.expectSymbol("("); err != nil {
			return ct, err
		}
		n := p.peek()
		if n.kind != tokInt {
			return ct, p.errorf("expected length, found %q", n.text)
		}
		p.advance()
		length, err := strconv.Atoi(n.text)
		if err != nil || length <= 0 {
			return ct, p.errorf("bad length %q", n.text)
		}
		ct.Len = length
		if err := p.expectSymbol(")"); err != nil {
			return ct, err
		}
	}
	return ct, nil
}

func (p *parser) columnDef() (ColumnDef, error) {
	name, err := p.ident()
	if err != nil {
		return ColumnDef{}, err
	}
	ct, err := p.columnType()
	if err != nil {
		return ColumnDef{}, err
	}
	def := ColumnDef{Name: name, Type: ct}

	for {
		switch {
		case p.acceptKeyword("NOT"):
			if err := p.expectKeyword("NULL"); err != nil {
				return def, err
			}
			def.NotNull = true
		case p.acceptKeyword("PRIMARY"):
			if err := p.expectKeyword("KEY"); err != nil {
				return def, err
			}
			def.PrimaryKey = true
		case p.acceptKeyword("UNIQUE"):
			def.Unique = true
		case p.acceptKeyword("DEFAULT"):
			lit, err := p.literal()
			if err != nil {
				return def, err
			}
			def.Default = &lit
		default:
			return def, nil
		}
	}
}

func (p *parser) createTable() (Statement, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cols []ColumnDef
	for {
		def, err := p.columnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, def)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return CreateTable{Name: name, Columns: cols}, nil
}

func (p *parser) alterStatement() (Statement, error) {
	p.advance() // ALTER
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch {
	case p.acceptKeyword("ADD"):
		p.acceptKeyword("COLUMN")
		def, err := p.columnDef()
		if err != nil {
			return nil, err
		}
		return AlterAddColumn{Table: table, Col: def}, nil
	case p.acceptKeyword("DROP"):
		p.acceptKeyword("COLUMN")
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		return AlterDropColumn{Table: table, Column: col}, nil
	case p.acceptKeyword("MODIFY"):
		p.acceptKeyword("COLUMN")
		def, err := p.columnDef()
		if err != nil {
			return nil, err
		}
		return AlterModifyColumn{Table: table, Col: def}, nil
	case p.acceptKeyword("RENAME"):
		p.acceptKeyword("COLUMN")
		oldName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
		newName, err := p.ident()
		if err != nil {
			return nil, err
		}
		return AlterRenameColumn{Table: table, Old: oldName, New: newName}, nil
	}
	return nil, p.errorf("expected ADD, DROP, MODIFY or RENAME after ALTER TABLE %s", table)
}

func (p *parser) insertStatement() (Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}

	var cols []string
	if p.acceptSymbol("(") {
		for {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	var rows [][]Expr
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var row []Expr
		for {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return Insert{Table: table, Columns: cols, Rows: rows}, nil
}

func (p *parser) deleteStatement() (Statement, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	where, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	return Delete{Table: table, Where: where}, nil
}

func (p *parser) updateStatement() (Statement, error) {
	p.advance() // UPDATE
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	col, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	where, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	return Update{Table: table, Column: col, Value: value, Where: where}, nil
}

func (p *parser) optionalWhere() (Expr, error) {
	if !p.acceptKeyword("WHERE") {
		return nil, nil
	}
	return p.expression()
}

func (p *parser) selectStatement() (Statement, error) {
	p.advance() // SELECT
	sel := Select{}
	if p.acceptKeyword("DISTINCT") {
		sel.Distinct = true
	}

	if p.acceptSymbol("*") {
		sel.Star = true
	} else {
		for {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			sel.Exprs = append(sel.Exprs, e)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		ref := TableRef{Name: name}
		p.acceptKeyword("AS")
		if t := p.peek(); t.kind == tokIdent && !isReserved(t.text) {
			ref.Alias = p.advance().text
		}
		sel.Tables = append(sel.Tables, ref)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}

	where, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	sel.Where = where

	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			item := OrderItem{Column: col, Asc: true}
			if p.acceptKeyword("DESC") {
				item.Asc = false
			} else {
				p.acceptKeyword("ASC")
			}
			sel.OrderBy = append(sel.OrderBy, item)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
	}
	return sel, nil
}

// isReserved keeps clause keywords from being eaten as table aliases.
func isReserved(word string) bool {
	switch strings.ToUpper(word) {
	case "WHERE", "ORDER", "GROUP", "FROM", "AND", "OR", "NOT", "AS", "ASC", "DESC":
		return true
	}
	return false
}

// Expression grammar, loosest first:
//
//	expression  = andExpr { OR andExpr }
//	andExpr     = notExpr { AND notExpr }
//	notExpr     = { NOT } comparison
//	comparison  = additive [ (= <> < > <= >= LIKE) additive | IS [NOT] NULL ]
//	additive    = multiplicative { (+ -) multiplicative }
//	multiplic.  = unary { (* / %) unary }
//	unary       = { - } primary
//	primary     = literal | aggregate | column ref | ( expression )
func (p *parser) expression() (Expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpOr, L: left, R: right}
	}
	return left, nil
}

func (p *parser) andExpr() (Expr, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpAnd, L: left, R: right}
	}
	return left, nil
}

func (p *parser) notExpr() (Expr, error) {
	if p.acceptKeyword("NOT") {
		x, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, X: x}, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}

	if p.acceptKeyword("IS") {
		negated := p.acceptKeyword("NOT")
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &NullCheck{X: left, Negated: negated}, nil
	}
	if p.acceptKeyword("LIKE") {
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: OpLike, L: left, R: right}, nil
	}

	var op Op
	switch {
	case p.acceptSymbol("="):
		op = OpEq
	case p.acceptSymbol("<>"), p.acceptSymbol("!="):
		op = OpNe
	case p.acceptSymbol("<="):
		op = OpLe
	case p.acceptSymbol(">="):
		op = OpGe
	case p.acceptSymbol("<"):
		op = OpLt
	case p.acceptSymbol(">"):
		op = OpGt
	default:
		return left, nil
	}
	right, err := p.additive()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, L: left, R: right}, nil
}

func (p *parser) additive() (Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch {
		case p.acceptSymbol("+"):
			op = OpAdd
		case p.acceptSymbol("-"):
			op = OpSub
		default:
			return left, nil
		}
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) multiplicative() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch {
		case p.acceptSymbol("*"):
			op = OpMul
		case p.acceptSymbol("/"):
			op = OpDiv
		case p.acceptSymbol("%"):
			op = OpMod
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) unary() (Expr, error) {
	if p.acceptSymbol("-") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*Literal); ok {
			// Fold negative numeric literals.
			switch lit.Val.Kind() {
			case common.KindInt:
				return &Literal{Val: common.NewInt(-lit.Val.Int())}, nil
			case common.KindFloat:
				return &Literal{Val: common.NewFloat(-lit.Val.Float())}, nil
			}
		}
		return &Unary{Op: OpNeg, X: x}, nil
	}
	return p.primary()
}

// literal parses a bare literal token (used by DEFAULT clauses).
func (p *parser) literal() (common.Value, error) {
	t := p.peek()
	switch {
	case t.kind == tokInt:
		p.advance()
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return common.Null(), p.errorf("bad integer %q", t.text)
		}
		return common.NewInt(i), nil
	case t.kind == tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return common.Null(), p.errorf("bad float %q", t.text)
		}
		return common.NewFloat(f), nil
	case t.kind == tokString:
		p.advance()
		return common.NewString(t.text), nil
	case t.isKeyword("TRUE"):
		p.advance()
		return common.NewBool(true), nil
	case t.isKeyword("FALSE"):
		p.advance()
		return common.NewBool(false), nil
	case t.isKeyword("NULL"):
		p.advance()
		return common.Null(), nil
	case t.isKeyword("DATE"):
		p.advance()
		s := p.peek()
		if s.kind != tokString {
			return common.Null(), p.errorf("DATE wants a quoted literal")
		}
		p.advance()
		days, err := common.ParseDate(s.text, common.DefaultDateTemplate)
		if err != nil {
			return common.Null(), err
		}
		return common.NewDate(days), nil
	}
	return common.Null(), p.errorf("expected literal, found %q", t.text)
}

func aggFnFor(name string) (AggFn, bool) {
	switch strings.ToUpper(name) {
	case "COUNT":
		return AggCount, true
	case "SUM":
		return AggSum, true
	case "AVG":
		return AggAvg, true
	case "MIN":
		return AggMin, true
	case "MAX":
		return AggMax, true
	}
	return 0, false
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()

	if p.acceptSymbol("(") {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	}

	if t.kind == tokIdent {
		if fn, ok := aggFnFor(t.text); ok && p.toks[p.pos+1].isSymbol("(") {
			p.advance()
			p.advance()
			if p.acceptSymbol("*") {
				if fn != AggCount {
					return nil, p.errorf("%s(*) is not supported", fn)
				}
				if err := p.expectSymbol(")"); err != nil {
					return nil, err
				}
				return &Aggregate{Fn: AggCount}, nil
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return &Aggregate{Fn: fn, Arg: arg}, nil
		}

		switch {
		case t.isKeyword("TRUE"), t.isKeyword("FALSE"), t.isKeyword("NULL"), t.isKeyword("DATE"):
			v, err := p.literal()
			if err != nil {
				return nil, err
			}
			return &Literal{Val: v}, nil
		}

		p.advance()
		if p.acceptSymbol(".") {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			return &ColumnRef{Table: t.text, Column: col}, nil
		}
		return &ColumnRef{Column: t.text}, nil
	}

	v, err := p.literal()
	if err != nil {
		return nil, err
	}
	return &Literal{Val: v}, nil
}
