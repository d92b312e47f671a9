package parser

import (
	"fmt"
	"io"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/parser/scanner"
	"github.com/leftmike/sqlscope/parser/token"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

type Parser interface {
	Parse() (*query.Select, error)
	ParseExpr() (expr.Expr, error)
	ParseType() (sql.ColumnType, error)
}

type parser struct {
	scanner   scanner.Scanner
	sctx      *scanner.ScanCtx
	scanned   rune
	unscanned bool
	lookahead scanner.ScanCtx
	current   scanner.ScanCtx
}

func NewParser(rr io.RuneReader, fn string) Parser {
	var p parser
	p.scanner.Init(rr, fn)
	p.sctx = &p.current
	return &p
}

func (p *parser) recover(err *error) {
	if r := recover(); r != nil {
		if _, ok := r.(runtime.Error); ok {
			panic(r)
		}
		*err = r.(error)
	}
}

func (p *parser) Parse() (stmt *query.Select, err error) {
	defer p.recover(&err)

	for {
		t := p.scan()
		if t == token.EOF {
			return nil, io.EOF
		} else if t != token.EndOfStatement {
			break
		}
	}
	p.unscan()

	p.expectReserved(sql.SELECT)
	s := p.parseSelect()
	p.expectEndOfStatement()
	return s, nil
}

func (p *parser) ParseExpr() (e expr.Expr, err error) {
	defer p.recover(&err)

	pe := p.parseExpr()
	p.expectEndOfStatement()
	return pe, nil
}

func (p *parser) ParseType() (ct sql.ColumnType, err error) {
	defer p.recover(&err)

	pct := p.parseColumnType()
	p.expectEndOfStatement()
	return pct, nil
}

func (p *parser) error(msg string) {
	panic(errors.Newf("%s: %s", p.sctx.Position, msg))
}

func (p *parser) scan() rune {
	if p.unscanned {
		p.unscanned = false
		p.current, p.lookahead = p.lookahead, p.current
		return p.scanned
	}

	p.lookahead = p.current
	p.scanner.Scan(&p.current)
	p.scanned = p.current.Token
	if p.scanned == token.Error {
		p.error(p.current.Error.Error())
	}
	return p.scanned
}

// unscan pushes back the most recently scanned token; only one token may be pushed back.
func (p *parser) unscan() {
	p.unscanned = true
	p.current, p.lookahead = p.lookahead, p.current
}

func (p *parser) got() string {
	switch p.scanned {
	case token.EOF:
		return "end of file"
	case token.EndOfStatement:
		return "end of statement"
	case token.Identifier:
		return fmt.Sprintf("identifier %s", p.sctx.Identifier)
	case token.Reserved:
		return fmt.Sprintf("reserved identifier %s", p.sctx.Identifier)
	case token.String:
		return fmt.Sprintf("string %q", p.sctx.String)
	case token.Integer:
		return fmt.Sprintf("integer %d", p.sctx.Integer)
	case token.Float:
		return fmt.Sprintf("float %f", p.sctx.Float)
	}

	return token.Format(p.scanned)
}

func (p *parser) expectReserved(ids ...sql.Identifier) sql.Identifier {
	t := p.scan()
	if t == token.Reserved {
		for _, kw := range ids {
			if kw == p.sctx.Identifier {
				return kw
			}
		}
	}

	var msg string
	if len(ids) == 1 {
		msg = ids[0].String()
	} else {
		for i, kw := range ids {
			if i == len(ids)-1 {
				msg += ", or "
			} else if i > 0 {
				msg += ", "
			}
			msg += kw.String()
		}
	}

	p.error(fmt.Sprintf("expected keyword %s got %s", msg, p.got()))
	return 0
}

func (p *parser) optionalReserved(ids ...sql.Identifier) bool {
	t := p.scan()
	if t == token.Reserved {
		for _, kw := range ids {
			if kw == p.sctx.Identifier {
				return true
			}
		}
	}

	p.unscan()
	return false
}

func (p *parser) expectIdentifier(msg string) sql.Identifier {
	t := p.scan()
	if t != token.Identifier {
		p.error(fmt.Sprintf("%s got %s", msg, p.got()))
	}
	return p.sctx.Identifier
}

func (p *parser) maybeIdentifier() (sql.Identifier, bool) {
	if p.scan() == token.Identifier {
		return p.sctx.Identifier, true
	}

	p.unscan()
	return 0, false
}

func (p *parser) expectTokens(tokens ...rune) rune {
	t := p.scan()
	for _, r := range tokens {
		if t == r {
			return r
		}
	}

	var msg string
	if len(tokens) == 1 {
		msg = token.Format(tokens[0])
	} else {
		for i, r := range tokens {
			if i == len(tokens)-1 {
				msg += ", or "
			} else if i > 0 {
				msg += ", "
			}
			msg += token.Format(r)
		}
	}

	p.error(fmt.Sprintf("expected %s got %s", msg, p.got()))
	return 0
}

func (p *parser) maybeToken(mr rune) bool {
	if p.scan() == mr {
		return true
	}
	p.unscan()
	return false
}

func (p *parser) expectEndOfStatement() {
	t := p.scan()
	if t != token.EOF && t != token.EndOfStatement {
		p.error(fmt.Sprintf("expected the end of the statement got %s", p.got()))
	}
}

func (p *parser) parseAlias() sql.Identifier {
	if p.optionalReserved(sql.AS) {
		return p.expectIdentifier("expected an alias")
	}
	if id, ok := p.maybeIdentifier(); ok {
		return id
	}
	return 0
}

func (p *parser) parseIdentifierList() []sql.Identifier {
	var ids []sql.Identifier
	p.expectTokens(token.LParen)
	for {
		ids = append(ids, p.expectIdentifier("expected a column name"))
		if p.maybeToken(token.RParen) {
			break
		}
		p.expectTokens(token.Comma)
	}
	return ids
}

func (p *parser) parseSelect() *query.Select {
	/*
		SELECT [DISTINCT] <result> [, ...] [FROM <from-item> [, ...]] [WHERE <expr>]
		    [GROUP BY <expr> [, ...]] [HAVING <expr>]
		    [ORDER BY <expr> [ASC | DESC] [, ...]]
		<result> = * | <table> . * | <expr> [[AS] <alias>]
	*/

	s := query.Select{Pos: p.sctx.Position}
	s.Distinct = p.optionalReserved(sql.DISTINCT)

	if !p.maybeToken(token.Star) {
		for {
			s.Results = append(s.Results, p.parseSelectResult())
			if !p.maybeToken(token.Comma) {
				break
			}
		}
	}

	if p.optionalReserved(sql.FROM) {
		s.From = p.parseFromList()
	}
	if p.optionalReserved(sql.WHERE) {
		s.Where = p.parseExpr()
	}
	if p.optionalReserved(sql.GROUP) {
		p.expectReserved(sql.BY)
		s.GroupBy = &query.GroupList{Pos: p.sctx.Position}
		for {
			s.GroupBy.Exprs = append(s.GroupBy.Exprs, p.parseExpr())
			if !p.maybeToken(token.Comma) {
				break
			}
		}
	}
	if p.optionalReserved(sql.HAVING) {
		s.Having = p.parseExpr()
	}
	if p.optionalReserved(sql.ORDER) {
		p.expectReserved(sql.BY)
		for {
			ob := query.OrderBy{Expr: p.parseExpr()}
			if p.optionalReserved(sql.DESC) {
				ob.Desc = true
			} else {
				p.optionalReserved(sql.ASC)
			}
			s.OrderBy = append(s.OrderBy, ob)
			if !p.maybeToken(token.Comma) {
				break
			}
		}
	}

	return &s
}

func (p *parser) parseSelectResult() query.SelectResult {
	if p.scan() == token.Identifier {
		id := p.sctx.Identifier
		pos := p.sctx.Position
		var e expr.Expr
		if p.maybeToken(token.Dot) {
			if p.maybeToken(token.Star) {
				return query.TableResult{Table: id, Pos: pos}
			}
			e = p.parseRef([]sql.Identifier{id, p.expectIdentifier("expected a column")}, pos)
		} else {
			e = p.parseIdentifierOperand(id, pos)
		}
		e = p.parseBinary(e, 0)
		return query.ExprResult{Expr: e, Alias: p.parseAlias()}
	}

	p.unscan()
	return query.ExprResult{Expr: p.parseExpr(), Alias: p.parseAlias()}
}

func (p *parser) parseFromList() query.FromItem {
	fi := p.parseFromItem()
	for p.maybeToken(token.Comma) {
		fi = &query.FromJoin{Left: fi, Right: p.parseFromItem(), Type: query.NoJoin}
	}
	return fi
}

func (p *parser) parseFromItem() query.FromItem {
	/*
		<from-item> = <primary> [ [INNER | LEFT | CROSS] JOIN <primary>
		    [ON <expr> | USING ( <column> [, ...] )] ...]
	*/

	fi := p.parsePrimaryFromItem()
	for {
		var jt query.JoinType
		if p.optionalReserved(sql.JOIN) {
			jt = query.Join
		} else if p.optionalReserved(sql.INNER) {
			p.expectReserved(sql.JOIN)
			jt = query.InnerJoin
		} else if p.optionalReserved(sql.LEFT) {
			p.expectReserved(sql.JOIN)
			jt = query.LeftJoin
		} else if p.optionalReserved(sql.CROSS) {
			p.expectReserved(sql.JOIN)
			jt = query.CrossJoin
		} else {
			return fi
		}

		fj := &query.FromJoin{Left: fi, Right: p.parsePrimaryFromItem(), Type: jt}
		if jt != query.CrossJoin {
			if p.optionalReserved(sql.ON) {
				fj.On = p.parseExpr()
			} else if p.optionalReserved(sql.USING) {
				fj.Using = p.parseIdentifierList()
			} else if jt == query.LeftJoin {
				p.error("LEFT JOIN requires ON or USING")
			}
		}
		fi = fj
	}
}

func (p *parser) parsePrimaryFromItem() query.FromItem {
	/*
		<primary> = [<schema> .] <table> [[AS] <alias>]
		    | [LATERAL] ( <select> ) [[AS] <alias> [( <column> [, ...] )]]
	*/

	lateral := p.optionalReserved(sql.LATERAL)
	if lateral || p.maybeToken(token.LParen) {
		if lateral {
			p.expectTokens(token.LParen)
		}
		pos := p.sctx.Position
		p.expectReserved(sql.SELECT)
		fs := &query.FromStmt{Stmt: p.parseSelect(), Lateral: lateral, Pos: pos}
		p.expectTokens(token.RParen)
		fs.Alias = p.parseAlias()
		if fs.Alias != 0 && p.maybeToken(token.LParen) {
			p.unscan()
			fs.ColumnAliases = p.parseIdentifierList()
		}
		return fs
	}

	id := p.expectIdentifier("expected a table")
	fta := &query.FromTableAlias{Path: sql.Path{id}, Pos: p.sctx.Position}
	for p.maybeToken(token.Dot) {
		fta.Path = append(fta.Path, p.expectIdentifier("expected a table"))
	}
	fta.Alias = p.parseAlias()
	return fta
}

var binaryOps = map[rune]expr.Op{
	token.BarBar:       expr.ConcatOp,
	token.Equal:        expr.EqualOp,
	token.EqualEqual:   expr.EqualOp,
	token.Greater:      expr.GreaterThanOp,
	token.GreaterEqual: expr.GreaterEqualOp,
	token.Less:         expr.LessThanOp,
	token.LessEqual:    expr.LessEqualOp,
	token.LessGreater:  expr.NotEqualOp,
	token.BangEqual:    expr.NotEqualOp,
	token.Minus:        expr.SubtractOp,
	token.Percent:      expr.ModuloOp,
	token.Plus:         expr.AddOp,
	token.Slash:        expr.DivideOp,
	token.Star:         expr.MultiplyOp,
}

func (p *parser) binaryOp() (expr.Op, sql.Position, bool) {
	r := p.scan()
	if op, ok := binaryOps[r]; ok {
		return op, p.sctx.Position, true
	}
	if r == token.Reserved {
		if p.sctx.Identifier == sql.AND {
			return expr.AndOp, p.sctx.Position, true
		} else if p.sctx.Identifier == sql.OR {
			return expr.OrOp, p.sctx.Position, true
		}
	}

	p.unscan()
	return 0, sql.Position{}, false
}

func (p *parser) parseExpr() expr.Expr {
	return p.parseBinary(p.parseUnary(), 0)
}

// parseBinary continues an expression whose left operand has been parsed, consuming
// operators with a precedence of at least minPrec.
func (p *parser) parseBinary(left expr.Expr, minPrec int) expr.Expr {
	for {
		op, pos, ok := p.binaryOp()
		if !ok {
			return left
		}
		if op.Precedence() < minPrec {
			p.unscan()
			return left
		}

		right := p.parseUnary()
		for {
			op2, _, ok := p.binaryOp()
			if !ok {
				break
			}
			p.unscan()
			if op2.Precedence() <= op.Precedence() {
				break
			}
			right = p.parseBinary(right, op.Precedence()+1)
		}

		left = &expr.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
}

func (p *parser) parseUnary() expr.Expr {
	r := p.scan()
	pos := p.sctx.Position
	if r == token.Minus {
		e := p.parseUnary()
		if l, ok := e.(*expr.Literal); ok {
			switch v := l.Value.(type) {
			case sql.Int64Value:
				return &expr.Literal{Value: -v, Pos: pos}
			case sql.Float64Value:
				return &expr.Literal{Value: -v, Pos: pos}
			}
		}
		return &expr.Unary{Op: expr.NegateOp, Expr: e, Pos: pos}
	} else if r == token.Plus {
		return p.parseUnary()
	} else if r == token.Reserved && p.sctx.Identifier == sql.NOT {
		e := p.parseBinary(p.parseUnary(), expr.NotOp.Precedence()+1)
		return &expr.Unary{Op: expr.NotOp, Expr: e, Pos: pos}
	}

	p.unscan()
	return p.parseOperand()
}

func (p *parser) parseOperand() expr.Expr {
	r := p.scan()
	pos := p.sctx.Position
	switch r {
	case token.Reserved:
		switch p.sctx.Identifier {
		case sql.TRUE:
			return &expr.Literal{Value: sql.BoolValue(true), Pos: pos}
		case sql.FALSE:
			return &expr.Literal{Value: sql.BoolValue(false), Pos: pos}
		case sql.NULL:
			return &expr.Literal{Value: nil, Pos: pos}
		case sql.EXISTS:
			// EXISTS ( <select> )
			p.expectTokens(token.LParen)
			p.expectReserved(sql.SELECT)
			sq := &expr.Subquery{Query: p.parseSelect(), Exists: true, Pos: pos}
			p.expectTokens(token.RParen)
			return sq
		case sql.MULTISET:
			return p.parseMultiset(pos)
		}
	case token.String:
		return &expr.Literal{Value: sql.StringValue(p.sctx.String), Pos: pos}
	case token.Integer:
		return &expr.Literal{Value: sql.Int64Value(p.sctx.Integer), Pos: pos}
	case token.Float:
		return &expr.Literal{Value: sql.Float64Value(p.sctx.Float), Pos: pos}
	case token.Identifier:
		return p.parseIdentifierOperand(p.sctx.Identifier, pos)
	case token.LParen:
		if p.optionalReserved(sql.SELECT) {
			// ( <select> )
			sq := &expr.Subquery{Query: p.parseSelect(), Pos: pos}
			p.expectTokens(token.RParen)
			return sq
		}

		// ( <expr> )
		e := &expr.Unary{Op: expr.NoOp, Expr: p.parseExpr(), Pos: pos}
		p.expectTokens(token.RParen)
		return e
	}

	p.error(fmt.Sprintf("expected an expression got %s", p.got()))
	return nil
}

func (p *parser) parseMultiset(pos sql.Position) expr.Expr {
	// MULTISET [ <expr> [, ...] ] | MULTISET ( <select> )
	if p.expectTokens(token.LBracket, token.LParen) == token.LParen {
		p.expectReserved(sql.SELECT)
		ms := &expr.Multiset{Query: p.parseSelect(), Pos: pos}
		p.expectTokens(token.RParen)
		return ms
	}

	ms := &expr.Multiset{Pos: pos}
	for {
		ms.Values = append(ms.Values, p.parseExpr())
		if p.expectTokens(token.Comma, token.RBracket) == token.RBracket {
			break
		}
	}
	return ms
}

func (p *parser) parseIdentifierOperand(id sql.Identifier, pos sql.Position) expr.Expr {
	if p.maybeToken(token.LParen) {
		// <func> ( [DISTINCT] [* | <expr> [, ...]] )
		c := &expr.Call{Name: id, Pos: pos}
		c.Distinct = p.optionalReserved(sql.DISTINCT)
		if p.maybeToken(token.Star) {
			c.Star = true
			p.expectTokens(token.RParen)
		} else if !p.maybeToken(token.RParen) {
			for {
				c.Args = append(c.Args, p.parseExpr())
				if p.expectTokens(token.Comma, token.RParen) == token.RParen {
					break
				}
			}
		}
		return c
	}

	return p.parseRef([]sql.Identifier{id}, pos)
}

func (p *parser) parseRef(names []sql.Identifier, pos sql.Position) expr.Expr {
	// <name> [. <name> ...]
	for p.maybeToken(token.Dot) {
		names = append(names, p.expectIdentifier("expected a reference"))
	}
	return &expr.Ref{Names: names, Pos: pos}
}

func (p *parser) parseColumnType() sql.ColumnType {
	/*
		<type> = BOOL | BOOLEAN | SMALLINT | INT | INTEGER | BIGINT | DOUBLE | TEXT
		    | CHAR [( <size> )] | VARCHAR [( <size> )]
		    | ROW ( <field> <type> [, ...] )
		    [MULTISET]
	*/

	var ct sql.ColumnType
	switch typ := p.expectIdentifier("expected a data type"); typ {
	case sql.BOOL, sql.BOOLEAN:
		ct = sql.ColumnType{Type: sql.BooleanType}
	case sql.SMALLINT:
		ct = sql.ColumnType{Type: sql.IntegerType, Size: 2}
	case sql.INT, sql.INTEGER:
		ct = sql.ColumnType{Type: sql.IntegerType, Size: 4}
	case sql.BIGINT:
		ct = sql.ColumnType{Type: sql.IntegerType, Size: 8}
	case sql.DOUBLE:
		ct = sql.ColumnType{Type: sql.FloatType, Size: 8}
	case sql.TEXT:
		ct = sql.ColumnType{Type: sql.StringType, Size: sql.MaxColumnSize}
	case sql.CHAR, sql.VARCHAR:
		ct = sql.ColumnType{Type: sql.StringType, Size: 1, Fixed: typ == sql.CHAR}
		if typ == sql.VARCHAR {
			ct.Size = sql.MaxColumnSize
		}
		if p.maybeToken(token.LParen) {
			if p.scan() != token.Integer || p.sctx.Integer < 1 ||
				p.sctx.Integer > sql.MaxColumnSize {

				p.error(fmt.Sprintf("expected a number between 1 and %d inclusive got %s",
					sql.MaxColumnSize, p.got()))
			}
			ct.Size = uint32(p.sctx.Integer)
			p.expectTokens(token.RParen)
		}
	case sql.ROW:
		var fields []sql.Field
		p.expectTokens(token.LParen)
		for {
			nam := p.expectIdentifier("expected a field name")
			for _, f := range fields {
				if f.Name == nam {
					p.error(fmt.Sprintf("duplicate field name: %s", nam))
				}
			}
			fields = append(fields, sql.Field{Name: nam, Type: p.parseColumnType()})
			if p.expectTokens(token.Comma, token.RParen) == token.RParen {
				break
			}
		}
		ct = sql.RowOf(fields...)
		ct.NotNull = false
	default:
		p.error(fmt.Sprintf("expected a data type got %s", typ))
	}

	for p.optionalReserved(sql.MULTISET) {
		ct = sql.MultisetOf(ct)
		ct.NotNull = false
	}
	return ct
}
