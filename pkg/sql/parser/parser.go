// pkg/sql/parser/parser.go
package parser

import (
	"fmt"

	"celdb/pkg/sql/lexer"
	"celdb/pkg/types"
)

// Parser turns a token stream from lexer into an AST. It implements a
// straightforward recursive-descent / precedence-climbing parser covering
// CREATE/DROP/ALTER TABLE, CREATE/DROP INDEX, INSERT, SELECT (WHERE, GROUP
// BY, HAVING, ORDER BY, LIMIT/OFFSET), UPDATE, DELETE, transaction control,
// and PRAGMA.
type Parser struct {
	l *lexer.Lexer

	cur  lexer.Token
	peek lexer.Token

	placeholders int
}

// New creates a Parser over sql.
func New(sql string) *Parser {
	p := &Parser{l: lexer.New(sql)}
	p.advance()
	p.advance()
	return p
}

// PlaceholderCount returns the number of `?` placeholders seen while
// parsing the last statement.
func (p *Parser) PlaceholderCount() int {
	return p.placeholders
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool { return p.cur.Type == t }

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if p.cur.Type != t {
		return lexer.Token{}, fmt.Errorf("expected %s, got %s (%q) at position %d", t, p.cur.Type, p.cur.Literal, p.cur.Pos)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *Parser) accept(t lexer.TokenType) bool {
	if p.cur.Type == t {
		p.advance()
		return true
	}
	return false
}

// Parse parses exactly one SQL statement, optionally followed by a
// trailing semicolon and EOF.
func (p *Parser) Parse() (Statement, error) {
	if p.curIs(lexer.EOF) {
		return nil, fmt.Errorf("empty statement")
	}

	var stmt Statement
	var err error

	switch p.cur.Type {
	case lexer.CREATE:
		stmt, err = p.parseCreate()
	case lexer.DROP:
		stmt, err = p.parseDrop()
	case lexer.ALTER:
		stmt, err = p.parseAlterTable()
	case lexer.INSERT:
		stmt, err = p.parseInsert()
	case lexer.SELECT:
		stmt, err = p.parseSelect()
	case lexer.UPDATE:
		stmt, err = p.parseUpdate()
	case lexer.DELETE:
		stmt, err = p.parseDelete()
	case lexer.BEGIN:
		stmt, err = p.parseBegin()
	case lexer.COMMIT:
		p.advance()
		stmt = &CommitStmt{}
	case lexer.ROLLBACK:
		stmt, err = p.parseRollback()
	case lexer.SAVEPOINT:
		stmt, err = p.parseSavepoint()
	case lexer.RELEASE:
		stmt, err = p.parseRelease()
	case lexer.PRAGMA:
		stmt, err = p.parsePragma()
	default:
		return nil, fmt.Errorf("unexpected token %s (%q) at start of statement", p.cur.Type, p.cur.Literal)
	}

	if err != nil {
		return nil, err
	}

	p.accept(lexer.SEMICOLON)
	if !p.curIs(lexer.EOF) {
		return nil, fmt.Errorf("unexpected trailing input near %q", p.cur.Literal)
	}

	return stmt, nil
}

// --- CREATE ---

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // CREATE

	unique := false
	if p.curIs(lexer.UNIQUE) {
		unique = true
		p.advance()
	}

	switch p.cur.Type {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.INDEX:
		return p.parseCreateIndex(unique)
	case lexer.VIEW:
		return p.parseCreateView()
	case lexer.TRIGGER:
		return p.parseCreateTrigger()
	default:
		return nil, fmt.Errorf("expected TABLE, INDEX, VIEW or TRIGGER after CREATE, got %s", p.cur.Type)
	}
}

// --- CREATE VIEW ---

func (p *Parser) parseCreateView() (Statement, error) {
	p.advance() // VIEW

	ifNotExists := false
	if p.curIs(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}

	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	var cols []string
	if p.accept(lexer.LPAREN) {
		for {
			c, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c.Literal)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.AS_KW); err != nil {
		return nil, err
	}

	selectStmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	sel, ok := selectStmt.(*SelectStmt)
	if !ok {
		return nil, fmt.Errorf("CREATE VIEW body must be a SELECT statement")
	}

	return &CreateViewStmt{
		ViewName:    name.Literal,
		Columns:     cols,
		Select:      sel,
		IfNotExists: ifNotExists,
	}, nil
}

// --- CREATE TRIGGER ---

func (p *Parser) parseCreateTrigger() (Statement, error) {
	p.advance() // TRIGGER

	ifNotExists := false
	if p.curIs(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}

	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	timing := TriggerBefore
	switch p.cur.Type {
	case lexer.BEFORE:
		p.advance()
	case lexer.AFTER:
		timing = TriggerAfter
		p.advance()
	default:
		return nil, fmt.Errorf("expected BEFORE or AFTER in CREATE TRIGGER, got %s", p.cur.Type)
	}

	var event TriggerEvent
	switch p.cur.Type {
	case lexer.INSERT:
		event = TriggerInsert
		p.advance()
	case lexer.UPDATE:
		event = TriggerUpdate
		p.advance()
	case lexer.DELETE:
		event = TriggerDelete
		p.advance()
	default:
		return nil, fmt.Errorf("expected INSERT, UPDATE or DELETE in CREATE TRIGGER, got %s", p.cur.Type)
	}

	if _, err := p.expect(lexer.ON); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	// FOR EACH ROW is accepted but has no effect: actions run once per
	// statement rather than bound to a per-row OLD/NEW context.
	if p.curIs(lexer.FOR_KW) {
		p.advance()
		p.accept(lexer.EACH)
		p.accept(lexer.ROW)
	}

	if _, err := p.expect(lexer.BEGIN); err != nil {
		return nil, err
	}

	var actions []Statement
	for !p.curIs(lexer.END) {
		if p.curIs(lexer.EOF) {
			return nil, fmt.Errorf("unterminated CREATE TRIGGER body, expected END")
		}
		stmt, err := p.parseTriggerAction()
		if err != nil {
			return nil, err
		}
		actions = append(actions, stmt)
		p.accept(lexer.SEMICOLON)
	}
	p.advance() // END

	return &CreateTriggerStmt{
		TriggerName: name.Literal,
		Timing:      timing,
		Event:       event,
		TableName:   table.Literal,
		Actions:     actions,
		IfNotExists: ifNotExists,
	}, nil
}

// parseTriggerAction parses a single statement inside a trigger body,
// without the trailing-EOF check Parse applies to top-level statements.
func (p *Parser) parseTriggerAction() (Statement, error) {
	switch p.cur.Type {
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.UPDATE:
		return p.parseUpdate()
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.SELECT:
		return p.parseSelect()
	default:
		return nil, fmt.Errorf("unsupported statement in trigger body: %s", p.cur.Type)
	}
}

func (p *Parser) parseCreateTable() (Statement, error) {
	p.advance() // TABLE

	ifNotExists := false
	if p.curIs(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}

	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	var columns []ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}

	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	return &CreateTableStmt{TableName: name.Literal, IfNotExists: ifNotExists, Columns: columns}, nil
}

func (p *Parser) parseColumnDef() (ColumnDef, error) {
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return ColumnDef{}, err
	}
	col := ColumnDef{Name: nameTok.Literal}

	typ, err := p.parseTypeName()
	if err != nil {
		return ColumnDef{}, err
	}
	col.Type = typ

	for {
		switch p.cur.Type {
		case lexer.PRIMARY:
			p.advance()
			if _, err := p.expect(lexer.KEY); err != nil {
				return ColumnDef{}, err
			}
			col.PrimaryKey = true
			if p.curIs(lexer.ASC) || p.curIs(lexer.DESC) {
				p.advance()
			}
		case lexer.NOT:
			p.advance()
			if _, err := p.expect(lexer.NULL_KW); err != nil {
				return ColumnDef{}, err
			}
			col.NotNull = true
		case lexer.UNIQUE:
			p.advance()
			col.Unique = true
		case lexer.DEFAULT:
			p.advance()
			expr, err := p.parseUnary()
			if err != nil {
				return ColumnDef{}, err
			}
			col.Default = expr
		case lexer.CHECK:
			p.advance()
			if _, err := p.expect(lexer.LPAREN); err != nil {
				return ColumnDef{}, err
			}
			expr, err := p.parseExpr()
			if err != nil {
				return ColumnDef{}, err
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return ColumnDef{}, err
			}
			col.Check = expr
		default:
			return col, nil
		}
	}
}

// parseTypeName consumes a column/cast type name, including SQLite's
// arbitrary-precision-ignoring `TYPE(n)` / `TYPE(n,n)` forms, and maps it
// onto the engine's storage classes (INTEGER, REAL, TEXT, BLOB).
func (p *Parser) parseTypeName() (types.ValueType, error) {
	var typ types.ValueType
	switch p.cur.Type {
	case lexer.INT_TYPE:
		typ = types.TypeInt
	case lexer.TEXT_TYPE:
		typ = types.TypeText
	case lexer.FLOAT_TYPE, lexer.REAL:
		typ = types.TypeFloat
	case lexer.BLOB_TYPE:
		typ = types.TypeBlob
	case lexer.IDENT:
		switch p.cur.Literal {
		case "INTEGER", "integer":
			typ = types.TypeInt
		default:
			typ = types.TypeText
		}
	default:
		return types.TypeText, fmt.Errorf("expected a column type, got %s", p.cur.Type)
	}
	p.advance()

	if p.accept(lexer.LPAREN) {
		for !p.curIs(lexer.RPAREN) {
			p.advance()
		}
		p.advance() // RPAREN
	}

	return typ, nil
}

func (p *Parser) parseCreateIndex(unique bool) (Statement, error) {
	p.advance() // INDEX

	ifNotExists := false
	if p.curIs(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}

	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ON); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Literal)
		if p.curIs(lexer.ASC) || p.curIs(lexer.DESC) {
			p.advance()
		}
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	return &CreateIndexStmt{IndexName: name.Literal, TableName: table.Literal, Columns: cols, Unique: unique, IfNotExists: ifNotExists}, nil
}

// --- DROP ---

func (p *Parser) parseDrop() (Statement, error) {
	p.advance() // DROP

	switch p.cur.Type {
	case lexer.TABLE:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &DropTableStmt{TableName: name.Literal, IfExists: ifExists}, nil
	case lexer.INDEX:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &DropIndexStmt{IndexName: name.Literal, IfExists: ifExists}, nil
	case lexer.VIEW:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &DropViewStmt{ViewName: name.Literal, IfExists: ifExists}, nil
	case lexer.TRIGGER:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &DropTriggerStmt{TriggerName: name.Literal, IfExists: ifExists}, nil
	default:
		return nil, fmt.Errorf("expected TABLE, INDEX, VIEW or TRIGGER after DROP, got %s", p.cur.Type)
	}
}

func (p *Parser) parseIfExists() bool {
	if p.curIs(lexer.IF) {
		p.advance()
		p.accept(lexer.EXISTS)
		return true
	}
	return false
}

// --- ALTER TABLE ---

func (p *Parser) parseAlterTable() (Statement, error) {
	p.advance() // ALTER
	if _, err := p.expect(lexer.TABLE); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &AlterTableStmt{TableName: name.Literal}

	switch p.cur.Type {
	case lexer.ADD:
		p.advance()
		p.accept(lexer.COLUMN)
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.AddColumn = &col
	case lexer.DROP:
		p.advance()
		p.accept(lexer.COLUMN)
		col, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		stmt.DropColumn = col.Literal
	case lexer.RENAME:
		p.advance()
		if _, err := p.expect(lexer.TO); err != nil {
			return nil, err
		}
		newName, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		stmt.RenameTo = newName.Literal
	default:
		return nil, fmt.Errorf("expected ADD, DROP, or RENAME after ALTER TABLE %s", name.Literal)
	}

	return stmt, nil
}

// --- INSERT ---

func (p *Parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if _, err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{TableName: name.Literal}

	if p.accept(lexer.LPAREN) {
		for {
			c, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, c.Literal)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}

	for {
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		var row []Expression
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, expr)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, row)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}

	return stmt, nil
}

// --- UPDATE / DELETE ---

func (p *Parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SET); err != nil {
		return nil, err
	}

	stmt := &UpdateStmt{TableName: name.Literal}
	for {
		col, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col.Literal, Value: val})
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}

	if p.accept(lexer.WHERE) {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{TableName: name.Literal}

	if p.accept(lexer.WHERE) {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

// --- SELECT ---

func (p *Parser) parseSelect() (Statement, error) {
	p.advance() // SELECT

	stmt := &SelectStmt{}

	for {
		col, err := p.parseSelectColumn()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.accept(lexer.COMMA) {
			continue
		}
		break
	}

	if p.accept(lexer.FROM) {
		table, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		t := &Table{Name: table.Literal}
		if p.accept(lexer.AS_KW) {
			alias, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			t.Alias = alias.Literal
		} else if p.curIs(lexer.IDENT) {
			t.Alias = p.cur.Literal
			p.advance()
		}
		stmt.From = t
	}

	if p.accept(lexer.WHERE) {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.curIs(lexer.GROUP) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, expr)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
	}

	if p.accept(lexer.HAVING) {
		having, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.curIs(lexer.ORDER) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ob := OrderByExpr{Expr: expr}
			if p.curIs(lexer.DESC) {
				ob.Desc = true
				p.advance()
			} else if p.curIs(lexer.ASC) {
				p.advance()
			}
			stmt.OrderBy = append(stmt.OrderBy, ob)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
	}

	if p.accept(lexer.LIMIT) {
		limit, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Limit = limit
	}

	if p.accept(lexer.OFFSET) {
		offset, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Offset = offset
	}

	return stmt, nil
}

func (p *Parser) parseSelectColumn() (SelectColumn, error) {
	if p.curIs(lexer.STAR) {
		p.advance()
		return SelectColumn{Star: true}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return SelectColumn{}, err
	}
	col := SelectColumn{Expr: expr}

	if p.accept(lexer.AS_KW) {
		alias, err := p.expect(lexer.IDENT)
		if err != nil {
			return SelectColumn{}, err
		}
		col.Alias = alias.Literal
	} else if p.curIs(lexer.IDENT) {
		col.Alias = p.cur.Literal
		p.advance()
	}

	return col, nil
}

// --- Transaction control ---

func (p *Parser) parseBegin() (Statement, error) {
	p.advance() // BEGIN
	p.accept(lexer.TRANSACTION)
	return &BeginStmt{}, nil
}

func (p *Parser) parseRollback() (Statement, error) {
	p.advance() // ROLLBACK
	p.accept(lexer.TRANSACTION)
	if p.curIs(lexer.TO) {
		p.advance()
		p.accept(lexer.SAVEPOINT)
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &RollbackToStmt{Name: name.Literal}, nil
	}
	return &RollbackStmt{}, nil
}

func (p *Parser) parseSavepoint() (Statement, error) {
	p.advance() // SAVEPOINT
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	return &SavepointStmt{Name: name.Literal}, nil
}

func (p *Parser) parseRelease() (Statement, error) {
	p.advance() // RELEASE
	p.accept(lexer.SAVEPOINT)
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	return &ReleaseStmt{Name: name.Literal}, nil
}

// --- PRAGMA ---

func (p *Parser) parsePragma() (Statement, error) {
	p.advance() // PRAGMA
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &PragmaStmt{Name: name.Literal}

	if p.accept(lexer.EQ) {
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		stmt.Value = val
	} else if p.accept(lexer.LPAREN) {
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		stmt.Value = val
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// --- Expressions ---
//
// Precedence, lowest to highest:
//   OR
//   AND
//   comparison (= != <> < > <= >= LIKE)
//   additive (+ -)
//   multiplicative (* /)
//   unary (- NOT)
//   primary

func (p *Parser) parseExpr() (Expression, error) {
	return p.parseOr()
}

// ParseExpr parses a single standalone expression, e.g. a CHECK constraint
// or DEFAULT clause stored as SQL text.
func (p *Parser) ParseExpr() (Expression, error) {
	return p.parseExpr()
}

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.OR) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: lexer.OR, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.AND) {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: lexer.AND, Right: right}
	}
	return left, nil
}

func isComparisonOp(t lexer.TokenType) bool {
	switch t {
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE, lexer.LIKE_KW:
		return true
	}
	return false
}

func (p *Parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for isComparisonOp(p.cur.Type) {
		op := p.cur.Type
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.PLUS) || p.curIs(lexer.MINUS) {
		op := p.cur.Type
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.STAR) || p.curIs(lexer.SLASH) {
		op := p.cur.Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	if p.curIs(lexer.MINUS) || p.curIs(lexer.NOT) {
		op := p.cur.Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	switch p.cur.Type {
	case lexer.INT:
		lit := p.cur.Literal
		p.advance()
		var n int64
		fmt.Sscanf(lit, "%d", &n)
		return &Literal{Value: types.NewInt(n)}, nil
	case lexer.FLOAT:
		lit := p.cur.Literal
		p.advance()
		var f float64
		fmt.Sscanf(lit, "%g", &f)
		return &Literal{Value: types.NewFloat(f)}, nil
	case lexer.STRING:
		lit := p.cur.Literal
		p.advance()
		return &Literal{Value: types.NewText(lit)}, nil
	case lexer.BLOB:
		lit, err := p.parseBlobLiteral()
		p.advance()
		if err != nil {
			return nil, err
		}
		return lit, nil
	case lexer.NULL_KW:
		p.advance()
		return &Literal{Value: types.NewNull()}, nil
	case lexer.TRUE_KW:
		p.advance()
		return &Literal{Value: types.NewInt(1)}, nil
	case lexer.FALSE_KW:
		p.advance()
		return &Literal{Value: types.NewInt(0)}, nil
	case lexer.QUESTION:
		p.advance()
		idx := p.placeholders
		p.placeholders++
		return &Placeholder{Index: idx}, nil
	case lexer.LPAREN:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.STAR:
		// Bare '*' only appears inside a function call argument list, e.g. COUNT(*).
		p.advance()
		return &ColumnRef{Name: "*"}, nil
	case lexer.IDENT:
		name := p.cur.Literal
		p.advance()
		if p.curIs(lexer.LPAREN) {
			return p.parseFunctionCallArgs(name)
		}
		return &ColumnRef{Name: name}, nil
	default:
		return nil, fmt.Errorf("unexpected token %s (%q) in expression", p.cur.Type, p.cur.Literal)
	}
}

func (p *Parser) parseFunctionCallArgs(name string) (Expression, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	fc := &FunctionCall{Name: name}

	if p.curIs(lexer.STAR) {
		p.advance()
		fc.Star = true
	} else if !p.curIs(lexer.RPAREN) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			fc.Args = append(fc.Args, arg)
			if p.accept(lexer.COMMA) {
				continue
			}
			break
		}
	}

	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return fc, nil
}

