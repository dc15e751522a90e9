package parser

import (
	"testing"

	"celdb/pkg/sql/lexer"
	"celdb/pkg/types"
)

func TestParser_CreateTable_Simple(t *testing.T) {
	input := "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"
	stmt, err := New(input).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("Expected *CreateTableStmt, got %T", stmt)
	}
	if create.TableName != "users" {
		t.Errorf("TableName = %q, want 'users'", create.TableName)
	}
	if len(create.Columns) != 2 {
		t.Fatalf("Columns count = %d, want 2", len(create.Columns))
	}
	if !create.Columns[0].PrimaryKey {
		t.Error("id.PrimaryKey = false, want true")
	}
	if create.Columns[0].Type != types.TypeInt {
		t.Errorf("id.Type = %v, want TypeInt", create.Columns[0].Type)
	}
	if create.Columns[1].Type != types.TypeText {
		t.Errorf("name.Type = %v, want TypeText", create.Columns[1].Type)
	}
}

func TestParser_CreateTable_IfNotExists(t *testing.T) {
	stmt, err := New("CREATE TABLE IF NOT EXISTS t (id INTEGER)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	if !create.IfNotExists {
		t.Error("IfNotExists = false, want true")
	}
}

func TestParser_CreateTable_AllTypes(t *testing.T) {
	input := "CREATE TABLE t (a INTEGER, b TEXT, c FLOAT, d BLOB, e REAL)"
	stmt, err := New(input).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	want := []types.ValueType{types.TypeInt, types.TypeText, types.TypeFloat, types.TypeBlob, types.TypeFloat}
	for i, w := range want {
		if create.Columns[i].Type != w {
			t.Errorf("Columns[%d].Type = %v, want %v", i, create.Columns[i].Type, w)
		}
	}
}

func TestParser_CreateTable_TypeWithPrecision(t *testing.T) {
	// TYPE(n) / TYPE(n,n) parameters are consumed and ignored.
	stmt, err := New("CREATE TABLE t (a TEXT(255), b FLOAT(10,2))").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	if create.Columns[0].Type != types.TypeText {
		t.Errorf("a.Type = %v, want TypeText", create.Columns[0].Type)
	}
	if create.Columns[1].Type != types.TypeFloat {
		t.Errorf("b.Type = %v, want TypeFloat", create.Columns[1].Type)
	}
}

func TestParser_CreateTable_UniqueNotNull(t *testing.T) {
	stmt, err := New("CREATE TABLE users (id INTEGER PRIMARY KEY NOT NULL, email TEXT UNIQUE NOT NULL)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	id := create.Columns[0]
	if !id.PrimaryKey || !id.NotNull {
		t.Errorf("id = %+v, want PrimaryKey=true NotNull=true", id)
	}
	email := create.Columns[1]
	if !email.Unique || !email.NotNull {
		t.Errorf("email = %+v, want Unique=true NotNull=true", email)
	}
}

func TestParser_CreateTable_DefaultInt(t *testing.T) {
	stmt, err := New("CREATE TABLE t (age INTEGER DEFAULT 0)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	col := create.Columns[0]
	if col.Default == nil {
		t.Fatal("Default = nil, want non-nil")
	}
	lit, ok := col.Default.(*Literal)
	if !ok {
		t.Fatalf("Default type = %T, want *Literal", col.Default)
	}
	if lit.Value.Int() != 0 {
		t.Errorf("Default value = %d, want 0", lit.Value.Int())
	}
}

func TestParser_CreateTable_DefaultNegative(t *testing.T) {
	stmt, err := New("CREATE TABLE t (balance INTEGER DEFAULT -1)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	unary, ok := create.Columns[0].Default.(*UnaryExpr)
	if !ok {
		t.Fatalf("Default type = %T, want *UnaryExpr", create.Columns[0].Default)
	}
	if unary.Op != lexer.MINUS {
		t.Errorf("Default.Op = %v, want MINUS", unary.Op)
	}
}

func TestParser_CreateTable_DefaultText(t *testing.T) {
	stmt, err := New("CREATE TABLE t (status TEXT DEFAULT 'unknown')").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	lit := create.Columns[0].Default.(*Literal)
	if lit.Value.Text() != "unknown" {
		t.Errorf("Default value = %q, want 'unknown'", lit.Value.Text())
	}
}

func TestParser_CreateTable_CheckConstraint(t *testing.T) {
	stmt, err := New("CREATE TABLE t (age INTEGER CHECK (age >= 0))").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	col := create.Columns[0]
	if col.Check == nil {
		t.Fatal("Check = nil, want non-nil")
	}
	binary, ok := col.Check.(*BinaryExpr)
	if !ok {
		t.Fatalf("Check type = %T, want *BinaryExpr", col.Check)
	}
	if binary.Op != lexer.GTE {
		t.Errorf("Check.Op = %v, want GTE", binary.Op)
	}
}

func TestParser_CreateTable_MultipleColumnConstraints(t *testing.T) {
	input := "CREATE TABLE users (id INTEGER PRIMARY KEY NOT NULL, email TEXT UNIQUE NOT NULL, age INTEGER DEFAULT 0 CHECK (age >= 0))"
	stmt, err := New(input).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*CreateTableStmt)
	if len(create.Columns) != 3 {
		t.Fatalf("Columns count = %d, want 3", len(create.Columns))
	}
	age := create.Columns[2]
	if age.Default == nil {
		t.Error("age.Default = nil, want non-nil")
	}
	if age.Check == nil {
		t.Error("age.Check = nil, want non-nil")
	}
}

func TestParser_CreateIndex_Simple(t *testing.T) {
	stmt, err := New("CREATE INDEX idx_name ON users (name)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	idx, ok := stmt.(*CreateIndexStmt)
	if !ok {
		t.Fatalf("Expected *CreateIndexStmt, got %T", stmt)
	}
	if idx.IndexName != "idx_name" || idx.TableName != "users" {
		t.Errorf("idx = %+v", idx)
	}
	if len(idx.Columns) != 1 || idx.Columns[0] != "name" {
		t.Errorf("Columns = %v, want [name]", idx.Columns)
	}
	if idx.Unique {
		t.Error("Unique = true, want false")
	}
}

func TestParser_CreateIndex_MultiColumn(t *testing.T) {
	stmt, err := New("CREATE INDEX idx ON t (a, b, c)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	idx := stmt.(*CreateIndexStmt)
	if len(idx.Columns) != 3 {
		t.Fatalf("Columns count = %d, want 3", len(idx.Columns))
	}
}

func TestParser_CreateIndex_Unique(t *testing.T) {
	stmt, err := New("CREATE UNIQUE INDEX idx ON users (email)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	idx := stmt.(*CreateIndexStmt)
	if !idx.Unique {
		t.Error("Unique = false, want true")
	}
}

func TestParser_CreateIndex_IfNotExists(t *testing.T) {
	stmt, err := New("CREATE INDEX IF NOT EXISTS idx ON t (a)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	idx := stmt.(*CreateIndexStmt)
	if !idx.IfNotExists {
		t.Error("IfNotExists = false, want true")
	}
}

func TestParser_DropTable(t *testing.T) {
	stmt, err := New("DROP TABLE users").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	drop, ok := stmt.(*DropTableStmt)
	if !ok {
		t.Fatalf("Expected *DropTableStmt, got %T", stmt)
	}
	if drop.TableName != "users" || drop.IfExists {
		t.Errorf("drop = %+v", drop)
	}
}

func TestParser_DropTable_IfExists(t *testing.T) {
	stmt, err := New("DROP TABLE IF EXISTS users").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	drop := stmt.(*DropTableStmt)
	if !drop.IfExists {
		t.Error("IfExists = false, want true")
	}
}

func TestParser_DropIndex(t *testing.T) {
	stmt, err := New("DROP INDEX idx_name").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	drop, ok := stmt.(*DropIndexStmt)
	if !ok {
		t.Fatalf("Expected *DropIndexStmt, got %T", stmt)
	}
	if drop.IndexName != "idx_name" {
		t.Errorf("IndexName = %q, want 'idx_name'", drop.IndexName)
	}
}

func TestParser_DropIndex_IfExists(t *testing.T) {
	stmt, err := New("DROP INDEX IF EXISTS idx_name").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	drop := stmt.(*DropIndexStmt)
	if !drop.IfExists {
		t.Error("IfExists = false, want true")
	}
}

func TestParser_AlterTable_AddColumn(t *testing.T) {
	stmt, err := New("ALTER TABLE users ADD COLUMN age INTEGER DEFAULT 0").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	alter, ok := stmt.(*AlterTableStmt)
	if !ok {
		t.Fatalf("Expected *AlterTableStmt, got %T", stmt)
	}
	if alter.AddColumn == nil {
		t.Fatal("AddColumn = nil, want non-nil")
	}
	if alter.AddColumn.Name != "age" {
		t.Errorf("AddColumn.Name = %q, want 'age'", alter.AddColumn.Name)
	}
	lit, ok := alter.AddColumn.Default.(*Literal)
	if !ok {
		t.Fatalf("AddColumn.Default type = %T, want *Literal", alter.AddColumn.Default)
	}
	if lit.Value.Int() != 0 {
		t.Errorf("AddColumn.Default = %d, want 0", lit.Value.Int())
	}
}

func TestParser_AlterTable_AddColumn_NoColumnKeyword(t *testing.T) {
	stmt, err := New("ALTER TABLE users ADD age INTEGER").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	alter := stmt.(*AlterTableStmt)
	if alter.AddColumn == nil || alter.AddColumn.Name != "age" {
		t.Errorf("AddColumn = %+v", alter.AddColumn)
	}
}

func TestParser_AlterTable_DropColumn(t *testing.T) {
	stmt, err := New("ALTER TABLE users DROP COLUMN age").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	alter := stmt.(*AlterTableStmt)
	if alter.DropColumn != "age" {
		t.Errorf("DropColumn = %q, want 'age'", alter.DropColumn)
	}
}

func TestParser_AlterTable_DropColumn_NoColumnKeyword(t *testing.T) {
	stmt, err := New("ALTER TABLE users DROP age").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	alter := stmt.(*AlterTableStmt)
	if alter.DropColumn != "age" {
		t.Errorf("DropColumn = %q, want 'age'", alter.DropColumn)
	}
}

func TestParser_AlterTable_RenameTo(t *testing.T) {
	stmt, err := New("ALTER TABLE users RENAME TO people").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	alter := stmt.(*AlterTableStmt)
	if alter.RenameTo != "people" {
		t.Errorf("RenameTo = %q, want 'people'", alter.RenameTo)
	}
}

func TestParser_Insert_Simple(t *testing.T) {
	stmt, err := New("INSERT INTO users VALUES (1, 'alice')").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	insert, ok := stmt.(*InsertStmt)
	if !ok {
		t.Fatalf("Expected *InsertStmt, got %T", stmt)
	}
	if insert.TableName != "users" {
		t.Errorf("TableName = %q, want 'users'", insert.TableName)
	}
	if insert.Columns != nil {
		t.Errorf("Columns = %v, want nil", insert.Columns)
	}
	if len(insert.Values) != 1 || len(insert.Values[0]) != 2 {
		t.Fatalf("Values = %v", insert.Values)
	}
}

func TestParser_Insert_WithColumns(t *testing.T) {
	stmt, err := New("INSERT INTO users (id, name) VALUES (1, 'alice')").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	insert := stmt.(*InsertStmt)
	if len(insert.Columns) != 2 || insert.Columns[0] != "id" || insert.Columns[1] != "name" {
		t.Errorf("Columns = %v", insert.Columns)
	}
}

func TestParser_Insert_MultipleRows(t *testing.T) {
	stmt, err := New("INSERT INTO t VALUES (1, 'a'), (2, 'b'), (3, 'c')").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	insert := stmt.(*InsertStmt)
	if len(insert.Values) != 3 {
		t.Fatalf("Values count = %d, want 3", len(insert.Values))
	}
}

func TestParser_Insert_NullAndPlaceholder(t *testing.T) {
	stmt, err := New("INSERT INTO t VALUES (?, NULL, ?)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	insert := stmt.(*InsertStmt)
	row := insert.Values[0]
	if _, ok := row[0].(*Placeholder); !ok {
		t.Errorf("row[0] = %T, want *Placeholder", row[0])
	}
	lit, ok := row[1].(*Literal)
	if !ok || !lit.Value.IsNull() {
		t.Errorf("row[1] = %v, want NULL literal", row[1])
	}
	ph, ok := row[2].(*Placeholder)
	if !ok {
		t.Fatalf("row[2] = %T, want *Placeholder", row[2])
	}
	if ph.Index != 1 {
		t.Errorf("row[2].Index = %d, want 1", ph.Index)
	}
}

func TestParser_Select_Star(t *testing.T) {
	stmt, err := New("SELECT * FROM users").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		t.Fatalf("Expected *SelectStmt, got %T", stmt)
	}
	if len(sel.Columns) != 1 || !sel.Columns[0].Star {
		t.Errorf("Columns = %+v, want single Star column", sel.Columns)
	}
	table, ok := sel.From.(*Table)
	if !ok || table.Name != "users" {
		t.Errorf("From = %+v", sel.From)
	}
}

func TestParser_Select_Columns(t *testing.T) {
	stmt, err := New("SELECT id, name AS n FROM users").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.Columns) != 2 {
		t.Fatalf("Columns count = %d, want 2", len(sel.Columns))
	}
	ref, ok := sel.Columns[0].Expr.(*ColumnRef)
	if !ok || ref.Name != "id" {
		t.Errorf("Columns[0].Expr = %+v", sel.Columns[0].Expr)
	}
	if sel.Columns[1].Alias != "n" {
		t.Errorf("Columns[1].Alias = %q, want 'n'", sel.Columns[1].Alias)
	}
}

func TestParser_Select_NoTable(t *testing.T) {
	stmt, err := New("SELECT 1 + 1").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if sel.From != nil {
		t.Errorf("From = %+v, want nil", sel.From)
	}
}

func TestParser_Select_WithWhere(t *testing.T) {
	stmt, err := New("SELECT * FROM users WHERE id = 1").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	binary, ok := sel.Where.(*BinaryExpr)
	if !ok {
		t.Fatalf("Where type = %T, want *BinaryExpr", sel.Where)
	}
	if binary.Op != lexer.EQ {
		t.Errorf("Where.Op = %v, want EQ", binary.Op)
	}
}

func TestParser_Select_WhereAnd(t *testing.T) {
	stmt, err := New("SELECT * FROM users WHERE id = 1 AND name = 'a'").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	binary, ok := sel.Where.(*BinaryExpr)
	if !ok || binary.Op != lexer.AND {
		t.Fatalf("Where = %+v, want top-level AND", sel.Where)
	}
}

func TestParser_Select_WhereOr(t *testing.T) {
	stmt, err := New("SELECT * FROM users WHERE id = 1 OR id = 2").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	binary, ok := sel.Where.(*BinaryExpr)
	if !ok || binary.Op != lexer.OR {
		t.Fatalf("Where = %+v, want top-level OR", sel.Where)
	}
}

func TestParser_Select_WhereComparisons(t *testing.T) {
	ops := map[string]lexer.TokenType{
		"=":  lexer.EQ,
		"!=": lexer.NEQ,
		"<":  lexer.LT,
		">":  lexer.GT,
		"<=": lexer.LTE,
		">=": lexer.GTE,
	}
	for opText, wantOp := range ops {
		input := "SELECT * FROM t WHERE a " + opText + " 1"
		stmt, err := New(input).Parse()
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		sel := stmt.(*SelectStmt)
		binary, ok := sel.Where.(*BinaryExpr)
		if !ok {
			t.Fatalf("Parse(%q): Where type = %T", input, sel.Where)
		}
		if binary.Op != wantOp {
			t.Errorf("Parse(%q): Op = %v, want %v", input, binary.Op, wantOp)
		}
	}
}

func TestParser_Select_WhereLike(t *testing.T) {
	stmt, err := New("SELECT * FROM t WHERE name LIKE 'a%'").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	binary, ok := sel.Where.(*BinaryExpr)
	if !ok || binary.Op != lexer.LIKE_KW {
		t.Fatalf("Where = %+v, want LIKE_KW binary expr", sel.Where)
	}
}

func TestParser_Select_Arithmetic(t *testing.T) {
	stmt, err := New("SELECT a + b * 2 FROM t").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	add, ok := sel.Columns[0].Expr.(*BinaryExpr)
	if !ok || add.Op != lexer.PLUS {
		t.Fatalf("Expr = %+v, want top-level PLUS", sel.Columns[0].Expr)
	}
	mul, ok := add.Right.(*BinaryExpr)
	if !ok || mul.Op != lexer.STAR {
		t.Fatalf("Right = %+v, want MUL nested under PLUS (precedence)", add.Right)
	}
}

func TestParser_Select_FunctionCall(t *testing.T) {
	stmt, err := New("SELECT COUNT(*) FROM t").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	fc, ok := sel.Columns[0].Expr.(*FunctionCall)
	if !ok {
		t.Fatalf("Expr type = %T, want *FunctionCall", sel.Columns[0].Expr)
	}
	if fc.Name != "COUNT" || !fc.Star {
		t.Errorf("fc = %+v, want Name=COUNT Star=true", fc)
	}
}

func TestParser_Select_FunctionCallWithArgs(t *testing.T) {
	stmt, err := New("SELECT SUM(amount), MAX(a, b) FROM t").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	sum := sel.Columns[0].Expr.(*FunctionCall)
	if sum.Name != "SUM" || len(sum.Args) != 1 {
		t.Errorf("sum = %+v", sum)
	}
	max := sel.Columns[1].Expr.(*FunctionCall)
	if max.Name != "MAX" || len(max.Args) != 2 {
		t.Errorf("max = %+v", max)
	}
}

func TestParser_Select_GroupBy(t *testing.T) {
	stmt, err := New("SELECT dept, COUNT(*) FROM t GROUP BY dept").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.GroupBy) != 1 {
		t.Fatalf("GroupBy count = %d, want 1", len(sel.GroupBy))
	}
}

func TestParser_Select_GroupByMultipleColumns(t *testing.T) {
	stmt, err := New("SELECT a, b FROM t GROUP BY a, b").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.GroupBy) != 2 {
		t.Fatalf("GroupBy count = %d, want 2", len(sel.GroupBy))
	}
}

func TestParser_Select_GroupByHaving(t *testing.T) {
	stmt, err := New("SELECT dept, COUNT(*) FROM t GROUP BY dept HAVING COUNT(*) > 1").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if sel.Having == nil {
		t.Fatal("Having = nil, want non-nil")
	}
}

func TestParser_Select_OrderBy(t *testing.T) {
	stmt, err := New("SELECT * FROM t ORDER BY name").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].Desc {
		t.Errorf("OrderBy = %+v", sel.OrderBy)
	}
}

func TestParser_Select_OrderByDesc(t *testing.T) {
	stmt, err := New("SELECT * FROM t ORDER BY name DESC").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if !sel.OrderBy[0].Desc {
		t.Error("Desc = false, want true")
	}
}

func TestParser_Select_OrderByMultiple(t *testing.T) {
	stmt, err := New("SELECT * FROM t ORDER BY a ASC, b DESC").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.OrderBy) != 2 {
		t.Fatalf("OrderBy count = %d, want 2", len(sel.OrderBy))
	}
	if sel.OrderBy[0].Desc || !sel.OrderBy[1].Desc {
		t.Errorf("OrderBy = %+v", sel.OrderBy)
	}
}

func TestParser_Select_LimitOffset(t *testing.T) {
	stmt, err := New("SELECT * FROM t LIMIT 10 OFFSET 5").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	lim, ok := sel.Limit.(*Literal)
	if !ok || lim.Value.Int() != 10 {
		t.Errorf("Limit = %+v, want 10", sel.Limit)
	}
	off, ok := sel.Offset.(*Literal)
	if !ok || off.Value.Int() != 5 {
		t.Errorf("Offset = %+v, want 5", sel.Offset)
	}
}

func TestParser_Select_WhereGroupByHavingOrderByLimit(t *testing.T) {
	input := "SELECT dept, COUNT(*) FROM t WHERE active = 1 GROUP BY dept HAVING COUNT(*) > 1 ORDER BY dept LIMIT 5"
	stmt, err := New(input).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if sel.Where == nil || sel.GroupBy == nil || sel.Having == nil || sel.OrderBy == nil || sel.Limit == nil {
		t.Errorf("sel = %+v, expected all clauses populated", sel)
	}
}

func TestParser_Update_Simple(t *testing.T) {
	stmt, err := New("UPDATE users SET name = 'bob'").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	update, ok := stmt.(*UpdateStmt)
	if !ok {
		t.Fatalf("Expected *UpdateStmt, got %T", stmt)
	}
	if update.TableName != "users" {
		t.Errorf("TableName = %q, want 'users'", update.TableName)
	}
	if len(update.Assignments) != 1 || update.Assignments[0].Column != "name" {
		t.Errorf("Assignments = %+v", update.Assignments)
	}
	if update.Where != nil {
		t.Errorf("Where = %+v, want nil", update.Where)
	}
}

func TestParser_Update_MultipleAssignments(t *testing.T) {
	stmt, err := New("UPDATE t SET a = 1, b = 2, c = 3").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	update := stmt.(*UpdateStmt)
	if len(update.Assignments) != 3 {
		t.Fatalf("Assignments count = %d, want 3", len(update.Assignments))
	}
}

func TestParser_Update_WithWhere(t *testing.T) {
	stmt, err := New("UPDATE users SET name = 'bob' WHERE id = 1").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	update := stmt.(*UpdateStmt)
	if update.Where == nil {
		t.Fatal("Where = nil, want non-nil")
	}
}

func TestParser_Update_ExpressionValue(t *testing.T) {
	stmt, err := New("UPDATE t SET balance = balance + 10 WHERE id = ?").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	update := stmt.(*UpdateStmt)
	expr, ok := update.Assignments[0].Value.(*BinaryExpr)
	if !ok || expr.Op != lexer.PLUS {
		t.Fatalf("Value = %+v, want PLUS binary expr", update.Assignments[0].Value)
	}
}

func TestParser_Delete_Simple(t *testing.T) {
	stmt, err := New("DELETE FROM users").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	del, ok := stmt.(*DeleteStmt)
	if !ok {
		t.Fatalf("Expected *DeleteStmt, got %T", stmt)
	}
	if del.TableName != "users" || del.Where != nil {
		t.Errorf("del = %+v", del)
	}
}

func TestParser_Delete_WithWhere(t *testing.T) {
	stmt, err := New("DELETE FROM users WHERE id = 1").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	del := stmt.(*DeleteStmt)
	if del.Where == nil {
		t.Fatal("Where = nil, want non-nil")
	}
}

func TestParser_Begin(t *testing.T) {
	stmt, err := New("BEGIN").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*BeginStmt); !ok {
		t.Fatalf("Expected *BeginStmt, got %T", stmt)
	}
}

func TestParser_BeginTransaction(t *testing.T) {
	stmt, err := New("BEGIN TRANSACTION").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*BeginStmt); !ok {
		t.Fatalf("Expected *BeginStmt, got %T", stmt)
	}
}

func TestParser_Commit(t *testing.T) {
	stmt, err := New("COMMIT").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*CommitStmt); !ok {
		t.Fatalf("Expected *CommitStmt, got %T", stmt)
	}
}

func TestParser_Rollback(t *testing.T) {
	stmt, err := New("ROLLBACK").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*RollbackStmt); !ok {
		t.Fatalf("Expected *RollbackStmt, got %T", stmt)
	}
}

func TestParser_RollbackTransaction(t *testing.T) {
	stmt, err := New("ROLLBACK TRANSACTION").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*RollbackStmt); !ok {
		t.Fatalf("Expected *RollbackStmt, got %T", stmt)
	}
}

func TestParser_Pragma_NoValue(t *testing.T) {
	stmt, err := New("PRAGMA integrity_check").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	pragma, ok := stmt.(*PragmaStmt)
	if !ok {
		t.Fatalf("Expected *PragmaStmt, got %T", stmt)
	}
	if pragma.Name != "integrity_check" || pragma.Value != nil {
		t.Errorf("pragma = %+v", pragma)
	}
}

func TestParser_Pragma_EqValue(t *testing.T) {
	stmt, err := New("PRAGMA user_version = 5").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	pragma := stmt.(*PragmaStmt)
	lit, ok := pragma.Value.(*Literal)
	if !ok || lit.Value.Int() != 5 {
		t.Errorf("Value = %+v, want 5", pragma.Value)
	}
}

func TestParser_Pragma_CallValue(t *testing.T) {
	stmt, err := New("PRAGMA table_info(users)").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	pragma := stmt.(*PragmaStmt)
	if pragma.Name != "table_info" {
		t.Errorf("Name = %q, want 'table_info'", pragma.Name)
	}
	ref, ok := pragma.Value.(*ColumnRef)
	if !ok || ref.Name != "users" {
		t.Errorf("Value = %+v", pragma.Value)
	}
}

func TestParser_Literals(t *testing.T) {
	stmt, err := New("SELECT 42, 3.14, 'hello', NULL, TRUE, FALSE").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.Columns) != 6 {
		t.Fatalf("Columns count = %d, want 6", len(sel.Columns))
	}

	intLit := sel.Columns[0].Expr.(*Literal)
	if intLit.Value.Int() != 42 {
		t.Errorf("Columns[0] = %d, want 42", intLit.Value.Int())
	}
	floatLit := sel.Columns[1].Expr.(*Literal)
	if floatLit.Value.Float() != 3.14 {
		t.Errorf("Columns[1] = %f, want 3.14", floatLit.Value.Float())
	}
	textLit := sel.Columns[2].Expr.(*Literal)
	if textLit.Value.Text() != "hello" {
		t.Errorf("Columns[2] = %q, want 'hello'", textLit.Value.Text())
	}
	nullLit := sel.Columns[3].Expr.(*Literal)
	if !nullLit.Value.IsNull() {
		t.Error("Columns[3] is not NULL")
	}
	trueLit := sel.Columns[4].Expr.(*Literal)
	if trueLit.Value.Int() != 1 {
		t.Errorf("TRUE = %d, want 1", trueLit.Value.Int())
	}
	falseLit := sel.Columns[5].Expr.(*Literal)
	if falseLit.Value.Int() != 0 {
		t.Errorf("FALSE = %d, want 0", falseLit.Value.Int())
	}
}

func TestParser_Errors(t *testing.T) {
	inputs := []string{
		"",
		"FOOBAR",
		"CREATE TABLE",
		"SELECT * FROM t WHERE",
		"INSERT INTO t",
		"SELECT * FROM t EXTRA GARBAGE HERE",
	}
	for _, input := range inputs {
		if _, err := New(input).Parse(); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestParser_PlaceholderCount(t *testing.T) {
	p := New("SELECT * FROM t WHERE a = ? AND b = ?")
	if _, err := p.Parse(); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if p.PlaceholderCount() != 2 {
		t.Errorf("PlaceholderCount() = %d, want 2", p.PlaceholderCount())
	}
}

func TestParser_ParseExpr(t *testing.T) {
	p := New("age >= 18")
	expr, err := p.ParseExpr()
	if err != nil {
		t.Fatalf("ParseExpr error: %v", err)
	}
	binary, ok := expr.(*BinaryExpr)
	if !ok || binary.Op != lexer.GTE {
		t.Fatalf("expr = %+v, want top-level GTE", expr)
	}
}
