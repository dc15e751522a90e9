// pkg/sql/executor/schema_persist.go
package executor

import (
	"fmt"
	"strings"

	"celdb/pkg/btree"
	"celdb/pkg/schema"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
)

// schemaRootPage is the fixed root page of the schema B-tree, mirroring
// SQLite's page-1 sqlite_master convention. It is always the first page
// allocated in a brand-new database file.
const schemaRootPage = 1

// bootstrapSchema opens (or creates, for a fresh file) the schema B-tree
// and replays its entries to rebuild the in-memory catalog and tree map.
func (e *Executor) bootstrapSchema() error {
	if e.pager.PageCount() <= 1 {
		tree, err := btree.CreateAtPage(e.pager, schemaRootPage)
		if err != nil {
			return err
		}
		e.schemaTree = tree
		return nil
	}

	e.schemaTree = btree.Open(e.pager, schemaRootPage)

	cursor := e.schemaTree.Cursor()
	defer cursor.Close()

	for cursor.First(); cursor.Valid(); cursor.Next() {
		values := decodeRow(cursor.Value())
		if len(values) < 3 {
			continue
		}
		kind := values[0].Text()
		rootPage := uint32(values[1].Int())
		sqlText := values[2].Text()

		switch kind {
		case "table":
			if err := e.reloadTable(sqlText, rootPage); err != nil {
				return err
			}
		case "index":
			if err := e.reloadIndex(sqlText, rootPage); err != nil {
				return err
			}
		case "view":
			if err := e.reloadView(sqlText); err != nil {
				return err
			}
		case "trigger":
			if err := e.reloadTrigger(sqlText); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) reloadTable(sqlText string, rootPage uint32) error {
	p := parser.New(sqlText)
	stmt, err := p.Parse()
	if err != nil {
		return fmt.Errorf("failed to reparse stored table schema: %w", err)
	}
	createStmt, ok := stmt.(*parser.CreateTableStmt)
	if !ok {
		return fmt.Errorf("stored table schema is not a CREATE TABLE: %q", sqlText)
	}

	columns := make([]schema.ColumnDef, len(createStmt.Columns))
	for i, col := range createStmt.Columns {
		cd := schema.ColumnDef{
			Name:       col.Name,
			Type:       col.Type,
			PrimaryKey: col.PrimaryKey,
			NotNull:    col.NotNull,
		}
		if col.PrimaryKey {
			cd.Constraints = append(cd.Constraints, schema.Constraint{Type: schema.ConstraintPrimaryKey})
		}
		if col.NotNull {
			cd.Constraints = append(cd.Constraints, schema.Constraint{Type: schema.ConstraintNotNull})
		}
		if col.Unique {
			cd.Constraints = append(cd.Constraints, schema.Constraint{Type: schema.ConstraintUnique})
		}
		if col.Check != nil {
			cd.Constraints = append(cd.Constraints, schema.Constraint{
				Type:            schema.ConstraintCheck,
				CheckExpression: exprToString(col.Check),
			})
		}
		if col.Default != nil {
			val, err := e.evalScalar(col.Default, nil, nil, nil, nil)
			if err == nil {
				cd.Constraints = append(cd.Constraints, schema.Constraint{
					Type:         schema.ConstraintDefault,
					DefaultValue: &val,
				})
			}
		}
		columns[i] = cd
	}

	table := &schema.TableDef{
		Name:     createStmt.TableName,
		Columns:  columns,
		RootPage: rootPage,
	}
	if err := e.catalog.CreateTable(table); err != nil {
		return err
	}
	e.trees[createStmt.TableName] = btree.Open(e.pager, rootPage)
	return nil
}

func (e *Executor) reloadIndex(sqlText string, rootPage uint32) error {
	p := parser.New(sqlText)
	stmt, err := p.Parse()
	if err != nil {
		return fmt.Errorf("failed to reparse stored index schema: %w", err)
	}
	createStmt, ok := stmt.(*parser.CreateIndexStmt)
	if !ok {
		return fmt.Errorf("stored index schema is not a CREATE INDEX: %q", sqlText)
	}

	idx := &schema.IndexDef{
		Name:      createStmt.IndexName,
		TableName: createStmt.TableName,
		Columns:   createStmt.Columns,
		Type:      schema.IndexTypeBTree,
		Unique:    createStmt.Unique,
		RootPage:  rootPage,
	}
	if err := e.catalog.CreateIndex(idx); err != nil {
		return err
	}
	e.trees["index:"+createStmt.IndexName] = btree.OpenIndex(e.pager, rootPage)
	return nil
}

// persistTableSchema stores a table's definition keyed by "table:"+name.
func (e *Executor) persistTableSchema(table *schema.TableDef, stmt *parser.CreateTableStmt) error {
	return e.writeSchemaEntry("table:"+table.Name, "table", table.RootPage, renderCreateTableSQL(table))
}

// persistTableSchemaRaw re-renders a table's current definition, used after
// ALTER TABLE changes the column layout.
func (e *Executor) persistTableSchemaRaw(name string, rootPage uint32, table *schema.TableDef) error {
	return e.writeSchemaEntry("table:"+name, "table", rootPage, renderCreateTableSQL(table))
}

func (e *Executor) persistIndexSchema(idx *schema.IndexDef) error {
	return e.writeSchemaEntry("index:"+idx.Name, "index", idx.RootPage, renderCreateIndexSQL(idx))
}

func (e *Executor) writeSchemaEntry(key, kind string, rootPage uint32, sqlText string) error {
	values := []types.Value{
		types.NewText(kind),
		types.NewInt(int64(rootPage)),
		types.NewText(sqlText),
	}
	return e.schemaTree.Insert([]byte(key), encodeRow(values))
}

func (e *Executor) deleteSchemaEntry(key string) error {
	return e.schemaTree.Delete([]byte(key))
}

func renderCreateTableSQL(table *schema.TableDef) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(table.Name)
	sb.WriteString(" (")
	for i, col := range table.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteString(" ")
		sb.WriteString(typeName(col.Type))
		if col.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		if col.NotNull {
			sb.WriteString(" NOT NULL")
		}
		if col.HasConstraint(schema.ConstraintUnique) {
			sb.WriteString(" UNIQUE")
		}
		if c := col.GetConstraint(schema.ConstraintCheck); c != nil && c.CheckExpression != "" {
			sb.WriteString(" CHECK (")
			sb.WriteString(c.CheckExpression)
			sb.WriteString(")")
		}
		if c := col.GetConstraint(schema.ConstraintDefault); c != nil && c.DefaultValue != nil {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(literalToString(*c.DefaultValue))
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func renderCreateIndexSQL(idx *schema.IndexDef) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(idx.Name)
	sb.WriteString(" ON ")
	sb.WriteString(idx.TableName)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(idx.Columns, ", "))
	sb.WriteString(")")
	return sb.String()
}
