// pkg/sql/executor/view_trigger.go
package executor

import (
	"fmt"
	"strings"

	"celdb/pkg/schema"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
)

// --- CREATE/DROP VIEW ---

func (e *Executor) executeCreateView(stmt *parser.CreateViewStmt) (*Result, error) {
	if e.catalog.GetView(stmt.ViewName) != nil {
		if stmt.IfNotExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("view %s already exists", stmt.ViewName)
	}

	view := &schema.ViewDef{
		Name:    stmt.ViewName,
		SQL:     renderSelectSQL(stmt.Select),
		Columns: stmt.Columns,
	}
	if err := e.catalog.CreateView(view); err != nil {
		return nil, err
	}
	if err := e.writeSchemaEntry("view:"+stmt.ViewName, "view", 0, renderCreateViewSQL(view)); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) executeDropView(stmt *parser.DropViewStmt) (*Result, error) {
	if e.catalog.GetView(stmt.ViewName) == nil {
		if stmt.IfExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("view %s does not exist", stmt.ViewName)
	}
	if err := e.catalog.DropView(stmt.ViewName); err != nil {
		return nil, err
	}
	return &Result{}, e.deleteSchemaEntry("view:" + stmt.ViewName)
}

func renderCreateViewSQL(view *schema.ViewDef) string {
	var sb strings.Builder
	sb.WriteString("CREATE VIEW ")
	sb.WriteString(view.Name)
	if len(view.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(view.Columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" AS ")
	sb.WriteString(view.SQL)
	return sb.String()
}

func (e *Executor) reloadView(sqlText string) error {
	p := parser.New(sqlText)
	stmt, err := p.Parse()
	if err != nil {
		return fmt.Errorf("failed to reparse stored view schema: %w", err)
	}
	createStmt, ok := stmt.(*parser.CreateViewStmt)
	if !ok {
		return fmt.Errorf("stored view schema is not a CREATE VIEW: %q", sqlText)
	}
	return e.catalog.CreateView(&schema.ViewDef{
		Name:    createStmt.ViewName,
		SQL:     renderSelectSQL(createStmt.Select),
		Columns: createStmt.Columns,
	})
}

// resolveView runs a view's defining SELECT and returns its result set so
// callers can treat it as a read-only, in-memory table.
func (e *Executor) resolveView(view *schema.ViewDef, params []types.Value) (*Result, error) {
	p := parser.New(view.SQL)
	stmt, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("view %s: stored SELECT no longer parses: %w", view.Name, err)
	}
	sel, ok := stmt.(*parser.SelectStmt)
	if !ok {
		return nil, fmt.Errorf("view %s: stored definition is not a SELECT", view.Name)
	}
	res, err := e.executeSelect(sel, params)
	if err != nil {
		return nil, err
	}
	if len(view.Columns) == len(res.Columns) {
		res.Columns = append([]string{}, view.Columns...)
	}
	return res, nil
}

// executeSelectFromView runs stmt against a view, treating the view's own
// SELECT result as a read-only in-memory table: the view's SELECT runs
// first, then stmt's own WHERE filter and column projection apply on top
// of that result set.
func (e *Executor) executeSelectFromView(stmt *parser.SelectStmt, view *schema.ViewDef, params []types.Value) (*Result, error) {
	base, err := e.resolveView(view, params)
	if err != nil {
		return nil, err
	}

	colIdx := make(map[string]int, len(base.Columns))
	for i, c := range base.Columns {
		colIdx[strings.ToLower(c)] = i
	}

	var rows [][]types.Value
	for _, row := range base.Rows {
		if stmt.Where != nil {
			cond, err := e.evalScalar(stmt.Where, row, colIdx, params, nil)
			if err != nil {
				return nil, err
			}
			if cond.IsNull() || !isTruthy(cond) {
				continue
			}
		}
		rows = append(rows, row)
	}

	if len(stmt.Columns) == 1 && stmt.Columns[0].Star {
		return &Result{Columns: base.Columns, Rows: rows}, nil
	}

	cols := make([]string, len(stmt.Columns))
	outRows := make([][]types.Value, len(rows))
	for ri := range rows {
		outRows[ri] = make([]types.Value, len(stmt.Columns))
	}
	for i, sc := range stmt.Columns {
		cols[i] = columnLabel(sc, i)
		for ri, row := range rows {
			v, err := e.evalScalar(sc.Expr, row, colIdx, params, nil)
			if err != nil {
				return nil, err
			}
			outRows[ri][i] = v
		}
	}
	return &Result{Columns: cols, Rows: outRows}, nil
}

// --- CREATE/DROP TRIGGER ---

func triggerTimingFromAST(t parser.TriggerTiming) schema.TriggerTiming {
	if t == parser.TriggerAfter {
		return schema.TriggerAfter
	}
	return schema.TriggerBefore
}

func triggerEventFromAST(ev parser.TriggerEvent) schema.TriggerEvent {
	switch ev {
	case parser.TriggerUpdate:
		return schema.TriggerUpdate
	case parser.TriggerDelete:
		return schema.TriggerDelete
	default:
		return schema.TriggerInsert
	}
}

func (e *Executor) executeCreateTrigger(stmt *parser.CreateTriggerStmt) (*Result, error) {
	if e.catalog.GetTrigger(stmt.TriggerName) != nil {
		if stmt.IfNotExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("trigger %s already exists", stmt.TriggerName)
	}

	actions := make([]interface{}, len(stmt.Actions))
	for i, a := range stmt.Actions {
		actions[i] = a
	}

	sqlText := renderCreateTriggerSQL(stmt)
	trigger := &schema.TriggerDef{
		Name:      stmt.TriggerName,
		TableName: stmt.TableName,
		Timing:    triggerTimingFromAST(stmt.Timing),
		Event:     triggerEventFromAST(stmt.Event),
		SQL:       sqlText,
		Actions:   actions,
	}
	if err := e.catalog.CreateTrigger(trigger); err != nil {
		return nil, err
	}
	if err := e.writeSchemaEntry("trigger:"+stmt.TriggerName, "trigger", 0, sqlText); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) executeDropTrigger(stmt *parser.DropTriggerStmt) (*Result, error) {
	if e.catalog.GetTrigger(stmt.TriggerName) == nil {
		if stmt.IfExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("trigger %s does not exist", stmt.TriggerName)
	}
	if err := e.catalog.DropTrigger(stmt.TriggerName); err != nil {
		return nil, err
	}
	return &Result{}, e.deleteSchemaEntry("trigger:" + stmt.TriggerName)
}

func renderCreateTriggerSQL(stmt *parser.CreateTriggerStmt) string {
	var sb strings.Builder
	sb.WriteString("CREATE TRIGGER ")
	sb.WriteString(stmt.TriggerName)
	if stmt.Timing == parser.TriggerAfter {
		sb.WriteString(" AFTER ")
	} else {
		sb.WriteString(" BEFORE ")
	}
	switch stmt.Event {
	case parser.TriggerUpdate:
		sb.WriteString("UPDATE ")
	case parser.TriggerDelete:
		sb.WriteString("DELETE ")
	default:
		sb.WriteString("INSERT ")
	}
	sb.WriteString("ON ")
	sb.WriteString(stmt.TableName)
	sb.WriteString(" BEGIN ")
	for _, action := range stmt.Actions {
		sb.WriteString(renderActionSQL(action))
		sb.WriteString("; ")
	}
	sb.WriteString("END")
	return sb.String()
}

func renderActionSQL(stmt parser.Statement) string {
	switch s := stmt.(type) {
	case *parser.InsertStmt:
		return renderInsertSQL(s)
	case *parser.UpdateStmt:
		return renderUpdateSQL(s)
	case *parser.DeleteStmt:
		return renderDeleteSQL(s)
	case *parser.SelectStmt:
		return renderSelectSQL(s)
	default:
		return ""
	}
}

func renderInsertSQL(stmt *parser.InsertStmt) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(stmt.TableName)
	if len(stmt.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(stmt.Columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" VALUES ")
	for i, row := range stmt.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, expr := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(exprToString(expr))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func renderUpdateSQL(stmt *parser.UpdateStmt) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(stmt.TableName)
	sb.WriteString(" SET ")
	for i, a := range stmt.Assignments {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Column)
		sb.WriteString(" = ")
		sb.WriteString(exprToString(a.Value))
	}
	if stmt.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(exprToString(stmt.Where))
	}
	return sb.String()
}

func renderDeleteSQL(stmt *parser.DeleteStmt) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(stmt.TableName)
	if stmt.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(exprToString(stmt.Where))
	}
	return sb.String()
}

func (e *Executor) reloadTrigger(sqlText string) error {
	p := parser.New(sqlText)
	stmt, err := p.Parse()
	if err != nil {
		return fmt.Errorf("failed to reparse stored trigger schema: %w", err)
	}
	createStmt, ok := stmt.(*parser.CreateTriggerStmt)
	if !ok {
		return fmt.Errorf("stored trigger schema is not a CREATE TRIGGER: %q", sqlText)
	}
	actions := make([]interface{}, len(createStmt.Actions))
	for i, a := range createStmt.Actions {
		actions[i] = a
	}
	return e.catalog.CreateTrigger(&schema.TriggerDef{
		Name:      createStmt.TriggerName,
		TableName: createStmt.TableName,
		Timing:    triggerTimingFromAST(createStmt.Timing),
		Event:     triggerEventFromAST(createStmt.Event),
		SQL:       sqlText,
		Actions:   actions,
	})
}

// fireTriggers runs every trigger attached to tableName for the given
// timing/event, executing each trigger's stored action statements in turn.
// Actions run against the database as a whole rather than bound to the
// specific row that fired them: a trigger body referencing OLD./NEW. column
// values is not supported.
func (e *Executor) fireTriggers(tableName string, timing schema.TriggerTiming, event schema.TriggerEvent) error {
	triggers := e.catalog.GetTriggersForTable(tableName, timing, event)
	for _, trg := range triggers {
		for _, action := range trg.Actions {
			stmt, ok := action.(parser.Statement)
			if !ok {
				continue
			}
			if _, err := e.dispatch(stmt, nil); err != nil {
				return fmt.Errorf("trigger %s: %w", trg.Name, err)
			}
		}
	}
	return nil
}
