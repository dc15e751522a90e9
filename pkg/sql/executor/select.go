// pkg/sql/executor/select.go
package executor

import (
	"fmt"
	"sort"
	"strings"

	"celdb/pkg/cache"
	"celdb/pkg/schema"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
	"celdb/pkg/vdbe"
)

func (e *Executor) executeSelect(stmt *parser.SelectStmt, params []types.Value) (*Result, error) {
	if stmt.From == nil {
		return e.executeSelectNoTable(stmt, params)
	}

	fromTable, ok := stmt.From.(*parser.Table)
	if !ok {
		return nil, fmt.Errorf("unsupported FROM clause")
	}
	table := e.catalog.GetTable(fromTable.Name)
	if table == nil {
		if view := e.catalog.GetView(fromTable.Name); view != nil {
			return e.executeSelectFromView(stmt, view, params)
		}
		return nil, fmt.Errorf("table %s not found", fromTable.Name)
	}

	cacheKey := ""
	if e.queryCache != nil {
		cacheKey = cacheKeyFor(stmt, params)
		if cached, ok := e.queryCache.Get(cacheKey); ok {
			return &Result{Columns: cached.Columns, Rows: cached.Rows}, nil
		}
	}

	if res, ok, err := e.tryCompiledSelect(stmt, table); ok {
		if err == nil && e.queryCache != nil {
			e.queryCache.Put(cacheKey, res.Columns, res.Rows, []string{table.Name})
		}
		return res, err
	}

	tree := e.openTableTree(table)
	colIdx := buildColIndex(table)

	var rows [][]types.Value
	cursor := tree.Cursor()
	for cursor.First(); cursor.Valid(); cursor.Next() {
		values := decodeRow(cursor.Value())
		if stmt.Where != nil {
			cond, err := e.evalScalar(stmt.Where, values, colIdx, params, nil)
			if err != nil {
				cursor.Close()
				return nil, err
			}
			if cond.IsNull() || !isTruthy(cond) {
				continue
			}
		}
		rows = append(rows, values)
	}
	cursor.Close()

	var resultCols []string
	var resultRows [][]types.Value
	var err error

	if len(stmt.GroupBy) > 0 || hasAggregateColumn(stmt) {
		resultCols, resultRows, err = e.evalAggregateSelect(stmt, rows, colIdx, params)
	} else {
		resultCols, resultRows, err = e.projectRows(stmt, rows, colIdx, params, table)
	}
	if err != nil {
		return nil, err
	}

	if len(stmt.OrderBy) > 0 {
		if err := e.sortRows(stmt, resultRows, resultCols, colIdx, params); err != nil {
			return nil, err
		}
	}

	resultRows, err = e.applyLimitOffset(stmt, resultRows, params)
	if err != nil {
		return nil, err
	}

	if e.queryCache != nil {
		e.queryCache.Put(cacheKey, resultCols, resultRows, []string{table.Name})
	}

	return &Result{Columns: resultCols, Rows: resultRows}, nil
}

// executeSelectNoTable evaluates a SELECT with no FROM clause, e.g.
// SELECT 1 + 1.
func (e *Executor) executeSelectNoTable(stmt *parser.SelectStmt, params []types.Value) (*Result, error) {
	cols := make([]string, len(stmt.Columns))
	vals := make([]types.Value, len(stmt.Columns))
	for i, sc := range stmt.Columns {
		if sc.Star {
			return nil, fmt.Errorf("SELECT * requires a FROM clause")
		}
		v, err := e.evalScalar(sc.Expr, nil, nil, params, nil)
		if err != nil {
			return nil, err
		}
		vals[i] = v
		cols[i] = columnLabel(sc, i)
	}
	return &Result{Columns: cols, Rows: [][]types.Value{vals}}, nil
}

// tryCompiledSelect runs stmt through the VDBE compiler and VM instead of
// the tree-walking path above, when the statement is simple enough for the
// compiler to handle: a single table, a plain column list (star or bare
// column references), and no grouping, ordering, or paging. Those richer
// forms still fall through to executeSelect's own scan; ok is false
// whenever the compiler can't handle the statement, signalling the caller
// to fall back silently rather than treating it as an error.
func (e *Executor) tryCompiledSelect(stmt *parser.SelectStmt, table *schema.TableDef) (*Result, bool, error) {
	if len(stmt.GroupBy) > 0 || hasAggregateColumn(stmt) || len(stmt.OrderBy) > 0 || stmt.Limit != nil || stmt.Offset != nil {
		return nil, false, nil
	}
	if !(len(stmt.Columns) == 1 && stmt.Columns[0].Star) {
		for _, sc := range stmt.Columns {
			if sc.Star {
				continue
			}
			if _, ok := sc.Expr.(*parser.ColumnRef); !ok {
				return nil, false, nil
			}
		}
	}

	compiler := vdbe.NewCompiler(e.catalog, e.pager)
	prog, err := compiler.Compile(stmt)
	if err != nil {
		return nil, false, nil
	}

	vm := vdbe.NewVM(prog, e.pager)
	vm.SetNumRegisters(compiler.NumRegisters())
	if err := vm.Run(); err != nil {
		return nil, true, fmt.Errorf("compiled select: %w", err)
	}

	var cols []string
	if len(stmt.Columns) == 1 && stmt.Columns[0].Star {
		cols = columnNames(table)
	} else {
		cols = make([]string, len(stmt.Columns))
		for i, sc := range stmt.Columns {
			cols[i] = columnLabel(sc, i)
		}
	}
	return &Result{Columns: cols, Rows: vm.Results()}, true, nil
}

func columnLabel(sc parser.SelectColumn, i int) string {
	if sc.Alias != "" {
		return sc.Alias
	}
	if ref, ok := sc.Expr.(*parser.ColumnRef); ok {
		return ref.Name
	}
	return exprToString(sc.Expr)
}

func hasAggregateColumn(stmt *parser.SelectStmt) bool {
	for _, sc := range stmt.Columns {
		if sc.Expr != nil && len(collectAggregateCalls(sc.Expr)) > 0 {
			return true
		}
	}
	if stmt.Having != nil && len(collectAggregateCalls(stmt.Having)) > 0 {
		return true
	}
	return false
}

// projectRows evaluates the SELECT column list against every row with no
// grouping.
func (e *Executor) projectRows(stmt *parser.SelectStmt, rows [][]types.Value, colIdx map[string]int, params []types.Value, table *schema.TableDef) ([]string, [][]types.Value, error) {
	var cols []string
	if len(stmt.Columns) == 1 && stmt.Columns[0].Star {
		cols = columnNames(table)
		return cols, rows, nil
	}

	cols = make([]string, 0, len(stmt.Columns))
	for i, sc := range stmt.Columns {
		if sc.Star {
			cols = append(cols, columnNames(table)...)
			continue
		}
		cols = append(cols, columnLabel(sc, i))
	}

	out := make([][]types.Value, 0, len(rows))
	for _, row := range rows {
		var rowOut []types.Value
		for _, sc := range stmt.Columns {
			if sc.Star {
				rowOut = append(rowOut, row...)
				continue
			}
			v, err := e.evalScalar(sc.Expr, row, colIdx, params, nil)
			if err != nil {
				return nil, nil, err
			}
			rowOut = append(rowOut, v)
		}
		out = append(out, rowOut)
	}
	return cols, out, nil
}

// evalAggregateSelect groups rows by the GROUP BY expressions (or treats
// the whole result set as a single group when there is none), computes
// every aggregate call referenced by the column/HAVING/ORDER BY list once
// per group, then evaluates the column list against each group.
func (e *Executor) evalAggregateSelect(stmt *parser.SelectStmt, rows [][]types.Value, colIdx map[string]int, params []types.Value) ([]string, [][]types.Value, error) {
	groups, groupOrder, err := e.groupRows(stmt.GroupBy, rows, colIdx, params)
	if err != nil {
		return nil, nil, err
	}

	var aggCalls []*parser.FunctionCall
	for _, sc := range stmt.Columns {
		if sc.Expr != nil {
			aggCalls = append(aggCalls, collectAggregateCalls(sc.Expr)...)
		}
	}
	if stmt.Having != nil {
		aggCalls = append(aggCalls, collectAggregateCalls(stmt.Having)...)
	}
	for _, ob := range stmt.OrderBy {
		aggCalls = append(aggCalls, collectAggregateCalls(ob.Expr)...)
	}

	cols := make([]string, len(stmt.Columns))
	for i, sc := range stmt.Columns {
		cols[i] = columnLabel(sc, i)
	}

	var outRows [][]types.Value
	for _, key := range groupOrder {
		groupRowsSlice := groups[key]
		aggResults := make(map[*parser.FunctionCall]types.Value, len(aggCalls))
		for _, fc := range aggCalls {
			v, err := e.computeAggregate(fc, groupRowsSlice, colIdx)
			if err != nil {
				return nil, nil, err
			}
			aggResults[fc] = v
		}

		var representative []types.Value
		if len(groupRowsSlice) > 0 {
			representative = groupRowsSlice[0]
		}

		if stmt.Having != nil {
			cond, err := e.evalScalar(stmt.Having, representative, colIdx, params, aggResults)
			if err != nil {
				return nil, nil, err
			}
			if cond.IsNull() || !isTruthy(cond) {
				continue
			}
		}

		rowOut := make([]types.Value, len(stmt.Columns))
		for i, sc := range stmt.Columns {
			v, err := e.evalScalar(sc.Expr, representative, colIdx, params, aggResults)
			if err != nil {
				return nil, nil, err
			}
			rowOut[i] = v
		}
		outRows = append(outRows, rowOut)
	}

	return cols, outRows, nil
}

// groupRows partitions rows into groups keyed by the record-encoded bytes
// of their GROUP BY expression values, preserving first-seen order.
func (e *Executor) groupRows(groupBy []parser.Expression, rows [][]types.Value, colIdx map[string]int, params []types.Value) (map[string][][]types.Value, []string, error) {
	groups := make(map[string][][]types.Value)
	var order []string

	if len(groupBy) == 0 {
		// An aggregate over zero matching rows still yields a single group
		// (e.g. COUNT(*) = 0), matching SQLite's ungrouped-aggregate rule.
		groups[""] = rows
		order = []string{""}
		return groups, order, nil
	}

	for _, row := range rows {
		keyValues := make([]types.Value, len(groupBy))
		for i, expr := range groupBy {
			v, err := e.evalScalar(expr, row, colIdx, params, nil)
			if err != nil {
				return nil, nil, err
			}
			keyValues[i] = v
		}
		key := string(encodeRow(keyValues))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	return groups, order, nil
}

func (e *Executor) sortRows(stmt *parser.SelectStmt, rows [][]types.Value, cols []string, colIdx map[string]int, params []types.Value) error {
	// ORDER BY operates on the projected result columns: an ordinal
	// ColumnRef matching a result alias resolves there, falling back to
	// evaluating the expression against the original row shape otherwise.
	resultColIdx := make(map[string]int, len(cols))
	for i, c := range cols {
		resultColIdx[c] = i
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ob := range stmt.OrderBy {
			var vi, vj types.Value
			var err error
			if ref, ok := ob.Expr.(*parser.ColumnRef); ok {
				if idx, found := resultColIdx[ref.Name]; found {
					vi, vj = rows[i][idx], rows[j][idx]
				} else {
					vi, err = e.evalScalar(ob.Expr, rows[i], colIdx, params, nil)
					if err == nil {
						vj, err = e.evalScalar(ob.Expr, rows[j], colIdx, params, nil)
					}
				}
			} else {
				vi, err = e.evalScalar(ob.Expr, rows[i], colIdx, params, nil)
				if err == nil {
					vj, err = e.evalScalar(ob.Expr, rows[j], colIdx, params, nil)
				}
			}
			if err != nil {
				sortErr = err
				return false
			}
			c := types.Compare(vi, vj)
			if c == 0 {
				continue
			}
			if ob.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sortErr
}

func (e *Executor) applyLimitOffset(stmt *parser.SelectStmt, rows [][]types.Value, params []types.Value) ([][]types.Value, error) {
	offset := 0
	if stmt.Offset != nil {
		v, err := e.evalScalar(stmt.Offset, nil, nil, params, nil)
		if err != nil {
			return nil, err
		}
		offset = int(v.Int())
	}
	if offset > 0 {
		if offset >= len(rows) {
			return [][]types.Value{}, nil
		}
		rows = rows[offset:]
	}

	if stmt.Limit != nil {
		v, err := e.evalScalar(stmt.Limit, nil, nil, params, nil)
		if err != nil {
			return nil, err
		}
		limit := int(v.Int())
		if limit < 0 {
			return rows, nil
		}
		if limit < len(rows) {
			rows = rows[:limit]
		}
	}
	return rows, nil
}

func cacheKeyFor(stmt *parser.SelectStmt, params []types.Value) string {
	return cache.GenerateCacheKey(renderSelectSQL(stmt), params)
}

func renderSelectSQL(stmt *parser.SelectStmt) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, sc := range stmt.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		if sc.Star {
			sb.WriteString("*")
		} else {
			sb.WriteString(exprToString(sc.Expr))
			if sc.Alias != "" {
				sb.WriteString(" AS ")
				sb.WriteString(sc.Alias)
			}
		}
	}
	if t, ok := stmt.From.(*parser.Table); ok {
		sb.WriteString(" FROM ")
		sb.WriteString(t.Name)
	}
	if stmt.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(exprToString(stmt.Where))
	}
	if len(stmt.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, g := range stmt.GroupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(exprToString(g))
		}
	}
	if stmt.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(exprToString(stmt.Having))
	}
	if len(stmt.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, ob := range stmt.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(exprToString(ob.Expr))
			if ob.Desc {
				sb.WriteString(" DESC")
			}
		}
	}
	if stmt.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(exprToString(stmt.Limit))
	}
	if stmt.Offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(exprToString(stmt.Offset))
	}
	return sb.String()
}
