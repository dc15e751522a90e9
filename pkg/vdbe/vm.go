// pkg/vdbe/vm.go
package vdbe

import (
	"bytes"
	"context"
	"fmt"

	"celdb/pkg/btree"
	"celdb/pkg/pager"
	"celdb/pkg/record"
	"celdb/pkg/types"
)

// savepointMark records the dirty-page watermark a SAVEPOINT was opened
// at, so OpSavepoint can roll back to it without undoing the whole
// transaction.
type savepointMark struct {
	name string
}

// VDBECursor represents an open cursor on a B-tree
type VDBECursor struct {
	btree  *btree.BTree
	cursor *btree.Cursor
	isOpen bool
}

// VM is the Virtual Database Engine - a bytecode interpreter for SQL
type VM struct {
	program    *Program
	pager      *pager.Pager
	pc         int              // Program counter
	registers  []types.Value    // Register file
	cursors    []*VDBECursor    // Open cursors
	results    [][]types.Value  // Result rows
	aggregates []AggregateFunc  // Aggregate function contexts
	halted     bool
	profiler   *Profiler // Optional profiler for timing instrumentation

	tx         *pager.Transaction // Active write transaction, if any
	autoCommit bool               // true when not inside an explicit transaction
	savepoints []savepointMark    // Open SAVEPOINT names, most recent last
	once       map[int]bool       // Addresses already visited by OpOnce
}

// NewVM creates a new VM with the given program
func NewVM(program *Program, p *pager.Pager) *VM {
	return &VM{
		program:    program,
		pager:      p,
		pc:         0,
		registers:  make([]types.Value, 16), // Default 16 registers
		cursors:    make([]*VDBECursor, 8),  // Default 8 cursors
		results:    make([][]types.Value, 0),
		aggregates: make([]AggregateFunc, 8), // Default 8 aggregate slots
		halted:     false,
		autoCommit: true,
		once:       make(map[int]bool),
	}
}

// SetNumRegisters sets the number of registers
func (vm *VM) SetNumRegisters(n int) {
	newRegs := make([]types.Value, n)
	copy(newRegs, vm.registers)
	vm.registers = newRegs
}

// NumRegisters returns the number of registers
func (vm *VM) NumRegisters() int {
	return len(vm.registers)
}

// PC returns the current program counter
func (vm *VM) PC() int {
	return vm.pc
}

// Register returns the value in the given register
func (vm *VM) Register(i int) types.Value {
	if i < 0 || i >= len(vm.registers) {
		return types.NewNull()
	}
	return vm.registers[i]
}

// SetRegister sets a value in the given register
func (vm *VM) SetRegister(i int, val types.Value) {
	if i >= 0 && i < len(vm.registers) {
		vm.registers[i] = val
	}
}

// Results returns the result rows collected during execution
func (vm *VM) Results() [][]types.Value {
	return vm.results
}

// GetAggregateContext returns the aggregate function at the given index
func (vm *VM) GetAggregateContext(idx int) AggregateFunc {
	if idx < 0 || idx >= len(vm.aggregates) {
		return nil
	}
	return vm.aggregates[idx]
}

// SetProfiler sets the profiler for timing instrumentation.
// If nil, profiling is disabled.
func (vm *VM) SetProfiler(p *Profiler) {
	vm.profiler = p
}

// Profiler returns the current profiler, or nil if not set.
func (vm *VM) Profiler() *Profiler {
	return vm.profiler
}

// Run executes the program until halt
func (vm *VM) Run() error {
	return vm.RunContext(context.Background())
}

// Cleanup releases all resources held by the VM.
// This includes closing all open cursors and clearing aggregate contexts.
// Cleanup is called automatically when RunContext returns due to context cancellation.
func (vm *VM) Cleanup() {
	// Close all open cursors
	for i, cursor := range vm.cursors {
		if cursor != nil && cursor.isOpen {
			if cursor.cursor != nil {
				cursor.cursor.Close()
			}
			cursor.isOpen = false
		}
		vm.cursors[i] = nil
	}

	// Clear aggregate contexts
	for i := range vm.aggregates {
		vm.aggregates[i] = nil
	}

	// Clear results to free memory
	vm.results = nil
}

// RunContext executes the program until halt with context support.
// The context can be used for cancellation and timeout control.
// Context is checked every contextCheckInterval steps to balance
// responsiveness with performance.
// When the context is cancelled, Cleanup is called to release resources.
func (vm *VM) RunContext(ctx context.Context) error {
	vm.halted = false
	maxSteps := 1000000 // Safety limit

	// Check context every N steps to balance responsiveness with performance
	const contextCheckInterval = 100

	for steps := 0; !vm.halted && steps < maxSteps; steps++ {
		// Check context periodically (every contextCheckInterval steps)
		if steps%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				// Clean up resources on context cancellation
				vm.Cleanup()
				return err
			}
		}

		if vm.pc < 0 || vm.pc >= vm.program.Len() {
			return fmt.Errorf("program counter out of bounds: %d", vm.pc)
		}

		instr := vm.program.Get(vm.pc)
		if instr == nil {
			return fmt.Errorf("nil instruction at pc=%d", vm.pc)
		}

		// Profile the opcode execution if profiler is enabled
		if vm.profiler != nil {
			startTime := vm.profiler.BeforeOpcode(instr.Op)
			if err := vm.step(instr); err != nil {
				return err
			}
			vm.profiler.AfterOpcode(instr.Op, startTime)
		} else {
			if err := vm.step(instr); err != nil {
				return err
			}
		}
	}

	if !vm.halted {
		return fmt.Errorf("program did not halt within %d steps", maxSteps)
	}

	return nil
}

// step executes a single instruction
func (vm *VM) step(instr *Instruction) error {
	switch instr.Op {
	case OpInit:
		// Jump to P2
		vm.pc = instr.P2
		return nil

	case OpHalt:
		vm.halted = true
		return nil

	case OpGoto:
		vm.pc = instr.P2
		return nil

	case OpInteger:
		// P1 = value, P2 = dest register
		vm.registers[instr.P2] = types.NewInt(int64(instr.P1))
		vm.pc++
		return nil

	case OpString:
		// P4 = string, P2 = dest register
		if s, ok := instr.P4.(string); ok {
			vm.registers[instr.P2] = types.NewText(s)
		} else {
			vm.registers[instr.P2] = types.NewNull()
		}
		vm.pc++
		return nil

	case OpNull:
		// P2 = dest register
		vm.registers[instr.P2] = types.NewNull()
		vm.pc++
		return nil

	case OpCopy:
		// P1 = source, P2 = dest
		vm.registers[instr.P2] = vm.registers[instr.P1]
		vm.pc++
		return nil

	case OpAdd:
		return vm.execArithmetic(instr, func(a, b int64) int64 { return a + b })

	case OpSubtract:
		return vm.execArithmetic(instr, func(a, b int64) int64 { return a - b })

	case OpMultiply:
		return vm.execArithmetic(instr, func(a, b int64) int64 { return a * b })

	case OpDivide:
		return vm.execArithmetic(instr, func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a / b
		})

	case OpEq:
		return vm.execComparison(instr, func(cmp int) bool { return cmp == 0 })

	case OpNe:
		return vm.execComparison(instr, func(cmp int) bool { return cmp != 0 })

	case OpLt:
		return vm.execComparison(instr, func(cmp int) bool { return cmp < 0 })

	case OpLe:
		return vm.execComparison(instr, func(cmp int) bool { return cmp <= 0 })

	case OpGt:
		return vm.execComparison(instr, func(cmp int) bool { return cmp > 0 })

	case OpGe:
		return vm.execComparison(instr, func(cmp int) bool { return cmp >= 0 })

	case OpIf:
		// Jump to P2 if r[P1] is true (non-zero, non-null)
		val := vm.registers[instr.P1]
		if vm.isTruthy(val) {
			vm.pc = instr.P2
		} else {
			vm.pc++
		}
		return nil

	case OpIfNot:
		// Jump to P2 if r[P1] is false (zero or null)
		val := vm.registers[instr.P1]
		if !vm.isTruthy(val) {
			vm.pc = instr.P2
		} else {
			vm.pc++
		}
		return nil

	case OpResultRow:
		// Output registers P1 through P1+P2-1
		row := make([]types.Value, instr.P2)
		for i := 0; i < instr.P2; i++ {
			row[i] = vm.registers[instr.P1+i]
		}
		vm.results = append(vm.results, row)
		vm.pc++
		return nil

	case OpOpenRead:
		// Open cursor P1 for reading table with root page P2
		return vm.execOpenCursor(instr, false)

	case OpOpenWrite:
		// Open cursor P1 for writing table with root page P2
		return vm.execOpenCursor(instr, true)

	case OpClose:
		// Close cursor P1
		return vm.execCloseCursor(instr)

	case OpRewind:
		// Move cursor P1 to first row, jump to P2 if empty
		return vm.execRewind(instr)

	case OpNext:
		// Advance cursor P1, jump to P2 if more rows
		return vm.execNext(instr)

	case OpColumn:
		// Read column P2 from cursor P1 into register P3
		return vm.execColumn(instr)

	case OpRowid:
		// Store rowid from cursor P1 into register P2
		return vm.execRowid(instr)

	case OpSeek:
		// Seek cursor P1 to rowid in register P3, jump to P2 if not found
		return vm.execSeek(instr)

	case OpMakeRecord:
		// Create record from registers P1..P1+P2-1, store in P3
		return vm.execMakeRecord(instr)

	case OpInsert:
		// Insert record r[P2] at rowid r[P3] into cursor P1
		return vm.execInsert(instr)

	case OpDelete:
		// Delete current row in cursor P1
		return vm.execDelete(instr)

	case OpAggInit:
		// Initialize aggregate: P1=aggIdx, P4=name (string)
		return vm.execAggInit(instr)

	case OpAggStep:
		// Step aggregate: P1=aggIdx, P2=valueReg
		return vm.execAggStep(instr)

	case OpAggFinal:
		// Finalize aggregate: P1=aggIdx, P2=destReg
		return vm.execAggFinal(instr)

	case OpIsNull:
		// Jump to P2 if r[P1] is NULL
		if vm.registers[instr.P1].IsNull() {
			vm.pc = instr.P2
		} else {
			vm.pc++
		}
		return nil

	case OpNotNull:
		// Jump to P2 if r[P1] is not NULL
		if !vm.registers[instr.P1].IsNull() {
			vm.pc = instr.P2
		} else {
			vm.pc++
		}
		return nil

	case OpNoop:
		vm.pc++
		return nil

	case OpOnce:
		// Jump to P2 unless this is the first visit to this address
		if vm.once[vm.pc] {
			vm.pc = instr.P2
		} else {
			vm.once[vm.pc] = true
			vm.pc++
		}
		return nil

	case OpReal:
		if f, ok := instr.P4.(float64); ok {
			vm.registers[instr.P2] = types.NewFloat(f)
		} else {
			vm.registers[instr.P2] = types.NewNull()
		}
		vm.pc++
		return nil

	case OpBlob:
		if b, ok := instr.P4.([]byte); ok {
			vm.registers[instr.P2] = types.NewBlob(b)
		} else {
			vm.registers[instr.P2] = types.NewNull()
		}
		vm.pc++
		return nil

	case OpSCopy:
		// Shallow copy; Value has no internal mutable aliasing so this
		// is identical to OpCopy.
		vm.registers[instr.P2] = vm.registers[instr.P1]
		vm.pc++
		return nil

	case OpMove:
		vm.registers[instr.P2] = vm.registers[instr.P1]
		vm.registers[instr.P1] = types.NewNull()
		vm.pc++
		return nil

	case OpRemainder:
		return vm.execArithmetic(instr, func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a % b
		})

	case OpNegate:
		v := vm.registers[instr.P1]
		if v.Type() == types.TypeFloat {
			vm.registers[instr.P2] = types.NewFloat(-v.Float())
		} else {
			vm.registers[instr.P2] = types.NewInt(-v.Int())
		}
		vm.pc++
		return nil

	case OpConcat:
		a := vm.registers[instr.P1]
		b := vm.registers[instr.P2]
		if a.IsNull() || b.IsNull() {
			vm.registers[instr.P3] = types.NewNull()
		} else {
			vm.registers[instr.P3] = types.NewText(a.Text() + b.Text())
		}
		vm.pc++
		return nil

	case OpCast:
		vm.registers[instr.P1] = vm.castTo(vm.registers[instr.P1], instr.P2)
		vm.pc++
		return nil

	case OpLast:
		return vm.execLast(instr)

	case OpPrev:
		return vm.execPrev(instr)

	case OpSeekGE:
		return vm.execSeekCmp(instr, seekGE)

	case OpSeekGT:
		return vm.execSeekCmp(instr, seekGT)

	case OpSeekLE:
		return vm.execSeekCmp(instr, seekLE)

	case OpSeekLT:
		return vm.execSeekCmp(instr, seekLT)

	case OpNotExists:
		return vm.execExistsCheck(instr, true)

	case OpFound:
		return vm.execExistsCheck(instr, false)

	case OpNotFound:
		return vm.execExistsCheck(instr, true)

	case OpNewRowId:
		return vm.execNewRowId(instr)

	case OpIdxInsert:
		return vm.execIdxInsert(instr)

	case OpIdxDelete:
		return vm.execIdxDelete(instr)

	case OpTransaction:
		return vm.execTransaction(instr)

	case OpCommit:
		return vm.execCommit(instr)

	case OpRollback:
		return vm.execRollback(instr)

	case OpSavepoint:
		return vm.execSavepoint(instr)

	case OpAutoCommit:
		// P1=1 commits the active transaction, P2=1 rolls it back first.
		if instr.P2 == 1 {
			if err := vm.execRollback(instr); err != nil {
				return err
			}
		} else if instr.P1 == 1 {
			if err := vm.execCommit(instr); err != nil {
				return err
			}
		}
		vm.autoCommit = true
		vm.pc++
		return nil

	default:
		// OpOpenEphemeral, OpOpenPseudo, OpOpenSorter, OpSorter*, OpGosub,
		// OpReturn, and the coroutine opcodes need a sort/subroutine engine
		// the compiler never emits yet, so they are left as a documented
		// gap rather than faked.
		return fmt.Errorf("unimplemented opcode: %s", instr.Op)
	}
}

// castTo coerces v to the affinity named by ValueType code vt, following
// the same rules as record.CoerceToAffinity for the base SQL affinities.
func (vm *VM) castTo(v types.Value, vt int) types.Value {
	return record.CoerceToAffinity(v, types.ValueType(vt))
}

// execArithmetic executes an arithmetic operation
func (vm *VM) execArithmetic(instr *Instruction, op func(a, b int64) int64) error {
	a := vm.registers[instr.P1]
	b := vm.registers[instr.P2]

	// Handle type coercion
	var result types.Value
	if a.Type() == types.TypeFloat || b.Type() == types.TypeFloat {
		fa := vm.toFloat(a)
		fb := vm.toFloat(b)
		// Use the op on floats
		result = types.NewFloat(float64(op(int64(fa), int64(fb))))
	} else {
		result = types.NewInt(op(a.Int(), b.Int()))
	}

	vm.registers[instr.P3] = result
	vm.pc++
	return nil
}

// execComparison executes a comparison operation
func (vm *VM) execComparison(instr *Instruction, cond func(cmp int) bool) error {
	a := vm.registers[instr.P1]
	b := vm.registers[instr.P3]

	cmp := vm.compare(a, b)
	if cond(cmp) {
		vm.pc = instr.P2 // Jump
	} else {
		vm.pc++ // Fall through
	}
	return nil
}

// compare compares two values, returns -1, 0, or 1
func (vm *VM) compare(a, b types.Value) int {
	// Handle NULL
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}

	// Same type comparisons
	if a.Type() == b.Type() {
		switch a.Type() {
		case types.TypeSmallInt, types.TypeInt32, types.TypeBigInt, types.TypeSerial, types.TypeBigSerial:
			ai, bi := a.Int(), b.Int()
			if ai < bi {
				return -1
			}
			if ai > bi {
				return 1
			}
			return 0
		case types.TypeFloat:
			af, bf := a.Float(), b.Float()
			if af < bf {
				return -1
			}
			if af > bf {
				return 1
			}
			return 0
		case types.TypeText:
			at, bt := a.Text(), b.Text()
			if at < bt {
				return -1
			}
			if at > bt {
				return 1
			}
			return 0
		}
	}

	// Mixed numeric types
	if (types.IsIntegerType(a.Type()) || a.Type() == types.TypeFloat) &&
		(types.IsIntegerType(b.Type()) || b.Type() == types.TypeFloat) {
		af := vm.toFloat(a)
		bf := vm.toFloat(b)
		if af < bf {
			return -1
		}
		if af > bf {
			return 1
		}
		return 0
	}

	// Default: compare by type order
	if a.Type() < b.Type() {
		return -1
	}
	return 1
}

// toFloat converts a value to float64
func (vm *VM) toFloat(v types.Value) float64 {
	switch v.Type() {
	case types.TypeSmallInt, types.TypeInt32, types.TypeBigInt, types.TypeSerial, types.TypeBigSerial:
		return float64(v.Int())
	case types.TypeFloat:
		return v.Float()
	default:
		return 0
	}
}

// isTruthy returns true if the value is truthy
func (vm *VM) isTruthy(v types.Value) bool {
	if v.IsNull() {
		return false
	}
	switch v.Type() {
	case types.TypeSmallInt, types.TypeInt32, types.TypeBigInt, types.TypeSerial, types.TypeBigSerial:
		return v.Int() != 0
	case types.TypeFloat:
		return v.Float() != 0
	case types.TypeText:
		return v.Text() != ""
	default:
		return false
	}
}

// Cursor operation helpers

// execOpenCursor opens a cursor on a B-tree
func (vm *VM) execOpenCursor(instr *Instruction, forWrite bool) error {
	cursorIdx := instr.P1
	rootPage := uint32(instr.P2)

	// Ensure we have enough cursors
	for len(vm.cursors) <= cursorIdx {
		vm.cursors = append(vm.cursors, nil)
	}

	// Close existing cursor if any
	if vm.cursors[cursorIdx] != nil && vm.cursors[cursorIdx].isOpen {
		if vm.cursors[cursorIdx].cursor != nil {
			vm.cursors[cursorIdx].cursor.Close()
		}
	}

	// Open B-tree
	bt := btree.Open(vm.pager, rootPage)
	cursor := bt.Cursor()

	vm.cursors[cursorIdx] = &VDBECursor{
		btree:  bt,
		cursor: cursor,
		isOpen: true,
	}

	vm.pc++
	return nil
}

// execCloseCursor closes a cursor
func (vm *VM) execCloseCursor(instr *Instruction) error {
	cursorIdx := instr.P1

	if cursorIdx < len(vm.cursors) && vm.cursors[cursorIdx] != nil {
		if vm.cursors[cursorIdx].cursor != nil {
			vm.cursors[cursorIdx].cursor.Close()
		}
		vm.cursors[cursorIdx].isOpen = false
	}

	vm.pc++
	return nil
}

// execRewind moves cursor to first row
func (vm *VM) execRewind(instr *Instruction) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	cursor.First()

	if !cursor.Valid() {
		// Table is empty, jump to P2
		vm.pc = jumpAddr
	} else {
		vm.pc++
	}
	return nil
}

// execNext advances cursor to next row
func (vm *VM) execNext(instr *Instruction) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	cursor.Next()

	if cursor.Valid() {
		// More rows, jump to P2
		vm.pc = jumpAddr
	} else {
		vm.pc++
	}
	return nil
}

// execColumn reads a column from cursor
func (vm *VM) execColumn(instr *Instruction) error {
	cursorIdx := instr.P1
	columnIdx := instr.P2
	destReg := instr.P3

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	if !cursor.Valid() {
		vm.registers[destReg] = types.NewNull()
		vm.pc++
		return nil
	}

	// Get the row data and decode it
	data := cursor.Value()
	if data == nil {
		vm.registers[destReg] = types.NewNull()
		vm.pc++
		return nil
	}

	values := record.Decode(data)
	if columnIdx < len(values) {
		vm.registers[destReg] = values[columnIdx]
	} else {
		vm.registers[destReg] = types.NewNull()
	}

	vm.pc++
	return nil
}

// execRowid extracts the rowid from the current cursor position
func (vm *VM) execRowid(instr *Instruction) error {
	cursorIdx := instr.P1
	destReg := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	if !cursor.Valid() {
		vm.registers[destReg] = types.NewNull()
		vm.pc++
		return nil
	}

	// Extract rowid from key (big-endian 8-byte integer)
	key := cursor.Key()
	if len(key) < 8 {
		vm.registers[destReg] = types.NewNull()
		vm.pc++
		return nil
	}

	var rowid int64
	for i := 0; i < 8; i++ {
		rowid = (rowid << 8) | int64(key[i])
	}

	vm.registers[destReg] = types.NewInt(rowid)
	vm.pc++
	return nil
}

// execSeek seeks the cursor to a specific rowid
func (vm *VM) execSeek(instr *Instruction) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2
	rowidReg := instr.P3

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	// Get rowid from register
	rowidVal := vm.registers[rowidReg]
	rowid := rowidVal.Int()

	// Create key from rowid (big-endian)
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(rowid)
		rowid >>= 8
	}

	// Seek to the key
	cursor := vm.cursors[cursorIdx].cursor
	cursor.Seek(key)

	// Check if we found the exact key
	if !cursor.Valid() {
		// Not found, jump to P2
		vm.pc = jumpAddr
		return nil
	}

	// Verify the key matches exactly
	foundKey := cursor.Key()
	for i := 0; i < 8; i++ {
		if foundKey[i] != key[i] {
			// Key doesn't match, jump to P2
			vm.pc = jumpAddr
			return nil
		}
	}

	// Found the row, continue to next instruction
	vm.pc++
	return nil
}

// execDelete deletes the current row from the cursor
func (vm *VM) execDelete(instr *Instruction) error {
	cursorIdx := instr.P1

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	vdbeCursor := vm.cursors[cursorIdx]
	cursor := vdbeCursor.cursor

	if !cursor.Valid() {
		// No current row, nothing to delete
		vm.pc++
		return nil
	}

	// Get the current key
	key := cursor.Key()
	if key == nil {
		vm.pc++
		return nil
	}

	// Make a copy of the key since the cursor may become invalid after delete
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	// Delete from B-tree
	bt := vdbeCursor.btree
	if err := bt.Delete(keyCopy); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	vm.pc++
	return nil
}

// execMakeRecord creates a record from registers
func (vm *VM) execMakeRecord(instr *Instruction) error {
	startReg := instr.P1
	numRegs := instr.P2
	destReg := instr.P3

	values := make([]types.Value, numRegs)
	for i := 0; i < numRegs; i++ {
		values[i] = vm.registers[startReg+i]
	}

	data := record.Encode(values)
	vm.registers[destReg] = types.NewBlob(data)

	vm.pc++
	return nil
}

// execInsert inserts a record into the B-tree
func (vm *VM) execInsert(instr *Instruction) error {
	cursorIdx := instr.P1
	recordReg := instr.P2
	rowidReg := instr.P3

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	// Get record data
	recordVal := vm.registers[recordReg]
	if recordVal.Type() != types.TypeBlob {
		return fmt.Errorf("expected blob for record, got %v", recordVal.Type())
	}
	data := recordVal.Blob()

	// Get rowid
	rowidVal := vm.registers[rowidReg]
	rowid := rowidVal.Int()

	// Create key from rowid (big-endian for sorting)
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(rowid)
		rowid >>= 8
	}

	// Insert into B-tree
	bt := vm.cursors[cursorIdx].btree
	if err := bt.Insert(key, data); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	vm.pc++
	return nil
}

// Aggregate operation helpers

// execAggInit initializes an aggregate function
func (vm *VM) execAggInit(instr *Instruction) error {
	aggIdx := instr.P1
	aggName, ok := instr.P4.(string)
	if !ok {
		return fmt.Errorf("OpAggInit requires aggregate name in P4")
	}

	// Ensure we have enough aggregate slots
	for len(vm.aggregates) <= aggIdx {
		vm.aggregates = append(vm.aggregates, nil)
	}

	// Create and initialize the aggregate
	agg := GetAggregate(aggName)
	if agg == nil {
		return fmt.Errorf("unknown aggregate function: %s", aggName)
	}
	agg.Init()
	vm.aggregates[aggIdx] = agg

	vm.pc++
	return nil
}

// execAggStep steps an aggregate with a value
func (vm *VM) execAggStep(instr *Instruction) error {
	aggIdx := instr.P1
	valueReg := instr.P2

	if aggIdx >= len(vm.aggregates) || vm.aggregates[aggIdx] == nil {
		return fmt.Errorf("aggregate %d not initialized", aggIdx)
	}

	value := vm.registers[valueReg]
	vm.aggregates[aggIdx].Step(value)

	vm.pc++
	return nil
}

// execAggFinal finalizes an aggregate and stores result
func (vm *VM) execAggFinal(instr *Instruction) error {
	aggIdx := instr.P1
	destReg := instr.P2

	if aggIdx >= len(vm.aggregates) || vm.aggregates[aggIdx] == nil {
		return fmt.Errorf("aggregate %d not initialized", aggIdx)
	}

	result := vm.aggregates[aggIdx].Finalize()
	vm.registers[destReg] = result

	vm.pc++
	return nil
}

// rowidKey encodes a rowid as the big-endian 8-byte key table B-trees sort
// by, matching execSeek/execInsert/execRowid.
func rowidKey(rowid int64) []byte {
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(rowid)
		rowid >>= 8
	}
	return key
}

// seekKey turns a register value into the byte key a cursor seeks by:
// blobs and text are used verbatim (index entries), everything else is
// treated as a rowid.
func (vm *VM) seekKey(v types.Value) []byte {
	switch v.Type() {
	case types.TypeBlob:
		return v.Blob()
	case types.TypeText:
		return []byte(v.Text())
	default:
		return rowidKey(v.Int())
	}
}

// execLast moves a cursor to its last row, jumping to P2 if the tree is empty.
func (vm *VM) execLast(instr *Instruction) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	cursor.Last()

	if !cursor.Valid() {
		vm.pc = jumpAddr
	} else {
		vm.pc++
	}
	return nil
}

// execPrev moves a cursor backward, jumping to P2 if a prior row exists.
func (vm *VM) execPrev(instr *Instruction) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	cursor.Prev()

	if cursor.Valid() {
		vm.pc = jumpAddr
	} else {
		vm.pc++
	}
	return nil
}

// seekGE, seekGT, seekLE, and seekLT position a cursor relative to key,
// building the four directional seeks on top of Cursor.Seek's native
// first-key->=key semantics. Each reports whether the cursor landed on a
// valid row.
func seekGE(c *btree.Cursor, key []byte) bool {
	c.Seek(key)
	return c.Valid()
}

func seekGT(c *btree.Cursor, key []byte) bool {
	c.Seek(key)
	if c.Valid() && bytes.Equal(c.Key(), key) {
		c.Next()
	}
	return c.Valid()
}

func seekLE(c *btree.Cursor, key []byte) bool {
	c.Seek(key)
	if !c.Valid() {
		c.Last()
		return c.Valid()
	}
	if !bytes.Equal(c.Key(), key) {
		c.Prev()
	}
	return c.Valid()
}

func seekLT(c *btree.Cursor, key []byte) bool {
	c.Seek(key)
	if !c.Valid() {
		c.Last()
		return c.Valid()
	}
	c.Prev()
	return c.Valid()
}

// execSeekCmp drives OpSeekGE/GT/LE/LT: seek cursor P1 by cmp using the key
// in r[P3], falling through on success and jumping to P2 when nothing
// qualifies.
func (vm *VM) execSeekCmp(instr *Instruction, cmp func(*btree.Cursor, []byte) bool) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2
	keyReg := instr.P3

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	key := vm.seekKey(vm.registers[keyReg])

	if cmp(cursor, key) {
		vm.pc++
	} else {
		vm.pc = jumpAddr
	}
	return nil
}

// execExistsCheck drives OpNotExists/OpFound/OpNotFound: seek cursor P1 for
// the key in r[P3] and jump to P2 according to jumpIfMissing.
func (vm *VM) execExistsCheck(instr *Instruction, jumpIfMissing bool) error {
	cursorIdx := instr.P1
	jumpAddr := instr.P2
	keyReg := instr.P3

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	key := vm.seekKey(vm.registers[keyReg])
	cursor.Seek(key)
	found := cursor.Valid() && bytes.Equal(cursor.Key(), key)

	if found == jumpIfMissing {
		vm.pc = jumpAddr
	} else {
		vm.pc++
	}
	return nil
}

// execNewRowId generates a fresh rowid for table cursor P1 into register P2,
// one past the current maximum key.
func (vm *VM) execNewRowId(instr *Instruction) error {
	cursorIdx := instr.P1
	destReg := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	cursor := vm.cursors[cursorIdx].cursor
	cursor.Last()

	var rowid int64 = 1
	if cursor.Valid() {
		key := cursor.Key()
		if len(key) >= 8 {
			var last int64
			for i := 0; i < 8; i++ {
				last = (last << 8) | int64(key[i])
			}
			rowid = last + 1
		}
	}

	vm.registers[destReg] = types.NewInt(rowid)
	vm.pc++
	return nil
}

// execIdxInsert inserts index entry r[P2] into index cursor P1. Index
// entries are self-describing records that sort by their own bytes, so the
// record itself doubles as the B-tree key.
func (vm *VM) execIdxInsert(instr *Instruction) error {
	cursorIdx := instr.P1
	recordReg := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	recordVal := vm.registers[recordReg]
	if recordVal.Type() != types.TypeBlob {
		return fmt.Errorf("expected blob for index entry, got %v", recordVal.Type())
	}
	data := recordVal.Blob()

	bt := vm.cursors[cursorIdx].btree
	if err := bt.Insert(data, data); err != nil {
		return fmt.Errorf("index insert failed: %w", err)
	}

	vm.pc++
	return nil
}

// execIdxDelete deletes the index entry matching r[P2] from index cursor P1.
func (vm *VM) execIdxDelete(instr *Instruction) error {
	cursorIdx := instr.P1
	recordReg := instr.P2

	if cursorIdx >= len(vm.cursors) || vm.cursors[cursorIdx] == nil {
		return fmt.Errorf("cursor %d not open", cursorIdx)
	}

	recordVal := vm.registers[recordReg]
	if recordVal.Type() != types.TypeBlob {
		return fmt.Errorf("expected blob for index entry, got %v", recordVal.Type())
	}
	data := recordVal.Blob()

	bt := vm.cursors[cursorIdx].btree
	if err := bt.Delete(data); err != nil {
		return fmt.Errorf("index delete failed: %w", err)
	}

	vm.pc++
	return nil
}

// execTransaction begins a write transaction against the pager if one isn't
// already open, taking the VM out of auto-commit mode.
func (vm *VM) execTransaction(instr *Instruction) error {
	if vm.tx == nil {
		tx, err := vm.pager.BeginWrite()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		vm.tx = tx
		vm.autoCommit = false
	}
	vm.pc++
	return nil
}

// execCommit commits the active transaction, if any, and returns the VM to
// auto-commit mode.
func (vm *VM) execCommit(instr *Instruction) error {
	if vm.tx != nil {
		if err := vm.tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		vm.tx = nil
	}
	vm.savepoints = nil
	vm.autoCommit = true
	vm.pc++
	return nil
}

// execRollback rolls back the active transaction, if any, and returns the
// VM to auto-commit mode.
func (vm *VM) execRollback(instr *Instruction) error {
	if vm.tx != nil {
		vm.tx.Rollback()
		vm.tx = nil
	}
	vm.savepoints = nil
	vm.autoCommit = true
	vm.pc++
	return nil
}

// execSavepoint implements SAVEPOINT/RELEASE/ROLLBACK TO. P1 selects the
// mode (0=begin, 1=release, 2=rollback to) and P4 names the savepoint.
//
// The pager only tracks one flat set of dirty pages per transaction, with
// no per-savepoint snapshot, so ROLLBACK TO cannot undo just the work done
// since the named savepoint -- it can only drop the bookkeeping down to
// that point. A real nested rollback would need the pager to keep a
// dirty-page snapshot per savepoint, which it does not.
func (vm *VM) execSavepoint(instr *Instruction) error {
	name, _ := instr.P4.(string)

	switch instr.P1 {
	case 0: // begin
		if vm.tx == nil {
			tx, err := vm.pager.BeginWrite()
			if err != nil {
				return fmt.Errorf("begin savepoint: %w", err)
			}
			vm.tx = tx
			vm.autoCommit = false
		}
		vm.savepoints = append(vm.savepoints, savepointMark{name: name})

	case 1, 2: // release, rollback to
		vm.popSavepoint(name)

	default:
		return fmt.Errorf("unknown savepoint mode: %d", instr.P1)
	}

	vm.pc++
	return nil
}

// popSavepoint discards the named savepoint and everything opened after it.
func (vm *VM) popSavepoint(name string) {
	for i := len(vm.savepoints) - 1; i >= 0; i-- {
		if vm.savepoints[i].name == name {
			vm.savepoints = vm.savepoints[:i]
			return
		}
	}
}

