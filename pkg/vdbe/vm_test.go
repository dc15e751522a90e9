// pkg/vdbe/vm_test.go
package vdbe

import (
	"path/filepath"
	"testing"

	"celdb/pkg/btree"
	"celdb/pkg/pager"
	"celdb/pkg/record"
	"celdb/pkg/types"
)

func TestVMCreate(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	if vm == nil {
		t.Fatal("expected non-nil VM")
	}
}

func TestVMRegisterCount(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(10)

	if vm.NumRegisters() != 10 {
		t.Errorf("expected 10 registers, got %d", vm.NumRegisters())
	}
}

func TestVMRunHalt(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vm.PC() != 0 {
		t.Errorf("expected PC=0 after halt, got %d", vm.PC())
	}
}

func TestVMRunInteger(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 42, 1, 0) // Store 42 in register 1
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(1)
	if val.Type() != types.TypeInt {
		t.Errorf("expected TypeInt, got %v", val.Type())
	}
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMRunString(t *testing.T) {
	prog := NewProgram()
	prog.AddOp4(OpString, 5, 2, 0, "hello") // Store "hello" in register 2
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(2)
	if val.Type() != types.TypeText {
		t.Errorf("expected TypeText, got %v", val.Type())
	}
	if val.Text() != "hello" {
		t.Errorf("expected 'hello', got '%s'", val.Text())
	}
}

func TestVMRunNull(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpNull, 0, 3, 0) // Store NULL in register 3
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if !val.IsNull() {
		t.Error("expected null value")
	}
}

func TestVMRunInit(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInit, 0, 2, 0)     // Jump to instruction 2
	prog.AddOp(OpInteger, 99, 1, 0) // Should be skipped
	prog.AddOp(OpInteger, 42, 1, 0) // This should execute
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(1)
	if val.Int() != 42 {
		t.Errorf("expected 42 (Init should have jumped), got %d", val.Int())
	}
}

func TestVMRunGoto(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpGoto, 0, 2, 0)     // Jump to instruction 2
	prog.AddOp(OpInteger, 99, 1, 0) // Should be skipped
	prog.AddOp(OpInteger, 42, 1, 0) // This should execute
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(1)
	if val.Int() != 42 {
		t.Errorf("expected 42 (Goto should have jumped), got %d", val.Int())
	}
}

func TestVMRunAdd(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 10, 1, 0) // r[1] = 10
	prog.AddOp(OpInteger, 32, 2, 0) // r[2] = 32
	prog.AddOp(OpAdd, 1, 2, 3)      // r[3] = r[1] + r[2]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMRunSubtract(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 50, 1, 0) // r[1] = 50
	prog.AddOp(OpInteger, 8, 2, 0)  // r[2] = 8
	prog.AddOp(OpSubtract, 1, 2, 3) // r[3] = r[1] - r[2]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMRunMultiply(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 6, 1, 0)  // r[1] = 6
	prog.AddOp(OpInteger, 7, 2, 0)  // r[2] = 7
	prog.AddOp(OpMultiply, 1, 2, 3) // r[3] = r[1] * r[2]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMRunDivide(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 84, 1, 0) // r[1] = 84
	prog.AddOp(OpInteger, 2, 2, 0)  // r[2] = 2
	prog.AddOp(OpDivide, 1, 2, 3)   // r[3] = r[1] / r[2]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMRunEq(t *testing.T) {
	// Test equal values - should jump
	prog := NewProgram()
	prog.AddOp(OpInteger, 42, 1, 0) // r[1] = 42
	prog.AddOp(OpInteger, 42, 2, 0) // r[2] = 42
	prog.AddOp(OpEq, 1, 4, 2)       // If r[1] == r[2], jump to 4
	prog.AddOp(OpInteger, 0, 3, 0)  // r[3] = 0 (should be skipped)
	prog.AddOp(OpInteger, 1, 3, 0)  // r[3] = 1 (should execute)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 1 {
		t.Errorf("expected 1 (Eq should have jumped), got %d", val.Int())
	}
}

func TestVMRunLt(t *testing.T) {
	// Test less than - should jump
	prog := NewProgram()
	prog.AddOp(OpInteger, 10, 1, 0) // r[1] = 10
	prog.AddOp(OpInteger, 20, 2, 0) // r[2] = 20
	prog.AddOp(OpLt, 1, 4, 2)       // If r[1] < r[2], jump to 4
	prog.AddOp(OpInteger, 0, 3, 0)  // r[3] = 0 (should be skipped)
	prog.AddOp(OpInteger, 1, 3, 0)  // r[3] = 1 (should execute)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(3)
	if val.Int() != 1 {
		t.Errorf("expected 1 (Lt should have jumped), got %d", val.Int())
	}
}

func TestVMRunIf(t *testing.T) {
	// Test If with true value - should jump
	prog := NewProgram()
	prog.AddOp(OpInteger, 1, 1, 0)  // r[1] = 1 (true)
	prog.AddOp(OpIf, 1, 3, 0)       // If r[1], jump to 3
	prog.AddOp(OpInteger, 0, 2, 0)  // r[2] = 0 (should be skipped)
	prog.AddOp(OpInteger, 42, 2, 0) // r[2] = 42 (should execute)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(2)
	if val.Int() != 42 {
		t.Errorf("expected 42 (If should have jumped), got %d", val.Int())
	}
}

func TestVMRunIfNot(t *testing.T) {
	// Test IfNot with false value - should jump
	prog := NewProgram()
	prog.AddOp(OpInteger, 0, 1, 0)  // r[1] = 0 (false)
	prog.AddOp(OpIfNot, 1, 3, 0)    // If !r[1], jump to 3
	prog.AddOp(OpInteger, 0, 2, 0)  // r[2] = 0 (should be skipped)
	prog.AddOp(OpInteger, 42, 2, 0) // r[2] = 42 (should execute)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(2)
	if val.Int() != 42 {
		t.Errorf("expected 42 (IfNot should have jumped), got %d", val.Int())
	}
}

func TestVMRunCopy(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 42, 1, 0) // r[1] = 42
	prog.AddOp(OpCopy, 1, 2, 0)     // r[2] = r[1]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(2)
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
}

func TestVMResultRow(t *testing.T) {
	prog := NewProgram()
	prog.AddOp(OpInteger, 1, 1, 0)          // r[1] = 1
	prog.AddOp4(OpString, 5, 2, 0, "hello") // r[2] = "hello"
	prog.AddOp(OpResultRow, 1, 2, 0)        // Output r[1], r[2]
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, nil)
	vm.SetNumRegisters(5)

	err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := vm.Results()
	if len(rows) != 1 {
		t.Fatalf("expected 1 result row, got %d", len(rows))
	}
	if len(rows[0]) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(rows[0]))
	}
	if rows[0][0].Int() != 1 {
		t.Errorf("expected first column = 1, got %d", rows[0][0].Int())
	}
	if rows[0][1].Text() != "hello" {
		t.Errorf("expected second column = 'hello', got '%s'", rows[0][1].Text())
	}
}

func TestVMRunRowid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	defer p.Close()

	// Create B-tree and insert a row with rowid=42
	bt, _ := btree.Create(p)
	key := make([]byte, 8)
	rowid := int64(42)
	for i := 7; i >= 0; i-- {
		key[i] = byte(rowid)
		rowid >>= 8
	}
	values := []types.Value{types.NewInt(42), types.NewText("test")}
	bt.Insert(key, record.Encode(values))

	// Program: OpenRead -> Rewind -> Rowid -> Halt
	prog := NewProgram()
	prog.AddOp(OpInit, 0, 1, 0)
	prog.AddOp(OpOpenRead, 0, int(bt.RootPage()), 0) // cursor 0, rootPage
	prog.AddOp(OpRewind, 0, 6, 0)                    // cursor 0, jump to halt if empty
	prog.AddOp(OpRowid, 0, 1, 0)                     // cursor 0, dest reg 1
	prog.AddOp(OpClose, 0, 0, 0)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, p)
	vm.SetNumRegisters(5)

	err = vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(1)
	if val.Type() != types.TypeInt {
		t.Errorf("expected TypeInt, got %v", val.Type())
	}
	if val.Int() != 42 {
		t.Errorf("expected rowid 42, got %d", val.Int())
	}
}

// TestVMRunSeek tests OpSeek: seek cursor to specific rowid
func TestVMRunSeek(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	defer p.Close()

	// Create B-tree and insert multiple rows
	bt, _ := btree.Create(p)
	for _, rowid := range []int64{10, 20, 30} {
		key := make([]byte, 8)
		r := rowid
		for i := 7; i >= 0; i-- {
			key[i] = byte(r)
			r >>= 8
		}
		values := []types.Value{types.NewInt(rowid), types.NewText("value")}
		bt.Insert(key, record.Encode(values))
	}

	// Program: OpenRead -> Integer 20 (rowid to seek) -> Seek -> Column -> Halt
	prog := NewProgram()
	prog.AddOp(OpInit, 0, 1, 0)
	prog.AddOp(OpOpenRead, 0, int(bt.RootPage()), 0) // cursor 0
	prog.AddOp(OpInteger, 20, 1, 0)                  // r[1] = 20 (rowid to seek)
	prog.AddOp(OpSeek, 0, 7, 1)                      // cursor 0, jump to halt if not found, rowid in r[1]
	prog.AddOp(OpColumn, 0, 0, 2)                    // cursor 0, col 0, dest r[2]
	prog.AddOp(OpClose, 0, 0, 0)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, p)
	vm.SetNumRegisters(5)

	err = vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := vm.Register(2)
	if val.Type() != types.TypeInt {
		t.Errorf("expected TypeInt, got %v", val.Type())
	}
	if val.Int() != 20 {
		t.Errorf("expected value 20, got %d", val.Int())
	}
}

// TestVMRunSeek_NotFound tests OpSeek when rowid doesn't exist
func TestVMRunSeek_NotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	defer p.Close()

	// Create B-tree with one row
	bt, _ := btree.Create(p)
	key := make([]byte, 8)
	key[7] = 10
	values := []types.Value{types.NewInt(10)}
	bt.Insert(key, record.Encode(values))

	// Program: seek to non-existent rowid 99
	prog := NewProgram()
	prog.AddOp(OpInit, 0, 1, 0)
	prog.AddOp(OpOpenRead, 0, int(bt.RootPage()), 0)
	prog.AddOp(OpInteger, 99, 1, 0)  // r[1] = 99 (rowid that doesn't exist)
	prog.AddOp(OpSeek, 0, 6, 1)      // cursor 0, jump to end if not found
	prog.AddOp(OpInteger, 1, 2, 0)   // r[2] = 1 (should be skipped)
	prog.AddOp(OpGoto, 0, 7, 0)      // skip over the "not found" marker
	prog.AddOp(OpInteger, 99, 2, 0)  // r[2] = 99 (marker for not found)
	prog.AddOp(OpClose, 0, 0, 0)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, p)
	vm.SetNumRegisters(5)

	err = vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// If seek failed, r[2] should be 99
	val := vm.Register(2)
	if val.Int() != 99 {
		t.Errorf("expected 99 (not found marker), got %d", val.Int())
	}
}

// TestVMRunDelete tests OpDelete: delete current row from cursor
func TestVMRunDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	defer p.Close()

	// Create B-tree and insert rows
	bt, _ := btree.Create(p)
	for _, rowid := range []int64{10, 20, 30} {
		key := make([]byte, 8)
		r := rowid
		for i := 7; i >= 0; i-- {
			key[i] = byte(r)
			r >>= 8
		}
		values := []types.Value{types.NewInt(rowid)}
		bt.Insert(key, record.Encode(values))
	}

	// Verify initial count is 3
	cursor := bt.Cursor()
	count := 0
	for cursor.First(); cursor.Valid(); cursor.Next() {
		count++
	}
	cursor.Close()
	if count != 3 {
		t.Fatalf("expected 3 rows before delete, got %d", count)
	}

	// Program: seek to rowid 20 and delete it
	prog := NewProgram()
	prog.AddOp(OpInit, 0, 1, 0)
	prog.AddOp(OpOpenWrite, 0, int(bt.RootPage()), 0) // cursor 0, must use OpenWrite for delete
	prog.AddOp(OpInteger, 20, 1, 0)                   // r[1] = 20
	prog.AddOp(OpSeek, 0, 6, 1)                       // cursor 0, jump to close if not found
	prog.AddOp(OpDelete, 0, 0, 0)                     // delete current row from cursor 0
	prog.AddOp(OpClose, 0, 0, 0)
	prog.AddOp(OpHalt, 0, 0, 0)

	vm := NewVM(prog, p)
	vm.SetNumRegisters(5)

	err = vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify row was deleted (count should be 2)
	cursor = bt.Cursor()
	count = 0
	for cursor.First(); cursor.Valid(); cursor.Next() {
		count++
	}
	cursor.Close()
	if count != 2 {
		t.Errorf("expected 2 rows after delete, got %d", count)
	}

	// Verify rowid 20 is gone
	seekKey := make([]byte, 8)
	seekKey[7] = 20
	cursor = bt.Cursor()
	cursor.Seek(seekKey)
	// After seek, cursor should be at 30, not 20
	if cursor.Valid() {
		key := cursor.Key()
		rowid := int64(0)
		for i := 0; i < 8; i++ {
			rowid = (rowid << 8) | int64(key[i])
		}
		if rowid == 20 {
			t.Error("rowid 20 should have been deleted")
		}
	}
	cursor.Close()
}
