// pkg/celdb/integrity.go
package celdb

import (
	"fmt"

	"celdb/pkg/btree"
	"celdb/pkg/pager"
)

// IntegrityError represents a single integrity check error
type IntegrityError struct {
	// Type indicates the kind of integrity error (btree, index, page, database)
	Type string

	// Table is the affected table name (if applicable)
	Table string

	// Index is the affected index name (if applicable)
	Index string

	// Page is the affected page number (if applicable)
	Page uint32

	// Message provides details about the error
	Message string
}

// String returns a human-readable description of the integrity error
func (e IntegrityError) String() string {
	location := ""
	if e.Table != "" {
		location = fmt.Sprintf("table %s", e.Table)
	}
	if e.Index != "" {
		if location != "" {
			location += ", "
		}
		location += fmt.Sprintf("index %s", e.Index)
	}
	if e.Page != 0 {
		if location != "" {
			location += ", "
		}
		location += fmt.Sprintf("page %d", e.Page)
	}

	if location != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, location, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Error implements the error interface
func (e IntegrityError) Error() string {
	return e.String()
}

// IntegrityCheck performs an integrity check on the database.
// It verifies:
// - that each table B-tree can be walked with its keys in ascending order
// - that each non-partial index has as many entries as its table, and
//   that each index B-tree's keys are in ascending order
// Pages are not checked for cycles, for being reachable from two trees, or
// for their page type; foreign keys are not checked; page checksums are
// checked only by CorruptionCheck.
//
// Returns a slice of IntegrityError. Empty slice means no errors found.
func (db *DB) IntegrityCheck() []IntegrityError {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return []IntegrityError{{
			Type:    "database",
			Message: "database is closed",
		}}
	}

	var errors []IntegrityError

	// Check each table's B-tree structure
	for _, tableName := range db.executor.GetCatalog().ListTables() {
		tree, ok := db.executor.GetTree(tableName)
		if !ok {
			continue
		}
		if btreeErrors := db.checkBTreeIntegrity(tableName, tree); len(btreeErrors) > 0 {
			errors = append(errors, btreeErrors...)
		}
	}

	// Check index consistency with table data
	if indexErrors := db.checkIndexConsistency(); len(indexErrors) > 0 {
		errors = append(errors, indexErrors...)
	}

	return errors
}

// QuickCheck performs a faster integrity check that skips some validations.
// It checks B-tree structure but skips foreign key and full index verification.
func (db *DB) QuickCheck() []IntegrityError {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return []IntegrityError{{
			Type:    "database",
			Message: "database is closed",
		}}
	}

	var errors []IntegrityError

	// Quick check only verifies B-tree structure
	for _, tableName := range db.executor.GetCatalog().ListTables() {
		tree, ok := db.executor.GetTree(tableName)
		if !ok {
			continue
		}
		if btreeErrors := db.checkBTreeIntegrity(tableName, tree); len(btreeErrors) > 0 {
			errors = append(errors, btreeErrors...)
		}
	}

	return errors
}

// checkBTreeIntegrity validates a single B-tree structure
func (db *DB) checkBTreeIntegrity(tableName string, tree *btree.BTree) []IntegrityError {
	var errors []IntegrityError

	// Validate B-tree structure by traversing it
	if err := db.validateBTreeStructure(tree); err != nil {
		errors = append(errors, IntegrityError{
			Type:    "btree",
			Table:   tableName,
			Page:    tree.RootPage(),
			Message: err.Error(),
		})
	}

	return errors
}

// validateBTreeStructure performs structural validation of a B-tree
func (db *DB) validateBTreeStructure(tree *btree.BTree) error {
	// Traverse the tree and verify:
	// 1. Keys are in proper order
	// 2. Tree is navigable without errors

	var lastKey []byte

	cursor := tree.Cursor()
	defer cursor.Close()

	// Move to first element
	cursor.First()

	if !cursor.Valid() {
		// Empty tree is valid
		return nil
	}

	for cursor.Valid() {
		key := cursor.Key()
		if key == nil {
			break
		}

		// Check key ordering
		if lastKey != nil {
			if compareBytes(key, lastKey) <= 0 {
				return fmt.Errorf("keys out of order: %v should be after %v", key, lastKey)
			}
		}
		lastKey = append([]byte{}, key...) // Copy key

		cursor.Next()
	}

	return nil
}

// checkIndexConsistency verifies that indexes match their table data
func (db *DB) checkIndexConsistency() []IntegrityError {
	var errors []IntegrityError

	// Get all index names from the catalog
	indexNames := db.executor.GetCatalog().ListIndexes()
	for _, indexName := range indexNames {
		idx := db.executor.GetCatalog().GetIndex(indexName)
		if idx == nil {
			continue
		}

		// Get the table this index belongs to
		table := db.executor.GetCatalog().GetTable(idx.TableName)
		if table == nil {
			errors = append(errors, IntegrityError{
				Type:    "index",
				Index:   idx.Name,
				Message: fmt.Sprintf("index references non-existent table %s", idx.TableName),
			})
			continue
		}

		// Get the table's B-tree
		tableTree, ok := db.executor.GetTree(idx.TableName)
		if !ok {
			// Table exists in catalog but no B-tree - this is OK for empty tables
			continue
		}

		// Get the index's B-tree (if it exists)
		indexTree, ok := db.executor.GetTree("index:" + idx.Name)
		if !ok {
			// Index defined but no B-tree - might be OK for newly created index
			continue
		}

		// Count entries in both
		tableCount := db.countBTreeEntries(tableTree)
		indexCount := db.countBTreeEntries(indexTree)

		// For non-partial indexes, counts should match
		// (For partial indexes, index count <= table count)
		if !idx.IsPartial() && tableCount != indexCount {
			errors = append(errors, IntegrityError{
				Type:    "index",
				Table:   idx.TableName,
				Index:   idx.Name,
				Message: fmt.Sprintf("index entry count (%d) doesn't match table row count (%d)", indexCount, tableCount),
			})
		}

		// Validate the index B-tree structure itself
		if err := db.validateBTreeStructure(indexTree); err != nil {
			errors = append(errors, IntegrityError{
				Type:    "index",
				Table:   idx.TableName,
				Index:   idx.Name,
				Page:    indexTree.RootPage(),
				Message: fmt.Sprintf("index B-tree structure error: %s", err.Error()),
			})
		}
	}

	return errors
}

// countBTreeEntries counts the number of entries in a B-tree
func (db *DB) countBTreeEntries(tree *btree.BTree) int {
	count := 0
	cursor := tree.Cursor()
	defer cursor.Close()

	cursor.First()
	for cursor.Valid() {
		count++
		cursor.Next()
	}

	return count
}

// compareBytes compares two byte slices lexicographically
func compareBytes(a, b []byte) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	for i := 0; i < minLen; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}

	if len(a) < len(b) {
		return -1
	}
	if len(a) > len(b) {
		return 1
	}
	return 0
}

// CorruptionCheck scans all database pages for corruption.
// It verifies:
// - Page checksums
// - Torn page writes
// Returns a slice of IntegrityError. Empty slice means no corruption found.
func (db *DB) CorruptionCheck() []IntegrityError {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return []IntegrityError{{
			Type:    "database",
			Message: "database is closed",
		}}
	}

	var errors []IntegrityError

	// Create corruption checker
	checker := pager.NewCorruptionChecker(db.pager)

	// Check all pages
	corruptionErrors := checker.CheckAllPages()

	// Convert pager.CorruptionError to IntegrityError
	for _, corrErr := range corruptionErrors {
		errors = append(errors, IntegrityError{
			Type:    "page",
			Page:    corrErr.PageNo,
			Message: corrErr.Error(),
		})
	}

	return errors
}

// CheckPage checks a specific page for corruption.
// Returns nil if the page is not corrupted.
func (db *DB) CheckPage(pageNo uint32) *IntegrityError {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return &IntegrityError{
			Type:    "database",
			Message: "database is closed",
		}
	}

	checker := pager.NewCorruptionChecker(db.pager)
	corrErr := checker.CheckPage(pageNo)

	if corrErr == nil {
		return nil
	}

	return &IntegrityError{
		Type:    "page",
		Page:    corrErr.PageNo,
		Message: corrErr.Error(),
	}
}
