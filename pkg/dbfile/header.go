// pkg/dbfile/header.go
// Package dbfile implements celdb's on-disk database file header, which is
// bit-compatible with the SQLite 3 file format described in spec §6.
package dbfile

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is the size of the database file header in bytes.
	// The first 100 bytes of page 0 (the header page; pages are numbered
	// from 0) contain it.
	HeaderSize = 100

	// MagicString identifies a valid database file. Exactly 16 bytes,
	// matching the real SQLite 3 file format so files this engine writes
	// are byte-for-byte readable by any SQLite-format-aware tool.
	MagicString = "SQLite format 3\x00"

	// DefaultPageSize is the default page size in bytes.
	DefaultPageSize = 4096
)

// JournalMode selects which durability mechanism backs the database.
type JournalMode uint8

const (
	// JournalModeRollback marks rollback-journal mode (spec §4.B). Only this
	// header flag is recorded; no journal file is written.
	JournalModeRollback JournalMode = 1
	// JournalModeWAL uses a write-ahead log (spec §4.B, default).
	JournalModeWAL JournalMode = 2
)

// Header field offsets, matching spec §6 exactly.
const (
	offsetMagic              = 0  // 16 bytes: magic string
	offsetPageSize           = 16 // 2 bytes: page size, big-endian (1 = 65536)
	offsetFormatWriteVersion = 18 // 1 byte: write version / journal mode
	offsetFormatReadVersion  = 19 // 1 byte: read version / journal mode
	offsetReservedPerPage    = 20 // 1 byte: reserved bytes at end of each page
	offsetMaxPayloadFrac     = 21 // 1 byte: max embedded payload fraction
	offsetMinPayloadFrac     = 22 // 1 byte: min embedded payload fraction
	offsetMinLeafPayloadFrac = 23 // 1 byte: min leaf payload fraction
	offsetChangeCounter      = 24 // 4 bytes: file change counter
	offsetPageCount          = 28 // 4 bytes: size of database in pages
	offsetFreeListHead       = 32 // 4 bytes: first freelist trunk page
	offsetFreeListCount      = 36 // 4 bytes: number of freelist pages
	offsetSchemaCookie       = 40 // 4 bytes: schema cookie
	offsetSchemaVersion      = 44 // 4 bytes: schema format version
	offsetDefaultCacheSize   = 48 // 4 bytes: default page cache size
	offsetLargestRootPage    = 52 // 4 bytes: largest root page (autovacuum)
	offsetTextEncoding       = 56 // 4 bytes: 1=UTF-8, 2=UTF-16le, 3=UTF-16be
	offsetUserVersion        = 60 // 4 bytes: user version
	offsetIncrementalVacuum  = 64 // 4 bytes: incremental vacuum mode
	offsetApplicationID      = 68 // 4 bytes: application ID
	offsetReserved           = 72 // 20 bytes: reserved for expansion
	offsetVersionValidFor    = 92 // 4 bytes: version-valid-for number
	offsetLibraryVersion     = 96 // 4 bytes: library write version
)

// Errors
var (
	ErrInvalidMagic    = errors.New("invalid magic string: not a celdb database")
	ErrHeaderTooShort  = errors.New("header data too short")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Header represents the 100-byte database file header (spec §6).
type Header struct {
	PageSize           uint32 // Page size in bytes; 65536 is encoded as 1 on the wire
	FormatWriteVersion uint8  // 1 = rollback journal, 2 = WAL
	FormatReadVersion  uint8  // 1 = rollback journal, 2 = WAL
	ReservedPerPage    uint8  // Reserved bytes at end of each page
	MaxPayloadFrac     uint8  // Max embedded payload fraction (default 64)
	MinPayloadFrac     uint8  // Min embedded payload fraction (default 32)
	MinLeafPayloadFrac uint8  // Min leaf payload fraction (default 32)
	ChangeCounter      uint32 // Incremented on each change
	PageCount          uint32 // Total number of pages in the database
	FreeListHead       uint32 // Page number of first freelist trunk (0 if none)
	FreeListCount      uint32 // Total number of freelist pages
	SchemaCookie       uint32 // Incremented on schema change
	SchemaVersion      uint32 // Schema format version
	DefaultCacheSize   uint32 // Suggested cache size
	LargestRootPage    uint32 // Largest root page (autovacuum)
	TextEncoding       uint32 // 1=UTF-8, 2=UTF-16le, 3=UTF-16be
	UserVersion        uint32 // User-defined version
	IncrementalVacuum  uint32 // Incremental vacuum mode
	ApplicationID      uint32 // Application ID
	VersionValidFor    uint32 // Change counter at time of library version
	LibraryVersion     uint32 // Library version number that wrote this file
}

// NewHeader creates a new header with default values.
func NewHeader() *Header {
	return &Header{
		PageSize:           DefaultPageSize,
		FormatWriteVersion: uint8(JournalModeWAL),
		FormatReadVersion:  uint8(JournalModeWAL),
		ReservedPerPage:    0,
		MaxPayloadFrac:     64,
		MinPayloadFrac:     32,
		MinLeafPayloadFrac: 32,
		ChangeCounter:      0,
		PageCount:          1, // Header page itself
		FreeListHead:       0,
		FreeListCount:      0,
		SchemaCookie:       0,
		SchemaVersion:      0,
		DefaultCacheSize:   1000,
		LargestRootPage:    0,
		TextEncoding:       1, // UTF-8
		UserVersion:        0,
		IncrementalVacuum:  0,
		ApplicationID:      0,
		VersionValidFor:    0,
		LibraryVersion:     1,
	}
}

// encodedPageSize returns the on-wire 16-bit page size field: the literal
// page size for everything below 65536, and 1 for exactly 65536 (the
// field has no other way to represent it), per spec §6.
func encodedPageSize(pageSize uint32) uint16 {
	if pageSize == 65536 {
		return 1
	}
	return uint16(pageSize)
}

func decodedPageSize(wire uint16) uint32 {
	if wire == 1 {
		return 65536
	}
	return uint32(wire)
}

// Encode serializes the header to a 100-byte slice, big-endian throughout
// as the SQLite 3 file format requires.
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)

	copy(data[offsetMagic:], MagicString)

	binary.BigEndian.PutUint16(data[offsetPageSize:], encodedPageSize(h.PageSize))

	data[offsetFormatWriteVersion] = h.FormatWriteVersion
	data[offsetFormatReadVersion] = h.FormatReadVersion

	data[offsetReservedPerPage] = h.ReservedPerPage
	data[offsetMaxPayloadFrac] = h.MaxPayloadFrac
	data[offsetMinPayloadFrac] = h.MinPayloadFrac
	data[offsetMinLeafPayloadFrac] = h.MinLeafPayloadFrac

	binary.BigEndian.PutUint32(data[offsetChangeCounter:], h.ChangeCounter)
	binary.BigEndian.PutUint32(data[offsetPageCount:], h.PageCount)
	binary.BigEndian.PutUint32(data[offsetFreeListHead:], h.FreeListHead)
	binary.BigEndian.PutUint32(data[offsetFreeListCount:], h.FreeListCount)
	binary.BigEndian.PutUint32(data[offsetSchemaCookie:], h.SchemaCookie)
	binary.BigEndian.PutUint32(data[offsetSchemaVersion:], h.SchemaVersion)
	binary.BigEndian.PutUint32(data[offsetDefaultCacheSize:], h.DefaultCacheSize)
	binary.BigEndian.PutUint32(data[offsetLargestRootPage:], h.LargestRootPage)
	binary.BigEndian.PutUint32(data[offsetTextEncoding:], h.TextEncoding)
	binary.BigEndian.PutUint32(data[offsetUserVersion:], h.UserVersion)
	binary.BigEndian.PutUint32(data[offsetIncrementalVacuum:], h.IncrementalVacuum)
	binary.BigEndian.PutUint32(data[offsetApplicationID:], h.ApplicationID)
	// Reserved bytes (72-91) are left as zeros.
	binary.BigEndian.PutUint32(data[offsetVersionValidFor:], h.VersionValidFor)
	binary.BigEndian.PutUint32(data[offsetLibraryVersion:], h.LibraryVersion)

	return data
}

// DecodeHeader deserializes a header from a byte slice.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrHeaderTooShort
	}

	if string(data[offsetMagic:offsetMagic+16]) != MagicString {
		return nil, ErrInvalidMagic
	}

	h := &Header{
		PageSize:           decodedPageSize(binary.BigEndian.Uint16(data[offsetPageSize:])),
		FormatWriteVersion: data[offsetFormatWriteVersion],
		FormatReadVersion:  data[offsetFormatReadVersion],
		ReservedPerPage:    data[offsetReservedPerPage],
		MaxPayloadFrac:     data[offsetMaxPayloadFrac],
		MinPayloadFrac:     data[offsetMinPayloadFrac],
		MinLeafPayloadFrac: data[offsetMinLeafPayloadFrac],
		ChangeCounter:      binary.BigEndian.Uint32(data[offsetChangeCounter:]),
		PageCount:          binary.BigEndian.Uint32(data[offsetPageCount:]),
		FreeListHead:       binary.BigEndian.Uint32(data[offsetFreeListHead:]),
		FreeListCount:      binary.BigEndian.Uint32(data[offsetFreeListCount:]),
		SchemaCookie:       binary.BigEndian.Uint32(data[offsetSchemaCookie:]),
		SchemaVersion:      binary.BigEndian.Uint32(data[offsetSchemaVersion:]),
		DefaultCacheSize:   binary.BigEndian.Uint32(data[offsetDefaultCacheSize:]),
		LargestRootPage:    binary.BigEndian.Uint32(data[offsetLargestRootPage:]),
		TextEncoding:       binary.BigEndian.Uint32(data[offsetTextEncoding:]),
		UserVersion:        binary.BigEndian.Uint32(data[offsetUserVersion:]),
		IncrementalVacuum:  binary.BigEndian.Uint32(data[offsetIncrementalVacuum:]),
		ApplicationID:      binary.BigEndian.Uint32(data[offsetApplicationID:]),
		VersionValidFor:    binary.BigEndian.Uint32(data[offsetVersionValidFor:]),
		LibraryVersion:     binary.BigEndian.Uint32(data[offsetLibraryVersion:]),
	}

	return h, nil
}

// JournalMode returns the durability mode recorded in the read-version
// field. The two modes are mutually exclusive per database (spec §4.B).
func (h *Header) JournalMode() JournalMode {
	return JournalMode(h.FormatReadVersion)
}

// SetJournalMode updates both the read and write version fields.
func (h *Header) SetJournalMode(mode JournalMode) {
	h.FormatWriteVersion = uint8(mode)
	h.FormatReadVersion = uint8(mode)
}
