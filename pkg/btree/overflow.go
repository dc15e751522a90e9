// pkg/btree/overflow.go
package btree

import (
	"encoding/binary"
	"fmt"
)

// Large values (e.g. TEXT/BLOB columns) don't fit whole inside a cell
// without starving the rest of the node, so any value over a quarter of
// the page is split into a short inline prefix plus a chain of overflow
// pages, the way SQLite spills oversized payloads. Every value BTree
// stores is tagged so Get/Cursor.Value can tell an inline value from a
// spilled one without guessing from its bytes.
const (
	valueTagInline   byte = 0x00
	valueTagOverflow byte = 0x01

	// overflowHeaderSize is the 4-byte next-page pointer at the start of
	// every overflow page; the rest of the page holds payload bytes.
	overflowHeaderSize = 4
)

// overflowThreshold returns the largest value this tree will store inline.
func (bt *BTree) overflowThreshold() int {
	return bt.pager.PageSize() / 4
}

// encodeValue tags value for storage, spilling the tail into an overflow
// chain when it's larger than overflowThreshold.
func (bt *BTree) encodeValue(value []byte) ([]byte, error) {
	threshold := bt.overflowThreshold()
	if len(value) <= threshold {
		out := make([]byte, 1+len(value))
		out[0] = valueTagInline
		copy(out[1:], value)
		return out, nil
	}

	local := value[:threshold]
	rest := value[threshold:]
	firstPage, err := bt.writeOverflowChain(rest)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 9+len(local))
	out[0] = valueTagOverflow
	binary.BigEndian.PutUint32(out[1:5], firstPage)
	binary.BigEndian.PutUint32(out[5:9], uint32(len(value)))
	copy(out[9:], local)
	return out, nil
}

// decodeValue reverses encodeValue, following the overflow chain (if any)
// to reassemble the full value.
func (bt *BTree) decodeValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, nil
	}

	switch stored[0] {
	case valueTagInline:
		return stored[1:], nil

	case valueTagOverflow:
		if len(stored) < 9 {
			return nil, fmt.Errorf("btree: truncated overflow header")
		}
		firstPage := binary.BigEndian.Uint32(stored[1:5])
		totalLen := binary.BigEndian.Uint32(stored[5:9])
		local := stored[9:]

		result := make([]byte, 0, totalLen)
		result = append(result, local...)

		pageNo := firstPage
		for pageNo != 0 && len(result) < int(totalLen) {
			page, err := bt.pager.Get(pageNo)
			if err != nil {
				return nil, err
			}
			next := binary.BigEndian.Uint32(page.Data()[0:4])
			chunk := page.Data()[overflowHeaderSize:]
			if remaining := int(totalLen) - len(result); remaining < len(chunk) {
				chunk = chunk[:remaining]
			}
			result = append(result, chunk...)
			bt.pager.Release(page)
			pageNo = next
		}
		return result, nil

	default:
		return nil, fmt.Errorf("btree: unknown value tag %d", stored[0])
	}
}

// writeOverflowChain allocates and links the pages needed to hold data,
// returning the first page number (0 if data is empty).
func (bt *BTree) writeOverflowChain(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}

	chunkSize := bt.pager.PageSize() - overflowHeaderSize
	var pages []uint32
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		page, err := bt.pager.Allocate()
		if err != nil {
			return 0, err
		}
		binary.BigEndian.PutUint32(page.Data()[0:4], 0)
		copy(page.Data()[overflowHeaderSize:], data[off:end])
		page.SetDirty(true)
		pages = append(pages, page.PageNo())
		bt.pager.Release(page)
	}

	for i := 0; i < len(pages)-1; i++ {
		page, err := bt.pager.Get(pages[i])
		if err != nil {
			return 0, err
		}
		binary.BigEndian.PutUint32(page.Data()[0:4], pages[i+1])
		page.SetDirty(true)
		bt.pager.Release(page)
	}

	return pages[0], nil
}

// freeOverflowChain releases every page in the chain stored's overflow tag
// points to, if any. Called before a cell carrying an overflow value is
// deleted or overwritten so spilled pages don't leak.
func (bt *BTree) freeOverflowChain(stored []byte) error {
	if len(stored) == 0 || stored[0] != valueTagOverflow {
		return nil
	}
	if len(stored) < 9 {
		return nil
	}

	pageNo := binary.BigEndian.Uint32(stored[1:5])
	for pageNo != 0 {
		page, err := bt.pager.Get(pageNo)
		if err != nil {
			return err
		}
		next := binary.BigEndian.Uint32(page.Data()[0:4])
		bt.pager.Release(page)
		if err := bt.pager.Free(pageNo); err != nil {
			return err
		}
		pageNo = next
	}
	return nil
}
