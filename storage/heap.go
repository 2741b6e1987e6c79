package storage

import (
	"encoding/binary"
	"path/filepath"

	"github.com/elerspay/DBMS/common"
)

// Heap page layout:
//
//	NumUsed (2) | allocation bitmap | fixed-size rows
//
// Slots are filled lowest-first, so a heap with no deletions yields rows
// in insertion order.
const heapHeaderSize = 2

// HeapFile is a paged file of fixed-size records.
type HeapFile struct {
	pager        *Pager
	rowSize      int
	slotsPerPage int
	bitmapBytes  int

	// firstFree is a hint: no page below it has a free slot.
	firstFree int32
}

// DataPath names the heap file for a table.
func DataPath(dir, table string) string {
	return filepath.Join(dir, table+".tdata")
}

// OpenHeap opens (or creates) a heap whose records are rowSize bytes.
func OpenHeap(path string, rowSize, cachePages int) (*HeapFile, error) {
	if rowSize <= 0 || rowSize > common.PageSize-heapHeaderSize-1 {
		return nil, common.Errorf(common.TypeMismatch, "rows of %d bytes do not fit a %d-byte page", rowSize, common.PageSize)
	}
	pager, err := OpenPager(path, cachePages)
	if err != nil {
		return nil, err
	}

	// Solve slots*rowSize + ceil(slots/8) + header <= PageSize.
	slots := (common.PageSize - heapHeaderSize) * 8 / (rowSize*8 + 1)
	for slots*rowSize+(slots+7)/8+heapHeaderSize > common.PageSize {
		slots--
	}
	return &HeapFile{
		pager:        pager,
		rowSize:      rowSize,
		slotsPerPage: slots,
		bitmapBytes:  (slots + 7) / 8,
	}, nil
}

func (h *HeapFile) numUsed(page []byte) int {
	return int(binary.LittleEndian.Uint16(page))
}

func (h *HeapFile) setNumUsed(page []byte, n int) {
	binary.LittleEndian.PutUint16(page, uint16(n))
}

func (h *HeapFile) slotUsed(page []byte, slot int) bool {
	return page[heapHeaderSize+slot/8]&(1<<(slot%8)) != 0
}

func (h *HeapFile) setSlot(page []byte, slot int, used bool) {
	if used {
		page[heapHeaderSize+slot/8] |= 1 << (slot % 8)
	} else {
		page[heapHeaderSize+slot/8] &^= 1 << (slot % 8)
	}
}

func (h *HeapFile) rowAt(page []byte, slot int) []byte {
	start := heapHeaderSize + h.bitmapBytes + slot*h.rowSize
	return page[start : start+h.rowSize]
}

// Insert stores a record in the first free slot, extending the file when
// every page is full.
func (h *HeapFile) Insert(row []byte) (common.RecordID, error) {
	common.Assert(len(row) == h.rowSize, "record has %d bytes, heap rows have %d", len(row), h.rowSize)

	for n := h.firstFree; n < h.pager.PageCount(); n++ {
		page, err := h.pager.Page(n)
		if err != nil {
			return common.RecordID{}, err
		}
		used := h.numUsed(page)
		if used == h.slotsPerPage {
			h.firstFree = n + 1
			continue
		}
		for slot := 0; slot < h.slotsPerPage; slot++ {
			if h.slotUsed(page, slot) {
				continue
			}
			copy(h.rowAt(page, slot), row)
			h.setSlot(page, slot, true)
			h.setNumUsed(page, used+1)
			h.pager.MarkDirty(n)
			return common.RecordID{Page: n, Slot: int32(slot)}, nil
		}
	}

	n, page, err := h.pager.Allocate()
	if err != nil {
		return common.RecordID{}, err
	}
	copy(h.rowAt(page, 0), row)
	h.setSlot(page, 0, true)
	h.setNumUsed(page, 1)
	h.firstFree = n
	return common.RecordID{Page: n, Slot: 0}, nil
}

func (h *HeapFile) locate(rid common.RecordID) ([]byte, error) {
	if rid.Page < 0 || rid.Page >= h.pager.PageCount() || rid.Slot < 0 || int(rid.Slot) >= h.slotsPerPage {
		return nil, common.Errorf(common.NotFound, "%s is not a valid record", rid)
	}
	page, err := h.pager.Page(rid.Page)
	if err != nil {
		return nil, err
	}
	if !h.slotUsed(page, int(rid.Slot)) {
		return nil, common.Errorf(common.NotFound, "%s does not hold a record", rid)
	}
	return page, nil
}

// Read copies the record at rid into buf.
func (h *HeapFile) Read(rid common.RecordID, buf []byte) error {
	common.Assert(len(buf) >= h.rowSize, "read buffer too small")
	page, err := h.locate(rid)
	if err != nil {
		return err
	}
	copy(buf, h.rowAt(page, int(rid.Slot)))
	return nil
}

// Write replaces the record at rid.
func (h *HeapFile) Write(rid common.RecordID, row []byte) error {
	common.Assert(len(row) == h.rowSize, "record has %d bytes, heap rows have %d", len(row), h.rowSize)
	page, err := h.locate(rid)
	if err != nil {
		return err
	}
	copy(h.rowAt(page, int(rid.Slot)), row)
	h.pager.MarkDirty(rid.Page)
	return nil
}

// Delete frees the slot at rid.
func (h *HeapFile) Delete(rid common.RecordID) error {
	page, err := h.locate(rid)
	if err != nil {
		return err
	}
	h.setSlot(page, int(rid.Slot), false)
	h.setNumUsed(page, h.numUsed(page)-1)
	h.pager.MarkDirty(rid.Page)
	if rid.Page < h.firstFree {
		h.firstFree = rid.Page
	}
	return nil
}

// Scan visits every record in page/slot order. fn returning false stops
// the scan early; an error aborts it.
func (h *HeapFile) Scan(fn func(rid common.RecordID, row []byte) (bool, error)) error {
	for n := int32(0); n < h.pager.PageCount(); n++ {
		page, err := h.pager.Page(n)
		if err != nil {
			return err
		}
		for slot := 0; slot < h.slotsPerPage; slot++ {
			if !h.slotUsed(page, slot) {
				continue
			}
			cont, err := fn(common.RecordID{Page: n, Slot: int32(slot)}, h.rowAt(page, slot))
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

// Flush writes dirty pages back.
func (h *HeapFile) Flush() error { return h.pager.Flush() }

// Close flushes and releases the heap file.
func (h *HeapFile) Close() error { return h.pager.Close() }
