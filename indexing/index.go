// Package indexing provides the persistent per-column ordered index:
// a B-tree of (key, record id) pairs kept in sync with the heap and
// rewritten to its .tindex file on flush.
package indexing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/btree"

	"github.com/elerspay/DBMS/common"
)

type item struct {
	key common.Value
	rid common.RecordID
}

// Index is an ordered mapping from column value to record id. Keys are
// ordered by the column comparison with NULL first; duplicate keys are
// tie-broken by record id so the tree stays a set.
type Index struct {
	tree  *btree.BTreeG[item]
	path  string
	col   common.ColumnType
	dirty bool
}

// IndexPath names the index file for a table column.
func IndexPath(dir, table, col string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.tindex", table, col))
}

func newTree(col common.ColumnType) *btree.BTreeG[item] {
	less := func(a, b item) bool {
		cmp, ok := a.key.Compare(b.key)
		common.Assert(ok, "incomparable keys in %s index", col)
		if cmp != 0 {
			return cmp < 0
		}
		return a.rid.Less(b.rid)
	}
	return btree.NewBTreeG(less)
}

// Create starts an empty index. The file appears on the first Flush.
func Create(path string, col common.ColumnType) *Index {
	return &Index{tree: newTree(col), path: path, col: col, dirty: true}
}

// entrySize is the on-disk footprint of one index entry: the encoded key
// plus an 8-byte record id.
func (ix *Index) entrySize() int {
	return 1 + ix.col.Width() + 8
}

// Open loads an index file into memory.
func Open(path string, col common.ColumnType) (*Index, error) {
	ix := &Index{tree: newTree(col), path: path, col: col}
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, common.Errorf(common.NotFound, "index file %q does not exist", path)
	}
	if err != nil {
		return nil, common.WrapIO("read index", err)
	}

	es := ix.entrySize()
	if len(buf)%es != 0 {
		return nil, common.Errorf(common.StorageIO, "index file %q is torn (%d bytes)", path, len(buf))
	}
	for off := 0; off < len(buf); off += es {
		entry := buf[off : off+es]
		ridOff := 1 + ix.col.Width()
		ix.tree.Set(item{
			key: common.DecodeValue(ix.col, entry),
			rid: decodeRID(entry[ridOff:]),
		})
	}
	return ix, nil
}

func encodeRID(rid common.RecordID, buf []byte) {
	buf[0] = byte(rid.Page)
	buf[1] = byte(rid.Page >> 8)
	buf[2] = byte(rid.Page >> 16)
	buf[3] = byte(rid.Page >> 24)
	buf[4] = byte(rid.Slot)
	buf[5] = byte(rid.Slot >> 8)
	buf[6] = byte(rid.Slot >> 16)
	buf[7] = byte(rid.Slot >> 24)
}

func decodeRID(buf []byte) common.RecordID {
	return common.RecordID{
		Page: int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24,
		Slot: int32(buf[4]) | int32(buf[5])<<8 | int32(buf[6])<<16 | int32(buf[7])<<24,
	}
}

// Insert adds an entry. Inserting the same (key, rid) twice is a no-op.
func (ix *Index) Insert(key common.Value, rid common.RecordID) {
	ix.tree.Set(item{key: key, rid: rid})
	ix.dirty = true
}

// Delete removes an entry if present.
func (ix *Index) Delete(key common.Value, rid common.RecordID) {
	if _, deleted := ix.tree.Delete(item{key: key, rid: rid}); deleted {
		ix.dirty = true
	}
}

// Len reports the number of entries.
func (ix *Index) Len() int { return ix.tree.Len() }

// AscendFrom walks entries in key order starting at the lower bound of
// key, until fn returns false. Equality probes stop themselves at the
// first key past the probe value.
func (ix *Index) AscendFrom(key common.Value, fn func(key common.Value, rid common.RecordID) bool) {
	pivot := item{key: key, rid: common.RecordID{Page: -1 << 30, Slot: 0}}
	ix.tree.Ascend(pivot, func(it item) bool {
		return fn(it.key, it.rid)
	})
}

// Ascend walks every entry in key order.
func (ix *Index) Ascend(fn func(key common.Value, rid common.RecordID) bool) {
	ix.tree.Scan(func(it item) bool {
		return fn(it.key, it.rid)
	})
}

// Flush rewrites the index file from the in-memory tree, atomically.
func (ix *Index) Flush() error {
	if !ix.dirty {
		return nil
	}
	buf := make([]byte, 0, ix.tree.Len()*ix.entrySize())
	entry := make([]byte, ix.entrySize())
	ix.tree.Scan(func(it item) bool {
		common.EncodeValue(ix.col, it.key, entry)
		encodeRID(it.rid, entry[1+ix.col.Width():])
		buf = append(buf, entry...)
		return true
	})

	tmp := ix.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return common.WrapIO("write index", err)
	}
	if err := os.Rename(tmp, ix.path); err != nil {
		return common.WrapIO("rename index", err)
	}
	ix.dirty = false
	return nil
}

// Close flushes the index.
func (ix *Index) Close() error { return ix.Flush() }

// Drop removes the index file; the in-memory tree is discarded.
func (ix *Index) Drop() error {
	ix.tree = newTree(ix.col)
	ix.dirty = false
	err := os.Remove(ix.path)
	if err != nil && !os.IsNotExist(err) {
		return common.WrapIO("remove index", err)
	}
	return nil
}
