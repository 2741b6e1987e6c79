// Package catalog persists the database descriptor and the per-table
// schema headers.
//
// The database descriptor is a single fixed-layout blob at <name>.database:
// a table count, the database name, and one name slot per possible table.
// Reading a user table starts from this blob; the per-table detail
// (columns, flags, indexes) lives in the table's own header file so the
// blob never changes size.
package catalog

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/elerspay/DBMS/common"
)

// blobSize is the exact on-disk size of a database descriptor:
// 4 bytes table count + name + MaxTableNum name slots.
const blobSize = 4 + common.MaxNameLen + common.MaxTableNum*common.MaxNameLen

// DatabaseInfo is the in-memory form of the catalog blob: the database
// name and the ordered table list.
type DatabaseInfo struct {
	Name   string
	Tables []string
}

// Path returns the catalog blob location for a database.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".database")
}

// Exists reports whether a catalog blob is present for the database.
func Exists(dir, name string) bool {
	_, err := os.Stat(Path(dir, name))
	return err == nil
}

func putName(buf []byte, s string) error {
	if len(s) == 0 || len(s) >= common.MaxNameLen {
		return common.Errorf(common.TypeMismatch, "identifier %q exceeds %d bytes", s, common.MaxNameLen-1)
	}
	copy(buf[:common.MaxNameLen], s)
	return nil
}

func getName(buf []byte) string {
	end := 0
	for end < common.MaxNameLen && buf[end] != 0 {
		end++
	}
	return string(buf[:end])
}

func (info *DatabaseInfo) encode() ([]byte, error) {
	if len(info.Tables) > common.MaxTableNum {
		return nil, common.Errorf(common.Internal, "table count %d exceeds %d", len(info.Tables), common.MaxTableNum)
	}
	buf := make([]byte, blobSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(info.Tables)))
	if err := putName(buf[4:], info.Name); err != nil {
		return nil, err
	}
	for i, t := range info.Tables {
		off := 4 + common.MaxNameLen + i*common.MaxNameLen
		if err := putName(buf[off:], t); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func decode(buf []byte) (*DatabaseInfo, error) {
	if len(buf) != blobSize {
		return nil, common.Errorf(common.StorageIO, "catalog blob has %d bytes, want %d", len(buf), blobSize)
	}
	count := int(binary.LittleEndian.Uint32(buf))
	if count < 0 || count > common.MaxTableNum {
		return nil, common.Errorf(common.StorageIO, "catalog blob reports %d tables", count)
	}
	info := &DatabaseInfo{
		Name:   getName(buf[4:]),
		Tables: make([]string, 0, count),
	}
	for i := 0; i < count; i++ {
		off := 4 + common.MaxNameLen + i*common.MaxNameLen
		info.Tables = append(info.Tables, getName(buf[off:]))
	}
	return info, nil
}

// Load reads the catalog blob for a database.
func Load(dir, name string) (*DatabaseInfo, error) {
	buf, err := os.ReadFile(Path(dir, name))
	if os.IsNotExist(err) {
		return nil, common.Errorf(common.NotFound, "database %q does not exist", name)
	}
	if err != nil {
		return nil, common.WrapIO("read catalog", err)
	}
	return decode(buf)
}

// Save writes the catalog blob atomically: a temporary file is renamed
// over the final path so a crash never leaves a torn catalog.
func (info *DatabaseInfo) Save(dir string) error {
	buf, err := info.encode()
	if err != nil {
		return err
	}
	final := Path(dir, info.Name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return common.WrapIO("write catalog", err)
	}
	return common.WrapIO("rename catalog", os.Rename(tmp, final))
}

// Remove deletes the catalog blob.
func Remove(dir, name string) error {
	return common.WrapIO("remove catalog", os.Remove(Path(dir, name)))
}

// TableIndex locates a table in the catalog order; -1 if absent.
func (info *DatabaseInfo) TableIndex(table string) int {
	for i, t := range info.Tables {
		if t == table {
			return i
		}
	}
	return -1
}

// AddTable appends a table name, enforcing the uniqueness and capacity
// invariants.
func (info *DatabaseInfo) AddTable(table string) error {
	if info.TableIndex(table) >= 0 {
		return common.Errorf(common.AlreadyExists, "table %q already exists", table)
	}
	if len(info.Tables) >= common.MaxTableNum {
		return common.Errorf(common.ConstraintViolation, "database %q is full (%d tables)", info.Name, common.MaxTableNum)
	}
	info.Tables = append(info.Tables, table)
	return nil
}

// RemoveTable deletes a table name, shifting the tail to close the gap.
func (info *DatabaseInfo) RemoveTable(table string) error {
	id := info.TableIndex(table)
	if id < 0 {
		return common.Errorf(common.NotFound, "table %q does not exist", table)
	}
	info.Tables = append(info.Tables[:id], info.Tables[id+1:]...)
	return nil
}
