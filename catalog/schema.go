package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/elerspay/DBMS/common"
)

// RowIDColumn is the synthetic INT column appended to every table. It is
// assigned monotonically on insert and never surfaced by SELECT *.
const RowIDColumn = "__rowid__"

// Column is one declared column plus its constraint flags.
type Column struct {
	Name       string            `json:"name"`
	Type       common.ColumnType `json:"type"`
	NotNull    bool              `json:"not_null,omitempty"`
	PrimaryKey bool              `json:"primary_key,omitempty"`
	Unique     bool              `json:"unique,omitempty"`
	// Default is the textual literal applied when an INSERT omits the
	// column; nil means NULL.
	Default *string `json:"default,omitempty"`
}

// Schema is a table descriptor: the header-file content mirrored from the
// catalog. Columns are kept in declaration order with RowIDColumn last.
type Schema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
	// Indexes lists column names backed by a persistent ordered index.
	Indexes []string `json:"indexes"`
	// NextRowID is the insert watermark for RowIDColumn.
	NextRowID int64 `json:"next_rowid"`
}

// NewSchema validates the user columns and appends the rowid column.
func NewSchema(table string, cols []Column) (*Schema, error) {
	if len(table) == 0 || len(table) >= common.MaxNameLen {
		return nil, common.Errorf(common.TypeMismatch, "table name %q exceeds %d bytes", table, common.MaxNameLen-1)
	}
	if len(cols) == 0 {
		return nil, common.Errorf(common.TypeMismatch, "table %q has no columns", table)
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if len(c.Name) == 0 || len(c.Name) >= common.MaxNameLen {
			return nil, common.Errorf(common.TypeMismatch, "column name %q exceeds %d bytes", c.Name, common.MaxNameLen-1)
		}
		if c.Name == RowIDColumn {
			return nil, common.Errorf(common.AlreadyExists, "column name %q is reserved", RowIDColumn)
		}
		if seen[c.Name] {
			return nil, common.Errorf(common.AlreadyExists, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if (c.Type.Kind == common.CharKind || c.Type.Kind == common.VarcharKind) && c.Type.Len <= 0 {
			return nil, common.Errorf(common.TypeMismatch, "column %q needs a positive length", c.Name)
		}
	}

	s := &Schema{Table: table, NextRowID: 1}
	s.Columns = append(s.Columns, cols...)
	s.Columns = append(s.Columns, Column{
		Name: RowIDColumn,
		Type: common.ColumnType{Kind: common.IntKind},
	})
	return s, nil
}

// ColumnIndex locates a column by name; -1 if absent.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// UserColumns returns the declared columns without the trailing rowid.
func (s *Schema) UserColumns() []Column {
	return s.Columns[:len(s.Columns)-1]
}

// RowWidth is the fixed byte size of an encoded row: one null marker plus
// the type width per column.
func (s *Schema) RowWidth() int {
	w := 0
	for _, c := range s.Columns {
		w += 1 + c.Type.Width()
	}
	return w
}

// HasIndex reports whether the column carries an index.
func (s *Schema) HasIndex(col string) bool {
	for _, c := range s.Indexes {
		if c == col {
			return true
		}
	}
	return false
}

// AddIndex records an index on the column.
func (s *Schema) AddIndex(col string) error {
	if s.ColumnIndex(col) < 0 {
		return common.Errorf(common.NotFound, "column %q does not exist in table %q", col, s.Table)
	}
	if s.HasIndex(col) {
		return common.Errorf(common.AlreadyExists, "index on %s(%s) already exists", s.Table, col)
	}
	s.Indexes = append(s.Indexes, col)
	return nil
}

// RemoveIndex forgets the index on the column.
func (s *Schema) RemoveIndex(col string) error {
	for i, c := range s.Indexes {
		if c == col {
			s.Indexes = append(s.Indexes[:i], s.Indexes[i+1:]...)
			return nil
		}
	}
	return common.Errorf(common.NotFound, "no index on %s(%s)", s.Table, col)
}

// HeaderPath returns the location of a table's header file.
func HeaderPath(dir, table string) string {
	return filepath.Join(dir, table+".thead")
}

// LoadSchema reads a table header file.
func LoadSchema(dir, table string) (*Schema, error) {
	buf, err := os.ReadFile(HeaderPath(dir, table))
	if os.IsNotExist(err) {
		return nil, common.Errorf(common.NotFound, "table %q does not exist", table)
	}
	if err != nil {
		return nil, common.WrapIO("read table header", err)
	}
	s := &Schema{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, common.Errorf(common.StorageIO, "corrupt header for table %q: %v", table, err)
	}
	return s, nil
}

// Save writes the header file atomically, like the catalog blob.
func (s *Schema) Save(dir string) error {
	buf, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return common.Errorf(common.Internal, "encode header: %v", err)
	}
	final := HeaderPath(dir, s.Table)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return common.WrapIO("write table header", err)
	}
	return common.WrapIO("rename table header", os.Rename(tmp, final))
}
