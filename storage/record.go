package storage

import (
	"github.com/elerspay/DBMS/common"

	"github.com/elerspay/DBMS/catalog"
)

// EncodeRow serializes a full row (rowid included) into buf. Values must
// already be cast to their column types.
func EncodeRow(s *catalog.Schema, vals []common.Value, buf []byte) {
	common.Assert(len(vals) == len(s.Columns), "row has %d values, schema has %d columns", len(vals), len(s.Columns))
	common.Assert(len(buf) >= s.RowWidth(), "row buffer too small")
	off := 0
	for i, c := range s.Columns {
		common.EncodeValue(c.Type, vals[i], buf[off:])
		off += 1 + c.Type.Width()
	}
}

// DecodeRow deserializes a full row.
func DecodeRow(s *catalog.Schema, buf []byte) []common.Value {
	common.Assert(len(buf) >= s.RowWidth(), "row buffer too small")
	vals := make([]common.Value, len(s.Columns))
	off := 0
	for i, c := range s.Columns {
		vals[i] = common.DecodeValue(c.Type, buf[off:])
		off += 1 + c.Type.Width()
	}
	return vals
}
