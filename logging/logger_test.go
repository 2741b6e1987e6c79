package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elerspay/DBMS/config"
)

func TestLoggerRecordFields(t *testing.T) {
	var buf bytes.Buffer
	l := WriterLogger(&buf)
	l.SetUser("alice")

	l.Info(Record{
		Op:       "insert",
		Database: "shop",
		Table:    "orders",
		SQL:      "INSERT INTO orders VALUES (1)",
		Affected: 1,
	})

	out := buf.String()
	for _, want := range []string{"alice", "insert", "shop", "orders", "affected_rows=1", "success=true"} {
		assert.Contains(t, out, want)
	}
}

func TestErrorsDuplicatedToErrorLog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.LogFile = filepath.Join(dir, "op.log")
	cfg.ErrorLogFile = filepath.Join(dir, "err.log")

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info(Record{Op: "use database", Database: "d"})
	l.Error(Record{Op: "drop table", Table: "missing"}, errors.New("no such table"))
	l.Close()

	op, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(op), "use database")
	assert.Contains(t, string(op), "no such table")

	errlog, err := os.ReadFile(cfg.ErrorLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(errlog), "no such table")
	assert.NotContains(t, string(errlog), "use database")
}

func TestNoopLoggerIsSilent(t *testing.T) {
	l := Noop()
	l.Info(Record{Op: "select"})
	l.Error(Record{Op: "select"}, errors.New("x"))
	l.Debugf("plan: %s", "heap scan t")
}
