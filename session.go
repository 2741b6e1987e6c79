package dbms

import (
	"fmt"
	"io"
	"os"

	"github.com/elerspay/DBMS/catalog"
	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/config"
	"github.com/elerspay/DBMS/execution"
	"github.com/elerspay/DBMS/logging"
	"github.com/elerspay/DBMS/parser"
)

// Session is the engine's entry point: it owns the currently open
// database, the statement-scoped row cache, the executor and the result
// sink. One statement runs at a time; the cache is cleared at every
// statement boundary.
type Session struct {
	cfg   *config.Config
	log   *logging.Logger
	db    *Database
	cache *execution.RowCache
	exec  *execution.Executor

	out     io.Writer
	outFile *os.File

	// Diag receives the human [Info]/[Error] lines.
	Diag io.Writer
}

// NewSession wires a session from the configuration. The result sink
// starts at cfg.Output.
func NewSession(cfg *config.Config, log *logging.Logger) (*Session, error) {
	cache := execution.NewRowCache()
	s := &Session{
		cfg:   cfg,
		log:   log,
		cache: cache,
		exec:  execution.NewExecutor(log, cache),
		out:   os.Stdout,
		Diag:  os.Stderr,
	}
	if err := s.SwitchOutput(cfg.Output); err != nil {
		return nil, err
	}
	return s, nil
}

// SetUser names the session user for log records.
func (s *Session) SetUser(user string) { s.log.SetUser(user) }

// LastPlan describes the most recent access plan chosen by the executor.
func (s *Session) LastPlan() string { return s.exec.LastPlan }

// Close closes the open database and the output file.
func (s *Session) Close() error {
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
		s.db = nil
	}
	if s.outFile != nil {
		if err := s.outFile.Close(); err != nil && firstErr == nil {
			firstErr = common.WrapIO("close output", err)
		}
		s.outFile = nil
	}
	return firstErr
}

// SwitchOutput redirects query results to "stdout" or a file path.
func (s *Session) SwitchOutput(sink string) error {
	if s.outFile != nil {
		s.outFile.Close()
		s.outFile = nil
	}
	if sink == "" || sink == "stdout" {
		s.out = os.Stdout
		return nil
	}
	f, err := os.Create(sink)
	if err != nil {
		return common.WrapIO("open output", err)
	}
	s.outFile = f
	s.out = f
	return nil
}

func (s *Session) infof(format string, args ...any) {
	fmt.Fprintf(s.Diag, "[Info] "+format+"\n", args...)
}

// Execute parses and runs one statement. The row cache is cleared when
// the statement finishes, success or not.
func (s *Session) Execute(sql string) error {
	defer s.cache.Clear()

	stmt, err := parser.Parse(sql)
	if err != nil {
		s.log.Error(logging.Record{Op: "parse", SQL: sql}, err)
		fmt.Fprintf(s.Diag, "[Error] %v\n", err)
		return err
	}
	if err := s.dispatch(stmt, sql); err != nil {
		fmt.Fprintf(s.Diag, "[Error] %v\n", err)
		return err
	}
	return nil
}

func (s *Session) dispatch(stmt parser.Statement, sql string) error {
	switch n := stmt.(type) {
	case parser.CreateDatabase:
		return s.CreateDatabase(n.Name, sql)
	case parser.DropDatabase:
		return s.DropDatabase(n.Name, sql)
	case parser.UseDatabase:
		return s.UseDatabase(n.Name, sql)
	case parser.ShowDatabase:
		return s.ShowDatabase(n.Name)
	case parser.CreateTable:
		return s.CreateTable(n, sql)
	case parser.DropTable:
		return s.DropTable(n.Name, sql)
	case parser.RenameTable:
		return s.RenameTable(n.Old, n.New, sql)
	case parser.ShowTable:
		return s.ShowTable(n.Name)
	case parser.AlterAddColumn:
		return s.AlterAddColumn(n, sql)
	case parser.AlterDropColumn:
		return s.AlterDropColumn(n, sql)
	case parser.AlterModifyColumn:
		return s.AlterModifyColumn(n, sql)
	case parser.AlterRenameColumn:
		return s.AlterRenameColumn(n, sql)
	case parser.CreateIndex:
		return s.CreateIndex(n.Table, n.Column, sql)
	case parser.DropIndex:
		return s.DropIndex(n.Table, n.Column, sql)
	case parser.Insert:
		_, _, err := s.Insert(n, sql)
		return err
	case parser.Delete:
		_, err := s.Delete(n, sql)
		return err
	case parser.Update:
		_, _, err := s.Update(n, sql)
		return err
	case parser.Select:
		_, err := s.Select(n, sql)
		return err
	case parser.Output:
		return s.SwitchOutput(n.Sink)
	}
	return common.Errorf(common.Internal, "unhandled statement %T", stmt)
}

func (s *Session) requireDB() (*Database, error) {
	if s.db == nil {
		return nil, common.Errorf(common.NotOpen, "no database is open")
	}
	return s.db, nil
}

func (s *Session) logOp(op, table, sql string, affected int, err error, msg string) {
	rec := logging.Record{Op: op, Table: table, SQL: sql, Affected: affected, Message: msg}
	if s.db != nil {
		rec.Database = s.db.Name()
	}
	if err != nil {
		s.log.Error(rec, err)
		return
	}
	s.log.Info(rec)
}

// CreateDatabase writes a fresh catalog blob; the current database stays
// open.
func (s *Session) CreateDatabase(name, sql string) error {
	err := CreateDatabase(s.cfg.DataDir, name)
	s.logOp("create database", "", sql, 0, err, "database "+name)
	return err
}

// UseDatabase closes any open database and opens the requested one.
func (s *Session) UseDatabase(name, sql string) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logOp("use database", "", sql, 0, err, "closing "+s.db.Name())
			return err
		}
		s.db = nil
	}
	db, err := OpenDatabase(s.cfg.DataDir, name, s.cfg.PageCachePages)
	s.logOp("use database", "", sql, 0, err, "database "+name)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// DropDatabase drops every table and removes the catalog blob, closing
// the database first if it is the current one.
func (s *Session) DropDatabase(name, sql string) error {
	db := s.db
	if db != nil && db.Name() == name {
		s.db = nil
	} else {
		var err error
		db, err = OpenDatabase(s.cfg.DataDir, name, s.cfg.PageCachePages)
		if err != nil {
			s.logOp("drop database", "", sql, 0, err, "")
			return err
		}
	}
	err := db.Drop()
	s.logOp("drop database", "", sql, 0, err, "database "+name)
	return err
}

// ShowDatabase prints the catalog summary.
func (s *Session) ShowDatabase(name string) error {
	var info *catalog.DatabaseInfo
	if s.db != nil && s.db.Name() == name {
		info = s.db.Info()
	} else {
		var err error
		info, err = catalog.Load(s.cfg.DataDir, name)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "======== Database Info Begin ========\n")
	fmt.Fprintf(s.out, "Database name = %s\n", info.Name)
	fmt.Fprintf(s.out, "Table number  = %d\n", len(info.Tables))
	for _, t := range info.Tables {
		fmt.Fprintf(s.out, "  [table] name = %s\n", t)
	}
	fmt.Fprintf(s.out, "======== Database Info End   ========\n")
	return nil
}

func columnFromDef(def parser.ColumnDef) catalog.Column {
	col := catalog.Column{
		Name:       def.Name,
		Type:       def.Type,
		NotNull:    def.NotNull,
		PrimaryKey: def.PrimaryKey,
		Unique:     def.Unique,
	}
	if def.Default != nil {
		text := (&parser.Literal{Val: *def.Default}).String()
		col.Default = &text
	}
	return col
}

// CreateTable appends the descriptor if the name is free and creates the
// heap and header storage.
func (s *Session) CreateTable(stmt parser.CreateTable, sql string) error {
	db, err := s.requireDB()
	if err != nil {
		s.logOp("create table", stmt.Name, sql, 0, err, "")
		return err
	}
	cols := make([]catalog.Column, 0, len(stmt.Columns))
	for _, def := range stmt.Columns {
		cols = append(cols, columnFromDef(def))
	}
	schema, err := catalog.NewSchema(stmt.Name, cols)
	if err == nil {
		err = db.CreateTable(schema)
	}
	s.logOp("create table", stmt.Name, sql, 0, err, fmt.Sprintf("%d columns", len(stmt.Columns)))
	return err
}

func (s *Session) DropTable(name, sql string) error {
	db, err := s.requireDB()
	if err == nil {
		err = db.DropTable(name)
	}
	s.logOp("drop table", name, sql, 0, err, "")
	return err
}

func (s *Session) RenameTable(oldName, newName, sql string) error {
	db, err := s.requireDB()
	if err == nil {
		err = db.RenameTable(oldName, newName)
	}
	s.logOp("rename table", oldName, sql, 0, err, "renamed to "+newName)
	if err == nil {
		s.infof("Table renamed from `%s` to `%s`", oldName, newName)
	}
	return err
}

// ShowTable prints the table's column descriptors and indexes.
func (s *Session) ShowTable(name string) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}
	t := db.Table(name)
	if t == nil {
		return common.Errorf(common.NotFound, "table %q does not exist", name)
	}
	schema := t.Schema()
	fmt.Fprintf(s.out, "======== Table Info Begin ========\n")
	fmt.Fprintf(s.out, "Table name   = %s\n", schema.Table)
	fmt.Fprintf(s.out, "Column count = %d\n", len(schema.UserColumns()))
	for _, c := range schema.UserColumns() {
		flags := ""
		if c.PrimaryKey {
			flags += " PRIMARY KEY"
		}
		if c.Unique {
			flags += " UNIQUE"
		}
		if c.NotNull {
			flags += " NOT NULL"
		}
		if schema.HasIndex(c.Name) {
			flags += " INDEXED"
		}
		fmt.Fprintf(s.out, "  [column] %s %s%s\n", c.Name, c.Type, flags)
	}
	fmt.Fprintf(s.out, "======== Table Info End   ========\n")
	return nil
}

func (s *Session) CreateIndex(table, column, sql string) error {
	db, err := s.requireDB()
	if err == nil {
		t := db.Table(table)
		if t == nil {
			err = common.Errorf(common.NotFound, "table %q does not exist", table)
		} else {
			err = t.CreateIndex(column)
		}
	}
	s.logOp("create index", table, sql, 0, err, "column "+column)
	return err
}

func (s *Session) DropIndex(table, column, sql string) error {
	db, err := s.requireDB()
	if err == nil {
		t := db.Table(table)
		if t == nil {
			err = common.Errorf(common.NotFound, "table %q does not exist", table)
		} else {
			err = t.DropIndex(column)
		}
	}
	s.logOp("drop index", table, sql, 0, err, "column "+column)
	return err
}
