package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/elerspay/DBMS/common"
	"github.com/elerspay/DBMS/config"
)

// Logger is the engine's operation log. Records are human-readable blocks
// carrying the executing user, the operation, the touched database/table,
// the source SQL, the outcome and the affected row count. Error-level
// records are duplicated to a separate error log.
type Logger struct {
	op     zerolog.Logger
	errlog zerolog.Logger
	user   string

	files []*os.File
}

// New opens the log sinks named by the configuration. Empty paths fall
// back to a disabled sink.
func New(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		op:     zerolog.Nop(),
		errlog: zerolog.Nop(),
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, common.WrapIO("open log file", err)
		}
		l.files = append(l.files, f)
		l.op = blockLogger(f)
	}
	if cfg.ErrorLogFile != "" {
		f, err := os.OpenFile(cfg.ErrorLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.Close()
			return nil, common.WrapIO("open error log file", err)
		}
		l.files = append(l.files, f)
		l.errlog = blockLogger(f)
	}
	return l, nil
}

// Noop returns a logger with every sink disabled. Used by tests.
func Noop() *Logger {
	return &Logger{op: zerolog.Nop(), errlog: zerolog.Nop()}
}

// WriterLogger logs operation records to w. Used by tests that assert on
// log content.
func WriterLogger(w io.Writer) *Logger {
	return &Logger{op: blockLogger(w), errlog: zerolog.Nop()}
}

func blockLogger(w io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(console).With().Timestamp().Logger()
}

// SetUser attaches the session user to subsequent records.
func (l *Logger) SetUser(user string) { l.user = user }

func (l *Logger) Close() {
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}

// Record is one operation log entry.
type Record struct {
	Op       string
	Database string
	Table    string
	SQL      string
	Success  bool
	Affected int
	Message  string
}

func (l *Logger) emit(e *zerolog.Event, r Record) {
	e.Str("user", l.user).
		Str("op", r.Op).
		Str("database", r.Database).
		Str("table", r.Table).
		Str("sql", r.SQL).
		Bool("success", r.Success).
		Int("affected_rows", r.Affected).
		Msg(r.Message)
}

// Info writes a successful-operation record.
func (l *Logger) Info(r Record) {
	r.Success = true
	l.emit(l.op.Info(), r)
}

// Error writes a failed-operation record to the operation log and
// duplicates it to the error log.
func (l *Logger) Error(r Record, err error) {
	r.Success = false
	if r.Message == "" && err != nil {
		r.Message = err.Error()
	}
	l.emit(l.op.Error(), r)
	l.emit(l.errlog.Error(), r)
}

// Debugf records executor chatter (chosen access paths, join orders).
func (l *Logger) Debugf(format string, args ...any) {
	l.op.Debug().Msgf(format, args...)
}
