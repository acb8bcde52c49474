// Package embedded loads SQL into a database opened in-process with
// modernc.org/sqlite, for hosts without a sqlite3 shell.
package embedded

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/darianmavgo/pdsimport/importer"
	"github.com/darianmavgo/pdsimport/importer/common"

	_ "modernc.org/sqlite"
)

func init() {
	importer.Register("embedded", &embeddedDriver{})
}

type embeddedDriver struct{}

func (d *embeddedDriver) Open(ctx context.Context, dbPath string, opts common.LoaderOptions) (common.Loader, error) {
	return Open(ctx, dbPath, opts)
}

// Loader executes statements as they complete, like the sqlite3 shell does
// when fed on stdin: a failing statement is logged and the stream continues.
type Loader struct {
	ctx      context.Context
	db       *sql.DB
	conn     *sql.Conn
	splitter common.StatementSplitter
	partial  bytes.Buffer
	exited   bool
	executed int
	failed   int
	log      *zap.SugaredLogger
}

// Ensure Loader implements common.Loader
var _ common.Loader = (*Loader)(nil)

// Open creates or opens the database at dbPath.
func Open(ctx context.Context, dbPath string, opts common.LoaderOptions) (*Loader, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}

	// One connection so BEGIN and END land on the same session.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA page_size = 65536; PRAGMA cache_size = -2000;"); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%w: failed to set PRAGMAs: %v", common.ErrLoaderNotStarted, err)
	}

	return &Loader{ctx: ctx, db: db, conn: conn, log: opts.Log()}, nil
}

// Write accepts SQL text; complete lines are split into statements and run.
func (l *Loader) Write(b []byte) (int, error) {
	if l.exited {
		return 0, fmt.Errorf("embedded loader: write after %s", common.ExitDirective)
	}
	l.partial.Write(b)
	for {
		idx := bytes.IndexByte(l.partial.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(l.partial.Next(idx + 1))
		if err := l.feed(line); err != nil {
			return len(b), err
		}
	}
	return len(b), nil
}

func (l *Loader) feed(line string) error {
	if l.exited {
		return nil
	}
	if !l.splitter.Pending() && common.IsDotCommand(line) {
		cmd := strings.TrimSpace(line)
		if cmd == common.ExitDirective {
			l.exited = true
			return nil
		}
		l.log.Warnf("embedded loader: ignoring %s", cmd)
		return nil
	}
	for _, stmt := range l.splitter.Feed(line) {
		if err := l.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) exec(stmt string) error {
	if err := l.ctx.Err(); err != nil {
		return err
	}
	if _, err := l.conn.ExecContext(l.ctx, stmt); err != nil {
		l.failed++
		l.log.Warnf("embedded loader: %v in %.120q", err, stmt)
		return nil
	}
	l.executed++
	return nil
}

// Executed is the number of statements that ran successfully.
func (l *Loader) Executed() int {
	return l.executed
}

// Failed is the number of statements that returned an error.
func (l *Loader) Failed() int {
	return l.failed
}

// Close runs any remaining complete line and closes the database.
func (l *Loader) Close() error {
	if l.partial.Len() > 0 {
		if err := l.feed(l.partial.String()); err != nil {
			l.Abort()
			return fmt.Errorf("%w: %v", common.ErrLoaderFailed, err)
		}
		l.partial.Reset()
	}
	if rest := l.splitter.Flush(); rest != "" {
		l.log.Warnf("embedded loader: dropping incomplete statement %.120q", rest)
	}
	if l.failed > 0 {
		l.log.Warnf("embedded loader: %d of %d statements failed", l.failed, l.failed+l.executed)
	}

	connErr := l.conn.Close()
	dbErr := l.db.Close()
	if connErr != nil {
		return fmt.Errorf("%w: %v", common.ErrLoaderFailed, connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("%w: %v", common.ErrLoaderFailed, dbErr)
	}
	return nil
}

// Abort rolls back any open transaction and closes the database.
func (l *Loader) Abort() error {
	l.conn.ExecContext(context.Background(), "ROLLBACK")
	l.conn.Close()
	return l.db.Close()
}
