package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/darianmavgo/pdsimport/importer/common"
)

// ErrSessionClosed is returned when writing to a session that was closed or aborted.
var ErrSessionClosed = errors.New("loader session closed")

const (
	beginDirective = "BEGIN TRANSACTION;"
	endDirective   = "END TRANSACTION;"
)

// Session is the single loader for a run. Every admitted table's SQL is
// written through it in turn; it is not safe for concurrent use.
type Session struct {
	loader common.Loader
	w      *bufio.Writer
	dbPath string
	closed bool
}

// openSession starts the named loader driver against dbPath. Only the
// engine calls it, once per run.
func openSession(ctx context.Context, driverName, dbPath string, opts common.LoaderOptions) (*Session, error) {
	driver, err := lookupDriver(driverName)
	if err != nil {
		return nil, err
	}
	loader, err := driver.Open(ctx, dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s loader: %w", driverName, err)
	}
	return newSession(loader, dbPath), nil
}

func newSession(loader common.Loader, dbPath string) *Session {
	return &Session{
		loader: loader,
		w:      bufio.NewWriterSize(loader, 64*1024),
		dbPath: dbPath,
	}
}

// DBPath is the database file the loader writes to.
func (s *Session) DBPath() string {
	return s.dbPath
}

// WriteLine forwards one line of SQL, adding a newline if it has none.
func (s *Session) WriteLine(line string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("failed to write to loader: %w", err)
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		if err := s.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write to loader: %w", err)
		}
	}
	return nil
}

// Begin opens a transaction in the loader.
func (s *Session) Begin() error {
	return s.WriteLine(beginDirective)
}

// End closes the transaction opened by Begin.
func (s *Session) End() error {
	return s.WriteLine(endDirective)
}

// Close sends the exit directive and waits for the loader to finish.
// The database file is complete only when Close returns nil.
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	werr := s.WriteLine(common.ExitDirective)
	if werr == nil {
		werr = s.w.Flush()
	}
	s.closed = true
	if werr != nil {
		s.loader.Abort()
		return fmt.Errorf("failed to send exit directive: %w", werr)
	}
	return s.loader.Close()
}

// Abort stops the loader without completing the database.
func (s *Session) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.loader.Abort()
}
