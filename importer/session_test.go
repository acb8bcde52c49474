package importer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/darianmavgo/pdsimport/importer/common"
)

// memLoader records everything written to it.
type memLoader struct {
	bytes.Buffer
	closed   bool
	aborted  bool
	closeErr error
}

// Ensure memLoader implements common.Loader
var _ common.Loader = (*memLoader)(nil)

func (m *memLoader) Close() error {
	m.closed = true
	return m.closeErr
}

func (m *memLoader) Abort() error {
	m.aborted = true
	return nil
}

func TestSession_WriteAndClose(t *testing.T) {
	loader := &memLoader{}
	s := newSession(loader, "test.sqlite3")

	if err := s.WriteLine("CREATE TABLE t (a);"); err != nil {
		t.Fatal(err)
	}
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLine("INSERT INTO t VALUES (1);\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.End(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	expected := "CREATE TABLE t (a);\nBEGIN TRANSACTION;\nINSERT INTO t VALUES (1);\nEND TRANSACTION;\n.exit\n"
	if got := loader.String(); got != expected {
		t.Errorf("loader received %q, want %q", got, expected)
	}
	if !loader.closed {
		t.Error("loader was not closed")
	}
	if s.DBPath() != "test.sqlite3" {
		t.Errorf("DBPath() = %q", s.DBPath())
	}
}

func TestSession_WriteAfterClose(t *testing.T) {
	s := newSession(&memLoader{}, "x")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLine("SELECT 1;"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("WriteLine after Close = %v, want ErrSessionClosed", err)
	}
	if err := s.Close(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_CloseError(t *testing.T) {
	loader := &memLoader{closeErr: common.ErrLoaderFailed}
	s := newSession(loader, "x")
	if err := s.Close(); !errors.Is(err, common.ErrLoaderFailed) {
		t.Errorf("Close = %v, want ErrLoaderFailed", err)
	}
}

func TestSession_Abort(t *testing.T) {
	loader := &memLoader{}
	s := newSession(loader, "x")
	if err := s.Abort(); err != nil {
		t.Fatal(err)
	}
	if !loader.aborted {
		t.Error("loader was not aborted")
	}
	if loader.closed {
		t.Error("abort must not close cleanly")
	}
	if err := s.WriteLine("SELECT 1;"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("WriteLine after Abort = %v, want ErrSessionClosed", err)
	}
}
