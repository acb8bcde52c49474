package sqlite3

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/darianmavgo/pdsimport/importer/common"
)

func fakeShell(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "sqlite3")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcess_StreamsToStdin(t *testing.T) {
	// The fake shell copies stdin into the "database" path it was given.
	bin := fakeShell(t, "echo \"Error: near line 1\" >&2\ncat > \"$2\"\n")
	dbPath := filepath.Join(t.TempDir(), "out.sqlite3")

	p, err := Start(context.Background(), dbPath, common.LoaderOptions{Binary: bin})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := p.Write([]byte("CREATE TABLE t (a);\n.exit\n")); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "CREATE TABLE t (a);\n.exit\n" {
		t.Errorf("shell received %q", content)
	}
	if p.ErrorLines() != 1 {
		t.Errorf("ErrorLines() = %d, want 1", p.ErrorLines())
	}
}

func TestProcess_DefaultArgs(t *testing.T) {
	bin := fakeShell(t, "echo \"$@\" > \"$2.args\"\ncat > /dev/null\n")
	dbPath := filepath.Join(t.TempDir(), "out.sqlite3")

	p, err := Start(context.Background(), dbPath, common.LoaderOptions{Binary: bin})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	args, err := os.ReadFile(dbPath + ".args")
	if err != nil {
		t.Fatal(err)
	}
	if got := string(args); got != "-batch "+dbPath+"\n" {
		t.Errorf("args = %q", got)
	}
}

func TestProcess_NonZeroExit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"StatementErrors", "cat > /dev/null\necho 'Parse error near line 3: near \"bogus\"' >&2\nexit 1\n", false},
		{"StatusOneWithoutErrors", "cat > /dev/null\nexit 1\n", true},
		{"OtherStatus", "cat > /dev/null\necho 'Error: disk I/O error' >&2\nexit 2\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			bin := fakeShell(t, tt.body)
			p, err := Start(context.Background(), filepath.Join(t.TempDir(), "x"), common.LoaderOptions{
				Binary: bin,
				Logger: zap.New(core).Sugar(),
			})
			if err != nil {
				t.Fatal(err)
			}
			err = p.Close()
			if tt.wantErr {
				if !errors.Is(err, common.ErrLoaderFailed) {
					t.Errorf("Close = %v, want ErrLoaderFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Close = %v, want nil", err)
			}
			if logs.FilterMessage("sqlite3 finished with 1 error lines").Len() != 1 {
				t.Errorf("missing error count warning, got %v", logs.All())
			}
		})
	}
}

func TestProcess_OversizedErrorLine(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bin := fakeShell(t, "cat > /dev/null\nhead -c 2000000 /dev/zero | tr '\\000' x >&2\necho >&2\necho 'Error: after' >&2\n")
	p, err := Start(context.Background(), filepath.Join(t.TempDir(), "x"), common.LoaderOptions{
		Binary: bin,
		Logger: zap.New(core).Sugar(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if logs.FilterMessageSnippet("output no longer logged").Len() != 1 {
		t.Errorf("scanner failure not logged, got %d entries", logs.Len())
	}
}

func TestProcess_StartFailure(t *testing.T) {
	_, err := Start(context.Background(), "x", common.LoaderOptions{Binary: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, common.ErrLoaderNotStarted) {
		t.Errorf("Start = %v, want ErrLoaderNotStarted", err)
	}
}

func TestProcess_Abort(t *testing.T) {
	bin := fakeShell(t, "exec sleep 10\n")
	p, err := Start(context.Background(), "x", common.LoaderOptions{Binary: bin})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Abort(); err != nil {
		t.Errorf("Abort = %v", err)
	}
}
