package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/darianmavgo/pdsimport/importer/common"
)

var (
	// ErrNoOutput means the converter ran but left no SQL file behind.
	ErrNoOutput = errors.New("converter produced no output")
	// ErrConverterStalled means the converter was killed by its watchdog.
	ErrConverterStalled = errors.New("converter stalled")
)

// TableConverter turns one table into a SQL text file inside scratch and
// returns the path of that file.
type TableConverter interface {
	Convert(ctx context.Context, table TableFile, scratch string) (string, error)
}

// Pxview runs the pxview tool in --sql mode.
type Pxview struct {
	Binary  string
	Timeout time.Duration // Stall timeout; <= 0 waits forever
	Logger  *zap.SugaredLogger
}

// Ensure Pxview implements TableConverter
var _ TableConverter = (*Pxview)(nil)

// SQLPath is where the generated SQL for base is written.
func SQLPath(scratch, base string) string {
	return filepath.Join(scratch, base+".sql")
}

// Convert stages the table and its blob file into scratch and runs pxview on
// the copies. The source share is typically mounted read-only and pxview
// refuses to open read-only files.
//
// SQL text is requested instead of pxview's own sqlite output because some
// PDS field names are SQL keywords and must be rewritten first.
func (p *Pxview) Convert(ctx context.Context, table TableFile, scratch string) (string, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	staged, err := stageFile(table.Path, scratch)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", table.Base, err)
	}
	args := []string{"--sql", staged}

	if table.Companion != "" {
		blob, err := stageFile(table.Companion, scratch)
		if err != nil {
			return "", fmt.Errorf("failed to stage blob file for %s: %w", table.Base, err)
		}
		args = append(args, "--blobfile="+blob)
	}

	sqlPath := SQLPath(scratch, table.Base)
	if err := os.Remove(sqlPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove stale %s: %w", sqlPath, err)
	}
	args = append(args, "-o", sqlPath)

	log.Debugf("pxview command: %s %s", p.Binary, strings.Join(args, " "))

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wd := common.NewWatchdog("pxview "+table.Base, p.Timeout, log)
	done := wd.Start()
	defer wd.Stop()
	go func() {
		select {
		case <-done:
			cancel()
		case <-cctx.Done():
		}
	}()

	out := &lineLogger{log: log, prefix: "pxview: ", kick: wd.Kick}
	cmd := exec.CommandContext(cctx, p.Binary, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	// pxview's children may hold the output pipe after a kill
	cmd.WaitDelay = 2 * time.Second

	runErr := cmd.Run()
	out.flush()

	if wd.Fired() {
		os.Remove(sqlPath)
		return "", fmt.Errorf("%s: %w", table.Base, ErrConverterStalled)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || ctx.Err() != nil {
			return "", fmt.Errorf("failed to run pxview for %s: %w", table.Base, runErr)
		}
		log.Warnf("pxview exited with status %d for %s", exitErr.ExitCode(), table.Base)
	}

	if info, err := os.Stat(sqlPath); err != nil || info.IsDir() {
		return "", fmt.Errorf("%s: %w", table.Base, ErrNoOutput)
	}
	return sqlPath, nil
}

// stageFile copies src into dir, keeping its name.
func stageFile(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}

// lineLogger writes process output to the log one line at a time and kicks
// a watchdog on every write.
type lineLogger struct {
	log    *zap.SugaredLogger
	prefix string
	kick   func()
	buf    bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	if l.kick != nil {
		l.kick()
	}
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.log.Debug(l.prefix + strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	if l.buf.Len() > 0 {
		l.log.Debug(l.prefix + strings.TrimRight(l.buf.String(), "\r\n"))
		l.buf.Reset()
	}
}
