// Package sqlite3 feeds SQL to an external sqlite3 shell over its stdin.
package sqlite3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/darianmavgo/pdsimport/importer"
	"github.com/darianmavgo/pdsimport/importer/common"
)

// DefaultBinary is used when LoaderOptions.Binary is empty.
const DefaultBinary = "sqlite3"

func init() {
	importer.Register("sqlite3", &sqlite3Driver{})
}

type sqlite3Driver struct{}

func (d *sqlite3Driver) Open(ctx context.Context, dbPath string, opts common.LoaderOptions) (common.Loader, error) {
	return Start(ctx, dbPath, opts)
}

// Process is a running sqlite3 shell writing to one database file.
type Process struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	pumps    sync.WaitGroup
	errLines atomic.Int64
	log      *zap.SugaredLogger
}

// Ensure Process implements common.Loader
var _ common.Loader = (*Process)(nil)

// Start launches the shell. The process lives until Close or Abort.
func Start(ctx context.Context, dbPath string, opts common.LoaderOptions) (*Process, error) {
	bin := opts.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	args := opts.Args
	if args == nil {
		args = []string{"-batch"}
	}
	args = append(append([]string(nil), args...), dbPath)

	log := opts.Log()
	log.Debugf("sqlite bin: %s %v", bin, args)

	cmd := exec.CommandContext(ctx, bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLoaderNotStarted, err)
	}

	p := &Process{cmd: cmd, stdin: stdin, log: log}
	p.pumps.Add(2)
	go p.pump(stdout, false)
	go p.pump(stderr, true)
	return p, nil
}

// pump logs the shell's output. Errors from sqlite3 arrive on stderr.
func (p *Process) pump(r io.Reader, isErr bool) {
	defer p.pumps.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if isErr {
			p.errLines.Add(1)
			p.log.Warnf("sqlite3: %s", scanner.Text())
		} else {
			p.log.Debugf("sqlite3: %s", scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		p.log.Warnf("sqlite3: output no longer logged: %v", err)
	}
	// drain whatever the scanner refused so the shell never blocks on us
	io.Copy(io.Discard, r)
}

// Write sends SQL text to the shell.
func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// ErrorLines is the number of lines the shell printed on stderr.
func (p *Process) ErrorLines() int64 {
	return p.errLines.Load()
}

// Close closes stdin and waits for the shell to exit. The caller sends the
// exit directive beforehand.
//
// The shell exits with status 1 when any statement failed, after running
// every other statement. That still counts as a finished load; any other
// status or a signal is a failure.
func (p *Process) Close() error {
	closeErr := p.stdin.Close()
	p.pumps.Wait()
	if err := p.cmd.Wait(); err != nil && !p.statementErrorsOnly(err) {
		return fmt.Errorf("%w: %v", common.ErrLoaderFailed, err)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %v", common.ErrLoaderFailed, closeErr)
	}
	if n := p.ErrorLines(); n > 0 {
		p.log.Warnf("sqlite3 finished with %d error lines", n)
	}
	return nil
}

func (p *Process) statementErrorsOnly(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && p.ErrorLines() > 0
}

// Abort kills the shell.
func (p *Process) Abort() error {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.pumps.Wait()
	p.cmd.Wait()
	return nil
}
