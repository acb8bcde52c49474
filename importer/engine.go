package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/darianmavgo/pdsimport/importer/common"
)

var ErrInterrupted = errors.New("operation interrupted by user")

// TempNameLayout is the time layout of the database name used while importing.
const TempNameLayout = "pdschurchoffice-2006-01-02-150405.sqlite3"

// State is a step of a run.
type State int

const (
	StateInit State = iota
	StateScratchPrepared
	StateLoaderOpen
	StateImporting
	StateLoaderClosed
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScratchPrepared:
		return "scratch-prepared"
	case StateLoaderOpen:
		return "loader-open"
	case StateImporting:
		return "importing"
	case StateLoaderClosed:
		return "loader-closed"
	case StatePublished:
		return "published"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a run.
type Options struct {
	DataDir        string // Directory holding the PDS .DB files
	OutDir         string // Directory receiving the published database
	TempDir        string // Scratch directory, relative to OutDir
	OutputDatabase string // File name of the published database
	Loader         string // Registered loader driver name
	LoaderOptions  common.LoaderOptions
	TraceSQL       bool // Log every rewritten SQL line
}

// Report summarises a run.
type Report struct {
	Tables    int
	Imported  []string
	Skipped   map[string]string // table -> reason
	Failed    map[string]error
	Published string
}

// Engine drives discovery, conversion and loading, and publishes the result.
type Engine struct {
	opts      Options
	converter TableConverter
	rewriter  *Rewriter
	log       *zap.SugaredLogger
	now       func() time.Time
	state     State
}

// NewEngine creates an Engine. conv converts each admitted table.
func NewEngine(opts Options, conv TableConverter, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.LoaderOptions.Logger == nil {
		opts.LoaderOptions.Logger = log
	}
	return &Engine{
		opts:      opts,
		converter: conv,
		rewriter:  NewRewriter(log, opts.TraceSQL),
		log:       log,
		now:       time.Now,
	}
}

// State returns the step the engine reached.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) scratchDir() string {
	return filepath.Join(e.opts.OutDir, e.opts.TempDir)
}

// FinalPath is where the database is published.
func (e *Engine) FinalPath() string {
	return filepath.Join(e.opts.OutDir, e.opts.OutputDatabase)
}

func (e *Engine) enter(s State) {
	e.log.Debugf("state %s -> %s", e.state, s)
	e.state = s
}

// Run imports every admitted table into a fresh database and publishes it.
// The published file is only touched by the final rename; any error before
// that leaves it as it was.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Skipped: make(map[string]string),
		Failed:  make(map[string]error),
	}
	e.state = StateInit

	scratch := e.scratchDir()
	if filepath.Clean(scratch) == filepath.Clean(e.opts.OutDir) {
		return report, fmt.Errorf("scratch dir must be a subdirectory of %s", e.opts.OutDir)
	}
	tempDB := filepath.Join(e.opts.OutDir, e.now().Format(TempNameLayout))
	if err := prepareScratch(scratch, tempDB); err != nil {
		return report, err
	}
	e.enter(StateScratchPrepared)

	tables, err := FindTables(e.opts.DataDir)
	if err != nil {
		return report, err
	}
	report.Tables = len(tables)

	session, err := openSession(ctx, e.opts.Loader, tempDB, e.opts.LoaderOptions)
	if err != nil {
		return report, err
	}
	e.log.Infof("Opened %s loader on %s", e.opts.Loader, tempDB)
	e.enter(StateLoaderOpen)

	e.enter(StateImporting)
	for _, table := range tables {
		if ctx.Err() != nil {
			session.Abort()
			return report, ErrInterrupted
		}
		if err := e.importTable(ctx, table, scratch, session, report); err != nil {
			// Only loader failures get here; the session is unusable.
			session.Abort()
			return report, err
		}
	}

	if err := session.Close(); err != nil {
		return report, fmt.Errorf("loader did not finish, not publishing: %w", err)
	}
	e.enter(StateLoaderClosed)

	final := e.FinalPath()
	if err := os.Rename(tempDB, final); err != nil {
		return report, fmt.Errorf("failed to publish database: %w", err)
	}
	report.Published = final
	e.enter(StatePublished)
	e.log.Infof("Published %s (%d imported, %d skipped, %d failed)",
		final, len(report.Imported), len(report.Skipped), len(report.Failed))
	return report, nil
}

// importTable returns an error only when the session itself failed.
// Conversion problems are recorded in the report and the run moves on.
func (e *Engine) importTable(ctx context.Context, table TableFile, scratch string, session *Session, report *Report) error {
	e.log.Infof("=== PDS table: %s", table.Path)

	decision := Classify(table.Base)
	if !decision.Admit {
		e.log.Infof("   ==> Skipping %s: %s", table.Base, decision.Reason)
		report.Skipped[table.Base] = decision.Reason
		return nil
	}

	sqlPath, err := e.converter.Convert(ctx, table, scratch)
	if err != nil {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		e.log.Errorf("Conversion of %s failed: %v", table.Base, err)
		report.Failed[table.Base] = err
		return nil
	}

	stats, err := e.rewriter.StreamFile(sqlPath, session)
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return err
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && pathErr.Op == "open" {
			e.log.Errorf("Conversion of %s failed: %v", table.Base, err)
			report.Failed[table.Base] = err
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", table.Base, err)
	}
	e.log.Infof("   ==> Loaded %s (%d lines)", table.Base, stats.Lines)
	report.Imported = append(report.Imported, table.Base)
	return nil
}

// prepareScratch purges the scratch directory and any stale temporary database.
func prepareScratch(scratch, tempDB string) error {
	if err := os.RemoveAll(scratch); err != nil {
		return fmt.Errorf("failed to purge scratch dir: %w", err)
	}
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	if err := os.Remove(tempDB); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale database: %w", err)
	}
	return nil
}
