package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ReservedPrefix is prepended to PDS field names that collide with SQL keywords.
const ReservedPrefix = "pds"

// ReservedWords are the PDS field names that are keywords in SQL.
var ReservedWords = []string{"order", "key", "default", "check", "both", "owner", "access", "sql"}

// Rule is one textual transformation applied to every line of a table's SQL.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply returns line with every match of the rule replaced.
func (r Rule) Apply(line string) string {
	return r.Pattern.ReplaceAllString(line, r.Replacement)
}

// datePattern matches a bare YYYY-MM-DD value, which sqlite3 would otherwise
// evaluate as a subtraction.
var datePattern = regexp.MustCompile(`, (\d\d\d\d-\d\d-\d\d)([,)])`)

// DefaultRules returns the rewrite rules in the order they must run.
//
// The date rule is listed twice: ReplaceAllString only finds non-overlapping
// matches, so in ", 2005-03-03, 2005-04-04)" the first match consumes the
// comma the second needs. The second pass quotes what the first skipped.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(ReservedWords)+4)
	for _, word := range ReservedWords {
		rules = append(rules, Rule{
			Name:        "reserved " + word,
			Pattern:     regexp.MustCompile(`(?i)\b` + word + `\b`),
			Replacement: ReservedPrefix + word,
		})
	}
	// SQLite has no boolean type.
	rules = append(rules,
		Rule{Name: "true", Pattern: regexp.MustCompile(`\bTRUE\b`), Replacement: "1"},
		Rule{Name: "false", Pattern: regexp.MustCompile(`\bFALSE\b`), Replacement: "0"},
		Rule{Name: "date", Pattern: datePattern, Replacement: `, "${1}"${2}`},
		Rule{Name: "date (second pass)", Pattern: datePattern, Replacement: `, "${1}"${2}`},
	)
	return rules
}

// Rewriter makes pxview's SQL acceptable to sqlite3.
type Rewriter struct {
	rules []Rule
	log   *zap.SugaredLogger
	trace bool // log every rewritten line at debug level
}

// NewRewriter creates a Rewriter using DefaultRules.
func NewRewriter(log *zap.SugaredLogger, trace bool) *Rewriter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Rewriter{rules: DefaultRules(), log: log, trace: trace}
}

// Rewrite applies every rule to line, in order.
func (r *Rewriter) Rewrite(line string) string {
	for _, rule := range r.rules {
		line = rule.Apply(line)
	}
	return line
}

// TableStats describes one streamed table.
type TableStats struct {
	Lines       int
	Transaction bool // A BEGIN/END pair was emitted
}

// txState tracks transaction bracketing for a single table.
type txState struct {
	open bool
}

func (t *txState) observe(line string, s *Session) error {
	if t.open || !strings.Contains(strings.ToLower(line), "insert") {
		return nil
	}
	t.open = true
	return s.Begin()
}

func (t *txState) finish(s *Session) error {
	if !t.open {
		return nil
	}
	return s.End()
}

// StreamTable rewrites the SQL read from src and writes it to the session.
// src is decoded as ISO-8859-1: pxview emits bytes that are not valid UTF-8.
// All inserts of the table are wrapped in one transaction.
func (r *Rewriter) StreamTable(src io.Reader, s *Session) (TableStats, error) {
	var stats TableStats
	var tx txState

	reader := bufio.NewReaderSize(charmap.ISO8859_1.NewDecoder().Reader(src), 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = r.Rewrite(line)
			if r.trace {
				r.log.Debugf("SQL: %s", strings.TrimRight(line, "\r\n"))
			}
			if terr := tx.observe(line, s); terr != nil {
				return stats, terr
			}
			if werr := s.WriteLine(line); werr != nil {
				return stats, werr
			}
			stats.Lines++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read SQL: %w", err)
		}
	}

	if err := tx.finish(s); err != nil {
		return stats, err
	}
	stats.Transaction = tx.open
	return stats, nil
}

// StreamFile streams the SQL file at path into the session and removes it.
func (r *Rewriter) StreamFile(path string, s *Session) (TableStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return TableStats{}, fmt.Errorf("failed to open SQL file: %w", err)
	}
	stats, err := r.StreamTable(f, s)
	f.Close()
	if rmErr := os.Remove(path); rmErr != nil {
		r.log.Warnf("failed to remove %s: %v", path, rmErr)
	}
	return stats, err
}
