package common

import (
	"strings"
)

// StatementSplitter assembles complete SQL statements from lines of text.
// A statement ends at a semicolon outside of quotes and comments.
// Dot commands (".exit", ".mode", ...) are only recognised between statements.
type StatementSplitter struct {
	buf      strings.Builder
	inSingle bool
	inDouble bool
}

// Feed adds one line (with or without its trailing newline) and returns the
// statements it completed, each including the terminating semicolon.
func (s *StatementSplitter) Feed(line string) []string {
	var out []string
	inComment := false
	start := 0

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inComment:
			// runs to end of line
		case s.inSingle:
			if c == '\'' {
				s.inSingle = false
			}
		case s.inDouble:
			if c == '"' {
				s.inDouble = false
			}
		case c == '\'':
			s.inSingle = true
		case c == '"':
			s.inDouble = true
		case c == '-' && i+1 < len(line) && line[i+1] == '-':
			inComment = true
		case c == ';':
			s.buf.WriteString(line[start : i+1])
			if stmt := strings.TrimSpace(s.buf.String()); stmt != ";" {
				out = append(out, stmt)
			}
			s.buf.Reset()
			start = i + 1
		}
	}
	if rest := line[start:]; strings.TrimSpace(rest) != "" || s.Pending() {
		s.buf.WriteString(rest)
	}
	return out
}

// Pending reports whether a partial statement is buffered.
func (s *StatementSplitter) Pending() bool {
	return s.inSingle || s.inDouble || strings.TrimSpace(s.buf.String()) != ""
}

// Flush returns any buffered partial statement and resets the splitter.
func (s *StatementSplitter) Flush() string {
	stmt := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	s.inSingle, s.inDouble = false, false
	return stmt
}

// IsDotCommand reports whether line is a loader dot command such as ".exit".
func IsDotCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ".")
}
