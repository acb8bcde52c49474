package importer

import (
	"regexp"
	"strings"
)

// PDS keeps numbered copies next to the real PDS, RE and SCH tables, and
// empty resttemp_db duplicates under AskRecNum and RecNum.
var (
	shadowTable = regexp.MustCompile(`(?i)^(PDS|RE|SCH)\d+$`)
	emptyTables = []string{"AskRecNum", "RecNum"}
)

const giantMarker = "fund"

// Decision is the outcome of Classify.
type Decision struct {
	Admit  bool
	Reason string // Why the table was skipped; empty when admitted
}

// Classify decides whether the table with the given base name is imported.
func Classify(base string) Decision {
	if shadowTable.MatchString(base) {
		return Decision{Reason: "duplicate numbered table"}
	}
	for _, name := range emptyTables {
		if strings.EqualFold(base, name) {
			return Decision{Reason: "empty duplicate table"}
		}
	}
	// Fund tables take hours to convert.
	if strings.Contains(strings.ToLower(base), giantMarker) {
		return Decision{Reason: "giant fund table"}
	}
	return Decision{Admit: true}
}
