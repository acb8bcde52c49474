package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	TableExt     = ".DB"
	CompanionExt = ".MB"
)

// TableFile is one Paradox table found in the data directory.
type TableFile struct {
	Base      string // File name without extension; also the table identifier
	Path      string // Full path of the .DB file
	Companion string // Full path of the .MB blob file, empty if there is none
}

// FindTables lists the table files in dir. The result is not ordered.
func FindTables(dir string) ([]TableFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	var tables []TableFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, TableExt) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		if base == "" {
			continue
		}
		tables = append(tables, TableFile{
			Base:      base,
			Path:      filepath.Join(dir, name),
			Companion: findCompanion(dir, base),
		})
	}
	return tables, nil
}

func findCompanion(dir, base string) string {
	for _, ext := range []string{CompanionExt, strings.ToLower(CompanionExt)} {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}
