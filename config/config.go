package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

var (
	ErrToolNotFound    = errors.New("executable not found")
	ErrDataDirMissing  = errors.New("PDS data dir not found")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Config represents the application configuration.
type Config struct {
	Sqlite3        string `hcl:"sqlite3,optional"`
	Pxview         string `hcl:"pxview,optional"`
	DataDir        string `hcl:"pdsdata_dir,optional"`
	OutDir         string `hcl:"out_dir,optional"`
	TempDir        string `hcl:"temp_dir,optional"`
	OutputDatabase string `hcl:"output_database,optional"`
	LogFile        string `hcl:"logfile,optional"`
	Verbose        bool   `hcl:"verbose,optional"`
	Debug          bool   `hcl:"debug,optional"`
	Loader         string `hcl:"loader,optional"`
	ConvertTimeout string `hcl:"convert_timeout,optional"` // Duration string (e.g. "20m"); empty waits forever
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sqlite3:        "sqlite3",
		Pxview:         "pxview",
		DataDir:        ".",
		OutDir:         ".",
		TempDir:        "tmp",
		OutputDatabase: "pdschurch.sqlite3",
		Loader:         "sqlite3",
	}
}

// Load reads the configuration from the given HCL file.
// Attributes missing from the file keep their default values.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file: %s", diags.Error())
	}

	cfg := DefaultConfig()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	return cfg, nil
}

// Export writes the configuration to the specified file in HCL format.
func Export(path string, cfg *Config) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("sqlite3", cty.StringVal(cfg.Sqlite3))
	root.SetAttributeValue("pxview", cty.StringVal(cfg.Pxview))
	root.SetAttributeValue("pdsdata_dir", cty.StringVal(cfg.DataDir))
	root.SetAttributeValue("out_dir", cty.StringVal(cfg.OutDir))
	root.SetAttributeValue("temp_dir", cty.StringVal(cfg.TempDir))
	root.SetAttributeValue("output_database", cty.StringVal(cfg.OutputDatabase))
	if cfg.LogFile != "" {
		root.SetAttributeValue("logfile", cty.StringVal(cfg.LogFile))
	}
	root.SetAttributeValue("verbose", cty.BoolVal(cfg.Verbose))
	root.SetAttributeValue("debug", cty.BoolVal(cfg.Debug))
	root.SetAttributeValue("loader", cty.StringVal(cfg.Loader))
	if cfg.ConvertTimeout != "" {
		root.SetAttributeValue("convert_timeout", cty.StringVal(cfg.ConvertTimeout))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(f.Bytes())
	if err != nil {
		return fmt.Errorf("failed to write config to file: %w", err)
	}

	return nil
}

// Validate checks the settings before anything touches the disk and resolves
// the tool names to absolute paths. The sqlite3 shell is only required by
// the sqlite3 loader.
func (c *Config) Validate() error {
	switch c.Loader {
	case "sqlite3":
		bin, err := exec.LookPath(c.Sqlite3)
		if err != nil {
			return fmt.Errorf("cannot find sqlite3 executable %q: %w", c.Sqlite3, ErrToolNotFound)
		}
		c.Sqlite3 = bin
	case "embedded":
	default:
		return fmt.Errorf("%w: unknown loader %q", ErrInvalidSettings, c.Loader)
	}

	bin, err := exec.LookPath(c.Pxview)
	if err != nil {
		return fmt.Errorf("cannot find pxview executable %q: %w", c.Pxview, ErrToolNotFound)
	}
	c.Pxview = bin

	if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDataDirMissing, c.DataDir)
	}

	if c.OutputDatabase == "" || filepath.Base(c.OutputDatabase) != c.OutputDatabase {
		return fmt.Errorf("%w: output database must be a file name, got %q", ErrInvalidSettings, c.OutputDatabase)
	}
	if !isSubdir(c.TempDir) {
		return fmt.Errorf("%w: temp dir must be a subdirectory of the out dir, got %q", ErrInvalidSettings, c.TempDir)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// isSubdir reports whether rel names a directory strictly below its parent.
func isSubdir(rel string) bool {
	clean := filepath.Clean(rel)
	if clean == "." || filepath.IsAbs(clean) {
		return false
	}
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

// Timeout parses ConvertTimeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.ConvertTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ConvertTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: convert_timeout: %v", ErrInvalidSettings, err)
	}
	return d, nil
}
