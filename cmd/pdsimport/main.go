package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/darianmavgo/pdsimport/config"
	"github.com/darianmavgo/pdsimport/importer"
	_ "github.com/darianmavgo/pdsimport/importer/all"
	"github.com/darianmavgo/pdsimport/importer/common"
	"github.com/darianmavgo/pdsimport/logging"
)

var (
	cfgPath    string
	exportPath string
	flagCfg    = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "pdsimport",
	Short: "Import PDS data to a new SQLite3 database",
	Long: `pdsimport converts every PDS Church Office table (*.DB) with pxview,
rewrites the SQL so sqlite3 accepts it, loads it into a fresh database and
renames that database over the output file once everything has loaded.

Exit Codes:
  0  - Database published
  1  - Configuration error, loader failure or interrupted run`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgPath, "config", "", "HCL config file; flags override its values")
	f.StringVar(&exportPath, "export-config", "", "write the effective config to this HCL file and exit")
	f.StringVar(&flagCfg.Sqlite3, "sqlite3", flagCfg.Sqlite3, "Path to sqlite3 (if not in PATH)")
	f.StringVar(&flagCfg.Pxview, "pxview", flagCfg.Pxview, "pxview binary (if not found in PATH)")
	f.StringVar(&flagCfg.DataDir, "pdsdata-dir", flagCfg.DataDir, "Path to find PDS data files")
	f.StringVar(&flagCfg.OutDir, "out-dir", flagCfg.OutDir, "Path to write the output sqlite3 database")
	f.StringVar(&flagCfg.TempDir, "temp-dir", flagCfg.TempDir, "Path to write temporary files (safe to remove afterwards) relative to the out directory")
	f.StringVar(&flagCfg.OutputDatabase, "output-database", flagCfg.OutputDatabase, "Output filename for the final SQLite3 database")
	f.StringVar(&flagCfg.LogFile, "logfile", "", "Optional output logfile")
	f.BoolVar(&flagCfg.Verbose, "verbose", false, "Enable verbose output")
	f.BoolVar(&flagCfg.Debug, "debug", false, "Enable extra debugging")
	f.StringVar(&flagCfg.Loader, "loader", flagCfg.Loader, "Loader to use: sqlite3 or embedded")
	f.StringVar(&flagCfg.ConvertTimeout, "convert-timeout", "", "Kill pxview after this long without output (e.g. 30m)")
}

// effectiveConfig starts from the config file, if any, and applies the flags
// the user actually set.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfgPath == "" {
		return flagCfg, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cmd.Flags().Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "sqlite3":
			cfg.Sqlite3 = flagCfg.Sqlite3
		case "pxview":
			cfg.Pxview = flagCfg.Pxview
		case "pdsdata-dir":
			cfg.DataDir = flagCfg.DataDir
		case "out-dir":
			cfg.OutDir = flagCfg.OutDir
		case "temp-dir":
			cfg.TempDir = flagCfg.TempDir
		case "output-database":
			cfg.OutputDatabase = flagCfg.OutputDatabase
		case "logfile":
			cfg.LogFile = flagCfg.LogFile
		case "verbose":
			cfg.Verbose = flagCfg.Verbose
		case "debug":
			cfg.Debug = flagCfg.Debug
		case "loader":
			cfg.Loader = flagCfg.Loader
		case "convert-timeout":
			cfg.ConvertTimeout = flagCfg.ConvertTimeout
		}
	})
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return err
	}
	if exportPath != "" {
		return config.Export(exportPath, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Verbose, cfg.Debug, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := importer.NewEngine(importer.Options{
		DataDir:        cfg.DataDir,
		OutDir:         cfg.OutDir,
		TempDir:        cfg.TempDir,
		OutputDatabase: cfg.OutputDatabase,
		Loader:         cfg.Loader,
		LoaderOptions:  common.LoaderOptions{Binary: cfg.Sqlite3, Logger: log},
		TraceSQL:       cfg.Debug,
	}, &importer.Pxview{Binary: cfg.Pxview, Timeout: timeout, Logger: log}, log)

	report, err := engine.Run(ctx)
	if err != nil {
		if errors.Is(err, importer.ErrInterrupted) {
			log.Errorf("Interrupted in state %s; %s left untouched", engine.State(), engine.FinalPath())
		}
		return err
	}
	for table, ferr := range report.Failed {
		log.Errorf("Table %s was not imported: %v", table, ferr)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
