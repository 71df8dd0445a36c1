// Root command and shared state for the pagegrid CLI.
package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pagegrid/pagegrid/internal/paths"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/wiki"
)

// Global flag values.
var (
	flagConfigDir string
	flagDB        string
	flagUser      string
	flagPage      string
	flagLang      string
	flagJSON      bool
	flagVerbose   bool
)

// Shared per-invocation state, set up by PersistentPreRunE.
var (
	backend *store.Backend
	logger  *zap.SugaredLogger
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "pagegrid",
	Short: "pagegrid manages typed structured data attached to wiki pages",
	Long: `pagegrid stores schema-defined, typed field data for wiki pages and
standalone rows, and aggregates it with declarative queries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if logger, err = newLogger(flagVerbose); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyConfigDefaults(cfg)

		if dbPath, err = paths.ResolveDBPath(flagDB, cfg.GetString(cfgKeyDB)); err != nil {
			return err
		}
		backend, err = store.Open(dbPath, wiki.OpenHost{}, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if backend != nil {
			return backend.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database file (default: platform data dir)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "acting user name")
	rootCmd.PersistentFlags().StringVar(&flagPage, "page", "", "page id the operation applies to")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "interface language for column resolution")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(pageCmd)
}

// newLogger builds the CLI logger: quiet production output by default,
// debug-level development output with --verbose.
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// requestContext builds the wiki context for one command invocation.
func requestContext() *wiki.Context {
	return wiki.NewContext(flagPage, flagUser, flagLang)
}
