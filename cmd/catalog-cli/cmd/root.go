package cmd

import (
	"fmt"
	"os"

	devenv "catalogdesk-backend/dev/env"
	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/internal/sheets"
	"catalogdesk-backend/lib/configutil"
	configlibsql "catalogdesk-backend/lib/configutil/libsql"
	"catalogdesk-backend/lib/telemetry"
	"catalogdesk-backend/lib/timezone"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

// Config is the subset of catalogd.json5 the cli needs.
type Config struct {
	DataDir   string              `json:"data_dir"`
	Collation string              `json:"collation"`
	Timezone  string              `json:"timezone"`
	Journal   configlibsql.Struct `json:"journal"`
	Sheets    sheets.Config       `json:"sheets"`
}

var defaultConfig = Config{
	DataDir:   "<dev_state>/data",
	Collation: "ru",
	Journal:   configlibsql.Struct{File: "<dev_state>/catalogd.db"},
}

var (
	configPath string
	dataDir    string
	verbose    bool

	config Config
	store  *rowstore.Store
	lang   language.Tag
)

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "catalog-cli browses and edits scraped product tables from the terminal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		config, err = configutil.ReadWithDefaults(configPath, defaultConfig)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if dataDir != "" {
			config.DataDir = dataDir
		}
		err = timezone.Use(config.Timezone)
		if err != nil {
			return err
		}
		lang, err = language.Parse(config.Collation)
		if err != nil {
			return fmt.Errorf("parse collation: %w", err)
		}
		root, err := devenv.ResolvePath(config.DataDir)
		if err != nil {
			return err
		}
		store = rowstore.New(root, rowstore.Options{})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "catalogd.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the <shop>/<dataset>.csv files, overrides the config.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
