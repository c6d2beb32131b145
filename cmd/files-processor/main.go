// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the files-processor CLI.
// It serves the HTTP API and offers local commands to register files in the
// object version store and run the processor chain on them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/files-processor/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// appLogger is built from log.level and log.format before any command runs.
var appLogger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the files-processor CLI.
var rootCmd = &cobra.Command{
	Use:   "files-processor",
	Short: "Extract bibliographic metadata from stored files",
	Long: `files-processor extracts metadata from files held in an object version
store. Processors are tried in registration order; the PDF processor sends the
document to GROBID for title, abstract, keywords, and authors, and optionally
to the OpenAIRE mining service for funding project information.

Use "serve" to expose POST /fileprocessor/{filetype}/{version_id}, or the
"files" and "process" commands to work with the store locally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		appLogger = logger

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", "names", secrets.Names(s))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./files-processor.yaml or ~/.config/files-processor/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	rootCmd.PersistentFlags().String("db", "", "object version database (default data/files.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")

	_ = viper.BindPFlag("store.db_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("files-processor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "files-processor"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("FILES_PROCESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
