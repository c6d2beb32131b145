// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/files-processor/internal/filestore"
	"github.com/pdiddy/files-processor/internal/server"
	"github.com/pdiddy/files-processor/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the file processor HTTP API",
	Long: `Serve listens for POST /fileprocessor/{filetype}/{version_id}. The
optional JSON body is a processor setting such as

  {"grobid": true, "openaire": {"datacitations": "on", "classification": "off"}}

An empty body uses processor.setting_file, or {"grobid": true} when unset.
With server.permission set to "token", callers must send the
files-processor-token secret as a bearer token.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :5000)")
	serveCmd.Flags().String("permission", "", "access policy: allow_all or token")
	serveCmd.Flags().String("setting", "", "YAML processor setting used for requests without a body")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.permission", serveCmd.Flags().Lookup("permission"))
	_ = viper.BindPFlag("processor.setting_file", serveCmd.Flags().Lookup("setting"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper(), loadedSecrets)

	setting, err := types.LoadProcessorSetting(cfg.Processor.SettingFile)
	if err != nil {
		return err
	}

	store, err := filestore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := buildPipeline(cfg, appLogger)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:   cfg.Server,
		Versions: store,
		Registry: p.registry,
		Setting:  setting,
		Checks:   p.healthChecks(store),
		Logger:   appLogger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
