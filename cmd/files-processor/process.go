// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process <version-id>",
	Short: "Run the processor chain on a stored version and print the record",
	Long: `Process runs the same dispatch as the HTTP endpoint without a server.
The record is printed as JSON; "null" means no processor produced one.

--setting takes inline JSON ({"grobid": false, "openaire": {}}) or
@path to a YAML setting file.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("setting", "", "processor setting as JSON, or @file for YAML")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper(), loadedSecrets)

	raw, _ := cmd.Flags().GetString("setting")
	setting, err := settingFromFlag(raw, cfg.Processor.SettingFile)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	v, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, appLogger)
	if err != nil {
		return err
	}

	rec, err := p.registry.Dispatch(ctx, v.MimeType, processor.NewFile(v, store), setting)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

// settingFromFlag resolves --setting: inline JSON, @file YAML, or the
// configured setting file when the flag is empty.
func settingFromFlag(raw, settingFile string) (types.ProcessorSetting, error) {
	switch {
	case raw == "":
		return types.LoadProcessorSetting(settingFile)
	case raw[0] == '@':
		if len(raw) == 1 {
			return types.ProcessorSetting{}, fmt.Errorf("%w: --setting @ needs a file name", types.ErrInvalidSetting)
		}
		return types.LoadProcessorSetting(raw[1:])
	default:
		return types.ParseProcessorSetting([]byte(raw))
	}
}
