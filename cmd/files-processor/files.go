// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/files-processor/internal/filestore"
	"github.com/pdiddy/files-processor/pkg/types"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage the object version store (add, list, show)",
	Long: `Files registers local files as object versions and inspects the store.
Each added file gets a new version ID; the file itself stays in place and the
version's URI points at it.`,
}

// --- add subcommand ---

var filesAddCmd = &cobra.Command{
	Use:   "add [paths...]",
	Short: "Register files as new object versions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilesAdd,
}

func runFilesAdd(cmd *cobra.Command, args []string) error {
	bucket, _ := cmd.Flags().GetString("bucket")
	mimeType, _ := cmd.Flags().GetString("mimetype")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		v, err := store.AddFile(context.Background(), path, filestore.AddOptions{
			Bucket:   bucket,
			MimeType: mimeType,
		})
		if err != nil {
			fmt.Fprintf(w, "  FAIL  %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "  ADDED %s  %s  %s\n", v.VersionID, v.MimeType, path)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be added", failed)
	}
	return nil
}

// --- list subcommand ---

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List object versions, newest first",
	RunE:  runFilesList,
}

func runFilesList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	versions, err := store.List(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatVersions(cmd.OutOrStdout(), versions, jsonOutput)
}

func formatVersions(w io.Writer, versions []*types.ObjectVersion, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(versions)
	}

	if len(versions) == 0 {
		fmt.Fprintln(w, "No files stored.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-20s  %-10s  %s\n",
		"Version", "Bucket", "MIME type", "Size", "Key")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, v := range versions {
		mime := v.MimeType
		if len(mime) > 20 {
			mime = mime[:17] + "..."
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-20s  %-10d  %s\n",
			v.VersionID, v.Bucket, mime, v.Size, v.Key)
	}
	fmt.Fprintf(w, "\n%d files\n", len(versions))
	return nil
}

// --- show subcommand ---

var filesShowCmd = &cobra.Command{
	Use:   "show <version-id>",
	Short: "Print one object version as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesShow,
}

func runFilesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- shared helpers ---

func openStore() (*filestore.Store, error) {
	return filestore.NewStore(loadConfig(viper.GetViper(), loadedSecrets).Store)
}

func init() {
	filesAddCmd.Flags().String("bucket", "", "bucket name (default \"default\")")
	filesAddCmd.Flags().String("mimetype", "", "MIME type; detected from extension and content when empty")
	filesListCmd.Flags().Bool("json", false, "output versions as JSON")

	filesCmd.AddCommand(filesAddCmd, filesListCmd, filesShowCmd)
	rootCmd.AddCommand(filesCmd)
}
