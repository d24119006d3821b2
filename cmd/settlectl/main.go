// Package main provides settlectl, the command line companion of the ridersettle server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ridersettle/internal/blob"
	"ridersettle/internal/config"
	"ridersettle/internal/store"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "settlectl",
		Short:         "Manage parsing rules and ingest rider settlement workbooks",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: config.toml next to the executable)")

	rootCmd.AddCommand(newRuleCmd(), newIngestCmd(), newTokenCmd())
	return rootCmd
}

func loadConfig() (*config.AppConfig, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, _, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStores 打开配置中的数据库与上传目录
func openStores(cfg *config.AppConfig) (*store.Store, *blob.FileStore, error) {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	st, err := store.New(config.DBPath(dataDir))
	if err != nil {
		return nil, nil, err
	}
	blobs, err := blob.NewFileStore(config.BlobDir(dataDir))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, blobs, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
