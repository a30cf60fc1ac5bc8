package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/doccrawl/internal/config"
	"github.com/nao1215/doccrawl/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Download a single file and record it",
		Long: `Add downloads one file without crawling and records it in the metadata
database. If a file with the same name was downloaded before, it is
replaced and the new fetch time is appended to its history.

The command exits with a non-zero status when the download fails.

Examples:
  doccrawl add https://docs.example.com/files/handbook.pdf

  # Store the file in a specific directory
  doccrawl add -d ./documents https://docs.example.com/files/handbook.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: runAddCmd,
	}

	cmd.Flags().StringP("dir", "d", config.DefaultDocumentsDir(),
		"Directory the file is written to")
	cmd.Flags().Duration("timeout", config.DefaultDownloadTimeout,
		"Timeout for the download")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header for the request")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().StringP("config", "c", "",
		"Path to configuration file (default: .doccrawl in current or home directory)")
	addStoreFlags(cmd)

	return cmd
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	target := args[0]
	if err := config.ValidateTarget(target); err != nil {
		return err
	}

	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.DocumentsDir, err = flags.GetString("dir"); err != nil {
		return err
	}
	if cfg.DownloadTimeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return err
	}
	if cfg.DownloadTimeout <= 0 {
		return config.ErrInvalidTimeout
	}
	if cfg.DocumentsDir == "" {
		return config.ErrNoDocumentsDir
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, cancel := signalContext(logger)
	defer cancel()

	filename, err := addDocument(ctx, cfg, target, logger)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s from %s\n", filename, target)
	return nil
}

// addDocument downloads target into cfg.DocumentsDir and records it.
func addDocument(ctx context.Context, cfg *config.Config, target string, logger *slog.Logger) (string, error) {
	if err := checkProxy(ctx, cfg, logger); err != nil {
		return "", err
	}

	db, err := openStore(cfg.DBDir, true)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close metadata database", "error", err)
		}
	}()

	res, err := pipeline.NewResources(cfg, db, logger)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Close() }()

	return res.NewDownloader(target).AddOrUpdate(ctx, target)
}
