package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/doccrawl/internal/config"
	"github.com/nao1215/doccrawl/internal/database"
	seclog "github.com/nao1215/doccrawl/internal/log"
	"github.com/nao1215/doccrawl/internal/report"
	"github.com/spf13/cobra"
)

// ErrOutputFormat is returned when --json and --markdown are both given.
var ErrOutputFormat = errors.New("--json and --markdown cannot be used together")

// getVerboseFlag reads --verbose from the command or the root command.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger installs the masking logger as the process default.
// Logs go to stderr so that reports on stdout stay machine readable.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := seclog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)
	return logger
}

// addStoreFlags registers the flags locating downloaded files and metadata.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the metadata database")
}

// addFormatFlags registers the report format and destination flags.
func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().StringP("output", "o", "", "Write the output to a file instead of stdout")
}

// outputOptions are the values of the format flags.
type outputOptions struct {
	json     bool
	markdown bool
	file     string
	verbose  bool
}

func getOutputOptions(cmd *cobra.Command) (outputOptions, error) {
	var (
		opts outputOptions
		err  error
	)
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.file, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, ErrOutputFormat
	}
	opts.verbose = getVerboseFlag(cmd)
	return opts, nil
}

// loadSiteConfigs loads the configuration file into cfg.
// An explicitly given path must exist; otherwise a missing file means no
// per-site settings.
func loadSiteConfigs(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		site, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = site
	case explicit:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}
	return nil
}

// openStore opens the metadata database. Read-only commands pass create
// false so that they never leave an empty database behind.
func openStore(dbDir string, create bool) (*database.MetadataDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}
	return db, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// openOutput returns the destination for a report: the file named by
// opts.file, created with owner-only permissions, or the command's stdout.
func openOutput(cmd *cobra.Command, opts outputOptions) (io.Writer, func() error, error) {
	if opts.file == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(opts.file)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(opts.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the report writer for opts.
func newReportWriter(w io.Writer, opts outputOptions) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(opts.verbose))
	}
}

// withReportWriter opens the output, runs write and closes the output.
func withReportWriter(cmd *cobra.Command, opts outputOptions, write func(report.Writer) error) (err error) {
	w, closeFn, err := openOutput(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(newReportWriter(w, opts))
}
