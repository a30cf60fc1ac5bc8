package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/doccrawl/internal/config"
	"github.com/nao1215/doccrawl/internal/httpclient"
	"github.com/nao1215/doccrawl/internal/model"
	"github.com/nao1215/doccrawl/internal/pipeline"
	"github.com/nao1215/doccrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl a site and download the documents it links to",
		Long: `Crawl visits pages breadth-first from each start URL, staying on the start
URL's domain and its subdomains. Links to documents are collected and
downloaded once the crawl ends; every download is recorded in the metadata
database together with its source URL and fetch time.

Each start URL is crawled in its own session. Several start URLs are
crawled concurrently (see --batch).

Examples:
  # Crawl a site with the default quotas
  doccrawl crawl https://docs.example.com

  # Crawl at most 20 pages and download at most 10 files
  doccrawl crawl --max-pages 20 --max-files 10 https://docs.example.com

  # Render pages in headless Chrome
  doccrawl crawl --renderer browser https://spa.example.com

  # Write a Markdown report to a file
  doccrawl crawl --markdown -o report.md https://docs.example.com

Configuration file (.doccrawl) example:
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      maxPages: 500
      crawlDelay: 1s`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to render (negative for unlimited)")
	cmd.Flags().IntP("max-files", "n", config.DefaultMaxFiles,
		"Maximum number of files to collect and download (negative for unlimited)")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of concurrent downloads")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of start URLs crawled concurrently")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout for a single download")
	cmd.Flags().DurationP("page-timeout", "t", config.DefaultPageLoadTimeout,
		"Timeout for loading a single page")
	cmd.Flags().Duration("element-timeout", config.DefaultElementWaitTimeout,
		"Timeout for the page body to appear (browser renderer)")
	cmd.Flags().StringP("renderer", "r", config.RendererHTTP,
		"Page renderer: http or browser")
	cmd.Flags().String("chrome-path", "",
		"Chrome binary used by the browser renderer")
	cmd.Flags().Bool("headful", false,
		"Show the browser window (browser renderer)")
	cmd.Flags().Duration("crawl-delay", config.DefaultCrawlDelay,
		"Minimum delay between page requests")
	cmd.Flags().Bool("respect-robots", false,
		"Skip pages disallowed by robots.txt")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header for page and file requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of page bytes parsed")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().StringSlice("doc-ext", nil,
		"Document extensions to download, replacing the built-in list (e.g. .pdf,.docx)")
	cmd.Flags().StringSlice("exclude-ext", nil,
		"Extensions never followed nor downloaded, replacing the built-in list")
	cmd.Flags().StringP("dir", "d", config.DefaultDocumentsDir(),
		"Directory downloaded files are written to")
	cmd.Flags().StringP("config", "c", "",
		"Path to configuration file (default: .doccrawl in current or home directory)")
	addStoreFlags(cmd)
	addFormatFlags(cmd)

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := getOutputOptions(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, cancel := signalContext(logger)
	defer cancel()

	reports, err := runCrawl(ctx, cfg, logger)
	if outErr := withReportWriter(cmd, opts, func(w report.Writer) error {
		return writeReports(w, reports)
	}); outErr != nil {
		logger.Error("report failed", "error", outErr)
		if err == nil {
			err = outErr
		}
	}
	return err
}

// buildConfig creates a Config from the crawl command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxFiles, err = flags.GetInt("max-files"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = flags.GetDuration("download-timeout"); err != nil {
		return nil, err
	}
	if cfg.PageLoadTimeout, err = flags.GetDuration("page-timeout"); err != nil {
		return nil, err
	}
	if cfg.ElementWaitTimeout, err = flags.GetDuration("element-timeout"); err != nil {
		return nil, err
	}
	if cfg.Renderer, err = flags.GetString("renderer"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.Headful, err = flags.GetBool("headful"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.DocumentExtensions, err = flags.GetStringSlice("doc-ext"); err != nil {
		return nil, err
	}
	if cfg.ExcludedExtensions, err = flags.GetStringSlice("exclude-ext"); err != nil {
		return nil, err
	}
	if cfg.DocumentsDir, err = flags.GetString("dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// runCrawl crawls every target of cfg and returns their reports in target
// order. Page and download failures stay inside the reports; the returned
// error is reserved for setup failures and cancellation.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]*model.RunReport, error) {
	if err := checkProxy(ctx, cfg, logger); err != nil {
		return nil, err
	}

	db, err := openStore(cfg.DBDir, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close metadata database", "error", err)
		}
	}()

	res, err := pipeline.NewResources(cfg, db, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("failed to stop browser", "error", err)
		}
	}()

	logger.Debug("metadata database opened", "path", db.Path())

	bp := pipeline.NewBatchProcessor(
		func(target string) (*pipeline.Pipeline, error) {
			return res.DefaultPipeline(target)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return reports, fmt.Errorf("crawl interrupted: %w", err)
	}
	return reports, nil
}

// checkProxy verifies that the configured proxy speaks SOCKS5.
func checkProxy(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.ProxyAddress == "" {
		return nil
	}

	client, err := httpclient.New(cfg.ProxyAddress, 0)
	if err != nil {
		return err
	}

	status := client.CheckProxy(ctx)
	if err := status.Error(); err != nil {
		return fmt.Errorf("%w: %s", err, client.ProxyAddress())
	}
	logger.Debug("proxy ready", "address", client.ProxyAddress())
	return nil
}

// writeReports writes the reports of every crawl that started.
func writeReports(w report.Writer, reports []*model.RunReport) error {
	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, err := w.WriteRun(r); err != nil {
			return err
		}
	}
	return nil
}
