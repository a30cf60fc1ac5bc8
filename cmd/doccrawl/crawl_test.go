package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/doccrawl/internal/config"
	"github.com/nao1215/doccrawl/internal/httpclient"
	"github.com/nao1215/doccrawl/internal/model"
	"github.com/nao1215/doccrawl/internal/report"
)

// docSite serves a home page and a guide page linking to two documents.
func docSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
			<a href="/guide">Guide</a>
			<a href="/files/report.pdf">Report</a>
		</body></html>`)
	})
	mux.HandleFunc("/guide", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/files/notes.txt">Notes</a></body></html>`)
	})
	mux.HandleFunc("/files/report.pdf", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "%PDF-1.4 report")
	})
	mux.HandleFunc("/files/notes.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "notes")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// workspace holds the directories and empty config file of one test run.
type workspace struct {
	docs   string
	db     string
	config string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()

	dir := t.TempDir()
	ws := workspace{
		docs:   filepath.Join(dir, "documents"),
		db:     filepath.Join(dir, "data"),
		config: filepath.Join(dir, "config.yaml"),
	}
	if err := os.WriteFile(ws.config, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return ws
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Use != "crawl <url>..." {
		t.Errorf("expected use 'crawl <url>...', got %q", cmd.Use)
	}
	if cmd.Args == nil {
		t.Error("expected Args validator")
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"max-pages", "p", "100"},
		{"max-files", "n", "50"},
		{"concurrency", "", "10"},
		{"batch", "b", "2"},
		{"page-timeout", "t", "30s"},
		{"download-timeout", "", "30s"},
		{"element-timeout", "", "10s"},
		{"renderer", "r", "http"},
		{"crawl-delay", "", "0s"},
		{"headful", "", "false"},
		{"respect-robots", "", "false"},
		{"proxy", "x", ""},
		{"dir", "d", config.DefaultDocumentsDir()},
		{"db-dir", "", config.XDGDataDir()},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
	}
	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()
		ws := newWorkspace(t)

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"-p", "5", "-n", "-1", "--crawl-delay", "250ms", "--headful",
			"--doc-ext", ".pdf,.epub", "-d", ws.docs, "--db-dir", ws.db, "-c", ws.config,
		}); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://docs.example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.MaxPages != 5 || cfg.MaxFiles != -1 {
			t.Errorf("quotas = %d/%d, want 5/-1", cfg.MaxPages, cfg.MaxFiles)
		}
		if !cfg.Headful {
			t.Error("expected Headful to be set")
		}
		if cfg.CrawlDelay != 250*time.Millisecond {
			t.Errorf("CrawlDelay = %v, want 250ms", cfg.CrawlDelay)
		}
		if len(cfg.DocumentExtensions) != 2 || cfg.DocumentExtensions[1] != ".epub" {
			t.Errorf("DocumentExtensions = %v", cfg.DocumentExtensions)
		}
		if cfg.DocumentsDir != ws.docs || cfg.DBDir != ws.db {
			t.Errorf("dirs = %q, %q", cfg.DocumentsDir, cfg.DBDir)
		}
		if cfg.SiteConfigs == nil {
			t.Error("expected SiteConfigs to be set")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("loads site settings", func(t *testing.T) {
		t.Parallel()
		ws := newWorkspace(t)
		yaml := "sites:\n  Docs.Example.com:\n    maxPages: 7\n    crawlDelay: 2s\n"
		if err := os.WriteFile(ws.config, []byte(yaml), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", ws.config}); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		cfg, err := buildConfig(cmd, []string{"https://docs.example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		site := cfg.SiteFor("https://docs.example.com/start")
		if site.MaxPages != 7 || site.CrawlDelay != 2*time.Second {
			t.Errorf("SiteFor() = %+v", site)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "nope.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		_, err := buildConfig(cmd, []string{"https://docs.example.com"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestCrawlCmdRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "relative url",
			args: []string{"crawl", "-c", ws.config, "docs.example.com"},
			want: config.ErrInvalidTarget,
		},
		{
			name: "unknown renderer",
			args: []string{"crawl", "-c", ws.config, "-r", "lynx", "https://docs.example.com"},
			want: config.ErrUnknownRenderer,
		},
		{
			name: "conflicting formats",
			args: []string{"crawl", "-c", ws.config, "-j", "-m", "https://docs.example.com"},
			want: config.ErrConflictingReportFormats,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("no url", func(t *testing.T) {
		t.Parallel()
		if _, err := execute(t, "crawl"); err == nil {
			t.Error("expected error without a url")
		}
	})
}

func TestCrawlCmdUnreachableProxy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ws := newWorkspace(t)
	_, err = execute(t, "crawl", "-c", ws.config, "-d", ws.docs, "--db-dir", ws.db,
		"-x", addr, "https://docs.example.com")
	if !errors.Is(err, httpclient.ErrProxyCannotConnect) {
		t.Errorf("expected ErrProxyCannotConnect, got %v", err)
	}
}

func TestCrawlCmdEndToEnd(t *testing.T) {
	srv := docSite(t)
	ws := newWorkspace(t)

	out, err := execute(t, "crawl", "--json",
		"-c", ws.config, "-d", ws.docs, "--db-dir", ws.db, srv.URL+"/")
	if err != nil {
		t.Fatalf("crawl error = %v", err)
	}

	var run model.RunReport
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("crawl output is not a JSON run report: %v\n%s", err, out)
	}
	if run.PagesScraped != 2 {
		t.Errorf("PagesScraped = %d, want 2", run.PagesScraped)
	}
	if len(run.FileLinks) != 2 {
		t.Errorf("FileLinks = %v, want 2 links", run.FileLinks)
	}
	if run.FilesAttempted != 2 || run.FilesDownloaded != 2 {
		t.Errorf("downloaded %d/%d, want 2/2", run.FilesDownloaded, run.FilesAttempted)
	}
	for _, name := range []string{"report.pdf", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(ws.docs, name)); err != nil {
			t.Errorf("expected %s to be downloaded: %v", name, err)
		}
	}

	t.Run("simple report", func(t *testing.T) {
		out, err := execute(t, "crawl", "-c", ws.config, "-d", ws.docs, "--db-dir", ws.db, srv.URL+"/")
		if err != nil {
			t.Fatalf("crawl error = %v", err)
		}
		for _, want := range []string{"Pages scraped:    2", "Files found:      2", "Files downloaded: 2/2"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("summary lists every fetch", func(t *testing.T) {
		out, err := execute(t, "summary", "--json", "--db-dir", ws.db)
		if err != nil {
			t.Fatalf("summary error = %v", err)
		}
		var index report.DocumentIndex
		if err := json.Unmarshal([]byte(out), &index); err != nil {
			t.Fatalf("summary output is not JSON: %v\n%s", err, out)
		}
		entry, ok := index["report.pdf"]
		if !ok {
			t.Fatalf("expected report.pdf in %v", index)
		}
		if entry.URL != srv.URL+"/files/report.pdf" {
			t.Errorf("URL = %q", entry.URL)
		}
		if len(entry.UpdateHistory) != 2 {
			t.Errorf("UpdateHistory = %v, want one entry per crawl", entry.UpdateHistory)
		}
	})

	t.Run("runs lists both crawls", func(t *testing.T) {
		out, err := execute(t, "runs", "--json", "--db-dir", ws.db)
		if err != nil {
			t.Fatalf("runs error = %v", err)
		}
		var runs []model.RunReport
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("runs output is not JSON: %v\n%s", err, out)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}

		out, err = execute(t, "runs", runs[1].ID, "--json", "--db-dir", ws.db)
		if err != nil {
			t.Fatalf("runs <id> error = %v", err)
		}
		var run model.RunReport
		if err := json.Unmarshal([]byte(out), &run); err != nil {
			t.Fatalf("runs <id> output is not JSON: %v\n%s", err, out)
		}
		if run.ID != runs[1].ID || run.StartURL != srv.URL+"/" {
			t.Errorf("runs <id> = %s %s, want %s", run.ID, run.StartURL, runs[1].ID)
		}
		if len(run.FileLinks) != 2 || run.FilesDownloaded != 2 {
			t.Errorf("expected the full report, got %+v", run)
		}
	})

	t.Run("report file", func(t *testing.T) {
		reportPath := filepath.Join(t.TempDir(), "reports", "run.md")
		out, err := execute(t, "crawl", "--markdown", "-o", reportPath,
			"-c", ws.config, "-d", ws.docs, "--db-dir", ws.db, srv.URL+"/")
		if err != nil {
			t.Fatalf("crawl error = %v", err)
		}
		if out != "" {
			t.Errorf("expected nothing on stdout, got %q", out)
		}
		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# doccrawl Report") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})
}
