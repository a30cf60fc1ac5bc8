package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/doccrawl/internal/database"
)

func TestSummaryCmdEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "simple", args: []string{"summary"}, want: "No documents recorded."},
		{name: "json", args: []string{"summary", "--json"}, want: "{}"},
		{name: "runs simple", args: []string{"runs"}, want: "No crawl runs recorded."},
		{name: "runs json", args: []string{"runs", "--json"}, want: "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dbDir := filepath.Join(t.TempDir(), "data")

			out, err := execute(t, append(tt.args, "--db-dir", dbDir)...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected output to contain %q, got %q", tt.want, out)
			}
			if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); !os.IsNotExist(err) {
				t.Errorf("expected no database to be created, stat error = %v", err)
			}
		})
	}
}

func TestSummaryCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	for _, sub := range []string{"summary", "runs"} {
		t.Run(sub, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, sub, "-j", "-m", "--db-dir", t.TempDir())
			if !errors.Is(err, ErrOutputFormat) {
				t.Errorf("expected ErrOutputFormat, got %v", err)
			}
		})
	}
}

func TestRunsCmdUnknownID(t *testing.T) {
	t.Parallel()

	t.Run("no database", func(t *testing.T) {
		t.Parallel()
		_, err := execute(t, "runs", "missing-id", "--db-dir", t.TempDir())
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()
		dbDir := t.TempDir()
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		_, err = execute(t, "runs", "missing-id", "--db-dir", dbDir)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("too many arguments", func(t *testing.T) {
		t.Parallel()
		if _, err := execute(t, "runs", "a", "b", "--db-dir", t.TempDir()); err == nil {
			t.Error("expected error for two run IDs")
		}
	})
}

func TestRunsCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRunsCmd()
	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("expected limit flag")
	}
	if flag.Shorthand != "l" || flag.DefValue != "20" {
		t.Errorf("limit flag = -%s default %s", flag.Shorthand, flag.DefValue)
	}
}
