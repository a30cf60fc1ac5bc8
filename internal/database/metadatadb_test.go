package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *MetadataDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails on missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := db.Upsert(context.Background(), "a.pdf", "https://ex.com/a.pdf", at, model.Digest{}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		record, err := db.Get(context.Background(), "a.pdf")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if record == nil || !record.FirstFetched().Equal(at) {
			t.Errorf("expected persisted record, got %+v", record)
		}
	})
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	t.Run("creates then appends", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		second := first.Add(time.Hour)

		if err := db.Upsert(ctx, "report.pdf", "https://ex.com/report.pdf", first, model.Digest{SizeBytes: 10, SHA3: "aa"}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := db.Upsert(ctx, "report.pdf", "https://mirror.ex.com/report.pdf", second, model.Digest{SizeBytes: 20, SHA3: "bb"}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		record, err := db.Get(ctx, "report.pdf")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if record == nil {
			t.Fatal("expected a record")
		}
		if record.URL != "https://ex.com/report.pdf" {
			t.Errorf("expected the first URL to be kept, got %s", record.URL)
		}
		if len(record.UpdateHistory) != 2 {
			t.Fatalf("expected 2 history entries, got %d", len(record.UpdateHistory))
		}
		if !record.UpdateHistory[0].Equal(first) || !record.UpdateHistory[1].Equal(second) {
			t.Errorf("unexpected history %v", record.UpdateHistory)
		}
		if record.SizeBytes != 20 || record.SHA3 != "bb" {
			t.Errorf("expected latest digest, got %d %s", record.SizeBytes, record.SHA3)
		}
	})

	t.Run("sub-second timestamps keep their order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		for _, offset := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
			if err := db.Upsert(ctx, "a.txt", "https://ex.com/a.txt", base.Add(offset), model.Digest{}); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}

		record, _ := db.Get(ctx, "a.txt")
		for i := 1; i < len(record.UpdateHistory); i++ {
			if !record.UpdateHistory[i-1].Before(record.UpdateHistory[i]) {
				t.Errorf("history out of order: %v", record.UpdateHistory)
			}
		}
	})

	t.Run("concurrent upserts lose nothing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		const workers = 20

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				at := time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
				errs <- db.Upsert(ctx, "shared.pdf", "https://ex.com/shared.pdf", at, model.Digest{SizeBytes: int64(i)})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}

		record, err := db.Get(ctx, "shared.pdf")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(record.UpdateHistory) != workers {
			t.Errorf("expected %d history entries, got %d", workers, len(record.UpdateHistory))
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record, err := db.Get(context.Background(), "absent.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil for a missing record, got %+v", record)
	}
}

func TestListAll(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"b.pdf", "a.pdf", "b.pdf"} {
		url := fmt.Sprintf("https://ex.com/%s", name)
		if err := db.Upsert(ctx, name, url, at.Add(time.Duration(i)*time.Minute), model.Digest{}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	all, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if len(all["b.pdf"].UpdateHistory) != 2 {
		t.Errorf("expected 2 entries for b.pdf, got %v", all["b.pdf"].UpdateHistory)
	}
	if len(all["a.pdf"].UpdateHistory) != 1 {
		t.Errorf("expected 1 entry for a.pdf, got %v", all["a.pdf"].UpdateHistory)
	}
	if all["a.pdf"].Filename != "a.pdf" || all["a.pdf"].URL != "https://ex.com/a.pdf" {
		t.Errorf("unexpected record %+v", all["a.pdf"])
	}

	empty := setupTestDB(t)
	none, err := empty.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty listing, got %v", none)
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	older := model.NewRunReport("https://ex.com/", 10, 5)
	older.StartedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older.SetState(model.CrawlStateCompleted)
	older.PagesScraped = 3

	newer := model.NewRunReport("https://docs.ex.com/", 100, 50)
	newer.StartedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newer.SetState(model.CrawlStateRunning)

	for _, r := range []*model.RunReport{older, newer} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	// Saving again replaces the stored report.
	newer.SetState(model.CrawlStateQuotaReached)
	newer.FilesDownloaded = 7
	if err := db.SaveRun(ctx, newer); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID {
		t.Errorf("expected newest run first, got %s", runs[0].StartURL)
	}
	if runs[0].State != model.CrawlStateQuotaReached || runs[0].FilesDownloaded != 7 {
		t.Errorf("expected updated run, got %+v", runs[0])
	}

	limited, err := db.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 run, got %d", len(limited))
	}

	got, err := db.GetRun(ctx, older.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.PagesScraped != 3 || got.State != model.CrawlStateCompleted {
		t.Errorf("unexpected run %+v", got)
	}

	missing, err := db.GetRun(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for a missing run, got %v, %v", missing, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, s := range []string{
		"2024-03-04T05:06:07.000000000Z",
		"2024-03-04T05:06:07Z",
		"2024-03-04 05:06:07",
	} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for garbage")
	}
}
