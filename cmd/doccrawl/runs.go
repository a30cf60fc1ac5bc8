package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/doccrawl/internal/database"
	"github.com/nao1215/doccrawl/internal/model"
	"github.com/nao1215/doccrawl/internal/report"
	"github.com/spf13/cobra"
)

// defaultRunsLimit is the number of runs listed when --limit is not given.
const defaultRunsLimit = 20

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("crawl run not found")

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded crawl runs",
		Long: `Runs lists past crawls recorded in the metadata database, newest first,
with their state and counters. Given a run ID, it prints the full report of
that run, including discovered files and failures.

Examples:
  doccrawl runs
  doccrawl runs --limit 5 --markdown
  doccrawl runs 0b6f2c1e-4f0e-4a8e-9d55-3c1f2a7e9b10 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunsCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultRunsLimit,
		"Maximum number of runs to list (0 for all)")
	addStoreFlags(cmd)
	addFormatFlags(cmd)

	return cmd
}

func runRunsCmd(cmd *cobra.Command, args []string) error {
	opts, err := getOutputOptions(cmd)
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	if len(args) == 1 {
		run, err := loadRun(cmd.Context(), dbDir, args[0])
		if err != nil {
			return err
		}
		return withReportWriter(cmd, opts, func(w report.Writer) error {
			_, err := w.WriteRun(run)
			return err
		})
	}

	runs, err := loadRuns(cmd.Context(), dbDir, limit)
	if err != nil {
		return err
	}

	return withReportWriter(cmd, opts, func(w report.Writer) error {
		_, err := w.WriteRuns(runs)
		return err
	})
}

// loadRuns returns the newest limit runs.
func loadRuns(ctx context.Context, dbDir string, limit int) ([]*model.RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(dbDir, false)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// loadRun returns the run with the given ID.
func loadRun(ctx context.Context, dbDir, id string) (*model.RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(dbDir, false)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	defer func() { _ = db.Close() }()

	run, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}
