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

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "List every recorded document",
		Long: `Summary lists every document in the metadata database with its source URL
and the time of each fetch, ordered by filename.

With --json the output has the shape
  {"<filename>": {"url": "...", "update_history": ["<RFC 3339 time>", ...]}}

Examples:
  doccrawl summary
  doccrawl summary --json -o documents_metadata.json`,
		Args: cobra.NoArgs,
		RunE: runSummaryCmd,
	}

	addStoreFlags(cmd)
	addFormatFlags(cmd)

	return cmd
}

func runSummaryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := getOutputOptions(cmd)
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	records, err := loadDocuments(cmd.Context(), dbDir)
	if err != nil {
		return err
	}

	return withReportWriter(cmd, opts, func(w report.Writer) error {
		_, err := w.WriteDocuments(records)
		return err
	})
}

// loadDocuments returns every record ordered by filename. A missing
// database means nothing has been downloaded yet.
func loadDocuments(ctx context.Context, dbDir string) ([]model.DocumentRecord, error) {
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

	all, err := db.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return model.SortedRecords(all), nil
}
