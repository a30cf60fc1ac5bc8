package download

import (
	"context"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// Store is the metadata store the download stage writes to.
//
// Upsert must be atomic per call: it creates the record with history [at]
// when filename is unknown, and otherwise appends at to the existing history
// without changing the recorded URL. Concurrent Upserts on the same filename
// must not lose entries.
type Store interface {
	// Get returns the record for filename, or nil when there is none.
	Get(ctx context.Context, filename string) (*model.DocumentRecord, error)

	// Upsert records one successful download.
	Upsert(ctx context.Context, filename, sourceURL string, at time.Time, digest model.Digest) error

	// ListAll returns every record keyed by filename.
	ListAll(ctx context.Context) (map[string]model.DocumentRecord, error)
}
