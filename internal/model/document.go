package model

import (
	"sort"
	"time"
)

// DocumentRecord is the provenance record of one downloaded document,
// keyed by its local filename.
//
// UpdateHistory is append-only: the first successful download creates the
// record and every later successful download of the same filename appends one
// timestamp. Failed downloads never touch it.
type DocumentRecord struct {
	// Filename is the base name of the file in the documents directory.
	Filename string `json:"filename"`

	// URL is the source URL recorded when the record was created.
	URL string `json:"url"`

	// UpdateHistory holds one entry per successful download, oldest first.
	UpdateHistory []time.Time `json:"update_history"`

	// SizeBytes is the size of the most recent download.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// SHA3 is the hex SHA3-256 digest of the most recent download.
	SHA3 string `json:"sha3_256,omitempty"`
}

// FirstFetched returns the time of the first successful download,
// or the zero time when the history is empty.
func (r DocumentRecord) FirstFetched() time.Time {
	if len(r.UpdateHistory) == 0 {
		return time.Time{}
	}
	return r.UpdateHistory[0]
}

// LastFetched returns the time of the most recent successful download,
// or the zero time when the history is empty.
func (r DocumentRecord) LastFetched() time.Time {
	if len(r.UpdateHistory) == 0 {
		return time.Time{}
	}
	return r.UpdateHistory[len(r.UpdateHistory)-1]
}

// SortedRecords returns the records of m ordered by filename.
// Map iteration order is random, so every listing goes through here.
func SortedRecords(m map[string]DocumentRecord) []DocumentRecord {
	records := make([]DocumentRecord, 0, len(m))
	for _, r := range m {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Filename < records[j].Filename
	})
	return records
}

// Digest describes the bytes of one successful download.
type Digest struct {
	// SizeBytes is the number of bytes written to disk.
	SizeBytes int64

	// SHA3 is the hex SHA3-256 digest of the content.
	SHA3 string
}
