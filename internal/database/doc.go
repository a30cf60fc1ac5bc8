// Package database provides SQLite-based storage for doccrawl.
//
// MetadataDB stores:
//   - documents: one row per local filename with the URL it was first
//     downloaded from and the size and digest of the latest copy
//   - update_history: one row per successful download, append-only
//   - crawl_runs: the report of every crawl run as JSON
//
// SQLite is used through modernc.org/sqlite, which needs no cgo. The file
// lives next to the documents directory by default.
//
// MetadataDB satisfies download.Store.
package database
