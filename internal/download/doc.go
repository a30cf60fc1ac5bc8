// Package download fetches discovered documents into the documents directory
// and records each success in the metadata store.
//
// # Pipeline
//
// Downloader.DownloadAll takes the file links of a crawl in discovery order,
// caps them at maxFiles and runs one single-attempt fetch per link on a
// bounded worker pool. Dispatch blocks while the pool is full. A failed fetch
// is logged, reported in Result.Failures and never retried; other downloads
// are unaffected.
//
// Each fetch streams the body into a temporary file next to its destination,
// hashing it on the way, then syncs and renames it into place. A failure at
// any point removes the temporary file, so a partial download never replaces
// an earlier good copy.
//
// # Filenames
//
// The local name is the last segment of the URL path when it contains a dot.
// Otherwise a name is synthesized from a stem and an extension inferred from
// the URL, for example document_3.pdf or manual_1718000000.html. Two URLs
// that map to the same name share one file and one metadata record.
package download
