// Package model defines the data structures shared by the crawler, the
// download pipeline, the metadata store and the report writers.
//
// The main types are:
//   - CrawlState: the lifecycle of one frontier traversal
//   - RunReport: the outcome of one crawl-and-download run
//   - Failure: a skipped page or download and why it was skipped
//   - DocumentRecord: the provenance of one downloaded file
//   - Digest: the size and SHA3-256 hash of a stored file
//
// The types live in their own package so that crawler, download, database
// and report can share them without import cycles. They serialize to JSON
// for reports and for the run history table.
package model
