// Package pipeline runs a crawl as a sequence of steps over a RunReport:
// crawl the site, download the discovered documents, then record the run.
//
// Resources wires the concrete pieces (HTTP client, renderer, downloader,
// metadata store) from the configuration. BatchProcessor runs one pipeline
// per seed with bounded concurrency using errgroup.
package pipeline
