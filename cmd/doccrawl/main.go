// Package main provides the entry point for the doccrawl CLI.
//
// doccrawl crawls a web site from a start URL, collects the documents it
// links to (PDF, Office files, archives and so on), downloads them into a
// local directory and keeps a provenance record for every file.
//
// Usage:
//
//	doccrawl crawl <url>...
//	doccrawl add <url>
//	doccrawl summary
//
// See --help for all available options.
package main

func main() {
	Execute()
}
