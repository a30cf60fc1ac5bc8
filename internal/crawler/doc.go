// Package crawler discovers downloadable documents on a single site.
//
// # Architecture
//
// A Scheduler walks the site breadth-first from a seed URL. Each page is
// handed to a Renderer, which returns the raw hyperlink targets found on it.
// The scheduler canonicalizes every target, drops the ones outside the seed's
// domain scope and classifies the rest:
//
//   - KindFile: the URL ends in a document extension and is collected for
//     download.
//   - KindPage: the URL lives under the seed's base URL and is enqueued.
//   - KindIgnored: everything else, including images, archives and source
//     files.
//
// All per-run state lives in a Session, so one Scheduler can serve several
// crawls at once.
//
// # Renderers
//
//   - HTTPRenderer: plain GET plus static HTML parsing. Fast, no JavaScript.
//   - BrowserRenderer: headless Chrome via chromedp, for sites whose links are
//     built client-side.
//
// A failed render never stops the crawl. The page counts as scraped with no
// links and the failure is reported in Result.Failures.
//
// # Quotas
//
// The traversal stops once maxPages pages were rendered or maxFiles file
// links were found. Quotas are checked between pages, so the file list may
// exceed maxFiles by the links of the last page.
//
// # Usage
//
//	renderer := crawler.NewHTTPRenderer(client, crawler.WithCrawlDelay(time.Second))
//	scheduler := crawler.NewScheduler(renderer,
//	    crawler.WithMaxPages(100),
//	    crawler.WithMaxFiles(50),
//	)
//	result, err := scheduler.Run(ctx, "https://example.com/")
package crawler
