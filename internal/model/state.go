package model

// CrawlState is the lifecycle state of one frontier traversal.
//
// A scheduler starts Idle, moves to Running when the first page is dequeued
// and ends in exactly one of the terminal states.
type CrawlState int

const (
	// CrawlStateIdle means the session is built but no page has been processed.
	CrawlStateIdle CrawlState = iota

	// CrawlStateRunning means pages are being dequeued and rendered.
	CrawlStateRunning

	// CrawlStateCompleted means the frontier drained before any quota was hit.
	CrawlStateCompleted

	// CrawlStateQuotaReached means the page or file quota stopped the traversal.
	CrawlStateQuotaReached

	// CrawlStateCancelled means the context was cancelled between two pages.
	CrawlStateCancelled
)

// String returns a human-readable representation of the crawl state.
func (s CrawlState) String() string {
	switch s {
	case CrawlStateIdle:
		return "IDLE"
	case CrawlStateRunning:
		return "RUNNING"
	case CrawlStateCompleted:
		return "COMPLETED"
	case CrawlStateQuotaReached:
		return "QUOTA_REACHED"
	case CrawlStateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ParseCrawlState converts the value produced by String back into a CrawlState.
// Unknown values map to CrawlStateIdle.
func ParseCrawlState(s string) CrawlState {
	switch s {
	case "RUNNING":
		return CrawlStateRunning
	case "COMPLETED":
		return CrawlStateCompleted
	case "QUOTA_REACHED":
		return CrawlStateQuotaReached
	case "CANCELLED":
		return CrawlStateCancelled
	default:
		return CrawlStateIdle
	}
}

// Terminal reports whether no further pages will be processed.
func (s CrawlState) Terminal() bool {
	return s == CrawlStateCompleted || s == CrawlStateQuotaReached || s == CrawlStateCancelled
}
