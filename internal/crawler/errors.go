package crawler

import "errors"

// Renderer and scheduler errors.
//
// Renderers wrap their failures in one of the two render errors so the
// scheduler can record what kind of failure skipped a page.
var (
	// ErrRenderTimeout is returned when a page did not load in time.
	ErrRenderTimeout = errors.New("page render timed out")

	// ErrRenderFailed is returned for navigation, HTTP or DOM extraction failures.
	ErrRenderFailed = errors.New("page render failed")

	// ErrInvalidSeed is returned when the seed URL has no scheme or host.
	ErrInvalidSeed = errors.New("invalid seed URL: scheme and host are required")

	// ErrNoRenderer is returned when a Scheduler is built without a Renderer.
	ErrNoRenderer = errors.New("no page renderer configured")
)
