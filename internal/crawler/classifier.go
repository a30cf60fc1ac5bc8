package crawler

import "strings"

// Kind is the classification of a discovered link.
type Kind int

const (
	// KindIgnored links are neither crawled nor downloaded.
	KindIgnored Kind = iota

	// KindPage links are candidates for the frontier.
	KindPage

	// KindFile links are candidates for download.
	KindFile
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindPage:
		return "page"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// DefaultDocumentExtensions are the document types downloaded by default.
var DefaultDocumentExtensions = []string{
	".pdf", ".docx", ".doc", ".txt", ".xlsx", ".xls", ".csv", ".ppt", ".pptx",
}

// DefaultExcludedExtensions are link targets that are neither documents nor
// pages: images, archives, executables, source code and binaries.
var DefaultExcludedExtensions = []string{
	// images
	".png", ".gif", ".jpg", ".jpeg", ".bmp", ".webp", ".svg", ".ico", ".tiff",
	// archives and installers
	".zip", ".tar", ".gz", ".rar", ".7z", ".exe", ".dmg", ".pkg", ".deb", ".rpm",
	// source code
	".py", ".java", ".js", ".c", ".cpp", ".h", ".cs", ".php", ".rb", ".go", ".rs", ".md",
	// databases and shared libraries
	".db", ".sqlite", ".so", ".dll",
}

// Classifier decides whether a URL is a page, a file or noise.
//
// The allow-list is checked first, then the exclusion list, then the base URL
// prefix. Excluded URLs therefore never reach the frontier even when they live
// under the base URL.
type Classifier struct {
	baseURL            string
	documentExtensions []string
	excludedExtensions []string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithDocumentExtensions replaces the document allow-list.
// Entries are lowercased and given a leading dot when missing.
func WithDocumentExtensions(exts []string) ClassifierOption {
	return func(c *Classifier) {
		if len(exts) > 0 {
			c.documentExtensions = normalizeExtensions(exts)
		}
	}
}

// WithExcludedExtensions replaces the exclusion list.
func WithExcludedExtensions(exts []string) ClassifierOption {
	return func(c *Classifier) {
		if len(exts) > 0 {
			c.excludedExtensions = normalizeExtensions(exts)
		}
	}
}

// NewClassifier creates a Classifier for pages under baseURL.
func NewClassifier(baseURL string, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		baseURL:            baseURL,
		documentExtensions: DefaultDocumentExtensions,
		excludedExtensions: DefaultExcludedExtensions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the kind of rawURL.
func (c *Classifier) Classify(rawURL string) Kind {
	lower := strings.ToLower(rawURL)

	if hasAnySuffix(lower, c.documentExtensions) {
		return KindFile
	}
	if hasAnySuffix(lower, c.excludedExtensions) {
		return KindIgnored
	}
	if c.baseURL != "" && strings.HasPrefix(rawURL, c.baseURL) {
		return KindPage
	}
	return KindIgnored
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
