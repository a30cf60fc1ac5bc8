package download

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// inferredExtensions are the suffixes recognized when a name has to be
// synthesized. Anything else is saved as HTML.
var inferredExtensions = []string{".pdf", ".docx", ".xlsx", ".csv", ".txt", ".pptx"}

const defaultExtension = ".html"

// FilenameFor returns the local filename for rawURL.
//
// The last path segment is used when it contains a dot. Otherwise the name is
// stem followed by the extension inferred from the URL. Names are returned in
// Unicode NFC so the same document always maps to the same key.
func FilenameFor(rawURL, stem string) string {
	if name, ok := urlFilename(rawURL); ok {
		return norm.NFC.String(name)
	}
	return norm.NFC.String(stem + InferExtension(rawURL))
}

// urlFilename returns path.Base of the URL path when it is a usable filename.
func urlFilename(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Path == "" {
		return "", false
	}

	name := path.Base(u.Path)
	switch name {
	case ".", "..", "/":
		return "", false
	}
	if !strings.Contains(name, ".") {
		return "", false
	}
	return name, true
}

// InferExtension returns the known document extension rawURL ends with,
// or ".html".
func InferExtension(rawURL string) string {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, ext := range inferredExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return defaultExtension
}
