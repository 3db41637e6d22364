package lint

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// DefaultDocsBaseURL is the hosted documentation site.
const DefaultDocsBaseURL = "https://pgcheck.dev/docs/rules"

var docsBaseURL atomic.Pointer[string]

// DocsBaseURL returns the base URL used for rule documentation links.
func DocsBaseURL() string {
	if u := docsBaseURL.Load(); u != nil {
		return *u
	}
	return DefaultDocsBaseURL
}

// BuildDocURL constructs a documentation URL for a rule.
func BuildDocURL(key RuleKey) string {
	if key.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", DocsBaseURL(), key.group, key.rule)
}

// SetDocsBaseURL overrides the default documentation base URL.
// Useful for offline mode or custom documentation sites.
func SetDocsBaseURL(url string) {
	url = strings.TrimSuffix(url, "/")
	docsBaseURL.Store(&url)
}

// ResetDocsBaseURL resets to the default documentation URL.
func ResetDocsBaseURL() {
	docsBaseURL.Store(nil)
}
