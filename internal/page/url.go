// Package page matches credentials to the displayed page and targets
// login fields for injection.
package page

import (
	"strings"

	"github.com/org/credvault/pkg/models"
)

// Normalize canonicalizes a URL for comparison: lowercase, no scheme, no
// leading "www.", no trailing slash, no query string.
func Normalize(url string) string {
	u := strings.ToLower(url)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimSuffix(u, "/")
	return u
}

// Matches reports whether a stored credential URL matches the current
// page. The match is a deliberately permissive bidirectional substring
// check over normalized forms: a stored "example.com" matches a page on
// "app.example.com/login", and a stored "app.example.com/admin" matches a
// page on "example.com".
func Matches(credURL, pageURL string) bool {
	c := Normalize(credURL)
	p := Normalize(pageURL)
	if c == "" || p == "" {
		return false
	}
	return strings.Contains(p, c) || strings.Contains(c, p)
}

// FilterForPage returns the credentials matching the page, in order.
func FilterForPage(creds []models.SafeCredential, pageURL string) []models.SafeCredential {
	out := make([]models.SafeCredential, 0, len(creds))
	for _, c := range creds {
		if Matches(c.WebsiteURL, pageURL) {
			out = append(out, c)
		}
	}
	return out
}
