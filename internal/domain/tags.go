package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseTags splits comma-separated tag input.
// Examples:
//   - "design, inspiration, dev" -> ["design", "inspiration", "dev"]
//   - "   " -> []
func ParseTags(value string) []string {
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// FormatTags renders tags back into editable text.
func FormatTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// FaviconURL builds an image-by-domain reference from the URL origin.
// Reachability is never checked. Returns nil if the URL has no origin.
func FaviconURL(rawURL string) *string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	origin := u.Scheme + "://" + u.Host
	favicon := fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=32", origin)
	return &favicon
}
