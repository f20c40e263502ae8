package homepage

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Mapper converts Homepage documents to importable items
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map dispatches on the document kind.
func (m *Mapper) Map(doc Document) ([]Item, error) {
	switch doc.Kind {
	case KindBookmarks:
		return m.MapBookmarks(doc.Bookmarks)
	case KindServices:
		return m.MapServices(doc.Services)
	default:
		return nil, fmt.Errorf("unknown homepage document kind %q", doc.Kind)
	}
}

// MapBookmarks converts bookmarks.yaml. The abbreviation becomes a tag.
func (m *Mapper) MapBookmarks(config BookmarksConfig) ([]Item, error) {
	items := make([]Item, 0)

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, bookmarkName := range sortedKeys(bookmarkMap) {
					entryList := bookmarkMap[bookmarkName]
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 || entryList[0].Href == "" {
						continue
					}
					entry := entryList[0]

					items = append(items, Item{
						Group: strings.TrimSpace(categoryName),
						Form: domain.BookmarkForm{
							Title: strings.TrimSpace(bookmarkName),
							URL:   entry.Href,
							Tags:  strings.ToLower(strings.TrimSpace(entry.Abbr)),
						},
					})
				}
			}
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in config")
	}
	return items, nil
}

// MapServices converts services.yaml. The first DNS label becomes a tag.
func (m *Mapper) MapServices(config ServicesConfig) ([]Item, error) {
	items := make([]Item, 0)

	// Iterate through groups
	for _, groupMap := range config {
		for _, groupName := range sortedKeys(groupMap) {
			for _, serviceMap := range groupMap[groupName] {
				for _, serviceName := range sortedKeys(serviceMap) {
					props := serviceMap[serviceName]

					// Skip services without href
					if props.Href == "" {
						continue
					}

					parsedURL, err := url.Parse(props.Href)
					if err != nil || parsedURL.Hostname() == "" {
						continue
					}

					items = append(items, Item{
						Group: strings.TrimSpace(groupName),
						Form: domain.BookmarkForm{
							Title:       strings.TrimSpace(serviceName),
							URL:         props.Href,
							Description: strings.TrimSpace(props.Description),
							Tags:        extractServiceName(parsedURL.Hostname()),
						},
					})
				}
			}
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid services found in homepage config")
	}
	return items, nil
}

// extractServiceName extracts the first DNS label as service name
// Example: "jellyfin.domain.ext" -> "jellyfin"
func extractServiceName(hostname string) string {
	parts := strings.Split(hostname, ".")
	if len(parts) > 0 {
		return parts[0]
	}
	return hostname
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
