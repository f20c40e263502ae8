package homepage

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Document is a parsed Homepage file of either format.
type Document struct {
	Kind      Kind
	Bookmarks BookmarksConfig
	Services  ServicesConfig
}

// Loader handles loading and parsing of Homepage bookmarks.yaml or services.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the file and detects its format. bookmarks.yaml nests a list
// under each bookmark name, services.yaml a mapping, so at most one of the
// two shapes decodes.
func (l *Loader) Load() (Document, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read homepage file: %w", err)
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	var bookmarks BookmarksConfig
	bErr := yaml.Unmarshal(data, &bookmarks)
	if bErr == nil && len(bookmarks) > 0 {
		return Document{Kind: KindBookmarks, Bookmarks: bookmarks}, nil
	}

	var services ServicesConfig
	sErr := yaml.Unmarshal(data, &services)
	if sErr == nil && len(services) > 0 {
		return Document{Kind: KindServices, Services: services}, nil
	}

	if bErr == nil && sErr == nil {
		return Document{}, errors.New("homepage file is empty")
	}
	return Document{}, fmt.Errorf("failed to parse homepage yaml: %w", errors.Join(bErr, sErr))
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
