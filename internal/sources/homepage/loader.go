package homepage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads one Homepage file.
type Loader struct {
	filePath string
	format   Format
	mapper   *Mapper
}

// NewLoader creates a loader for filePath. An empty format is guessed from
// the file name: services.yaml holds services, anything else bookmarks.
func NewLoader(filePath string, format Format) *Loader {
	if format == "" {
		format = DetectFormat(filePath)
	}
	return &Loader{
		filePath: filePath,
		format:   format,
		mapper:   NewMapper(),
	}
}

func (l *Loader) Format() Format { return l.format }

// DetectFormat guesses the format from the file name.
func DetectFormat(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "services.") {
		return FormatServices
	}
	return FormatBookmarks
}

// Load reads the file and returns its links in file order.
func (l *Loader) Load() ([]Entry, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", l.format, err)
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	switch l.format {
	case FormatServices:
		var config ServicesConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse services yaml: %w", err)
		}
		return l.mapper.MapServices(config)
	case FormatBookmarks:
		var config BookmarksConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
		}
		return l.mapper.MapBookmarks(config)
	default:
		return nil, fmt.Errorf("unknown homepage format %q", l.format)
	}
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
