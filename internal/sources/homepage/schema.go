// Package homepage reads links out of Homepage (gethomepage.dev) config
// files so they can be imported as bookmarks.
package homepage

// Format names which Homepage file is being read.
type Format string

const (
	FormatBookmarks Format = "bookmarks" // bookmarks.yaml
	FormatServices  Format = "services"  // services.yaml
)

// ServicesConfig is the top-level structure of services.yaml.
// Homepage uses dynamic keys: - Group: [ - Service: { href, ... } ]
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps holds the service fields an import cares about; widgets and
// monitors are ignored.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// BookmarkEntry is a single bookmark entry in bookmarks.yaml.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// BookmarksConfig is the root structure of bookmarks.yaml:
// - Category: [ - Name: [ { icon, abbr, href } ] ]
type BookmarksConfig []map[string][]map[string][]BookmarkEntry

// Entry is one importable link.
type Entry struct {
	Group string
	Title string
	URL   string
}
