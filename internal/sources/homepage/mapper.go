package homepage

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// ErrNoEntries is returned when a file holds no importable link.
var ErrNoEntries = errors.New("no valid links found in homepage config")

// Mapper converts Homepage configs into import entries. Links that are not
// absolute http(s) URLs are skipped, as are repeats of the same URL.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapServices turns each service with an href into an entry titled with
// the service name.
func (m *Mapper) MapServices(config ServicesConfig) ([]Entry, error) {
	c := newCollector()
	for _, groupMap := range config {
		for _, group := range sortedKeys(groupMap) {
			for _, serviceMap := range groupMap[group] {
				for _, name := range sortedKeys(serviceMap) {
					c.add(group, name, serviceMap[name].Href)
				}
			}
		}
	}
	return c.result()
}

// MapBookmarks turns each bookmark into an entry titled with its name.
// Homepage nests one entry per bookmark; only the first is read.
func (m *Mapper) MapBookmarks(config BookmarksConfig) ([]Entry, error) {
	c := newCollector()
	for _, category := range config {
		for _, group := range sortedKeys(category) {
			for _, bookmarkMap := range category[group] {
				for _, name := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[name]
					if len(entries) == 0 {
						continue
					}
					title := name
					if title == "" {
						title = entries[0].Abbr
					}
					c.add(group, title, entries[0].Href)
				}
			}
		}
	}
	return c.result()
}

type collector struct {
	seen    map[string]bool
	entries []Entry
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(group, title, href string) {
	href = strings.TrimSpace(href)
	if domain.ValidateURL(href) != nil || c.seen[href] {
		return
	}
	c.seen[href] = true
	c.entries = append(c.entries, Entry{
		Group: group,
		Title: domain.DeriveTitle(href, title),
		URL:   href,
	})
}

func (c *collector) result() ([]Entry, error) {
	if len(c.entries) == 0 {
		return nil, ErrNoEntries
	}
	return c.entries, nil
}

// sortedKeys keeps output stable when a YAML map holds several keys.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
