// Package catalog holds the fixed set of transaction categories the assistant
// may use, with the free-text aliases that resolve to each of them.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/finbot/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategories []byte

// Entry is one category with its aliases.
type Entry struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Icon    string   `yaml:"icon"`
	Color   string   `yaml:"color"`
	Aliases []string `yaml:"aliases"`
}

type file struct {
	Fallback   string  `yaml:"fallback"`
	Categories []Entry `yaml:"categories"`
}

// Catalog resolves category ids, names and aliases to canonical category ids.
type Catalog struct {
	entries  []Entry
	index    map[string]string
	fallback string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCategories)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded categories: %v", err))
	}
	return c
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("Parse: unmarshal yaml: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("Parse: no categories defined")
	}

	c := &Catalog{
		entries:  f.Categories,
		index:    make(map[string]string),
		fallback: f.Fallback,
	}
	for _, e := range f.Categories {
		if e.ID == "" {
			return nil, fmt.Errorf("Parse: category without id")
		}
		if _, err := domain.ParseTransactionType(e.Type); err != nil {
			return nil, fmt.Errorf("Parse: category %s: %w", e.ID, err)
		}
		for _, key := range append([]string{e.ID, e.Name}, e.Aliases...) {
			k := normalize(key)
			if k == "" {
				continue
			}
			if existing, ok := c.index[k]; ok && existing != e.ID {
				return nil, fmt.Errorf("Parse: alias %q used by %s and %s", key, existing, e.ID)
			}
			c.index[k] = e.ID
		}
	}
	if c.fallback == "" {
		c.fallback = f.Categories[len(f.Categories)-1].ID
	}
	if _, ok := c.index[normalize(c.fallback)]; !ok {
		return nil, fmt.Errorf("Parse: fallback %q is not a category", c.fallback)
	}
	return c, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Resolve maps a raw category string to a canonical id. Unknown or empty
// input resolves to the fallback, reported by ok=false.
func (c *Catalog) Resolve(raw string) (id string, ok bool) {
	if id, ok := c.index[normalize(raw)]; ok {
		return id, true
	}
	// Models sometimes answer with "food/restaurant" or "food (lunch)".
	head := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '(' || r == ',' || r == '|'
	})
	if len(head) > 1 {
		if id, ok := c.index[normalize(head[0])]; ok {
			return id, true
		}
	}
	return c.fallback, false
}

// Fallback returns the id used for unknown categories.
func (c *Catalog) Fallback() string {
	return c.fallback
}

// IDs returns all category ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ID
	}
	return ids
}

// IDsOfType returns the ids of categories with the given type.
func (c *Catalog) IDsOfType(t domain.TransactionType) []string {
	var ids []string
	for _, e := range c.entries {
		if et, _ := domain.ParseTransactionType(e.Type); et == t {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Categories returns the catalog as domain categories sorted by name.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(c.entries))
	for _, e := range c.entries {
		t, _ := domain.ParseTransactionType(e.Type)
		out = append(out, domain.Category{
			ID:    e.ID,
			Name:  e.Name,
			Type:  t,
			Icon:  e.Icon,
			Color: e.Color,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
