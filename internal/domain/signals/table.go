// Package signals extracts per-category lexical signal counts from
// observation text using a declarative pattern table.
package signals

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/cadis/internal/domain/model"
)

const component = "signals"

//go:embed patterns.yaml
var defaultPatterns []byte

// Category is one entry of the pattern table as written in YAML.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Label    string   `yaml:"label" json:"label"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

type tableFile struct {
	Categories []Category `yaml:"categories"`
}

type compiled struct {
	Category
	re *regexp.Regexp
}

// Table is the compiled, read-only category to pattern table.
type Table struct {
	categories []compiled
	index      map[string]int
}

// DefaultTable returns the embedded pattern table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultPatterns)
}

// LoadTableFile reads and compiles a pattern table from path.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Configf(component, "read pattern table %s: %v", path, err)
	}
	return ParseTable(data)
}

// ParseTable compiles a YAML pattern table. Every category's patterns are
// joined into a single word-bounded alternation so matches never overlap.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.Configf(component, "parse pattern table: %v", err)
	}
	return NewTable(f.Categories)
}

// NewTable validates and compiles categories.
func NewTable(categories []Category) (*Table, error) {
	if len(categories) == 0 {
		return nil, model.Configf(component, "pattern table has no categories")
	}
	t := &Table{index: make(map[string]int, len(categories))}
	for _, c := range categories {
		if c.Name == "" {
			return nil, model.Configf(component, "category without a name")
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, model.Configf(component, "duplicate category %q", c.Name)
		}
		if len(c.Patterns) == 0 {
			return nil, model.Configf(component, "category %q has no patterns", c.Name)
		}
		alts := make([]string, 0, len(c.Patterns))
		for _, p := range c.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, model.Configf(component, "category %q has an empty pattern", c.Name)
			}
			if _, err := regexp.Compile(p); err != nil {
				return nil, model.Configf(component, "category %q pattern %q: %v", c.Name, p, err)
			}
			alts = append(alts, "(?:"+p+")")
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
		if err != nil {
			return nil, model.Configf(component, "category %q: %v", c.Name, err)
		}
		if c.Label == "" {
			c.Label = c.Name
		}
		t.index[c.Name] = len(t.categories)
		t.categories = append(t.categories, compiled{Category: c, re: re})
	}
	return t, nil
}

// Categories returns the category names in declaration order.
func (t *Table) Categories() []string {
	names := make([]string, len(t.categories))
	for i, c := range t.categories {
		names[i] = c.Name
	}
	return names
}

// Label returns the human-readable label of a category.
func (t *Table) Label(name string) string {
	if i, ok := t.index[name]; ok {
		return t.categories[i].Label
	}
	return name
}

// Describe returns a copy of the table as declared.
func (t *Table) Describe() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{Name: c.Name, Label: c.Label, Patterns: append([]string(nil), c.Patterns...)}
	}
	return out
}

func (t *Table) lookup(name string) (compiled, error) {
	i, ok := t.index[name]
	if !ok {
		return compiled{}, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	return t.categories[i], nil
}
