// layout.go
package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Shelf describes a shelf known to the store, matching the YAML structure.
type Shelf struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Zone  string `yaml:"zone,omitempty"`
}

// StoreLayout holds the shelves known for a store.
type StoreLayout struct {
	Name    string  `yaml:"name"`
	Shelves []Shelf `yaml:"shelves"`

	byID map[string]Shelf
}

// LoadLayout reads and parses a store layout YAML file.
func LoadLayout(path string) (*StoreLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(data)
}

func ParseLayout(data []byte) (*StoreLayout, error) {
	var layout StoreLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout YAML: %w", err)
	}

	layout.byID = make(map[string]Shelf, len(layout.Shelves))
	for _, s := range layout.Shelves {
		if s.ID == "" {
			return nil, fmt.Errorf("layout shelf with label %q has no id", s.Label)
		}
		if _, dup := layout.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate shelf id %q in layout", s.ID)
		}
		layout.byID[s.ID] = s
	}
	return &layout, nil
}

// Label returns the display label for a shelf id, or the id itself when the
// shelf is unknown. Safe on a nil layout.
func (l *StoreLayout) Label(shelfID string) string {
	if l == nil {
		return shelfID
	}
	if s, ok := l.byID[shelfID]; ok && s.Label != "" {
		return s.Label
	}
	return shelfID
}

// Known reports whether the shelf id is declared in the layout.
func (l *StoreLayout) Known(shelfID string) bool {
	if l == nil {
		return false
	}
	_, ok := l.byID[shelfID]
	return ok
}
