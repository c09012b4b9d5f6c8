package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CollectionDefinition describes one collection and the hooks it runs.
type CollectionDefinition struct {
	Name    string `yaml:"name"`
	Geocode bool   `yaml:"geocode"`
	Rebuild bool   `yaml:"rebuild"`
}

// GlobalDefinition describes one singleton document.
type GlobalDefinition struct {
	Slug    string `yaml:"slug"`
	Rebuild bool   `yaml:"rebuild"`
}

// CollectionsConfig lists the collections and globals the service serves.
type CollectionsConfig struct {
	Collections []CollectionDefinition `yaml:"collections"`
	Globals     []GlobalDefinition     `yaml:"globals"`
}

// DefaultCollections is used when no collections file is configured.
func DefaultCollections() *CollectionsConfig {
	return &CollectionsConfig{
		Collections: []CollectionDefinition{
			{Name: "events", Geocode: true, Rebuild: true},
			{Name: "resources", Rebuild: true},
			{Name: "bylaws", Rebuild: true},
			{Name: "service-standards", Rebuild: true},
		},
		Globals: []GlobalDefinition{
			{Slug: "site-settings", Rebuild: true},
		},
	}
}

// LoadCollectionsConfig reads a YAML collections file and validates it.
// An empty path returns DefaultCollections.
func LoadCollectionsConfig(path string) (*CollectionsConfig, error) {
	if path == "" {
		return DefaultCollections(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections config: %w", err)
	}

	var cfg CollectionsConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse collections config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks names and uniqueness. Collections and globals share one
// namespace because both are rebuild sources.
func (c *CollectionsConfig) Validate() error {
	if len(c.Collections) == 0 {
		return fmt.Errorf("collections config: no collections defined")
	}

	seen := make(map[string]bool, len(c.Collections)+len(c.Globals))
	for i, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collections config: collection #%d has empty name", i)
		}
		if !namePattern.MatchString(col.Name) {
			return fmt.Errorf("collections config: collection name %q must be lower-case words joined by '-'", col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("collections config: duplicate name %q", col.Name)
		}
		seen[col.Name] = true
	}
	for i, g := range c.Globals {
		if g.Slug == "" {
			return fmt.Errorf("collections config: global #%d has empty slug", i)
		}
		if !namePattern.MatchString(g.Slug) {
			return fmt.Errorf("collections config: global slug %q must be lower-case words joined by '-'", g.Slug)
		}
		if seen[g.Slug] {
			return fmt.Errorf("collections config: duplicate name %q", g.Slug)
		}
		seen[g.Slug] = true
	}
	return nil
}
