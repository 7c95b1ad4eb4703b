// Package legislation merges the built-in legislation catalog with files added
// by administrators.
package legislation

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"terradjunto/internal/models"
	"terradjunto/internal/records"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type entry struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Reference   string   `yaml:"reference"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// BuiltIn decodes the embedded catalog.
func BuiltIn() ([]models.LegislationFile, error) {
	var entries []entry
	if err := yaml.Unmarshal(catalogYAML, &entries); err != nil {
		return nil, fmt.Errorf("decode legislation catalog: %w", err)
	}
	out := make([]models.LegislationFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.LegislationFile{
			ID:          e.ID,
			Title:       e.Title,
			Reference:   e.Reference,
			Description: e.Description,
			Date:        e.Date,
			Category:    e.Category,
			Tags:        e.Tags,
			FullText:    e.Description,
		})
	}
	return out, nil
}

// Filter narrows the merged list. Empty fields match everything.
type Filter struct {
	Query    string
	Category string
	Tag      string
}

func (f Filter) match(l models.LegislationFile) bool {
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Tag != "" && !slices.ContainsFunc(l.Tags, func(t string) bool { return strings.EqualFold(t, f.Tag) }) {
		return false
	}
	return records.MatchQuery(f.Query, append([]string{l.Title, l.Reference, l.Description}, l.Tags...)...)
}

// Library serves the merged catalog.
type Library struct {
	builtIn []models.LegislationFile
	Files   *records.LegislationFiles
}

func NewLibrary(files *records.LegislationFiles) (*Library, error) {
	b, err := BuiltIn()
	if err != nil {
		return nil, err
	}
	return &Library{builtIn: b, Files: files}, nil
}

// List returns custom files first, newest first, followed by the built-in catalog.
func (l *Library) List(ctx context.Context, f Filter) []models.LegislationFile {
	merged := append(l.Files.List(ctx), l.builtIn...)
	return records.Filter(merged, f.match)
}

// Tags returns every tag in use, sorted and without duplicates.
func (l *Library) Tags(ctx context.Context) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, item := range l.List(ctx, Filter{}) {
		for _, t := range item.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return tags
}
