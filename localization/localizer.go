/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package localization

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	storeerrors "github.com/suparena/deliverystore/errors"
)

// Localizer resolves message keys to display text.
type Localizer interface {
	Localize(key string) string
}

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// Catalog is a flat key/text table for one language, backed by the English
// catalog for keys it lacks. Unknown keys resolve to themselves.
type Catalog struct {
	tag      language.Tag
	entries  map[string]string
	fallback map[string]string
}

var _ Localizer = (*Catalog)(nil)

// NewCatalog builds a catalog from entries without a fallback.
func NewCatalog(tag language.Tag, entries map[string]string) *Catalog {
	return &Catalog{tag: tag, entries: entries}
}

// Load returns the embedded catalog that best matches locale (e.g. "de-AT").
// Locales with no reasonable match get English.
func Load(locale string) (*Catalog, error) {
	requested, err := language.Parse(locale)
	if err != nil {
		return nil, storeerrors.NewValidationError("locale", fmt.Sprintf("invalid locale %q", locale))
	}

	tags, err := Available()
	if err != nil {
		return nil, err
	}
	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(requested)
	tag := tags[index]
	if confidence == language.No {
		tag = language.English
	}

	entries, err := readCatalog(tag)
	if err != nil {
		return nil, err
	}
	c := &Catalog{tag: tag, entries: entries}
	if tag != language.English {
		if c.fallback, err = readCatalog(language.English); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Available lists the embedded catalog languages, English first.
func Available() ([]language.Tag, error) {
	files, err := catalogFS.ReadDir("catalogs")
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}

	tags := []language.Tag{language.English}
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), path.Ext(f.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", f.Name(), err)
		}
		if tag != language.English {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func readCatalog(tag language.Tag) (map[string]string, error) {
	data, err := catalogFS.ReadFile("catalogs/" + tag.String() + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no catalog for %s: %w", tag, err)
	}
	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", tag, err)
	}
	return entries, nil
}

// Language returns the catalog language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Localize returns the text for key.
func (c *Catalog) Localize(key string) string {
	if text, ok := c.entries[key]; ok {
		return text
	}
	if text, ok := c.fallback[key]; ok {
		return text
	}
	return key
}
