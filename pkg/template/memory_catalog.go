package template

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryCatalog is an in-memory Catalog.
type MemoryCatalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewMemoryCatalog validates and stores templates. Names must be unique.
func NewMemoryCatalog(templates ...Template) (*MemoryCatalog, error) {
	c := &MemoryCatalog{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.templates[t.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTemplate, t.Name)
		}
		c.templates[t.Name] = t
	}
	return c, nil
}

func (c *MemoryCatalog) Active(_ context.Context) ([]Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		if t.IsActive {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Template) int { return a.DaysBeforeExpiry - b.DaysBeforeExpiry })
	return out, nil
}

// Put adds or replaces a template.
func (c *MemoryCatalog) Put(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.Name] = t
	return nil
}

type yamlCatalog struct {
	Templates []Template `yaml:"templates"`
}

// LoadYAML reads a catalog document:
//
//	templates:
//	  - name: trial_ends_in_7_days
//	    days_before_expiry: 7
//	    subject: "{{first_name}}, 7 days left"
//	    body_html: "<p>Upgrade at {{upgrade_url}}</p>"
//	    is_active: true
func LoadYAML(r io.Reader) (*MemoryCatalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadCatalog, err)
	}
	return NewMemoryCatalog(doc.Templates...)
}

// LoadYAMLFile is LoadYAML over a file path.
func LoadYAMLFile(path string) (*MemoryCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadCatalog, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
