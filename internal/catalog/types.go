// Package catalog owns the on-disk example base and the category taxonomy.
// The taxonomy is loaded once and read-only for the process lifetime; the
// knowledge base is append-only and rewritten whole on each accepted example.
package catalog

import (
	"time"
)

// Example is a stored (description, category, standardized name) record
// used as few-shot context for later requests. Immutable once stored.
type Example struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	StandardizedName string    `json:"standard_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// knowledgeBaseFile is the on-disk document holding the ordered records.
type knowledgeBaseFile struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Example `json:"records"`
}

const knowledgeBaseVersion = "1.1"

// Taxonomy is the fixed, ordered set of allowed category labels.
type Taxonomy struct {
	categories []string
	index      map[string]struct{}
}

// NewTaxonomy builds a taxonomy from an ordered category list.
func NewTaxonomy(categories []string) *Taxonomy {
	t := &Taxonomy{
		categories: make([]string, 0, len(categories)),
		index:      make(map[string]struct{}, len(categories)),
	}
	for _, c := range categories {
		if _, ok := t.index[c]; ok {
			continue
		}
		t.categories = append(t.categories, c)
		t.index[c] = struct{}{}
	}
	return t
}

// Contains reports whether category is a member of the taxonomy.
func (t *Taxonomy) Contains(category string) bool {
	_, ok := t.index[category]
	return ok
}

// Categories returns the ordered category labels.
func (t *Taxonomy) Categories() []string {
	out := make([]string, len(t.categories))
	copy(out, t.categories)
	return out
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}
