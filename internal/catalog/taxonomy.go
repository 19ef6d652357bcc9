package catalog

import (
	"encoding/json"
	"os"

	"voltcat/internal/core"
	"voltcat/internal/logging"
)

// LoadTaxonomy reads the category list from a JSON file.
// The file must exist and hold a non-empty JSON array of strings.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DataFormatError{
			Path:   path,
			Reason: "taxonomy file unreadable",
			Err:    err,
		}
	}

	var categories []string
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, &core.DataFormatError{
			Path:   path,
			Reason: "taxonomy is not a JSON array of category names",
			Err:    err,
		}
	}

	if len(categories) == 0 {
		return nil, &core.DataFormatError{
			Path:   path,
			Reason: "taxonomy is empty",
		}
	}

	t := NewTaxonomy(categories)
	logging.Store("Loaded taxonomy: %d categories from %s", t.Len(), path)
	return t, nil
}
