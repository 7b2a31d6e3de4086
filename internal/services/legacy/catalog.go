package legacy

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogQuery is one named query in the embedded catalog
type CatalogQuery struct {
	Name        string `yaml:"name"`
	Core        bool   `yaml:"core"`
	Description string `yaml:"description"`
	SQL         string `yaml:"sql"`
}

type catalogFile struct {
	Queries []CatalogQuery `yaml:"queries"`
}

// LoadCatalog parses the embedded query catalog and checks it for
// duplicate names and empty statements.
func LoadCatalog() ([]CatalogQuery, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse query catalog: %w", err)
	}
	if len(file.Queries) == 0 {
		return nil, fmt.Errorf("query catalog is empty")
	}

	seen := make(map[string]bool, len(file.Queries))
	for _, q := range file.Queries {
		if q.Name == "" {
			return nil, fmt.Errorf("query catalog entry has no name")
		}
		if seen[q.Name] {
			return nil, fmt.Errorf("duplicate query name in catalog: %s", q.Name)
		}
		seen[q.Name] = true
		if strings.TrimSpace(q.SQL) == "" {
			return nil, fmt.Errorf("query %s has no sql", q.Name)
		}
	}

	return file.Queries, nil
}
