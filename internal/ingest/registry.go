package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all data sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	ProxyURL       string  `yaml:"proxy_url,omitempty"`
	AcceptLanguage string  `yaml:"accept_language,omitempty"`
}

// SourceConfig defines a single data source for ingestion.
type SourceConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`     // "edital", "contrato"
	Strategy    string   `yaml:"strategy"` // "api_pncp", "api_pncp_contratos", "html_portal"
	BaseURL     string   `yaml:"base_url,omitempty"`
	States      []string `yaml:"states,omitempty"` // UF filter, empty = all
	Seeds       []string `yaml:"seed_urls,omitempty"`
	Schedule    string   `yaml:"schedule,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Active      bool     `yaml:"active"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// For the generic HTML portal strategy
	Selectors  SelectorConfig `yaml:"selectors,omitempty"`
	Pagination string         `yaml:"pagination,omitempty"` // CSS selector for next page link
	MaxPages   int            `yaml:"max_pages,omitempty"`
}

// SelectorConfig maps CSS selectors onto notice fields for HTML portals.
type SelectorConfig struct {
	Container string `yaml:"container,omitempty"`
	Link      string `yaml:"link,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Date      string `yaml:"date,omitempty"`
	Value     string `yaml:"value,omitempty"`
	Org       string `yaml:"org,omitempty"`
}

// LoadRegistry reads the embedded sources.yaml. A path may be given to
// override the embedded registry during local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if path != "" {
		if fileData, fileErr := os.ReadFile(path); fileErr == nil {
			data, err = fileData, nil
		}
	}
	if err != nil {
		return nil, err
	}

	// Expand environment variables within the YAML content (e.g. ${PNCP_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Lookup returns the source with the given ID.
func (r *Registry) Lookup(id string) (SourceConfig, error) {
	for _, src := range r.Sources {
		if src.ID == id {
			return src, nil
		}
	}
	return SourceConfig{}, fmt.Errorf("unknown source: %s", id)
}

// ActiveSources returns the sources enabled for scheduled ingestion.
func (r *Registry) ActiveSources() []SourceConfig {
	var out []SourceConfig
	for _, src := range r.Sources {
		if src.Active {
			out = append(out, src)
		}
	}
	return out
}
