package normalize

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

//go:embed mappings.yaml
var defaultMappingsYAML []byte

// EmbeddedLoader serves the mappings compiled into the binary
type EmbeddedLoader struct{}

// LoadMappings decodes the embedded YAML
func (EmbeddedLoader) LoadMappings(ctx context.Context) ([]contracts.AccountMapping, error) {
	return DefaultMappings()
}

// DefaultMappings returns the built-in mapping rows
func DefaultMappings() ([]contracts.AccountMapping, error) {
	var mappings []contracts.AccountMapping
	if err := yaml.Unmarshal(defaultMappingsYAML, &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode default mappings: %w", err)
	}
	return mappings, nil
}
