package grid

import (
	"fmt"
	"strings"
)

// YardConfig represents a yard definition loaded from JSON or YAML
type YardConfig struct {
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	Layout        []string          `json:"layout" yaml:"layout"`
	Legend        map[string]string `json:"legend,omitempty" yaml:"legend,omitempty"`
	Strategy      string            `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	MaxExpansions int               `json:"max_expansions,omitempty" yaml:"max_expansions,omitempty"`
}

// Known strategy names, mirrored from the search package to avoid an import cycle
var knownStrategies = map[string]bool{
	"":          true,
	"candidate": true,
	"shared":    true,
	"state":     true,
}

// ValidateYardConfig validates a yard configuration for correctness
func ValidateYardConfig(config *YardConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if len(config.Layout) == 0 {
		return fmt.Errorf("config validation: layout must have at least one row")
	}
	if config.MaxExpansions < 0 {
		return fmt.Errorf("config validation: max_expansions must be >= 0, got %d", config.MaxExpansions)
	}
	if !knownStrategies[strings.ToLower(strings.TrimSpace(config.Strategy))] {
		return fmt.Errorf("config validation: unknown strategy %q", config.Strategy)
	}

	if _, err := config.Grid(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	return nil
}

// Grid parses the layout with the configured legend
func (c *YardConfig) Grid() (*Grid, error) {
	legend, err := LegendFromConfig(c.Legend)
	if err != nil {
		return nil, err
	}
	return Parse(c.Layout, legend)
}
