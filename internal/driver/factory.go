package driver

import (
	"fmt"
	"strings"

	"github.com/agenthands/quarry/internal/config"
)

// New builds the graph driver selected by the configuration.
func New(cfg config.GraphConfig) (GraphDriver, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "falkordb":
		return NewFalkorDriver(cfg.Address, cfg.Name)
	case "bolt", "memgraph", "neo4j":
		return NewBoltDriver(cfg.Address, cfg.User, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported graph backend: %s", cfg.Backend)
	}
}
