package instrumentor

import (
	"encoding/json"
	"os"

	"github.com/edgecov/edgecov-go/coverage"
)

// Metadata is the JSON sidecar an external fuzz driver reads to map hot
// coverage-map slots back to source. It carries the same records as the
// location table, in a form that is easier for machine consumers.
type Metadata struct {
	Module    string           `json:"module"`
	MapSize   int              `json:"map_size"`
	Ratio     int              `json:"ratio"`
	Hardened  bool             `json:"hardened"`
	Seed      int64            `json:"seed,omitempty"`
	Locations []LocationRecord `json:"locations"`
}

// NewMetadata assembles the sidecar for one completed run.
func NewMetadata(module string, cfg Config, hardened bool, records []LocationRecord) *Metadata {
	return &Metadata{
		Module:    module,
		MapSize:   coverage.MapSize,
		Ratio:     cfg.Ratio,
		Hardened:  hardened,
		Seed:      cfg.Seed,
		Locations: records,
	}
}

// Write serializes the metadata to path.
func (md *Metadata) Write(path string) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
