package nutrition

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/habitpet/caloriecam/internal/estimation"

	"gopkg.in/yaml.v3"
)

//go:embed priors.yaml
var defaultSeed []byte

type gaussianEntry struct {
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`
}

type SeedEntry struct {
	Label    string        `yaml:"label"`
	Aliases  []string      `yaml:"aliases"`
	Density  gaussianEntry `yaml:"density"`
	KcalPerG gaussianEntry `yaml:"kcal_per_g"`
}

func (e SeedEntry) Priors() estimation.FoodPriors {
	return estimation.FoodPriors{
		Density:  estimation.Gaussian{Mu: e.Density.Mu, Sigma: e.Density.Sigma},
		KcalPerG: estimation.Gaussian{Mu: e.KcalPerG.Mu, Sigma: e.KcalPerG.Sigma},
	}
}

// SeedDB is an in-memory priors table.
type SeedDB struct {
	entries map[string]estimation.FoodPriors
}

// NewDefaultSeedDB loads the table compiled into the binary.
func NewDefaultSeedDB() (*SeedDB, error) {
	return NewSeedDB(defaultSeed)
}

func NewSeedDBFromFile(path string) (*SeedDB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priors seed: %w", err)
	}
	return NewSeedDB(raw)
}

// LoadSeedEntries reads the seed at path, or the compiled-in seed when
// path is empty.
func LoadSeedEntries(path string) ([]SeedEntry, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priors seed: %w", err)
	}
	return ParseSeed(raw)
}

func NewSeedDB(raw []byte) (*SeedDB, error) {
	entries, err := ParseSeed(raw)
	if err != nil {
		return nil, err
	}

	db := &SeedDB{
		entries: make(map[string]estimation.FoodPriors, len(entries)),
	}
	for _, e := range entries {
		priors := e.Priors()
		db.entries[Canonicalize(e.Label)] = priors
		for _, alias := range e.Aliases {
			db.entries[Canonicalize(alias)] = priors
		}
	}
	return db, nil
}

func ParseSeed(raw []byte) ([]SeedEntry, error) {
	var entries []SeedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal priors seed: %w", err)
	}
	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("priors seed entry %d: empty label", i)
		}
		if e.Density.Mu <= 0 || e.KcalPerG.Mu <= 0 {
			return nil, fmt.Errorf("priors seed entry %q: non-positive mean", e.Label)
		}
	}
	return entries, nil
}

func (db *SeedDB) GetPriors(_ context.Context, label string) (estimation.FoodPriors, error) {
	priors, ok := db.entries[Canonicalize(label)]
	if !ok {
		return estimation.FoodPriors{}, fmt.Errorf("%w: %s", ErrPriorsNotFound, label)
	}
	return priors, nil
}

func (db *SeedDB) Len() int {
	return len(db.entries)
}
