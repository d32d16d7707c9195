package nutrition

import (
	"context"
	"errors"
	"strings"

	"github.com/habitpet/caloriecam/internal/estimation"
)

//go:generate mockgen -source=$GOFILE -destination=priors_mocks_test.go -package=nutrition_test

var ErrPriorsNotFound = errors.New("priors not found")

// PriorsDB resolves density and energy priors for a classified food label.
type PriorsDB interface {
	GetPriors(ctx context.Context, label string) (estimation.FoodPriors, error)
}

var labelReplacer = strings.NewReplacer(
	"’", "'",
	" ", "_",
	"-", "_",
)

// Canonicalize maps a classifier label to the key used by the priors tables.
func Canonicalize(label string) string {
	return labelReplacer.Replace(strings.ToLower(strings.TrimSpace(label)))
}

// Chain queries sources in order and returns the first hit.
type Chain struct {
	sources []PriorsDB
}

func NewChain(sources ...PriorsDB) *Chain {
	return &Chain{
		sources: sources,
	}
}

func (c *Chain) GetPriors(ctx context.Context, label string) (estimation.FoodPriors, error) {
	for _, source := range c.sources {
		priors, err := source.GetPriors(ctx, label)
		if err == nil {
			return priors, nil
		}
		if !errors.Is(err, ErrPriorsNotFound) {
			return estimation.FoodPriors{}, err
		}
	}
	return estimation.FoodPriors{}, ErrPriorsNotFound
}
