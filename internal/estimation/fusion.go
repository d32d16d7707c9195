package estimation

import "math"

const DefaultMinimumSigma = 1.0

type FusionConfig struct {
	// MinimumSigma is the absolute kcal floor applied to every produced sigma.
	MinimumSigma   float64 `toml:"minimum_sigma" json:"minimumSigma"`
	MixtureEnabled bool    `toml:"mixture_enabled" json:"mixtureEnabled"`
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		MinimumSigma: DefaultMinimumSigma,
	}
}

// FusionEngine turns geometry into calories and merges independent estimates.
type FusionEngine struct {
	config FusionConfig
}

func NewFusionEngine(config FusionConfig) *FusionEngine {
	if config.MinimumSigma < 0 {
		config.MinimumSigma = 0
	}
	return &FusionEngine{
		config: config,
	}
}

// CaloriesFromGeometry computes C = V * rho * e and propagates the relative
// uncertainties of the three factors with the first-order delta method.
func (f *FusionEngine) CaloriesFromGeometry(volume VolumeEstimate, priors FoodPriors) Gaussian {
	mu := volume.MuML * priors.Density.Mu * priors.KcalPerG.Mu

	rel := math.Sqrt(
		square(relativeTerm(volume.MuML, volume.SigmaML)) +
			square(relativeTerm(priors.Density.Mu, priors.Density.Sigma)) +
			square(relativeTerm(priors.KcalPerG.Mu, priors.KcalPerG.Sigma)),
	)

	return Gaussian{
		Mu:    mu,
		Sigma: math.Max(f.config.MinimumSigma, math.Abs(mu)*rel),
	}
}

// Fuse merges two independent estimates with inverse-variance weighting.
// An estimate with non-positive sigma is treated as exact.
func (f *FusionEngine) Fuse(a, b Gaussian) Gaussian {
	aExact := a.Sigma <= 0
	bExact := b.Sigma <= 0
	switch {
	case aExact && bExact:
		return Gaussian{Mu: (a.Mu + b.Mu) / 2, Sigma: 0}
	case aExact:
		return Gaussian{Mu: a.Mu, Sigma: 0}
	case bExact:
		return Gaussian{Mu: b.Mu, Sigma: 0}
	}

	wa := 1 / square(a.Sigma)
	wb := 1 / square(b.Sigma)
	wSum := wa + wb

	mu := (a.Mu*wa + b.Mu*wb) / wSum
	sigma := math.Sqrt(1 / wSum)

	if f.config.MixtureEnabled {
		// two-component mixture variance with the same normalized weights
		pa, pb := wa/wSum, wb/wSum
		mixVar := pa*(square(a.Sigma)+square(a.Mu)) + pb*(square(b.Sigma)+square(b.Mu)) - square(mu)
		if mixVar > 0 {
			sigma = math.Max(sigma, math.Sqrt(mixVar))
		}
	}

	return Gaussian{
		Mu:    mu,
		Sigma: math.Max(f.config.MinimumSigma, sigma),
	}
}

func relativeTerm(mu, sigma float64) float64 {
	if mu == 0 {
		return 0
	}
	return sigma / mu
}

func square(v float64) float64 {
	return v * v
}
