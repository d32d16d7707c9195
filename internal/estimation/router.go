package estimation

import (
	"slices"
)

const (
	EvidenceRouter  = "Router"
	EvidenceMixture = "Mixture"

	// analyzer items without a usable sigma are assumed to be 20% uncertain
	analyzerFallbackRelSigma = 0.2
)

type FusionResult struct {
	FusedCalories float64  `json:"fusedCalories"`
	FusedSigma    float64  `json:"fusedSigma"`
	Evidence      []string `json:"evidence"`
	UsedAnalyzer  bool     `json:"usedAnalyzer"`
}

// AnalyzerRouter merges the geometry estimate with the analyzer observation.
type AnalyzerRouter struct {
	flags  Flags
	fusion *FusionEngine
}

func NewAnalyzerRouter(config CalorieConfig) *AnalyzerRouter {
	fusionConfig := config.Fusion
	fusionConfig.MixtureEnabled = config.Flags.MixtureEnabled
	return &AnalyzerRouter{
		flags:  config.Flags,
		fusion: NewFusionEngine(fusionConfig),
	}
}

func (r *AnalyzerRouter) Fuse(geometry GeometryEstimate, obs *AnalyzerObservation) FusionResult {
	geometryOnly := FusionResult{
		FusedCalories: geometry.Calories,
		FusedSigma:    geometry.Sigma,
		Evidence:      slices.Clone(geometry.Evidence),
	}
	if !r.flags.RouterEnabled || obs == nil || obs.Calories <= 0 {
		return geometryOnly
	}

	obsSigma := obs.Sigma
	if obsSigma <= 0 {
		obsSigma = obs.Calories * analyzerFallbackRelSigma
	}

	fused := r.fusion.Fuse(
		Gaussian{Mu: geometry.Calories, Sigma: geometry.Sigma},
		Gaussian{Mu: obs.Calories, Sigma: obsSigma},
	)

	evidence := append(slices.Clone(geometry.Evidence), EvidenceRouter)
	if r.flags.MixtureEnabled {
		evidence = append(evidence, EvidenceMixture)
	}

	return FusionResult{
		FusedCalories: fused.Mu,
		FusedSigma:    fused.Sigma,
		Evidence:      evidence,
		UsedAnalyzer:  true,
	}
}

// MergeEvidence returns the sorted set union of the given evidence lists.
func MergeEvidence(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, e := range list {
			if e == "" {
				continue
			}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			merged = append(merged, e)
		}
	}
	slices.Sort(merged)
	return merged
}
