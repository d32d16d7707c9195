package estimation

import (
	"math"
	"slices"
)

const (
	EvidenceVoIConfirmed = "VoI-Confirmed"
	EvidenceVoIRejected  = "VoI-Rejected"

	defaultVoIQuestion = "Does this plate include sauce or dressing?"

	voiConfirmedFactor = 0.7
	voiRejectedFactor  = 0.95
	voiMinimumSigma    = 1.0
)

// ShouldAsk reports whether a clarifying question is worth asking for result.
func ShouldAsk(config CalorieConfig, result CalorieResult, askedQuestions int) bool {
	if !config.Flags.VoIEnabled {
		return false
	}
	maxQuestions := config.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = 1
	}
	if askedQuestions >= maxQuestions {
		return false
	}
	return result.TotalRelativeUncertainty() >= config.VoIThreshold
}

func NextQuestion(config CalorieConfig) string {
	if len(config.AskBinaryPool) > 0 && config.AskBinaryPool[0] != "" {
		return "Is the dish " + config.AskBinaryPool[0] + "?"
	}
	return defaultVoIQuestion
}

// ApplyAnswer tightens the first item and the total after a yes/no answer.
// The returned result does not share slices with the input.
func ApplyAnswer(result CalorieResult, yes bool) CalorieResult {
	if len(result.Items) == 0 {
		return result
	}

	factor, tag := voiRejectedFactor, EvidenceVoIRejected
	if yes {
		factor, tag = voiConfirmedFactor, EvidenceVoIConfirmed
	}

	items := slices.Clone(result.Items)
	first := items[0]
	first.Sigma = math.Max(first.Sigma*factor, voiMinimumSigma)
	first.Evidence = MergeEvidence(first.Evidence, []string{tag})
	items[0] = first

	return CalorieResult{
		Items: items,
		Total: Gaussian{
			Mu:    result.Total.Mu,
			Sigma: math.Max(result.Total.Sigma*factor, voiMinimumSigma),
		},
	}
}
