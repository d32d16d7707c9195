package estimation

import (
	"math"
	"time"
)

type TrackingState string

const (
	TrackingNormal       TrackingState = "normal"
	TrackingLimited      TrackingState = "limited"
	TrackingNotAvailable TrackingState = "notAvailable"
)

type QualityParameters struct {
	MinimumStableFrames int     `toml:"minimum_stable_frames" json:"minimumStableFrames"`
	ParallaxTarget      float64 `toml:"parallax_target" json:"parallaxTarget"`
	DepthCoverageTarget float64 `toml:"depth_coverage_target" json:"depthCoverageTarget"`
}

func DefaultQualityParameters() QualityParameters {
	return QualityParameters{
		MinimumStableFrames: 3,
		ParallaxTarget:      0.2,
		DepthCoverageTarget: 0.6,
	}
}

type QualitySample struct {
	Timestamp     time.Time     `json:"timestamp"`
	Parallax      float64       `json:"parallax"`
	TrackingState TrackingState `json:"trackingState"`
	DepthCoverage float64       `json:"depthCoverage"`
}

type QualityStatus struct {
	Progress      float64 `json:"progress"`
	MeetsTracking bool    `json:"meetsTracking"`
	MeetsParallax bool    `json:"meetsParallax"`
	MeetsDepth    bool    `json:"meetsDepth"`
	StableFrames  int     `json:"stableFrames"`
	ShouldStop    bool    `json:"shouldStop"`
}

// CaptureQualityEstimator counts consecutive frames that satisfy tracking,
// parallax and depth coverage targets. It is not safe for concurrent use.
type CaptureQualityEstimator struct {
	params       QualityParameters
	stableFrames int
}

func NewCaptureQualityEstimator(params QualityParameters) *CaptureQualityEstimator {
	if params.MinimumStableFrames <= 0 {
		params.MinimumStableFrames = 1
	}
	return &CaptureQualityEstimator{
		params: params,
	}
}

func (e *CaptureQualityEstimator) Evaluate(sample QualitySample) QualityStatus {
	meetsTracking := sample.TrackingState == TrackingNormal
	meetsParallax := sample.Parallax >= e.params.ParallaxTarget
	meetsDepth := sample.DepthCoverage >= e.params.DepthCoverageTarget

	if meetsTracking && meetsParallax && meetsDepth {
		e.stableFrames++
	} else {
		e.stableFrames = 0
	}

	shouldStop := e.stableFrames >= e.params.MinimumStableFrames

	trackingScore := 0.0
	if meetsTracking {
		trackingScore = 1
	}
	coverage := (trackingScore +
		ratio(sample.Parallax, e.params.ParallaxTarget) +
		ratio(sample.DepthCoverage, e.params.DepthCoverageTarget)) / 3
	stability := ratio(float64(e.stableFrames), float64(e.params.MinimumStableFrames))

	progress := coverage * (0.5 + 0.5*stability)
	if shouldStop {
		progress = 1
	}

	return QualityStatus{
		Progress:      progress,
		MeetsTracking: meetsTracking,
		MeetsParallax: meetsParallax,
		MeetsDepth:    meetsDepth,
		StableFrames:  e.stableFrames,
		ShouldStop:    shouldStop,
	}
}

func (e *CaptureQualityEstimator) Reset() {
	e.stableFrames = 0
}

// Hint returns the user facing capture guidance for status.
func Hint(status QualityStatus) string {
	switch {
	case status.ShouldStop:
		return "Quality locked"
	case !status.MeetsTracking:
		return "Hold steady while tracking recovers"
	case !status.MeetsParallax:
		return "Move around the plate slowly"
	case !status.MeetsDepth:
		return "Lower the device to cover the plate"
	default:
		return "Gathering more frames"
	}
}

// MockSamples produces a synthetic capture sweep that reaches the quality
// targets. It stands in for devices that do not report samples.
func MockSamples(params QualityParameters, start time.Time) []QualitySample {
	minStable := max(params.MinimumStableFrames, 1)
	steps := max(minStable+3, 5)
	rampLen := float64(steps - minStable)

	samples := make([]QualitySample, 0, steps)
	for i := range steps {
		ramp := math.Min(1, float64(i+1)/rampLen)
		tracking := TrackingNormal
		if i == 0 {
			tracking = TrackingLimited
		}
		samples = append(samples, QualitySample{
			Timestamp:     start.Add(time.Duration(i) * 100 * time.Millisecond),
			Parallax:      params.ParallaxTarget * 1.1 * ramp,
			TrackingState: tracking,
			DepthCoverage: math.Min(1, params.DepthCoverageTarget*(0.4+ramp)),
		})
	}
	return samples
}

func ratio(v, target float64) float64 {
	if target <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, v/target))
}
