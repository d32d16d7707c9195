package estimation

import (
	"math"
	"slices"
)

const (
	GeometryLabel = "Geometry"

	// phone sensor width approximation used to convert focal length in
	// pixels to millimetres
	sensorWidthM = 6e-3
	// fallback pixel pitch and focal length when intrinsics are unknown
	defaultPixelPitchM  = 1.5e-6
	defaultFocalLengthM = 4e-3
)

type GeometryParameters struct {
	Density             float64
	EnergyPerGram       float64
	RelativeVolumeSigma float64
	MinimumSigma        float64
	FallbackCalories    float64
	FallbackVolumeML    float64
	Evidence            []string
	FallbackEvidence    []string
	ForegroundFraction  float64
	MinFoodPixels       int
	MinHeightM          float64
	MinVolumeML         float64
	MaxVolumeML         float64
}

func DefaultGeometryParameters() GeometryParameters {
	return GeometryParameters{
		Density:             1.0,
		EnergyPerGram:       1.35,
		RelativeVolumeSigma: 0.25,
		MinimumSigma:        80,
		FallbackCalories:    420,
		FallbackVolumeML:    350,
		Evidence:            []string{"Geometry", "Depth"},
		FallbackEvidence:    []string{"Geometry", "Fallback"},
		ForegroundFraction:  0.4,
		MinFoodPixels:       100,
		MinHeightM:          0.01,
		MinVolumeML:         10,
		MaxVolumeML:         2000,
	}
}

// GeometryEstimator converts a depth frame into a volume and calorie estimate.
type GeometryEstimator struct {
	params GeometryParameters
	fusion *FusionEngine
}

func NewGeometryEstimator(params GeometryParameters, fusion *FusionEngine) *GeometryEstimator {
	if fusion == nil {
		fusion = NewFusionEngine(DefaultFusionConfig())
	}
	return &GeometryEstimator{
		params: params,
		fusion: fusion,
	}
}

// Estimate segments the nearest depth band as food, integrates its volume and
// converts it to calories. Missing or unusable depth yields the fallback.
func (g *GeometryEstimator) Estimate(frame *CapturedFrame, priors *FoodPriors) GeometryEstimate {
	if frame == nil || frame.Depth == nil || len(frame.Depth.DepthMap) == 0 {
		return g.fallback()
	}

	valid := make([]float64, 0, len(frame.Depth.DepthMap))
	for _, d := range frame.Depth.DepthMap {
		v := float64(d)
		if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return g.fallback()
	}

	slices.Sort(valid)
	n := len(valid)
	threshold := valid[min(int(float64(n)*g.params.ForegroundFraction), n-1)]

	// valid is sorted, so the food pixels are a prefix
	foodCount, _ := slices.BinarySearchFunc(valid, threshold, func(d, t float64) int {
		if d <= t {
			return -1
		}
		return 1
	})
	if foodCount <= g.params.MinFoodPixels {
		return g.fallback()
	}
	food := valid[:foodCount]

	var sum float64
	for _, d := range food {
		sum += d
	}
	avgDepth := sum / float64(foodCount)

	pixelSize := g.pixelSize(frame.Intrinsics, avgDepth)
	area := float64(foodCount) * pixelSize * pixelSize

	height := math.Max(g.params.MinHeightM, food[foodCount-1]-food[0])
	volumeML := clamp(area*height*1e6, g.params.MinVolumeML, g.params.MaxVolumeML)

	volume := VolumeEstimate{
		MuML:    volumeML,
		SigmaML: volumeML * g.params.RelativeVolumeSigma,
	}

	usedPriors := DefaultPriors(g.params.Density, g.params.EnergyPerGram)
	if priors != nil {
		usedPriors = *priors
	}

	calories := g.fusion.CaloriesFromGeometry(volume, usedPriors)

	return GeometryEstimate{
		Label:    GeometryLabel,
		VolumeML: volumeML,
		Calories: calories.Mu,
		Sigma:    math.Max(g.params.MinimumSigma, calories.Sigma),
		Evidence: slices.Clone(g.params.Evidence),
	}
}

func (g *GeometryEstimator) pixelSize(intrinsics *CameraIntrinsics, depth float64) float64 {
	if intrinsics == nil || intrinsics.ImageSize[0] <= 0 {
		return defaultPixelPitchM * depth / defaultFocalLengthM
	}

	imageWidth := float64(intrinsics.ImageSize[0])
	avgFocalPx := (intrinsics.FocalLength[0] + intrinsics.FocalLength[1]) / 2
	if avgFocalPx <= 0 {
		return defaultPixelPitchM * depth / defaultFocalLengthM
	}

	sensorPixelSize := sensorWidthM / imageWidth
	focalLengthMM := avgFocalPx * sensorWidthM / imageWidth
	return sensorPixelSize * depth / (focalLengthMM / 1000)
}

func (g *GeometryEstimator) fallback() GeometryEstimate {
	return GeometryEstimate{
		Label:    GeometryLabel,
		VolumeML: g.params.FallbackVolumeML,
		Calories: g.params.FallbackCalories,
		Sigma:    math.Max(g.params.MinimumSigma, g.params.FallbackCalories*0.5),
		Evidence: slices.Clone(g.params.FallbackEvidence),
		Fallback: true,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
