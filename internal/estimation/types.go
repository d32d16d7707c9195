package estimation

import (
	"math"
	"time"
)

// Gaussian is a scalar estimate with its one-sigma uncertainty.
type Gaussian struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// RelativeSigma returns sigma/|mu|, or 0 when mu is zero.
func (g Gaussian) RelativeSigma() float64 {
	if g.Mu == 0 {
		return 0
	}
	return g.Sigma / math.Abs(g.Mu)
}

type VolumeEstimate struct {
	MuML    float64 `json:"muML"`
	SigmaML float64 `json:"sigmaML"`
}

// FoodPriors holds density (g/mL) and energy density (kcal/g) priors.
type FoodPriors struct {
	Density  Gaussian `json:"density"`
	KcalPerG Gaussian `json:"kcalPerG"`
}

// DefaultPriors builds priors with 20% density and 15% energy uncertainty.
func DefaultPriors(density, energyPerGram float64) FoodPriors {
	return FoodPriors{
		Density:  Gaussian{Mu: density, Sigma: density * 0.20},
		KcalPerG: Gaussian{Mu: energyPerGram, Sigma: energyPerGram * 0.15},
	}
}

type CameraIntrinsics struct {
	// FocalLength is (fx, fy) in pixels.
	FocalLength    [2]float64 `json:"focalLength"`
	PrincipalPoint [2]float64 `json:"principalPoint"`
	// ImageSize is (width, height) in pixels.
	ImageSize [2]int `json:"imageSize"`
}

// DepthData is a row-major depth map in meters.
type DepthData struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	DepthMap []float32 `json:"depthMap"`
}

type CapturedFrame struct {
	RGBImage   []byte            `json:"rgbImage,omitempty"`
	MimeType   string            `json:"mimeType,omitempty"`
	Depth      *DepthData        `json:"depth,omitempty"`
	Intrinsics *CameraIntrinsics `json:"intrinsics,omitempty"`
	CapturedAt time.Time         `json:"capturedAt"`
}

type GeometryEstimate struct {
	Label    string   `json:"label"`
	VolumeML float64  `json:"volumeML"`
	Calories float64  `json:"calories"`
	Sigma    float64  `json:"sigma"`
	Evidence []string `json:"evidence"`
	Fallback bool     `json:"fallback"`
}

// Macros are grams per 100 g of food.
type Macros struct {
	ProteinG float64 `json:"proteinG"`
	CarbsG   float64 `json:"carbsG"`
	FatG     float64 `json:"fatG"`
}

type AnalysisPath string

const (
	PathLabel    AnalysisPath = "label"
	PathMenu     AnalysisPath = "menu"
	PathGeometry AnalysisPath = "geometry"
)

func (p AnalysisPath) Valid() bool {
	switch p {
	case PathLabel, PathMenu, PathGeometry:
		return true
	default:
		return false
	}
}

// ActivePath names a pipeline stage reported to clients.
type ActivePath string

const (
	ActivePathAnalyzer ActivePath = "analyzer"
	ActivePathRouter   ActivePath = "router"
	ActivePathLabel    ActivePath = "label"
	ActivePathMenu     ActivePath = "menu"
	ActivePathGeometry ActivePath = "geometry"
	ActivePathMixture  ActivePath = "mixture"
)

// AnalyzerObservation is a single item reported by a remote food analyzer.
type AnalyzerObservation struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Calories   float64      `json:"calories"`
	Sigma      float64      `json:"sigma"`
	Path       AnalysisPath `json:"path"`
	Evidence   []string     `json:"evidence"`
	Priors     *FoodPriors  `json:"priors,omitempty"`
	Macros     *Macros      `json:"macros,omitempty"`
}

type ItemEstimate struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	VolumeML      float64  `json:"volumeML"`
	Calories      float64  `json:"calories"`
	Sigma         float64  `json:"sigma"`
	Evidence      []string `json:"evidence"`
	DensityGPerML *float64 `json:"densityGPerML,omitempty"`
	MacrosPer100g *Macros  `json:"macrosPer100g,omitempty"`
}

type CalorieResult struct {
	Items []ItemEstimate `json:"items"`
	Total Gaussian       `json:"total"`
}

// TotalRelativeUncertainty returns sigma/mu of the total, +Inf when mu <= 0.
func (r CalorieResult) TotalRelativeUncertainty() float64 {
	if r.Total.Mu <= 0 {
		return math.Inf(1)
	}
	return r.Total.Sigma / r.Total.Mu
}
