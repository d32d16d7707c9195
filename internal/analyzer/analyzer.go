package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/habitpet/caloriecam/internal/estimation"
)

//go:generate mockgen -source=$GOFILE -destination=analyzer_mocks_test.go -package=analyzer_test

var ErrEmptyResponse = errors.New("analyzer returned no items")

// Analyzer identifies the food in an image and returns a calorie observation.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*estimation.AnalyzerObservation, error)
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analyzer status %d: %s", e.StatusCode, e.Body)
}

// placeholderPNGBase64 is a transparent 1x1 PNG
const placeholderPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// PlaceholderPNG is sent when a frame carries no RGB image.
var PlaceholderPNG = mustDecodeBase64(placeholderPNGBase64)

const PlaceholderMimeType = "image/png"

func mustDecodeBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// wire format of the hosted analyze_food endpoint

type analyzeRequest struct {
	Label       string `json:"label,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type wireGaussian struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

type wirePriors struct {
	Density  *wireGaussian `json:"density,omitempty"`
	KcalPerG *wireGaussian `json:"kcalPerG,omitempty"`
}

type wireMacros struct {
	ProteinG float64 `json:"proteinG"`
	CarbsG   float64 `json:"carbsG"`
	FatG     float64 `json:"fatG"`
}

type wireItem struct {
	Label          string      `json:"label"`
	Confidence     float64     `json:"confidence"`
	Calories       float64     `json:"calories"`
	SigmaCalories  float64     `json:"sigmaCalories"`
	Path           string      `json:"path"`
	Evidence       []string    `json:"evidence"`
	NutritionLabel any         `json:"nutritionLabel,omitempty"`
	MenuItem       any         `json:"menuItem,omitempty"`
	Priors         *wirePriors `json:"priors,omitempty"`
	Macros         *wireMacros `json:"macros,omitempty"`
}

type analyzeResponse struct {
	Items []wireItem `json:"items"`
	Meta  struct {
		Used      []string `json:"used"`
		LatencyMs int      `json:"latencyMs"`
	} `json:"meta"`
}

func (item wireItem) toObservation() *estimation.AnalyzerObservation {
	path := estimation.AnalysisPath(item.Path)
	if !path.Valid() {
		path = estimation.PathGeometry
	}

	obs := &estimation.AnalyzerObservation{
		Label:      item.Label,
		Confidence: item.Confidence,
		Calories:   item.Calories,
		Sigma:      item.SigmaCalories,
		Path:       path,
		Evidence:   item.Evidence,
	}

	if item.Priors != nil && item.Priors.Density != nil && item.Priors.KcalPerG != nil {
		obs.Priors = &estimation.FoodPriors{
			Density:  estimation.Gaussian{Mu: item.Priors.Density.Mu, Sigma: item.Priors.Density.Sigma},
			KcalPerG: estimation.Gaussian{Mu: item.Priors.KcalPerG.Mu, Sigma: item.Priors.KcalPerG.Sigma},
		}
	}
	if item.Macros != nil {
		obs.Macros = &estimation.Macros{
			ProteinG: item.Macros.ProteinG,
			CarbsG:   item.Macros.CarbsG,
			FatG:     item.Macros.FatG,
		}
	}

	return obs
}
