package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"

	defaultFoodLabel     = "Home-cooked Food"
	defaultCalories      = 300.0
	defaultSigmaCalories = 60.0
	defaultConfidence    = 0.6
	unparsedConfidence   = 0.5
)

var (
	defaultDensityPrior  = estimation.Gaussian{Mu: 0.85, Sigma: 0.13}
	defaultKcalPerGPrior = estimation.Gaussian{Mu: 1.30, Sigma: 0.26}
	geminiEvidence       = []string{"Analyzer", "Gemini", "Geometry"}
)

const geometryPrompt = `Analyze this food image and estimate calories based on visual density and volume. Return JSON (macros MUST be per 100 grams of edible portion):
{
  "label": "Food description",
  "estimatedCalories": number,
  "density": {"mu": mean_density_g_per_ml, "sigma": standard_deviation},
  "kcalPerG": {"mu": mean_calories_per_gram, "sigma": standard_deviation},
  "confidence": number between 0 and 1,
  "macros": {"proteinG": number, "carbsG": number, "fatG": number}
}
Only return valid JSON.`

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient asks a Gemini vision model for the geometry path estimate.
type GeminiClient struct {
	models contentGenerator
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		models: client.Models,
		model:  model,
	}, nil
}

func (c *GeminiClient) Analyze(ctx context.Context, image []byte, mimeType string) (_ *estimation.AnalyzerObservation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.gemini.analyze")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("model", c.model))

	if len(image) == 0 {
		image, mimeType = PlaceholderPNG, PlaceholderMimeType
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geometryPrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	return parseGeometryAnswer(resp.Text()), nil
}

type geometryAnswer struct {
	Label             string        `json:"label"`
	EstimatedCalories *float64      `json:"estimatedCalories"`
	Density           *wireGaussian `json:"density"`
	KcalPerG          *wireGaussian `json:"kcalPerG"`
	Confidence        float64       `json:"confidence"`
	Macros            *wireMacros   `json:"macros"`
}

// parseGeometryAnswer converts the model answer into an observation.
// Missing fields take the hosted analyzer defaults.
func parseGeometryAnswer(text string) *estimation.AnalyzerObservation {
	obs := &estimation.AnalyzerObservation{
		Label:      defaultFoodLabel,
		Confidence: unparsedConfidence,
		Calories:   defaultCalories,
		Sigma:      defaultSigmaCalories,
		Path:       estimation.PathGeometry,
		Evidence:   append([]string(nil), geminiEvidence...),
		Priors: &estimation.FoodPriors{
			Density:  defaultDensityPrior,
			KcalPerG: defaultKcalPerGPrior,
		},
		Macros: &estimation.Macros{},
	}

	var answer geometryAnswer
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &answer); err != nil {
		log.Warnf("gemini analyzer, unparsable answer: %s", err)
		return obs
	}

	obs.Confidence = defaultConfidence
	if answer.Label != "" {
		obs.Label = answer.Label
	}
	if answer.Confidence > 0 {
		obs.Confidence = answer.Confidence
	}
	if answer.EstimatedCalories != nil && *answer.EstimatedCalories > 0 {
		obs.Calories = *answer.EstimatedCalories
		if sigma := math.Round(obs.Calories * 0.2); sigma > 0 {
			obs.Sigma = sigma
		}
	}
	if answer.Density != nil && answer.Density.Mu > 0 {
		obs.Priors.Density = estimation.Gaussian{Mu: answer.Density.Mu, Sigma: answer.Density.Sigma}
	}
	if answer.KcalPerG != nil && answer.KcalPerG.Mu > 0 {
		obs.Priors.KcalPerG = estimation.Gaussian{Mu: answer.KcalPerG.Mu, Sigma: answer.KcalPerG.Sigma}
	}
	if answer.Macros != nil {
		obs.Macros = &estimation.Macros{
			ProteinG: answer.Macros.ProteinG,
			CarbsG:   answer.Macros.CarbsG,
			FatG:     answer.Macros.FatG,
		}
	}

	return obs
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
