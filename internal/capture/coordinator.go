package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/habitpet/caloriecam/internal/analyzer"
	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/metrics"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateIdle        State = "idle"
	StateReady       State = "ready"
	StateCapturing   State = "capturing"
	StateAwaitingVoI State = "awaitingVoI"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

const EvidenceLocalClassifier = "Local-Classifier"

var ErrInvalidRequest = errors.New("invalid estimate request")

type FrameInput struct {
	RGBBase64  string                       `json:"rgbBase64,omitempty"`
	MimeType   string                       `json:"mimeType,omitempty"`
	Depth      *estimation.DepthData        `json:"depth,omitempty"`
	Intrinsics *estimation.CameraIntrinsics `json:"intrinsics,omitempty"`
}

type LocalClassification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type EstimateRequest struct {
	Frame               FrameInput                 `json:"frame"`
	QualitySamples      []estimation.QualitySample `json:"qualitySamples,omitempty"`
	LocalClassification *LocalClassification       `json:"localClassification,omitempty"`
	Profile             string                     `json:"profile,omitempty"`
}

type Outcome struct {
	SessionID        string                   `json:"sessionId,omitempty"`
	State            State                    `json:"state"`
	Result           estimation.CalorieResult `json:"result"`
	Question         string                   `json:"question,omitempty"`
	ActivePaths      []estimation.ActivePath  `json:"activePaths"`
	QualityProgress  float64                  `json:"qualityProgress"`
	QualityLocked    bool                     `json:"qualityLocked"`
	StatusMessage    string                   `json:"statusMessage"`
	AnalyzerError    string                   `json:"analyzerError,omitempty"`
	GeometryFallback bool                     `json:"geometryFallback"`
}

type CoordinatorParams struct {
	// Analyzer and Priors are optional.
	Analyzer foodAnalyzer
	Priors   priorsSource
	Sessions SessionStore
	Config   estimation.CalorieConfig
	Geometry estimation.GeometryParameters
	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration
	Metrics    *metrics.Manager
}

// Coordinator runs the calorie camera pipeline for a single capture and
// keeps the captures waiting for a VoI answer.
type Coordinator struct {
	analyzer   foodAnalyzer
	priors     priorsSource
	sessions   SessionStore
	config     estimation.CalorieConfig
	geometry   estimation.GeometryParameters
	sessionTTL time.Duration
	metrics    *metrics.Manager

	now   func() time.Time
	newID func() string
}

func NewCoordinator(params CoordinatorParams) *Coordinator {
	if params.Sessions == nil {
		params.Sessions = NewMemorySessionStore()
	}
	if params.SessionTTL <= 0 {
		params.SessionTTL = DefaultSessionTTL
	}
	if params.Config.Name == "" {
		params.Config = estimation.DefaultConfig()
	}
	if params.Geometry.MaxVolumeML <= 0 {
		params.Geometry = estimation.DefaultGeometryParameters()
	}
	return &Coordinator{
		analyzer:   params.Analyzer,
		priors:     params.Priors,
		sessions:   params.Sessions,
		config:     params.Config,
		geometry:   params.Geometry,
		sessionTTL: params.SessionTTL,
		metrics:    params.Metrics,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Config returns the preset used when a request names no profile.
func (c *Coordinator) Config() estimation.CalorieConfig {
	return c.config
}

type localPriors struct {
	label    string
	priors   estimation.FoodPriors
	evidence []string
}

func (c *Coordinator) Estimate(ctx context.Context, req EstimateRequest) (_ *Outcome, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coordinator.estimate")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.HistEstimateDuration.Observe(time.Since(start).Seconds())
		}
	}()

	cfg, err := c.configFor(req.Profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	frame, err := decodeFrame(req.Frame, c.now())
	if err != nil {
		return nil, err
	}

	quality := c.qualityGate(cfg, req.QualitySamples)
	span.SetAttributes(
		attribute.String("profile", cfg.Name),
		attribute.Bool("quality_locked", quality.ShouldStop),
	)

	var (
		obs         *estimation.AnalyzerObservation
		analyzerErr error
		local       *localPriors
	)
	g, gCtx := errgroup.WithContext(ctx)
	// with the router off the analyzer still supplies label and priors
	if c.analyzer != nil {
		g.Go(func() error {
			obs, analyzerErr = c.callAnalyzer(gCtx, frame)
			return ctx.Err()
		})
	}
	if c.priors != nil && req.LocalClassification != nil && strings.TrimSpace(req.LocalClassification.Label) != "" {
		g.Go(func() error {
			local = c.lookupLocal(gCtx, *req.LocalClassification)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		c.countEstimate(StateFailed)
		return nil, err
	}

	var priors *estimation.FoodPriors
	switch {
	case obs != nil && obs.Priors != nil:
		priors = obs.Priors
	case local != nil:
		priors = &local.priors
	}

	geometry := estimation.NewGeometryEstimator(c.geometry, estimation.NewFusionEngine(cfg.Fusion)).Estimate(&frame, priors)
	if geometry.Fallback && c.metrics != nil {
		c.metrics.CounterGeometryFallbacks.Inc()
	}

	label := geometry.Label
	switch {
	case obs != nil && obs.Label != "":
		label = obs.Label
	case local != nil:
		label = local.label
	}

	fused := estimation.NewAnalyzerRouter(cfg).Fuse(geometry, obs)

	var obsEvidence, localEvidence []string
	if obs != nil {
		obsEvidence = obs.Evidence
	}
	if local != nil {
		localEvidence = local.evidence
	}

	item := estimation.ItemEstimate{
		ID:       c.newID(),
		Label:    label,
		VolumeML: geometry.VolumeML,
		Calories: fused.FusedCalories,
		Sigma:    fused.FusedSigma,
		Evidence: estimation.MergeEvidence(fused.Evidence, obsEvidence, localEvidence),
	}
	if obs != nil && obs.Priors != nil {
		density := obs.Priors.Density.Mu
		item.DensityGPerML = &density
	}
	if obs != nil && obs.Macros != nil {
		macros := *obs.Macros
		item.MacrosPer100g = &macros
	}

	result := estimation.CalorieResult{
		Items: []estimation.ItemEstimate{item},
		Total: estimation.Gaussian{Mu: fused.FusedCalories, Sigma: fused.FusedSigma},
	}
	if rel := result.TotalRelativeUncertainty(); c.metrics != nil && !math.IsInf(rel, 0) {
		c.metrics.HistEstimateRelativeSigma.Observe(rel)
	}

	outcome := &Outcome{
		State:            StateCompleted,
		Result:           result,
		ActivePaths:      estimation.ActivePaths(cfg),
		QualityProgress:  quality.Progress,
		QualityLocked:    quality.ShouldStop,
		StatusMessage:    estimation.Hint(quality),
		GeometryFallback: geometry.Fallback,
	}
	if analyzerErr != nil {
		outcome.AnalyzerError = analyzerErr.Error()
	}

	if estimation.ShouldAsk(cfg, result, 0) {
		session := PendingSession{
			ID:        c.newID(),
			Profile:   cfg.Name,
			Result:    result,
			Question:  estimation.NextQuestion(cfg),
			CreatedAt: c.now(),
		}
		if err := c.sessions.Save(ctx, session, c.sessionTTL); err != nil {
			c.countEstimate(StateFailed)
			return nil, fmt.Errorf("save session: %w", err)
		}
		outcome.SessionID = session.ID
		outcome.State = StateAwaitingVoI
		outcome.Question = session.Question
	}

	c.countEstimate(outcome.State)
	log.Debugf("estimate [%s]: %.0f +/- %.0f kcal, state %s", label, result.Total.Mu, result.Total.Sigma, outcome.State)

	return outcome, nil
}

func (c *Coordinator) RespondToVoI(ctx context.Context, sessionID string, yes bool) (_ *Outcome, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coordinator.respondToVoI")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	session, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.AskedQuestions++

	result := estimation.ApplyAnswer(session.Result, yes)
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return nil, err
	}

	if c.metrics != nil {
		answer := "no"
		if yes {
			answer = "yes"
		}
		c.metrics.CounterVoIAnswers.WithLabelValues(answer).Inc()
	}
	c.countEstimate(StateCompleted)

	cfg, err := c.configFor(session.Profile)
	if err != nil {
		cfg = c.config
	}

	return &Outcome{
		SessionID:     session.ID,
		State:         StateCompleted,
		Result:        result,
		ActivePaths:   estimation.ActivePaths(cfg),
		QualityLocked: true,
		StatusMessage: "Answer applied",
	}, nil
}

// Pending returns the outcome of a capture still waiting for its answer.
func (c *Coordinator) Pending(ctx context.Context, sessionID string) (*Outcome, error) {
	session, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cfg, err := c.configFor(session.Profile)
	if err != nil {
		cfg = c.config
	}
	return &Outcome{
		SessionID:   session.ID,
		State:       StateAwaitingVoI,
		Result:      session.Result,
		Question:    session.Question,
		ActivePaths: estimation.ActivePaths(cfg),
	}, nil
}

func (c *Coordinator) Cancel(ctx context.Context, sessionID string) (*Outcome, error) {
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	c.countEstimate(StateCancelled)
	return &Outcome{
		SessionID:     sessionID,
		State:         StateCancelled,
		StatusMessage: "Capture cancelled",
	}, nil
}

func (c *Coordinator) configFor(profile string) (estimation.CalorieConfig, error) {
	if strings.TrimSpace(profile) == "" {
		return c.config, nil
	}
	return estimation.ConfigFor(profile)
}

func (c *Coordinator) qualityGate(cfg estimation.CalorieConfig, samples []estimation.QualitySample) estimation.QualityStatus {
	if len(samples) == 0 {
		samples = estimation.MockSamples(cfg.CaptureQuality, c.now())
	}
	estimator := estimation.NewCaptureQualityEstimator(cfg.CaptureQuality)
	var status estimation.QualityStatus
	for _, sample := range samples {
		status = estimator.Evaluate(sample)
		if status.ShouldStop {
			break
		}
	}
	return status
}

func (c *Coordinator) callAnalyzer(ctx context.Context, frame estimation.CapturedFrame) (*estimation.AnalyzerObservation, error) {
	image, mimeType := frame.RGBImage, frame.MimeType
	if len(image) == 0 {
		image, mimeType = analyzer.PlaceholderPNG, analyzer.PlaceholderMimeType
	}

	start := time.Now()
	obs, err := c.analyzer.Analyze(ctx, image, mimeType)
	if c.metrics != nil {
		c.metrics.HistAnalyzerDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Errorf("analyzer call: %s", err)
		c.countAnalyzerCall("error")
		return nil, err
	}
	c.countAnalyzerCall("ok")
	return obs, nil
}

func (c *Coordinator) lookupLocal(ctx context.Context, classification LocalClassification) *localPriors {
	label := strings.TrimSpace(classification.Label)
	priors, err := c.priors.GetPriors(ctx, label)
	if err != nil {
		log.Warnf("local priors [%s]: %s", label, err)
		return nil
	}
	return &localPriors{
		label:  label,
		priors: priors,
		evidence: []string{
			EvidenceLocalClassifier + ":" + label,
			fmt.Sprintf("Conf:%d%%", int(classification.Confidence*100)),
		},
	}
}

func (c *Coordinator) countEstimate(state State) {
	if c.metrics != nil {
		c.metrics.CounterEstimates.WithLabelValues(string(state)).Inc()
	}
}

func (c *Coordinator) countAnalyzerCall(result string) {
	if c.metrics != nil {
		c.metrics.CounterAnalyzerCalls.WithLabelValues(result).Inc()
	}
}

func decodeFrame(in FrameInput, capturedAt time.Time) (estimation.CapturedFrame, error) {
	frame := estimation.CapturedFrame{
		MimeType:   in.MimeType,
		Depth:      in.Depth,
		Intrinsics: in.Intrinsics,
		CapturedAt: capturedAt,
	}
	if in.RGBBase64 == "" {
		return frame, nil
	}
	image, err := base64.StdEncoding.DecodeString(in.RGBBase64)
	if err != nil {
		return frame, fmt.Errorf("%w: rgb image: %w", ErrInvalidRequest, err)
	}
	frame.RGBImage = image
	if frame.MimeType == "" {
		frame.MimeType = "image/jpeg"
	}
	return frame, nil
}
