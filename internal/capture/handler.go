package capture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"
	"github.com/habitpet/caloriecam/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type coordinator interface {
	Estimate(ctx context.Context, req EstimateRequest) (*Outcome, error)
	RespondToVoI(ctx context.Context, sessionID string, yes bool) (*Outcome, error)
	Pending(ctx context.Context, sessionID string) (*Outcome, error)
	Cancel(ctx context.Context, sessionID string) (*Outcome, error)
	Config() estimation.CalorieConfig
}

type VoIAnswerRequest struct {
	Answer *bool `json:"answer"`
}

type PathsResponse struct {
	Profile     string                  `json:"profile"`
	Flags       estimation.Flags        `json:"flags"`
	ActivePaths []estimation.ActivePath `json:"activePaths"`
}

// DefaultMaxEstimateBodyBytes caps the estimate body: base64 image plus depth map.
const DefaultMaxEstimateBodyBytes int64 = 16 << 20

type Handler struct {
	coordinator  coordinator
	maxBodyBytes int64
}

// NewHandler uses DefaultMaxEstimateBodyBytes when maxBodyBytes <= 0.
func NewHandler(coordinator coordinator, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxEstimateBodyBytes
	}
	return &Handler{
		coordinator:  coordinator,
		maxBodyBytes: maxBodyBytes,
	}
}

func (handler *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.capture.estimate")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req EstimateRequest
	body := http.MaxBytesReader(w, r.Body, handler.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Warnf("estimate, body over %d bytes", maxBytesErr.Limit)
			http.Error(w, "capture too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Errorf("estimate, unmarshal json params: %s", err)
		http.Error(w, "invalid estimate request", http.StatusBadRequest)
		return
	}

	outcome, err := handler.coordinator.Estimate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("estimate failed: %s", err)
		http.Error(w, "estimate failed", http.StatusInternalServerError)
		return
	}

	handler.writeOutcome(w, outcome)
}

func (handler *Handler) HandleVoIAnswer(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.capture.voi")
	defer span.End()

	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req VoIAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("voi answer, unmarshal json params: %s", err)
		http.Error(w, "invalid answer", http.StatusBadRequest)
		return
	}
	if req.Answer == nil {
		http.Error(w, "error, answer missing", http.StatusBadRequest)
		return
	}

	outcome, err := handler.coordinator.RespondToVoI(ctx, sessionID, *req.Answer)
	if err != nil {
		handler.writeSessionError(w, sessionID, err)
		return
	}

	handler.writeOutcome(w, outcome)
}

func (handler *Handler) HandleGetPending(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.capture.get")
	defer span.End()

	sessionID := mux.Vars(r)["id"]
	outcome, err := handler.coordinator.Pending(ctx, sessionID)
	if err != nil {
		handler.writeSessionError(w, sessionID, err)
		return
	}

	handler.writeOutcome(w, outcome)
}

func (handler *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.capture.cancel")
	defer span.End()

	sessionID := mux.Vars(r)["id"]
	outcome, err := handler.coordinator.Cancel(ctx, sessionID)
	if err != nil {
		handler.writeSessionError(w, sessionID, err)
		return
	}

	handler.writeOutcome(w, outcome)
}

func (handler *Handler) HandlePaths(w http.ResponseWriter, r *http.Request) {
	cfg := handler.coordinator.Config()
	if profile := r.URL.Query().Get("profile"); profile != "" {
		var err error
		if cfg, err = estimation.ConfigFor(profile); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	respJson, err := json.Marshal(PathsResponse{
		Profile:     cfg.Name,
		Flags:       cfg.Flags,
		ActivePaths: estimation.ActivePaths(cfg),
	})
	if err != nil {
		log.Errorf("failed to marshal paths response: %s", err)
		http.Error(w, "failed to marshal paths", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(respJson))
}

func (handler *Handler) writeSessionError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "capture session not found", http.StatusNotFound)
		return
	}
	log.Errorf("capture session %s: %s", sessionID, err)
	http.Error(w, "capture session error", http.StatusInternalServerError)
}

func (handler *Handler) writeOutcome(w http.ResponseWriter, outcome *Outcome) {
	outcomeJson, err := json.Marshal(outcome)
	if err != nil {
		log.Errorf("failed to marshal outcome: %s", err)
		http.Error(w, "failed to marshal outcome", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, outcomeJson, http.StatusOK)
}
