package meallog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"
	"github.com/habitpet/caloriecam/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type mealService interface {
	LogCameraResult(ctx context.Context, result estimation.CalorieResult, capturedAt time.Time) (*Meal, error)
	LogManual(ctx context.Context, meal Meal) (*Meal, error)
	Get(ctx context.Context, id int) (*Meal, error)
	Delete(ctx context.Context, id int) error
	MealsForDay(ctx context.Context, day time.Time) ([]Meal, error)
	DailySummary(ctx context.Context, day time.Time, goal int) (*DailySummary, error)
}

type CameraMealRequest struct {
	Result     estimation.CalorieResult `json:"result"`
	CapturedAt *time.Time               `json:"capturedAt,omitempty"`
}

type DeleteMealResponse struct {
	DeletedID int `json:"deletedId"`
}

type MealsForDayResponse struct {
	Day   string `json:"day"`
	Meals []Meal `json:"meals"`
}

type Handler struct {
	service mealService
}

func NewHandler(service mealService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleLogCamera(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.camera")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req CameraMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("camera meal, unmarshal json params: %s", err)
		http.Error(w, "invalid camera meal", http.StatusBadRequest)
		return
	}

	capturedAt := time.Now()
	if req.CapturedAt != nil {
		capturedAt = *req.CapturedAt
	}

	meal, err := handler.service.LogCameraResult(ctx, req.Result, capturedAt)
	handler.writeAdded(w, meal, err)
}

func (handler *Handler) HandleLogManual(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.manual")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var meal Meal
	if err := json.NewDecoder(r.Body).Decode(&meal); err != nil {
		log.Errorf("manual meal, unmarshal json params: %s", err)
		http.Error(w, "invalid meal", http.StatusBadRequest)
		return
	}

	added, err := handler.service.LogManual(ctx, meal)
	handler.writeAdded(w, added, err)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	meal, err := handler.service.Get(ctx, id)
	if err != nil {
		handler.writeLookupError(w, id, err)
		return
	}

	mealJson, err := json.Marshal(meal)
	if err != nil {
		log.Errorf("failed to marshal meal: %s", err)
		http.Error(w, "failed to marshal meal", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, mealJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.service.Delete(ctx, id); err != nil {
		handler.writeLookupError(w, id, err)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteMealResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleMealsForDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.day")
	defer span.End()

	day, err := parseDay(mux.Vars(r)["date"], r.URL.Query().Get("tz"))
	if err != nil {
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	meals, err := handler.service.MealsForDay(ctx, day)
	if err != nil {
		log.Errorf("list meals for %s: %s", day.Format(time.DateOnly), err)
		http.Error(w, "failed to get meals", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(MealsForDayResponse{
		Day:   day.Format(time.DateOnly),
		Meals: meals,
	})
	if err != nil {
		log.Errorf("failed to marshal meals: %s", err)
		http.Error(w, "failed to marshal meals", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(respJson))
}

func (handler *Handler) HandleDailySummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meallog.summary")
	defer span.End()

	day, err := parseDay(mux.Vars(r)["date"], r.URL.Query().Get("tz"))
	if err != nil {
		http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	goal := 0
	if goalStr := r.URL.Query().Get("goal"); goalStr != "" {
		if goal, err = strconv.Atoi(goalStr); err != nil || goal <= 0 {
			http.Error(w, "invalid goal", http.StatusBadRequest)
			return
		}
	}

	summary, err := handler.service.DailySummary(ctx, day, goal)
	if err != nil {
		log.Errorf("daily summary for %s: %s", day.Format(time.DateOnly), err)
		http.Error(w, "failed to get daily summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("failed to marshal summary: %s", err)
		http.Error(w, "failed to marshal summary", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(summaryJson))
}

func (handler *Handler) writeAdded(w http.ResponseWriter, meal *Meal, err error) {
	if err != nil {
		if errors.Is(err, ErrInvalidMeal) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to log meal: %s", err)
		http.Error(w, "error, failed to log meal", http.StatusInternalServerError)
		return
	}

	mealJson, err := json.Marshal(meal)
	if err != nil {
		log.Errorf("failed to marshal new meal: %s", err)
		http.Error(w, "error, failed to log meal", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, mealJson, http.StatusCreated)
}

func (handler *Handler) writeLookupError(w http.ResponseWriter, id int, err error) {
	if errors.Is(err, ErrMealNotFound) {
		http.Error(w, "meal not found", http.StatusNotFound)
		return
	}
	log.Errorf("meal %d: %s", id, err)
	http.Error(w, "meal lookup failed", http.StatusInternalServerError)
}

// parseDay reads a YYYY-MM-DD date, in the IANA zone tz when given.
func parseDay(date, tz string) (time.Time, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return time.Time{}, err
		}
	}
	return time.ParseInLocation(time.DateOnly, date, loc)
}
