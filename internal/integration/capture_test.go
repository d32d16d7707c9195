//go:build integration_test || all_tests

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/habitpet/caloriecam/internal/capture"
	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/meallog"
)

func bytesReader(b []byte) io.Reader {
	if b == nil {
		return http.NoBody
	}
	return bytes.NewReader(b)
}

func (s *IntegrationTestSuite) do(req *http.Request, wantStatus int, out any) {
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().Equal(wantStatus, resp.StatusCode, string(body))
	if out != nil {
		s.Require().NoError(json.Unmarshal(body, out))
	}
}

func (s *IntegrationTestSuite) TestCaptureToDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `DELETE FROM meal`)
	s.Require().NoError(err)

	var outcome capture.Outcome
	s.do(s.newRequest(ctx, "POST", "/capture/estimate", []byte(`{
		"localClassification": {"label": "pizza", "confidence": 0.8}
	}`)), http.StatusOK, &outcome)
	// no depth, so the geometry fallback is uncertain enough to ask
	s.Require().Equal(capture.StateAwaitingVoI, outcome.State)
	s.NotEmpty(outcome.Question)
	s.Require().Len(outcome.Result.Items, 1)
	s.Equal("pizza", outcome.Result.Items[0].Label)
	s.Contains(outcome.Result.Items[0].Evidence, "Local-Classifier:pizza")

	var pending capture.Outcome
	s.do(s.newRequest(ctx, "GET", "/capture/"+outcome.SessionID, nil), http.StatusOK, &pending)
	s.Equal(outcome.Result, pending.Result)

	var answered capture.Outcome
	s.do(s.newRequest(ctx, "POST", "/capture/"+outcome.SessionID+"/voi", []byte(`{"answer": true}`)), http.StatusOK, &answered)
	s.Equal(capture.StateCompleted, answered.State)
	s.Less(answered.Result.Total.Sigma, outcome.Result.Total.Sigma)
	s.Contains(answered.Result.Items[0].Evidence, estimation.EvidenceVoIConfirmed)

	s.do(s.newRequest(ctx, "POST", "/capture/"+outcome.SessionID+"/voi", []byte(`{"answer": true}`)), http.StatusNotFound, nil)

	resultBytes, err := json.Marshal(answered.Result)
	s.Require().NoError(err)

	capturedAt := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	capturedAtBytes, err := json.Marshal(capturedAt)
	s.Require().NoError(err)

	var meal meallog.Meal
	s.do(s.newRequest(ctx, "POST", "/meals/camera",
		[]byte(`{"result":`+string(resultBytes)+`,"capturedAt":`+string(capturedAtBytes)+`}`),
	), http.StatusCreated, &meal)
	s.NotZero(meal.ID)
	s.Equal(meallog.SourceCamera, meal.Source)

	var manual meallog.Meal
	s.do(s.newRequest(ctx, "POST", "/meals",
		[]byte(`{"label":"apple","calories":95,"portion":1,"createdAt":"2025-03-01T16:00:00Z"}`),
	), http.StatusCreated, &manual)
	s.Equal(meallog.SourceManual, manual.Source)

	var day meallog.MealsForDayResponse
	s.do(s.newRequest(ctx, "GET", "/meals/day/2025-03-01", nil), http.StatusOK, &day)
	s.Len(day.Meals, 2)

	var summary meallog.DailySummary
	s.do(s.newRequest(ctx, "GET", "/meals/summary/2025-03-01?goal=1500", nil), http.StatusOK, &summary)
	s.Equal(2, summary.MealsLogged)
	s.Equal(meal.Calories+95, summary.Calories)
	s.Equal(1500, summary.CaloriesGoal)

	s.do(s.newRequest(ctx, "DELETE", "/meals/"+strconv.Itoa(manual.ID), nil), http.StatusOK, nil)
	s.do(s.newRequest(ctx, "GET", "/meals/"+strconv.Itoa(manual.ID), nil), http.StatusNotFound, nil)
}

func (s *IntegrationTestSuite) TestUnauthorized() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := s.newRequest(ctx, "GET", "/meals/day/2025-03-01", nil)
	req.Header.Set("X-HABITPET-TOKEN", "wrong")
	s.do(req, http.StatusUnauthorized, nil)
}

func (s *IntegrationTestSuite) TestHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var health struct {
		Status string            `json:"status"`
		Deps   map[string]string `json:"deps"`
	}
	s.do(s.newRequest(ctx, "GET", "/health", nil), http.StatusOK, &health)
	s.Equal("ok", health.Status)
	s.Equal(map[string]string{"postgres": "ok", "redis": "ok"}, health.Deps)
}

func (s *IntegrationTestSuite) TestRedisSessionStore_VoIFlow() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := estimation.DefaultConfig()
	cfg.Name = "strict"
	cfg.VoIThreshold = 0.1

	store := capture.NewRedisSessionStore(s.redisClient)
	coordinator := capture.NewCoordinator(capture.CoordinatorParams{
		Sessions:   store,
		Config:     cfg,
		SessionTTL: time.Minute,
	})

	outcome, err := coordinator.Estimate(ctx, capture.EstimateRequest{})
	s.Require().NoError(err)
	s.Require().Equal(capture.StateAwaitingVoI, outcome.State)

	ttl, err := s.redisClient.TTL(ctx, "caloriecam||capture||"+outcome.SessionID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)

	pending, err := coordinator.Pending(ctx, outcome.SessionID)
	s.Require().NoError(err)
	s.Equal(outcome.Result, pending.Result)

	answered, err := coordinator.RespondToVoI(ctx, outcome.SessionID, false)
	s.Require().NoError(err)
	s.Equal(capture.StateCompleted, answered.State)
	s.Contains(answered.Result.Items[0].Evidence, estimation.EvidenceVoIRejected)

	_, err = store.Load(ctx, outcome.SessionID)
	s.ErrorIs(err, capture.ErrSessionNotFound)
}
