package meallog

import (
	"context"
	"fmt"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=meallog_test

type mealsRepo interface {
	Add(ctx context.Context, meal Meal) (*Meal, error)
	Get(ctx context.Context, id int) (*Meal, error)
	Delete(ctx context.Context, id int) error
	ListForDay(ctx context.Context, day time.Time) ([]Meal, error)
}

type Service struct {
	repo        mealsRepo
	metrics     *metrics.Manager
	defaultGoal int
}

func NewService(repo mealsRepo, metrics *metrics.Manager, defaultGoal int) *Service {
	if defaultGoal <= 0 {
		defaultGoal = DefaultCalorieGoal
	}
	return &Service{
		repo:        repo,
		metrics:     metrics,
		defaultGoal: defaultGoal,
	}
}

// LogCameraResult stores the meal derived from a finished capture.
func (s *Service) LogCameraResult(ctx context.Context, result estimation.CalorieResult, capturedAt time.Time) (*Meal, error) {
	meal, ok := FromCalorieResult(result, capturedAt)
	if !ok {
		return nil, fmt.Errorf("%w: result has no items", ErrInvalidMeal)
	}
	return s.add(ctx, meal)
}

func (s *Service) LogManual(ctx context.Context, meal Meal) (*Meal, error) {
	meal.Source = SourceManual
	if meal.Portion == 0 {
		meal.Portion = 1
	}
	if meal.CreatedAt.IsZero() {
		meal.CreatedAt = time.Now()
	}
	return s.add(ctx, meal)
}

func (s *Service) add(ctx context.Context, meal Meal) (*Meal, error) {
	if err := meal.Validate(); err != nil {
		return nil, err
	}

	added, err := s.repo.Add(ctx, meal)
	if err != nil {
		return nil, fmt.Errorf("add meal: %w", err)
	}

	if s.metrics != nil {
		s.metrics.CounterMealsLogged.WithLabelValues(string(added.Source)).Inc()
	}
	log.Debugf("meal logged [%s] %d kcal: %d", added.Label, added.Calories, added.ID)

	return added, nil
}

func (s *Service) Get(ctx context.Context, id int) (*Meal, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) MealsForDay(ctx context.Context, day time.Time) ([]Meal, error) {
	return s.repo.ListForDay(ctx, day)
}

// DailySummary uses the service default goal when goal is not positive.
func (s *Service) DailySummary(ctx context.Context, day time.Time, goal int) (*DailySummary, error) {
	if goal <= 0 {
		goal = s.defaultGoal
	}
	meals, err := s.repo.ListForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	summary := Summarize(day, meals, goal)
	return &summary, nil
}
