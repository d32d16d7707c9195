package meallog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, meal Meal) (_ *Meal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.meallog.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var id int
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO meal
				(label, calories, protein_g, carbs_g, fat_g, portion, source, volume_ml, sigma, evidence, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id;`,
		meal.Label, meal.Calories, meal.ProteinG, meal.CarbsG, meal.FatG, meal.Portion,
		string(meal.Source), meal.VolumeML, meal.Sigma, meal.Evidence, meal.CreatedAt,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert meal: %w", err)
	}

	span.SetAttributes(attribute.Int("meal.id", id))

	meal.ID = id
	return &meal, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Meal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.meallog.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, label, calories, protein_g, carbs_g, fat_g, portion, source, volume_ml, sigma, evidence, created_at
			FROM meal
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals, err := rows2meals(rows)
	if err != nil {
		return nil, err
	}
	if len(meals) != 1 {
		return nil, ErrMealNotFound
	}

	return &meals[0], nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.meallog.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM meal WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMealNotFound
	}
	return nil
}

// ListForDay returns the meals logged on the calendar day of day, in its location.
func (r *Repo) ListForDay(ctx context.Context, day time.Time) (_ []Meal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.meallog.listForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	span.SetAttributes(attribute.String("from", from.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, label, calories, protein_g, carbs_g, fat_g, portion, source, volume_ml, sigma, evidence, created_at
			FROM meal
			WHERE created_at >= $1 AND created_at < $2
			ORDER BY created_at ASC;`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2meals(rows)
}

func rows2meals(rows pgx.Rows) ([]Meal, error) {
	meals := make([]Meal, 0)
	for rows.Next() {
		var (
			m      Meal
			source string
		)
		if err := rows.Scan(
			&m.ID, &m.Label, &m.Calories, &m.ProteinG, &m.CarbsG, &m.FatG, &m.Portion,
			&source, &m.VolumeML, &m.Sigma, &m.Evidence, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		m.Source = Source(source)
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return meals, nil
		}
		return nil, err
	}
	return meals, nil
}
