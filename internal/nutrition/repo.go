package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Repo stores priors in the food_prior table.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetPriors(ctx context.Context, label string) (estimation.FoodPriors, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.priors.get")
	defer span.End()

	key := Canonicalize(label)
	span.SetAttributes(attribute.String("label", key))

	var priors estimation.FoodPriors
	err := r.db.QueryRow(ctx, `
		SELECT density_mu, density_sigma, kcal_per_g_mu, kcal_per_g_sigma
		FROM food_prior
		WHERE label = $1
	`, key).Scan(
		&priors.Density.Mu,
		&priors.Density.Sigma,
		&priors.KcalPerG.Mu,
		&priors.KcalPerG.Sigma,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetAttributes(attribute.Bool("found", false))
		return estimation.FoodPriors{}, fmt.Errorf("%w: %s", ErrPriorsNotFound, label)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return estimation.FoodPriors{}, err
	}
	return priors, nil
}

func (r *Repo) Upsert(ctx context.Context, label string, priors estimation.FoodPriors, source string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.priors.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	key := Canonicalize(label)
	if key == "" {
		return errors.New("empty label")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO food_prior (label, density_mu, density_sigma, kcal_per_g_mu, kcal_per_g_sigma, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (label) DO UPDATE SET
			density_mu = EXCLUDED.density_mu,
			density_sigma = EXCLUDED.density_sigma,
			kcal_per_g_mu = EXCLUDED.kcal_per_g_mu,
			kcal_per_g_sigma = EXCLUDED.kcal_per_g_sigma,
			source = EXCLUDED.source
	`,
		key,
		priors.Density.Mu,
		priors.Density.Sigma,
		priors.KcalPerG.Mu,
		priors.KcalPerG.Sigma,
		source,
	)
	return err
}

// ImportSeed writes every seed entry and its aliases in a single transaction.
func (r *Repo) ImportSeed(ctx context.Context, entries []SeedEntry) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.nutrition.priors.importseed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	batch := &pgx.Batch{}
	for _, e := range entries {
		priors := e.Priors()
		for _, label := range append([]string{e.Label}, e.Aliases...) {
			batch.Queue(`
				INSERT INTO food_prior (label, density_mu, density_sigma, kcal_per_g_mu, kcal_per_g_sigma, source)
				VALUES ($1, $2, $3, $4, $5, 'seed')
				ON CONFLICT (label) DO NOTHING
			`,
				Canonicalize(label),
				priors.Density.Mu,
				priors.Density.Sigma,
				priors.KcalPerG.Mu,
				priors.KcalPerG.Sigma,
			)
		}
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range batch.Len() {
		tag, execErr := results.Exec()
		if execErr != nil {
			_ = results.Close()
			return 0, fmt.Errorf("insert seed prior: %w", execErr)
		}
		inserted += int(tag.RowsAffected())
	}
	if err = results.Close(); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("inserted", inserted))
	return inserted, nil
}
