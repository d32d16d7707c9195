package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/habitpet/caloriecam/internal/meallog"
)

// MealsReader provides read access to logged meals.
type MealsReader interface {
	MealsForDay(ctx context.Context, day time.Time) ([]meallog.Meal, error)
	DailySummary(ctx context.Context, day time.Time, goal int) (*meallog.DailySummary, error)
}

// contextService is what the tool handlers need; kept small for tests.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	MealsForDay(ctx context.Context, day time.Time) ([]meallog.Meal, error)
	DailySummary(ctx context.Context, day time.Time, goal int) (*meallog.DailySummary, error)
}

type ContextService struct {
	schema SchemaRepo
	meals  MealsReader
}

func NewContextService(schemaRepo SchemaRepo, meals MealsReader) *ContextService {
	return &ContextService{
		schema: schemaRepo,
		meals:  meals,
	}
}

// GetSchema returns the meal and food_prior table layout as markdown.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	cols, err := s.schema.GetMeallogColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatSchema(cols), nil
}

func formatSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# Meal Log DB Schema\n\nNo meal log tables found in the database.\n"
	}

	byTable := make(map[string][]SchemaColumn)
	for _, c := range cols {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}
	tables := make([]string, 0, len(byTable))
	for t := range byTable {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var b strings.Builder
	b.WriteString("# Meal Log DB Schema\n\n")
	for _, table := range tables {
		b.WriteString("## ")
		b.WriteString(table)
		b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|---------|\n")
		for _, c := range byTable[table] {
			def := "-"
			if c.ColumnDef != nil && *c.ColumnDef != "" {
				def = *c.ColumnDef
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def))
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n\n") + "\n"
}

func (s *ContextService) MealsForDay(ctx context.Context, day time.Time) ([]meallog.Meal, error) {
	return s.meals.MealsForDay(ctx, day)
}

func (s *ContextService) DailySummary(ctx context.Context, day time.Time, goal int) (*meallog.DailySummary, error) {
	return s.meals.DailySummary(ctx, day, goal)
}
