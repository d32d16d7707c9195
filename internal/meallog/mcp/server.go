package mcp

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with the meal log tools. It is mounted on
// the backend at /mcp and served over stdio by cmd/meallog_mcp.
func NewServer(pool *pgxpool.Pool, meals MealsReader) *mcp.Server {
	svc := NewContextService(NewPoolSchemaRepo(pool), meals)
	h := NewHandler(svc)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "meallog-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_meallog_context",
		Description: "Returns the DB schema for the meal log tables (meal, food_prior): columns, types, nullable, default. Use when you need the actual backend schema.",
	}, h.GetMeallogContextTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_daily_summary",
		Description: "Returns calories, macros, progress percent and pet avatar state for one day. Args: date (YYYY-MM-DD); optional: goal (kcal).",
	}, h.GetDailySummaryTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_meals_for_day",
		Description: "Returns the meals logged on one day, camera and manual. Arg: date (YYYY-MM-DD).",
	}, h.GetMealsForDayTool())

	return s
}
