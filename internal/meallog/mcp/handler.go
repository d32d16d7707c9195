package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler parses tool input, calls the service and formats the MCP result.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// GetMeallogContextTool returns the MCP tool handler for get_meallog_context.
func (h *Handler) GetMeallogContextTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return errorResult("Error fetching schema: " + err.Error()), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

// DailySummaryInput is the input for get_daily_summary.
type DailySummaryInput struct {
	Date string `json:"date" jsonschema:"Day to summarize (YYYY-MM-DD)"`
	Goal int    `json:"goal,omitempty" jsonschema:"Daily calorie goal, defaults to the configured goal"`
}

// GetDailySummaryTool returns the MCP tool handler for get_daily_summary.
func (h *Handler) GetDailySummaryTool() func(context.Context, *mcp.CallToolRequest, DailySummaryInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in DailySummaryInput) (*mcp.CallToolResult, any, error) {
		day, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return errorResult("Invalid date: use YYYY-MM-DD"), nil, nil
		}
		if in.Goal < 0 {
			return errorResult("Invalid goal: must be positive"), nil, nil
		}
		summary, err := h.service.DailySummary(ctx, day, in.Goal)
		if err != nil {
			return errorResult("Error building summary: " + err.Error()), nil, nil
		}
		return jsonResult(summary), nil, nil
	}
}

// MealsForDayInput is the input for get_meals_for_day.
type MealsForDayInput struct {
	Date string `json:"date" jsonschema:"Day to list (YYYY-MM-DD)"`
}

// GetMealsForDayTool returns the MCP tool handler for get_meals_for_day.
func (h *Handler) GetMealsForDayTool() func(context.Context, *mcp.CallToolRequest, MealsForDayInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in MealsForDayInput) (*mcp.CallToolResult, any, error) {
		day, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return errorResult("Invalid date: use YYYY-MM-DD"), nil, nil
		}
		meals, err := h.service.MealsForDay(ctx, day)
		if err != nil {
			return errorResult("Error listing meals: " + err.Error()), nil, nil
		}
		return jsonResult(meals), nil, nil
	}
}
