// Package main runs the meal log MCP server over stdio for local clients.
// The same server is mounted on the backend at /mcp.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/habitpet/caloriecam/internal/config"
	"github.com/habitpet/caloriecam/internal/db"
	"github.com/habitpet/caloriecam/internal/meallog"
	meallogmcp "github.com/habitpet/caloriecam/internal/meallog/mcp"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBPassword:     os.Getenv("CALORIECAM_POSTGRES_PASS"),
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	mealsService := meallog.NewService(meallog.NewRepo(dbPool), nil, cfg.DailyCalorieGoal)
	server := meallogmcp.NewServer(dbPool, mealsService)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
