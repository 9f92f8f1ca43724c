package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-reporting-orchestrator/docs"
	"go-reporting-orchestrator/internal/api"
	"go-reporting-orchestrator/internal/api/handler"
	"go-reporting-orchestrator/internal/config"
	"go-reporting-orchestrator/internal/delivery"
	"go-reporting-orchestrator/internal/executor"
	"go-reporting-orchestrator/internal/llm"
	"go-reporting-orchestrator/internal/pipeline"
	"go-reporting-orchestrator/internal/schema"
	"go-reporting-orchestrator/internal/store"
	"go-reporting-orchestrator/pkg/router"
)

// @title Reporting Orchestrator API
// @version 1.0
// @description Generates, executes and distributes warehouse-backed marketing analyses from natural-language questions.
// @BasePath /api/v1
func main() {
	_ = godotenv.Load()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	cfg := config.FromEnv()

	dbPath := os.Getenv("ORCHESTRATOR_DB")
	if dbPath == "" {
		dbPath = "orchestrator.db"
	}
	if err := store.InitDB(dbPath); err != nil {
		log.Error("failed to initialize database", "path", dbPath, "error", err)
		os.Exit(1)
	}

	gen, err := llm.NewFromEnv(log)
	if err != nil {
		log.Error("failed to configure text generation", "error", err)
		os.Exit(1)
	}

	var wh executor.Warehouse
	var provider schema.Provider
	if dsn := os.Getenv("SNOWFLAKE_DSN"); dsn != "" {
		sf, err := executor.NewSnowflakeWarehouse(dsn, os.Getenv("SNOWFLAKE_SCHEMA"))
		if err != nil {
			log.Error("failed to connect to warehouse", "error", err)
			os.Exit(1)
		}
		defer sf.Close()
		wh = sf
		if os.Getenv("SEMANTIC_MODEL_PATH") != "" {
			provider = &schema.FileProvider{Path: cfg.SchemaPath}
		} else {
			provider = sf
		}
	} else {
		log.Warn("SNOWFLAKE_DSN not set, running against the demo warehouse")
		wh = executor.NewDemoWarehouse()
		provider = &schema.FileProvider{Path: cfg.SchemaPath}
	}

	orch := pipeline.NewOrchestrator(
		cfg,
		provider,
		gen,
		wh,
		delivery.NewSMTPSender(cfg.Delivery),
		delivery.NewSlackWebhookPoster(),
		clockwork.NewRealClock(),
		log,
	)
	handler.Configure(orch, cfg.OutputDir)

	r := router.New(log)
	api.RegisterRoutes(r)
	r.GET("/swagger/*", func(w http.ResponseWriter, req *http.Request) {
		httpSwagger.WrapHandler(w, req)
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Start(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
