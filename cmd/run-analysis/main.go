// run-analysis drives a single analysis run from the command line and prints
// the terminal status. Intended for scheduled (cron) invocations, so the
// approval gate defaults to disabled unless GATE_ENABLED is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"

	"go-reporting-orchestrator/internal/config"
	"go-reporting-orchestrator/internal/delivery"
	"go-reporting-orchestrator/internal/executor"
	"go-reporting-orchestrator/internal/llm"
	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/pipeline"
	"go-reporting-orchestrator/internal/schema"
	"go-reporting-orchestrator/internal/store"
)

func main() {
	question := flag.String("question", "", "business question to analyze")
	methodHint := flag.String("method", "", "optional method hint (e.g. propensity_score_matching)")
	dbPath := flag.String("db", "orchestrator.db", "sqlite database path")
	flag.Parse()

	_ = godotenv.Load()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: run-analysis -question \"...\" [-method hint]")
		os.Exit(2)
	}

	cfg := config.FromEnv()
	if os.Getenv("GATE_ENABLED") == "" {
		cfg.Gate.Enabled = false
	}

	if err := store.InitDB(*dbPath); err != nil {
		log.Error("failed to initialize database", "path", *dbPath, "error", err)
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
		provider = sf
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

	req := model.AnalysisRequest{
		Question:    *question,
		MethodHint:  *methodHint,
		RequestedAt: time.Now().UTC(),
	}
	runID := uuid.New().String()
	if err := store.SaveRun(runID, req); err != nil {
		log.Error("failed to save run", "error", err)
		os.Exit(1)
	}

	status, err := orch.Run(context.Background(), runID, req)
	if err != nil {
		log.Error("run failed", "runId", runID, "error", err)
	}

	fmt.Printf("run %s finished with status %s\n", runID, status)
	if status != model.RunDelivered {
		os.Exit(1)
	}
}
