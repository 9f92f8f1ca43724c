package api

import (
	"go-reporting-orchestrator/internal/api/handler"
	"go-reporting-orchestrator/pkg/router"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/runs", handler.CreateRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	r.GET("/api/v1/runs/*/attempts", handler.GetRunAttempts)
	r.GET("/api/v1/runs/*/deliveries", handler.GetRunDeliveries)
	r.GET("/api/v1/runs/*/logs", handler.GetRunLogs)
	r.GET("/api/v1/runs/*/insight", handler.GetRunInsight)
	r.GET("/api/v1/runs/*/artifacts", handler.GetRunArtifacts)
	r.GET("/api/v1/runs/*/decision", handler.GetRunDecision)
	r.POST("/api/v1/decisions/*/resolve", handler.ResolveDecision)
	r.GET("/api/v1/download/*", handler.DownloadArtifact)
	r.GET("/api/v1/runs/*", handler.GetRun)
}
