package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/pipeline"
	"go-reporting-orchestrator/internal/store"
)

var (
	orch      *pipeline.Orchestrator
	outputDir = "outputs"
)

// Configure wires the orchestrator into the handler package. Called once from
// main before the router starts.
func Configure(o *pipeline.Orchestrator, outDir string) {
	orch = o
	if outDir != "" {
		outputDir = outDir
	}
}

// CreateRun starts a new analysis run
// @Summary Create a new analysis run
// @Description Accept a business question and start the analysis pipeline for it
// @Tags runs
// @Accept json
// @Produce json
// @Param request body model.AnalysisRequest true "Analysis request"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "A business question is required", http.StatusBadRequest)
		return
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}

	runID := uuid.New().String()

	if err := store.SaveRun(runID, req); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// Run the pipeline asynchronously; progress is visible via the run
	// status and log endpoints, approval happens via the decision endpoint.
	go func() {
		if _, err := orch.Run(context.Background(), runID, req); err != nil {
			orch.Log.Error("run failed", "runId", runID, "error", err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Analysis run created successfully!",
		"runID":     runID,
		"status":    string(model.RunPending),
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns retrieves all analysis runs
// @Summary List all runs
// @Description Get a list of all analysis runs with their current status
// @Tags runs
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves a specific analysis run
// @Summary Get run
// @Description Retrieve details of a specific analysis run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunAttempts retrieves the repair attempt history for a run
// @Summary Get run attempts
// @Description Retrieve the generated-code attempt history for a run, including failures and feedback
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Attempt history"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/attempts [get]
func GetRunAttempts(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/attempts")
	if !ok {
		return
	}

	attempts, err := store.GetAttempts(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve attempts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":   runID,
		"attempts": attempts,
		"count":    len(attempts),
	})
}

// GetRunDeliveries retrieves delivery records for a run
// @Summary Get run deliveries
// @Description Retrieve per-channel delivery outcomes for a run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Delivery records"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/deliveries [get]
func GetRunDeliveries(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/deliveries")
	if !ok {
		return
	}

	deliveries, err := store.GetDeliveries(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve deliveries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":     runID,
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

// GET /api/v1/runs/{id}/logs
func GetRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	logs, err := store.GetRunLogs(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"logs":   logs,
		"count":  len(logs),
	})
}

// GetRunInsight retrieves the interpreted insight for a run
// @Summary Get run insight
// @Description Retrieve the interpreted analysis insight for a run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.Insight "Insight"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Insight not found"
// @Router /runs/{id}/insight [get]
func GetRunInsight(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/insight")
	if !ok {
		return
	}

	insight, err := store.GetInsight(runID)
	if err != nil {
		http.Error(w, "Insight not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(insight)
}

// GET /api/v1/runs/{id}/artifacts
func GetRunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/artifacts")
	if !ok {
		return
	}

	artifacts, err := store.GetArtifacts(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve artifacts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":    runID,
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

// GET /api/v1/runs/{id}/decision
func GetRunDecision(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/decision")
	if !ok {
		return
	}

	decision, err := store.GetDecisionByRun(runID)
	if err != nil {
		http.Error(w, "Decision not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decision)
}

// ResolveDecision approves or rejects a pending validation decision
// @Summary Resolve decision
// @Description Approve or reject a pending validation decision for a run awaiting approval
// @Tags decisions
// @Accept json
// @Produce json
// @Param id path string true "Decision ID"
// @Param resolution body map[string]string true "Resolution: {status: approved|rejected, decidedBy: identity}"
// @Success 200 {object} map[string]interface{} "Decision resolved"
// @Failure 400 {object} map[string]interface{} "Invalid payload or decision not pending"
// @Router /decisions/{id}/resolve [post]
func ResolveDecision(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	prefix := "/api/v1/decisions/"
	suffix := "/resolve"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	decisionID := path[len(prefix) : len(path)-len(suffix)]
	if decisionID == "" {
		http.Error(w, "Decision ID is required", http.StatusBadRequest)
		return
	}

	var body struct {
		Status    string `json:"status"`
		DecidedBy string `json:"decidedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.DecidedBy == "" {
		http.Error(w, "decidedBy is required", http.StatusBadRequest)
		return
	}

	status := model.DecisionStatus(strings.ToLower(body.Status))
	if status != model.DecisionApproved && status != model.DecisionRejected {
		http.Error(w, "status must be approved or rejected", http.StatusBadRequest)
		return
	}

	if err := store.ResolveDecision(decisionID, status, body.DecidedBy); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "Decision resolved",
		"decision_id": decisionID,
		"status":      string(status),
	})
}

// DownloadArtifact serves a rendered artifact file for download
// @Summary Download artifact
// @Description Download a rendered artifact file from a run
// @Tags files
// @Accept json
// @Produce application/octet-stream
// @Param runID path string true "Run ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 400 {object} map[string]interface{} "Invalid URL format"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{runID}/{filename} [get]
func DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	// URL format: /api/v1/download/runID/filename
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	runID := pathParts[3]
	fileName := pathParts[4]

	filePath := fmt.Sprintf("%s/%s/%s", outputDir, runID, fileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, filePath)
}

// runIDFromPath extracts the run ID between the runs prefix and the given
// suffix, writing an error response when the path does not match.
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	prefix := "/api/v1/runs/"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	runID := path[len(prefix) : len(path)-len(suffix)]
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}
