package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reporting-orchestrator/internal/executor"
	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/schema"
	"go-reporting-orchestrator/internal/store"
)

const validCode = `import pandas as pd
from scipy import stats

def main(session):
    try:
        df = session.table("campaign_exposures").to_pandas()
        df.columns = [c.lower() for c in df.columns]
        return {
            "status": "success",
            "treatment_effect": 0.045,
            "p_value": 0.012,
            "is_significant": 1,
        }
    except Exception as e:
        return {"status": "error", "error": str(e)}
`

const narrationJSON = `{"summary": "The campaign lifted conversions by 4.5 points.",
"key_findings": ["Lift is statistically significant"],
"recommendation": "Extend the campaign.",
"confidence_level": "High"}`

func initTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "test.db")))
}

func testSchema() model.SchemaContext {
	return model.SchemaContext{Tables: []model.Table{{
		Name: "CAMPAIGN_EXPOSURES",
		Columns: []model.Column{
			{Name: "CUSTOMER_ID", Type: "varchar"},
			{Name: "EXPOSED", Type: "number"},
		},
	}}}
}

type fakeSchemaProvider struct {
	sc  model.SchemaContext
	err error
}

func (p *fakeSchemaProvider) GetSchema(ctx context.Context) (model.SchemaContext, error) {
	return p.sc, p.err
}

var _ schema.Provider = (*fakeSchemaProvider)(nil)

// scriptedGen returns canned responses in order, repeating the last one, and
// records every prompt it saw.
type scriptedGen struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (g *scriptedGen) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, userPrompt)
	i := len(g.prompts) - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

func (g *scriptedGen) promptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// scriptedWarehouse returns one scripted outcome per CallProcedure invocation,
// repeating the last one, and records every deployed source.
type scriptedWarehouse struct {
	mu      sync.Mutex
	results []map[string]interface{}
	errs    []error
	sources []string
	calls   int
}

func (w *scriptedWarehouse) DeployProcedure(ctx context.Context, name, source string, packages []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources = append(w.sources, source)
	return nil
}

func (w *scriptedWarehouse) CallProcedure(ctx context.Context, name string) (map[string]interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.calls
	w.calls++
	if i >= len(w.errs) {
		i = len(w.errs) - 1
	}
	if w.errs[i] != nil {
		return nil, w.errs[i]
	}
	return w.results[i], nil
}

func (w *scriptedWarehouse) DropProcedure(ctx context.Context, name string) error {
	return nil
}

func successResult() map[string]interface{} {
	return map[string]interface{}{
		"status":                  "success",
		"treatment_effect":        0.045,
		"p_value":                 0.012,
		"ci_lower":                0.02,
		"ci_upper":                0.07,
		"treated_conversion_rate": 0.18,
		"control_conversion_rate": 0.135,
		"incremental_lift_pct":    33.3,
		"n_treated":               float64(4821),
		"n_control":               float64(4779),
		"is_significant":          float64(1),
	}
}

type fakeEmail struct {
	mu      sync.Mutex
	failFor map[model.Persona]bool
	sent    []model.Persona
}

func (e *fakeEmail) SendEmail(ctx context.Context, recipient, subject, body string, attachments []model.Attachment) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for persona, fail := range e.failFor {
		if fail && recipientFor(persona) == recipient {
			return errors.New("smtp: connection refused")
		}
	}
	for persona := range recipients() {
		if recipientFor(persona) == recipient {
			e.sent = append(e.sent, persona)
		}
	}
	return nil
}

type fakeWebhook struct {
	mu     sync.Mutex
	err    error
	posted []model.PersonaArtifact
}

func (w *fakeWebhook) PostWebhook(ctx context.Context, url string, artifact model.PersonaArtifact) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.posted = append(w.posted, artifact)
	return nil
}

func recipients() map[model.Persona]string {
	return map[model.Persona]string{
		model.PersonaCMO:          "cmo@example.com",
		model.PersonaMarketingOps: "ops@example.com",
		model.PersonaDataTeam:     "data@example.com",
	}
}

func recipientFor(p model.Persona) string {
	return recipients()[p]
}

func testConfig(t *testing.T) model.Config {
	cfg := model.DefaultConfig()
	cfg.Repair.InitialBackoff = time.Millisecond
	cfg.Repair.MaxBackoff = 2 * time.Millisecond
	cfg.Gate.Enabled = false
	cfg.Gate.PollInterval = 5 * time.Millisecond
	cfg.Gate.Timeout = 2 * time.Second
	cfg.Delivery.Recipients = recipients()
	cfg.Delivery.WebhookURL = "https://hooks.example.com/services/T0/B0/x"
	cfg.RunTimeout = 10 * time.Second
	cfg.OutputDir = t.TempDir()
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestOrchestrator(t *testing.T, cfg model.Config, gen *scriptedGen, wh executor.Warehouse, email EmailSender, webhook WebhookPoster) *Orchestrator {
	t.Helper()
	provider := &fakeSchemaProvider{sc: testSchema()}
	return NewOrchestrator(cfg, provider, gen, wh, email, webhook, clockwork.NewRealClock(), testLogger())
}

func TestRunDeliveredEndToEnd(t *testing.T) {
	initTestDB(t)
	cfg := testConfig(t)

	gen := &scriptedGen{responses: []string{validCode, narrationJSON}}
	wh := &scriptedWarehouse{results: []map[string]interface{}{successResult()}, errs: []error{nil}}
	email := &fakeEmail{}
	webhook := &fakeWebhook{}
	orch := newTestOrchestrator(t, cfg, gen, wh, email, webhook)

	req := model.AnalysisRequest{Question: "Did the spring campaign lift conversions?", RequestedAt: time.Now().UTC()}
	require.NoError(t, store.SaveRun("run-1", req))

	status, err := orch.Run(context.Background(), "run-1", req)
	require.NoError(t, err)
	assert.Equal(t, model.RunDelivered, status)

	stored, err := store.GetRunStatus("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunDelivered, stored)

	attempts, err := store.GetAttempts("run-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].Result.Success)

	insight, err := store.GetInsight("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceHigh, insight.Confidence)
	assert.Equal(t, "The campaign lifted conversions by 4.5 points.", insight.Narrative)

	// CMO email, marketing ops webhook+email, data team email.
	recs, err := store.GetDeliveries("run-1")
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, rec := range recs {
		assert.Equal(t, model.DeliverySent, rec.Status)
	}
	assert.Len(t, webhook.posted, 1)
	assert.Equal(t, model.PersonaMarketingOps, webhook.posted[0].Persona)

	artifacts, err := store.GetArtifacts("run-1")
	require.NoError(t, err)
	assert.Len(t, artifacts, 3)
}

func TestRunRejectionBlocksArtifactsAndDeliveries(t *testing.T) {
	initTestDB(t)
	cfg := testConfig(t)
	cfg.Gate.Enabled = true

	gen := &scriptedGen{responses: []string{validCode, narrationJSON}}
	wh := &scriptedWarehouse{results: []map[string]interface{}{successResult()}, errs: []error{nil}}
	email := &fakeEmail{}
	webhook := &fakeWebhook{}
	orch := newTestOrchestrator(t, cfg, gen, wh, email, webhook)

	req := model.AnalysisRequest{Question: "q", RequestedAt: time.Now().UTC()}
	require.NoError(t, store.SaveRun("run-1", req))

	done := make(chan model.RunStatus, 1)
	go func() {
		status, _ := orch.Run(context.Background(), "run-1", req)
		done <- status
	}()

	// Wait for the pending decision, then reject it.
	var decisionID string
	require.Eventually(t, func() bool {
		d, err := store.GetDecisionByRun("run-1")
		if err != nil {
			return false
		}
		decisionID = d.ID
		return true
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, store.ResolveDecision(decisionID, model.DecisionRejected, "qa@example.com"))

	select {
	case status := <-done:
		assert.Equal(t, model.RunRejected, status)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	artifacts, err := store.GetArtifacts("run-1")
	require.NoError(t, err)
	assert.Empty(t, artifacts)

	recs, err := store.GetDeliveries("run-1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = store.GetInsight("run-1")
	assert.Error(t, err)
}

func TestRunSchemaFetchFailureIsFatal(t *testing.T) {
	initTestDB(t)
	cfg := testConfig(t)

	gen := &scriptedGen{responses: []string{validCode}}
	wh := &scriptedWarehouse{results: []map[string]interface{}{successResult()}, errs: []error{nil}}
	orch := newTestOrchestrator(t, cfg, gen, wh, &fakeEmail{}, &fakeWebhook{})
	orch.Schema = &fakeSchemaProvider{err: errors.New("semantic model missing")}

	req := model.AnalysisRequest{Question: "q"}
	require.NoError(t, store.SaveRun("run-1", req))

	status, err := orch.Run(context.Background(), "run-1", req)
	require.Error(t, err)
	assert.Equal(t, model.RunFatalError, status)

	stored, err := store.GetRunStatus("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunFatalError, stored)
}
