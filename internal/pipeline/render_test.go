package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
	"go-reporting-orchestrator/pkg/utils"
)

func testInsight() model.Insight {
	return model.Insight{
		Narrative:      "The campaign lifted conversions by 4.5 points.",
		KeyFindings:    []string{"Lift is statistically significant", "Effect is consistent across regions"},
		Recommendation: "Extend the campaign.",
		Confidence:     model.ConfidenceHigh,
		Metrics: map[string]interface{}{
			"treatment_effect":     0.045,
			"p_value":              0.012,
			"incremental_lift_pct": 33.3,
			"n_treated":            float64(4821),
		},
	}
}

func TestRenderAllProducesOneArtifactPerPersona(t *testing.T) {
	initTestDB(t)
	r := NewRenderer(nil, testLogger())

	req := model.AnalysisRequest{Question: "Did the spring campaign lift conversions?"}
	code := model.GeneratedCode{Source: "def main(session):\n    pass\n", AttemptNumber: 2}

	artifacts, err := r.RenderAll("run-1", req, testInsight(), code)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	byPersona := make(map[model.Persona]model.PersonaArtifact)
	for _, a := range artifacts {
		byPersona[a.Persona] = a
	}

	cmo := byPersona[model.PersonaCMO]
	assert.Contains(t, cmo.Subject, "Marketing Insight")
	assert.Contains(t, cmo.Body, "The campaign lifted conversions")
	assert.Contains(t, cmo.Body, "Estimated incremental lift")
	assert.NotContains(t, cmo.Body, "Extend the campaign.")
	assert.Empty(t, cmo.Attachments)

	ops := byPersona[model.PersonaMarketingOps]
	assert.Contains(t, ops.Body, "Extend the campaign.")
	assert.Contains(t, ops.Body, "Lift is statistically significant")
	assert.Empty(t, ops.Attachments)

	data := byPersona[model.PersonaDataTeam]
	assert.Contains(t, data.Body, "treatment_effect")
	assert.Contains(t, data.Body, "p_value")
	require.Len(t, data.Attachments, 1)
	assert.Equal(t, "analysis_code.py", data.Attachments[0].Filename)
	assert.Equal(t, code.Source, string(data.Attachments[0].Data))
}

func TestRenderAllHeadlineFallsBackToEffect(t *testing.T) {
	initTestDB(t)
	r := NewRenderer(nil, testLogger())

	insight := testInsight()
	// No lift metric, headline should use the effect estimate instead.
	delete(insight.Metrics, "incremental_lift_pct")
	artifacts, err := r.RenderAll("run-1", model.AnalysisRequest{Question: "q"}, insight, model.GeneratedCode{})
	require.NoError(t, err)

	for _, a := range artifacts {
		if a.Persona == model.PersonaCMO {
			assert.Contains(t, a.Body, "Estimated treatment effect")
		}
	}
}

func TestRenderAllIsolatesPersonaFailures(t *testing.T) {
	initTestDB(t)
	r := NewRenderer(nil, testLogger())

	// A persona without a template fails to render; the others must still
	// come out.
	orig := model.AllPersonas
	model.AllPersonas = append([]model.Persona{"finance"}, orig...)
	defer func() { model.AllPersonas = orig }()

	artifacts, err := r.RenderAll("run-1", model.AnalysisRequest{Question: "q"}, testInsight(), model.GeneratedCode{})
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
	for _, a := range artifacts {
		assert.NotEqual(t, model.Persona("finance"), a.Persona)
	}
}

func TestRenderAllErrorsWhenNothingRenders(t *testing.T) {
	initTestDB(t)
	r := NewRenderer(nil, testLogger())

	orig := model.AllPersonas
	model.AllPersonas = []model.Persona{"finance"}
	defer func() { model.AllPersonas = orig }()

	_, err := r.RenderAll("run-1", model.AnalysisRequest{Question: "q"}, testInsight(), model.GeneratedCode{})
	require.Error(t, err)
}

func TestRenderAllArchivesArtifacts(t *testing.T) {
	initTestDB(t)
	dir := t.TempDir()
	r := NewRenderer(utils.NewOutputManager(dir), testLogger())

	code := model.GeneratedCode{Source: "def main(session):\n    pass\n", AttemptNumber: 1}
	_, err := r.RenderAll("run-1", model.AnalysisRequest{Question: "q"}, testInsight(), code)
	require.NoError(t, err)

	for _, persona := range model.AllPersonas {
		_, err := os.Stat(filepath.Join(dir, "run-1", string(persona)+".html"))
		assert.NoError(t, err, persona)
	}
	// The data team attachment is archived alongside the HTML.
	_, err = os.Stat(filepath.Join(dir, "run-1", "analysis_code.py"))
	assert.NoError(t, err)

	artifacts, err := store.GetArtifacts("run-1")
	require.NoError(t, err)
	assert.Len(t, artifacts, 3)
}
