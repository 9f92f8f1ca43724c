package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"sort"
	"strings"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
	"go-reporting-orchestrator/pkg/utils"
)

// Renderer produces one PersonaArtifact per persona from an approved Insight.
// Each persona sees a different slice of the result: the CMO gets the headline
// story, marketing ops gets the recommendation to act on, and the data team
// gets the full metrics plus the analysis code that produced them.
type Renderer struct {
	Out *utils.OutputManager
	Log *slog.Logger
}

func NewRenderer(out *utils.OutputManager, log *slog.Logger) *Renderer {
	return &Renderer{Out: out, Log: log}
}

type renderContext struct {
	Question       string
	Narrative      string
	KeyFindings    []string
	Recommendation string
	Confidence     model.ConfidenceLabel
	Metrics        []metricRow
	Headline       string
}

type metricRow struct {
	Name  string
	Value string
}

var cmoTemplate = template.Must(template.New("cmo").Parse(`<html><body>
<h2>Marketing Insight</h2>
<p><b>{{.Question}}</b></p>
{{if .Headline}}<p style="font-size:1.2em">{{.Headline}}</p>{{end}}
<p>{{.Narrative}}</p>
<p><i>Confidence: {{.Confidence}}</i></p>
</body></html>
`))

var marketingOpsTemplate = template.Must(template.New("marketing_ops").Parse(`<html><body>
<h2>Campaign Analysis</h2>
<p><b>{{.Question}}</b></p>
<p>{{.Narrative}}</p>
{{if .KeyFindings}}<h3>Key Findings</h3><ul>
{{range .KeyFindings}}<li>{{.}}</li>
{{end}}</ul>{{end}}
{{if .Recommendation}}<h3>Recommended Action</h3><p>{{.Recommendation}}</p>{{end}}
<p><i>Confidence: {{.Confidence}}</i></p>
</body></html>
`))

var dataTeamTemplate = template.Must(template.New("data_team").Parse(`<html><body>
<h2>Analysis Detail</h2>
<p><b>{{.Question}}</b></p>
<p>{{.Narrative}}</p>
{{if .Recommendation}}<p>{{.Recommendation}}</p>{{end}}
<h3>Metrics</h3>
<table border="1" cellpadding="4">
{{range .Metrics}}<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
<p><i>Confidence: {{.Confidence}}</i></p>
<p>The analysis code that produced these results is attached.</p>
</body></html>
`))

// RenderAll renders an artifact for every persona and archives each one under
// the run's output directory. A render failure for one persona is logged and
// does not block the other personas; the error return is reserved for the
// case where nothing rendered at all. A failed archive write is logged and
// does not block the artifact from being delivered.
func (r *Renderer) RenderAll(runID string, req model.AnalysisRequest, insight model.Insight, finalCode model.GeneratedCode) ([]model.PersonaArtifact, error) {
	artifacts := make([]model.PersonaArtifact, 0, len(model.AllPersonas))

	for _, persona := range model.AllPersonas {
		artifact, err := r.render(persona, req, insight, finalCode)
		if err != nil {
			if r.Log != nil {
				r.Log.Warn("failed to render artifact", "runId", runID, "persona", persona, "error", err)
			}
			continue
		}
		r.archive(runID, artifact)
		artifacts = append(artifacts, artifact)
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no artifact could be rendered for run %s", runID)
	}
	return artifacts, nil
}

func (r *Renderer) render(persona model.Persona, req model.AnalysisRequest, insight model.Insight, finalCode model.GeneratedCode) (model.PersonaArtifact, error) {
	rc := renderContext{
		Question:       req.Question,
		Narrative:      insight.Narrative,
		KeyFindings:    insight.KeyFindings,
		Recommendation: insight.Recommendation,
		Confidence:     insight.Confidence,
		Headline:       headline(insight.Metrics),
	}

	var tmpl *template.Template
	var subject string
	var attachments []model.Attachment

	switch persona {
	case model.PersonaCMO:
		tmpl = cmoTemplate
		subject = "Marketing Insight: " + shorten(req.Question, 80)
	case model.PersonaMarketingOps:
		tmpl = marketingOpsTemplate
		subject = "Campaign Analysis: " + shorten(req.Question, 80)
	case model.PersonaDataTeam:
		tmpl = dataTeamTemplate
		subject = "Analysis Detail: " + shorten(req.Question, 80)
		rc.Metrics = metricRows(insight.Metrics)
		if finalCode.Source != "" {
			attachments = append(attachments, model.Attachment{
				Filename:    "analysis_code.py",
				ContentType: "text/x-python",
				Data:        []byte(finalCode.Source),
			})
		}
	default:
		return model.PersonaArtifact{}, fmt.Errorf("unknown persona %q", persona)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, rc); err != nil {
		return model.PersonaArtifact{}, err
	}

	return model.PersonaArtifact{
		Persona:     persona,
		Subject:     subject,
		Body:        body.String(),
		Attachments: attachments,
	}, nil
}

// archive writes the artifact body (and any attachments) to the run's output
// directory and records it in the store.
func (r *Renderer) archive(runID string, artifact model.PersonaArtifact) {
	if r.Out == nil {
		return
	}

	path, err := r.Out.GetOutputFilePath(runID, string(artifact.Persona)+".html")
	if err == nil {
		err = os.WriteFile(path, []byte(artifact.Body), 0644)
	}
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("failed to archive artifact", "runId", runID, "persona", artifact.Persona, "error", err)
		}
		return
	}

	if err := store.SaveArtifact(runID, string(artifact.Persona), artifact.Subject, path); err != nil && r.Log != nil {
		r.Log.Warn("failed to record artifact", "runId", runID, "persona", artifact.Persona, "error", err)
	}

	for _, att := range artifact.Attachments {
		attPath, err := r.Out.GetOutputFilePath(runID, att.Filename)
		if err == nil {
			err = os.WriteFile(attPath, att.Data, 0644)
		}
		if err != nil && r.Log != nil {
			r.Log.Warn("failed to archive attachment", "runId", runID, "file", att.Filename, "error", err)
		}
	}
}

// headline picks the single most presentable number for the executive view.
func headline(metrics map[string]interface{}) string {
	if lift, ok := metricFloat(metrics, "incremental_lift_pct"); ok {
		return fmt.Sprintf("Estimated incremental lift: %.1f%%", lift)
	}
	if effect, ok := metricFloat(metrics, "treatment_effect"); ok {
		return fmt.Sprintf("Estimated treatment effect: %.4f", effect)
	}
	return ""
}

func metricRows(metrics map[string]interface{}) []metricRow {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]metricRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, metricRow{Name: name, Value: fmt.Sprintf("%v", metrics[name])})
	}
	return rows
}

func shorten(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
