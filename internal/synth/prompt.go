package synth

import (
	"fmt"
	"strings"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/schema"
)

const systemPrompt = `You are an expert data scientist specializing in causal inference and incrementality analysis. You write Python scripts that run inside a warehouse stored procedure. Output ONLY the Python code, no markdown formatting and no commentary.`

// buildPrompt assembles the synthesis prompt. When priorFailure is set, its
// kind and message are included verbatim so the next attempt is informed by
// the latest failure and not just the original request.
func buildPrompt(req model.AnalysisRequest, sc model.SchemaContext, packages []string, priorFailure *model.Failure) string {
	var b strings.Builder

	b.WriteString("SCHEMA:\n")
	b.WriteString(schema.Render(sc))

	b.WriteString("\nANALYSIS REQUEST:\n")
	fmt.Fprintf(&b, "- Business Question: %s\n", req.Question)
	if req.MethodHint != "" {
		fmt.Fprintf(&b, "- Method: %s\n", req.MethodHint)
	}

	b.WriteString(`
TASK:
Generate the Python body of a warehouse stored procedure that answers the
business question with a statistical analysis.

1. Define a function named main(session). It receives the warehouse session
   handle; do NOT open your own connection.
2. Load data with session.table(...).to_pandas() and immediately normalize
   column names: df.columns = [c.lower() for c in df.columns]. Reference every
   column in lowercase from then on; the live schema is case-sensitive.
3. Do NOT print to stdout and do NOT log; stdout is not a result channel.
   main must RETURN a Python dictionary.
4. The returned dictionary must be FLAT except for a single optional
   "diagnostics" sub-dictionary. Use these keys where applicable:
   status ("success" or "error"), treatment_effect, p_value, ci_lower,
   ci_upper, treated_conversion_rate, control_conversion_rate,
   incremental_lift_pct, n_treated, n_control, is_significant.
5. Encode booleans as integers (1/0); the result is serialized as a VARIANT
   and Python bools do not survive the boundary. No nested lists or objects
   outside "diagnostics".
6. Wrap the analysis in try/except and return {"status": "error",
   "error": str(e)} on failure.
7. Do not include an if __name__ == "__main__" block.
`)

	fmt.Fprintf(&b, "\nAVAILABLE PACKAGES (use no others): %s\n", strings.Join(packages, ", "))

	if priorFailure != nil {
		fmt.Fprintf(&b, "\nPREVIOUS ATTEMPT FAILED (%s):\n%s\n", priorFailure.Kind, priorFailure.Message)
		b.WriteString("Fix the cause of this failure in the regenerated code.\n")
	}

	return b.String()
}
