package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reporting-orchestrator/internal/model"
)

var testPackages = []string{"snowflake-snowpark-python", "pandas", "numpy", "scipy", "scikit-learn", "statsmodels"}

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

func testSchema() model.SchemaContext {
	return model.SchemaContext{Tables: []model.Table{
		{
			Name: "CAMPAIGN_EXPOSURES",
			Columns: []model.Column{
				{Name: "CUSTOMER_ID", Type: "varchar"},
				{Name: "EXPOSED", Type: "number"},
			},
		},
		{
			Name: "CONVERSIONS",
			Columns: []model.Column{
				{Name: "CUSTOMER_ID", Type: "varchar"},
				{Name: "CONVERTED", Type: "number"},
			},
		},
	}}
}

type fakeGen struct {
	responses []string
	prompts   []string
	systems   []string
}

func (f *fakeGen) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func TestCheckAcceptsValidCode(t *testing.T) {
	assert.Nil(t, Check(validCode, testSchema(), testPackages))
}

func TestCheckRejectsMissingEntrypoint(t *testing.T) {
	f := Check("import pandas\nx = 1\n", testSchema(), testPackages)
	require.NotNil(t, f)
	assert.Equal(t, model.FailureCodeDefect, f.Kind)
	assert.Contains(t, f.Message, "main(session)")
}

func TestCheckRejectsMainBlock(t *testing.T) {
	code := validCode + `
if __name__ == "__main__":
    main(None)
`
	f := Check(code, testSchema(), testPackages)
	require.NotNil(t, f)
	assert.Contains(t, f.Message, "__main__")
}

func TestCheckRejectsUndeclaredImport(t *testing.T) {
	code := "import requests\n" + validCode
	f := Check(code, testSchema(), testPackages)
	require.NotNil(t, f)
	assert.Equal(t, model.FailureCodeDefect, f.Kind)
	assert.Contains(t, f.Message, `"requests"`)
}

func TestCheckAllowsDeclaredImportAliases(t *testing.T) {
	code := "from sklearn.linear_model import LogisticRegression\nimport snowflake\n" + validCode
	assert.Nil(t, Check(code, testSchema(), testPackages))
}

func TestCheckRejectsNonLowercaseColumnReference(t *testing.T) {
	code := `import pandas as pd

def main(session):
    df = session.table("campaign_exposures").to_pandas()
    df.columns = [c.lower() for c in df.columns]
    return {"status": "success", "n_treated": int(df["CUSTOMER_ID"].count())}
`
	f := Check(code, testSchema(), testPackages)
	require.NotNil(t, f)
	assert.Equal(t, model.FailureCodeDefect, f.Kind)
	assert.Contains(t, f.Message, "CUSTOMER_ID")
}

func TestCheckRejectsEmptySource(t *testing.T) {
	f := Check("   \n", testSchema(), testPackages)
	require.NotNil(t, f)
	assert.Equal(t, model.FailureCodeDefect, f.Kind)
}

func TestSynthesizeExtractsFencedCode(t *testing.T) {
	gen := &fakeGen{responses: []string{"```python\n" + validCode + "```"}}
	s := NewSynthesizer(gen, testPackages, nil)

	req := model.AnalysisRequest{Question: "Did the campaign lift conversions?"}
	code, checkFail, err := s.Synthesize(context.Background(), req, testSchema(), 1, nil)
	require.NoError(t, err)
	require.Nil(t, checkFail)
	assert.Equal(t, 1, code.AttemptNumber)
	assert.NotContains(t, code.Source, "```")
	assert.Contains(t, code.Source, "def main(session)")
}

func TestSynthesizePromptCarriesFailureVerbatim(t *testing.T) {
	gen := &fakeGen{responses: []string{validCode}}
	s := NewSynthesizer(gen, testPackages, nil)

	prior := model.NewFailure(model.FailureCodeDefect, `KeyError: 'CONVERTED'`)
	req := model.AnalysisRequest{Question: "Did the campaign lift conversions?", MethodHint: "propensity_score_matching"}
	code, checkFail, err := s.Synthesize(context.Background(), req, testSchema(), 2, prior)
	require.NoError(t, err)
	require.Nil(t, checkFail)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "PREVIOUS ATTEMPT FAILED (code_defect)")
	assert.Contains(t, prompt, `KeyError: 'CONVERTED'`)
	assert.Contains(t, prompt, "propensity_score_matching")
	assert.Contains(t, prompt, "TABLE CAMPAIGN_EXPOSURES")

	assert.Equal(t, 2, code.AttemptNumber)
	assert.Equal(t, prior, code.BasedOnFeedback)
}

func TestSynthesizeReturnsStaticCheckFailure(t *testing.T) {
	gen := &fakeGen{responses: []string{"import requests\nprint('hi')\n"}}
	s := NewSynthesizer(gen, testPackages, nil)

	req := model.AnalysisRequest{Question: "q"}
	code, checkFail, err := s.Synthesize(context.Background(), req, testSchema(), 1, nil)
	require.NoError(t, err)
	require.NotNil(t, checkFail)
	assert.Equal(t, model.FailureCodeDefect, checkFail.Kind)
	assert.Equal(t, 1, code.AttemptNumber)
}
