package delivery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reporting-orchestrator/internal/model"
)

func TestBuildMessageWithoutAttachments(t *testing.T) {
	msg, err := buildMessage("insights@example.com", "cmo@example.com", "Marketing Insight", "<html><body>hi</body></html>", nil)
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: insights@example.com")
	assert.Contains(t, s, "To: cmo@example.com")
	assert.Contains(t, s, "Subject: Marketing Insight")
	assert.Contains(t, s, "Content-Type: text/html")
	assert.Contains(t, s, "<body>hi</body>")
	assert.NotContains(t, s, "multipart/mixed")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	att := model.Attachment{
		Filename:    "analysis_code.py",
		ContentType: "text/x-python",
		Data:        []byte("def main(session):\n    pass\n"),
	}
	msg, err := buildMessage("insights@example.com", "data@example.com", "Analysis Detail", "<html></html>", []model.Attachment{att})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `attachment; filename="analysis_code.py"`)
	assert.Contains(t, s, "Content-Transfer-Encoding: base64")
	// The attachment body is base64, not plaintext.
	assert.NotContains(t, s, "def main(session)")
}

func TestHTMLToText(t *testing.T) {
	html := "<html><body><h2>Campaign Analysis</h2><p>It <b>worked</b>.</p><ul><li>lift: 4.5pp</li></ul></body></html>"
	text := htmlToText(html)

	assert.NotContains(t, text, "<")
	assert.Contains(t, text, "Campaign Analysis")
	assert.Contains(t, text, "It worked.")
	assert.Contains(t, text, "lift: 4.5pp")
	assert.False(t, strings.HasPrefix(text, "\n"))
}
