package delivery

import (
	"context"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"go-reporting-orchestrator/internal/model"
)

// SlackWebhookPoster posts artifacts to an incoming-webhook URL. The HTML
// body is flattened to plain text because webhook messages render markdown,
// not HTML.
type SlackWebhookPoster struct{}

func NewSlackWebhookPoster() *SlackWebhookPoster {
	return &SlackWebhookPoster{}
}

func (p *SlackWebhookPoster) PostWebhook(ctx context.Context, url string, artifact model.PersonaArtifact) error {
	msg := &slack.WebhookMessage{
		Text: "*" + artifact.Subject + "*",
		Attachments: []slack.Attachment{
			{
				Text:       htmlToText(artifact.Body),
				Footer:     "persona: " + string(artifact.Persona),
				MarkdownIn: []string{"text"},
			},
		},
	}
	return slack.PostWebhookContext(ctx, url, msg)
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// htmlToText strips tags and collapses whitespace. Good enough for webhook
// summaries; the full HTML artifact is archived and emailed separately.
func htmlToText(html string) string {
	text := strings.NewReplacer("</p>", "\n", "</h2>", "\n", "</h3>", "\n", "</li>", "\n", "</tr>", "\n", "<br>", "\n").Replace(html)
	text = tagRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
