package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
)

// EmailSender sends one artifact to one recipient. Its internal retry policy
// is its own concern; the router only records the outcome.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient, subject, body string, attachments []model.Attachment) error
}

// WebhookPoster posts one artifact to a webhook endpoint.
type WebhookPoster interface {
	PostWebhook(ctx context.Context, url string, artifact model.PersonaArtifact) error
}

// routes is the static persona-to-channel mapping.
var routes = map[model.Persona][]model.Channel{
	model.PersonaCMO:          {model.ChannelEmail},
	model.PersonaMarketingOps: {model.ChannelWebhook, model.ChannelEmail},
	model.PersonaDataTeam:     {model.ChannelEmail},
}

// DistributionRouter dispatches rendered artifacts to their channels. A
// failure on one (persona, channel) pair never aborts the others; every
// outcome is recorded as a DeliveryRecord.
type DistributionRouter struct {
	Email   EmailSender
	Webhook WebhookPoster
	Cfg     model.DeliveryConfig
	Log     *slog.Logger
}

func NewDistributionRouter(email EmailSender, webhook WebhookPoster, cfg model.DeliveryConfig, log *slog.Logger) *DistributionRouter {
	return &DistributionRouter{Email: email, Webhook: webhook, Cfg: cfg, Log: log}
}

// Distribute sends every artifact on every channel its persona routes to.
// Channel sends run concurrently; the returned batch is the union of all
// outcomes. Re-running the batch for a run skips pairs already sent, so
// dispatch is idempotent per run.
func (d *DistributionRouter) Distribute(ctx context.Context, runID string, artifacts []model.PersonaArtifact) []model.DeliveryRecord {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records []model.DeliveryRecord
	)

	for _, artifact := range artifacts {
		for _, channel := range routes[artifact.Persona] {
			sent, err := store.HasSentDelivery(runID, artifact.Persona, channel)
			if err != nil && d.Log != nil {
				d.Log.Warn("delivery dedup check failed", "runId", runID, "persona", artifact.Persona, "channel", channel, "error", err)
			}
			if sent {
				if d.Log != nil {
					d.Log.Info("skipping already-sent delivery", "runId", runID, "persona", artifact.Persona, "channel", channel)
				}
				continue
			}

			wg.Add(1)
			go func(artifact model.PersonaArtifact, channel model.Channel) {
				defer wg.Done()
				rec := d.dispatch(ctx, artifact, channel)

				if err := store.SaveDeliveryRecord(runID, rec); err != nil && d.Log != nil {
					d.Log.Warn("failed to record delivery", "runId", runID, "persona", rec.Persona, "channel", rec.Channel, "error", err)
				}

				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}(artifact, channel)
		}
	}

	wg.Wait()
	return records
}

func (d *DistributionRouter) dispatch(ctx context.Context, artifact model.PersonaArtifact, channel model.Channel) model.DeliveryRecord {
	var err error
	switch channel {
	case model.ChannelEmail:
		recipient := d.Cfg.Recipients[artifact.Persona]
		if recipient == "" {
			err = fmt.Errorf("no email recipient configured for persona %s", artifact.Persona)
		} else if d.Email == nil {
			err = fmt.Errorf("email channel not configured")
		} else {
			err = d.Email.SendEmail(ctx, recipient, artifact.Subject, artifact.Body, artifact.Attachments)
		}
	case model.ChannelWebhook:
		if d.Cfg.WebhookURL == "" {
			err = fmt.Errorf("no webhook URL configured")
		} else if d.Webhook == nil {
			err = fmt.Errorf("webhook channel not configured")
		} else {
			err = d.Webhook.PostWebhook(ctx, d.Cfg.WebhookURL, artifact)
		}
	default:
		err = fmt.Errorf("unknown channel %q", channel)
	}

	rec := model.DeliveryRecord{
		Persona: artifact.Persona,
		Channel: channel,
		Status:  model.DeliverySent,
		SentAt:  time.Now().UTC(),
	}
	if err != nil {
		rec.Status = model.DeliveryFailed
		rec.Error = err.Error()
		if d.Log != nil {
			d.Log.Warn("delivery failed", "persona", artifact.Persona, "channel", channel, "error", err)
		}
	} else if d.Log != nil {
		d.Log.Info("delivered", "persona", artifact.Persona, "channel", channel)
	}
	return rec
}
