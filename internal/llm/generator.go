// Package llm wraps the text-generation capability the synthesizer and
// interpreter depend on. The provider is behind a narrow interface so the
// pipeline can be tested with a canned generator.
package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

// Generator sends a prompt and returns the raw response text. Output is
// untrusted data; callers validate it before acting on it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RetryingGenerator retries transient provider failures with exponential
// backoff, capped. Non-retryable provider errors are surfaced immediately.
type RetryingGenerator struct {
	Inner      Generator
	MaxRetries uint64
	Log        *slog.Logger
}

func (r *RetryingGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		text, err := r.Inner.Generate(ctx, systemPrompt, userPrompt)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			if r.Log != nil {
				r.Log.Warn("generator call failed, retrying", "attempt", attempt, "error", err)
			}
			return err
		}
		out = text
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.MaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", err
	}
	return out, nil
}

// retryable treats rate limits, timeouts and 5xx-ish provider errors as
// transient. Anything else (bad request, auth) will not improve on retry.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"rate limit", "429", "timeout", "deadline", "connection", "overloaded", "500", "502", "503", "529"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ExtractFenced pulls the contents of the first markdown code fence out of a
// model response, tolerating a language tag. Returns the trimmed response
// unchanged when there is no fence.
func ExtractFenced(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// Drop the language tag line (```python, ```json, ...).
		if tag := strings.TrimSpace(rest[:nl]); tag == "" || !strings.ContainsAny(tag, " \t") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
