package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
)

func TestGateZeroTimeoutRejectsImmediately(t *testing.T) {
	initTestDB(t)

	g := NewValidationGate(model.GateConfig{
		Enabled:      true,
		Timeout:      0,
		PollInterval: time.Second,
	}, clockwork.NewFakeClock(), testLogger())

	decisionID, err := g.Submit("run-1")
	require.NoError(t, err)

	d, err := g.WaitForDecision(context.Background(), decisionID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionRejected, d.Status)
	assert.Equal(t, "system:timeout", d.DecidedBy)
	require.NotNil(t, d.DecidedAt)
}

func TestGateReturnsHumanDecision(t *testing.T) {
	initTestDB(t)

	g := NewValidationGate(model.GateConfig{
		Enabled:      true,
		Timeout:      time.Minute,
		PollInterval: time.Millisecond,
	}, clockwork.NewRealClock(), testLogger())

	decisionID, err := g.Submit("run-1")
	require.NoError(t, err)

	d, err := store.GetDecision(decisionID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionPending, d.Status)

	require.NoError(t, store.ResolveDecision(decisionID, model.DecisionApproved, "alice@example.com"))

	d, err = g.WaitForDecision(context.Background(), decisionID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionApproved, d.Status)
	assert.Equal(t, "alice@example.com", d.DecidedBy)
}

func TestGatePollsUntilResolved(t *testing.T) {
	initTestDB(t)

	g := NewValidationGate(model.GateConfig{
		Enabled:      true,
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
	}, clockwork.NewRealClock(), testLogger())

	decisionID, err := g.Submit("run-1")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		store.ResolveDecision(decisionID, model.DecisionRejected, "qa@example.com")
	}()

	d, err := g.WaitForDecision(context.Background(), decisionID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionRejected, d.Status)
	assert.Equal(t, "qa@example.com", d.DecidedBy)
}

func TestGateDisabledAutoApproves(t *testing.T) {
	initTestDB(t)

	g := NewValidationGate(model.GateConfig{Enabled: false, Timeout: time.Minute, PollInterval: time.Second}, clockwork.NewFakeClock(), testLogger())

	decisionID, err := g.Submit("run-1")
	require.NoError(t, err)

	d, err := g.WaitForDecision(context.Background(), decisionID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionApproved, d.Status)
	assert.Equal(t, "system:auto", d.DecidedBy)
}

func TestGateWaitHonorsContextCancellation(t *testing.T) {
	initTestDB(t)

	g := NewValidationGate(model.GateConfig{
		Enabled:      true,
		Timeout:      time.Minute,
		PollInterval: time.Millisecond,
	}, clockwork.NewRealClock(), testLogger())

	decisionID, err := g.Submit("run-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.WaitForDecision(ctx, decisionID)
	assert.ErrorIs(t, err, context.Canceled)
}
