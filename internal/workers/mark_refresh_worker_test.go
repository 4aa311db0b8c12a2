package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/pkg/errors"
)

type mockRefresher struct {
	calls int
	err   error
}

func (m *mockRefresher) RefreshAll(ctx context.Context) error {
	m.calls++
	return m.err
}

func TestMarkRefreshWorker_Run(t *testing.T) {
	refresher := &mockRefresher{}
	worker := NewMarkRefreshWorker(refresher, 15*time.Minute, true)

	require.NoError(t, worker.Run(context.Background()))
	assert.Equal(t, 1, refresher.calls)

	health := worker.Health()
	assert.EqualValues(t, 1, health.RunCount)
	assert.Zero(t, health.ErrorCount)
	assert.NoError(t, health.LastError)
}

func TestMarkRefreshWorker_RunError(t *testing.T) {
	refresher := &mockRefresher{err: errors.ErrStoreUnavailable}
	worker := NewMarkRefreshWorker(refresher, 15*time.Minute, true)

	err := worker.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	health := worker.Health()
	assert.EqualValues(t, 1, health.ErrorCount)
	assert.Error(t, health.LastError)
}

func TestMarkRefreshWorker_Identity(t *testing.T) {
	worker := NewMarkRefreshWorker(&mockRefresher{}, 15*time.Minute, false)

	assert.Equal(t, "mark_refresh", worker.Name())
	assert.Equal(t, 15*time.Minute, worker.Interval())
	assert.False(t, worker.Enabled())
}
