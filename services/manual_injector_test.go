package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sabong-admin-service/database"
)

func fastInjectorConfig() InjectorConfig {
	return InjectorConfig{
		StepInterval:       time.Millisecond,
		StepsPerSecond:     2,
		MaxDurationSeconds: 150,
	}
}

func TestManualInjector_OneShot(t *testing.T) {
	placer := &fakePlacer{}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	steps, err := injector.Inject("m1", database.SelectionMeron, 6000, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	calls := placer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 6000.0, calls[0].Amount)
	assert.Equal(t, database.SourceInjection, calls[0].Source)
}

func TestManualInjector_OneShotFailureIsSynchronous(t *testing.T) {
	placer := &fakePlacer{err: errors.New("betting closed")}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	steps, err := injector.Inject("m1", database.SelectionWala, 500, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, steps)
}

func TestManualInjector_DistributedSplitsEvenly(t *testing.T) {
	placer := &fakePlacer{}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	// 10 秒 × 每秒 2 笔 = 20 笔，每笔 300
	steps, err := injector.Inject("m1", database.SelectionMeron, 6000, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, steps)

	calls := waitForCalls(t, placer, 20, time.Second)
	require.Len(t, calls, 20)

	var total float64
	for _, c := range calls {
		assert.InDelta(t, 300.0, c.Amount, 0.0001)
		assert.Equal(t, database.SelectionMeron, c.Selection)
		assert.Equal(t, database.SourceInjection, c.Source)
		total += c.Amount
	}
	assert.InDelta(t, 6000.0, total, 0.001)
}

func TestManualInjector_DurationClampedToMax(t *testing.T) {
	placer := &fakePlacer{}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	steps, err := injector.Inject("m1", database.SelectionMeron, 1000, 999)
	require.NoError(t, err)
	assert.Equal(t, 300, steps, "999s is clamped to 150s, so 2 steps/s yields 300 steps")
}

func TestManualInjector_NegativeDurationBecomesOneShot(t *testing.T) {
	placer := &fakePlacer{}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	steps, err := injector.Inject("m1", database.SelectionWala, 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)
	require.Len(t, waitForCalls(t, placer, 1, time.Second), 1)
}

func TestManualInjector_RejectsInvalidInput(t *testing.T) {
	placer := &fakePlacer{}
	injector := NewManualInjector(placer, nil, fastInjectorConfig())

	_, err := injector.Inject("m1", "dragon", 1000, 0)
	assert.Error(t, err)

	_, err = injector.Inject("m1", database.SelectionMeron, 0, 0)
	assert.Error(t, err)

	_, err = injector.Inject("m1", database.SelectionMeron, -50, 0)
	assert.Error(t, err)

	assert.Empty(t, placer.Calls())
}

func TestManualInjector_NotifiesOnlyOnFirstFailure(t *testing.T) {
	placer := &fakePlacer{err: errors.New("betting closed")}
	notifier := &fakeNotifier{}
	injector := NewManualInjector(placer, notifier, fastInjectorConfig())

	steps, err := injector.Inject("m1", database.SelectionMeron, 1000, 3)
	require.NoError(t, err, "distributed injection is fire-and-forget")
	assert.Equal(t, 6, steps)

	waitForCalls(t, placer, 6, time.Second)
	assert.Len(t, placer.Calls(), 6, "failures must not abort the sequence")
	assert.Equal(t, 1, notifier.Count(), "only the first failure alerts the operator")
}
