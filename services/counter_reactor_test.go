package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sabong-admin-service/database"
)

// fakeMatchReader 返回可随时改写的比赛状态
type fakeMatchReader struct {
	mu    sync.Mutex
	match database.Match
}

func (f *fakeMatchReader) GetMatch(matchID string) (*database.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.match
	m.ID = matchID
	return &m, nil
}

func (f *fakeMatchReader) set(mutate func(m *database.Match)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(&f.match)
}

func fastReactorConfig() ReactorConfig {
	return ReactorConfig{
		MinDelay: 5 * time.Millisecond,
		MaxDelay: 15 * time.Millisecond,
		MinRatio: 0.4,
		MaxRatio: 0.7,
	}
}

func newTestReactor(t *testing.T, reader *fakeMatchReader, placer BetPlacer, cfg ReactorConfig) (*CounterReactor, *InMemoryBroker) {
	broker := NewInMemoryBroker()
	reactor := NewCounterReactor(reader, placer, nil, cfg)
	require.NoError(t, reactor.Start(broker))
	t.Cleanup(func() {
		reactor.Stop()
		broker.Close()
	})
	return reactor, broker
}

func waitForCalls(t *testing.T, placer *fakePlacer, want int, within time.Duration) []placedBet {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if calls := placer.Calls(); len(calls) >= want {
			return calls
		}
		time.Sleep(2 * time.Millisecond)
	}
	return placer.Calls()
}

func TestCounterReactor_HedgesHumanBet(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	reactor, broker := newTestReactor(t, reader, placer, fastReactorConfig())

	err := PublishBetEvent(broker, BetEvent{
		BetID:     "b1",
		MatchID:   "m1",
		Selection: database.SelectionMeron,
		Amount:    1000,
		IsBot:     false,
		Source:    "player",
	})
	require.NoError(t, err)

	calls := waitForCalls(t, placer, 1, time.Second)
	require.Len(t, calls, 1)
	assert.Equal(t, "m1", calls[0].MatchID)
	assert.Equal(t, database.SelectionWala, calls[0].Selection, "counter bet goes to the opposite side")
	assert.Equal(t, database.SourceAutoCounter, calls[0].Source)
	assert.GreaterOrEqual(t, calls[0].Amount, 400.0)
	assert.Less(t, calls[0].Amount, 700.0)
	assert.Equal(t, 0, reactor.PendingCount())
}

func TestCounterReactor_IgnoresBotBets(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	_, broker := newTestReactor(t, reader, placer, fastReactorConfig())

	err := PublishBetEvent(broker, BetEvent{
		MatchID:   "m1",
		Selection: database.SelectionMeron,
		Amount:    1000,
		IsBot:     true,
		Source:    database.SourceInjection,
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, placer.Calls(), "bot bets must never trigger a counter bet")
}

func TestCounterReactor_IgnoresDrawBets(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	_, broker := newTestReactor(t, reader, placer, fastReactorConfig())

	err := PublishBetEvent(broker, BetEvent{
		MatchID:   "m1",
		Selection: database.SelectionDraw,
		Amount:    1000,
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, placer.Calls(), "draw has no opposite side")
}

func TestCounterReactor_RequiresMaintainMode(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: false,
	}}
	placer := &fakePlacer{}
	_, broker := newTestReactor(t, reader, placer, fastReactorConfig())

	err := PublishBetEvent(broker, BetEvent{
		MatchID:   "m1",
		Selection: database.SelectionWala,
		Amount:    500,
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, placer.Calls())
}

func TestCounterReactor_RechecksEligibilityAtFireTime(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusLastCall,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	cfg := fastReactorConfig()
	cfg.MinDelay = 30 * time.Millisecond
	cfg.MaxDelay = 40 * time.Millisecond
	reactor, broker := newTestReactor(t, reader, placer, cfg)

	err := PublishBetEvent(broker, BetEvent{
		MatchID:   "m1",
		Selection: database.SelectionMeron,
		Amount:    1000,
	})
	require.NoError(t, err)

	// 等任务进入挂起表后再封盘
	deadline := time.Now().Add(25 * time.Millisecond)
	for reactor.PendingCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, reactor.PendingCount())
	reader.set(func(m *database.Match) { m.Status = database.StatusOngoing })

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, placer.Calls(), "counter bet must be dropped once betting closes")
}

func TestCounterReactor_CancelMatchSuppressesPending(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	cfg := fastReactorConfig()
	cfg.MinDelay = 50 * time.Millisecond
	cfg.MaxDelay = 60 * time.Millisecond
	reactor, broker := newTestReactor(t, reader, placer, cfg)

	for i := 0; i < 3; i++ {
		err := PublishBetEvent(broker, BetEvent{
			MatchID:   "m1",
			Selection: database.SelectionMeron,
			Amount:    1000,
		})
		require.NoError(t, err)
	}

	deadline := time.Now().Add(40 * time.Millisecond)
	for reactor.PendingCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 3, reactor.PendingCount())

	cancelled := reactor.CancelMatch("m1")
	assert.Equal(t, 3, cancelled)
	assert.Equal(t, 0, reactor.PendingCount())

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, placer.Calls(), "cancelled counter bets must not fire")
}

func TestCounterReactor_EachEventScheduledIndependently(t *testing.T) {
	reader := &fakeMatchReader{match: database.Match{
		Status:         database.StatusOpen,
		IsMaintainMode: true,
	}}
	placer := &fakePlacer{}
	_, broker := newTestReactor(t, reader, placer, fastReactorConfig())

	for i := 0; i < 5; i++ {
		err := PublishBetEvent(broker, BetEvent{
			MatchID:   "m1",
			Selection: database.SelectionWala,
			Amount:    200,
		})
		require.NoError(t, err)
	}

	calls := waitForCalls(t, placer, 5, time.Second)
	assert.Len(t, calls, 5, "events are never merged into a single counter bet")
	for _, c := range calls {
		assert.Equal(t, database.SelectionMeron, c.Selection)
	}
}
