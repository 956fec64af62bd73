package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sabong-admin-service/database"
)

// fakeMatchSource 返回固定的比赛快照
type fakeMatchSource struct {
	mu      sync.Mutex
	matches []database.Match
	err     error
}

func (f *fakeMatchSource) ListInjectable() ([]database.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]database.Match, len(f.matches))
	copy(out, f.matches)
	return out, nil
}

// fakePlacer 记录所有下注调用
type fakePlacer struct {
	mu    sync.Mutex
	calls []placedBet
	err   error
}

type placedBet struct {
	MatchID   string
	Selection string
	Amount    float64
	Source    string
}

func (f *fakePlacer) PlaceBotBet(matchID, selection string, amount float64, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, placedBet{matchID, selection, amount, source})
	return f.err
}

func (f *fakePlacer) Calls() []placedBet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]placedBet, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeLeases 可配置哪些比赛拿不到租约
type fakeLeases struct {
	denied map[string]bool
}

func (f *fakeLeases) Acquire(matchID string) bool {
	return !f.denied[matchID]
}

// fakeNotifier 记录告警
type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) NotifyInjectionError(matchID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, matchID+": "+message)
}

func (f *fakeNotifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(source MatchSource, placer BetPlacer) *InjectionEngine {
	return NewInjectionEngine(source, placer, nil, nil, DefaultEngineConfig())
}

func lastCallMatch(id string, meronInjected, walaInjected, meronTarget, walaTarget float64) database.Match {
	return database.Match{
		ID:                   id,
		Status:               database.StatusLastCall,
		MeronInjected:        meronInjected,
		WalaInjected:         walaInjected,
		MeronInjectionTarget: meronTarget,
		WalaInjectionTarget:  walaTarget,
	}
}

func TestRunTick_TargetsMet_NoCalls(t *testing.T) {
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 10000, 10000, 10000, 10000),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	for i := 0; i < 50; i++ {
		engine.RunTick()
	}

	assert.Empty(t, placer.Calls(), "no bets should be placed once both targets are met")
}

func TestRunTick_ChaseConstraint_BlocksLeader(t *testing.T) {
	// meron=10000, wala=9000: 相对差距 1000/9500 ≈ 10.5% > 0.5%
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 10000, 9000, 50000, 50000),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	for i := 0; i < 30; i++ {
		engine.RunTick()
	}

	calls := placer.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Equal(t, database.SelectionWala, c.Selection, "only the lagging side may receive volume while the gap is open")
		assert.Equal(t, database.SourceInjection, c.Source)
	}
}

func TestRunTick_GapWithinThreshold_BothSidesInjectable(t *testing.T) {
	// 差距 10/10005 ≈ 0.1% ≤ 0.5%，两侧都可注水
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 10010, 10000, 50000, 50000),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	for i := 0; i < 50; i++ {
		engine.RunTick()
	}

	sides := map[string]bool{}
	for _, c := range placer.Calls() {
		sides[c.Selection] = true
	}
	assert.True(t, sides[database.SelectionMeron])
	assert.True(t, sides[database.SelectionWala])
}

func TestRunTick_ChaseConstraint_NotAppliedWhenOneSideZero(t *testing.T) {
	// wala 注水量为 0 时不触发防追查约束，meron 虽然领先也可继续
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 10000, 0, 50000, 0),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	engine.RunTick()

	calls := placer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, database.SelectionMeron, calls[0].Selection)
}

func TestRunTick_FastChunkBounds(t *testing.T) {
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 0, 0, 100000, 100000),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	for i := 0; i < 200; i++ {
		engine.RunTick()
		// 每个 tick 重置快照，保持缺口远大于单笔上限
		source.mu.Lock()
		source.matches[0].MeronInjected = 0
		source.matches[0].WalaInjected = 0
		source.mu.Unlock()
	}

	calls := placer.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.GreaterOrEqual(t, c.Amount, 500.0)
		assert.LessOrEqual(t, c.Amount, 5000.0)
	}
}

func TestRunTick_ChunkClampedToRemainingNeed(t *testing.T) {
	// 剩余缺口 120 小于 fast 模式单笔下限 500，注入金额必须等于缺口
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 9880, 0, 10000, 0),
	}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	engine.RunTick()

	calls := placer.Calls()
	require.Len(t, calls, 1)
	assert.InDelta(t, 120.0, calls[0].Amount, 0.0001)
}

func TestRunTick_SlowChunkBounds(t *testing.T) {
	match := database.Match{
		ID:                   "m1",
		Status:               database.StatusOpen,
		MeronInjectionTarget: 100000,
	}
	source := &fakeMatchSource{matches: []database.Match{match}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	for i := 0; i < 500; i++ {
		engine.RunTick()
	}

	calls := placer.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.GreaterOrEqual(t, c.Amount, 100.0)
		assert.LessOrEqual(t, c.Amount, 800.0)
	}
}

func TestRunTick_SlowMode_SkipsAboutSeventyPercent(t *testing.T) {
	match := database.Match{
		ID:                   "m1",
		Status:               database.StatusOpen,
		MeronInjectionTarget: 1e12,
	}
	source := &fakeMatchSource{matches: []database.Match{match}}
	placer := &fakePlacer{}
	engine := newTestEngine(source, placer)

	const trials = 5000
	for i := 0; i < trials; i++ {
		engine.RunTick()
	}

	injectRate := float64(len(placer.Calls())) / float64(trials)
	// 统计性质：注水概率应接近 30%
	assert.InDelta(t, 0.3, injectRate, 0.05)
}

func TestRunTick_LeaseDenied_SkipsMatch(t *testing.T) {
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 0, 0, 10000, 10000),
		lastCallMatch("m2", 0, 0, 10000, 10000),
	}}
	placer := &fakePlacer{}
	engine := NewInjectionEngine(source, placer, &fakeLeases{denied: map[string]bool{"m1": true}}, nil, DefaultEngineConfig())

	engine.RunTick()

	calls := placer.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Equal(t, "m2", c.MatchID, "matches without a lease must be skipped")
	}
}

func TestRunTick_PlacementFailure_DoesNotAbortOtherMatches(t *testing.T) {
	source := &fakeMatchSource{matches: []database.Match{
		lastCallMatch("m1", 0, 0, 10000, 0),
		lastCallMatch("m2", 0, 0, 10000, 0),
	}}
	placer := &fakePlacer{err: errors.New("betting closed")}
	notifier := &fakeNotifier{}
	engine := NewInjectionEngine(source, placer, nil, notifier, DefaultEngineConfig())

	engine.RunTick()

	// 两场比赛都被尝试过，失败只是被记录并告警
	assert.Len(t, placer.Calls(), 2)
	assert.Equal(t, 2, notifier.Count())
}

func TestNeededComputation_PureFunctionOfSnapshot(t *testing.T) {
	m := lastCallMatch("m1", 4200, 100, 10000, 50)

	// 相同输入重复计算，结果一致
	for i := 0; i < 10; i++ {
		assert.Equal(t, 5800.0, m.MeronNeeded())
		assert.Equal(t, 0.0, m.WalaNeeded(), "over-target side needs nothing")
	}
}

func TestEngine_StartStop(t *testing.T) {
	source := &fakeMatchSource{}
	placer := &fakePlacer{}
	cfg := DefaultEngineConfig()
	cfg.TickInterval = 10 * time.Millisecond
	engine := NewInjectionEngine(source, placer, nil, nil, cfg)

	engine.Start()
	assert.True(t, engine.IsRunning())

	time.Sleep(50 * time.Millisecond)
	engine.Stop()
	assert.False(t, engine.IsRunning())
	assert.Greater(t, engine.TickCount(), int64(0))
}
