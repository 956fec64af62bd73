package services

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"sabong-admin-service/database"
	"sabong-admin-service/logger"
)

// MatchSource 提供引擎每个 tick 的比赛快照。
// 每次 tick 都重新查询，不持有任何跨 tick 的比赛状态
type MatchSource interface {
	ListInjectable() ([]database.Match, error)
}

// LeaseKeeper 注水租约接口
type LeaseKeeper interface {
	Acquire(matchID string) bool
}

// OperatorNotifier 运营告警接口
type OperatorNotifier interface {
	NotifyInjectionError(matchID, message string)
}

// EngineConfig 注水引擎配置
type EngineConfig struct {
	TickInterval          time.Duration // tick 周期
	SlowInjectProbability float64       // open 状态下每 tick 注水概率
	MaxInjectedGap        float64       // last_call 阶段两侧注水量允许的相对差距
	FastChunkMin          float64       // last_call 阶段单笔注水下限
	FastChunkMax          float64       // last_call 阶段单笔注水上限
	SlowChunkMin          float64       // open 阶段单笔注水下限
	SlowChunkMax          float64       // open 阶段单笔注水上限
}

// DefaultEngineConfig 默认引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:          750 * time.Millisecond,
		SlowInjectProbability: 0.3,
		MaxInjectedGap:        0.005,
		FastChunkMin:          500,
		FastChunkMax:          5000,
		SlowChunkMin:          100,
		SlowChunkMax:          800,
	}
}

// InjectionEngine 注水引擎：周期性地把每场符合条件的比赛的机器人注水量
// 推向运营设置的目标，并在临近封盘时应用防追查(chase)约束，
// 使注入量在节奏上不易与真实流量区分
type InjectionEngine struct {
	source   MatchSource
	placer   BetPlacer
	leases   LeaseKeeper
	notifier OperatorNotifier
	cfg      EngineConfig
	rng      *rand.Rand

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	ticks    int64
}

// NewInjectionEngine 创建注水引擎
func NewInjectionEngine(source MatchSource, placer BetPlacer, leases LeaseKeeper, notifier OperatorNotifier, cfg EngineConfig) *InjectionEngine {
	return &InjectionEngine{
		source:   source,
		placer:   placer,
		leases:   leases,
		notifier: notifier,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start 启动引擎
func (e *InjectionEngine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		logger.Println("[InjectionEngine] Already running")
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.mu.Unlock()

	logger.Printf("[InjectionEngine] 🚀 Started with tick interval: %v", e.cfg.TickInterval)

	go func() {
		ticker := time.NewTicker(e.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.RunTick()
			case <-e.stopChan:
				logger.Println("[InjectionEngine] 🛑 Stopped")
				return
			}
		}
	}()
}

// Stop 停止引擎
func (e *InjectionEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	close(e.stopChan)
	logger.Println("[InjectionEngine] 🛑 Stopping...")
}

// IsRunning 检查引擎是否正在运行
func (e *InjectionEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// TickCount 返回已执行的 tick 数
func (e *InjectionEngine) TickCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// RunTick 执行一个注水 tick。
// 每个 tick 都从存储拉取最新快照，缺口始终基于权威累计值重新计算，
// 因此单笔失败不会污染引擎状态，下一个 tick 自然补齐
func (e *InjectionEngine) RunTick() {
	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()

	matches, err := e.source.ListInjectable()
	if err != nil {
		logger.Errorf("[InjectionEngine] Failed to list injectable matches: %v", err)
		return
	}

	for i := range matches {
		e.processMatch(&matches[i])
	}
}

// processMatch 处理单场比赛的本 tick 注水决策
func (e *InjectionEngine) processMatch(m *database.Match) {
	meronNeeded := m.MeronNeeded()
	walaNeeded := m.WalaNeeded()

	// 两侧都已达标，本场无事可做
	if meronNeeded <= 0 && walaNeeded <= 0 {
		return
	}

	// 没拿到租约说明另一个实例在负责这场比赛
	if e.leases != nil && !e.leases.Acquire(m.ID) {
		return
	}

	fast := m.Status == database.StatusLastCall

	// open 状态下按概率放水，模拟临近封盘前的松弛节奏
	if !fast && e.rng.Float64() >= e.cfg.SlowInjectProbability {
		return
	}

	blockMeron, blockWala := e.chaseBlocks(m, fast)

	if meronNeeded > 0 && !blockMeron {
		e.injectSide(m.ID, database.SelectionMeron, meronNeeded, fast)
	}
	if walaNeeded > 0 && !blockWala {
		e.injectSide(m.ID, database.SelectionWala, walaNeeded, fast)
	}
}

// chaseBlocks 防追查约束：last_call 阶段且两侧注水量均为正时，
// 若相对差距超过阈值，则本 tick 封锁领先一侧，只允许落后侧追平
func (e *InjectionEngine) chaseBlocks(m *database.Match, fast bool) (blockMeron, blockWala bool) {
	if !fast {
		return false, false
	}
	if m.MeronInjected <= 0 || m.WalaInjected <= 0 {
		return false, false
	}

	avg := (m.MeronInjected + m.WalaInjected) / 2
	gap := math.Abs(m.MeronInjected-m.WalaInjected) / avg
	if gap <= e.cfg.MaxInjectedGap {
		return false, false
	}

	if m.MeronInjected > m.WalaInjected {
		return true, false
	}
	return false, true
}

// injectSide 为一侧注入一笔随机金额，上限不超过剩余缺口
func (e *InjectionEngine) injectSide(matchID, selection string, needed float64, fast bool) {
	minChunk, maxChunk := e.cfg.SlowChunkMin, e.cfg.SlowChunkMax
	if fast {
		minChunk, maxChunk = e.cfg.FastChunkMin, e.cfg.FastChunkMax
	}

	amount := minChunk + e.rng.Float64()*(maxChunk-minChunk)
	if amount > needed {
		amount = needed
	}
	if amount <= 0 {
		return
	}

	if err := e.placer.PlaceBotBet(matchID, selection, amount, database.SourceInjection); err != nil {
		// 单场/单侧失败不影响本 tick 其余比赛，缺口下个 tick 重算
		logger.Errorf("[InjectionEngine] ❌ Injection failed for match %s (%s, %.2f): %v", matchID, selection, amount, err)
		if e.notifier != nil {
			e.notifier.NotifyInjectionError(matchID, err.Error())
		}
	}
}
