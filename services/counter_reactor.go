package services

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"sabong-admin-service/database"
	"sabong-admin-service/logger"
)

// MatchReader 按 ID 查询单场比赛
type MatchReader interface {
	GetMatch(matchID string) (*database.Match, error)
}

// ReactorConfig 防御性对冲配置
type ReactorConfig struct {
	MinDelay time.Duration // 对冲延迟下限
	MaxDelay time.Duration // 对冲延迟上限(不含)
	MinRatio float64       // 对冲金额比例下限
	MaxRatio float64       // 对冲金额比例上限(不含)
}

// DefaultReactorConfig 默认对冲配置
func DefaultReactorConfig() ReactorConfig {
	return ReactorConfig{
		MinDelay: 1000 * time.Millisecond,
		MaxDelay: 2000 * time.Millisecond,
		MinRatio: 0.4,
		MaxRatio: 0.7,
	}
}

// CounterReactor 防御性对冲反应器：维护模式下的比赛每收到一笔真人投注，
// 就在随机延迟后向对侧补一笔随机比例的机器人注，让盘口自我对冲，
// 同时因为有延迟而不显得是即时机器反应。
// 每个事件独立调度，互不合并；挂起的对冲任务可随维护模式关闭而取消
type CounterReactor struct {
	store    MatchReader
	placer   BetPlacer
	notifier OperatorNotifier
	cfg      ReactorConfig
	rng      *rand.Rand

	mu       sync.Mutex
	pending  map[string]map[*time.Timer]struct{} // matchID -> 挂起的对冲定时器
	running  bool
	stopChan chan struct{}
}

// NewCounterReactor 创建对冲反应器
func NewCounterReactor(store MatchReader, placer BetPlacer, notifier OperatorNotifier, cfg ReactorConfig) *CounterReactor {
	return &CounterReactor{
		store:    store,
		placer:   placer,
		notifier: notifier,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		pending:  make(map[string]map[*time.Timer]struct{}),
	}
}

// Start 订阅投注事件并开始消费
func (r *CounterReactor) Start(broker EventBroker) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logger.Println("[CounterReactor] Already running")
		return nil
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.mu.Unlock()

	events, err := broker.Subscribe(TopicBetInsert)
	if err != nil {
		return err
	}

	logger.Printf("[CounterReactor] 🚀 Started (delay %v-%v, ratio %.2f-%.2f)",
		r.cfg.MinDelay, r.cfg.MaxDelay, r.cfg.MinRatio, r.cfg.MaxRatio)

	go func() {
		for {
			select {
			case msg, ok := <-events:
				if !ok {
					logger.Println("[CounterReactor] Event channel closed")
					return
				}
				var ev BetEvent
				if err := json.Unmarshal(msg.Value, &ev); err != nil {
					logger.Errorf("[CounterReactor] Failed to decode bet event: %v", err)
					continue
				}
				r.handleBetEvent(ev)
			case <-r.stopChan:
				logger.Println("[CounterReactor] 🛑 Stopped")
				return
			}
		}
	}()

	return nil
}

// Stop 停止反应器并取消所有挂起的对冲任务
func (r *CounterReactor) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)

	cancelled := 0
	for matchID, timers := range r.pending {
		for t := range timers {
			t.Stop()
			cancelled++
		}
		delete(r.pending, matchID)
	}
	r.mu.Unlock()

	if cancelled > 0 {
		logger.Printf("[CounterReactor] Cancelled %d pending counter bets on shutdown", cancelled)
	}
}

// CancelMatch 取消某场比赛所有挂起的对冲任务(维护模式被关闭时调用)，返回取消数量
func (r *CounterReactor) CancelMatch(matchID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	timers, ok := r.pending[matchID]
	if !ok {
		return 0
	}
	cancelled := 0
	for t := range timers {
		if t.Stop() {
			cancelled++
		}
	}
	delete(r.pending, matchID)

	if cancelled > 0 {
		logger.Printf("[CounterReactor] Cancelled %d pending counter bets for match %s", cancelled, matchID)
	}
	return cancelled
}

// PendingCount 当前挂起的对冲任务数(状态接口用)
func (r *CounterReactor) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, timers := range r.pending {
		count += len(timers)
	}
	return count
}

// handleBetEvent 处理一条投注插入事件
func (r *CounterReactor) handleBetEvent(ev BetEvent) {
	// 不对机器人自己的注做对冲
	if ev.IsBot {
		return
	}

	// draw 没有逻辑对侧，不对冲
	opposite := database.OppositeSelection(ev.Selection)
	if opposite == "" {
		return
	}

	m, err := r.store.GetMatch(ev.MatchID)
	if err != nil {
		logger.Errorf("[CounterReactor] Failed to fetch match %s: %v", ev.MatchID, err)
		return
	}
	if !m.IsMaintainMode || !database.IsBettingOpen(m.Status) {
		return
	}

	ratio := r.cfg.MinRatio + r.rng.Float64()*(r.cfg.MaxRatio-r.cfg.MinRatio)
	amount := ev.Amount * ratio
	if amount <= 0 {
		return
	}

	delay := r.cfg.MinDelay + time.Duration(r.rng.Float64()*float64(r.cfg.MaxDelay-r.cfg.MinDelay))

	r.schedule(ev.MatchID, opposite, amount, delay)
}

// schedule 注册一个可取消的延迟对冲任务
func (r *CounterReactor) schedule(matchID, selection string, amount float64, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.unregister(matchID, timer)
		r.fire(matchID, selection, amount)
	})

	if r.pending[matchID] == nil {
		r.pending[matchID] = make(map[*time.Timer]struct{})
	}
	r.pending[matchID][timer] = struct{}{}
}

// unregister 从挂起表移除已触发的定时器
func (r *CounterReactor) unregister(matchID string, timer *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timers, ok := r.pending[matchID]; ok {
		delete(timers, timer)
		if len(timers) == 0 {
			delete(r.pending, matchID)
		}
	}
}

// fire 延迟到期后执行对冲。触发前重新校验比赛状态，
// 维护模式在延迟期间被关闭或比赛封盘的，直接放弃
func (r *CounterReactor) fire(matchID, selection string, amount float64) {
	m, err := r.store.GetMatch(matchID)
	if err != nil {
		logger.Errorf("[CounterReactor] Failed to re-check match %s before counter bet: %v", matchID, err)
		return
	}
	if !m.IsMaintainMode || !database.IsBettingOpen(m.Status) {
		logger.Printf("[CounterReactor] Counter bet for match %s skipped (maintain=%v, status=%s)", matchID, m.IsMaintainMode, m.Status)
		return
	}

	if err := r.placer.PlaceBotBet(matchID, selection, amount, database.SourceAutoCounter); err != nil {
		logger.Errorf("[CounterReactor] ❌ Counter bet failed for match %s (%s, %.2f): %v", matchID, selection, amount, err)
		if r.notifier != nil {
			r.notifier.NotifyInjectionError(matchID, err.Error())
		}
	}
}
