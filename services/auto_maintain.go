package services

import (
	"encoding/json"
	"sync"

	"sabong-admin-service/database"
	"sabong-admin-service/logger"
)

// MaintainModeSetter 开关比赛维护模式
type MaintainModeSetter interface {
	SetMaintainMode(matchID string, enabled bool) (*database.Match, error)
}

// AutoMaintainService 自动维护模式：开启后，每场新进入可投注状态的比赛
// 都会被自动打开维护模式。seen 集合保证同一场比赛在本进程生命周期内
// 只被自动开启一次，运营手动关掉后不会被再次打开
type AutoMaintainService struct {
	store MaintainModeSetter

	mu      sync.Mutex
	enabled bool
	seen    map[string]bool
}

// NewAutoMaintainService 创建自动维护服务
func NewAutoMaintainService(store MaintainModeSetter) *AutoMaintainService {
	return &AutoMaintainService{
		store: store,
		seen:  make(map[string]bool),
	}
}

// Start 订阅比赛变更事件
func (a *AutoMaintainService) Start(broker EventBroker) error {
	events, err := broker.Subscribe(TopicMatchUpdate)
	if err != nil {
		return err
	}

	go func() {
		for msg := range events {
			var ev MatchEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				logger.Errorf("[AutoMaintain] Failed to decode match event: %v", err)
				continue
			}
			a.handleMatchEvent(ev)
		}
	}()

	return nil
}

// SetEnabled 开关自动维护模式
func (a *AutoMaintainService) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = enabled
	if enabled {
		logger.Println("[AutoMaintain] ✅ Enabled")
	} else {
		logger.Println("[AutoMaintain] Disabled")
	}
}

// IsEnabled 查询自动维护模式状态
func (a *AutoMaintainService) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// handleMatchEvent 处理一条比赛变更事件
func (a *AutoMaintainService) handleMatchEvent(ev MatchEvent) {
	m := ev.Match

	a.mu.Lock()
	shouldEnable := a.enabled && database.IsBettingOpen(m.Status) && !m.IsMaintainMode && !a.seen[m.ID]
	if shouldEnable {
		a.seen[m.ID] = true
	}
	a.mu.Unlock()

	if !shouldEnable {
		return
	}

	if _, err := a.store.SetMaintainMode(m.ID, true); err != nil {
		logger.Errorf("[AutoMaintain] Failed to enable maintain mode for match %s: %v", m.ID, err)
		return
	}
	logger.Printf("[AutoMaintain] ✅ Maintain mode enabled for match %s", m.ID)
}
