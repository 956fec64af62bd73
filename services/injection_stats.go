package services

import (
	"fmt"
	"sync"
	"time"

	"sabong-admin-service/logger"
)

// InjectionStatsTracker 注水统计追踪器：按来源累计机器人注的笔数和金额，定期汇报
type InjectionStatsTracker struct {
	mu           sync.RWMutex
	counts       map[string]int
	volumes      map[string]float64
	totalCount   int
	lastReported time.Time
	notifier     *LarkNotifier
	interval     time.Duration
	firstReport  bool
}

// NewInjectionStatsTracker 创建注水统计追踪器
func NewInjectionStatsTracker(notifier *LarkNotifier, interval time.Duration) *InjectionStatsTracker {
	return &InjectionStatsTracker{
		counts:       make(map[string]int),
		volumes:      make(map[string]float64),
		lastReported: time.Now(),
		notifier:     notifier,
		interval:     interval,
		firstReport:  true,
	}
}

// Record 记录一笔机器人注
func (t *InjectionStatsTracker) Record(source string, amount float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[source]++
	t.volumes[source] += amount
	t.totalCount++
}

// Snapshot 返回当前统计的拷贝(状态接口用)
func (t *InjectionStatsTracker) Snapshot() (map[string]int, map[string]float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	volumes := make(map[string]float64, len(t.volumes))
	for k, v := range t.volumes {
		volumes[k] = v
	}
	return counts, volumes
}

// CheckAndReport 检查是否需要报告
func (t *InjectionStatsTracker) CheckAndReport() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(t.lastReported)

	// 第一次立即报告,之后按间隔报告
	if t.firstReport || elapsed >= t.interval {
		if t.totalCount > 0 {
			// 复制当前统计
			countsCopy := make(map[string]int)
			for k, v := range t.counts {
				countsCopy[k] = v
			}
			volumesCopy := make(map[string]float64)
			for k, v := range t.volumes {
				volumesCopy[k] = v
			}

			period := "启动至今"
			if !t.firstReport {
				period = fmt.Sprintf("过去 %.0f 分钟", elapsed.Minutes())
			}

			// 异步发送通知
			go func() {
				if err := t.notifier.NotifyInjectionStats(countsCopy, volumesCopy, period); err != nil {
					logger.Printf("[InjectionStats] Failed to send notification: %v", err)
				}
			}()

			// 重置统计(除了第一次)
			if !t.firstReport {
				t.counts = make(map[string]int)
				t.volumes = make(map[string]float64)
				t.totalCount = 0
			}

			t.lastReported = now
			t.firstReport = false
		}
	}
}

// StartPeriodicReport 启动定期报告
func (t *InjectionStatsTracker) StartPeriodicReport() {
	ticker := time.NewTicker(30 * time.Second) // 每30秒检查一次
	defer ticker.Stop()

	for range ticker.C {
		t.CheckAndReport()
	}
}
