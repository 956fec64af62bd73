package services

import (
	"fmt"
	"time"

	"sabong-admin-service/database"
	"sabong-admin-service/logger"
)

// InjectorConfig 手动注水配置
type InjectorConfig struct {
	StepInterval       time.Duration // 分散注水每笔间隔
	StepsPerSecond     int           // 每秒注水笔数
	MaxDurationSeconds int           // 持续时间上限(秒)
}

// DefaultInjectorConfig 默认手动注水配置(固定每秒 2 笔)
func DefaultInjectorConfig() InjectorConfig {
	return InjectorConfig{
		StepInterval:       500 * time.Millisecond,
		StepsPerSecond:     2,
		MaxDurationSeconds: 150,
	}
}

// ManualInjector 手动注水：运营可一次性注入全额，
// 或把金额分散到一段时间内按固定节奏注入
type ManualInjector struct {
	placer   BetPlacer
	notifier OperatorNotifier
	cfg      InjectorConfig
}

// NewManualInjector 创建手动注水器
func NewManualInjector(placer BetPlacer, notifier OperatorNotifier, cfg InjectorConfig) *ManualInjector {
	return &ManualInjector{
		placer:   placer,
		notifier: notifier,
		cfg:      cfg,
	}
}

// ClampDuration 把请求的持续时间限制在 [0, MaxDurationSeconds]
func (mi *ManualInjector) ClampDuration(durationSeconds int) int {
	if durationSeconds < 0 {
		return 0
	}
	if durationSeconds > mi.cfg.MaxDurationSeconds {
		return mi.cfg.MaxDurationSeconds
	}
	return durationSeconds
}

// Inject 执行手动注水。
// durationSeconds ≤ 0 时立即注入全额并同步返回结果；
// 大于 0 时把金额均分为 StepsPerSecond × durationSeconds 笔，
// 按固定节奏在后台注入(fire-and-forget)，返回计划的笔数
func (mi *ManualInjector) Inject(matchID, selection string, amount float64, durationSeconds int) (int, error) {
	if !database.ValidSelection(selection) {
		return 0, fmt.Errorf("invalid selection: %s", selection)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("inject amount must be positive, got %.2f", amount)
	}

	durationSeconds = mi.ClampDuration(durationSeconds)

	// 一次性注入
	if durationSeconds <= 0 {
		if err := mi.placer.PlaceBotBet(matchID, selection, amount, database.SourceInjection); err != nil {
			return 0, err
		}
		logger.Printf("[ManualInjector] ✅ One-shot injection: match %s, %s, %.2f", matchID, selection, amount)
		return 1, nil
	}

	steps := mi.cfg.StepsPerSecond * durationSeconds
	logger.Printf("[ManualInjector] 🚀 Distributed injection: match %s, %s, %.2f over %ds (%d steps of %.2f)",
		matchID, selection, amount, durationSeconds, steps, amount/float64(steps))

	go mi.runDistributed(matchID, selection, amount, steps)

	return steps, nil
}

// runDistributed 按固定节奏注入 steps 笔等额注水。
// 单笔失败记录日志但不中断序列；为避免告警刷屏，只在首次失败时通知运营
func (mi *ManualInjector) runDistributed(matchID, selection string, amount float64, steps int) {
	perStep := amount / float64(steps)
	ticker := time.NewTicker(mi.cfg.StepInterval)
	defer ticker.Stop()

	notified := false
	failures := 0

	for i := 0; i < steps; i++ {
		<-ticker.C

		if err := mi.placer.PlaceBotBet(matchID, selection, perStep, database.SourceInjection); err != nil {
			failures++
			logger.Errorf("[ManualInjector] ❌ Step %d/%d failed for match %s: %v", i+1, steps, matchID, err)
			if !notified && mi.notifier != nil {
				mi.notifier.NotifyInjectionError(matchID, err.Error())
				notified = true
			}
		}
	}

	logger.Printf("[ManualInjector] ✅ Distributed injection completed: match %s, %s, %d steps, %d failures",
		matchID, selection, steps, failures)
}
