package services

import (
	"context"

	"golang.org/x/time/rate"

	"sabong-admin-service/logger"
)

// MessageBroadcaster 接口用于向 WebSocket Hub 广播消息，避免循环依赖
type MessageBroadcaster interface {
	Broadcast(msg interface{})
}

// BetPlacer 机器人下注的统一入口，注水引擎、对冲反应器和手动注水都走这里
type BetPlacer interface {
	PlaceBotBet(matchID, selection string, amount float64, source string) error
}

// BotBetClient 机器人下注客户端：写库、发布事件、推送控制台。
// 全局限速器挡在存储前面，防止多个注水来源叠加时的突发写入
type BotBetClient struct {
	store       *MatchStore
	broker      EventBroker
	broadcaster MessageBroadcaster
	limiter     *rate.Limiter
	stats       *InjectionStatsTracker
}

func NewBotBetClient(store *MatchStore, broker EventBroker, broadcaster MessageBroadcaster) *BotBetClient {
	return &BotBetClient{
		store:       store,
		broker:      broker,
		broadcaster: broadcaster,
		// 每秒最多 50 笔机器人注，突发上限 100
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// SetStatsTracker 设置注水统计回调
func (c *BotBetClient) SetStatsTracker(stats *InjectionStatsTracker) {
	c.stats = stats
}

// PlaceBotBet 实现 BetPlacer 接口
func (c *BotBetClient) PlaceBotBet(matchID, selection string, amount float64, source string) error {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return err
	}

	bet, match, err := c.store.PlaceBotBet(matchID, selection, amount, source)
	if err != nil {
		return err
	}

	if c.stats != nil {
		c.stats.Record(source, amount)
	}

	// 发布事件供对冲反应器等内部订阅者消费
	ev := BetEvent{
		BetID:     bet.ID,
		MatchID:   bet.MatchID,
		Selection: bet.Selection,
		Amount:    bet.Amount,
		IsBot:     true,
		Source:    bet.Source,
	}
	if err := PublishBetEvent(c.broker, ev); err != nil {
		logger.Errorf("[BotBetClient] Failed to publish bet event: %v", err)
	}
	if err := PublishMatchEvent(c.broker, MatchEvent{Match: *match}); err != nil {
		logger.Errorf("[BotBetClient] Failed to publish match event: %v", err)
	}

	// 推送给已连接的控制台
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(map[string]interface{}{
			"type":     "bet",
			"match_id": bet.MatchID,
			"data":     bet,
		})
		c.broadcaster.Broadcast(map[string]interface{}{
			"type":     "match_update",
			"match_id": match.ID,
			"data":     match,
		})
	}

	return nil
}
