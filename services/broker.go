package services

import (
	"encoding/json"

	"sabong-admin-service/database"
)

// 事件 Topic
const (
	TopicMatchUpdate = "match-update"
	TopicBetInsert   = "bet-insert"
)

// BrokerMessage 定义了在 Broker 中传输的消息结构
type BrokerMessage struct {
	Topic string
	Key   string // MatchID 或其他唯一标识
	Value []byte // JSON 编码的事件体
}

// EventBroker 定义了进程内事件总线的抽象接口
type EventBroker interface {
	// Publish 发送事件到指定的 Topic
	Publish(msg BrokerMessage) error
	// Subscribe 订阅指定的 Topic，返回一个消息通道
	Subscribe(topic string) (<-chan BrokerMessage, error)
	// Close 关闭 Broker
	Close() error
}

// BetEvent 投注插入事件(真人投注来自 AMQP，机器人投注来自本服务的下注客户端)
type BetEvent struct {
	BetID     string  `json:"bet_id"`
	MatchID   string  `json:"match_id"`
	Selection string  `json:"selection"`
	Amount    float64 `json:"amount"`
	IsBot     bool    `json:"is_bot"`
	Source    string  `json:"source"`
}

// MatchEvent 比赛行变更事件，携带最新的完整比赛行
type MatchEvent struct {
	Match database.Match `json:"match"`
}

// PublishBetEvent 编码并发送投注事件
func PublishBetEvent(broker EventBroker, ev BetEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return broker.Publish(BrokerMessage{Topic: TopicBetInsert, Key: ev.MatchID, Value: data})
}

// PublishMatchEvent 编码并发送比赛变更事件
func PublishMatchEvent(broker EventBroker, ev MatchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return broker.Publish(BrokerMessage{Topic: TopicMatchUpdate, Key: ev.Match.ID, Value: data})
}
