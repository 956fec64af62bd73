package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"sabong-admin-service/config"
	"sabong-admin-service/logger"
)

// PlayerBetMessage 玩家平台发布的真人投注事件
type PlayerBetMessage struct {
	MatchID   string  `json:"match_id"`
	Selection string  `json:"selection"`
	Amount    float64 `json:"amount"`
	PlayerID  string  `json:"player_id"`
}

// AMQPConsumer 消费玩家平台的投注事件：入库、发布到内部总线、推送控制台
type AMQPConsumer struct {
	config      *config.Config
	store       *MatchStore
	broker      EventBroker
	broadcaster MessageBroadcaster
	conn        *amqp.Connection
	channel     *amqp.Channel
	done        chan bool
}

func NewAMQPConsumer(cfg *config.Config, store *MatchStore, broker EventBroker, broadcaster MessageBroadcaster) *AMQPConsumer {
	return &AMQPConsumer{
		config:      cfg,
		store:       store,
		broker:      broker,
		broadcaster: broadcaster,
		done:        make(chan bool),
	}
}

// Start 连接并开始消费，连接断开后自动重连(指数退避，上限 60 秒)
func (c *AMQPConsumer) Start() error {
	deliveries, err := c.connectAndConsume()
	if err != nil {
		return fmt.Errorf("initial AMQP connection failed: %w", err)
	}

	logger.Printf("[AMQP] ✅ Connected, consuming queue %s", c.config.AMQPQueue)

	go c.consumeLoop(deliveries)
	return nil
}

// Stop 停止消费
func (c *AMQPConsumer) Stop() {
	close(c.done)
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	logger.Println("[AMQP] 🛑 Stopped")
}

func (c *AMQPConsumer) connectAndConsume() (<-chan amqp.Delivery, error) {
	conn, err := amqp.Dial(c.config.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// 玩家平台以 fanout 方式发布投注事件
	if err := channel.ExchangeDeclare(c.config.AMQPExchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(c.config.AMQPQueue, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", c.config.AMQPExchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return deliveries, nil
}

// consumeLoop 消费消息并在连接断开后重连
func (c *AMQPConsumer) consumeLoop(deliveries <-chan amqp.Delivery) {
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				// 通道关闭，尝试重连
				select {
				case <-c.done:
					return
				default:
				}
				deliveries = c.reconnect()
				if deliveries == nil {
					return
				}
				continue
			}
			c.handleDelivery(d)
		case <-c.done:
			return
		}
	}
}

// reconnect 指数退避重连，成功后返回新的消息通道
func (c *AMQPConsumer) reconnect() <-chan amqp.Delivery {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second

	for {
		logger.Printf("[AMQP] ⚠️ Connection lost, reconnecting in %v...", delay)

		select {
		case <-time.After(delay):
		case <-c.done:
			return nil
		}

		deliveries, err := c.connectAndConsume()
		if err == nil {
			logger.Println("[AMQP] ✅ Reconnected")
			return deliveries
		}

		logger.Errorf("[AMQP] ❌ Reconnect failed: %v", err)
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// handleDelivery 处理一条玩家投注事件
func (c *AMQPConsumer) handleDelivery(d amqp.Delivery) {
	var msg PlayerBetMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Errorf("[AMQP] Failed to decode player bet message: %v", err)
		return
	}

	bet, match, err := c.store.RecordPlayerBet(msg.MatchID, msg.Selection, msg.Amount, msg.PlayerID)
	if err != nil {
		// 封盘后到达的投注属于业务拒绝，记日志即可
		if IsBetRejected(err) {
			logger.Printf("[AMQP] Player bet rejected for match %s: %v", msg.MatchID, err)
		} else {
			logger.Errorf("[AMQP] Failed to record player bet for match %s: %v", msg.MatchID, err)
		}
		return
	}

	ev := BetEvent{
		BetID:     bet.ID,
		MatchID:   bet.MatchID,
		Selection: bet.Selection,
		Amount:    bet.Amount,
		IsBot:     false,
		Source:    bet.Source,
	}
	if err := PublishBetEvent(c.broker, ev); err != nil {
		logger.Errorf("[AMQP] Failed to publish bet event: %v", err)
	}
	if err := PublishMatchEvent(c.broker, MatchEvent{Match: *match}); err != nil {
		logger.Errorf("[AMQP] Failed to publish match event: %v", err)
	}

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
}
