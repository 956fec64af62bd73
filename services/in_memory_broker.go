package services

import (
	"sync"

	"sabong-admin-service/logger"
)

// InMemoryBroker 是 EventBroker 接口的进程内实现
// 与消息队列的 Consumer Group 不同，同一 Topic 的每个订阅者都会收到事件的完整拷贝
// (对冲反应器和 WebSocket Hub 都需要看到全部投注事件)
type InMemoryBroker struct {
	// 存储每个 Topic 对应的订阅者通道列表
	subscribers map[string][]chan BrokerMessage
	mu          sync.RWMutex
	closed      bool
}

// NewInMemoryBroker 创建 InMemoryBroker 实例
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan BrokerMessage),
	}
}

// Publish 实现 EventBroker 接口
func (b *InMemoryBroker) Publish(msg BrokerMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subscriberChans := b.subscribers[msg.Topic]
	if len(subscriberChans) == 0 {
		return nil
	}

	for _, ch := range subscriberChans {
		// 使用 select 避免阻塞，通道满了则丢弃该订阅者的这条事件
		select {
		case ch <- msg:
		default:
			logger.Printf("[InMemoryBroker] ⚠️ Topic %s subscriber channel full. Event dropped.", msg.Topic)
		}
	}

	return nil
}

// Subscribe 实现 EventBroker 接口
func (b *InMemoryBroker) Subscribe(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 创建一个新的通道作为订阅者的事件队列
	subscriberChan := make(chan BrokerMessage, 1000)

	b.subscribers[topic] = append(b.subscribers[topic], subscriberChan)

	logger.Printf("[InMemoryBroker] Subscriber added to topic %s. Total subscribers for topic: %d", topic, len(b.subscribers[topic]))

	return subscriberChan, nil
}

// Close 实现 EventBroker 接口
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	// 关闭所有订阅者通道
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan BrokerMessage)

	logger.Println("[InMemoryBroker] Closed all channels.")
	return nil
}
