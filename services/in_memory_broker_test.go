package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBroker_FanoutToAllSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ch1, err := broker.Subscribe(TopicBetInsert)
	require.NoError(t, err)
	ch2, err := broker.Subscribe(TopicBetInsert)
	require.NoError(t, err)

	msg := BrokerMessage{Topic: TopicBetInsert, Key: "m1", Value: []byte(`{"amount":100}`)}
	require.NoError(t, broker.Publish(msg))

	for _, ch := range []<-chan BrokerMessage{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, msg, got)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the published message")
		}
	}
}

func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	betCh, err := broker.Subscribe(TopicBetInsert)
	require.NoError(t, err)
	matchCh, err := broker.Subscribe(TopicMatchUpdate)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(BrokerMessage{Topic: TopicMatchUpdate, Key: "m1"}))

	select {
	case got := <-matchCh:
		assert.Equal(t, TopicMatchUpdate, got.Topic)
	case <-time.After(time.Second):
		t.Fatal("match subscriber did not receive the message")
	}

	select {
	case got := <-betCh:
		t.Fatalf("bet subscriber received a message from another topic: %+v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestInMemoryBroker_PublishAfterCloseIsNoop(t *testing.T) {
	broker := NewInMemoryBroker()

	ch, err := broker.Subscribe(TopicBetInsert)
	require.NoError(t, err)
	require.NoError(t, broker.Close())

	// 订阅通道已关闭
	_, ok := <-ch
	assert.False(t, ok)

	assert.NoError(t, broker.Publish(BrokerMessage{Topic: TopicBetInsert}))
}
