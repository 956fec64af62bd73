package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sabong-admin-service/logger"
)

// LarkNotifier 飞书机器人通知器
type LarkNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
}

// NewLarkNotifier 创建飞书通知器
func NewLarkNotifier(webhookURL string) *LarkNotifier {
	enabled := webhookURL != ""
	if enabled {
		logger.Printf("[LarkNotifier] Initialized with webhook")
	} else {
		logger.Printf("[LarkNotifier] Disabled (no webhook URL)")
	}

	return &LarkNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    enabled,
	}
}

// LarkMessage 飞书消息结构
type LarkMessage struct {
	MsgType string      `json:"msg_type"`
	Content interface{} `json:"content"`
}

// LarkTextContent 文本消息内容
type LarkTextContent struct {
	Text string `json:"text"`
}

// SendText 发送文本消息
func (n *LarkNotifier) SendText(text string) error {
	if !n.enabled {
		return nil
	}

	msg := LarkMessage{
		MsgType: "text",
		Content: LarkTextContent{Text: text},
	}

	return n.send(msg)
}

func (n *LarkNotifier) send(msg LarkMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal lark message: %w", err)
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to send lark message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lark webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// NotifyServiceStart 服务启动通知
func (n *LarkNotifier) NotifyServiceStart(environment string, tickInterval time.Duration) error {
	text := fmt.Sprintf("🟢 Sabong Admin Service started\n环境: %s\n注水 tick: %v", environment, tickInterval)
	return n.SendText(text)
}

// NotifyError 组件错误通知
func (n *LarkNotifier) NotifyError(component, message string) error {
	text := fmt.Sprintf("❌ [%s] %s", component, message)
	return n.SendText(text)
}

// NotifyInjectionError 注水失败告警 (实现 OperatorNotifier 接口)
func (n *LarkNotifier) NotifyInjectionError(matchID, message string) {
	text := fmt.Sprintf("⚠️ 注水失败\n比赛: %s\n原因: %s", matchID, message)
	if err := n.SendText(text); err != nil {
		logger.Errorf("[LarkNotifier] Failed to send injection error notification: %v", err)
	}
}

// NotifyInjectionStats 注水量周期报告
func (n *LarkNotifier) NotifyInjectionStats(counts map[string]int, volumes map[string]float64, period string) error {
	text := fmt.Sprintf("📊 机器人注水统计 (%s)\n", period)
	for source, count := range counts {
		text += fmt.Sprintf("  %s: %d 笔, %.2f\n", source, count, volumes[source])
	}
	return n.SendText(text)
}
