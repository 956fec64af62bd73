package database

import (
	"time"
)

// 比赛状态
const (
	StatusOpen      = "open"
	StatusLastCall  = "last_call"
	StatusOngoing   = "ongoing"
	StatusClosed    = "closed"
	StatusFinished  = "finished"
	StatusCancelled = "cancelled"
)

// 投注方向
const (
	SelectionMeron = "meron"
	SelectionWala  = "wala"
	SelectionDraw  = "draw"
)

// 机器人投注来源
const (
	SourcePlayer      = "player"
	SourceInjection   = "injection"
	SourceAutoCounter = "auto_counter"
)

// Match 比赛
type Match struct {
	ID                   string    `db:"id" json:"id"`
	FightNumber          int       `db:"fight_number" json:"fight_number"`
	Status               string    `db:"status" json:"status"`
	MeronTotal           float64   `db:"meron_total" json:"meron_total"`
	WalaTotal            float64   `db:"wala_total" json:"wala_total"`
	DrawTotal            float64   `db:"draw_total" json:"draw_total"`
	MeronInjected        float64   `db:"meron_injected" json:"meron_injected"`
	WalaInjected         float64   `db:"wala_injected" json:"wala_injected"`
	DrawInjected         float64   `db:"draw_injected" json:"draw_injected"`
	MeronAutoCounter     float64   `db:"meron_auto_counter" json:"meron_auto_counter"`
	WalaAutoCounter      float64   `db:"wala_auto_counter" json:"wala_auto_counter"`
	DrawAutoCounter      float64   `db:"draw_auto_counter" json:"draw_auto_counter"`
	MeronInjectionTarget float64   `db:"meron_injection_target" json:"meron_injection_target"`
	WalaInjectionTarget  float64   `db:"wala_injection_target" json:"wala_injection_target"`
	IsMaintainMode       bool      `db:"is_maintain_mode" json:"is_maintain_mode"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Bet 投注记录
type Bet struct {
	ID        string    `db:"id" json:"id"`
	MatchID   string    `db:"match_id" json:"match_id"`
	Selection string    `db:"selection" json:"selection"`
	Amount    float64   `db:"amount" json:"amount"`
	IsBot     bool      `db:"is_bot" json:"is_bot"`
	Source    string    `db:"source" json:"source"`
	PlayerID  *string   `db:"player_id" json:"player_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AppSetting 应用设置 (key-value)
type AppSetting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InjectionLease 注水租约
type InjectionLease struct {
	MatchID   string    `db:"match_id" json:"match_id"`
	HolderID  string    `db:"holder_id" json:"holder_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// IsBettingOpen 判断比赛当前是否可接受投注(注水和对冲只在这两个状态下进行)
func IsBettingOpen(status string) bool {
	return status == StatusOpen || status == StatusLastCall
}

// ValidSelection 判断投注方向是否合法
func ValidSelection(selection string) bool {
	switch selection {
	case SelectionMeron, SelectionWala, SelectionDraw:
		return true
	}
	return false
}

// OppositeSelection 返回对冲方向。meron ↔ wala 互为对冲，draw 不对冲(返回空串)
func OppositeSelection(selection string) string {
	switch selection {
	case SelectionMeron:
		return SelectionWala
	case SelectionWala:
		return SelectionMeron
	}
	return ""
}

// HumanVolume 计算指定方向的真人投注量(总量 − 注水 − 自动对冲)
func (m *Match) HumanVolume(selection string) float64 {
	switch selection {
	case SelectionMeron:
		return m.MeronTotal - m.MeronInjected - m.MeronAutoCounter
	case SelectionWala:
		return m.WalaTotal - m.WalaInjected - m.WalaAutoCounter
	case SelectionDraw:
		return m.DrawTotal - m.DrawInjected - m.DrawAutoCounter
	}
	return 0
}

// MeronNeeded 计算 meron 侧距离注水目标还差多少
func (m *Match) MeronNeeded() float64 {
	if n := m.MeronInjectionTarget - m.MeronInjected; n > 0 {
		return n
	}
	return 0
}

// WalaNeeded 计算 wala 侧距离注水目标还差多少
func (m *Match) WalaNeeded() float64 {
	if n := m.WalaInjectionTarget - m.WalaInjected; n > 0 {
		return n
	}
	return 0
}
