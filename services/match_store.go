package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sabong-admin-service/database"
)

// BetRejectedError 业务规则拒绝(例如投注已关闭)，与传输错误同等对待：非致命，下一个 tick 自然重试
type BetRejectedError struct {
	Reason string
}

func (e *BetRejectedError) Error() string {
	return "bet rejected: " + e.Reason
}

// IsBetRejected 判断错误是否为业务规则拒绝
func IsBetRejected(err error) bool {
	var rejected *BetRejectedError
	return errors.As(err, &rejected)
}

// MatchStore 比赛与投注数据访问层
type MatchStore struct {
	db *sql.DB
}

func NewMatchStore(db *sql.DB) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `id, fight_number, status,
	meron_total, wala_total, draw_total,
	meron_injected, wala_injected, draw_injected,
	meron_auto_counter, wala_auto_counter, draw_auto_counter,
	meron_injection_target, wala_injection_target,
	is_maintain_mode, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*database.Match, error) {
	var m database.Match
	err := row.Scan(
		&m.ID, &m.FightNumber, &m.Status,
		&m.MeronTotal, &m.WalaTotal, &m.DrawTotal,
		&m.MeronInjected, &m.WalaInjected, &m.DrawInjected,
		&m.MeronAutoCounter, &m.WalaAutoCounter, &m.DrawAutoCounter,
		&m.MeronInjectionTarget, &m.WalaInjectionTarget,
		&m.IsMaintainMode, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMatch 查询单场比赛
func (s *MatchStore) GetMatch(matchID string) (*database.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1`, matchColumns)
	m, err := scanMatch(s.db.QueryRow(query, matchID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListMatches 按创建时间查询比赛列表，status 为空时返回所有状态
func (s *MatchStore) ListMatches(limit, offset int, status string) ([]database.Match, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		query := fmt.Sprintf(`SELECT %s FROM matches WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, matchColumns)
		rows, err = s.db.Query(query, status, limit, offset)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM matches ORDER BY created_at DESC LIMIT $1 OFFSET $2`, matchColumns)
		rows, err = s.db.Query(query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

// ListInjectable 查询当前符合注水条件的比赛：
// status ∈ {open, last_call} 且至少一侧设置了注水目标
func (s *MatchStore) ListInjectable() ([]database.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status IN ($1, $2)
		  AND (meron_injection_target > 0 OR wala_injection_target > 0)
		ORDER BY created_at ASC`, matchColumns)

	rows, err := s.db.Query(query, database.StatusOpen, database.StatusLastCall)
	if err != nil {
		return nil, fmt.Errorf("failed to list injectable matches: %w", err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]database.Match, error) {
	matches := []database.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// CreateMatch 创建新比赛(初始状态 open)
func (s *MatchStore) CreateMatch(fightNumber int) (*database.Match, error) {
	id := uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO matches (id, fight_number, status)
		VALUES ($1, $2, $3)
		RETURNING %s`, matchColumns)

	m, err := scanMatch(s.db.QueryRow(query, id, fightNumber, database.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return m, nil
}

// UpdateStatus 更新比赛状态
func (s *MatchStore) UpdateStatus(matchID, status string) (*database.Match, error) {
	query := fmt.Sprintf(`
		UPDATE matches SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING %s`, matchColumns)

	m, err := scanMatch(s.db.QueryRow(query, matchID, status, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return m, nil
}

// SetInjectionTargets 设置两侧的注水目标，0 表示不注水
func (s *MatchStore) SetInjectionTargets(matchID string, meronTarget, walaTarget float64) (*database.Match, error) {
	query := fmt.Sprintf(`
		UPDATE matches SET meron_injection_target = $2, wala_injection_target = $3, updated_at = $4
		WHERE id = $1
		RETURNING %s`, matchColumns)

	m, err := scanMatch(s.db.QueryRow(query, matchID, meronTarget, walaTarget, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set injection targets: %w", err)
	}
	return m, nil
}

// SetMaintainMode 开关维护模式
func (s *MatchStore) SetMaintainMode(matchID string, enabled bool) (*database.Match, error) {
	query := fmt.Sprintf(`
		UPDATE matches SET is_maintain_mode = $2, updated_at = $3
		WHERE id = $1
		RETURNING %s`, matchColumns)

	m, err := scanMatch(s.db.QueryRow(query, matchID, enabled, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set maintain mode: %w", err)
	}
	return m, nil
}

// PlaceBotBet 下机器人注：插入投注记录并在同一事务内维护比赛的累计列。
// source 为 injection 时累加 <selection>_injected，为 auto_counter 时累加 <selection>_auto_counter
func (s *MatchStore) PlaceBotBet(matchID, selection string, amount float64, source string) (*database.Bet, *database.Match, error) {
	if !database.ValidSelection(selection) {
		return nil, nil, fmt.Errorf("invalid selection: %s", selection)
	}
	if source != database.SourceInjection && source != database.SourceAutoCounter {
		return nil, nil, fmt.Errorf("invalid bot bet source: %s", source)
	}
	if amount <= 0 {
		return nil, nil, fmt.Errorf("bet amount must be positive, got %.2f", amount)
	}

	botColumn := selection + "_injected"
	if source == database.SourceAutoCounter {
		botColumn = selection + "_auto_counter"
	}

	return s.placeBet(matchID, selection, amount, true, source, nil, botColumn)
}

// RecordPlayerBet 记录来自玩家平台的真人投注(经由 AMQP 事件送达)
func (s *MatchStore) RecordPlayerBet(matchID, selection string, amount float64, playerID string) (*database.Bet, *database.Match, error) {
	if !database.ValidSelection(selection) {
		return nil, nil, fmt.Errorf("invalid selection: %s", selection)
	}
	if amount <= 0 {
		return nil, nil, fmt.Errorf("bet amount must be positive, got %.2f", amount)
	}

	var pid *string
	if playerID != "" {
		pid = &playerID
	}
	return s.placeBet(matchID, selection, amount, false, database.SourcePlayer, pid, "")
}

// placeBet 在单个事务内写入投注并更新比赛累计列。
// botColumn 为空时只累加 <selection>_total
func (s *MatchStore) placeBet(matchID, selection string, amount float64, isBot bool, source string, playerID *string, botColumn string) (*database.Bet, *database.Match, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 锁定比赛行并校验状态
	var status string
	err = tx.QueryRow(`SELECT status FROM matches WHERE id = $1 FOR UPDATE`, matchID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, nil, &BetRejectedError{Reason: fmt.Sprintf("match %s not found", matchID)}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock match: %w", err)
	}
	if !database.IsBettingOpen(status) {
		return nil, nil, &BetRejectedError{Reason: fmt.Sprintf("betting closed (status=%s)", status)}
	}

	// 插入投注记录
	bet := &database.Bet{
		ID:        uuid.New().String(),
		MatchID:   matchID,
		Selection: selection,
		Amount:    amount,
		IsBot:     isBot,
		Source:    source,
		PlayerID:  playerID,
		CreatedAt: time.Now(),
	}
	_, err = tx.Exec(`
		INSERT INTO bets (id, match_id, selection, amount, is_bot, source, player_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		bet.ID, bet.MatchID, bet.Selection, bet.Amount, bet.IsBot, bet.Source, bet.PlayerID, bet.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert bet: %w", err)
	}

	// 更新比赛累计列(selection 已经过白名单校验，列名拼接安全)
	totalColumn := selection + "_total"
	var updateQuery string
	if botColumn != "" {
		updateQuery = fmt.Sprintf(`
			UPDATE matches SET %s = %s + $2, %s = %s + $2, updated_at = $3
			WHERE id = $1
			RETURNING %s`, totalColumn, totalColumn, botColumn, botColumn, matchColumns)
	} else {
		updateQuery = fmt.Sprintf(`
			UPDATE matches SET %s = %s + $2, updated_at = $3
			WHERE id = $1
			RETURNING %s`, totalColumn, totalColumn, matchColumns)
	}

	match, err := scanMatch(tx.QueryRow(updateQuery, matchID, amount, time.Now()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update match totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit bet: %w", err)
	}

	return bet, match, nil
}

// ListBets 查询比赛的投注流水
func (s *MatchStore) ListBets(matchID string, limit int) ([]database.Bet, error) {
	rows, err := s.db.Query(`
		SELECT id, match_id, selection, amount, is_bot, source, player_id, created_at
		FROM bets WHERE match_id = $1
		ORDER BY created_at DESC LIMIT $2`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	bets := []database.Bet{}
	for rows.Next() {
		var b database.Bet
		if err := rows.Scan(&b.ID, &b.MatchID, &b.Selection, &b.Amount, &b.IsBot, &b.Source, &b.PlayerID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
