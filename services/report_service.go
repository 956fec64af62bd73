package services

import (
	"database/sql"
	"fmt"
	"time"

	"sabong-admin-service/database"
)

// ReportService 佣金/流水报表查询。
// 只做已落库投注的只读汇总，真正的派彩计算在外部派彩逻辑中
type ReportService struct {
	db             *sql.DB
	commissionRate float64
}

func NewReportService(db *sql.DB, commissionRate float64) *ReportService {
	return &ReportService{
		db:             db,
		commissionRate: commissionRate,
	}
}

// DailyReportRow 按天汇总的流水
type DailyReportRow struct {
	Date              string  `json:"date"`
	BetCount          int     `json:"bet_count"`
	HumanVolume       float64 `json:"human_volume"`
	InjectedVolume    float64 `json:"injected_volume"`
	AutoCounterVolume float64 `json:"auto_counter_volume"`
	TotalVolume       float64 `json:"total_volume"`
	Commission        float64 `json:"commission"`
}

// DailySummary 最近 days 天的每日流水汇总。佣金(plasada)只按真人流水估算
func (s *ReportService) DailySummary(days int) ([]DailyReportRow, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	rows, err := s.db.Query(`
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
		       COUNT(*),
		       COALESCE(SUM(amount) FILTER (WHERE NOT is_bot), 0),
		       COALESCE(SUM(amount) FILTER (WHERE source = $2), 0),
		       COALESCE(SUM(amount) FILTER (WHERE source = $3), 0),
		       COALESCE(SUM(amount), 0)
		FROM bets
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1 DESC`,
		since, database.SourceInjection, database.SourceAutoCounter)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	report := []DailyReportRow{}
	for rows.Next() {
		var r DailyReportRow
		if err := rows.Scan(&r.Date, &r.BetCount, &r.HumanVolume, &r.InjectedVolume, &r.AutoCounterVolume, &r.TotalVolume); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary row: %w", err)
		}
		r.Commission = r.HumanVolume * s.commissionRate
		report = append(report, r)
	}
	return report, rows.Err()
}

// SelectionBreakdown 单场比赛按方向的流水拆分
type SelectionBreakdown struct {
	Selection   string  `json:"selection"`
	Total       float64 `json:"total"`
	Injected    float64 `json:"injected"`
	AutoCounter float64 `json:"auto_counter"`
	Human       float64 `json:"human"`
}

// MatchReport 单场比赛报表
type MatchReport struct {
	MatchID    string               `json:"match_id"`
	Status     string               `json:"status"`
	Breakdown  []SelectionBreakdown `json:"breakdown"`
	BetCount   int                  `json:"bet_count"`
	Commission float64              `json:"commission"`
}

// BuildMatchReport 基于比赛行的权威累计列生成单场报表
func (s *ReportService) BuildMatchReport(m *database.Match) (*MatchReport, error) {
	var betCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM bets WHERE match_id = $1`, m.ID).Scan(&betCount); err != nil {
		return nil, fmt.Errorf("failed to count bets: %w", err)
	}

	breakdown := []SelectionBreakdown{
		{
			Selection:   database.SelectionMeron,
			Total:       m.MeronTotal,
			Injected:    m.MeronInjected,
			AutoCounter: m.MeronAutoCounter,
			Human:       m.HumanVolume(database.SelectionMeron),
		},
		{
			Selection:   database.SelectionWala,
			Total:       m.WalaTotal,
			Injected:    m.WalaInjected,
			AutoCounter: m.WalaAutoCounter,
			Human:       m.HumanVolume(database.SelectionWala),
		},
		{
			Selection:   database.SelectionDraw,
			Total:       m.DrawTotal,
			Injected:    m.DrawInjected,
			AutoCounter: m.DrawAutoCounter,
			Human:       m.HumanVolume(database.SelectionDraw),
		},
	}

	humanTotal := 0.0
	for _, b := range breakdown {
		humanTotal += b.Human
	}

	return &MatchReport{
		MatchID:    m.ID,
		Status:     m.Status,
		Breakdown:  breakdown,
		BetCount:   betCount,
		Commission: humanTotal * s.commissionRate,
	}, nil
}
