package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/olekukonko/tablewriter"

	"sabong-admin-service/config"
	"sabong-admin-service/database"
	"sabong-admin-service/services"
)

// 命令行流水报表工具：打印最近 N 天的每日流水和佣金估算
func main() {
	days := flag.Int("days", 7, "统计最近多少天")
	matchID := flag.String("match", "", "只看单场比赛的拆分报表")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	reports := services.NewReportService(db, cfg.CommissionRate)

	if *matchID != "" {
		printMatchReport(db, reports, *matchID)
		return
	}

	printDailyReport(reports, *days)
}

func printDailyReport(reports *services.ReportService, days int) {
	rows, err := reports.DailySummary(days)
	if err != nil {
		log.Fatalf("Failed to build daily summary: %v", err)
	}

	if len(rows) == 0 {
		fmt.Printf("最近 %d 天没有投注记录\n", days)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Date", "Bets", "Human", "Injected", "Auto-Counter", "Total", "Commission")

	for _, r := range rows {
		table.Append(
			r.Date,
			fmt.Sprintf("%d", r.BetCount),
			fmt.Sprintf("%.2f", r.HumanVolume),
			fmt.Sprintf("%.2f", r.InjectedVolume),
			fmt.Sprintf("%.2f", r.AutoCounterVolume),
			fmt.Sprintf("%.2f", r.TotalVolume),
			fmt.Sprintf("%.2f", r.Commission),
		)
	}

	table.Render()
}

func printMatchReport(db *sql.DB, reports *services.ReportService, matchID string) {
	store := services.NewMatchStore(db)
	match, err := store.GetMatch(matchID)
	if err != nil {
		log.Fatalf("Failed to get match: %v", err)
	}

	report, err := reports.BuildMatchReport(match)
	if err != nil {
		log.Fatalf("Failed to build match report: %v", err)
	}

	fmt.Printf("Match %s (status=%s, bets=%d)\n", report.MatchID, report.Status, report.BetCount)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Selection", "Total", "Injected", "Auto-Counter", "Human")

	for _, b := range report.Breakdown {
		table.Append(
			b.Selection,
			fmt.Sprintf("%.2f", b.Total),
			fmt.Sprintf("%.2f", b.Injected),
			fmt.Sprintf("%.2f", b.AutoCounter),
			fmt.Sprintf("%.2f", b.Human),
		)
	}

	table.Render()
	fmt.Printf("Estimated commission: %.2f\n", report.Commission)
}
