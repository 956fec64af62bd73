package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// handleDailyReport 最近 N 天的每日流水报表
func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 || days > 90 {
		days = 7
	}

	report, err := s.svcs.Reports.DailySummary(days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"days":   days,
		"report": report,
	})
}

// handleMatchReport 单场比赛的流水拆分报表
func (s *Server) handleMatchReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	match, err := s.svcs.Store.GetMatch(vars["match_id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	report, err := s.svcs.Reports.BuildMatchReport(match)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"report": report,
	})
}
