package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"sabong-admin-service/database"
	"sabong-admin-service/services"
)

// handleListMatches 获取比赛列表
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	status := query.Get("status")

	matches, err := s.svcs.Store.ListMatches(limit, offset, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"matches": matches,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleCreateMatch 创建比赛
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FightNumber int `json:"fight_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	match, err := s.svcs.Store.CreateMatch(req.FightNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("[API] Match created: %s (fight #%d)", match.ID, match.FightNumber)
	s.publishMatchUpdate(match)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleGetMatch 获取单场比赛
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	match, err := s.svcs.Store.GetMatch(vars["match_id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"match": match,
	})
}

// handleUpdateStatus 更新比赛状态
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !validStatus(req.Status) {
		http.Error(w, "invalid status: "+req.Status, http.StatusBadRequest)
		return
	}

	match, err := s.svcs.Store.UpdateStatus(vars["match_id"], req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("[API] Match %s status -> %s", match.ID, match.Status)

	// 比赛不再可投注后，挂起的对冲任务一并取消
	if !database.IsBettingOpen(match.Status) && s.svcs.Reactor != nil {
		s.svcs.Reactor.CancelMatch(match.ID)
	}

	s.publishMatchUpdate(match)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleListBets 获取比赛的投注流水
func (s *Server) handleListBets(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	bets, err := s.svcs.Store.ListBets(vars["match_id"], limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"match_id": vars["match_id"],
		"bets":     bets,
	})
}

// publishMatchUpdate 把比赛变更推到内部总线和控制台
func (s *Server) publishMatchUpdate(match *database.Match) {
	if s.svcs.Broker != nil {
		if err := services.PublishMatchEvent(s.svcs.Broker, services.MatchEvent{Match: *match}); err != nil {
			log.Printf("[API] Failed to publish match event: %v", err)
		}
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(map[string]interface{}{
			"type":     "match_update",
			"match_id": match.ID,
			"data":     match,
		})
	}
}

func validStatus(status string) bool {
	switch status {
	case database.StatusOpen, database.StatusLastCall, database.StatusOngoing,
		database.StatusClosed, database.StatusFinished, database.StatusCancelled:
		return true
	}
	return false
}
