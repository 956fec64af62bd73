package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"sabong-admin-service/services"
)

// handleSetTargets 设置比赛两侧的注水目标
func (s *Server) handleSetTargets(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		MeronTarget float64 `json:"meron_target"`
		WalaTarget  float64 `json:"wala_target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MeronTarget < 0 || req.WalaTarget < 0 {
		http.Error(w, "injection targets must not be negative", http.StatusBadRequest)
		return
	}

	match, err := s.svcs.Store.SetInjectionTargets(vars["match_id"], req.MeronTarget, req.WalaTarget)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("[API] Match %s injection targets: meron=%.2f wala=%.2f", match.ID, req.MeronTarget, req.WalaTarget)
	s.publishMatchUpdate(match)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleSetMaintain 开关单场比赛的维护模式。
// 关闭时同时取消该场所有挂起的对冲任务
func (s *Server) handleSetMaintain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	match, err := s.svcs.Store.SetMaintainMode(vars["match_id"], req.Enabled)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cancelled := 0
	if !req.Enabled && s.svcs.Reactor != nil {
		cancelled = s.svcs.Reactor.CancelMatch(match.ID)
	}

	log.Printf("[API] Match %s maintain mode -> %v (%d pending counter bets cancelled)", match.ID, req.Enabled, cancelled)
	s.publishMatchUpdate(match)

	writeJSON(w, map[string]interface{}{
		"success":   true,
		"match":     match,
		"cancelled": cancelled,
	})
}

// handleManualInject 手动注水(一次性或分散)
func (s *Server) handleManualInject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Selection       string  `json:"selection"`
		Amount          float64 `json:"amount"`
		DurationSeconds int     `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	steps, err := s.svcs.Injector.Inject(vars["match_id"], req.Selection, req.Amount, req.DurationSeconds)
	if err != nil {
		if services.IsBetRejected(err) {
			http.Error(w, err.Error(), http.StatusConflict)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"steps":   steps,
	})
}

// handleGetAutoMaintain 查询自动维护模式状态
func (s *Server) handleGetAutoMaintain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"enabled": s.svcs.AutoMaintain.IsEnabled(),
	})
}

// handleSetAutoMaintain 开关自动维护模式
func (s *Server) handleSetAutoMaintain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.svcs.AutoMaintain.SetEnabled(req.Enabled)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"enabled": req.Enabled,
	})
}

// handleEngineStatus 注水引擎状态
func (s *Server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"running": s.svcs.Engine.IsRunning(),
		"ticks":   s.svcs.Engine.TickCount(),
	}

	if s.svcs.Leases != nil {
		status["holder_id"] = s.svcs.Leases.HolderID()
		leases, err := s.svcs.Leases.ListLeases()
		if err != nil {
			log.Printf("[API] Failed to list leases: %v", err)
		} else {
			status["leases"] = leases
		}
	}

	if s.svcs.Reactor != nil {
		status["pending_counter_bets"] = s.svcs.Reactor.PendingCount()
	}

	if s.svcs.Stats != nil {
		counts, volumes := s.svcs.Stats.Snapshot()
		status["bot_bet_counts"] = counts
		status["bot_bet_volumes"] = volumes
	}

	writeJSON(w, status)
}
