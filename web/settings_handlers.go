package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// handleListSettings 获取全部应用设置
func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svcs.Settings.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"settings": settings,
	})
}

// handleGetSetting 获取单个设置
func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := vars["key"]

	value, err := s.svcs.Settings.Get(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"key":   key,
		"value": value,
	})
}

// handleUpsertSetting 写入设置。bot_pool_mode 只接受三种合法取值
func (s *Server) handleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := vars["key"]

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.svcs.Settings.Upsert(key, req.Value); err != nil {
		if strings.Contains(err.Error(), "invalid bot_pool_mode") {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	log.Printf("[API] Setting %s updated", key)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"key":     key,
		"value":   req.Value,
	})
}
