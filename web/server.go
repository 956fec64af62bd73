package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"sabong-admin-service/config"
	"sabong-admin-service/services"
)

// Services 运营控制台依赖的服务集合
type Services struct {
	Store        *services.MatchStore
	Settings     *services.SettingsService
	Reports      *services.ReportService
	Engine       *services.InjectionEngine
	Reactor      *services.CounterReactor
	Injector     *services.ManualInjector
	AutoMaintain *services.AutoMaintainService
	Leases       *services.LeaseManager
	Broker       services.EventBroker
	Stats        *services.InjectionStatsTracker
}

type Server struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *Hub
	svcs       Services
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(cfg *config.Config, db *sql.DB, hub *Hub, svcs Services) *Server {
	return &Server{
		config: cfg,
		db:     db,
		wsHub:  hub,
		svcs:   svcs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// 比赛管理
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches/{match_id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{match_id}/status", s.handleUpdateStatus).Methods("PUT")
	api.HandleFunc("/matches/{match_id}/bets", s.handleListBets).Methods("GET")

	// 注水控制
	api.HandleFunc("/matches/{match_id}/targets", s.handleSetTargets).Methods("PUT")
	api.HandleFunc("/matches/{match_id}/maintain", s.handleSetMaintain).Methods("PUT")
	api.HandleFunc("/matches/{match_id}/inject", s.handleManualInject).Methods("POST")
	api.HandleFunc("/auto-maintain", s.handleGetAutoMaintain).Methods("GET")
	api.HandleFunc("/auto-maintain", s.handleSetAutoMaintain).Methods("PUT")
	api.HandleFunc("/engine/status", s.handleEngineStatus).Methods("GET")

	// 应用设置
	api.HandleFunc("/settings", s.handleListSettings).Methods("GET")
	api.HandleFunc("/settings/{key}", s.handleGetSetting).Methods("GET")
	api.HandleFunc("/settings/{key}", s.handleUpsertSetting).Methods("PUT")

	// 报表
	api.HandleFunc("/reports/daily", s.handleDailyReport).Methods("GET")
	api.HandleFunc("/reports/matches/{match_id}", s.handleMatchReport).Methods("GET")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      s.wsHub,
		conn:     conn,
		send:     make(chan []byte, 256),
		matchIDs: make(map[string]bool),
	}

	client.hub.register <- client

	// 发送欢迎消息
	welcomeMsg := &WSMessage{
		Type: "connected",
		Data: map[string]interface{}{
			"message": "Connected to Sabong Admin WebSocket",
			"time":    time.Now().Unix(),
		},
	}
	welcomeData, _ := json.Marshal(welcomeMsg)
	client.send <- welcomeData

	go client.writePump()
	go client.readPump()
}

// writeJSON 输出 JSON 响应
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
