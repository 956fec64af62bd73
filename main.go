package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sabong-admin-service/config"
	"sabong-admin-service/database"
	"sabong-admin-service/services"
	"sabong-admin-service/web"
)

func main() {
	log.Println("Starting Sabong Admin Service...")

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	// 创建 Feishu 通知器
	larkNotifier := services.NewLarkNotifier(cfg.LarkWebhook)

	// 基础组件
	broker := services.NewInMemoryBroker()
	store := services.NewMatchStore(db)
	settings := services.NewSettingsService(db)
	reports := services.NewReportService(db, cfg.CommissionRate)

	// 创建WebSocket Hub
	wsHub := web.NewHub()
	go wsHub.Run()

	// 创建注水统计追踪器 (5分钟间隔)
	statsTracker := services.NewInjectionStatsTracker(larkNotifier, 5*time.Minute)
	go statsTracker.StartPeriodicReport()

	// 机器人下注客户端
	placer := services.NewBotBetClient(store, broker, wsHub)
	placer.SetStatsTracker(statsTracker)

	// 注水租约管理器
	leases := services.NewLeaseManager(db, time.Duration(cfg.LeaseTTLSeconds)*time.Second)

	// 注水引擎
	engineCfg := services.DefaultEngineConfig()
	engineCfg.TickInterval = time.Duration(cfg.InjectionTickMs) * time.Millisecond
	engineCfg.SlowInjectProbability = cfg.SlowInjectProbability
	engineCfg.MaxInjectedGap = cfg.MaxInjectedGap
	engine := services.NewInjectionEngine(store, placer, leases, larkNotifier, engineCfg)

	// 防御性对冲反应器
	reactorCfg := services.ReactorConfig{
		MinDelay: time.Duration(cfg.CounterMinDelayMs) * time.Millisecond,
		MaxDelay: time.Duration(cfg.CounterMaxDelayMs) * time.Millisecond,
		MinRatio: cfg.CounterMinRatio,
		MaxRatio: cfg.CounterMaxRatio,
	}
	reactor := services.NewCounterReactor(store, placer, larkNotifier, reactorCfg)
	if err := reactor.Start(broker); err != nil {
		log.Fatalf("Failed to start counter reactor: %v", err)
	}

	// 手动注水器
	injectorCfg := services.DefaultInjectorConfig()
	injectorCfg.MaxDurationSeconds = cfg.ManualMaxDurationSeconds
	injector := services.NewManualInjector(placer, larkNotifier, injectorCfg)

	// 自动维护模式
	autoMaintain := services.NewAutoMaintainService(store)
	if err := autoMaintain.Start(broker); err != nil {
		log.Fatalf("Failed to start auto-maintain service: %v", err)
	}

	// 启动AMQP消费者(玩家平台真人投注事件)
	amqpConsumer := services.NewAMQPConsumer(cfg, store, broker, wsHub)
	go func() {
		if err := amqpConsumer.Start(); err != nil {
			log.Printf("AMQP consumer error: %v", err)
			larkNotifier.NotifyError("AMQP Consumer", err.Error())
		}
	}()

	log.Println("AMQP consumer started")

	// 启动注水引擎
	engine.Start()

	// 启动Web服务器
	server := web.NewServer(cfg, db, wsHub, web.Services{
		Store:        store,
		Settings:     settings,
		Reports:      reports,
		Engine:       engine,
		Reactor:      reactor,
		Injector:     injector,
		AutoMaintain: autoMaintain,
		Leases:       leases,
		Broker:       broker,
		Stats:        statsTracker,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Web server error: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)

	// 定期清理过期租约
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			leases.CleanupExpired()
		}
	}()

	// 发送服务启动通知
	if err := larkNotifier.NotifyServiceStart(cfg.Environment, engineCfg.TickInterval); err != nil {
		log.Printf("Failed to send startup notification: %v", err)
	}

	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源
	engine.Stop()
	reactor.Stop()
	amqpConsumer.Stop()
	server.Stop()
	leases.ReleaseAll()

	log.Println("Service stopped")
}
