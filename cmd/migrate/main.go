package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"sabong-admin-service/database"
)

func main() {
	// 加载 .env(不存在时静默跳过)
	_ = godotenv.Load()

	// 从环境变量获取数据库 URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// 连接数据库
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// 运行迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("✅ All migrations applied")
}
