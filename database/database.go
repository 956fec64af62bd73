package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 比赛表
		`CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			fight_number INTEGER DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			meron_total NUMERIC(18,2) DEFAULT 0,
			wala_total NUMERIC(18,2) DEFAULT 0,
			draw_total NUMERIC(18,2) DEFAULT 0,
			meron_injected NUMERIC(18,2) DEFAULT 0,
			wala_injected NUMERIC(18,2) DEFAULT 0,
			draw_injected NUMERIC(18,2) DEFAULT 0,
			meron_auto_counter NUMERIC(18,2) DEFAULT 0,
			wala_auto_counter NUMERIC(18,2) DEFAULT 0,
			draw_auto_counter NUMERIC(18,2) DEFAULT 0,
			meron_injection_target NUMERIC(18,2) DEFAULT 0,
			wala_injection_target NUMERIC(18,2) DEFAULT 0,
			is_maintain_mode BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at)`,

		// 投注表
		`CREATE TABLE IF NOT EXISTS bets (
			id VARCHAR(64) PRIMARY KEY,
			match_id VARCHAR(64) NOT NULL,
			selection VARCHAR(10) NOT NULL,
			amount NUMERIC(18,2) NOT NULL,
			is_bot BOOLEAN NOT NULL DEFAULT FALSE,
			source VARCHAR(20) NOT NULL DEFAULT 'player',
			player_id VARCHAR(64),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_match_id ON bets(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_created_at ON bets(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_is_bot ON bets(is_bot)`,

		// 应用设置表 (key-value)
		`CREATE TABLE IF NOT EXISTS app_settings (
			key VARCHAR(100) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 注水租约表 (每场比赛最多一个引擎实例负责注水)
		`CREATE TABLE IF NOT EXISTS injection_leases (
			match_id VARCHAR(64) PRIMARY KEY,
			holder_id VARCHAR(64) NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_injection_leases_expires_at ON injection_leases(expires_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
