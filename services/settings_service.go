package services

import (
	"database/sql"
	"fmt"
	"time"

	"sabong-admin-service/database"
)

// 已知设置 key
const (
	SettingBotPoolMode = "bot_pool_mode"
	SettingStreamURL   = "stream_url"
	SettingAIPrompt    = "ai_prompt"
)

// bot_pool_mode 的三种取值。此服务只校验、持久化并透传，
// 具体语义由外部派彩逻辑消费
const (
	BotPoolModeGhost    = "ghost"
	BotPoolModeStandard = "standard"
	BotPoolModeFeeder   = "feeder"
)

// ValidBotPoolMode 校验 bot_pool_mode 取值
func ValidBotPoolMode(mode string) bool {
	switch mode {
	case BotPoolModeGhost, BotPoolModeStandard, BotPoolModeFeeder:
		return true
	}
	return false
}

// SettingsService 应用设置服务 (key-value 存储，带读取缓存)
type SettingsService struct {
	db    *sql.DB
	cache *QueryCache
}

func NewSettingsService(db *sql.DB) *SettingsService {
	return &SettingsService{
		db:    db,
		cache: NewQueryCache(30 * time.Second),
	}
}

// Get 读取设置值，key 不存在时返回空串
func (s *SettingsService) Get(key string) (string, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	s.cache.Set(key, value)
	return value, nil
}

// Upsert 写入设置值。bot_pool_mode 校验三种合法取值，其余 key 原样透传
func (s *SettingsService) Upsert(key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key must not be empty")
	}
	if key == SettingBotPoolMode && !ValidBotPoolMode(value) {
		return fmt.Errorf("invalid bot_pool_mode: %q (expected %s, %s or %s)",
			value, BotPoolModeGhost, BotPoolModeStandard, BotPoolModeFeeder)
	}

	_, err := s.db.Exec(`
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $3`,
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}

	s.cache.Delete(key)
	return nil
}

// All 返回全部设置
func (s *SettingsService) All() ([]database.AppSetting, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := []database.AppSetting{}
	for rows.Next() {
		var s database.AppSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
