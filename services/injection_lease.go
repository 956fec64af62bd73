package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sabong-admin-service/database"
	"sabong-admin-service/logger"
)

// LeaseManager 注水租约管理器。
// 多个服务实例同时运行时，只有持有某场比赛租约的实例才能为其注水，
// 避免两个引擎在同一个 tick 窗口内计算出相同缺口而双倍注水
type LeaseManager struct {
	db       *sql.DB
	holderID string
	ttl      time.Duration
}

func NewLeaseManager(db *sql.DB, ttl time.Duration) *LeaseManager {
	holderID := uuid.New().String()
	logger.Printf("[LeaseManager] Initialized with holder ID %s (TTL %v)", holderID, ttl)
	return &LeaseManager{
		db:       db,
		holderID: holderID,
		ttl:      ttl,
	}
}

// HolderID 返回本实例的租约持有者标识
func (l *LeaseManager) HolderID() string {
	return l.holderID
}

// Acquire 尝试获取(或续期)一场比赛的注水租约。
// 只有在租约空缺、已过期或本来就属于本实例时才能成功
func (l *LeaseManager) Acquire(matchID string) bool {
	expiresAt := time.Now().Add(l.ttl)

	result, err := l.db.Exec(`
		INSERT INTO injection_leases (match_id, holder_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id) DO UPDATE
		SET holder_id = EXCLUDED.holder_id, expires_at = EXCLUDED.expires_at
		WHERE injection_leases.holder_id = EXCLUDED.holder_id
		   OR injection_leases.expires_at < NOW()`,
		matchID, l.holderID, expiresAt)
	if err != nil {
		logger.Errorf("[LeaseManager] Failed to acquire lease for match %s: %v", matchID, err)
		return false
	}

	rows, err := result.RowsAffected()
	if err != nil {
		logger.Errorf("[LeaseManager] Failed to read lease result for match %s: %v", matchID, err)
		return false
	}

	return rows == 1
}

// Release 释放一场比赛的租约(仅当本实例持有时)
func (l *LeaseManager) Release(matchID string) error {
	_, err := l.db.Exec(`DELETE FROM injection_leases WHERE match_id = $1 AND holder_id = $2`, matchID, l.holderID)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// ReleaseAll 释放本实例持有的所有租约(服务关闭时调用)
func (l *LeaseManager) ReleaseAll() {
	result, err := l.db.Exec(`DELETE FROM injection_leases WHERE holder_id = $1`, l.holderID)
	if err != nil {
		logger.Errorf("[LeaseManager] Failed to release leases: %v", err)
		return
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		logger.Printf("[LeaseManager] 🛑 Released %d leases", rows)
	}
}

// ListLeases 列出当前未过期的租约(状态接口用)
func (l *LeaseManager) ListLeases() ([]database.InjectionLease, error) {
	rows, err := l.db.Query(`
		SELECT match_id, holder_id, expires_at
		FROM injection_leases
		WHERE expires_at >= NOW()
		ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}
	defer rows.Close()

	leases := []database.InjectionLease{}
	for rows.Next() {
		var lease database.InjectionLease
		if err := rows.Scan(&lease.MatchID, &lease.HolderID, &lease.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}
		leases = append(leases, lease)
	}
	return leases, rows.Err()
}

// CleanupExpired 清理已过期的租约行
func (l *LeaseManager) CleanupExpired() {
	result, err := l.db.Exec(`DELETE FROM injection_leases WHERE expires_at < NOW()`)
	if err != nil {
		logger.Errorf("[LeaseManager] Failed to cleanup expired leases: %v", err)
		return
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		logger.Printf("[LeaseManager] Cleaned up %d expired leases", rows)
	}
}
