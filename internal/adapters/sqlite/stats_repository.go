package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

const (
	userStatsSQL = `SELECT
	COUNT(*),
	COUNT(CASE WHEN role = 'admin' THEN 1 END),
	COUNT(CASE WHEN role = 'user' THEN 1 END),
	COUNT(CASE WHEN created_at >= ? THEN 1 END)
FROM users`

	appStatsSQL = `SELECT
	COUNT(*),
	COUNT(CASE WHEN status = 'active' THEN 1 END),
	COUNT(CASE WHEN status = 'suspended' THEN 1 END),
	COUNT(CASE WHEN hwid_lock THEN 1 END)
FROM applications`

	licenseStatsSQL = `SELECT
	COUNT(*),
	COUNT(CASE WHEN username IS NOT NULL AND username <> '' THEN 1 END),
	COUNT(CASE WHEN username IS NULL OR username = '' THEN 1 END),
	COUNT(CASE WHEN expires_at IS NOT NULL AND expires_at < ? THEN 1 END)
FROM licenses`
)

type StatsRepository struct {
	db *gormsqlite.DB
}

func NewStatsRepository(db *gormsqlite.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	now = now.UTC()
	var s domain.Stats
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		u := &s.Users
		if err := tx.Raw(userStatsSQL, now.AddDate(0, 0, -30)).Row().
			Scan(&u.TotalUsers, &u.AdminUsers, &u.RegularUsers, &u.UsersLast30Days); err != nil {
			return fmt.Errorf("user stats: %w", err)
		}
		a := &s.Applications
		if err := tx.Raw(appStatsSQL).Row().
			Scan(&a.TotalApps, &a.ActiveApps, &a.SuspendedApps, &a.HWIDLockedApps); err != nil {
			return fmt.Errorf("application stats: %w", err)
		}
		l := &s.Licenses
		if err := tx.Raw(licenseStatsSQL, now).Row().
			Scan(&l.TotalLicenses, &l.UsedLicenses, &l.UnusedLicenses, &l.ExpiredLicenses); err != nil {
			return fmt.Errorf("license stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return s, nil
}
