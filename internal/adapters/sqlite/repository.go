package sqlite

import (
	"strings"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
)

// Repositories bundles every gorm-backed port over one database.
type Repositories struct {
	Accounts     *AccountRepository
	Applications *ApplicationRepository
	Licenses     *LicenseRepository
	Settings     *SettingsRepository
	Logs         *AuditRepository
	Stats        *StatsRepository
}

func NewRepositories(db *gormsqlite.DB) Repositories {
	return Repositories{
		Accounts:     NewAccountRepository(db),
		Applications: NewApplicationRepository(db),
		Licenses:     NewLicenseRepository(db),
		Settings:     NewSettingsRepository(db),
		Logs:         NewAuditRepository(db),
		Stats:        NewStatsRepository(db),
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
