package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

type ApplicationRepository interface {
	// FindActiveByKeys returns ErrNotFound for unknown pairs and for
	// applications that are not active alike.
	FindActiveByKeys(ctx context.Context, publicKey, secretKey string) (domain.Application, error)
	Create(ctx context.Context, app domain.Application) (domain.Application, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Application, error)
	FindOwned(ctx context.Context, id, ownerID int64) (domain.Application, error)
	Update(ctx context.Context, id int64, patch domain.ApplicationPatch) error
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status domain.AppStatus) (bool, error)
	ListOverview(ctx context.Context) ([]domain.ApplicationOverview, error)
}

type LicenseRepository interface {
	FindByUsername(ctx context.Context, appID int64, username string) (domain.License, error)
	// FindRedeemable looks up a non-banned license by key.
	FindRedeemable(ctx context.Context, appID int64, key string) (domain.License, error)
	FindByID(ctx context.Context, appID, id int64) (domain.License, error)
	UsernameTaken(ctx context.Context, appID int64, username string, excludeID int64) (bool, error)
	// Redeem binds credentials only while the license is unused and reports
	// whether this call won. A username clash yields ErrConflict.
	Redeem(ctx context.Context, id int64, username, passwordHash, hwid string) (bool, error)
	// BindHWID stores hwid only if none is bound yet.
	BindHWID(ctx context.Context, id int64, hwid string) (bool, error)
	CreateBatch(ctx context.Context, appID int64, licenses []domain.NewLicense) error
	Create(ctx context.Context, license domain.License) (domain.License, error)
	List(ctx context.Context, appID int64) ([]domain.License, error)
	ListBound(ctx context.Context, appID int64) ([]domain.License, error)
	Update(ctx context.Context, appID, id int64, patch domain.LicensePatch) (bool, error)
	Delete(ctx context.Context, appID, id int64) (bool, error)
	ListOverview(ctx context.Context, limit int) ([]domain.LicenseOverview, error)
}

type SettingsRepository interface {
	GetOrCreate(ctx context.Context, appID int64) (domain.AppSettings, error)
	Update(ctx context.Context, settings domain.AppSettings) error
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.LogEntry) error
	Page(ctx context.Context, filter domain.LogFilter) (domain.LogPage, error)
	ListRecent(ctx context.Context, limit int) ([]domain.LogOverview, error)
}

type StatsRepository interface {
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}
