package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/ports"
)

const (
	adminLicenseLimit = 1000
	adminLogLimit     = 100
)

// AdminService backs the cross-tenant views. Callers must already have
// checked that the principal is an administrator.
type AdminService struct {
	accounts ports.AccountRepository
	apps     ports.ApplicationRepository
	licenses ports.LicenseRepository
	logs     ports.AuditLogRepository
	stats    ports.StatsRepository
	now      func() time.Time
}

func NewAdminService(
	accounts ports.AccountRepository,
	apps ports.ApplicationRepository,
	licenses ports.LicenseRepository,
	logs ports.AuditLogRepository,
	stats ports.StatsRepository,
) *AdminService {
	return &AdminService{
		accounts: accounts,
		apps:     apps,
		licenses: licenses,
		logs:     logs,
		stats:    stats,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.stats.Stats(ctx, s.now())
}

func (s *AdminService) Users(ctx context.Context) ([]domain.AccountSummary, error) {
	return s.accounts.ListUsers(ctx)
}

func (s *AdminService) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	if !role.Valid() {
		return domain.Reject(domain.FailInvalid, "Invalid role")
	}
	updated, err := s.accounts.UpdateRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !updated {
		return domain.Reject(domain.FailNotFound, "User not found")
	}
	return nil
}

func (s *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	target, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reject(domain.FailNotFound, "User not found")
		}
		return fmt.Errorf("find user: %w", err)
	}
	if target.IsAdmin() {
		return domain.Reject(domain.FailForbidden, "Cannot delete admin users")
	}
	if _, err := s.accounts.Delete(ctx, userID); err != nil {
		return err
	}
	return nil
}

func (s *AdminService) Applications(ctx context.Context) ([]domain.ApplicationOverview, error) {
	return s.apps.ListOverview(ctx)
}

func (s *AdminService) SetApplicationStatus(ctx context.Context, appID int64, status domain.AppStatus) error {
	if !status.Valid() {
		return domain.Reject(domain.FailInvalid, "Invalid status")
	}
	updated, err := s.apps.SetStatus(ctx, appID, status)
	if err != nil {
		return err
	}
	if !updated {
		return errAppNotFound
	}
	return nil
}

func (s *AdminService) Licenses(ctx context.Context) ([]domain.LicenseOverview, error) {
	return s.licenses.ListOverview(ctx, adminLicenseLimit)
}

func (s *AdminService) Logs(ctx context.Context) ([]domain.LogOverview, error) {
	return s.logs.ListRecent(ctx, adminLogLimit)
}
