package usecase

import (
	"context"
	"math"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/ports"
)

const (
	defaultLogLimit = 10
	maxLogLimit     = 100

	// maxLogPage keeps (page-1)*limit from overflowing.
	maxLogPage = math.MaxInt / maxLogLimit
)

type AuditService struct {
	apps ports.ApplicationRepository
	repo ports.AuditLogRepository
}

func NewAuditService(apps ports.ApplicationRepository, repo ports.AuditLogRepository) *AuditService {
	return &AuditService{apps: apps, repo: repo}
}

func (s *AuditService) Page(ctx context.Context, ownerID int64, filter domain.LogFilter) (domain.LogPage, error) {
	if _, err := ownedApplication(ctx, s.apps, ownerID, filter.ApplicationID); err != nil {
		return domain.LogPage{}, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.LogPage{}, domain.Reject(domain.FailInvalid, "dateTo must not be before dateFrom")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Page > maxLogPage {
		filter.Page = maxLogPage
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLogLimit
	}
	if filter.Limit > maxLogLimit {
		filter.Limit = maxLogLimit
	}

	page, err := s.repo.Page(ctx, filter)
	if err != nil {
		return domain.LogPage{}, err
	}
	page.Page = filter.Page
	page.Limit = filter.Limit
	page.TotalPages = int((page.Total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return page, nil
}
