package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/ports"
)

type SettingsService struct {
	apps     ports.ApplicationRepository
	settings ports.SettingsRepository
}

func NewSettingsService(apps ports.ApplicationRepository, settings ports.SettingsRepository) *SettingsService {
	return &SettingsService{apps: apps, settings: settings}
}

func (s *SettingsService) Get(ctx context.Context, ownerID, appID int64) (domain.AppSettings, error) {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return domain.AppSettings{}, err
	}
	settings, err := s.settings.GetOrCreate(ctx, appID)
	if err != nil {
		return domain.AppSettings{}, err
	}
	return settings.WithDefaults(), nil
}

// Update replaces all five messages; blank ones fall back to the defaults.
func (s *SettingsService) Update(ctx context.Context, ownerID, appID int64, settings domain.AppSettings) (domain.AppSettings, error) {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return domain.AppSettings{}, err
	}
	if _, err := s.settings.GetOrCreate(ctx, appID); err != nil {
		return domain.AppSettings{}, err
	}
	settings.ApplicationID = appID
	settings = settings.WithDefaults()
	if err := s.settings.Update(ctx, settings); err != nil {
		return domain.AppSettings{}, err
	}
	return settings, nil
}
