package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/ports"
)

var errAppNotFound = domain.Reject(domain.FailNotFound, "Application not found")

type ApplicationService struct {
	apps     ports.ApplicationRepository
	settings ports.SettingsRepository
	keys     ports.KeyGenerator
	now      func() time.Time
}

func NewApplicationService(apps ports.ApplicationRepository, settings ports.SettingsRepository, keys ports.KeyGenerator) *ApplicationService {
	return &ApplicationService{
		apps:     apps,
		settings: settings,
		keys:     keys,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ApplicationService) List(ctx context.Context, ownerID int64) ([]domain.Application, error) {
	return s.apps.ListByOwner(ctx, ownerID)
}

func (s *ApplicationService) Create(ctx context.Context, ownerID int64, name string) (domain.Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Application{}, domain.Reject(domain.FailInvalid, "App name is required")
	}

	publicKey, err := s.keys.Generate(domain.PublicKeyPrefix)
	if err != nil {
		return domain.Application{}, fmt.Errorf("generate public key: %w", err)
	}
	secretKey, err := s.keys.Generate(domain.SecretKeyPrefix)
	if err != nil {
		return domain.Application{}, fmt.Errorf("generate secret key: %w", err)
	}

	app, err := s.apps.Create(ctx, domain.Application{
		UserID:    ownerID,
		Name:      name,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Status:    domain.AppActive,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Application{}, err
	}

	if _, err := s.settings.GetOrCreate(ctx, app.ID); err != nil {
		if _, delErr := s.apps.Delete(ctx, app.ID, ownerID); delErr != nil {
			return domain.Application{}, errors.Join(fmt.Errorf("create default settings: %w", err), fmt.Errorf("roll back application: %w", delErr))
		}
		return domain.Application{}, fmt.Errorf("create default settings: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) Update(ctx context.Context, ownerID, appID int64, patch domain.ApplicationPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Reject(domain.FailInvalid, "Invalid status")
	}
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	return s.apps.Update(ctx, appID, patch)
}

// Delete removes the application; licenses, settings and logs cascade with it.
func (s *ApplicationService) Delete(ctx context.Context, ownerID, appID int64) error {
	deleted, err := s.apps.Delete(ctx, appID, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return errAppNotFound
	}
	return nil
}

// ownedApplication is the ownership gate shared by every per-application
// dashboard operation.
func ownedApplication(ctx context.Context, apps ports.ApplicationRepository, ownerID, appID int64) (domain.Application, error) {
	app, err := apps.FindOwned(ctx, appID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Application{}, errAppNotFound
		}
		return domain.Application{}, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}
