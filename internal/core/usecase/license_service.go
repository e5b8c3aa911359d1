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

const maxLicenseBatch = 1000

// CreateLicensesInput combines explicit licenses with Count generated ones.
// Generated keys share Subscription and expire DurationDays from now, or
// never when DurationDays is zero.
type CreateLicensesInput struct {
	Licenses     []domain.NewLicense
	Count        int
	Subscription string
	DurationDays int
}

type LicenseService struct {
	apps     ports.ApplicationRepository
	licenses ports.LicenseRepository
	keys     ports.KeyGenerator
	now      func() time.Time
}

func NewLicenseService(apps ports.ApplicationRepository, licenses ports.LicenseRepository, keys ports.KeyGenerator) *LicenseService {
	return &LicenseService{
		apps:     apps,
		licenses: licenses,
		keys:     keys,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *LicenseService) List(ctx context.Context, ownerID, appID int64) ([]domain.License, error) {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return nil, err
	}
	return s.licenses.List(ctx, appID)
}

func (s *LicenseService) Create(ctx context.Context, ownerID, appID int64, in CreateLicensesInput) ([]domain.NewLicense, error) {
	if in.Count < 0 || in.DurationDays < 0 {
		return nil, domain.Reject(domain.FailInvalid, "Count and duration must not be negative")
	}
	total := len(in.Licenses) + in.Count
	if total == 0 {
		return nil, domain.Reject(domain.FailInvalid, "No licenses to create")
	}
	if total > maxLicenseBatch {
		return nil, domain.Reject(domain.FailInvalid, fmt.Sprintf("At most %d licenses can be created at once", maxLicenseBatch))
	}
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return nil, err
	}

	batch := make([]domain.NewLicense, 0, total)
	for _, lic := range in.Licenses {
		lic.Key = strings.TrimSpace(lic.Key)
		if lic.Key == "" {
			key, err := s.keys.Generate(domain.LicenseKeyPrefix)
			if err != nil {
				return nil, fmt.Errorf("generate license key: %w", err)
			}
			lic.Key = key
		}
		if lic.Subscription == "" {
			lic.Subscription = domain.DefaultSubscription
		}
		batch = append(batch, lic)
	}

	subscription := in.Subscription
	if subscription == "" {
		subscription = domain.DefaultSubscription
	}
	var expiresAt *time.Time
	if in.DurationDays > 0 {
		t := s.now().AddDate(0, 0, in.DurationDays)
		expiresAt = &t
	}
	for i := 0; i < in.Count; i++ {
		key, err := s.keys.Generate(domain.LicenseKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("generate license key: %w", err)
		}
		batch = append(batch, domain.NewLicense{Key: key, Subscription: subscription, ExpiresAt: expiresAt})
	}

	if err := s.licenses.CreateBatch(ctx, appID, batch); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Reject(domain.FailConflict, "License key already exists")
		}
		return nil, err
	}
	return batch, nil
}

func (s *LicenseService) Delete(ctx context.Context, ownerID, appID, licenseID int64) error {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return err
	}
	deleted, err := s.licenses.Delete(ctx, appID, licenseID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.Reject(domain.FailNotFound, "License not found")
	}
	return nil
}
