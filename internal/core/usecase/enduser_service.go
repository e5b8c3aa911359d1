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

var (
	errEndUserNotFound = domain.Reject(domain.FailNotFound, "User not found")
	errEndUserExists   = domain.Reject(domain.FailInvalid, "Username already exists")
)

type CreateEndUserInput struct {
	Username     string
	Password     string
	Subscription string
	ExpiresAt    *time.Time
}

// EndUserPatch is the owner's edit of a license holder. A non-nil, empty
// Password leaves the stored hash untouched.
type EndUserPatch struct {
	Username     *string
	Password     *string
	Subscription *string
	SetExpiry    bool
	ExpiresAt    *time.Time
	Banned       *bool
	ResetHWID    bool
}

// EndUserService manages license holders, i.e. licenses with a bound username.
type EndUserService struct {
	apps     ports.ApplicationRepository
	licenses ports.LicenseRepository
	hasher   ports.PasswordHasher
	keys     ports.KeyGenerator
	now      func() time.Time
}

func NewEndUserService(apps ports.ApplicationRepository, licenses ports.LicenseRepository, hasher ports.PasswordHasher, keys ports.KeyGenerator) *EndUserService {
	return &EndUserService{
		apps:     apps,
		licenses: licenses,
		hasher:   hasher,
		keys:     keys,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *EndUserService) List(ctx context.Context, ownerID, appID int64) ([]domain.License, error) {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return nil, err
	}
	return s.licenses.ListBound(ctx, appID)
}

// Create issues a license that is already bound to the given credentials.
func (s *EndUserService) Create(ctx context.Context, ownerID, appID int64, in CreateEndUserInput) (domain.License, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return domain.License{}, domain.Reject(domain.FailInvalid, "Username and password are required")
	}
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return domain.License{}, err
	}

	taken, err := s.licenses.UsernameTaken(ctx, appID, in.Username, 0)
	if err != nil {
		return domain.License{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return domain.License{}, errEndUserExists
	}

	key, err := s.keys.Generate(domain.LicenseKeyPrefix)
	if err != nil {
		return domain.License{}, fmt.Errorf("generate license key: %w", err)
	}
	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return domain.License{}, err
	}
	subscription := in.Subscription
	if subscription == "" {
		subscription = domain.DefaultSubscription
	}

	lic, err := s.licenses.Create(ctx, domain.License{
		ApplicationID: appID,
		Key:           key,
		Username:      in.Username,
		PasswordHash:  hash,
		Subscription:  subscription,
		ExpiresAt:     in.ExpiresAt,
		CreatedAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.License{}, errEndUserExists
		}
		return domain.License{}, err
	}
	return lic, nil
}

func (s *EndUserService) Update(ctx context.Context, ownerID, appID, licenseID int64, in EndUserPatch) error {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return err
	}
	if _, err := s.licenses.FindByID(ctx, appID, licenseID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errEndUserNotFound
		}
		return fmt.Errorf("find license: %w", err)
	}

	patch := domain.LicensePatch{
		Subscription: in.Subscription,
		SetExpiry:    in.SetExpiry,
		ExpiresAt:    in.ExpiresAt,
		Banned:       in.Banned,
		ResetHWID:    in.ResetHWID,
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return domain.Reject(domain.FailInvalid, "Username must not be empty")
		}
		taken, err := s.licenses.UsernameTaken(ctx, appID, username, licenseID)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return errEndUserExists
		}
		patch.Username = &username
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := hashPassword(s.hasher, *in.Password)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}
	if patch.IsEmpty() {
		return domain.Reject(domain.FailInvalid, "No fields to update")
	}

	if _, err := s.licenses.Update(ctx, appID, licenseID, patch); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return errEndUserExists
		}
		return err
	}
	return nil
}

func (s *EndUserService) SetBanned(ctx context.Context, ownerID, appID, licenseID int64, banned bool) error {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return err
	}
	updated, err := s.licenses.Update(ctx, appID, licenseID, domain.LicensePatch{Banned: &banned})
	if err != nil {
		return err
	}
	if !updated {
		return errEndUserNotFound
	}
	return nil
}

func (s *EndUserService) Delete(ctx context.Context, ownerID, appID, licenseID int64) error {
	if _, err := ownedApplication(ctx, s.apps, ownerID, appID); err != nil {
		return err
	}
	deleted, err := s.licenses.Delete(ctx, appID, licenseID)
	if err != nil {
		return err
	}
	if !deleted {
		return errEndUserNotFound
	}
	return nil
}
