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

const (
	msgInvalidAppKeys     = "Invalid application keys"
	msgHWIDRequired       = "HWID required"
	msgRegisterFields     = "Username, password, and license key are required"
	msgInvalidLicense     = "Invalid license key"
	msgLicenseInUse       = "License key already in use"
	msgLicenseExpired     = "License key has expired"
	msgUsernameTaken      = "Username already taken"
	msgHWIDRequiredForApp = "HWID required for this application"
	msgRegisterSuccess    = "Registration successful"
	msgUserNotFound       = "User not found"
	msgValidateSuccess    = "Validation successful"
)

// Origin describes where a public API call came from; it is recorded in the
// audit log.
type Origin struct {
	IPAddress string
	UserAgent string
}

type LoginInput struct {
	PublicKey string
	SecretKey string
	Username  string
	Password  string
	HWID      string
	Origin    Origin
}

type RegisterInput struct {
	PublicKey  string
	SecretKey  string
	Username   string
	Password   string
	LicenseKey string
	HWID       string
	Origin     Origin
}

type ValidateInput struct {
	PublicKey string
	SecretKey string
	Username  string
	HWID      string
}

// ClientService runs the public end-user flows: login against a redeemed
// license, redemption of an unused license, and session validation.
type ClientService struct {
	apps     ports.ApplicationRepository
	licenses ports.LicenseRepository
	settings ports.SettingsRepository
	logs     ports.AuditLogRepository
	hasher   ports.PasswordHasher
	now      func() time.Time
}

func NewClientService(
	apps ports.ApplicationRepository,
	licenses ports.LicenseRepository,
	settings ports.SettingsRepository,
	logs ports.AuditLogRepository,
	hasher ports.PasswordHasher,
) *ClientService {
	return &ClientService{
		apps:     apps,
		licenses: licenses,
		settings: settings,
		logs:     logs,
		hasher:   hasher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authorize resolves an active application from its key pair. Unknown and
// suspended applications are indistinguishable to the caller.
func (s *ClientService) Authorize(ctx context.Context, publicKey, secretKey string) (domain.Application, error) {
	publicKey = strings.TrimSpace(publicKey)
	secretKey = strings.TrimSpace(secretKey)
	if publicKey == "" || secretKey == "" {
		return domain.Application{}, domain.Reject(domain.FailUnauthorized, msgInvalidAppKeys)
	}

	app, err := s.apps.FindActiveByKeys(ctx, publicKey, secretKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Application{}, domain.Reject(domain.FailUnauthorized, msgInvalidAppKeys)
		}
		return domain.Application{}, fmt.Errorf("authorize application: %w", err)
	}
	return app, nil
}

func (s *ClientService) Login(ctx context.Context, in LoginInput) (domain.Session, error) {
	app, err := s.Authorize(ctx, in.PublicKey, in.SecretKey)
	if err != nil {
		return domain.Session{}, err
	}

	settings, err := s.settings.GetOrCreate(ctx, app.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load settings: %w", err)
	}
	msgs := settings.WithDefaults()

	if in.Username == "" {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.LoginErrorMsg)
	}
	lic, err := s.licenses.FindByUsername(ctx, app.ID, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.LoginErrorMsg)
		}
		return domain.Session{}, fmt.Errorf("find license: %w", err)
	}

	if lic.Banned {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.BannedMsg)
	}
	if lic.PasswordHash == "" || in.Password == "" {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.LoginErrorMsg)
	}
	if !s.hasher.Verify(in.Password, lic.PasswordHash) {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.LoginErrorMsg)
	}
	// Expiry is only revealed to callers who proved the password.
	if lic.Expired(s.now()) {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgs.SubExpiredMsg)
	}

	if app.HWIDLock {
		hwid, err := s.checkHWID(ctx, lic, in.HWID, msgs.HWIDMismatchMsg)
		if err != nil {
			return domain.Session{}, err
		}
		lic.HWID = hwid
	}

	if err := s.appendLog(ctx, app.ID, in.Username, domain.ActionLogin, in.Origin); err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		Username:     lic.Username,
		Subscription: lic.Subscription,
		ExpiresAt:    lic.ExpiresAt,
		HWID:         lic.HWID,
		Message:      msgs.LoginSuccessMsg,
	}, nil
}

// checkHWID enforces write-once hardware binding and returns the id bound to
// the license afterwards.
func (s *ClientService) checkHWID(ctx context.Context, lic domain.License, hwid, mismatchMsg string) (string, error) {
	if hwid == "" {
		return "", domain.Reject(domain.FailInvalid, msgHWIDRequired)
	}
	if lic.HWID != "" {
		if lic.HWID != hwid {
			return "", domain.Reject(domain.FailUnauthorized, mismatchMsg)
		}
		return hwid, nil
	}

	bound, err := s.licenses.BindHWID(ctx, lic.ID, hwid)
	if err != nil {
		return "", fmt.Errorf("bind hwid: %w", err)
	}
	if bound {
		return hwid, nil
	}

	// A concurrent login bound first; the stored id decides.
	current, err := s.licenses.FindByID(ctx, lic.ApplicationID, lic.ID)
	if err != nil {
		return "", fmt.Errorf("reload license: %w", err)
	}
	if current.HWID != hwid {
		return "", domain.Reject(domain.FailUnauthorized, mismatchMsg)
	}
	return hwid, nil
}

func (s *ClientService) Register(ctx context.Context, in RegisterInput) (domain.Session, error) {
	if in.Username == "" || in.Password == "" || in.LicenseKey == "" {
		return domain.Session{}, domain.Reject(domain.FailInvalid, msgRegisterFields)
	}

	app, err := s.Authorize(ctx, in.PublicKey, in.SecretKey)
	if err != nil {
		return domain.Session{}, err
	}

	lic, err := s.licenses.FindRedeemable(ctx, app.ID, in.LicenseKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgInvalidLicense)
		}
		return domain.Session{}, fmt.Errorf("find license: %w", err)
	}
	if lic.Used() {
		return domain.Session{}, domain.Reject(domain.FailConflict, msgLicenseInUse)
	}
	if lic.Expired(s.now()) {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, msgLicenseExpired)
	}

	taken, err := s.licenses.UsernameTaken(ctx, app.ID, in.Username, 0)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return domain.Session{}, domain.Reject(domain.FailConflict, msgUsernameTaken)
	}

	if app.HWIDLock && in.HWID == "" {
		return domain.Session{}, domain.Reject(domain.FailInvalid, msgHWIDRequiredForApp)
	}

	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return domain.Session{}, err
	}
	hwid := ""
	if app.HWIDLock {
		hwid = in.HWID
	}

	won, err := s.licenses.Redeem(ctx, lic.ID, in.Username, hash, hwid)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Session{}, domain.Reject(domain.FailConflict, msgUsernameTaken)
		}
		return domain.Session{}, fmt.Errorf("redeem license: %w", err)
	}
	if !won {
		return domain.Session{}, domain.Reject(domain.FailConflict, msgLicenseInUse)
	}

	if err := s.appendLog(ctx, app.ID, in.Username, domain.ActionRegister, in.Origin); err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		Username:     in.Username,
		Subscription: lic.Subscription,
		ExpiresAt:    lic.ExpiresAt,
		HWID:         hwid,
		Message:      msgRegisterSuccess,
	}, nil
}

// Validate checks that a bound username still holds a usable license without
// asking for the password again.
func (s *ClientService) Validate(ctx context.Context, in ValidateInput) (domain.Session, error) {
	app, err := s.Authorize(ctx, in.PublicKey, in.SecretKey)
	if err != nil {
		return domain.Session{}, err
	}

	if in.Username == "" {
		return domain.Session{}, domain.Reject(domain.FailNotFound, msgUserNotFound)
	}
	lic, err := s.licenses.FindByUsername(ctx, app.ID, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.Reject(domain.FailNotFound, msgUserNotFound)
		}
		return domain.Session{}, fmt.Errorf("find license: %w", err)
	}
	if lic.Banned {
		return domain.Session{}, domain.Reject(domain.FailNotFound, msgUserNotFound)
	}
	if lic.Expired(s.now()) {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, domain.DefaultSubExpiredMsg)
	}
	if app.HWIDLock && lic.HWID != "" && lic.HWID != in.HWID {
		return domain.Session{}, domain.Reject(domain.FailUnauthorized, domain.DefaultHWIDMismatchMsg)
	}

	return domain.Session{
		Username:     lic.Username,
		Subscription: lic.Subscription,
		ExpiresAt:    lic.ExpiresAt,
		HWID:         lic.HWID,
		Message:      msgValidateSuccess,
	}, nil
}

func (s *ClientService) appendLog(ctx context.Context, appID int64, username, action string, origin Origin) error {
	ip := origin.IPAddress
	if ip == "" {
		ip = "unknown"
	}
	err := s.logs.Append(ctx, domain.LogEntry{
		ApplicationID: appID,
		Username:      username,
		Action:        action,
		IPAddress:     ip,
		UserAgent:     origin.UserAgent,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return fmt.Errorf("append %s log: %w", action, err)
	}
	return nil
}
