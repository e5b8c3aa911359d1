package domain

import "time"

type AppStatus string

const (
	AppActive    AppStatus = "active"
	AppSuspended AppStatus = "suspended"
)

func (s AppStatus) Valid() bool {
	return s == AppActive || s == AppSuspended
}

const (
	PublicKeyPrefix  = "pk"
	SecretKeyPrefix  = "sk"
	LicenseKeyPrefix = "lic"
)

// Application is a tenant's product. Its public/secret pair never changes
// after creation.
type Application struct {
	ID        int64
	UserID    int64
	Name      string
	PublicKey string
	SecretKey string
	HWIDLock  bool
	Status    AppStatus
	CreatedAt time.Time
}

type ApplicationPatch struct {
	Status   *AppStatus
	HWIDLock *bool
}

func (p ApplicationPatch) IsEmpty() bool {
	return p.Status == nil && p.HWIDLock == nil
}

type ApplicationOverview struct {
	Application
	OwnerUsername string
	OwnerEmail    string
	UserCount     int64
	LicenseCount  int64
}
