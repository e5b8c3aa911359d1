package domain

import "time"

const DefaultSubscription = "basic"

// License is a redeemable credential scoped to one application. It is unused
// while Username is empty; HWID is write-once outside of an explicit reset.
type License struct {
	ID            int64
	ApplicationID int64
	Key           string
	Username      string
	PasswordHash  string
	Subscription  string
	ExpiresAt     *time.Time
	Banned        bool
	HWID          string
	CreatedAt     time.Time
}

func (l License) Used() bool {
	return l.Username != ""
}

func (l License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

type NewLicense struct {
	Key          string
	Subscription string
	ExpiresAt    *time.Time
}

// LicensePatch lists the owner-editable fields of a license. Nil pointers are
// left untouched; SetExpiry with a nil ExpiresAt clears the expiration.
type LicensePatch struct {
	Username     *string
	PasswordHash *string
	Subscription *string
	SetExpiry    bool
	ExpiresAt    *time.Time
	Banned       *bool
	ResetHWID    bool
}

func (p LicensePatch) IsEmpty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.Subscription == nil &&
		!p.SetExpiry && p.Banned == nil && !p.ResetHWID
}

type LicenseOverview struct {
	License
	AppName       string
	OwnerUsername string
}

// Session is what the public API reports back after a successful login,
// registration or validation.
type Session struct {
	Username     string
	Subscription string
	ExpiresAt    *time.Time
	HWID         string
	Message      string
}
