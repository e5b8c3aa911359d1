package domain

type UserStats struct {
	TotalUsers      int64 `json:"total_users"`
	AdminUsers      int64 `json:"admin_users"`
	RegularUsers    int64 `json:"regular_users"`
	UsersLast30Days int64 `json:"users_last_30_days"`
}

type AppStats struct {
	TotalApps      int64 `json:"total_apps"`
	ActiveApps     int64 `json:"active_apps"`
	SuspendedApps  int64 `json:"suspended_apps"`
	HWIDLockedApps int64 `json:"hwid_locked_apps"`
}

type LicenseStats struct {
	TotalLicenses   int64 `json:"total_licenses"`
	UsedLicenses    int64 `json:"used_licenses"`
	UnusedLicenses  int64 `json:"unused_licenses"`
	ExpiredLicenses int64 `json:"expired_licenses"`
}

type Stats struct {
	Users        UserStats    `json:"users"`
	Applications AppStats     `json:"applications"`
	Licenses     LicenseStats `json:"licenses"`
}
