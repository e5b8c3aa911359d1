package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a dashboard operator. It owns applications and is the principal
// behind every bearer-authenticated request.
type Account struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type AccountSummary struct {
	Account
	AppCount int64
}

// Claims are the identity fields carried by a bearer token.
type Claims struct {
	UserID int64
	Email  string
	Role   Role
}
