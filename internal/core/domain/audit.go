package domain

import "time"

const (
	ActionLogin    = "login"
	ActionRegister = "register"
)

type LogEntry struct {
	ID            int64
	ApplicationID int64
	Username      string
	Action        string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// LogFilter selects a page of one application's log. From and To are
// inclusive bounds on CreatedAt.
type LogFilter struct {
	ApplicationID int64
	Search        string
	Action        string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

func (f LogFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type LogPage struct {
	Entries    []LogEntry
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	Actions    []string
}

type LogOverview struct {
	LogEntry
	AppName  string
	AppOwner string
}
