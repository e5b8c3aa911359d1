package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"gorm.io/gorm"
)

type logModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ApplicationID int64     `gorm:"column:application_id;not null"`
	Username      string    `gorm:"column:username;not null"`
	Action        string    `gorm:"column:action;not null"`
	IPAddress     string    `gorm:"column:ip_address;not null"`
	UserAgent     string    `gorm:"column:user_agent;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (logModel) TableName() string {
	return "logs"
}

type AuditRepository struct {
	db *gormsqlite.DB
}

func NewAuditRepository(db *gormsqlite.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.LogEntry) error {
	model := logModel{
		ApplicationID: entry.ApplicationID,
		Username:      entry.Username,
		Action:        entry.Action,
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		CreatedAt:     entry.CreatedAt.UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = nowUTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// Page returns one page of matching entries, newest first, together with
// the total match count and every action seen for the application.
func (r *AuditRepository) Page(ctx context.Context, filter domain.LogFilter) (domain.LogPage, error) {
	var (
		page   domain.LogPage
		models []logModel
	)
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		q := tx.Model(&logModel{}).Where("application_id = ?", filter.ApplicationID)
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("(username LIKE ? OR action LIKE ?)", like, like)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			q = q.Where("created_at <= ?", filter.To.UTC())
		}
		q = q.Session(&gorm.Session{})

		if err := q.Count(&page.Total).Error; err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if err := q.Order("created_at DESC, id DESC").Offset(filter.Offset()).Limit(filter.Limit).Find(&models).Error; err != nil {
			return fmt.Errorf("select: %w", err)
		}
		return tx.Model(&logModel{}).
			Where("application_id = ?", filter.ApplicationID).
			Distinct().
			Order("action").
			Pluck("action", &page.Actions).Error
	})
	if err != nil {
		return domain.LogPage{}, fmt.Errorf("page log entries: %w", err)
	}

	page.Entries = make([]domain.LogEntry, 0, len(models))
	for _, model := range models {
		page.Entries = append(page.Entries, toLogEntry(model))
	}
	if page.Actions == nil {
		page.Actions = []string{}
	}
	return page, nil
}

type logOverviewRow struct {
	logModel
	AppName  string `gorm:"column:app_name"`
	AppOwner string `gorm:"column:app_owner"`
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.LogOverview, error) {
	var rows []logOverviewRow
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Table("logs lg").
			Select("lg.*, a.app_name AS app_name, u.username AS app_owner").
			Joins("JOIN applications a ON a.id = lg.application_id").
			Joins("JOIN users u ON u.id = a.user_id").
			Order("lg.created_at DESC, lg.id DESC").
			Limit(limit).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}

	out := make([]domain.LogOverview, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.LogOverview{
			LogEntry: toLogEntry(row.logModel),
			AppName:  row.AppName,
			AppOwner: row.AppOwner,
		})
	}
	return out, nil
}

func toLogEntry(model logModel) domain.LogEntry {
	return domain.LogEntry{
		ID:            model.ID,
		ApplicationID: model.ApplicationID,
		Username:      model.Username,
		Action:        model.Action,
		IPAddress:     model.IPAddress,
		UserAgent:     model.UserAgent,
		CreatedAt:     model.CreatedAt,
	}
}
