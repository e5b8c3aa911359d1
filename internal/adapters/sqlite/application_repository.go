package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"gorm.io/gorm"
)

type applicationModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Name      string    `gorm:"column:app_name;not null"`
	PublicKey string    `gorm:"column:public_key;not null"`
	SecretKey string    `gorm:"column:secret_key;not null"`
	HWIDLock  bool      `gorm:"column:hwid_lock;not null"`
	Status    string    `gorm:"column:status;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (applicationModel) TableName() string {
	return "applications"
}

type ApplicationRepository struct {
	db *gormsqlite.DB
}

func NewApplicationRepository(db *gormsqlite.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) FindActiveByKeys(ctx context.Context, publicKey, secretKey string) (domain.Application, error) {
	var model applicationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("public_key = ? AND secret_key = ? AND status = ?", publicKey, secretKey, string(domain.AppActive)).
			First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("find application by keys: %w", err)
	}
	return toApplication(model), nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app domain.Application) (domain.Application, error) {
	model := applicationModel{
		UserID:    app.UserID,
		Name:      app.Name,
		PublicKey: app.PublicKey,
		SecretKey: app.SecretKey,
		HWIDLock:  app.HWIDLock,
		Status:    string(app.Status),
		CreatedAt: app.CreatedAt.UTC(),
	}
	if model.Status == "" {
		model.Status = string(domain.AppActive)
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = nowUTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Application{}, domain.ErrConflict
		}
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return toApplication(model), nil
}

func (r *ApplicationRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Application, error) {
	var models []applicationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("user_id = ?", ownerID).Order("created_at DESC, id DESC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	out := make([]domain.Application, 0, len(models))
	for _, model := range models {
		out = append(out, toApplication(model))
	}
	return out, nil
}

func (r *ApplicationRepository) FindOwned(ctx context.Context, id, ownerID int64) (domain.Application, error) {
	var model applicationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ? AND user_id = ?", id, ownerID).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("find application: %w", err)
	}
	return toApplication(model), nil
}

func (r *ApplicationRepository) Update(ctx context.Context, id int64, patch domain.ApplicationPatch) error {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.HWIDLock != nil {
		updates["hwid_lock"] = *patch.HWIDLock
	}
	if len(updates) == 0 {
		return nil
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&applicationModel{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for licenses, settings and logs.
func (r *ApplicationRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&applicationModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("delete application: %w", err)
	}
	return affected > 0, nil
}

func (r *ApplicationRepository) SetStatus(ctx context.Context, id int64, status domain.AppStatus) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&applicationModel{}).Where("id = ?", id).Update("status", string(status))
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("set application status: %w", err)
	}
	return affected > 0, nil
}

type applicationOverviewRow struct {
	applicationModel
	OwnerUsername string `gorm:"column:owner_username"`
	OwnerEmail    string `gorm:"column:owner_email"`
	UserCount     int64  `gorm:"column:user_count"`
	LicenseCount  int64  `gorm:"column:license_count"`
}

func (r *ApplicationRepository) ListOverview(ctx context.Context) ([]domain.ApplicationOverview, error) {
	var rows []applicationOverviewRow
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Table("applications a").
			Select(`a.*, u.username AS owner_username, u.email AS owner_email,
				COUNT(l.id) AS license_count,
				COUNT(l.username) AS user_count`).
			Joins("JOIN users u ON u.id = a.user_id").
			Joins("LEFT JOIN licenses l ON l.application_id = a.id").
			Group("a.id").
			Order("a.created_at DESC, a.id DESC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list application overview: %w", err)
	}

	out := make([]domain.ApplicationOverview, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ApplicationOverview{
			Application:   toApplication(row.applicationModel),
			OwnerUsername: row.OwnerUsername,
			OwnerEmail:    row.OwnerEmail,
			UserCount:     row.UserCount,
			LicenseCount:  row.LicenseCount,
		})
	}
	return out, nil
}

func toApplication(model applicationModel) domain.Application {
	return domain.Application{
		ID:        model.ID,
		UserID:    model.UserID,
		Name:      model.Name,
		PublicKey: model.PublicKey,
		SecretKey: model.SecretKey,
		HWIDLock:  model.HWIDLock,
		Status:    domain.AppStatus(model.Status),
		CreatedAt: model.CreatedAt,
	}
}
