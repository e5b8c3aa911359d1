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

const licenseInsertBatch = 100

type licenseModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ApplicationID int64      `gorm:"column:application_id;not null"`
	Key           string     `gorm:"column:license_key;not null"`
	Username      *string    `gorm:"column:username"`
	PasswordHash  *string    `gorm:"column:password_hash"`
	Subscription  string     `gorm:"column:subscription_type;not null"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	Banned        bool       `gorm:"column:is_banned;not null"`
	HWID          *string    `gorm:"column:hwid"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

func (licenseModel) TableName() string {
	return "licenses"
}

type LicenseRepository struct {
	db *gormsqlite.DB
}

func NewLicenseRepository(db *gormsqlite.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

func (r *LicenseRepository) FindByUsername(ctx context.Context, appID int64, username string) (domain.License, error) {
	return r.findOne(ctx, "find license by username", "application_id = ? AND username = ?", appID, username)
}

func (r *LicenseRepository) FindRedeemable(ctx context.Context, appID int64, key string) (domain.License, error) {
	return r.findOne(ctx, "find license by key", "application_id = ? AND license_key = ? AND is_banned = ?", appID, key, false)
}

func (r *LicenseRepository) FindByID(ctx context.Context, appID, id int64) (domain.License, error) {
	return r.findOne(ctx, "find license", "application_id = ? AND id = ?", appID, id)
}

func (r *LicenseRepository) findOne(ctx context.Context, op, where string, args ...any) (domain.License, error) {
	var model licenseModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where(where, args...).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.License{}, domain.ErrNotFound
		}
		return domain.License{}, fmt.Errorf("%s: %w", op, err)
	}
	return toLicense(model), nil
}

func (r *LicenseRepository) UsernameTaken(ctx context.Context, appID int64, username string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&licenseModel{}).
			Where("application_id = ? AND username = ? AND id <> ?", appID, username, excludeID).
			Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

func (r *LicenseRepository) Redeem(ctx context.Context, id int64, username, passwordHash, hwid string) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&licenseModel{}).
			Where("id = ? AND username IS NULL", id).
			Updates(map[string]any{
				"username":      username,
				"password_hash": passwordHash,
				"hwid":          nullable(hwid),
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrConflict
		}
		return false, fmt.Errorf("redeem license: %w", err)
	}
	return affected > 0, nil
}

func (r *LicenseRepository) BindHWID(ctx context.Context, id int64, hwid string) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&licenseModel{}).
			Where("id = ? AND hwid IS NULL", id).
			Update("hwid", hwid)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("bind hwid: %w", err)
	}
	return affected > 0, nil
}

// CreateBatch inserts all licenses or none.
func (r *LicenseRepository) CreateBatch(ctx context.Context, appID int64, licenses []domain.NewLicense) error {
	if len(licenses) == 0 {
		return nil
	}
	now := nowUTC()
	models := make([]licenseModel, 0, len(licenses))
	for _, lic := range licenses {
		models = append(models, licenseModel{
			ApplicationID: appID,
			Key:           lic.Key,
			Subscription:  lic.Subscription,
			ExpiresAt:     utcPtr(lic.ExpiresAt),
			CreatedAt:     now,
		})
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.CreateInBatches(&models, licenseInsertBatch).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create licenses: %w", err)
	}
	return nil
}

func (r *LicenseRepository) Create(ctx context.Context, license domain.License) (domain.License, error) {
	model := fromLicense(license)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = nowUTC()
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.License{}, domain.ErrConflict
		}
		return domain.License{}, fmt.Errorf("create license: %w", err)
	}
	return toLicense(model), nil
}

func (r *LicenseRepository) List(ctx context.Context, appID int64) ([]domain.License, error) {
	return r.list(ctx, "list licenses", "application_id = ?", appID)
}

func (r *LicenseRepository) ListBound(ctx context.Context, appID int64) ([]domain.License, error) {
	return r.list(ctx, "list end users", "application_id = ? AND username IS NOT NULL", appID)
}

func (r *LicenseRepository) list(ctx context.Context, op, where string, args ...any) ([]domain.License, error) {
	var models []licenseModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where(where, args...).Order("created_at DESC, id DESC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.License, 0, len(models))
	for _, model := range models {
		out = append(out, toLicense(model))
	}
	return out, nil
}

func (r *LicenseRepository) Update(ctx context.Context, appID, id int64, patch domain.LicensePatch) (bool, error) {
	updates := map[string]any{}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.Subscription != nil {
		updates["subscription_type"] = *patch.Subscription
	}
	if patch.SetExpiry {
		updates["expires_at"] = utcPtr(patch.ExpiresAt)
	}
	if patch.Banned != nil {
		updates["is_banned"] = *patch.Banned
	}
	if patch.ResetHWID {
		updates["hwid"] = nil
	}
	if len(updates) == 0 {
		return false, nil
	}

	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&licenseModel{}).Where("id = ? AND application_id = ?", id, appID).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrConflict
		}
		return false, fmt.Errorf("update license: %w", err)
	}
	return affected > 0, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, appID, id int64) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("id = ? AND application_id = ?", id, appID).Delete(&licenseModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("delete license: %w", err)
	}
	return affected > 0, nil
}

type licenseOverviewRow struct {
	licenseModel
	AppName       string `gorm:"column:app_name"`
	OwnerUsername string `gorm:"column:owner_username"`
}

func (r *LicenseRepository) ListOverview(ctx context.Context, limit int) ([]domain.LicenseOverview, error) {
	var rows []licenseOverviewRow
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Table("licenses l").
			Select("l.*, a.app_name AS app_name, u.username AS owner_username").
			Joins("JOIN applications a ON a.id = l.application_id").
			Joins("JOIN users u ON u.id = a.user_id").
			Order("l.created_at DESC, l.id DESC").
			Limit(limit).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list license overview: %w", err)
	}

	out := make([]domain.LicenseOverview, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.LicenseOverview{
			License:       toLicense(row.licenseModel),
			AppName:       row.AppName,
			OwnerUsername: row.OwnerUsername,
		})
	}
	return out, nil
}

func fromLicense(l domain.License) licenseModel {
	return licenseModel{
		ID:            l.ID,
		ApplicationID: l.ApplicationID,
		Key:           l.Key,
		Username:      nullable(l.Username),
		PasswordHash:  nullable(l.PasswordHash),
		Subscription:  l.Subscription,
		ExpiresAt:     utcPtr(l.ExpiresAt),
		Banned:        l.Banned,
		HWID:          nullable(l.HWID),
		CreatedAt:     l.CreatedAt.UTC(),
	}
}

func toLicense(model licenseModel) domain.License {
	return domain.License{
		ID:            model.ID,
		ApplicationID: model.ApplicationID,
		Key:           model.Key,
		Username:      deref(model.Username),
		PasswordHash:  deref(model.PasswordHash),
		Subscription:  model.Subscription,
		ExpiresAt:     model.ExpiresAt,
		Banned:        model.Banned,
		HWID:          deref(model.HWID),
		CreatedAt:     model.CreatedAt,
	}
}
