package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsModel struct {
	ApplicationID   int64  `gorm:"column:application_id;primaryKey;autoIncrement:false"`
	LoginSuccessMsg string `gorm:"column:login_success_msg;not null"`
	LoginErrorMsg   string `gorm:"column:login_error_msg;not null"`
	SubExpiredMsg   string `gorm:"column:sub_expired_msg;not null"`
	BannedMsg       string `gorm:"column:banned_msg;not null"`
	HWIDMismatchMsg string `gorm:"column:hwid_mismatch_msg;not null"`
}

func (settingsModel) TableName() string {
	return "app_settings"
}

type SettingsRepository struct {
	db *gormsqlite.DB
}

func NewSettingsRepository(db *gormsqlite.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate inserts the default row on first access. Concurrent first
// accesses settle on whichever insert lands first.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, appID int64) (domain.AppSettings, error) {
	var model settingsModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("application_id = ?", appID).First(&model).Error
	})
	if err == nil {
		return toSettings(model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AppSettings{}, fmt.Errorf("get settings: %w", err)
	}

	model = fromSettings(domain.DefaultSettings(appID))
	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
			return err
		}
		return tx.Where("application_id = ?", appID).First(&model).Error
	})
	if err != nil {
		return domain.AppSettings{}, fmt.Errorf("create settings: %w", err)
	}
	return toSettings(model), nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings domain.AppSettings) error {
	model := fromSettings(settings)
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&settingsModel{}).Where("application_id = ?", settings.ApplicationID).Updates(map[string]any{
			"login_success_msg": model.LoginSuccessMsg,
			"login_error_msg":   model.LoginErrorMsg,
			"sub_expired_msg":   model.SubExpiredMsg,
			"banned_msg":        model.BannedMsg,
			"hwid_mismatch_msg": model.HWIDMismatchMsg,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func fromSettings(s domain.AppSettings) settingsModel {
	return settingsModel{
		ApplicationID:   s.ApplicationID,
		LoginSuccessMsg: s.LoginSuccessMsg,
		LoginErrorMsg:   s.LoginErrorMsg,
		SubExpiredMsg:   s.SubExpiredMsg,
		BannedMsg:       s.BannedMsg,
		HWIDMismatchMsg: s.HWIDMismatchMsg,
	}
}

func toSettings(model settingsModel) domain.AppSettings {
	return domain.AppSettings{
		ApplicationID:   model.ApplicationID,
		LoginSuccessMsg: model.LoginSuccessMsg,
		LoginErrorMsg:   model.LoginErrorMsg,
		SubExpiredMsg:   model.SubExpiredMsg,
		BannedMsg:       model.BannedMsg,
		HWIDMismatchMsg: model.HWIDMismatchMsg,
	}
}
