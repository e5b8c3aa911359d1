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

type accountModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;not null"`
	Username     string    `gorm:"column:username;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (accountModel) TableName() string {
	return "users"
}

type AccountRepository struct {
	db *gormsqlite.DB
}

func NewAccountRepository(db *gormsqlite.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	now := nowUTC()
	model := accountModel{
		Email:        account.Email,
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if model.Role == "" {
		model.Role = string(domain.RoleUser)
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrConflict
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return toAccount(model), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (domain.Account, error) {
	return r.findOne(ctx, "find account", "id = ?", id)
}

func (r *AccountRepository) FindByLogin(ctx context.Context, login string) (domain.Account, error) {
	return r.findOne(ctx, "find account by login", "username = ? OR email = ?", login, login)
}

func (r *AccountRepository) findOne(ctx context.Context, op, where string, args ...any) (domain.Account, error) {
	var model accountModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where(where, args...).Order("id ASC").First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return toAccount(model), nil
}

func (r *AccountRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&accountModel{}).Where("email = ? OR username = ?", email, username).Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return count > 0, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&accountModel{}).Where("id = ?", id).Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    nowUTC(),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&accountModel{}).Where("id = ?", id).Updates(map[string]any{
			"role":       string(role),
			"updated_at": nowUTC(),
		})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	return affected > 0, nil
}

// Delete never removes administrators.
func (r *AccountRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("id = ? AND role = ?", id, string(domain.RoleUser)).Delete(&accountModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	return affected > 0, nil
}

type accountSummaryRow struct {
	accountModel
	AppCount int64 `gorm:"column:app_count"`
}

func (r *AccountRepository) ListUsers(ctx context.Context) ([]domain.AccountSummary, error) {
	var rows []accountSummaryRow
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Table("users u").
			Select("u.*, COUNT(a.id) AS app_count").
			Joins("LEFT JOIN applications a ON a.user_id = u.id").
			Where("u.role = ?", string(domain.RoleUser)).
			Group("u.id").
			Order("u.created_at DESC, u.id DESC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]domain.AccountSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AccountSummary{Account: toAccount(row.accountModel), AppCount: row.AppCount})
	}
	return out, nil
}

func toAccount(model accountModel) domain.Account {
	return domain.Account{
		ID:           model.ID,
		Email:        model.Email,
		Username:     model.Username,
		PasswordHash: model.PasswordHash,
		Role:         domain.Role(model.Role),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
