package ports

import (
	"context"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	FindByID(ctx context.Context, id int64) (domain.Account, error)
	// FindByLogin matches login against either the username or the email.
	FindByLogin(ctx context.Context, login string) (domain.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, role domain.Role) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListUsers(ctx context.Context) ([]domain.AccountSummary, error)
}
