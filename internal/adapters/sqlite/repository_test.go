package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/migrations"
)

func openTestDB(t *testing.T) (*gormsqlite.DB, Repositories) {
	t.Helper()
	ctx := context.Background()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "test.sqlite"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, NewRepositories(db)
}

type seeded struct {
	owner domain.Account
	app   domain.Application
}

func seed(t *testing.T, repos Repositories, name string) seeded {
	t.Helper()
	ctx := context.Background()
	owner, err := repos.Accounts.Create(ctx, domain.Account{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	app, err := repos.Applications.Create(ctx, domain.Application{
		UserID:    owner.ID,
		Name:      name + "-app",
		PublicKey: "pk_" + name,
		SecretKey: "sk_" + name,
		Status:    domain.AppActive,
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return seeded{owner: owner, app: app}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, _ := openTestDB(t)
	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestApplicationFindActiveByKeys(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "alice")

	got, err := repos.Applications.FindActiveByKeys(ctx, "pk_alice", "sk_alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != s.app.ID {
		t.Fatalf("expected app %d, got %d", s.app.ID, got.ID)
	}

	if _, err := repos.Applications.FindActiveByKeys(ctx, "pk_alice", "sk_wrong"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for wrong secret, got %v", err)
	}

	if ok, err := repos.Applications.SetStatus(ctx, s.app.ID, domain.AppSuspended); err != nil || !ok {
		t.Fatalf("suspend: %v %v", ok, err)
	}
	if _, err := repos.Applications.FindActiveByKeys(ctx, "pk_alice", "sk_alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for suspended app, got %v", err)
	}
}

func TestLicenseRedeemIsConditional(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "alice")

	if err := repos.Licenses.CreateBatch(ctx, s.app.ID, []domain.NewLicense{
		{Key: "K1", Subscription: domain.DefaultSubscription},
		{Key: "K2", Subscription: domain.DefaultSubscription},
	}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	k1, err := repos.Licenses.FindRedeemable(ctx, s.app.ID, "K1")
	if err != nil {
		t.Fatalf("find K1: %v", err)
	}
	k2, _ := repos.Licenses.FindRedeemable(ctx, s.app.ID, "K2")

	won, err := repos.Licenses.Redeem(ctx, k1.ID, "alice", "hash", "")
	if err != nil || !won {
		t.Fatalf("first redeem: won=%v err=%v", won, err)
	}
	won, err = repos.Licenses.Redeem(ctx, k1.ID, "mallory", "hash", "")
	if err != nil || won {
		t.Fatalf("second redeem should lose: won=%v err=%v", won, err)
	}
	if _, err := repos.Licenses.Redeem(ctx, k2.ID, "alice", "hash", ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}

	got, err := repos.Licenses.FindByUsername(ctx, s.app.ID, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if got.ID != k1.ID || got.HWID != "" || !got.Used() {
		t.Fatalf("unexpected license: %+v", got)
	}
}

func TestLicenseBindHWIDIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "bob")

	lic, err := repos.Licenses.Create(ctx, domain.License{ApplicationID: s.app.ID, Key: "K", Username: "bob", PasswordHash: "h", Subscription: "pro"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := repos.Licenses.BindHWID(ctx, lic.ID, "H1"); err != nil || !ok {
		t.Fatalf("first bind: %v %v", ok, err)
	}
	if ok, err := repos.Licenses.BindHWID(ctx, lic.ID, "H2"); err != nil || ok {
		t.Fatalf("second bind should not apply: %v %v", ok, err)
	}
	got, _ := repos.Licenses.FindByID(ctx, s.app.ID, lic.ID)
	if got.HWID != "H1" {
		t.Fatalf("expected H1, got %q", got.HWID)
	}

	if ok, err := repos.Licenses.Update(ctx, s.app.ID, lic.ID, domain.LicensePatch{ResetHWID: true}); err != nil || !ok {
		t.Fatalf("reset: %v %v", ok, err)
	}
	if ok, _ := repos.Licenses.BindHWID(ctx, lic.ID, "H2"); !ok {
		t.Fatal("expected bind after reset")
	}
}

func TestLicenseCreateBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "carol")

	err := repos.Licenses.CreateBatch(ctx, s.app.ID, []domain.NewLicense{
		{Key: "DUP", Subscription: "basic"},
		{Key: "DUP", Subscription: "basic"},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	all, err := repos.Licenses.List(ctx, s.app.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no licenses after failed batch, got %d", len(all))
	}

	// The same key is fine under another application.
	other := seed(t, repos, "dave")
	if err := repos.Licenses.CreateBatch(ctx, s.app.ID, []domain.NewLicense{{Key: "K", Subscription: "basic"}}); err != nil {
		t.Fatalf("create for carol: %v", err)
	}
	if err := repos.Licenses.CreateBatch(ctx, other.app.ID, []domain.NewLicense{{Key: "K", Subscription: "basic"}}); err != nil {
		t.Fatalf("create for dave: %v", err)
	}
}

func TestApplicationDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db, repos := openTestDB(t)
	s := seed(t, repos, "erin")

	_ = repos.Licenses.CreateBatch(ctx, s.app.ID, []domain.NewLicense{{Key: "K", Subscription: "basic"}})
	if _, err := repos.Settings.GetOrCreate(ctx, s.app.ID); err != nil {
		t.Fatalf("settings: %v", err)
	}
	if err := repos.Logs.Append(ctx, domain.LogEntry{ApplicationID: s.app.ID, Username: "u", Action: domain.ActionLogin}); err != nil {
		t.Fatalf("append log: %v", err)
	}

	if ok, err := repos.Applications.Delete(ctx, s.app.ID, s.owner.ID+100); err != nil || ok {
		t.Fatalf("delete by non-owner should not apply: %v %v", ok, err)
	}
	if ok, err := repos.Applications.Delete(ctx, s.app.ID, s.owner.ID); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}

	for _, table := range []string{"licenses", "app_settings", "logs"} {
		var count int64
		if err := db.R.Table(table).Where("application_id = ?", s.app.ID).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("expected %s rows removed, got %d", table, count)
		}
	}
}

func TestSettingsGetOrCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "frank")

	got, err := repos.Settings.GetOrCreate(ctx, s.app.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if got != domain.DefaultSettings(s.app.ID) {
		t.Fatalf("expected defaults, got %+v", got)
	}

	custom := got
	custom.BannedMsg = "You are banned"
	if err := repos.Settings.Update(ctx, custom); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = repos.Settings.GetOrCreate(ctx, s.app.ID)
	if got.BannedMsg != "You are banned" || got.LoginErrorMsg != domain.DefaultLoginErrorMsg {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestAuditPageFilters(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "gina")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []domain.LogEntry{
		{Username: "alice", Action: domain.ActionRegister, CreatedAt: base},
		{Username: "alice", Action: domain.ActionLogin, CreatedAt: base.Add(time.Hour)},
		{Username: "bob", Action: domain.ActionLogin, CreatedAt: base.AddDate(0, 0, 1)},
	}
	for _, e := range entries {
		e.ApplicationID = s.app.ID
		if err := repos.Logs.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	page, err := repos.Logs.Page(ctx, domain.LogFilter{ApplicationID: s.app.ID, Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 3 || len(page.Entries) != 2 {
		t.Fatalf("expected 3 total and 2 entries, got %d/%d", page.Total, len(page.Entries))
	}
	if page.Entries[0].Username != "bob" {
		t.Fatalf("expected newest first, got %s", page.Entries[0].Username)
	}
	if len(page.Actions) != 2 || page.Actions[0] != domain.ActionLogin || page.Actions[1] != domain.ActionRegister {
		t.Fatalf("unexpected actions: %v", page.Actions)
	}

	page, _ = repos.Logs.Page(ctx, domain.LogFilter{ApplicationID: s.app.ID, Search: "ali", Action: domain.ActionLogin, Page: 1, Limit: 10})
	if page.Total != 1 {
		t.Fatalf("expected 1 match for search+action, got %d", page.Total)
	}

	dayEnd := base.Add(14 * time.Hour)
	page, _ = repos.Logs.Page(ctx, domain.LogFilter{ApplicationID: s.app.ID, From: &base, To: &dayEnd, Page: 1, Limit: 10})
	if page.Total != 2 {
		t.Fatalf("expected 2 entries in range, got %d", page.Total)
	}

	recent, err := repos.Logs.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 || recent[0].AppName != "gina-app" || recent[0].AppOwner != "gina" {
		t.Fatalf("unexpected recent logs: %+v", recent)
	}
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "henry")

	if _, err := repos.Accounts.Create(ctx, domain.Account{Email: "henry@example.com", Username: "other", PasswordHash: "h"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	byEmail, err := repos.Accounts.FindByLogin(ctx, "henry@example.com")
	if err != nil || byEmail.ID != s.owner.ID {
		t.Fatalf("find by email: %+v %v", byEmail, err)
	}

	admin, err := repos.Accounts.Create(ctx, domain.Account{Email: "root@example.com", Username: "root", PasswordHash: "h", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if ok, _ := repos.Accounts.Delete(ctx, admin.ID); ok {
		t.Fatal("admin must not be deleted")
	}

	users, err := repos.Accounts.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "henry" || users[0].AppCount != 1 {
		t.Fatalf("unexpected users: %+v", users)
	}

	if ok, err := repos.Accounts.Delete(ctx, s.owner.ID); err != nil || !ok {
		t.Fatalf("delete user: %v %v", ok, err)
	}
	if _, err := repos.Applications.FindOwned(ctx, s.app.ID, s.owner.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected owned app removed with account, got %v", err)
	}
}

func TestStatsAndOverviews(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestDB(t)
	s := seed(t, repos, "ivy")

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	_ = repos.Licenses.CreateBatch(ctx, s.app.ID, []domain.NewLicense{
		{Key: "A", Subscription: "basic"},
		{Key: "B", Subscription: "basic", ExpiresAt: &past},
	})
	if _, err := repos.Licenses.Create(ctx, domain.License{ApplicationID: s.app.ID, Key: "C", Username: "u1", PasswordHash: "h", Subscription: "basic"}); err != nil {
		t.Fatalf("create bound license: %v", err)
	}
	lock := true
	_ = repos.Applications.Update(ctx, s.app.ID, domain.ApplicationPatch{HWIDLock: &lock})

	stats, err := repos.Stats.Stats(ctx, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.Stats{
		Users:        domain.UserStats{TotalUsers: 1, RegularUsers: 1, UsersLast30Days: 1},
		Applications: domain.AppStats{TotalApps: 1, ActiveApps: 1, HWIDLockedApps: 1},
		Licenses:     domain.LicenseStats{TotalLicenses: 3, UsedLicenses: 1, UnusedLicenses: 2, ExpiredLicenses: 1},
	}
	if stats != want {
		t.Fatalf("unexpected stats:\n got %+v\nwant %+v", stats, want)
	}

	apps, err := repos.Applications.ListOverview(ctx)
	if err != nil {
		t.Fatalf("app overview: %v", err)
	}
	if len(apps) != 1 || apps[0].LicenseCount != 3 || apps[0].UserCount != 1 || apps[0].OwnerUsername != "ivy" {
		t.Fatalf("unexpected app overview: %+v", apps)
	}

	lics, err := repos.Licenses.ListOverview(ctx, 2)
	if err != nil {
		t.Fatalf("license overview: %v", err)
	}
	if len(lics) != 2 || lics[0].AppName != "ivy-app" || lics[0].OwnerUsername != "ivy" {
		t.Fatalf("unexpected license overview: %+v", lics)
	}
}
