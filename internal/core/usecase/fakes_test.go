package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

// memStore is an in-memory stand-in for every repository port.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]domain.Account
	apps     map[int64]domain.Application
	licenses map[int64]domain.License
	settings map[int64]domain.AppSettings
	logs     []domain.LogEntry

	appendErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]domain.Account),
		apps:     make(map[int64]domain.Application),
		licenses: make(map[int64]domain.License),
		settings: make(map[int64]domain.AppSettings),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addApp(app domain.Application) domain.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.ID = m.id()
	if app.Status == "" {
		app.Status = domain.AppActive
	}
	m.apps[app.ID] = app
	return app
}

func (m *memStore) addLicense(lic domain.License) domain.License {
	m.mu.Lock()
	defer m.mu.Unlock()
	lic.ID = m.id()
	m.licenses[lic.ID] = lic
	return lic
}

func (m *memStore) license(id int64) domain.License {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.licenses[id]
}

// ---- accounts ----

type memAccounts struct{ *memStore }

func (r memAccounts) Create(_ context.Context, a domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email || existing.Username == a.Username {
			return domain.Account{}, domain.ErrConflict
		}
	}
	a.ID = r.id()
	r.accounts[a.ID] = a
	return a, nil
}

func (r memAccounts) FindByID(_ context.Context, id int64) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (r memAccounts) FindByLogin(_ context.Context, login string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == login || a.Email == login {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (r memAccounts) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email || a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r memAccounts) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.accounts[id]
	a.PasswordHash = hash
	r.accounts[id] = a
	return nil
}

func (r memAccounts) UpdateRole(_ context.Context, id int64, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return false, nil
	}
	a.Role = role
	r.accounts[id] = a
	return true, nil
}

func (r memAccounts) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role != domain.RoleUser {
		return false, nil
	}
	delete(r.accounts, id)
	return true, nil
}

func (r memAccounts) ListUsers(context.Context) ([]domain.AccountSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AccountSummary
	for _, a := range r.accounts {
		if a.Role == domain.RoleUser {
			out = append(out, domain.AccountSummary{Account: a})
		}
	}
	return out, nil
}

// ---- applications ----

type memApps struct{ *memStore }

func (r memApps) FindActiveByKeys(_ context.Context, pk, sk string) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.PublicKey == pk && a.SecretKey == sk && a.Status == domain.AppActive {
			return a, nil
		}
	}
	return domain.Application{}, domain.ErrNotFound
}

func (r memApps) Create(_ context.Context, app domain.Application) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app.ID = r.id()
	r.apps[app.ID] = app
	return app, nil
}

func (r memApps) ListByOwner(_ context.Context, ownerID int64) ([]domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Application
	for _, a := range r.apps {
		if a.UserID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApps) FindOwned(_ context.Context, id, ownerID int64) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok || a.UserID != ownerID {
		return domain.Application{}, domain.ErrNotFound
	}
	return a, nil
}

func (r memApps) Update(_ context.Context, id int64, p domain.ApplicationPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.apps[id]
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.HWIDLock != nil {
		a.HWIDLock = *p.HWIDLock
	}
	r.apps[id] = a
	return nil
}

func (r memApps) Delete(_ context.Context, id, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok || a.UserID != ownerID {
		return false, nil
	}
	delete(r.apps, id)
	for lid, l := range r.licenses {
		if l.ApplicationID == id {
			delete(r.licenses, lid)
		}
	}
	return true, nil
}

func (r memApps) SetStatus(_ context.Context, id int64, status domain.AppStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok {
		return false, nil
	}
	a.Status = status
	r.apps[id] = a
	return true, nil
}

func (r memApps) ListOverview(context.Context) ([]domain.ApplicationOverview, error) {
	return nil, nil
}

// ---- licenses ----

type memLicenses struct{ *memStore }

func (r memLicenses) FindByUsername(_ context.Context, appID int64, username string) (domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.ApplicationID == appID && l.Username == username && username != "" {
			return l, nil
		}
	}
	return domain.License{}, domain.ErrNotFound
}

func (r memLicenses) FindRedeemable(_ context.Context, appID int64, key string) (domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.ApplicationID == appID && l.Key == key && !l.Banned {
			return l, nil
		}
	}
	return domain.License{}, domain.ErrNotFound
}

func (r memLicenses) FindByID(_ context.Context, appID, id int64) (domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok || l.ApplicationID != appID {
		return domain.License{}, domain.ErrNotFound
	}
	return l, nil
}

func (r memLicenses) UsernameTaken(_ context.Context, appID int64, username string, excludeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.ApplicationID == appID && l.Username == username && l.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memLicenses) Redeem(_ context.Context, id int64, username, hash, hwid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok || l.Username != "" {
		return false, nil
	}
	for _, other := range r.licenses {
		if other.ApplicationID == l.ApplicationID && other.Username == username {
			return false, domain.ErrConflict
		}
	}
	l.Username = username
	l.PasswordHash = hash
	l.HWID = hwid
	r.licenses[id] = l
	return true, nil
}

func (r memLicenses) BindHWID(_ context.Context, id int64, hwid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok || l.HWID != "" {
		return false, nil
	}
	l.HWID = hwid
	r.licenses[id] = l
	return true, nil
}

func (r memLicenses) CreateBatch(_ context.Context, appID int64, batch []domain.NewLicense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range batch {
		for _, l := range r.licenses {
			if l.ApplicationID == appID && l.Key == n.Key {
				return domain.ErrConflict
			}
		}
	}
	for _, n := range batch {
		id := r.id()
		r.licenses[id] = domain.License{ID: id, ApplicationID: appID, Key: n.Key, Subscription: n.Subscription, ExpiresAt: n.ExpiresAt}
	}
	return nil
}

func (r memLicenses) Create(_ context.Context, lic domain.License) (domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lic.ID = r.id()
	r.licenses[lic.ID] = lic
	return lic, nil
}

func (r memLicenses) List(_ context.Context, appID int64) ([]domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.License
	for _, l := range r.licenses {
		if l.ApplicationID == appID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLicenses) ListBound(ctx context.Context, appID int64) ([]domain.License, error) {
	all, _ := r.List(ctx, appID)
	var out []domain.License
	for _, l := range all {
		if l.Used() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r memLicenses) Update(_ context.Context, appID, id int64, p domain.LicensePatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok || l.ApplicationID != appID {
		return false, nil
	}
	if p.Username != nil {
		l.Username = *p.Username
	}
	if p.PasswordHash != nil {
		l.PasswordHash = *p.PasswordHash
	}
	if p.Subscription != nil {
		l.Subscription = *p.Subscription
	}
	if p.SetExpiry {
		l.ExpiresAt = p.ExpiresAt
	}
	if p.Banned != nil {
		l.Banned = *p.Banned
	}
	if p.ResetHWID {
		l.HWID = ""
	}
	r.licenses[id] = l
	return true, nil
}

func (r memLicenses) Delete(_ context.Context, appID, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok || l.ApplicationID != appID {
		return false, nil
	}
	delete(r.licenses, id)
	return true, nil
}

func (r memLicenses) ListOverview(context.Context, int) ([]domain.LicenseOverview, error) {
	return nil, nil
}

// ---- settings ----

type memSettings struct{ *memStore }

func (r memSettings) GetOrCreate(_ context.Context, appID int64) (domain.AppSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[appID]
	if !ok {
		s = domain.DefaultSettings(appID)
		r.settings[appID] = s
	}
	return s, nil
}

func (r memSettings) Update(_ context.Context, s domain.AppSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.ApplicationID] = s
	return nil
}

// ---- logs ----

type memLogs struct{ *memStore }

func (r memLogs) Append(_ context.Context, e domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	e.ID = r.id()
	r.logs = append(r.logs, e)
	return nil
}

func (r memLogs) Page(_ context.Context, f domain.LogFilter) (domain.LogPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.LogEntry
	for _, e := range r.logs {
		if e.ApplicationID != f.ApplicationID {
			continue
		}
		if f.Search != "" && !strings.Contains(e.Username, f.Search) && !strings.Contains(e.Action, f.Search) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		matched = append(matched, e)
	}
	page := domain.LogPage{Total: int64(len(matched))}
	start := f.Offset()
	if start < len(matched) {
		end := start + f.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Entries = matched[start:end]
	}
	return page, nil
}

func (r memLogs) ListRecent(context.Context, int) ([]domain.LogOverview, error) {
	return nil, nil
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, e := range m.logs {
		out = append(out, e.Action)
	}
	return out
}

// ---- security fakes ----

// plainHasher keeps tests fast; it is not a hash.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) {
	if p == "" {
		return "", domain.ErrEmptySecret
	}
	if len(p) > maxPasswordBytes {
		return "", domain.ErrSecretTooLong
	}
	return "hashed:" + p, nil
}

func (plainHasher) Verify(p, h string) bool {
	return h != "" && h == "hashed:"+p
}

type seqKeys struct {
	mu sync.Mutex
	n  int
}

func (k *seqKeys) Generate(prefix string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n++
	return fmt.Sprintf("%s_lk_%040d", prefix, k.n), nil
}

type stubTokens struct {
	issued map[string]domain.Claims
}

func newStubTokens() *stubTokens {
	return &stubTokens{issued: make(map[string]domain.Claims)}
}

func (t *stubTokens) Issue(c domain.Claims) (string, error) {
	token := fmt.Sprintf("token-%d", c.UserID)
	t.issued[token] = c
	return token, nil
}

func (t *stubTokens) Verify(token string) (domain.Claims, error) {
	c, ok := t.issued[token]
	if !ok {
		return domain.Claims{}, domain.ErrInvalidToken
	}
	return c, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
