package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/logging"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05Z07:00"
	accountCtxKey   ctxKey = "account"
	maxJSONBodySize        = 1 << 20

	msgInternal    = "Internal server error"
	msgInvalidJSON = "Invalid JSON body"
)

var errBodyTooLarge = errors.New("request body too large")

// Services are the use cases the router dispatches to.
type Services struct {
	Client       *usecase.ClientService
	Auth         *usecase.AuthService
	Applications *usecase.ApplicationService
	Licenses     *usecase.LicenseService
	EndUsers     *usecase.EndUserService
	Settings     *usecase.SettingsService
	Audit        *usecase.AuditService
	Admin        *usecase.AdminService
}

type Options struct {
	Logger  *zap.Logger
	Metrics *Metrics
	// RateLimit is the sustained number of public API calls per second a
	// single client IP may make. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// Health reports storage readiness for /healthz.
	Health func(ctx context.Context) error
}

type Handler struct {
	svc      Services
	log      *zap.Logger
	metrics  *Metrics
	limiter  *ipLimiter
	health   func(ctx context.Context) error
	schemas  payloadSchemas
	validate *validator.Validate
}

func NewHandler(svc Services, opts Options) (*Handler, error) {
	schemas, err := loadPayloadSchemas()
	if err != nil {
		return nil, err
	}
	validate, err := newValidator()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:      svc,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		health:   opts.Health,
		schemas:  schemas,
		validate: validate,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if opts.RateLimit > 0 {
		h.limiter = newIPLimiter(opts.RateLimit, opts.RateBurst, opts.Metrics)
	}
	return h, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, h.requestContext, h.accessLog, h.recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.instrument)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)

	r.Route("/api/v1", func(pr chi.Router) {
		pr.Use(cors)
		if h.limiter != nil {
			pr.Use(h.limiter.middleware)
		}
		pr.Post("/login", h.clientLogin)
		pr.Post("/register", h.clientRegister)
		pr.Post("/validate", h.clientValidate)
	})

	r.Route("/api/auth", func(ar chi.Router) {
		ar.Post("/register", h.signUp)
		ar.Post("/login", h.signIn)
		ar.Group(func(pr chi.Router) {
			pr.Use(h.requireAccount)
			pr.Get("/me", h.me)
			pr.Post("/change-password", h.changePassword)
		})
	})

	r.Route("/api/applications", func(ar chi.Router) {
		ar.Use(h.requireAccount)
		ar.Get("/", h.listApplications)
		ar.Post("/", h.createApplication)
		ar.Route("/{appID}", func(sr chi.Router) {
			sr.Patch("/", h.updateApplication)
			sr.Delete("/", h.deleteApplication)

			sr.Get("/settings", h.getSettings)
			sr.Patch("/settings", h.updateSettings)

			sr.Get("/licenses", h.listLicenses)
			sr.Post("/licenses", h.createLicenses)
			sr.Delete("/licenses/{licenseID}", h.deleteLicense)

			sr.Get("/users", h.listEndUsers)
			sr.Post("/users", h.createEndUser)
			sr.Patch("/users/{licenseID}", h.updateEndUser)
			sr.Delete("/users/{licenseID}", h.deleteEndUser)
			sr.Patch("/users/{licenseID}/ban", h.banEndUser)

			sr.Get("/logs", h.listLogs)
		})
	})

	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(h.requireAccount, h.requireAdmin)
		ar.Get("/stats", h.adminStats)
		ar.Get("/users", h.adminUsers)
		ar.Delete("/users/{userID}", h.adminDeleteUser)
		ar.Patch("/users/{userID}/role", h.adminSetRole)
		ar.Get("/applications", h.adminApplications)
		ar.Patch("/applications/{appID}/status", h.adminSetApplicationStatus)
		ar.Get("/licenses", h.adminLicenses)
		ar.Get("/logs", h.adminLogs)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logging.From(r.Context()).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

// envelope is the response body shape shared by every API route.
type envelope map[string]any

func writeSuccess(w http.ResponseWriter, message string, fields envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// handleError renders anticipated rejections with their own status and
// message. Anything else is logged and hidden behind a generic 500.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var re *domain.RequestError
	var sv *schemaViolation
	switch {
	case errors.As(err, &re):
		writeError(w, failureStatus(re.Kind), re.Message)
	case errors.As(err, &sv):
		writeJSON(w, http.StatusBadRequest, envelope{
			"success": false,
			"message": "Invalid request body",
			"errors":  sv.Errors,
		})
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		logging.From(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func failureStatus(kind domain.Failure) int {
	switch kind {
	case domain.FailInvalid:
		return http.StatusBadRequest
	case domain.FailUnauthorized:
		return http.StatusUnauthorized
	case domain.FailForbidden:
		return http.StatusForbidden
	case domain.FailNotFound:
		return http.StatusNotFound
	case domain.FailConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeJSON reads exactly one JSON value into dst. Strict decoding rejects
// unknown fields; the public API stays lenient toward client SDKs.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return decodeBytes(body, dst, strict)
}

// decodeWithSchema validates the body against schema before decoding it.
func (h *Handler) decodeWithSchema(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := h.schemas.validate(schema, body); err != nil {
		return err
	}
	return decodeBytes(body, dst, true)
}

func decodeBytes(body []byte, dst any, strict bool) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dst); err != nil {
		var re *domain.RequestError
		if errors.As(err, &re) {
			return err
		}
		return domain.Reject(domain.FailInvalid, msgInvalidJSON)
	}
	if err := ensureEOF(decoder); err != nil {
		return domain.Reject(domain.FailInvalid, msgInvalidJSON)
	}
	return nil
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

// pathID parses a positive integer route parameter. Malformed ids are
// reported the same way as missing rows.
func pathID(r *http.Request, name, notFound string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Reject(domain.FailNotFound, notFound)
	}
	return id, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var inputTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC 3339 plus the zone-less layouts HTML date inputs
// produce; the latter are read as UTC.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range inputTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// optionalTime tells an absent JSON field apart from an explicit null or an
// empty string, both of which clear the value.
type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Reject(domain.FailInvalid, "expires_at must be a string")
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := parseTime(raw)
	if err != nil {
		return domain.Reject(domain.FailInvalid, "Invalid expires_at")
	}
	o.Value = &t
	return nil
}

func origin(r *http.Request) usecase.Origin {
	return usecase.Origin{IPAddress: clientIP(r), UserAgent: r.UserAgent()}
}

func openapiSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "licenseapi",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/api/v1/login":    map[string]any{"post": map[string]any{"summary": "Log an end user in"}},
			"/api/v1/register": map[string]any{"post": map[string]any{"summary": "Redeem a license key"}},
			"/api/v1/validate": map[string]any{"post": map[string]any{"summary": "Validate an end-user session"}},
			"/api/auth/register": map[string]any{"post": map[string]any{"summary": "Create a dashboard account"}},
			"/api/auth/login":    map[string]any{"post": map[string]any{"summary": "Sign in to the dashboard"}},
			"/api/auth/me":       map[string]any{"get": map[string]any{"summary": "Current account"}},
			"/api/auth/change-password": map[string]any{
				"post": map[string]any{"summary": "Change the account password"},
			},
			"/api/applications": map[string]any{
				"get":  map[string]any{"summary": "List applications"},
				"post": map[string]any{"summary": "Create application"},
			},
			"/api/applications/{id}": map[string]any{
				"patch":  map[string]any{"summary": "Update application"},
				"delete": map[string]any{"summary": "Delete application"},
			},
			"/api/applications/{id}/settings": map[string]any{
				"get":   map[string]any{"summary": "Get login messages"},
				"patch": map[string]any{"summary": "Update login messages"},
			},
			"/api/applications/{id}/licenses": map[string]any{
				"get":  map[string]any{"summary": "List licenses"},
				"post": map[string]any{"summary": "Create licenses"},
			},
			"/api/applications/{id}/licenses/{licenseId}": map[string]any{
				"delete": map[string]any{"summary": "Delete license"},
			},
			"/api/applications/{id}/users": map[string]any{
				"get":  map[string]any{"summary": "List end users"},
				"post": map[string]any{"summary": "Create end user"},
			},
			"/api/applications/{id}/users/{userId}": map[string]any{
				"patch":  map[string]any{"summary": "Update end user"},
				"delete": map[string]any{"summary": "Delete end user"},
			},
			"/api/applications/{id}/users/{userId}/ban": map[string]any{
				"patch": map[string]any{"summary": "Ban or unban end user"},
			},
			"/api/applications/{id}/logs": map[string]any{
				"get": map[string]any{"summary": "Page through the audit log"},
			},
			"/api/admin/stats":    map[string]any{"get": map[string]any{"summary": "Platform statistics"}},
			"/api/admin/users":    map[string]any{"get": map[string]any{"summary": "List accounts"}},
			"/api/admin/licenses": map[string]any{"get": map[string]any{"summary": "Recent licenses"}},
			"/api/admin/logs":     map[string]any{"get": map[string]any{"summary": "Recent log entries"}},
			"/api/admin/users/{userId}": map[string]any{
				"delete": map[string]any{"summary": "Delete account"},
			},
			"/api/admin/users/{userId}/role": map[string]any{
				"patch": map[string]any{"summary": "Change account role"},
			},
			"/api/admin/applications": map[string]any{
				"get": map[string]any{"summary": "List all applications"},
			},
			"/api/admin/applications/{appId}/status": map[string]any{
				"patch": map[string]any{"summary": "Activate or suspend application"},
			},
		},
	}
}
