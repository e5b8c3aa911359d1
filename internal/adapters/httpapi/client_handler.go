package httpapi

import (
	"errors"
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

type clientLoginRequest struct {
	PublicKey string `json:"public_key" validate:"max=128"`
	SecretKey string `json:"secret_key" validate:"max=128"`
	Username  string `json:"username" validate:"max=255"`
	Password  string `json:"password" validate:"max=1024"`
	HWID      string `json:"hwid" validate:"max=255"`
}

type clientRegisterRequest struct {
	PublicKey  string `json:"public_key" validate:"max=128"`
	SecretKey  string `json:"secret_key" validate:"max=128"`
	Username   string `json:"username" validate:"max=255"`
	Password   string `json:"password" validate:"maxbytes=72"`
	LicenseKey string `json:"license_key" validate:"max=255"`
	HWID       string `json:"hwid" validate:"max=255"`
}

type clientValidateRequest struct {
	PublicKey string `json:"public_key" validate:"max=128"`
	SecretKey string `json:"secret_key" validate:"max=128"`
	Username  string `json:"username" validate:"max=255"`
	HWID      string `json:"hwid" validate:"max=255"`
}

type sessionData struct {
	Username     string  `json:"username"`
	Subscription string  `json:"subscription"`
	ExpiresAt    *string `json:"expires_at"`
}

type validatedSessionData struct {
	sessionData
	HWID *string `json:"hwid"`
}

func toSessionData(s domain.Session) sessionData {
	return sessionData{
		Username:     s.Username,
		Subscription: s.Subscription,
		ExpiresAt:    formatTimePtr(s.ExpiresAt),
	}
}

func (h *Handler) clientLogin(w http.ResponseWriter, r *http.Request) {
	var req clientLoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.clientFailure(w, r, "login", err)
		return
	}
	if err := h.checkClientFields(r, req.PublicKey, req.SecretKey, req); err != nil {
		h.clientFailure(w, r, "login", err)
		return
	}

	session, err := h.svc.Client.Login(r.Context(), usecase.LoginInput{
		PublicKey: req.PublicKey,
		SecretKey: req.SecretKey,
		Username:  req.Username,
		Password:  req.Password,
		HWID:      req.HWID,
		Origin:    origin(r),
	})
	if err != nil {
		h.clientFailure(w, r, "login", err)
		return
	}
	h.metrics.observeClient("login", "success")
	writeSuccess(w, session.Message, envelope{"data": toSessionData(session)})
}

func (h *Handler) clientRegister(w http.ResponseWriter, r *http.Request) {
	var req clientRegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.clientFailure(w, r, "register", err)
		return
	}
	// Register checks its fields before the keys.
	if err := h.checkStruct(req); err != nil {
		h.clientFailure(w, r, "register", err)
		return
	}

	session, err := h.svc.Client.Register(r.Context(), usecase.RegisterInput{
		PublicKey:  req.PublicKey,
		SecretKey:  req.SecretKey,
		Username:   req.Username,
		Password:   req.Password,
		LicenseKey: req.LicenseKey,
		HWID:       req.HWID,
		Origin:     origin(r),
	})
	if err != nil {
		h.clientFailure(w, r, "register", err)
		return
	}
	h.metrics.observeClient("register", "success")
	writeSuccess(w, session.Message, envelope{"data": toSessionData(session)})
}

func (h *Handler) clientValidate(w http.ResponseWriter, r *http.Request) {
	var req clientValidateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.clientFailure(w, r, "validate", err)
		return
	}
	if err := h.checkClientFields(r, req.PublicKey, req.SecretKey, req); err != nil {
		h.clientFailure(w, r, "validate", err)
		return
	}

	session, err := h.svc.Client.Validate(r.Context(), usecase.ValidateInput{
		PublicKey: req.PublicKey,
		SecretKey: req.SecretKey,
		Username:  req.Username,
		HWID:      req.HWID,
	})
	if err != nil {
		h.clientFailure(w, r, "validate", err)
		return
	}
	h.metrics.observeClient("validate", "success")
	writeSuccess(w, session.Message, envelope{"data": validatedSessionData{
		sessionData: toSessionData(session),
		HWID:        stringPtr(session.HWID),
	}})
}

// checkClientFields reports field violations only to callers holding valid
// application keys; everyone else gets the key rejection.
func (h *Handler) checkClientFields(r *http.Request, publicKey, secretKey string, req any) error {
	err := h.checkStruct(req)
	if err == nil {
		return nil
	}
	if _, authErr := h.svc.Client.Authorize(r.Context(), publicKey, secretKey); authErr != nil {
		return authErr
	}
	return err
}

func (h *Handler) clientFailure(w http.ResponseWriter, r *http.Request, operation string, err error) {
	outcome := "error"
	var re *domain.RequestError
	if errors.As(err, &re) {
		outcome = string(re.Kind)
	}
	h.metrics.observeClient(operation, outcome)
	h.handleError(w, r, err)
}
