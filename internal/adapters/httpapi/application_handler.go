package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

const msgAppNotFound = "Application not found"

type createApplicationRequest struct {
	AppName string `json:"app_name" validate:"max=255"`
}

type updateApplicationRequest struct {
	Status   *string `json:"status"`
	HWIDLock *bool   `json:"hwid_lock"`
}

type applicationResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	AppName   string `json:"app_name"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
	HWIDLock  bool   `json:"hwid_lock"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toApplicationResponse(app domain.Application) applicationResponse {
	return applicationResponse{
		ID:        app.ID,
		UserID:    app.UserID,
		AppName:   app.Name,
		PublicKey: app.PublicKey,
		SecretKey: app.SecretKey,
		HWIDLock:  app.HWIDLock,
		Status:    string(app.Status),
		CreatedAt: formatTime(app.CreatedAt),
	}
}

type settingsRequest struct {
	LoginSuccessMsg string `json:"login_success_msg"`
	LoginErrorMsg   string `json:"login_error_msg"`
	SubExpiredMsg   string `json:"sub_expired_msg"`
	BannedMsg       string `json:"banned_msg"`
	HWIDMismatchMsg string `json:"hwid_mismatch_msg"`
}

type settingsResponse struct {
	ApplicationID   int64  `json:"application_id"`
	LoginSuccessMsg string `json:"login_success_msg"`
	LoginErrorMsg   string `json:"login_error_msg"`
	SubExpiredMsg   string `json:"sub_expired_msg"`
	BannedMsg       string `json:"banned_msg"`
	HWIDMismatchMsg string `json:"hwid_mismatch_msg"`
}

func toSettingsResponse(s domain.AppSettings) settingsResponse {
	return settingsResponse{
		ApplicationID:   s.ApplicationID,
		LoginSuccessMsg: s.LoginSuccessMsg,
		LoginErrorMsg:   s.LoginErrorMsg,
		SubExpiredMsg:   s.SubExpiredMsg,
		BannedMsg:       s.BannedMsg,
		HWIDMismatchMsg: s.HWIDMismatchMsg,
	}
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	apps, err := h.svc.Applications.List(r.Context(), account.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toApplicationResponse(app))
	}
	writeSuccess(w, "", envelope{"applications": out})
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account := accountFromContext(r.Context())
	app, err := h.svc.Applications.Create(r.Context(), account.ID, req.AppName)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Application created successfully", envelope{"application": toApplicationResponse(app)})
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req updateApplicationRequest
	if err := h.decodeWithSchema(w, r, schemaUpdateApplication, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	patch := domain.ApplicationPatch{HWIDLock: req.HWIDLock}
	if req.Status != nil {
		status := domain.AppStatus(*req.Status)
		patch.Status = &status
	}
	account := accountFromContext(r.Context())
	if err := h.svc.Applications.Update(r.Context(), account.ID, appID, patch); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Application updated successfully", nil)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	if err := h.svc.Applications.Delete(r.Context(), account.ID, appID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Application deleted successfully", nil)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	settings, err := h.svc.Settings.Get(r.Context(), account.ID, appID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "", envelope{"settings": toSettingsResponse(settings)})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req settingsRequest
	if err := h.decodeWithSchema(w, r, schemaUpdateSettings, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account := accountFromContext(r.Context())
	settings, err := h.svc.Settings.Update(r.Context(), account.ID, appID, domain.AppSettings{
		ApplicationID:   appID,
		LoginSuccessMsg: req.LoginSuccessMsg,
		LoginErrorMsg:   req.LoginErrorMsg,
		SubExpiredMsg:   req.SubExpiredMsg,
		BannedMsg:       req.BannedMsg,
		HWIDMismatchMsg: req.HWIDMismatchMsg,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Settings updated successfully", envelope{"settings": toSettingsResponse(settings)})
}
