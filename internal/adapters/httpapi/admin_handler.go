package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

type roleRequest struct {
	Role string `json:"role" validate:"max=16"`
}

type statusRequest struct {
	Status string `json:"status" validate:"max=16"`
}

type adminUserResponse struct {
	accountResponse
	AppCount int64 `json:"app_count"`
}

type adminApplicationResponse struct {
	applicationResponse
	OwnerUsername string `json:"owner_username"`
	OwnerEmail    string `json:"owner_email"`
	UserCount     int64  `json:"user_count"`
	LicenseCount  int64  `json:"license_count"`
}

type adminLicenseResponse struct {
	licenseResponse
	AppName       string `json:"app_name"`
	OwnerUsername string `json:"owner_username"`
}

type adminLogResponse struct {
	logResponse
	ApplicationID int64  `json:"application_id"`
	AppName       string `json:"app_name"`
	AppOwner      string `json:"app_owner"`
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Admin.Stats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "", envelope{"stats": stats})
}

func (h *Handler) adminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Admin.Users(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResponse{accountResponse: toAccountResponse(u.Account), AppCount: u.AppCount})
	}
	writeSuccess(w, "", envelope{"users": out})
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID", msgEndUserNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.Admin.DeleteUser(r.Context(), userID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User deleted successfully", nil)
}

func (h *Handler) adminSetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID", msgEndUserNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.Admin.SetRole(r.Context(), userID, domain.Role(req.Role)); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User role updated successfully", nil)
}

func (h *Handler) adminApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.Admin.Applications(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]adminApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, adminApplicationResponse{
			applicationResponse: toApplicationResponse(a.Application),
			OwnerUsername:       a.OwnerUsername,
			OwnerEmail:          a.OwnerEmail,
			UserCount:           a.UserCount,
			LicenseCount:        a.LicenseCount,
		})
	}
	writeSuccess(w, "", envelope{"applications": out})
}

func (h *Handler) adminSetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.Admin.SetApplicationStatus(r.Context(), appID, domain.AppStatus(req.Status)); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Application status updated successfully", nil)
}

func (h *Handler) adminLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.svc.Admin.Licenses(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]adminLicenseResponse, 0, len(licenses))
	for _, l := range licenses {
		out = append(out, adminLicenseResponse{
			licenseResponse: toLicenseResponse(l.License),
			AppName:         l.AppName,
			OwnerUsername:   l.OwnerUsername,
		})
	}
	writeSuccess(w, "", envelope{"licenses": out})
}

func (h *Handler) adminLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Admin.Logs(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]adminLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, adminLogResponse{
			logResponse:   toLogResponse(l.LogEntry),
			ApplicationID: l.ApplicationID,
			AppName:       l.AppName,
			AppOwner:      l.AppOwner,
		})
	}
	writeSuccess(w, "", envelope{"logs": out})
}
