package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

const msgEndUserNotFound = "User not found"

type createEndUserRequest struct {
	Username         string       `json:"username" validate:"max=255"`
	Password         string       `json:"password" validate:"maxbytes=72"`
	SubscriptionType string       `json:"subscription_type" validate:"max=64"`
	ExpiresAt        optionalTime `json:"expires_at"`
}

type updateEndUserRequest struct {
	Username         *string      `json:"username"`
	Password         *string      `json:"password" validate:"omitempty,maxbytes=72"`
	SubscriptionType *string      `json:"subscription_type"`
	ExpiresAt        optionalTime `json:"expires_at"`
	IsBanned         *bool        `json:"is_banned"`
	ResetHWID        bool         `json:"reset_hwid"`
}

type banRequest struct {
	IsBanned *bool `json:"is_banned"`
}

type endUserResponse struct {
	ID               int64   `json:"id"`
	Username         string  `json:"username"`
	LicenseKey       string  `json:"license_key"`
	SubscriptionType string  `json:"subscription_type"`
	ExpiresAt        *string `json:"expires_at"`
	IsBanned         bool    `json:"is_banned"`
	HWID             *string `json:"hwid"`
	CreatedAt        string  `json:"created_at"`
}

func toEndUserResponse(l domain.License) endUserResponse {
	return endUserResponse{
		ID:               l.ID,
		Username:         l.Username,
		LicenseKey:       l.Key,
		SubscriptionType: l.Subscription,
		ExpiresAt:        formatTimePtr(l.ExpiresAt),
		IsBanned:         l.Banned,
		HWID:             stringPtr(l.HWID),
		CreatedAt:        formatTime(l.CreatedAt),
	}
}

func (h *Handler) listEndUsers(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	users, err := h.svc.EndUsers.List(r.Context(), account.ID, appID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]endUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toEndUserResponse(u))
	}
	writeSuccess(w, "", envelope{"users": out})
}

func (h *Handler) createEndUser(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req createEndUserRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account := accountFromContext(r.Context())
	lic, err := h.svc.EndUsers.Create(r.Context(), account.ID, appID, usecase.CreateEndUserInput{
		Username:     req.Username,
		Password:     req.Password,
		Subscription: req.SubscriptionType,
		ExpiresAt:    req.ExpiresAt.Value,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User created successfully", envelope{"user": toEndUserResponse(lic)})
}

func (h *Handler) updateEndUser(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	licenseID, err := pathID(r, "licenseID", msgEndUserNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req updateEndUserRequest
	if err := h.decodeWithSchema(w, r, schemaUpdateEndUser, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account := accountFromContext(r.Context())
	err = h.svc.EndUsers.Update(r.Context(), account.ID, appID, licenseID, usecase.EndUserPatch{
		Username:     req.Username,
		Password:     req.Password,
		Subscription: req.SubscriptionType,
		SetExpiry:    req.ExpiresAt.Set,
		ExpiresAt:    req.ExpiresAt.Value,
		Banned:       req.IsBanned,
		ResetHWID:    req.ResetHWID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User updated successfully", nil)
}

func (h *Handler) banEndUser(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	licenseID, err := pathID(r, "licenseID", msgEndUserNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req banRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if req.IsBanned == nil {
		h.handleError(w, r, domain.Reject(domain.FailInvalid, "is_banned is required"))
		return
	}

	account := accountFromContext(r.Context())
	if err := h.svc.EndUsers.SetBanned(r.Context(), account.ID, appID, licenseID, *req.IsBanned); err != nil {
		h.handleError(w, r, err)
		return
	}
	msg := "User unbanned successfully"
	if *req.IsBanned {
		msg = "User banned successfully"
	}
	writeSuccess(w, msg, nil)
}

func (h *Handler) deleteEndUser(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	licenseID, err := pathID(r, "licenseID", msgEndUserNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	if err := h.svc.EndUsers.Delete(r.Context(), account.ID, appID, licenseID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User deleted successfully", nil)
}
