package httpapi

import (
	"fmt"
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

type newLicenseRequest struct {
	LicenseKey       string       `json:"license_key"`
	SubscriptionType string       `json:"subscription_type"`
	ExpiresAt        optionalTime `json:"expires_at"`
}

// createLicensesRequest accepts explicit licenses, a generated batch, or
// both in one call.
type createLicensesRequest struct {
	Licenses         []newLicenseRequest `json:"licenses"`
	Count            int                 `json:"count"`
	SubscriptionType string              `json:"subscription_type"`
	DurationDays     int                 `json:"duration_days"`
}

type licenseResponse struct {
	ID               int64   `json:"id"`
	ApplicationID    int64   `json:"application_id"`
	LicenseKey       string  `json:"license_key"`
	Username         *string `json:"username"`
	SubscriptionType string  `json:"subscription_type"`
	ExpiresAt        *string `json:"expires_at"`
	IsBanned         bool    `json:"is_banned"`
	HWID             *string `json:"hwid"`
	IsUsed           bool    `json:"is_used"`
	CreatedAt        string  `json:"created_at"`
}

func toLicenseResponse(l domain.License) licenseResponse {
	return licenseResponse{
		ID:               l.ID,
		ApplicationID:    l.ApplicationID,
		LicenseKey:       l.Key,
		Username:         stringPtr(l.Username),
		SubscriptionType: l.Subscription,
		ExpiresAt:        formatTimePtr(l.ExpiresAt),
		IsBanned:         l.Banned,
		HWID:             stringPtr(l.HWID),
		IsUsed:           l.Used(),
		CreatedAt:        formatTime(l.CreatedAt),
	}
}

type createdLicenseResponse struct {
	LicenseKey       string  `json:"license_key"`
	SubscriptionType string  `json:"subscription_type"`
	ExpiresAt        *string `json:"expires_at"`
}

func (h *Handler) listLicenses(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	licenses, err := h.svc.Licenses.List(r.Context(), account.ID, appID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]licenseResponse, 0, len(licenses))
	for _, l := range licenses {
		out = append(out, toLicenseResponse(l))
	}
	writeSuccess(w, "", envelope{"licenses": out})
}

func (h *Handler) createLicenses(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req createLicensesRequest
	if err := h.decodeWithSchema(w, r, schemaCreateLicenses, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	in := usecase.CreateLicensesInput{
		Licenses:     make([]domain.NewLicense, 0, len(req.Licenses)),
		Count:        req.Count,
		Subscription: req.SubscriptionType,
		DurationDays: req.DurationDays,
	}
	for _, l := range req.Licenses {
		in.Licenses = append(in.Licenses, domain.NewLicense{
			Key:          l.LicenseKey,
			Subscription: l.SubscriptionType,
			ExpiresAt:    l.ExpiresAt.Value,
		})
	}

	account := accountFromContext(r.Context())
	created, err := h.svc.Licenses.Create(r.Context(), account.ID, appID, in)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	out := make([]createdLicenseResponse, 0, len(created))
	for _, l := range created {
		out = append(out, createdLicenseResponse{
			LicenseKey:       l.Key,
			SubscriptionType: l.Subscription,
			ExpiresAt:        formatTimePtr(l.ExpiresAt),
		})
	}
	writeSuccess(w, licensesCreatedMessage(len(created)), envelope{"licenses": out})
}

func licensesCreatedMessage(n int) string {
	if n == 1 {
		return "1 license created successfully"
	}
	return fmt.Sprintf("%d licenses created successfully", n)
}

func (h *Handler) deleteLicense(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	licenseID, err := pathID(r, "licenseID", "License not found")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	account := accountFromContext(r.Context())
	if err := h.svc.Licenses.Delete(r.Context(), account.ID, appID, licenseID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "License deleted successfully", nil)
}
