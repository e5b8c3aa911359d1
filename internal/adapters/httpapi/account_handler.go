package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Username string `json:"username" validate:"max=64"`
	Password string `json:"password" validate:"maxbytes=72"`
}

type signInRequest struct {
	Username string `json:"username" validate:"max=255"`
	Password string `json:"password" validate:"max=1024"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"max=1024"`
	NewPassword     string `json:"newPassword" validate:"maxbytes=72"`
}

type accountResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toAccountResponse(a domain.Account) accountResponse {
	resp := accountResponse{ID: a.ID, Email: a.Email, Username: a.Username, Role: string(a.Role)}
	if !a.CreatedAt.IsZero() {
		resp.CreatedAt = formatTime(a.CreatedAt)
	}
	return resp
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account, err := h.svc.Auth.SignUp(r.Context(), usecase.SignUpInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "User created successfully", envelope{"user": toAccountResponse(account)})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	token, account, err := h.svc.Auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Login successful", envelope{
		"token": token,
		"user":  toAccountResponse(account),
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "", envelope{"user": toAccountResponse(accountFromContext(r.Context()))})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.checkStruct(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	account := accountFromContext(r.Context())
	if err := h.svc.Auth.ChangePassword(r.Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeSuccess(w, "Password changed successfully", nil)
}
