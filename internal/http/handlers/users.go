package handlers

import (
	"net/http"

	"github.com/pribylovaa/agrichain-auth/internal/http/apierrors"
	"github.com/pribylovaa/agrichain-auth/internal/http/middleware"
	"github.com/pribylovaa/agrichain-auth/internal/service"
)

// Signup — POST /users/signup.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, pair, err := h.svc.Signup(r.Context(), in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data:    authData{User: user, Token: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

// Signin — POST /users/signin.
func (h *Handlers) Signin(w http.ResponseWriter, r *http.Request) {
	var in signinRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, pair, err := h.svc.Signin(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    authData{User: user, Token: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

// Refresh — POST /users/refresh; тело {refreshToken}.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:      true,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout — POST /users/logout; тело {refreshToken}.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

// Verify — GET /users/verify: актуальная запись владельца токена.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrNoToken)
		return
	}

	user, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}

// Profile — GET /users/profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrNoToken)
		return
	}

	user, err := h.svc.Profile(r.Context(), id.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}

// UpdateProfile — PUT /users/profile; меняет только собственную запись.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrNoToken)
		return
	}

	var in profileUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), id.UserID, service.ProfileUpdate{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}
