package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/agrichain-auth/internal/http/apierrors"
	"github.com/pribylovaa/agrichain-auth/internal/http/middleware"
	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/service"
)

// ListUsers — GET /admin/users?role=&limit=&offset=.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f service.ListFilter

	if raw := q.Get("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			apierrors.WriteError(w, r, service.ErrInvalidRole)
			return
		}
		f.Role = &role
	}

	var err error
	if f.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if f.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	users, total, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: users, Count: &total})
}

// CreateUser — POST /admin/users.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in adminCreateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), service.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: user})
}

// GetUser — GET /admin/users/{id}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}

// UpdateUser — PUT /admin/users/{id}.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in adminUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), id, service.UserUpdate{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}

// DeleteUser — DELETE /admin/users/{id}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	actor, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrNoToken)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), actor.UserID, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "user deleted"})
}

// Stats — GET /admin/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: st})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Field: "id", Reason: "must be a valid UUID"}
	}

	return id, nil
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &service.ValidationError{Field: field, Reason: "must be a non-negative integer"}
	}

	return n, nil
}
