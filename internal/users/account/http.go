// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/middleware"
	requestutil "github.com/breachlab/breachlab/internal/platform/request"
	"github.com/breachlab/breachlab/internal/platform/respond"
	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/internal/platform/validate"
	"github.com/breachlab/breachlab/pkg/pagination"
)

// # HTTP Transport

// Handler exposes account management over HTTP.
type Handler struct {
	service *Service
	protect func(http.Handler) http.Handler
}

// NewHandler creates the account HTTP handler.
func NewHandler(service *Service, protect func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, protect: protect}
}

// Routes mounts the account endpoints. The whole subtree requires
// authentication; the staff branch layers role checks on top.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.protect)

	// Self-service
	router.Patch("/profile", handler.updateProfile)
	router.Delete("/profile", handler.deactivate)

	// Staff
	router.Group(func(staff chi.Router) {
		staff.Use(middleware.RequireRole(sec.RoleModerator))
		staff.Get("/", handler.list)
	})
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))
		admin.Patch("/{userID}/role", handler.changeRole)
		admin.Patch("/{userID}/status", handler.setStatus)
	})

	return router
}

// # Request Payloads

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type setStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// # Handlers

// updateProfile handles PATCH /api/v1/users/profile.
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload updateProfileRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		MaxLen(auth.FieldDisplayName, payload.DisplayName, 100).
		MaxLen("bio", payload.Bio, 500)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		DisplayName: payload.DisplayName,
		Bio:         payload.Bio,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{auth.FieldUser: user})
}

// deactivate handles DELETE /api/v1/users/profile.
func (handler *Handler) deactivate(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Deactivate(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// list handles GET /api/v1/users.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, meta, err := handler.service.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, meta)
}

// changeRole handles PATCH /api/v1/users/{userID}/role.
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetUserID := requestutil.Param(request, "userID")

	var payload changeRoleRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		UUID("userID", targetUserID).
		Required(auth.FieldRole, payload.Role)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, known := sec.ParseRole(payload.Role)
	if !known {
		respond.Error(writer, request, validate.RequiredError(auth.FieldRole, "Unknown role"))
		return
	}

	user, err := handler.service.ChangeRole(request.Context(), actor, targetUserID, role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{auth.FieldUser: user})
}

// setStatus handles PATCH /api/v1/users/{userID}/status.
func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetUserID := requestutil.Param(request, "userID")

	var payload setStatusRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		UUID("userID", targetUserID).
		Custom("is_active", payload.IsActive == nil, "This field is required")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.SetStatus(request.Context(), actor, targetUserID, *payload.IsActive)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{auth.FieldUser: user})
}
