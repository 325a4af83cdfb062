// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/middleware"
	requestutil "github.com/breachlab/breachlab/internal/platform/request"
	"github.com/breachlab/breachlab/internal/platform/respond"
	"github.com/breachlab/breachlab/internal/platform/validate"
)

// # HTTP Transport

// Handler exposes the authentication gateway over HTTP.
type Handler struct {
	service       *Service
	protect       func(http.Handler) http.Handler
	secureCookies bool
}

// NewHandler creates the auth HTTP handler.
//
// # Parameters
//   - service: The authentication gateway.
//   - protect: The Protect middleware guarding the authenticated subtree.
//   - secureCookies: Whether session cookies carry the Secure flag (production).
func NewHandler(service *Service, protect func(http.Handler) http.Handler, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		protect:       protect,
		secureCookies: secureCookies,
	}
}

// Routes mounts the authentication endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public surface
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh-token", handler.refreshToken)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Patch("/reset-password/{token}", handler.resetPassword)

	// Authenticated surface
	router.Group(func(protected chi.Router) {
		protected.Use(handler.protect)
		protected.Get("/me", handler.me)
		protected.Post("/logout", handler.logout)
		protected.Patch("/update-password", handler.updatePassword)
		protected.Post("/logout-all", handler.logoutAll)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	DisplayName     string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type updatePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// # Handlers

// register handles POST /api/v1/auth/register.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, payload.Username).
		MinLen(FieldUsername, payload.Username, 3).
		MaxLen(FieldUsername, payload.Username, 30).
		Required(FieldEmail, payload.Email).
		Email(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password).
		MinLen(FieldPassword, payload.Password, MinPasswordLength).
		MaxLen(FieldPassword, payload.Password, 72).
		Equal(FieldPasswordConfirm, payload.PasswordConfirm, payload.Password, "Passwords do not match").
		MaxLen(FieldDisplayName, payload.DisplayName, 100)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Register(request.Context(), RegisterInput{
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.Created(writer, handler.sessionPayload(session))
}

// login handles POST /api/v1/auth/login.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), LoginInput{
		Email:    payload.Email,
		Password: payload.Password,
		ClientIP: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, handler.sessionPayload(session))
}

// logout handles POST /api/v1/auth/logout.
//
// Idempotent past authentication: an absent or already-revoked refresh
// cookie still logs out cleanly, and the cookies are cleared regardless of
// what the revocation found.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	refreshToken := handler.refreshTokenFromCookie(request)

	if err := handler.service.Logout(request.Context(), refreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.Message(writer, "Logged out successfully")
}

// refreshToken handles POST /api/v1/auth/refresh-token.
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	refreshToken := handler.refreshTokenFromCookie(request)

	session, err := handler.service.Refresh(request.Context(), refreshToken)
	if err != nil {
		// A rejected rotation must not leave stale cookies behind.
		handler.clearSessionCookies(writer)
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, map[string]interface{}{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(time.Until(session.AccessExpiresAt).Seconds()),
	})
}

// me handles GET /api/v1/auth/me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldUser: user})
}

// forgotPassword handles POST /api/v1/auth/forgot-password.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var payload forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Email(FieldEmail, payload.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ForgotPassword(request.Context(), payload.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Same answer for known and unknown addresses.
	respond.Message(writer, "If that email is registered, a reset link has been sent")
}

// resetPassword handles PATCH /api/v1/auth/reset-password/{token}.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	resetSecret := requestutil.Param(request, FieldToken)

	var payload resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldToken, resetSecret).
		Required(FieldPassword, payload.Password).
		MinLen(FieldPassword, payload.Password, MinPasswordLength).
		MaxLen(FieldPassword, payload.Password, 72).
		Equal(FieldPasswordConfirm, payload.PasswordConfirm, payload.Password, "Passwords do not match")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.ResetPassword(request.Context(), resetSecret, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, handler.sessionPayload(session))
}

// updatePassword handles PATCH /api/v1/auth/update-password.
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload updatePasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldCurrentPassword, payload.CurrentPassword).
		Required(FieldNewPassword, payload.NewPassword).
		MinLen(FieldNewPassword, payload.NewPassword, MinPasswordLength).
		MaxLen(FieldNewPassword, payload.NewPassword, 72).
		Equal(FieldNewPasswordConfirm, payload.NewPasswordConfirm, payload.NewPassword, "Passwords do not match")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.UpdatePassword(
		request.Context(),
		userID,
		payload.CurrentPassword,
		payload.NewPassword,
		handler.refreshTokenFromCookie(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, handler.sessionPayload(session))
}

// logoutAll handles POST /api/v1/auth/logout-all.
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeAllSessions(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.Message(writer, "Logged out of all sessions")
}

// # Cookie Management

// setSessionCookies installs the httpOnly token cookies for a fresh session.
// The refresh cookie is scoped to the auth endpoints so it never rides along
// on ordinary API calls.
func (handler *Handler) setSessionCookies(writer http.ResponseWriter, session *SessionTokens) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    session.AccessToken,
		Path:     constants.AccessTokenCookiePath,
		Expires:  session.AccessExpiresAt,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both token cookies. Attributes mirror
// setSessionCookies exactly, otherwise browsers keep the originals.
func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    "",
		Path:     constants.AccessTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// # Helpers

func (handler *Handler) refreshTokenFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (handler *Handler) sessionPayload(session *SessionTokens) map[string]interface{} {
	return map[string]interface{}{
		FieldUser:        session.User,
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
	}
}
