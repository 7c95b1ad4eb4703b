package api

import (
	"errors"
	"net/http"
	"strconv"

	"terradjunto/internal/auth"
	"terradjunto/internal/i18n"
	"terradjunto/internal/logger"

	"github.com/go-chi/chi/v5"
)

// Auth handlers

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		auth.Registration
		RememberMe bool `json:"rememberMe"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}

	user, err := a.accounts.Register(r.Context(), req.Registration)
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		a.fail(w, r, http.StatusConflict, i18n.AuthEmailInUse)
		return
	case errors.Is(err, auth.ErrInvalidNIF):
		a.fail(w, r, http.StatusBadRequest, i18n.AuthInvalidNIF)
		return
	case errors.Is(err, auth.ErrPasswordMismatch):
		a.fail(w, r, http.StatusBadRequest, i18n.AuthPasswordMismatch)
		return
	case errors.Is(err, auth.ErrRequired):
		a.fail(w, r, http.StatusBadRequest, i18n.FormRequired, "field", field(err, auth.ErrRequired))
		return
	case err != nil:
		a.failValidation(w, r, err)
		return
	}

	// Registration logs the new user in
	if err := a.sessions.Login(w, r, user, req.RememberMe); err != nil {
		logger.L().Error("session save failed", "err", err)
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}

	user, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		a.fail(w, r, http.StatusUnauthorized, i18n.AuthUserNotFound)
		return
	case errors.Is(err, auth.ErrWrongPassword):
		a.fail(w, r, http.StatusUnauthorized, i18n.AuthWrongPassword)
		return
	case err != nil:
		a.failValidation(w, r, err)
		return
	}

	if err := a.sessions.Login(w, r, user, req.RememberMe); err != nil {
		logger.L().Error("session save failed", "err", err)
		a.fail(w, r, http.StatusInternalServerError, i18n.ErrProcessing)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(w, r); err != nil {
		logger.L().Error("session save failed", "err", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}

	err := a.accounts.ResetPassword(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		a.fail(w, r, http.StatusNotFound, i18n.AuthUserNotFound)
		return
	case errors.Is(err, auth.ErrPasswordMismatch):
		a.fail(w, r, http.StatusBadRequest, i18n.AuthPasswordMismatch)
		return
	case errors.Is(err, auth.ErrRequired):
		a.fail(w, r, http.StatusBadRequest, i18n.FormRequired, "field", field(err, auth.ErrRequired))
		return
	case err != nil:
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": i18n.T(a.lang(r), i18n.AuthPasswordReset)})
}

func (a *API) checkAuth(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(r)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          user,
		"rememberMe":    a.sessions.Remembered(r),
	})
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, getUserFromContext(r))
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.accounts.List(r.Context(), r.URL.Query().Get("q")))
}

// Language handlers

func (a *API) messages(w http.ResponseWriter, r *http.Request) {
	lang := a.lang(r)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lang":     lang,
		"messages": i18n.Catalog(lang),
	})
}

func (a *API) geolocationMessage(w http.ResponseWriter, r *http.Request) {
	code, _ := strconv.Atoi(chi.URLParam(r, "code"))
	respondJSON(w, http.StatusOK, map[string]string{"message": i18n.GeolocationMessage(a.lang(r), code)})
}

func (a *API) setLang(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lang string `json:"lang"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	lang, ok := i18n.Parse(req.Lang)
	if !ok {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidValue, "field", "lang")
		return
	}
	if err := a.sessions.SetLang(w, r, string(lang)); err != nil {
		logger.L().Error("session save failed", "err", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"lang": string(lang)})
}
