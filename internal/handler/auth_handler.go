/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"

	"chatd/internal/middleware"
	"chatd/internal/nlog"
	"chatd/internal/service"

	"github.com/gorilla/sessions"
)

type loginFields struct {
	UserID   string `json:"userId"`
	Username string `json:"username"` // Accepted as an alias of userId
	Password string `json:"password"`
}

type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	logger      nlog.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, logger nlog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		logger:      logger,
	}
}

// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginFields
	if err := decodeBody(r, &request); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := request.UserID
	if id == "" {
		id = request.Username
	}

	user, err := h.authService.Login(r.Context(), id, request.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, _ := h.store.Get(r, middleware.SessionName)
	session.Values[middleware.SessionUserKey] = user.UserID
	if err := sessions.Save(r, w); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, middleware.SessionName)
	session.Options.MaxAge = -1
	if err := sessions.Save(r, w); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /users
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.NewUser
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.authService.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

// POST /seed-users
func (h *AuthHandler) SeedUsers(w http.ResponseWriter, r *http.Request) {
	inserted, err := h.authService.SeedUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Users seeded",
		"inserted": inserted,
	})
}
