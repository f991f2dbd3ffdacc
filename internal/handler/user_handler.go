/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"fmt"
	"io"
	"net/http"

	"chatd/internal/nlog"
	"chatd/internal/service"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService   service.UserService
	deviceService service.DeviceService
	logger        nlog.Logger
}

func NewUserHandler(userService service.UserService, deviceService service.DeviceService, logger nlog.Logger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		deviceService: deviceService,
		logger:        logger,
	}
}

// GET /users/{userId}
func (u *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := u.userService.Get(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, u.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// PATCH /users/{userId}
func (u *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, u.logger, fmt.Errorf("%w: could not read body", service.ErrValidation))
		return
	}
	user, err := u.userService.Update(r.Context(), mux.Vars(r)["userId"], body)
	if err != nil {
		writeError(w, u.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// POST /register-token
func (u *UserHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, u.logger, err)
		return
	}
	if err := u.deviceService.RegisterToken(r.Context(), in.UserID, in.Token); err != nil {
		writeError(w, u.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /ping and /keepalive
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
