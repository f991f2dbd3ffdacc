/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"chatd/internal/access"

	"github.com/gorilla/sessions"
)

const (
	SessionName    = "chat-session"
	SessionUserKey = "user_id"
	AdminKeyHeader = "X-Admin-Key"
)

type userKey struct{}

// CurrentUser returns the user id bound to the request by Identify, or "" when nobody is logged in.
func CurrentUser(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

// Identify reads the login session and, if any, binds the user id to the request context.
// A request carrying the configured admin key is also marked as an operator request.
// It never rejects a request, guarded routes use RequireCapability.
func Identify(store sessions.Store, adminKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if session, err := store.Get(r, SessionName); err == nil {
			if id, ok := session.Values[SessionUserKey].(string); ok && id != "" {
				ctx = context.WithValue(ctx, userKey{}, id)
			}
		}
		if validAdminKey(adminKey, r.Header.Get(AdminKeyHeader)) {
			ctx = access.AsOperator(ctx)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validAdminKey(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// RequireCapability lets the request through only if its user (or an operator) holds c.
func RequireCapability(a access.Authorizer, c access.Capability, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if access.Allowed(r.Context(), a, CurrentUser(r), c) {
			next(w, r)
			return
		}

		status, msg := http.StatusForbidden, "Not allowed"
		if CurrentUser(r) == "" && !access.IsOperator(r.Context()) {
			status, msg = http.StatusUnauthorized, "Login required"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   msg,
		})
	}
}
