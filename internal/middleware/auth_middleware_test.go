/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatd/internal/access"

	"github.com/gorilla/sessions"
)

type MockAuthorizer map[string]bool

func (m MockAuthorizer) Can(subject string, _ access.Capability) bool { return m[subject] }

// loggedIn returns a request carrying a valid session cookie for userID.
func loggedIn(t *testing.T, store *sessions.CookieStore, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/seed", nil)
	rr := httptest.NewRecorder()
	session, _ := store.Get(req, SessionName)
	session.Values[SessionUserKey] = userID
	if err := session.Save(req, rr); err != nil {
		t.Fatalf("Could not save session: %v", err)
	}

	out := httptest.NewRequest("POST", "/seed", nil)
	for _, c := range rr.Result().Cookies() {
		out.AddCookie(c)
	}
	return out
}

func run(store sessions.Store, adminKey string, req *http.Request) (int, bool) {
	called := false
	h := Identify(store, adminKey, RequireCapability(MockAuthorizer{"Asad": true}, access.SeedData, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code, called
}

func TestRequireCapability(t *testing.T) {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	if code, called := run(store, "", loggedIn(t, store, "Asad")); !called || code != http.StatusOK {
		t.Errorf("Admin was refused. GOT[%d]", code)
	}
	if code, called := run(store, "", loggedIn(t, store, "Kylie")); called || code != http.StatusForbidden {
		t.Errorf("Wrong status for a plain user. GOT[%d], EXPECTED[%d]", code, http.StatusForbidden)
	}
	if code, called := run(store, "", httptest.NewRequest("POST", "/seed", nil)); called || code != http.StatusUnauthorized {
		t.Errorf("Wrong status without a session. GOT[%d], EXPECTED[%d]", code, http.StatusUnauthorized)
	}
}

func TestAdminKey(t *testing.T) {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest("POST", "/seed", nil)
	req.Header.Set(AdminKeyHeader, "secret")
	if _, called := run(store, "secret", req); !called {
		t.Errorf("A valid admin key was refused")
	}

	req = httptest.NewRequest("POST", "/seed", nil)
	req.Header.Set(AdminKeyHeader, "guess")
	if _, called := run(store, "secret", req); called {
		t.Errorf("A wrong admin key was accepted")
	}

	// No key configured means the header is ignored
	req = httptest.NewRequest("POST", "/seed", nil)
	req.Header.Set(AdminKeyHeader, "")
	if _, called := run(store, "", req); called {
		t.Errorf("An empty admin key was accepted")
	}
}

func TestCurrentUser(t *testing.T) {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	var got string
	h := Identify(store, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), loggedIn(t, store, "Kylie"))
	if got != "Kylie" {
		t.Errorf("Wrong current user. GOT[%s], EXPECTED[Kylie]", got)
	}
}
