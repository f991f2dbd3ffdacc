/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"chatd/internal/access"
	"chatd/internal/handler"
	"chatd/internal/middleware"
	"chatd/internal/nlog"
	"chatd/internal/realtime"
	"chatd/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type IptConfig struct {
	ServerPort    uint16
	ReadTimeout   int64 // seconds
	WriteTimeout  int64 // seconds
	SecretKey     string
	SessionMaxAge time.Duration
	SecureCookie  bool
	AdminKey      string
}

type InputManager struct { // Manages the HTTP and websocket input of the chat server
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}

	messageService service.MessageService
	authService    service.AuthService
	userService    service.UserService
	deviceService  service.DeviceService
	authorizer     access.Authorizer
	hub            *realtime.Hub
}

func NewInputManager() *InputManager {
	return &InputManager{
		running:             atomic.Bool{},
		paused:              atomic.Bool{},
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.messageService != nil && i.authService != nil &&
		i.userService != nil && i.deviceService != nil && i.authorizer != nil && i.hub != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

func (i *InputManager) SetMessageService(ms service.MessageService) {
	i.messageService = ms
}

func (i *InputManager) SetAuthService(as service.AuthService) {
	i.authService = as
}

func (i *InputManager) SetUserService(us service.UserService) {
	i.userService = us
}

func (i *InputManager) SetDeviceService(ds service.DeviceService) {
	i.deviceService = ds
}

func (i *InputManager) SetAuthorizer(a access.Authorizer) {
	i.authorizer = a
}

func (i *InputManager) SetHub(h *realtime.Hub) {
	i.hub = h
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

// SetPause makes every route answer 503 until it is called again with false.
func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.IsPaused() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"success":false,"error":"Server is under maintenance"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newCookieStore(cfg *IptConfig) *sessions.CookieStore {
	key := []byte(cfg.SecretKey)
	if len(key) == 0 {
		// Sessions will not survive a restart
		key = securecookie.GenerateRandomKey(32)
	}
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	cookieStore := sessions.NewCookieStore(key)
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	return cookieStore
}

// Handler builds the complete route table, wrapped in the pause, session and tracing middlewares.
func (i *InputManager) Handler(cfg *IptConfig) http.Handler {
	cookieStore := newCookieStore(cfg)

	// Handlers
	messageHandler := handler.NewMessageHandler(i.messageService, i.logger)
	authHandler := handler.NewAuthHandler(i.authService, cookieStore, i.logger)
	userHandler := handler.NewUserHandler(i.userService, i.deviceService, i.logger)
	admin := func(c access.Capability, h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireCapability(i.authorizer, c, h)
	}

	// Router
	r := mux.NewRouter()

	// Liveness
	r.HandleFunc("/ping", handler.Health).Methods("GET")
	r.HandleFunc("/keepalive", handler.Health).Methods("GET")

	// Authentication and users
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	r.HandleFunc("/users", authHandler.Register).Methods("POST")
	r.HandleFunc("/users/{userId}", userHandler.Get).Methods("GET")
	r.HandleFunc("/users/{userId}", userHandler.Update).Methods("PATCH")
	r.HandleFunc("/register-token", userHandler.RegisterToken).Methods("POST")

	// Messages, fixed paths first so that they are not taken for a user
	r.HandleFunc("/messages", messageHandler.Send).Methods("POST")
	r.HandleFunc("/messages", messageHandler.Conversation).Methods("GET")
	r.HandleFunc("/messages", admin(access.PurgeMessages, messageHandler.Purge)).Methods("DELETE")
	r.HandleFunc("/messages/mark-seen", messageHandler.MarkSeen).Methods("PATCH")
	r.HandleFunc("/messages/unread", messageHandler.Unread).Methods("GET")
	r.HandleFunc("/messages/unread-count", messageHandler.UnreadCount).Methods("GET")
	r.HandleFunc("/messages/by-date", messageHandler.DeleteByDate).Methods("DELETE")
	r.HandleFunc("/messages/{messageId}/reaction", messageHandler.SetReaction).Methods("PATCH")
	r.HandleFunc("/messages/{user}", messageHandler.History).Methods("GET")

	// Maintenance
	r.HandleFunc("/seed", admin(access.SeedData, messageHandler.Seed)).Methods("POST")
	r.HandleFunc("/seed-users", admin(access.SeedData, authHandler.SeedUsers)).Methods("POST")

	// Realtime
	r.HandleFunc("/ws", i.hub.ServeWS).Methods("GET")

	var h http.Handler = middleware.Identify(cookieStore, cfg.AdminKey, r)
	h = i.PauseMiddleware(h)
	return otelhttp.NewHandler(h, "chatd",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/ws" }),
	)
}

func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	i.Logf("Input service started...")

	if !i.IsReady() {
		return fmt.Errorf("The Input manager is not ready... Missing components")
	}

	i.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:        i.Handler(cfg),
		ReadTimeout:    time.Duration(cfg.ReadTimeout * int64(time.Second)),
		WriteTimeout:   time.Duration(cfg.WriteTimeout * int64(time.Second)),
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		select {
		case <-ctx.Done():
			i.Logf("Received stop signal. Shutting down...")
		case <-i.stopFromOutsideChan:
			i.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
		// Hijacked websocket connections are not tracked by Shutdown
		i.hub.Shutdown()
		close(i.doneFromInsideChan)
	}()

	i.running.Store(true)
	i.Logf("Http server starting on port {%d}", cfg.ServerPort)

	if err := i.server.ListenAndServe(); err != http.ErrServerClosed {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		i.running.Store(false)
		return err
	}

	<-i.doneFromInsideChan
	i.running.Store(false)
	return nil
}

// Stop asks a running server to shut down and waits for it.
func (i *InputManager) Stop() {
	select {
	case <-i.stopFromOutsideChan:
	default:
		close(i.stopFromOutsideChan)
	}
	<-i.doneFromInsideChan
	i.running.Store(false)
}
