/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package app

import (
	"context"
	"fmt"

	"chatd/internal/access"
	"chatd/internal/config"
	"chatd/internal/data"
	"chatd/internal/events"
	"chatd/internal/input"
	"chatd/internal/nlog"
	"chatd/internal/push"
	"chatd/internal/realtime"
	"chatd/internal/realtime/relay"
	"chatd/internal/service"
)

// A ChatServer holds the components of one chat server instance together
type ChatServer struct {
	cfg *config.Config

	logger  *nlog.ServerLogger
	storage *data.StorageManager

	messageService service.MessageService
	authService    service.AuthService

	notifier  *push.Notifier
	sender    push.Sender
	publisher events.Publisher
	relay     relay.Relay
	hub       *realtime.Hub
	input     *input.InputManager
}

func loggerOptions(cfg *config.Config) nlog.Options {
	return nlog.Options{
		Enabled:    cfg.Log.Enabled,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
}

func seedUsers(cfg *config.Config) []service.NewUser {
	users := make([]service.NewUser, 0, len(cfg.Seed.Users))
	for _, u := range cfg.Seed.Users {
		users = append(users, service.NewUser{UserID: u.UserID, Username: u.Username, Password: u.Password})
	}
	return users
}

// NewChatServer wires every component from cfg. Nothing is started until Run.
func NewChatServer(cfg *config.Config) (*ChatServer, error) {
	logger := nlog.NewServerLogger(loggerOptions(cfg))
	s := &ChatServer{cfg: cfg, logger: logger}

	logger.Logf("server", "Opening storage")
	storage, err := data.OpenStorage(cfg.Database.DSN)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("could not open storage: %w", err)
	}
	s.storage = storage

	policy, err := access.NewPolicy(cfg.Admin.Users)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.publisher = events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic, logger.RegisterSubsystem("events"))

	pushLogger := logger.RegisterSubsystem("push")
	if cfg.Push.GatewayAddr != "" {
		gw, err := push.DialGateway(cfg.Push.GatewayAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not reach the push gateway: %w", err)
		}
		s.sender = gw
	} else {
		s.sender = push.NewLogSender(pushLogger)
	}
	s.notifier = push.NewNotifier(storage.GetDeviceTokenRepository(), s.sender, pushLogger, cfg.Push.QueueSize, cfg.Push.Timeout)

	s.messageService = service.NewMessageService(storage.GetMessageRepository(), policy, s.notifier, s.publisher, logger.RegisterSubsystem("messages"))
	s.authService = service.NewAuthService(storage.GetUserRepository(), seedUsers(cfg), logger.RegisterSubsystem("auth"))
	userService, err := service.NewUserService(storage.GetUserRepository(), logger.RegisterSubsystem("users"))
	if err != nil {
		s.Close()
		return nil, err
	}

	s.hub = realtime.NewHub(logger.RegisterSubsystem("realtime"), cfg.Realtime.SendBuffer)
	if cfg.Realtime.Persist {
		s.hub.SetPersister(s.messageService, cfg.Realtime.Room)
	}
	if err := s.setupRelay(); err != nil {
		s.Close()
		return nil, err
	}

	s.input = input.NewInputManager()
	s.input.SetLogger(logger.RegisterSubsystem("http"))
	s.input.SetMessageService(s.messageService)
	s.input.SetAuthService(s.authService)
	s.input.SetUserService(userService)
	s.input.SetDeviceService(service.NewDeviceService(storage.GetDeviceTokenRepository(), logger.RegisterSubsystem("devices")))
	s.input.SetAuthorizer(policy)
	s.input.SetHub(s.hub)

	logger.Logf("server", "Chat server is all set")
	return s, nil
}

func (s *ChatServer) setupRelay() error {
	relayLogger := s.logger.RegisterSubsystem("relay")
	switch s.cfg.Relay.Mode {
	case config.RelayZMQ:
		r, err := relay.NewZMQRelay(s.cfg.Relay.ZMQ.BindPort, s.cfg.Relay.ZMQ.Peers, relayLogger)
		if err != nil {
			return fmt.Errorf("could not start the zmq relay: %w", err)
		}
		s.relay = r
	case config.RelayRedis:
		r := s.cfg.Relay.Redis
		s.relay = relay.NewRedisRelay(r.Addr, r.Password, r.DB, r.Channel, relayLogger)
	default:
		return nil
	}
	s.hub.SetRelay(s.relay, s.cfg.Relay.InstanceID)
	relayLogger.Logf("Relay %s enabled as instance %s", s.cfg.Relay.Mode, s.hub.InstanceID())
	return nil
}

// Run serves HTTP and websocket traffic until ctx is done or the server fails.
func (s *ChatServer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.logger.Run(ctx)

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := s.hub.RunRelay(ctx); err != nil {
			s.logger.Logf("relay", "Relay stopped {%v}", err)
		}
	}()
	// The relay sockets are released by Close, once the receive loop is over
	defer func() {
		cancel()
		<-relayDone
	}()

	return s.input.Run(ctx, &input.IptConfig{
		ServerPort:    s.cfg.HTTP.Port,
		ReadTimeout:   s.cfg.HTTP.ReadTimeout,
		WriteTimeout:  s.cfg.HTTP.WriteTimeout,
		SecretKey:     s.cfg.Session.SecretKey,
		SessionMaxAge: s.cfg.Session.MaxAge,
		SecureCookie:  s.cfg.Session.Secure,
		AdminKey:      s.cfg.Admin.APIKey,
	})
}

// SetPause toggles the maintenance mode of the HTTP input.
func (s *ChatServer) SetPause(paused bool) {
	s.input.SetPause(paused)
}

// Seed inserts the configured users and, when withMessages is set, the demo conversation.
func (s *ChatServer) Seed(ctx context.Context, withMessages bool) (int64, int, error) {
	users, err := s.authService.SeedUsers(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !withMessages {
		return users, 0, nil
	}
	messages, err := s.messageService.SeedDemoData(ctx)
	if err != nil {
		return users, 0, err
	}
	return users, len(messages), nil
}

// Close releases every component. Queued push notifications are delivered first.
func (s *ChatServer) Close() error {
	if s.notifier != nil {
		s.notifier.Close()
	}
	if closer, ok := s.sender.(interface{ Close() error }); ok {
		closer.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.relay != nil {
		s.relay.Close()
	}
	var err error
	if s.storage != nil {
		err = s.storage.Close()
	}
	s.logger.Close()
	return err
}
