/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"chatd/internal/entity"
	"chatd/internal/nlog"
	"chatd/internal/push"
	"chatd/internal/repository"

	"gorm.io/gorm"
)

// MockLateUserRepository never sees an existing user on lookup,
// as if the other registration landed between the lookup and the insert.
type MockLateUserRepository struct {
	repository.UserRepository
}

func (m MockLateUserRepository) GetByUserID(ctx context.Context, userID string) (*entity.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestLoginOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auth.SeedUsers(ctx)

	u, err := f.auth.Login(ctx, "Kylie", "1995")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.UserID != "Kylie" || u.Username != "Kylie" {
		t.Errorf("Wrong user. GOT[%s/%s], EXPECTED[Kylie/Kylie]", u.UserID, u.Username)
	}
	if u.Secret.Hash == "1995" {
		t.Errorf("Password stored in plaintext")
	}

	if _, err := f.auth.Login(ctx, "Kylie", "wrong"); !errors.Is(err, ErrAuthentication) {
		t.Errorf("Expected an authentication error, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "Nobody", "1995"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSeedUsersTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.auth.SeedUsers(ctx)
	if err != nil || first != 2 {
		t.Errorf("Wrong first seed. GOT[%d, %v], EXPECTED[2, nil]", first, err)
	}
	second, err := f.auth.SeedUsers(ctx)
	if err != nil || second != 0 {
		t.Errorf("Wrong second seed. GOT[%d, %v], EXPECTED[0, nil]", second, err)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, NewUser{UserID: "bob", Password: "pw", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.Username != "bob" {
		t.Errorf("Username should default to the id. GOT[%s]", u.Username)
	}
	if _, err := f.auth.Register(ctx, NewUser{UserID: "bob", Password: "pw"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation error for a duplicate, got %v", err)
	}
	if _, err := f.auth.Register(ctx, NewUser{UserID: "eve"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation error without password, got %v", err)
	}
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, NewUser{UserID: "bob", Password: "pw"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	late := NewAuthService(MockLateUserRepository{f.storage.GetUserRepository()}, nil, nlog.Nop())
	_, err := late.Register(ctx, NewUser{UserID: "bob", Password: "other"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Wrong error for a duplicate insert. GOT[%v], EXPECTED[%v]", err, ErrValidation)
	}
	if _, err := f.auth.Login(ctx, "bob", "pw"); err != nil {
		t.Errorf("The first registration should still hold: %v", err)
	}
}

func TestUserUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auth.SeedUsers(ctx)

	users, err := NewUserService(f.storage.GetUserRepository(), nlog.Nop())
	if err != nil {
		t.Fatalf("NewUserService failed: %v", err)
	}

	u, err := users.Update(ctx, "Kylie", []byte(`{"email":"kylie@example.com","profileImage":"k.png","password":"new"}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if u.Email != "kylie@example.com" || u.ProfileImage == nil || *u.ProfileImage != "k.png" {
		t.Errorf("Update was not applied")
	}
	if _, err := f.auth.Login(ctx, "Kylie", "new"); err != nil {
		t.Errorf("New password was not stored: %v", err)
	}

	if _, err := users.Update(ctx, "Kylie", []byte(`{"userId":"someone-else"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation error for an unknown field, got %v", err)
	}
	if _, err := users.Update(ctx, "Nobody", []byte(`{"email":"x"}`)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestRegisterToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	devices := NewDeviceService(f.storage.GetDeviceTokenRepository(), nlog.Nop())

	if err := devices.RegisterToken(ctx, "Kylie", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation error, got %v", err)
	}
	devices.RegisterToken(ctx, "Kylie", "phone")
	devices.RegisterToken(ctx, "Kylie", "phone")
	tokens, _ := f.storage.GetDeviceTokenRepository().TokensFor(ctx, "Kylie")
	if len(tokens) != 1 {
		t.Errorf("Wrong number of tokens. GOT[%d], EXPECTED[1]", len(tokens))
	}
}

type MockSender struct {
	lock    sync.Mutex
	batches []push.Notification
}

func (m *MockSender) SendMulticast(_ context.Context, n push.Notification) (*push.BatchResult, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.batches = append(m.batches, n)
	return &push.BatchResult{SuccessCount: len(n.Tokens)}, nil
}

func TestTwoDevicesOnePush(t *testing.T) {
	storage := openStorage(t)
	ctx := context.Background()
	tokens := storage.GetDeviceTokenRepository()
	devices := NewDeviceService(tokens, nlog.Nop())

	for _, token := range []string{"phone", "tablet", "phone"} {
		if err := devices.RegisterToken(ctx, "Kylie", token); err != nil {
			t.Fatalf("RegisterToken(%s) failed: %v", token, err)
		}
	}

	sender := &MockSender{}
	notifier := push.NewNotifier(tokens, sender, nlog.Nop(), 8, 0)
	messages := NewMessageService(storage.GetMessageRepository(), MockAuthorizer{}, notifier, nil, nlog.Nop())

	if _, err := messages.Send(ctx, NewMessage{SenderID: "Asad", ReceiverID: "Kylie", Content: "hi"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	notifier.Close()

	if len(sender.batches) != 1 {
		t.Fatalf("Wrong number of pushes. GOT[%d], EXPECTED[1]", len(sender.batches))
	}
	got := slices.Clone(sender.batches[0].Tokens)
	slices.Sort(got)
	if !slices.Equal(got, []string{"phone", "tablet"}) {
		t.Errorf("Wrong tokens. GOT[%v], EXPECTED[[phone tablet]]", got)
	}
	if sender.batches[0].Title != "New message from Asad" {
		t.Errorf("Wrong title. GOT[%s]", sender.batches[0].Title)
	}
}
