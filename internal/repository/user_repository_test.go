/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"context"
	"errors"
	"testing"

	"chatd/internal/entity"

	"gorm.io/gorm"
)

func TestUserCreateManySkipsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLUserRepository(openTestDB(t))

	asad := &entity.User{UserID: "Asad", Username: "Asad", Secret: entity.UserSecret{UserID: "Asad", Hash: "h1"}}
	if err := repo.Create(ctx, asad); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	inserted, err := repo.CreateMany(ctx, []*entity.User{
		{UserID: "Asad", Username: "Other", Secret: entity.UserSecret{UserID: "Asad", Hash: "h2"}},
		{UserID: "Kylie", Username: "Kylie", Secret: entity.UserSecret{UserID: "Kylie", Hash: "h3"}},
	})
	if err != nil {
		t.Fatalf("CreateMany failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("Wrong inserted count. GOT[%d], EXPECTED[1]", inserted)
	}

	u, err := repo.GetForLogin(ctx, "Asad")
	if err != nil {
		t.Fatalf("GetForLogin failed: %v", err)
	}
	if u.Username != "Asad" || u.Secret.Hash != "h1" {
		t.Errorf("Existing user was overwritten. GOT[%s/%s]", u.Username, u.Secret.Hash)
	}
}

func TestUserUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLUserRepository(openTestDB(t))
	repo.Create(ctx, &entity.User{UserID: "Kylie", Username: "Kylie", Secret: entity.UserSecret{UserID: "Kylie", Hash: "h"}})

	u, err := repo.Update(ctx, "Kylie", map[string]any{"email": "kylie@example.com"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if u.Email != "kylie@example.com" {
		t.Errorf("Wrong email. GOT[%s], EXPECTED[kylie@example.com]", u.Email)
	}

	if _, err := repo.Update(ctx, "Nobody", map[string]any{"email": "x"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Expected record not found, got %v", err)
	}

	if err := repo.UpdatePasswordHash(ctx, "Kylie", "new"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}
	u, _ = repo.GetForLogin(ctx, "Kylie")
	if u.Secret.Hash != "new" {
		t.Errorf("Wrong hash. GOT[%s], EXPECTED[new]", u.Secret.Hash)
	}
}

func TestDeviceTokensUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLDeviceTokenRepository(openTestDB(t))

	repo.Upsert(ctx, "Kylie", "phone")
	repo.Upsert(ctx, "Kylie", "tablet")
	repo.Upsert(ctx, "Kylie", "phone")
	repo.Upsert(ctx, "Asad", "laptop")

	tokens, err := repo.TokensFor(ctx, "Kylie")
	if err != nil {
		t.Fatalf("TokensFor failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("Wrong number of tokens. GOT[%d], EXPECTED[2]", len(tokens))
	}
	if none, _ := repo.TokensFor(ctx, "Bob"); len(none) != 0 {
		t.Errorf("Unexpected tokens for Bob")
	}
}
