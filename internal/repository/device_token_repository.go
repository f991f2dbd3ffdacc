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
	"time"

	"chatd/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry of push tokens. Registration is an upsert keyed on (user, token), so repeating it is harmless.
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, userID, token string) error
	TokensFor(ctx context.Context, userID string) ([]string, error)
}

type SQLDeviceTokenRepository struct {
	db *gorm.DB
}

func NewSQLDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &SQLDeviceTokenRepository{db}
}

func (repo *SQLDeviceTokenRepository) Upsert(ctx context.Context, userID, token string) error {
	now := time.Now().UTC()
	row := entity.DeviceToken{UserID: userID, Token: token, CreatedAt: now, UpdatedAt: now}
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&row).Error
}

func (repo *SQLDeviceTokenRepository) TokensFor(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := repo.db.WithContext(ctx).Model(&entity.DeviceToken{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("token", &tokens).Error
	return tokens, err
}
