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

	"chatd/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	CreateMany(ctx context.Context, users []*entity.User) (int64, error) // Existing user ids are skipped

	GetForLogin(ctx context.Context, userID string) (*entity.User, error) // Preloads the secret
	GetByUserID(ctx context.Context, userID string) (*entity.User, error)

	Update(ctx context.Context, userID string, fields map[string]any) (*entity.User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

type SQLUserRepository struct {
	db *gorm.DB
}

func NewSQLUserRepository(db *gorm.DB) UserRepository {
	return &SQLUserRepository{db}
}

func (repo *SQLUserRepository) Create(ctx context.Context, user *entity.User) error {
	return repo.db.WithContext(ctx).Create(user).Error
}

func (repo *SQLUserRepository) CreateMany(ctx context.Context, users []*entity.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	res := repo.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&users)
	return res.RowsAffected, res.Error
}

func (repo *SQLUserRepository) GetForLogin(ctx context.Context, userID string) (*entity.User, error) {
	var user entity.User
	if err := repo.db.WithContext(ctx).Preload("Secret").Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *SQLUserRepository) GetByUserID(ctx context.Context, userID string) (*entity.User, error) {
	var user entity.User
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies fields (column name -> value) to the user and returns the stored result.
// gorm.ErrRecordNotFound is returned when the user does not exist.
func (repo *SQLUserRepository) Update(ctx context.Context, userID string, fields map[string]any) (*entity.User, error) {
	var user entity.User
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *SQLUserRepository) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	secret := entity.UserSecret{UserID: userID, Hash: hash}
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"hash"}),
	}).Create(&secret).Error
}
