/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"chatd/internal/entity"
	"chatd/internal/repository"
	"fmt"

	"gorm.io/gorm"
)

// Storage manager gathers all the repositories needed for the chat system in a single container.
type StorageManager struct {
	db *gorm.DB

	// Repositories
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	tokenRepo   repository.DeviceTokenRepository
}

// NewStorageManager migrates the schema on db and builds the repositories on top of it.
func NewStorageManager(db *gorm.DB) (*StorageManager, error) {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.UserSecret{},
		&entity.Message{},
		&entity.DeviceToken{},
	); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return &StorageManager{
		db:          db,
		userRepo:    repository.NewSQLUserRepository(db),
		messageRepo: repository.NewSQLMessageRepository(db),
		tokenRepo:   repository.NewSQLDeviceTokenRepository(db),
	}, nil
}

// OpenStorage is OpenDB followed by NewStorageManager.
func OpenStorage(dsn string) (*StorageManager, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	s, err := NewStorageManager(db)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	return s, nil
}

func (s *StorageManager) GetUserRepository() repository.UserRepository {
	return s.userRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

func (s *StorageManager) GetDeviceTokenRepository() repository.DeviceTokenRepository {
	return s.tokenRepo
}

func (s *StorageManager) Close() error {
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
