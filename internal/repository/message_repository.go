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
)

// This repository holds the chat messages. Reads are always ordered by (timestamp, id) ascending,
// so that replay of a conversation is stable even when two sends share a timestamp.
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error        // Inserts a single message
	CreateMany(ctx context.Context, messages []*entity.Message) error // Bulk insert, used for seeding

	Between(ctx context.Context, userA, userB string) ([]*entity.Message, error) // Both directions of a conversation
	Involving(ctx context.Context, user string) ([]*entity.Message, error)       // Every message sent or received by user

	Unseen(ctx context.Context, receiver, sender string) ([]*entity.Message, error) // sender may be empty
	CountUnseen(ctx context.Context, receiver string) (int64, error)
	MarkSeen(ctx context.Context, receiver, sender string) (int64, error) // sender may be empty

	SetReaction(ctx context.Context, messageID, reaction string) (int64, error)

	DeleteRange(ctx context.Context, start, end time.Time) (int64, error) // Inclusive on both bounds
	DeleteAll(ctx context.Context) (int64, error)
}

type SQLMessageRepository struct {
	db *gorm.DB
}

func NewSQLMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLMessageRepository{db}
}

const chronological = "timestamp ASC, id ASC"

func (repo *SQLMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	return repo.db.WithContext(ctx).Create(message).Error
}

func (repo *SQLMessageRepository) CreateMany(ctx context.Context, messages []*entity.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return repo.db.WithContext(ctx).Create(&messages).Error
}

func (repo *SQLMessageRepository) Between(ctx context.Context, userA, userB string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order(chronological).
		Find(&messages).Error
	return messages, err
}

func (repo *SQLMessageRepository) Involving(ctx context.Context, user string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", user, user).
		Order(chronological).
		Find(&messages).Error
	return messages, err
}

// unseen scopes a query to the messages addressed to receiver that are not seen yet.
// Any status other than seen qualifies, failed included.
func (repo *SQLMessageRepository) unseen(ctx context.Context, receiver, sender string) *gorm.DB {
	tx := repo.db.WithContext(ctx).Model(&entity.Message{}).
		Where("receiver_id = ? AND status <> ?", receiver, entity.StatusSeen)
	if sender != "" {
		tx = tx.Where("sender_id = ?", sender)
	}
	return tx
}

func (repo *SQLMessageRepository) Unseen(ctx context.Context, receiver, sender string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.unseen(ctx, receiver, sender).Order(chronological).Find(&messages).Error
	return messages, err
}

func (repo *SQLMessageRepository) CountUnseen(ctx context.Context, receiver string) (int64, error) {
	var count int64
	err := repo.unseen(ctx, receiver, "").Count(&count).Error
	return count, err
}

func (repo *SQLMessageRepository) MarkSeen(ctx context.Context, receiver, sender string) (int64, error) {
	res := repo.unseen(ctx, receiver, sender).Update("status", entity.StatusSeen)
	return res.RowsAffected, res.Error
}

func (repo *SQLMessageRepository) SetReaction(ctx context.Context, messageID, reaction string) (int64, error) {
	res := repo.db.WithContext(ctx).Model(&entity.Message{}).
		Where("message_id = ?", messageID).
		Update("reaction", reaction)
	return res.RowsAffected, res.Error
}

func (repo *SQLMessageRepository) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start.UTC(), end.UTC()).
		Delete(&entity.Message{})
	return res.RowsAffected, res.Error
}

func (repo *SQLMessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := repo.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.Message{})
	return res.RowsAffected, res.Error
}
