/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

type MessageStatus string

const (
	StatusFailed    MessageStatus = "failed"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// Valid reports whether s is one of the known delivery states.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusFailed, StatusSent, StatusDelivered, StatusSeen:
		return true
	}
	return false
}

// Message is a single chat record between two users.
// MessageID is the identifier exposed to clients, ID only orders records sharing the same timestamp.
type Message struct {
	ID          uint64        `gorm:"primaryKey;autoIncrement" json:"-"`
	MessageID   string        `gorm:"index" json:"messageId"`
	SenderID    string        `gorm:"not null;index" json:"senderId"`
	ReceiverID  string        `gorm:"not null;index" json:"receiverId"`
	MessageType string        `json:"messageType"`
	Content     string        `gorm:"not null" json:"content"`
	Timestamp   time.Time     `gorm:"not null;index" json:"timestamp"`
	Status      MessageStatus `gorm:"not null;index;default:sent" json:"status"`
	Reaction    *string       `json:"reaction"`
}
