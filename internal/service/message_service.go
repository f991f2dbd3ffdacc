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
	"fmt"
	"time"

	"chatd/internal/access"
	"chatd/internal/entity"
	"chatd/internal/events"
	"chatd/internal/nlog"
	"chatd/internal/repository"

	"github.com/google/uuid"
)

// NewMessage is what a client submits to send a message. Optional fields are filled in by Send.
type NewMessage struct {
	MessageID   string               `json:"messageId"`
	SenderID    string               `json:"senderId"`
	ReceiverID  string               `json:"receiverId"`
	MessageType string               `json:"messageType"`
	Content     string               `json:"content"`
	Status      entity.MessageStatus `json:"status"`
	Reaction    *string              `json:"reaction"`
	Timestamp   *time.Time           `json:"timestamp"`
}

// Notifier is told about every message sent through the HTTP path, after it has been stored.
type Notifier interface {
	Notify(msg *entity.Message)
}

type MessageService interface {
	Send(ctx context.Context, in NewMessage) (*entity.Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]*entity.Message, error)
	History(ctx context.Context, user string) ([]*entity.Message, error)

	MarkSeen(ctx context.Context, receiver, fromUser string) (int64, error)
	UnreadCount(ctx context.Context, receiver string) (int64, error)
	Unread(ctx context.Context, receiver, fromUser string) ([]*entity.Message, error)

	SetReaction(ctx context.Context, messageID, reaction string) (int64, error)

	AuthorizeRangeDeletion(ctx context.Context, requester string) error
	DeleteByDateRange(ctx context.Context, requester string, start, end time.Time) (int64, error)
	PurgeAll(ctx context.Context) (int64, error)
	SeedDemoData(ctx context.Context) ([]*entity.Message, error)

	// Persist stores a message without notifying anyone. The socket path uses it.
	Persist(ctx context.Context, msg *entity.Message) error
}

type localMessageService struct {
	messageRepository repository.MessageRepository
	policy            access.Authorizer
	notifier          Notifier
	publisher         events.Publisher
	logger            nlog.Logger
	now               func() time.Time
}

func NewMessageService(messageRepo repository.MessageRepository, policy access.Authorizer, notifier Notifier, publisher events.Publisher, logger nlog.Logger) MessageService {
	if publisher == nil {
		publisher = events.NewNoop()
	}
	return &localMessageService{
		messageRepository: messageRepo,
		policy:            policy,
		notifier:          notifier,
		publisher:         publisher,
		logger:            logger,
		now:               time.Now,
	}
}

func (m *localMessageService) Logf(format string, v ...any) {
	m.logger.Logf(format, v...)
}

func (m *localMessageService) publish(ctx context.Context, evt events.Event) {
	evt.At = m.now().UTC()
	if err := m.publisher.Publish(ctx, evt); err != nil {
		m.Logf("Could not publish %s event {%v}", evt.Type, err)
	}
}

func (m *localMessageService) Send(ctx context.Context, in NewMessage) (*entity.Message, error) {
	if in.SenderID == "" || in.ReceiverID == "" || in.Content == "" {
		return nil, fmt.Errorf("%w: senderId, receiverId and content are required", ErrValidation)
	}

	message := &entity.Message{
		MessageID:   in.MessageID,
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		MessageType: in.MessageType,
		Content:     in.Content,
		Status:      entity.StatusSent,
		Reaction:    in.Reaction,
		Timestamp:   m.now().UTC(),
	}
	if message.MessageID == "" {
		message.MessageID = uuid.New().String()
	}
	if message.MessageType == "" {
		message.MessageType = "text"
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
		}
		message.Status = in.Status
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		message.Timestamp = in.Timestamp.UTC()
	}

	if err := m.messageRepository.Create(ctx, message); err != nil {
		m.Logf("Message creation failed {%v}", err)
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("Message %s stored {%s -> %s}", message.MessageID, message.SenderID, message.ReceiverID)

	m.publish(ctx, events.Event{
		Type:       events.MessageSent,
		MessageID:  message.MessageID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
	})
	if m.notifier != nil {
		m.notifier.Notify(message)
	}
	return message, nil
}

func (m *localMessageService) Persist(ctx context.Context, msg *entity.Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	if msg.Status == "" {
		msg.Status = entity.StatusSent
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now().UTC()
	}
	if err := m.messageRepository.Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return nil
}

func (m *localMessageService) Conversation(ctx context.Context, userA, userB string) ([]*entity.Message, error) {
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: both users are required", ErrValidation)
	}
	messages, err := m.messageRepository.Between(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("Found %d messages between %s and %s", len(messages), userA, userB)
	return messages, nil
}

func (m *localMessageService) History(ctx context.Context, user string) ([]*entity.Message, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	messages, err := m.messageRepository.Involving(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return messages, nil
}

// MarkSeen is idempotent: a second call with the same arguments updates nothing.
func (m *localMessageService) MarkSeen(ctx context.Context, receiver, fromUser string) (int64, error) {
	if receiver == "" {
		return 0, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	updated, err := m.messageRepository.MarkSeen(ctx, receiver, fromUser)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("Marked %d messages to %s as seen", updated, receiver)
	if updated > 0 {
		m.publish(ctx, events.Event{
			Type:       events.MessagesSeen,
			SenderID:   fromUser,
			ReceiverID: receiver,
			Actor:      receiver,
			Count:      updated,
		})
	}
	return updated, nil
}

func (m *localMessageService) UnreadCount(ctx context.Context, receiver string) (int64, error) {
	if receiver == "" {
		return 0, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	count, err := m.messageRepository.CountUnseen(ctx, receiver)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return count, nil
}

func (m *localMessageService) Unread(ctx context.Context, receiver, fromUser string) ([]*entity.Message, error) {
	if receiver == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	messages, err := m.messageRepository.Unseen(ctx, receiver, fromUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return messages, nil
}

func (m *localMessageService) SetReaction(ctx context.Context, messageID, reaction string) (int64, error) {
	if messageID == "" {
		return 0, fmt.Errorf("%w: messageId is required", ErrValidation)
	}
	updated, err := m.messageRepository.SetReaction(ctx, messageID, reaction)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	if updated == 0 {
		return 0, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	return updated, nil
}

// AuthorizeRangeDeletion fails with ErrAuthorization unless requester may delete by date range.
func (m *localMessageService) AuthorizeRangeDeletion(ctx context.Context, requester string) error {
	if !access.Allowed(ctx, m.policy, requester, access.DeleteMessageRange) {
		m.Logf("Range deletion refused for %q", requester)
		return fmt.Errorf("%w: %q may not delete messages", ErrAuthorization, requester)
	}
	return nil
}

// DeleteByDateRange removes every message whose timestamp lies in [start, end].
// The capability check comes first, so an unauthorized caller never touches the store.
func (m *localMessageService) DeleteByDateRange(ctx context.Context, requester string, start, end time.Time) (int64, error) {
	if err := m.AuthorizeRangeDeletion(ctx, requester); err != nil {
		return 0, err
	}
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("%w: startDate and endDate are required", ErrValidation)
	}
	if start.After(end) {
		return 0, fmt.Errorf("%w: startDate is after endDate", ErrValidation)
	}

	deleted, err := m.messageRepository.DeleteRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("%s deleted %d messages between %v and %v", requester, deleted, start, end)
	m.publish(ctx, events.Event{Type: events.MessagesDeleted, Actor: requester, Count: deleted})
	return deleted, nil
}

func (m *localMessageService) PurgeAll(ctx context.Context) (int64, error) {
	deleted, err := m.messageRepository.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("Purged %d messages", deleted)
	m.publish(ctx, events.Event{Type: events.MessagesPurged, Count: deleted})
	return deleted, nil
}

func (m *localMessageService) SeedDemoData(ctx context.Context) ([]*entity.Message, error) {
	thumbsUp := "👍"
	now := m.now().UTC()
	messages := []*entity.Message{
		{MessageID: "msg001", SenderID: "Asad", ReceiverID: "Kylie", MessageType: "text", Content: "Hey Kylie! How are you?", Status: entity.StatusDelivered, Timestamp: now},
		{MessageID: "msg002", SenderID: "Kylie", ReceiverID: "Asad", MessageType: "text", Content: "Hi Asad! I am good, thanks.", Status: entity.StatusDelivered, Reaction: &thumbsUp, Timestamp: now},
		{MessageID: "msg003", SenderID: "Asad", ReceiverID: "Kylie", MessageType: "text", Content: "Doing great!", Status: entity.StatusSeen, Timestamp: now},
	}
	if err := m.messageRepository.CreateMany(ctx, messages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	m.Logf("Seeded %d demo messages", len(messages))
	return messages, nil
}

