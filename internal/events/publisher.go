/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package events

import (
	"context"
	"encoding/json"
	"time"

	"chatd/internal/nlog"

	kafka "github.com/segmentio/kafka-go"
)

const (
	MessageSent     = "message.sent"
	MessagesSeen    = "messages.seen"
	MessagesDeleted = "messages.deleted"
	MessagesPurged  = "messages.purged"
)

// Event describes a change in the message lifecycle.
type Event struct {
	Type       string    `json:"type"`
	At         time.Time `json:"at"`
	MessageID  string    `json:"messageId,omitempty"`
	SenderID   string    `json:"senderId,omitempty"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Count      int64     `json:"count,omitempty"`
}

// Publisher emits lifecycle events. Implementations must not block the caller on the broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type Noop struct{}

func NewNoop() *Noop                                  { return &Noop{} }
func (n *Noop) Publish(context.Context, Event) error { return nil }
func (n *Noop) Close() error                         { return nil }

type kafkaPublisher struct {
	w *kafka.Writer
}

// NewKafka returns an asynchronous kafka writer on topic. Delivery errors are reported to logger.
// With no brokers it returns a Noop.
func NewKafka(brokers []string, topic string, logger nlog.Logger) Publisher {
	if len(brokers) == 0 {
		return NewNoop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Logf("Could not deliver %d lifecycle events {%v}", len(messages), err)
			}
		},
	}
	logger.Logf("Lifecycle events enabled: brokers=%v topic=%s", brokers, topic)
	return &kafkaPublisher{w: w}
}

func (k *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := toKafkaMessage(evt)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, msg)
}

func (k *kafkaPublisher) Close() error {
	return k.w.Close()
}

// Events of one receiver share a key, so they land on the same partition in order.
func toKafkaMessage(evt Event) (kafka.Message, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	key := evt.ReceiverID
	if key == "" {
		key = evt.Actor
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  evt.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}, nil
}
