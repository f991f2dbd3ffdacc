/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatd/internal/entity"
	"chatd/internal/nlog"
)

// Notification is one multicast request: the same title and body delivered to every token.
type Notification struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

type BatchResult struct {
	SuccessCount int
	FailureCount int
}

// Sender delivers a multicast notification to the push service.
type Sender interface {
	SendMulticast(ctx context.Context, n Notification) (*BatchResult, error)
}

// TokenSource resolves the device tokens of a user.
type TokenSource interface {
	TokensFor(ctx context.Context, userID string) ([]string, error)
}

// Notifier dispatches push notifications for stored messages on a background worker.
// Notify never waits for the push service, and failures are only logged.
type Notifier struct {
	tokens  TokenSource
	sender  Sender
	logger  nlog.Logger
	timeout time.Duration

	lock   sync.RWMutex
	closed bool
	tasks  chan entity.Message
	done   chan struct{}
}

func NewNotifier(tokens TokenSource, sender Sender, logger nlog.Logger, queueSize int, timeout time.Duration) *Notifier {
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &Notifier{
		tokens:  tokens,
		sender:  sender,
		logger:  logger,
		timeout: timeout,
		tasks:   make(chan entity.Message, queueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) Logf(format string, v ...any) {
	n.logger.Logf(format, v...)
}

// Notify queues a notification for msg. When the queue is full or the notifier is closed the task is dropped.
func (n *Notifier) Notify(msg *entity.Message) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if n.closed {
		n.Logf("Notifier closed, dropping push for message {%s}", msg.MessageID)
		return
	}
	select {
	case n.tasks <- *msg:
	default:
		n.Logf("Push queue full, dropping push for message {%s}", msg.MessageID)
	}
}

// Close stops accepting tasks and waits for the queued ones to be dispatched.
func (n *Notifier) Close() {
	n.lock.Lock()
	if !n.closed {
		n.closed = true
		close(n.tasks)
	}
	n.lock.Unlock()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.tasks {
		n.dispatch(msg)
	}
}

func (n *Notifier) dispatch(msg entity.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	tokens, err := n.tokens.TokensFor(ctx, msg.ReceiverID)
	if err != nil {
		n.Logf("Could not load device tokens of {%s}: %v", msg.ReceiverID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	res, err := n.sender.SendMulticast(ctx, notificationFor(msg, tokens))
	if err != nil {
		n.Logf("Push to {%s} failed (%d tokens): %v", msg.ReceiverID, len(tokens), err)
		return
	}
	n.Logf("Push to {%s} sent: %d ok, %d failed", msg.ReceiverID, res.SuccessCount, res.FailureCount)
}

func notificationFor(msg entity.Message, tokens []string) Notification {
	return Notification{
		Tokens: tokens,
		Title:  fmt.Sprintf("New message from %s", msg.SenderID),
		Body:   msg.Content,
		Data: map[string]string{
			"messageId": msg.MessageID,
			"senderId":  msg.SenderID,
		},
	}
}
