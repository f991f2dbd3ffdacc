/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chatd/internal/entity"
	"chatd/internal/nlog"
	"chatd/internal/realtime/relay"

	"github.com/google/uuid"
)

const (
	EventSetUsername = "setUsername"
	EventChatMessage = "chat:message"
	EventChatTyping  = "chat:typing"

	AnonymousName = "Anonymous"

	// Wall-clock time of day attached to every broadcast chat message
	TimeLayout = "3:04:05 PM"
)

// Frame is the JSON unit exchanged on a socket: {"event": "...", "data": ...}
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ChatPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

type TypingPayload struct {
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

// Persister stores chat messages received on a socket before they are broadcast.
type Persister interface {
	Persist(ctx context.Context, msg *entity.Message) error
}

// Conn is the hub-side context of a live connection. Its name is only changed through Hub.SetName.
type Conn struct {
	id   string
	send chan []byte

	lock sync.RWMutex
	name string
}

func (c *Conn) ID() string { return c.id }

// Name returns the bound display name, or Anonymous if none was set.
func (c *Conn) Name() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.name == "" {
		return AnonymousName
	}
	return c.name
}

// Outbound yields the encoded frames addressed to this connection. It is closed on disconnect.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Hub keeps the live connections and fans chat and typing events out to them.
type Hub struct {
	lock  sync.RWMutex
	conns map[string]*Conn

	instanceID string
	sendBuffer int
	room       string

	persister Persister
	relay     relay.Relay

	logger nlog.Logger
	now    func() time.Time
}

func NewHub(logger nlog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}
	return &Hub{
		conns:      make(map[string]*Conn),
		instanceID: uuid.New().String(),
		sendBuffer: sendBuffer,
		room:       "all",
		logger:     logger,
		now:        time.Now,
	}
}

func (h *Hub) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

// SetPersister makes the hub store every chat message, addressed to room, before broadcasting it.
func (h *Hub) SetPersister(p Persister, room string) {
	h.persister = p
	if room != "" {
		h.room = room
	}
}

func (h *Hub) SetRelay(r relay.Relay, instanceID string) {
	h.relay = r
	if instanceID != "" {
		h.instanceID = instanceID
	}
}

func (h *Hub) InstanceID() string { return h.instanceID }

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.conns)
}

// Connect registers a new anonymous connection.
func (h *Hub) Connect() *Conn {
	c := &Conn{
		id:   uuid.New().String(),
		send: make(chan []byte, h.sendBuffer),
	}
	h.lock.Lock()
	h.conns[c.id] = c
	h.lock.Unlock()
	h.Logf("Connection %s opened", c.id)
	return c
}

// Disconnect removes c and closes its outbound queue. Calling it twice is harmless.
func (h *Hub) Disconnect(c *Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.conns[c.id]; !ok {
		return
	}
	delete(h.conns, c.id)
	close(c.send)
	h.Logf("Connection %s closed", c.id)
}

// Shutdown disconnects every connection.
func (h *Hub) Shutdown() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for id, c := range h.conns {
		delete(h.conns, id)
		close(c.send)
	}
}

// SetName binds a display name to c for the rest of its lifetime. No uniqueness is enforced.
func (h *Hub) SetName(c *Conn, name string) {
	c.lock.Lock()
	c.name = name
	c.lock.Unlock()
}

// BroadcastMessage sends {user, text, time} to every connection, c included.
// With a persister the message is stored first; if that fails nothing is broadcast.
func (h *Hub) BroadcastMessage(ctx context.Context, c *Conn, text string) error {
	name := c.Name()
	now := h.now()

	if h.persister != nil {
		msg := &entity.Message{
			MessageID:   uuid.New().String(),
			SenderID:    name,
			ReceiverID:  h.room,
			MessageType: "text",
			Content:     text,
			Timestamp:   now.UTC(),
			Status:      entity.StatusSent,
		}
		if err := h.persister.Persist(ctx, msg); err != nil {
			h.Logf("Could not store message from %s, broadcast suppressed: %v", c.id, err)
			return err
		}
	}

	payload := ChatPayload{User: name, Text: text, Time: now.Format(TimeLayout)}
	return h.emit(ctx, EventChatMessage, payload, "")
}

// BroadcastTyping sends {user, isTyping} to every connection except c.
func (h *Hub) BroadcastTyping(ctx context.Context, c *Conn, isTyping bool) error {
	payload := TypingPayload{User: c.Name(), IsTyping: isTyping}
	return h.emit(ctx, EventChatTyping, payload, c.id)
}

func (h *Hub) emit(ctx context.Context, event string, payload any, except string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return err
	}
	h.deliver(frame, except)

	if h.relay != nil {
		env := relay.Envelope{Origin: h.instanceID, Event: event, Data: data}
		if err := h.relay.Publish(ctx, env); err != nil {
			h.Logf("Relay publish failed: %v", err)
		}
	}
	return nil
}

// deliver enqueues frame on every connection but except. A connection whose queue is full is dropped.
func (h *Hub) deliver(frame []byte, except string) {
	var slow []*Conn

	h.lock.RLock()
	for id, c := range h.conns {
		if id == except {
			continue
		}
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.lock.RUnlock()

	for _, c := range slow {
		h.Logf("Connection %s is not keeping up, dropping it", c.id)
		h.Disconnect(c)
	}
}

// deliverRemote hands an event coming from another instance to every local connection.
func (h *Hub) deliverRemote(env relay.Envelope) {
	if env.Origin == h.instanceID {
		return
	}
	frame, err := json.Marshal(Frame{Event: env.Event, Data: env.Data})
	if err != nil {
		h.Logf("Could not encode relayed event: %v", err)
		return
	}
	h.deliver(frame, "")
}

// RunRelay receives the events of the other instances until ctx is done. Without a relay it returns at once.
func (h *Hub) RunRelay(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}
	return h.relay.Run(ctx, h.deliverRemote)
}
