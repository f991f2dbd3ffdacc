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
	"errors"
	"sync"
	"testing"
	"time"

	"chatd/internal/entity"
	"chatd/internal/nlog"
	"chatd/internal/realtime/relay"
)

type MockPersister struct {
	mu     sync.Mutex
	stored []*entity.Message
	err    error
}

func (m *MockPersister) Persist(_ context.Context, msg *entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, msg)
	return nil
}

type MockRelay struct {
	mu        sync.Mutex
	published []relay.Envelope
}

func (m *MockRelay) Publish(_ context.Context, env relay.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, env)
	return nil
}

func (m *MockRelay) Run(ctx context.Context, _ func(relay.Envelope)) error {
	<-ctx.Done()
	return nil
}

func (m *MockRelay) Close() error { return nil }

func fixedClock() time.Time {
	return time.Date(2025, 4, 6, 15, 4, 5, 0, time.UTC)
}

func newTestHub() *Hub {
	h := NewHub(nlog.Nop(), 8)
	h.now = fixedClock
	return h
}

func receive(t *testing.T, c *Conn) Frame {
	t.Helper()
	select {
	case raw, ok := <-c.Outbound():
		if !ok {
			t.Fatalf("Connection %s was closed", c.ID())
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("Could not decode frame: %v", err)
		}
		return f
	default:
		t.Fatalf("Nothing queued for connection %s", c.ID())
	}
	return Frame{}
}

func expectNothing(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case raw := <-c.Outbound():
		t.Errorf("Unexpected frame for %s: %s", c.ID(), raw)
	default:
	}
}

func TestBroadcastReachesSender(t *testing.T) {
	h := newTestHub()
	a := h.Connect()
	b := h.Connect()
	h.SetName(a, "Asad")

	if err := h.BroadcastMessage(context.Background(), a, "hello"); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	for _, c := range []*Conn{a, b} {
		f := receive(t, c)
		if f.Event != EventChatMessage {
			t.Errorf("Wrong event. GOT[%s], EXPECTED[%s]", f.Event, EventChatMessage)
		}
		var p ChatPayload
		json.Unmarshal(f.Data, &p)
		if p.User != "Asad" || p.Text != "hello" {
			t.Errorf("Wrong payload. GOT[%s/%s], EXPECTED[Asad/hello]", p.User, p.Text)
		}
		if p.Time != "3:04:05 PM" {
			t.Errorf("Wrong time. GOT[%s], EXPECTED[3:04:05 PM]", p.Time)
		}
	}
}

func TestUnnamedIsAnonymous(t *testing.T) {
	h := newTestHub()
	a := h.Connect()

	h.BroadcastMessage(context.Background(), a, "hi")

	var p ChatPayload
	json.Unmarshal(receive(t, a).Data, &p)
	if p.User != AnonymousName {
		t.Errorf("Wrong user. GOT[%s], EXPECTED[%s]", p.User, AnonymousName)
	}
}

func TestTypingSkipsSender(t *testing.T) {
	h := newTestHub()
	a := h.Connect()
	b := h.Connect()
	c := h.Connect()
	h.SetName(a, "Kylie")

	h.BroadcastTyping(context.Background(), a, true)

	expectNothing(t, a)
	for _, other := range []*Conn{b, c} {
		f := receive(t, other)
		var p TypingPayload
		json.Unmarshal(f.Data, &p)
		if f.Event != EventChatTyping || p.User != "Kylie" || !p.IsTyping {
			t.Errorf("Wrong typing frame. GOT[%s %+v]", f.Event, p)
		}
	}
}

func TestPersistFailureSuppressesBroadcast(t *testing.T) {
	h := newTestHub()
	h.SetPersister(&MockPersister{err: errors.New("disk full")}, "all")
	a := h.Connect()

	if err := h.BroadcastMessage(context.Background(), a, "lost"); err == nil {
		t.Errorf("Expected an error")
	}
	expectNothing(t, a)
}

func TestPersistBeforeBroadcast(t *testing.T) {
	h := newTestHub()
	p := &MockPersister{}
	h.SetPersister(p, "lobby")
	a := h.Connect()
	h.SetName(a, "Asad")

	h.BroadcastMessage(context.Background(), a, "stored")
	receive(t, a)

	if len(p.stored) != 1 {
		t.Fatalf("Wrong number of stored messages. GOT[%d], EXPECTED[1]", len(p.stored))
	}
	m := p.stored[0]
	if m.SenderID != "Asad" || m.ReceiverID != "lobby" || m.Status != entity.StatusSent {
		t.Errorf("Wrong stored message. GOT[%s -> %s, %s]", m.SenderID, m.ReceiverID, m.Status)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h := newTestHub()
	a := h.Connect()
	b := h.Connect()

	h.Disconnect(a)
	h.Disconnect(a)

	if h.Count() != 1 {
		t.Errorf("Wrong connection count. GOT[%d], EXPECTED[1]", h.Count())
	}
	if _, ok := <-a.Outbound(); ok {
		t.Errorf("Outbound queue should be closed")
	}

	h.BroadcastMessage(context.Background(), b, "still here")
	receive(t, b)
}

func TestSlowConnectionDropped(t *testing.T) {
	h := NewHub(nlog.Nop(), 1)
	slow := h.Connect()
	fast := h.Connect()

	h.BroadcastMessage(context.Background(), fast, "one")
	<-fast.Outbound()
	h.BroadcastMessage(context.Background(), fast, "two")

	if h.Count() != 1 {
		t.Errorf("Wrong connection count. GOT[%d], EXPECTED[1]", h.Count())
	}
	receive(t, fast)
	<-slow.Outbound()
	if _, ok := <-slow.Outbound(); ok {
		t.Errorf("Slow connection should be closed")
	}
}

func TestRelayPublishAndRemoteDelivery(t *testing.T) {
	h := newTestHub()
	r := &MockRelay{}
	h.SetRelay(r, "node-a")
	a := h.Connect()

	h.BroadcastTyping(context.Background(), a, true)
	if len(r.published) != 1 || r.published[0].Origin != "node-a" {
		t.Fatalf("Typing event was not relayed")
	}

	// Own events coming back are ignored, remote typing reaches everyone
	h.deliverRemote(r.published[0])
	expectNothing(t, a)

	remote := r.published[0]
	remote.Origin = "node-b"
	h.deliverRemote(remote)
	if f := receive(t, a); f.Event != EventChatTyping {
		t.Errorf("Wrong event. GOT[%s], EXPECTED[%s]", f.Event, EventChatTyping)
	}
}

func TestShutdownClosesAll(t *testing.T) {
	h := newTestHub()
	a := h.Connect()
	b := h.Connect()

	h.Shutdown()

	for _, c := range []*Conn{a, b} {
		if _, ok := <-c.Outbound(); ok {
			t.Errorf("Connection %s should be closed", c.ID())
		}
	}
	if h.Count() != 0 {
		t.Errorf("Wrong connection count. GOT[%d], EXPECTED[0]", h.Count())
	}
}
