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
	"testing"
	"time"

	"chatd/internal/nlog"
)

func TestNoBrokersGivesNoop(t *testing.T) {
	p := NewKafka(nil, "chat.lifecycle", nlog.Nop())
	if _, ok := p.(*Noop); !ok {
		t.Fatalf("Expected a Noop publisher, got %T", p)
	}
	if err := p.Publish(context.Background(), Event{Type: MessageSent}); err != nil {
		t.Errorf("Noop publish failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Noop close failed: %v", err)
	}
}

func TestKafkaMessageKeyedByReceiver(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := toKafkaMessage(Event{Type: MessageSent, At: at, MessageID: "m1", SenderID: "Asad", ReceiverID: "Kylie"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(msg.Key) != "Kylie" {
		t.Errorf("Expected key Kylie, got %q", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Expected time %v, got %v", at, msg.Time)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != MessageSent {
		t.Errorf("Unexpected headers %+v", msg.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.MessageID != "m1" || decoded.SenderID != "Asad" {
		t.Errorf("Unexpected payload %+v", decoded)
	}
}

func TestKafkaMessageKeyFallsBackToActor(t *testing.T) {
	msg, err := toKafkaMessage(Event{Type: MessagesDeleted, Actor: "Asad", Count: 4})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "Asad" {
		t.Errorf("Expected key Asad, got %q", msg.Key)
	}
}
