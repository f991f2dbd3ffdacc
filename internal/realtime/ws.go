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
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and serves the connection until the peer goes away.
// Inbound frames are handled serially in the request goroutine; a second goroutine writes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logf("Upgrade failed: %v", err)
		return
	}

	c := h.Connect()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ws, c)
	}()

	h.readPump(context.WithoutCancel(r.Context()), ws, c)
	h.Disconnect(c)
	<-done
}

func (h *Hub) readPump(ctx context.Context, ws *websocket.Conn, c *Conn) {
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logf("Connection %s read error: %v", c.id, err)
			}
			return
		}
		h.handleFrame(ctx, c, raw)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *Conn, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.Logf("Connection %s sent a malformed frame: %v", c.id, err)
		return
	}

	switch frame.Event {
	case EventSetUsername:
		var name string
		if err := json.Unmarshal(frame.Data, &name); err != nil {
			h.Logf("Connection %s sent a bad %s payload", c.id, frame.Event)
			return
		}
		h.SetName(c, name)
	case EventChatMessage:
		var text string
		if err := json.Unmarshal(frame.Data, &text); err != nil {
			h.Logf("Connection %s sent a bad %s payload", c.id, frame.Event)
			return
		}
		h.BroadcastMessage(ctx, c, text)
	case EventChatTyping:
		var typing bool
		if err := json.Unmarshal(frame.Data, &typing); err != nil {
			h.Logf("Connection %s sent a bad %s payload", c.id, frame.Event)
			return
		}
		h.BroadcastTyping(ctx, c, typing)
	default:
		h.Logf("Connection %s sent unknown event %q", c.id, frame.Event)
	}
}

func (h *Hub) writePump(ws *websocket.Conn, c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.Logf("Connection %s write error: %v", c.id, err)
				h.Disconnect(c)
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Disconnect(c)
				return
			}
		}
	}
}
