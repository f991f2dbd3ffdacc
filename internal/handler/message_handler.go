/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"fmt"
	"net/http"

	"chatd/internal/access"
	"chatd/internal/middleware"
	"chatd/internal/nlog"
	"chatd/internal/service"

	"github.com/gorilla/mux"
)

// MessageHandler serves the message lifecycle routes.
type MessageHandler struct {
	messageService service.MessageService
	logger         nlog.Logger
}

func NewMessageHandler(messageService service.MessageService, logger nlog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// POST /messages
func (m *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in service.NewMessage
	if err := decodeBody(r, &in); err != nil {
		writeError(w, m.logger, err)
		return
	}
	message, err := m.messageService.Send(r.Context(), in)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": message,
	})
}

// GET /messages?user1=..&user2=..
func (m *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	messages, err := m.messageService.Conversation(r.Context(), q.Get("user1"), q.Get("user2"))
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// GET /messages/{user}
func (m *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := m.messageService.History(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// PATCH /messages/mark-seen
func (m *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   string `json:"userId"`
		FromUser string `json:"fromUser"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, m.logger, err)
		return
	}
	updated, err := m.messageService.MarkSeen(r.Context(), in.UserID, in.FromUser)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

// GET /messages/unread?userId=..&fromUser=..
func (m *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	messages, err := m.messageService.Unread(r.Context(), q.Get("userId"), q.Get("fromUser"))
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messages,
	})
}

// GET /messages/unread-count?userId=..
func (m *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := m.messageService.UnreadCount(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"unreadCount": count,
	})
}

// PATCH /messages/{messageId}/reaction
func (m *MessageHandler) SetReaction(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reaction string `json:"reaction"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, m.logger, err)
		return
	}
	updated, err := m.messageService.SetReaction(r.Context(), mux.Vars(r)["messageId"], in.Reaction)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

// DELETE /messages/by-date
// The requester is the logged in user, or an operator holding the admin key. A userId in the body
// must name the requester. A date-only endDate covers the whole day.
func (m *MessageHandler) DeleteByDate(w http.ResponseWriter, r *http.Request) {
	requester := middleware.CurrentUser(r)
	if requester == "" && !access.IsOperator(r.Context()) {
		writeError(w, m.logger, fmt.Errorf("%w: login required", service.ErrAuthentication))
		return
	}
	if err := m.messageService.AuthorizeRangeDeletion(r.Context(), requester); err != nil {
		writeError(w, m.logger, err)
		return
	}

	var in struct {
		UserID    string `json:"userId"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, m.logger, err)
		return
	}
	switch {
	case requester == "":
		requester = in.UserID
	case in.UserID != "" && in.UserID != requester:
		writeError(w, m.logger, fmt.Errorf("%w: %q cannot act as %q", service.ErrAuthorization, requester, in.UserID))
		return
	}

	start, err := parseDate("startDate", in.StartDate, false)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	end, err := parseDate("endDate", in.EndDate, true)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	deleted, err := m.messageService.DeleteByDateRange(r.Context(), requester, start, end)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": deleted,
	})
}

// DELETE /messages
func (m *MessageHandler) Purge(w http.ResponseWriter, r *http.Request) {
	deleted, err := m.messageService.PurgeAll(r.Context())
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "All messages deleted",
		"deletedCount": deleted,
	})
}

// POST /seed
func (m *MessageHandler) Seed(w http.ResponseWriter, r *http.Request) {
	inserted, err := m.messageService.SeedDemoData(r.Context())
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("%d dummy messages inserted", len(inserted)),
		"inserted": inserted,
	})
}
