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
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startGateway(t *testing.T, srv GatewayServer) *GatewaySender {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterGatewayServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	sender, err := DialGateway("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Could not dial gateway: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	return sender
}

func TestGatewayRoundTrip(t *testing.T) {
	recorder := &RecordingSender{}
	sender := startGateway(t, recorder)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := sender.SendMulticast(ctx, Notification{
		Tokens: []string{"phone", "tablet"},
		Title:  "New message from Asad",
		Body:   "hi",
		Data:   map[string]string{"messageId": "m1"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SuccessCount != 2 || res.FailureCount != 0 {
		t.Errorf("Unexpected result %+v", res)
	}

	batches := recorder.Batches()
	if len(batches) != 1 {
		t.Fatalf("Expected one batch on the gateway, got %d", len(batches))
	}
	got := batches[0]
	if len(got.Tokens) != 2 || got.Title != "New message from Asad" || got.Body != "hi" || got.Data["messageId"] != "m1" {
		t.Errorf("Gateway received %+v", got)
	}
}

func TestGatewayRejectsEmptyTokens(t *testing.T) {
	sender := startGateway(t, &RecordingSender{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := sender.SendMulticast(ctx, Notification{Title: "t", Body: "b"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
}

func TestLogSenderAcceptsEverything(t *testing.T) {
	logger := &MockLogger{}
	res, err := NewLogSender(logger).SendMulticast(context.Background(), Notification{Tokens: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 3 {
		t.Errorf("Expected 3 successes, got %d", res.SuccessCount)
	}
	if logger.Len() != 1 {
		t.Errorf("Expected one log line, got %d", logger.Len())
	}
}
