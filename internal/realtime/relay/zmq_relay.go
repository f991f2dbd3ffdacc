/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	"chatd/internal/nlog"

	zmq "github.com/pebbe/zmq4"
)

const relayTopic = "chat"

// Prepends the prefix `tcp://` to address
func getFullAddress(address string) string {
	if strings.HasPrefix(address, "tcp://") {
		return address
	}
	return fmt.Sprintf("tcp://%s", address)
}

// ZMQRelay publishes on a bound PUB socket and subscribes to the PUB socket of every peer.
type ZMQRelay struct {
	ctx    *zmq.Context
	pub    *zmq.Socket
	sub    *zmq.Socket
	poller *zmq.Poller

	pubLock sync.Mutex // zmq sockets are not safe for concurrent use
	logger  nlog.Logger
}

// NewZMQRelay binds the publisher on port and connects the subscriber to peers (host:port).
func NewZMQRelay(port uint16, peers []string, logger nlog.Logger) (*ZMQRelay, error) {
	zctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}

	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		zctx.Term()
		return nil, fmt.Errorf("Error during the creation of the relay PUB socket: %w", err)
	}
	pub.SetLinger(0)
	if err := pub.Bind(fmt.Sprintf("tcp://*:%d", port)); err != nil {
		pub.Close()
		zctx.Term()
		return nil, fmt.Errorf("Could not bind the relay on port %d: %w", port, err)
	}

	sub, err := zctx.NewSocket(zmq.SUB)
	if err != nil {
		pub.Close()
		zctx.Term()
		return nil, fmt.Errorf("Error during the creation of the relay SUB socket: %w", err)
	}
	sub.SetLinger(0)
	sub.SetSubscribe(relayTopic)

	r := &ZMQRelay{ctx: zctx, pub: pub, sub: sub, logger: logger}
	r.startMonitoring()

	for _, peer := range peers {
		if err := sub.Connect(getFullAddress(peer)); err != nil {
			r.Close()
			return nil, fmt.Errorf("Could not connect to relay peer %s: %w", peer, err)
		}
	}

	r.poller = zmq.NewPoller()
	r.poller.Add(sub, zmq.POLLIN)
	return r, nil
}

// startMonitoring logs connect and disconnect events of the subscriber towards the peers.
func (r *ZMQRelay) startMonitoring() {
	monitorAddress := fmt.Sprintf("inproc://relay-monitor-%p", r)
	if err := r.sub.Monitor(monitorAddress, zmq.EVENT_CONNECTED|zmq.EVENT_DISCONNECTED|zmq.EVENT_CONNECT_RETRIED); err != nil {
		r.logger.Logf("Relay monitor unavailable: %v", err)
		return
	}
	monitorSocket, err := r.ctx.NewSocket(zmq.PAIR)
	if err != nil {
		return
	}
	monitorSocket.SetLinger(0)
	if err := monitorSocket.Connect(monitorAddress); err != nil {
		monitorSocket.Close()
		return
	}

	go func() {
		defer monitorSocket.Close()
		for {
			event, addr, _, err := monitorSocket.RecvEvent(0)
			if err != nil {
				return
			}
			switch event {
			case zmq.EVENT_CONNECTED:
				r.logger.Logf("Relay peer %s is ON", addr)
			case zmq.EVENT_DISCONNECTED:
				r.logger.Logf("Relay peer %s is OFF", addr)
			}
		}
	}()
}

func (r *ZMQRelay) Publish(_ context.Context, env Envelope) error {
	payload, err := encode(env)
	if err != nil {
		return err
	}
	r.pubLock.Lock()
	defer r.pubLock.Unlock()
	if _, err := r.pub.SendMessage(relayTopic, payload); err != nil {
		return fmt.Errorf("Error during relay publish: %w", err)
	}
	return nil
}

// Run polls the subscriber until ctx is done. The subscriber is only touched by this goroutine.
func (r *ZMQRelay) Run(ctx context.Context, deliver func(Envelope)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sockets, err := r.poller.Poll(250 * time.Millisecond)
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return fmt.Errorf("Polling error: %w", err)
		}
		if len(sockets) == 0 {
			continue
		}

		frames, err := r.sub.RecvMessageBytes(zmq.DONTWAIT)
		if err != nil {
			if isRecvNotReady(err) {
				continue
			}
			return fmt.Errorf("Recv network error: %w", err)
		}
		if len(frames) != 2 {
			r.logger.Logf("Dropping relay message with %d frames", len(frames))
			continue
		}
		env, err := decode(frames[1])
		if err != nil {
			r.logger.Logf("%v", err)
			continue
		}
		deliver(env)
	}
}

// Close releases the sockets. It must be called after Run has returned.
func (r *ZMQRelay) Close() error {
	r.pubLock.Lock()
	r.pub.Close()
	r.pubLock.Unlock()
	r.sub.Close()
	return r.ctx.Term()
}

func isRecvNotReady(err error) bool {
	var errno zmq.Errno
	if errors.As(err, &errno) {
		return errno == zmq.AsErrno(syscall.EAGAIN)
	}
	return false
}

func isInterrupted(err error) bool {
	var errno zmq.Errno
	if errors.As(err, &errno) {
		return errno == zmq.AsErrno(syscall.EINTR)
	}
	return false
}
