/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"chatd/internal/nlog"
	"chatd/internal/push"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// The development gateway accepts every multicast and logs it.
func newPushGatewayCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "push-gateway",
		Short: "Run a development push gateway that logs every notification batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := nlog.NewServerLogger(nlog.Options{Enabled: true, Format: "text"})
			defer logger.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go logger.Run(ctx)

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("gRPC listen error %w", err)
			}
			grpcServer := grpc.NewServer()
			push.RegisterGatewayServer(grpcServer, push.NewLogSender(logger.RegisterSubsystem("gateway")))

			go func() {
				<-ctx.Done()
				grpcServer.GracefulStop()
			}()
			logger.Logf("gateway", "Push gateway listening on %s", lis.Addr())
			return grpcServer.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":45998", "gRPC listen address")
	return cmd
}
