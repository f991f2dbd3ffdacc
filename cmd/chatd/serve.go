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
	"os"
	"os/signal"
	"syscall"

	"chatd/internal/app"
	"chatd/internal/config"

	"github.com/spf13/cobra"
)

type configLoader func() (*config.Config, error)

func newServeCommand(load configLoader) *cobra.Command {
	var port uint16
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the websocket hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			server, err := app.NewChatServer(cfg)
			if err != nil {
				return err
			}
			defer server.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// SIGUSR1 toggles maintenance mode
			maintenance := make(chan os.Signal, 1)
			signal.Notify(maintenance, syscall.SIGUSR1)
			defer signal.Stop(maintenance)
			go func() {
				paused := false
				for {
					select {
					case <-ctx.Done():
						return
					case <-maintenance:
						paused = !paused
						server.SetPause(paused)
					}
				}
			}()

			return server.Run(ctx)
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "HTTP port, overrides http.port")
	return cmd
}
