/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"fmt"

	"chatd/internal/app"

	"github.com/spf13/cobra"
)

func newSeedCommand(load configLoader) *cobra.Command {
	var withMessages bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the configured users and, optionally, the demo conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			server, err := app.NewChatServer(cfg)
			if err != nil {
				return err
			}
			defer server.Close()

			users, messages, err := server.Seed(cmd.Context(), withMessages)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d users and %d messages\n", users, messages)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withMessages, "messages", false, "also insert the demo messages")
	return cmd
}
