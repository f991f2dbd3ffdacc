/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"fmt"

	"chatd/internal/nlog"
	"chatd/internal/repository"
)

type DeviceService interface {
	RegisterToken(ctx context.Context, userID, token string) error
}

type localDeviceService struct {
	tokenRepository repository.DeviceTokenRepository
	logger          nlog.Logger
}

func NewDeviceService(tokenRepo repository.DeviceTokenRepository, logger nlog.Logger) DeviceService {
	return &localDeviceService{
		tokenRepository: tokenRepo,
		logger:          logger,
	}
}

// RegisterToken records token for userID. Registering the same pair again only refreshes it.
func (d *localDeviceService) RegisterToken(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return fmt.Errorf("%w: userId and token are required", ErrValidation)
	}
	if err := d.tokenRepository.Upsert(ctx, userID, token); err != nil {
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}
	d.logger.Logf("Registered a device token for %s", userID)
	return nil
}
