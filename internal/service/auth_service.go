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
	"errors"
	"fmt"

	"chatd/internal/entity"
	"chatd/internal/nlog"
	"chatd/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewUser carries the fields needed to create an account. Username defaults to UserID.
type NewUser struct {
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"profileImage"`
}

type AuthService interface {
	Login(ctx context.Context, userID, password string) (*entity.User, error)
	Register(ctx context.Context, in NewUser) (*entity.User, error)
	SeedUsers(ctx context.Context) (int64, error) // Existing users are left untouched
}

type localAuthService struct {
	userRepository repository.UserRepository
	seedUsers      []NewUser
	logger         nlog.Logger
}

func NewAuthService(userRepo repository.UserRepository, seedUsers []NewUser, logger nlog.Logger) AuthService {
	return &localAuthService{
		userRepository: userRepo,
		seedUsers:      seedUsers,
		logger:         logger,
	}
}

func (a *localAuthService) Logf(format string, v ...any) {
	a.logger.Logf(format, v...)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *localAuthService) newUser(in NewUser) (*entity.User, error) {
	if in.UserID == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: userId and password are required", ErrValidation)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		a.Logf("Could not calculate hash {%v}", err)
		return nil, err
	}
	username := in.Username
	if username == "" {
		username = in.UserID
	}
	return &entity.User{
		UserID:       in.UserID,
		Username:     username,
		Email:        in.Email,
		ProfileImage: in.ProfileImage,
		Secret: entity.UserSecret{
			UserID: in.UserID,
			Hash:   hash,
		},
	}, nil
}

func (a *localAuthService) Register(ctx context.Context, in NewUser) (*entity.User, error) {
	u, err := a.newUser(in)
	if err != nil {
		return nil, err
	}
	if _, err := a.userRepository.GetByUserID(ctx, in.UserID); err == nil {
		return nil, fmt.Errorf("%w: user %s already exists", ErrValidation, in.UserID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	// A concurrent registration of the same id can still win between the lookup and the insert.
	if err := a.userRepository.Create(ctx, u); errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: user %s already exists", ErrValidation, in.UserID)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	a.Logf("User %s registered", u.UserID)
	return u, nil
}

func (a *localAuthService) Login(ctx context.Context, userID, password string) (*entity.User, error) {
	if userID == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	u, err := a.userRepository.GetForLogin(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: User not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(u.Secret.Hash), []byte(password)); err != nil {
		a.Logf("Wrong password for %s", userID)
		return nil, fmt.Errorf("%w: Invalid password", ErrAuthentication)
	}
	a.Logf("User %s logged in", userID)
	return u, nil
}

func (a *localAuthService) SeedUsers(ctx context.Context) (int64, error) {
	users := make([]*entity.User, 0, len(a.seedUsers))
	for _, in := range a.seedUsers {
		u, err := a.newUser(in)
		if err != nil {
			return 0, err
		}
		users = append(users, u)
	}
	inserted, err := a.userRepository.CreateMany(ctx, users)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	a.Logf("Seeded %d of %d users", inserted, len(users))
	return inserted, nil
}
