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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatd/internal/entity"
	"chatd/internal/nlog"
	"chatd/internal/repository"

	"github.com/xeipuuv/gojsonschema"
	"gorm.io/gorm"
)

// Only these fields may be changed through an update, anything else is rejected.
const userUpdateSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"username":     {"type": "string", "minLength": 1},
		"email":        {"type": "string"},
		"profileImage": {"type": ["string", "null"]},
		"password":     {"type": "string", "minLength": 1}
	}
}`

type UserService interface {
	Get(ctx context.Context, userID string) (*entity.User, error)
	Update(ctx context.Context, userID string, body []byte) (*entity.User, error)
}

type localUserService struct {
	userRepository repository.UserRepository
	schema         *gojsonschema.Schema
	logger         nlog.Logger
}

func NewUserService(userRepo repository.UserRepository, logger nlog.Logger) (UserService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(userUpdateSchema))
	if err != nil {
		return nil, err
	}
	return &localUserService{
		userRepository: userRepo,
		schema:         schema,
		logger:         logger,
	}, nil
}

func (u *localUserService) Logf(format string, v ...any) {
	u.logger.Logf(format, v...)
}

func (u *localUserService) Get(ctx context.Context, userID string) (*entity.User, error) {
	user, err := u.userRepository.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: User not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return user, nil
}

// Update validates body against the update schema, then applies it. A password is re-hashed.
func (u *localUserService) Update(ctx context.Context, userID string, body []byte) (*entity.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}

	result, err := u.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}

	var in struct {
		Username     *string `json:"username"`
		Email        *string `json:"email"`
		ProfileImage *string `json:"profileImage"`
		Password     *string `json:"password"`
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	json.Unmarshal(body, &present)

	fields := map[string]any{}
	if in.Username != nil {
		fields["username"] = *in.Username
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if _, ok := present["profileImage"]; ok {
		fields["profile_image"] = in.ProfileImage
	}

	user, err := u.userRepository.Update(ctx, userID, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: User not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		if err := u.userRepository.UpdatePasswordHash(ctx, userID, hash); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDependency, err)
		}
	}
	u.Logf("User %s updated {%d fields, password: %t}", userID, len(fields), in.Password != nil)
	return user, nil
}
