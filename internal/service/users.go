package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"recipebox/internal/model"
	"recipebox/internal/pkg/password"
	"recipebox/internal/store"
)

// ProfileUpdate 是客户端可修改的资料字段，nil 表示不修改。
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService 提供资料查询与更新。
type UserService struct {
	store  store.Store
	hasher password.Hasher
	logger *slog.Logger
}

func NewUserService(st store.Store, hasher password.Hasher, logger *slog.Logger) *UserService {
	return &UserService{store: st, hasher: hasher, logger: logger}
}

// GetProfile 按 ID 查询用户。
func (s *UserService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreErr(err, "find user")
	}
	return user, nil
}

// UpdateUser 应用部分更新。新密码与注册走同一个哈希器，明文不会落库。
func (s *UserService) UpdateUser(ctx context.Context, id string, in ProfileUpdate) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", MsgInvalidUserID)
	}

	var update model.UserUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", MsgEmptyName)
		}
		update.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !validEmail(email) {
			return nil, invalid("email", MsgInvalidEmail)
		}
		update.Email = &email
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, invalid("password", MsgEmptyPassword)
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			if errors.Is(err, password.ErrTooLong) {
				return nil, invalid("password", err.Error())
			}
			return nil, fmt.Errorf("hash password: %w", err)
		}
		update.PasswordHash = &hash
	}

	user, err := s.store.UpdateUser(ctx, id, update)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && s.logger != nil {
			s.logger.Warn("update user failed", slog.String("user_id", id), slog.String("error", err.Error()))
		}
		return nil, mapStoreErr(err, "update user")
	}
	if s.logger != nil && !update.Empty() {
		s.logger.Info("user updated", slog.String("user_id", id), slog.Bool("password_changed", update.PasswordHash != nil))
	}
	return user, nil
}
