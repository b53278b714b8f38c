// Package service 实现注册登录、收藏与资料更新的业务逻辑。
//
// 服务层只返回本文件定义的错误，HTTP 层据此映射状态码；存储层的细节不会向上泄露。
package service

import (
	"errors"
	"fmt"
	"time"

	"recipebox/internal/store"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrRateLimited        = errors.New("too many attempts")
)

// 面向用户的校验提示。
const (
	MsgFieldsRequired = "All fields are required."
	MsgInvalidEmail   = "Invalid email address."
	MsgMissingData    = "Missing data."
	MsgInvalidUserID  = "Invalid user id."
	MsgEmptyName      = "Name cannot be empty."
	MsgEmptyPassword  = "Password cannot be empty."
)

// ValidationError 携带可以直接返回给客户端的提示。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 让 errors.Is(err, ErrValidation) 成立。
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// RateLimitError 表示登录尝试过于频繁。
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// mapStoreErr 把存储层哨兵错误翻译成服务层错误。
func mapStoreErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case errors.Is(err, store.ErrInvalidID):
		return invalid("userId", MsgInvalidUserID)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
