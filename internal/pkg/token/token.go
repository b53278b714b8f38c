// Package token 签发与校验无状态的 HS256 Bearer Token。
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissing 表示没有提供 token。
	ErrMissing = errors.New("token missing")
	// ErrExpired 表示 token 已过期。
	ErrExpired = errors.New("token expired")
	// ErrInvalid 表示签名错误、格式错误或声明不完整。
	ErrInvalid = errors.New("token invalid")
)

// Claims 是 token 中携带的声明。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Manager 负责签发与校验 token。
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option 配置 Manager。
type Option func(*Manager)

// WithClock 替换时钟，测试中用于模拟过期。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager 创建 Manager。
func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL 返回 token 有效期。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue 为用户签发 token，过期时间为签发时刻加 TTL。
func (m *Manager) Issue(userID, email string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
		Email:  email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify 校验签名与有效期并返回声明。
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrMissing
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// FromHeader 从 "Bearer <token>" 形式的 Authorization 头中取出 token。
func FromHeader(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
