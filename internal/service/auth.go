package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/pkg/notify"
	"recipebox/internal/pkg/password"
	"recipebox/internal/pkg/token"
	"recipebox/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginLimiter 按邮箱限制登录尝试频率。
type LoginLimiter interface {
	Allow(ctx context.Context, sub string) (bool, time.Duration, error)
}

// AuthResult 是登录成功的返回值。
type AuthResult struct {
	Token string
	User  *model.User
}

// AuthService 负责注册、登录与 token 校验。
type AuthService struct {
	store    store.Store
	hasher   password.Hasher
	tokens   *token.Manager
	notifier notify.Notifier
	limiter  LoginLimiter
	logger   *slog.Logger
}

// AuthOption 配置可选依赖。
type AuthOption func(*AuthService)

// WithNotifier 注册成功后发送欢迎通知。
func WithNotifier(n notify.Notifier) AuthOption {
	return func(s *AuthService) { s.notifier = n }
}

// WithLoginLimiter 启用登录频控。
func WithLoginLimiter(l LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// NewAuthService 创建 AuthService。
func NewAuthService(st store.Store, hasher password.Hasher, tokens *token.Manager, logger *slog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:  st,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register 创建用户。密码只以哈希形式落库。
func (s *AuthService) Register(ctx context.Context, name, email, plain string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || plain == "" {
		s.authEvent("register", "invalid")
		return nil, invalid("", MsgFieldsRequired)
	}
	if !validEmail(email) {
		s.authEvent("register", "invalid")
		return nil, invalid("email", MsgInvalidEmail)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.authEvent("register", "error")
		if errors.Is(err, password.ErrTooLong) {
			return nil, invalid("password", err.Error())
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Favorites:    model.Favorites{},
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			s.authEvent("register", "duplicate")
			return nil, ErrDuplicateEmail
		}
		s.authEvent("register", "error")
		if s.logger != nil {
			s.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.authEvent("register", "success")
	if s.logger != nil {
		s.logger.Info("user registered", slog.String("email", email), slog.String("user_id", user.ID))
	}
	if s.notifier != nil {
		if err := s.notifier.Welcome(ctx, user); err != nil && s.logger != nil {
			s.logger.Warn("welcome notification failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}
	return user, nil
}

// Authenticate 校验邮箱与密码并签发 token。
//
// 用户不存在返回 ErrNotFound，密码错误返回 ErrInvalidCredentials，两者由调用方区分映射。
func (s *AuthService) Authenticate(ctx context.Context, email, plain string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || plain == "" {
		s.authEvent("login", "invalid")
		return nil, invalid("", MsgFieldsRequired)
	}
	if err := s.throttle(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.authEvent("login", "not_found")
			return nil, ErrNotFound
		}
		s.authEvent("login", "error")
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, plain)
	if err != nil {
		s.authEvent("login", "error")
		if s.logger != nil {
			s.logger.Error("compare password failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		s.authEvent("login", "bad_password")
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.authEvent("login", "error")
		return nil, err
	}

	s.authEvent("login", "success")
	if s.logger != nil {
		s.logger.Info("user logged in", slog.String("email", email))
	}
	return &AuthResult{Token: signed, User: user}, nil
}

// VerifyToken 校验 token 并返回声明，不访问存储。
func (s *AuthService) VerifyToken(raw string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrMissing) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !s.store.ValidID(claims.UserID) {
		return nil, invalid("userId", MsgInvalidUserID)
	}
	return claims, nil
}

func (s *AuthService) throttle(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	ok, retry, err := s.limiter.Allow(ctx, "login:"+email)
	if err != nil {
		// 频控不可用时放行
		if s.logger != nil {
			s.logger.Warn("login limiter unavailable", slog.String("error", err.Error()))
		}
		return nil
	}
	if !ok {
		s.authEvent("login", "throttled")
		return &RateLimitError{RetryAfter: retry}
	}
	return nil
}

func (s *AuthService) authEvent(event, outcome string) {
	metrics.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}
