package auth

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"recipebox/internal/model"
	"recipebox/internal/service"

	"github.com/gin-gonic/gin"
)

// Service 是 Handler 依赖的认证服务。
type Service interface {
	Register(ctx context.Context, name, email, plain string) (*model.User, error)
	Authenticate(ctx context.Context, email, plain string) (*service.AuthResult, error)
}

// Handler 提供注册、登录与注销接口。
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Register 创建新用户，成功返回 201 与用户信息（不含密码哈希）。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgFieldsRequired})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" || req.ConfirmPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgFieldsRequired})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Passwords do not match."})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"message": verr.Message})
		case errors.Is(err, service.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists."})
		default:
			if h.logger != nil {
				h.logger.Error("register failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		}
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login 校验用户并返回 token。
//
// 用户不存在返回 404，密码错误返回 401，客户端依赖这两个状态码区分提示。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgFieldsRequired})
		return
	}

	res, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var rl *service.RateLimitError
		switch {
		case errors.As(err, &rl):
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many login attempts. Try again later."})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Invalid credentials."})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Incorrect password."})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgFieldsRequired})
		default:
			if h.logger != nil {
				h.logger.Error("login failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		}
		return
	}
	c.JSON(http.StatusOK, loginResponse{Message: "Welcome!", Token: res.Token})
}

// Logout 处理注销请求。token 无状态，由客户端丢弃即可。
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}
