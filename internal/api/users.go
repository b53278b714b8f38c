package api

import (
	"errors"
	"log/slog"
	"net/http"

	"recipebox/internal/api/middleware"
	"recipebox/internal/model"
	"recipebox/internal/service"

	"github.com/gin-gonic/gin"
)

const msgServerError = "Server error."

// updateUserRequest 资料更新请求，未出现的字段保持不变。
type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type profileResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Favorites model.Favorites `json:"favorites"`
}

func (s *Server) handleProfile(c *gin.Context) {
	user, err := s.profiles.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		s.respondUserError(c, err, "get profile failed")
		return
	}
	c.JSON(http.StatusOK, profileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Favorites: user.Favorites,
	})
}

// handleUpdateUser 只允许修改自己的资料。
func (s *Server) handleUpdateUser(c *gin.Context) {
	id := c.Param("id")
	if id != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden."})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	user, err := s.profiles.UpdateUser(c.Request.Context(), id, service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondUserError(c, err, "update user failed")
		return
	}
	c.JSON(http.StatusOK, user)
}

// respondUserError 把服务层错误映射为状态码与提示，内部错误细节只写日志。
func (s *Server) respondUserError(c *gin.Context, err error, logMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": verr.Message})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists."})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
	default:
		if s.logger != nil {
			s.logger.Error(logMsg, slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgServerError})
	}
}
