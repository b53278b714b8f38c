package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"recipebox/internal/catalog"
	"recipebox/internal/model"
	"recipebox/internal/service"

	"github.com/gin-gonic/gin"
)

// flexID 接受字符串或数字形式的用户 ID。
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or a number")
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("user id must be an integer")
	}
	*id = flexID(n.String())
	return nil
}

type favoriteRequest struct {
	UserID   flexID         `json:"userId"`
	RecipeID model.RecipeID `json:"recipeId"`
}

type favoritesResponse struct {
	Favoris model.Favorites `json:"favoris"`
}

func (s *Server) handleAddFavorite(c *gin.Context) {
	req, ok := bindFavorite(c)
	if !ok {
		return
	}
	favs, err := s.favorites.Add(c.Request.Context(), string(req.UserID), req.RecipeID)
	if err != nil {
		s.respondUserError(c, err, "add favorite failed")
		return
	}
	c.JSON(http.StatusOK, favoritesResponse{Favoris: favs})
}

func (s *Server) handleRemoveFavorite(c *gin.Context) {
	req, ok := bindFavorite(c)
	if !ok {
		return
	}
	favs, err := s.favorites.Remove(c.Request.Context(), string(req.UserID), req.RecipeID)
	if err != nil {
		s.respondUserError(c, err, "remove favorite failed")
		return
	}
	c.JSON(http.StatusOK, favoritesResponse{Favoris: favs})
}

// handleListFavorites 返回收藏的菜谱 ID；expand=true 时解析为菜谱详情。
func (s *Server) handleListFavorites(c *gin.Context) {
	favs, err := s.favorites.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.respondUserError(c, err, "list favorites failed")
		return
	}

	expand, _ := strconv.ParseBool(c.Query("expand"))
	if !expand || s.catalog == nil {
		c.JSON(http.StatusOK, favoritesResponse{Favoris: favs})
		return
	}

	ids := make([]model.RecipeID, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, model.RecipeID(f))
	}
	recipes, err := s.catalog.Recipes(c.Request.Context(), ids)
	if err != nil {
		s.respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favoris": recipes})
}

func bindFavorite(c *gin.Context) (favoriteRequest, bool) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.RecipeID.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgMissingData})
		return req, false
	}
	return req, true
}

func (s *Server) respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid recipe id."})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found."})
	case errors.Is(err, catalog.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Recipe catalog not configured."})
	default:
		if s.logger != nil {
			s.logger.Warn("catalog request failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusBadGateway, gin.H{"message": "Recipe catalog unavailable."})
	}
}
