package service

import (
	"context"
	"log/slog"
	"strings"

	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/store"
)

// FavoritesService 管理用户的收藏列表。
//
// 每次修改都是一次读取加一次整体写回，并发修改同一用户时后写覆盖先写。
type FavoritesService struct {
	store  store.Store
	logger *slog.Logger
}

func NewFavoritesService(st store.Store, logger *slog.Logger) *FavoritesService {
	return &FavoritesService{store: st, logger: logger}
}

// Add 收藏一个菜谱，已收藏时不做写入。
func (s *FavoritesService) Add(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
	user, err := s.load(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if user.Favorites.Contains(recipeID) {
		metrics.FavoritesMutationsTotal.WithLabelValues("add_noop").Inc()
		return user.Favorites, nil
	}

	next := user.Favorites.Add(recipeID)
	if err := s.store.SetFavorites(ctx, user.ID, next); err != nil {
		return nil, mapStoreErr(err, "save favorites")
	}
	metrics.FavoritesMutationsTotal.WithLabelValues("add").Inc()
	if s.logger != nil {
		s.logger.Debug("favorite added", slog.String("user_id", user.ID), slog.String("recipe_id", recipeID.String()))
	}
	return next, nil
}

// Remove 删除所有与 recipeID 相同的条目，未收藏时原样返回。
func (s *FavoritesService) Remove(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
	user, err := s.load(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if !user.Favorites.Contains(recipeID) {
		metrics.FavoritesMutationsTotal.WithLabelValues("remove_noop").Inc()
		return user.Favorites, nil
	}

	next := user.Favorites.Remove(recipeID)
	if err := s.store.SetFavorites(ctx, user.ID, next); err != nil {
		return nil, mapStoreErr(err, "save favorites")
	}
	metrics.FavoritesMutationsTotal.WithLabelValues("remove").Inc()
	if s.logger != nil {
		s.logger.Debug("favorite removed", slog.String("user_id", user.ID), slog.String("recipe_id", recipeID.String()))
	}
	return next, nil
}

// List 返回收藏的菜谱 ID。
func (s *FavoritesService) List(ctx context.Context, userID string) (model.Favorites, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId", MsgMissingData)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, "find user")
	}
	return user.Favorites, nil
}

func (s *FavoritesService) load(ctx context.Context, userID string, recipeID model.RecipeID) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || recipeID.Empty() {
		return nil, invalid("", MsgMissingData)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, "find user")
	}
	return user, nil
}
