package api

import (
	"context"
	"errors"
	"log/slog"

	"recipebox/internal/model"
	"recipebox/internal/service"
)

const (
	demoName     = "Demo Cook"
	demoEmail    = "demo@recipebox.local"
	demoPassword = "demo-recipes"
)

// demoFavorites 是演示账号预置的 Spoonacular 菜谱。
var demoFavorites = []model.RecipeID{"715538", "716429", "637"}

// SeedDemoData 创建演示账号并预置收藏；账号已存在时只补齐缺少的收藏。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if !s.cfg.App.SeedDemo {
		return nil
	}
	return seedDemo(ctx, s.authSvc, s.favorites, s.logger)
}

type demoRegistrar interface {
	Register(ctx context.Context, name, email, plain string) (*model.User, error)
	Authenticate(ctx context.Context, email, plain string) (*service.AuthResult, error)
}

func seedDemo(ctx context.Context, auth demoRegistrar, favorites FavoritesService, logger *slog.Logger) error {
	var userID string
	user, err := auth.Register(ctx, demoName, demoEmail, demoPassword)
	switch {
	case err == nil:
		userID = user.ID
	case errors.Is(err, service.ErrDuplicateEmail):
		res, authErr := auth.Authenticate(ctx, demoEmail, demoPassword)
		if authErr != nil {
			// 演示账号密码被改过，不再覆盖
			if logger != nil {
				logger.Warn("demo account exists with different password, skip seeding", slog.String("email", demoEmail))
			}
			return nil
		}
		userID = res.User.ID
	default:
		return err
	}

	for _, id := range demoFavorites {
		if _, err := favorites.Add(ctx, userID, id); err != nil {
			return err
		}
	}
	if logger != nil {
		logger.Info("demo data seeded", slog.String("email", demoEmail), slog.Int("favorites", len(demoFavorites)))
	}
	return nil
}
