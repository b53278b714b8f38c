package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"recipebox/internal/api/auth"
	"recipebox/internal/api/middleware"
	"recipebox/internal/catalog"
	"recipebox/internal/config"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/pkg/notify"
	"recipebox/internal/pkg/password"
	"recipebox/internal/pkg/queue"
	"recipebox/internal/pkg/ratelimit"
	"recipebox/internal/pkg/token"
	"recipebox/internal/service"
	"recipebox/internal/store"
	"recipebox/internal/store/memstore"
	"recipebox/internal/store/mongostore"
	"recipebox/internal/store/mysqlstore"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有用户存储、Redis 客户端、通知队列以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	router    *gin.Engine
	store     store.Store
	rdb       *redis.Client
	queue     *queue.Queue
	auth      *auth.Handler
	authSvc   *service.AuthService
	verifier  middleware.TokenVerifier
	profiles  ProfileService
	favorites FavoritesService
	catalog   RecipeCatalog
	checks    map[string]func(ctx context.Context) error
}

// ProfileService 提供资料查询与更新。
type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error)
}

// FavoritesService 管理收藏列表。
type FavoritesService interface {
	Add(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error)
	Remove(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error)
	List(ctx context.Context, userID string) (model.Favorites, error)
}

// RecipeCatalog 是外部菜谱目录。
type RecipeCatalog interface {
	SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]catalog.RecipeSummary, error)
	Recipe(ctx context.Context, id model.RecipeID) (*catalog.Recipe, error)
	Recipes(ctx context.Context, ids []model.RecipeID) ([]catalog.Recipe, error)
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 按配置连接 MySQL 或 MongoDB
// 2. 连接 Redis（登录频控与菜谱缓存）
// 3. 启动通知 worker 池
// 4. 组装服务并初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	metrics.InitMetrics(cfg.App.NotifyWorkers)

	q := queue.NewQueue(logger, cfg.App.NotifyWorkers, cfg.App.NotifyQueueCapacity)
	q.Start(context.Background())

	hasher := password.NewBcrypt(cfg.Security.BcryptCost)
	tokens := token.NewManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	loginLimiter := ratelimit.NewRedisRateLimiter(rdb, logger, "recipebox:ratelimit", cfg.App.LoginRateLimit, cfg.App.LoginRateBurst)
	welcome := notify.NewAsync(notify.NewEmailNotifier(&cfg.Email, logger), q, logger)

	authSvc := service.NewAuthService(st, hasher, tokens, logger,
		service.WithNotifier(welcome),
		service.WithLoginLimiter(loginLimiter),
	)
	catalogLimiter := ratelimit.NewRedisRateLimiter(rdb, logger, "recipebox:ratelimit:catalog", cfg.Catalog.RateLimit, cfg.Catalog.RateBurst)

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		rdb:       rdb,
		queue:     q,
		auth:      auth.NewHandler(authSvc, logger),
		authSvc:   authSvc,
		verifier:  authSvc,
		profiles:  service.NewUserService(st, hasher, logger),
		favorites: service.NewFavoritesService(st, logger),
		catalog:   catalog.NewClient(cfg.Catalog, rdb, catalogLimiter, logger),
		checks: map[string]func(ctx context.Context) error{
			"store": st.Ping,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}
	s.router = s.newRouter()
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreMongo:
		st, err := mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return st, nil
	default:
		st, err := mysqlstore.Open(cfg.MySQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		return st, nil
	}
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 等待通知任务完成，然后关闭存储与缓存连接。
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.queue != nil {
		timeout := s.cfg.App.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := s.queue.ShutdownWithTimeout(timeout); err != nil {
			errs = append(errs, fmt.Errorf("drain notify queue: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) newRouter() *gin.Engine {
	if s.cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(s.logger))
	s.registerRoutes(r)
	return r
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(r *gin.Engine) {
	// Prometheus metrics 端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.handleHealthz)

	base := r.Group(s.cfg.App.BasePath)
	requireAuth := middleware.AuthMiddleware(s.verifier)

	authGroup := base.Group("/auth")
	authGroup.POST("/register", s.auth.Register)
	authGroup.POST("/login", s.auth.Login)
	authGroup.POST("/logout", requireAuth, s.auth.Logout)

	users := base.Group("/users")
	users.GET("/profile", requireAuth, s.handleProfile)
	users.PUT("/:id", requireAuth, s.handleUpdateUser)
	users.POST("/favoris/add", requireAuth, s.handleAddFavorite)
	users.POST("/favoris/remove", s.handleRemoveFavorite)
	users.GET("/favoris/:userId", s.handleListFavorites)

	recipes := base.Group("/recipes")
	recipes.GET("/search", s.handleSearchRecipes)
	recipes.GET("/:id", s.handleGetRecipe)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if len(s.checks) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			if s.logger != nil {
				s.logger.Warn("health check failed", slog.String("component", name), slog.String("error", err.Error()))
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "component": name})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseQueryInt 解析查询参数中的整数，缺失或非法时返回默认值。
func parseQueryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return iv
}
