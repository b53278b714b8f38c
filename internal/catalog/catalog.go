// Package catalog 代理外部菜谱目录（Spoonacular），并在 Redis 中缓存菜谱详情。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"recipebox/internal/config"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	recipeKeyPrefix = "recipebox:catalog:recipe:"
	searchKeyPrefix = "recipebox:catalog:search:"

	defaultSearchSize = 10
	maxSearchSize     = 100
	maxBodyBytes      = 4 << 20
)

var (
	// ErrNotConfigured 表示未配置 API Key。
	ErrNotConfigured = errors.New("recipe catalog not configured")
	// ErrNotFound 表示目录中没有该菜谱。
	ErrNotFound = errors.New("recipe not found")
	// ErrInvalidID 表示菜谱 ID 不是目录认可的数字。
	ErrInvalidID = errors.New("invalid recipe id")
	// ErrUpstream 表示目录服务不可用或返回了无法解析的内容。
	ErrUpstream = errors.New("recipe catalog unavailable")
)

// Ingredient 是菜谱中的一种食材。
type Ingredient struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// Recipe 是菜谱详情。
type Recipe struct {
	ID                  int          `json:"id"`
	Title               string       `json:"title"`
	Image               string       `json:"image"`
	ImageType           string       `json:"imageType,omitempty"`
	ReadyInMinutes      int          `json:"readyInMinutes"`
	Servings            int          `json:"servings"`
	SourceURL           string       `json:"sourceUrl,omitempty"`
	Summary             string       `json:"summary,omitempty"`
	Instructions        string       `json:"instructions,omitempty"`
	ExtendedIngredients []Ingredient `json:"extendedIngredients,omitempty"`
}

// RecipeSummary 是按食材搜索返回的条目。
type RecipeSummary struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	Image                 string `json:"image"`
	ImageType             string `json:"imageType,omitempty"`
	UsedIngredientCount   int    `json:"usedIngredientCount"`
	MissedIngredientCount int    `json:"missedIngredientCount"`
	Likes                 int    `json:"likes"`
}

// Limiter 控制对上游的调用速率。
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client 访问菜谱目录。rdb 为 nil 时不缓存，limiter 为 nil 时不限速。
type Client struct {
	baseURL string
	apiKey  string
	ttl     time.Duration
	http    *http.Client
	rdb     *redis.Client
	limiter Limiter
	logger  *slog.Logger
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient 创建目录客户端。
func NewClient(cfg config.CatalogConfig, rdb *redis.Client, limiter Limiter, logger *slog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		ttl:     cfg.CacheTTL,
		http:    &http.Client{Timeout: timeout},
		rdb:     rdb,
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured 判断是否可以访问上游。
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// SearchByIngredients 按食材搜索菜谱，结果按查询条件缓存。
func (c *Client) SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]RecipeSummary, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	terms := normalizeIngredients(ingredients)
	if len(terms) == 0 {
		return []RecipeSummary{}, nil
	}
	if number <= 0 {
		number = defaultSearchSize
	}
	if number > maxSearchSize {
		number = maxSearchSize
	}

	joined := strings.Join(terms, ",")
	cacheKey := searchKeyPrefix + joined + ":" + strconv.Itoa(number)
	var out []RecipeSummary
	if c.cacheGet(ctx, cacheKey, &out) {
		return out, nil
	}

	q := url.Values{}
	q.Set("ingredients", joined)
	q.Set("number", strconv.Itoa(number))
	if err := c.getJSON(ctx, "/recipes/findByIngredients", q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []RecipeSummary{}
	}
	c.cacheSet(ctx, cacheKey, out)
	return out, nil
}

// Recipe 返回单个菜谱详情，优先读缓存。
func (c *Client) Recipe(ctx context.Context, id model.RecipeID) (*Recipe, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	var r Recipe
	if c.cacheGet(ctx, recipeKeyPrefix+id.String(), &r) {
		return &r, nil
	}
	if err := c.getJSON(ctx, "/recipes/"+url.PathEscape(id.String())+"/information", url.Values{}, &r); err != nil {
		return nil, err
	}
	c.cacheSet(ctx, recipeKeyPrefix+id.String(), r)
	return &r, nil
}

// Recipes 批量解析菜谱，缓存未命中的部分通过一次 informationBulk 请求获取。
//
// 返回顺序与 ids 一致；目录中不存在的 ID 被跳过。
func (c *Client) Recipes(ctx context.Context, ids []model.RecipeID) ([]Recipe, error) {
	if len(ids) == 0 {
		return []Recipe{}, nil
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	found := make(map[string]Recipe, len(ids))
	var missing []string
	for _, id := range ids {
		if validID(id) != nil {
			// 历史数据里可能有非数字 ID，目录无法解析，直接跳过
			continue
		}
		var r Recipe
		if c.cacheGet(ctx, recipeKeyPrefix+id.String(), &r) {
			found[id.String()] = r
			continue
		}
		missing = append(missing, id.String())
	}

	if len(missing) > 0 {
		q := url.Values{}
		q.Set("ids", strings.Join(missing, ","))
		var fetched []Recipe
		if err := c.getJSON(ctx, "/recipes/informationBulk", q, &fetched); err != nil {
			return nil, err
		}
		for _, r := range fetched {
			key := strconv.Itoa(r.ID)
			found[key] = r
			c.cacheSet(ctx, recipeKeyPrefix+key, r)
		}
	}

	out := make([]Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := found[id.String()]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			metrics.CatalogUpstreamErrorsTotal.Inc()
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	q.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.CatalogUpstreamErrorsTotal.Inc()
		if c.logger != nil {
			c.logger.Warn("catalog request failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("catalog request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("latency", time.Since(start)),
		)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.CatalogUpstreamErrorsTotal.Inc()
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		metrics.CatalogUpstreamErrorsTotal.Inc()
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) cacheGet(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil || c.ttl <= 0 {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("catalog cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		metrics.CatalogCacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CatalogCacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	metrics.CatalogCacheTotal.WithLabelValues("hit").Inc()
	return true
}

func (c *Client) cacheSet(ctx context.Context, key string, v any) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("catalog cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func validID(id model.RecipeID) error {
	n, err := strconv.ParseUint(id.String(), 10, 64)
	if err != nil || n == 0 {
		return ErrInvalidID
	}
	return nil
}

// normalizeIngredients 去空白、转小写、去重并排序，保证缓存键稳定。
func normalizeIngredients(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			term := strings.ToLower(strings.TrimSpace(part))
			if term == "" {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}
