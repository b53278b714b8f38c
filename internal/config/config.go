package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// 存储后端类型。
const (
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory" // 仅用于本地开发，进程退出即丢失
)

// Config 保存应用程序配置。
type Config struct {
	App      AppConfig      `json:"app"`
	Store    StoreConfig    `json:"store"`
	MySQL    MySQLConfig    `json:"mysql"`
	Mongo    MongoConfig    `json:"mongo"`
	Redis    RedisConfig    `json:"redis"`
	Email    EmailConfig    `json:"email"`
	Security SecurityConfig `json:"security"`
	Catalog  CatalogConfig  `json:"catalog"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env                 string        `json:"env"`                   // 运行环境: local / prod
	LogLevel            string        `json:"log_level"`             // 日志级别: debug / info / warn / error
	HTTPAddr            string        `json:"http_addr"`             // API 服务监听地址
	BasePath            string        `json:"base_path"`             // 路由前缀（如 "/api"）
	ShutdownTimeout     time.Duration `json:"shutdown_timeout"`      // 优雅关闭超时（如 "5s"）
	LoginRateLimit      float64       `json:"login_rate_limit"`      // 登录限流速率（token/s，按邮箱）
	LoginRateBurst      float64       `json:"login_rate_burst"`      // 登录限流桶容量
	NotifyWorkers       int           `json:"notify_workers"`        // 通知 worker 数量
	NotifyQueueCapacity int           `json:"notify_queue_capacity"` // 通知队列容量
	SeedDemo            bool          `json:"seed_demo"`             // 启动时创建演示账号
}

// StoreConfig 选择用户数据的存储后端。
type StoreConfig struct {
	Driver string `json:"driver"` // mysql / mongo / memory
}

// MySQLConfig MySQL 数据库配置。
type MySQLConfig struct {
	DSN string `json:"dsn"` // 数据库连接字符串
}

// MongoConfig MongoDB 配置。
type MongoConfig struct {
	URI      string `json:"uri"`      // 连接 URI
	Database string `json:"database"` // 数据库名
}

// RedisConfig Redis 缓存配置。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
}

// EmailConfig 邮件通知配置。
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	JWTSecret  string        `json:"jwt_secret"`  // JWT 签名密钥
	TokenTTL   time.Duration `json:"token_ttl"`   // Token 有效期（默认 2h）
	BcryptCost int           `json:"bcrypt_cost"` // bcrypt 成本（最小 10）
}

// CatalogConfig 外部菜谱目录（Spoonacular）配置。
type CatalogConfig struct {
	BaseURL   string        `json:"base_url"`   // API 根地址
	APIKey    string        `json:"api_key"`    // API Key（为空时目录功能不可用）
	CacheTTL  time.Duration `json:"cache_ttl"`  // 菜谱缓存时长
	RateLimit float64       `json:"rate_limit"` // 上游调用速率（token/s）
	RateBurst float64       `json:"rate_burst"` // 上游调用桶容量
	Timeout   time.Duration `json:"timeout"`    // 单次请求超时
}

// Load 从 JSON 文件加载配置。
//
// 它会尝试读取 configs/config.json 文件，如果不存在则使用默认值，
// 最后总是应用环境变量覆盖。
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, cfg.Validate()
}

// Save 保存配置到 JSON 文件。
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate 检查配置的基本合法性。
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMySQL, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:                 "local",
			LogLevel:            "info",
			HTTPAddr:            ":9090",
			BasePath:            "/api",
			ShutdownTimeout:     5 * time.Second,
			LoginRateLimit:      0.2,
			LoginRateBurst:      5,
			NotifyWorkers:       2,
			NotifyQueueCapacity: 100,
		},
		Store: StoreConfig{
			Driver: StoreMySQL,
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/recipebox?parseTime=true&loc=Local",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "recipebox",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Security: SecurityConfig{
			JWTSecret:  "dev_secret_change_me",
			TokenTTL:   2 * time.Hour,
			BcryptCost: 10,
		},
		Catalog: CatalogConfig{
			BaseURL:   "https://api.spoonacular.com",
			CacheTTL:  24 * time.Hour,
			RateLimit: 1,
			RateBurst: 5,
			Timeout:   10 * time.Second,
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.BasePath == "" {
		cfg.App.BasePath = defaults.App.BasePath
	}
	if cfg.App.ShutdownTimeout == 0 {
		cfg.App.ShutdownTimeout = defaults.App.ShutdownTimeout
	}
	if cfg.App.LoginRateLimit == 0 {
		cfg.App.LoginRateLimit = defaults.App.LoginRateLimit
	}
	if cfg.App.LoginRateBurst == 0 {
		cfg.App.LoginRateBurst = defaults.App.LoginRateBurst
	}
	if cfg.App.NotifyWorkers == 0 {
		cfg.App.NotifyWorkers = defaults.App.NotifyWorkers
	}
	if cfg.App.NotifyQueueCapacity == 0 {
		cfg.App.NotifyQueueCapacity = defaults.App.NotifyQueueCapacity
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	if cfg.MySQL.DSN == "" {
		cfg.MySQL.DSN = defaults.MySQL.DSN
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = defaults.Mongo.URI
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = defaults.Mongo.Database
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaults.Redis.Addr
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = defaults.Security.JWTSecret
	}
	if cfg.Security.TokenTTL == 0 {
		cfg.Security.TokenTTL = defaults.Security.TokenTTL
	}
	if cfg.Security.BcryptCost == 0 {
		cfg.Security.BcryptCost = defaults.Security.BcryptCost
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = defaults.Catalog.BaseURL
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = defaults.Catalog.CacheTTL
	}
	if cfg.Catalog.RateLimit == 0 {
		cfg.Catalog.RateLimit = defaults.Catalog.RateLimit
	}
	if cfg.Catalog.RateBurst == 0 {
		cfg.Catalog.RateBurst = defaults.Catalog.RateBurst
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = defaults.Catalog.Timeout
	}
}

func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.AutomaticEnv()

	_ = v.BindEnv("db_host", "DB_HOST")
	_ = v.BindEnv("db_password", "DB_PASSWORD")
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("smtp_pass", "SMTP_PASS")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("mongo_uri", "MONGO_URI", "URL_DB")
	_ = v.BindEnv("catalog_api_key", "SPOONACULAR_API_KEY")

	if s := os.Getenv("APP_ENV"); s != "" {
		cfg.App.Env = s
	}
	if s := os.Getenv("APP_LOG_LEVEL"); s != "" {
		cfg.App.LogLevel = s
	}
	if s := os.Getenv("APP_HTTP_ADDR"); s != "" {
		cfg.App.HTTPAddr = s
	} else if s := os.Getenv("PORT"); s != "" {
		cfg.App.HTTPAddr = ":" + s
	}
	if s := os.Getenv("APP_BASE_PATH"); s != "" {
		cfg.App.BasePath = s
	}
	if s := os.Getenv("APP_SHUTDOWN_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.App.ShutdownTimeout = d
		}
	}
	if s := os.Getenv("APP_LOGIN_RATE_LIMIT"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.App.LoginRateLimit = f
		}
	}
	if s := os.Getenv("APP_LOGIN_RATE_BURST"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.App.LoginRateBurst = f
		}
	}
	if s := os.Getenv("APP_NOTIFY_WORKERS"); s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			cfg.App.NotifyWorkers = i
		}
	}

	if s := os.Getenv("APP_SEED_DEMO"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			cfg.App.SeedDemo = b
		}
	}

	if s := os.Getenv("STORE_DRIVER"); s != "" {
		cfg.Store.Driver = strings.ToLower(strings.TrimSpace(s))
	}

	if s := v.GetString("jwt_secret"); s != "" {
		cfg.Security.JWTSecret = s
	}
	if s := os.Getenv("TOKEN_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Security.TokenTTL = d
		}
	}
	if s := os.Getenv("BCRYPT_COST"); s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			cfg.Security.BcryptCost = i
		}
	}

	if s := os.Getenv("DB_DSN"); s != "" {
		cfg.MySQL.DSN = s
	} else if hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME") {
		parsed := parseMySQLDSN(cfg.MySQL.DSN)
		if s := v.GetString("db_host"); s != "" {
			port := getenvDefault("DB_PORT", parsed.Addr, "3306")
			parsed.Addr = s + ":" + port
		} else if s := os.Getenv("DB_PORT"); s != "" {
			host := parsed.Addr
			if strings.Contains(host, ":") {
				host = strings.Split(host, ":")[0]
			}
			parsed.Addr = host + ":" + s
		}
		if s := os.Getenv("DB_USER"); s != "" {
			parsed.User = s
		}
		if s := v.GetString("db_password"); s != "" {
			parsed.Passwd = s
		}
		if s := os.Getenv("DB_NAME"); s != "" {
			parsed.DBName = s
		}
		cfg.MySQL.DSN = parsed.FormatDSN()
	}

	if s := v.GetString("mongo_uri"); s != "" {
		cfg.Mongo.URI = s
	}
	if s := os.Getenv("MONGO_DATABASE"); s != "" {
		cfg.Mongo.Database = s
	}

	if s := v.GetString("redis_addr"); s != "" {
		cfg.Redis.Addr = s
	}
	if s := v.GetString("redis_password"); s != "" {
		cfg.Redis.Password = s
	}

	if s := os.Getenv("SMTP_HOST"); s != "" {
		cfg.Email.SMTPHost = s
	}
	if s := os.Getenv("SMTP_PORT"); s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if s := os.Getenv("SMTP_USER"); s != "" {
		cfg.Email.SMTPUser = s
	}
	if s := v.GetString("smtp_pass"); s != "" {
		cfg.Email.SMTPPass = s
	}
	if s := os.Getenv("SMTP_FROM"); s != "" {
		cfg.Email.FromEmail = s
	}

	if s := os.Getenv("CATALOG_BASE_URL"); s != "" {
		cfg.Catalog.BaseURL = s
	}
	if s := v.GetString("catalog_api_key"); s != "" {
		cfg.Catalog.APIKey = s
	}
	if s := os.Getenv("CATALOG_CACHE_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Catalog.CacheTTL = d
		}
	}
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func getenvDefault(envKey, fallbackAddr, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fallbackAddr == "" {
		return defaultValue
	}
	if strings.Contains(fallbackAddr, ":") {
		parts := strings.Split(fallbackAddr, ":")
		if len(parts) == 2 && parts[1] != "" {
			return parts[1]
		}
	}
	return defaultValue
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := func() *mysql.Config {
		cfg := mysql.NewConfig()
		cfg.User = "root"
		cfg.Net = "tcp"
		cfg.Addr = "localhost:3306"
		cfg.DBName = "recipebox"
		cfg.ParseTime = true
		return cfg
	}
	if dsn == "" {
		return fallback()
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback()
	}
	return parsed
}

// UnmarshalJSON 自定义 JSON 解析，支持时间Duration字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		ShutdownTimeout string `json:"shutdown_timeout"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ShutdownTimeout != "" {
		d, err := time.ParseDuration(aux.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout format: %w", err)
		}
		a.ShutdownTimeout = d
	}
	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		ShutdownTimeout string `json:"shutdown_timeout"`
		*Alias
	}{
		ShutdownTimeout: a.ShutdownTimeout.String(),
		Alias:           (*Alias)(&a),
	})
}

// UnmarshalJSON 支持 token_ttl 的字符串写法。
func (s *SecurityConfig) UnmarshalJSON(data []byte) error {
	type Alias SecurityConfig
	aux := &struct {
		TokenTTL string `json:"token_ttl"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TokenTTL != "" {
		d, err := time.ParseDuration(aux.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid token_ttl format: %w", err)
		}
		s.TokenTTL = d
	}
	return nil
}

// MarshalJSON 将 token_ttl 输出为字符串。
func (s SecurityConfig) MarshalJSON() ([]byte, error) {
	type Alias SecurityConfig
	return json.Marshal(&struct {
		TokenTTL string `json:"token_ttl"`
		*Alias
	}{
		TokenTTL: s.TokenTTL.String(),
		Alias:    (*Alias)(&s),
	})
}

// UnmarshalJSON 支持 cache_ttl 与 timeout 的字符串写法。
func (c *CatalogConfig) UnmarshalJSON(data []byte) error {
	type Alias CatalogConfig
	aux := &struct {
		CacheTTL string `json:"cache_ttl"`
		Timeout  string `json:"timeout"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CacheTTL != "" {
		d, err := time.ParseDuration(aux.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl format: %w", err)
		}
		c.CacheTTL = d
	}
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// MarshalJSON 将时长字段输出为字符串。
func (c CatalogConfig) MarshalJSON() ([]byte, error) {
	type Alias CatalogConfig
	return json.Marshal(&struct {
		CacheTTL string `json:"cache_ttl"`
		Timeout  string `json:"timeout"`
		*Alias
	}{
		CacheTTL: c.CacheTTL.String(),
		Timeout:  c.Timeout.String(),
		Alias:    (*Alias)(&c),
	})
}
