package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultYAMLConfig 代码硬编码默认值
func defaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		APIServer: APIServerConfig{Port: "8080"},
		// Driver 留空：由 DATABASE_URL 前缀决定，DB_DRIVER 或 YAML driver 显式覆盖
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "erasmus",
			Name:     "erasmus_atlas",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Redis: RedisConfig{Port: 6379},
		MinIO: MinIOConfig{Bucket: "erasmus-atlas", URLExpiry: 15 * time.Minute},
		Auth: AuthConfig{
			TokenTTL:           7 * 24 * time.Hour,
			LoginMaxFailures:   5,
			LoginFailureWindow: 15 * time.Minute,
		},
		Posts: PostsConfig{
			InitialStatus: "PUBLISHED",
			ListMode:      "clustered",
			MaxListLimit:  500,
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RateLimit: RateLimitConfig{AuthRequests: 20, AuthWindow: time.Minute},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load 加载配置
//  1. 解析 APP_ENV
//  2. 加载 .env.{env}（凭据）
//  3. 加载 configs/{env}.yaml（覆盖默认值）
//  4. 环境变量覆盖
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	y := loadYAMLConfig(env)
	if y.loadedFrom != "" {
		log.Printf("[config] Loaded %s", y.loadedFrom)
	}

	y.Database.Password = getEnv("DB_PASSWORD", "erasmus_dev_password")
	y.Redis.Password = os.Getenv("REDIS_PASSWORD")
	y.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	y.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	y.Auth.JWTSecret = os.Getenv("JWT_SECRET")

	return build(env, y)
}

// build 由 YAML 配置和环境变量构建最终配置
func build(env Environment, y *YAMLConfig) *Config {
	databaseURL := os.Getenv("DATABASE_URL")
	driver := detectDatabaseDriver(getEnv("DB_DRIVER", y.Database.Driver), databaseURL)
	y.Database.Driver = driver
	if databaseURL == "" {
		databaseURL = buildDatabaseURL(y.Database, y.Database.Password)
	}

	redisURL := getEnv("REDIS_URL", buildRedisURL(y.Redis))

	minio := y.MinIO
	minio.Endpoint = getEnv("MINIO_ENDPOINT", minio.Endpoint)

	authCfg := y.Auth
	authCfg.TokenTTL = getEnvDuration("JWT_TTL", authCfg.TokenTTL)

	posts := y.Posts
	posts.InitialStatus = strings.ToUpper(getEnv("POST_INITIAL_STATUS", posts.InitialStatus))
	posts.ListMode = strings.ToLower(getEnv("POST_LIST_MODE", posts.ListMode))

	cors := y.CORS
	if origins := splitList(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		cors.AllowedOrigins = origins
	}

	cfg := &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseURL:    databaseURL,
		MaxConns:       getEnvInt("DB_MAX_CONNS", y.Database.MaxConns),
		RedisURL:       redisURL,
		APIPort:        getEnv("PORT", y.APIServer.Port),
		MinIO:          minio,
		Auth:           authCfg,
		Posts:          posts,
		CORS:           cors,
		RateLimit:      y.RateLimit,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", y.Log.Level),
			Format: getEnv("LOG_FORMAT", y.Log.Format),
		},
	}
	cfg.validate()
	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := defaultYAMLConfig()

	path := findConfigFile(env)
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] read %s: %v", path, err)
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] parse %s: %v", path, err)
		return defaultYAMLConfig()
	}
	cfg.loadedFrom = path
	return cfg
}

// validate 填充非法或缺失字段的默认值
func (c *Config) validate() {
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.Posts.InitialStatus != "PENDING" && c.Posts.InitialStatus != "PUBLISHED" {
		log.Printf("[config] unknown posts.initial_status %q, using PUBLISHED", c.Posts.InitialStatus)
		c.Posts.InitialStatus = "PUBLISHED"
	}
	if c.Posts.ListMode != "flat" && c.Posts.ListMode != "clustered" {
		log.Printf("[config] unknown posts.list_mode %q, using clustered", c.Posts.ListMode)
		c.Posts.ListMode = "clustered"
	}
	if c.Posts.MaxListLimit <= 0 {
		c.Posts.MaxListLimit = 500
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.LoginMaxFailures <= 0 {
		c.Auth.LoginMaxFailures = 5
	}
	if c.Auth.LoginFailureWindow <= 0 {
		c.Auth.LoginFailureWindow = 15 * time.Minute
	}
	if c.MinIO.URLExpiry <= 0 {
		c.MinIO.URLExpiry = 15 * time.Minute
	}
}

// RequireSecrets 检查生产环境必需的密钥
func (c *Config) RequireSecrets() error {
	if c.Auth.JWTSecret == "" {
		if c.Env == EnvProduction {
			return fmt.Errorf("JWT_SECRET is required in %s", c.Env)
		}
		c.Auth.JWTSecret = "dev-secret"
		log.Printf("[config] JWT_SECRET not set, using development secret")
	}
	return nil
}
