package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"borrow_analytics/cache"
	"borrow_analytics/config"
	"borrow_analytics/db"
	"borrow_analytics/engine"
	"borrow_analytics/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖；DB / RDB 未配置时为 nil
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Engine *engine.Engine
	Config Config
	Logger *slog.Logger
}

// Config 从环境变量读取
type Config struct {
	Port            string
	DatabaseURL     string
	RedisAddr       string
	RedisPwd        string
	WebOrigins      []string
	AdminToken      string
	AnalysisPath    string
	CacheTTL        time.Duration
	RefreshThrottle time.Duration
	LogLevel        string
	LogJSON         bool
}

// MustNew 组装全部依赖；任一必需依赖失败直接退出
func MustNew() *App {
	cfg := loadConfig()
	logger := NewLogger(cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(logger)

	eng, dbConn, rdb := MustEngine(cfg, logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("metrics: %v", err)
	}

	// --- Gin ---
	r := gin.Default()
	r.Use(RequestID())
	useCORS(r, cfg.WebOrigins)

	a := &App{Router: r, DB: dbConn, RDB: rdb, Engine: eng, Config: cfg, Logger: logger}
	BootstrapRecords(context.Background(), eng, logger)
	return a
}

// MustEngine 构建分析引擎；CLI 与 HTTP 服务共用
func MustEngine(cfg Config, logger *slog.Logger) (*engine.Engine, *gorm.DB, *redis.Client) {
	ac, err := config.LoadAnalysis(cfg.AnalysisPath)
	if err != nil {
		log.Fatalf("analysis config: %v", err)
	}
	ecfg, err := ac.EngineConfig()
	if err != nil {
		log.Fatalf("analysis config: %v", err)
	}

	opts := []engine.Option{engine.WithLogger(logger)}

	// --- DB: Postgres（可选）---
	var dbConn *gorm.DB
	if cfg.DatabaseURL != "" {
		dbConn = db.ConnectDB(cfg.DatabaseURL)
		opts = append(opts, engine.WithRepository(db.NewRepo(dbConn)))
	} else {
		logger.Warn("DB_HOST not set; records are not persisted")
	}

	// --- Redis（可选）---
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		opts = append(opts, engine.WithCache(cache.NewResultStore(rdb, cfg.CacheTTL)))
	}

	return engine.New(ecfg, opts...), dbConn, rdb
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// LoadConfig 供 CLI 复用
func LoadConfig() Config { return loadConfig() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	seconds := func(k string, def time.Duration) time.Duration {
		n, err := strconv.Atoi(get(k, ""))
		if err != nil || n <= 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	var origins []string
	for _, o := range strings.Split(get("WEB_ORIGIN", "http://localhost:5173"), ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	return Config{
		Port:            get("PORT", "3001"),
		DatabaseURL:     db.DSNFromEnv(),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPwd:        os.Getenv("REDIS_PASSWORD"),
		WebOrigins:      origins,
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		AnalysisPath:    os.Getenv("ANALYSIS_CONFIG"),
		CacheTTL:        seconds("CACHE_TTL_SECONDS", time.Hour),
		RefreshThrottle: seconds("REFRESH_THROTTLE_SECONDS", 30*time.Second),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogJSON:         strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
	}
}
