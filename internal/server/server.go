package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/api"
	"ridersettle/internal/blob"
	"ridersettle/internal/config"
	"ridersettle/internal/importer"
	"ridersettle/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	blobs  *blob.FileStore
	api    *api.Handler
	http   *http.Server
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 数据目录
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	// 初始化 SQLite Store
	sqliteStore, err := store.New(config.DBPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	blobs, err := blob.NewFileStore(config.BlobDir(dataDir))
	if err != nil {
		sqliteStore.Close()
		return nil, err
	}

	// 预置访问令牌
	for _, t := range cfg.Auth.Tokens {
		if err := sqliteStore.PutToken(context.Background(), t.Token, t.Caller()); err != nil {
			sqliteStore.Close()
			return nil, fmt.Errorf("failed to seed api token: %w", err)
		}
	}

	coordinator := importer.NewCoordinator(
		importer.Deps{Rules: sqliteStore, Blobs: blobs, Riders: sqliteStore, Repo: sqliteStore},
		importer.WithLogger(slog.Default()),
		importer.WithLocation(cfg.Location()),
	)

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		blobs:  blobs,
		api:    api.NewHandler(sqliteStore, blobs, coordinator, cfg.RunTimeout()),
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// API 路由
	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "接口不存在"})
	})
}

// Handler HTTP 处理器（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，直到 Shutdown 被调用
func (s *Server) Run(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求，等待进行中的导入结束后关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Printf("HTTP 服务关闭失败: %v", err)
		}
	}
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
