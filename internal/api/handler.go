package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/auth"
	"ridersettle/internal/blob"
	"ridersettle/internal/importer"
	"ridersettle/internal/store"
)

// Handler API 处理器
type Handler struct {
	store       *store.Store
	blobs       *blob.FileStore
	identity    *auth.Identity
	coordinator *importer.Coordinator
	runTimeout  time.Duration
	logger      *slog.Logger
}

// NewHandler 创建 API 处理器；runTimeout 为 0 表示不限制单次导入时长
func NewHandler(st *store.Store, blobs *blob.FileStore, coordinator *importer.Coordinator, runTimeout time.Duration) *Handler {
	return &Handler{
		store:       st,
		blobs:       blobs,
		identity:    auth.NewIdentity(st),
		coordinator: coordinator,
		runTimeout:  runTimeout,
		logger:      slog.Default(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 内置规则模板
	router.GET("/rule-templates", h.ListRuleTemplates)

	secured := router.Group("", auth.Middleware(h.identity))

	// 解析规则
	secured.POST("/rules/validate", h.ValidateRule)
	secured.GET("/branches/:branchId/platforms", h.ListPlatforms)
	secured.GET("/branches/:branchId/platforms/:platform/rule", h.GetRule)
	secured.PUT("/branches/:branchId/platforms/:platform/rule", h.PutRule)
	secured.DELETE("/branches/:branchId/platforms/:platform/rule", h.DeleteRule)

	// 骑手目录
	secured.GET("/branches/:branchId/riders", h.ListRiders)
	secured.PUT("/branches/:branchId/riders", h.UpsertRider)

	// 文件上传
	secured.POST("/uploads", h.Upload)

	// 结算导入
	secured.POST("/settlements/ingest", h.Ingest)
	secured.POST("/settlements/ingest/stream", h.IngestStream)

	// 结算查询
	secured.GET("/settlements/periods", h.ListPeriods)
	secured.GET("/settlements/periods/:id", h.GetPeriod)
	secured.GET("/settlements/periods/:id/records", h.ListRecords)
	secured.DELETE("/settlements/periods/:id", h.DeletePeriod)
}
