package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sernafernando/lcr-qr/config"
	"github.com/sernafernando/lcr-qr/internal/api/handler"
	"github.com/sernafernando/lcr-qr/internal/api/middleware"
	"github.com/sernafernando/lcr-qr/pkg/response"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// 未注册的路径与方法统一返回 405
	r.HandleMethodNotAllowed = true

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	r.NoRoute(response.MethodNotAllowed)
	r.NoMethod(response.MethodNotAllowed)

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 兑换码公开接口 ──
	r.POST("/load-codes", h.Code.LoadCodes)
	r.GET("/validate-code", h.Code.ValidateCode)
	r.POST("/register-person", h.Code.RegisterPerson)

	// ── 管理接口 ──
	codes := r.Group("/codes")
	{
		codes.GET("", h.Code.ListCodes)
		codes.GET("/stats", h.Code.GetStats)
		codes.GET("/export", h.Export.ExportCodes)
	}

	return r
}
