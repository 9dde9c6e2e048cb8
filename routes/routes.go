package routes

import (
	"net/http"

	"borrow_analytics/app"
	"borrow_analytics/controllers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	ingestCtl := controllers.NewIngestController(s)
	analysisCtl := controllers.NewAnalysisController(s)
	itemsCtl := controllers.NewItemsController(s)

	// 复用的中间件
	adminMW := app.AdminOnly(a.Config.AdminToken)
	throttleMW := app.RefreshThrottle(s.Lock)

	// Health / metrics
	r.GET("/healthz", func(c *app.Ctx) {
		c.JSON(http.StatusOK, app.H{"ok": true, "version": a.Engine.Snapshot().Version})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// ------------------------------
	// 导入 / 刷新（仅管理员）
	// ------------------------------
	write := api.Group("", adminMW)
	{
		write.POST("/ingest", ingestCtl.Ingest) // ?source=historical|realtime&refresh=
		write.POST("/refresh", throttleMW, ingestCtl.Refresh)
	}

	api.GET("/snapshot", ingestCtl.Snapshot)

	// ------------------------------
	// 物品
	// ------------------------------
	items := api.Group("/items")
	{
		items.GET("", itemsCtl.Search) // ?q=&mode=&limit=
		items.GET("/unmapped", itemsCtl.Unmapped)
	}

	// ------------------------------
	// 分析
	// ------------------------------
	an := api.Group("/analysis")
	{
		an.GET("/items/:code/timeline", analysisCtl.Timeline)
		an.GET("/items/:code/occupancy", analysisCtl.Occupancy)
		an.GET("/topn", analysisCtl.TopN)
	}
	api.GET("/anomalies", analysisCtl.Anomalies)
}
