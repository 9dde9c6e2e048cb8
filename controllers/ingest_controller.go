// controllers/ingest_controller.go
package controllers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"borrow_analytics/analysis"
	"borrow_analytics/app"
	"borrow_analytics/models"
	"borrow_analytics/normalize"

	"github.com/gin-gonic/gin"
)

type IngestController struct{ *Srv }

func NewIngestController(s *Srv) *IngestController { return &IngestController{Srv: s} }

// 导入一批原始行；?source=historical|realtime，body 为 JSON 或 CSV
func (ic *IngestController) Ingest(c *gin.Context) {
	src, ok := models.ParseSource(c.Query("source"))
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "source must be historical or realtime"})
		return
	}

	var (
		rows []normalize.Row
		err  error
	)
	ct, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch ct {
	case "text/csv", "application/csv":
		rows, err = normalize.DecodeCSV(c.Request.Body)
	default:
		rows, err = normalize.DecodeJSON(c.Request.Body)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	report, err := ic.Engine.Ingest(c.Request.Context(), rows, src)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidParameter) {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	ic.logger(c).Debug("ingest request", slog.String("batch", report.BatchID), slog.Int("rows", len(rows)))

	// ?refresh=true 导入后立即发布
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		info, err := ic.Engine.Refresh(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error(), "report": report, "snapshot": info})
			return
		}
		c.JSON(http.StatusOK, app.H{"report": report, "snapshot": info})
		return
	}
	c.JSON(http.StatusOK, app.H{"report": report})
}

// 发布新快照
func (ic *IngestController) Refresh(c *gin.Context) {
	info, err := ic.Engine.Refresh(c.Request.Context())
	if err != nil {
		// 快照已切换，只是持久化失败
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error(), "snapshot": info})
		return
	}
	c.JSON(http.StatusOK, app.H{"snapshot": info})
}

// 当前快照 + 统计
func (ic *IngestController) Snapshot(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{
		"snapshot": ic.Engine.Snapshot(),
		"stats":    ic.Engine.Stats(mode),
	})
}
