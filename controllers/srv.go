// controllers/srv.go
package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"borrow_analytics/analysis"
	"borrow_analytics/app"
	"borrow_analytics/cache"
	"borrow_analytics/engine"
	"borrow_analytics/models"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Engine *engine.Engine
	Lock   *cache.RefreshLock // 无 redis 时为 nil
	Log    *slog.Logger
	Cfg    app.Config
}

func GetSrv(a *app.App) *Srv {
	s := &Srv{Engine: a.Engine, Log: a.Logger, Cfg: a.Config}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if a.RDB != nil {
		s.Lock = cache.NewRefreshLock(a.RDB, a.Config.RefreshThrottle)
	}
	return s
}

// --- helpers ---

// 分析结果：参数错误 400，其余（含未找到）200 + ok=false
func respond(c *gin.Context, res models.AnalysisResult) {
	if !res.OK && res.Code == models.FailInvalidParameter {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// 请求参数解析失败，按分析失败返回
func (s *Srv) badParam(c *gin.Context, kind models.ResultKind, mode analysis.Mode, err error) {
	if !errors.Is(err, analysis.ErrInvalidParameter) {
		err = fmt.Errorf("%w: %v", analysis.ErrInvalidParameter, err)
	}
	respond(c, analysis.Failed(kind, mode, s.Engine.Snapshot().Version, err))
}

func (s *Srv) logger(c *gin.Context) *slog.Logger {
	return s.Log.With(slog.String("request_id", c.GetString("requestID")))
}
