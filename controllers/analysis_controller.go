// controllers/analysis_controller.go
package controllers

import (
	"errors"
	"net/http"

	"borrow_analytics/analysis"
	"borrow_analytics/app"
	"borrow_analytics/bucket"
	"borrow_analytics/models"

	"github.com/gin-gonic/gin"
)

type AnalysisController struct{ *Srv }

func NewAnalysisController(s *Srv) *AnalysisController { return &AnalysisController{Srv: s} }

const defaultTopN = 10

// 单件物品借还时间线；from/to 可选
func (ac *AnalysisController) Timeline(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		ac.badParam(c, models.KindSingleItem, analysis.Full, err)
		return
	}
	r, err := rangeParam(c, ac.Engine.Location())
	if err != nil {
		ac.badParam(c, models.KindSingleItem, mode, err)
		return
	}
	respond(c, ac.Engine.AnalyzeSingleItem(c.Request.Context(), mode, c.Param("code"), r))
}

// 按类别、时间桶排 Top-N
// ?category=&n=&granularity=day|week|month|year&metric=count|total_hours|avg_hours&name=&from=&to=
func (ac *AnalysisController) TopN(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		ac.badParam(c, models.KindTopN, analysis.Full, err)
		return
	}
	q := analysis.TopNQuery{Category: c.Query("category"), NameFilter: c.Query("name")}
	if q.N, err = intParam(c, "n", defaultTopN); err != nil {
		ac.badParam(c, models.KindTopN, mode, err)
		return
	}
	if g := c.Query("granularity"); g != "" {
		if q.Granularity, err = bucket.ParseGranularity(g); err != nil {
			ac.badParam(c, models.KindTopN, mode, err)
			return
		}
	}
	if q.Metric, err = analysis.ParseMetric(c.Query("metric")); err != nil {
		ac.badParam(c, models.KindTopN, mode, err)
		return
	}
	if q.Range, err = rangeParam(c, ac.Engine.Location()); err != nil {
		ac.badParam(c, models.KindTopN, mode, err)
		return
	}
	respond(c, ac.Engine.AnalyzeTopN(c.Request.Context(), mode, q))
}

// 区间占用率；from/to 必填
func (ac *AnalysisController) Occupancy(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		ac.badParam(c, models.KindOccupancy, analysis.Full, err)
		return
	}
	r, err := rangeParam(c, ac.Engine.Location())
	if err != nil {
		ac.badParam(c, models.KindOccupancy, mode, err)
		return
	}
	if r == nil {
		ac.badParam(c, models.KindOccupancy, mode, errors.New("from and to are required"))
		return
	}
	respond(c, ac.Engine.AnalyzeDuration(c.Request.Context(), mode, c.Param("code"), *r))
}

// 区间重建时发现的异常
func (ac *AnalysisController) Anomalies(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	an := ac.Engine.Anomalies(mode)
	c.JSON(http.StatusOK, app.H{"mode": mode, "anomalies": an, "count": len(an)})
}
