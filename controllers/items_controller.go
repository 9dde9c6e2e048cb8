// controllers/items_controller.go
package controllers

import (
	"net/http"

	"borrow_analytics/app"

	"github.com/gin-gonic/gin"
)

const maxSearchLimit = 100

type ItemsController struct{ *Srv }

func NewItemsController(s *Srv) *ItemsController { return &ItemsController{Srv: s} }

// 物品搜索 ?q=&mode=&limit=
func (ic *ItemsController) Search(c *gin.Context) {
	mode, err := modeParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	limit, err := intParam(c, "limit", 20)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	items := ic.Engine.SearchItems(mode, c.Query("q"), limit)
	c.JSON(http.StatusOK, app.H{"items": items, "total": len(items)})
}

// 未映射类别的物品编码
func (ic *ItemsController) Unmapped(c *gin.Context) {
	codes := ic.Engine.UnmappedCodes()
	c.JSON(http.StatusOK, app.H{"codes": codes, "total": len(codes)})
}
