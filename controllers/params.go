package controllers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"borrow_analytics/analysis"
	"borrow_analytics/models"
	"borrow_analytics/normalize"

	"github.com/gin-gonic/gin"
)

func modeParam(c *gin.Context) (analysis.Mode, error) {
	return analysis.ParseMode(c.Query("mode"))
}

// rangeParam 读取 from/to；都为空返回 nil。日期不带时间时 to 包含当天
func rangeParam(c *gin.Context, loc *time.Location) (*models.TimeRange, error) {
	from, to := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: both from and to are required", analysis.ErrInvalidParameter)
	}
	start, err := parseDate(from, loc, false)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(to, loc, true)
	if err != nil {
		return nil, err
	}
	r := models.TimeRange{Start: start, End: end}
	if !r.Valid() {
		return nil, fmt.Errorf("%w: to must be after from", analysis.ErrInvalidParameter)
	}
	return &r, nil
}

// parseDate 接受 RFC3339、原始导出格式，以及 YYYY-MM-DD / YYYY/MM/DD / YYYY.MM.DD / YY/MM/DD
func parseDate(v string, loc *time.Location, end bool) (time.Time, error) {
	if t, ok := dateOnly(v, loc); ok {
		if end {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := normalize.ParseTimestamp(v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", analysis.ErrInvalidParameter, v)
	}
	return t, nil
}

func dateOnly(v string, loc *time.Location) (time.Time, bool) {
	norm := strings.NewReplacer(".", "/", "-", "/").Replace(v)
	parts := strings.Split(norm, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var n [3]int
	for i, p := range parts {
		x, err := strconv.Atoi(p)
		if err != nil || x < 0 {
			return time.Time{}, false
		}
		n[i] = x
	}
	year, month, day := n[0], n[1], n[2]
	switch len(parts[0]) {
	case 2:
		year += 2000
	case 4:
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// 拒绝 2月30日 这类会被 time.Date 进位的日期
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", analysis.ErrInvalidParameter, key, v)
	}
	return n, nil
}
