package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"borrow_analytics/app"
	"borrow_analytics/catalog"
	"borrow_analytics/engine"
	"borrow_analytics/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.Config{
		Location: time.UTC,
		Mapping:  catalog.Mapping{Codes: map[string]string{"CAM-001": "Camera", "CAM-002": "Camera"}},
	}, engine.WithLogger(logger), engine.WithClock(func() time.Time {
		return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	}))
	a := &app.App{
		Router: gin.New(),
		Engine: eng,
		Config: app.Config{AdminToken: "secret"},
		Logger: logger,
	}
	RegisterRoutes(a.Router, a)
	return a
}

func do(t *testing.T, a *app.App, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method == http.MethodPost {
		req.Header.Set(app.AdminTokenHeader, "secret")
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const historicalJSON = `{"rows": [
  {"Code": "CAM-001", "item name(with num)": "Camera 1", "Start": "2025-01-01 00:00:00", "finished": "2025-01-04 00:00:00"},
  {"Code": "CAM-002", "item name(with num)": "Camera 2", "Start": "2025-01-05 00:00:00", "finished": "2025-01-06 00:00:00"},
  {"Code": "CAM-002", "item name(with num)": "Camera 2", "Start": "2025-01-07 00:00:00", "finished": ""},
  {"Code": "", "Start": "2025-01-07 00:00:00"}
]}`

const realtimeCSV = "Time,NetID,Equipment Name,Code,Action\n" +
	"01/08/2025 09:00:00,ab1,Camera 1,CAM-001,Check Out\n" +
	"01/08/2025 17:00:00,ab1,Camera 1,CAM-001,Check In\n"

func seed(t *testing.T, a *app.App) {
	t.Helper()
	w := do(t, a, http.MethodPost, "/api/ingest?source=historical", "application/json", historicalJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, a, http.MethodPost, "/api/ingest?source=realtime&refresh=true", "text/csv", realtimeCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestIngestRequiresAdminToken(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest?source=historical", strings.NewReader(historicalJSON))
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestReport(t *testing.T) {
	a := newTestApp(t)
	w := do(t, a, http.MethodPost, "/api/ingest?source=historical", "application/json", historicalJSON)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Report models.IngestReport `json:"report"`
	}](t, w)
	assert.Equal(t, 4, out.Report.Received)
	assert.Equal(t, 3, out.Report.Accepted)
	assert.Equal(t, 1, out.Report.Reasons["MissingItemCode"])

	w = do(t, a, http.MethodPost, "/api/ingest?source=excel", "application/json", historicalJSON)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, a, http.MethodPost, "/api/ingest?source=historical", "application/json", "{nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshAndSnapshot(t *testing.T) {
	a := newTestApp(t)
	do(t, a, http.MethodPost, "/api/ingest?source=historical", "application/json", historicalJSON)

	w := do(t, a, http.MethodGet, "/api/snapshot", "", "")
	snap := decode[struct {
		Snapshot models.SnapshotInfo `json:"snapshot"`
	}](t, w)
	assert.Zero(t, snap.Snapshot.Records, "staged rows are not visible before refresh")

	w = do(t, a, http.MethodPost, "/api/refresh", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodGet, "/api/snapshot?mode=full", "", "")
	out := decode[struct {
		Snapshot models.SnapshotInfo `json:"snapshot"`
		Stats    models.Stats        `json:"stats"`
	}](t, w)
	assert.Equal(t, 3, out.Snapshot.Records)
	assert.Equal(t, 1, out.Snapshot.OpenRecords)
	assert.Equal(t, 3, out.Stats.TotalRecords)

	w = do(t, a, http.MethodGet, "/api/snapshot?mode=weird", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimelineEndpoint(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)

	w := do(t, a, http.MethodGet, "/api/analysis/items/cam-001/timeline", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.AnalysisResult](t, w)
	require.True(t, res.OK, res.Reason)
	assert.Equal(t, 2, res.Timeline.TotalBorrows)

	w = do(t, a, http.MethodGet, "/api/analysis/items/CAM-001/timeline?from=2025-01-08&to=2025-01-08", "", "")
	res = decode[models.AnalysisResult](t, w)
	require.True(t, res.OK, res.Reason)
	require.Len(t, res.Timeline.Intervals, 1)

	w = do(t, a, http.MethodGet, "/api/analysis/items/NOPE/timeline", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	res = decode[models.AnalysisResult](t, w)
	assert.False(t, res.OK)
	assert.Equal(t, models.FailItemNotFound, res.Code)

	w = do(t, a, http.MethodGet, "/api/analysis/items/CAM-001/timeline?from=2025-01-08", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopNEndpoint(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)

	w := do(t, a, http.MethodGet, "/api/analysis/topn?category=Camera&n=1&granularity=month", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[models.AnalysisResult](t, w)
	require.True(t, res.OK, res.Reason)
	require.Len(t, res.TopN.Buckets, 1)
	require.Len(t, res.TopN.Buckets[0].Entries, 1)
	assert.Equal(t, "CAM-001", res.TopN.Buckets[0].Entries[0].ItemCode, "2 borrows each; Camera 1 sorts first")

	for _, bad := range []string{"n=0", "n=x", "granularity=fortnight", "metric=median", "from=2025-02-01&to=2025-01-01"} {
		w = do(t, a, http.MethodGet, "/api/analysis/topn?category=Camera&"+bad, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		res = decode[models.AnalysisResult](t, w)
		assert.Equal(t, models.FailInvalidParameter, res.Code, bad)
	}
}

func TestOccupancyEndpoint(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)

	w := do(t, a, http.MethodGet, "/api/analysis/items/CAM-001/occupancy?from=2025.01.01&to=25/01/10", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[models.AnalysisResult](t, w)
	require.True(t, res.OK, res.Reason)
	// 3 days plus 8 hours out of 10 days
	assert.InDelta(t, (72.0+8.0)/240.0, res.Occupancy.Ratio, 1e-9)

	w = do(t, a, http.MethodGet, "/api/analysis/items/CAM-001/occupancy", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemsAndAnomalies(t *testing.T) {
	a := newTestApp(t)
	do(t, a, http.MethodPost, "/api/ingest?source=historical&refresh=1", "application/json",
		`[{"Code": "CAM-001", "item name(with num)": "Camera 1", "Start": "2025-01-01 00:00:00"},
		  {"Code": "TRI-009", "item name(with num)": "Tripod 9", "Start": "2025-01-02 00:00:00"},
		  {"Code": "CAM-001", "item name(with num)": "Camera 1", "Start": "2025-01-03 00:00:00"}]`)

	w := do(t, a, http.MethodGet, "/api/items?q=cam", "", "")
	items := decode[struct {
		Items []models.ItemMatch `json:"items"`
	}](t, w)
	require.Len(t, items.Items, 1)
	assert.Equal(t, 2, items.Items[0].Borrows)

	w = do(t, a, http.MethodGet, "/api/items?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, http.MethodGet, "/api/items/unmapped", "", "")
	unmapped := decode[struct {
		Codes []string `json:"codes"`
	}](t, w)
	assert.Equal(t, []string{"TRI-009"}, unmapped.Codes)

	w = do(t, a, http.MethodGet, "/api/anomalies", "", "")
	an := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, an.Count)
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	w := do(t, a, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, a, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
