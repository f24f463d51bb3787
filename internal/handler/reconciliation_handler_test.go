package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/middleware"
	"github.com/noah-isme/guarderia-api/internal/models"
)

type fakeReconciliationSrv struct {
	result  dto.ReconciliationResult
	runs    int
	forDate string
}

func (f *fakeReconciliationSrv) Run(context.Context) dto.ReconciliationResult {
	f.runs++
	return f.result
}

func (f *fakeReconciliationSrv) RunFor(_ context.Context, date models.Date) dto.ReconciliationResult {
	f.runs++
	f.forDate = date.String()
	return f.result
}

func newReconciliationRouter(srv *fakeReconciliationSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/jobs/close-daily-attendance", middleware.JobToken("s3cret"), NewReconciliationHandler(srv).CloseDailyAttendance)
	return router
}

func postClose(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set(middleware.JobTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCloseDailyAttendanceSuccess(t *testing.T) {
	srv := &fakeReconciliationSrv{result: dto.ReconciliationResult{
		Success:    true,
		Message:    "Se registraron 2 salidas automáticas",
		Processed:  2,
		Date:       "2024-03-01",
		ClosedTime: "18:00:00",
	}}
	rec := postClose(newReconciliationRouter(srv), "/jobs/close-daily-attendance", "s3cret")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["procesados"])
	assert.Equal(t, "2024-03-01", body["fecha"])
	assert.Equal(t, "18:00:00", body["hora"])
	assert.NotContains(t, body, "data")
}

func TestCloseDailyAttendanceFailureIs500(t *testing.T) {
	srv := &fakeReconciliationSrv{result: dto.ReconciliationResult{Success: false, Error: "store unavailable"}}
	rec := postClose(newReconciliationRouter(srv), "/jobs/close-daily-attendance", "s3cret")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "store unavailable", body["error"])
	assert.Equal(t, float64(0), body["procesados"])
}

func TestCloseDailyAttendanceExplicitDate(t *testing.T) {
	srv := &fakeReconciliationSrv{result: dto.ReconciliationResult{Success: true}}
	rec := postClose(newReconciliationRouter(srv), "/jobs/close-daily-attendance?date=2024-02-28", "s3cret")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-02-28", srv.forDate)
}

func TestCloseDailyAttendanceRejectsBadToken(t *testing.T) {
	for _, token := range []string{"", "wrong"} {
		srv := &fakeReconciliationSrv{}
		rec := postClose(newReconciliationRouter(srv), "/jobs/close-daily-attendance", token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, srv.runs)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	}
}
