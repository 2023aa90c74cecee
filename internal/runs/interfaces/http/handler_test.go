package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/runtracker/internal/runs/application"
	"github.com/wyfcoding/runtracker/internal/runs/infrastructure/persistence/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	repo := memory.NewSeriesRepository()
	h := NewRunHandler(
		application.NewRunCommandService(repo, nil, nil, nil, decimal.RequireFromString("0.01")),
		application.NewRunQueryService(repo, nil, nil, nil),
	)
	r := gin.New()
	h.RegisterRoutes(r.Group(""))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}

func TestRunHandlerLifecycle(t *testing.T) {
	r := newRouter()

	code, resp := do(t, r, http.MethodPost, "/v1/runs/series", gin.H{
		"id":        "G",
		"tick_size": "1",
		"ticks":     []int64{1, 3, 2, 2, 5},
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, float64(5), data(t, resp)["length"])

	code, resp = do(t, r, http.MethodGet, "/v1/runs/series/G/longest?a=1&b=5", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(3), data(t, resp)["length"])

	code, resp = do(t, r, http.MethodPost, "/v1/runs/series/G/adjust", gin.H{"a": 2, "b": 3, "delta": "-2"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(1), data(t, resp)["version"])

	code, resp = do(t, r, http.MethodGet, "/v1/runs/series/G/longest?a=1&b=2", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(2), data(t, resp)["length"])

	code, resp = do(t, r, http.MethodGet, "/v1/runs/series/G", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []any{"1", "1", "0", "2", "5"}, data(t, resp)["prices"])

	code, resp = do(t, r, http.MethodGet, "/v1/runs/series", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, data(t, resp)["data"], 1)

	code, _ = do(t, r, http.MethodDelete, "/v1/runs/series/G", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, "/v1/runs/series/G", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestRunHandlerErrors(t *testing.T) {
	r := newRouter()
	code, _ := do(t, r, http.MethodPost, "/v1/runs/series", gin.H{"id": "X", "length": 3, "initial": 1})
	require.Equal(t, http.StatusCreated, code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"duplicate", http.MethodPost, "/v1/runs/series", gin.H{"id": "X", "length": 1}, http.StatusConflict},
		{"empty series", http.MethodPost, "/v1/runs/series", gin.H{"id": "Y"}, http.StatusBadRequest},
		{"off tick", http.MethodPost, "/v1/runs/series", gin.H{"id": "Z", "prices": []string{"1.001"}}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/v1/runs/series", "not an object", http.StatusBadRequest},
		{"missing delta", http.MethodPost, "/v1/runs/series/X/adjust", gin.H{"a": 1, "b": 2}, http.StatusBadRequest},
		{"range overflow", http.MethodPost, "/v1/runs/series/X/adjust", gin.H{"a": 1, "b": 4, "delta_ticks": 1}, http.StatusBadRequest},
		{"unknown series", http.MethodPost, "/v1/runs/series/Q/adjust", gin.H{"a": 1, "b": 1, "delta": "1"}, http.StatusNotFound},
		{"reversed window", http.MethodGet, "/v1/runs/series/X/longest?a=3&b=1", nil, http.StatusBadRequest},
		{"non-numeric a", http.MethodGet, "/v1/runs/series/X/longest?a=x&b=1", nil, http.StatusBadRequest},
		{"missing b", http.MethodGet, "/v1/runs/series/X/longest?a=1", nil, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/v1/runs/series/Q", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, code)
			require.Equal(t, float64(tt.want), resp["code"])
		})
	}
}
