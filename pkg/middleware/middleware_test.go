package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubLimiter struct {
	res *ratelimit.Result
	err error
}

func (s stubLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	return s.res, s.err
}

type recordingCollector struct {
	paths []string
	codes []int
}

func (r *recordingCollector) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	r.paths = append(r.paths, path)
	r.codes = append(r.codes, statusCode)
}
func (r *recordingCollector) RecordAdjustment(err error, duration float64) {}
func (r *recordingCollector) RecordQuery(err error, duration float64)      {}
func (r *recordingCollector) RecordCacheLookup(hit bool)                   {}
func (r *recordingCollector) SetSeriesActive(count int)                    {}
func (r *recordingCollector) RecordCommand(op string, err error)           {}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggingMiddlewarePropagatesTrace(t *testing.T) {
	collector := &recordingCollector{}
	r := gin.New()
	r.Use(GinLoggingMiddleware(collector))
	var seen string
	r.GET("/v1/ping/:id", func(c *gin.Context) {
		seen = logger.TraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ping/7", nil)
	req.Header.Set(TraceHeader, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "trace-abc", seen)
	require.Equal(t, "trace-abc", rec.Header().Get(TraceHeader))
	require.Equal(t, []string{"/v1/ping/:id"}, collector.paths)
	require.Equal(t, []int{http.StatusNoContent}, collector.codes)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limit := ratelimit.PerPeriod(10, time.Second, 0)
	require.Equal(t, 10, limit.Burst)

	cases := []struct {
		name    string
		limiter stubLimiter
		want    int
	}{
		{"allowed", stubLimiter{res: &ratelimit.Result{Allowed: true, Remaining: 9}}, http.StatusOK},
		{"denied", stubLimiter{res: &ratelimit.Result{Allowed: false, RetryAfter: 2 * time.Second}}, http.StatusTooManyRequests},
		{"fail open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tc.limiter, limit))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusTooManyRequests {
				require.Equal(t, "2", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestGRPCRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err := GRPCRecoveryInterceptor()(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	require.Equal(t, codes.Internal, status.Code(err))

	resp, err := GRPCLoggingInterceptor()(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		require.NotEmpty(t, logger.TraceID(ctx))
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
}
