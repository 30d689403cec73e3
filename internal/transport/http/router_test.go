package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"course-portal/internal/app"
	"course-portal/internal/catalog"
	"course-portal/internal/infra/memory"
	"course-portal/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, store app.ProfileStore, limiter *RateLimiter) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	logger := zap.NewNop()

	router := NewRouter(RouterDeps{
		Profiles:          app.NewProfileService(store, collector, logger),
		Courses:           memory.NewCourseRepository(catalog.Default(), time.Minute),
		Logger:            logger,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		RateLimiter:       limiter,
		CORSAllowedOrigin: "*",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, string, http.Header) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data), resp.Header
}

func TestGetProfileNotFound(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	status, body, _ := do(t, http.MethodGet, srv.URL+"/api/users/nobody@x.com", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found"}`, body)
}

func TestUpsertThenGet(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	record := `{"email":"a@x.com","fullName":"Ann","enrolledCourses":["welder"]}`
	status, body, _ := do(t, http.MethodPost, srv.URL+"/api/users", record)
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"ok":true}`, body)

	status, body, headers := do(t, http.MethodGet, srv.URL+"/api/users/a@x.com", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, record, body)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	// The second write replaces the whole record.
	status, _, _ = do(t, http.MethodPost, srv.URL+"/api/users/", `{"email":"a@x.com","fullName":"Ann B"}`)
	require.Equal(t, http.StatusOK, status)
	_, body, _ = do(t, http.MethodGet, srv.URL+"/api/users/a%40x.com", "")
	assert.JSONEq(t, `{"email":"a@x.com","fullName":"Ann B"}`, body)
}

func TestUpsertValidation(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"email":`, want: `{"error":"Invalid JSON"}`},
		{name: "not an object", body: `["a@x.com"]`, want: `{"error":"Invalid JSON"}`},
		{name: "null", body: `null`, want: `{"error":"Invalid JSON"}`},
		{name: "no email", body: `{"fullName":"Ann"}`, want: `{"error":"Missing email"}`},
		{name: "empty email", body: `{"email":""}`, want: `{"error":"Missing email"}`},
		{name: "email not a string", body: `{"email":42}`, want: `{"error":"Missing email"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := do(t, http.MethodPost, srv.URL+"/api/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.JSONEq(t, tt.want, body)
		})
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("disk unavailable")
}

func (failingStore) Put(context.Context, string, json.RawMessage) error {
	return errors.New("disk unavailable")
}

func TestStoreFailuresReturn500(t *testing.T) {
	srv := newTestServer(t, failingStore{}, nil)

	status, body, _ := do(t, http.MethodPost, srv.URL+"/api/users", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, `"error"`)

	status, _, _ = do(t, http.MethodGet, srv.URL+"/api/users/a@x.com", "")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestCORSAndRequestID(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	status, _, headers := do(t, http.MethodOptions, srv.URL+"/api/users", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "*", headers.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, headers.Get(requestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(requestIDHeader))
}

func TestGetCourse(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	status, body, _ := do(t, http.MethodGet, srv.URL+"/api/courses/seller", "")
	require.Equal(t, http.StatusOK, status)
	var course struct {
		ID      string            `json:"id"`
		Lessons []json.RawMessage `json:"lessons"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &course))
	assert.Equal(t, "seller", course.ID)
	assert.Len(t, course.Lessons, 3)

	status, body, _ = do(t, http.MethodGet, srv.URL+"/api/courses/pilot", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found"}`, body)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	status, body, _ := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	do(t, http.MethodGet, srv.URL+"/api/users/nobody@x.com", "")
	status, body, _ = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `portal_http_status_total{status_code="404"} 1`)
	assert.Contains(t, body, `portal_profile_fetch_total{result="miss"} 1`)
}

func TestRateLimitedAPI(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1}, zap.NewNop())
	defer limiter.Stop()
	srv := newTestServer(t, memory.NewProfileStore(), limiter)

	status, _, _ := do(t, http.MethodGet, srv.URL+"/api/users/a@x.com", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body, headers := do(t, http.MethodGet, srv.URL+"/api/users/a@x.com", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.JSONEq(t, `{"error":"Too many requests"}`, body)
	assert.NotEmpty(t, headers.Get("Retry-After"))

	// Health checks bypass the limiter.
	status, _, _ = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}
