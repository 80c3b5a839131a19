package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func router(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenBucket(t *testing.T) {
	now := time.Date(2024, 10, 24, 10, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	r := router(l.GinMiddleware())

	assert.Equal(t, http.StatusOK, get(r).Code)
	assert.Equal(t, http.StatusOK, get(r).Code)
	w := get(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit"}`, w.Body.String())

	// one token per second at 60/min
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, get(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r).Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	r := router(NewSimpleTokenBucket(0, 0).GinMiddleware())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r).Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := get(router(SecurityHeaders()))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	w := get(router(CORS(nil)), "Origin", "http://localhost:5173")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(router(CORS([]string{"https://eduflow.example"})), "Origin", "https://eduflow.example")
	assert.Equal(t, "https://eduflow.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(router(CORS([]string{"https://eduflow.example"})), "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
