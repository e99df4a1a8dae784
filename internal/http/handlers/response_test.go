package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// capture logs from LoggerFrom(c)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// simulate RequestID + request-scoped logger
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})

	r.POST("/canvases/c1/pixels", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "placement commit failed")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/canvases/c1/pixels", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "placement commit failed" {
		t.Fatalf("unexpected body: %+v", resp)
	}

	// ensure something was logged at error level
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_404_And_SuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// set request id for envelope
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Next()
	})

	// exported Fail (4xx path)
	r.GET("/canvases/nope", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
	})

	// ok helper
	r.POST("/canvases", func(c *gin.Context) {
		ok(c, http.StatusCreated, gin.H{"id": "c2", "width": 64})
	})

	// noContent helper
	r.DELETE("/canvases/c1", func(c *gin.Context) {
		noContent(c)
	})

	// 404
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/canvases/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json 404: %v", err)
	}
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound || er.Message != "canvas not found" {
		t.Fatalf("unexpected 404 body: %+v", er)
	}

	// ok (201)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/canvases", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	var okBody map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &okBody); err != nil {
		t.Fatalf("json 201: %v", err)
	}
	if okBody["id"] != "c2" || int(okBody["width"].(float64)) != 64 {
		t.Fatalf("unexpected ok body: %#v", okBody)
	}

	// noContent (204)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/canvases/c1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body for 204")
	}
}

func Test_failRetryAfter_HeaderAndEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-429")
		c.Next()
	})

	r.POST("/canvases/c1/pixels", func(c *gin.Context) {
		failRetryAfter(c, ErrCodeRateLimited, "placement budget exhausted", 17)
	})
	// retryAfter below 1 must be clamped so clients never get Retry-After: 0
	r.POST("/canvases/c2/pixels", func(c *gin.Context) {
		failRetryAfter(c, ErrCodeRateLimited, "placement budget exhausted", 0)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/canvases/c1/pixels", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "17" {
		t.Fatalf("Retry-After = %q; want 17", got)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json 429: %v", err)
	}
	if er.RequestID != "rid-429" || er.Code != ErrCodeRateLimited || er.RetryAfter != 17 {
		t.Fatalf("unexpected 429 body: %+v", er)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/canvases/c2/pixels", nil)
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("clamped Retry-After = %q; want 1", got)
	}
}
