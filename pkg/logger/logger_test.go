package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinLogger_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	defer Init("info")

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/api/projects", func(c *gin.Context) {
		if RequestID(c) == "" {
			t.Error("request id should be set inside the handler")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects?name.equals=x", nil)
	r.ServeHTTP(w, req)

	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry the request id header")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["route"] != "/api/projects" {
		t.Errorf("route = %v, expected /api/projects", entry["route"])
	}
	if entry["query"] != "name.equals=x" {
		t.Errorf("query = %v, expected name.equals=x", entry["query"])
	}
	if entry["request_id"] != w.Header().Get(RequestIDHeader) {
		t.Errorf("logged request_id %v does not match header", entry["request_id"])
	}
}

func TestGinLogger_KeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	defer Init("info")

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, expected abc-123", got)
	}
}

func TestGinRecovery_Returns500(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	defer Init("info")

	r := gin.New()
	r.Use(GinRecovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/boom", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Error("panic should be logged")
	}
}

func TestComponent_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", &buf)
	defer Init("info")

	l := Component("relay")
	l.Info().Msg("pass done")

	if !strings.Contains(buf.String(), `"component":"relay"`) {
		t.Errorf("component field missing in %q", buf.String())
	}
}
