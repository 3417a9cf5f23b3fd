package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazz-dev/reachprobe/internal/dashboard"
)

func serve(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	dashboard.Handler().ServeHTTP(w, req)
	return w
}

func TestHandler_ServesIndexHTML(t *testing.T) {
	w := serve("/")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected Content-Type text/html, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "reachprobe") {
		t.Error("expected index.html to contain 'reachprobe'")
	}
}

func TestHandler_ServesAssets(t *testing.T) {
	tests := []struct {
		path string
		ct   string
	}{
		{"/style.css", "text/css"},
		{"/app.js", "javascript"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.ct) {
				t.Errorf("expected Content-Type containing %q, got %q", tt.ct, ct)
			}
		})
	}
}

func TestHandler_ScriptPollsControls(t *testing.T) {
	if !strings.Contains(serve("/app.js").Body.String(), "/api/controls") {
		t.Error("expected app.js to poll /api/controls")
	}
}

func TestHandler_NotFound(t *testing.T) {
	if w := serve("/does-not-exist.xyz"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing asset, got %d", w.Code)
	}
}
