package paas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/config"
)

type fakeGateway struct {
	mu     sync.Mutex
	logins int
	logs   []CreateLogRequest
}

func (g *fakeGateway) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		switch r.URL.Path {
		case "/api/v1/auth/login":
			g.logins++
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":      "tok",
				"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		case "/api/v1/logs":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var req CreateLogRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			g.logs = append(g.logs, req)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectAndLogBestEffort(t *testing.T) {
	g := &fakeGateway{}
	srv := g.server(t)

	p := Connect(context.Background(), config.PaaSConfig{BaseURL: srv.URL + "/", APIKey: "k"}, nil)
	if p == nil {
		t.Fatalf("Connect returned nil")
	}
	ctx := WithClient(context.Background(), p)
	LogBestEffortCtx(ctx, "auction_sync", "info", map[string]any{"rows": 3})
	LogBestEffortCtx(ctx, "auction_sync", "info", nil)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.logins != 1 {
		t.Fatalf("logins=%d want 1", g.logins)
	}
	if len(g.logs) != 2 || g.logs[0].Agent != DefaultAgent || g.logs[0].Action != "auction_sync" {
		t.Fatalf("logs=%+v", g.logs)
	}
}

func TestConnectDisabledWithoutConfig(t *testing.T) {
	if p := Connect(context.Background(), config.PaaSConfig{}, nil); p != nil {
		t.Fatalf("expected nil client")
	}
	// no client on the context: must not panic
	LogBestEffortCtx(context.Background(), "x", "info", nil)
	LogBestEffortCtx(WithClient(context.Background(), nil), "x", "info", nil)
}

func TestRequireBearerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireBearerMiddleware(config.PaaSConfig{RequireGateway: true}))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/auctions", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		path    string
		headers map[string]string
		want    int
	}{
		{"/healthz", nil, http.StatusOK},
		{"/api/auctions", nil, http.StatusUnauthorized},
		{"/api/auctions", map[string]string{"Authorization": "Bearer x"}, http.StatusUnauthorized},
		{"/api/auctions", map[string]string{"Authorization": "Bearer x", projectHeader: "p"}, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s %v code=%d want %d", tc.path, tc.headers, w.Code, tc.want)
		}
	}
}
