package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/service"
)

func TestFailMapsErrorClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: weekly", service.ErrUnknownScope), http.StatusBadRequest},
		{service.ErrSyncRunning, http.StatusConflict},
		{fmt.Errorf("walk: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("pq: connection refused"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, tc.err, map[string]any{"scope": "full"})
		if w.Code != tc.want {
			t.Fatalf("%v: code=%d want %d", tc.err, w.Code, tc.want)
		}
		var body apiResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tc.want || body.Message != tc.err.Error() || body.Meta["scope"] != "full" {
			t.Fatalf("%v: body=%+v", tc.err, body)
		}
	}
}
