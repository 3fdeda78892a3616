package paas

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const docs = `# Auction House Ingest

Indexes the Hypixel SkyBlock auction house into Postgres. Item payloads are
decoded and flattened into one row per listing; payloads that cannot be
decoded are recorded as listing anomalies.

## Access via PaaS

Base path (through gateway):
- /api/v1/services/auctions/

## Auth

All /api/* routes require a Bearer token (validated by the PaaS gateway).
Health endpoints are public.

## Routes

- GET /healthz
- GET /readyz
- POST /api/auctions/sync?scope=recent|full&pages=N&force=true
- GET /api/auctions/sync-state
- GET /api/auctions?item_id=&tier=&bin=&min_price=&order_by=price&ascending=true
- GET /api/auctions/{uuid}
- GET /api/auctions/anomalies?listing_id=&run_id=&kind=
`

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, docs)
	})
}
