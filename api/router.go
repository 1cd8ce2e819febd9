package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports store health. nil means there is nothing to ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	NFC      *NFCHandler
	Store    Pinger
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(deps.Log))

	r.GET("/health", healthHandler(deps.Store))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	h := deps.NFC
	nfc := r.Group("/api/nfc")
	{
		// 1) 注册 NFC 卡并创建钱包
		nfc.POST("/register", h.Register)
		nfc.GET("/wallet/:uid", h.GetWallet)
		nfc.GET("/wallet/:uid/qr", h.WalletQR)
		nfc.GET("/wallet/:uid/custody", h.Custody)

		// 2) 域名
		nfc.GET("/domain/check", h.CheckDomain)
		nfc.POST("/domain/register", h.RegisterDomain)

		nfc.POST("/unbind", h.Unbind)
		nfc.GET("/balance/:address", h.GetBalance)
		nfc.POST("/cat/draw", h.DrawCat)
		nfc.GET("/stats", h.Stats)
	}
	r.GET("/api/contract/status", h.ContractStatus)

	return r
}

func healthHandler(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok", "time": time.Now().UTC()}
		if store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				body["status"] = "degraded"
				body["store"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["store"] = "ok"
		}
		c.JSON(http.StatusOK, body)
	}
}
