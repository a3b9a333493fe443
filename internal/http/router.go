// Package httpapi wires the HTTP transport (Gin): the platform webhook, the
// optional read-only party API, health and metrics. It centralizes tracing,
// correlation IDs, redacted logging, panic recovery, metrics, CORS, security
// headers and API rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/pull-party-bot/internal/config"
	"github.com/tbourn/pull-party-bot/internal/http/handlers"
	"github.com/tbourn/pull-party-bot/internal/http/middleware"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/ratelimit"
)

// maxBodyBytes caps request bodies; platform updates are far smaller.
const maxBodyBytes = 1 << 20

// Deps are the collaborators behind the routes. Decoder is nil when the bot
// long-polls, which leaves the webhook unmounted. Parties is only used when
// the read API is enabled.
type Deps struct {
	Config  config.Config
	Parties handlers.PartyLister
	Decoder handlers.UpdateDecoder
	Updates chan<- platform.Update
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: access logs with the webhook secret and tokens scrubbed
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics (webhook route relabelled)
//  7. CORS and security headers
//
// The API group adds bearer auth, rate limiting and gzip.
func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config
	webhookPath := cfg.WebhookPath()
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		Secrets:     []string{cfg.Bot.WebhookSecret, cfg.Bot.Token, cfg.APIToken},
		MaskHeaders: []string{"X-Telegram-Bot-Api-Secret-Token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics(middleware.SecretRelabel(webhookPath, "/webhook/:secret")))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(d.Parties, d.Decoder, d.Updates)

	if d.Decoder != nil && cfg.Bot.WebhookSecret != "" {
		r.POST(webhookPath, h.Webhook)
	}

	if cfg.APIEnabled && d.Parties != nil {
		api := groupWithPrefix(r, cfg.APIBasePath)
		api.Use(middleware.BearerAuth(cfg.APIToken))
		api.Use(middleware.RateLimit(ratelimit.New(cfg.RateRPS, cfg.RateBurst), middleware.KeyByPrincipalOrIP()))
		api.Use(gzip.Gzip(gzip.DefaultCompression))
		api.GET("/chats/:chatId/parties", h.ListParties)
	}
}

// corsMiddleware allows any origin when no allowlist is configured and echoes
// allowlisted origins otherwise. Credentials are never allowed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO even without an Origin header, for simple health checks.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; reads beyond it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
