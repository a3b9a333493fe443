package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxQueryLogLength caps the logged query string.
const maxQueryLogLength = 2048

var (
	// botTokenRE matches platform bot tokens ("123456:ABC-...").
	botTokenRE = regexp.MustCompile(`\b\d{5,}:[A-Za-z0-9_-]{30,}\b`)
	uuidRE     = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
)

// RedactOptions configures RedactingLogger.
//
// Secrets are literal substrings (the webhook path secret, the API token)
// replaced wherever they occur in the logged path, query or headers.
// MaskHeaders are merged with Authorization, Cookie and Set-Cookie and are
// always fully masked.
type RedactOptions struct {
	Secrets     []string
	MaskHeaders []string
}

// RedactingLogger writes one structured access line per request with
// secrets scrubbed, and stores a request-scoped logger for handlers.
// Bodies are never logged. Level follows the status: error for 5xx or
// collected Gin errors, warn for 4xx, info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	var pairs []string
	for _, s := range opts.Secrets {
		if s != "" {
			pairs = append(pairs, s, "[REDACTED]")
		}
	}
	secrets := strings.NewReplacer(pairs...)

	redact := func(s string) string {
		if s == "" {
			return s
		}
		s = secrets.Replace(s)
		s = botTokenRE.ReplaceAllString(s, "[REDACTED:token]")
		return uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	}

	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		path = redact(path)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", redact(c.Errors.String()))
			}
		case status >= 400:
			ev = l.Warn()
		}
		ev.
			Str("query", truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
