package gateway

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/dwikikusuma/tenant-cart/internal/observability"
)

const (
	HeaderSessionID = "X-Session-Id"
	HeaderRequestID = "X-Request-Id"

	ctxSessionID = "session_id"
	ctxRequestID = "request_id"
)

// Session resolves the shopper session from the X-Session-Id header, or the
// "session" query parameter for EventSource clients that cannot set headers.
// A new id is issued when neither is present and echoed back.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderSessionID))
		if id == "" {
			id = strings.TrimSpace(c.Query("session"))
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxSessionID, id)
		c.Header(HeaderSessionID, id)
		c.Next()
	}
}

// RequestID tags the request and forwards the id to the cart service as
// gRPC metadata.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)

		ctx := metadata.AppendToOutgoingContext(c.Request.Context(), "x-request-id", id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", c.GetString(ctxRequestID)),
		}
		if sid := c.GetString(ctxSessionID); sid != "" {
			attrs = append(attrs, slog.String("session", sid))
		}

		switch {
		case status >= 500:
			log.Error("http request", attrs...)
		case status >= 400:
			log.Warn("http request", attrs...)
		default:
			log.Info("http request", attrs...)
		}
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		observability.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		observability.HTTPDuration.WithLabelValues(method, route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", HeaderSessionID, HeaderRequestID},
		ExposeHeaders:    []string{HeaderSessionID, HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
