package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey int

const clientCtxKey ctxKey = 1

func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientCtxKey, c)
}

func ClientFromContext(ctx context.Context) *Client {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(clientCtxKey).(*Client)
	return c
}

// LogBestEffort records a domain action with the client carried by ctx.
func LogBestEffort(ctx context.Context, action, level string, details map[string]any) {
	c := ClientFromContext(ctx)
	if c == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Write(wctx, Record{Action: action, Level: level, Details: details})
}

// ActorFunc names the authenticated caller for audit records.
type ActorFunc func(c *gin.Context) (userID, role string)

// Middleware injects the client into request contexts and records every
// write request after it completes.
func Middleware(client *Client, actor ActorFunc, logger *zap.Logger) gin.HandlerFunc {
	if client == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithClient(c.Request.Context(), client))
		start := time.Now()
		c.Next()

		method := strings.ToUpper(c.Request.Method)
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := c.Writer.Status()
		details := map[string]any{
			"method":   method,
			"path":     c.FullPath(),
			"uri":      c.Request.URL.Path,
			"status":   status,
			"duration": time.Since(start).String(),
		}
		if actor != nil {
			uid, role := actor(c)
			details["user_id"] = uid
			details["role"] = role
		}
		wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Write(wctx, Record{Action: "http_write", Level: LevelFromStatus(status), Details: details}); err != nil && logger != nil {
			logger.Debug("audit: write failed", zap.Error(err))
		}
	}
}

func LevelFromStatus(status int) string {
	if status >= 500 {
		return LevelError
	}
	if status >= 400 {
		return LevelWarn
	}
	return LevelInfo
}
