package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/filtrador/internal/core"
	"github.com/JonMunkholm/filtrador/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for export logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
