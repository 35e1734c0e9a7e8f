package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx so reports
// record who asked for them. RemoteAddr has already been resolved by
// TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
