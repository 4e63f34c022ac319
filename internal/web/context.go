package web

import (
	"context"
	"net/http"

	"github.com/tableport/tableport/internal/core"
)

// WithRequestMetadata adds client IP and User-Agent to the context so the
// upload recorder can attribute records to callers.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by the TrustedRealIP middleware
	ua := r.Header.Get("User-Agent")
	ctx = core.ContextWithClientIP(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, ua)
	return ctx
}
