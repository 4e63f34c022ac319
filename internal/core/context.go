// context.go carries request metadata from the HTTP layer into upload
// records without coupling this package to net/http.
package core

import "context"

type contextKey string

const (
	clientIPKey  contextKey = "client_ip"
	userAgentKey contextKey = "user_agent"
)

// ContextWithClientIP records the caller's IP address.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

// ContextWithUserAgent records the caller's user agent.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, ua)
}

// ClientIPFromContext returns the recorded IP address, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// UserAgentFromContext returns the recorded user agent, or "".
func UserAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey).(string)
	return ua
}
