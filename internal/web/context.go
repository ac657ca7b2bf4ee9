package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/aibox/internal/core"
)

type ctxKey int

const ctxKeySession ctxKey = iota

// withSession stores the browser's workflow session in ctx, plus its id and
// the client IP for logging.
func withSession(ctx context.Context, r *http.Request, sess *core.Session) context.Context {
	ctx = context.WithValue(ctx, ctxKeySession, sess)
	ctx = core.ContextWithSessionID(ctx, sess.ID())
	ctx = core.ContextWithClientIP(ctx, clientIP(r))
	return ctx
}

// sessionFrom returns the session placed by the session middleware.
func sessionFrom(ctx context.Context) *core.Session {
	sess, _ := ctx.Value(ctxKeySession).(*core.Session)
	return sess
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP when the request came through a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
