package middleware

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskgate/backend/api/transport"
	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/pkg/token"
)

// IdentityKey is the request user-value under which the decoded identity
// is stored for downstream handlers.
const IdentityKey = "identity"

// Auth verifies the bearer token and injects the decoded identity into
// the request. Verification is a pure decode; no data access happens
// before the handler runs. A bad or missing token never reaches the
// wrapped handler.
func Auth(verifier *token.Issuer, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ident, err := verifier.Verify(extractToken(ctx))
			if err != nil {
				logger.Warn("token verification failed", zap.Error(err))
				reject(ctx, err.Error())
				return
			}

			ctx.SetUserValue(IdentityKey, ident)
			next(ctx)
		}
	}
}

// IdentityFrom returns the identity stored by Auth, if any.
func IdentityFrom(ctx *fasthttp.RequestCtx) *domain.Identity {
	ident, _ := ctx.UserValue(IdentityKey).(*domain.Identity)
	return ident
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

func reject(ctx *fasthttp.RequestCtx, message string) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), message, nil))
	ctx.SetBody(body)
}
