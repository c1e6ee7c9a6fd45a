package middleware

import (
	"github.com/lensvault/lensvault_server/internal/admin"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type AuthMiddleware struct {
	adminService *admin.Service
}

func NewAuthMiddleware(adminService *admin.Service) *AuthMiddleware {
	return &AuthMiddleware{
		adminService: adminService,
	}
}

// RequireAdmin rejects requests without a valid admin token.
func (am *AuthMiddleware) RequireAdmin(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		_, err := am.adminService.ValidateJWTFromRequest(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Authentication failed")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		ctx.SetUserValue("isAdmin", true)

		handler(ctx)
	}
}

// OptionalAdmin marks the request as admin when a valid token is present, but
// never rejects. Viewer endpoints use it so the photographer gets the PIN
// bypass on their own portfolios.
func (am *AuthMiddleware) OptionalAdmin(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, err := am.adminService.ValidateJWTFromRequest(ctx); err == nil {
			ctx.SetUserValue("isAdmin", true)
		}

		handler(ctx)
	}
}
