package internal

import (
	"strings"

	"github.com/lensvault/lensvault_server/internal/admin"
	"github.com/lensvault/lensvault_server/internal/download"
	"github.com/lensvault/lensvault_server/internal/health"
	"github.com/lensvault/lensvault_server/internal/middleware"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/lensvault/lensvault_server/internal/status"
	"github.com/lensvault/lensvault_server/internal/websocket"
	"github.com/valyala/fasthttp"
)

func NewRequestHandler(config *Config, adminEndpoints *admin.Endpoints, adminService *admin.Service, portfolioEndpoints *portfolio.Endpoints, downloadEndpoints *download.Endpoints, healthEndpoints *health.HealthEndpoints, statusEndpoints *status.StatusEndpoints, wsHandler *websocket.Handler) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(adminService)
	corsMiddleware := middleware.NewCORSMiddleware(config.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())

		switch {
		case path == "/health":
			healthEndpoints.Health(ctx)
		case path == "/status":
			authMiddleware.RequireAdmin(statusEndpoints.Status)(ctx)

		case path == "/admin/challenge":
			adminEndpoints.GetChallenge(ctx)
		case path == "/admin/auth":
			method := string(ctx.Method())
			if method == "POST" {
				adminEndpoints.Auth(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/portfolios":
			method := string(ctx.Method())
			switch method {
			case "POST":
				authMiddleware.RequireAdmin(portfolioEndpoints.CreatePortfolio)(ctx)
			case "GET":
				authMiddleware.RequireAdmin(portfolioEndpoints.ListPortfolios)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/portfolios/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("portfolioID", parts[2])
				method := string(ctx.Method())
				switch method {
				case "GET":
					authMiddleware.RequireAdmin(portfolioEndpoints.GetPortfolio)(ctx)
				case "DELETE":
					authMiddleware.RequireAdmin(portfolioEndpoints.DeletePortfolio)(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case strings.HasPrefix(path, "/share/") && strings.HasSuffix(path, "/pin"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "pin" {
				ctx.SetUserValue("slug", parts[2])
				method := string(ctx.Method())
				if method == "POST" {
					authMiddleware.OptionalAdmin(downloadEndpoints.ValidatePin)(ctx)
				} else {
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case strings.HasPrefix(path, "/share/") && strings.HasSuffix(path, "/download"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "download" {
				ctx.SetUserValue("slug", parts[2])
				authMiddleware.OptionalAdmin(downloadEndpoints.DownloadAll)(ctx)
			} else if len(parts) == 6 && parts[3] == "assets" && parts[5] == "download" {
				ctx.SetUserValue("slug", parts[2])
				ctx.SetUserValue("assetIndex", parts[4])
				authMiddleware.OptionalAdmin(downloadEndpoints.DownloadAsset)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case strings.HasPrefix(path, "/share/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("slug", parts[2])
				portfolioEndpoints.GetShare(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/ws":
			wsHandler.HandleFastHTTP(ctx)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}
