package websocket

import (
	"github.com/fasthttp/websocket"
	"github.com/lensvault/lensvault_server/internal/admin"
	"github.com/lensvault/lensvault_server/internal/download"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		// Origin filtering happens in the CORS middleware for HTTP; the share
		// link itself is the credential here.
		return true
	},
}

type Handler struct {
	hub           *Hub
	sessions      *pinauth.Store
	portfolioRepo portfolio.Repository
	router        *download.Router
	adminService  *admin.Service
}

func NewHandler(hub *Hub, sessions *pinauth.Store, portfolioRepo portfolio.Repository, router *download.Router, adminService *admin.Service) *Handler {
	return &Handler{
		hub:           hub,
		sessions:      sessions,
		portfolioRepo: portfolioRepo,
		router:        router,
		adminService:  adminService,
	}
}

// HandleFastHTTP handles WebSocket upgrade requests for the viewer socket.
// The session ID issued by the share endpoint authenticates the connection.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	sessionID := string(ctx.QueryArgs().Peek("session"))
	if sessionID == "" {
		log.Debug().Msg("[WS] Connection rejected: missing session")
		ctx.Error("Unauthorized: missing session", fasthttp.StatusUnauthorized)
		return
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		log.Debug().Err(err).Msg("[WS] Connection rejected: unknown session")
		ctx.Error("Unauthorized: unknown session", fasthttp.StatusUnauthorized)
		return
	}

	item, err := h.portfolioRepo.GetByID(sess.PortfolioID)
	if err != nil {
		log.Error().Err(err).Str("portfolioId", sess.PortfolioID).Msg("[WS] Failed to load portfolio")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	caps := download.Capabilities{}
	if token := string(ctx.QueryArgs().Peek("token")); token != "" {
		if _, err := h.adminService.ValidateJWT(token); err == nil {
			caps.Admin = true
		}
	}

	err = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, sess, caps, item, h.router)
		h.hub.Register(client)

		client.send <- &OutgoingMessage{
			Type:      MessageTypeConnected,
			SessionID: sess.ID,
		}

		log.Info().
			Str("sessionId", sess.ID).
			Str("portfolioId", item.ID).
			Msg("[WS] Viewer socket established")

		go client.WritePump()
		client.ReadPump() // Blocks until disconnect
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
