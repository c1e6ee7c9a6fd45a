package main

import (
	"time"

	"github.com/lensvault/lensvault_server/internal"
	"github.com/lensvault/lensvault_server/internal/admin"
	"github.com/lensvault/lensvault_server/internal/archive"
	"github.com/lensvault/lensvault_server/internal/download"
	"github.com/lensvault/lensvault_server/internal/fetch"
	"github.com/lensvault/lensvault_server/internal/health"
	"github.com/lensvault/lensvault_server/internal/keys"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/lensvault/lensvault_server/internal/status"
	"github.com/lensvault/lensvault_server/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const version = "1.0.0"

func main() {
	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}

	// Signing keys are derived, not stored; see keys.DeriveRSAKeyPair.
	privateKey, publicKey, err := keys.DeriveRSAKeyPair(config.MasterSecret, config.ExternalURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error deriving RSA keys")
		return
	}
	log.Info().Msg("RSA keys initialized successfully")

	db, err := internal.NewDB(config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
		return
	}

	portfolioRepository := portfolio.NewSQLRepository(db.Conn())
	portfolioService := portfolio.NewService(portfolioRepository)

	sessionStore := pinauth.NewStore(time.Duration(config.Pin.SessionTTLMinutes) * time.Minute)
	pinService := pinauth.NewService(sessionStore, config.Pin, privateKey, publicKey)

	adminService := admin.NewService(config.Admin, privateKey, publicKey)
	adminEndpoints := admin.NewEndpoints(config.Admin, adminService)

	retriever := fetch.NewRetriever(config.Fetch)
	assembler := archive.NewAssembler(retriever)
	downloadRouter := download.NewRouter(retriever, assembler, config.Download)
	downloadEndpoints := download.NewEndpoints(downloadRouter, pinService, portfolioRepository)

	portfolioEndpoints := portfolio.NewEndpoints(portfolioService, sessionStore)

	hub := websocket.NewHub()
	go hub.Run()
	downloadRouter.SetProgressPublisher(hub)
	wsHandler := websocket.NewHandler(hub, sessionStore, portfolioRepository, downloadRouter, adminService)

	healthEndpoints := health.NewEndpoints(version)
	statusEndpoints := status.NewEndpoints(version, hub)

	requestHandler := internal.NewRequestHandler(config, adminEndpoints, adminService, portfolioEndpoints, downloadEndpoints, healthEndpoints, statusEndpoints, wsHandler)

	log.Info().Str("addr", config.ListenAddr).Msg("Server listening")
	if err := fasthttp.ListenAndServe(config.ListenAddr, requestHandler); err != nil {
		log.Fatal().Err(err).Msg("Error starting server")
	}
}
