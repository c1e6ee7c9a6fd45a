package status

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// SocketStats reports live viewer socket counts.
type SocketStats interface {
	GetStats() (totalClients, totalSessions int)
}

type StatusEndpoints struct {
	version string
	sockets SocketStats
}

func NewEndpoints(version string, sockets SocketStats) *StatusEndpoints {
	return &StatusEndpoints{
		version: version,
		sockets: sockets,
	}
}

type StatusResponse struct {
	Health         string `json:"health"`
	Version        string `json:"version"`
	ViewerSockets  int    `json:"viewerSockets"`
	ViewerSessions int    `json:"viewerSessions"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	clients, sessions := se.sockets.GetStats()
	response := StatusResponse{
		Health:         "OK",
		Version:        se.version,
		ViewerSockets:  clients,
		ViewerSessions: sessions,
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
