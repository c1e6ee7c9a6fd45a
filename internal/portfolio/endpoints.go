package portfolio

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	service  *Service
	sessions *pinauth.Store
}

func NewEndpoints(service *Service, sessions *pinauth.Store) *Endpoints {
	return &Endpoints{
		service:  service,
		sessions: sessions,
	}
}

// CreatePortfolioRequest represents the request body for creating a portfolio
type CreatePortfolioRequest struct {
	Title string            `json:"title"`
	Slug  string            `json:"slug,omitempty"`
	Pin   string            `json:"pin,omitempty"`
	Media []MediaDescriptor `json:"media"`
}

// CreatePortfolio handles POST /portfolios (admin only)
func (e *Endpoints) CreatePortfolio(ctx *fasthttp.RequestCtx) {
	var req CreatePortfolioRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		log.Error().Err(err).Msg("Failed to parse request body")
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	if req.Title == "" {
		ctx.Error("Title is required", fasthttp.StatusBadRequest)
		return
	}
	if req.Pin != "" && len(req.Pin) < pinauth.MinPinLength {
		ctx.Error(fmt.Sprintf("PIN must be at least %d characters", pinauth.MinPinLength), fasthttp.StatusBadRequest)
		return
	}

	item, err := e.service.Create(CreateOptions{
		Title: req.Title,
		Slug:  req.Slug,
		Pin:   req.Pin,
		Media: req.Media,
	})
	if err != nil {
		if errors.Is(err, ErrVideoNotFirst) {
			ctx.Error("Video must be the first media entry", fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to create portfolio")
		ctx.Error("Failed to create portfolio", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(item)
}

// ListPortfolios handles GET /portfolios (admin only)
func (e *Endpoints) ListPortfolios(ctx *fasthttp.RequestCtx) {
	items, err := e.service.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list portfolios")
		ctx.Error("Failed to list portfolios", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(items)
}

// GetPortfolio handles GET /portfolios/{id} (admin only)
func (e *Endpoints) GetPortfolio(ctx *fasthttp.RequestCtx) {
	id := fmt.Sprint(ctx.UserValue("portfolioID"))

	item, err := e.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("portfolioId", id).Msg("Failed to get portfolio")
		ctx.Error("Failed to get portfolio", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(item)
}

// DeletePortfolio handles DELETE /portfolios/{id} (admin only)
func (e *Endpoints) DeletePortfolio(ctx *fasthttp.RequestCtx) {
	id := fmt.Sprint(ctx.UserValue("portfolioID"))

	if err := e.service.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("portfolioId", id).Msg("Failed to delete portfolio")
		ctx.Error("Failed to delete portfolio", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ShareResponse is the public share view of a portfolio. It carries a fresh
// viewer session ID; all subsequent download and socket traffic references it.
type ShareResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Media       []MediaDescriptor `json:"media"`
	PinRequired bool              `json:"pinRequired"`
	SessionID   string            `json:"sessionId"`
}

// GetShare handles GET /share/{slug}. This is a public endpoint: the media
// list is always browsable, the PIN only gates downloads.
func (e *Endpoints) GetShare(ctx *fasthttp.RequestCtx) {
	slug := fmt.Sprint(ctx.UserValue("slug"))

	item, err := e.service.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("slug", slug).Msg("Failed to load portfolio")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	sess := e.sessions.Create(item.ID, item.PinRequired())

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(ShareResponse{
		ID:          item.ID,
		Title:       item.Title,
		Slug:        item.Slug,
		Media:       item.Media,
		PinRequired: item.PinRequired(),
		SessionID:   sess.ID,
	})
}
