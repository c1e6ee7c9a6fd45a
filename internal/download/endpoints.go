package download

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/lensvault/lensvault_server/internal/archive"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const headerViewerSession = "X-Viewer-Session"

type Endpoints struct {
	router        *Router
	pinService    *pinauth.Service
	portfolioRepo portfolio.Repository
}

func NewEndpoints(router *Router, pinService *pinauth.Service, portfolioRepo portfolio.Repository) *Endpoints {
	return &Endpoints{
		router:        router,
		pinService:    pinService,
		portfolioRepo: portfolioRepo,
	}
}

// httpSink writes a finished download straight into the response.
type httpSink struct {
	ctx *fasthttp.RequestCtx
}

func (s *httpSink) Save(filename, contentType string, data []byte) error {
	s.ctx.SetContentType(contentType)
	s.ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	s.ctx.SetBody(data)
	return nil
}

// DownloadAsset handles GET /share/{slug}/assets/{index}/download.
func (e *Endpoints) DownloadAsset(ctx *fasthttp.RequestCtx) {
	item, sess, caps, ok := e.resolveShare(ctx)
	if !ok {
		return
	}

	index, err := strconv.Atoi(fmt.Sprint(ctx.UserValue("assetIndex")))
	if err != nil {
		ctx.Error("Invalid asset index", fasthttp.StatusBadRequest)
		return
	}

	outcome, err := e.router.Request(ctx, sess, caps, item, SingleAsset(index), &httpSink{ctx: ctx})
	e.respond(ctx, outcome, err)
}

// DownloadAll handles GET /share/{slug}/download.
func (e *Endpoints) DownloadAll(ctx *fasthttp.RequestCtx) {
	item, sess, caps, ok := e.resolveShare(ctx)
	if !ok {
		return
	}

	outcome, err := e.router.Request(ctx, sess, caps, item, AllAssets(), &httpSink{ctx: ctx})
	e.respond(ctx, outcome, err)
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type pinResponse struct {
	Granted bool          `json:"granted"`
	Token   string        `json:"token,omitempty"`
	Resume  *resumeTarget `json:"resume,omitempty"`
}

type resumeTarget struct {
	All   bool   `json:"all"`
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// ValidatePin handles POST /share/{slug}/pin. On a grant the response names
// the download that was parked waiting for authorization, so the viewer can
// resume it immediately.
func (e *Endpoints) ValidatePin(ctx *fasthttp.RequestCtx) {
	item, sess, caps, ok := e.resolveShare(ctx)
	if !ok {
		return
	}

	// Privileged callers never go through PIN validation.
	if caps.Admin {
		e.writeJSON(ctx, fasthttp.StatusOK, pinResponse{Granted: true})
		return
	}

	var req pinRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	token, err := e.pinService.Validate(sess, item.PinHash, req.Pin)
	switch {
	case err == nil:
	case errors.Is(err, pinauth.ErrPinTooShort), errors.Is(err, pinauth.ErrInvalidPin):
		ctx.Error("Invalid PIN", fasthttp.StatusUnauthorized)
		return
	default:
		log.Error().Err(err).Str("portfolioId", item.ID).Msg("PIN validation unavailable")
		ctx.Error("PIN validation failed, please try again", fasthttp.StatusServiceUnavailable)
		return
	}

	response := pinResponse{Granted: true, Token: token}
	if target, pending := e.router.PendingTarget(sess.ID); pending {
		response.Resume = &resumeTarget{
			All:   target.All,
			Index: target.Index,
			URL:   resumePath(item.Slug, target),
		}
	}
	e.writeJSON(ctx, fasthttp.StatusOK, response)
}

func resumePath(slug string, target Target) string {
	if target.All {
		return fmt.Sprintf("/share/%s/download", slug)
	}
	return fmt.Sprintf("/share/%s/assets/%d/download", slug, target.Index)
}

func (e *Endpoints) resolveShare(ctx *fasthttp.RequestCtx) (*portfolio.Item, *pinauth.Session, Capabilities, bool) {
	slug := fmt.Sprint(ctx.UserValue("slug"))

	item, err := e.portfolioRepo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		} else {
			log.Error().Err(err).Str("slug", slug).Msg("Failed to load portfolio")
			ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		}
		return nil, nil, Capabilities{}, false
	}

	sessionID := string(ctx.Request.Header.Peek(headerViewerSession))
	sess, err := e.pinService.Store().Get(sessionID)
	if err != nil {
		ctx.Error("Unknown or expired viewer session", fasthttp.StatusUnauthorized)
		return nil, nil, Capabilities{}, false
	}
	if sess.PortfolioID != item.ID {
		ctx.Error("Session does not match portfolio", fasthttp.StatusForbidden)
		return nil, nil, Capabilities{}, false
	}

	caps := Capabilities{}
	if isAdmin, ok := ctx.UserValue("isAdmin").(bool); ok && isAdmin {
		caps.Admin = true
	}
	return item, sess, caps, true
}

func (e *Endpoints) respond(ctx *fasthttp.RequestCtx, outcome Outcome, err error) {
	if err != nil {
		switch {
		case errors.Is(err, ErrIndexInvalid):
			ctx.Error("Asset not found", fasthttp.StatusNotFound)
		case errors.Is(err, ErrJobInFlight):
			ctx.Error("A download is already in progress for this session", fasthttp.StatusConflict)
		case errors.Is(err, archive.ErrAllFailed), errors.Is(err, ErrAssetUnavailable):
			log.Error().Err(err).Msg("Download failed")
			ctx.Error("Download failed", fasthttp.StatusBadGateway)
		default:
			log.Error().Err(err).Msg("Download failed")
			ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		}
		return
	}

	switch outcome.Kind {
	case OutcomePinRequired:
		e.writeJSON(ctx, fasthttp.StatusUnauthorized, map[string]bool{"pinRequired": true})

	case OutcomeRedirected:
		ctx.Redirect(outcome.RedirectURL, fasthttp.StatusFound)

	case OutcomeSaved:
		// The sink already wrote body and headers.
		if len(outcome.Failed) > 0 {
			ctx.Response.Header.Set("X-Failed-Count", strconv.Itoa(len(outcome.Failed)))
		}
		ctx.SetStatusCode(fasthttp.StatusOK)

	case OutcomeNone:
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

func (e *Endpoints) writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	json.NewEncoder(ctx).Encode(body)
}
