// Package fetch retrieves one remote asset into an in-memory buffer. A failed
// retrieval is a data value, never an error return: the archive assembler must
// keep packaging the remaining assets when one of them is unreachable.
package fetch

import (
	"context"
	"time"

	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type FailureReason string

const (
	ReasonNetwork   FailureReason = "network"
	ReasonStatus    FailureReason = "status"
	ReasonEmptyBody FailureReason = "empty_body"
	ReasonCancelled FailureReason = "cancelled"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Failure describes why one asset could not be retrieved. Status is only set
// for ReasonStatus.
type Failure struct {
	Reason FailureReason
	Status int
	Err    error
}

// Result is the per-asset outcome of a retrieval attempt.
type Result struct {
	Descriptor portfolio.MediaDescriptor
	Data       []byte
	Failure    *Failure
}

func (r Result) Failed() bool {
	return r.Failure != nil
}

type Retriever struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewRetriever(config Config) *Retriever {
	timeout := defaultTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	return &Retriever{
		client: &fasthttp.Client{
			MaxResponseBodySize: 0, // assets can be large originals
		},
		timeout: timeout,
	}
}

// Retrieve performs a plain GET against the descriptor's source URL. Asset
// URLs are possession-based capability tokens, so no auth header is attached.
// The timeout bounds each fetch so one unreachable asset cannot stall a whole
// archive job. No retry happens here; retry policy belongs to the caller.
func (r *Retriever) Retrieve(ctx context.Context, d portfolio.MediaDescriptor) Result {
	result := Result{Descriptor: d}

	if err := ctx.Err(); err != nil {
		result.Failure = &Failure{Reason: ReasonCancelled, Err: err}
		return result
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.SourceURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := r.client.DoTimeout(req, resp, r.timeout); err != nil {
		log.Warn().Err(err).Str("url", d.SourceURL).Msg("Asset fetch failed")
		result.Failure = &Failure{Reason: ReasonNetwork, Err: err}
		return result
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		log.Warn().Int("status", status).Str("url", d.SourceURL).Msg("Asset fetch returned non-success status")
		result.Failure = &Failure{Reason: ReasonStatus, Status: status}
		return result
	}

	body := resp.Body()
	if len(body) == 0 {
		log.Warn().Str("url", d.SourceURL).Msg("Asset fetch returned empty body")
		result.Failure = &Failure{Reason: ReasonEmptyBody}
		return result
	}

	// The response body is pooled by fasthttp; copy it out.
	result.Data = append([]byte(nil), body...)
	return result
}
