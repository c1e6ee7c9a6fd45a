// Package download routes viewer download requests: single asset versus whole
// portfolio, fetch-and-save versus external navigation, and whether PIN
// authorization must run first.
package download

import (
	"errors"
	"net/url"
	"strings"

	"github.com/lensvault/lensvault_server/internal/portfolio"
)

var (
	// ErrJobInFlight rejects a "download all" while another archive job is
	// already running for the same session. Rejected, never queued.
	ErrJobInFlight = errors.New("an archive job is already in flight")

	// ErrAssetUnavailable means a single-asset fetch failed; no archive is
	// involved for a single asset.
	ErrAssetUnavailable = errors.New("asset could not be downloaded")

	ErrIndexInvalid = errors.New("asset index out of range")
)

// Target identifies what the viewer asked for: one asset by index, or the
// whole media list.
type Target struct {
	All   bool `json:"all"`
	Index int  `json:"index"`
}

func SingleAsset(index int) Target {
	return Target{Index: index}
}

func AllAssets() Target {
	return Target{All: true}
}

// Capabilities is the caller's explicit capability token. Admin identity is
// supplied by the surrounding auth layer, never derived here, and bypasses
// the PIN requirement entirely.
type Capabilities struct {
	Admin bool
}

// SaveSink receives a finished download. The HTTP layer implements it on top
// of the response writer; tests use an in-memory recorder.
type SaveSink interface {
	Save(filename, contentType string, data []byte) error
}

type DecisionKind string

const (
	DecisionPinRequired DecisionKind = "pin_required"
	DecisionRedirect    DecisionKind = "redirect"
	DecisionSingle      DecisionKind = "single"
	DecisionArchive     DecisionKind = "archive"
	DecisionNone        DecisionKind = "none"
)

// Decision is the routing verdict for a target, before any I/O happens.
type Decision struct {
	Kind        DecisionKind
	RedirectURL string
	Index       int
}

type OutcomeKind string

const (
	OutcomePinRequired OutcomeKind = "pin_required"
	OutcomeRedirected  OutcomeKind = "redirected"
	OutcomeSaved       OutcomeKind = "saved"
	OutcomeNone        OutcomeKind = "none"
)

// Outcome is the result of an executed request. Failed is only populated for
// a partially successful archive: the save went through, but Failed lists the
// assets that could not be included — a soft warning, not an error.
type Outcome struct {
	Kind        OutcomeKind
	RedirectURL string
	Failed      []portfolio.MediaDescriptor
}

type Config struct {
	ExternalVideoHosts []string `mapstructure:"external_video_hosts"`
}

// isExternalVideo reports whether a descriptor is a video hosted on one of
// the recognized external hosts. Those are never downloaded as files; the
// viewer navigates to the original hosting URL instead.
func isExternalVideo(d portfolio.MediaDescriptor, hosts []string) bool {
	if d.Kind != portfolio.KindVideo {
		return false
	}
	u, err := url.Parse(d.SourceURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
